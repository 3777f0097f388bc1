package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iXanadu/abouthr/internal/model"
	"github.com/iXanadu/abouthr/internal/store"
)

var venuesCmd = &cobra.Command{
	Use:   "venues",
	Short: "Manage the curated venue catalog",
}

var venuesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a manual venue to the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		name, _ := cmd.Flags().GetString("name")
		city, _ := cmd.Flags().GetString("city")
		venueType, _ := cmd.Flags().GetString("type")
		address, _ := cmd.Flags().GetString("address")
		phone, _ := cmd.Flags().GetString("phone")
		website, _ := cmd.Flags().GetString("website")
		cuisine, _ := cmd.Flags().GetString("cuisine")
		description, _ := cmd.Flags().GetString("description")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		// Refuse obvious duplicates up front.
		existing, err := st.FindVenueByName(ctx, city, model.VenueType(venueType), name)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("venue already exists: %s (%s)", existing.Name, existing.ID)
		}

		v := &model.Venue{
			Name:        name,
			City:        city,
			VenueType:   model.VenueType(venueType),
			Address:     address,
			Phone:       phone,
			Website:     website,
			CuisineType: cuisine,
			Description: description,
			IsPublished: true,
		}
		if err := st.CreateVenue(ctx, v); err != nil {
			return err
		}
		fmt.Printf("Added %s (%s) in %s, id %s\n", v.Name, v.VenueType, v.City, v.ID)
		return nil
	},
}

var venuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List venues",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		city, _ := cmd.Flags().GetString("city")
		typeCSV, _ := cmd.Flags().GetString("type")
		status, _ := cmd.Flags().GetString("status")
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		venues, err := st.ListVenues(ctx, store.VenueFilter{
			City:             city,
			Types:            parseVenueTypes(typeCSV),
			EnrichmentStatus: model.EnrichmentStatus(status),
			DataSource:       model.DataSource(source),
			Limit:            limit,
		})
		if err != nil {
			return err
		}
		if len(venues) == 0 {
			fmt.Fprintln(os.Stderr, "No venues found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCITY\tTYPE\tSTATUS\tSOURCE\tRATING\tPRICE")
		for i := range venues {
			v := &venues[i]
			rating := "-"
			if v.Rating != nil {
				rating = fmt.Sprintf("%.1f", *v.Rating)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				v.Name, v.City, v.VenueType, v.EnrichmentStatus, v.DataSource,
				rating, v.PriceLevelDisplay())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(venuesCmd)
	venuesCmd.AddCommand(venuesAddCmd)
	venuesCmd.AddCommand(venuesListCmd)

	venuesAddCmd.Flags().String("name", "", "venue name")
	venuesAddCmd.Flags().String("city", "", "city")
	venuesAddCmd.Flags().String("type", "restaurant", "venue type")
	venuesAddCmd.Flags().String("address", "", "street address")
	venuesAddCmd.Flags().String("phone", "", "phone number")
	venuesAddCmd.Flags().String("website", "", "website URL")
	venuesAddCmd.Flags().String("cuisine", "", "cuisine type")
	venuesAddCmd.Flags().String("description", "", "description")
	_ = venuesAddCmd.MarkFlagRequired("name")
	_ = venuesAddCmd.MarkFlagRequired("city")

	venuesListCmd.Flags().String("city", "", "filter by city")
	venuesListCmd.Flags().String("type", "", "filter by comma-separated venue types")
	venuesListCmd.Flags().String("status", "", "filter by enrichment status")
	venuesListCmd.Flags().String("source", "", "filter by data source")
	venuesListCmd.Flags().Int("limit", 0, "max venues to list")
}
