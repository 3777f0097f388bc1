package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh live data for already-matched venues",
	Long:  "Re-fetches ratings, hours, and photos for venues whose enrichment is older than the cutoff, oldest first. With --venue-id, refreshes a single venue regardless of age.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		days, _ := cmd.Flags().GetInt("days")
		limit, _ := cmd.Flags().GetInt("limit")
		venueID, _ := cmd.Flags().GetString("venue-id")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		providerName, _ := cmd.Flags().GetString("provider")

		if days <= 0 {
			days = cfg.Enrich.StaleDays
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		provider, err := initProvider(ctx, st, providerName)
		if err != nil {
			return err
		}
		eng := newEngine(st, provider)

		if dryRun {
			fmt.Println("Dry run: nothing will be written.")
		}

		if venueID != "" {
			venue, err := st.GetVenue(ctx, venueID)
			if err != nil {
				return err
			}
			ok, msg, err := eng.Refresh(ctx, venue, dryRun)
			if err != nil {
				return err
			}
			mark := "x"
			if ok {
				mark = "+"
			}
			fmt.Printf("[%s] %s: %s\n", mark, venue.Name, msg)
			return nil
		}

		result, err := eng.RefreshStale(ctx, days, limit, dryRun)
		if err != nil {
			return err
		}
		for _, d := range result.Details {
			mark := "x"
			if d.Success {
				mark = "+"
			}
			fmt.Printf("  [%s] %s: %s\n", mark, d.Venue, d.Message)
		}
		fmt.Printf("\nRefreshed %d venues, %d failed (older than %d days)\n",
			result.Refreshed, result.Failed, days)
		printQuota(ctx, st, provider.Name())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().Int("days", 0, "refresh venues enriched more than this many days ago")
	refreshCmd.Flags().Int("limit", 0, "max venues to refresh (0 = no limit)")
	refreshCmd.Flags().String("venue-id", "", "refresh a single venue by id")
	refreshCmd.Flags().Bool("dry-run", false, "report what would happen without writing")
	refreshCmd.Flags().String("provider", "", "provider to use (google, yelp)")
}
