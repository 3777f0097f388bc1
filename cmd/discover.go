package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover top venues in a city from a place-data provider",
	Long:  "Pulls the highest-rated venues per type from the provider and reconciles them against the catalog. Known venues are skipped or matched in place; only genuinely new ones are created.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		city, _ := cmd.Flags().GetString("city")
		typeCSV, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		providerName, _ := cmd.Flags().GetString("provider")

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

		result, err := eng.DiscoverNew(ctx, city, parseVenueTypes(typeCSV), limit, dryRun)
		if err != nil {
			return err
		}

		for _, d := range result.Details {
			switch d.Action {
			case "added":
				if d.Rating != nil {
					fmt.Printf("  [+] %s (%.1f)\n", d.Name, *d.Rating)
				} else {
					fmt.Printf("  [+] %s\n", d.Name)
				}
			case "matched":
				fmt.Printf("  [=] %s (%s)\n", d.Name, d.Reason)
			}
		}
		fmt.Printf("\n%s: %d added, %d already known\n", city, result.Added, result.Existing)
		printQuota(ctx, st, provider.Name())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().String("city", "", "city to search")
	discoverCmd.Flags().String("type", "", "comma-separated venue types (default: restaurant,cafe_brewery)")
	discoverCmd.Flags().Int("limit", 0, "max venues per type (default from provider config)")
	discoverCmd.Flags().Bool("dry-run", false, "report what would happen without writing")
	discoverCmd.Flags().String("provider", "", "provider to use (google, yelp)")
	_ = discoverCmd.MarkFlagRequired("city")
}
