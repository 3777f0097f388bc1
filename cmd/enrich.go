package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iXanadu/abouthr/internal/enrich"
	"github.com/iXanadu/abouthr/internal/model"
	"github.com/iXanadu/abouthr/internal/quota"
	"github.com/iXanadu/abouthr/internal/store"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Match and enrich curated venues from a place-data provider",
	Long:  "Matches unmatched manual venues to provider records, merges live data, and optionally discovers new top venues per city. Respects the provider's daily API quota.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		city, _ := cmd.Flags().GetString("city")
		typeCSV, _ := cmd.Flags().GetString("type")
		all, _ := cmd.Flags().GetBool("all")
		discover, _ := cmd.Flags().GetBool("discover")
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		flagUnmatched, _ := cmd.Flags().GetBool("flag-unmatched")
		providerName, _ := cmd.Flags().GetString("provider")

		if city == "" && !all {
			return fmt.Errorf("either --city or --all is required")
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
		types := parseVenueTypes(typeCSV)

		cities := []string{city}
		if all {
			cities, err = listCities(ctx, st, types)
			if err != nil {
				return err
			}
			if len(cities) == 0 {
				fmt.Fprintln(os.Stderr, "No venues in the catalog yet.")
				return nil
			}
		}

		if dryRun {
			fmt.Println("Dry run: nothing will be written.")
		}

		var matched, failed, skipped, added int
		for _, c := range cities {
			fmt.Printf("\n=== %s ===\n", c)

			result, err := eng.MatchAndEnrichBatch(ctx, c, types, dryRun)
			if err != nil {
				return err
			}
			printBatch(result)
			matched += result.Matched
			failed += result.Failed
			skipped += result.Skipped

			if discover {
				dr, err := eng.DiscoverNew(ctx, c, types, limit, dryRun)
				if err != nil {
					zap.L().Warn("discovery failed", zap.String("city", c), zap.Error(err))
					continue
				}
				printDiscovery(dr)
				added += dr.Added
			}
		}

		if flagUnmatched && !dryRun {
			n, err := eng.FlagUnmatched(ctx, types)
			if err != nil {
				return err
			}
			fmt.Printf("\nFlagged %d unmatched venues for manual review\n", n)
		}

		if all && discover && !dryRun {
			if err := eng.MarkFullSync(ctx); err != nil {
				return err
			}
		}

		fmt.Printf("\nTotals: %d matched, %d failed, %d skipped", matched, failed, skipped)
		if discover {
			fmt.Printf(", %d discovered", added)
		}
		fmt.Println()
		printQuota(ctx, st, provider.Name())
		return nil
	},
}

func printBatch(result *enrich.BatchResult) {
	for _, d := range result.Details {
		mark := "x"
		if d.Success {
			mark = "+"
		}
		fmt.Printf("  [%s] %s: %s\n", mark, d.Venue, d.Message)
	}
}

func printDiscovery(result *enrich.DiscoverResult) {
	for _, d := range result.Details {
		if d.Action == "added" {
			fmt.Printf("  [+] discovered %s\n", d.Name)
		}
	}
	fmt.Printf("  discovery: %d added, %d already known\n", result.Added, result.Existing)
}

func printQuota(ctx context.Context, st store.Store, provider model.ProviderName) {
	pc, err := st.GetProviderConfig(ctx, provider)
	if err != nil || pc == nil {
		return
	}
	fmt.Printf("Quota: %d/%d requests used today, %d remaining (%s)\n",
		pc.RequestsToday, pc.DailyQuota, quota.Remaining(pc, time.Now()), pc.Provider)
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	enrichCmd.Flags().String("city", "", "city to enrich")
	enrichCmd.Flags().String("type", "", "comma-separated venue types (default: restaurant,cafe_brewery)")
	enrichCmd.Flags().Bool("all", false, "run for every city in the catalog")
	enrichCmd.Flags().Bool("discover", false, "also discover new top venues per city")
	enrichCmd.Flags().Int("limit", 0, "max venues discovered per city/type (default from provider config)")
	enrichCmd.Flags().Bool("dry-run", false, "report what would happen without writing")
	enrichCmd.Flags().Bool("flag-unmatched", false, "flag remaining unmatched venues for manual review")
	enrichCmd.Flags().String("provider", "", "provider to use (google, yelp)")
}
