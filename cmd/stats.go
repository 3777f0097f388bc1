package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iXanadu/abouthr/internal/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show enrichment coverage for the venue catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		providerName, _ := cmd.Flags().GetString("provider")
		typeCSV, _ := cmd.Flags().GetString("type")

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

		stats, err := eng.Stats(ctx, parseVenueTypes(typeCSV))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Total enrichable venues:\t%d\n", stats.Total)
		fmt.Fprintf(w, "Enrichment rate:\t%.1f%%\n", stats.EnrichmentRate)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By status:")
		for _, status := range []model.EnrichmentStatus{
			model.EnrichmentSuccess, model.EnrichmentNone, model.EnrichmentPending,
			model.EnrichmentFailed, model.EnrichmentManualReview,
		} {
			if n := stats.ByStatus[status]; n > 0 {
				fmt.Fprintf(w, "  %s:\t%d\n", status, n)
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By source:")
		for _, source := range []model.DataSource{model.SourceManual, model.SourceGoogle, model.SourceYelp} {
			if n := stats.BySource[source]; n > 0 {
				fmt.Fprintf(w, "  %s:\t%d\n", source, n)
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Quota remaining today:\t%d\n", stats.QuotaRemaining)
		if stats.LastFullSync != nil {
			fmt.Fprintf(w, "Last full sync:\t%s\n", stats.LastFullSync.Format("2006-01-02 15:04 MST"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("provider", "", "provider whose quota to report (google, yelp)")
	statsCmd.Flags().String("type", "", "comma-separated venue types (default: restaurant,cafe_brewery)")
}
