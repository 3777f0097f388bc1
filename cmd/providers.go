package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iXanadu/abouthr/internal/model"
	"github.com/iXanadu/abouthr/internal/quota"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage place-data provider configurations",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List provider configurations and quota state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		// Make sure both known providers have rows so the listing is
		// complete on a fresh database.
		for _, p := range []model.ProviderName{model.ProviderGoogle, model.ProviderYelp} {
			if _, err := st.EnsureProviderConfig(ctx, p); err != nil {
				return err
			}
		}

		configs, err := st.ListProviderConfigs(ctx)
		if err != nil {
			return err
		}

		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tENABLED\tQUOTA\tUSED TODAY\tREMAINING\tKEY ENV\tLAST FULL SYNC")
		for i := range configs {
			c := &configs[i]
			lastSync := "-"
			if c.LastFullSync != nil {
				lastSync = c.LastFullSync.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%t\t%d\t%d\t%d\t%s\t%s\n",
				c.Provider, c.Enabled, c.DailyQuota, c.RequestsToday,
				quota.Remaining(c, now), c.APIKeyName, lastSync)
		}
		return w.Flush()
	},
}

var providersEnableCmd = &cobra.Command{
	Use:   "enable <provider>",
	Short: "Enable a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProviderEnabled(cmd, args[0], true)
	},
}

var providersDisableCmd = &cobra.Command{
	Use:   "disable <provider>",
	Short: "Disable a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProviderEnabled(cmd, args[0], false)
	},
}

func setProviderEnabled(cmd *cobra.Command, name string, enabled bool) error {
	ctx := cmd.Context()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	provider := model.ProviderName(name)
	if _, err := st.EnsureProviderConfig(ctx, provider); err != nil {
		return err
	}
	if err := st.SetProviderEnabled(ctx, provider, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Provider %s %s\n", provider, state)
	return nil
}

var providersSetQuotaCmd = &cobra.Command{
	Use:   "set-quota <provider> <daily-quota>",
	Short: "Set a provider's daily request quota",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var dailyQuota int
		if _, err := fmt.Sscanf(args[1], "%d", &dailyQuota); err != nil || dailyQuota < 0 {
			return fmt.Errorf("invalid daily quota: %s", args[1])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		provider := model.ProviderName(args[0])
		if _, err := st.EnsureProviderConfig(ctx, provider); err != nil {
			return err
		}
		if err := st.SetProviderQuota(ctx, provider, dailyQuota); err != nil {
			return err
		}
		fmt.Printf("Provider %s daily quota set to %d\n", provider, dailyQuota)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersEnableCmd)
	providersCmd.AddCommand(providersDisableCmd)
	providersCmd.AddCommand(providersSetQuotaCmd)
}
