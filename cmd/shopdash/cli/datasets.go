package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shopdash/shopdash/internal/analytics"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Fetch every dataset in one call",
	Long: `Fetch the composite dashboard: one object with a key per dataset.

Examples:
  shopdash dashboard
  shopdash dashboard | jq .conversionRate`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := NewClient()
		if err != nil {
			return err
		}
		raw, err := client.Dashboard()
		if err != nil {
			return fmt.Errorf("failed to fetch dashboard: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), raw)
	},
}

var getCmd = &cobra.Command{
	Use:   "get DATASET",
	Short: "Fetch a single dataset",
	Long: `Fetch one dataset. DATASET is either its route name or its dashboard key,
as listed by 'shopdash datasets'.

Examples:
  shopdash get sessions-by-device
  shopdash get conversionRate`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, ok := analytics.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown dataset %q (run 'shopdash datasets' to list them)", args[0])
		}

		client, err := NewClient()
		if err != nil {
			return err
		}
		raw, err := client.Dataset(ds.Path)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", ds.Path, err)
		}
		return printJSON(cmd.OutOrStdout(), raw)
	},
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the available datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKEY\tKIND\tDESCRIPTION")
		for _, ds := range analytics.Datasets() {
			kind := "series"
			if ds.Singleton {
				kind = "summary"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ds.Path, ds.Key, kind, strings.ToUpper(ds.Label[:1])+ds.Label[1:])
		}
		return w.Flush()
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := NewClient()
		if err != nil {
			return err
		}
		health, err := client.Health()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", health.Status, health.Message, health.Timestamp)
		return nil
	},
}
