package cli

import (
	"github.com/spf13/cobra"
)

var serverFlag string

var rootCmd = &cobra.Command{
	Use:   "shopdash",
	Short: "Shopdash: store analytics from the terminal",
	Long: `Shopdash reads the analytics datasets behind the store dashboard:
sessions, sales, customers, satisfaction and conversion figures.

The API base URL comes from --server, then SHOPDASH_API_URL, then
~/.shopdash/config.json, then http://localhost:5000/api.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "API base URL (e.g. http://localhost:5000/api)")

	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
