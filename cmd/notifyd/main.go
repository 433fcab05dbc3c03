// notifyd runs the compliance notification engine.
//
// Usage:
//
//	notifyd serve --config config.yaml
//	notifyd scan alerts
//	notifyd purge --days 90
//	notifyd migrate --seed
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
	outputFmt  string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "notifyd",
		Short: "Compliance notification rule engine",
		Long: `notifyd evaluates notification, alert and expiration rules and delivers
in-app and email notifications.

Configuration is read from config.yaml (or --config) and NOTIFY_* environment
variables, e.g. NOTIFY_DATABASE_DSN.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	root.PersistentFlags().StringVarP(&outputFmt, "output", "o", "json", "Output format: json, yaml")

	root.AddCommand(serveCmd())
	root.AddCommand(scanCmd())
	root.AddCommand(purgeCmd())
	root.AddCommand(migrateCmd())
	return root
}
