package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/hardenlab/resilience-go/pkg/alerts"
)

var (
	historyFile string
	windowHours int
	actor       string
	ackNotes    string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and manage regression alerts",
}

var alertsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show alert statistics over a trailing window",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openManager()
		if err != nil {
			return err
		}
		stats := manager.GetAlertStatistics(windowHours)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List currently unresolved alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openManager()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(manager.ActiveAlerts())
	},
}

var alertsAckCmd = &cobra.Command{
	Use:   "ack [alert-id]",
	Short: "Acknowledge an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openManager()
		if err != nil {
			return err
		}
		if !manager.AcknowledgeAlert(args[0], actor, ackNotes) {
			cmd.PrintErrf("alert %s not found or already acknowledged\n", args[0])
			os.Exit(1)
		}
		return nil
	},
}

var alertsResolveCmd = &cobra.Command{
	Use:   "resolve [alert-id]",
	Short: "Resolve an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openManager()
		if err != nil {
			return err
		}
		if !manager.ResolveAlert(args[0], actor) {
			cmd.PrintErrf("alert %s not found or already resolved\n", args[0])
			os.Exit(1)
		}
		return nil
	},
}

func openManager() (*alerts.Manager, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	config := alerts.DefaultRegressionConfig()
	config.HistoryFile = historyFile
	return alerts.NewManager(config, store)
}

func init() {
	alertsCmd.PersistentFlags().StringVar(&historyFile, "history", "alert-history.json", "path of the alert history file")
	alertsStatsCmd.Flags().IntVar(&windowHours, "window-hours", 24, "trailing window in hours")
	for _, cmd := range []*cobra.Command{alertsAckCmd, alertsResolveCmd} {
		cmd.Flags().StringVar(&actor, "by", "operator", "who performs the action")
	}
	alertsAckCmd.Flags().StringVar(&ackNotes, "notes", "", "acknowledgment notes")

	alertsCmd.AddCommand(alertsStatsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsAckCmd)
	alertsCmd.AddCommand(alertsResolveCmd)
}
