package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hardenlab/resilience-go/pkg/log"
	"github.com/hardenlab/resilience-go/pkg/telemetry"
)

var (
	dataDir       string
	metricsListen string
	otelEndpoint  string

	telemetryShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "resilience",
	Short: "Continuous resilience and performance validation",
	Long: "Resilience runs fault-injection scenarios against a service, records\n" +
		"performance baselines and alerts on regressions against history.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if metricsListen != "" {
			go func() {
				http.Handle("/metrics", promhttp.Handler())
				if err := http.ListenAndServe(metricsListen, nil); err != nil {
					log.Errorf("Unable to serve metrics on %v, err: %v", metricsListen, err)
				}
			}()
		}
		if otelEndpoint != "" {
			shutdown, err := telemetry.InitOTelSDK(cmd.Context(), otelEndpoint)
			if err != nil {
				return err
			}
			telemetryShutdown = shutdown
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if telemetryShutdown == nil {
			return nil
		}
		shutdown := telemetryShutdown
		telemetryShutdown = nil
		if err := shutdown(context.Background()); err != nil {
			log.Errorf("Unable to shutdown telemetry, err: %v", err)
		}
		return nil
	},
}

func init() {
	// Log as text with full timestamps, matching service conventions
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableSorting:         true,
		DisableLevelTruncation: true,
	})

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "baselines", "directory holding baseline records")
	rootCmd.PersistentFlags().StringVar(&metricsListen, "metrics-listen", "", "address to serve prometheus metrics on (disabled when empty)")
	rootCmd.PersistentFlags().StringVar(&otelEndpoint, "otel-endpoint", "", "otlp grpc endpoint for traces (disabled when empty)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(alertsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
