package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hardenlab/resilience-go/pkg/chaos"
	"github.com/hardenlab/resilience-go/pkg/events"
	"github.com/hardenlab/resilience-go/pkg/log"
	"github.com/hardenlab/resilience-go/pkg/report"
	"github.com/hardenlab/resilience-go/pkg/types"
)

var (
	scenarioPath   string
	suitePath      string
	healthEndpoint string
	environment    string
	reportPath     string
	reportFormat   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a chaos scenario or suite",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scenarioPath == "" && suitePath == "" {
			return errors.Errorf("either --scenario or --suite is required")
		}

		config := types.DefaultChaosConfig()
		config.Environment = environment

		collaborators := chaos.Collaborators{
			Injector:  chaos.NewDryRunInjector(),
			Validator: chaos.NewEndpointValidator(30*time.Second, 2*time.Second),
			Analyzer:  chaos.NewWindowAnalyzer(),
			Monitor:   chaos.NewHTTPMonitor(healthEndpoint, 5*time.Second),
		}
		orchestrator := chaos.NewOrchestrator(config, collaborators, events.NewBus())

		out := report.New("Resilience Validation Report")
		if suitePath != "" {
			suite, err := chaos.LoadSuiteFile(suitePath)
			if err != nil {
				return err
			}
			out.Scenarios = orchestrator.ExecuteScenarioSuite(cmd.Context(), suite.Name, suite.Scenarios)
		} else {
			scenario, err := chaos.LoadScenarioFile(scenarioPath)
			if err != nil {
				return err
			}
			result, err := orchestrator.ExecuteScenario(cmd.Context(), scenario)
			if err != nil {
				return err
			}
			out.Scenarios = append(out.Scenarios, result)
		}

		if reportPath != "" {
			f, err := os.Create(reportPath)
			if err != nil {
				return errors.Errorf("unable to create report file %v, err: %v", reportPath, err)
			}
			defer f.Close()
			if err := out.Render(f, report.Format(reportFormat)); err != nil {
				return err
			}
			log.Infof("Report written to %v", reportPath)
		}

		for _, result := range out.Scenarios {
			if !result.Success {
				return errors.Errorf("scenario %v did not pass", result.ScenarioID)
			}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to a scenario yaml file")
	runCmd.Flags().StringVar(&suitePath, "suite", "", "path to a suite yaml file")
	runCmd.Flags().StringVar(&healthEndpoint, "health-endpoint", "http://localhost:8080/health", "service health endpoint to monitor")
	runCmd.Flags().StringVar(&environment, "environment", "development", "environment name checked against the protected list")
	runCmd.Flags().StringVar(&reportPath, "report", "", "write a report to this path")
	runCmd.Flags().StringVar(&reportFormat, "format", "json", "report format: json, csv or html")
}
