package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hardenlab/resilience-go/pkg/baseline"
	"github.com/hardenlab/resilience-go/pkg/log"
)

var (
	testType    string
	testName    string
	metricsPath string
	version     string
	tags        []string
	notes       string
	baselineID  string
	windowDays  int
	ioPath      string
	ioFormat    string
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Record, compare, inspect and move performance baselines",
}

var baselineRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a new performance baseline from a metrics file",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		m, err := readMetricsFile(metricsPath)
		if err != nil {
			return err
		}
		record, err := store.RecordBaseline(testType, baseline.TestConfig{Name: testName}, m, baseline.RecordOptions{
			Version: version,
			Tags:    tags,
			Notes:   notes,
		})
		if err != nil {
			return err
		}
		fmt.Println(record.ID)
		return nil
	},
}

var baselineCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare a metrics file against the best-matching baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		m, err := readMetricsFile(metricsPath)
		if err != nil {
			return err
		}
		comparison, err := store.CompareToBaseline(testType, baseline.TestConfig{Name: testName}, m, baseline.CompareOptions{
			BaselineID: baselineID,
			Version:    version,
			Tags:       tags,
		})
		if err != nil {
			return err
		}
		if comparison == nil {
			log.Infof("No baseline history for %v/%v yet", testType, testName)
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(comparison); err != nil {
			return err
		}
		if comparison.RegressionDetected {
			return errors.Errorf("regression detected with severity %v", comparison.Severity)
		}
		return nil
	},
}

var baselineTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show performance trends over a trailing window",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		trends := store.GetPerformanceTrends(testType, time.Duration(windowDays)*24*time.Hour)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(trends)
	},
}

var baselineExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every baseline record to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		f, err := os.Create(ioPath)
		if err != nil {
			return errors.Errorf("unable to create export file %v, err: %v", ioPath, err)
		}
		defer f.Close()
		return store.ExportBaselines(f, baseline.Format(ioFormat))
	},
}

var baselineImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import baseline records from a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		f, err := os.Open(ioPath)
		if err != nil {
			return errors.Errorf("unable to open import file %v, err: %v", ioPath, err)
		}
		defer f.Close()
		imported, err := store.ImportBaselines(f, baseline.Format(ioFormat))
		if err != nil {
			return err
		}
		fmt.Printf("imported %d records\n", imported)
		return nil
	},
}

func openStore() (*baseline.Store, error) {
	config := baseline.DefaultConfig()
	config.DataDirectory = dataDir
	return baseline.NewStore(config, nil)
}

func readMetricsFile(path string) (baseline.Metrics, error) {
	var m baseline.Metrics
	if path == "" {
		return m, errors.Errorf("--metrics is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return m, errors.Errorf("unable to read metrics file %v, err: %v", path, err)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, errors.Errorf("unable to parse metrics file %v, err: %v", path, err)
	}
	return m, nil
}

func init() {
	for _, cmd := range []*cobra.Command{baselineRecordCmd, baselineCompareCmd, baselineTrendsCmd} {
		cmd.Flags().StringVar(&testType, "type", "", "test type, e.g. load or stress")
		cmd.MarkFlagRequired("type")
	}
	for _, cmd := range []*cobra.Command{baselineRecordCmd, baselineCompareCmd} {
		cmd.Flags().StringVar(&testName, "name", "", "test configuration name")
		cmd.Flags().StringVar(&metricsPath, "metrics", "", "path to a json metrics file")
		cmd.Flags().StringVar(&version, "version", "", "application version under test")
		cmd.Flags().StringSliceVar(&tags, "tag", nil, "tags to attach or match")
		cmd.MarkFlagRequired("name")
	}
	baselineRecordCmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	baselineCompareCmd.Flags().StringVar(&baselineID, "baseline-id", "", "compare against this exact baseline")
	baselineTrendsCmd.Flags().IntVar(&windowDays, "window-days", 7, "trailing window in days")
	for _, cmd := range []*cobra.Command{baselineExportCmd, baselineImportCmd} {
		cmd.Flags().StringVar(&ioPath, "file", "", "path of the export/import file")
		cmd.Flags().StringVar(&ioFormat, "format", "json", "file format: json or csv")
		cmd.MarkFlagRequired("file")
	}

	baselineCmd.AddCommand(baselineRecordCmd)
	baselineCmd.AddCommand(baselineCompareCmd)
	baselineCmd.AddCommand(baselineTrendsCmd)
	baselineCmd.AddCommand(baselineExportCmd)
	baselineCmd.AddCommand(baselineImportCmd)
}
