package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardenlab/resilience-go/pkg/baseline"
	"github.com/hardenlab/resilience-go/pkg/types"
)

func sampleReport() *Report {
	r := New("Nightly Validation")
	r.Scenarios = []*types.ChaosTestResult{
		{
			ScenarioID:   "s-1",
			ScenarioName: "latency injection",
			StartedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			Success:      true,
			Recovery:     &types.RecoveryValidationResult{Success: true, SuccessRate: 100},
			Analysis:     &types.MTTRAnalysisResult{MTTR: 35 * time.Second},
		},
		{
			ScenarioID:   "s-2",
			ScenarioName: "cpu stress",
			StartedAt:    time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC),
			Aborted:      true,
		},
	}
	r.Comparisons = []*baseline.Comparison{
		{
			BaselineID:         "abc-1",
			TestType:           "load",
			TestName:           "checkout",
			OverallScore:       85,
			Severity:           baseline.SeverityMinor,
			RegressionDetected: true,
			Recommendations:    []string{"profile the request path"},
		},
	}
	return r
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Render(&buf, FormatJSON))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Nightly Validation", decoded.Title)
	require.Len(t, decoded.Scenarios, 2)
	require.Len(t, decoded.Comparisons, 1)
}

func TestRender_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Render(&buf, FormatCSV))

	out := buf.String()
	assert.Contains(t, out, "latency injection")
	assert.Contains(t, out, "passed")
	assert.Contains(t, out, "aborted")
	assert.Contains(t, out, "checkout")
	assert.Contains(t, out, "85.0")
}

func TestRender_HTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Render(&buf, FormatHTML))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "Nightly Validation")
	assert.Contains(t, out, "latency injection")
	assert.Contains(t, out, "minor")
	assert.Contains(t, out, "profile the request path")
}

func TestRender_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, sampleReport().Render(&buf, Format("pdf")))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, "passed", statusOf(&types.ChaosTestResult{Success: true}))
	assert.Equal(t, "failed", statusOf(&types.ChaosTestResult{}))
	assert.Equal(t, "aborted", statusOf(&types.ChaosTestResult{Aborted: true, Success: false}))
}
