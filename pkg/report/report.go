package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/hardenlab/resilience-go/pkg/baseline"
	"github.com/hardenlab/resilience-go/pkg/types"
)

// Format selects the rendering of a validation report
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Report bundles the outcomes of one validation run: the chaos scenario
// results, the baseline comparisons and the trend reports that were produced
type Report struct {
	Title       string                   `json:"title"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Scenarios   []*types.ChaosTestResult `json:"scenarios,omitempty"`
	Comparisons []*baseline.Comparison   `json:"comparisons,omitempty"`
	Trends      []*baseline.TrendReport  `json:"trends,omitempty"`
}

// New returns an empty report stamped with the current time
func New(title string) *Report {
	return &Report{Title: title, GeneratedAt: time.Now()}
}

// Render writes the report in the requested format
func (r *Report) Render(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatCSV:
		return r.renderCSV(w)
	case FormatHTML:
		return r.renderHTML(w)
	default:
		return errors.Errorf("unsupported report format '%s'", format)
	}
}

// renderCSV emits one section per result kind, separated by a blank row
func (r *Report) renderCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if len(r.Scenarios) > 0 {
		if err := cw.Write([]string{"scenarioId", "scenarioName", "status", "startedAt", "mttrSeconds", "successRate", "observations"}); err != nil {
			return err
		}
		for _, result := range r.Scenarios {
			row := []string{
				result.ScenarioID,
				result.ScenarioName,
				statusOf(result),
				result.StartedAt.Format(time.RFC3339),
				strconv.FormatFloat(mttrOf(result).Seconds(), 'f', 1, 64),
				strconv.FormatFloat(successRateOf(result), 'f', 1, 64),
				strconv.Itoa(len(result.Observations)),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	if len(r.Comparisons) > 0 {
		if len(r.Scenarios) > 0 {
			if err := cw.Write([]string{}); err != nil {
				return err
			}
		}
		if err := cw.Write([]string{"baselineId", "testType", "testName", "overallScore", "severity", "regressionDetected"}); err != nil {
			return err
		}
		for _, comparison := range r.Comparisons {
			row := []string{
				comparison.BaselineID,
				comparison.TestType,
				comparison.TestName,
				strconv.FormatFloat(comparison.OverallScore, 'f', 1, 64),
				string(comparison.Severity),
				strconv.FormatBool(comparison.RegressionDetected),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// statusOf collapses the result flags into the label shown in reports
func statusOf(result *types.ChaosTestResult) string {
	switch {
	case result.Aborted:
		return "aborted"
	case result.Success:
		return "passed"
	default:
		return "failed"
	}
}

func mttrOf(result *types.ChaosTestResult) time.Duration {
	if result.Analysis == nil {
		return 0
	}
	return result.Analysis.MTTR
}

func successRateOf(result *types.ChaosTestResult) float64 {
	if result.Recovery == nil {
		return 0
	}
	return result.Recovery.SuccessRate
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"score":   func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"seconds": func(d time.Duration) string { return fmt.Sprintf("%.1fs", d.Seconds()) },
	"status":  statusOf,
	"mttr":    mttrOf,
	"rate":    successRateOf,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; }
th { background: #f0f0f0; }
.passed { color: #2e7d32; }
.failed { color: #c62828; }
.aborted { color: #ef6c00; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}</p>
{{if .Scenarios}}
<h2>Chaos Scenarios</h2>
<table>
<tr><th>Scenario</th><th>Status</th><th>MTTR</th><th>Success Rate</th><th>Observations</th></tr>
{{range .Scenarios}}
<tr>
<td>{{.ScenarioName}}</td>
<td class="{{status .}}">{{status .}}</td>
<td>{{seconds (mttr .)}}</td>
<td>{{score (rate .)}}%</td>
<td>{{len .Observations}}</td>
</tr>
{{end}}
</table>
{{end}}
{{if .Comparisons}}
<h2>Baseline Comparisons</h2>
<table>
<tr><th>Test</th><th>Score</th><th>Severity</th><th>Regression</th><th>Recommendations</th></tr>
{{range .Comparisons}}
<tr>
<td>{{.TestType}}/{{.TestName}}</td>
<td>{{score .OverallScore}}</td>
<td>{{.Severity}}</td>
<td>{{.RegressionDetected}}</td>
<td><ul>{{range .Recommendations}}<li>{{.}}</li>{{end}}</ul></td>
</tr>
{{end}}
</table>
{{end}}
{{if .Trends}}
<h2>Performance Trends</h2>
<table>
<tr><th>Test Type</th><th>Metric</th><th>First Half</th><th>Second Half</th><th>Change</th><th>Direction</th></tr>
{{range $report := .Trends}}{{range $report.Trends}}
<tr>
<td>{{$report.TestType}}</td>
<td>{{.Metric}}</td>
<td>{{score .FirstHalfAvg}}</td>
<td>{{score .SecondHalfAvg}}</td>
<td>{{score .ChangePercent}}%</td>
<td>{{.Direction}}</td>
</tr>
{{end}}{{end}}
</table>
{{end}}
</body>
</html>
`))

func (r *Report) renderHTML(w io.Writer) error {
	return htmlTemplate.Execute(w, r)
}
