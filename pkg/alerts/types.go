package alerts

import (
	"time"

	"github.com/hardenlab/resilience-go/pkg/baseline"
)

// Alert is one regression notification with a three-state lifecycle:
// unacknowledged, acknowledged, resolved. Resolution is terminal and keeps
// whatever acknowledgment happened before it.
type Alert struct {
	ID         string               `json:"id"`
	CreatedAt  time.Time            `json:"createdAt"`
	Severity   baseline.Severity    `json:"severity"`
	TestType   string               `json:"testType"`
	TestName   string               `json:"testName"`
	Comparison *baseline.Comparison `json:"comparison"`
	Channels   []string             `json:"channels,omitempty"`

	Acknowledged     bool       `json:"acknowledged"`
	AcknowledgedBy   string     `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt   *time.Time `json:"acknowledgedAt,omitempty"`
	AckNotes         string     `json:"ackNotes,omitempty"`
	AutoAcknowledged bool       `json:"autoAcknowledged,omitempty"`

	ResolvedBy string     `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// Resolved reports whether the alert reached its terminal state
func (a *Alert) Resolved() bool {
	return a.ResolvedAt != nil
}

// AlertThresholds gate dispatch per severity: an alert only fires when the
// score deficit (100 minus overall score) reaches the bucket's threshold
type AlertThresholds struct {
	Minor    float64 `yaml:"minor" json:"minor"`
	Moderate float64 `yaml:"moderate" json:"moderate"`
	Major    float64 `yaml:"major" json:"major"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// RegressionConfig carries the alert manager settings
type RegressionConfig struct {
	EnableAutoDetection  bool            `yaml:"enableAutoDetection" json:"enableAutoDetection"`
	AlertThresholds      AlertThresholds `yaml:"alertThresholds" json:"alertThresholds"`
	CooldownPeriod       time.Duration   `yaml:"cooldownPeriod" json:"cooldownPeriod"`
	MaxAlertsPerHour     int             `yaml:"maxAlertsPerHour" json:"maxAlertsPerHour"`
	EnableTrendAnalysis  bool            `yaml:"enableTrendAnalysis" json:"enableTrendAnalysis"`
	TrendAnalysisWindow  time.Duration   `yaml:"trendAnalysisWindow" json:"trendAnalysisWindow"`
	AutoAcknowledgeAfter time.Duration   `yaml:"autoAcknowledgeAfter" json:"autoAcknowledgeAfter"`
	HistoryFile          string          `yaml:"historyFile" json:"historyFile"`
	SweepInterval        time.Duration   `yaml:"sweepInterval" json:"sweepInterval"`
}

// DefaultRegressionConfig returns the manager defaults; thresholds line up
// with the severity bucket boundaries of the comparator
func DefaultRegressionConfig() RegressionConfig {
	return RegressionConfig{
		EnableAutoDetection: true,
		AlertThresholds: AlertThresholds{
			Minor:    10,
			Moderate: 25,
			Major:    40,
			Critical: 60,
		},
		CooldownPeriod:       30 * time.Minute,
		MaxAlertsPerHour:     10,
		EnableTrendAnalysis:  true,
		TrendAnalysisWindow:  7 * 24 * time.Hour,
		AutoAcknowledgeAfter: 24 * time.Hour,
		HistoryFile:          "alert-history.json",
		SweepInterval:        time.Minute,
	}
}

// thresholdFor returns the minimum score deficit at which the given severity
// bucket alerts
func (t AlertThresholds) thresholdFor(severity baseline.Severity) float64 {
	switch severity {
	case baseline.SeverityMinor:
		return t.Minor
	case baseline.SeverityModerate:
		return t.Moderate
	case baseline.SeverityMajor:
		return t.Major
	case baseline.SeverityCritical:
		return t.Critical
	default:
		return 0
	}
}

// CheckOptions steer one regression check
type CheckOptions struct {
	baseline.CompareOptions
	// SkipAlert reports the regression without creating or dispatching an alert
	SkipAlert bool
}

// Statistics aggregates alert activity over a trailing window
type Statistics struct {
	WindowHours           int                       `json:"windowHours"`
	TotalAlerts           int                       `json:"totalAlerts"`
	BySeverity            map[baseline.Severity]int `json:"bySeverity"`
	ByTestType            map[string]int            `json:"byTestType"`
	ActiveAlerts          int                       `json:"activeAlerts"`
	ResolvedAlerts        int                       `json:"resolvedAlerts"`
	AverageResolutionTime time.Duration             `json:"averageResolutionTime"`
}
