package baseline

import (
	"time"
)

// Severity buckets the blended comparison score
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so channel filters can compare them
func (s Severity) Rank() int {
	switch s {
	case SeverityNone:
		return 0
	case SeverityMinor:
		return 1
	case SeverityModerate:
		return 2
	case SeverityMajor:
		return 3
	case SeverityCritical:
		return 4
	default:
		return -1
	}
}

// ResponseTimeMetrics is the latency distribution of one run, in milliseconds
type ResponseTimeMetrics struct {
	MeanMs float64 `json:"meanMs"`
	P95Ms  float64 `json:"p95Ms"`
	P99Ms  float64 `json:"p99Ms"`
}

// ThroughputMetrics is the sustained request rate of one run
type ThroughputMetrics struct {
	RequestsPerSecond float64 `json:"requestsPerSecond"`
}

// ErrorMetrics captures failures of one run; rate is a percentage
type ErrorMetrics struct {
	ErrorRatePercent float64 `json:"errorRatePercent"`
	TotalRequests    int64   `json:"totalRequests,omitempty"`
	FailedRequests   int64   `json:"failedRequests,omitempty"`
}

// ResourceMetrics is the average utilization during one run, in percent
type ResourceMetrics struct {
	AvgCPUPercent    float64 `json:"avgCpuPercent"`
	AvgMemoryPercent float64 `json:"avgMemoryPercent"`
}

// Metrics groups every dimension the comparator scores
type Metrics struct {
	ResponseTime ResponseTimeMetrics `json:"responseTime"`
	Throughput   ThroughputMetrics   `json:"throughput"`
	Errors       ErrorMetrics        `json:"errors"`
	Resources    ResourceMetrics     `json:"resources"`
}

// TestConfig identifies the workload a baseline was captured under
type TestConfig struct {
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// SystemConfiguration is the environment fingerprint captured with a baseline
type SystemConfiguration struct {
	RuntimeVersion string            `json:"runtimeVersion"`
	Platform       string            `json:"platform"`
	CPUCores       int               `json:"cpuCores"`
	MemoryMB       int64             `json:"memoryMb,omitempty"`
	Environment    string            `json:"environment,omitempty"`
	Dependencies   map[string]string `json:"dependencies,omitempty"`
}

// Record is one immutable persisted baseline. Only retention cleanup removes it.
type Record struct {
	ID         string              `json:"id"`
	TestType   string              `json:"testType"`
	TestConfig TestConfig          `json:"testConfig"`
	System     SystemConfiguration `json:"system"`
	Metrics    Metrics             `json:"metrics"`
	Version    string              `json:"version,omitempty"`
	Commit     string              `json:"commit,omitempty"`
	Tags       []string            `json:"tags,omitempty"`
	Notes      string              `json:"notes,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// DimensionDelta is the percentage change of one scored dimension
type DimensionDelta struct {
	Baseline     float64 `json:"baseline"`
	Current      float64 `json:"current"`
	DeltaPercent float64 `json:"deltaPercent"`
	Degraded     bool    `json:"degraded"`
}

// Comparison pairs one current run with one selected baseline. It is always
// recomputed fresh and never cached.
type Comparison struct {
	BaselineID         string         `json:"baselineId"`
	TestType           string         `json:"testType"`
	TestName           string         `json:"testName"`
	ComparedAt         time.Time      `json:"comparedAt"`
	ResponseTimeMean   DimensionDelta `json:"responseTimeMean"`
	ResponseTimeP95    DimensionDelta `json:"responseTimeP95"`
	ResponseTimeP99    DimensionDelta `json:"responseTimeP99"`
	Throughput         DimensionDelta `json:"throughput"`
	ErrorRate          DimensionDelta `json:"errorRate"`
	CPU                DimensionDelta `json:"cpu"`
	Memory             DimensionDelta `json:"memory"`
	OverallScore       float64        `json:"overallScore"`
	Severity           Severity       `json:"severity"`
	RegressionDetected bool           `json:"regressionDetected"`
	Recommendations    []string       `json:"recommendations,omitempty"`
}

// RegressionThresholds flag a dimension as degraded once its delta crosses
// the configured percentage
type RegressionThresholds struct {
	ResponseTimePercent float64 `json:"responseTimePercent"`
	ThroughputPercent   float64 `json:"throughputPercent"`
	ErrorRatePercent    float64 `json:"errorRatePercent"`
	ResourcePercent     float64 `json:"resourcePercent"`
}

// DefaultRegressionThresholds returns the documented defaults
func DefaultRegressionThresholds() RegressionThresholds {
	return RegressionThresholds{
		ResponseTimePercent: 10,
		ThroughputPercent:   10,
		ErrorRatePercent:    5,
		ResourcePercent:     15,
	}
}

// Config carries the store-wide settings
type Config struct {
	DataDirectory        string               `yaml:"dataDirectory" json:"dataDirectory"`
	MaxBaselineHistory   int                  `yaml:"maxBaselineHistory" json:"maxBaselineHistory"`
	RegressionThresholds RegressionThresholds `yaml:"regressionThresholds" json:"regressionThresholds"`
	AutoCleanup          bool                 `yaml:"autoCleanup" json:"autoCleanup"`
	EnableGitIntegration bool                 `yaml:"enableGitIntegration" json:"enableGitIntegration"`
}

// DefaultConfig returns the store defaults
func DefaultConfig() Config {
	return Config{
		DataDirectory:        "baselines",
		MaxBaselineHistory:   50,
		RegressionThresholds: DefaultRegressionThresholds(),
		AutoCleanup:          true,
	}
}

// RecordOptions annotate a new baseline record
type RecordOptions struct {
	Version string
	Commit  string
	Tags    []string
	Notes   string
}

// CompareOptions steer baseline selection for one comparison
type CompareOptions struct {
	BaselineID string
	Version    string
	Tags       []string
	Thresholds *RegressionThresholds
}
