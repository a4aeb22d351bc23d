package baseline

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hardenlab/resilience-go/pkg/cerrors"
	"github.com/hardenlab/resilience-go/pkg/events"
	"github.com/hardenlab/resilience-go/pkg/log"
	"github.com/hardenlab/resilience-go/pkg/metrics"
)

// selection weights: an exact version match dominates, recency contributes a
// smaller monotonically increasing share and each matching tag a fixed bonus
const (
	versionMatchWeight = 100.0
	recencyMaxWeight   = 50.0
	tagMatchBonus      = 10.0
)

// penalty caps per degraded dimension
const (
	responseTimePenaltyCap = 50.0
	throughputPenaltyCap   = 30.0
	errorRatePenaltyCap    = 40.0
	resourcePenaltyCap     = 20.0
)

// errorRateFloor avoids division by zero on pristine baselines
const errorRateFloor = 0.1

// CompareToBaseline selects the best-matching historical baseline and scores
// the current run against it. A nil comparison (with nil error) means there
// is no history to compare against.
func (s *Store) CompareToBaseline(testType string, testConfig TestConfig, current Metrics, opts CompareOptions) (*Comparison, error) {
	selected, err := s.selectBaseline(testType, testConfig, opts)
	if err != nil {
		return nil, err
	}
	if selected == nil {
		log.Infof("[Compare]: No baseline history for %v/%v yet", testType, testConfig.Name)
		return nil, nil
	}

	thresholds := s.config.RegressionThresholds
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}

	comparison := compare(selected, testType, testConfig.Name, current, thresholds)

	log.InfoWithValues("[Compare]: Baseline comparison completed", logrus.Fields{
		"BaselineID": comparison.BaselineID,
		"TestType":   testType,
		"TestName":   testConfig.Name,
		"Score":      fmt.Sprintf("%.1f", comparison.OverallScore),
		"Severity":   string(comparison.Severity),
	})
	s.bus.Publish(events.ComparisonCompleted, comparison)
	if comparison.RegressionDetected {
		metrics.RegressionsDetected.WithLabelValues(string(comparison.Severity)).Inc()
		s.bus.Publish(events.RegressionDetected, comparison)
	}
	return comparison, nil
}

// selectBaseline honours an explicit id, otherwise ranks candidates of the
// same test type and test name
func (s *Store) selectBaseline(testType string, testConfig TestConfig, opts CompareOptions) (*Record, error) {
	if opts.BaselineID != "" {
		record, ok := s.Get(opts.BaselineID)
		if !ok {
			return nil, cerrors.BaselineCRUD{Operation: "select", Target: opts.BaselineID, Reason: "no such baseline"}
		}
		return record, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Record
	bestScore := math.Inf(-1)
	now := time.Now()
	for _, record := range s.byType[testType] {
		if record.TestConfig.Name != testConfig.Name {
			continue
		}
		score := selectionScore(record, opts, now)
		if score > bestScore {
			best = record
			bestScore = score
		}
	}
	return best, nil
}

func selectionScore(record *Record, opts CompareOptions, now time.Time) float64 {
	score := 0.0
	if opts.Version != "" && record.Version == opts.Version {
		score += versionMatchWeight
	}
	ageDays := now.Sub(record.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	score += recencyMaxWeight / (1 + ageDays)
	for _, want := range opts.Tags {
		for _, have := range record.Tags {
			if want == have {
				score += tagMatchBonus
				break
			}
		}
	}
	return score
}

// compare computes all dimension deltas, the blended score, the severity
// bucket and the recommendations for one baseline/current pair
func compare(selected *Record, testType, testName string, current Metrics, thresholds RegressionThresholds) *Comparison {
	b := selected.Metrics
	comparison := &Comparison{
		BaselineID: selected.ID,
		TestType:   testType,
		TestName:   testName,
		ComparedAt: time.Now(),
	}

	comparison.ResponseTimeMean = delta(b.ResponseTime.MeanMs, current.ResponseTime.MeanMs, b.ResponseTime.MeanMs)
	comparison.ResponseTimeMean.Degraded = comparison.ResponseTimeMean.DeltaPercent > thresholds.ResponseTimePercent
	comparison.ResponseTimeP95 = delta(b.ResponseTime.P95Ms, current.ResponseTime.P95Ms, b.ResponseTime.P95Ms)
	comparison.ResponseTimeP95.Degraded = comparison.ResponseTimeP95.DeltaPercent > thresholds.ResponseTimePercent
	comparison.ResponseTimeP99 = delta(b.ResponseTime.P99Ms, current.ResponseTime.P99Ms, b.ResponseTime.P99Ms)
	comparison.ResponseTimeP99.Degraded = comparison.ResponseTimeP99.DeltaPercent > thresholds.ResponseTimePercent

	comparison.Throughput = delta(b.Throughput.RequestsPerSecond, current.Throughput.RequestsPerSecond, b.Throughput.RequestsPerSecond)
	comparison.Throughput.Degraded = comparison.Throughput.DeltaPercent < -thresholds.ThroughputPercent

	// error rate is normalized against a floor so a pristine baseline does
	// not turn every failure into an infinite delta
	comparison.ErrorRate = delta(b.Errors.ErrorRatePercent, current.Errors.ErrorRatePercent, math.Max(b.Errors.ErrorRatePercent, errorRateFloor))
	comparison.ErrorRate.Degraded = comparison.ErrorRate.DeltaPercent > thresholds.ErrorRatePercent

	comparison.CPU = delta(b.Resources.AvgCPUPercent, current.Resources.AvgCPUPercent, b.Resources.AvgCPUPercent)
	comparison.CPU.Degraded = comparison.CPU.DeltaPercent > thresholds.ResourcePercent
	comparison.Memory = delta(b.Resources.AvgMemoryPercent, current.Resources.AvgMemoryPercent, b.Resources.AvgMemoryPercent)
	comparison.Memory.Degraded = comparison.Memory.DeltaPercent > thresholds.ResourcePercent

	comparison.OverallScore = score(comparison)
	comparison.Severity = severityForScore(comparison.OverallScore)
	comparison.RegressionDetected = comparison.ResponseTimeMean.Degraded ||
		comparison.ResponseTimeP95.Degraded ||
		comparison.ResponseTimeP99.Degraded ||
		comparison.Throughput.Degraded ||
		comparison.ErrorRate.Degraded ||
		comparison.CPU.Degraded ||
		comparison.Memory.Degraded
	comparison.Recommendations = recommend(comparison)
	return comparison
}

// delta computes (current - baseline) / denominator * 100; a zero denominator
// yields a zero delta rather than a division blow-up
func delta(baseline, current, denominator float64) DimensionDelta {
	d := DimensionDelta{Baseline: baseline, Current: current}
	if denominator != 0 {
		d.DeltaPercent = (current - baseline) / denominator * 100
	}
	return d
}

// score starts at 100 and subtracts a capped penalty per degraded dimension;
// response time and resource groups are penalized once, by their worst delta
func score(c *Comparison) float64 {
	total := 100.0

	if worst, degraded := worstOf(c.ResponseTimeMean, c.ResponseTimeP95, c.ResponseTimeP99); degraded {
		total -= math.Min(worst, responseTimePenaltyCap)
	}
	if c.Throughput.Degraded {
		total -= math.Min(math.Abs(c.Throughput.DeltaPercent), throughputPenaltyCap)
	}
	if c.ErrorRate.Degraded {
		total -= math.Min(c.ErrorRate.DeltaPercent, errorRatePenaltyCap)
	}
	if worst, degraded := worstOf(c.CPU, c.Memory); degraded {
		total -= math.Min(worst, resourcePenaltyCap)
	}

	return math.Max(0, math.Min(100, total))
}

func worstOf(dims ...DimensionDelta) (float64, bool) {
	worst := 0.0
	degraded := false
	for _, d := range dims {
		if d.Degraded {
			degraded = true
			if d.DeltaPercent > worst {
				worst = d.DeltaPercent
			}
		}
	}
	return worst, degraded
}

// severityForScore is the fixed step function over the blended score
func severityForScore(score float64) Severity {
	switch {
	case score >= 90:
		return SeverityNone
	case score >= 75:
		return SeverityMinor
	case score >= 60:
		return SeverityModerate
	case score >= 40:
		return SeverityMajor
	default:
		return SeverityCritical
	}
}

// recommend produces the operator-facing guidance keyed on which dimensions
// degraded and on secondary signals
func recommend(c *Comparison) []string {
	var out []string

	meanDegraded := c.ResponseTimeMean.Degraded
	tailDegraded := c.ResponseTimeP95.Degraded || c.ResponseTimeP99.Degraded
	if meanDegraded || tailDegraded {
		out = append(out, fmt.Sprintf("response time degraded (mean %+.1f%%, p95 %+.1f%%, p99 %+.1f%%); profile recent changes to the request path",
			c.ResponseTimeMean.DeltaPercent, c.ResponseTimeP95.DeltaPercent, c.ResponseTimeP99.DeltaPercent))
	}
	if c.ResponseTimeP99.Degraded && c.ResponseTimeP99.DeltaPercent > 2*math.Max(c.ResponseTimeMean.DeltaPercent, 1) {
		out = append(out, "p99 latency degraded disproportionately to the mean; investigate outlier requests (GC pauses, lock contention, slow downstream calls)")
	}
	if c.Throughput.Degraded {
		out = append(out, fmt.Sprintf("throughput dropped %.1f%%; look for new serialization points or connection-pool exhaustion", math.Abs(c.Throughput.DeltaPercent)))
	}
	if c.ErrorRate.Degraded {
		out = append(out, fmt.Sprintf("error rate rose from %.2f%% to %.2f%%; inspect error logs for new failure modes", c.ErrorRate.Baseline, c.ErrorRate.Current))
	}
	if c.CPU.Degraded {
		out = append(out, "cpu utilization regressed; capture a profile and compare hot paths against the baseline build")
	}
	if c.Memory.Degraded {
		out = append(out, "memory utilization regressed; check for leaks or larger working sets")
	}
	if len(out) == 0 {
		out = append(out, "no regression detected against baseline "+c.BaselineID)
	}
	return out
}
