package baseline

import (
	"math"
	"time"
)

// TrendDirection classifies how a metric moved across the window
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDegrading TrendDirection = "degrading"
	TrendStable    TrendDirection = "stable"
)

// trendDeadZonePercent suppresses noise-driven flips between directions
const trendDeadZonePercent = 5.0

// MetricTrend is the first-half/second-half movement of one metric
type MetricTrend struct {
	Metric        string         `json:"metric"`
	FirstHalfAvg  float64        `json:"firstHalfAvg"`
	SecondHalfAvg float64        `json:"secondHalfAvg"`
	ChangePercent float64        `json:"changePercent"`
	Direction     TrendDirection `json:"direction"`
}

// TrendReport summarizes the movement of every scored metric over a window
type TrendReport struct {
	TestType   string        `json:"testType"`
	Window     time.Duration `json:"window"`
	DataPoints int           `json:"dataPoints"`
	Trends     []MetricTrend `json:"trends"`
}

// GetPerformanceTrends splits the records inside the window into
// chronological halves and compares their averages per metric. Movements
// inside the dead zone are reported stable.
func (s *Store) GetPerformanceTrends(testType string, window time.Duration) *TrendReport {
	cutoff := time.Now().Add(-window)

	s.mu.RLock()
	var inWindow []*Record
	for _, record := range s.byType[testType] {
		if record.CreatedAt.After(cutoff) {
			inWindow = append(inWindow, record)
		}
	}
	s.mu.RUnlock()

	report := &TrendReport{TestType: testType, Window: window, DataPoints: len(inWindow)}
	if len(inWindow) < 2 {
		return report
	}

	half := len(inWindow) / 2
	first, second := inWindow[:half], inWindow[half:]

	report.Trends = []MetricTrend{
		trendOf("responseTimeMean", first, second, func(r *Record) float64 { return r.Metrics.ResponseTime.MeanMs }, false),
		trendOf("responseTimeP95", first, second, func(r *Record) float64 { return r.Metrics.ResponseTime.P95Ms }, false),
		trendOf("throughput", first, second, func(r *Record) float64 { return r.Metrics.Throughput.RequestsPerSecond }, true),
		trendOf("errorRate", first, second, func(r *Record) float64 { return r.Metrics.Errors.ErrorRatePercent }, false),
		trendOf("cpu", first, second, func(r *Record) float64 { return r.Metrics.Resources.AvgCPUPercent }, false),
		trendOf("memory", first, second, func(r *Record) float64 { return r.Metrics.Resources.AvgMemoryPercent }, false),
	}
	return report
}

// trendOf compares bucket averages; higherIsBetter inverts the direction for
// metrics like throughput
func trendOf(name string, first, second []*Record, value func(*Record) float64, higherIsBetter bool) MetricTrend {
	trend := MetricTrend{
		Metric:        name,
		FirstHalfAvg:  average(first, value),
		SecondHalfAvg: average(second, value),
	}
	if trend.FirstHalfAvg != 0 {
		trend.ChangePercent = (trend.SecondHalfAvg - trend.FirstHalfAvg) / trend.FirstHalfAvg * 100
	}

	switch {
	case math.Abs(trend.ChangePercent) < trendDeadZonePercent:
		trend.Direction = TrendStable
	case (trend.ChangePercent > 0) != higherIsBetter:
		trend.Direction = TrendDegrading
	default:
		trend.Direction = TrendImproving
	}
	return trend
}

func average(records []*Record, value func(*Record) float64) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range records {
		sum += value(r)
	}
	return sum / float64(len(records))
}
