package baseline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed indexes records directly so tests control capture times
func seed(store *Store, testType string, age time.Duration, m Metrics) {
	record := &Record{
		ID:         testType + "-" + age.String(),
		TestType:   testType,
		TestConfig: TestConfig{Name: "checkout"},
		Metrics:    m,
		CreatedAt:  time.Now().Add(-age),
	}
	store.mu.Lock()
	store.index(record)
	store.mu.Unlock()
}

func metricsWithMean(mean float64) Metrics {
	m := referenceMetrics()
	m.ResponseTime.MeanMs = mean
	return m
}

func trendFor(report *TrendReport, metric string) (MetricTrend, bool) {
	for _, trend := range report.Trends {
		if trend.Metric == metric {
			return trend, true
		}
	}
	return MetricTrend{}, false
}

func TestGetPerformanceTrends_Degrading(t *testing.T) {
	store := newTestStore(t)
	// first half averages 100ms, second half 150ms: +50%
	for i, mean := range []float64{100, 100, 100, 150, 150, 150} {
		seed(store, "load", time.Duration(6-i)*time.Hour, metricsWithMean(mean))
	}

	report := store.GetPerformanceTrends("load", 24*time.Hour)
	require.Equal(t, 6, report.DataPoints)

	trend, ok := trendFor(report, "responseTimeMean")
	require.True(t, ok)
	assert.InDelta(t, 50.0, trend.ChangePercent, 0.001)
	assert.Equal(t, TrendDegrading, trend.Direction)
}

func TestGetPerformanceTrends_StableInsideDeadZone(t *testing.T) {
	store := newTestStore(t)
	for i, mean := range []float64{100, 100, 100, 103, 103, 103} {
		seed(store, "load", time.Duration(6-i)*time.Hour, metricsWithMean(mean))
	}

	report := store.GetPerformanceTrends("load", 24*time.Hour)
	trend, ok := trendFor(report, "responseTimeMean")
	require.True(t, ok)
	assert.Equal(t, TrendStable, trend.Direction, "changes under 5 percent are noise, not a trend")
}

func TestGetPerformanceTrends_ThroughputInverted(t *testing.T) {
	store := newTestStore(t)
	for i, rps := range []float64{100, 100, 150, 150} {
		m := referenceMetrics()
		m.Throughput.RequestsPerSecond = rps
		seed(store, "load", time.Duration(4-i)*time.Hour, m)
	}

	report := store.GetPerformanceTrends("load", 24*time.Hour)
	trend, ok := trendFor(report, "throughput")
	require.True(t, ok)
	assert.Equal(t, TrendImproving, trend.Direction, "rising throughput is an improvement")
}

func TestGetPerformanceTrends_ResponseTimeDropImproves(t *testing.T) {
	store := newTestStore(t)
	for i, mean := range []float64{200, 200, 120, 120} {
		seed(store, "load", time.Duration(4-i)*time.Hour, metricsWithMean(mean))
	}

	report := store.GetPerformanceTrends("load", 24*time.Hour)
	trend, ok := trendFor(report, "responseTimeMean")
	require.True(t, ok)
	assert.Equal(t, TrendImproving, trend.Direction)
}

func TestGetPerformanceTrends_InsufficientData(t *testing.T) {
	store := newTestStore(t)
	seed(store, "load", time.Hour, referenceMetrics())

	report := store.GetPerformanceTrends("load", 24*time.Hour)
	assert.Equal(t, 1, report.DataPoints)
	assert.Empty(t, report.Trends, "fewer than two points cannot form a trend")
}

func TestGetPerformanceTrends_WindowFilter(t *testing.T) {
	store := newTestStore(t)
	seed(store, "load", 30*24*time.Hour, metricsWithMean(500)) // outside the window
	for i, mean := range []float64{100, 100, 100, 100} {
		seed(store, "load", time.Duration(4-i)*time.Hour, metricsWithMean(mean))
	}

	report := store.GetPerformanceTrends("load", 24*time.Hour)
	assert.Equal(t, 4, report.DataPoints, "records outside the window must be ignored")
}
