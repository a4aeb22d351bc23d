package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ScenariosExecuted counts completed scenario runs by verdict
	ScenariosExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resilience",
		Subsystem: "chaos",
		Name:      "scenarios_executed_total",
		Help:      "Completed chaos scenarios partitioned by verdict.",
	}, []string{"verdict"})

	// ObservationsRecorded counts observation log entries by severity
	ObservationsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resilience",
		Subsystem: "chaos",
		Name:      "observations_recorded_total",
		Help:      "Observations appended to scenario logs partitioned by severity.",
	}, []string{"severity"})

	// BaselinesRecorded counts persisted baseline records by test type
	BaselinesRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resilience",
		Subsystem: "baseline",
		Name:      "records_total",
		Help:      "Baseline records persisted partitioned by test type.",
	}, []string{"test_type"})

	// RegressionsDetected counts comparisons that flagged a regression
	RegressionsDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resilience",
		Subsystem: "baseline",
		Name:      "regressions_detected_total",
		Help:      "Comparisons that detected a regression partitioned by severity.",
	}, []string{"severity"})

	// AlertsDispatched counts alerts delivered to at least one channel
	AlertsDispatched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "resilience",
		Subsystem: "alerts",
		Name:      "dispatched_total",
		Help:      "Regression alerts dispatched to channels.",
	})

	// AlertsSuppressed counts regressions withheld by cooldown or the hourly cap
	AlertsSuppressed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resilience",
		Subsystem: "alerts",
		Name:      "suppressed_total",
		Help:      "Regression alerts suppressed partitioned by reason.",
	}, []string{"reason"})

	// ActiveAlerts tracks currently unresolved alerts
	ActiveAlerts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "resilience",
		Subsystem: "alerts",
		Name:      "active",
		Help:      "Currently unresolved regression alerts.",
	})
)

func init() {
	prometheus.MustRegister(
		ScenariosExecuted,
		ObservationsRecorded,
		BaselinesRecorded,
		RegressionsDetected,
		AlertsDispatched,
		AlertsSuppressed,
		ActiveAlerts,
	)
}
