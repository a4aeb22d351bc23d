package alerts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hardenlab/resilience-go/pkg/baseline"
	"github.com/hardenlab/resilience-go/pkg/events"
	"github.com/hardenlab/resilience-go/pkg/log"
	"github.com/hardenlab/resilience-go/pkg/metrics"
)

// Manager wraps the baseline comparator with the alerting policy: cooldown
// and hourly rate cap before any channel is contacted, per-channel dispatch
// isolation and the acknowledge/resolve lifecycle. Alert state is persisted
// to a history file on every change.
type Manager struct {
	config   RegressionConfig
	store    *baseline.Store
	bus      *events.Bus
	channels []Channel

	mu         sync.Mutex
	alerts     map[string]*Alert
	dispatches []time.Time

	sweepStop chan struct{}
	sweepDone chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewManager loads any persisted alert history and returns a manager ready
// for regression checks. Call Start to enable the background sweeps.
func NewManager(config RegressionConfig, store *baseline.Store, channels ...Channel) (*Manager, error) {
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultRegressionConfig().SweepInterval
	}
	if config.HistoryFile == "" {
		config.HistoryFile = DefaultRegressionConfig().HistoryFile
	}

	m := &Manager{
		config:    config,
		store:     store,
		bus:       store.Bus(),
		channels:  channels,
		alerts:    make(map[string]*Alert),
		sweepStop: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	if err := m.loadHistory(); err != nil {
		return nil, err
	}

	active := 0
	for _, alert := range m.alerts {
		if !alert.Resolved() {
			active++
		}
	}
	metrics.ActiveAlerts.Set(float64(active))
	return m, nil
}

// CheckRegression runs the comparison and, when a regression is detected and
// the policy allows it, creates and dispatches an alert. A suppressed
// regression still comes back as a detected comparison with a nil alert.
func (m *Manager) CheckRegression(ctx context.Context, testType string, testConfig baseline.TestConfig, current baseline.Metrics, opts CheckOptions) (*baseline.Comparison, *Alert, error) {
	comparison, err := m.store.CompareToBaseline(testType, testConfig, current, opts.CompareOptions)
	if err != nil || comparison == nil {
		return comparison, nil, err
	}
	if !comparison.RegressionDetected {
		return comparison, nil, nil
	}
	if !m.config.EnableAutoDetection || opts.SkipAlert {
		return comparison, nil, nil
	}
	deficit := 100 - comparison.OverallScore
	if deficit < m.config.AlertThresholds.thresholdFor(comparison.Severity) {
		log.Infof("[Alert]: Regression in %v/%v below the %v alert threshold, not alerting", testType, testConfig.Name, comparison.Severity)
		return comparison, nil, nil
	}

	now := time.Now()
	m.mu.Lock()
	if reason := m.suppressionReasonLocked(testType, testConfig.Name, now); reason != "" {
		m.mu.Unlock()
		metrics.AlertsSuppressed.WithLabelValues(reason).Inc()
		log.Infof("[Alert]: Suppressing alert for %v/%v, %v", testType, testConfig.Name, reason)
		return comparison, nil, nil
	}

	alert := &Alert{
		ID:         fmt.Sprintf("%s-%s-%d", testType, testConfig.Name, now.UnixNano()),
		CreatedAt:  now,
		Severity:   comparison.Severity,
		TestType:   testType,
		TestName:   testConfig.Name,
		Comparison: comparison,
	}
	m.alerts[alert.ID] = alert
	m.dispatches = append(m.dispatches, now)
	m.persistLocked()
	m.mu.Unlock()

	m.dispatch(ctx, alert)
	metrics.AlertsDispatched.Inc()
	metrics.ActiveAlerts.Inc()
	m.bus.Publish(events.AlertDispatched, alert)
	return comparison, alert, nil
}

// suppressionReasonLocked applies both pre-dispatch gates; m.mu must be held
func (m *Manager) suppressionReasonLocked(testType, testName string, now time.Time) string {
	if m.config.CooldownPeriod > 0 {
		for _, alert := range m.alerts {
			if alert.TestType == testType && alert.TestName == testName &&
				!alert.Resolved() && now.Sub(alert.CreatedAt) < m.config.CooldownPeriod {
				return "cooldown"
			}
		}
	}
	if m.config.MaxAlertsPerHour > 0 {
		cutoff := now.Add(-time.Hour)
		recent := 0
		for _, t := range m.dispatches {
			if t.After(cutoff) {
				recent++
			}
		}
		if recent >= m.config.MaxAlertsPerHour {
			return "rate-limit"
		}
	}
	return ""
}

// dispatch sends the alert to every channel whose severity floor it meets.
// Channel failures are logged and never propagate.
func (m *Manager) dispatch(ctx context.Context, alert *Alert) {
	var delivered []string
	for _, channel := range m.channels {
		if alert.Severity.Rank() < channel.MinSeverity().Rank() {
			continue
		}
		if err := channel.Send(ctx, alert); err != nil {
			log.Warnf("[Alert]: Channel %v failed to deliver alert %v, %v", channel.Name(), alert.ID, err)
			continue
		}
		delivered = append(delivered, channel.Name())
	}

	m.mu.Lock()
	alert.Channels = delivered
	m.persistLocked()
	m.mu.Unlock()

	log.InfoWithValues("[Alert]: Regression alert dispatched", logrus.Fields{
		"AlertID":  alert.ID,
		"Severity": string(alert.Severity),
		"Channels": delivered,
	})
}

// AcknowledgeAlert moves an unacknowledged alert to acknowledged. It returns
// false when the alert is unknown, already acknowledged or already resolved.
func (m *Manager) AcknowledgeAlert(id, by, notes string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[id]
	if !ok || alert.Acknowledged || alert.Resolved() {
		return false
	}
	now := time.Now()
	alert.Acknowledged = true
	alert.AcknowledgedBy = by
	alert.AcknowledgedAt = &now
	alert.AckNotes = notes
	m.persistLocked()
	log.Infof("[Alert]: Alert %v acknowledged by %v", id, by)
	return true
}

// ResolveAlert moves an alert to its terminal resolved state, keeping any
// acknowledgment fields. It returns false when the alert is unknown or
// already resolved.
func (m *Manager) ResolveAlert(id, by string) bool {
	m.mu.Lock()
	alert, ok := m.alerts[id]
	if !ok || alert.Resolved() {
		m.mu.Unlock()
		return false
	}
	now := time.Now()
	alert.ResolvedBy = by
	alert.ResolvedAt = &now
	m.persistLocked()
	m.mu.Unlock()

	metrics.ActiveAlerts.Dec()
	m.bus.Publish(events.AlertResolved, alert)
	log.Infof("[Alert]: Alert %v resolved by %v", id, by)
	return true
}

// GetAlert returns one alert by id
func (m *Manager) GetAlert(id string) (*Alert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[id]
	return alert, ok
}

// ActiveAlerts returns every unresolved alert, oldest first
func (m *Manager) ActiveAlerts() []*Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var active []*Alert
	for _, alert := range m.alerts {
		if !alert.Resolved() {
			active = append(active, alert)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	return active
}

// GetAlertStatistics aggregates alert activity over the trailing window
func (m *Manager) GetAlertStatistics(windowHours int) Statistics {
	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	stats := Statistics{
		WindowHours: windowHours,
		BySeverity:  make(map[baseline.Severity]int),
		ByTestType:  make(map[string]int),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var resolutionTotal time.Duration
	for _, alert := range m.alerts {
		if !alert.Resolved() {
			stats.ActiveAlerts++
		}
		if alert.CreatedAt.Before(cutoff) {
			continue
		}
		stats.TotalAlerts++
		stats.BySeverity[alert.Severity]++
		stats.ByTestType[alert.TestType]++
		if alert.Resolved() {
			stats.ResolvedAlerts++
			resolutionTotal += alert.ResolvedAt.Sub(alert.CreatedAt)
		}
	}
	if stats.ResolvedAlerts > 0 {
		stats.AverageResolutionTime = resolutionTotal / time.Duration(stats.ResolvedAlerts)
	}
	return stats
}

// Start launches the background sweep that auto-acknowledges stale alerts and
// evicts expired rate-limit entries. Safe to call once; use Stop to shut down.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		go m.sweepLoop()
	})
}

// Stop terminates the background sweep and waits for it to exit
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.sweepStop)
		<-m.sweepDone
	})
}

func (m *Manager) sweepLoop() {
	defer close(m.sweepDone)
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.sweepStop:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// sweep auto-acknowledges alerts older than the configured age and trims the
// dispatch timestamps the hourly cap counts. It never auto-resolves.
func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	if m.config.AutoAcknowledgeAfter > 0 {
		for _, alert := range m.alerts {
			if alert.Acknowledged || alert.Resolved() {
				continue
			}
			if now.Sub(alert.CreatedAt) >= m.config.AutoAcknowledgeAfter {
				at := now
				alert.Acknowledged = true
				alert.AutoAcknowledged = true
				alert.AcknowledgedBy = "auto"
				alert.AcknowledgedAt = &at
				changed = true
				log.Infof("[Alert]: Auto-acknowledged stale alert %v", alert.ID)
			}
		}
	}

	cutoff := now.Add(-time.Hour)
	kept := m.dispatches[:0]
	for _, t := range m.dispatches {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	m.dispatches = kept

	if changed {
		m.persistLocked()
	}
}
