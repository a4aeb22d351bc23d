package chaos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardenlab/resilience-go/pkg/events"
	"github.com/hardenlab/resilience-go/pkg/types"
)

// fakeInjector applies no real fault and counts its calls
type fakeInjector struct {
	mu        sync.Mutex
	injectErr error
	injects   int
	cleanups  int
}

func (f *fakeInjector) InjectFault(ctx context.Context, config types.FaultConfiguration) (*types.FaultInjectionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.injects++
	if f.injectErr != nil {
		return nil, f.injectErr
	}
	return &types.FaultInjectionResult{
		FaultID:    "fault-1",
		Type:       config.Type,
		Target:     config.Target,
		InjectedAt: time.Now(),
	}, nil
}

func (f *fakeInjector) Cleanup(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
	return nil
}

func (f *fakeInjector) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.injects, f.cleanups
}

// fakeValidator returns a canned result, optionally blocking until the
// context is cancelled
type fakeValidator struct {
	result *types.RecoveryValidationResult
	err    error
	block  bool
}

func (f *fakeValidator) ValidateRecovery(ctx context.Context, expectations types.RecoveryExpectations, fault *types.FaultInjectionResult) (*types.RecoveryValidationResult, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) AnalyzeRecovery(ctx context.Context, start, end time.Time, fault *types.FaultInjectionResult, recovery *types.RecoveryValidationResult) (*types.MTTRAnalysisResult, error) {
	mttr := end.Sub(start)
	return &types.MTTRAnalysisResult{MTTR: mttr, RecoveryTime: recovery.RecoveryTime, DetectionTime: mttr - recovery.RecoveryTime}, nil
}

// fakeMonitor serves one configurable sample
type fakeMonitor struct {
	mu     sync.Mutex
	sample types.SystemMetrics
	stops  int
}

func (f *fakeMonitor) StartMonitoring(ctx context.Context) error { return nil }

func (f *fakeMonitor) StopMonitoring(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeMonitor) CollectMetrics(ctx context.Context) (*types.SystemMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sample
	s.Timestamp = time.Now()
	return &s, nil
}

func (f *fakeMonitor) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func testConfig() types.ChaosConfig {
	config := types.DefaultChaosConfig()
	config.MonitorInterval = 5 * time.Millisecond
	config.CollaboratorTimeout = 100 * time.Millisecond
	config.StabilizationInterval = 5 * time.Millisecond
	config.StabilizationTimeout = 50 * time.Millisecond
	return config
}

func testScenario(id string) types.ChaosScenario {
	return types.ChaosScenario{
		ID:       id,
		Name:     "latency under load",
		Category: "network",
		Severity: types.ScenarioSeverityMedium,
		Duration: 30 * time.Millisecond,
		Fault: types.FaultConfiguration{
			Type:      "network-latency",
			Intensity: 0.5,
			Target:    "payments",
		},
		Recovery: types.RecoveryExpectations{
			MaxRecoveryTime: 2 * time.Second,
			Criteria:        types.SuccessCriteria{MinimumSuccessRate: 90},
		},
	}
}

func healthyCollaborators() (Collaborators, *fakeInjector, *fakeMonitor) {
	injector := &fakeInjector{}
	monitor := &fakeMonitor{sample: types.SystemMetrics{MemoryPercent: 40, CPUPercent: 30, ResponseTime: 100 * time.Millisecond, ErrorRate: 0.1}}
	return Collaborators{
		Injector:  injector,
		Validator: &fakeValidator{result: &types.RecoveryValidationResult{Success: true, SuccessRate: 100, RecoveryTime: 10 * time.Millisecond}},
		Analyzer:  fakeAnalyzer{},
		Monitor:   monitor,
	}, injector, monitor
}

func TestExecuteScenario_Pass(t *testing.T) {
	collaborators, injector, monitor := healthyCollaborators()
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())

	result, err := o.ExecuteScenario(context.Background(), testScenario("s-pass"))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.False(t, result.Aborted)
	assert.NotNil(t, result.Injection)
	assert.NotNil(t, result.Recovery)
	assert.NotNil(t, result.Analysis)
	assert.NotNil(t, result.Summary)

	injects, cleanups := injector.counts()
	assert.Equal(t, 1, injects)
	assert.Equal(t, 1, cleanups)
	assert.Equal(t, 1, monitor.stopCount())

	var observed []types.ObservationType
	for _, obs := range result.Observations {
		observed = append(observed, obs.Type)
	}
	assert.Contains(t, observed, types.ObservationFaultInjected)
	assert.Contains(t, observed, types.ObservationFaultRemoved)
	assert.Contains(t, observed, types.ObservationRecoveryDetected)

	assert.Empty(t, o.ActiveScenarios(), "active registry must be empty after completion")
}

func TestExecuteScenario_PhaseOrdering(t *testing.T) {
	collaborators, _, _ := healthyCollaborators()
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())

	result, err := o.ExecuteScenario(context.Background(), testScenario("s-order"))
	require.NoError(t, err)

	injectedAt, removedAt := time.Time{}, time.Time{}
	for _, obs := range result.Observations {
		switch obs.Type {
		case types.ObservationFaultInjected:
			injectedAt = obs.Timestamp
		case types.ObservationFaultRemoved:
			removedAt = obs.Timestamp
		}
	}
	require.False(t, injectedAt.IsZero())
	require.False(t, removedAt.IsZero())
	assert.True(t, !removedAt.Before(injectedAt), "fault must be removed after it was injected")
}

func TestExecuteScenario_RejectsInvalidScenario(t *testing.T) {
	collaborators, injector, _ := healthyCollaborators()
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())

	scenario := testScenario("")
	result, err := o.ExecuteScenario(context.Background(), scenario)
	assert.Error(t, err)
	assert.Nil(t, result)

	injects, _ := injector.counts()
	assert.Equal(t, 0, injects, "no fault may be injected when validation fails")
}

func TestExecuteScenario_ProtectedEnvironment(t *testing.T) {
	collaborators, injector, _ := healthyCollaborators()
	config := testConfig()
	config.Environment = "production"
	o := NewOrchestrator(config, collaborators, events.NewBus())

	_, err := o.ExecuteScenario(context.Background(), testScenario("s-prod"))
	assert.Error(t, err)

	injects, _ := injector.counts()
	assert.Equal(t, 0, injects)
}

func TestExecuteScenario_DurationCeiling(t *testing.T) {
	collaborators, _, _ := healthyCollaborators()
	config := testConfig()
	config.MaxScenarioDuration = 10 * time.Millisecond
	o := NewOrchestrator(config, collaborators, events.NewBus())

	scenario := testScenario("s-long")
	scenario.Duration = time.Minute
	_, err := o.ExecuteScenario(context.Background(), scenario)
	assert.Error(t, err)
}

func TestExecuteScenario_UnknownSafetyCheck(t *testing.T) {
	collaborators, injector, _ := healthyCollaborators()
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())

	scenario := testScenario("s-unknown-check")
	scenario.SafetyChecks = []string{"not-registered"}
	_, err := o.ExecuteScenario(context.Background(), scenario)
	assert.Error(t, err, "unregistered safety check must fail fast")

	injects, _ := injector.counts()
	assert.Equal(t, 0, injects)
}

func TestExecuteScenario_FailingSafetyCheck(t *testing.T) {
	collaborators, injector, _ := healthyCollaborators()
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())
	o.SafetyChecks().Register("replicas-ready", func(ctx context.Context) error {
		return errors.Errorf("only 1 of 3 replicas ready")
	})

	scenario := testScenario("s-failing-check")
	scenario.SafetyChecks = []string{"replicas-ready"}
	_, err := o.ExecuteScenario(context.Background(), scenario)
	assert.Error(t, err)

	injects, _ := injector.counts()
	assert.Equal(t, 0, injects)
}

func TestExecuteScenario_InjectionFailureReturnsFailedResult(t *testing.T) {
	collaborators, injector, monitor := healthyCollaborators()
	injector.injectErr = errors.Errorf("target not reachable")
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())

	result, err := o.ExecuteScenario(context.Background(), testScenario("s-inject-fail"))
	require.NoError(t, err, "post-validation failures come back as a failed result")
	require.NotNil(t, result)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.FailureStep)
	assert.Equal(t, 1, monitor.stopCount(), "monitoring must be stopped on the failure path")

	_, cleanups := injector.counts()
	assert.Equal(t, 0, cleanups, "nothing to clean up when injection never landed")
}

func TestExecuteScenario_RecoveryTimeoutTriggersRollback(t *testing.T) {
	collaborators, injector, monitor := healthyCollaborators()
	collaborators.Validator = &fakeValidator{block: true}
	config := testConfig()
	o := NewOrchestrator(config, collaborators, events.NewBus())

	scenario := testScenario("s-recovery-timeout")
	scenario.Recovery.MaxRecoveryTime = 20 * time.Millisecond

	result, err := o.ExecuteScenario(context.Background(), scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.False(t, result.Success)
	assert.Contains(t, result.FailureStep, "recovery validation")

	_, cleanups := injector.counts()
	assert.Equal(t, 1, cleanups, "fault must be removed exactly once")
	assert.Equal(t, 1, monitor.stopCount())
}

func TestExecuteScenario_RollbackStepsBestEffort(t *testing.T) {
	collaborators, _, _ := healthyCollaborators()
	collaborators.Validator = &fakeValidator{err: errors.Errorf("health endpoint never came back")}
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())

	var executed []string
	o.RollbackSteps().Register("flush-cache", func(ctx context.Context, step types.RollbackStep) error {
		executed = append(executed, step.Name)
		return errors.Errorf("cache unreachable")
	})
	o.RollbackSteps().Register("restart-service", func(ctx context.Context, step types.RollbackStep) error {
		executed = append(executed, step.Name)
		return nil
	})

	scenario := testScenario("s-rollback")
	scenario.RollbackSteps = []types.RollbackStep{
		{Name: "flush-cache"},
		{Name: "not-registered"},
		{Name: "restart-service"},
	}

	result, err := o.ExecuteScenario(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Success)

	assert.Equal(t, []string{"flush-cache", "restart-service"}, executed,
		"a failing or unknown step must not block the remaining steps")

	skipped, failed, completed := 0, 0, 0
	for _, obs := range result.Observations {
		if obs.Type != types.ObservationRollbackStep {
			continue
		}
		switch obs.Severity {
		case types.ObservationSeverityWarning:
			skipped++
		case types.ObservationSeverityError:
			failed++
		case types.ObservationSeverityInfo:
			completed++
		}
	}
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, completed)
}

func TestAbortScenario(t *testing.T) {
	collaborators, injector, monitor := healthyCollaborators()
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())

	scenario := testScenario("s-abort")
	scenario.Duration = 5 * time.Second

	done := make(chan *types.ChaosTestResult, 1)
	go func() {
		result, _ := o.ExecuteScenario(context.Background(), scenario)
		done <- result
	}()

	require.Eventually(t, func() bool {
		return len(o.ActiveScenarios()) == 1
	}, time.Second, 5*time.Millisecond, "scenario must register as active")

	// let the run get past injection before pulling the plug
	require.Eventually(t, func() bool {
		injects, _ := injector.counts()
		return injects == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, o.AbortScenario(context.Background(), "s-abort", "sre-oncall"))

	var result *types.ChaosTestResult
	select {
	case result = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("aborted scenario did not return")
	}

	require.NotNil(t, result)
	assert.True(t, result.Aborted)
	assert.False(t, result.Success)

	_, cleanups := injector.counts()
	assert.Equal(t, 1, cleanups, "cleanup must run exactly once across abort and completion paths")
	assert.Equal(t, 1, monitor.stopCount())
	assert.Empty(t, o.ActiveScenarios())

	manual := false
	for _, obs := range result.Observations {
		if obs.Type == types.ObservationManualIntervention {
			manual = true
		}
	}
	assert.True(t, manual, "abort must append a manual_intervention observation")
}

func TestAbortScenario_UnknownID(t *testing.T) {
	collaborators, _, _ := healthyCollaborators()
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())
	assert.Error(t, o.AbortScenario(context.Background(), "ghost", "nobody"))
}

func TestExecuteScenario_ThresholdObservations(t *testing.T) {
	collaborators, _, monitor := healthyCollaborators()
	monitor.mu.Lock()
	monitor.sample = types.SystemMetrics{MemoryPercent: 95, CPUPercent: 30, ResponseTime: 100 * time.Millisecond, ErrorRate: 60}
	monitor.mu.Unlock()
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())

	result, err := o.ExecuteScenario(context.Background(), testScenario("s-thresholds"))
	require.NoError(t, err)

	degraded, alerts := 0, 0
	for _, obs := range result.Observations {
		switch obs.Type {
		case types.ObservationSystemDegraded:
			degraded++
		case types.ObservationAlertTriggered:
			alerts++
		}
	}
	assert.Greater(t, degraded, 0, "memory above threshold must record system_degraded")
	assert.Greater(t, alerts, 1, "error rate above threshold must record alert_triggered beyond the baseline snapshot")

	// warnings degrade the verdict only through the summary, not the outcome
	assert.True(t, result.Success)
}

func TestExecuteScenarioSuite_Sequential(t *testing.T) {
	collaborators, _, _ := healthyCollaborators()
	bus := events.NewBus()
	o := NewOrchestrator(testConfig(), collaborators, bus)

	var progress []SuiteProgress
	bus.Subscribe(events.SuiteProgress, func(e events.Event) {
		progress = append(progress, e.Payload.(SuiteProgress))
	})

	results := o.ExecuteScenarioSuite(context.Background(), "nightly", []types.ChaosScenario{
		testScenario("s-one"),
		testScenario("s-two"),
	})

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)

	require.Len(t, progress, 2)
	assert.Equal(t, 1, progress[0].Completed)
	assert.Equal(t, 2, progress[1].Completed)
	assert.Equal(t, 2, progress[1].Total)
}

func TestExecuteScenarioSuite_HaltsOnCriticalFailure(t *testing.T) {
	collaborators, _, _ := healthyCollaborators()
	collaborators.Validator = &fakeValidator{result: &types.RecoveryValidationResult{Success: false, SuccessRate: 0}}
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())

	critical := testScenario("s-critical")
	critical.Severity = types.ScenarioSeverityCritical

	results := o.ExecuteScenarioSuite(context.Background(), "release-gate", []types.ChaosScenario{
		critical,
		testScenario("s-never-runs"),
	})

	require.Len(t, results, 1, "a failed critical scenario must halt the suite")
	assert.False(t, results[0].Success)
}

func TestExecuteScenarioSuite_ContinuesAfterNonCriticalFailure(t *testing.T) {
	collaborators, _, _ := healthyCollaborators()
	collaborators.Validator = &fakeValidator{result: &types.RecoveryValidationResult{Success: false, SuccessRate: 0}}
	o := NewOrchestrator(testConfig(), collaborators, events.NewBus())

	results := o.ExecuteScenarioSuite(context.Background(), "nightly", []types.ChaosScenario{
		testScenario("s-one"),
		testScenario("s-two"),
	})

	require.Len(t, results, 2, "non-critical failures must not halt the suite")
}
