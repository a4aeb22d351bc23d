package chaos

import (
	"context"
	"fmt"
	"time"

	"github.com/kyokomi/emoji"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hardenlab/resilience-go/pkg/cerrors"
	"github.com/hardenlab/resilience-go/pkg/events"
	"github.com/hardenlab/resilience-go/pkg/log"
	"github.com/hardenlab/resilience-go/pkg/metrics"
	"github.com/hardenlab/resilience-go/pkg/telemetry"
	"github.com/hardenlab/resilience-go/pkg/types"
)

// errAborted is the sentinel the phase runner returns when an operator
// cancelled the run; it routes around the emergency-rollback path.
var errAborted = fmt.Errorf("scenario aborted")

// Orchestrator owns the scenario lifecycle: safety validation, fault
// injection, continuous monitoring, recovery validation, MTTR analysis,
// summary derivation and success scoring.
type Orchestrator struct {
	config    types.ChaosConfig
	injector  FaultInjector
	validator RecoveryValidator
	analyzer  MTTRAnalyzer
	monitor   SystemMonitor
	safety    *SafetyRegistry
	rollbacks *RollbackRegistry
	bus       *events.Bus
	active    *activeRegistry
}

// NewOrchestrator wires the collaborators into a ready orchestrator
func NewOrchestrator(config types.ChaosConfig, collaborators Collaborators, bus *events.Bus) *Orchestrator {
	if bus == nil {
		bus = events.NewBus()
	}
	return &Orchestrator{
		config:    config,
		injector:  collaborators.Injector,
		validator: collaborators.Validator,
		analyzer:  collaborators.Analyzer,
		monitor:   collaborators.Monitor,
		safety:    NewSafetyRegistry(),
		rollbacks: NewRollbackRegistry(),
		bus:       bus,
		active:    newActiveRegistry(),
	}
}

// SafetyChecks exposes the safety-check registry
func (o *Orchestrator) SafetyChecks() *SafetyRegistry {
	return o.safety
}

// RollbackSteps exposes the rollback-step registry
func (o *Orchestrator) RollbackSteps() *RollbackRegistry {
	return o.rollbacks
}

// Bus exposes the notification bus for external subscribers
func (o *Orchestrator) Bus() *events.Bus {
	return o.bus
}

// ActiveScenarios lists the ids of currently running scenarios
func (o *Orchestrator) ActiveScenarios() []string {
	return o.active.ids()
}

// ExecuteScenario runs one scenario through all phases and returns its result.
// Precondition failures return an error before any fault is injected; failures
// after injection are caught, trigger emergency rollback and come back as a
// failed result. The active-registry entry is removed on every exit path.
func (o *Orchestrator) ExecuteScenario(ctx context.Context, scenario types.ChaosScenario) (*types.ChaosTestResult, error) {
	if err := o.validatePreconditions(ctx, scenario); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	result := &types.ChaosTestResult{
		ScenarioID:   scenario.ID,
		ScenarioName: scenario.Name,
		StartedAt:    time.Now(),
		Observations: []types.ChaosObservation{},
	}
	run := &activeRun{result: result, cancel: cancel}
	if err := o.active.add(scenario.ID, run); err != nil {
		cancel()
		return nil, err
	}

	defer func() {
		cancel()
		o.active.remove(scenario.ID)
		result.EndedAt = time.Now()
		result.Duration = result.EndedAt.Sub(result.StartedAt)
		verdict := "pass"
		kind := events.ScenarioCompleted
		switch {
		case run.isAborted():
			verdict = "abort"
			kind = events.ScenarioAborted
		case !result.Success:
			verdict = "fail"
		}
		metrics.ScenariosExecuted.WithLabelValues(verdict).Inc()
		o.bus.Publish(kind, result)
	}()

	runCtx, span := telemetry.StartTracing(runCtx, "chaos.scenario")
	defer span.End()

	log.InfoWithValues("[Scenario]: Starting chaos scenario", logrus.Fields{
		"ID":       scenario.ID,
		"Name":     scenario.Name,
		"Fault":    scenario.Fault.Type,
		"Target":   scenario.Fault.Target,
		"Duration": scenario.Duration.String(),
	})

	if err := o.runPhases(runCtx, scenario, run); err != nil {
		if errors.Is(err, errAborted) || run.isAborted() {
			run.markAborted()
			result.Success = false
			result.FailureStep = "scenario aborted by operator"
			o.cleanupCollaborators(context.Background(), run)
			log.Warnf("[Abort]: Scenario %v aborted %v", scenario.ID, emoji.Sprint(":warning:"))
			return result, nil
		}

		o.observe(run, types.ChaosObservation{
			Type:        types.ObservationSystemDegraded,
			Severity:    types.ObservationSeverityCritical,
			Description: fmt.Sprintf("scenario failed mid-flight: %v", err),
		})
		log.Errorf("[Failure]: Scenario %v failed, %v", scenario.ID, err)
		o.emergencyRollback(context.Background(), scenario, run)
		result.Success = false
		result.FailureStep = err.Error()
		result.Summary = deriveSummary(scenario, result)
		log.Warnf("[Verdict]: Scenario %v failed %v", scenario.ID, emoji.Sprint(":thumbsdown:"))
		return result, nil
	}

	result.Summary = deriveSummary(scenario, result)
	result.Success = o.evaluateSuccess(scenario, result)
	if result.Success {
		log.Infof("[Verdict]: Scenario %v passed %v", scenario.ID, emoji.Sprint(":thumbsup:"))
	} else {
		log.Warnf("[Verdict]: Scenario %v failed %v", scenario.ID, emoji.Sprint(":thumbsdown:"))
	}
	return result, nil
}

// AbortScenario cooperatively cancels a running scenario. Cleanup here and in
// the run goroutine share once-guards, so both paths may call them.
func (o *Orchestrator) AbortScenario(ctx context.Context, scenarioID, requestedBy string) error {
	run, ok := o.active.get(scenarioID)
	if !ok {
		return cerrors.Generic{Reason: "no active scenario with id '" + scenarioID + "'"}
	}

	log.Warnf("[Abort]: Manual intervention requested for scenario %v by %v", scenarioID, requestedBy)
	o.observe(run, types.ChaosObservation{
		Type:        types.ObservationManualIntervention,
		Severity:    types.ObservationSeverityWarning,
		Description: "scenario aborted by " + requestedBy,
		Context:     map[string]string{"requestedBy": requestedBy},
	})
	run.markAborted()
	run.cancel()
	o.cleanupCollaborators(ctx, run)
	return nil
}

// validatePreconditions gates the run before any side effect: environment
// protection, registered safety checks and the duration ceiling.
func (o *Orchestrator) validatePreconditions(ctx context.Context, scenario types.ChaosScenario) error {
	if err := ValidateScenario(scenario); err != nil {
		return err
	}

	if o.config.IsProtectedEnvironment() && !o.config.SafetyModeDisabled {
		return cerrors.SafetyCheck{Reason: fmt.Sprintf("chaos is blocked in protected environment '%s'", o.config.Environment)}
	}

	if o.config.MaxScenarioDuration > 0 && scenario.Duration > o.config.MaxScenarioDuration {
		return cerrors.SafetyCheck{Reason: fmt.Sprintf("scenario duration %v exceeds the configured ceiling %v", scenario.Duration, o.config.MaxScenarioDuration)}
	}

	if err := o.safety.Validate(scenario.SafetyChecks); err != nil {
		return err
	}
	for _, name := range scenario.SafetyChecks {
		check, _ := o.safety.Lookup(name)
		if err := check(ctx); err != nil {
			return cerrors.SafetyCheck{Check: name, Reason: err.Error()}
		}
	}
	return nil
}

// runPhases executes phases 1-7 strictly in order
func (o *Orchestrator) runPhases(ctx context.Context, scenario types.ChaosScenario, run *activeRun) error {
	result := run.result

	// phase 1: start monitoring and take the baseline snapshot
	log.Info("[Monitor]: Starting system monitoring")
	if err := o.startMonitoring(ctx); err != nil {
		return errors.Errorf("unable to start system monitoring, %v", err)
	}
	baseline, err := o.collectMetrics(ctx)
	if err != nil {
		return errors.Errorf("unable to take the baseline metrics snapshot, %v", err)
	}
	o.observe(run, types.ChaosObservation{
		Type:        types.ObservationAlertTriggered,
		Severity:    types.ObservationSeverityInfo,
		Description: "baseline metrics snapshot recorded",
		Metrics:     baseline,
	})

	// phase 2: inject the fault
	log.Infof("[Inject]: Injecting %v fault on target %v", scenario.Fault.Type, scenario.Fault.Target)
	injection, err := o.injectFault(ctx, scenario.Fault)
	if err != nil {
		return err
	}
	run.mu.Lock()
	run.injected = true
	run.mu.Unlock()
	result.Injection = injection
	o.observe(run, types.ChaosObservation{
		Type:        types.ObservationFaultInjected,
		Severity:    types.ObservationSeverityInfo,
		Description: fmt.Sprintf("%s fault injected on %s", scenario.Fault.Type, scenario.Fault.Target),
		Context:     map[string]string{"faultId": injection.FaultID},
	})

	if scenario.Fault.GradualRampUp && scenario.Fault.RampUpDuration > 0 {
		log.Infof("[Ramp]: Waiting %v for the fault to reach full intensity", scenario.Fault.RampUpDuration)
		select {
		case <-time.After(scenario.Fault.RampUpDuration):
		case <-ctx.Done():
			return errAborted
		}
	}

	// phase 3: continuous monitoring for the declared duration
	log.Infof("[Monitor]: Observing the system under fault for %v", scenario.Duration)
	if err := o.monitorLoop(ctx, scenario, run); err != nil {
		return err
	}

	// remove the fault before asking the system to prove it healed
	o.cleanupFault(ctx, run)

	// phase 4: recovery validation
	log.Info("[Recovery]: Validating system recovery")
	recovery, err := o.validateRecovery(ctx, scenario.Recovery, injection)
	if err != nil {
		return errors.Errorf("recovery validation failed, %v", err)
	}
	result.Recovery = recovery
	if recovery.Success {
		o.observe(run, types.ChaosObservation{
			Type:        types.ObservationRecoveryDetected,
			Severity:    types.ObservationSeverityInfo,
			Description: fmt.Sprintf("recovery confirmed in %v", recovery.RecoveryTime),
		})
	}

	// phase 5: MTTR analysis from injection start to validation completion
	log.Info("[Analysis]: Computing MTTR")
	analysis, err := o.analyzeRecovery(ctx, injection.InjectedAt, time.Now(), injection, recovery)
	if err != nil {
		return errors.Errorf("MTTR analysis failed, %v", err)
	}
	result.Analysis = analysis

	// phase 6: stop monitoring
	o.stopMonitoring(context.Background(), run)

	return nil
}

// monitorLoop samples metrics at the configured interval for the scenario
// duration, appending observations on threshold crossings
func (o *Orchestrator) monitorLoop(ctx context.Context, scenario types.ChaosScenario, run *activeRun) error {
	ticker := time.NewTicker(o.config.MonitorInterval)
	defer ticker.Stop()
	deadline := time.After(scenario.Duration)

	for {
		select {
		case <-ctx.Done():
			return errAborted
		case <-deadline:
			return nil
		case <-ticker.C:
			sample, err := o.collectMetrics(ctx)
			if err != nil {
				if cerrors.GetErrorType(err) == cerrors.ErrorTypeTimeout {
					return err
				}
				log.Warnf("[Monitor]: Dropping metrics sample, %v", err)
				continue
			}
			o.checkThresholds(run, sample)
		}
	}
}

// checkThresholds appends degradation observations for each crossed threshold
func (o *Orchestrator) checkThresholds(run *activeRun, sample *types.SystemMetrics) {
	t := o.config.Thresholds
	if sample.MemoryPercent > t.MemoryPercent {
		o.observe(run, types.ChaosObservation{
			Type:        types.ObservationSystemDegraded,
			Severity:    types.ObservationSeverityWarning,
			Description: fmt.Sprintf("memory utilization %.1f%% above threshold %.1f%%", sample.MemoryPercent, t.MemoryPercent),
			Metrics:     sample,
		})
	}
	if sample.CPUPercent > t.CPUPercent {
		o.observe(run, types.ChaosObservation{
			Type:        types.ObservationSystemDegraded,
			Severity:    types.ObservationSeverityWarning,
			Description: fmt.Sprintf("cpu utilization %.1f%% above threshold %.1f%%", sample.CPUPercent, t.CPUPercent),
			Metrics:     sample,
		})
	}
	if sample.ResponseTime > t.ResponseTime {
		o.observe(run, types.ChaosObservation{
			Type:        types.ObservationAlertTriggered,
			Severity:    types.ObservationSeverityWarning,
			Description: fmt.Sprintf("response time %v above threshold %v", sample.ResponseTime, t.ResponseTime),
			Metrics:     sample,
		})
	}
	if sample.ErrorRate > t.ErrorRate {
		o.observe(run, types.ChaosObservation{
			Type:        types.ObservationAlertTriggered,
			Severity:    types.ObservationSeverityWarning,
			Description: fmt.Sprintf("error rate %.1f%% above threshold %.1f%%", sample.ErrorRate, t.ErrorRate),
			Metrics:     sample,
		})
	}
}

// evaluateSuccess applies the overall verdict rules
func (o *Orchestrator) evaluateSuccess(scenario types.ChaosScenario, result *types.ChaosTestResult) bool {
	if result.Recovery == nil || !result.Recovery.Success {
		return false
	}
	if result.Analysis == nil || result.Analysis.MTTR > scenario.Recovery.MaxRecoveryTime {
		return false
	}
	if result.Recovery.SuccessRate < scenario.Recovery.Criteria.MinimumSuccessRate {
		return false
	}
	for _, obs := range result.Observations {
		if obs.Severity == types.ObservationSeverityCritical {
			return false
		}
	}
	return true
}

// emergencyRollback removes the fault, stops monitoring and walks the
// scenario's rollback steps best-effort; one failing step never blocks the
// next one.
func (o *Orchestrator) emergencyRollback(ctx context.Context, scenario types.ChaosScenario, run *activeRun) {
	log.Warnf("[Rollback]: Executing emergency rollback for scenario %v", scenario.ID)
	o.cleanupCollaborators(ctx, run)

	for _, step := range scenario.RollbackSteps {
		fn, ok := o.rollbacks.Lookup(step.Name)
		if !ok {
			log.Warnf("[Rollback]: No action registered for step '%v', skipping", step.Name)
			o.observe(run, types.ChaosObservation{
				Type:        types.ObservationRollbackStep,
				Severity:    types.ObservationSeverityWarning,
				Description: fmt.Sprintf("rollback step '%s' skipped, no registered action", step.Name),
			})
			continue
		}
		if err := fn(ctx, step); err != nil {
			log.Errorf("[Rollback]: Step '%v' failed, %v", step.Name, err)
			o.observe(run, types.ChaosObservation{
				Type:        types.ObservationRollbackStep,
				Severity:    types.ObservationSeverityError,
				Description: fmt.Sprintf("rollback step '%s' failed: %v", step.Name, err),
			})
			continue
		}
		o.observe(run, types.ChaosObservation{
			Type:        types.ObservationRollbackStep,
			Severity:    types.ObservationSeverityInfo,
			Description: fmt.Sprintf("rollback step '%s' completed", step.Name),
		})
	}
}

// cleanupCollaborators removes the fault and stops monitoring, exactly once
// each no matter how many paths call it
func (o *Orchestrator) cleanupCollaborators(ctx context.Context, run *activeRun) {
	o.cleanupFault(ctx, run)
	o.stopMonitoring(ctx, run)
}

func (o *Orchestrator) cleanupFault(ctx context.Context, run *activeRun) {
	run.cleanup.Do(func() {
		run.mu.Lock()
		injected := run.injected
		run.mu.Unlock()
		if !injected {
			return
		}
		cctx, cancel := context.WithTimeout(ctx, o.config.CollaboratorTimeout)
		defer cancel()
		if err := o.injector.Cleanup(cctx); err != nil {
			log.Errorf("[Cleanup]: Fault cleanup failed, %v", err)
			return
		}
		o.observe(run, types.ChaosObservation{
			Type:        types.ObservationFaultRemoved,
			Severity:    types.ObservationSeverityInfo,
			Description: "fault removed from target",
		})
	})
}

func (o *Orchestrator) stopMonitoring(ctx context.Context, run *activeRun) {
	run.stopMon.Do(func() {
		cctx, cancel := context.WithTimeout(ctx, o.config.CollaboratorTimeout)
		defer cancel()
		if err := o.monitor.StopMonitoring(cctx); err != nil {
			log.Errorf("[Monitor]: Unable to stop system monitoring, %v", err)
		}
	})
}

// observe appends to the result's observation log and fans the entry out
func (o *Orchestrator) observe(run *activeRun, obs types.ChaosObservation) {
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now()
	}
	run.mu.Lock()
	run.result.Observations = append(run.result.Observations, obs)
	run.mu.Unlock()
	metrics.ObservationsRecorded.WithLabelValues(string(obs.Severity)).Inc()
	o.bus.Publish(events.ObservationRecorded, obs)
}

// bounded-timeout wrappers around every collaborator call

func (o *Orchestrator) startMonitoring(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, o.config.CollaboratorTimeout)
	defer cancel()
	err := o.monitor.StartMonitoring(cctx)
	if cctx.Err() == context.DeadlineExceeded {
		return cerrors.Timeout{Operation: "start monitoring"}
	}
	return err
}

func (o *Orchestrator) collectMetrics(ctx context.Context) (*types.SystemMetrics, error) {
	cctx, cancel := context.WithTimeout(ctx, o.config.CollaboratorTimeout)
	defer cancel()
	sample, err := o.monitor.CollectMetrics(cctx)
	if cctx.Err() == context.DeadlineExceeded {
		return nil, cerrors.Timeout{Operation: "collect metrics"}
	}
	return sample, err
}

func (o *Orchestrator) injectFault(ctx context.Context, config types.FaultConfiguration) (*types.FaultInjectionResult, error) {
	cctx, cancel := context.WithTimeout(ctx, o.config.CollaboratorTimeout)
	defer cancel()
	injection, err := o.injector.InjectFault(cctx, config)
	if cctx.Err() == context.DeadlineExceeded {
		return nil, cerrors.Timeout{Operation: "inject fault"}
	}
	if err != nil {
		return nil, cerrors.FaultInjection{Fault: config.Type, Target: config.Target, Reason: err.Error()}
	}
	return injection, nil
}

func (o *Orchestrator) validateRecovery(ctx context.Context, expectations types.RecoveryExpectations, fault *types.FaultInjectionResult) (*types.RecoveryValidationResult, error) {
	// recovery may legitimately take up to the declared budget
	budget := o.config.CollaboratorTimeout
	if expectations.MaxRecoveryTime > budget {
		budget = expectations.MaxRecoveryTime + o.config.CollaboratorTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	recovery, err := o.validator.ValidateRecovery(cctx, expectations, fault)
	if cctx.Err() == context.DeadlineExceeded {
		return nil, cerrors.Timeout{Operation: "validate recovery"}
	}
	return recovery, err
}

func (o *Orchestrator) analyzeRecovery(ctx context.Context, start, end time.Time, fault *types.FaultInjectionResult, recovery *types.RecoveryValidationResult) (*types.MTTRAnalysisResult, error) {
	cctx, cancel := context.WithTimeout(ctx, o.config.CollaboratorTimeout)
	defer cancel()
	analysis, err := o.analyzer.AnalyzeRecovery(cctx, start, end, fault, recovery)
	if cctx.Err() == context.DeadlineExceeded {
		return nil, cerrors.Timeout{Operation: "analyze recovery"}
	}
	return analysis, err
}
