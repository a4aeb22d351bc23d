package chaos

import (
	"fmt"
	"time"

	"github.com/hardenlab/resilience-go/pkg/types"
)

// deriveSummary condenses a finished run into the operator-facing summary
func deriveSummary(scenario types.ChaosScenario, result *types.ChaosTestResult) *types.ChaosTestSummary {
	summary := &types.ChaosTestSummary{
		ImpactAssessment: assessImpact(result.Observations),
	}

	injectedAt, removedAt := faultWindow(result)
	if !injectedAt.IsZero() {
		if removedAt.IsZero() {
			summary.FaultDuration = scenario.Duration
		} else {
			summary.FaultDuration = removedAt.Sub(injectedAt)
		}
		if first := firstDegradation(result.Observations); !first.IsZero() {
			summary.DetectionTime = first.Sub(injectedAt)
		}
	}

	if result.Recovery != nil {
		summary.RecoveryTime = result.Recovery.RecoveryTime
		summary.SuccessRate = result.Recovery.SuccessRate
	}
	if result.Analysis != nil {
		summary.MTTR = result.Analysis.MTTR
		if summary.DetectionTime == 0 {
			summary.DetectionTime = result.Analysis.DetectionTime
		}
	}
	summary.TotalDowntime = summary.DetectionTime + summary.RecoveryTime

	summary.LessonsLearned = deriveLessons(scenario, result, summary)
	summary.RecommendedActions = deriveActions(scenario, result, summary)
	return summary
}

// assessImpact grades the run from the worst observation severities seen
func assessImpact(observations []types.ChaosObservation) string {
	var criticals, errors, warnings int
	for _, obs := range observations {
		switch obs.Severity {
		case types.ObservationSeverityCritical:
			criticals++
		case types.ObservationSeverityError:
			errors++
		case types.ObservationSeverityWarning:
			warnings++
		}
	}
	switch {
	case criticals > 0:
		return "severe"
	case errors > 0:
		return "significant"
	case warnings > 3:
		return "moderate"
	case warnings > 0:
		return "low"
	default:
		return "minimal"
	}
}

func faultWindow(result *types.ChaosTestResult) (injectedAt, removedAt time.Time) {
	for _, obs := range result.Observations {
		switch obs.Type {
		case types.ObservationFaultInjected:
			if injectedAt.IsZero() {
				injectedAt = obs.Timestamp
			}
		case types.ObservationFaultRemoved:
			removedAt = obs.Timestamp
		}
	}
	if injectedAt.IsZero() && result.Injection != nil {
		injectedAt = result.Injection.InjectedAt
	}
	return injectedAt, removedAt
}

// firstDegradation returns the timestamp of the earliest degradation
// observation recorded after the fault went in
func firstDegradation(observations []types.ChaosObservation) time.Time {
	seenFault := false
	for _, obs := range observations {
		if obs.Type == types.ObservationFaultInjected {
			seenFault = true
			continue
		}
		if !seenFault {
			continue
		}
		if obs.Type == types.ObservationSystemDegraded || obs.Type == types.ObservationAlertTriggered {
			if obs.Severity != types.ObservationSeverityInfo {
				return obs.Timestamp
			}
		}
	}
	return time.Time{}
}

func deriveLessons(scenario types.ChaosScenario, result *types.ChaosTestResult, summary *types.ChaosTestSummary) []string {
	var lessons []string

	if summary.DetectionTime == 0 && summary.ImpactAssessment == "minimal" {
		lessons = append(lessons, "fault produced no observable degradation; consider raising the fault intensity or tightening monitoring thresholds")
	}
	if scenario.Duration > 0 && summary.DetectionTime > scenario.Duration/2 {
		lessons = append(lessons, fmt.Sprintf("degradation was first observed %v after injection; detection lagged well behind the fault", summary.DetectionTime))
	}
	if result.Analysis != nil && result.Analysis.MTTR > scenario.Recovery.MaxRecoveryTime {
		lessons = append(lessons, fmt.Sprintf("measured MTTR %v exceeded the declared budget %v", result.Analysis.MTTR, scenario.Recovery.MaxRecoveryTime))
	}
	if result.Recovery != nil && len(result.Recovery.FailedChecks) > 0 {
		lessons = append(lessons, fmt.Sprintf("%d recovery checks never came back healthy", len(result.Recovery.FailedChecks)))
	}
	return lessons
}

func deriveActions(scenario types.ChaosScenario, result *types.ChaosTestResult, summary *types.ChaosTestSummary) []string {
	var actions []string

	if summary.ImpactAssessment == "severe" {
		actions = append(actions, "triage critical observations before re-running this scenario")
	}
	if result.Analysis != nil && result.Analysis.MTTR > scenario.Recovery.MaxRecoveryTime {
		actions = append(actions, "tune automated recovery so MTTR fits the declared budget")
	}
	if result.Recovery != nil {
		for _, check := range result.Recovery.FailedChecks {
			actions = append(actions, "investigate failing health check: "+check)
		}
		if result.Recovery.SuccessRate < scenario.Recovery.Criteria.MinimumSuccessRate {
			actions = append(actions, fmt.Sprintf("recovery success rate %.1f%% is below the %.1f%% criterion; review the expected recovery mechanisms", result.Recovery.SuccessRate, scenario.Recovery.Criteria.MinimumSuccessRate))
		}
	}
	return actions
}
