package chaos

import (
	"context"
	"time"

	"github.com/hardenlab/resilience-go/pkg/events"
	"github.com/hardenlab/resilience-go/pkg/log"
	"github.com/hardenlab/resilience-go/pkg/types"
)

// SuiteProgress is the payload published after each scenario of a suite
type SuiteProgress struct {
	SuiteName  string                 `json:"suiteName"`
	ScenarioID string                 `json:"scenarioId"`
	Completed  int                    `json:"completed"`
	Total      int                    `json:"total"`
	Result     *types.ChaosTestResult `json:"result,omitempty"`
}

// ExecuteScenarioSuite runs the scenarios strictly sequentially, waiting for
// the system to settle between runs. A failing scenario tagged critical halts
// the remainder of the suite.
func (o *Orchestrator) ExecuteScenarioSuite(ctx context.Context, suiteName string, scenarios []types.ChaosScenario) []*types.ChaosTestResult {
	results := make([]*types.ChaosTestResult, 0, len(scenarios))

	log.Infof("[Suite]: Running suite '%v' with %v scenarios", suiteName, len(scenarios))
	for i, scenario := range scenarios {
		if i > 0 {
			o.waitForStability(ctx)
		}

		result, err := o.ExecuteScenario(ctx, scenario)
		if err != nil {
			log.Errorf("[Suite]: Scenario %v rejected, %v", scenario.ID, err)
		}
		if result != nil {
			results = append(results, result)
		}

		o.bus.Publish(events.SuiteProgress, SuiteProgress{
			SuiteName:  suiteName,
			ScenarioID: scenario.ID,
			Completed:  i + 1,
			Total:      len(scenarios),
			Result:     result,
		})

		failed := err != nil || result == nil || !result.Success
		if failed && scenario.Severity == types.ScenarioSeverityCritical {
			log.Errorf("[Suite]: Critical scenario %v failed, halting the remaining %v scenarios", scenario.ID, len(scenarios)-i-1)
			break
		}
	}

	o.bus.Publish(events.SuiteCompleted, results)
	log.Infof("[Suite]: Suite '%v' completed, %v/%v scenarios ran", suiteName, len(results), len(scenarios))
	return results
}

// waitForStability polls system metrics until the stability condition holds
// or the timeout elapses; the suite proceeds either way.
func (o *Orchestrator) waitForStability(ctx context.Context) {
	deadline := time.Now().Add(o.config.StabilizationTimeout)
	for {
		sample, err := o.collectMetrics(ctx)
		if err == nil && o.isStable(sample) {
			log.Info("[Suite]: System is stable, proceeding to the next scenario")
			return
		}
		if err != nil {
			log.Warnf("[Suite]: Unable to sample metrics during stabilization, %v", err)
		}
		if time.Now().After(deadline) {
			log.Warnf("[Suite]: System did not stabilize within %v, proceeding anyway", o.config.StabilizationTimeout)
			return
		}
		select {
		case <-time.After(o.config.StabilizationInterval):
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) isStable(sample *types.SystemMetrics) bool {
	s := o.config.Stability
	return sample.MemoryPercent < s.MemoryPercent &&
		sample.CPUPercent < s.CPUPercent &&
		sample.ResponseTime < s.ResponseTime &&
		sample.ErrorRate < s.ErrorRate
}
