package chaos

import (
	"context"
	"sync"

	"github.com/hardenlab/resilience-go/pkg/cerrors"
	"github.com/hardenlab/resilience-go/pkg/types"
)

// SafetyCheck is a named precondition gating whether a scenario may run
type SafetyCheck func(ctx context.Context) error

// RollbackFunc executes one named emergency rollback step
type RollbackFunc func(ctx context.Context, step types.RollbackStep) error

// SafetyRegistry maps check names to predicates. Scenarios referencing an
// unknown check name are rejected before any fault is injected.
type SafetyRegistry struct {
	mu     sync.RWMutex
	checks map[string]SafetyCheck
}

// NewSafetyRegistry returns an empty registry
func NewSafetyRegistry() *SafetyRegistry {
	return &SafetyRegistry{checks: make(map[string]SafetyCheck)}
}

// Register adds or replaces a named check
func (r *SafetyRegistry) Register(name string, check SafetyCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

// Lookup returns the named check
func (r *SafetyRegistry) Lookup(name string) (SafetyCheck, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	check, ok := r.checks[name]
	return check, ok
}

// Validate fails fast when any of the given names is not registered
func (r *SafetyRegistry) Validate(names []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		if _, ok := r.checks[name]; !ok {
			return cerrors.SafetyCheck{Check: name, Reason: "no such check registered"}
		}
	}
	return nil
}

// RollbackRegistry maps rollback step names to their actions
type RollbackRegistry struct {
	mu    sync.RWMutex
	steps map[string]RollbackFunc
}

// NewRollbackRegistry returns an empty registry
func NewRollbackRegistry() *RollbackRegistry {
	return &RollbackRegistry{steps: make(map[string]RollbackFunc)}
}

// Register adds or replaces a named rollback action
func (r *RollbackRegistry) Register(name string, fn RollbackFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[name] = fn
}

// Lookup returns the named rollback action
func (r *RollbackRegistry) Lookup(name string) (RollbackFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.steps[name]
	return fn, ok
}

// activeRun tracks one in-flight scenario. The mutex guards the observation
// log and the abort flag, which are touched from both the run goroutine and
// the abort caller. The once guards make collaborator cleanup safe to invoke
// from either path.
type activeRun struct {
	mu       sync.Mutex
	result   *types.ChaosTestResult
	cancel   context.CancelFunc
	aborted  bool
	cleanup  sync.Once
	stopMon  sync.Once
	injected bool
}

func (r *activeRun) markAborted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted = true
	r.result.Aborted = true
}

func (r *activeRun) isAborted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborted
}

// activeRegistry holds at most one run per scenario id. Every execution path
// removes its entry exactly once via the orchestrator's deferred finalizer.
type activeRegistry struct {
	mu   sync.Mutex
	runs map[string]*activeRun
}

func newActiveRegistry() *activeRegistry {
	return &activeRegistry{runs: make(map[string]*activeRun)}
}

func (r *activeRegistry) add(id string, run *activeRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; ok {
		return cerrors.Generic{Phase: types.SafetyValidation, Reason: "scenario '" + id + "' is already running"}
	}
	r.runs[id] = run
	return nil
}

func (r *activeRegistry) get(id string) (*activeRun, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	return run, ok
}

func (r *activeRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, id)
}

func (r *activeRegistry) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.runs))
	for id := range r.runs {
		ids = append(ids, id)
	}
	return ids
}
