package chaos

import (
	"context"
	"time"

	"github.com/hardenlab/resilience-go/pkg/types"
)

// FaultInjector applies and removes the configured fault on the target system.
// Cleanup must be idempotent since both the completion path and the abort path
// may invoke it.
type FaultInjector interface {
	InjectFault(ctx context.Context, config types.FaultConfiguration) (*types.FaultInjectionResult, error)
	Cleanup(ctx context.Context) error
}

// RecoveryValidator confirms the system healed according to the declared expectations
type RecoveryValidator interface {
	ValidateRecovery(ctx context.Context, expectations types.RecoveryExpectations, fault *types.FaultInjectionResult) (*types.RecoveryValidationResult, error)
}

// MTTRAnalyzer computes time-to-recovery figures for a completed run
type MTTRAnalyzer interface {
	AnalyzeRecovery(ctx context.Context, start, end time.Time, fault *types.FaultInjectionResult, recovery *types.RecoveryValidationResult) (*types.MTTRAnalysisResult, error)
}

// SystemMonitor samples the protected system's vital signs. StopMonitoring
// must be idempotent for the same reason Cleanup is.
type SystemMonitor interface {
	StartMonitoring(ctx context.Context) error
	StopMonitoring(ctx context.Context) error
	CollectMetrics(ctx context.Context) (*types.SystemMetrics, error)
}

// Collaborators bundles the four external contracts the orchestrator drives
type Collaborators struct {
	Injector  FaultInjector
	Validator RecoveryValidator
	Analyzer  MTTRAnalyzer
	Monitor   SystemMonitor
}
