package chaos

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/hardenlab/resilience-go/pkg/log"
	"github.com/hardenlab/resilience-go/pkg/types"
	"github.com/hardenlab/resilience-go/pkg/utils/retry"
)

// DryRunInjector satisfies the FaultInjector contract without touching the
// target; used to validate scenario definitions end to end before handing
// them to a real injector.
type DryRunInjector struct {
	mu       sync.Mutex
	injected bool
}

// NewDryRunInjector returns an injector that only logs intended faults
func NewDryRunInjector() *DryRunInjector {
	return &DryRunInjector{}
}

// InjectFault records the intent and returns a synthetic result
func (d *DryRunInjector) InjectFault(ctx context.Context, config types.FaultConfiguration) (*types.FaultInjectionResult, error) {
	d.mu.Lock()
	d.injected = true
	d.mu.Unlock()
	log.Infof("[DryRun]: Would inject %v fault on %v at intensity %.2f", config.Type, config.Target, config.Intensity)
	return &types.FaultInjectionResult{
		FaultID:    fmt.Sprintf("dryrun-%d", time.Now().UnixNano()),
		Type:       config.Type,
		Target:     config.Target,
		InjectedAt: time.Now(),
		Details:    map[string]string{"mode": "dry-run"},
	}, nil
}

// Cleanup is idempotent; repeated calls are no-ops
func (d *DryRunInjector) Cleanup(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.injected {
		log.Info("[DryRun]: Would remove the injected fault")
		d.injected = false
	}
	return nil
}

// HTTPMonitor samples the protected service through a health endpoint,
// deriving response time from the probe itself and memory pressure from the
// local runtime when no remote figures are available.
type HTTPMonitor struct {
	endpoint string
	client   *http.Client

	mu       sync.Mutex
	running  bool
	probes   int
	failures int
}

// NewHTTPMonitor probes the given endpoint with the supplied per-request timeout
func NewHTTPMonitor(endpoint string, timeout time.Duration) *HTTPMonitor {
	return &HTTPMonitor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (m *HTTPMonitor) StartMonitoring(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.probes = 0
	m.failures = 0
	return nil
}

// StopMonitoring is safe to call more than once
func (m *HTTPMonitor) StopMonitoring(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// CollectMetrics performs one probe and folds it into the rolling error rate
func (m *HTTPMonitor) CollectMetrics(ctx context.Context) (*types.SystemMetrics, error) {
	start := time.Now()
	healthy := m.probe(ctx)
	elapsed := time.Since(start)

	m.mu.Lock()
	m.probes++
	if !healthy {
		m.failures++
	}
	errorRate := float64(m.failures) / float64(m.probes) * 100
	m.mu.Unlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryPercent := 0.0
	if memStats.Sys > 0 {
		memoryPercent = float64(memStats.HeapAlloc) / float64(memStats.Sys) * 100
	}

	return &types.SystemMetrics{
		Timestamp:     time.Now(),
		MemoryPercent: memoryPercent,
		ResponseTime:  elapsed,
		ErrorRate:     errorRate,
	}, nil
}

func (m *HTTPMonitor) probe(ctx context.Context) bool {
	if m.endpoint == "" {
		return true
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// EndpointValidator confirms recovery by polling the declared health-check
// endpoints until they all answer healthy or the recovery budget runs out.
type EndpointValidator struct {
	client       *http.Client
	pollInterval time.Duration
}

// NewEndpointValidator builds a validator with the given probe timeout and poll interval
func NewEndpointValidator(timeout, pollInterval time.Duration) *EndpointValidator {
	return &EndpointValidator{
		client:       &http.Client{Timeout: timeout},
		pollInterval: pollInterval,
	}
}

func (v *EndpointValidator) ValidateRecovery(ctx context.Context, expectations types.RecoveryExpectations, fault *types.FaultInjectionResult) (*types.RecoveryValidationResult, error) {
	start := time.Now()
	result := &types.RecoveryValidationResult{}

	if len(expectations.HealthCheckEndpoints) == 0 {
		result.Success = true
		result.SuccessRate = 100
		return result, nil
	}

	attempts := uint(expectations.MaxRecoveryTime/v.pollInterval) + 1
	var healthy, total int
	for _, endpoint := range expectations.HealthCheckEndpoints {
		total++
		err := retry.Times(attempts).
			Wait(v.pollInterval).
			Try(func(attempt uint) error {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return v.checkEndpoint(ctx, endpoint)
			})
		if err != nil {
			result.FailedChecks = append(result.FailedChecks, endpoint)
			continue
		}
		healthy++
	}

	result.RecoveryTime = time.Since(start)
	result.SuccessRate = float64(healthy) / float64(total) * 100
	result.Success = healthy == total && result.RecoveryTime <= expectations.MaxRecoveryTime
	if result.Success {
		result.MechanismsObserved = expectations.ExpectedMechanisms
	}
	return result, nil
}

func (v *EndpointValidator) checkEndpoint(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint %s answered %d", endpoint, resp.StatusCode)
	}
	return nil
}

// WindowAnalyzer derives MTTR from the fault and recovery windows
type WindowAnalyzer struct{}

// NewWindowAnalyzer returns the default analyzer
func NewWindowAnalyzer() *WindowAnalyzer {
	return &WindowAnalyzer{}
}

func (a *WindowAnalyzer) AnalyzeRecovery(ctx context.Context, start, end time.Time, fault *types.FaultInjectionResult, recovery *types.RecoveryValidationResult) (*types.MTTRAnalysisResult, error) {
	mttr := end.Sub(start)
	if mttr < 0 {
		mttr = 0
	}
	result := &types.MTTRAnalysisResult{MTTR: mttr}
	if recovery != nil {
		result.RecoveryTime = recovery.RecoveryTime
		if detection := mttr - recovery.RecoveryTime; detection > 0 {
			result.DetectionTime = detection
		}
	}
	return result, nil
}
