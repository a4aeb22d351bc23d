package types

import (
	"time"
)

const (
	// SafetyValidation initial stage of the scenario, health and environment gating before any fault
	SafetyValidation string = "SafetyValidation"
	// FaultInject this stage refers to the main fault injection
	FaultInject string = "FaultInject"
	// Monitoring continuous observation stage for the declared scenario duration
	Monitoring string = "Monitoring"
	// RecoveryValidation post-fault stage verifying the system healed as declared
	RecoveryValidation string = "RecoveryValidation"
	// MTTRAnalysis stage computing time-to-recovery figures
	MTTRAnalysis string = "MTTRAnalysis"
	// Summary final stage deriving the scenario verdict
	Summary string = "Summary"
	// Rollback emergency rollback stage entered on any mid-scenario failure
	Rollback string = "Rollback"
)

// ScenarioSeverity is the declared blast-radius class of a scenario
type ScenarioSeverity string

const (
	ScenarioSeverityLow      ScenarioSeverity = "low"
	ScenarioSeverityMedium   ScenarioSeverity = "medium"
	ScenarioSeverityHigh     ScenarioSeverity = "high"
	ScenarioSeverityCritical ScenarioSeverity = "critical"
)

// ObservationType classifies an entry in the scenario observation log
type ObservationType string

const (
	ObservationFaultInjected      ObservationType = "fault_injected"
	ObservationFaultRemoved       ObservationType = "fault_removed"
	ObservationAlertTriggered     ObservationType = "alert_triggered"
	ObservationSystemDegraded     ObservationType = "system_degraded"
	ObservationRecoveryDetected   ObservationType = "recovery_detected"
	ObservationManualIntervention ObservationType = "manual_intervention"
	ObservationRollbackStep       ObservationType = "rollback_step"
)

// ObservationSeverity grades a single observation
type ObservationSeverity string

const (
	ObservationSeverityInfo     ObservationSeverity = "info"
	ObservationSeverityWarning  ObservationSeverity = "warning"
	ObservationSeverityError    ObservationSeverity = "error"
	ObservationSeverityCritical ObservationSeverity = "critical"
)

// FaultConfiguration describes the fault a scenario injects
type FaultConfiguration struct {
	Type           string            `yaml:"type" json:"type"`
	Intensity      float64           `yaml:"intensity" json:"intensity"`
	Target         string            `yaml:"target" json:"target"`
	Parameters     map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	GradualRampUp  bool              `yaml:"gradualRampUp,omitempty" json:"gradualRampUp,omitempty"`
	RampUpDuration time.Duration     `yaml:"rampUpDuration,omitempty" json:"rampUpDuration,omitempty"`
}

// SuccessCriteria declares the bar a recovery must clear
type SuccessCriteria struct {
	MinimumSuccessRate float64       `yaml:"minimumSuccessRate" json:"minimumSuccessRate"`
	MaximumErrorRate   float64       `yaml:"maximumErrorRate,omitempty" json:"maximumErrorRate,omitempty"`
	MaximumResponse    time.Duration `yaml:"maximumResponse,omitempty" json:"maximumResponse,omitempty"`
}

// RecoveryExpectations declares how and how fast the system is expected to heal
type RecoveryExpectations struct {
	MaxRecoveryTime      time.Duration   `yaml:"maxRecoveryTime" json:"maxRecoveryTime"`
	ExpectedMechanisms   []string        `yaml:"expectedMechanisms,omitempty" json:"expectedMechanisms,omitempty"`
	Criteria             SuccessCriteria `yaml:"criteria" json:"criteria"`
	HealthCheckEndpoints []string        `yaml:"healthCheckEndpoints,omitempty" json:"healthCheckEndpoints,omitempty"`
}

// RollbackStep is one best-effort action of the emergency rollback sequence
type RollbackStep struct {
	Name       string            `yaml:"name" json:"name"`
	Parameters map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// ChaosScenario is the declarative description of one fault-injection run.
// It is treated as immutable once submitted to the orchestrator.
type ChaosScenario struct {
	ID            string               `yaml:"id" json:"id"`
	Name          string               `yaml:"name" json:"name"`
	Category      string               `yaml:"category" json:"category"`
	Severity      ScenarioSeverity     `yaml:"severity" json:"severity"`
	Duration      time.Duration        `yaml:"duration" json:"duration"`
	Fault         FaultConfiguration   `yaml:"fault" json:"fault"`
	Recovery      RecoveryExpectations `yaml:"recovery" json:"recovery"`
	SafetyChecks  []string             `yaml:"safetyChecks,omitempty" json:"safetyChecks,omitempty"`
	RollbackSteps []RollbackStep       `yaml:"rollbackSteps,omitempty" json:"rollbackSteps,omitempty"`
}

// SystemMetrics is one sample of the protected system's vital signs
type SystemMetrics struct {
	Timestamp     time.Time     `json:"timestamp"`
	MemoryPercent float64       `json:"memoryPercent"`
	CPUPercent    float64       `json:"cpuPercent"`
	ResponseTime  time.Duration `json:"responseTime"`
	ErrorRate     float64       `json:"errorRate"`
}

// FaultInjectionResult is returned by the fault injector collaborator
type FaultInjectionResult struct {
	FaultID    string            `json:"faultId"`
	Type       string            `json:"type"`
	Target     string            `json:"target"`
	InjectedAt time.Time         `json:"injectedAt"`
	Details    map[string]string `json:"details,omitempty"`
}

// RecoveryValidationResult is returned by the recovery validator collaborator
type RecoveryValidationResult struct {
	Success            bool          `json:"success"`
	SuccessRate        float64       `json:"successRate"`
	RecoveryTime       time.Duration `json:"recoveryTime"`
	MechanismsObserved []string      `json:"mechanismsObserved,omitempty"`
	FailedChecks       []string      `json:"failedChecks,omitempty"`
}

// MTTRAnalysisResult is returned by the MTTR analyzer collaborator
type MTTRAnalysisResult struct {
	MTTR          time.Duration `json:"mttr"`
	DetectionTime time.Duration `json:"detectionTime"`
	RecoveryTime  time.Duration `json:"recoveryTime"`
}

// ChaosObservation is one entry of a result's ordered, append-only observation log
type ChaosObservation struct {
	Timestamp   time.Time           `json:"timestamp"`
	Type        ObservationType     `json:"type"`
	Severity    ObservationSeverity `json:"severity"`
	Description string              `json:"description"`
	Metrics     *SystemMetrics      `json:"metrics,omitempty"`
	Context     map[string]string   `json:"context,omitempty"`
}

// ChaosTestSummary is derived from a completed run
type ChaosTestSummary struct {
	FaultDuration      time.Duration `json:"faultDuration"`
	DetectionTime      time.Duration `json:"detectionTime"`
	RecoveryTime       time.Duration `json:"recoveryTime"`
	TotalDowntime      time.Duration `json:"totalDowntime"`
	MTTR               time.Duration `json:"mttr"`
	SuccessRate        float64       `json:"successRate"`
	ImpactAssessment   string        `json:"impactAssessment"`
	LessonsLearned     []string      `json:"lessonsLearned,omitempty"`
	RecommendedActions []string      `json:"recommendedActions,omitempty"`
}

// ChaosTestResult holds everything observed while one scenario ran
type ChaosTestResult struct {
	ScenarioID   string                    `json:"scenarioId"`
	ScenarioName string                    `json:"scenarioName"`
	StartedAt    time.Time                 `json:"startedAt"`
	EndedAt      time.Time                 `json:"endedAt"`
	Duration     time.Duration             `json:"duration"`
	Success      bool                      `json:"success"`
	Aborted      bool                      `json:"aborted"`
	FailureStep  string                    `json:"failureStep,omitempty"`
	Injection    *FaultInjectionResult     `json:"injection,omitempty"`
	Recovery     *RecoveryValidationResult `json:"recovery,omitempty"`
	Analysis     *MTTRAnalysisResult       `json:"analysis,omitempty"`
	Observations []ChaosObservation        `json:"observations"`
	Summary      *ChaosTestSummary         `json:"summary,omitempty"`
}

// MonitorThresholds define when a monitoring tick records a degradation observation
type MonitorThresholds struct {
	MemoryPercent float64       `yaml:"memoryPercent" json:"memoryPercent"`
	CPUPercent    float64       `yaml:"cpuPercent" json:"cpuPercent"`
	ResponseTime  time.Duration `yaml:"responseTime" json:"responseTime"`
	ErrorRate     float64       `yaml:"errorRate" json:"errorRate"`
}

// StabilityThresholds define the quiet state required between suite scenarios
type StabilityThresholds struct {
	MemoryPercent float64       `yaml:"memoryPercent" json:"memoryPercent"`
	CPUPercent    float64       `yaml:"cpuPercent" json:"cpuPercent"`
	ResponseTime  time.Duration `yaml:"responseTime" json:"responseTime"`
	ErrorRate     float64       `yaml:"errorRate" json:"errorRate"`
}

// ChaosConfig carries the orchestrator-wide settings
type ChaosConfig struct {
	Environment           string              `yaml:"environment" json:"environment"`
	ProtectedEnvironments []string            `yaml:"protectedEnvironments" json:"protectedEnvironments"`
	SafetyModeDisabled    bool                `yaml:"safetyModeDisabled" json:"safetyModeDisabled"`
	MaxScenarioDuration   time.Duration       `yaml:"maxScenarioDuration" json:"maxScenarioDuration"`
	MonitorInterval       time.Duration       `yaml:"monitorInterval" json:"monitorInterval"`
	CollaboratorTimeout   time.Duration       `yaml:"collaboratorTimeout" json:"collaboratorTimeout"`
	Thresholds            MonitorThresholds   `yaml:"thresholds" json:"thresholds"`
	Stability             StabilityThresholds `yaml:"stability" json:"stability"`
	StabilizationInterval time.Duration       `yaml:"stabilizationInterval" json:"stabilizationInterval"`
	StabilizationTimeout  time.Duration       `yaml:"stabilizationTimeout" json:"stabilizationTimeout"`
}

// DefaultChaosConfig returns the orchestrator defaults
func DefaultChaosConfig() ChaosConfig {
	return ChaosConfig{
		Environment:           "development",
		ProtectedEnvironments: []string{"production"},
		MaxScenarioDuration:   10 * time.Minute,
		MonitorInterval:       1 * time.Second,
		CollaboratorTimeout:   30 * time.Second,
		Thresholds: MonitorThresholds{
			MemoryPercent: 90,
			CPUPercent:    85,
			ResponseTime:  10 * time.Second,
			ErrorRate:     50,
		},
		Stability: StabilityThresholds{
			MemoryPercent: 70,
			CPUPercent:    50,
			ResponseTime:  1 * time.Second,
			ErrorRate:     1,
		},
		StabilizationInterval: 5 * time.Second,
		StabilizationTimeout:  30 * time.Second,
	}
}

// IsProtectedEnvironment reports whether the configured environment is chaos-protected
func (c ChaosConfig) IsProtectedEnvironment() bool {
	for _, env := range c.ProtectedEnvironments {
		if env == c.Environment {
			return true
		}
	}
	return false
}
