package chaos

import (
	"os"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/hardenlab/resilience-go/pkg/cerrors"
	"github.com/hardenlab/resilience-go/pkg/types"
)

// ValidateScenario checks the declarative shape of a scenario before it is
// admitted; safety-check names are validated separately against the registry
func ValidateScenario(scenario types.ChaosScenario) error {
	if scenario.ID == "" {
		return cerrors.Generic{Phase: types.SafetyValidation, Reason: "scenario id must not be empty"}
	}
	if scenario.Name == "" {
		return cerrors.Generic{Phase: types.SafetyValidation, Reason: "scenario name must not be empty"}
	}
	if scenario.Duration <= 0 {
		return cerrors.Generic{Phase: types.SafetyValidation, Reason: "scenario duration must be positive"}
	}
	if scenario.Fault.Type == "" {
		return cerrors.Generic{Phase: types.SafetyValidation, Reason: "fault type must not be empty"}
	}
	if scenario.Fault.Intensity < 0 || scenario.Fault.Intensity > 1 {
		return cerrors.Generic{Phase: types.SafetyValidation, Reason: "fault intensity must be within [0,1]"}
	}
	if scenario.Fault.GradualRampUp && scenario.Fault.RampUpDuration <= 0 {
		return cerrors.Generic{Phase: types.SafetyValidation, Reason: "gradual ramp-up requires a positive rampUpDuration"}
	}
	if scenario.Recovery.MaxRecoveryTime <= 0 {
		return cerrors.Generic{Phase: types.SafetyValidation, Reason: "maxRecoveryTime must be positive"}
	}
	if rate := scenario.Recovery.Criteria.MinimumSuccessRate; rate < 0 || rate > 100 {
		return cerrors.Generic{Phase: types.SafetyValidation, Reason: "minimumSuccessRate must be within [0,100]"}
	}
	return nil
}

// scenario files declare durations in seconds, matching how operators think
// about chaos windows

type faultFile struct {
	Type          string            `yaml:"type"`
	Intensity     float64           `yaml:"intensity"`
	Target        string            `yaml:"target"`
	Parameters    map[string]string `yaml:"parameters"`
	GradualRampUp bool              `yaml:"gradualRampUp"`
	RampUpSeconds int               `yaml:"rampUpSeconds"`
}

type recoveryFile struct {
	MaxRecoverySeconds   int      `yaml:"maxRecoverySeconds"`
	ExpectedMechanisms   []string `yaml:"expectedMechanisms"`
	MinimumSuccessRate   float64  `yaml:"minimumSuccessRate"`
	MaximumErrorRate     float64  `yaml:"maximumErrorRate"`
	HealthCheckEndpoints []string `yaml:"healthCheckEndpoints"`
}

type rollbackFile struct {
	Name       string            `yaml:"name"`
	Parameters map[string]string `yaml:"parameters"`
}

type scenarioFile struct {
	ID              string         `yaml:"id"`
	Name            string         `yaml:"name"`
	Category        string         `yaml:"category"`
	Severity        string         `yaml:"severity"`
	DurationSeconds int            `yaml:"durationSeconds"`
	Fault           faultFile      `yaml:"fault"`
	Recovery        recoveryFile   `yaml:"recovery"`
	SafetyChecks    []string       `yaml:"safetyChecks"`
	RollbackSteps   []rollbackFile `yaml:"rollbackSteps"`
}

type suiteFile struct {
	Name      string         `yaml:"name"`
	Scenarios []scenarioFile `yaml:"scenarios"`
}

// SuiteDefinition is a named, ordered collection of scenarios
type SuiteDefinition struct {
	Name      string
	Scenarios []types.ChaosScenario
}

func (f scenarioFile) toScenario() types.ChaosScenario {
	scenario := types.ChaosScenario{
		ID:       f.ID,
		Name:     f.Name,
		Category: f.Category,
		Severity: types.ScenarioSeverity(f.Severity),
		Duration: time.Duration(f.DurationSeconds) * time.Second,
		Fault: types.FaultConfiguration{
			Type:           f.Fault.Type,
			Intensity:      f.Fault.Intensity,
			Target:         f.Fault.Target,
			Parameters:     f.Fault.Parameters,
			GradualRampUp:  f.Fault.GradualRampUp,
			RampUpDuration: time.Duration(f.Fault.RampUpSeconds) * time.Second,
		},
		Recovery: types.RecoveryExpectations{
			MaxRecoveryTime:    time.Duration(f.Recovery.MaxRecoverySeconds) * time.Second,
			ExpectedMechanisms: f.Recovery.ExpectedMechanisms,
			Criteria: types.SuccessCriteria{
				MinimumSuccessRate: f.Recovery.MinimumSuccessRate,
				MaximumErrorRate:   f.Recovery.MaximumErrorRate,
			},
			HealthCheckEndpoints: f.Recovery.HealthCheckEndpoints,
		},
		SafetyChecks: f.SafetyChecks,
	}
	for _, step := range f.RollbackSteps {
		scenario.RollbackSteps = append(scenario.RollbackSteps, types.RollbackStep{
			Name:       step.Name,
			Parameters: step.Parameters,
		})
	}
	return scenario
}

// LoadScenarioFile parses and validates one scenario definition
func LoadScenarioFile(path string) (types.ChaosScenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.ChaosScenario{}, errors.Errorf("unable to read scenario file %v, %v", path, err)
	}
	var file scenarioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return types.ChaosScenario{}, errors.Errorf("unable to parse scenario file %v, %v", path, err)
	}
	scenario := file.toScenario()
	if err := ValidateScenario(scenario); err != nil {
		return types.ChaosScenario{}, err
	}
	return scenario, nil
}

// LoadSuiteFile parses and validates a suite definition
func LoadSuiteFile(path string) (SuiteDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SuiteDefinition{}, errors.Errorf("unable to read suite file %v, %v", path, err)
	}
	var file suiteFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return SuiteDefinition{}, errors.Errorf("unable to parse suite file %v, %v", path, err)
	}
	suite := SuiteDefinition{Name: file.Name}
	for _, sf := range file.Scenarios {
		scenario := sf.toScenario()
		if err := ValidateScenario(scenario); err != nil {
			return SuiteDefinition{}, errors.Errorf("invalid scenario '%v' in suite %v, %v", sf.ID, path, err)
		}
		suite.Scenarios = append(suite.Scenarios, scenario)
	}
	return suite, nil
}
