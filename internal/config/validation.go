package config

import (
	"fmt"
	"strings"

	"pyforge/pkg/pyver"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the config for problems that would break an install or env
// setup later and returns structured results.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateVersionField()...)
	results = append(results, c.validateRequest()...)
	results = append(results, c.validateVirtualenv()...)
	results = append(results, c.validateEnv()...)
	return results
}

func (c Config) validateVersionField() []ValidationResult {
	if c.Version != 1 {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("unsupported config version %d (expected 1)", c.Version),
		}}
	}
	return nil
}

func (c Config) validateRequest() []ValidationResult {
	request := strings.TrimSpace(c.Python.Version)
	if request == "" {
		return nil
	}
	if pyver.IsRef(request) {
		if pyver.RefName(request) == "" {
			return []ValidationResult{{
				Level:   "error",
				Message: "python.version ref request is missing a ref name",
			}}
		}
		return nil
	}
	if !pyver.LeadsDigit(request) {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("python.version %q does not start with a digit; it will not match release versions", request),
		}}
	}
	return nil
}

func (c Config) validateVirtualenv() []ValidationResult {
	venv := strings.TrimSpace(c.Python.Virtualenv)
	if venv == "" {
		return nil
	}
	var results []ValidationResult
	for _, part := range strings.Split(venv, "/") {
		if part == ".." {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("python.virtualenv %q climbs out of the project directory", venv),
			})
			break
		}
	}
	return results
}

func (c Config) validateEnv() []ValidationResult {
	var results []ValidationResult
	for key := range c.Env {
		if strings.TrimSpace(key) == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: "env contains an empty variable name",
			})
			continue
		}
		if strings.Contains(key, "=") {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("env variable name %q must not contain '='", key),
			})
		}
	}
	return results
}
