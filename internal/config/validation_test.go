package config

import (
	"strings"
	"testing"
)

func findingWith(results []ValidationResult, level, substr string) bool {
	for _, r := range results {
		if r.Level == level && strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateCleanConfig(t *testing.T) {
	cfg := Default()
	cfg.Python.Version = "3.12.1"
	cfg.Python.Virtualenv = ".venv"
	cfg.Env = map[string]string{"APP_ENV": "dev"}

	if results := cfg.Validate(); len(results) != 0 {
		t.Fatalf("expected no findings, got %v", results)
	}
}

func TestValidateVersionField(t *testing.T) {
	cfg := Config{Version: 2}
	if !findingWith(cfg.Validate(), "error", "unsupported config version") {
		t.Fatalf("missing version finding: %v", cfg.Validate())
	}
}

func TestValidateRefRequest(t *testing.T) {
	cfg := Default()
	cfg.Python.Version = "ref:master"
	if results := cfg.Validate(); len(results) != 0 {
		t.Fatalf("ref request should be valid, got %v", results)
	}

	cfg.Python.Version = "ref:"
	if !findingWith(cfg.Validate(), "error", "missing a ref name") {
		t.Fatalf("missing ref finding: %v", cfg.Validate())
	}
}

func TestValidateNonNumericRequestWarns(t *testing.T) {
	cfg := Default()
	cfg.Python.Version = "latest"
	if !findingWith(cfg.Validate(), "warning", "does not start with a digit") {
		t.Fatalf("missing request warning: %v", cfg.Validate())
	}
}

func TestValidateVirtualenvEscape(t *testing.T) {
	cfg := Default()
	cfg.Python.Virtualenv = "../shared/.venv"
	if !findingWith(cfg.Validate(), "warning", "climbs out of the project") {
		t.Fatalf("missing virtualenv warning: %v", cfg.Validate())
	}
}

func TestValidateEnvKeys(t *testing.T) {
	cfg := Default()
	cfg.Env = map[string]string{"": "x", "BAD=KEY": "y"}
	results := cfg.Validate()
	if !findingWith(results, "error", "empty variable name") {
		t.Fatalf("missing empty-key finding: %v", results)
	}
	if !findingWith(results, "error", "must not contain '='") {
		t.Fatalf("missing '=' finding: %v", results)
	}
}
