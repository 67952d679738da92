package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "voxstella.yaml")

	configContent := `
mode: development
backend:
  port: 5055
  script_dirs:
    - "{app_dir}/server"
startup:
  poll_interval: 250ms
  timeout: 30s
restart:
  max_per_minute: 4
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != ModeDevelopment {
		t.Errorf("Expected mode development, got %s", cfg.Mode)
	}
	if cfg.Backend.Port != 5055 {
		t.Errorf("Expected port 5055, got %d", cfg.Backend.Port)
	}
	if len(cfg.Backend.ScriptDirs) != 1 || cfg.Backend.ScriptDirs[0] != "{app_dir}/server" {
		t.Errorf("Expected script_dirs to be replaced, got %v", cfg.Backend.ScriptDirs)
	}
	if cfg.Startup.PollInterval != 250*time.Millisecond {
		t.Errorf("Expected poll interval 250ms, got %s", cfg.Startup.PollInterval)
	}
	if cfg.Startup.Timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %s", cfg.Startup.Timeout)
	}
	if cfg.Restart.MaxPerMinute != 4 {
		t.Errorf("Expected max_per_minute 4, got %d", cfg.Restart.MaxPerMinute)
	}

	// Untouched fields keep their defaults
	if cfg.Restart.Delay != 2*time.Second {
		t.Errorf("Expected default restart delay 2s, got %s", cfg.Restart.Delay)
	}
	if cfg.Backend.HealthPath != "/api/health" {
		t.Errorf("Expected default health path, got %s", cfg.Backend.HealthPath)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Missing config should fall back to defaults: %v", err)
	}
	if cfg.Backend.Port != 5000 {
		t.Errorf("Expected default port 5000, got %d", cfg.Backend.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "voxstella.yaml")
	if err := os.WriteFile(configPath, []byte("backend: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected parse error for invalid YAML")
	}
}

func TestDefaults_MatchDesktopShell(t *testing.T) {
	cfg := defaultFor("linux")

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("Default config should be valid, got %v", errs)
	}
	if cfg.Startup.PollInterval != time.Second {
		t.Errorf("poll interval = %s, want 1s", cfg.Startup.PollInterval)
	}
	if cfg.Startup.Timeout != 120*time.Second {
		t.Errorf("startup timeout = %s, want 120s", cfg.Startup.Timeout)
	}
	if cfg.Backend.ExecutableName != "horary_backend" {
		t.Errorf("executable name = %s", cfg.Backend.ExecutableName)
	}
	if cfg.Backend.FallbackInterpreter != "python3" {
		t.Errorf("fallback interpreter = %s", cfg.Backend.FallbackInterpreter)
	}
	if cfg.HealthURL() != "http://127.0.0.1:5000/api/health" {
		t.Errorf("health url = %s", cfg.HealthURL())
	}

	win := defaultFor("windows")
	if win.Backend.ExecutableName != "horary_backend.exe" {
		t.Errorf("windows executable name = %s", win.Backend.ExecutableName)
	}
	if win.Backend.FallbackInterpreter != "python.exe" {
		t.Errorf("windows fallback interpreter = %s", win.Backend.FallbackInterpreter)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := Default()
	cfg.Mode = "staging"
	cfg.Backend.Port = 70000
	cfg.Startup.Timeout = 0
	cfg.Restart.MaxPerMinute = -1
	cfg.Logging.Level = "trace"
	cfg.Shutdown.FinalAfter = time.Second

	errs := cfg.Validate()

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}

	for _, want := range []string{
		"mode",
		"backend.port",
		"startup.timeout",
		"restart.max_per_minute",
		"logging.level",
		"shutdown.final_after",
	} {
		if !fields[want] {
			t.Errorf("Expected validation error for %s, got %v", want, errs)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "mode", Message: "invalid value: x", Expected: "auto"}
	if !strings.Contains(err.Error(), "expected: auto") {
		t.Errorf("unexpected message %q", err.Error())
	}

	err = ValidationError{Field: "backend.host", Message: "required field is missing"}
	if err.Error() != "backend.host: required field is missing" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"VOXSTELLA_MODE": "production",
		"VOXSTELLA_PORT": "5001",
	}

	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Mode != ModeProduction {
		t.Errorf("mode = %s, want production", cfg.Mode)
	}
	if cfg.Backend.Port != 5001 {
		t.Errorf("port = %d, want 5001", cfg.Backend.Port)
	}

	env["VOXSTELLA_PORT"] = "not-a-port"
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err == nil {
		t.Error("Expected error for non-numeric port")
	}
}
