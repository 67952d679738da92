// Package config loads voxstella.yaml and supplies the launcher defaults.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "voxstella.yaml"

// Launcher modes.
const (
	ModeAuto        = "auto"
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config represents the voxstella.yaml configuration
type Config struct {
	Mode     string         `yaml:"mode"`
	AppDir   string         `yaml:"app_dir"`
	StateDir string         `yaml:"state_dir"`
	Backend  BackendConfig  `yaml:"backend"`
	Startup  StartupConfig  `yaml:"startup"`
	Restart  RestartConfig  `yaml:"restart"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BackendConfig describes where the backend lives and how it is reached.
// Directory lists are templates; see locate.Environment.Expand.
type BackendConfig struct {
	Host                string   `yaml:"host"`
	Port                int      `yaml:"port"`
	HealthPath          string   `yaml:"health_path"`
	ExecutableName      string   `yaml:"executable_name"`
	ExecutableDirs      []string `yaml:"executable_dirs"`
	ScriptName          string   `yaml:"script_name"`
	ScriptDirs          []string `yaml:"script_dirs"`
	Interpreters        []string `yaml:"interpreters"`
	FallbackInterpreter string   `yaml:"fallback_interpreter"`
}

// StartupConfig bounds the health wait after spawn.
type StartupConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// RestartConfig controls crash recovery. MaxPerMinute 0 means unbounded.
type RestartConfig struct {
	Delay        time.Duration `yaml:"delay"`
	MaxPerMinute int           `yaml:"max_per_minute"`
}

// ShutdownConfig holds the termination grace windows.
type ShutdownConfig struct {
	Grace         time.Duration `yaml:"grace"`
	EscalateAfter time.Duration `yaml:"escalate_after"`
	FinalAfter    time.Duration `yaml:"final_after"`
}

// LoggingConfig holds log destination settings
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// Default returns the built-in configuration for the running platform.
func Default() *Config {
	return defaultFor(runtime.GOOS)
}

func defaultFor(goos string) *Config {
	exe := "horary_backend"
	fallback := "python3"
	if goos == "windows" {
		exe = "horary_backend.exe"
		fallback = "python.exe"
	}

	return &Config{
		Mode:     ModeAuto,
		StateDir: ".voxstella",
		Backend: BackendConfig{
			Host:           "127.0.0.1",
			Port:           5000,
			HealthPath:     "/api/health",
			ExecutableName: exe,
			ExecutableDirs: []string{
				"{resources}/backend",
				"{resources}/app/backend",
				"{resources}/app.asar.unpacked/backend",
				"{app_dir}/../app.asar.unpacked/backend",
				"{exec_dir}/resources/backend",
				"{exec_dir}/resources/app/backend",
				"{exec_dir}/resources/app.asar.unpacked/backend",
			},
			ScriptName: "app.py",
			ScriptDirs: []string{
				"{app_dir}/../backend",
				"{app_dir}/backend",
				"{resources}/backend",
				"{resources}/app/backend",
				"{resources}/app.asar.unpacked/backend",
				"{app_dir}/../app.asar.unpacked/backend",
				"{app_dir}/../../backend",
				"{resources}/../backend",
				"{exec_dir}/resources/backend",
				"{exec_dir}/resources/app/backend",
				"{exec_dir}/resources/app.asar.unpacked/backend",
			},
			Interpreters: []string{
				"python",
				"python3",
				"python.exe",
				`C:\Python39\python.exe`,
				`C:\Python310\python.exe`,
				`C:\Python311\python.exe`,
				`C:\Python312\python.exe`,
				"{local_app_data}/Programs/Python/Python39/python.exe",
				"{local_app_data}/Programs/Python/Python310/python.exe",
				"{local_app_data}/Programs/Python/Python311/python.exe",
				"{local_app_data}/Programs/Python/Python312/python.exe",
			},
			FallbackInterpreter: fallback,
		},
		Startup: StartupConfig{
			PollInterval: time.Second,
			Timeout:      120 * time.Second,
		},
		Restart: RestartConfig{
			Delay: 2 * time.Second,
		},
		Shutdown: ShutdownConfig{
			Grace:         5 * time.Second,
			EscalateAfter: 3 * time.Second,
			FinalAfter:    6 * time.Second,
		},
		Logging: LoggingConfig{
			Dir:   "logs",
			Level: "info",
		},
	}
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field    string
	Message  string
	Expected string
}

func (e ValidationError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("%s: %s (expected: %s)", e.Field, e.Message, e.Expected)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays VOXSTELLA_MODE and VOXSTELLA_PORT.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if mode := getenv("VOXSTELLA_MODE"); mode != "" {
		c.Mode = mode
	}
	if port := getenv("VOXSTELLA_PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid VOXSTELLA_PORT %q: %w", port, err)
		}
		c.Backend.Port = n
	}
	return nil
}

// Validate checks if the configuration has all required fields
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	switch c.Mode {
	case ModeAuto, ModeDevelopment, ModeProduction:
	default:
		errors = append(errors, ValidationError{
			Field:    "mode",
			Message:  fmt.Sprintf("invalid value: %s", c.Mode),
			Expected: "auto, development, or production",
		})
	}

	if c.Backend.Port < 1 || c.Backend.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:    "backend.port",
			Message:  fmt.Sprintf("invalid value: %d", c.Backend.Port),
			Expected: "1-65535",
		})
	}

	if c.Backend.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "backend.host",
			Message: "required field is missing",
		})
	}

	if c.Backend.ExecutableName == "" {
		errors = append(errors, ValidationError{
			Field:   "backend.executable_name",
			Message: "required field is missing",
		})
	}

	if c.Backend.ScriptName == "" {
		errors = append(errors, ValidationError{
			Field:   "backend.script_name",
			Message: "required field is missing",
		})
	}

	if c.Backend.FallbackInterpreter == "" {
		errors = append(errors, ValidationError{
			Field:   "backend.fallback_interpreter",
			Message: "required field is missing",
		})
	}

	durations := []struct {
		field string
		value time.Duration
	}{
		{"startup.poll_interval", c.Startup.PollInterval},
		{"startup.timeout", c.Startup.Timeout},
		{"restart.delay", c.Restart.Delay},
		{"shutdown.grace", c.Shutdown.Grace},
		{"shutdown.escalate_after", c.Shutdown.EscalateAfter},
		{"shutdown.final_after", c.Shutdown.FinalAfter},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, ValidationError{
				Field:    d.field,
				Message:  fmt.Sprintf("invalid value: %s", d.value),
				Expected: "positive duration",
			})
		}
	}

	if c.Shutdown.FinalAfter > 0 && c.Shutdown.FinalAfter < c.Shutdown.EscalateAfter {
		errors = append(errors, ValidationError{
			Field:    "shutdown.final_after",
			Message:  "must not be earlier than shutdown.escalate_after",
			Expected: fmt.Sprintf(">= %s", c.Shutdown.EscalateAfter),
		})
	}

	if c.Restart.MaxPerMinute < 0 {
		errors = append(errors, ValidationError{
			Field:    "restart.max_per_minute",
			Message:  fmt.Sprintf("invalid value: %d", c.Restart.MaxPerMinute),
			Expected: "0 (unbounded) or a positive count",
		})
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, ValidationError{
			Field:    "logging.level",
			Message:  fmt.Sprintf("invalid value: %s", c.Logging.Level),
			Expected: "debug, info, warn, or error",
		})
	}

	return errors
}

// HealthURL returns the backend liveness URL.
func (c *Config) HealthURL() string {
	return c.BaseURL() + c.Backend.HealthPath
}

// BaseURL returns the backend's root URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Backend.Host, c.Backend.Port)
}
