package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/voxstella/launcher/internal/config"
	lerrors "github.com/voxstella/launcher/internal/errors"
	"github.com/voxstella/launcher/internal/locate"
)

// requestTimeout bounds one-shot commands that talk to the backend.
const requestTimeout = 30 * time.Second

// configFlags are shared by every command that needs configuration.
type configFlags struct {
	path string
	mode string
	port int
}

func (c *configFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.path, "config", config.DefaultPath, "")
	fs.StringVar(&c.mode, "mode", "", "")
	fs.IntVar(&c.port, "port", 0, "")
}

// load reads the config file, then the environment, then flag overrides.
func (c *configFlags) load() (*config.Config, error) {
	cfg, err := config.Load(c.path)
	if err != nil {
		return nil, lerrors.NewConfigErrorWithCause("failed to load config", err)
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, lerrors.NewConfigErrorWithCause("invalid environment", err)
	}
	if c.mode != "" {
		cfg.Mode = c.mode
	}
	if c.port != 0 {
		cfg.Backend.Port = c.port
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, lerrors.NewConfigError("invalid configuration:\n  " + strings.Join(msgs, "\n  "))
	}
	return cfg, nil
}

// paths resolves the state and log directories. Relative state dirs live
// under the app dir; relative log dirs under the state dir.
func paths(cfg *config.Config, env locate.Environment) (stateDir, logDir string) {
	stateDir = cfg.StateDir
	if !filepath.IsAbs(stateDir) {
		stateDir = filepath.Join(env.AppDir, stateDir)
	}
	logDir = cfg.Logging.Dir
	if logDir != "" && !filepath.IsAbs(logDir) {
		logDir = filepath.Join(stateDir, logDir)
	}
	return stateDir, logDir
}

func printJSON(v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		errOut().Error(fmt.Sprintf("Failed to write JSON: %v", err))
		return lerrors.ExitGeneralError
	}
	return lerrors.ExitSuccess
}

func failed(err error) int {
	errOut().Error(err.Error())
	return lerrors.GetExitCode(err)
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
