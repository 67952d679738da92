package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/voxstella/launcher/internal/chartclient"
	lerrors "github.com/voxstella/launcher/internal/errors"
	"github.com/voxstella/launcher/internal/locate"
	"github.com/voxstella/launcher/internal/lock"
)

func usageStatus() {
	fmt.Fprint(stderr, `Show the running backend's health and version

Usage:
  voxstella status [options]

Options:
  --config <path>   Config file [default: voxstella.yaml]
  --port <port>     Override the backend port
  --json            Output as JSON
`)
}

type statusReport struct {
	URL       string                       `json:"url"`
	Reachable bool                         `json:"reachable"`
	Error     string                       `json:"error,omitempty"`
	Health    *chartclient.HealthResponse  `json:"health,omitempty"`
	Version   *chartclient.VersionResponse `json:"version,omitempty"`
	Launcher  *lock.LockInfo               `json:"launcher,omitempty"`
}

func cmdStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usageStatus

	var cf configFlags
	cf.register(fs)
	jsonOut := fs.Bool("json", false, "")
	showHelp := fs.Bool("help", false, "")
	showHelpShort := fs.Bool("h", false, "")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showHelp || *showHelpShort {
		usageStatus()
		return 0
	}

	cfg, err := cf.load()
	if err != nil {
		return failed(err)
	}

	report := statusReport{URL: cfg.BaseURL()}

	if env, err := locate.DetectEnvironment(cfg); err == nil {
		stateDir, _ := paths(cfg, env)
		info, err := lock.Read(filepath.Join(stateDir, lock.FileName))
		if err == nil && lock.ProcessAlive(info.PID) {
			report.Launcher = info
		}
	}

	ctx, cancel := withTimeout()
	defer cancel()

	st, err := chartclient.New(cfg.BaseURL()).Status(ctx)
	report.Health = st.Health
	report.Version = st.Version
	report.Reachable = st.Health != nil || st.Version != nil
	if err != nil {
		report.Error = err.Error()
	}

	code := lerrors.ExitSuccess
	if err != nil {
		code = lerrors.ExitGeneralError
	}

	if *jsonOut {
		if rc := printJSON(report); rc != 0 {
			return rc
		}
		return code
	}

	output := out()
	output.Field("URL", report.URL)
	if report.Launcher != nil {
		l := report.Launcher
		output.Field("Launcher", fmt.Sprintf("pid %d since %s", l.PID, l.StartTime.Format("2006-01-02 15:04:05")))
		if l.BackendPID > 0 {
			output.Field("Backend pid", fmt.Sprintf("%d", l.BackendPID))
		}
	}

	if !report.Reachable {
		output.Error(fmt.Sprintf("Backend is not reachable: %s", report.Error))
		return code
	}

	if h := report.Health; h != nil {
		status := h.Status
		if h.Healthy() {
			status = output.Green(status)
		} else {
			status = output.Red(status)
		}
		output.Field("Health", status)
		if h.Version != "" {
			output.Field("Service version", h.Version)
		}
		names := make([]string, 0, len(h.Services))
		for name := range h.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			svc := h.Services[name]
			line := svc.Status
			if svc.Error != "" {
				line += " (" + svc.Error + ")"
			}
			output.Field("  "+name, line)
		}
	}
	if v := report.Version; v != nil {
		output.Field("API version", v.APIVersion)
		output.Field("Engine version", v.EngineVersion)
		if len(v.Features) > 0 {
			output.Field("Features", strings.Join(v.Features, ", "))
		}
	}

	var apiErr *chartclient.APIError
	if stderrors.As(err, &apiErr) {
		output.Warning(apiErr.Error())
	} else if err != nil {
		errOut().Error(err.Error())
	}
	return code
}
