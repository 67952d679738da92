package main

import (
	"flag"
	"fmt"

	"github.com/voxstella/launcher/internal/locate"
)

func usageLocate() {
	fmt.Fprint(stderr, `Show where the backend would be started from

Usage:
  voxstella locate [options]

Options:
  --config <path>   Config file [default: voxstella.yaml]
  --mode <mode>     auto, development or production
  --verbose         List every candidate that was probed
  --json            Output as JSON
`)
}

type locateReport struct {
	Mode            string         `json:"mode"`
	Kind            string         `json:"kind"`
	Path            string         `json:"path,omitempty"`
	InterpreterPath string         `json:"interpreter_path,omitempty"`
	ScriptPath      string         `json:"script_path,omitempty"`
	BackendDir      string         `json:"backend_dir"`
	Guessed         bool           `json:"guessed"`
	TargetExists    bool           `json:"target_exists"`
	Probes          []locate.Probe `json:"probes,omitempty"`
}

func cmdLocate(args []string) int {
	fs := flag.NewFlagSet("locate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usageLocate

	var cf configFlags
	cf.register(fs)
	verbose := fs.Bool("verbose", false, "")
	jsonOut := fs.Bool("json", false, "")
	showHelp := fs.Bool("help", false, "")
	showHelpShort := fs.Bool("h", false, "")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showHelp || *showHelpShort {
		usageLocate()
		return 0
	}

	cfg, err := cf.load()
	if err != nil {
		return failed(err)
	}
	env, err := locate.DetectEnvironment(cfg)
	if err != nil {
		return failed(err)
	}

	osfs := locate.OSFS{}
	loc := locate.NewResolver(env, cfg.Backend, osfs).Resolve()

	report := locateReport{
		Mode:            "production",
		Kind:            loc.Kind.String(),
		Path:            loc.Path,
		InterpreterPath: loc.InterpreterPath,
		ScriptPath:      loc.ScriptPath,
		BackendDir:      loc.BackendDir,
		Guessed:         loc.Guessed,
		TargetExists:    osfs.IsFile(loc.Target()),
	}
	if env.Development {
		report.Mode = "development"
	}
	if *verbose || *jsonOut {
		report.Probes = loc.Probes
	}

	if *jsonOut {
		return printJSON(report)
	}

	output := out()
	output.Field("Mode", report.Mode)
	output.Field("Kind", report.Kind)
	if loc.Kind == locate.CompiledExecutable {
		output.Field("Executable", loc.Path)
	} else {
		interp := loc.InterpreterPath
		if loc.Guessed {
			interp += " (not found, using default)"
		}
		output.Field("Interpreter", interp)
		output.Field("Script", loc.ScriptPath)
	}
	output.Field("Working dir", loc.BackendDir)

	if *verbose {
		fmt.Fprintln(output.Writer())
		output.Info("Probed:")
		for _, p := range loc.Probes {
			output.Probe(p.What+" "+p.Path, p.Found)
		}
	}

	fmt.Fprintln(output.Writer())
	if report.TargetExists {
		output.Success(fmt.Sprintf("Backend files found at %s", loc.Target()))
		return 0
	}
	output.Warning(fmt.Sprintf("Cannot find backend files at: %s", loc.Target()))
	return 0
}
