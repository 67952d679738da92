package main

import (
	"fmt"
	"io"
	"os"

	"github.com/voxstella/launcher/internal/buildinfo"
	"github.com/voxstella/launcher/internal/console"
)

// Output destinations, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return 2
	}

	switch args[0] {
	case "--version", "-v", "version":
		return cmdVersion(args[1:])
	case "--help", "-h":
		usage()
		return 0
	case "run":
		return cmdRun(args[1:])
	case "locate":
		return cmdLocate(args[1:])
	case "check-port":
		return cmdCheckPort(args[1:])
	case "status":
		return cmdStatus(args[1:])
	case "calculate":
		return cmdCalculate(args[1:])
	case "timezone":
		return cmdTimezone(args[1:])
	case "help":
		if len(args) >= 2 {
			return cmdHelp(args[1])
		}
		usage()
		return 0
	default:
		errOut().Error(fmt.Sprintf("Unknown command: %s", args[0]))
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprint(stderr, `voxstella - Vox Stella backend launcher

Usage:
  voxstella <command> [options]

Commands:
  run           Start and supervise the Chart Compute Service
  locate        Show where the backend would be started from
  check-port    Check whether the backend port is free
  status        Show the running backend's health and version
  calculate     Cast a horary chart through the running backend
  timezone      Resolve a location's timezone
  version       Show version
  help          Show help for a command

Examples:
  voxstella run
  voxstella run --mode development
  voxstella locate --verbose
  voxstella calculate --question "Will I get the job?" --location "London, UK"

Run 'voxstella help <command>' for more information.
`)
}

func cmdHelp(command string) int {
	switch command {
	case "run":
		usageRun()
	case "locate":
		usageLocate()
	case "check-port":
		usageCheckPort()
	case "status":
		usageStatus()
	case "calculate":
		usageCalculate()
	case "timezone":
		usageTimezone()
	case "version":
		fmt.Fprintln(stderr, "Show the voxstella version.")
	default:
		errOut().Error(fmt.Sprintf("Unknown command: %s", command))
		return 2
	}
	return 0
}

func cmdVersion(args []string) int {
	fmt.Fprintln(stdout, buildinfo.Version)
	return 0
}

func out() *console.OutputFormatter {
	return console.NewOutputFormatter(stdout)
}

func errOut() *console.OutputFormatter {
	return console.NewOutputFormatter(stderr)
}
