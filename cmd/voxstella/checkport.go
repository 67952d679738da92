package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	lerrors "github.com/voxstella/launcher/internal/errors"
	"github.com/voxstella/launcher/internal/netcheck"
)

func usageCheckPort() {
	fmt.Fprint(stderr, `Check whether the backend port is free

Usage:
  voxstella check-port [options]

Options:
  --config <path>   Config file [default: voxstella.yaml]
  --port <port>     Port to check instead of the configured one
  --json            Output as JSON

Exits with status 3 when the port is in use.
`)
}

func cmdCheckPort(args []string) int {
	fs := flag.NewFlagSet("check-port", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usageCheckPort

	var cf configFlags
	cf.register(fs)
	jsonOut := fs.Bool("json", false, "")
	showHelp := fs.Bool("help", false, "")
	showHelpShort := fs.Bool("h", false, "")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showHelp || *showHelpShort {
		usageCheckPort()
		return 0
	}

	cfg, err := cf.load()
	if err != nil {
		return failed(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	free := netcheck.PortAvailable(ctx, cfg.Backend.Host, cfg.Backend.Port)

	code := lerrors.ExitSuccess
	if !free {
		code = lerrors.ExitPortInUse
	}

	if *jsonOut {
		if rc := printJSON(map[string]any{
			"host":      cfg.Backend.Host,
			"port":      cfg.Backend.Port,
			"available": free,
		}); rc != 0 {
			return rc
		}
		return code
	}

	output := out()
	if free {
		output.Success(fmt.Sprintf("Port %d is available", cfg.Backend.Port))
	} else {
		output.Error(fmt.Sprintf("Port %d is already in use", cfg.Backend.Port))
	}
	return code
}
