package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"strings"

	"github.com/voxstella/launcher/internal/chartclient"
	lerrors "github.com/voxstella/launcher/internal/errors"
)

func usageTimezone() {
	fmt.Fprint(stderr, `Resolve a location's timezone

Usage:
  voxstella timezone [options] <location>

Options:
  --current-time    Also show the current local time there
  --json            Output as JSON
  --config <path>   Config file [default: voxstella.yaml]
  --port <port>     Override the backend port

Example:
  voxstella timezone --current-time "Lisbon, Portugal"
`)
}

func cmdTimezone(args []string) int {
	fs := flag.NewFlagSet("timezone", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usageTimezone

	var cf configFlags
	cf.register(fs)
	currentTime := fs.Bool("current-time", false, "")
	jsonOut := fs.Bool("json", false, "")
	showHelp := fs.Bool("help", false, "")
	showHelpShort := fs.Bool("h", false, "")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showHelp || *showHelpShort {
		usageTimezone()
		return 0
	}

	location := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if location == "" {
		errOut().Error("location is required")
		usageTimezone()
		return 2
	}

	cfg, err := cf.load()
	if err != nil {
		return failed(err)
	}

	ctx, cancel := withTimeout()
	defer cancel()
	client := chartclient.New(cfg.BaseURL())

	var result any
	if *currentTime {
		result, err = client.CurrentTime(ctx, location)
	} else {
		result, err = client.Timezone(ctx, location)
	}
	if err != nil {
		var apiErr *chartclient.APIError
		if stderrors.As(err, &apiErr) && apiErr.NotFound() {
			errOut().Error(fmt.Sprintf("Location not found: %s", location))
			return lerrors.ExitGeneralError
		}
		errOut().Error(err.Error())
		return lerrors.ExitGeneralError
	}

	if *jsonOut {
		return printJSON(result)
	}

	output := out()
	switch r := result.(type) {
	case *chartclient.CurrentTimeResponse:
		output.Field("Location", r.Location)
		output.Field("Coordinates", fmt.Sprintf("%.4f, %.4f", r.Latitude, r.Longitude))
		output.Field("Timezone", r.Timezone)
		output.Field("Local time", r.LocalTime)
		output.Field("UTC time", r.UTCTime)
		output.Field("UTC offset", r.UTCOffset)
	case *chartclient.TimezoneResponse:
		output.Field("Location", r.Location)
		output.Field("Coordinates", fmt.Sprintf("%.4f, %.4f", r.Latitude, r.Longitude))
		output.Field("Timezone", r.Timezone)
	}
	return lerrors.ExitSuccess
}
