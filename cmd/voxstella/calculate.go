package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/voxstella/launcher/internal/chartclient"
	lerrors "github.com/voxstella/launcher/internal/errors"
)

func usageCalculate() {
	fmt.Fprint(stderr, `Cast a horary chart through the running backend

Usage:
  voxstella calculate --question <text> [options]

Options:
  --question <text>       The horary question (required)
  --location <place>      Where the question was asked
  --date <YYYY-MM-DD>     Chart date; implies --no-current-time
  --time <HH:MM>          Chart time
  --timezone <zone>       IANA timezone, e.g. Europe/London
  --no-current-time       Do not use the current moment
  --manual-houses <list>  Comma-separated houses, e.g. 1,7
  --ignore-radicality     Skip radicality checks
  --ignore-void-moon      Skip the void-of-course Moon check
  --ignore-combustion     Skip combustion checks
  --ignore-saturn-7th     Skip the Saturn in the 7th check
  --boost <n>             Exaltation confidence boost
  --file <path>           Read the request from a JSON file; flags override it
  --config <path>         Config file [default: voxstella.yaml]
  --port <port>           Override the backend port

Examples:
  voxstella calculate --question "Will I get the job?" --location "London, UK"
  voxstella calculate --file question.json --manual-houses 1,10
`)
}

func cmdCalculate(args []string) int {
	fs := flag.NewFlagSet("calculate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usageCalculate

	var cf configFlags
	cf.register(fs)

	var req chartclient.ChartRequest
	fs.StringVar(&req.Question, "question", "", "")
	fs.StringVar(&req.Location, "location", "", "")
	fs.StringVar(&req.Date, "date", "", "")
	fs.StringVar(&req.Time, "time", "", "")
	fs.StringVar(&req.Timezone, "timezone", "", "")
	fs.StringVar(&req.ManualHouses, "manual-houses", "", "")
	fs.BoolVar(&req.IgnoreRadicality, "ignore-radicality", false, "")
	fs.BoolVar(&req.IgnoreVoidMoon, "ignore-void-moon", false, "")
	fs.BoolVar(&req.IgnoreCombustion, "ignore-combustion", false, "")
	fs.BoolVar(&req.IgnoreSaturn7th, "ignore-saturn-7th", false, "")
	noCurrentTime := fs.Bool("no-current-time", false, "")
	boost := fs.String("boost", "", "")
	file := fs.String("file", "", "")
	showHelp := fs.Bool("help", false, "")
	showHelpShort := fs.Bool("h", false, "")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showHelp || *showHelpShort {
		usageCalculate()
		return 0
	}

	if *file != "" {
		base, err := readChartRequest(*file)
		if err != nil {
			errOut().Error(err.Error())
			return lerrors.ExitGeneralError
		}
		req = mergeChartRequest(base, req, fs)
	}

	if *boost != "" {
		v, err := strconv.ParseFloat(*boost, 64)
		if err != nil {
			errOut().Error(fmt.Sprintf("invalid --boost value %q", *boost))
			return 2
		}
		req.ExaltationConfidenceBoost = &v
	}
	if *noCurrentTime || req.Date != "" {
		f := false
		req.UseCurrentTime = &f
	}

	if req.Question == "" {
		errOut().Error("--question is required")
		usageCalculate()
		return 2
	}

	cfg, err := cf.load()
	if err != nil {
		return failed(err)
	}

	ctx, cancel := withTimeout()
	defer cancel()

	res, err := chartclient.New(cfg.BaseURL()).CalculateChart(ctx, req)
	if err != nil {
		errOut().Error(err.Error())
		return lerrors.ExitGeneralError
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, res.Raw, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(res.Raw)
	}
	fmt.Fprintln(stdout, pretty.String())
	return lerrors.ExitSuccess
}

func readChartRequest(path string) (chartclient.ChartRequest, error) {
	var req chartclient.ChartRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read request: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse request %s: %w", path, err)
	}
	return req, nil
}

// mergeChartRequest overlays the flags that were set on base.
func mergeChartRequest(base, flags chartclient.ChartRequest, fs *flag.FlagSet) chartclient.ChartRequest {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "question":
			base.Question = flags.Question
		case "location":
			base.Location = flags.Location
		case "date":
			base.Date = flags.Date
		case "time":
			base.Time = flags.Time
		case "timezone":
			base.Timezone = flags.Timezone
		case "manual-houses":
			base.ManualHouses = flags.ManualHouses
		case "ignore-radicality":
			base.IgnoreRadicality = flags.IgnoreRadicality
		case "ignore-void-moon":
			base.IgnoreVoidMoon = flags.IgnoreVoidMoon
		case "ignore-combustion":
			base.IgnoreCombustion = flags.IgnoreCombustion
		case "ignore-saturn-7th":
			base.IgnoreSaturn7th = flags.IgnoreSaturn7th
		}
	})
	return base
}
