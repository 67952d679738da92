package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/voxstella/launcher/internal/buildinfo"
	"github.com/voxstella/launcher/internal/config"
	"github.com/voxstella/launcher/internal/console"
	"github.com/voxstella/launcher/internal/dialog"
	lerrors "github.com/voxstella/launcher/internal/errors"
	"github.com/voxstella/launcher/internal/locate"
	"github.com/voxstella/launcher/internal/lock"
	"github.com/voxstella/launcher/internal/logging"
	"github.com/voxstella/launcher/internal/proc"
	"github.com/voxstella/launcher/internal/supervisor"
)

// stopSlack is added to the configured shutdown windows when bounding
// the final stop.
const stopSlack = 5 * time.Second

// Seams replaced in tests.
var (
	newNotifier = func(development bool, out *console.OutputFormatter) dialog.Notifier {
		return dialog.New(development, out)
	}
	adjustSupervisor = func(*supervisor.Options) {}
	signalContext    = func() (context.Context, context.CancelFunc) {
		return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	}
)

func usageRun() {
	fmt.Fprint(stderr, `Start and supervise the Chart Compute Service

Usage:
  voxstella run [options]

Options:
  --config <path>   Config file [default: voxstella.yaml]
  --mode <mode>     auto, development or production
  --port <port>     Override the backend port
  --no-pty          Never run the backend on a pseudo-terminal

The launcher waits for SIGINT or SIGTERM, then stops the backend
gracefully and escalates to a forced kill of its process tree.
`)
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usageRun

	var cf configFlags
	cf.register(fs)
	noPTY := fs.Bool("no-pty", false, "")
	showHelp := fs.Bool("help", false, "")
	showHelpShort := fs.Bool("h", false, "")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showHelp || *showHelpShort {
		usageRun()
		return 0
	}

	output := errOut()

	cfg, err := cf.load()
	if err != nil {
		return failed(err)
	}
	env, err := locate.DetectEnvironment(cfg)
	if err != nil {
		return failed(err)
	}
	stateDir, logDir := paths(cfg, env)

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Dir:         logDir,
		Development: env.Development,
		Console:     stderr,
	})
	if err != nil {
		return failed(lerrors.NewConfigErrorWithCause("failed to set up logging", err))
	}
	defer logger.Close()

	mode := "production"
	if env.Development {
		mode = "development"
	}
	logger.Info("Vox Stella starting",
		zap.String("version", buildinfo.Version),
		zap.String("mode", mode),
		zap.String("app_dir", env.AppDir),
		zap.String("log_file", logger.FilePath()))

	lockMgr := lock.NewLockManager(filepath.Join(stateDir, lock.FileName), cfg.Backend.Port)
	if err := lockMgr.Acquire(); err != nil {
		logger.Error("failed to acquire launcher lock", zap.Error(err))
		output.Error(err.Error())
		return lerrors.ExitGeneralError
	}
	defer lockMgr.Release()

	notifier := newNotifier(env.Development, console.NewOutputFormatter(stderr))

	var backendOut, backendErr io.Writer = os.Stdout, os.Stderr
	if !env.Development {
		stdoutLines := logging.NewLineWriter(logger.Logger, "backend stdout")
		stderrLines := logging.NewLineWriter(logger.Logger, "backend stderr")
		defer stdoutLines.Flush()
		defer stderrLines.Flush()
		backendOut, backendErr = stdoutLines, stderrLines
	}

	opts := supervisor.Options{
		Config:   cfg,
		Env:      env,
		Notifier: notifier,
		Logger:   logger.Logger,
		Stdout:   backendOut,
		Stderr:   backendErr,
		Console:  env.Development && !*noPTY && console.IsTerminal(os.Stdout),
	}
	adjustSupervisor(&opts)
	sup, err := supervisor.New(opts)
	if err != nil {
		return failed(err)
	}

	ctx, stop := signalContext()
	defer stop()

	var spinner *console.Spinner
	if !env.Development {
		spinner = console.NewSpinner("Waiting for backend", cfg.Startup.Timeout, stderr)
		spinner.Start()
	}
	_, err = sup.Start(ctx)
	if spinner != nil {
		spinner.Stop("")
	}

	switch {
	case err == nil:
		output.Success(fmt.Sprintf("Backend is ready at %s (pid %d)", cfg.BaseURL(), sup.Pid()))
		if err := lockMgr.SetBackendPID(sup.Pid()); err != nil {
			logger.Warn("failed to record backend pid", zap.Error(err))
		}
	case ctx.Err() != nil:
		// Interrupted while starting
	case !env.Development:
		logger.Error("backend failed to start", zap.Error(err))
		if dErr := notifier.ShowError("Startup Error", "Failed to start the backend service. The application will exit."); dErr != nil {
			logger.Warn("failed to show error dialog", zap.Error(dErr))
		}
		stopBackend(sup, cfg, logger.Logger)
		output.Error(err.Error())
		return lerrors.GetExitCode(err)
	default:
		logger.Error("backend failed to start", zap.Error(err))
		output.Warning(fmt.Sprintf("Backend failed to start: %v", err))
		output.Info("Continuing in development mode; press Ctrl+C to exit.")
	}

	<-ctx.Done()
	stop()
	logger.Info("shutdown requested")

	if err := stopBackend(sup, cfg, logger.Logger); err != nil {
		output.Error(err.Error())
		return lerrors.ExitGeneralError
	}
	return lerrors.ExitSuccess
}

// stopBackend stops the supervisor within the configured windows.
func stopBackend(sup *supervisor.Supervisor, cfg *config.Config, logger *zap.Logger) error {
	bound := cfg.Shutdown.Grace
	if cfg.Shutdown.FinalAfter > bound {
		bound = cfg.Shutdown.FinalAfter
	}
	ctx, cancel := context.WithTimeout(context.Background(), bound+stopSlack)
	defer cancel()

	err := sup.Stop(ctx, proc.Graceful)
	switch {
	case err == nil:
		logger.Info("backend stopped")
	case stderrors.Is(err, context.DeadlineExceeded):
		logger.Error("backend did not exit before the shutdown deadline", zap.Int("pid", sup.Pid()))
	default:
		logger.Error("failed to stop backend", zap.Error(err))
	}
	return err
}
