// Package supervisor owns the lifecycle of the single backend process.
//
// A Supervisor holds at most one process handle. Start spawns the backend
// and waits for its health endpoint; the exit observer delivers an
// ExitEvent which clears the handle and, unless the launcher is quitting,
// schedules one restart after an abnormal exit.
package supervisor

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/voxstella/launcher/internal/config"
	"github.com/voxstella/launcher/internal/errors"
	"github.com/voxstella/launcher/internal/health"
	"github.com/voxstella/launcher/internal/locate"
	"github.com/voxstella/launcher/internal/netcheck"
	"github.com/voxstella/launcher/internal/proc"
)

// ErrQuitting is returned by Start once shutdown has begun.
var ErrQuitting = stderrors.New("supervisor is shutting down")

// dialogTitle is used for every user-facing backend error.
const dialogTitle = "Backend Error"

// abandonTimeout bounds the cleanup of a child that failed to become ready.
const abandonTimeout = 15 * time.Second

// Outcome is the result of a successful Start call.
type Outcome int

const (
	Started Outcome = iota + 1
	AlreadyRunning
)

func (o Outcome) String() string {
	switch o {
	case Started:
		return "started"
	case AlreadyRunning:
		return "already-running"
	default:
		return "unknown"
	}
}

// Notifier surfaces blocking errors to the user.
type Notifier interface {
	ShowError(title, message string) error
}

// Resolver finds the backend on disk.
type Resolver interface {
	Resolve() locate.BackendLocation
}

// Timer is a scheduled restart.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func timeAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a Supervisor. Only Config is required.
type Options struct {
	Config *config.Config
	Env    locate.Environment

	Resolver   Resolver
	FileExists func(path string) bool
	Launcher   proc.Launcher
	Terminator proc.Terminator
	Prober     health.Prober
	PortCheck  func(ctx context.Context, host string, port int) bool
	Notifier   Notifier
	Logger     *zap.Logger
	AfterFunc  AfterFunc

	// Stdout and Stderr receive the backend's output.
	Stdout io.Writer
	Stderr io.Writer
	// Console runs the backend on a pseudo-terminal when available.
	Console bool
}

// ExitEvent is delivered once per backend process.
type ExitEvent struct {
	Generation uint64
	Status     proc.ExitStatus
}

// Transition describes what an ExitEvent did to the supervisor state.
type Transition struct {
	// Cleared is set when the event belonged to the current handle.
	Cleared bool
	// RestartScheduled is set when a restart timer was armed.
	RestartScheduled bool
	// RestartSuppressed is set when the restart budget was exhausted.
	RestartSuppressed bool
}

type handle struct {
	proc      proc.Process
	gen       uint64
	location  locate.BackendLocation
	abandoned bool
}

// Supervisor manages one backend process.
type Supervisor struct {
	cfg        *config.Config
	env        locate.Environment
	resolver   Resolver
	fileExists func(string) bool
	launcher   proc.Launcher
	terminator proc.Terminator
	prober     health.Prober
	portCheck  func(ctx context.Context, host string, port int) bool
	notifier   Notifier
	logger     *zap.Logger
	afterFunc  AfterFunc
	limiter    *rate.Limiter
	stdout     io.Writer
	stderr     io.Writer
	console    bool

	mu       sync.Mutex
	handle   *handle
	starting bool
	quitting bool
	gen      uint64
	restarts int
	pending  Timer
	location *locate.BackendLocation
	lastExit *proc.ExitStatus
}

// New creates a Supervisor, filling unset collaborators with the
// production implementations.
func New(opts Options) (*Supervisor, error) {
	if opts.Config == nil {
		return nil, errors.NewConfigError("supervisor requires a config")
	}
	cfg := opts.Config

	s := &Supervisor{
		cfg:        cfg,
		env:        opts.Env,
		resolver:   opts.Resolver,
		fileExists: opts.FileExists,
		launcher:   opts.Launcher,
		terminator: opts.Terminator,
		prober:     opts.Prober,
		portCheck:  opts.PortCheck,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		afterFunc:  opts.AfterFunc,
		stdout:     opts.Stdout,
		stderr:     opts.Stderr,
		console:    opts.Console,
	}

	if s.resolver == nil {
		s.resolver = locate.NewResolver(opts.Env, cfg.Backend, nil)
	}
	if s.fileExists == nil {
		s.fileExists = locate.OSFS{}.IsFile
	}
	if s.launcher == nil {
		s.launcher = proc.NewExecLauncher()
	}
	if s.terminator == nil {
		goos := opts.Env.GOOS
		if goos == "" {
			goos = runtime.GOOS
		}
		s.terminator = proc.NewTerminator(goos, cfg.Shutdown)
	}
	if s.prober == nil {
		s.prober = health.NewHTTPProber(cfg.HealthURL(), nil)
	}
	if s.portCheck == nil {
		s.portCheck = netcheck.PortAvailable
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.afterFunc == nil {
		s.afterFunc = timeAfterFunc
	}
	if n := cfg.Restart.MaxPerMinute; n > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}

	return s, nil
}

// Start brings the backend up. It returns AlreadyRunning without side
// effects while a handle is held or another start is in flight.
func (s *Supervisor) Start(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.quitting {
		s.mu.Unlock()
		return 0, ErrQuitting
	}
	if s.handle != nil || s.starting {
		s.mu.Unlock()
		s.logger.Debug("backend start skipped, already running")
		return AlreadyRunning, nil
	}
	s.starting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
	}()

	host, port := s.cfg.Backend.Host, s.cfg.Backend.Port
	if !s.portCheck(ctx, host, port) {
		s.logger.Error("backend port already in use", zap.String("host", host), zap.Int("port", port))
		return 0, errors.NewPortInUse(port)
	}

	loc := s.resolve()
	target := loc.Target()
	if !s.fileExists(target) {
		s.logger.Error("backend files missing",
			zap.String("kind", loc.Kind.String()),
			zap.String("path", target))
		what := "backend files"
		if loc.Kind == locate.CompiledExecutable {
			what = "backend executable"
		}
		s.surface(fmt.Sprintf("Cannot find %s at:\n%s\n\nPlease ensure the application was built correctly.", what, target))
		return 0, errors.NewBackendFilesMissing(target, nil)
	}

	h, err := s.spawn(loc)
	if err != nil {
		if stderrors.Is(err, ErrQuitting) {
			return 0, err
		}
		s.logger.Error("backend spawn failed", zap.Error(err))
		s.surface(fmt.Sprintf("Failed to start backend: %v", stderrors.Unwrap(err)))
		return 0, err
	}

	return s.waitReady(ctx, h)
}

func (s *Supervisor) resolve() locate.BackendLocation {
	s.mu.Lock()
	cached := s.location
	s.mu.Unlock()
	if cached != nil {
		return *cached
	}

	loc := s.resolver.Resolve()
	for _, p := range loc.Probes {
		s.logger.Debug("backend probe",
			zap.String("what", p.What),
			zap.String("path", p.Path),
			zap.Bool("found", p.Found))
	}
	if loc.Guessed {
		s.logger.Warn("no interpreter found, using fallback", zap.String("interpreter", loc.InterpreterPath))
	}
	return loc
}

// spawn launches the backend and stores its handle. The lock is held
// across Launch so the exit observer, which runs on its own goroutine,
// always sees the stored handle.
func (s *Supervisor) spawn(loc locate.BackendLocation) (*handle, error) {
	command, args := loc.Command()
	spec := proc.Spec{
		Command: command,
		Args:    args,
		Dir:     loc.BackendDir,
		Env:     s.childEnv(loc),
		Console: s.console,
		Stdout:  s.stdout,
		Stderr:  s.stderr,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quitting {
		return nil, ErrQuitting
	}

	s.gen++
	gen := s.gen
	p, err := s.launcher.Launch(spec, func(_ proc.Process, status proc.ExitStatus) {
		s.HandleExit(ExitEvent{Generation: gen, Status: status})
	})
	if err != nil {
		return nil, errors.NewSpawnError(command, err)
	}

	h := &handle{proc: p, gen: gen, location: loc}
	s.handle = h
	s.location = &loc

	s.logger.Info("backend started",
		zap.Int("pid", p.Pid()),
		zap.String("kind", loc.Kind.String()),
		zap.String("command", command),
		zap.Strings("args", args),
		zap.String("dir", loc.BackendDir),
		zap.Bool("development", s.env.Development))
	return h, nil
}

func (s *Supervisor) childEnv(loc locate.BackendLocation) []string {
	mode := "production"
	if s.env.Development {
		mode = "development"
	}
	return []string{
		"FLASK_ENV=" + mode,
		"PYTHONPATH=" + loc.BackendDir,
		"PYTHONUNBUFFERED=1",
	}
}

// waitReady polls the health endpoint. The wait ends early when the child
// exits. A child that never becomes ready is returned as a timeout at once
// and terminated in the background; its exit observer clears the handle
// without scheduling a restart.
func (s *Supervisor) waitReady(ctx context.Context, h *handle) (Outcome, error) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-h.proc.Done():
			cancel()
		case <-waitCtx.Done():
		}
	}()

	interval, timeout := s.cfg.Startup.PollInterval, s.cfg.Startup.Timeout
	res, err := health.WaitReady(waitCtx, s.prober, interval, timeout)
	if err == nil {
		s.logger.Info("backend is ready",
			zap.Int("pid", h.proc.Pid()),
			zap.Int("attempts", res.Attempts),
			zap.Duration("elapsed", res.Elapsed))
		return Started, nil
	}

	if !s.markAbandoned(h) {
		<-h.proc.Done()
		msg := "backend exited during startup"
		if st := s.LastExit(); st != nil {
			msg = fmt.Sprintf("backend exited during startup: %s", st)
		}
		s.logger.Error(msg, zap.Int("attempts", res.Attempts))
		return 0, errors.New(errors.KindAbnormalExit, msg)
	}

	go s.abandon(h)

	if stderrors.Is(err, health.ErrTimeout) {
		s.logger.Error("backend failed to start within timeout",
			zap.Duration("timeout", timeout),
			zap.Int("attempts", res.Attempts),
			zap.NamedError("last_error", res.LastError))
		return 0, errors.NewStartupTimeout(
			fmt.Sprintf("backend failed to start within %s", timeout), res.LastError)
	}
	return 0, err
}

// markAbandoned flags h so its exit schedules no restart. It reports false
// when h already exited and its exit observer has run.
func (s *Supervisor) markAbandoned(h *handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != h {
		return false
	}
	h.abandoned = true
	return true
}

// abandon terminates an unready child in the background. The exit
// observer clears its handle.
func (s *Supervisor) abandon(h *handle) {
	ctx, cancel := context.WithTimeout(context.Background(), abandonTimeout)
	defer cancel()
	if err := s.terminator.Terminate(ctx, h.proc, proc.Graceful); err != nil {
		s.logger.Warn("failed to terminate unready backend", zap.Int("pid", h.proc.Pid()), zap.Error(err))
	}
	select {
	case <-h.proc.Done():
	case <-ctx.Done():
	}
}

// HandleExit applies an exit event. Events from a previous generation only
// update LastExit.
func (s *Supervisor) HandleExit(ev ExitEvent) Transition {
	var tr Transition

	s.mu.Lock()
	status := ev.Status
	s.lastExit = &status

	h := s.handle
	current := h != nil && h.gen == ev.Generation
	if current {
		s.handle = nil
		tr.Cleared = true
	}

	restart := current && !h.abandoned && !s.quitting && status.Abnormal()
	if restart && s.limiter != nil && !s.limiter.Allow() {
		restart = false
		tr.RestartSuppressed = true
	}
	if restart && s.pending == nil {
		s.pending = s.afterFunc(s.cfg.Restart.Delay, s.restart)
		tr.RestartScheduled = true
	}
	quitting := s.quitting
	s.mu.Unlock()

	s.logger.Info("backend process exited",
		zap.Int("pid", status.Pid),
		zap.Int("code", status.Code),
		zap.String("signal", status.Signal),
		zap.NamedError("wait_error", status.Err),
		zap.Bool("current", current),
		zap.Bool("quitting", quitting))

	switch {
	case tr.RestartScheduled:
		s.logger.Info("backend restart scheduled", zap.Duration("delay", s.cfg.Restart.Delay))
	case tr.RestartSuppressed:
		err := errors.NewAbnormalExit(fmt.Sprintf(
			"backend keeps crashing: more than %d restarts per minute", s.cfg.Restart.MaxPerMinute))
		s.logger.Error("backend restart suppressed", zap.Error(err))
		s.surface(err.Error())
	}
	return tr
}

func (s *Supervisor) restart() {
	s.mu.Lock()
	s.pending = nil
	if s.quitting {
		s.mu.Unlock()
		return
	}
	s.restarts++
	n := s.restarts
	s.mu.Unlock()

	s.logger.Info("restarting backend", zap.Int("restart", n))
	if _, err := s.Start(context.Background()); err != nil && !stderrors.Is(err, ErrQuitting) {
		s.logger.Error("backend restart failed", zap.Error(err))
	}
}

// Stop marks the supervisor as quitting and terminates the backend. A
// failed graceful attempt falls back to an immediate one.
func (s *Supervisor) Stop(ctx context.Context, mode proc.Mode) error {
	s.Quit()

	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	if h == nil {
		return nil
	}

	s.logger.Info("terminating backend process",
		zap.Int("pid", h.proc.Pid()),
		zap.String("mode", mode.String()),
		zap.String("terminator", s.terminator.Name()))

	err := s.terminator.Terminate(ctx, h.proc, mode)
	if err != nil && mode == proc.Graceful {
		s.logger.Warn("graceful termination failed, killing immediately", zap.Error(err))
		err = s.terminator.Terminate(ctx, h.proc, proc.Immediate)
	}
	if err != nil {
		return fmt.Errorf("failed to stop backend: %w", err)
	}

	select {
	case <-h.proc.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Quit marks the supervisor as shutting down and cancels a pending
// restart. Calling it more than once has no further effect.
func (s *Supervisor) Quit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quitting = true
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

// Quitting reports whether shutdown has begun.
func (s *Supervisor) Quitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quitting
}

// Running reports whether a backend handle is held.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// Pid returns the running backend's pid, or 0.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.proc.Pid()
}

// Restarts returns the number of crash restarts attempted.
func (s *Supervisor) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// Location returns the location the backend was started from.
func (s *Supervisor) Location() (locate.BackendLocation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return locate.BackendLocation{}, false
	}
	return *s.location, true
}

// LastExit returns the most recent exit status, or nil.
func (s *Supervisor) LastExit() *proc.ExitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastExit == nil {
		return nil
	}
	st := *s.lastExit
	return &st
}

// surface shows message to the user outside development mode.
func (s *Supervisor) surface(message string) {
	if s.env.Development {
		return
	}
	if err := s.notifier.ShowError(dialogTitle, message); err != nil {
		s.logger.Warn("failed to show error dialog", zap.Error(err))
	}
}

type nopNotifier struct{}

func (nopNotifier) ShowError(string, string) error { return nil }
