// Package locate resolves where the Chart Compute Service lives on disk.
//
// Resolution probes ordered candidate lists taken from configuration and
// returns the first existing match. Nothing is re-resolved once a backend
// process has been started from the returned location.
package locate

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/voxstella/launcher/internal/config"
)

// Kind tells how the backend is launched.
type Kind int

const (
	CompiledExecutable Kind = iota + 1
	InterpretedScript
)

func (k Kind) String() string {
	switch k {
	case CompiledExecutable:
		return "compiled-executable"
	case InterpretedScript:
		return "interpreted-script"
	default:
		return "unknown"
	}
}

// BackendLocation is the resolved launch target. For CompiledExecutable only
// Path is set; for InterpretedScript InterpreterPath and ScriptPath are.
type BackendLocation struct {
	Kind            Kind
	Path            string
	InterpreterPath string
	ScriptPath      string
	// BackendDir is the backend's own directory: the child's working
	// directory and its module search path.
	BackendDir string
	// Guessed is set when no interpreter was found and the platform
	// default name was returned instead.
	Guessed bool
	// Probes lists every candidate checked, in order.
	Probes []Probe
}

// Probe records one candidate check.
type Probe struct {
	What  string `json:"what"`
	Path  string `json:"path"`
	Found bool   `json:"found"`
}

// Command returns the program and arguments to spawn.
func (l BackendLocation) Command() (string, []string) {
	if l.Kind == CompiledExecutable {
		return l.Path, nil
	}
	return l.InterpreterPath, []string{l.ScriptPath}
}

// Target is the file that must exist before spawning.
func (l BackendLocation) Target() string {
	if l.Kind == CompiledExecutable {
		return l.Path
	}
	return l.ScriptPath
}

func (l BackendLocation) String() string {
	if l.Kind == CompiledExecutable {
		return fmt.Sprintf("%s %s", l.Kind, l.Path)
	}
	return fmt.Sprintf("%s %s %s", l.Kind, l.InterpreterPath, l.ScriptPath)
}

// Environment is the ambient state resolution depends on.
type Environment struct {
	Development  bool
	GOOS         string
	ExecDir      string
	AppDir       string
	ResourcesDir string
	LocalAppData string
}

// DetectEnvironment builds an Environment for the running launcher.
//
// In auto mode the launcher is considered packaged (production) when a
// resources directory sits next to its executable.
func DetectEnvironment(cfg *config.Config) (Environment, error) {
	exe, err := os.Executable()
	if err != nil {
		return Environment{}, fmt.Errorf("failed to locate launcher executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	execDir := filepath.Dir(exe)
	resources := filepath.Join(execDir, "resources")

	dev := false
	switch cfg.Mode {
	case config.ModeDevelopment:
		dev = true
	case config.ModeProduction:
		dev = false
	default:
		dev = !isDir(resources)
	}

	appDir := cfg.AppDir
	if appDir == "" {
		if dev {
			if wd, err := os.Getwd(); err == nil {
				appDir = wd
			}
		}
		if appDir == "" {
			appDir = execDir
		}
	}

	return Environment{
		Development:  dev,
		GOOS:         runtime.GOOS,
		ExecDir:      execDir,
		AppDir:       appDir,
		ResourcesDir: resources,
		LocalAppData: os.Getenv("LOCALAPPDATA"),
	}, nil
}

// Expand substitutes {resources}, {exec_dir}, {app_dir} and {local_app_data}.
// It reports false when the template references a variable that is empty,
// so such candidates are skipped instead of turning into relative paths.
func (e Environment) Expand(tmpl string) (string, bool) {
	vars := []struct{ key, value string }{
		{"{resources}", e.ResourcesDir},
		{"{exec_dir}", e.ExecDir},
		{"{app_dir}", e.AppDir},
		{"{local_app_data}", e.LocalAppData},
	}
	out := tmpl
	for _, v := range vars {
		if !strings.Contains(out, v.key) {
			continue
		}
		if v.value == "" {
			return "", false
		}
		out = strings.ReplaceAll(out, v.key, filepath.ToSlash(v.value))
	}
	if isBareName(out) {
		return out, true
	}
	return filepath.Clean(filepath.FromSlash(out)), true
}

// FS is the filesystem view used while probing.
type FS interface {
	IsFile(path string) bool
	LookPath(name string) (string, error)
}

// OSFS probes the real filesystem.
type OSFS struct{}

func (OSFS) IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (OSFS) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Resolver finds the backend for one Environment.
type Resolver struct {
	env Environment
	cfg config.BackendConfig
	fs  FS
}

// NewResolver creates a Resolver. A nil fs probes the real filesystem.
func NewResolver(env Environment, cfg config.BackendConfig, fs FS) *Resolver {
	if fs == nil {
		fs = OSFS{}
	}
	return &Resolver{env: env, cfg: cfg, fs: fs}
}

// Resolve returns the backend location. It never fails: when nothing is
// found it falls back to the platform interpreter name and lets the spawn
// attempt report the error.
func (r *Resolver) Resolve() BackendLocation {
	var probes []Probe

	if !r.env.Development {
		for _, tmpl := range r.cfg.ExecutableDirs {
			dir, ok := r.env.Expand(tmpl)
			if !ok {
				continue
			}
			candidate := filepath.Join(dir, r.cfg.ExecutableName)
			found := r.fs.IsFile(candidate)
			probes = append(probes, Probe{What: "executable", Path: candidate, Found: found})
			if found {
				return BackendLocation{
					Kind:       CompiledExecutable,
					Path:       candidate,
					BackendDir: dir,
					Probes:     probes,
				}
			}
		}
	}

	interpreter, guessed, ip := r.findInterpreter()
	probes = append(probes, ip...)

	backendDir, sp := r.findScriptDir()
	probes = append(probes, sp...)

	return BackendLocation{
		Kind:            InterpretedScript,
		InterpreterPath: interpreter,
		ScriptPath:      filepath.Join(backendDir, r.cfg.ScriptName),
		BackendDir:      backendDir,
		Guessed:         guessed,
		Probes:          probes,
	}
}

func (r *Resolver) findInterpreter() (string, bool, []Probe) {
	var probes []Probe
	for _, tmpl := range r.cfg.Interpreters {
		candidate, ok := r.env.Expand(tmpl)
		if !ok {
			continue
		}
		if isBareName(candidate) {
			if path, err := r.fs.LookPath(candidate); err == nil {
				probes = append(probes, Probe{What: "interpreter", Path: candidate, Found: true})
				return path, false, probes
			}
			probes = append(probes, Probe{What: "interpreter", Path: candidate})
			continue
		}
		found := r.fs.IsFile(candidate)
		probes = append(probes, Probe{What: "interpreter", Path: candidate, Found: found})
		if found {
			return candidate, false, probes
		}
	}
	return r.cfg.FallbackInterpreter, true, probes
}

func (r *Resolver) findScriptDir() (string, []Probe) {
	var probes []Probe
	for _, tmpl := range r.cfg.ScriptDirs {
		dir, ok := r.env.Expand(tmpl)
		if !ok {
			continue
		}
		script := filepath.Join(dir, r.cfg.ScriptName)
		found := r.fs.IsFile(script)
		probes = append(probes, Probe{What: "script", Path: script, Found: found})
		if found {
			return dir, probes
		}
	}

	if r.env.Development {
		return filepath.Clean(filepath.Join(r.env.AppDir, "..", "backend")), probes
	}
	return filepath.Join(r.env.ResourcesDir, "backend"), probes
}

func isBareName(name string) bool {
	return !strings.ContainsAny(name, `/\`)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
