// Package errors provides the launcher's error taxonomy and exit codes.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Exit codes for different error categories.
const (
	ExitSuccess             = 0
	ExitGeneralError        = 1
	ExitConfigError         = 2
	ExitPortInUse           = 3
	ExitBackendFilesMissing = 4
	ExitStartupTimeout      = 5
	ExitSpawnError          = 6
	ExitAbnormalExit        = 7
)

// Kind classifies a launcher failure.
type Kind int

const (
	KindGeneral Kind = iota
	KindConfig
	KindPortInUse
	KindBackendFilesMissing
	KindStartupTimeout
	KindSpawnError
	KindAbnormalExit
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindPortInUse:
		return "port_in_use"
	case KindBackendFilesMissing:
		return "backend_files_missing"
	case KindStartupTimeout:
		return "startup_timeout"
	case KindSpawnError:
		return "spawn_error"
	case KindAbnormalExit:
		return "abnormal_exit"
	default:
		return "general"
	}
}

// ExitCode returns the process exit code associated with the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfig:
		return ExitConfigError
	case KindPortInUse:
		return ExitPortInUse
	case KindBackendFilesMissing:
		return ExitBackendFilesMissing
	case KindStartupTimeout:
		return ExitStartupTimeout
	case KindSpawnError:
		return ExitSpawnError
	case KindAbnormalExit:
		return ExitAbnormalExit
	default:
		return ExitGeneralError
	}
}

// LaunchError is the base error type for all launcher-specific errors.
type LaunchError struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error returns the error message, including the cause if present.
func (e *LaunchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error.
func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// Is matches another *LaunchError of the same kind, so sentinel
// comparisons like errors.Is(err, &LaunchError{Kind: KindPortInUse}) work.
func (e *LaunchError) Is(target error) bool {
	t, ok := target.(*LaunchError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New creates a LaunchError of the given kind.
func New(kind Kind, msg string) *LaunchError {
	return &LaunchError{Kind: kind, Message: msg}
}

// Wrap creates a LaunchError of the given kind with an underlying cause.
func Wrap(kind Kind, msg string, cause error) *LaunchError {
	return &LaunchError{Kind: kind, Message: msg, Cause: cause}
}

// NewConfigError creates a new configuration error.
func NewConfigError(msg string) *LaunchError {
	return New(KindConfig, msg)
}

// NewConfigErrorWithCause creates a new configuration error with an underlying cause.
func NewConfigErrorWithCause(msg string, cause error) *LaunchError {
	return Wrap(KindConfig, msg, cause)
}

// NewPortInUse reports that the backend port is already bound.
func NewPortInUse(port int) *LaunchError {
	return New(KindPortInUse, fmt.Sprintf("port %d is already in use", port))
}

// NewBackendFilesMissing reports that the resolved backend path does not exist.
func NewBackendFilesMissing(path string, cause error) *LaunchError {
	return Wrap(KindBackendFilesMissing, fmt.Sprintf("cannot find backend files at %s", path), cause)
}

// NewStartupTimeout reports that the health endpoint never answered in time.
func NewStartupTimeout(msg string, cause error) *LaunchError {
	return Wrap(KindStartupTimeout, msg, cause)
}

// NewSpawnError reports an OS-level failure to create the backend process.
func NewSpawnError(command string, cause error) *LaunchError {
	return Wrap(KindSpawnError, fmt.Sprintf("failed to start backend %s", command), cause)
}

// NewAbnormalExit reports a post-start backend crash.
func NewAbnormalExit(msg string) *LaunchError {
	return New(KindAbnormalExit, msg)
}

// KindOf returns the Kind of the first LaunchError in err's chain.
// Errors that are not LaunchErrors report KindGeneral.
func KindOf(err error) Kind {
	var le *LaunchError
	if stderrors.As(err, &le) {
		return le.Kind
	}
	return KindGeneral
}

// IsKind checks if err carries a LaunchError of the given kind.
func IsKind(err error, kind Kind) bool {
	var le *LaunchError
	return stderrors.As(err, &le) && le.Kind == kind
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	return IsKind(err, KindConfig)
}

// GetExitCode returns the exit code for an error.
// If the error is not a LaunchError, it returns ExitGeneralError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return KindOf(err).ExitCode()
}
