package monitor

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig is returned for a run configuration that cannot be used
	ErrInvalidConfig = errors.New("invalid run configuration")
	// ErrAlreadyStarted is returned when an Orchestrator or Sampler is reused
	ErrAlreadyStarted = errors.New("already started")
)

// LaunchError reports a command that could not be spawned. No sampling takes
// place and no RunResult is produced.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error
func (e *LaunchError) Unwrap() error { return e.Err }

// Cause returns the underlying error for github.com/pkg/errors
func (e *LaunchError) Cause() error { return e.Err }

// IsLaunchFailure reports whether err is, or wraps, a LaunchError
func IsLaunchFailure(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}
