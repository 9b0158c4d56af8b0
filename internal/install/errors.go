package install

import (
	"errors"
	"fmt"
)

// Kind classifies how a failed step affects the rest of the run.
type Kind int

const (
	// Fatal halts the run immediately; no later step executes.
	Fatal Kind = iota + 1
	// Recoverable skips to chroot cleanup; the run still reports failure.
	Recoverable
)

func (k Kind) String() string {
	switch k {
	case Fatal:
		return "fatal"
	case Recoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

// StepError is the result of a failed step.
type StepError struct {
	State State
	Kind  Kind
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.State, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a fatal StepError.
func IsFatal(err error) bool {
	var se *StepError
	return errors.As(err, &se) && se.Kind == Fatal
}

var (
	ErrAlreadyRunning    = errors.New("installation is already running")
	ErrNoScript          = errors.New("auto partition script not found")
	ErrNoRootDevice      = errors.New("no root device configured")
	ErrNoPackages        = errors.New("package set is empty")
	errMissingDependency = errors.New("missing collaborator")
)
