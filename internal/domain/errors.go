package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an operation on a camera id the registry has never
// seen. A stopped task is still known; only never-started ids return this.
var ErrNotFound = errors.New("camera not found")

// LaunchError reports a subprocess that failed to start at all: missing
// engine binary, unusable arguments. It surfaces synchronously from Start.
type LaunchError struct {
	Cause error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch decode engine: %v", e.Cause)
}

func (e *LaunchError) Unwrap() error { return e.Cause }

// CapabilityError reports an explicitly requested acceleration mode that
// the hardware probe did not find available.
type CapabilityError struct {
	Requested AccelMode
	Available []AccelMode
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("acceleration %q not available (have %v)", e.Requested, e.Available)
}

// ErrExhaustedRetries terminates the restart loop once the attempt budget
// is spent. It appears wrapped in a failed task's LastError.
var ErrExhaustedRetries = errors.New("restart budget exhausted")
