package domain

import (
	"context"
	"time"
)

// ExitInfo describes how a decode subprocess ended.
type ExitInfo struct {
	Code   int
	Err    error
	Stderr string
}

// ProcessHandle is the exclusively owned handle to one launched decode
// subprocess. Terminate is idempotent; ExitInfo is only populated once
// Done is closed.
type ProcessHandle interface {
	IsAlive() bool
	Done() <-chan struct{}
	ExitInfo() (ExitInfo, bool)
	Terminate(grace time.Duration) error
}

// Launcher builds and starts exactly one decode subprocess per call.
type Launcher interface {
	Launch(ctx context.Context, spec DecodeSpec) (ProcessHandle, error)
}

// Sink manages the per-camera frame output directory on the shared volume.
// Count must tolerate the engine writing concurrently; an eventually
// consistent count is fine, this is a monitoring signal.
type Sink interface {
	Prepare(cameraID string) (string, error)
	Count(cameraID string) (int, error)
	Clear(cameraID string) error
	Latest(cameraID string) (string, error)
	Remove(cameraID string) error
}
