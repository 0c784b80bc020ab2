package domain

import "time"

// TaskState is the lifecycle state of a supervised camera task.
type TaskState string

const (
	StateIdle       TaskState = "idle"
	StateStarting   TaskState = "starting"
	StateRunning    TaskState = "running"
	StateRestarting TaskState = "restarting"
	StateFailed     TaskState = "failed"
	StateStopped    TaskState = "stopped"
)

// Snapshot is a read-only projection of a camera task's state. It is a
// plain value derived under the task's lock; holding one never exposes
// the task's mutable internals.
type Snapshot struct {
	CameraID     string
	State        TaskState
	FrameCount   int
	RestartCount int
	LastError    string
	Acceleration AccelMode
	StartedAt    time.Time
	TransitionAt time.Time
}

// DecodeSpec describes one decode subprocess invocation: where frames
// come from, how often to sample them, and where they land.
type DecodeSpec struct {
	CameraID  string
	Source    string
	FPS       float64
	Accel     *AccelConfig
	OutputDir string
}
