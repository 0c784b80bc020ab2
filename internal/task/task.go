// Package task implements the decode task manager: a registry of
// supervised camera tasks, each owning one decode subprocess, a restart
// policy, and a status projection.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eleven-am/framed/internal/domain"
)

// Config bounds the restart policy and the supervision timings.
type Config struct {
	// MaxRestarts is the restart attempt budget per explicit start.
	MaxRestarts int
	// BackoffBase doubles per attempt up to BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// StopGrace is how long a terminated process gets before SIGKILL.
	StopGrace time.Duration
	// StartupWindow is how long a fresh process must stay alive before
	// the task is considered running.
	StartupWindow time.Duration
	// FramePoll is the interval for observing frame counts from the sink.
	FramePoll time.Duration
}

// Task supervises one camera's decode subprocess. All mutable fields are
// guarded by mu; the supervisor goroutine is the only long-term mutator,
// stop() the only external one.
type Task struct {
	spec     domain.DecodeSpec
	launcher domain.Launcher
	sink     domain.Sink
	cfg      Config
	log      zerolog.Logger

	mu            sync.Mutex
	state         domain.TaskState
	handle        domain.ProcessHandle
	frameCount    int
	restartCount  int
	lastError     string
	startedAt     time.Time
	transitionAt  time.Time
	stopRequested bool

	stopCh chan struct{} // closed by stop()
	done   chan struct{} // closed when the supervisor exits
}

func newTask(spec domain.DecodeSpec, launcher domain.Launcher, sink domain.Sink, cfg Config, log zerolog.Logger) *Task {
	now := time.Now()
	return &Task{
		spec:         spec,
		launcher:     launcher,
		sink:         sink,
		cfg:          cfg,
		log:          log,
		state:        domain.StateIdle,
		startedAt:    now,
		transitionAt: now,
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// failedTask builds a terminal record for a start whose first launch never
// produced a process. It has no supervisor.
func failedTask(spec domain.DecodeSpec, cfg Config, log zerolog.Logger, cause string) *Task {
	t := newTask(spec, nil, nil, cfg, log)
	t.state = domain.StateFailed
	t.lastError = cause
	close(t.done)
	return t
}

// Snapshot projects the task's state for external callers.
func (t *Task) Snapshot() domain.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	accel := domain.AccelSoftware
	if t.spec.Accel != nil {
		accel = t.spec.Accel.Mode
	}

	return domain.Snapshot{
		CameraID:     t.spec.CameraID,
		State:        t.state,
		FrameCount:   t.frameCount,
		RestartCount: t.restartCount,
		LastError:    t.lastError,
		Acceleration: accel,
		StartedAt:    t.startedAt,
		TransitionAt: t.transitionAt,
	}
}

// stop requests termination, kills whichever process handle is current,
// waits for the supervisor to wind down, and marks the task stopped. A
// pending restart timer is cancelled by the stopCh close; a restart that
// already re-spawned is cleaned up by the supervisor before it exits.
func (t *Task) stop(grace time.Duration) {
	t.mu.Lock()
	if t.stopRequested {
		t.mu.Unlock()
		<-t.done
		return
	}
	t.stopRequested = true
	close(t.stopCh)
	h := t.handle
	t.mu.Unlock()

	if h != nil {
		h.Terminate(grace)
	}
	<-t.done

	t.mu.Lock()
	t.state = domain.StateStopped
	t.frameCount = 0
	t.transitionAt = time.Now()
	t.mu.Unlock()
}

// supervise drives the task state machine until a terminal state. It runs
// as the task's single supervisor goroutine, launched once per explicit
// start with the first process handle already adopted.
func (t *Task) supervise() {
	defer close(t.done)

	for {
		h := t.currentHandle()

		if h != nil {
			if t.awaitStartup(h) {
				t.toRunning()
				t.monitor(h)
			}
			if t.stopping() {
				return
			}
			t.noteExit(h)
		}

		attempts := t.attempts()
		if attempts >= t.cfg.MaxRestarts {
			t.fail()
			return
		}

		t.toRestarting()
		if !t.sleep(backoff(attempts, t.cfg.BackoffBase, t.cfg.BackoffMax)) {
			return
		}

		t.beginAttempt()
		next, err := t.launcher.Launch(context.Background(), t.spec)
		if err != nil {
			t.recordError(err.Error())
			t.setHandle(nil)
			continue
		}
		if !t.adoptHandle(next) {
			// Stop arrived while the relaunch was in flight; the fresh
			// process must not outlive it.
			next.Terminate(t.cfg.StopGrace)
			return
		}
	}
}

// awaitStartup reports whether the process survived the startup window.
func (t *Task) awaitStartup(h domain.ProcessHandle) bool {
	timer := time.NewTimer(t.cfg.StartupWindow)
	defer timer.Stop()

	select {
	case <-t.stopCh:
		return false
	case <-h.Done():
		return false
	case <-timer.C:
		return h.IsAlive()
	}
}

// monitor observes a running process: frame counts on a poll ticker,
// process death, or an external stop.
func (t *Task) monitor(h domain.ProcessHandle) {
	ticker := time.NewTicker(t.cfg.FramePoll)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-h.Done():
			t.observeFrames()
			return
		case <-ticker.C:
			t.observeFrames()
		}
	}
}

// observeFrames folds the sink's count into the task. The count never
// decreases while running; the engine may rewrite low-numbered frames
// after an internal restart.
func (t *Task) observeFrames() {
	n, err := t.sink.Count(t.spec.CameraID)
	if err != nil {
		return
	}

	t.mu.Lock()
	if n > t.frameCount {
		t.frameCount = n
	}
	t.mu.Unlock()
}

func (t *Task) toRunning() {
	t.mu.Lock()
	t.state = domain.StateRunning
	t.lastError = ""
	t.transitionAt = time.Now()
	t.mu.Unlock()

	t.log.Info().Str("camera_id", t.spec.CameraID).Msg("decode task running")
}

func (t *Task) toRestarting() {
	t.mu.Lock()
	t.state = domain.StateRestarting
	t.transitionAt = time.Now()
	restarts := t.restartCount
	lastErr := t.lastError
	t.mu.Unlock()

	t.log.Warn().
		Str("camera_id", t.spec.CameraID).
		Int("restart_count", restarts).
		Str("last_error", lastErr).
		Msg("decode task restarting")
}

func (t *Task) beginAttempt() {
	t.mu.Lock()
	t.restartCount++
	t.state = domain.StateStarting
	t.transitionAt = time.Now()
	t.mu.Unlock()
}

func (t *Task) fail() {
	t.mu.Lock()
	t.state = domain.StateFailed
	if t.lastError == "" {
		t.lastError = domain.ErrExhaustedRetries.Error()
	} else {
		t.lastError = fmt.Sprintf("%v: %s", domain.ErrExhaustedRetries, t.lastError)
	}
	t.transitionAt = time.Now()
	restarts := t.restartCount
	lastErr := t.lastError
	t.mu.Unlock()

	t.log.Error().
		Str("camera_id", t.spec.CameraID).
		Int("restart_count", restarts).
		Str("last_error", lastErr).
		Msg("decode task failed")
}

// noteExit records why the current process died.
func (t *Task) noteExit(h domain.ProcessHandle) {
	info, ok := h.ExitInfo()
	if !ok {
		return
	}

	msg := fmt.Sprintf("decode engine exited with code %d", info.Code)
	if info.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, info.Stderr)
	}
	t.recordError(msg)
}

func (t *Task) recordError(msg string) {
	t.mu.Lock()
	t.lastError = msg
	t.mu.Unlock()
}

// sleep waits out a backoff delay; false means stop preempted it.
func (t *Task) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-t.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func (t *Task) stopping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopRequested
}

func (t *Task) attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.restartCount
}

func (t *Task) currentHandle() domain.ProcessHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handle
}

func (t *Task) setHandle(h domain.ProcessHandle) {
	t.mu.Lock()
	t.handle = h
	t.mu.Unlock()
}

// adoptHandle installs a freshly launched process unless a stop arrived in
// the meantime.
func (t *Task) adoptHandle(h domain.ProcessHandle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopRequested {
		return false
	}
	t.handle = h
	return true
}

// backoff computes the delay before the given attempt: base doubling per
// attempt, capped at max.
func backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt > 20 {
		attempt = 20
	}
	d := base << uint(attempt)
	if d > max || d <= 0 {
		return max
	}
	return d
}
