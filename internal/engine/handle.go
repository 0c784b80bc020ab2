package engine

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/eleven-am/framed/internal/domain"
)

const stderrTailSize = 4096

// handle owns one running decode subprocess. It is created after a
// successful cmd.Start and is the only place that calls cmd.Wait.
type handle struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
	done   chan struct{}

	mu   sync.Mutex
	exit domain.ExitInfo
}

func newHandle(cmd *exec.Cmd, stderr *tailBuffer) *handle {
	return &handle{
		cmd:    cmd,
		stderr: stderr,
		done:   make(chan struct{}),
	}
}

func (h *handle) wait() {
	err := h.cmd.Wait()

	h.mu.Lock()
	h.exit = domain.ExitInfo{
		Code:   h.cmd.ProcessState.ExitCode(),
		Err:    err,
		Stderr: h.stderr.String(),
	}
	h.mu.Unlock()

	close(h.done)
}

func (h *handle) IsAlive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *handle) Done() <-chan struct{} { return h.done }

// ExitInfo returns how the process ended. ok is false while it still runs.
func (h *handle) ExitInfo() (domain.ExitInfo, bool) {
	select {
	case <-h.done:
	default:
		return domain.ExitInfo{}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exit, true
}

// Terminate asks the process to exit and escalates to SIGKILL once the
// grace period lapses. Safe to call any number of times, including after
// the process has already exited.
func (h *handle) Terminate(grace time.Duration) error {
	select {
	case <-h.done:
		return nil
	default:
	}

	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already reaped between the check and the signal.
		<-h.done
		return nil
	}

	select {
	case <-h.done:
		return nil
	case <-time.After(grace):
	}

	_ = h.cmd.Process.Kill()
	<-h.done
	return nil
}

// exitError folds an exit status and captured stderr into one error value.
func exitError(err error, stderr string) error {
	if stderr == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, stderr)
}
