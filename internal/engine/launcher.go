// Package engine adapts the external decode engine (ffmpeg) into owned
// subprocess handles. One Launch call produces exactly one subprocess;
// runtime failures surface through the handle's exit observation, never
// through Launch itself.
package engine

import (
	"context"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/eleven-am/framed/internal/domain"
	"github.com/eleven-am/framed/internal/ffmpeg"
)

type Launcher struct {
	ffmpegPath string
	builder    *ffmpeg.Builder
	log        zerolog.Logger
}

func NewLauncher(ffmpegPath string, builder *ffmpeg.Builder, log zerolog.Logger) *Launcher {
	return &Launcher{
		ffmpegPath: ffmpegPath,
		builder:    builder,
		log:        log.With().Str("component", "engine").Logger(),
	}
}

// Launch starts a frame extraction subprocess for the given spec. A process
// that cannot be started at all is a LaunchError; once Launch returns the
// handle owns the process and all failures are asynchronous.
func (l *Launcher) Launch(ctx context.Context, spec domain.DecodeSpec) (domain.ProcessHandle, error) {
	args := l.builder.Extract(ffmpeg.ExtractParams{
		Source:    spec.Source,
		FPS:       spec.FPS,
		Accel:     spec.Accel,
		OutputDir: spec.OutputDir,
	})

	cmd := exec.Command(l.ffmpegPath, args...)
	stderr := newTailBuffer(stderrTailSize)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, &domain.LaunchError{Cause: err}
	}

	l.log.Debug().
		Str("camera_id", spec.CameraID).
		Int("pid", cmd.Process.Pid).
		Strs("args", args).
		Msg("decode engine launched")

	h := newHandle(cmd, stderr)
	go h.wait()

	return h, nil
}

// Run executes a one-shot engine invocation (snapshot, clip record) and
// blocks until it finishes. The context cancels the subprocess.
func (l *Launcher) Run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, l.ffmpegPath, args...)
	stderr := newTailBuffer(stderrTailSize)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return &domain.LaunchError{Cause: err}
	}

	if err := cmd.Wait(); err != nil {
		return exitError(err, stderr.String())
	}
	return nil
}

// Builder exposes the launcher's command builder for one-shot invocations
// composed by the caller.
func (l *Launcher) Builder() *ffmpeg.Builder { return l.builder }
