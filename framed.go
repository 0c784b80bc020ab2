// Package framed provides a supervised video decoding service that turns
// video files and RTSP/HTTP streams into sequences of JPEG frames on a
// shared filesystem, for consumption by downstream inference services.
//
// framed does not decode video itself; it supervises an external decode
// engine (ffmpeg) as one subprocess per camera, tracks each subprocess's
// health, restarts it with exponential backoff after transient failures,
// and exposes consistent per-camera status without cross-camera locking.
//
// # Architecture
//
//   - Manager: the public entry point, one per process
//   - task registry: one supervised state machine per camera id
//   - engine adapter: builds and owns decode subprocesses
//   - frame sink: per-camera output directories under FramesRoot
//   - hwaccel probe: detects usable decode backends once per process
//
// # Basic Usage
//
//	mgr := framed.New(framed.Options{
//	    FramesRoot: "/var/lib/framed/frames",
//	})
//	defer mgr.Shutdown()
//
//	err := mgr.Start(ctx, "cam1", "rtsp://host/stream", 1, framed.AccelAuto)
//	status, err := mgr.Status("cam1")
//
// # Lifecycle
//
// A camera task moves through starting → running, drops to restarting on
// an abnormal engine exit, and lands in failed once the restart budget is
// spent. An explicit Stop preempts everything, including pending restart
// timers, and is never followed by a resurrected subprocess. Stopped and
// failed tasks stay queryable until stopped or superseded; the registry is
// in-memory only and empties on process restart.
package framed

import (
	"context"
	"fmt"
	"iter"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/eleven-am/framed/internal/domain"
	"github.com/eleven-am/framed/internal/engine"
	"github.com/eleven-am/framed/internal/ffmpeg"
	"github.com/eleven-am/framed/internal/hwaccel"
	"github.com/eleven-am/framed/internal/probe"
	"github.com/eleven-am/framed/internal/sink"
	"github.com/eleven-am/framed/internal/task"
)

type (
	// Status is the read-only projection of one camera task.
	Status = domain.Snapshot

	// TaskState enumerates the camera task lifecycle states.
	TaskState = domain.TaskState

	// AccelMode selects the hardware backend used for decoding.
	AccelMode = domain.AccelMode

	// VideoInfo is the metadata returned by a one-shot source probe.
	VideoInfo = probe.Info
)

const (
	StateStarting   = domain.StateStarting
	StateRunning    = domain.StateRunning
	StateRestarting = domain.StateRestarting
	StateFailed     = domain.StateFailed
	StateStopped    = domain.StateStopped

	AccelAuto     = domain.AccelAuto
	AccelCUDA     = domain.AccelCUDA
	AccelQSV      = domain.AccelQSV
	AccelVAAPI    = domain.AccelVAAPI
	AccelSoftware = domain.AccelSoftware
)

// ErrNotFound reports an operation on a camera id that was never started.
var ErrNotFound = domain.ErrNotFound

// Options configures the Manager.
type Options struct {
	// FramesRoot is required: the shared-volume directory under which each
	// camera gets its own frame output directory.
	FramesRoot string

	// FFmpegPath locates the decode engine binary. Default: "ffmpeg".
	FFmpegPath string

	// FFprobePath locates the metadata probe binary. Default: "ffprobe".
	FFprobePath string

	// JPEGQuality is the engine's -q:v value (2 best, 31 worst). Default: 2.
	JPEGQuality int

	// MaxRestarts bounds restart attempts per explicit start. Default: 5.
	MaxRestarts int

	// BackoffBase is the first restart delay; it doubles per attempt up to
	// BackoffMax. Defaults: 500ms and 30s.
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// StopGrace is how long a terminating subprocess gets before SIGKILL.
	// Default: 3s.
	StopGrace time.Duration

	// StartupWindow is how long a fresh subprocess must stay alive before
	// the task counts as running. Default: 250ms.
	StartupWindow time.Duration

	// FramePollInterval is how often frame counts are observed from the
	// sink. Default: 1s.
	FramePollInterval time.Duration

	// Logger receives structured supervision logs. Default: a disabled
	// logger.
	Logger *zerolog.Logger
}

func (o *Options) setDefaults() {
	if o.FFmpegPath == "" {
		o.FFmpegPath = "ffmpeg"
	}
	if o.FFprobePath == "" {
		o.FFprobePath = "ffprobe"
	}
	if o.JPEGQuality == 0 {
		o.JPEGQuality = 2
	}
	if o.MaxRestarts == 0 {
		o.MaxRestarts = 5
	}
	if o.BackoffBase == 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMax == 0 {
		o.BackoffMax = 30 * time.Second
	}
	if o.StopGrace == 0 {
		o.StopGrace = 3 * time.Second
	}
	if o.StartupWindow == 0 {
		o.StartupWindow = 250 * time.Millisecond
	}
	if o.FramePollInterval == 0 {
		o.FramePollInterval = time.Second
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
}

func (o *Options) validate() {
	if o.FramesRoot == "" {
		panic("framed: FramesRoot is required")
	}
}

// Manager is the main entry point. It owns the camera task registry, the
// engine adapter, and the frame sink. A single Manager instance owns its
// camera set; there is no cross-node coordination.
type Manager struct {
	opts     Options
	tasks    *task.Manager
	frames   *sink.Sink
	launcher *engine.Launcher
	prober   *probe.Prober
	log      zerolog.Logger
}

// New creates a Manager. It panics if FramesRoot is empty.
func New(opts Options) *Manager {
	opts.validate()
	opts.setDefaults()

	log := *opts.Logger

	builder := ffmpeg.NewBuilder(opts.JPEGQuality)
	launcher := engine.NewLauncher(opts.FFmpegPath, builder, log)
	frames := sink.New(opts.FramesRoot)

	tasks := task.NewManager(launcher, frames, task.Config{
		MaxRestarts:   opts.MaxRestarts,
		BackoffBase:   opts.BackoffBase,
		BackoffMax:    opts.BackoffMax,
		StopGrace:     opts.StopGrace,
		StartupWindow: opts.StartupWindow,
		FramePoll:     opts.FramePollInterval,
	}, log)

	return &Manager{
		opts:     opts,
		tasks:    tasks,
		frames:   frames,
		launcher: launcher,
		prober:   probe.NewProber(opts.FFprobePath),
		log:      log,
	}
}

// Start launches a supervised decode task for the camera. If a task for
// the id already exists it is superseded: stopped and replaced, never
// rejected. The acceleration mode is resolved against the hardware probe
// once here and stays fixed for the task's lifetime; AccelAuto falls back
// through cuda, qsv, vaapi to software, while an explicit mode that the
// host cannot provide fails with a CapabilityError.
//
// Start returns once the subprocess is launched. It does not wait for a
// first frame; decode-time failures surface through Status.
func (m *Manager) Start(ctx context.Context, cameraID, source string, fps float64, mode AccelMode) error {
	available := hwaccel.Probe(ctx, m.opts.FFmpegPath)
	resolved, err := hwaccel.Resolve(mode, available)
	if err != nil {
		return err
	}

	return m.tasks.Start(ctx, cameraID, source, fps, hwaccel.NewConfig(resolved))
}

// Stop terminates the camera's decode task and clears its frame directory.
// The task stays queryable in state stopped. Returns ErrNotFound for ids
// that were never started; stopping twice is a no-op.
func (m *Manager) Stop(cameraID string) error {
	return m.tasks.Stop(cameraID)
}

// Status returns the camera's status projection, or ErrNotFound.
func (m *Manager) Status(cameraID string) (Status, error) {
	return m.tasks.Status(cameraID)
}

// List yields the status of every known camera, for fleet-wide health
// checks. The sequence is lazy and can be ranged over multiple times.
func (m *Manager) List() iter.Seq[Status] {
	return m.tasks.List()
}

// Accelerations returns the host's usable acceleration modes in preference
// order. The list is probed once per process and is read-only.
func (m *Manager) Accelerations(ctx context.Context) []AccelMode {
	return hwaccel.Probe(ctx, m.opts.FFmpegPath)
}

// VideoInfo probes a file or stream URL for its video metadata. One-shot;
// no task is created.
func (m *Manager) VideoInfo(ctx context.Context, source string) (*VideoInfo, error) {
	return m.prober.Probe(ctx, source)
}

// Snapshot captures a single frame from the source at the given timestamp
// into outputImage. One-shot and synchronous.
func (m *Manager) Snapshot(ctx context.Context, source, timestamp, outputImage string) error {
	args := m.launcher.Builder().Snapshot(source, timestamp, outputImage)
	if err := m.launcher.Run(ctx, args); err != nil {
		return fmt.Errorf("snapshot %s: %w", source, err)
	}
	return nil
}

// Record copies a clip of the given duration starting at start from the
// source into outputPath. One-shot and synchronous; streams are copied,
// not re-encoded.
func (m *Manager) Record(ctx context.Context, source, start, duration, outputPath string) error {
	args := m.launcher.Builder().Record(source, start, duration, outputPath)
	if err := m.launcher.Run(ctx, args); err != nil {
		return fmt.Errorf("record %s: %w", source, err)
	}
	return nil
}

// LatestFrame returns the path of the camera's newest frame by
// modification time.
func (m *Manager) LatestFrame(cameraID string) (string, error) {
	if _, err := m.tasks.Status(cameraID); err != nil {
		return "", err
	}
	path, err := m.frames.Latest(cameraID)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no frames for camera %s", cameraID)
		}
		return "", err
	}
	return path, nil
}

// Shutdown stops all camera tasks and waits for their subprocesses to
// exit. Frame directories are left in place for downstream consumers.
func (m *Manager) Shutdown() {
	m.tasks.Shutdown()
}
