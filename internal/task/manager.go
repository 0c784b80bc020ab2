package task

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eleven-am/framed/internal/domain"
)

// Manager owns the registry of camera tasks. The registry map is guarded
// by mu for lookups and pointer swaps only; each camera carries its own
// entry lock serializing start/stop, so unrelated cameras never contend.
type Manager struct {
	launcher domain.Launcher
	sink     domain.Sink
	cfg      Config
	log      zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
}

// entry pins the per-camera ordering guarantee: operations on the same
// camera id are totally ordered by its mutex; the task pointer itself is
// swapped under Manager.mu so readers never see a torn reference.
type entry struct {
	mu   sync.Mutex
	task *Task
}

func NewManager(launcher domain.Launcher, sink domain.Sink, cfg Config, log zerolog.Logger) *Manager {
	return &Manager{
		launcher: launcher,
		sink:     sink,
		cfg:      cfg,
		log:      log.With().Str("component", "task").Logger(),
		entries:  make(map[string]*entry),
	}
}

// Start creates a supervised decode task for the camera. An existing task
// for the same id is superseded: stopped, its directory cleared, then the
// new task starts fresh. The first launch happens synchronously so launch
// failures surface to the caller; the task does not wait for frames.
func (m *Manager) Start(ctx context.Context, cameraID, source string, fps float64, accel *domain.AccelConfig) error {
	if cameraID == "" {
		return fmt.Errorf("camera id is required")
	}
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %v", fps)
	}

	e := m.entry(cameraID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	if prev := m.current(cameraID); prev != nil {
		prev.stop(m.cfg.StopGrace)
	}

	dir, err := m.sink.Prepare(cameraID)
	if err != nil {
		return err
	}
	if err := m.sink.Clear(cameraID); err != nil {
		return err
	}

	spec := domain.DecodeSpec{
		CameraID:  cameraID,
		Source:    source,
		FPS:       fps,
		Accel:     accel,
		OutputDir: dir,
	}

	log := m.log.With().
		Str("camera_id", cameraID).
		Str("run_id", uuid.NewString()).
		Logger()

	t := newTask(spec, m.launcher, m.sink, m.cfg, log)

	h, err := m.launcher.Launch(ctx, spec)
	if err != nil {
		// The failure stays queryable until the caller stops or restarts it.
		m.setTask(cameraID, failedTask(spec, m.cfg, log, err.Error()))
		return err
	}

	t.setHandle(h)
	t.mu.Lock()
	t.state = domain.StateStarting
	t.mu.Unlock()

	m.setTask(cameraID, t)
	go t.supervise()

	log.Info().
		Str("source", source).
		Float64("fps", fps).
		Str("acceleration", string(accelMode(accel))).
		Msg("decode task started")

	return nil
}

// Stop terminates the camera's task and clears its frame directory. The
// task stays in the registry in state stopped, distinguishable from a
// never-started id. Stopping an already stopped task is a no-op.
func (m *Manager) Stop(cameraID string) error {
	e := m.entry(cameraID, false)
	if e == nil {
		return domain.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t := m.current(cameraID)
	if t == nil {
		return domain.ErrNotFound
	}

	if t.Snapshot().State == domain.StateStopped {
		return nil
	}

	t.stop(m.cfg.StopGrace)
	if err := m.sink.Clear(cameraID); err != nil {
		return err
	}

	m.log.Info().Str("camera_id", cameraID).Msg("decode task stopped")
	return nil
}

// Status returns the camera's status projection.
func (m *Manager) Status(cameraID string) (domain.Snapshot, error) {
	t := m.current(cameraID)
	if t == nil {
		return domain.Snapshot{}, domain.ErrNotFound
	}
	return t.Snapshot(), nil
}

// List yields a snapshot per known camera. The sequence is lazy and
// restartable; the camera set is captured up front under a brief read
// lock, each snapshot is taken at yield time.
func (m *Manager) List() iter.Seq[domain.Snapshot] {
	return func(yield func(domain.Snapshot) bool) {
		m.mu.RLock()
		tasks := make([]*Task, 0, len(m.entries))
		for _, e := range m.entries {
			if e.task != nil {
				tasks = append(tasks, e.task)
			}
		}
		m.mu.RUnlock()

		for _, t := range tasks {
			if !yield(t.Snapshot()) {
				return
			}
		}
	}
}

// Shutdown stops every task concurrently. Used on service shutdown only;
// frame directories are left intact for downstream consumers.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	tasks := make([]*Task, 0, len(m.entries))
	for _, e := range m.entries {
		if e.task != nil {
			tasks = append(tasks, e.task)
		}
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t *Task) {
			defer wg.Done()
			t.stop(m.cfg.StopGrace)
		}(t)
	}
	wg.Wait()
}

func (m *Manager) entry(cameraID string, create bool) *entry {
	m.mu.RLock()
	e := m.entries[cameraID]
	m.mu.RUnlock()
	if e != nil || !create {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e = m.entries[cameraID]; e == nil {
		e = &entry{}
		m.entries[cameraID] = e
	}
	return e
}

func (m *Manager) current(cameraID string) *Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e := m.entries[cameraID]; e != nil {
		return e.task
	}
	return nil
}

func (m *Manager) setTask(cameraID string, t *Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cameraID].task = t
}

func accelMode(accel *domain.AccelConfig) domain.AccelMode {
	if accel == nil {
		return domain.AccelSoftware
	}
	return accel.Mode
}
