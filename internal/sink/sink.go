// Package sink manages per-camera frame output directories on the shared
// volume. Each camera owns exactly one directory under the frames root;
// the decode engine is the only writer, the sink and frame consumers read.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// frameName matches the engine's output contract, frame_%04d.jpg, plus the
// printf widening that kicks in past frame 9999.
var frameName = regexp.MustCompile(`^frame_\d{4,}\.jpg$`)

type Sink struct {
	root string
}

func New(root string) *Sink {
	return &Sink{root: root}
}

// Dir returns the camera's output directory path without creating it.
func (s *Sink) Dir(cameraID string) string {
	return filepath.Join(s.root, cameraID)
}

// Prepare creates the camera's output directory. Idempotent.
func (s *Sink) Prepare(cameraID string) (string, error) {
	dir := s.Dir(cameraID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare frame dir: %w", err)
	}
	return dir, nil
}

// Count reports how many frames the camera has produced so far. The engine
// writes concurrently, so the count is a lower bound at the moment of the
// read; a missing directory counts as zero.
func (s *Sink) Count(cameraID string) (int, error) {
	entries, err := os.ReadDir(s.Dir(cameraID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if !e.IsDir() && frameName.MatchString(e.Name()) {
			n++
		}
	}
	return n, nil
}

// Clear removes all frame files but keeps the directory.
func (s *Sink) Clear(cameraID string) error {
	entries, err := os.ReadDir(s.Dir(cameraID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !frameName.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir(cameraID), e.Name())); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Latest returns the path of the newest frame by modification time. Name
// order is not used; digit widths differ once the sequence passes 9999.
func (s *Sink) Latest(cameraID string) (string, error) {
	entries, err := os.ReadDir(s.Dir(cameraID))
	if err != nil {
		return "", err
	}

	var latest string
	var latestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !frameName.MatchString(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = e.Name()
			latestMod = info.ModTime()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("no frames for camera %s", cameraID)
	}
	return filepath.Join(s.Dir(cameraID), latest), nil
}

// Remove drops the camera's directory entirely.
func (s *Sink) Remove(cameraID string) error {
	return os.RemoveAll(s.Dir(cameraID))
}
