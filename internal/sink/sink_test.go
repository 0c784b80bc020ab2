package sink

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFrame(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("jpeg"), 0644); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func TestPrepareIsIdempotent(t *testing.T) {
	s := New(t.TempDir())

	first, err := s.Prepare("cam1")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	second, err := s.Prepare("cam1")
	if err != nil {
		t.Fatalf("second prepare: %v", err)
	}
	if first != second {
		t.Fatalf("prepare not stable: %s vs %s", first, second)
	}
}

func TestCountMatchesNamingContract(t *testing.T) {
	s := New(t.TempDir())
	dir, _ := s.Prepare("cam1")

	writeFrame(t, dir, "frame_0001.jpg")
	writeFrame(t, dir, "frame_0002.jpg")
	// Widened sequence past 9999 still counts.
	writeFrame(t, dir, "frame_10000.jpg")
	// Non-frame files are ignored.
	writeFrame(t, dir, "frame_01.jpg")
	writeFrame(t, dir, "notes.txt")

	n, err := s.Count("cam1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 frames, got %d", n)
	}
}

func TestCountMissingDirIsZero(t *testing.T) {
	s := New(t.TempDir())

	n, err := s.Count("never-started")
	if err != nil || n != 0 {
		t.Fatalf("expected 0 frames no error, got %d %v", n, err)
	}
}

func TestClearRemovesOnlyFrames(t *testing.T) {
	s := New(t.TempDir())
	dir, _ := s.Prepare("cam1")

	writeFrame(t, dir, "frame_0001.jpg")
	writeFrame(t, dir, "notes.txt")

	if err := s.Clear("cam1"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	n, _ := s.Count("cam1")
	if n != 0 {
		t.Fatalf("expected 0 frames after clear, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Fatalf("clear must not touch non-frame files: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("clear must keep the directory: %v", err)
	}
}

func TestLatestUsesModTime(t *testing.T) {
	s := New(t.TempDir())
	dir, _ := s.Prepare("cam1")

	writeFrame(t, dir, "frame_0002.jpg")
	writeFrame(t, dir, "frame_0001.jpg")

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "frame_0002.jpg"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	latest, err := s.Latest("cam1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if filepath.Base(latest) != "frame_0001.jpg" {
		t.Fatalf("expected newest by mtime, got %s", latest)
	}
}

func TestLatestEmptyDirErrors(t *testing.T) {
	s := New(t.TempDir())
	s.Prepare("cam1")

	if _, err := s.Latest("cam1"); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestRemove(t *testing.T) {
	s := New(t.TempDir())
	dir, _ := s.Prepare("cam1")
	writeFrame(t, dir, "frame_0001.jpg")

	if err := s.Remove("cam1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected directory gone, got %v", err)
	}
}
