package ffmpeg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eleven-am/framed/internal/domain"
)

func TestExtractArgs(t *testing.T) {
	b := NewBuilder(2)

	args := b.Extract(ExtractParams{
		Source:    "rtsp://cam.local/stream",
		FPS:       1,
		Accel:     &domain.AccelConfig{Mode: domain.AccelCUDA, DecodeFlags: []string{"-hwaccel", "cuda"}},
		OutputDir: "/frames/cam1",
	})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-rtsp_transport tcp")
	assert.Contains(t, joined, "-hwaccel cuda")
	assert.Contains(t, joined, "-i rtsp://cam.local/stream")
	assert.Contains(t, joined, "-vf fps=1")
	assert.Contains(t, joined, "-q:v 2")
	assert.Equal(t, "/frames/cam1/frame_%04d.jpg", args[len(args)-1])
}

func TestExtractFractionalFPSAndFileURL(t *testing.T) {
	b := NewBuilder(5)

	args := b.Extract(ExtractParams{
		Source:    "file:///videos/sample.mp4",
		FPS:       0.5,
		OutputDir: "/frames/cam2",
	})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-i /videos/sample.mp4")
	assert.Contains(t, joined, "-vf fps=0.5")
	assert.NotContains(t, joined, "-rtsp_transport")
	assert.NotContains(t, joined, "-hwaccel")
}

func TestSnapshotArgs(t *testing.T) {
	b := NewBuilder(2)

	args := b.Snapshot("file:///videos/sample.mp4", "00:00:05", "/tmp/snap.jpg")

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-ss 00:00:05")
	assert.Contains(t, joined, "-i /videos/sample.mp4")
	assert.Contains(t, joined, "-frames:v 1")
	assert.Equal(t, "/tmp/snap.jpg", args[len(args)-1])
}

func TestRecordArgs(t *testing.T) {
	b := NewBuilder(2)

	args := b.Record("rtsp://cam.local/stream", "00:01:00", "30", "/tmp/clip.mp4")

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-rtsp_transport tcp")
	assert.Contains(t, joined, "-ss 00:01:00")
	assert.Contains(t, joined, "-t 30")
	assert.Contains(t, joined, "-c:v copy")
	assert.Contains(t, joined, "-c:a copy")
}

func TestNormalizeSource(t *testing.T) {
	assert.Equal(t, "/videos/a.mp4", NormalizeSource("file:///videos/a.mp4"))
	assert.Equal(t, "rtsp://h/s", NormalizeSource("rtsp://h/s"))
	assert.Equal(t, "http://h/v.mp4", NormalizeSource("http://h/v.mp4"))
	assert.Equal(t, "/plain/path.mp4", NormalizeSource("/plain/path.mp4"))
}
