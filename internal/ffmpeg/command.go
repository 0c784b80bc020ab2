// Package ffmpeg builds argument lists for the external decode engine.
// Nothing here runs a process; the engine adapter owns execution.
package ffmpeg

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/eleven-am/framed/internal/domain"
)

// FramePattern is the per-camera output naming contract. The image2 muxer
// applies printf semantics, so the sequence widens past 9999 instead of
// wrapping (frame_10000.jpg and onward).
const FramePattern = "frame_%04d.jpg"

type Builder struct {
	// JPEGQuality is the -q:v value; 2 is near-lossless, 31 is worst.
	JPEGQuality int
}

func NewBuilder(jpegQuality int) *Builder {
	return &Builder{JPEGQuality: jpegQuality}
}

type ExtractParams struct {
	Source    string
	FPS       float64
	Accel     *domain.AccelConfig
	OutputDir string
}

// Extract builds the long-running frame extraction invocation: sample the
// source at the target FPS and write sequential JPEGs into OutputDir.
func (b *Builder) Extract(p ExtractParams) []string {
	args := []string{"-nostats", "-hide_banner", "-loglevel", "warning"}

	args = append(args, inputFlags(p.Source)...)

	if p.Accel != nil {
		args = append(args, p.Accel.DecodeFlags...)
	}

	args = append(args,
		"-i", NormalizeSource(p.Source),
		"-vf", fmt.Sprintf("fps=%s", strconv.FormatFloat(p.FPS, 'f', -1, 64)),
		"-q:v", strconv.Itoa(b.JPEGQuality),
		"-f", "image2",
		filepath.Join(p.OutputDir, FramePattern),
	)

	return args
}

// Snapshot builds a one-shot single-frame capture at the given timestamp.
func (b *Builder) Snapshot(source, timestamp, outputImage string) []string {
	args := []string{"-nostats", "-hide_banner", "-loglevel", "warning"}
	args = append(args, inputFlags(source)...)
	return append(args,
		"-ss", timestamp,
		"-i", NormalizeSource(source),
		"-frames:v", "1",
		"-q:v", strconv.Itoa(b.JPEGQuality),
		"-y", outputImage,
	)
}

// Record builds a one-shot stream-copy clip recording.
func (b *Builder) Record(source, start, duration, outputPath string) []string {
	args := []string{"-nostats", "-hide_banner", "-loglevel", "warning"}
	args = append(args, inputFlags(source)...)
	return append(args,
		"-ss", start,
		"-i", NormalizeSource(source),
		"-t", duration,
		"-c:v", "copy",
		"-c:a", "copy",
		"-y", outputPath,
	)
}

// NormalizeSource turns file: URLs into plain paths; everything else
// (rtsp://, http://, bare paths) passes through unchanged.
func NormalizeSource(source string) string {
	if !strings.HasPrefix(source, "file:") {
		return source
	}
	u, err := url.Parse(source)
	if err != nil || u.Path == "" {
		return strings.TrimPrefix(source, "file://")
	}
	return u.Path
}

// inputFlags returns demuxer options that must precede -i. RTSP sources
// are pinned to TCP transport; UDP loss shows up as decode errors.
func inputFlags(source string) []string {
	if strings.HasPrefix(source, "rtsp://") {
		return []string{"-rtsp_transport", "tcp"}
	}
	return nil
}
