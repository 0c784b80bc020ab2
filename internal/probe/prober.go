// Package probe extracts media metadata from a file or stream URL through
// ffprobe. Probes are one-shot: no task is created and nothing is cached.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/eleven-am/framed/internal/ffmpeg"
)

// Info is the subset of stream metadata callers care about before
// starting a decode task.
type Info struct {
	Format    string  `json:"format"`
	Codec     string  `json:"codec"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
	Duration  float64 `json:"duration"`
}

type Prober struct {
	ffprobePath string
}

func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath}
}

func (p *Prober) Probe(ctx context.Context, source string) (*Info, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		ffmpeg.NormalizeSource(source),
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", source, err)
	}

	var ff ffprobeOutput
	if err := json.Unmarshal(output, &ff); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}

	info := &Info{Format: ff.Format.FormatName}
	if dur, err := strconv.ParseFloat(ff.Format.Duration, 64); err == nil {
		info.Duration = dur
	}

	for _, s := range ff.Streams {
		if s.CodecType != "video" {
			continue
		}
		info.Codec = s.CodecName
		info.Width = s.Width
		info.Height = s.Height
		info.FrameRate = parseFrameRate(s.RFrameRate)
		break
	}

	if info.Codec == "" {
		return nil, fmt.Errorf("no video stream in %s", source)
	}
	return info, nil
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// parseFrameRate evaluates ffprobe's rational rate strings ("30000/1001").
func parseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return 0
	}

	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
