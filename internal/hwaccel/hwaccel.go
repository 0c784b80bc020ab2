// Package hwaccel probes the host for usable hardware decode backends.
//
// The probe shells out to the decode engine once and caches the result for
// the life of the process; the only invalidation is a service restart.
package hwaccel

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
	"sync"

	"github.com/eleven-am/framed/internal/domain"
)

// preference is the fixed auto-resolution order. GPU-class backends come
// before integrated media; software is always available and always last.
var preference = []domain.AccelMode{domain.AccelCUDA, domain.AccelQSV, domain.AccelVAAPI}

var (
	probeOnce sync.Once
	probed    []domain.AccelMode
)

// Probe returns the ordered list of usable acceleration modes. The first
// call queries the engine binary at ffmpegPath; later calls return the
// cached list regardless of the path argument.
func Probe(ctx context.Context, ffmpegPath string) []domain.AccelMode {
	probeOnce.Do(func() {
		probed = detect(ctx, ffmpegPath)
	})
	return probed
}

// reset clears the process-wide cache. Tests only.
func reset() {
	probeOnce = sync.Once{}
	probed = nil
}

func detect(ctx context.Context, ffmpegPath string) []domain.AccelMode {
	available := []domain.AccelMode{}

	reported, err := listHWAccels(ctx, ffmpegPath)
	if err == nil {
		for _, mode := range preference {
			if reported[string(mode)] {
				available = append(available, mode)
			}
		}
	}

	return append(available, domain.AccelSoftware)
}

func listHWAccels(ctx context.Context, ffmpegPath string) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, "-hwaccels")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && line != "Hardware acceleration methods:" {
			result[line] = true
		}
	}

	return result, nil
}

// Resolve maps a requested mode onto the available set. Auto picks the
// first available entry in preference order; an explicit mode that the
// probe did not report is a CapabilityError.
func Resolve(requested domain.AccelMode, available []domain.AccelMode) (domain.AccelMode, error) {
	if requested == domain.AccelAuto || requested == "" {
		if len(available) > 0 {
			return available[0], nil
		}
		return domain.AccelSoftware, nil
	}

	for _, a := range available {
		if a == requested {
			return requested, nil
		}
	}

	return "", &domain.CapabilityError{Requested: requested, Available: available}
}

// NewConfig returns the decode flags for a resolved mode.
func NewConfig(mode domain.AccelMode) *domain.AccelConfig {
	switch mode {
	case domain.AccelCUDA:
		return &domain.AccelConfig{
			Mode:        domain.AccelCUDA,
			DecodeFlags: []string{"-hwaccel", "cuda"},
		}
	case domain.AccelQSV:
		return &domain.AccelConfig{
			Mode:        domain.AccelQSV,
			DecodeFlags: []string{"-hwaccel", "qsv"},
		}
	case domain.AccelVAAPI:
		return &domain.AccelConfig{
			Mode:        domain.AccelVAAPI,
			DecodeFlags: []string{"-hwaccel", "vaapi", "-vaapi_device", "/dev/dri/renderD128"},
		}
	default:
		return &domain.AccelConfig{
			Mode:        domain.AccelSoftware,
			DecodeFlags: []string{},
		}
	}
}
