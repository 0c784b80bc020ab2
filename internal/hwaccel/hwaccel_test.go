package hwaccel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/eleven-am/framed/internal/domain"
)

func installFakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestProbeParsesReportedBackends(t *testing.T) {
	reset()
	t.Cleanup(reset)

	path := installFakeFFmpeg(t, fakeHWAccelsScript)

	accels := Probe(context.Background(), path)

	want := []domain.AccelMode{domain.AccelCUDA, domain.AccelVAAPI, domain.AccelSoftware}
	if len(accels) != len(want) {
		t.Fatalf("expected %v, got %v", want, accels)
	}
	for i := range want {
		if accels[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, accels)
		}
	}
}

func TestProbeCachesFirstResult(t *testing.T) {
	reset()
	t.Cleanup(reset)

	path := installFakeFFmpeg(t, fakeHWAccelsScript)
	first := Probe(context.Background(), path)

	// A second probe with a broken path must return the cached list.
	second := Probe(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if len(second) != len(first) {
		t.Fatalf("cache miss: first %v, second %v", first, second)
	}
}

func TestProbeFallsBackToSoftwareOnBrokenBinary(t *testing.T) {
	reset()
	t.Cleanup(reset)

	accels := Probe(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if len(accels) != 1 || accels[0] != domain.AccelSoftware {
		t.Fatalf("expected software-only fallback, got %v", accels)
	}
}

func TestResolveAutoPicksFirstAvailable(t *testing.T) {
	available := []domain.AccelMode{domain.AccelQSV, domain.AccelSoftware}

	mode, err := Resolve(domain.AccelAuto, available)
	if err != nil {
		t.Fatalf("resolve auto: %v", err)
	}
	if mode != domain.AccelQSV {
		t.Fatalf("expected qsv, got %s", mode)
	}
}

func TestResolveExplicitUnavailableFails(t *testing.T) {
	available := []domain.AccelMode{domain.AccelSoftware}

	_, err := Resolve(domain.AccelCUDA, available)
	capErr, ok := err.(*domain.CapabilityError)
	if !ok {
		t.Fatalf("expected CapabilityError, got %v", err)
	}
	if capErr.Requested != domain.AccelCUDA {
		t.Fatalf("unexpected error detail: %#v", capErr)
	}
}

func TestResolveExplicitAvailablePasses(t *testing.T) {
	available := []domain.AccelMode{domain.AccelVAAPI, domain.AccelSoftware}

	mode, err := Resolve(domain.AccelVAAPI, available)
	if err != nil || mode != domain.AccelVAAPI {
		t.Fatalf("expected vaapi, got %s err %v", mode, err)
	}
}

func TestNewConfigFlags(t *testing.T) {
	cuda := NewConfig(domain.AccelCUDA)
	if len(cuda.DecodeFlags) == 0 || cuda.DecodeFlags[1] != "cuda" {
		t.Fatalf("unexpected cuda flags: %v", cuda.DecodeFlags)
	}

	sw := NewConfig(domain.AccelSoftware)
	if len(sw.DecodeFlags) != 0 {
		t.Fatalf("software decode should carry no flags: %v", sw.DecodeFlags)
	}

	unknown := NewConfig(domain.AccelMode("bogus"))
	if unknown.Mode != domain.AccelSoftware {
		t.Fatalf("unknown mode should fall back to software: %#v", unknown)
	}
}

const fakeHWAccelsScript = `#!/bin/sh
if [ "$1" = "-hwaccels" ]; then
cat <<'EOF'
Hardware acceleration methods:
cuda
vaapi
EOF
exit 0
fi
exit 1
`
