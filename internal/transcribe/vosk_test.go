package transcribe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chaz8081/easelaw/internal/config"
)

// voskModelPath resolves the Vosk model directory relative to the project root.
func voskModelPath(t testing.TB) string {
	t.Helper()
	path := filepath.Join("..", "..", "models", "vosk-model-small-en-in-0.4")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("model not found at %s (run 'easelaw -download-model' first): %v", path, err)
	}
	return path
}

func TestNewMissingModel(t *testing.T) {
	cfg := config.Default().Recognizer
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing")

	_, err := New(&cfg, 16000)
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("New() error = %v, want ErrModelNotFound", err)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := config.Default().Recognizer
	cfg.ModelPath = t.TempDir()
	cfg.Backend = "kaldi"

	if _, err := New(&cfg, 16000); err == nil {
		t.Fatal("New() should reject an unknown backend")
	}
}

func TestVoskTranscribesJFK(t *testing.T) {
	path := voskModelPath(t)
	pcm := loadWAVPCM(t, filepath.Join("testdata", "jfk.wav"))

	v, err := NewVosk(path, 16000)
	if err != nil {
		t.Fatalf("NewVosk: %v", err)
	}
	defer func() { _ = v.Close() }()

	var parts []string
	for off := 0; off < len(pcm); off += 16000 {
		final, err := v.Accept(pcm[off:min(off+16000, len(pcm))])
		if err != nil {
			t.Fatalf("Accept: %v", err)
		}
		if !final {
			if _, err := v.Partial(); err != nil {
				t.Fatalf("Partial: %v", err)
			}
			continue
		}
		text, err := v.Result()
		if err != nil {
			t.Fatalf("Result: %v", err)
		}
		parts = append(parts, text)
	}
	tail, err := v.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	parts = append(parts, tail)

	got := strings.ToLower(strings.Join(parts, " "))
	if !strings.Contains(got, "country") {
		t.Errorf("expected transcript to mention 'country', got: %q", got)
	}
}
