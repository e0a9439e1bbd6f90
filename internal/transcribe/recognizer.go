// Package transcribe provides the streaming speech recognizers a listening
// session feeds audio to.
//
// Supported backends:
//   - vosk: Kaldi-based streaming recognizer via the Vosk Go bindings (default)
//   - whisper: whisper.cpp via Go bindings, flushed on trailing silence
package transcribe

import (
	"errors"
	"fmt"
	"os"

	"github.com/chaz8081/easelaw/internal/config"
)

var (
	// ErrModelNotFound is returned when the configured model path does not exist.
	ErrModelNotFound = errors.New("transcribe: model not found")
	// ErrMalformedResult is returned when a recognizer response cannot be decoded.
	ErrMalformedResult = errors.New("transcribe: malformed recognizer result")
)

// Recognizer is a stateful streaming speech-to-text engine. It is not safe
// for concurrent use; a listening session owns it for the duration of the
// session.
type Recognizer interface {
	// Accept feeds one chunk of mono 16-bit PCM and reports whether an
	// utterance was finalized by it.
	Accept(pcm []byte) (final bool, err error)
	// Result returns the text of the utterance finalized by the last Accept.
	Result() (string, error)
	// Partial returns the in-progress hypothesis.
	Partial() (string, error)
	// Flush finalizes whatever audio is pending and returns its text.
	Flush() (string, error)
	// Reset discards pending audio so the next Accept starts a new utterance.
	Reset()
	// Close releases backend resources.
	Close() error
}

// New loads the recognizer selected by cfg for audio at sampleRate.
func New(cfg *config.RecognizerConfig, sampleRate int) (Recognizer, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
		}
		return nil, fmt.Errorf("transcribe: stat model %q: %w", cfg.ModelPath, err)
	}

	switch cfg.Backend {
	case "whisper":
		return NewWhisper(cfg.ModelPath, WhisperOptions{
			Language:    cfg.Language,
			SampleRate:  sampleRate,
			SilenceMs:   cfg.SilenceMs,
			MaxBufferMs: cfg.MaxBufferMs,
		})
	case "vosk", "":
		return NewVosk(cfg.ModelPath, sampleRate)
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: vosk, whisper)", cfg.Backend)
	}
}
