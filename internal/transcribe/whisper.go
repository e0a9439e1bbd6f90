package transcribe

import (
	"errors"
	"fmt"
	"io"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/chaz8081/easelaw/internal/audio"
)

// speechRMS is the normalized level above which a chunk counts as speech.
const speechRMS = 0.01

// listeningMarker is the hypothesis reported while speech is buffered.
// whisper.cpp has no incremental output, so there is no real partial text.
const listeningMarker = "…"

// WhisperOptions tunes the silence-based segmentation of the whisper backend.
type WhisperOptions struct {
	Language    string
	SampleRate  int
	SilenceMs   int // trailing silence that ends an utterance
	MaxBufferMs int // forced flush for long monologues
}

// Whisper adapts the batch whisper.cpp engine to the streaming Recognizer
// contract. Speech is buffered until SilenceMs of quiet (or MaxBufferMs of
// audio) and then transcribed in one pass.
type Whisper struct {
	model whisper.Model
	opts  WhisperOptions
	infer func(samples []float32) (string, error)

	buf       []byte
	hadSpeech bool
	silenceMs int
	result    string
}

// Compile-time interface satisfaction check.
var _ Recognizer = (*Whisper)(nil)

// NewWhisper loads a whisper ggml model from modelPath. The caller must call
// Close() when done.
func NewWhisper(modelPath string, opts WhisperOptions) (*Whisper, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	w := newWhisper(opts, nil)
	w.model = model
	w.infer = w.process
	return w, nil
}

func newWhisper(opts WhisperOptions, infer func([]float32) (string, error)) *Whisper {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.SilenceMs <= 0 {
		opts.SilenceMs = 500
	}
	if opts.MaxBufferMs <= 0 {
		opts.MaxBufferMs = 10000
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	return &Whisper{opts: opts, infer: infer}
}

// Accept buffers pcm and reports true when it closed an utterance.
func (w *Whisper) Accept(pcm []byte) (bool, error) {
	w.result = ""
	chunkMs := audio.DurationMs(pcm, w.opts.SampleRate)

	if audio.RMS(pcm) < speechRMS {
		if !w.hadSpeech {
			return false, nil
		}
		w.buf = append(w.buf, pcm...)
		w.silenceMs += chunkMs
		if w.silenceMs < w.opts.SilenceMs {
			return false, nil
		}
	} else {
		w.hadSpeech = true
		w.silenceMs = 0
		w.buf = append(w.buf, pcm...)
		if audio.DurationMs(w.buf, w.opts.SampleRate) < w.opts.MaxBufferMs {
			return false, nil
		}
	}

	text, err := w.flush()
	if err != nil {
		return false, err
	}
	w.result = text
	return true, nil
}

// Result returns the text of the utterance closed by the last Accept.
func (w *Whisper) Result() (string, error) {
	return w.result, nil
}

// Partial returns a marker while speech is buffered, "" otherwise.
func (w *Whisper) Partial() (string, error) {
	if w.hadSpeech {
		return listeningMarker, nil
	}
	return "", nil
}

// Flush transcribes any buffered speech.
func (w *Whisper) Flush() (string, error) {
	return w.flush()
}

// Reset drops buffered audio.
func (w *Whisper) Reset() {
	w.buf = nil
	w.hadSpeech = false
	w.silenceMs = 0
	w.result = ""
}

// Close releases the whisper model resources.
func (w *Whisper) Close() error {
	if w.model != nil {
		err := w.model.Close()
		w.model = nil
		return err
	}
	return nil
}

func (w *Whisper) flush() (string, error) {
	pcm, hadSpeech := w.buf, w.hadSpeech
	w.Reset()
	if !hadSpeech || len(pcm) == 0 {
		return "", nil
	}
	return w.infer(audio.PCM16ToFloat32(pcm))
}

// process runs one whisper.cpp pass over samples using a fresh context.
func (w *Whisper) process(samples []float32) (string, error) {
	ctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: create context: %w", err)
	}

	if err := ctx.SetLanguage(w.opts.Language); err != nil {
		return "", fmt.Errorf("transcribe: set language %q: %w", w.opts.Language, err)
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("transcribe: next segment: %w", err)
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			segments = append(segments, text)
		}
	}

	return strings.Join(segments, " "), nil
}
