package audio

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// Recorder streams S16 audio from the default microphone. Each device
// period is copied into a Chunk and handed to the Start callback.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	sampleRate uint32
	channels   uint32
	blockSize  uint32
	logger     *slog.Logger

	mu        sync.Mutex
	device    *malgo.Device
	recording bool

	// Read from the audio thread without taking mu, since Stop holds mu
	// while the device drains its last callback.
	onChunk  atomic.Pointer[func(Chunk)]
	stopping atomic.Bool
}

// NewRecorder creates a recorder capturing blockSize frames per chunk.
// Backend log messages and stream anomalies go to logger. Call Close()
// when done.
func NewRecorder(sampleRate, channels, blockSize uint32, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("audio backend", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}

	return &Recorder{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
		blockSize:  blockSize,
		logger:     logger,
	}, nil
}

// Start opens the capture device and begins delivering chunks to onChunk.
func (r *Recorder) Start(onChunk func(Chunk)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("audio: already recording")
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatS16
	deviceCfg.Capture.Channels = r.channels
	deviceCfg.SampleRate = r.sampleRate
	deviceCfg.PeriodSizeInFrames = r.blockSize

	callbacks := malgo.DeviceCallbacks{
		Data: r.onData,
		Stop: r.onStop,
	}

	r.onChunk.Store(&onChunk)
	r.stopping.Store(false)

	device, err := malgo.InitDevice(r.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		r.onChunk.Store(nil)
		return fmt.Errorf("initializing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		r.onChunk.Store(nil)
		return fmt.Errorf("starting capture device: %w", err)
	}

	r.device = device
	r.recording = true
	return nil
}

// Stop closes the capture device. It is a no-op if not recording.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil
	}

	r.stopping.Store(true)
	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.onChunk.Store(nil)
	r.recording = false
	return nil
}

// IsRecording returns whether the recorder is currently capturing audio.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Close releases all audio resources.
func (r *Recorder) Close() error {
	_ = r.Stop()

	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninitializing audio context: %w", err)
		}
		r.ctx.Free()
		r.ctx = nil
	}

	return nil
}

// onData is the malgo callback invoked when audio data is available.
// pSample is only valid for the duration of the call, so it is copied.
func (r *Recorder) onData(_, pSample []byte, frameCount uint32) {
	fn := r.onChunk.Load()
	if fn == nil {
		return
	}

	chunk, ok := r.frame(pSample, frameCount)
	if !ok {
		return
	}
	(*fn)(chunk)
}

// frame validates one device period and copies it into a Chunk. Anomalies
// are logged and otherwise tolerated.
func (r *Recorder) frame(pSample []byte, frameCount uint32) (Chunk, bool) {
	want := int(frameCount * r.channels * BytesPerSample)
	switch {
	case frameCount == 0 || len(pSample) == 0:
		r.logger.Warn("capture stream delivered an empty buffer")
		return nil, false
	case len(pSample) < want:
		r.logger.Warn("capture stream underrun",
			"frames", frameCount, "bytes", len(pSample), "expected_bytes", want)
		want = len(pSample) - len(pSample)%BytesPerSample
	}

	chunk := make(Chunk, want)
	copy(chunk, pSample[:want])
	return chunk, true
}

// onStop is invoked by malgo whenever the device stops, including after
// our own Uninit.
func (r *Recorder) onStop() {
	if !r.stopping.Load() {
		r.logger.Warn("capture device stopped unexpectedly")
	}
}
