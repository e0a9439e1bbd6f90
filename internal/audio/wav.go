package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

// WAVSource replays a 16-bit mono WAV file as a stream of chunks. With
// realtime set, chunks are paced at the file's playback speed the way a
// microphone would deliver them.
type WAVSource struct {
	pcm        []byte
	sampleRate int
	chunkBytes int
	realtime   bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// OpenWAV decodes path and prepares it for replay in chunks of blockSize
// frames. The file must be 16-bit mono PCM at sampleRate.
func OpenWAV(path string, sampleRate, blockSize uint32, realtime bool) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audio: %s is not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}

	switch {
	case dec.BitDepth != 16:
		return nil, fmt.Errorf("audio: %s: want 16-bit samples, got %d-bit", path, dec.BitDepth)
	case dec.NumChans != 1:
		return nil, fmt.Errorf("audio: %s: want mono, got %d channels", path, dec.NumChans)
	case dec.SampleRate != sampleRate:
		return nil, fmt.Errorf("audio: %s: want %d Hz, got %d Hz", path, sampleRate, dec.SampleRate)
	}

	return &WAVSource{
		pcm:        intsToPCM16(buf.Data),
		sampleRate: int(sampleRate),
		chunkBytes: int(blockSize) * BytesPerSample,
		realtime:   realtime,
	}, nil
}

// DurationMs returns the length of the decoded audio.
func (s *WAVSource) DurationMs() int {
	return DurationMs(s.pcm, s.sampleRate)
}

// Start delivers the file in order from a background goroutine.
func (s *WAVSource) Start(onChunk func(Chunk)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return fmt.Errorf("audio: wav source already started")
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(onChunk, s.stop, s.done)
	return nil
}

func (s *WAVSource) run(onChunk func(Chunk), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := time.Duration(s.chunkBytes/BytesPerSample) * time.Second / time.Duration(s.sampleRate)
	var tick <-chan time.Time
	if s.realtime {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	for off := 0; off < len(s.pcm); off += s.chunkBytes {
		if tick != nil {
			select {
			case <-stop:
				return
			case <-tick:
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}

		end := min(off+s.chunkBytes, len(s.pcm))
		chunk := make(Chunk, end-off)
		copy(chunk, s.pcm[off:end])
		onChunk(chunk)
	}
}

// Done is closed once every chunk has been delivered or the source was
// stopped. It is nil before Start.
func (s *WAVSource) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Stop halts delivery and waits for the replay goroutine to exit.
func (s *WAVSource) Stop() error {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return nil
	}
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}
