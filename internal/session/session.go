// Package session runs the recognition loop of one listening period: audio
// chunks flow from a capture source through an unbounded queue into the
// recognizer, and each response is reported to a Handler as a final
// sentence or an in-progress hypothesis.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/chaz8081/easelaw/internal/audio"
	"github.com/chaz8081/easelaw/internal/queue"
	"github.com/chaz8081/easelaw/internal/transcribe"
)

// DefaultStopTimeout bounds how long Stop waits for the loop to exit.
const DefaultStopTimeout = 2 * time.Second

var (
	// ErrStopTimeout is returned by Stop when the loop did not exit in time.
	ErrStopTimeout = errors.New("session: recognition loop did not stop in time")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("session: already started")
)

// Handler receives recognition events. Methods are called from the
// session's loop goroutine, in chunk order, and must not block.
type Handler interface {
	// OnFinal receives a finalized, non-empty utterance.
	OnFinal(text string)
	// OnPartial receives a non-empty in-progress hypothesis.
	OnPartial(text string)
	// OnError is called at most once, when the loop stops on a failure.
	OnError(err error)
}

// Stats counts what a session processed.
type Stats struct {
	Chunks   int64
	Finals   int64
	Partials int64
	Skipped  int64 // responses that could not be decoded
}

// Session owns the handoff queue and the recognition loop for one
// listening period. The recognizer is borrowed for the session's lifetime.
type Session struct {
	id      string
	rec     transcribe.Recognizer
	src     audio.Source
	handler Handler
	logger  *slog.Logger
	queue   *queue.Queue[audio.Chunk]

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	stopOnce sync.Once
	stopErr  error

	// The source is stopped exactly once, before the loop can exit, so a
	// later session can reuse it as soon as Done is closed.
	srcOnce sync.Once
	srcErr  error

	chunks, finals, partials, skipped atomic.Int64
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The session id is attached to every record.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New creates a session that reads from src and feeds rec.
func New(rec transcribe.Recognizer, src audio.Source, h Handler, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		rec:     rec,
		src:     src,
		handler: h,
		logger:  slog.Default(),
		queue:   queue.New[audio.Chunk](),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("session", s.id)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Done is closed when the recognition loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the failure that ended the loop, if any. Valid after Done.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Chunks:   s.chunks.Load(),
		Finals:   s.finals.Load(),
		Partials: s.partials.Load(),
		Skipped:  s.skipped.Load(),
	}
}

// Start starts the capture source, resets the recognizer and spawns the
// recognition loop. A failed start leaves the recognizer untouched.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := s.src.Start(func(c audio.Chunk) { s.queue.Put(c) }); err != nil {
		cancel()
		return fmt.Errorf("session: start audio source: %w", err)
	}
	// Chunks queued before the loop starts are still fed after the reset.
	s.rec.Reset()

	s.started = true
	s.cancel = cancel
	go s.run(ctx)

	s.logger.Info("listening started")
	return nil
}

// Stop stops the capture source, cancels the loop and waits up to timeout
// for the loop to exit. The chunk being recognized when Stop is called is
// allowed to finish; nothing further is dequeued. Stop is idempotent.
func (s *Session) Stop(timeout time.Duration) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	s.stopOnce.Do(func() {
		var errs []error
		if err := s.stopSource(); err != nil {
			errs = append(errs, fmt.Errorf("session: stop audio source: %w", err))
		}
		s.cancel()

		if !s.wait(timeout) {
			errs = append(errs, ErrStopTimeout)
			s.logger.Warn("recognition loop still busy, abandoning it", "timeout", timeout)
		}

		s.stopErr = errors.Join(errs...)
		s.logStats()
	})
	return s.stopErr
}

// Drain stops the capture source, lets the loop recognize everything still
// queued, flushes the recognizer's pending utterance and waits for the loop
// to exit. It is used when the input has a natural end, such as a file.
func (s *Session) Drain(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	if err := s.stopSource(); err != nil {
		return fmt.Errorf("session: stop audio source: %w", err)
	}
	s.queue.Put(nil)

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Stop(0)
}

func (s *Session) stopSource() error {
	s.srcOnce.Do(func() { s.srcErr = s.src.Stop() })
	return s.srcErr
}

// wait reports whether the loop exited within timeout.
func (s *Session) wait(timeout time.Duration) bool {
	select {
	case <-s.done:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	err := s.loop(ctx)
	if err == nil {
		return
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	s.logger.Error("recognition loop failed", "error", err)
	if stopErr := s.stopSource(); stopErr != nil {
		s.logger.Warn("stopping audio source after failure", "error", stopErr)
	}
	s.handler.OnError(err)
}

// loop recognizes queued chunks until ctx is done or the end-of-input
// marker (a nil chunk) is reached. Panics are converted to errors.
func (s *Session) loop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session: recognizer panic: %v", r)
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		chunk, err := s.queue.Get(ctx)
		if err != nil {
			return nil
		}
		if chunk == nil {
			return s.flush()
		}
		if err := s.process(chunk); err != nil {
			return err
		}
	}
}

func (s *Session) process(chunk audio.Chunk) error {
	s.chunks.Add(1)

	final, err := s.rec.Accept(chunk)
	if err != nil {
		return err
	}

	if final {
		text, err := s.rec.Result()
		if err = s.tolerate(err); err != nil {
			return err
		}
		s.emitFinal(text)
		return nil
	}

	text, err := s.rec.Partial()
	if err = s.tolerate(err); err != nil {
		return err
	}
	if text != "" {
		s.partials.Add(1)
		s.handler.OnPartial(text)
	}
	return nil
}

func (s *Session) flush() error {
	text, err := s.rec.Flush()
	if err = s.tolerate(err); err != nil {
		return err
	}
	s.emitFinal(text)
	return nil
}

func (s *Session) emitFinal(text string) {
	if text == "" {
		return
	}
	s.finals.Add(1)
	s.handler.OnFinal(text)
}

// tolerate swallows undecodable recognizer responses so one bad response
// costs one chunk, not the session.
func (s *Session) tolerate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, transcribe.ErrMalformedResult) {
		s.skipped.Add(1)
		s.logger.Warn("skipping undecodable recognizer response", "error", err)
		return nil
	}
	return err
}

func (s *Session) logStats() {
	st := s.Stats()
	s.logger.Info("listening stopped",
		"chunks", st.Chunks, "finals", st.Finals, "partials", st.Partials,
		"skipped", st.Skipped, "pending", s.queue.Len())
}
