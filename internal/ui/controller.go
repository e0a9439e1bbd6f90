package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/easelaw/internal/queue"
	"github.com/chaz8081/easelaw/internal/session"
	"github.com/chaz8081/easelaw/internal/transcript"
)

// State is the listening state of the window.
type State int

const (
	// Idle is the initial state: no session is running.
	Idle State = iota
	// Listening means a session is capturing and recognizing audio.
	Listening
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Runner is a started listening session as the controller sees it.
// *session.Session satisfies it. Sessions share one recognizer, so a new
// one is only started after the previous Done is closed.
type Runner interface {
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
	Done() <-chan struct{}
}

// SessionFactory creates a session that reports to h.
type SessionFactory func(h session.Handler) Runner

// Forwarder receives each finalized sentence after it is shown.
type Forwarder interface {
	Inject(text string) error
}

// Controller owns the transcript and the listening state. Every mutation
// runs on the event loop started by Run, in the order it was posted, so
// the transcript has a single writer.
type Controller struct {
	view        View
	newSession  SessionFactory
	saver       transcript.Saver
	forward     Forwarder
	logger      *slog.Logger
	stopTimeout time.Duration
	tasks       *queue.Queue[func()]

	// Owned by the event loop.
	ctx      context.Context
	state    State
	buf      transcript.Buffer
	active   Runner
	stopping Runner // stopped but its loop may not have exited yet
	pending  bool   // start requested while stopping was still running
	gen      int
}

// Option configures a Controller.
type Option func(*Controller)

// WithForwarder forwards finalized sentences to f.
func WithForwarder(f Forwarder) Option {
	return func(c *Controller) { c.forward = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithStopTimeout bounds how long toggling off waits for the session.
func WithStopTimeout(d time.Duration) Option {
	return func(c *Controller) { c.stopTimeout = d }
}

// New creates a controller in the Idle state.
func New(view View, newSession SessionFactory, saver transcript.Saver, opts ...Option) *Controller {
	c := &Controller{
		view:        view,
		newSession:  newSession,
		saver:       saver,
		logger:      slog.Default(),
		stopTimeout: session.DefaultStopTimeout,
		tasks:       queue.New[func()](),
		ctx:         context.Background(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run processes posted work until ctx is done, then stops any active
// session and waits for its loop to exit, so the recognizer is free once
// Run returns. It must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	c.view.SetToggle(StartAffordance)
	c.render()

	for {
		task, err := c.tasks.Get(ctx)
		if err != nil {
			c.stopActive()
			if c.stopping != nil {
				<-c.stopping.Done()
			}
			return nil
		}
		task()
	}
}

// Post schedules fn on the event loop. It never blocks.
func (c *Controller) Post(fn func()) {
	c.tasks.Put(fn)
}

// Toggle presses the listen button.
func (c *Controller) Toggle() {
	c.Post(c.toggle)
}

// Save presses the save button.
func (c *Controller) Save() {
	c.Post(c.save)
}

// Snapshot waits for all previously posted work and returns the state and
// transcript at that point.
func (c *Controller) Snapshot(ctx context.Context) (State, string, error) {
	type snap struct {
		state State
		text  string
	}
	ch := make(chan snap, 1)
	c.Post(func() { ch <- snap{c.state, c.buf.String()} })

	select {
	case s := <-ch:
		return s.state, s.text, nil
	case <-ctx.Done():
		return Idle, "", ctx.Err()
	}
}

func (c *Controller) toggle() {
	if c.state == Listening {
		c.state = Idle
		c.pending = false
		c.view.SetToggle(StartAffordance)
		c.stopActive()
		c.logger.Info("listening toggled off")
		return
	}

	c.state = Listening
	c.view.SetToggle(StopAffordance)
	c.logger.Info("listening toggled on")

	if c.stopping != nil {
		c.startAfter(c.stopping)
		return
	}
	c.start()
}

// startAfter defers the start until prev's loop has exited.
func (c *Controller) startAfter(prev Runner) {
	select {
	case <-prev.Done():
		c.stopping = nil
		c.start()
		return
	default:
	}

	c.logger.Info("previous session still finishing, start deferred")
	c.pending = true
	go func() {
		<-prev.Done()
		c.Post(c.resume)
	}()
}

func (c *Controller) resume() {
	if !c.pending || c.state != Listening {
		return
	}
	c.pending = false
	if c.stopping != nil {
		c.startAfter(c.stopping)
		return
	}
	c.start()
}

func (c *Controller) start() {
	c.gen++
	r := c.newSession(&sessionHandler{c: c, gen: c.gen})
	if err := r.Start(c.ctx); err != nil {
		c.logger.Error("could not start listening", "error", err)
		c.buf.AppendNotice(fmt.Sprintf("⚠ Could not start listening: %v", err))
		c.state = Idle
		c.view.SetToggle(StartAffordance)
		c.render()
		return
	}
	c.active = r
}

// stopActive stops the active session off the event loop. The session is
// remembered until its loop has exited.
func (c *Controller) stopActive() {
	r := c.active
	if r == nil {
		return
	}
	c.active = nil
	c.stopping = r

	go func() {
		if err := r.Stop(c.stopTimeout); err != nil {
			c.logger.Warn("stopping session", "error", err)
		}
	}()
	go func() {
		<-r.Done()
		c.Post(func() {
			if c.stopping == r {
				c.stopping = nil
			}
		})
	}()
}

func (c *Controller) save() {
	path, err := c.saver.Save(&c.buf)
	switch {
	case errors.Is(err, transcript.ErrNothingToSave):
		c.logger.Info("save requested with empty transcript")
	case err != nil:
		c.logger.Error("saving transcript", "error", err)
	default:
		c.logger.Info("transcript saved", "path", path)
	}
	c.render()
}

func (c *Controller) appendFinal(text string) {
	c.buf.AppendFinal(text)
	c.render()

	if c.forward != nil {
		if err := c.forward.Inject(text + " "); err != nil {
			c.logger.Warn("forwarding sentence", "error", err)
		}
	}
}

func (c *Controller) appendPartial(text string) {
	c.buf.AppendPartial(text)
	c.render()
}

func (c *Controller) fail(gen int, err error) {
	if gen != c.gen || c.active == nil {
		c.logger.Warn("error from a session that is no longer active", "error", err)
		return
	}

	c.buf.AppendNotice(fmt.Sprintf("⚠ Listening stopped due to error: %v", err))
	c.stopActive()
	c.state = Idle
	c.view.SetToggle(StartAffordance)
	c.render()
}

func (c *Controller) render() {
	c.view.SetTranscript(c.buf.String())
}

// sessionHandler posts session events onto the controller's loop. gen ties
// error reports to the session that produced them.
type sessionHandler struct {
	c   *Controller
	gen int
}

func (h *sessionHandler) OnFinal(text string) {
	h.c.Post(func() { h.c.appendFinal(text) })
}

func (h *sessionHandler) OnPartial(text string) {
	h.c.Post(func() { h.c.appendPartial(text) })
}

func (h *sessionHandler) OnError(err error) {
	h.c.Post(func() { h.c.fail(h.gen, err) })
}
