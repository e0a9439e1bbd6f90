// Package console is a terminal front-end for the EaseLaw window. On a TTY
// it redraws the whole window on every change; otherwise it appends new
// transcript text as it arrives, which suits pipes and log files.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/chaz8081/easelaw/internal/ui"
)

const (
	clearScreen = "\x1b[H\x1b[2J"
	bold        = "\x1b[1m"
	dim         = "\x1b[2m"
	reset       = "\x1b[0m"
)

// Console renders ui state to a terminal. It implements ui.View.
type Console struct {
	out io.Writer
	tty bool

	mu         sync.Mutex
	transcript string
	toggle     ui.Affordance
	shown      string // plain mode: transcript text already written
}

var _ ui.View = (*Console)(nil)

// New returns a console writing to f, redrawing in place when f is a
// terminal.
func New(f *os.File) *Console {
	fd := f.Fd()
	return NewWriter(f, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// NewWriter returns a console writing to w. tty selects full-screen
// redraws over append-only output.
func NewWriter(w io.Writer, tty bool) *Console {
	return &Console{out: w, tty: tty, toggle: ui.StartAffordance}
}

// SetTranscript implements ui.View.
func (c *Console) SetTranscript(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transcript = text
	if c.tty {
		c.redraw()
		return
	}

	switch {
	case text == c.shown:
	case strings.HasPrefix(text, c.shown):
		fmt.Fprint(c.out, text[len(c.shown):])
	default:
		fmt.Fprint(c.out, "\n"+text)
	}
	c.shown = text
}

// SetToggle implements ui.View.
func (c *Console) SetToggle(a ui.Affordance) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toggle = a
	if c.tty {
		c.redraw()
		return
	}
	fmt.Fprintf(c.out, "\n[%s]\n", a.Label)
}

func (c *Console) redraw() {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(bold + ui.Title + reset + "\n\n")
	b.WriteString(bold + ui.Heading + reset + "\n\n")
	b.WriteString(button(c.toggle) + "  " + button(ui.SaveAffordance) + "\n\n")

	if c.transcript == "" {
		b.WriteString(dim + ui.Hint + reset + "\n")
	} else {
		b.WriteString(c.transcript + "\n")
	}

	b.WriteString("\n" + dim + Help + reset + "\n")
	fmt.Fprint(c.out, b.String())
}

// button renders an affordance as reverse-video text in its color.
func button(a ui.Affordance) string {
	return fmt.Sprintf("\x1b[7;38;2;%d;%d;%dm %s %s", channel(a.Color.R), channel(a.Color.G), channel(a.Color.B), a.Label, reset)
}

func channel(v float64) int {
	return int(min(max(v, 0), 1)*255 + 0.5)
}
