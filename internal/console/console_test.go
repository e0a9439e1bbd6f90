package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chaz8081/easelaw/internal/ui"
)

func TestPlainAppendsOnlyNewText(t *testing.T) {
	var out bytes.Buffer
	c := NewWriter(&out, false)

	c.SetTranscript(" hello.")
	c.SetTranscript(" hello. ... ")
	c.SetTranscript(" hello. ... ")
	c.SetTranscript(" hello. ...  world. ")

	if got, want := out.String(), " hello. ...  world. "; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestPlainRewritesOnDivergence(t *testing.T) {
	var out bytes.Buffer
	c := NewWriter(&out, false)

	c.SetTranscript(" one.")
	c.SetTranscript(" two.")

	if got, want := out.String(), " one.\n two."; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestPlainToggle(t *testing.T) {
	var out bytes.Buffer
	c := NewWriter(&out, false)

	c.SetToggle(ui.StopAffordance)

	if got, want := out.String(), "\n["+ui.StopAffordance.Label+"]\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestTTYRedraw(t *testing.T) {
	var out bytes.Buffer
	c := NewWriter(&out, true)

	c.SetTranscript("")
	first := out.String()
	for _, want := range []string{clearScreen, ui.Title, ui.Heading, ui.Hint, ui.StartAffordance.Label, ui.SaveAffordance.Label, Help} {
		if !strings.Contains(first, want) {
			t.Errorf("empty window missing %q", want)
		}
	}

	out.Reset()
	c.SetToggle(ui.StopAffordance)
	c.SetTranscript(" hello. ")
	frame := out.String()[strings.LastIndex(out.String(), clearScreen):]

	if strings.Contains(frame, ui.Hint) {
		t.Error("hint shown alongside transcript")
	}
	if !strings.Contains(frame, " hello. ") {
		t.Error("transcript not drawn")
	}
	if !strings.Contains(frame, ui.StopAffordance.Label) || strings.Contains(frame, ui.StartAffordance.Label) {
		t.Error("toggle affordance not updated")
	}
}

func TestButtonColor(t *testing.T) {
	got := button(ui.StopAffordance)
	if !strings.Contains(got, "38;2;255;128;51m") {
		t.Errorf("button(stop) = %q, want orange 255;128;51", got)
	}
}

func TestChannelClamps(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-1, 0},
		{0, 0},
		{0.5, 128},
		{1, 255},
		{2, 255},
	}
	for _, tt := range tests {
		if got := channel(tt.in); got != tt.want {
			t.Errorf("channel(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

type countingCommands struct {
	toggles, saves int
}

func (c *countingCommands) Toggle() { c.toggles++ }
func (c *countingCommands) Save()   { c.saves++ }

func TestReadCommands(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantToggles int
		wantSaves   int
		wantErr     error
	}{
		{"enter toggles", "\n\n", 2, 0, nil},
		{"letters", "l\nS\n", 1, 1, nil},
		{"unknown ignored", "x\nhelp\n", 0, 0, nil},
		{"quit stops reading", "l\nq\nl\n", 1, 0, ErrQuit},
		{"eof", "", 0, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &countingCommands{}
			err := ReadCommands(strings.NewReader(tt.input), cmds)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadCommands() error = %v, want %v", err, tt.wantErr)
			}
			if cmds.toggles != tt.wantToggles || cmds.saves != tt.wantSaves {
				t.Errorf("toggles=%d saves=%d, want %d and %d", cmds.toggles, cmds.saves, tt.wantToggles, tt.wantSaves)
			}
		})
	}
}
