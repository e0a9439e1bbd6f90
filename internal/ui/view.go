// Package ui holds the toolkit-independent part of the EaseLaw window: the
// Idle/Listening state machine, the transcript it owns and the affordances
// a front-end renders.
package ui

// Window text.
const (
	Title   = "EaseLaw - Offline Audio to Text"
	Heading = "Hello, Welcome to EaseLaw"
	Hint    = "Your transcribed speech will appear here..."
)

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Affordance is how a button presents itself.
type Affordance struct {
	Label string
	Color Color
}

// Button affordances.
var (
	StartAffordance = Affordance{Label: "🎙️ Start Listening (Offline)", Color: Color{0.2, 0.4, 1, 1}}
	StopAffordance  = Affordance{Label: "⏹️ Stop Listening", Color: Color{1, 0.5, 0.2, 1}}
	SaveAffordance  = Affordance{Label: "💾 Save Transcript", Color: Color{0.2, 0.7, 0.2, 1}}
)

// View renders controller state. Its methods are only ever called from the
// controller's event loop.
type View interface {
	// SetTranscript replaces the contents of the read-only text area.
	SetTranscript(text string)
	// SetToggle updates the listen button.
	SetToggle(a Affordance)
}
