// Package inject forwards finalized sentences into the focused application
// using robotgo, either as simulated keystrokes or through the clipboard.
package inject

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-vgo/robotgo"
)

// Injection methods.
const (
	MethodNone  = "none"
	MethodType  = "type"
	MethodPaste = "paste"
)

// pasteSettle is how long the target gets to read the clipboard before the
// previous contents are restored.
const pasteSettle = 50 * time.Millisecond

// Injector types or pastes text into the active application.
type Injector struct {
	method   string
	modifier string

	// Replaced in tests.
	typeText  func(string)
	readClip  func() (string, error)
	writeClip func(string) error
	keyTap    func(key, modifier string) error
	sleep     func(time.Duration)
}

// NewInjector creates an Injector for method, one of MethodNone,
// MethodType or MethodPaste.
func NewInjector(method string) (*Injector, error) {
	switch method {
	case MethodNone, MethodType, MethodPaste:
	default:
		return nil, fmt.Errorf("inject: unknown method %q", method)
	}

	return &Injector{
		method:    method,
		modifier:  pasteModifier(runtime.GOOS),
		typeText:  func(s string) { robotgo.Type(s) },
		readClip:  robotgo.ReadAll,
		writeClip: robotgo.WriteAll,
		keyTap:    func(key, mod string) error { return robotgo.KeyTap(key, mod) },
		sleep:     time.Sleep,
	}, nil
}

// Method returns the configured method.
func (inj *Injector) Method() string {
	return inj.method
}

// Inject sends text to the active application using the configured method.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}

	switch inj.method {
	case MethodType:
		inj.typeText(text)
		return nil
	case MethodPaste:
		return inj.paste(text)
	default:
		return nil
	}
}

// paste copies text to the clipboard and sends the paste shortcut. The
// previous clipboard contents are restored afterwards, best effort.
func (inj *Injector) paste(text string) error {
	prev, _ := inj.readClip()

	if err := inj.writeClip(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}

	if err := inj.keyTap("v", inj.modifier); err != nil {
		return fmt.Errorf("inject: key tap %s+v: %w", inj.modifier, err)
	}

	inj.sleep(pasteSettle)
	_ = inj.writeClip(prev)

	return nil
}

func pasteModifier(goos string) string {
	if goos == "darwin" {
		return "cmd"
	}
	return "ctrl"
}
