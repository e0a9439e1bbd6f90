// Package hotkey provides global keyboard shortcuts using gohook, so the
// window can be driven while another application has focus.
package hotkey

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// Action is what a shortcut triggers.
type Action int

const (
	// ActionToggle presses the listen button.
	ActionToggle Action = iota
	// ActionSave presses the save button.
	ActionSave
)

func (a Action) String() string {
	switch a {
	case ActionToggle:
		return "toggle"
	case ActionSave:
		return "save"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Binding maps a key combination to an action.
type Binding struct {
	Action Action
	Keys   []string
}

// Listener watches global key presses and emits the bound actions.
type Listener struct {
	bindings []Binding
	ch       chan Action
	done     chan struct{}
	once     sync.Once
}

// NewListener validates bindings and returns a listener for them. Key
// names are gohook names such as "ctrl", "shift" or "l".
func NewListener(bindings []Binding) (*Listener, error) {
	norm := make([]Binding, 0, len(bindings))
	seen := make(map[string]Action, len(bindings))

	for _, b := range bindings {
		keys, err := normalizeKeys(b.Keys)
		if err != nil {
			return nil, fmt.Errorf("hotkey: %s binding: %w", b.Action, err)
		}
		combo := strings.Join(keys, "+")
		if prev, ok := seen[combo]; ok {
			return nil, fmt.Errorf("hotkey: %q bound to both %s and %s", combo, prev, b.Action)
		}
		seen[combo] = b.Action
		norm = append(norm, Binding{Action: b.Action, Keys: keys})
	}

	return &Listener{
		bindings: norm,
		ch:       make(chan Action, 16),
		done:     make(chan struct{}),
	}, nil
}

// Actions returns the channel that receives triggered actions.
// The channel is closed when Start returns.
func (l *Listener) Actions() <-chan Action {
	return l.ch
}

// Start registers the bindings and processes key events.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	for _, b := range l.bindings {
		hook.Register(hook.KeyDown, b.Keys, func(hook.Event) {
			l.emit(b.Action)
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// emit delivers a without blocking the hook thread.
func (l *Listener) emit(a Action) {
	select {
	case l.ch <- a:
	default: // drop if nobody is keeping up
	}
}

// Stop terminates the listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// normalizeKeys lowercases and deduplicates a combination, keeping order.
func normalizeKeys(keys []string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			return nil, fmt.Errorf("empty key name in %q", keys)
		}
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no keys")
	}
	return out, nil
}
