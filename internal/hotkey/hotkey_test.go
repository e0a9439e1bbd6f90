package hotkey

import (
	"slices"
	"testing"
)

func TestNormalizeKeys(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []string
		wantErr bool
	}{
		{"lowercases", []string{"Ctrl", "SHIFT", "l"}, []string{"ctrl", "shift", "l"}, false},
		{"trims and dedupes", []string{" ctrl", "ctrl ", "s"}, []string{"ctrl", "s"}, false},
		{"empty name", []string{"ctrl", " "}, nil, true},
		{"no keys", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeKeys(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeKeys() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("normalizeKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewListener(t *testing.T) {
	l, err := NewListener([]Binding{
		{Action: ActionToggle, Keys: []string{"ctrl", "shift", "L"}},
		{Action: ActionSave, Keys: []string{"ctrl", "shift", "s"}},
	})
	if err != nil {
		t.Fatalf("NewListener() error = %v", err)
	}
	if len(l.bindings) != 2 {
		t.Fatalf("len(bindings) = %d, want 2", len(l.bindings))
	}
	if !slices.Equal(l.bindings[0].Keys, []string{"ctrl", "shift", "l"}) {
		t.Errorf("toggle keys = %v", l.bindings[0].Keys)
	}
}

func TestNewListenerRejectsConflicts(t *testing.T) {
	_, err := NewListener([]Binding{
		{Action: ActionToggle, Keys: []string{"ctrl", "l"}},
		{Action: ActionSave, Keys: []string{"CTRL", "l"}},
	})
	if err == nil {
		t.Fatal("NewListener() accepted the same combination twice")
	}
}

func TestEmitDoesNotBlock(t *testing.T) {
	l, err := NewListener(nil)
	if err != nil {
		t.Fatal(err)
	}
	for range cap(l.ch) + 5 {
		l.emit(ActionSave)
	}
	if len(l.ch) != cap(l.ch) {
		t.Errorf("len(ch) = %d, want %d", len(l.ch), cap(l.ch))
	}
	if got := <-l.Actions(); got != ActionSave {
		t.Errorf("action = %v, want save", got)
	}
}

func TestStopIdempotent(t *testing.T) {
	l, err := NewListener(nil)
	if err != nil {
		t.Fatal(err)
	}
	l.Stop()
	l.Stop()
}

func TestActionString(t *testing.T) {
	if ActionToggle.String() != "toggle" || ActionSave.String() != "save" {
		t.Errorf("unexpected names %q %q", ActionToggle, ActionSave)
	}
	if got := Action(9).String(); got != "Action(9)" {
		t.Errorf("Action(9).String() = %q", got)
	}
}
