package tray

import (
	"testing"

	"github.com/ayusman/chitra/internal/gesture"
	"github.com/ayusman/chitra/internal/painter"
)

func TestTray_Toggle(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Fatal("tray should start enabled")
	}

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("two toggles should leave the tray enabled")
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New()

	cleared, opened := 0, 0
	tr.OnClear(func() { cleared++ })
	tr.OnOpen(func() { opened++ })

	tr.call(tr.onClearFn())
	tr.call(tr.onOpenFn())
	tr.call(tr.onOpenFn())

	if cleared != 1 || opened != 2 {
		t.Errorf("cleared = %d, opened = %d", cleared, opened)
	}

	// no menu yet: must not panic
	tr.SetState(painter.State{Color: "red"})
	New().call(nil)
}

func TestTitles(t *testing.T) {
	tests := []struct {
		st   painter.State
		want string
	}{
		{painter.State{}, "Brush: waiting for camera"},
		{painter.State{Color: "blue", Thickness: 12, Mode: gesture.ModeDraw}, "Brush: blue, 12px (draw)"},
	}
	for _, tt := range tests {
		if got := statusTitle(tt.st); got != tt.want {
			t.Errorf("statusTitle(%+v) = %q, want %q", tt.st, got, tt.want)
		}
	}

	if toggleTitle(true) == toggleTitle(false) {
		t.Error("toggle titles should differ")
	}
}
