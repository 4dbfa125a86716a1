package hotkey

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	hook "github.com/robotn/gohook"
)

var testKeys = map[string]uint16{
	"ctrl":   29,
	"rctrl":  3613,
	"alt":    56,
	"shift":  42,
	"cmd":    3675,
	"rcmd":   3676,
	"h":      35,
	"space":  57,
	"enter":  28,
	"escape": 1,
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    [][]uint16
		wantErr bool
	}{
		{name: "default chord", raw: "ctrl+cmd+h", want: [][]uint16{{29, 3613}, {3675, 3676}, {35}}},
		{name: "aliases", raw: "Control+Super+Space", want: [][]uint16{{29, 3613}, {3675, 3676}, {57}}},
		{name: "bracket style", raw: "<ctrl>+<alt>+h", want: [][]uint16{{29, 3613}, {56}, {35}}},
		{name: "single key", raw: "esc", want: [][]uint16{{1}}},
		{name: "unknown key", raw: "ctrl+hyper", wantErr: true},
		{name: "empty part", raw: "ctrl++h", wantErr: true},
		{name: "repeated key", raw: "ctrl+control+h", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chord, err := Parse(tt.raw, testKeys)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.raw, err)
			}
			if len(chord.Keys) != len(tt.want) {
				t.Fatalf("got %v, want %v", chord.Keys, tt.want)
			}
			for i := range tt.want {
				if len(chord.Keys[i]) != len(tt.want[i]) {
					t.Fatalf("key %d: got %v, want %v", i, chord.Keys[i], tt.want[i])
				}
				for j := range tt.want[i] {
					if chord.Keys[i][j] != tt.want[i][j] {
						t.Errorf("key %d: got %v, want %v", i, chord.Keys[i], tt.want[i])
					}
				}
			}
		})
	}
}

func TestChordString(t *testing.T) {
	chord, err := Parse("h+Ctrl+cmd", testKeys)
	if err != nil {
		t.Fatal(err)
	}
	if got := chord.String(); got != "ctrl+cmd+h" {
		t.Errorf("String() = %q, want ctrl+cmd+h", got)
	}
}

func TestMatcherFiresOncePerPress(t *testing.T) {
	chord, _ := Parse("ctrl+cmd+h", testKeys)
	m := NewMatcher(chord)

	if m.Press(29) || m.Press(3675) {
		t.Fatal("partial chord should not fire")
	}
	if !m.Press(35) {
		t.Fatal("completing the chord should fire")
	}

	// autorepeat
	for i := 0; i < 5; i++ {
		if m.Press(35) {
			t.Fatal("autorepeat should not fire again")
		}
	}

	m.Release(35)
	if m.Press(3675) {
		t.Error("chord is incomplete until h is pressed again")
	}
	if !m.Press(35) {
		t.Error("pressing h again with modifiers held should fire")
	}
}

func TestMatcherRightModifiers(t *testing.T) {
	chord, _ := Parse("ctrl+cmd+h", testKeys)
	m := NewMatcher(chord)

	m.Press(3613)
	m.Press(3676)
	if !m.Press(35) {
		t.Error("right-hand modifiers should satisfy the chord")
	}
}

func TestMatcherUnrelatedRelease(t *testing.T) {
	chord, _ := Parse("ctrl+h", testKeys)
	m := NewMatcher(chord)

	m.Press(42)
	m.Press(29)
	if !m.Press(35) {
		t.Fatal("extra held keys should not block the chord")
	}
	m.Release(42)
	if m.Press(35) {
		t.Error("releasing an unrelated key must not re-arm the chord")
	}
}

func TestListenerRun(t *testing.T) {
	chord, _ := Parse("ctrl+h", testKeys)
	events := make(chan hook.Event, 16)
	var stopped atomic.Bool

	l := &Listener{
		matcher: NewMatcher(chord),
		chord:   chord,
		start: func() (<-chan hook.Event, func()) {
			return events, func() { stopped.Store(true) }
		},
	}

	var toggles atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, func() { toggles.Add(1) })
	}()

	press := func(code uint16) { events <- hook.Event{Kind: hook.KeyHold, Keycode: code} }
	release := func(code uint16) { events <- hook.Event{Kind: hook.KeyUp, Keycode: code} }

	press(29)
	press(35)
	press(35) // autorepeat
	events <- hook.Event{Kind: hook.KeyDown, Keychar: 'h'}
	release(35)
	release(29)
	press(29)
	press(35)

	deadline := time.Now().Add(2 * time.Second)
	for toggles.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if got := toggles.Load(); got != 2 {
		t.Errorf("expected 2 toggles, got %d", got)
	}
	if !stopped.Load() {
		t.Error("hook should be stopped when Run returns")
	}
}
