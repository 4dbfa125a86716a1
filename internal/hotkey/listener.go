package hotkey

import (
	"context"

	hook "github.com/robotn/gohook"
	"go.uber.org/zap"
)

// Listener watches the global keyboard hook for one chord.
type Listener struct {
	matcher *Matcher
	chord   Chord

	// start opens the event stream and returns the function that closes it
	start func() (<-chan hook.Event, func())
}

// NewListener parses raw against the hook's keycode table.
func NewListener(raw string) (*Listener, error) {
	chord, err := Parse(raw, hook.Keycode)
	if err != nil {
		return nil, err
	}
	return &Listener{
		matcher: NewMatcher(chord),
		chord:   chord,
		start:   startHook,
	}, nil
}

// Validate reports whether raw names only keys the hook knows.
func Validate(raw string) error {
	_, err := Parse(raw, hook.Keycode)
	return err
}

func startHook()(<-chan hook.Event, func()) {
	return hook.Start(), hook.End
}

func (l *Listener) Chord() Chord {
	return l.chord
}

// Run calls onToggle once per chord press until ctx is done. onToggle runs on
// the hook goroutine and must not block.
func (l *Listener) Run(ctx context.Context, onToggle func()) error {
	events, stop := l.start()
	defer stop()
	defer l.matcher.Reset()

	zap.S().Infof("hotkey: listening for %s", l.chord)

	for {
		select {
		case <-ctx.Done():
			zap.S().Infof("hotkey: listener stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				zap.S().Warnf("hotkey: event stream closed")
				return nil
			}
			l.handle(ev, onToggle)
		}
	}
}

func (l *Listener) handle(ev hook.Event, onToggle func()) {
	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		// typed events carry only a character
		if ev.Keycode == 0 {
			return
		}
		if l.matcher.Press(ev.Keycode) {
			zap.S().Debugf("hotkey: %s pressed", l.chord)
			onToggle()
		}
	case hook.KeyUp:
		l.matcher.Release(ev.Keycode)
	}
}
