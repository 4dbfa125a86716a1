package hotkey

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// aliases maps alternative spellings onto the key names used by the hook's keycode table.
var aliases = map[string]string{
	"super":   "cmd",
	"meta":    "cmd",
	"win":     "cmd",
	"command": "cmd",
	"control": "ctrl",
	"option":  "alt",
	"opt":     "alt",
	"return":  "enter",
	"esc":     "escape",
}

// Chord is a set of keys that must be held together. Each position accepts
// any of its codes, so "ctrl" matches both the left and right key.
type Chord struct {
	Raw  string
	Keys [][]uint16
}

// Parse reads a chord such as "ctrl+cmd+h" or "<ctrl>+<alt>+space" against lookup,
// a key name to keycode table.
func Parse(raw string, lookup map[string]uint16) (Chord, error) {
	parts := strings.Split(raw, "+")
	chord := Chord{Raw: raw}
	seen := make(map[string]bool)

	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		name = strings.TrimSuffix(strings.TrimPrefix(name, "<"), ">")
		if name == "" {
			return Chord{}, fmt.Errorf("invalid chord %q: empty key", raw)
		}
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		if seen[name] {
			return Chord{}, fmt.Errorf("invalid chord %q: %s repeated", raw, name)
		}
		seen[name] = true

		code, ok := lookup[name]
		if !ok {
			return Chord{}, fmt.Errorf("invalid chord %q: unknown key %q", raw, name)
		}
		codes := []uint16{code}
		// modifiers have a right-hand twin named r<name>
		if right, ok := lookup["r"+name]; ok && right != code && isModifier(name) {
			codes = append(codes, right)
		}
		chord.Keys = append(chord.Keys, codes)
	}
	return chord, nil
}

func isModifier(name string) bool {
	switch name {
	case "ctrl", "alt", "shift", "cmd":
		return true
	}
	return false
}

// String renders the chord in canonical order for logs.
func (c Chord) String() string {
	parts := strings.Split(strings.ToLower(c.Raw), "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	sort.SliceStable(parts, func(i, j int) bool {
		return isModifier(parts[i]) && !isModifier(parts[j])
	})
	return strings.Join(parts, "+")
}

// Matcher turns raw key presses and releases into one fire per chord press.
// Autorepeat presses while the chord is held do not fire again, and the
// chord must be released before it can fire again.
type Matcher struct {
	chord Chord

	mu      sync.Mutex
	pressed map[uint16]bool
	latched bool
}

func NewMatcher(chord Chord) *Matcher {
	return &Matcher{chord: chord, pressed: make(map[uint16]bool)}
}

// Press records code as held and reports whether the chord just became complete.
func (m *Matcher) Press(code uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pressed[code] = true
	if m.latched || !m.complete() {
		return false
	}
	m.latched = true
	return true
}

// Release records code as up. Releasing any chord key re-arms the matcher.
func (m *Matcher) Release(code uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pressed, code)
	if m.latched && !m.complete() {
		m.latched = false
	}
}

// Reset forgets every held key.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pressed = make(map[uint16]bool)
	m.latched = false
}

func (m *Matcher) complete() bool {
	if len(m.chord.Keys) == 0 {
		return false
	}
	for _, codes := range m.chord.Keys {
		held := false
		for _, code := range codes {
			if m.pressed[code] {
				held = true
				break
			}
		}
		if !held {
			return false
		}
	}
	return true
}
