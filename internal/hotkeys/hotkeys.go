// Package hotkeys matches key presses against a binding table.
package hotkeys

import "strings"

// Event is a key press.
type Event struct {
	Key   string
	Ctrl  bool
	Shift bool
	Alt   bool
}

// Binding maps a key chord to an action. Modifiers must match exactly;
// the key matches case-insensitively.
type Binding struct {
	Key            string
	Ctrl           bool
	Shift          bool
	Alt            bool
	PreventDefault bool
	Help           string
	Action         func()
}

func (b Binding) matches(ev Event) bool {
	return strings.EqualFold(b.Key, ev.Key) && b.Ctrl == ev.Ctrl && b.Shift == ev.Shift && b.Alt == ev.Alt
}

// Table is an ordered binding list; the first match wins.
type Table []Binding

// Handle runs the first binding matching ev. It reports whether a binding
// ran and whether it asked for the default handling to be suppressed.
func (t Table) Handle(ev Event) (handled, preventDefault bool) {
	for _, b := range t {
		if !b.matches(ev) {
			continue
		}

		if b.Action != nil {
			b.Action()
		}

		return true, b.PreventDefault
	}

	return false, false
}

// Lookup returns the first binding matching ev without running it.
func (t Table) Lookup(ev Event) (Binding, bool) {
	for _, b := range t {
		if b.matches(ev) {
			return b, true
		}
	}

	return Binding{}, false
}

// Chord renders a binding as e.g. "ctrl+shift+k".
func (b Binding) Chord() string {
	var parts []string
	if b.Ctrl {
		parts = append(parts, "ctrl")
	}
	if b.Alt {
		parts = append(parts, "alt")
	}
	if b.Shift {
		parts = append(parts, "shift")
	}

	return strings.Join(append(parts, strings.ToLower(b.Key)), "+")
}
