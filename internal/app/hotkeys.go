package app

import (
	"github.com/cwbudde/algo-player/internal/hotkeys"
)

// Hotkeys returns the player's key bindings. Actions that load sources
// block until the load finishes.
func (s *Session) Hotkeys() hotkeys.Table {
	run := func(name string, fn func() error) func() {
		return func() {
			if err := fn(); err != nil {
				s.logger.Warn("hotkey failed", "action", name, "error", err)
			}
		}
	}

	return hotkeys.Table{
		{Key: " ", PreventDefault: true, Help: "play/pause", Action: run("toggle", func() error { return s.TogglePlay(s.ctx) })},
		{Key: "n", Help: "next", Action: run("next", func() error { return s.Next(s.ctx) })},
		{Key: "p", Help: "previous", Action: run("prev", func() error { return s.Prev(s.ctx) })},
		{Key: "right", PreventDefault: true, Help: "forward 10s", Action: s.SeekForward},
		{Key: "left", PreventDefault: true, Help: "back 10s", Action: s.SeekBackward},
		{Key: "u", Help: "undo seek", Action: func() { s.UndoSeek() }},
		{Key: "e", Help: "next equalizer preset", Action: func() { s.CyclePreset() }},
		{Key: "v", Help: "next visualization", Action: func() { s.CycleVisualization() }},
	}
}
