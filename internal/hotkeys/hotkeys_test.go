package hotkeys

import "testing"

func TestFirstMatchWins(t *testing.T) {
	t.Parallel()

	var ran []string
	table := Table{
		{Key: " ", PreventDefault: true, Action: func() { ran = append(ran, "toggle") }},
		{Key: "ArrowRight", Action: func() { ran = append(ran, "forward") }},
		{Key: "ArrowRight", Shift: true, Action: func() { ran = append(ran, "next") }},
		{Key: "arrowright", Action: func() { ran = append(ran, "shadowed") }},
	}

	handled, prevent := table.Handle(Event{Key: " "})
	if !handled || !prevent {
		t.Fatalf("space = %v %v", handled, prevent)
	}

	if handled, prevent := table.Handle(Event{Key: "ARROWRIGHT"}); !handled || prevent {
		t.Fatalf("arrow = %v %v", handled, prevent)
	}
	table.Handle(Event{Key: "ArrowRight", Shift: true})

	if handled, _ := table.Handle(Event{Key: "ArrowRight", Ctrl: true}); handled {
		t.Fatal("extra modifier matched")
	}
	if handled, _ := table.Handle(Event{Key: "x"}); handled {
		t.Fatal("unbound key matched")
	}

	want := []string{"toggle", "forward", "next"}
	if len(ran) != len(want) {
		t.Fatalf("ran = %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("ran = %v, want %v", ran, want)
		}
	}
}

func TestLookupAndChord(t *testing.T) {
	t.Parallel()

	table := Table{{Key: "K", Ctrl: true, Shift: true, Help: "mute"}}

	b, ok := table.Lookup(Event{Key: "k", Ctrl: true, Shift: true})
	if !ok || b.Help != "mute" {
		t.Fatalf("Lookup = %+v %v", b, ok)
	}
	if got := b.Chord(); got != "ctrl+shift+k" {
		t.Fatalf("Chord = %q", got)
	}

	// a binding without an action still counts as handled
	if handled, _ := table.Handle(Event{Key: "K", Ctrl: true, Shift: true}); !handled {
		t.Fatal("nil action not handled")
	}
}
