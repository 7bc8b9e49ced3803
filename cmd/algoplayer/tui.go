package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cwbudde/algo-player/internal/app"
	"github.com/cwbudde/algo-player/internal/hotkeys"
	"github.com/cwbudde/algo-player/internal/mediasession"
	"github.com/cwbudde/algo-player/internal/playback"
)

const tickInterval = 50 * time.Millisecond

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#32648C", Dark: "#64C8FF"})
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

// levelStyles colour spectrum columns from quiet to loud.
var levelStyles = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("#3C8CDC")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#50C8A0")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#F0C850")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#F06450")),
}

var levelRunes = []rune(" ▁▂▃▄▅▆▇█")

type tickMsg time.Time

type actionMsg struct {
	name string
	err  error
}

type model struct {
	session *app.Session
	keys    hotkeys.Table
	start   func(context.Context) error

	state   playback.State
	meta    mediasession.Metadata
	preset  string
	viz     string
	bins    []byte
	width   int
	status  string
	failure bool
}

func newModel(s *app.Session, start func(context.Context) error) model {
	return model{
		session: s,
		keys:    s.Hotkeys(),
		start:   start,
		width:   termWidth(),
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	start := m.start

	return tea.Batch(tickCmd(), func() tea.Msg {
		return actionMsg{name: "start", err: start(context.Background())}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

		return m, nil
	case tea.KeyMsg:
		if s := msg.String(); s == "q" || s == "ctrl+c" || s == "esc" {
			return m, tea.Quit
		}

		b, ok := m.keys.Lookup(keyEvent(msg.String()))
		if !ok || b.Action == nil {
			return m, nil
		}

		// Actions that load sources block, so they run off the UI loop.
		return m, func() tea.Msg {
			b.Action()

			return actionMsg{name: b.Help}
		}
	case actionMsg:
		m.status, m.failure = msg.name, msg.err != nil
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.name, msg.err)
		}

		return m, nil
	case tickMsg:
		m.refresh()

		return m, tickCmd()
	}

	return m, nil
}

func (m *model) refresh() {
	m.state = m.session.Player().State()
	m.meta = m.session.MediaSession().Metadata()

	snap := m.session.Settings().Snapshot()
	m.preset, m.viz = snap.EqualizerPreset, snap.Visualization

	an := m.session.Graph().Analyser()
	if an == nil {
		m.bins = m.bins[:0]

		return
	}

	n := an.FrequencyBinCount()
	if len(m.bins) != n {
		m.bins = make([]byte, n)
	}
	an.ByteFrequencyData(m.bins)
}

func (m model) View() string {
	width := max(m.width-4, 20)

	var b strings.Builder

	title := m.meta.Title
	if title == "" {
		title = "Nothing playing"
	}
	b.WriteString(titleStyle.Render(title))
	if m.meta.Artist != "" {
		b.WriteString(subtleStyle.Render("  " + m.meta.Artist))
	}
	b.WriteString("\n\n")

	b.WriteString(spectrumRow(m.bins, width))
	b.WriteString("\n")
	b.WriteString(barStyle.Render(progressBar(m.state.Progress(), width)))
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s  %s / %s  vol %d%%",
		m.state.Status,
		playback.FormatTime(m.state.CurrentTime),
		playback.FormatTime(m.state.Duration),
		int(m.state.Volume*100+0.5),
	)
	if m.state.Error != "" {
		b.WriteString("  " + errorStyle.Render(m.state.Error))
	}
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("eq %s  viz %s", m.preset, m.viz)))
	b.WriteString("\n\n")

	if m.status != "" {
		style := subtleStyle
		if m.failure {
			style = errorStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(subtleStyle.Render(helpLine(m.keys)))
	b.WriteString("\n")

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// keyEvent translates a bubbletea key string such as "ctrl+shift+left"
// into a hotkey event.
func keyEvent(s string) hotkeys.Event {
	var ev hotkeys.Event
	for {
		switch {
		case strings.HasPrefix(s, "ctrl+"):
			ev.Ctrl, s = true, s[len("ctrl+"):]
		case strings.HasPrefix(s, "alt+"):
			ev.Alt, s = true, s[len("alt+"):]
		case strings.HasPrefix(s, "shift+"):
			ev.Shift, s = true, s[len("shift+"):]
		default:
			ev.Key = s

			return ev
		}
	}
}

// spectrumRow folds the frequency bins into width columns of block runes,
// keeping the peak of each column.
func spectrumRow(bins []byte, width int) string {
	if len(bins) == 0 || width <= 0 {
		return strings.Repeat(" ", max(width, 0))
	}

	// The top bins are nearly always silent.
	used := bins[:max(len(bins)/2, 1)]

	var b strings.Builder
	for col := range width {
		lo := col * len(used) / width
		hi := max((col+1)*len(used)/width, lo+1)

		var peak byte
		for _, v := range used[lo:min(hi, len(used))] {
			peak = max(peak, v)
		}

		r := levelRunes[int(peak)*(len(levelRunes)-1)/255]
		b.WriteString(levelStyles[int(peak)*len(levelStyles)/256].Render(string(r)))
	}

	return b.String()
}

func progressBar(percent, width int) string {
	filled := min(max(percent, 0), 100) * width / 100

	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

func helpLine(keys hotkeys.Table) string {
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		chord := k.Chord()
		if chord == " " {
			chord = "space"
		}
		parts = append(parts, chord+" "+k.Help)
	}

	return strings.Join(append(parts, "q quit"), " · ")
}
