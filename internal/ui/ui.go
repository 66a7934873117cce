package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lorenzo132/spotify-playing/internal/models"
	"github.com/lorenzo132/spotify-playing/internal/poll"
)

// Model represents the watch TUI application state.
//
// The model consumes [poll.Update] values from the poller channel and renders
// the current track with a progress bar. It owns no polling logic itself.
type Model struct {
	updates  <-chan poll.Update
	snapshot models.Snapshot
	err      error
	closed   bool
	width    int
	bar      progress.Model
	help     help.Model
	keys     keyMap
}

// NewModel creates a watch TUI model consuming the given update channel.
func NewModel(updates <-chan poll.Update) Model {
	return Model{
		updates: updates,
		bar:     progress.New(progress.WithDefaultGradient()),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// waitForUpdate returns a command that blocks on the next poller update.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.updates
		if !ok {
			return pollClosedMsg()
		}
		return pollUpdateMsg(update)
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-8, 60)

	case Msg:
		switch msg.kind {
		case MsgPollUpdate:
			update := msg.data.(poll.Update)
			if update.Err != nil {
				m.err = update.Err
			} else {
				m.err = nil
				m.snapshot = update.Snapshot
			}
			return m, m.waitForUpdate()

		case MsgPollClosed:
			m.closed = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("♪ Now Playing"))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render("✗ " + m.err.Error()))
		b.WriteString("\n")

	case !m.snapshot.Playing:
		b.WriteString(styles.warn.Render("Nothing is currently playing."))
		b.WriteString("\n")

	default:
		s := m.snapshot
		b.WriteString(styles.ok.Render(s.Track))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s — %s\n\n", s.Artist, s.Album))

		if s.DurationMS > 0 {
			percent := float64(s.ProgressMS) / float64(s.DurationMS)
			b.WriteString(m.bar.ViewAs(percent))
			b.WriteString("\n")
		}
		b.WriteString(styles.help.Render(fmt.Sprintf("%s / %s", formatDuration(s.ProgressMS), formatDuration(s.DurationMS))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// formatDuration renders a millisecond count as M:SS.
func formatDuration(ms int64) string {
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
