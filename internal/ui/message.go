package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lorenzo132/spotify-playing/internal/poll"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPollUpdate MsgKind = iota
	MsgPollClosed
)

// pollUpdateMsg is the constructor for [MsgPollUpdate]
func pollUpdateMsg(update poll.Update) Msg {
	return Msg{kind: MsgPollUpdate, data: update}
}

// pollClosedMsg is the constructor for [MsgPollClosed]
func pollClosedMsg() Msg {
	return Msg{kind: MsgPollClosed}
}
