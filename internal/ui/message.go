package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/melodyforge/internal/tasks"
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
	MsgProgressUpdate MsgKind = iota
	MsgResponse
)

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// responseMsg is the constructor for [MsgResponse]
func responseMsg(resp *tasks.Response) Msg {
	return Msg{kind: MsgResponse, data: resp}
}
