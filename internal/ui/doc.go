// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a small loop over the engine:
//  1. [QueryView] : type a search, or a command such as /top, /mix, /history, /artist <name>, /mode <basic|extended>
//  2. [WorkingView] : spinner plus the latest progress update while the engine runs
//  3. [ResultsView] : every action of every result row as a list item; enter selects it
//  4. [MessageView] : text-only answers, errors, and the promotion after a download
//
// Each request runs in its own goroutine. Progress updates flow through a buffered channel that
// the engine writes to without blocking; the model drains it one message at a time.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
