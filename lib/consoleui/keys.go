// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package consoleui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the binder console.
type KeyMap struct {
	// Navigation within the verb list.
	Up   key.Binding
	Down key.Binding

	// Log scrolling.
	PageUp   key.Binding
	PageDown key.Binding

	// Call the selected verb.
	Call key.Binding

	// Payload editing.
	PayloadActivate key.Binding // Enter payload edit mode.
	PayloadClear    key.Binding // Clear the payload buffer.

	// Session management.
	NewSession key.Binding // Mint a session for subsequent calls.

	// Reload the API list from the binder.
	Refresh key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside standard arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll log up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "scroll log down"),
	),
	Call: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "call verb"),
	),
	PayloadActivate: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "edit payload"),
	),
	PayloadClear: key.NewBinding(
		key.WithKeys("P"),
		key.WithHelp("P", "clear payload"),
	),
	NewSession: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "new session"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
