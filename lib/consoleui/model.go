// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package consoleui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bindery-foundation/bindery/lib/binder"
)

// FocusRegion identifies which pane has keyboard focus.
type FocusRegion int

const (
	// FocusVerbs means navigation keys move the verb list cursor.
	FocusVerbs FocusRegion = iota
	// FocusPayload means keystrokes edit the payload buffer.
	FocusPayload
)

// verbRow is one line of the flattened API/verb list. Header rows
// carry the API name; verb rows are selectable.
type verbRow struct {
	api    string
	verb   binder.VerbInfo
	header bool
}

// describeResultMsg delivers the API list loaded from the source.
type describeResultMsg struct {
	apis []binder.APIDescription
	err  error
}

// callResultMsg delivers the result of an asynchronous verb call.
type callResultMsg struct {
	api     string
	verb    string
	outcome *binder.Outcome
	err     error
}

// sessionResultMsg delivers a freshly minted session token.
type sessionResultMsg struct {
	token string
	err   error
}

// Model is the bubbletea model for the binder console.
type Model struct {
	source Source
	theme  Theme
	keys   KeyMap

	rows   []verbRow
	cursor int
	focus  FocusRegion

	payload string

	log      viewport.Model
	logLines []string

	session string
	status  string

	width  int
	height int
	ready  bool
}

// NewModel creates a console model backed by source.
func NewModel(source Source) Model {
	return Model{
		source: source,
		theme:  DefaultTheme,
		keys:   DefaultKeyMap,
		status: "loading apis...",
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return describeCmd(model.source)
}

func describeCmd(source Source) tea.Cmd {
	return func() tea.Msg {
		apis, err := source.Describe(context.Background())
		return describeResultMsg{apis: apis, err: err}
	}
}

func callCmd(source Source, api, verb string, payload map[string]any) tea.Cmd {
	return func() tea.Msg {
		outcome, err := source.CallVerb(context.Background(), api, verb, payload)
		return callResultMsg{api: api, verb: verb, outcome: outcome, err: err}
	}
}

func sessionCmd(source Source) tea.Cmd {
	return func() tea.Msg {
		token, err := source.NewSession(context.Background())
		return sessionResultMsg{token: token, err: err}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case describeResultMsg:
		if message.err != nil {
			model.status = fmt.Sprintf("describe failed: %v", message.err)
			return model, nil
		}
		model.setAPIs(message.apis)
		model.status = fmt.Sprintf("%d apis", len(message.apis))
		return model, nil

	case callResultMsg:
		model.appendCallResult(message)
		return model, nil

	case sessionResultMsg:
		if message.err != nil {
			model.status = fmt.Sprintf("session failed: %v", message.err)
			return model, nil
		}
		model.session = message.token
		model.status = "session minted; later calls carry it"
		return model, nil

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.layout()
		model.ready = true
		return model, nil

	case tea.KeyMsg:
		if model.focus == FocusPayload {
			return model.updatePayload(message)
		}
		return model.updateList(message)
	}

	return model, nil
}

// setAPIs rebuilds the flattened row list from a describe response.
func (model *Model) setAPIs(apis []binder.APIDescription) {
	model.rows = model.rows[:0]
	for _, api := range apis {
		model.rows = append(model.rows, verbRow{api: api.Name, header: true})
		for _, verb := range api.Verbs {
			model.rows = append(model.rows, verbRow{api: api.Name, verb: verb})
		}
	}
	if model.cursor >= len(model.rows) {
		model.cursor = 0
	}
	model.skipHeaders(1)
}

// updateList handles keys while the verb list has focus.
func (model Model) updateList(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		model.moveCursor(-1)

	case key.Matches(message, model.keys.Down):
		model.moveCursor(1)

	case key.Matches(message, model.keys.PageUp):
		model.log.HalfViewUp()

	case key.Matches(message, model.keys.PageDown):
		model.log.HalfViewDown()

	case key.Matches(message, model.keys.Call):
		return model.callSelected()

	case key.Matches(message, model.keys.PayloadActivate):
		model.focus = FocusPayload
		model.status = "editing payload (enter to finish, esc to cancel)"

	case key.Matches(message, model.keys.PayloadClear):
		model.payload = ""
		model.status = "payload cleared"

	case key.Matches(message, model.keys.NewSession):
		return model, sessionCmd(model.source)

	case key.Matches(message, model.keys.Refresh):
		return model, describeCmd(model.source)
	}
	return model, nil
}

// updatePayload handles keys while the payload buffer has focus. The
// buffer is edited in place; enter keeps it, escape discards the
// edits made since activation is not tracked, so escape just leaves
// the buffer as typed.
func (model Model) updatePayload(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEnter, tea.KeyEsc:
		model.focus = FocusVerbs
		model.status = ""

	case tea.KeyBackspace:
		if len(model.payload) > 0 {
			model.payload = model.payload[:len(model.payload)-1]
		}

	case tea.KeySpace:
		model.payload += " "

	case tea.KeyRunes:
		model.payload += string(message.Runes)
	}
	return model, nil
}

// callSelected parses the payload buffer and dispatches a call for
// the verb under the cursor.
func (model Model) callSelected() (tea.Model, tea.Cmd) {
	row, ok := model.selectedRow()
	if !ok {
		model.status = "no verb selected"
		return model, nil
	}

	var payload map[string]any
	if trimmed := strings.TrimSpace(model.payload); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
			model.status = fmt.Sprintf("payload is not a JSON object: %v", err)
			return model, nil
		}
	}

	model.status = fmt.Sprintf("calling %s/%s...", row.api, row.verb.Name)
	return model, callCmd(model.source, row.api, row.verb.Name, payload)
}

// selectedRow returns the verb row under the cursor.
func (model *Model) selectedRow() (verbRow, bool) {
	if model.cursor < 0 || model.cursor >= len(model.rows) {
		return verbRow{}, false
	}
	row := model.rows[model.cursor]
	if row.header {
		return verbRow{}, false
	}
	return row, true
}

// moveCursor shifts the cursor by delta, skipping header rows.
func (model *Model) moveCursor(delta int) {
	if len(model.rows) == 0 {
		return
	}
	next := model.cursor + delta
	for next >= 0 && next < len(model.rows) && model.rows[next].header {
		next += delta
	}
	if next < 0 || next >= len(model.rows) {
		return
	}
	model.cursor = next
}

// skipHeaders nudges the cursor off a header row in the given
// direction, used after the row list is rebuilt.
func (model *Model) skipHeaders(direction int) {
	for model.cursor >= 0 && model.cursor < len(model.rows) && model.rows[model.cursor].header {
		model.cursor += direction
	}
	if model.cursor < 0 || model.cursor >= len(model.rows) {
		model.cursor = 0
	}
}

// appendCallResult formats a call result into the outcome log and
// scrolls it into view.
func (model *Model) appendCallResult(message callResultMsg) {
	stamp := time.Now().Format("15:04:05")
	target := message.api + "/" + message.verb

	var line string
	switch {
	case message.err != nil:
		line = failStyle(model.theme).Render(fmt.Sprintf("%s %s error: %v", stamp, target, message.err))
		model.status = fmt.Sprintf("%s failed", target)
	case !message.outcome.OK:
		line = failStyle(model.theme).Render(fmt.Sprintf("%s %s %s: %s", stamp, target, message.outcome.Code, message.outcome.Message))
		model.status = fmt.Sprintf("%s rejected (%s)", target, message.outcome.Code)
	default:
		data := ""
		if len(message.outcome.Data) > 0 {
			encoded, err := json.Marshal(message.outcome.Data)
			if err == nil {
				data = " " + string(encoded)
			}
		}
		line = okStyle(model.theme).Render(fmt.Sprintf("%s %s ok%s", stamp, target, data))
		model.status = fmt.Sprintf("%s ok", target)
	}

	model.logLines = append(model.logLines, line)
	model.log.SetContent(strings.Join(model.logLines, "\n"))
	model.log.GotoBottom()
}
