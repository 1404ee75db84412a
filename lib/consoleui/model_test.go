// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package consoleui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bindery-foundation/bindery/lib/binder"
)

// fakeSource implements Source in memory and records the last call.
type fakeSource struct {
	apis []binder.APIDescription

	lastAPI     string
	lastVerb    string
	lastPayload map[string]any
	outcome     *binder.Outcome
	callErr     error
}

func (f *fakeSource) Describe(ctx context.Context) ([]binder.APIDescription, error) {
	return f.apis, nil
}

func (f *fakeSource) CallVerb(ctx context.Context, api, verb string, payload map[string]any) (*binder.Outcome, error) {
	f.lastAPI = api
	f.lastVerb = verb
	f.lastPayload = payload
	return f.outcome, f.callErr
}

func (f *fakeSource) NewSession(ctx context.Context) (string, error) {
	return "tok-console-1", nil
}

func twoAPISource() *fakeSource {
	return &fakeSource{
		apis: []binder.APIDescription{
			{
				Name: "demo",
				Verbs: []binder.VerbInfo{
					{Name: "ping-global"},
					{Name: "auth"},
				},
			},
			{
				Name: "vault",
				Verbs: []binder.VerbInfo{
					{Name: "open", Assurance: 1},
				},
			},
		},
		outcome: &binder.Outcome{OK: true, Data: map[string]any{"count": int64(7)}},
	}
}

// advance runs one Update cycle and returns the concrete model.
func advance(t *testing.T, model Model, message tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := model.Update(message)
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return next, cmd
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func loadedModel(t *testing.T, source Source) Model {
	t.Helper()
	model := NewModel(source)
	model, _ = advance(t, model, tea.WindowSizeMsg{Width: 100, Height: 30})

	message := model.Init()()
	model, _ = advance(t, model, message)
	return model
}

func TestDescribeBuildsRowList(t *testing.T) {
	t.Parallel()
	model := loadedModel(t, twoAPISource())

	var got []string
	for _, row := range model.rows {
		if row.header {
			got = append(got, "["+row.api+"]")
			continue
		}
		got = append(got, row.verb.Name)
	}
	want := []string{"[demo]", "ping-global", "auth", "[vault]", "open"}
	if len(got) != len(want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rows = %v, want %v", got, want)
		}
	}

	// Cursor starts on the first verb, not the header.
	if model.rows[model.cursor].header || model.rows[model.cursor].verb.Name != "ping-global" {
		t.Errorf("cursor on row %d (%+v), want first verb", model.cursor, model.rows[model.cursor])
	}
}

func TestCursorSkipsHeaders(t *testing.T) {
	t.Parallel()
	model := loadedModel(t, twoAPISource())

	// Down twice: ping-global -> auth -> (skip vault header) -> open.
	model, _ = advance(t, model, keyMsg('j'))
	model, _ = advance(t, model, keyMsg('j'))
	if row, _ := model.selectedRow(); row.verb.Name != "open" {
		t.Errorf("cursor on %q, want %q", row.verb.Name, "open")
	}

	// Up once goes back across the header to auth.
	model, _ = advance(t, model, keyMsg('k'))
	if row, _ := model.selectedRow(); row.verb.Name != "auth" {
		t.Errorf("cursor on %q, want %q", row.verb.Name, "auth")
	}

	// The cursor stops at the edges.
	model, _ = advance(t, model, keyMsg('k'))
	model, _ = advance(t, model, keyMsg('k'))
	if row, _ := model.selectedRow(); row.verb.Name != "ping-global" {
		t.Errorf("cursor on %q, want %q", row.verb.Name, "ping-global")
	}
}

func TestCallSelectedVerb(t *testing.T) {
	t.Parallel()
	source := twoAPISource()
	model := loadedModel(t, source)

	model, cmd := advance(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter on a verb produced no command")
	}

	model, _ = advance(t, model, cmd())
	if source.lastAPI != "demo" || source.lastVerb != "ping-global" {
		t.Errorf("called %s/%s, want demo/ping-global", source.lastAPI, source.lastVerb)
	}
	if len(model.logLines) != 1 {
		t.Fatalf("log has %d lines, want 1", len(model.logLines))
	}
	if !strings.Contains(model.logLines[0], "demo/ping-global") {
		t.Errorf("log line %q does not name the call", model.logLines[0])
	}
	if !strings.Contains(model.logLines[0], `"count":7`) {
		t.Errorf("log line %q does not carry the reply data", model.logLines[0])
	}
}

func TestPayloadEditingAndDispatch(t *testing.T) {
	t.Parallel()
	source := twoAPISource()
	model := loadedModel(t, source)

	// Enter payload mode and type an object.
	model, _ = advance(t, model, keyMsg('p'))
	if model.focus != FocusPayload {
		t.Fatal("p did not focus the payload editor")
	}
	for _, r := range `{"kph":42}` {
		model, _ = advance(t, model, keyMsg(r))
	}
	model, _ = advance(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if model.focus != FocusVerbs {
		t.Fatal("enter did not leave the payload editor")
	}
	if model.payload != `{"kph":42}` {
		t.Fatalf("payload buffer = %q", model.payload)
	}

	model, cmd := advance(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter on a verb produced no command")
	}
	_, _ = advance(t, model, cmd())
	if source.lastPayload["kph"] != float64(42) {
		t.Errorf("payload sent = %v, want kph=42", source.lastPayload)
	}
}

func TestRejectsMalformedPayload(t *testing.T) {
	t.Parallel()
	source := twoAPISource()
	model := loadedModel(t, source)

	model, _ = advance(t, model, keyMsg('p'))
	for _, r := range `{"broken` {
		model, _ = advance(t, model, keyMsg(r))
	}
	model, _ = advance(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	model, cmd := advance(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("malformed payload still dispatched a call")
	}
	if !strings.Contains(model.status, "payload") {
		t.Errorf("status %q does not explain the rejection", model.status)
	}
}

func TestFailedOutcomeInLog(t *testing.T) {
	t.Parallel()
	source := twoAPISource()
	source.outcome = &binder.Outcome{OK: false, Code: "denied", Message: "verb requires assurance"}
	model := loadedModel(t, source)

	model, cmd := advance(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	model, _ = advance(t, model, cmd())
	if len(model.logLines) != 1 {
		t.Fatalf("log has %d lines, want 1", len(model.logLines))
	}
	if !strings.Contains(model.logLines[0], "denied") {
		t.Errorf("log line %q does not carry the failure code", model.logLines[0])
	}
}

func TestSessionMint(t *testing.T) {
	t.Parallel()
	model := loadedModel(t, twoAPISource())

	model, cmd := advance(t, model, keyMsg('s'))
	if cmd == nil {
		t.Fatal("s produced no command")
	}
	model, _ = advance(t, model, cmd())
	if model.session != "tok-console-1" {
		t.Errorf("session = %q, want the minted token", model.session)
	}

	view := model.View()
	if !strings.Contains(view, "tok-cons") {
		t.Error("view does not show the abbreviated session token")
	}
}
