// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"encoding/json"
	"testing"
)

func TestDecodeEntriesArrayForm(t *testing.T) {
	t.Parallel()

	entries, err := decodeEntries(json.RawMessage(`[
		{"uid": "first", "action": "builtin://log"},
		{"uid": "second", "info": "described", "assurance": 2}
	]`))
	if err != nil {
		t.Fatalf("decodeEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].UID != "first" || entries[0].Action != "builtin://log" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].UID != "second" || entries[1].Info != "described" || entries[1].Assurance != 2 {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestDecodeEntriesMapFormKeepsOrder(t *testing.T) {
	t.Parallel()

	entries, err := decodeEntries(json.RawMessage(`{
		"zeta": {},
		"alpha": {"info": "a"},
		"mid": {"action": "builtin://log"}
	}`))
	if err != nil {
		t.Fatalf("decodeEntries: %v", err)
	}
	var uids []string
	for _, entry := range entries {
		uids = append(uids, entry.UID)
	}
	want := []string{"zeta", "alpha", "mid"}
	if len(uids) != len(want) {
		t.Fatalf("got uids %v, want %v", uids, want)
	}
	for i, uid := range want {
		if uids[i] != uid {
			t.Fatalf("got uids %v, want %v", uids, want)
		}
	}
}

func TestDecodeEntriesMapKeyWins(t *testing.T) {
	t.Parallel()

	entries, err := decodeEntries(json.RawMessage(`{"outer": {"uid": "inner", "info": "kept"}}`))
	if err != nil {
		t.Fatalf("decodeEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].UID != "outer" {
		t.Errorf("uid = %q, want the map key %q", entries[0].UID, "outer")
	}
	if entries[0].Info != "kept" {
		t.Errorf("info = %q, want %q", entries[0].Info, "kept")
	}
}

func TestDecodeEntriesSingleForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantUID string
	}{
		{"uid first", `{"uid": "solo", "info": "s", "action": "builtin://log"}`, "solo"},
		{"uid after other keys", `{"info": "s", "uid": "late"}`, "late"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entries, err := decodeEntries(json.RawMessage(tt.payload))
			if err != nil {
				t.Fatalf("decodeEntries: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("got %d entries, want 1", len(entries))
			}
			if entries[0].UID != tt.wantUID {
				t.Errorf("uid = %q, want %q", entries[0].UID, tt.wantUID)
			}
		})
	}
}

func TestDecodeEntriesUIDKeyWithObjectValue(t *testing.T) {
	t.Parallel()

	// A top-level "uid" key only signals the single-entry form when
	// its value is a string; an object value makes it an ordinary map
	// key.
	entries, err := decodeEntries(json.RawMessage(`{"uid": {"info": "x"}}`))
	if err != nil {
		t.Fatalf("decodeEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].UID != "uid" || entries[0].Info != "x" {
		t.Errorf("entries = %+v, want one entry keyed %q", entries, "uid")
	}
}

func TestDecodeEntriesRejectsOtherShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{"number", `42`},
		{"string", `"controls"`},
		{"array of scalars", `[1, 2]`},
		{"truncated", `{"uid": "x"`},
		{"garbage", `]][[`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := decodeEntries(json.RawMessage(tt.payload)); err == nil {
				t.Fatalf("decodeEntries(%q) succeeded, want error", tt.payload)
			}
		})
	}
}
