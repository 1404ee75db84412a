// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/bindery-foundation/bindery/lib/binder"
)

// sectionLoader populates one recognized section of a binding document
// onto an API under assembly. Loaders report per-entry failures and
// keep going; they never unwind work already done.
type sectionLoader func(ctx context.Context, as *Assembly, api *binder.API, raw json.RawMessage) []error

// sectionTable fixes the load order of recognized sections. Plugins
// load first so that control and event actions can target them;
// onload runs last because it only queues work for initialization.
// Document order does not matter: a document that writes controls
// before plugins still gets its plugins loaded first.
var sectionTable = []struct {
	key  string
	load sectionLoader
}{
	{"plugins", loadPlugins},
	{"controls", loadControls},
	{"events", loadEvents},
	{"onload", loadOnload},
}

// dispatchSections walks the loader table in order, feeding each
// loader the matching document section if present. Document keys that
// no loader claims are logged and skipped; extension sections are not
// an error.
func dispatchSections(ctx context.Context, as *Assembly, api *binder.API) []error {
	var errs []error
	recognized := make(map[string]bool, len(sectionTable))
	for _, entry := range sectionTable {
		recognized[entry.key] = true
		raw, ok := as.Document.Section(entry.key)
		if !ok {
			continue
		}
		if sectionErrs := entry.load(ctx, as, api, raw); len(sectionErrs) > 0 {
			for _, err := range sectionErrs {
				errs = append(errs, fmt.Errorf("section %q: %w", entry.key, err))
			}
			continue
		}
		as.logger.Debug("section loaded", "section", entry.key)
	}
	for _, section := range as.Document.Sections {
		if !recognized[section.Key] {
			as.logger.Warn("skipping unrecognized section", "section", section.Key)
		}
	}
	return errs
}

// entryDef is the common shape of one section entry. Sections reuse it
// with different required fields: plugins want a path, controls and
// events want an action, onload wants both an identity and an action.
type entryDef struct {
	UID       string         `json:"uid"`
	Info      string         `json:"info"`
	Assurance int            `json:"assurance"`
	Action    string         `json:"action"`
	Args      map[string]any `json:"args"`
	Path      string         `json:"path"`
	Digest    string         `json:"digest"`
}

// decodeEntries accepts the three shapes a section payload may take:
//
//	[ {"uid": "a", ...}, {"uid": "b", ...} ]     array form
//	{ "a": {...}, "b": {...} }                   map form, key is uid
//	{ "uid": "a", ... }                          single entry
//
// Map form is decoded token by token so entries keep their document
// order. A map value may still carry its own "uid" field; the map key
// wins. The single-entry shape is recognized by a top-level "uid"
// whose value is a string.
func decodeEntries(raw json.RawMessage) ([]entryDef, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading section payload: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("section payload must be an object or array, got %T", tok)
	}

	switch delim {
	case '[':
		var entries []entryDef
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decoding section entries: %w", err)
		}
		return entries, nil

	case '{':
		type pair struct {
			key string
			raw json.RawMessage
		}
		var pairs []pair
		single := false
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("reading section key: %w", err)
			}
			key := keyTok.(string)
			var value json.RawMessage
			if err := dec.Decode(&value); err != nil {
				return nil, fmt.Errorf("reading section entry %q: %w", key, err)
			}
			if key == "uid" && isJSONString(value) {
				single = true
			}
			pairs = append(pairs, pair{key: key, raw: value})
		}

		if single {
			var entry entryDef
			if err := json.Unmarshal(raw, &entry); err != nil {
				return nil, fmt.Errorf("decoding section entry: %w", err)
			}
			return []entryDef{entry}, nil
		}

		entries := make([]entryDef, 0, len(pairs))
		for _, p := range pairs {
			var entry entryDef
			if err := json.Unmarshal(p.raw, &entry); err != nil {
				return nil, fmt.Errorf("decoding section entry %q: %w", p.key, err)
			}
			entry.UID = p.key
			entries = append(entries, entry)
		}
		return entries, nil

	default:
		return nil, fmt.Errorf("section payload must be an object or array")
	}
}

func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}
