// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package controldef

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/jsonc"
)

// ErrParse reports a binding document that is not well-formed JSON
// (after JSONC comment and trailing-comma stripping).
var ErrParse = errors.New("malformed binding configuration")

// ErrMissingAPI reports a well-formed binding document that lacks the
// required top-level "api" string.
var ErrMissingAPI = errors.New("binding configuration missing api name")

// Document is a parsed binding configuration. API and Info come from
// the top-level "api" and "info" fields; every other top-level entry
// is retained as a Section in document order, payload undecoded.
//
// A Document is immutable after parsing. Section loaders read payloads
// and act on the target API; they never write back into the Document.
// That is what makes it safe to share one Document between the
// assembly phase and the deferred init hook without locking.
type Document struct {
	// API is the name of the API this document assembles. Required;
	// Validate reports its absence.
	API string `json:"api"`

	// Info is an optional human-readable description, surfaced by the
	// host's describe operation.
	Info string `json:"info,omitempty"`

	// Sections holds the remaining top-level entries in document
	// order. When the document defines the same key twice, only the
	// first definition is retained; later duplicates are dropped at
	// parse time.
	Sections []Section `json:"sections,omitempty"`

	// Path is the file the document was read from, for diagnostics.
	// Empty for documents parsed from memory.
	Path string `json:"path,omitempty"`
}

// Section is one named top-level entry of a binding document. The
// payload stays raw until a section loader claims the key and decodes
// it into its own shape.
type Section struct {
	Key string          `json:"key"`
	Raw json.RawMessage `json:"raw"`
}

// Parse strips JSONC comments and trailing commas from data, then
// reads the top-level object token by token so that section order and
// duplicate-key policy survive (encoding/json map decoding would keep
// the last duplicate and lose ordering; the dispatch contract wants
// the first).
//
// Parse does not require "api" to be present — Validate does. A
// document whose "api" value is present but not a string is treated
// as having no api name.
func Parse(data []byte) (*Document, error) {
	stripped := jsonc.ToJSON(data)

	decoder := json.NewDecoder(bytes.NewReader(stripped))

	token, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrParse)
	}

	document := &Document{}
	seen := make(map[string]bool)
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string object key", ErrParse)
		}

		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrParse, key, err)
		}

		if seen[key] {
			// First definition wins; later duplicates are dropped.
			continue
		}
		seen[key] = true

		switch key {
		case "api":
			var name string
			if err := json.Unmarshal(raw, &name); err == nil {
				document.API = name
			}
		case "info":
			var info string
			if err := json.Unmarshal(raw, &info); err == nil {
				document.Info = info
			}
		default:
			document.Sections = append(document.Sections, Section{Key: key, Raw: raw})
		}
	}

	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after top-level object", ErrParse)
	}

	return document, nil
}

// ReadFile reads a JSONC binding document from disk and parses it.
// Returns a descriptive error if the file cannot be read or the JSON
// is malformed.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	document, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	document.Path = path
	return document, nil
}

// Validate reports whether the document carries the required metadata.
// Only the api name is required; everything else is optional.
func (d *Document) Validate() error {
	if d.API == "" {
		source := d.Path
		if source == "" {
			source = "(in-memory document)"
		}
		return fmt.Errorf("%w: %s", ErrMissingAPI, source)
	}
	return nil
}

// Section returns the raw payload of the named section and whether the
// document defines it. Lookups see the first definition only; later
// duplicates were dropped at parse time.
func (d *Document) Section(key string) (json.RawMessage, bool) {
	for _, section := range d.Sections {
		if section.Key == key {
			return section.Raw, true
		}
	}
	return nil, false
}
