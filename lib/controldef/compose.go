// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package controldef implements the discovery pipeline for binding
// configuration documents: composing the directory search path,
// locating the document that matches the service identity, and parsing
// it into an ordered section structure.
//
// Binding documents are authored as JSONC files (JSON extended with
// comments and trailing commas). The typical flow:
//
//  1. ComposeSearchPath: override + install path + runtime root →
//     colon-delimited directory list
//  2. LocateConfig: directory list + identity stem → file path
//  3. ReadFile or Parse: JSONC bytes → Document
//  4. Document.Validate: required-metadata check
//
// The controller package drives this pipeline once per binding load;
// "bindery config locate" runs it standalone for diagnostics.
package controldef

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultSearchPath is the compiled-in fallback appended to every
	// composed search path. Operators who install binding documents
	// under a custom prefix reach them via BINDERY_CONFIG_PATH instead.
	DefaultSearchPath = "/usr/local/bindery/etc:/etc/bindery"

	// EnvConfigPath is the environment variable holding an optional
	// colon-delimited directory list that takes precedence over every
	// derived directory.
	EnvConfigPath = "BINDERY_CONFIG_PATH"
)

// ErrMalformedInstallPath reports an install path whose final segment
// is too short to be a real binding file name. Composition fails fast
// on it; nothing is searched.
var ErrMalformedInstallPath = errors.New("malformed install path")

// ComposeSearchPath builds the ordered, colon-delimited directory list
// that LocateConfig scans for a binding document. Directories appear in
// precedence order:
//
//	override:app-root:runtime-root:fallback    when override is non-empty
//	runtime-root:app-root:fallback             otherwise
//
// The app root is derived from installPath (the path of the loaded
// binding file) by walking up exactly one directory level: everything
// up to and including the last slash, with ".." appended. The segment
// is textual — it is not resolved or cleaned. An empty installPath
// contributes an empty app-root segment.
//
// The list is not deduplicated (layered overlays may intentionally
// search a directory twice) and no directory is checked for existence;
// both are LocateConfig's concern. The only failure is an installPath
// whose final segment has fewer than 3 characters.
func ComposeSearchPath(override, installPath, runtimeRoot string) (string, error) {
	appRoot := ""
	if installPath != "" {
		slash := strings.LastIndexByte(installPath, '/')
		if slash < 0 || len(installPath)-slash-1 < 3 {
			return "", fmt.Errorf("%w: %q", ErrMalformedInstallPath, installPath)
		}
		appRoot = installPath[:slash+1] + ".."
	}

	if override != "" {
		return override + ":" + appRoot + ":" + runtimeRoot + ":" + DefaultSearchPath, nil
	}
	return runtimeRoot + ":" + appRoot + ":" + DefaultSearchPath, nil
}
