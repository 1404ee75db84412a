// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package controldef

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// recognizedExtensions lists the JSON-family extensions accepted for
// binding documents. Order does not matter; within a directory the
// first matching filename in lexical order wins.
var recognizedExtensions = []string{".json", ".jsonc"}

// ErrNotFound reports that no binding document matched the identity
// stem in any searched directory. The error text carries the full
// search path so a misconfigured deployment is diagnosable from the
// log line alone.
var ErrNotFound = errors.New("no binding configuration found")

// LocateConfig scans the colon-delimited searchPath in order and
// returns the path of the first regular file whose name starts with
// stem and carries a recognized extension. Within a directory, entries
// are considered in lexical filename order. An empty stem matches any
// file name.
//
// Directories that do not exist or cannot be read are skipped
// silently; composition deliberately includes speculative directories
// (the app root, the fallback) that are absent on most installs.
func LocateConfig(searchPath, stem string) (string, error) {
	for _, dir := range strings.Split(searchPath, ":") {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if stem != "" && !strings.HasPrefix(name, stem) {
				continue
			}
			if !hasRecognizedExtension(name) {
				continue
			}
			located := filepath.Join(dir, name)
			if abs, err := filepath.Abs(located); err == nil {
				located = abs
			}
			return located, nil
		}
	}
	return "", fmt.Errorf("%w: no %s*{%s} in %q",
		ErrNotFound, stem, strings.Join(recognizedExtensions, ","), searchPath)
}

func hasRecognizedExtension(name string) bool {
	for _, ext := range recognizedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
