// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package pattern implements glob matching over slash-delimited event
// names. Binding documents subscribe to events by pattern; the matcher
// here decides which configured handlers an emitted event reaches.
package pattern

import (
	"path"
	"strings"
)

// Match checks whether an event name matches a glob pattern using the
// hierarchical event namespace conventions:
//
//   - Exact match: "vehicle/speed" matches only "vehicle/speed"
//   - Single-segment wildcard: "vehicle/*" matches "vehicle/speed" but
//     not "vehicle/engine/rpm"
//   - Recursive wildcard: "vehicle/**" matches "vehicle/speed",
//     "vehicle/engine/rpm", etc.
//   - Universal: "**" matches any event
//   - Interior recursive: "vehicle/**/status" matches "vehicle/status",
//     "vehicle/engine/status", etc.
//   - Character wildcards: "?" matches a single non-slash character
//
// Wildcards * and ? work in all positions, including around **. The
// single-segment wildcard "*" does not match "/" — this is standard
// path.Match behavior. Use "**" to match across hierarchy boundaries.
//
// Returns false for malformed patterns (unmatched brackets, etc.) rather
// than propagating errors — a malformed pattern routes nothing.
func Match(pattern, event string) bool {
	// Universal match.
	if pattern == "**" {
		return true
	}

	// No ** in the pattern — delegate to path.Match which handles
	// single-segment * and ? correctly (not matching /).
	if !strings.Contains(pattern, "**") {
		matched, err := path.Match(pattern, event)
		if err != nil {
			// Malformed pattern — no match.
			return false
		}
		return matched
	}

	// Pattern contains **. Handle the three cases: suffix, prefix, interior.

	// Suffix: "vehicle/**" or "team-*/**" — match the prefix (with glob
	// wildcards), then anything after.
	if strings.HasSuffix(pattern, "/**") {
		prefix := pattern[:len(pattern)-3]
		// ** matches zero additional segments: entire event is the prefix.
		if matchGlob(prefix, event) {
			return true
		}
		// ** matches one or more additional segments.
		return hasMatchingPrefix(prefix, event)
	}

	// Prefix: "**/speed" or "**/status-*" — match anything before, then
	// the suffix (with glob wildcards).
	if strings.HasPrefix(pattern, "**/") {
		suffix := pattern[3:]
		// ** matches zero additional segments: entire event is the suffix.
		if matchGlob(suffix, event) {
			return true
		}
		// ** matches one or more additional segments.
		return hasMatchingSuffix(suffix, event)
	}

	// Interior: "vehicle/**/status" or "zone-*/**/alarm-?" — split on the
	// first /**, match prefix and suffix independently with glob wildcards.
	separatorIndex := strings.Index(pattern, "/**/")
	if separatorIndex >= 0 {
		prefix := pattern[:separatorIndex]
		suffix := pattern[separatorIndex+4:]

		// Zero-segment case: ** matches nothing, prefix and suffix
		// are adjacent. "vehicle/**/status" matches "vehicle/status".
		if matchGlob(prefix+"/"+suffix, event) {
			return true
		}

		// Multi-segment case: prefix matches the start, suffix matches
		// the end, with at least one segment between for ** to consume.
		prefixDepth := strings.Count(prefix, "/") + 1
		suffixDepth := strings.Count(suffix, "/") + 1
		segments := strings.Split(event, "/")

		if len(segments) < prefixDepth+1+suffixDepth {
			return false
		}

		prefixCandidate := strings.Join(segments[:prefixDepth], "/")
		if !matchGlob(prefix, prefixCandidate) {
			return false
		}

		suffixCandidate := strings.Join(segments[len(segments)-suffixDepth:], "/")
		if !matchGlob(suffix, suffixCandidate) {
			return false
		}

		// Verify segments consumed by ** are all non-empty (reject
		// event names with consecutive slashes between prefix and suffix).
		for _, segment := range segments[prefixDepth : len(segments)-suffixDepth] {
			if segment == "" {
				return false
			}
		}
		return true
	}

	// Multiple ** segments or other complex patterns — not supported.
	// No match by default.
	return false
}

// matchGlob matches a pattern against a string using path.Match semantics
// (wildcards * and ? do not cross / boundaries). Returns false for
// malformed patterns.
func matchGlob(pattern, s string) bool {
	matched, err := path.Match(pattern, s)
	return err == nil && matched
}

// hasMatchingPrefix reports whether the event name starts with segments
// that match the given glob pattern, with at least one additional segment
// after the matched portion. The pattern's depth (number of /-separated
// segments) determines how many leading segments of the event are tested.
func hasMatchingPrefix(pattern, event string) bool {
	depth := strings.Count(pattern, "/") + 1
	segments := strings.SplitN(event, "/", depth+1)
	if len(segments) <= depth {
		return false
	}
	candidate := strings.Join(segments[:depth], "/")
	return matchGlob(pattern, candidate)
}

// hasMatchingSuffix reports whether the event name ends with segments
// that match the given glob pattern, with at least one additional segment
// before the matched portion.
func hasMatchingSuffix(pattern, event string) bool {
	depth := strings.Count(pattern, "/") + 1
	segments := strings.Split(event, "/")
	if len(segments) <= depth {
		return false
	}
	candidate := strings.Join(segments[len(segments)-depth:], "/")
	return matchGlob(pattern, candidate)
}

// MatchAny checks whether an event name matches any of the given glob
// patterns. Returns true on the first match. Returns false if the
// patterns slice is empty.
func MatchAny(patterns []string, event string) bool {
	for _, p := range patterns {
		if Match(p, event) {
			return true
		}
	}
	return false
}
