// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this instead of time.Now() when
// tests need unique identifiers for API names, session labels, or event
// payloads that must be distinguishable in shared fixtures.
//
//	api := testutil.UniqueID("api")       // "api-1", "api-2", ...
//	event := testutil.UniqueID("tick")    // "tick-3", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
