// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package binder

// Emit delivers a named event to every sealed API's event hook, in API
// creation order, and returns how many hooks ran. APIs without a hook
// are skipped. Whether a hook acts on the event is its own business;
// delivery does not filter by name.
//
// Delivery is synchronous on the caller's goroutine.
func (b *Binder) Emit(event string, payload map[string]any) int {
	if event == "" {
		b.logger.Warn("dropping event with empty name")
		return 0
	}

	delivered := 0
	for _, api := range b.APIs() {
		if !api.Sealed() {
			continue
		}
		if api.deliverEvent(event, payload) {
			delivered++
		}
	}
	b.logger.Debug("event delivered", "event", event, "apis", delivered)
	return delivered
}
