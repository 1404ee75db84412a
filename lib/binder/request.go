// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"context"
	"log/slog"
	"sync"
)

// VerbHandler processes a single call to a verb. The handler must
// reply exactly once via Success or Fail; a handler that returns
// without replying produces an automatic failure with code "no-reply".
type VerbHandler func(req *Request)

// Outcome is the verb-level result of a call. It is distinct from the
// transport-level error: an unknown API is an error, a verb that ran
// and rejected its input is a failed Outcome.
type Outcome struct {
	OK      bool           `json:"ok" cbor:"ok"`
	Code    string         `json:"code,omitempty" cbor:"code,omitempty"`
	Message string         `json:"message,omitempty" cbor:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty" cbor:"data,omitempty"`
}

// Outcome codes produced by the binder itself rather than a handler.
const (
	// CodeDenied reports a call rejected before the handler ran
	// because the session's assurance level was below the verb's.
	CodeDenied = "denied"

	// CodeNoReply reports a handler that returned without calling
	// Success or Fail.
	CodeNoReply = "no-reply"
)

// Request carries one verb call through its handler.
type Request struct {
	ctx     context.Context
	api     *API
	verb    string
	session *Session
	payload map[string]any
	logger  *slog.Logger

	mu      sync.Mutex
	replied bool
	outcome Outcome
}

// Context returns the context the call was made under.
func (r *Request) Context() context.Context { return r.ctx }

// API returns the API the called verb belongs to.
func (r *Request) API() *API { return r.api }

// Verb returns the called verb's name.
func (r *Request) Verb() string { return r.verb }

// Session returns the caller's session. It is never nil: a call made
// without a token runs under a transient anonymous session.
func (r *Request) Session() *Session { return r.session }

// Payload returns the call's argument object. May be nil.
func (r *Request) Payload() map[string]any { return r.payload }

// Success replies to the call with an optional data object. Only the
// first reply counts; later replies are logged and dropped.
func (r *Request) Success(data map[string]any) {
	r.reply(Outcome{OK: true, Data: data})
}

// Fail replies to the call with a failure code and message.
func (r *Request) Fail(code, message string) {
	r.reply(Outcome{OK: false, Code: code, Message: message})
}

func (r *Request) reply(outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replied {
		r.logger.Warn("duplicate reply ignored",
			"api", r.api.Name(),
			"verb", r.verb,
			"code", outcome.Code)
		return
	}
	r.replied = true
	r.outcome = outcome
}

// finish closes out the request after the handler returns, converting
// a missing reply into a failure.
func (r *Request) finish() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.replied {
		r.replied = true
		r.outcome = Outcome{OK: false, Code: CodeNoReply, Message: "verb handler returned without replying"}
		r.logger.Warn("verb handler did not reply",
			"api", r.api.Name(),
			"verb", r.verb)
	}
	return r.outcome
}
