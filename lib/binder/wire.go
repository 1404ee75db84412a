// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"context"
	"errors"
	"fmt"

	"github.com/bindery-foundation/bindery/lib/codec"
)

// Socket action names understood by a binder daemon.
const (
	ActionCall       = "call"
	ActionDescribe   = "describe"
	ActionEmit       = "emit"
	ActionSessionNew = "session-new"
	ActionStatus     = "status"
)

// CallRequest invokes one verb. Payload is passed to the handler as
// the request's argument object; Session is optional and empty means
// an anonymous level-0 call.
type CallRequest struct {
	Action  string         `cbor:"action"`
	API     string         `cbor:"api"`
	Verb    string         `cbor:"verb"`
	Payload map[string]any `cbor:"payload,omitempty"`
	Session string         `cbor:"session,omitempty"`
}

// DescribeRequest lists one API's surface, or every API when API is
// empty.
type DescribeRequest struct {
	Action string `cbor:"action"`
	API    string `cbor:"api,omitempty"`
}

// APIDescription is one API's describable surface.
type APIDescription struct {
	Name        string     `json:"name" cbor:"name"`
	Info        string     `json:"info,omitempty" cbor:"info,omitempty"`
	Sealed      bool       `json:"sealed" cbor:"sealed"`
	Initialized bool       `json:"initialized" cbor:"initialized"`
	Verbs       []VerbInfo `json:"verbs" cbor:"verbs"`
}

// DescribeResponse is the response to the "describe" action.
type DescribeResponse struct {
	APIs []APIDescription `json:"apis" cbor:"apis"`
}

// EmitRequest broadcasts a named event to every hosted API.
type EmitRequest struct {
	Action  string         `cbor:"action"`
	Event   string         `cbor:"event"`
	Payload map[string]any `cbor:"payload,omitempty"`
}

// EmitResponse reports how many API event hooks saw the event.
type EmitResponse struct {
	Delivered int `json:"delivered" cbor:"delivered"`
}

// SessionNewResponse carries the token of a freshly minted session.
type SessionNewResponse struct {
	Session string `json:"session" cbor:"session"`
	Level   int    `json:"level" cbor:"level"`
}

// StatusResponse is the response to the "status" action.
type StatusResponse struct {
	Name          string  `json:"name,omitempty" cbor:"name,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds" cbor:"uptime_seconds"`
	APIs          int     `json:"apis" cbor:"apis"`
	Verbs         int     `json:"verbs" cbor:"verbs"`
	Sessions      int     `json:"sessions" cbor:"sessions"`
	Serving       bool    `json:"serving" cbor:"serving"`
}

// RegisterActions wires the binder's protocol onto a socket server:
// call, describe, emit, session-new, and status.
func RegisterActions(b *Binder, server *SocketServer) {
	server.Handle(ActionCall, b.handleCall)
	server.Handle(ActionDescribe, b.handleDescribe)
	server.Handle(ActionEmit, b.handleEmit)
	server.Handle(ActionSessionNew, b.handleSessionNew)
	server.Handle(ActionStatus, b.handleStatus)
}

// handleCall routes a verb call. Transport-level failures (unknown
// API, verb, or session) become error responses; everything the verb
// itself decided travels in the Outcome.
func (b *Binder) handleCall(ctx context.Context, raw []byte) (any, error) {
	var req CallRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decoding call request: %w", err)
	}
	if req.API == "" {
		return nil, errors.New("missing required field: api")
	}
	if req.Verb == "" {
		return nil, errors.New("missing required field: verb")
	}

	outcome, err := b.Call(ctx, req.API, req.Verb, req.Payload, req.Session)
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (b *Binder) handleDescribe(ctx context.Context, raw []byte) (any, error) {
	var req DescribeRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decoding describe request: %w", err)
	}

	var apis []*API
	if req.API != "" {
		api, ok := b.API(req.API)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAPI, req.API)
		}
		apis = []*API{api}
	} else {
		apis = b.APIs()
	}

	resp := DescribeResponse{APIs: make([]APIDescription, 0, len(apis))}
	for _, api := range apis {
		resp.APIs = append(resp.APIs, APIDescription{
			Name:        api.Name(),
			Info:        api.Info(),
			Sealed:      api.Sealed(),
			Initialized: api.Initialized(),
			Verbs:       api.Verbs(),
		})
	}
	return resp, nil
}

func (b *Binder) handleEmit(ctx context.Context, raw []byte) (any, error) {
	var req EmitRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decoding emit request: %w", err)
	}
	if req.Event == "" {
		return nil, errors.New("missing required field: event")
	}
	return EmitResponse{Delivered: b.Emit(req.Event, req.Payload)}, nil
}

func (b *Binder) handleSessionNew(ctx context.Context, raw []byte) (any, error) {
	session, err := b.NewSession()
	if err != nil {
		return nil, err
	}
	return SessionNewResponse{
		Session: session.Token(),
		Level:   int(session.Level()),
	}, nil
}

func (b *Binder) handleStatus(ctx context.Context, raw []byte) (any, error) {
	verbs := 0
	apis := b.APIs()
	for _, api := range apis {
		verbs += len(api.Verbs())
	}
	return StatusResponse{
		Name:          b.name,
		UptimeSeconds: b.clock.Now().Sub(b.started).Seconds(),
		APIs:          len(apis),
		Verbs:         verbs,
		Sessions:      b.SessionCount(),
		Serving:       b.Serving(),
	}, nil
}
