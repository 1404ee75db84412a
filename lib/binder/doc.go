// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package binder implements the host runtime that assembled APIs live
// in: named API objects with verb tables, event hooks, and lifecycle
// hooks; sessions with assurance levels; and the Unix-socket control
// protocol that external callers use to invoke verbs.
//
// # Lifecycle
//
// A Binder starts in the assembly phase. CreateAPI allocates a named
// API and synchronously runs the caller's pre-init function, which
// registers verbs and hooks and then seals the API. Once every API is
// created, InitializeAll runs each API's deferred init hook exactly
// once, in creation order — this is the point where configuration
// actions that need the complete API surface (cross-API calls, warmup
// actions) execute. After InitializeAll the binder serves calls;
// creating further APIs is an error.
//
// Structural mutation (AddVerb, OnEvent, OnInit, SetContext) is only
// legal before Seal. The binder runs each pre-init to completion on
// the calling goroutine, so assembly needs no external locking; after
// sealing, the API's shape is immutable and is read concurrently by
// verb dispatch and event delivery without synchronization.
//
// # Requests
//
// Verb handlers receive a Request and must finish it with exactly one
// Success or Fail reply. A second reply is ignored with a warning; a
// handler that returns without replying produces an automatic failure
// reply. Assurance enforcement happens before the handler runs: a
// session below the verb's required level is denied without handler
// execution.
//
// # Sessions
//
// Sessions are binder-minted opaque tokens with an assurance level
// (0-3) and idle expiry. Callers without a token run at level 0 on an
// anonymous throwaway session. The static "auth" verb that the
// controller package attaches to every API raises the calling session
// to level 1.
//
// # Wire protocol
//
// The control socket speaks single-request CBOR connections with an
// {ok, error, data} response envelope. See SocketServer for the
// server side and Client for the caller side; RegisterActions wires
// the standard call/describe/emit/session-new/status actions to a
// Binder.
package binder
