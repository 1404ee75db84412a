// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration.
//
// Bindery uses two serialization formats with a clear boundary:
//
//   - JSON for operator-facing interfaces: binding documents (JSONC on
//     disk), plugin call payloads, and CLI output.
//   - CBOR for the binder's socket protocol: every request and response
//     envelope that crosses the control socket.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the control socket):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. It will
//     never be marshaled to JSON or printed by CLI tooling. Examples:
//     the socket request/response envelopes.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor` tags
//     are absent, so a single `json` tag controls field naming and
//     omitempty for both formats. Examples: binding document types
//     (parsed from JSONC, echoed by "bindery config show"), verb
//     descriptions returned over the socket and printed as JSON.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract — doubling up is noise that obscures
// whether a type participates in JSON serialization.
package codec
