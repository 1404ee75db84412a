// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package plugin loads and executes WebAssembly plugin modules for
// binding APIs.
//
// Plugins are core wasm modules (not Component Model binaries) that
// export named functions with a small JSON ABI:
//
//   - bindery_alloc(size u32) -> ptr u32 allocates guest memory for
//     the host to write into. Optional bindery_free(ptr, size u32)
//     returns it.
//   - Each callable function has the shape fn(ptr, len u32) -> u64.
//     The host passes a JSON object; the u64 result packs the reply's
//     pointer in the high 32 bits and its length in the low 32 bits.
//     The reply is a JSON object; a non-empty top-level "error"
//     string marks failure.
//
// Plugin files may be stored raw or compressed. Compression is
// detected from magic bytes (zstd and lz4 frames are recognized), so
// no file extension convention is needed. Every loaded module gets a
// BLAKE3 digest of its decompressed bytes for logging and status
// reporting.
//
// A module instance is not safe for concurrent use; each Plugin
// serializes its calls with a mutex. APIs that need parallel plugin
// execution load the module once per API.
package plugin
