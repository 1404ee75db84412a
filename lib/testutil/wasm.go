// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// echoModule is a hand-assembled wasm module implementing the plugin
// call ABI with two functions: bindery_alloc returns a fixed buffer at
// offset 1024, and echo packs its (ptr, len) arguments into the u64
// reply descriptor — so the reply bytes are the request JSON itself,
// still sitting where the host wrote it. Tests across packages use it
// as the minimal plugin that answers any JSON call with its own
// payload.
var echoModule = []byte{
	// \0asm, version 1
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i32)->i32, (i32,i32)->i64
	0x01, 0x0c, 0x02,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e,
	// function section: two functions using types 0 and 1
	0x03, 0x03, 0x02, 0x00, 0x01,
	// memory section: one memory, min 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export section: "memory", "bindery_alloc" (func 0), "echo" (func 1)
	0x07, 0x21, 0x03,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x0d, 'b', 'i', 'n', 'd', 'e', 'r', 'y', '_', 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
	0x04, 'e', 'c', 'h', 'o', 0x00, 0x01,
	// code section
	0x0a, 0x14, 0x02,
	// bindery_alloc: i32.const 1024
	0x05, 0x00, 0x41, 0x80, 0x08, 0x0b,
	// echo: (i64(ptr) << 32) | i64(len)
	0x0c, 0x00, 0x20, 0x00, 0xad, 0x42, 0x20, 0x86, 0x20, 0x01, 0xad, 0x84, 0x0b,
}

// EchoModule returns the echo plugin module bytes. The returned slice
// is a copy; callers may compress or corrupt it freely.
func EchoModule() []byte {
	module := make([]byte, len(echoModule))
	copy(module, echoModule)
	return module
}

// WriteEchoModule writes the echo plugin module into dir and returns
// its path, for loading through a plugin set.
func WriteEchoModule(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "echo.wasm")
	if err := os.WriteFile(path, echoModule, 0o644); err != nil {
		t.Fatalf("writing echo module: %v", err)
	}
	return path
}
