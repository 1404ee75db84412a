// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Magic prefixes of the formats a plugin file may arrive in.
var (
	wasmMagic = []byte{0x00, 'a', 's', 'm'}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// zstdDecoder is reused across loads — zstd.Decoder is safe for
// concurrent use via DecodeAll.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("plugin: zstd decoder initialization failed: " + err.Error())
	}
}

// readModule reads a plugin file and returns the raw wasm bytes,
// decompressing as needed. The compression format is sniffed from the
// file's magic bytes; the decompressed content must itself start with
// the wasm magic.
func readModule(path string) ([]byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plugin file: %w", err)
	}

	wasm, err := decodeBlob(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding plugin file %s: %w", path, err)
	}
	return wasm, nil
}

func decodeBlob(blob []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(blob, wasmMagic):
		return blob, nil

	case bytes.HasPrefix(blob, zstdMagic):
		wasm, err := zstdDecoder.DecodeAll(blob, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return requireWasm(wasm)

	case bytes.HasPrefix(blob, lz4Magic):
		wasm, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return requireWasm(wasm)

	default:
		return nil, fmt.Errorf("not a wasm module or a recognized compressed container")
	}
}

func requireWasm(decompressed []byte) ([]byte, error) {
	if !bytes.HasPrefix(decompressed, wasmMagic) {
		return nil, fmt.Errorf("decompressed content is not a wasm module")
	}
	return decompressed, nil
}
