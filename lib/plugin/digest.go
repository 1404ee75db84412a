// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// ErrDigestMismatch reports a plugin module whose decompressed bytes do
// not hash to the digest its config entry declared. The module is not
// instantiated.
var ErrDigestMismatch = errors.New("plugin digest mismatch")

// Digest is a 32-byte BLAKE3 digest of a plugin module's decompressed
// bytes. It identifies the code that is actually running, independent
// of how the file on disk was compressed.
type Digest [32]byte

// ParseDigest decodes a 64-character hex digest string.
func ParseDigest(s string) (Digest, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("digest %q is not hex: %w", s, err)
	}
	if len(raw) != len(Digest{}) {
		return Digest{}, fmt.Errorf("digest %q is %d bytes, want %d", s, len(raw), len(Digest{}))
	}
	var digest Digest
	copy(digest[:], raw)
	return digest, nil
}

// moduleDomainKey domain-separates plugin digests from any other
// BLAKE3 use. The value is the ASCII domain name zero-padded to 32
// bytes, readable in hex dumps; changing it invalidates all recorded
// digests.
var moduleDomainKey = [32]byte{
	'b', 'i', 'n', 'd', 'e', 'r', 'y', '.', 'p', 'l', 'u', 'g', 'i', 'n', '.',
	'm', 'o', 'd', 'u', 'l', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// DigestModule computes the plugin-domain digest of wasm module bytes.
func DigestModule(wasm []byte) Digest {
	hasher, err := blake3.NewKeyed(moduleDomainKey[:])
	if err != nil {
		panic("plugin: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(wasm)

	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// String returns the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, enough to identify a
// module in logs.
func (d Digest) Short() string {
	return d.String()[:12]
}
