// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// allocExport is the guest allocator every plugin must export. The
// host uses it to place request JSON into guest memory.
const allocExport = "bindery_alloc"

// freeExport is the optional guest deallocator. Plugins built with
// leak-free allocators (or arena resets) may omit it.
const freeExport = "bindery_free"

// ErrNotLoaded reports a lookup for a plugin uid that was never
// loaded into the set.
var ErrNotLoaded = errors.New("plugin not loaded")

// Spec describes one plugin to load.
type Spec struct {
	// UID names the plugin within its set. Action URIs reference it.
	UID string

	// Info is a human-readable description.
	Info string

	// Path is the plugin file: a wasm module, raw or compressed.
	Path string

	// Digest is the expected BLAKE3 hex digest of the decompressed
	// module. Empty skips verification; a mismatch fails the load
	// before the module is compiled.
	Digest string
}

// Plugin is one loaded and instantiated wasm module. All calls go
// through Call, which serializes access — a module instance is not
// goroutine-safe.
type Plugin struct {
	uid    string
	info   string
	path   string
	digest Digest
	logger *slog.Logger

	mu     sync.Mutex
	module api.Module
	alloc  api.Function
	free   api.Function
}

// UID returns the plugin's uid.
func (p *Plugin) UID() string { return p.uid }

// Info returns the plugin's description.
func (p *Plugin) Info() string { return p.info }

// Path returns the file the plugin was loaded from.
func (p *Plugin) Path() string { return p.path }

// ModuleDigest returns the BLAKE3 digest of the decompressed module.
func (p *Plugin) ModuleDigest() Digest { return p.digest }

// Has reports whether the module exports a callable function with
// this name.
func (p *Plugin) Has(function string) bool {
	return p.module.ExportedFunction(function) != nil
}

// Call invokes an exported function with a JSON object payload and
// returns the function's JSON object reply. A reply whose top-level
// "error" field is a non-empty string is converted into an error.
//
// Calls on the same Plugin are serialized; a long-running plugin
// function blocks other callers of this plugin, not the whole binder.
func (p *Plugin) Call(ctx context.Context, function string, payload map[string]any) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn := p.module.ExportedFunction(function)
	if fn == nil {
		return nil, fmt.Errorf("plugin %q has no function %q", p.uid, function)
	}

	request := []byte("{}")
	if payload != nil {
		var err error
		request, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request for %s/%s: %w", p.uid, function, err)
		}
	}

	requestPtr, err := p.allocate(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("plugin %s/%s: %w", p.uid, function, err)
	}

	results, err := fn.Call(ctx, uint64(requestPtr), uint64(len(request)))
	p.release(ctx, requestPtr, uint32(len(request)))
	if err != nil {
		return nil, fmt.Errorf("calling %s/%s: %w", p.uid, function, err)
	}
	if len(results) != 1 || results[0] == 0 {
		return nil, fmt.Errorf("plugin %s/%s returned no response", p.uid, function)
	}

	// The reply location is packed into one u64: pointer in the
	// high half, length in the low half.
	replyPtr := uint32(results[0] >> 32)
	replyLen := uint32(results[0])

	view, ok := p.module.Memory().Read(replyPtr, replyLen)
	if !ok {
		return nil, fmt.Errorf("plugin %s/%s reply [%d:+%d] is outside module memory",
			p.uid, function, replyPtr, replyLen)
	}
	// The view aliases guest memory; copy before freeing.
	reply := make([]byte, len(view))
	copy(reply, view)
	p.release(ctx, replyPtr, replyLen)

	var decoded map[string]any
	if err := json.Unmarshal(reply, &decoded); err != nil {
		return nil, fmt.Errorf("decoding reply from %s/%s: %w", p.uid, function, err)
	}
	if message, ok := decoded["error"].(string); ok && message != "" {
		return nil, fmt.Errorf("plugin %s/%s failed: %s", p.uid, function, message)
	}
	return decoded, nil
}

// allocate places data into guest memory via the plugin's allocator
// and returns the guest pointer.
func (p *Plugin) allocate(ctx context.Context, data []byte) (uint32, error) {
	results, err := p.alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", allocExport, err)
	}
	if len(results) != 1 || results[0] == 0 {
		return 0, fmt.Errorf("%s returned no buffer for %d bytes", allocExport, len(data))
	}
	ptr := uint32(results[0])
	if !p.module.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("%s returned pointer %d outside module memory", allocExport, ptr)
	}
	return ptr, nil
}

// release returns a guest buffer if the plugin exports a
// deallocator. Failures are logged, not surfaced: the call already
// has its result, and a leaky free only wastes guest memory.
func (p *Plugin) release(ctx context.Context, ptr, size uint32) {
	if p.free == nil {
		return
	}
	if _, err := p.free.Call(ctx, uint64(ptr), uint64(size)); err != nil {
		p.logger.Warn("plugin free failed",
			"plugin", p.uid,
			"error", err)
	}
}

// Set owns a wazero runtime and the plugins instantiated in it.
// Loading is not concurrent-safe; it happens during API assembly,
// which is single-threaded. Calls on loaded plugins may come from any
// goroutine afterwards.
type Set struct {
	runtime wazero.Runtime
	logger  *slog.Logger

	plugins map[string]*Plugin
	order   []string
}

// NewSet creates a plugin set with a fresh wazero runtime. WASI is
// instantiated so plugins built against wasi_snapshot_preview1 (Go,
// Rust, TinyGo toolchains) link. Close the set to release the
// runtime.
func NewSet(ctx context.Context, logger *slog.Logger) (*Set, error) {
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig())
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("instantiating WASI: %w", err)
	}
	return &Set{
		runtime: runtime,
		logger:  logger,
		plugins: make(map[string]*Plugin),
	}, nil
}

// Load reads, compiles, and instantiates one plugin module. The
// module must export bindery_alloc; plugins are instantiated as
// reactors (the _initialize start function runs if present, _start
// does not).
func (s *Set) Load(ctx context.Context, spec Spec) (*Plugin, error) {
	if spec.UID == "" {
		return nil, errors.New("plugin uid is empty")
	}
	if spec.Path == "" {
		return nil, fmt.Errorf("plugin %q has no path", spec.UID)
	}
	if _, exists := s.plugins[spec.UID]; exists {
		return nil, fmt.Errorf("plugin %q already loaded", spec.UID)
	}

	wasm, err := readModule(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", spec.UID, err)
	}
	digest := DigestModule(wasm)
	if spec.Digest != "" {
		expected, err := ParseDigest(spec.Digest)
		if err != nil {
			return nil, fmt.Errorf("plugin %q: %w", spec.UID, err)
		}
		if digest != expected {
			return nil, fmt.Errorf("plugin %q: %w: module is %s, config declares %s",
				spec.UID, ErrDigestMismatch, digest.Short(), expected.Short())
		}
	}

	compiled, err := s.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compiling plugin %q: %w", spec.UID, err)
	}

	config := wazero.NewModuleConfig().
		WithName(spec.UID).
		WithStartFunctions("_initialize")
	module, err := s.runtime.InstantiateModule(ctx, compiled, config)
	if err != nil {
		return nil, fmt.Errorf("instantiating plugin %q: %w", spec.UID, err)
	}

	alloc := module.ExportedFunction(allocExport)
	if alloc == nil {
		module.Close(ctx)
		return nil, fmt.Errorf("plugin %q does not export %s", spec.UID, allocExport)
	}

	plugin := &Plugin{
		uid:    spec.UID,
		info:   spec.Info,
		path:   spec.Path,
		digest: digest,
		logger: s.logger,
		module: module,
		alloc:  alloc,
		free:   module.ExportedFunction(freeExport),
	}
	s.plugins[spec.UID] = plugin
	s.order = append(s.order, spec.UID)

	s.logger.Info("plugin loaded",
		"plugin", spec.UID,
		"digest", digest.Short(),
		"path", spec.Path)
	return plugin, nil
}

// Get resolves a loaded plugin by uid.
func (s *Set) Get(uid string) (*Plugin, error) {
	plugin, ok := s.plugins[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotLoaded, uid)
	}
	return plugin, nil
}

// Plugins lists loaded plugins in load order.
func (s *Set) Plugins() []*Plugin {
	plugins := make([]*Plugin, 0, len(s.order))
	for _, uid := range s.order {
		plugins = append(plugins, s.plugins[uid])
	}
	return plugins
}

// Close releases the wazero runtime and every module instantiated in
// it.
func (s *Set) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}
