// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrSealed reports an attempt to change an API's structural shape
// (verbs, hooks, context) after it has been sealed.
var ErrSealed = errors.New("api is sealed")

// InitFunc is an API's deferred init hook, run once by
// Binder.InitializeAll after every API has completed assembly.
type InitFunc func(ctx context.Context, api *API) error

// EventHook receives host-delivered events for the lifetime of the
// API. Delivery is synchronous and in API creation order; a slow hook
// delays delivery to later APIs.
type EventHook func(api *API, event string, payload map[string]any)

// Verb is one named callable operation of an API.
type Verb struct {
	// Name is the verb's wire name, unique within the API.
	Name string

	// Info is a short human-readable description surfaced by the
	// describe action.
	Info string

	// Assurance is the minimum session assurance level the caller
	// must hold. Calls below it are denied before the handler runs.
	Assurance AssuranceLevel

	// Handler processes calls to this verb.
	Handler VerbHandler
}

// VerbInfo is the describable surface of a Verb, without the handler.
type VerbInfo struct {
	Name      string         `json:"name"`
	Info      string         `json:"info,omitempty"`
	Assurance AssuranceLevel `json:"assurance"`
}

// API is a named, host-managed API object. The controller package
// assembles its shape during pre-init (verbs, event hook, init hook,
// user context), seals it, and the binder serves calls against it
// afterwards.
type API struct {
	name   string
	info   string
	logger *slog.Logger

	mu          sync.RWMutex
	sealed      bool
	initialized bool
	verbs       map[string]*Verb
	verbOrder   []string
	userContext any
	eventHook   EventHook
	initHook    InitFunc

	// assemblyErrors records the pre-init error list for status
	// reporting. Set once by CreateAPI.
	assemblyErrors []error
}

// Name returns the API's name.
func (a *API) Name() string { return a.name }

// Info returns the API's description.
func (a *API) Info() string { return a.info }

// Logger returns the API-scoped logger.
func (a *API) Logger() *slog.Logger { return a.logger }

// AddVerb registers a named operation. Fails on empty or duplicate
// names, nil handlers, out-of-range assurance levels, and sealed APIs.
func (a *API) AddVerb(name, info string, assurance AssuranceLevel, handler VerbHandler) error {
	if name == "" {
		return errors.New("verb name is empty")
	}
	if handler == nil {
		return fmt.Errorf("verb %q has no handler", name)
	}
	if !assurance.Valid() {
		return fmt.Errorf("verb %q assurance level %d out of range", name, assurance)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return fmt.Errorf("adding verb %q: %w", name, ErrSealed)
	}
	if _, exists := a.verbs[name]; exists {
		return fmt.Errorf("verb %q already registered", name)
	}
	a.verbs[name] = &Verb{Name: name, Info: info, Assurance: assurance, Handler: handler}
	a.verbOrder = append(a.verbOrder, name)
	return nil
}

// OnEvent registers the event hook. At most one hook per API; the
// routing fan-out behind it belongs to whoever registered it.
func (a *API) OnEvent(hook EventHook) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return fmt.Errorf("registering event hook: %w", ErrSealed)
	}
	a.eventHook = hook
	return nil
}

// OnInit registers the deferred init hook run by InitializeAll.
func (a *API) OnInit(hook InitFunc) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return fmt.Errorf("registering init hook: %w", ErrSealed)
	}
	a.initHook = hook
	return nil
}

// SetContext associates an opaque user context with the API. The
// deferred init hook and verb handlers re-resolve shared state through
// Context instead of closure capture, so the same assembly code can
// serve many API instances.
func (a *API) SetContext(userContext any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return fmt.Errorf("setting context: %w", ErrSealed)
	}
	a.userContext = userContext
	return nil
}

// Context returns the user context attached by SetContext, or nil.
func (a *API) Context() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userContext
}

// Seal freezes the API's structural shape. Verb registration and hook
// changes fail afterwards. Sealing twice is a no-op.
func (a *API) Seal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
}

// Sealed reports whether Seal has been called.
func (a *API) Sealed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sealed
}

// Initialized reports whether the deferred init hook has run (or the
// API had none when the binder initialized).
func (a *API) Initialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

func (a *API) markInitialized() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initialized = true
}

// Verbs lists the API's verbs in registration order.
func (a *API) Verbs() []VerbInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	infos := make([]VerbInfo, 0, len(a.verbOrder))
	for _, name := range a.verbOrder {
		verb := a.verbs[name]
		infos = append(infos, VerbInfo{Name: verb.Name, Info: verb.Info, Assurance: verb.Assurance})
	}
	return infos
}

// Verb looks up a single verb by name.
func (a *API) Verb(name string) (VerbInfo, bool) {
	verb, ok := a.verb(name)
	if !ok {
		return VerbInfo{}, false
	}
	return VerbInfo{Name: verb.Name, Info: verb.Info, Assurance: verb.Assurance}, true
}

// AssemblyErrors returns the error list recorded at pre-init. A
// non-empty list means the API is partially assembled: the sections
// that configured correctly are live, the rest are missing.
func (a *API) AssemblyErrors() []error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.assemblyErrors
}

// verb resolves a verb by name.
func (a *API) verb(name string) (*Verb, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	verb, ok := a.verbs[name]
	return verb, ok
}

// deliverEvent invokes the event hook if one is registered and
// reports whether it ran.
func (a *API) deliverEvent(event string, payload map[string]any) bool {
	a.mu.RLock()
	hook := a.eventHook
	a.mu.RUnlock()
	if hook == nil {
		return false
	}
	hook(a, event, payload)
	return true
}
