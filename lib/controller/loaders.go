// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bindery-foundation/bindery/lib/action"
	"github.com/bindery-foundation/bindery/lib/binder"
	"github.com/bindery-foundation/bindery/lib/plugin"
)

// loadPlugins instantiates every wasm module the plugins section
// names. Relative module paths resolve against the directory of the
// document that references them, so a binding ships next to its
// plugins.
func loadPlugins(ctx context.Context, as *Assembly, api *binder.API, raw json.RawMessage) []error {
	entries, err := decodeEntries(raw)
	if err != nil {
		return []error{err}
	}
	var errs []error
	for _, entry := range entries {
		if entry.UID == "" {
			errs = append(errs, errors.New("plugin entry missing uid"))
			continue
		}
		if entry.Path == "" {
			errs = append(errs, fmt.Errorf("plugin %q: missing path", entry.UID))
			continue
		}
		path := entry.Path
		if !filepath.IsAbs(path) && as.Document.Path != "" {
			path = filepath.Join(filepath.Dir(as.Document.Path), path)
		}
		set, err := as.ensurePlugins(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("plugin %q: %w", entry.UID, err))
			continue
		}
		spec := plugin.Spec{UID: entry.UID, Info: entry.Info, Path: path, Digest: entry.Digest}
		if _, err := set.Load(ctx, spec); err != nil {
			errs = append(errs, fmt.Errorf("plugin %q: %w", entry.UID, err))
		}
	}
	return errs
}

// loadControls registers one verb per entry. An entry with an action
// URI dispatches through the executor; an entry without one gets a
// bare acknowledgement handler, which is enough for liveness checks
// and for reserving the verb name.
func loadControls(ctx context.Context, as *Assembly, api *binder.API, raw json.RawMessage) []error {
	entries, err := decodeEntries(raw)
	if err != nil {
		return []error{err}
	}
	var errs []error
	for _, entry := range entries {
		if entry.UID == "" {
			errs = append(errs, errors.New("control entry missing uid"))
			continue
		}
		var handler binder.VerbHandler = acknowledge
		if entry.Action != "" {
			act, err := action.Parse(entry.UID, entry.Action, entry.Args)
			if err != nil {
				errs = append(errs, fmt.Errorf("control %q: %w", entry.UID, err))
				continue
			}
			handler = actionHandler(act)
		}
		if err := api.AddVerb(entry.UID, entry.Info, binder.AssuranceLevel(entry.Assurance), handler); err != nil {
			errs = append(errs, fmt.Errorf("control %q: %w", entry.UID, err))
		}
	}
	return errs
}

// loadEvents compiles the event routing table. Routes are matched in
// document order when an event arrives; a pattern may use the usual
// wildcards.
func loadEvents(ctx context.Context, as *Assembly, api *binder.API, raw json.RawMessage) []error {
	entries, err := decodeEntries(raw)
	if err != nil {
		return []error{err}
	}
	var errs []error
	for _, entry := range entries {
		if entry.UID == "" {
			errs = append(errs, errors.New("event entry missing uid"))
			continue
		}
		if entry.Action == "" {
			errs = append(errs, fmt.Errorf("event %q: missing action", entry.UID))
			continue
		}
		act, err := action.Parse(entry.UID, entry.Action, entry.Args)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %q: %w", entry.UID, err))
			continue
		}
		as.routes = append(as.routes, eventRoute{pattern: entry.UID, act: act})
	}
	return errs
}

// loadOnload queues actions that run when the binder initializes the
// API, after every API is assembled and sealed. Nothing executes at
// load time.
func loadOnload(ctx context.Context, as *Assembly, api *binder.API, raw json.RawMessage) []error {
	entries, err := decodeEntries(raw)
	if err != nil {
		return []error{err}
	}
	var errs []error
	for _, entry := range entries {
		if entry.UID == "" {
			errs = append(errs, errors.New("onload entry missing uid"))
			continue
		}
		if entry.Action == "" {
			errs = append(errs, fmt.Errorf("onload %q: missing action", entry.UID))
			continue
		}
		act, err := action.Parse(entry.UID, entry.Action, entry.Args)
		if err != nil {
			errs = append(errs, fmt.Errorf("onload %q: %w", entry.UID, err))
			continue
		}
		as.onload = append(as.onload, act)
	}
	return errs
}

// acknowledge is the handler for control entries that bind no action.
func acknowledge(req *binder.Request) {
	req.Success(nil)
}

// actionHandler adapts an action into a verb handler. The assembly is
// resolved per call through the API handle, so the handler keeps
// working if the API's context is replaced wholesale.
func actionHandler(act *action.Action) binder.VerbHandler {
	return func(req *binder.Request) {
		as, err := assemblyOf(req.API())
		if err != nil {
			req.Fail("action-failed", err.Error())
			return
		}
		result, err := as.execute(req.Context(), act, req.Payload(), req.Session().Token())
		if err != nil {
			req.Fail("action-failed", err.Error())
			return
		}
		req.Success(result)
	}
}
