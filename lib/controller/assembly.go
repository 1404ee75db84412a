// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bindery-foundation/bindery/lib/action"
	"github.com/bindery-foundation/bindery/lib/binder"
	"github.com/bindery-foundation/bindery/lib/controldef"
	"github.com/bindery-foundation/bindery/lib/pattern"
	"github.com/bindery-foundation/bindery/lib/plugin"
)

// eventRoute binds one event pattern to the action that runs when a
// broadcast event matches it.
type eventRoute struct {
	pattern string
	act     *action.Action
}

// Assembly is the per-API state built up by the section loaders. It
// becomes the API's context, so the init hook and the event hook can
// re-resolve it from the API handle instead of capturing loader-time
// state.
type Assembly struct {
	// Document is the configuration the API was assembled from.
	Document *controldef.Document

	binder   *binder.Binder
	logger   *slog.Logger
	plugins  *plugin.Set
	executor *action.Executor
	routes   []eventRoute
	onload   []*action.Action
}

// Plugins returns the plugin set loaded for this API, or nil when the
// document had no plugins section.
func (as *Assembly) Plugins() *plugin.Set { return as.plugins }

// Routes returns the number of event routes the events section
// installed.
func (as *Assembly) Routes() int { return len(as.routes) }

// OnloadActions returns the number of actions the onload section
// queued for initialization time.
func (as *Assembly) OnloadActions() int { return len(as.onload) }

// ensurePlugins returns the assembly's plugin set, creating it on
// first use. Each API gets its own set, so plugin UIDs from one
// document never collide with another's.
func (as *Assembly) ensurePlugins(ctx context.Context) (*plugin.Set, error) {
	if as.plugins != nil {
		return as.plugins, nil
	}
	set, err := plugin.NewSet(ctx, as.logger)
	if err != nil {
		return nil, fmt.Errorf("creating plugin runtime: %w", err)
	}
	as.plugins = set
	return set, nil
}

// execute runs an action against the assembly's binder and plugin set.
func (as *Assembly) execute(ctx context.Context, act *action.Action, payload map[string]any, session string) (map[string]any, error) {
	return as.executor.Execute(ctx, act, payload, session)
}

// Close releases the assembly's plugin runtime. Safe to call when no
// plugins were loaded.
func (as *Assembly) Close(ctx context.Context) error {
	if as.plugins == nil {
		return nil
	}
	return as.plugins.Close(ctx)
}

// assemblyOf recovers the Assembly stored as an API's context. It
// fails on APIs that were not assembled by this package.
func assemblyOf(api *binder.API) (*Assembly, error) {
	as, ok := api.Context().(*Assembly)
	if !ok {
		return nil, fmt.Errorf("api %q was not assembled from a binding document", api.Name())
	}
	return as, nil
}

// runOnload is the init hook installed on every assembled API. It
// resolves the assembly fresh from the API handle and runs the queued
// onload actions in document order. Failures do not stop later
// actions; they are joined into one error.
func runOnload(ctx context.Context, api *binder.API) error {
	as, err := assemblyOf(api)
	if err != nil {
		return err
	}
	var errs []error
	for _, act := range as.onload {
		if _, err := as.execute(ctx, act, nil, ""); err != nil {
			errs = append(errs, fmt.Errorf("onload %q: %w", act.UID, err))
		}
	}
	return errors.Join(errs...)
}

// routeEvent is the event hook installed on every assembled API. A
// broadcast event runs every route whose pattern matches its name.
// Route failures are logged, not propagated: event delivery has no
// reply channel.
func routeEvent(api *binder.API, event string, payload map[string]any) {
	as, err := assemblyOf(api)
	if err != nil {
		api.Logger().Error("dropping event", "event", event, "error", err)
		return
	}
	for _, route := range as.routes {
		if !pattern.Match(route.pattern, event) {
			continue
		}
		if _, err := as.execute(context.Background(), route.act, payload, ""); err != nil {
			as.logger.Error("event action failed",
				"event", event,
				"route", route.pattern,
				"action", route.act.UID,
				"error", err)
			continue
		}
		as.logger.Debug("event routed", "event", event, "route", route.pattern, "action", route.act.UID)
	}
}
