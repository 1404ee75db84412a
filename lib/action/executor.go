// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bindery-foundation/bindery/lib/binder"
	"github.com/bindery-foundation/bindery/lib/plugin"
)

// Executor runs parsed actions against a binder and a plugin set.
// Either dependency may be nil; actions needing the missing one fail
// with a descriptive error instead of a panic.
type Executor struct {
	binder  *binder.Binder
	plugins *plugin.Set
	logger  *slog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(b *binder.Binder, plugins *plugin.Set, logger *slog.Logger) *Executor {
	return &Executor{binder: b, plugins: plugins, logger: logger}
}

// Execute runs one action with the request payload merged over the
// action's static args. session carries the calling session's token
// into api:// subcalls so assurance checks see the original caller;
// pass empty for host-initiated execution (onload, events).
//
// The returned map is the action's result object, nil if the action
// produced none.
func (e *Executor) Execute(ctx context.Context, act *Action, payload map[string]any, session string) (map[string]any, error) {
	merged := act.mergedPayload(payload)

	switch act.Kind {
	case KindPlugin:
		if e.plugins == nil {
			return nil, fmt.Errorf("action %s (%s): no plugins loaded", act, act.UID)
		}
		target, err := e.plugins.Get(act.Target)
		if err != nil {
			return nil, fmt.Errorf("action %s (%s): %w", act, act.UID, err)
		}
		result, err := target.Call(ctx, act.Function, merged)
		if err != nil {
			return nil, fmt.Errorf("action %s (%s): %w", act, act.UID, err)
		}
		return result, nil

	case KindAPI:
		if e.binder == nil {
			return nil, fmt.Errorf("action %s (%s): no binder attached", act, act.UID)
		}
		outcome, err := e.binder.Call(ctx, act.Target, act.Function, merged, session)
		if err != nil {
			return nil, fmt.Errorf("action %s (%s): %w", act, act.UID, err)
		}
		if !outcome.OK {
			return nil, fmt.Errorf("action %s (%s) failed: %s: %s",
				act, act.UID, outcome.Code, outcome.Message)
		}
		return outcome.Data, nil

	case KindBuiltin:
		return e.executeBuiltin(act, merged)

	default:
		return nil, fmt.Errorf("action %s (%s): unknown kind", act, act.UID)
	}
}

// executeBuiltin dispatches the host-provided actions.
func (e *Executor) executeBuiltin(act *Action, payload map[string]any) (map[string]any, error) {
	switch act.Target {
	case "log":
		e.logger.Info("builtin log action",
			"entry", act.UID,
			"payload", payload)
		return payload, nil
	default:
		return nil, fmt.Errorf("action %s (%s): unknown builtin", act, act.UID)
	}
}
