// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package action resolves and executes the action URIs that binding
// configs attach to controls, events, and onload entries.
//
// Three schemes are understood:
//
//	plugin://<uid>#<function>   call a function in a loaded plugin
//	api://<api>#<verb>          call a verb on a hosted API
//	builtin://<name>            run a built-in action (log)
//
// An action carries the static args object from its config entry.
// At execution time the args are merged under the request payload:
// payload keys win on conflict, so callers can override per-call what
// the config set as defaults.
package action

import (
	"errors"
	"fmt"
	"net/url"
)

// Kind discriminates the action target.
type Kind int

const (
	// KindPlugin calls a function exported by a wasm plugin.
	KindPlugin Kind = iota

	// KindAPI calls a verb on an API hosted by the same binder.
	KindAPI

	// KindBuiltin runs one of the host's built-in actions.
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindPlugin:
		return "plugin"
	case KindAPI:
		return "api"
	case KindBuiltin:
		return "builtin"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrInvalidURI reports an action URI that does not name an
// executable target.
var ErrInvalidURI = errors.New("invalid action uri")

// Action is one parsed, executable action.
type Action struct {
	// UID is the config entry that declared the action, carried for
	// logging.
	UID string

	// Kind selects the target family.
	Kind Kind

	// Target is the plugin uid, API name, or builtin name.
	Target string

	// Function is the plugin function or verb name. Empty for
	// builtins.
	Function string

	// Args is the static argument object from the config entry,
	// merged under the request payload at execution time.
	Args map[string]any
}

// Parse parses an action URI with its static args. uid names the
// owning config entry and only affects log output.
func Parse(uid, uri string, args map[string]any) (*Action, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURI, uri, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q has no target", ErrInvalidURI, uri)
	}

	act := &Action{
		UID:      uid,
		Target:   parsed.Host,
		Function: parsed.Fragment,
		Args:     args,
	}

	switch parsed.Scheme {
	case "plugin":
		act.Kind = KindPlugin
		if act.Function == "" {
			return nil, fmt.Errorf("%w: %q names no plugin function", ErrInvalidURI, uri)
		}
	case "api":
		act.Kind = KindAPI
		if act.Function == "" {
			return nil, fmt.Errorf("%w: %q names no verb", ErrInvalidURI, uri)
		}
	case "builtin":
		act.Kind = KindBuiltin
		if act.Function != "" {
			return nil, fmt.Errorf("%w: builtin %q takes no fragment", ErrInvalidURI, uri)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q in %q", ErrInvalidURI, parsed.Scheme, uri)
	}

	return act, nil
}

// String renders the action back in URI form.
func (a *Action) String() string {
	if a.Function == "" {
		return fmt.Sprintf("%s://%s", a.Kind, a.Target)
	}
	return fmt.Sprintf("%s://%s#%s", a.Kind, a.Target, a.Function)
}

// mergedPayload layers the request payload over the action's static
// args. Neither input map is modified.
func (a *Action) mergedPayload(payload map[string]any) map[string]any {
	if len(a.Args) == 0 && payload == nil {
		return nil
	}
	merged := make(map[string]any, len(a.Args)+len(payload))
	for key, value := range a.Args {
		merged[key] = value
	}
	for key, value := range payload {
		merged[key] = value
	}
	return merged
}
