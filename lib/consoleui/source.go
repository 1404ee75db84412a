// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package consoleui

import (
	"context"

	"github.com/bindery-foundation/bindery/lib/binder"
)

// Source is the console's view of a binder. The CLI backs it with a
// socket client; tests back it with a fake.
type Source interface {
	// Describe lists every API the binder serves.
	Describe(ctx context.Context) ([]binder.APIDescription, error)

	// CallVerb invokes a verb and returns its outcome. Transport
	// failures are errors; verb-level failures come back in the
	// Outcome.
	CallVerb(ctx context.Context, api, verb string, payload map[string]any) (*binder.Outcome, error)

	// NewSession mints a session for subsequent calls and returns its
	// token. The Source applies the session to later CallVerb calls
	// itself.
	NewSession(ctx context.Context) (string, error)
}

// ClientSource adapts a socket client to the Source interface.
type ClientSource struct {
	Client *binder.Client

	// API narrows the console to one hosted API. Empty shows all.
	API string
}

// Describe implements Source.
func (s *ClientSource) Describe(ctx context.Context) ([]binder.APIDescription, error) {
	resp, err := s.Client.Describe(ctx, s.API)
	if err != nil {
		return nil, err
	}
	return resp.APIs, nil
}

// CallVerb implements Source.
func (s *ClientSource) CallVerb(ctx context.Context, api, verb string, payload map[string]any) (*binder.Outcome, error) {
	return s.Client.CallVerb(ctx, api, verb, payload)
}

// NewSession implements Source. The underlying client remembers the
// token and sends it with every later call.
func (s *ClientSource) NewSession(ctx context.Context) (string, error) {
	resp, err := s.Client.NewSession(ctx)
	if err != nil {
		return "", err
	}
	return resp.Session, nil
}
