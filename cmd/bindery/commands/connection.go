// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bindery-foundation/bindery/cmd/bindery/cli"
	"github.com/bindery-foundation/bindery/lib/binder"
)

// binderConnection is the embeddable parameter block shared by every
// command that talks to a binder daemon. BindFlags recurses into it,
// so embedding is all a command needs to pick up the connection flags.
type binderConnection struct {
	Socket  string        `flag:"socket" desc:"path to the binder control socket" default:"/run/bindery/binder.sock"`
	Timeout time.Duration `flag:"timeout" desc:"deadline for one daemon exchange" default:"30s"`
}

// client creates a daemon client for the configured socket.
func (c *binderConnection) client() *binder.Client {
	return binder.NewClient(c.Socket)
}

// callContext bounds one daemon exchange with the configured timeout.
func (c *binderConnection) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.Timeout)
}

// classify maps a daemon client error onto a tool error category:
// rejections that reached the daemon keep their message and become
// not-found (the daemon refuses requests that name unknown APIs,
// verbs, or sessions); everything else is a transport failure and
// counts as transient.
func classify(err error) error {
	var remote *binder.RemoteError
	if errors.As(err, &remote) {
		return cli.NotFound("%s", remote.Message).
			WithHint("Run 'bindery describe' to see hosted APIs and verbs.")
	}
	return cli.Transient("%v", err).
		WithHint("Is the binder daemon running? Check the --socket path.")
}

// parsePayload decodes a --payload flag value. Empty means no payload.
func parsePayload(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, cli.Validation("payload is not a JSON object: %v", err).
			WithHint(`Pass an object, e.g. --payload '{"kph": 50}'.`)
	}
	return payload, nil
}
