// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bindery-foundation/bindery/cmd/bindery/cli"
)

type emitParams struct {
	binderConnection
	cli.JSONOutput
	Payload string `flag:"payload,p" desc:"JSON object carried with the event"`
}

func emitCommand() *cli.Command {
	var params emitParams

	return &cli.Command{
		Name:    "emit",
		Summary: "Broadcast an event to every hosted API",
		Description: `Broadcast a named event through the daemon. Every initialized API
sees it; APIs whose binding documents route the event run the
configured actions.

Event names are slash-delimited, matching patterns like
"vehicle/speed/*" in the events section of binding documents.`,
		Usage: "bindery emit <event> [payload] [flags]",
		Examples: []cli.Example{
			{
				Description: "Emit a bare event",
				Command:     "bindery emit vehicle/ignition/on",
			},
			{
				Description: "Emit with a payload",
				Command:     `bindery emit vehicle/speed/update '{"kph": 120}'`,
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("emit", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 1 || len(args) > 2 {
				return cli.Validation("expected <event> [payload], got %d arguments", len(args))
			}
			raw := params.Payload
			if len(args) == 2 {
				if raw != "" {
					return cli.Validation("payload given both as an argument and via --payload")
				}
				raw = args[1]
			}
			payload, err := parsePayload(raw)
			if err != nil {
				return err
			}

			ctx, cancel := params.callContext(ctx)
			defer cancel()

			response, err := params.client().EmitEvent(ctx, args[0], payload)
			if err != nil {
				return classify(err)
			}

			if done, err := params.EmitJSON(response); done {
				return err
			}
			fmt.Printf("delivered to %d apis\n", response.Delivered)
			return nil
		},
	}
}
