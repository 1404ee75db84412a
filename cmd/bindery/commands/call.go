// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bindery-foundation/bindery/cmd/bindery/cli"
	"github.com/bindery-foundation/bindery/lib/binder"
)

type callParams struct {
	binderConnection
	cli.JSONOutput
	Payload string `flag:"payload,p" desc:"JSON object sent as the call payload"`
	Session string `flag:"session" desc:"session token to call with"`
}

func callCommand() *cli.Command {
	var params callParams

	return &cli.Command{
		Name:    "call",
		Summary: "Invoke a verb on a hosted API",
		Description: `Invoke one verb on a hosted API and print its reply.

Anonymous calls run at assurance level 0. Verbs that demand more
reject the call as denied; mint a session with 'bindery session new',
raise it through the API's auth verb, and pass the token via
--session.`,
		Usage: "bindery call <api> <verb> [payload] [flags]",
		Examples: []cli.Example{
			{
				Description: "Liveness check against the built-in verb",
				Command:     "bindery call vehicle ping-global",
			},
			{
				Description: "Call with a payload",
				Command:     `bindery call vehicle set-speed '{"kph": 50}'`,
			},
			{
				Description: "Call under a session",
				Command:     "bindery call vehicle lock-doors --session $TOKEN",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("call", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 2 || len(args) > 3 {
				return cli.Validation("expected <api> <verb> [payload], got %d arguments", len(args)).
					WithHint("Run 'bindery describe' to list hosted APIs and their verbs.")
			}
			raw := params.Payload
			if len(args) == 3 {
				if raw != "" {
					return cli.Validation("payload given both as an argument and via --payload")
				}
				raw = args[2]
			}
			payload, err := parsePayload(raw)
			if err != nil {
				return err
			}

			client := params.client()
			if params.Session != "" {
				client.UseSession(params.Session)
			}

			ctx, cancel := params.callContext(ctx)
			defer cancel()

			outcome, err := client.CallVerb(ctx, args[0], args[1], payload)
			if err != nil {
				return classify(err)
			}

			if done, err := params.EmitJSON(outcome); done {
				if err != nil {
					return err
				}
				return outcomeError(outcome)
			}

			if !outcome.OK {
				return outcomeError(outcome)
			}
			if len(outcome.Data) > 0 {
				return cli.WriteJSON(outcome.Data)
			}
			fmt.Println("ok")
			return nil
		},
	}
}

// outcomeError converts a failed outcome into a categorized error so
// the exit code distinguishes denial from other verb failures.
func outcomeError(outcome *binder.Outcome) error {
	if outcome.OK {
		return nil
	}
	if outcome.Code == binder.CodeDenied {
		return cli.Forbidden("call denied: %s", outcome.Message).
			WithHint("Mint a session with 'bindery session new', raise it through the API's auth verb, and pass --session.")
	}
	return fmt.Errorf("verb failed: %s (code %q)", outcome.Message, outcome.Code)
}
