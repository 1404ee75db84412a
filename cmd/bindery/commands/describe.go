// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bindery-foundation/bindery/cmd/bindery/cli"
)

type describeParams struct {
	binderConnection
	cli.JSONOutput
}

func describeCommand() *cli.Command {
	var params describeParams

	return &cli.Command{
		Name:    "describe",
		Summary: "List hosted APIs and their verbs",
		Description: `List the APIs a binder daemon hosts: each API's assembly state,
its verbs, and the assurance level every verb demands.

With an argument, describe only that API.`,
		Usage: "bindery describe [api] [flags]",
		Examples: []cli.Example{
			{
				Description: "List every hosted API",
				Command:     "bindery describe",
			},
			{
				Description: "Describe one API as JSON",
				Command:     "bindery describe vehicle --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("describe", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 1 {
				return cli.Validation("expected at most one <api> argument, got %d", len(args))
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			ctx, cancel := params.callContext(ctx)
			defer cancel()

			response, err := params.client().Describe(ctx, name)
			if err != nil {
				return classify(err)
			}

			if done, err := params.EmitJSON(response.APIs); done {
				return err
			}

			if len(response.APIs) == 0 {
				fmt.Println("no apis hosted")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			for _, api := range response.APIs {
				state := "assembled"
				if api.Initialized {
					state = "initialized"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", api.Name, state, api.Info)
				for _, verb := range api.Verbs {
					assurance := ""
					if verb.Assurance > 0 {
						assurance = fmt.Sprintf("level %d", verb.Assurance)
					}
					fmt.Fprintf(tw, "  %s\t%s\t%s\n", verb.Name, assurance, verb.Info)
				}
			}
			return tw.Flush()
		},
	}
}
