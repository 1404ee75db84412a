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

func sessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Summary: "Manage binder sessions",
		Description: `Sessions carry an assurance level across calls. A fresh session
starts at level 0; an API's auth verb raises it. Pass the token to
'bindery call' via --session.`,
		Subcommands: []*cli.Command{
			sessionNewCommand(),
		},
	}
}

type sessionNewParams struct {
	binderConnection
	cli.JSONOutput
}

func sessionNewCommand() *cli.Command {
	var params sessionNewParams

	return &cli.Command{
		Name:    "new",
		Summary: "Mint a session and print its token",
		Description: `Mint a session on the daemon. The token is printed alone on stdout
so shells can capture it directly.`,
		Usage: "bindery session new [flags]",
		Examples: []cli.Example{
			{
				Description: "Capture a token",
				Command:     "TOKEN=$(bindery session new)",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("session-new", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("session new takes no arguments, got %d", len(args))
			}

			ctx, cancel := params.callContext(ctx)
			defer cancel()

			response, err := params.client().NewSession(ctx)
			if err != nil {
				return classify(err)
			}

			if done, err := params.EmitJSON(response); done {
				return err
			}
			logger.Info("session minted", "level", response.Level)
			fmt.Println(response.Session)
			return nil
		},
	}
}
