// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bindery-foundation/bindery/cmd/bindery/cli"
	"github.com/bindery-foundation/bindery/lib/consoleui"
)

type consoleParams struct {
	binderConnection
}

func consoleCommand() *cli.Command {
	var params consoleParams

	return &cli.Command{
		Name:    "console",
		Summary: "Interactive terminal console for hosted APIs",
		Description: `Open a full-screen terminal console on a binder daemon: browse the
hosted APIs and their verbs, call verbs with JSON payloads, and mint
sessions, with every outcome collected in a scrollback pane.

With an argument, the console shows only that API.`,
		Usage: "bindery console [api] [flags]",
		Examples: []cli.Example{
			{
				Description: "Console over every hosted API",
				Command:     "bindery console",
			},
			{
				Description: "Console narrowed to one API",
				Command:     "bindery console vehicle",
			},
			{
				Description: "Console against a test daemon",
				Command:     "bindery console --socket /tmp/binder.sock",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("console", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 1 {
				return cli.Validation("expected at most one <api> argument, got %d", len(args))
			}
			apiFilter := ""
			if len(args) == 1 {
				apiFilter = args[0]
			}

			// Probe the daemon before entering the alternate screen so
			// connection problems (and an unknown API name) surface as
			// ordinary errors instead of a blank UI.
			probeCtx, cancel := params.callContext(ctx)
			var err error
			if apiFilter != "" {
				_, err = params.client().Describe(probeCtx, apiFilter)
			} else {
				_, err = params.client().Status(probeCtx)
			}
			cancel()
			if err != nil {
				return classify(err)
			}

			source := &consoleui.ClientSource{Client: params.client(), API: apiFilter}
			program := tea.NewProgram(consoleui.NewModel(source), tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return cli.Internal("console failed: %v", err)
			}
			return nil
		},
	}
}
