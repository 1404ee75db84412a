// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete bindery CLI command tree. The
// bindery binary dispatches into it from main; keeping the tree in its
// own package keeps main.go down to argument plumbing and exit codes.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bindery-foundation/bindery/cmd/bindery/cli"
	"github.com/bindery-foundation/bindery/lib/version"
)

// Root builds and returns the complete bindery CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "bindery",
		Description: `Bindery: configuration-driven API assembly.

Inspect binding documents, talk to a running binder daemon, and
exercise the APIs it hosts from the shell.`,
		Subcommands: []*cli.Command{
			callCommand(),
			describeCommand(),
			emitCommand(),
			sessionCommand(),
			statusCommand(),
			configCommand(),
			consoleCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("bindery %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "See which APIs the daemon hosts",
				Command:     "bindery describe",
			},
			{
				Description: "Call a verb with a payload",
				Command:     `bindery call vehicle set-speed --payload '{"kph": 50}'`,
			},
			{
				Description: "Mint a session and raise its assurance",
				Command:     "bindery session new",
			},
			{
				Description: "Find the binding document a stem resolves to",
				Command:     "bindery config locate --stem vehicle",
			},
			{
				Description: "Browse APIs interactively",
				Command:     "bindery console",
			},
		},
	}
}
