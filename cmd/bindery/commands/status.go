// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/bindery-foundation/bindery/cmd/bindery/cli"
)

type statusParams struct {
	binderConnection
	cli.JSONOutput
}

func statusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show daemon liveness and hosting counters",
		Usage:   "bindery status [flags]",
		Examples: []cli.Example{
			{
				Description: "Check on a running daemon",
				Command:     "bindery status",
			},
			{
				Description: "JSON output for scripting",
				Command:     "bindery status --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("status takes no arguments, got %d", len(args))
			}

			ctx, cancel := params.callContext(ctx)
			defer cancel()

			response, err := params.client().Status(ctx)
			if err != nil {
				return classify(err)
			}

			if done, err := params.EmitJSON(response); done {
				return err
			}

			if response.Name != "" {
				fmt.Printf("Name:     %s\n", response.Name)
			}
			fmt.Printf("Uptime:   %s\n", formatUptime(response.UptimeSeconds))
			fmt.Printf("APIs:     %d (%d verbs)\n", response.APIs, response.Verbs)
			fmt.Printf("Sessions: %d\n", response.Sessions)
			fmt.Printf("Serving:  %v\n", response.Serving)
			return nil
		},
	}
}

// formatUptime renders a seconds count as a rounded duration.
func formatUptime(seconds float64) string {
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}
