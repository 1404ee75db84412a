// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bindery-foundation/bindery/cmd/bindery/cli"
	"github.com/bindery-foundation/bindery/lib/controldef"
	"github.com/bindery-foundation/bindery/lib/controller"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Summary: "Inspect binding documents without a daemon",
		Description: `Resolve and examine binding documents on the local filesystem,
using the same search rules the daemon applies: the
BINDERY_CONFIG_PATH override first, then the derived directories,
then the built-in fallback path.`,
		Subcommands: []*cli.Command{
			configLocateCommand(),
			configShowCommand(),
		},
	}
}

type configLocateParams struct {
	cli.JSONOutput
	Stem        string `flag:"stem" desc:"file name prefix the document must carry"`
	InstallPath string `flag:"install-path" desc:"binding artifact path the app-root directory derives from"`
	RuntimeRoot string `flag:"runtime-root" desc:"runtime configuration directory"`
}

func configLocateCommand() *cli.Command {
	var params configLocateParams

	return &cli.Command{
		Name:    "locate",
		Summary: "Resolve a binding stem to its document path",
		Description: `Compose the document search path and print the file a stem resolves
to. This is exactly the resolution the daemon performs when a
configured binding names a stem instead of a literal path, so the
command answers "which file would the daemon load?".`,
		Usage: "bindery config locate [flags]",
		Examples: []cli.Example{
			{
				Description: "Resolve a stem through the default search path",
				Command:     "bindery config locate --stem vehicle",
			},
			{
				Description: "Resolve against an explicit runtime directory",
				Command:     "bindery config locate --stem vehicle --runtime-root /etc/bindery",
			},
			{
				Description: "Search an override path first",
				Command:     "BINDERY_CONFIG_PATH=./configs bindery config locate --stem vehicle",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("config-locate", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("config locate takes no arguments, got %d", len(args)).
					WithHint("Pass the stem via --stem.")
			}

			path, err := controller.Discover(controller.DiscoverSpec{
				Stem:        params.Stem,
				InstallPath: params.InstallPath,
				RuntimeRoot: params.RuntimeRoot,
				Override:    os.Getenv(controldef.EnvConfigPath),
			})
			switch {
			case errors.Is(err, controldef.ErrMalformedInstallPath):
				return cli.Validation("%v", err)
			case errors.Is(err, controldef.ErrNotFound):
				return cli.NotFound("%v", err).
					WithHint("Set BINDERY_CONFIG_PATH or pass --runtime-root to widen the search.")
			case err != nil:
				return cli.Internal("%v", err)
			}

			if done, err := params.EmitJSON(struct {
				Path string `json:"path"`
			}{path}); done {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

type configShowParams struct {
	cli.JSONOutput
}

func configShowCommand() *cli.Command {
	var params configShowParams

	return &cli.Command{
		Name:    "show",
		Summary: "Parse a binding document and summarize its sections",
		Description: `Read a binding document, apply the comment and trailing-comma
stripping the daemon applies, and print the api name and the
retained sections in document order.

Exits non-zero when the document would not assemble: unparseable
content, or a missing api name.`,
		Usage: "bindery config show <path> [flags]",
		Examples: []cli.Example{
			{
				Description: "Summarize a document",
				Command:     "bindery config show /etc/bindery/vehicle-binding.json",
			},
			{
				Description: "Full parsed form as JSON",
				Command:     "bindery config show ./vehicle-binding.jsonc --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("config-show", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one <path> argument, got %d", len(args))
			}

			doc, err := controldef.ReadFile(args[0])
			switch {
			case errors.Is(err, os.ErrNotExist):
				return cli.NotFound("%v", err)
			case errors.Is(err, controldef.ErrParse):
				return cli.Validation("%v", err)
			case err != nil:
				return cli.Internal("%v", err)
			}

			if done, err := params.EmitJSON(doc); done {
				if err != nil {
					return err
				}
				return validationError(doc)
			}

			fmt.Printf("api:  %s\n", doc.API)
			if doc.Info != "" {
				fmt.Printf("info: %s\n", doc.Info)
			}
			if len(doc.Sections) > 0 {
				fmt.Println("sections:")
				tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
				for _, section := range doc.Sections {
					fmt.Fprintf(tw, "  %s\t%d bytes\n", section.Key, len(section.Raw))
				}
				tw.Flush()
			}
			return validationError(doc)
		},
	}
}

// validationError reports a document the daemon would refuse to load.
func validationError(doc *controldef.Document) error {
	if err := doc.Validate(); err != nil {
		return cli.Validation("document would not assemble: %v", err)
	}
	return nil
}
