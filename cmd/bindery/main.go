// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Command bindery is the control client for a binder daemon: call
// verbs, describe hosted APIs, emit events, mint sessions, inspect
// binding documents, and open an interactive console.
package main

import (
	"fmt"
	"os"

	"github.com/bindery-foundation/bindery/cmd/bindery/cli"
	"github.com/bindery-foundation/bindery/cmd/bindery/commands"
)

func main() {
	if err := commands.Root().Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bindery: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
