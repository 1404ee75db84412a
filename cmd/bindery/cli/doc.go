// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the bindery
// unified CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in cmd/bindery/main.go
// and dispatched via [Command.Execute], which installs a signal-cancelled
// context and a command logger, then handles flag parsing, subcommand
// routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Commands return [ToolError] values to classify failures; main maps the
// category to a stable process exit code via [ExitCode] so shell callers
// can react without parsing error text. [FlagsFromParams] binds flags to
// tagged struct fields by reflection so each command declares its flag
// surface as a plain struct.
package cli
