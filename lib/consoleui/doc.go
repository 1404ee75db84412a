// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package consoleui implements the interactive binder console: a
// terminal UI for browsing the APIs a binder serves and calling their
// verbs.
//
// The left pane lists APIs and their verbs; the right pane holds the
// payload input and a scrollback of call outcomes. The model talks to
// the binder through the [Source] interface, so tests drive it with a
// fake and the CLI connects it to a live socket.
package consoleui
