// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package binderconf provides YAML configuration loading for the
// bindery daemon.
//
// Configuration is loaded from a single file specified by either the
// BINDERY_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search. This ensures deterministic, auditable configuration with no
// hidden overrides.
//
// BINDERY_CONFIG names the daemon's own YAML file and is unrelated to
// BINDERY_CONFIG_PATH, which overrides the search path for binding
// documents; the two travel different pipelines.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production defaults are stricter:
// partially assembled APIs are discarded instead of kept.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${BINDERY_ROOT}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with the instance name, Paths,
//     Listener, Logging, Sessions, Assembly, and the startup Bindings
//     list
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other bindery packages.
package binderconf
