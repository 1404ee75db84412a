// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Package controller turns binding configuration documents into live
// APIs on a binder.
//
// The pipeline has three stages, each usable on its own:
//
//   - Discover composes the directory search path from the deployment
//     layout (override, install path, runtime root) and locates the
//     document that matches the binding's identity stem.
//   - Load reads and validates the document, then hands it to
//     Assemble.
//   - Assemble creates the API and populates it inside the binder's
//     assembly window: built-in verbs first, then the recognized
//     sections in fixed order (plugins, controls, events, onload),
//     then the event and init hooks. The API is sealed when Assemble
//     returns, whether or not every section loaded cleanly.
//
// Section loaders never abort each other: every entry that fails is
// recorded and the rest of the document still loads. Callers decide
// whether a partially assembled API is worth keeping; by default the
// binder keeps it.
//
// Deferred work — onload actions at initialization time, event routing
// after — reaches its state through the API's context, which holds the
// *Assembly built here. Nothing is captured at assembly time, so the
// init hook observes whatever verbs and routes actually survived.
package controller
