// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bindery-foundation/bindery/lib/action"
	"github.com/bindery-foundation/bindery/lib/binder"
	"github.com/bindery-foundation/bindery/lib/controldef"
)

// Options configures assembly. The zero value is usable.
type Options struct {
	// Logger receives assembly diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// DiscoverSpec describes where a binding may keep its configuration.
type DiscoverSpec struct {
	// Stem is the identity prefix a document file name must start
	// with. Empty matches any recognized file.
	Stem string

	// InstallPath is the path of the binding artifact itself, used to
	// derive the application-root search directory. Optional.
	InstallPath string

	// RuntimeRoot is the runtime's own configuration directory.
	// Optional.
	RuntimeRoot string

	// Override is a colon-delimited directory list that takes
	// precedence over the derived directories, typically read from
	// the BINDERY_CONFIG_PATH environment variable.
	Override string
}

// Discover composes the search path for spec and locates the first
// matching binding document. The returned path is absolute.
func Discover(spec DiscoverSpec) (string, error) {
	searchPath, err := controldef.ComposeSearchPath(spec.Override, spec.InstallPath, spec.RuntimeRoot)
	if err != nil {
		return "", err
	}
	return controldef.LocateConfig(searchPath, spec.Stem)
}

// Load reads the binding document at path and assembles it onto b.
// Nothing is created on the binder when the document cannot be read or
// names no api.
func Load(ctx context.Context, b *binder.Binder, path string, opts Options) (*binder.API, error) {
	doc, err := controldef.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Assemble(ctx, b, doc, opts)
}

// Assemble creates the API doc describes and populates it: built-in
// verbs, then the recognized sections in table order, then the event
// and init hooks. The API is sealed when Assemble returns.
//
// Entry failures do not stop assembly; they come back joined in err
// alongside the (partially populated, still sealed) API. Only a
// document that fails validation, a name collision, or a binder that
// is already serving yields a nil API.
func Assemble(ctx context.Context, b *binder.Binder, doc *controldef.Document, opts Options) (*binder.API, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	logger := opts.logger()
	logger.Info("assembling binding", "api", doc.API, "info", doc.Info, "path", doc.Path)

	return b.CreateAPI(doc.API, doc.Info, func(api *binder.API) []error {
		as := &Assembly{
			Document: doc,
			binder:   b,
			logger:   logger.With("api", doc.API),
		}
		var errs []error
		if err := api.SetContext(as); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, registerStaticVerbs(api)...)
		errs = append(errs, dispatchSections(ctx, as, api)...)
		as.executor = action.NewExecutor(b, as.plugins, as.logger)
		if err := api.OnEvent(routeEvent); err != nil {
			errs = append(errs, err)
		}
		if err := api.OnInit(runOnload); err != nil {
			errs = append(errs, err)
		}
		return errs
	})
}

// CloseAll releases the plugin runtimes of every API on b that this
// package assembled. Call it on shutdown after the binder stops
// serving.
func CloseAll(ctx context.Context, b *binder.Binder) error {
	var errs []error
	for _, api := range b.APIs() {
		as, ok := api.Context().(*Assembly)
		if !ok {
			continue
		}
		if err := as.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing plugins of %q: %w", api.Name(), err))
		}
	}
	return errors.Join(errs...)
}
