// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

// Command bindery-binder hosts binding APIs on a Unix socket.
//
// At startup it loads the daemon configuration, discovers and
// assembles every configured binding document, initializes the
// resulting APIs, and serves the call/describe/emit protocol until
// terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bindery-foundation/bindery/lib/binder"
	"github.com/bindery-foundation/bindery/lib/binderconf"
	"github.com/bindery-foundation/bindery/lib/clock"
	"github.com/bindery-foundation/bindery/lib/controldef"
	"github.com/bindery-foundation/bindery/lib/controller"
	"github.com/bindery-foundation/bindery/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		socketPath  string
		binderName  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "path to bindery.yaml (defaults to $BINDERY_CONFIG)")
	flag.StringVar(&socketPath, "socket", "", "override the configured listener socket path")
	flag.StringVar(&binderName, "name", "", "override the configured instance name")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("bindery-binder %s\n", version.Info())
		return nil
	}

	var cfg *binderconf.Config
	var err error
	if configPath != "" {
		cfg, err = binderconf.LoadFile(configPath)
	} else {
		cfg, err = binderconf.Load()
	}
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if socketPath != "" {
		cfg.Listener.SocketPath = socketPath
	}
	if binderName != "" {
		cfg.Name = binderName
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	ttl, err := cfg.Sessions.ParseTTL()
	if err != nil {
		return err
	}
	level, err := cfg.Logging.ParseLevel()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := binder.New(binder.Options{
		Name:           cfg.Name,
		Logger:         logger,
		Clock:          clock.Real(),
		SessionTTL:     ttl,
		DiscardOnError: cfg.Assembly.DiscardOnError,
	})

	// Plugin runtimes stay alive for the life of the process; release
	// them after the socket server has drained. Use a background
	// context since the main context is cancelled by then.
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := controller.CloseAll(closeCtx, b); err != nil {
			logger.Error("releasing plugin runtimes", "error", err)
		}
	}()

	override := os.Getenv(controldef.EnvConfigPath)
	for _, spec := range cfg.Bindings {
		path := spec.Path
		if path == "" {
			path, err = controller.Discover(controller.DiscoverSpec{
				Stem:        spec.Stem,
				InstallPath: spec.InstallPath,
				RuntimeRoot: cfg.Paths.Bindings,
				Override:    override,
			})
			if err != nil {
				if !cfg.Assembly.BestEffort {
					return fmt.Errorf("discovering binding %q: %w", spec.Stem, err)
				}
				logger.Error("skipping undiscoverable binding", "stem", spec.Stem, "error", err)
				continue
			}
		}

		api, err := controller.Load(ctx, b, path, controller.Options{Logger: logger})
		if err != nil {
			if api == nil {
				if !cfg.Assembly.BestEffort {
					return fmt.Errorf("loading binding %s: %w", path, err)
				}
				logger.Error("skipping unloadable binding", "path", path, "error", err)
				continue
			}
			logger.Warn("binding loaded with errors",
				"path", path,
				"api", api.Name(),
				"error", err,
			)
			continue
		}
		logger.Info("binding loaded", "path", path, "api", api.Name())
	}

	// Initialization failures leave the affected APIs un-initialized
	// but still callable; the operator decides whether that warrants
	// a restart.
	if err := b.InitializeAll(ctx); err != nil {
		logger.Error("initialization completed with errors", "error", err)
	}

	go b.RunSessionSweeper(ctx)

	if err := os.MkdirAll(filepath.Dir(cfg.Listener.SocketPath), 0755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	socketServer := binder.NewSocketServer(cfg.Listener.SocketPath, logger)
	binder.RegisterActions(b, socketServer)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	logger.Info("binder running",
		"name", cfg.Name,
		"socket", cfg.Listener.SocketPath,
		"apis", len(b.APIs()),
		"environment", cfg.Environment,
	)

	// Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// Wait for the socket server to drain active connections.
	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}

	return nil
}
