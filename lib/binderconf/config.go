// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package binderconf

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the bindery daemon.
type Config struct {
	// Name is the daemon's instance name, announced by the status
	// action. Default: "bindery".
	Name string `yaml:"name"`

	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Listener configures the daemon's client-facing socket.
	Listener ListenerConfig `yaml:"listener"`

	// Logging configures the daemon's log output.
	Logging LoggingConfig `yaml:"logging"`

	// Sessions configures session lifetime.
	Sessions SessionsConfig `yaml:"sessions"`

	// Assembly configures how binding load failures are handled.
	Assembly AssemblyConfig `yaml:"assembly"`

	// Bindings lists the binding documents loaded at startup.
	Bindings []BindingConfig `yaml:"bindings"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	Listener *ListenerConfig `yaml:"listener,omitempty"`
	Logging  *LoggingConfig  `yaml:"logging,omitempty"`
	Sessions *SessionsConfig `yaml:"sessions,omitempty"`
	Assembly *AssemblyConfig `yaml:"assembly,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for bindery data.
	Root string `yaml:"root"`

	// State is where runtime state is stored.
	State string `yaml:"state"`

	// Bindings is the daemon's own binding-document directory. It
	// becomes the runtime-root segment of every composed search path.
	Bindings string `yaml:"bindings"`
}

// ListenerConfig configures the daemon's client-facing socket.
type ListenerConfig struct {
	// SocketPath is the Unix socket path the daemon serves on.
	// Default: /run/bindery/binder.sock
	SocketPath string `yaml:"socket_path"`
}

// LoggingConfig configures the daemon's log output.
type LoggingConfig struct {
	// Level is the minimum record level: debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`
}

// ParseLevel returns the configured level as a slog level.
func (l LoggingConfig) ParseLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging.level: unknown level %q", l.Level)
}

// SessionsConfig configures session lifetime.
type SessionsConfig struct {
	// TTL is how long a session survives without being used, as a
	// Go duration string. Default: 30m
	TTL string `yaml:"ttl"`
}

// ParseTTL returns the session TTL as a duration.
func (s SessionsConfig) ParseTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(s.TTL)
	if err != nil {
		return 0, fmt.Errorf("sessions.ttl: %w", err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("sessions.ttl must be positive, got %s", s.TTL)
	}
	return ttl, nil
}

// AssemblyConfig configures how binding load failures are handled.
type AssemblyConfig struct {
	// DiscardOnError removes an API whose document did not load
	// cleanly instead of keeping the partially assembled result.
	// Default: false (development), true (production)
	DiscardOnError bool `yaml:"discard_on_error"`

	// BestEffort keeps the daemon starting when a configured binding
	// fails to load outright (document not found, unparseable, or
	// refused by the binder). The failed binding is logged and
	// skipped. Default: false - one bad binding aborts startup.
	BestEffort bool `yaml:"best_effort"`
}

// BindingConfig names one binding document to load at startup, either
// by identity stem (discovered along the composed search path) or by
// explicit file path.
type BindingConfig struct {
	// Stem is the identity prefix used to discover the document.
	Stem string `yaml:"stem"`

	// Path is an explicit document path, bypassing discovery.
	Path string `yaml:"path"`

	// InstallPath is the install location of the binding artifact,
	// used to derive the application-root search directory when
	// discovering by stem.
	InstallPath string `yaml:"install_path"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "bindery")

	return &Config{
		Name:        "bindery",
		Environment: Development,
		Paths: PathsConfig{
			Root:     defaultRoot,
			State:    filepath.Join(defaultRoot, "state"),
			Bindings: filepath.Join(defaultRoot, "bindings"),
		},
		Listener: ListenerConfig{
			SocketPath: "/run/bindery/binder.sock",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Sessions: SessionsConfig{
			TTL: "30m",
		},
		Assembly: AssemblyConfig{
			DiscardOnError: false,
		},
	}
}

// Load loads configuration from the BINDERY_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if BINDERY_CONFIG is not set, this fails.
// This ensures deterministic, auditable configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("BINDERY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("BINDERY_CONFIG environment variable not set; " +
			"set it to the path of your bindery.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values - this ensures deterministic, auditable configuration.
// The only expansion performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: partially assembled APIs are discarded.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Assembly: &AssemblyConfig{
					DiscardOnError: true,
				},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
		if overrides.Paths.Bindings != "" {
			c.Paths.Bindings = overrides.Paths.Bindings
		}
	}

	if overrides.Listener != nil {
		if overrides.Listener.SocketPath != "" {
			c.Listener.SocketPath = overrides.Listener.SocketPath
		}
	}

	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
	}

	if overrides.Sessions != nil {
		if overrides.Sessions.TTL != "" {
			c.Sessions.TTL = overrides.Sessions.TTL
		}
	}

	if overrides.Assembly != nil {
		// Bools, so an override section always applies them.
		c.Assembly.DiscardOnError = overrides.Assembly.DiscardOnError
		c.Assembly.BestEffort = overrides.Assembly.BestEffort
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"BINDERY_ROOT": c.Paths.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["BINDERY_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Paths.Bindings = expandVars(c.Paths.Bindings, vars)
	c.Listener.SocketPath = expandVars(c.Listener.SocketPath, vars)
	for i := range c.Bindings {
		c.Bindings[i].Path = expandVars(c.Bindings[i].Path, vars)
		c.Bindings[i].InstallPath = expandVars(c.Bindings[i].InstallPath, vars)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if c.Listener.SocketPath == "" {
		errs = append(errs, fmt.Errorf("listener.socket_path is required"))
	}

	if _, err := c.Logging.ParseLevel(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.Sessions.ParseTTL(); err != nil {
		errs = append(errs, err)
	}

	for i, binding := range c.Bindings {
		switch {
		case binding.Stem == "" && binding.Path == "":
			errs = append(errs, fmt.Errorf("bindings[%d]: stem or path is required", i))
		case binding.Stem != "" && binding.Path != "":
			errs = append(errs, fmt.Errorf("bindings[%d]: stem and path are mutually exclusive", i))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.State,
		c.Paths.Bindings,
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
