// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/bindery-foundation/bindery/lib/binder"
	"github.com/bindery-foundation/bindery/lib/plugin"
	"github.com/bindery-foundation/bindery/lib/testutil"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		uri          string
		wantKind     Kind
		wantTarget   string
		wantFunction string
		wantErr      bool
	}{
		{
			name:         "plugin call",
			uri:          "plugin://engine#tune",
			wantKind:     KindPlugin,
			wantTarget:   "engine",
			wantFunction: "tune",
		},
		{
			name:         "api subcall",
			uri:          "api://vehicle#start",
			wantKind:     KindAPI,
			wantTarget:   "vehicle",
			wantFunction: "start",
		},
		{
			name:       "builtin log",
			uri:        "builtin://log",
			wantKind:   KindBuiltin,
			wantTarget: "log",
		},
		{name: "plugin without function", uri: "plugin://engine", wantErr: true},
		{name: "api without verb", uri: "api://vehicle", wantErr: true},
		{name: "builtin with fragment", uri: "builtin://log#x", wantErr: true},
		{name: "unknown scheme", uri: "lua://scripts#run", wantErr: true},
		{name: "no target", uri: "plugin://#tune", wantErr: true},
		{name: "not a uri", uri: "just-a-name", wantErr: true},
		{name: "empty", uri: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			act, err := Parse("entry-1", tt.uri, nil)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURI) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidURI", tt.uri, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.uri, err)
			}
			if act.Kind != tt.wantKind || act.Target != tt.wantTarget || act.Function != tt.wantFunction {
				t.Errorf("Parse(%q) = %s://%s#%s, want %s://%s#%s",
					tt.uri, act.Kind, act.Target, act.Function,
					tt.wantKind, tt.wantTarget, tt.wantFunction)
			}
			if act.String() != tt.uri {
				t.Errorf("String() = %q, want round-trip of %q", act.String(), tt.uri)
			}
		})
	}
}

func TestMergedPayload(t *testing.T) {
	t.Parallel()

	act, err := Parse("entry-1", "builtin://log", map[string]any{
		"level":  "info",
		"prefix": "engine",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	merged := act.mergedPayload(map[string]any{
		"prefix": "override",
		"rpm":    3000,
	})

	if merged["level"] != "info" {
		t.Errorf("static arg lost: %v", merged)
	}
	if merged["prefix"] != "override" {
		t.Errorf("payload did not win on conflict: %v", merged)
	}
	if merged["rpm"] != 3000 {
		t.Errorf("payload key lost: %v", merged)
	}
	if len(act.Args) != 2 {
		t.Error("merge mutated the action's static args")
	}

	if got := act.mergedPayload(nil); got["prefix"] != "engine" {
		t.Errorf("nil payload should keep static args, got %v", got)
	}

	bare, err := Parse("entry-2", "builtin://log", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := bare.mergedPayload(nil); got != nil {
		t.Errorf("no args, no payload should merge to nil, got %v", got)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestExecuteBuiltinLog(t *testing.T) {
	t.Parallel()
	executor := NewExecutor(nil, nil, testLogger())

	act, err := Parse("entry-1", "builtin://log", map[string]any{"prefix": "engine"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	result, err := executor.Execute(context.Background(), act, map[string]any{"rpm": 3000}, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result["prefix"] != "engine" || result["rpm"] != 3000 {
		t.Errorf("log result = %v, want merged payload", result)
	}
}

func TestExecuteAPISubcall(t *testing.T) {
	t.Parallel()
	b := binder.New(binder.Options{Logger: testLogger()})
	_, err := b.CreateAPI("vehicle", "", func(api *binder.API) []error {
		err := api.AddVerb("start", "", binder.AssuranceNone, func(req *binder.Request) {
			req.Success(map[string]any{"started": true, "mode": req.Payload()["mode"]})
		})
		if err != nil {
			return []error{err}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("CreateAPI: %v", err)
	}

	executor := NewExecutor(b, nil, testLogger())
	act, err := Parse("boot", "api://vehicle#start", map[string]any{"mode": "eco"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	result, err := executor.Execute(context.Background(), act, nil, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result["started"] != true || result["mode"] != "eco" {
		t.Errorf("subcall result = %v", result)
	}

	// A failed verb surfaces as an executor error, naming the
	// outcome code.
	_, err = b.CreateAPI("broken", "", func(api *binder.API) []error {
		err := api.AddVerb("boom", "", binder.AssuranceNone, func(req *binder.Request) {
			req.Fail("exploded", "no luck")
		})
		if err != nil {
			return []error{err}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("CreateAPI: %v", err)
	}
	failing, err := Parse("boot", "api://broken#boom", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := executor.Execute(context.Background(), failing, nil, ""); err == nil {
		t.Error("failed verb outcome did not become an error")
	}

	// Unknown API is a transport-level error.
	missing, err := Parse("boot", "api://nope#start", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := executor.Execute(context.Background(), missing, nil, ""); !errors.Is(err, binder.ErrUnknownAPI) {
		t.Errorf("unknown api: got %v, want ErrUnknownAPI", err)
	}
}

func TestExecutePluginCall(t *testing.T) {
	t.Parallel()
	set, err := plugin.NewSet(context.Background(), testLogger())
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	t.Cleanup(func() {
		if err := set.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	path := testutil.WriteEchoModule(t, t.TempDir())
	if _, err := set.Load(context.Background(), plugin.Spec{UID: "engine", Path: path}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	executor := NewExecutor(nil, set, testLogger())
	act, err := Parse("entry-1", "plugin://engine#echo", map[string]any{"mode": "eco"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	result, err := executor.Execute(context.Background(), act, map[string]any{"rpm": float64(3000)}, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result["mode"] != "eco" || result["rpm"] != float64(3000) {
		t.Errorf("plugin result = %v, want the merged payload echoed", result)
	}

	missing, err := Parse("entry-1", "plugin://gearbox#echo", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := executor.Execute(context.Background(), missing, nil, ""); !errors.Is(err, plugin.ErrNotLoaded) {
		t.Errorf("unknown plugin: got %v, want ErrNotLoaded", err)
	}

	noFunction, err := Parse("entry-1", "plugin://engine#transform", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := executor.Execute(context.Background(), noFunction, nil, ""); err == nil {
		t.Error("calling a missing plugin function succeeded")
	}
}

func TestExecuteMissingDependencies(t *testing.T) {
	t.Parallel()
	executor := NewExecutor(nil, nil, testLogger())

	pluginAct, err := Parse("entry", "plugin://engine#tune", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := executor.Execute(context.Background(), pluginAct, nil, ""); err == nil {
		t.Error("plugin action without a plugin set succeeded")
	}

	apiAct, err := Parse("entry", "api://vehicle#start", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := executor.Execute(context.Background(), apiAct, nil, ""); err == nil {
		t.Error("api action without a binder succeeded")
	}

	unknownBuiltin := &Action{UID: "entry", Kind: KindBuiltin, Target: "teleport"}
	if _, err := executor.Execute(context.Background(), unknownBuiltin, nil, ""); err == nil {
		t.Error("unknown builtin succeeded")
	}
}
