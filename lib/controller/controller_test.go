// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bindery-foundation/bindery/lib/binder"
	"github.com/bindery-foundation/bindery/lib/clock"
	"github.com/bindery-foundation/bindery/lib/controldef"
	"github.com/bindery-foundation/bindery/lib/plugin"
	"github.com/bindery-foundation/bindery/lib/testutil"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newTestBinder(t *testing.T) *binder.Binder {
	t.Helper()
	return binder.New(binder.Options{
		Logger: testLogger(),
		Clock:  clock.Fake(testEpoch),
	})
}

func testOptions() Options {
	return Options{Logger: testLogger()}
}

func mustParse(t *testing.T, doc string) *controldef.Document {
	t.Helper()
	parsed, err := controldef.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	return parsed
}

// backend records calls made to it, standing in for whatever service a
// binding's actions would reach.
type backend struct {
	mu       sync.Mutex
	payloads []map[string]any
}

func (bk *backend) preInit(api *binder.API) []error {
	var errs []error
	err := api.AddVerb("record", "captures call payloads", binder.AssuranceNone, func(req *binder.Request) {
		bk.mu.Lock()
		bk.payloads = append(bk.payloads, req.Payload())
		bk.mu.Unlock()
		req.Success(map[string]any{"recorded": true})
	})
	if err != nil {
		errs = append(errs, err)
	}
	err = api.AddVerb("failing", "always fails", binder.AssuranceNone, func(req *binder.Request) {
		req.Fail("backend-down", "backend is down")
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (bk *backend) calls() []map[string]any {
	bk.mu.Lock()
	defer bk.mu.Unlock()
	return append([]map[string]any(nil), bk.payloads...)
}

func registerBackend(t *testing.T, b *binder.Binder) *backend {
	t.Helper()
	bk := &backend{}
	if _, err := b.CreateAPI("backend", "test backend", bk.preInit); err != nil {
		t.Fatalf("creating backend api: %v", err)
	}
	return bk
}

func TestAssembleMinimalDocument(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	doc := mustParse(t, `{"api": "demo", "info": "x", "controls": {"ping": {}}}`)

	api, err := Assemble(context.Background(), b, doc, testOptions())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !api.Sealed() {
		t.Error("assembled API not sealed")
	}
	if api.Initialized() {
		t.Error("assembled API marked initialized before InitializeAll")
	}
	if api.Info() != "x" {
		t.Errorf("info = %q, want %q", api.Info(), "x")
	}

	var names []string
	for _, v := range api.Verbs() {
		names = append(names, v.Name)
	}
	want := []string{"ping-global", "auth", "ping"}
	if len(names) != len(want) {
		t.Fatalf("verbs = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("verbs = %v, want %v", names, want)
		}
	}

	outcome, err := b.Call(context.Background(), "demo", "ping", nil, "")
	if err != nil {
		t.Fatalf("calling ping: %v", err)
	}
	if !outcome.OK {
		t.Errorf("ping outcome = %+v, want success", outcome)
	}
}

func TestPingGlobalCountsAcrossAPIs(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	for _, doc := range []string{
		`{"api": "alpha"}`,
		`{"api": "beta"}`,
	} {
		if _, err := Assemble(context.Background(), b, mustParse(t, doc), testOptions()); err != nil {
			t.Fatalf("Assemble: %v", err)
		}
	}

	first, err := b.Call(context.Background(), "alpha", "ping-global", nil, "")
	if err != nil {
		t.Fatalf("calling ping-global on alpha: %v", err)
	}
	second, err := b.Call(context.Background(), "beta", "ping-global", nil, "")
	if err != nil {
		t.Fatalf("calling ping-global on beta: %v", err)
	}
	c1, ok := first.Data["count"].(int64)
	if !ok {
		t.Fatalf("alpha count = %#v, want int64", first.Data["count"])
	}
	c2, ok := second.Data["count"].(int64)
	if !ok {
		t.Fatalf("beta count = %#v, want int64", second.Data["count"])
	}
	if c2 <= c1 {
		t.Errorf("counter did not advance across APIs: %d then %d", c1, c2)
	}
}

func TestAuthRaisesSessionAssurance(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	doc := mustParse(t, `{
		"api": "vault",
		"controls": {
			"open": {"assurance": 1}
		}
	}`)
	if _, err := Assemble(context.Background(), b, doc, testOptions()); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	session, err := b.NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	outcome, err := b.Call(context.Background(), "vault", "open", nil, session.Token())
	if err != nil {
		t.Fatalf("calling open before auth: %v", err)
	}
	if outcome.OK || outcome.Code != binder.CodeDenied {
		t.Fatalf("pre-auth outcome = %+v, want denied", outcome)
	}

	outcome, err = b.Call(context.Background(), "vault", "auth", nil, session.Token())
	if err != nil {
		t.Fatalf("calling auth: %v", err)
	}
	if !outcome.OK {
		t.Fatalf("auth outcome = %+v, want success", outcome)
	}
	if session.Level() != binder.AssuranceBasic {
		t.Errorf("session level = %d after auth, want %d", session.Level(), binder.AssuranceBasic)
	}

	outcome, err = b.Call(context.Background(), "vault", "open", nil, session.Token())
	if err != nil {
		t.Fatalf("calling open after auth: %v", err)
	}
	if !outcome.OK {
		t.Errorf("post-auth outcome = %+v, want success", outcome)
	}
}

func TestAssembleTableOrderOverridesDocumentOrder(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	// The document lists onload before plugins; the loader table runs
	// plugins first, so its failure must come first in the aggregate.
	doc := mustParse(t, `{
		"api": "ordered",
		"onload": {"o1": {}},
		"plugins": {"p1": {}}
	}`)

	api, err := Assemble(context.Background(), b, doc, testOptions())
	if err == nil {
		t.Fatal("Assemble succeeded, want aggregated entry errors")
	}
	if api == nil {
		t.Fatal("partial assembly returned nil API")
	}
	msg := err.Error()
	pluginAt := strings.Index(msg, `plugin "p1"`)
	onloadAt := strings.Index(msg, `onload "o1"`)
	if pluginAt < 0 || onloadAt < 0 {
		t.Fatalf("aggregate missing entry failures: %v", err)
	}
	if pluginAt > onloadAt {
		t.Errorf("plugins failure reported after onload failure: %v", err)
	}
}

func TestAssembleSkipsUnknownSections(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	doc := mustParse(t, `{
		"api": "tolerant",
		"metadata-extra": {"vendor": "acme"},
		"controls": {"status": {}}
	}`)

	api, err := Assemble(context.Background(), b, doc, testOptions())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, ok := api.Verb("status"); !ok {
		t.Error("controls section after an unknown key was not loaded")
	}
}

func TestAssemblePartialFailureStillSeals(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	doc := mustParse(t, `{
		"api": "partial",
		"controls": [
			{"info": "no uid here"},
			{"uid": "works"}
		]
	}`)

	api, err := Assemble(context.Background(), b, doc, testOptions())
	if err == nil {
		t.Fatal("Assemble succeeded, want entry error")
	}
	if !strings.Contains(err.Error(), "missing uid") {
		t.Errorf("aggregate = %v, want a missing-uid failure", err)
	}
	if api == nil {
		t.Fatal("partial assembly returned nil API")
	}
	if !api.Sealed() {
		t.Error("partially assembled API not sealed")
	}

	outcome, err := b.Call(context.Background(), "partial", "works", nil, "")
	if err != nil {
		t.Fatalf("calling surviving verb: %v", err)
	}
	if !outcome.OK {
		t.Errorf("surviving verb outcome = %+v, want success", outcome)
	}
}

func TestAssembleReportsStaticVerbCollision(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	// Built-ins register before sections, so a control reusing "auth"
	// is the duplicate, not the built-in.
	doc := mustParse(t, `{
		"api": "clash",
		"controls": {"auth": {}, "extra": {}}
	}`)

	api, err := Assemble(context.Background(), b, doc, testOptions())
	if err == nil {
		t.Fatal("Assemble succeeded, want duplicate-verb error")
	}
	if !strings.Contains(err.Error(), `control "auth"`) {
		t.Errorf("aggregate = %v, want the control entry blamed", err)
	}
	if _, ok := api.Verb("extra"); !ok {
		t.Error("entry after the collision was not registered")
	}
}

func TestAssembleValidationFailure(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	doc := mustParse(t, `{"info": "anonymous"}`)

	api, err := Assemble(context.Background(), b, doc, testOptions())
	if !errors.Is(err, controldef.ErrMissingAPI) {
		t.Fatalf("Assemble error = %v, want ErrMissingAPI", err)
	}
	if api != nil {
		t.Error("invalid document still produced an API")
	}
	if len(b.APIs()) != 0 {
		t.Error("invalid document left an API on the binder")
	}
}

func TestControlActionDispatch(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	bk := registerBackend(t, b)
	doc := mustParse(t, `{
		"api": "front",
		"controls": {
			"relay": {"action": "api://backend#record", "args": {"source": "relay"}},
			"broken": {"action": "api://backend#failing"}
		}
	}`)
	if _, err := Assemble(context.Background(), b, doc, testOptions()); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	outcome, err := b.Call(context.Background(), "front", "relay", map[string]any{"kph": 88}, "")
	if err != nil {
		t.Fatalf("calling relay: %v", err)
	}
	if !outcome.OK {
		t.Fatalf("relay outcome = %+v, want success", outcome)
	}
	if got, ok := outcome.Data["recorded"].(bool); !ok || !got {
		t.Errorf("relay data = %v, want the backend reply", outcome.Data)
	}
	calls := bk.calls()
	if len(calls) != 1 {
		t.Fatalf("backend saw %d calls, want 1", len(calls))
	}
	if calls[0]["source"] != "relay" || calls[0]["kph"] != 88 {
		t.Errorf("backend payload = %v, want merged args and payload", calls[0])
	}

	outcome, err = b.Call(context.Background(), "front", "broken", nil, "")
	if err != nil {
		t.Fatalf("calling broken: %v", err)
	}
	if outcome.OK || outcome.Code != "action-failed" {
		t.Errorf("broken outcome = %+v, want action-failed", outcome)
	}
	if !strings.Contains(outcome.Message, "backend-down") {
		t.Errorf("broken message = %q, want the backend code surfaced", outcome.Message)
	}
}

func TestInitRunsOnloadActions(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	bk := registerBackend(t, b)
	doc := mustParse(t, `{
		"api": "loader",
		"onload": {
			"seed": {"action": "api://backend#record", "args": {"phase": "init"}}
		}
	}`)
	api, err := Assemble(context.Background(), b, doc, testOptions())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(bk.calls()) != 0 {
		t.Fatal("onload action ran during assembly")
	}

	if err := b.InitializeAll(context.Background()); err != nil {
		t.Fatalf("InitializeAll: %v", err)
	}
	if !api.Initialized() {
		t.Error("API not marked initialized")
	}
	calls := bk.calls()
	if len(calls) != 1 {
		t.Fatalf("backend saw %d onload calls, want 1", len(calls))
	}
	if calls[0]["phase"] != "init" {
		t.Errorf("onload payload = %v, want the configured args", calls[0])
	}
}

func TestInitSurfacesOnloadFailures(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	registerBackend(t, b)
	bad := mustParse(t, `{
		"api": "stumbles",
		"onload": {"boom": {"action": "api://backend#failing"}}
	}`)
	good := mustParse(t, `{"api": "steady"}`)

	failing, err := Assemble(context.Background(), b, bad, testOptions())
	if err != nil {
		t.Fatalf("Assemble(stumbles): %v", err)
	}
	healthy, err := Assemble(context.Background(), b, good, testOptions())
	if err != nil {
		t.Fatalf("Assemble(steady): %v", err)
	}

	err = b.InitializeAll(context.Background())
	if err == nil {
		t.Fatal("InitializeAll succeeded, want onload failure")
	}
	if !strings.Contains(err.Error(), `onload "boom"`) {
		t.Errorf("error = %v, want the onload entry blamed", err)
	}
	if failing.Initialized() {
		t.Error("API with failed onload marked initialized")
	}
	if !healthy.Initialized() {
		t.Error("later API not initialized after an earlier failure")
	}
}

func TestEventRouting(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	bk := registerBackend(t, b)
	doc := mustParse(t, `{
		"api": "router",
		"events": {
			"vehicle/speed/*": {"action": "api://backend#record"}
		}
	}`)
	if _, err := Assemble(context.Background(), b, doc, testOptions()); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if delivered := b.Emit("vehicle/speed/update", map[string]any{"kph": 120}); delivered != 1 {
		t.Errorf("Emit delivered to %d APIs, want 1", delivered)
	}
	calls := bk.calls()
	if len(calls) != 1 {
		t.Fatalf("backend saw %d routed events, want 1", len(calls))
	}
	if calls[0]["kph"] != 120 {
		t.Errorf("routed payload = %v", calls[0])
	}

	// The hook still runs for non-matching events; no route fires.
	if delivered := b.Emit("cabin/temperature", nil); delivered != 1 {
		t.Errorf("Emit delivered to %d APIs, want 1", delivered)
	}
	if len(bk.calls()) != 1 {
		t.Error("non-matching event reached the backend")
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard-binding.json")
	content := `// dashboard binding
{
	"api": "dashboard",
	"info": "vehicle dashboard", // surfaced by describe
	"controls": {
		"refresh": {},
	},
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing document: %v", err)
	}

	api, err := Load(context.Background(), b, path, testOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if api.Name() != "dashboard" {
		t.Errorf("api name = %q, want %q", api.Name(), "dashboard")
	}
	outcome, err := b.Call(context.Background(), "dashboard", "refresh", nil, "")
	if err != nil {
		t.Fatalf("calling refresh: %v", err)
	}
	if !outcome.OK {
		t.Errorf("refresh outcome = %+v, want success", outcome)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)

	api, err := Load(context.Background(), b, filepath.Join(t.TempDir(), "absent.json"), testOptions())
	if err == nil {
		t.Fatal("Load succeeded on a missing file")
	}
	if api != nil {
		t.Error("missing file still produced an API")
	}
	if len(b.APIs()) != 0 {
		t.Error("missing file left an API on the binder")
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "vehicle-binding.json")
	if err := os.WriteFile(path, []byte(`{"api": "vehicle"}`), 0o644); err != nil {
		t.Fatalf("writing document: %v", err)
	}

	found, err := Discover(DiscoverSpec{Stem: "vehicle", Override: dir})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if found != path {
		t.Errorf("Discover = %q, want %q", found, path)
	}

	_, err = Discover(DiscoverSpec{Stem: "nothing", Override: t.TempDir()})
	if !errors.Is(err, controldef.ErrNotFound) {
		t.Errorf("Discover error = %v, want ErrNotFound", err)
	}

	_, err = Discover(DiscoverSpec{Stem: "vehicle", InstallPath: "/x"})
	if !errors.Is(err, controldef.ErrMalformedInstallPath) {
		t.Errorf("Discover error = %v, want ErrMalformedInstallPath", err)
	}
}

func TestPluginControlDispatch(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	t.Cleanup(func() {
		if err := CloseAll(context.Background(), b); err != nil {
			t.Errorf("CloseAll: %v", err)
		}
	})

	// The binding references its module by a path relative to the
	// document, the usual way a binding ships alongside its plugins.
	dir := t.TempDir()
	testutil.WriteEchoModule(t, dir)
	digest := plugin.DigestModule(testutil.EchoModule()).String()
	content := fmt.Sprintf(`{
		"api": "garage",
		"plugins": {
			"engine": {"path": "echo.wasm", "digest": "%s"}
		},
		"controls": {
			"tune": {"action": "plugin://engine#echo", "args": {"profile": "sport"}}
		}
	}`, digest)
	path := filepath.Join(dir, "garage-binding.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing document: %v", err)
	}

	if _, err := Load(context.Background(), b, path, testOptions()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	outcome, err := b.Call(context.Background(), "garage", "tune", map[string]any{"kph": 88}, "")
	if err != nil {
		t.Fatalf("calling tune: %v", err)
	}
	if !outcome.OK {
		t.Fatalf("tune outcome = %+v, want success", outcome)
	}
	// The echo module replies with its request, so the data is the
	// merged payload after a JSON round trip through guest memory.
	if outcome.Data["profile"] != "sport" {
		t.Errorf("configured arg lost through the plugin: %v", outcome.Data)
	}
	if outcome.Data["kph"] != float64(88) {
		t.Errorf("call payload lost through the plugin: %v", outcome.Data)
	}
}

func TestPluginDigestMismatchFailsAssembly(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	t.Cleanup(func() {
		if err := CloseAll(context.Background(), b); err != nil {
			t.Errorf("CloseAll: %v", err)
		}
	})

	dir := t.TempDir()
	modulePath := testutil.WriteEchoModule(t, dir)
	wrong := plugin.DigestModule([]byte("a different module")).String()
	doc := mustParse(t, fmt.Sprintf(`{
		"api": "tampered",
		"plugins": {
			"engine": {"path": "%s", "digest": "%s"}
		}
	}`, modulePath, wrong))

	_, err := Assemble(context.Background(), b, doc, testOptions())
	if !errors.Is(err, plugin.ErrDigestMismatch) {
		t.Fatalf("Assemble error = %v, want ErrDigestMismatch", err)
	}
	if !strings.Contains(err.Error(), `plugin "engine"`) {
		t.Errorf("aggregate = %v, want the plugin entry blamed", err)
	}
}

func TestCloseAllReleasesPluginRuntimes(t *testing.T) {
	t.Parallel()
	b := newTestBinder(t)
	// The missing module file fails the entry but the plugin runtime
	// has already been created; CloseAll must release it.
	doc := mustParse(t, `{
		"api": "plugged",
		"plugins": {
			"ghost": {"path": "/nonexistent/ghost.wasm"}
		}
	}`)

	api, err := Assemble(context.Background(), b, doc, testOptions())
	if err == nil {
		t.Fatal("Assemble succeeded, want plugin load failure")
	}
	as, ok := api.Context().(*Assembly)
	if !ok {
		t.Fatal("API context is not the assembly")
	}
	if as.Plugins() == nil {
		t.Fatal("plugin runtime was not created")
	}

	if err := CloseAll(context.Background(), b); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
}
