// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bindery-foundation/bindery/lib/clock"
)

// DefaultSessionTTL is the idle expiry applied when Options.SessionTTL
// is zero.
const DefaultSessionTTL = 30 * time.Minute

// Errors returned by Call for requests that never reached a handler.
var (
	ErrUnknownAPI  = errors.New("unknown api")
	ErrUnknownVerb = errors.New("unknown verb")
	ErrAssembling  = errors.New("api is still assembling")
)

// PreInitFunc assembles an API's shape: verbs, hooks, user context.
// It runs synchronously inside CreateAPI, before the API is sealed.
// Each returned error describes one part that failed to configure;
// the rest of the assembly stands.
type PreInitFunc func(api *API) []error

// Options configures a Binder.
type Options struct {
	// Name is the instance name the binder announces in its status
	// reports. Empty is allowed; the daemon configures one.
	Name string

	// Logger receives binder and per-API log records. Defaults to
	// slog.Default.
	Logger *slog.Logger

	// Clock drives session expiry. Defaults to the real clock.
	Clock clock.Clock

	// SessionTTL is the idle duration after which a session expires.
	// Zero means DefaultSessionTTL.
	SessionTTL time.Duration

	// DiscardOnError drops an API whose pre-init reported errors
	// instead of keeping it partially assembled. The default keeps
	// it: the sections that configured correctly stay callable.
	DiscardOnError bool
}

// Binder hosts named APIs and serves calls, events, and sessions
// against them. Create one per process, assemble APIs with CreateAPI,
// then call InitializeAll exactly once before serving traffic.
type Binder struct {
	name           string
	logger         *slog.Logger
	clock          clock.Clock
	discardOnError bool
	sessions       *sessionStore
	started        time.Time

	mu       sync.RWMutex
	serving  bool
	apis     map[string]*API
	apiOrder []string
}

// New creates an empty Binder.
func New(opts Options) *Binder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Binder{
		name:           opts.Name,
		logger:         logger,
		clock:          clk,
		discardOnError: opts.DiscardOnError,
		sessions:       newSessionStore(clk, ttl, logger),
		started:        clk.Now(),
		apis:           make(map[string]*API),
	}
}

// Name returns the configured instance name.
func (b *Binder) Name() string { return b.name }

// CreateAPI registers a new named API and runs preInit to assemble it.
// The API is sealed when CreateAPI returns, whatever preInit reported.
//
// If preInit reported errors, the joined error is returned alongside
// the API, which stays registered in its partial shape unless the
// binder was configured with DiscardOnError. A nil *API is only
// returned when nothing was registered.
func (b *Binder) CreateAPI(name, info string, preInit PreInitFunc) (*API, error) {
	if name == "" {
		return nil, errors.New("api name is empty")
	}

	b.mu.Lock()
	if b.serving {
		b.mu.Unlock()
		return nil, fmt.Errorf("creating api %q: binder is already initialized", name)
	}
	if _, exists := b.apis[name]; exists {
		b.mu.Unlock()
		return nil, fmt.Errorf("api %q already exists", name)
	}
	api := &API{
		name:   name,
		info:   info,
		logger: b.logger.With("api", name),
		verbs:  make(map[string]*Verb),
	}
	b.apis[name] = api
	b.apiOrder = append(b.apiOrder, name)
	b.mu.Unlock()

	var errs []error
	if preInit != nil {
		errs = preInit(api)
	}
	api.mu.Lock()
	api.assemblyErrors = errs
	api.sealed = true
	api.mu.Unlock()

	if len(errs) == 0 {
		api.logger.Info("api assembled", "verbs", len(api.Verbs()))
		return api, nil
	}

	err := fmt.Errorf("assembling api %q: %w", name, errors.Join(errs...))
	if b.discardOnError {
		b.mu.Lock()
		delete(b.apis, name)
		for i, n := range b.apiOrder {
			if n == name {
				b.apiOrder = append(b.apiOrder[:i], b.apiOrder[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		api.logger.Error("api discarded", "errors", len(errs))
		return nil, err
	}
	api.logger.Warn("api partially assembled", "errors", len(errs))
	return api, err
}

// InitializeAll runs every API's deferred init hook, in API creation
// order, and moves the binder into its serving phase. It may be called
// once; hooks that fail do not stop later hooks, and all failures are
// joined into the returned error.
func (b *Binder) InitializeAll(ctx context.Context) error {
	b.mu.Lock()
	if b.serving {
		b.mu.Unlock()
		return errors.New("binder is already initialized")
	}
	b.serving = true
	order := make([]string, len(b.apiOrder))
	copy(order, b.apiOrder)
	b.mu.Unlock()

	var errs []error
	for _, name := range order {
		api, ok := b.API(name)
		if !ok {
			continue
		}
		api.mu.RLock()
		hook := api.initHook
		api.mu.RUnlock()
		if hook != nil {
			if err := hook(ctx, api); err != nil {
				api.logger.Error("api init failed", "error", err)
				errs = append(errs, fmt.Errorf("initializing api %q: %w", name, err))
				continue
			}
		}
		api.markInitialized()
		api.logger.Debug("api initialized")
	}
	return errors.Join(errs...)
}

// Call invokes a verb. The returned error covers requests that never
// reached a handler: unknown API or verb, unknown or expired session
// token. Everything else, including assurance denials and handler
// failures, is expressed in the Outcome.
//
// An empty token runs the call under a transient anonymous session at
// assurance level 0.
func (b *Binder) Call(ctx context.Context, apiName, verbName string, payload map[string]any, token string) (Outcome, error) {
	api, ok := b.API(apiName)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAPI, apiName)
	}
	if !api.Sealed() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrAssembling, apiName)
	}
	verb, ok := api.verb(verbName)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q has no verb %q", ErrUnknownVerb, apiName, verbName)
	}

	var session *Session
	if token == "" {
		session = &Session{level: AssuranceNone, lastSeen: b.clock.Now()}
	} else {
		var err error
		session, err = b.sessions.lookup(token)
		if err != nil {
			return Outcome{}, err
		}
	}

	if session.Level() < verb.Assurance {
		b.logger.Warn("call denied",
			"api", apiName,
			"verb", verbName,
			"required", int(verb.Assurance),
			"held", int(session.Level()))
		return Outcome{
			OK:      false,
			Code:    CodeDenied,
			Message: fmt.Sprintf("verb %q requires assurance level %d", verbName, verb.Assurance),
		}, nil
	}

	req := &Request{
		ctx:     ctx,
		api:     api,
		verb:    verbName,
		session: session,
		payload: payload,
		logger:  api.logger,
	}
	verb.Handler(req)
	return req.finish(), nil
}

// API resolves a registered API by name.
func (b *Binder) API(name string) (*API, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	api, ok := b.apis[name]
	return api, ok
}

// APIs lists registered APIs in creation order.
func (b *Binder) APIs() []*API {
	b.mu.RLock()
	defer b.mu.RUnlock()
	apis := make([]*API, 0, len(b.apiOrder))
	for _, name := range b.apiOrder {
		apis = append(apis, b.apis[name])
	}
	return apis
}

// NewSession mints a fresh level-0 session and returns it. The token
// is the caller's handle for all later requests.
func (b *Binder) NewSession() (*Session, error) {
	return b.sessions.mint()
}

// SessionCount returns the number of live sessions.
func (b *Binder) SessionCount() int {
	return b.sessions.count()
}

// Serving reports whether InitializeAll has run.
func (b *Binder) Serving() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.serving
}

// Started returns the binder's creation time.
func (b *Binder) Started() time.Time { return b.started }

// RunSessionSweeper periodically removes idle-expired sessions until
// ctx is cancelled. Run it in its own goroutine.
func (b *Binder) RunSessionSweeper(ctx context.Context) {
	b.sessions.runSweeper(ctx)
}
