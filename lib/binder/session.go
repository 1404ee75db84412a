// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bindery-foundation/bindery/lib/clock"
)

// AssuranceLevel grades how strongly a session has been authenticated.
// Level 0 is anonymous; verbs declare the minimum level they require
// and the binder refuses calls below it.
type AssuranceLevel int

const (
	// AssuranceNone is the level of anonymous and freshly minted
	// sessions.
	AssuranceNone AssuranceLevel = 0

	// AssuranceBasic is granted by the built-in "auth" verb.
	AssuranceBasic AssuranceLevel = 1

	// AssuranceElevated and AssuranceFull are reserved for
	// deployment-specific authentication actions configured through
	// the controls section.
	AssuranceElevated AssuranceLevel = 2
	AssuranceFull     AssuranceLevel = 3
)

// Valid reports whether the level is within the defined range.
func (l AssuranceLevel) Valid() bool {
	return l >= AssuranceNone && l <= AssuranceFull
}

// ErrUnknownSession reports a call that presented a token the binder
// does not know — never minted, expired, or swept.
var ErrUnknownSession = errors.New("unknown session token")

// Session is one caller's authentication state. Sessions are minted by
// the binder, identified by an opaque random token, and expire after
// an idle period. The zero of everything is an anonymous session:
// level 0, no token, not stored.
type Session struct {
	token string

	mu       sync.Mutex
	level    AssuranceLevel
	lastSeen time.Time
}

// Token returns the opaque token callers present to resume this
// session. Empty for anonymous sessions.
func (s *Session) Token() string { return s.token }

// Level returns the session's current assurance level.
func (s *Session) Level() AssuranceLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// SetLevel changes the session's assurance level. Out-of-range levels
// are rejected.
func (s *Session) SetLevel(level AssuranceLevel) error {
	if !level.Valid() {
		return fmt.Errorf("assurance level %d out of range", level)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
	return nil
}

// touch records activity for idle-expiry purposes.
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

// idleSince reports the last activity time.
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// sessionStore holds minted sessions keyed by token. Expiry is
// enforced both lazily on lookup and periodically by the sweeper.
type sessionStore struct {
	clock  clock.Clock
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func newSessionStore(clk clock.Clock, ttl time.Duration, logger *slog.Logger) *sessionStore {
	return &sessionStore{
		clock:    clk,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// mint creates a new level-0 session with a random 128-bit token.
func (st *sessionStore) mint() (*Session, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("minting session token: %w", err)
	}

	session := &Session{
		token:    hex.EncodeToString(buf),
		level:    AssuranceNone,
		lastSeen: st.clock.Now(),
	}

	st.mu.Lock()
	st.sessions[session.token] = session
	st.mu.Unlock()
	return session, nil
}

// lookup resolves a token to its session and refreshes its idle timer.
// Expired sessions are removed on the spot.
func (st *sessionStore) lookup(token string) (*Session, error) {
	now := st.clock.Now()

	st.mu.Lock()
	defer st.mu.Unlock()

	session, ok := st.sessions[token]
	if !ok {
		return nil, ErrUnknownSession
	}
	if now.Sub(session.idleSince()) > st.ttl {
		delete(st.sessions, token)
		return nil, fmt.Errorf("%w: expired", ErrUnknownSession)
	}
	session.touch(now)
	return session, nil
}

// count returns the number of live sessions, sweeping expired ones
// first so status reporting does not count the dead.
func (st *sessionStore) count() int {
	st.sweep(st.clock.Now())
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// sweep removes sessions idle longer than the ttl and returns how many
// were removed.
func (st *sessionStore) sweep(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for token, session := range st.sessions {
		if now.Sub(session.idleSince()) > st.ttl {
			delete(st.sessions, token)
			removed++
		}
	}
	return removed
}

// runSweeper periodically removes expired sessions until ctx is
// cancelled. The interval is a quarter of the ttl so a session is
// removed at most 1.25 ttls after its last activity.
func (st *sessionStore) runSweeper(ctx context.Context) {
	interval := st.ttl / 4
	if interval <= 0 {
		interval = st.ttl
	}
	ticker := st.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := st.sweep(now); removed > 0 {
				st.logger.Debug("swept expired sessions", "removed", removed)
			}
		}
	}
}
