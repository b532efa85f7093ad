// Package session resolves, persists, and destroys the authenticated
// session across every storage backend and key alias the product has ever
// used. The governing invariant is write-everywhere /
// read-first-match-with-exhaustive-fallback: a token saved by any earlier
// build, under any key, in any backend, must still resolve.
package session

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Joel254010/myglobyx-go/store"
	"github.com/Joel254010/myglobyx-go/token"
)

// User is the cached profile snapshot persisted alongside the token. It is
// display-only; the backend remains the source of truth for identity.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TokenBinding receives the active bearer credential whenever the session
// changes. *api.Client satisfies it.
type TokenBinding interface {
	SetAuthToken(tok string)
}

// Manager is the authentication facade. All operations are total: storage
// failures resolve to "no value" and never reach the caller.
type Manager struct {
	backends    []store.Backend // priority order, durable first
	binding     TokenBinding
	allowLegacy bool
	onLogout    func()
	now         func() time.Time
}

// Option modifies a Manager.
type Option func(*Manager)

// WithBinding wires the API client (or any credential sink) that should
// track the session token.
func WithBinding(b TokenBinding) Option {
	return func(m *Manager) {
		m.binding = b
	}
}

// WithLegacyTokens controls whether non-JWT values under the legacy key
// are accepted. Defaults to true.
func WithLegacyTokens(allow bool) Option {
	return func(m *Manager) {
		m.allowLegacy = allow
	}
}

// WithLogoutFunc sets the navigation side effect run after Logout clears
// the session.
func WithLogoutFunc(fn func()) Option {
	return func(m *Manager) {
		m.onLogout = fn
	}
}

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager over the given backends, iterated in
// priority order (durable first, then session-scoped).
func NewManager(backends []store.Backend, options ...Option) *Manager {
	m := &Manager{
		backends:    backends,
		allowLegacy: true,
		now:         time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Token resolves the current customer token. Known slots are scanned in
// priority order first; if none parses, a second exhaustive pass over
// every key in every backend recovers tokens saved under unknown key
// names. Returns ok=false when nothing usable exists anywhere.
func (m *Manager) Token() (string, bool) {
	return m.lookup(false)
}

// FreshToken is Token with expiry-aware slot skipping: slots whose token
// carries a decodable exp claim in the past are passed over, so a live
// token under a lower-priority alias still wins. Used by the customer
// route guard to avoid a guaranteed-failing round trip.
func (m *Manager) FreshToken() (string, bool) {
	return m.lookup(true)
}

func (m *Manager) lookup(skipExpired bool) (string, bool) {
	now := m.now()

	for _, backend := range m.backends {
		for _, key := range TokenKeys {
			raw, ok := backend.Get(key)
			if !ok || raw == "" {
				continue
			}
			if tok, ok := token.Parse(raw); ok {
				if skipExpired && token.Expired(tok, now) {
					continue
				}
				return tok, true
			}
			// Pre-JWT sessions stored opaque strings under the legacy key.
			if m.allowLegacy && key == LegacyTokenKey {
				if candidate := token.Normalize(raw); candidate != "" {
					return candidate, true
				}
			}
		}
	}

	// Exhaustive fallback: a token may have been saved under a key this
	// build does not know about. The admin slot is excluded, the scopes
	// are independent.
	for _, backend := range m.backends {
		for _, key := range backend.Keys() {
			if key == AdminTokenKey {
				continue
			}
			raw, ok := backend.Get(key)
			if !ok {
				continue
			}
			if tok, ok := token.Parse(raw); ok {
				if skipExpired && token.Expired(tok, now) {
					continue
				}
				return tok, true
			}
		}
	}

	return "", false
}

// User returns the cached profile snapshot from the first backend holding
// a structurally valid one (a name field at minimum).
func (m *Manager) User() (*User, bool) {
	for _, backend := range m.backends {
		raw, ok := backend.Get(UserKey)
		if !ok || raw == "" {
			continue
		}
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err != nil || u.Name == "" {
			continue
		}
		return &u, true
	}
	return nil, false
}

// SetAuth persists a new customer session: the token is written to every
// (backend × key-alias) slot, the user snapshot to every backend, and the
// credential is pushed to the bound API client. Per-slot write failures
// are swallowed by the backends; the call never fails.
func (m *Manager) SetAuth(tok string, user *User) {
	for _, backend := range m.backends {
		for _, key := range TokenKeys {
			backend.Set(key, tok)
		}
		if user != nil {
			if data, err := json.Marshal(user); err == nil {
				backend.Set(UserKey, string(data))
			}
		}
	}
	if m.binding != nil {
		m.binding.SetAuthToken(tok)
	}
	log.Debug().Msg("customer session saved")
}

// ClearAuth destroys the customer session everywhere and clears the bound
// credential. Safe to call repeatedly.
func (m *Manager) ClearAuth() {
	for _, backend := range m.backends {
		for _, key := range TokenKeys {
			backend.Remove(key)
		}
		backend.Remove(UserKey)
	}
	if m.binding != nil {
		m.binding.SetAuthToken("")
	}
	log.Debug().Msg("customer session cleared")
}

// IsAuthenticated reports whether a usable customer token exists.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.Token()
	return ok
}

// Logout clears the session and runs the configured navigation side
// effect.
func (m *Manager) Logout() {
	m.ClearAuth()
	if m.onLogout != nil {
		m.onLogout()
	}
}

// Restore pushes the stored token (if any) to the bound API client. Meant
// for process start, so requests issued before the first login carry the
// persisted credential.
func (m *Manager) Restore() {
	if m.binding == nil {
		return
	}
	if tok, ok := m.Token(); ok {
		m.binding.SetAuthToken(tok)
	}
}

// AdminToken resolves the admin session. The admin token lives under one
// dedicated key in the durable backend only, so a customer token can never
// satisfy the admin guard.
func (m *Manager) AdminToken() (string, bool) {
	for _, backend := range m.backends {
		if backend.Name() != "durable" {
			continue
		}
		raw, ok := backend.Get(AdminTokenKey)
		if !ok {
			continue
		}
		if candidate := token.Normalize(raw); candidate != "" {
			return candidate, true
		}
	}
	return "", false
}

// SetAdminToken persists the admin session.
func (m *Manager) SetAdminToken(tok string) {
	for _, backend := range m.backends {
		if backend.Name() == "durable" {
			backend.Set(AdminTokenKey, tok)
		}
	}
	log.Debug().Msg("admin session saved")
}

// ClearAdminToken destroys the admin session. Safe to call repeatedly.
func (m *Manager) ClearAdminToken() {
	for _, backend := range m.backends {
		if backend.Name() == "durable" {
			backend.Remove(AdminTokenKey)
		}
	}
	log.Debug().Msg("admin session cleared")
}
