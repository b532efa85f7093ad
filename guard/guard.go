// Package guard gates protected view trees on a validated session. A guard
// wraps a handler the way the server middleware chain does: resolve the
// local token, validate it against the backend ping endpoint, then either
// serve the protected handler or redirect to the login view with the
// original destination preserved.
package guard

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/Joel254010/myglobyx-go/api"
	"github.com/Joel254010/myglobyx-go/session"
)

// State is the per-request progression of a guard check.
type State string

const (
	StateChecking     State = "checking"
	StateAuthorized   State = "authorized"
	StateUnauthorized State = "unauthorized"
)

// Scope is the slice of the session a guard owns: token lookup and token
// destruction for one session type (customer or admin).
type Scope interface {
	Token() (string, bool)
	Clear()
}

// Pinger validates a resolved token against the backend.
type Pinger func(ctx context.Context, tok string) error

// clearCodes are the error codes that mean the stored token itself is bad.
// Retrying with the same token cannot succeed, so the guard destroys it.
// Transient codes (network_error, other HTTP statuses) are absent on
// purpose: those tokens may still work once the backend is reachable.
var clearCodes = map[string]bool{
	api.CodeUnauthorized:      true,
	api.CodeForbidden:         true,
	api.CodeInvalidToken:      true,
	api.CodeTokenExpired:      true,
	"expired_token":           true,
	api.CodeMissingAdminToken: true,
	"HTTP_401":                true,
	"HTTP_403":                true,
}

// Guard gates one protected area.
type Guard struct {
	name               string
	scope              Scope
	ping               Pinger
	loginPath          string
	clearOnServerError bool
}

// Option modifies a Guard.
type Option func(*Guard)

// WithClearOnServerError makes unexpected 5xx responses destroy the stored
// token as well. Off by default: a crashing backend says nothing about the
// token.
func WithClearOnServerError(clear bool) Option {
	return func(g *Guard) {
		g.clearOnServerError = clear
	}
}

// Customer builds the guard for the customer area. Token resolution is
// expiry-aware: locally expired slots are skipped before any network call.
func Customer(m *session.Manager, client *api.Client, options ...Option) *Guard {
	g := &Guard{
		name:      "customer",
		scope:     customerScope{m},
		ping:      client.ValidateSession,
		loginPath: "/login",
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Admin builds the guard for the back office. The admin session is
// independent from the customer session and validates against the admin
// ping endpoint.
func Admin(m *session.Manager, client *api.Client, options ...Option) *Guard {
	g := &Guard{
		name:  "admin",
		scope: adminScope{m},
		ping: func(ctx context.Context, tok string) error {
			_, err := client.AdminPing(ctx, tok)
			return err
		},
		loginPath: "/admin/login",
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Middleware wraps a protected handler. With no local token the redirect
// is immediate and no network call is made.
func (g *Guard) Middleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tok, ok := g.scope.Token()
			if !ok {
				g.redirect(w, r)
				return
			}

			log.Debug().Str("guard", g.name).Str("state", string(StateChecking)).Msg("validating session")
			err := g.ping(r.Context(), tok)
			if err == nil {
				log.Debug().Str("guard", g.name).Str("state", string(StateAuthorized)).Msg("session valid")
				next(w, r)
				return
			}

			// A canceled request must not produce side effects: the
			// failure says nothing about the token.
			if r.Context().Err() != nil {
				return
			}

			code := api.CodeOf(err)
			if g.shouldClear(code, api.StatusOf(err)) {
				log.Debug().Str("guard", g.name).Str("code", code).Msg("token rejected, destroying stored session")
				g.scope.Clear()
			} else {
				log.Debug().Str("guard", g.name).Str("code", code).Msg("validation failed, keeping stored session")
			}
			g.redirect(w, r)
		}
	}
}

func (g *Guard) shouldClear(code string, status int) bool {
	if clearCodes[code] {
		return true
	}
	if g.clearOnServerError && status >= 500 {
		return true
	}
	return false
}

// redirect sends the user to the login view, preserving the requested
// location so the login flow can return to it.
func (g *Guard) redirect(w http.ResponseWriter, r *http.Request) {
	log.Debug().Str("guard", g.name).Str("state", string(StateUnauthorized)).Str("from", r.URL.Path).Msg("redirecting to login")
	http.Redirect(w, r, g.loginPath+"?from="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
}

// customerScope reads expiry-aware and clears only customer slots.
type customerScope struct {
	m *session.Manager
}

func (s customerScope) Token() (string, bool) { return s.m.FreshToken() }
func (s customerScope) Clear()                { s.m.ClearAuth() }

// adminScope owns the dedicated admin slot.
type adminScope struct {
	m *session.Manager
}

func (s adminScope) Token() (string, bool) { return s.m.AdminToken() }
func (s adminScope) Clear()                { s.m.ClearAdminToken() }

// ReturnPath extracts the post-login destination from a login request,
// falling back to def when the parameter is absent or not a local path.
func ReturnPath(r *http.Request, def string) string {
	from := r.URL.Query().Get("from")
	if from == "" || from[0] != '/' {
		return def
	}
	return from
}

// Chain applies middleware to a handler in declaration order.
func Chain(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}
