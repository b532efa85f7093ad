// Package api is the REST client for the MyGlobyx backend. It owns bearer
// credential propagation (via an oauth2 transport) and the normalization of
// every transport or HTTP failure into a small stable error-code
// vocabulary.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout  = 10 * time.Second
	contentTypeJSON = "application/json"
)

// Client is a session-aware API client. The active bearer credential is
// explicit per-instance state, never a process-wide default.
type Client struct {
	baseURL string
	timeout time.Duration
	base    http.RoundTripper

	mu   sync.RWMutex
	http *http.Client
}

// Option modifies a Client.
type Option func(*Client)

// WithTimeout overrides the fixed request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithTransport overrides the base round tripper (primarily for testing).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// New creates a Client for the backend at baseURL with no credential bound.
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		base:    http.DefaultTransport,
	}
	for _, opt := range options {
		opt(c)
	}
	c.http = &http.Client{Timeout: c.timeout, Transport: c.base}
	return c
}

// SetAuthToken binds tok as the default bearer credential for all
// subsequent requests. An empty token clears the credential. The swap is
// synchronous: a request dispatched after SetAuthToken returns always
// carries the new credential.
func (c *Client) SetAuthToken(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok == "" {
		c.http = &http.Client{Timeout: c.timeout, Transport: c.base}
		return
	}
	transport := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}),
		Base:   c.base,
	}
	c.http = &http.Client{Timeout: c.timeout, Transport: transport}
}

func (c *Client) client() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.http
}

// AuthResponse is the body of a successful login or signup.
type AuthResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// Profile is the backend's user snapshot.
type Profile struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Login authenticates with email/password and returns the issued token and
// user snapshot.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp, ""); err != nil {
		return nil, errors.Wrap(err, "[Login] request failed")
	}
	return &resp, nil
}

// Signup registers a new account and returns the issued token and user
// snapshot.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/signup", body, &resp, ""); err != nil {
		return nil, errors.Wrap(err, "[Signup] request failed")
	}
	return &resp, nil
}

// Me fetches the profile of the bound credential's owner.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var resp Profile
	if err := c.do(ctx, http.MethodGet, "/me", nil, &resp, ""); err != nil {
		return nil, errors.Wrap(err, "[Me] request failed")
	}
	return &resp, nil
}

// ValidateSession checks tok against the profile endpoint without touching
// the bound credential. Used by the customer route guard.
func (c *Client) ValidateSession(ctx context.Context, tok string) error {
	return c.do(ctx, http.MethodGet, "/me", nil, nil, tok)
}

// AdminPingResponse is the body of a successful admin ping.
type AdminPingResponse struct {
	OK      bool     `json:"ok"`
	IsAdmin bool     `json:"isAdmin,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	Email   string   `json:"email,omitempty"`
}

// AdminPing validates the admin token. The current backend serves
// /admin/ping; deployments predating the route move still answer on
// /api/admin/ping, so a 404 falls through to the legacy path.
func (c *Client) AdminPing(ctx context.Context, tok string) (*AdminPingResponse, error) {
	if tok == "" {
		return nil, &Error{Code: CodeMissingAdminToken}
	}
	var resp AdminPingResponse
	err := c.do(ctx, http.MethodGet, "/admin/ping", nil, &resp, tok)
	if err != nil && StatusOf(err) == http.StatusNotFound {
		err = c.do(ctx, http.MethodGet, "/api/admin/ping", nil, &resp, tok)
	}
	if err != nil {
		return nil, errors.Wrap(err, "[AdminPing] request failed")
	}
	return &resp, nil
}

// Warmup opportunistically hits the deployment root so a cold-started
// backend is spinning up before the first real call. Failures are ignored
// by design.
func (c *Client) Warmup(ctx context.Context) {
	if err := c.do(ctx, http.MethodGet, "/", nil, nil, ""); err != nil {
		log.Debug().Str("code", CodeOf(err)).Msg("warmup ping failed")
	}
}

// do issues one request and normalizes any failure. bearerOverride, when
// non-empty, replaces the bound credential for this call only.
func (c *Client) do(ctx context.Context, method, path string, body, out any, bearerOverride string) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[do] marshal request body")
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "[do] build request")
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("X-Request-ID", uuid.NewString())

	httpClient := c.client()
	if bearerOverride != "" {
		// An explicit credential bypasses the bound transport entirely,
		// otherwise the oauth2 transport would clobber the header.
		req.Header.Set("Authorization", "Bearer "+bearerOverride)
		httpClient = &http.Client{Timeout: c.timeout, Transport: c.base}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Debug().Str("method", method).Str("path", path).Err(err).Msg("api transport failure")
		return normalizeTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := normalizeResponseError(resp)
		log.Debug().Str("method", method).Str("path", path).
			Int("status", apiErr.Status).Str("code", apiErr.Code).Msg("api call rejected")
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "[do] decode response body")
		}
	}
	return nil
}
