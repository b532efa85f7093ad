package guard_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Joel254010/myglobyx-go/api"
	"github.com/Joel254010/myglobyx-go/guard"
	"github.com/Joel254010/myglobyx-go/session"
	"github.com/Joel254010/myglobyx-go/store"
)

// pingBehavior scripts the backend's answer to validation calls and counts
// them.
type pingBehavior struct {
	calls  int
	status int
	code   string
}

type testFixture struct {
	durable  store.Backend
	volatile store.Backend
	manager  *session.Manager
	client   *api.Client
	backend  *httptest.Server
	ping     *pingBehavior
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		durable:  store.NewFileStore(filepath.Join(t.TempDir(), "session.json")),
		volatile: store.NewMemStore(),
		ping:     &pingBehavior{status: http.StatusOK},
	}
	f.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.ping.calls++
		if f.ping.status != http.StatusOK {
			w.WriteHeader(f.ping.status)
			if f.ping.code != "" {
				_ = json.NewEncoder(w).Encode(map[string]string{"error": f.ping.code})
			}
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	t.Cleanup(f.backend.Close)

	f.client = api.New(f.backend.URL)
	f.manager = session.NewManager([]store.Backend{f.durable, f.volatile})
	return f
}

func (f *testFixture) request(t *testing.T, g *guard.Guard, target string) *httptest.ResponseRecorder {
	t.Helper()

	handler := guard.Chain(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "protected")
	}, g.Middleware())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func makeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return fmt.Sprintf("%s.%s.sig", header, base64.RawURLEncoding.EncodeToString(payload))
}

func requireRedirect(t *testing.T, rec *httptest.ResponseRecorder, loginPath, from string) {
	t.Helper()

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, loginPath, loc.Path)
	require.Equal(t, from, loc.Query().Get("from"))
}

func TestCustomerGuardNoTokenShortCircuits(t *testing.T) {
	f := setupTestFixture(t)
	g := guard.Customer(f.manager, f.client)

	rec := f.request(t, g, "/app/products")

	requireRedirect(t, rec, "/login", "/app/products")
	require.Equal(t, 0, f.ping.calls, "no network call may happen without a local token")
}

func TestCustomerGuardValidTokenServesProtectedHandler(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.SetAuth("abc.def.ghi", nil)
	g := guard.Customer(f.manager, f.client)

	rec := f.request(t, g, "/app")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "protected", rec.Body.String())
	require.Equal(t, 1, f.ping.calls)
}

func TestCustomerGuardAuthFailureDestroysToken(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.SetAuth("abc.def.ghi", nil)
	f.ping.status = http.StatusUnauthorized
	f.ping.code = "unauthorized"
	g := guard.Customer(f.manager, f.client)

	rec := f.request(t, g, "/app")

	requireRedirect(t, rec, "/login", "/app")
	_, ok := f.manager.Token()
	require.False(t, ok, "rejected token must be destroyed")
}

func TestCustomerGuardNetworkFailureKeepsToken(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.SetAuth("abc.def.ghi", nil)
	f.backend.Close() // backend unreachable
	g := guard.Customer(f.manager, f.client)

	rec := f.request(t, g, "/app")

	requireRedirect(t, rec, "/login", "/app")
	tok, ok := f.manager.Token()
	require.True(t, ok, "a transient failure must not destroy the token")
	require.Equal(t, "abc.def.ghi", tok)
}

func TestCustomerGuardUnexpectedStatusKeepsTokenByDefault(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.SetAuth("abc.def.ghi", nil)
	f.ping.status = http.StatusInternalServerError
	g := guard.Customer(f.manager, f.client)

	f.request(t, g, "/app")

	_, ok := f.manager.Token()
	require.True(t, ok)
}

func TestCustomerGuardClearOnServerErrorOptIn(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.SetAuth("abc.def.ghi", nil)
	f.ping.status = http.StatusInternalServerError
	g := guard.Customer(f.manager, f.client, guard.WithClearOnServerError(true))

	f.request(t, g, "/app")

	_, ok := f.manager.Token()
	require.False(t, ok)
}

func TestCustomerGuardSkipsLocallyExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	stale := makeJWT(t, map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})
	f.durable.Set(session.TokenKey, stale)
	g := guard.Customer(f.manager, f.client)

	rec := f.request(t, g, "/app")

	requireRedirect(t, rec, "/login", "/app")
	require.Equal(t, 0, f.ping.calls, "a locally expired token is a guaranteed-failing round trip")
}

func TestCanceledRequestLeavesSessionUntouched(t *testing.T) {
	pinged := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(pinged)
		<-r.Context().Done() // hold the ping until the caller gives up
	}))
	t.Cleanup(backend.Close)

	durable := store.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	manager := session.NewManager([]store.Backend{durable, store.NewMemStore()})
	manager.SetAuth("abc.def.ghi", nil)
	g := guard.Customer(manager, api.New(backend.URL))

	handler := guard.Chain(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler must not run for a canceled request")
	}, g.Middleware())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-pinged
		cancel()
	}()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/app", nil).WithContext(ctx))

	// A navigation away mid-check produces no side effects: no redirect is
	// written and the stored token survives for the next attempt.
	require.Empty(t, rec.Header().Get("Location"))
	tok, ok := manager.Token()
	require.True(t, ok)
	require.Equal(t, "abc.def.ghi", tok)
}

func TestAdminGuardIgnoresCustomerSession(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.SetAuth("abc.def.ghi", nil)
	g := guard.Admin(f.manager, f.client)

	rec := f.request(t, g, "/admin/users")

	requireRedirect(t, rec, "/admin/login", "/admin/users")
	require.Equal(t, 0, f.ping.calls)
}

func TestAdminGuardAuthFailureDestroysAdminTokenOnly(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.SetAuth("abc.def.ghi", nil)
	f.manager.SetAdminToken("adm.adm.adm")
	f.ping.status = http.StatusForbidden
	f.ping.code = "forbidden"
	g := guard.Admin(f.manager, f.client)

	f.request(t, g, "/admin")

	_, ok := f.manager.AdminToken()
	require.False(t, ok, "rejected admin token must be destroyed")
	_, ok = f.manager.Token()
	require.True(t, ok, "the customer session is untouched")
}

func TestAdminGuardValidTokenServesProtectedHandler(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.SetAdminToken("adm.adm.adm")
	g := guard.Admin(f.manager, f.client)

	rec := f.request(t, g, "/admin")

	require.Equal(t, http.StatusOK, rec.Code)
	require.GreaterOrEqual(t, f.ping.calls, 1)
}

func TestReturnPath(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/login?from=%2Fapp%2Fprodutos", nil)
	require.Equal(t, "/app/produtos", guard.ReturnPath(r, "/app"))

	r = httptest.NewRequest(http.MethodGet, "/login", nil)
	require.Equal(t, "/app", guard.ReturnPath(r, "/app"))

	// Only local paths are honored.
	r = httptest.NewRequest(http.MethodGet, "/login?from=https%3A%2F%2Fevil.example", nil)
	require.Equal(t, "/app", guard.ReturnPath(r, "/app"))
}
