package token_test

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Joel254010/myglobyx-go/token"
)

func makeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return fmt.Sprintf("%s.%s.sig", header, base64.RawURLEncoding.EncodeToString(payload))
}

func TestParsePlainToken(t *testing.T) {
	tok, ok := token.Parse("abc.def.ghi")
	require.True(t, ok)
	require.Equal(t, "abc.def.ghi", tok)
}

func TestParseStripsBearerPrefix(t *testing.T) {
	for _, raw := range []string{
		"Bearer abc.def.ghi",
		"bearer abc.def.ghi",
		"  BEARER abc.def.ghi  ",
		"Bearer\tabc.def.ghi",
		"Bearer   \t abc.def.ghi",
	} {
		tok, ok := token.Parse(raw)
		require.True(t, ok, raw)
		require.Equal(t, "abc.def.ghi", tok)
	}

	// Without whitespace after the word there is no prefix to strip; the
	// value stands on its own (and happens to be JWT-shaped here).
	tok, ok := token.Parse("Bearerabc.def.ghi")
	require.True(t, ok)
	require.Equal(t, "Bearerabc.def.ghi", tok)
}

func TestParseUnwrapsJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"token field", `{"token":"abc.def.ghi"}`, "abc.def.ghi"},
		{"access_token field", `{"access_token":"abc.def.ghi"}`, "abc.def.ghi"},
		{"value field", `{"value":"abc.def.ghi"}`, "abc.def.ghi"},
		{"token wins over access_token", `{"access_token":"xxx.yyy.zzz","token":"abc.def.ghi"}`, "abc.def.ghi"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok, ok := token.Parse(tc.raw)
			require.True(t, ok)
			require.Equal(t, tc.want, tok)
		})
	}
}

func TestParseRejectsUnusableValues(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"not json",
		`{"foo":1}`,
		"Bearer ",
		"a.b",
		"a.b.c.d",
		"seg one.two.three with spaces",
	} {
		_, ok := token.Parse(raw)
		require.False(t, ok, "raw=%q", raw)
	}
}

func TestNormalizeKeepsLegacyOpaqueValues(t *testing.T) {
	require.Equal(t, "legacy-opaque-token", token.Normalize("legacy-opaque-token"))
	require.Equal(t, "legacy-opaque-token", token.Normalize("Bearer legacy-opaque-token"))
	// JSON garbage is never a legacy token.
	require.Equal(t, "", token.Normalize(`{"foo":1}`))
}

func TestExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tok := makeJWT(t, map[string]any{"sub": "ana@x.com", "exp": exp})

	got, ok := token.Expiry(tok)
	require.True(t, ok)
	require.Equal(t, exp, got.Unix())
}

func TestExpiryMissingClaim(t *testing.T) {
	tok := makeJWT(t, map[string]any{"sub": "ana@x.com"})

	_, ok := token.Expiry(tok)
	require.False(t, ok)
}

func TestExpiryUndecodablePayload(t *testing.T) {
	_, ok := token.Expiry("abc.???.ghi")
	require.False(t, ok)
}

func TestExpired(t *testing.T) {
	now := time.Now()

	live := makeJWT(t, map[string]any{"exp": now.Add(time.Hour).Unix()})
	require.False(t, token.Expired(live, now))

	stale := makeJWT(t, map[string]any{"exp": now.Add(-time.Hour).Unix()})
	require.True(t, token.Expired(stale, now))

	// No decodable expiry: the backend has the final word.
	require.False(t, token.Expired("abc.def.ghi", now))
}
