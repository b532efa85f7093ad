// Package token extracts usable bearer tokens from the raw values found in
// session storage. Stored values have accumulated several historical shapes:
// a bare token, a "Bearer "-prefixed token, or a JSON object wrapping the
// token under one of a few field names. The parser accepts all of them and
// resolves anything unusable to "absent" instead of an error.
package token

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// jwtShape is a syntactic filter only: three base64url segments separated
// by dots. Signature verification is the backend's job.
var jwtShape = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)

// wrapperFields is the priority order for JSON-wrapped tokens.
var wrapperFields = []string{"token", "access_token", "value"}

// Normalize reduces a raw stored value to a token candidate: trims
// whitespace, strips a case-insensitive "Bearer " prefix, and unwraps a
// JSON object holding the token under a known field name. Returns "" when
// nothing token-like remains.
func Normalize(raw string) string {
	candidate := strings.TrimSpace(raw)
	if rest, ok := cutBearerPrefix(candidate); ok {
		candidate = strings.TrimSpace(rest)
	}

	// A JSON wrapper takes precedence over the stripped string. Malformed
	// JSON is not an error, the stripped string stays the candidate.
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		for _, field := range wrapperFields {
			if s, ok := obj[field].(string); ok && s != "" {
				return s
			}
		}
		// Parsed to an object but no token field: the raw value was JSON
		// garbage, not a token.
		return ""
	}

	return candidate
}

// Parse extracts a JWT-shaped token from a raw stored value. ok is false
// when the value is empty, malformed, or not JWT-shaped; callers that
// accept legacy non-JWT tokens should use Normalize directly.
func Parse(raw string) (string, bool) {
	candidate := Normalize(raw)
	if candidate == "" || !jwtShape.MatchString(candidate) {
		return "", false
	}
	return candidate, true
}

// IsJWTShaped reports whether s looks like header.payload.signature.
func IsJWTShaped(s string) bool {
	return jwtShape.MatchString(s)
}

// Expiry returns the exp claim of a JWT-shaped token, decoded without
// signature verification. ok is false when the token cannot be decoded or
// carries no exp claim.
func Expiry(tok string) (time.Time, bool) {
	unverified, _, err := jwtlib.NewParser().ParseUnverified(tok, jwtlib.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	claims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return time.Time{}, false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(exp), 0), true
}

// Expired reports whether tok carries a decodable exp claim in the past.
// Tokens without a decodable expiry are never considered expired here;
// the backend has the final word.
func Expired(tok string, now time.Time) bool {
	exp, ok := Expiry(tok)
	if !ok {
		return false
	}
	return now.After(exp)
}

// cutBearerPrefix strips a case-insensitive "Bearer" word followed by at
// least one whitespace character (space, tab, or newline runs all occur in
// stored values).
func cutBearerPrefix(s string) (string, bool) {
	const word = "bearer"
	if len(s) <= len(word) || !strings.EqualFold(s[:len(word)], word) {
		return s, false
	}
	rest := strings.TrimLeft(s[len(word):], " \t\r\n")
	if rest == s[len(word):] {
		// No whitespace after the word: "Bearerxxx" is not a prefix.
		return s, false
	}
	return rest, true
}
