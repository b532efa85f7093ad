package session

// Storage keys. The customer token key was renamed twice as the product
// evolved; every name is still written and read so sessions saved by any
// earlier build keep resolving.
const (
	// TokenKey is the canonical customer token key.
	TokenKey = "myglobyx_token"
	// TokenKeyAlias is the first-generation alias.
	TokenKeyAlias = "myglobyx:token"
	// LegacyTokenKey predates JWT sessions. It is the only key whose
	// values may be accepted without the JWT shape check.
	LegacyTokenKey = "mx_token"

	// UserKey holds the cached profile snapshot.
	UserKey = "myglobyx:user"

	// AdminTokenKey holds the admin session. It lives in the durable
	// backend only and is independent from the customer keys above.
	AdminTokenKey = "myglobyx_admin_token"
)

// TokenKeys is the customer key priority order used by both the writer and
// the reader, so the write-everywhere/read-first-match invariant cannot
// drift between call sites.
var TokenKeys = []string{TokenKey, TokenKeyAlias, LegacyTokenKey}
