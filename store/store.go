// Package store provides the key/value namespaces a session can be
// persisted to. Two backends exist: a durable file-backed store that
// survives restarts and a session-scoped in-memory store.
//
// Backends never fail from the caller's perspective: a read that cannot
// be served resolves to "no value" and writes are best-effort. This keeps
// the session layer free of storage error handling.
package store

// Backend is a single key/value namespace.
type Backend interface {
	// Name identifies the backend ("durable", "session").
	Name() string

	// Get returns the value stored under key, or ok=false when the key is
	// absent or the backend cannot be read.
	Get(key string) (value string, ok bool)

	// Set stores value under key. Failures are swallowed.
	Set(key, value string)

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string)

	// Keys lists every key currently held by the backend.
	Keys() []string
}
