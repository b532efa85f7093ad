package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Joel254010/myglobyx-go/store"
)

func TestMemStoreRoundTrip(t *testing.T) {
	s := store.NewMemStore()
	require.Equal(t, "session", s.Name())

	_, ok := s.Get("missing")
	require.False(t, ok)

	s.Set("k", "v")
	v, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)

	s.Remove("k")
	_, ok = s.Get("k")
	require.False(t, ok)

	// Removing an absent key is a no-op.
	s.Remove("k")
}

func TestMemStoreKeys(t *testing.T) {
	s := store.NewMemStore()
	s.Set("a", "1")
	s.Set("b", "2")
	require.ElementsMatch(t, []string{"a", "b"}, s.Keys())
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "session.json")

	s := store.NewFileStore(path)
	require.Equal(t, "durable", s.Name())
	s.Set("k", "v")

	reopened := store.NewFileStore(path)
	v, ok := reopened.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)

	reopened.Remove("k")
	_, ok = store.NewFileStore(path).Get("k")
	require.False(t, ok)
}

func TestFileStoreCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o600))

	s := store.NewFileStore(path)
	_, ok := s.Get("k")
	require.False(t, ok)

	// A damaged file never blocks writing a fresh session.
	s.Set("k", "v")
	v, ok := store.NewFileStore(path).Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestFileStoreUnwritablePathSwallowsFailures(t *testing.T) {
	// Parent is a file, so mkdir and writes must fail. Values still live
	// in memory for the lifetime of the instance.
	parent := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o600))

	s := store.NewFileStore(filepath.Join(parent, "session.json"))
	s.Set("k", "v")
	v, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}
