package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore is the durable backend: a JSON map persisted to disk after
// every mutation. Corrupt or unreadable files resolve to an empty store
// rather than an error, so a damaged file can never lock a user out of
// writing a fresh session.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// NewFileStore opens (or lazily creates) the store file at path.
func NewFileStore(path string) *FileStore {
	f := &FileStore{
		path:   path,
		values: make(map[string]string),
	}
	f.load()
	return f
}

func (f *FileStore) Name() string { return "durable" }

// Get returns the value stored under key.
func (f *FileStore) Get(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.values[key]
	return v, ok
}

// Set stores value under key and persists the store. Persistence failures
// are logged and swallowed; the in-memory value is kept either way.
func (f *FileStore) Set(key, value string) {
	if key == "" {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = value
	f.flush()
}

// Remove deletes key and persists the store.
func (f *FileStore) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	f.flush()
}

// Keys lists every stored key.
func (f *FileStore) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	return keys
}

func (f *FileStore) load() {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return
	}
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		log.Debug().Str("path", f.path).Err(err).Msg("store file unreadable, starting empty")
		return
	}
	f.values = values
}

// flush writes the map through a temp file and rename so a crash mid-write
// cannot truncate the store. Caller must hold the write lock.
func (f *FileStore) flush() {
	data, err := json.Marshal(f.values)
	if err != nil {
		log.Debug().Err(err).Msg("store flush: marshal failed")
		return
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		log.Debug().Err(err).Msg("store flush: mkdir failed")
		return
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		log.Debug().Err(err).Msg("store flush: write failed")
		return
	}
	if err := os.Rename(tmp, f.path); err != nil {
		log.Debug().Err(err).Msg("store flush: rename failed")
	}
}
