// Package localstore persists the two per-client keys the state store
// keeps across restarts: the signed-in user and the room admin token.
// Each browser identity (cookie) gets one JSON file under the data
// directory, mirroring the localStorage pair of the original client.
package localstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Well-known keys.
const (
	KeyCurrentUser = "current_user"
	KeyAdminToken  = "admin_token"
)

// KV is the narrow surface the state store needs. Implementations must
// treat unreadable or corrupt values as absent rather than failing.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// File stores keys as a single JSON object on disk.
type File struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// safeID reports whether a client id can name a file under the data
// directory. Ids come from a client-supplied cookie, so anything
// beyond lowercase hex is treated as hostile.
func safeID(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// OpenFile loads (or initializes) the key file for one client
// identity. A missing or corrupt file yields an empty store; an id
// that could escape the directory yields a store that never touches
// disk.
func OpenFile(dir, clientID string) *File {
	f := &File{
		values: make(map[string]string),
	}
	if !safeID(clientID) {
		return f
	}
	f.path = filepath.Join(dir, clientID+".json")

	data, err := os.ReadFile(f.path)
	if err != nil {
		return f
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		f.values = make(map[string]string)
	}
	return f
}

func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *File) Set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	f.flush()
}

func (f *File) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	f.flush()
}

// flush writes best-effort; persistence failures must never break a
// state mutation, so errors are swallowed.
func (f *File) flush() {
	if f.path == "" {
		return
	}
	data, err := json.Marshal(f.values)
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(f.path), 0o755)
	_ = os.WriteFile(f.path, data, 0o600)
}

// Memory is an in-process KV for tests and for sessions running
// without a data directory.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *Memory) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}
