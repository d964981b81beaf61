// Package history is a bounded command-history ring with recall and
// on-disk persistence.
package history

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// DefaultSize is the default history capacity.
const DefaultSize = 100

// Store is the command-history contract the shell consumes.
type Store interface {
	AddCommand(command string)
	Previous() (string, bool)
	Next() (string, bool)
	Clear()
	Persist() error
	Restore() error
}

// Ring is a bounded Store persisted as zstd-compressed JSON.
type Ring struct {
	mu      sync.Mutex
	entries []string
	max     int
	cursor  int // len(entries) means "past the newest entry"
	path    string
}

// NewRing creates a Ring capped at max entries (0 = DefaultSize) persisted
// at path. An empty path disables Persist/Restore.
func NewRing(max int, path string) *Ring {
	if max <= 0 {
		max = DefaultSize
	}
	return &Ring{max: max, path: path}
}

// AddCommand appends a command, dropping the oldest entry past capacity.
// Empty commands and immediate repeats are skipped. Recall position resets
// to the newest entry.
func (r *Ring) AddCommand(command string) {
	if command == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.entries); n > 0 && r.entries[n-1] == command {
		r.cursor = n
		return
	}
	r.entries = append(r.entries, command)
	if len(r.entries) > r.max {
		r.entries = r.entries[len(r.entries)-r.max:]
	}
	r.cursor = len(r.entries)
}

// Previous steps back through history. ok is false at the oldest entry
// with nothing further back.
func (r *Ring) Previous() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cursor == 0 {
		return "", false
	}
	r.cursor--
	return r.entries[r.cursor], true
}

// Next steps forward through history. ok is false once past the newest
// entry, which also resets recall.
func (r *Ring) Next() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cursor >= len(r.entries)-1 {
		r.cursor = len(r.entries)
		return "", false
	}
	r.cursor++
	return r.entries[r.cursor], true
}

// Clear empties the history.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.cursor = 0
}

// Len reports the number of stored commands.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Persist writes the history to its file as zstd-compressed JSON.
func (r *Ring) Persist() error {
	if r.path == "" {
		return nil
	}

	r.mu.Lock()
	data, err := json.Marshal(r.entries)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Restore loads the history from its file. A missing file leaves the ring
// empty without error.
func (r *Ring) Restore() error {
	if r.path == "" {
		return nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return err
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if len(entries) > r.max {
		entries = entries[len(entries)-r.max:]
	}

	r.mu.Lock()
	r.entries = entries
	r.cursor = len(entries)
	r.mu.Unlock()
	return nil
}
