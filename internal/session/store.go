package session

import (
	"fmt"
	"os"
)

// Store is the durable-state cache for an authenticated browsing context,
// keyed by file path. The file's contents are Playwright's storage-state
// JSON (cookies plus local/session storage); this package treats it as an
// opaque blob and never inspects it.
//
// The store is assumed single-writer: one test run at a time. Concurrent
// runs sharing a path are out of scope.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a durable record is present. No freshness or
// validity check is performed; a stale record is only discovered downstream.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// Invalidate deletes the durable record. Deleting a record that does not
// exist is not an error; the next acquisition simply takes the login path.
func (s *Store) Invalidate() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("invalidate session state %s: %w", s.path, err)
	}
	return nil
}
