// Package session persists the admin API key between panel runs so a
// restart does not force a re-login. There is no expiry logic here: whether
// a stored key is still valid is decided by the next API call.
package session

import (
	"os"
	"path/filepath"
	"strings"
)

// Store keeps the API key in a single file on disk.
type Store struct {
	path string
}

// New returns a Store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the platform default location of the session file,
// falling back to the temp directory when no user cache dir is available.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "arenapanel", "session")
}

// Save persists the API key, creating parent directories as needed.
func (s *Store) Save(key string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(key), 0o600)
}

// Load returns the previously saved API key, or "" when none is stored.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Clear removes the saved key. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
