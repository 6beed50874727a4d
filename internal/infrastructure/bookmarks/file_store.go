package bookmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps bookmarks in a single JSON file mapping source name to
// cursor. The whole map is rewritten on every Set; bookmark files are
// small so this stays cheap and crash-safe via rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed bookmark store at the given path.
// The file is created lazily on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns the cursor recorded for a source, or "" when the file or
// the source entry does not exist yet
func (s *FileStore) Get(_ context.Context, source string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return "", err
	}
	return all[source], nil
}

// Set records the cursor for a source
func (s *FileStore) Set(_ context.Context, source, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	all[source] = cursor

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("bookmarks: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("bookmarks: create dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("bookmarks: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("bookmarks: rename: %w", err)
	}
	return nil
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bookmarks: read: %w", err)
	}

	all := map[string]string{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &all); err != nil {
			return nil, fmt.Errorf("bookmarks: parse %s: %w", s.path, err)
		}
	}
	return all, nil
}

var _ Store = (*FileStore)(nil)
