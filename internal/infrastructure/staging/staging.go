// Package staging reads and writes raw provider payloads in the staging
// area. Extraction lands one timestamped JSON file per source pull; the
// transform stage scans the directory and processes whatever it finds.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/etl/backend/internal/domain/commerce"
	"github.com/etl/backend/internal/etl/schema"
)

// File is one staged payload plus the provider inferred from its name
type File struct {
	Path     string
	Name     string
	Provider commerce.Provider
	Payload  any
}

// Scanner lists and decodes staged payload files
type Scanner struct {
	dir    string
	logger *zap.Logger
}

// NewScanner creates a scanner over the given staging directory
func NewScanner(dir string, logger *zap.Logger) *Scanner {
	return &Scanner{dir: dir, logger: logger.Named("staging")}
}

// List returns the staged .json file names in lexical order. Bookmark and
// other non-payload files are skipped.
func (s *Scanner) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("staging: read dir %s: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") || name == "bookmarks.json" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read decodes one staged file. A file that cannot be read or parsed is
// reported as an error so the caller can skip it without failing the run.
func (s *Scanner) Read(name string) (*File, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("staging: read %s: %w", name, err)
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("staging: parse %s: %w", name, err)
	}

	return &File{
		Path:     path,
		Name:     name,
		Provider: schema.DetectProvider(name),
		Payload:  payload,
	}, nil
}

// Store writes raw extraction payloads into the staging area, optionally
// mirroring each file to object storage.
type Store struct {
	dir      string
	uploader *Uploader
	logger   *zap.Logger
	now      func() time.Time
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithUploader mirrors every staged file to object storage
func WithUploader(u *Uploader) StoreOption {
	return func(s *Store) {
		s.uploader = u
	}
}

// WithClock overrides the timestamp source, for tests
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a staging writer rooted at dir
func NewStore(dir string, logger *zap.Logger, opts ...StoreOption) *Store {
	s := &Store{
		dir:    dir,
		logger: logger.Named("staging"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes a raw payload as <source>_<timestamp>.json and returns the
// file name. When an uploader is configured the file is also mirrored to
// object storage; upload failure is logged but does not fail the save,
// the local copy is the source of truth.
func (s *Store) Save(ctx context.Context, source string, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("staging: marshal %s payload: %w", source, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("staging: create dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", source, s.now().UTC().Format("20060102T150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("staging: write %s: %w", name, err)
	}

	s.logger.Info("staged payload",
		zap.String("source", source),
		zap.String("file", name),
		zap.Int("bytes", len(data)),
	)

	if s.uploader != nil {
		if err := s.uploader.Upload(ctx, name, data); err != nil {
			s.logger.Warn("staging upload failed, keeping local copy only",
				zap.String("file", name),
				zap.Error(err),
			)
		}
	}
	return name, nil
}
