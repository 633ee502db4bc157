package uploadcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/infrastructure/metrics"
)

// FileStore keeps the whole index in memory and rewrites it to a JSON file
// on every Set. Loading happens on first use; a file that cannot be read
// leaves the store running in memory only.
type FileStore struct {
	path string
	log  zerolog.Logger

	once       sync.Once
	mu         sync.RWMutex
	entries    map[string]string
	memoryOnly bool
}

// NewFileStore creates a store backed by path. Nothing is read until the
// first Get or Set.
func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{
		path: path,
		log:  log.With().Str("component", "upload-cache").Str("backend", "file").Logger(),
	}
}

func (s *FileStore) init() {
	s.once.Do(func() {
		s.entries = make(map[string]string)
		if s.path == "" {
			s.memoryOnly = true
			return
		}

		raw, err := os.ReadFile(s.path)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err == nil {
			err = json.Unmarshal(raw, &s.entries)
		}
		if err != nil {
			s.log.Warn().Err(err).Str("path", s.path).Msg("upload cache could not be loaded, using memory only")
			s.entries = make(map[string]string)
			s.memoryOnly = true
			return
		}
		s.log.Debug().Int("entries", len(s.entries)).Msg("upload cache loaded")
	})
}

// Get returns the media id cached for url.
func (s *FileStore) Get(_ context.Context, url string) (string, bool) {
	s.init()
	s.mu.RLock()
	id, ok := s.entries[Digest(url)]
	s.mu.RUnlock()

	ok = ok && id != ""
	metrics.RecordCacheLookup(s.Backend(), ok)
	return id, ok
}

// Set records url -> mediaID and persists the full index before returning.
// The entry stays in memory even when persisting fails.
func (s *FileStore) Set(_ context.Context, url, mediaID string) error {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[Digest(url)] = mediaID
	if s.memoryOnly {
		return nil
	}
	if err := s.persist(); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist upload cache")
		return err
	}
	return nil
}

// persist writes the index to a temp file and renames it into place.
// Callers hold s.mu.
func (s *FileStore) persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (s *FileStore) Len(_ context.Context) int {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MemoryOnly reports whether the store gave up on its backing file.
func (s *FileStore) MemoryOnly() bool {
	s.init()
	return s.memoryOnly
}

func (s *FileStore) Backend() string {
	return "file"
}
