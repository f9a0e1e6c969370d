package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/gofrs/flock"
)

const (
	entryExt     = ".json"
	lockFileName = ".lock"
)

// ErrInvalidKey is returned for keys that cannot be used as file names.
var ErrInvalidKey = errors.New("invalid entry key")

// fileEntry is the on-disk layout of one entry.
type fileEntry struct {
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Data      []byte     `json:"data"`
}

func (e fileEntry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// Store implements ports.EntryStore using the local filesystem.
// Each entry is a JSON file in BasePath. Writers from different processes
// are serialized with an advisory lock on BasePath/.lock; writers within
// the process are serialized by mu, since a held flock handle does not
// exclude other goroutines.
type Store struct {
	BasePath string
	mu       sync.Mutex
	lock     *flock.Flock
	clock    func() time.Time
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".arbor/results".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".arbor", "results")
	}
	return &Store{
		BasePath: basePath,
		lock:     flock.New(filepath.Join(basePath, lockFileName)),
		clock:    time.Now,
	}
}

func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.BasePath, key+entryExt), nil
}

// withLock runs fn holding the process mutex and the directory lock.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure result directory: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.lock.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.BasePath, err)
	}
	if !ok {
		return fmt.Errorf("failed to lock %s", s.BasePath)
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

// Put writes the entry atomically.
func (s *Store) Put(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	destPath, err := s.path(key)
	if err != nil {
		return err
	}

	entry := fileEntry{Data: data}
	if !expiresAt.IsZero() {
		at := expiresAt.UTC()
		entry.ExpiresAt = &at
	}
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	return s.withLock(ctx, func() error {
		return atomicWrite(s.BasePath, destPath, raw)
	})
}

// atomicWrite writes data to a temporary file in dir, syncs it and renames it over destPath.
func atomicWrite(dir, destPath string, data []byte) error {
	// 1. Create Temp File on the same filesystem
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	// 2. Write Data
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	// 3. Fsync to ensure durability
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	// 4. Close File (cannot rename open file on Windows)
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// 5. Atomic Rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) read(path string) (fileEntry, error) {
	var entry fileEntry
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return entry, domain.ErrResultNotFound
		}
		return entry, fmt.Errorf("failed to read entry: %w", err)
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, fmt.Errorf("failed to unmarshal entry %s: %w", filepath.Base(path), err)
	}
	return entry, nil
}

// Get reads the entry. Readers do not take the lock; renames are atomic.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	entry, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if entry.expired(s.clock()) {
		return nil, domain.ErrResultNotFound
	}
	return entry.Data, nil
}

// Delete removes the entry file.
func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		return nil
	})
}

// keys returns every entry key on disk.
func (s *Store) keys() ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != entryExt {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, entryExt))
	}
	return keys, nil
}

// List returns the keys of unexpired entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	keys, err := s.keys()
	if err != nil {
		return nil, err
	}

	now := s.clock()
	live := make([]string, 0, len(keys))
	for _, key := range keys {
		entry, err := s.read(filepath.Join(s.BasePath, key+entryExt))
		if err != nil {
			continue
		}
		if !entry.expired(now) {
			live = append(live, key)
		}
	}
	return live, nil
}

// ClearExpired removes entries expired at now. Unreadable files are left alone.
func (s *Store) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	n := 0
	err := s.withLock(ctx, func() error {
		keys, err := s.keys()
		if err != nil {
			return err
		}
		for _, key := range keys {
			path := filepath.Join(s.BasePath, key+entryExt)
			entry, err := s.read(path)
			if err != nil || !entry.expired(now) {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove expired entry %s: %w", key, err)
			}
			n++
		}
		return nil
	})
	return n, err
}
