// Package store implements the durable record store: one JSON document per
// collection, read and replaced whole. There is no partial-record update
// primitive; callers mutate collections only through Transform, which holds
// the collection lock across the full read-modify-write sequence.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Collection names owned by the service.
const (
	CollectionLicenses  = "licenses"
	CollectionBlacklist = "blacklist"
	CollectionLogs      = "validation_logs"
	CollectionProducts  = "products"
)

// ErrAborted is returned by Transform when the transform func declines the
// mutation; the on-disk document is left untouched.
var ErrAborted = errors.New("store: transform aborted")

// Store persists named collections as JSON documents under a single
// directory. Each collection carries its own mutex so read-modify-write
// sequences against one collection serialize while other collections
// proceed.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// Open prepares a store rooted at dir, creating it if needed.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With(slog.String("component", "store")),
		locks:  make(map[string]*sync.RWMutex),
	}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) lock(name string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[name] = l
	}
	return l
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// readLocked loads and decodes the raw collection document. A missing file
// is an empty collection, not an error.
func (s *Store) readLocked(name string, out any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read collection %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode collection %s: %w", name, err)
	}
	return nil
}

// writeLocked replaces the collection document atomically: write to a temp
// file in the same directory, fsync, then rename over the target.
func (s *Store) writeLocked(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", name, err)
	}

	target := s.path(name)
	tmp, err := os.CreateTemp(s.dir, name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write collection %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync collection %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace collection %s: %w", name, err)
	}
	return nil
}

// Read decodes the whole collection into items. Non-mutating reads take the
// collection read lock only; they never block each other.
func Read[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := s.lock(name)
	l.RLock()
	defer l.RUnlock()

	var items []T
	if err := s.readLocked(name, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ReadOne decodes a single-record collection (e.g. the blacklist). A
// missing document yields the zero value.
func ReadOne[T any](ctx context.Context, s *Store, name string) (T, error) {
	var record T
	if err := ctx.Err(); err != nil {
		return record, err
	}
	l := s.lock(name)
	l.RLock()
	defer l.RUnlock()

	if err := s.readLocked(name, &record); err != nil {
		return record, err
	}
	return record, nil
}

// Replace overwrites the whole collection with items.
func Replace[T any](ctx context.Context, s *Store, name string, items []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return s.writeLocked(name, items)
}

// ReplaceOne overwrites a single-record collection.
func ReplaceOne[T any](ctx context.Context, s *Store, name string, record T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return s.writeLocked(name, record)
}

// Transform runs fn on the decoded collection and persists the result,
// holding the collection write lock for the entire read-modify-write
// sequence. This is the only mutation path the engine may use against the
// license collection: it closes the lost-update race between concurrent
// validations. Returning ErrAborted (or any error) from fn leaves the
// document untouched.
func Transform[T any](ctx context.Context, s *Store, name string, fn func(items []T) ([]T, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	var items []T
	if err := s.readLocked(name, &items); err != nil {
		return err
	}
	updated, err := fn(items)
	if err != nil {
		return err
	}
	return s.writeLocked(name, updated)
}

// Append adds records to the end of the collection, preserving order. Used
// by the audit log, whose entries are never mutated after creation.
func Append[T any](ctx context.Context, s *Store, name string, records ...T) error {
	return Transform(ctx, s, name, func(items []T) ([]T, error) {
		return append(items, records...), nil
	})
}

// Ping verifies the store directory is reachable and writable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("store directory unreachable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store path %s is not a directory", s.dir)
	}
	return nil
}
