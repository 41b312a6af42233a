// Package storage reads image assets from block-storage style roots.
package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store is the read side of an asset root. Implementations must tolerate
// concurrent readers.
type Store interface {
	// Exists reports whether name resolves to a regular file.
	Exists(name string) bool
	// Size returns the byte size of name without reading it.
	Size(name string) (int64, error)
	// ReadAll returns the full content of name.
	ReadAll(ctx context.Context, name string) ([]byte, error)
}

// DirStore serves assets from a directory root, typically an SD card mount
// point. Names are always resolved inside the root.
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

func (s *DirStore) path(name string) string {
	return filepath.Join(s.root, filepath.Clean(string(filepath.Separator)+name))
}

// Exists reports whether name is a regular file under the root.
func (s *DirStore) Exists(name string) bool {
	fi, err := os.Stat(s.path(name))
	return err == nil && fi.Mode().IsRegular()
}

// Size stats name without reading it.
func (s *DirStore) Size(name string) (int64, error) {
	fi, err := os.Stat(s.path(name))
	if err != nil {
		return 0, err
	}
	if !fi.Mode().IsRegular() {
		return 0, fmt.Errorf("storage: %s: not a regular file", name)
	}
	return fi.Size(), nil
}

// ReadAll reads the full file.
func (s *DirStore) ReadAll(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.path(name))
}

// MemStore is an in-memory Store for tests and embedded assets.
type MemStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{files: map[string][]byte{}}
}

// Put stores a copy of data under name.
func (s *MemStore) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), data...)
}

// Exists reports whether name was Put.
func (s *MemStore) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[name]
	return ok
}

// Size returns the stored size of name.
func (s *MemStore) Size(name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[name]
	if !ok {
		return 0, fmt.Errorf("storage: %s: %w", name, fs.ErrNotExist)
	}
	return int64(len(data)), nil
}

// ReadAll returns a copy of the stored content.
func (s *MemStore) ReadAll(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("storage: %s: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}
