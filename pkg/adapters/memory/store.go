// Package memory provides an in-memory ports.Storage, used by tests and
// by hosts that assemble flows from embedded templates.
package memory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/flowdeck/pkg/domain"
)

// Store implements ports.Storage in memory. Safe for concurrent use.
type Store struct {
	files map[string][]byte
	mu    sync.RWMutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{files: make(map[string][]byte)}
}

// NewStoreWithFiles creates a store pre-populated with text files.
func NewStoreWithFiles(files map[string]string) *Store {
	s := NewStore()
	for p, content := range files {
		s.files[normalize(p)] = []byte(content)
	}
	return s
}

func normalize(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (s *Store) ReadText(ctx context.Context, p string) (string, error) {
	data, err := s.ReadBinary(ctx, p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Store) WriteText(ctx context.Context, p string, data string) error {
	return s.WriteBinary(ctx, p, []byte(data))
}

func (s *Store) ReadBinary(_ context.Context, p string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[normalize(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, p)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *Store) WriteBinary(_ context.Context, p string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.files[normalize(p)] = stored
	return nil
}

func (s *Store) ListFiles(_ context.Context, folder string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := normalize(folder)
	if prefix != "" {
		prefix += "/"
	}
	var names []string
	for p := range s.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) ListFolders(_ context.Context, folder string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := normalize(folder)
	if prefix != "" {
		prefix += "/"
	}
	seen := make(map[string]bool)
	for p := range s.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.Index(rest, "/"); i > 0 {
			seen[rest[:i]] = true
		}
	}
	folders := make([]string, 0, len(seen))
	for name := range seen {
		folders = append(folders, name)
	}
	sort.Strings(folders)
	return folders, nil
}

func (s *Store) FileExists(_ context.Context, p string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[normalize(p)]
	return ok, nil
}

func (s *Store) Rename(_ context.Context, oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[normalize(oldPath)]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, oldPath)
	}
	s.files[normalize(newPath)] = data
	delete(s.files, normalize(oldPath))
	return nil
}

func (s *Store) Delete(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[normalize(p)]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, p)
	}
	delete(s.files, normalize(p))
	return nil
}

func (s *Store) Copy(ctx context.Context, srcPath, dstPath string) error {
	data, err := s.ReadBinary(ctx, srcPath)
	if err != nil {
		return err
	}
	return s.WriteBinary(ctx, dstPath, data)
}
