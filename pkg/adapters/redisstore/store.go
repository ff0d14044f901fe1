// Package redisstore provides a ports.Storage backed by Redis, for
// deployments where session and upload data must outlive the host.
package redisstore

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/flowdeck/pkg/domain"
)

// Store implements ports.Storage on a Redis database. Each file becomes
// one key under the configured prefix.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix for stored files.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "flowdeck:file:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func normalize(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (s *Store) key(p string) string {
	return s.prefix + normalize(p)
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

func (s *Store) ReadBinary(ctx context.Context, p string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(p)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, p)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return data, nil
}

func (s *Store) WriteBinary(ctx context.Context, p string, data []byte) error {
	if err := s.client.Set(ctx, s.key(p), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// paths returns all stored paths, prefix stripped.
func (s *Store) paths(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan redis: %w", err)
		}
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, s.prefix))
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

func (s *Store) ListFiles(ctx context.Context, folder string) ([]string, error) {
	all, err := s.paths(ctx)
	if err != nil {
		return nil, err
	}
	prefix := normalize(folder)
	if prefix != "" {
		prefix += "/"
	}
	var names []string
	for _, p := range all {
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

func (s *Store) ListFolders(ctx context.Context, folder string) ([]string, error) {
	all, err := s.paths(ctx)
	if err != nil {
		return nil, err
	}
	prefix := normalize(folder)
	if prefix != "" {
		prefix += "/"
	}
	seen := make(map[string]bool)
	for _, p := range all {
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

func (s *Store) FileExists(ctx context.Context, p string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(p)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check redis: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Rename(ctx context.Context, oldPath, newPath string) error {
	err := s.client.Rename(ctx, s.key(oldPath), s.key(newPath)).Err()
	if err != nil {
		if strings.Contains(err.Error(), "no such key") {
			return fmt.Errorf("%w: %s", domain.ErrFileNotFound, oldPath)
		}
		return fmt.Errorf("failed to rename in redis: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, p string) error {
	n, err := s.client.Del(ctx, s.key(p)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, p)
	}
	return nil
}

func (s *Store) Copy(ctx context.Context, srcPath, dstPath string) error {
	data, err := s.ReadBinary(ctx, srcPath)
	if err != nil {
		return err
	}
	return s.WriteBinary(ctx, dstPath, data)
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
