// Package session persists named snapshots of flow state and manages the
// lifecycle classes of state keys.
//
// Keys fall into three classes. Persistent keys match a configured glob
// pattern and are included in saved sessions. Volatile keys match a second
// pattern set and are cleared on every session switch but never saved.
// Everything else is ephemeral: never cleared automatically, never
// persisted.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/flowdeck/internal/logging"
	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/observability"
	"github.com/aretw0/flowdeck/pkg/ports"
)

// DefaultSessionName is used when state is saved before any session was
// created or selected.
const DefaultSessionName = "default"

// newSessionBase names auto-created sessions: Session_1, Session_2, ...
const newSessionBase = "Session_%d"

// PatternSet classifies state keys into lifecycle classes. A trailing '*'
// in a pattern means prefix match; anything else is an exact match.
type PatternSet struct {
	Persistent []string
	Volatile   []string
}

func matchesPatterns(key string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "*") {
			if strings.HasPrefix(key, pattern[:len(pattern)-1]) {
				return true
			}
		} else if key == pattern {
			return true
		}
	}
	return false
}

// IsPersistent reports whether key is saved and cleared with session
// switches.
func (p PatternSet) IsPersistent(key string) bool {
	return matchesPatterns(key, p.Persistent)
}

// IsVolatile reports whether key is cleared on session switches without
// being saved. A key matching both pattern sets counts as persistent.
func (p PatternSet) IsVolatile(key string) bool {
	if p.IsPersistent(key) {
		return false
	}
	return matchesPatterns(key, p.Volatile)
}

// Store manages named session snapshots over a storage backend. Sessions
// live as '<name>.json' files under the configured root folder.
type Store struct {
	storage  ports.Storage
	root     string
	patterns PatternSet
	current  string
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics counts snapshot saves and loads on the given collectors.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Store) {
		s.metrics = metrics
	}
}

// NewStore creates a session store saving under root in storage.
func NewStore(storage ports.Storage, root string, patterns PatternSet, opts ...Option) *Store {
	s := &Store{
		storage:  storage,
		root:     root,
		patterns: patterns,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Patterns returns the configured lifecycle pattern set.
func (s *Store) Patterns() PatternSet {
	return s.patterns
}

// Current returns the name of the session state is saved under, or ""
// when none has been selected yet.
func (s *Store) Current() string {
	return s.current
}

// SetCurrent updates the current-session bookkeeping without touching
// state or storage.
func (s *Store) SetCurrent(name string) {
	s.current = name
}

func (s *Store) path(name string) string {
	if s.root == "" {
		return name + ".json"
	}
	return s.root + "/" + name + ".json"
}

// Snapshot extracts the persistent keys of state.
func (s *Store) Snapshot(state *domain.State) map[string]any {
	return state.Snapshot(s.patterns.IsPersistent)
}

// SaveNamed writes the persistent keys of state under name.
func (s *Store) SaveNamed(ctx context.Context, name string, state *domain.State) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	data, err := json.MarshalIndent(s.Snapshot(state), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", name, err)
	}
	if err := s.storage.WriteBinary(ctx, s.path(name), data); err != nil {
		return fmt.Errorf("failed to save session %s: %w", name, err)
	}
	if s.metrics != nil {
		s.metrics.SessionsSaved.Inc()
	}
	return nil
}

// SaveCurrent saves state under the current session, defaulting the name
// first if none is set.
func (s *Store) SaveCurrent(ctx context.Context, state *domain.State) error {
	if s.current == "" {
		s.current = DefaultSessionName
	}
	return s.SaveNamed(ctx, s.current, state)
}

// LoadNamed reads the named snapshot. Keys that no longer classify as
// persistent are dropped, so a changed pattern set cannot resurrect
// stale data.
func (s *Store) LoadNamed(ctx context.Context, name string) (map[string]any, error) {
	data, err := s.storage.ReadBinary(ctx, s.path(name))
	if err != nil {
		if errorsIsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, name)
		}
		return nil, fmt.Errorf("failed to read session %s: %w", name, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", name, err)
	}
	snapshot := make(map[string]any)
	for key, value := range raw {
		if s.patterns.IsPersistent(key) {
			snapshot[key] = value
		}
	}
	if s.metrics != nil {
		s.metrics.SessionsLoaded.Inc()
	}
	return snapshot, nil
}

// ApplySnapshot resets state to a snapshot: every live persistent or
// volatile key is removed, then the snapshot's entries are overlaid.
// Ephemeral keys are untouched.
func (s *Store) ApplySnapshot(state *domain.State, snapshot map[string]any) {
	for _, key := range state.Keys() {
		if s.patterns.IsPersistent(key) || s.patterns.IsVolatile(key) {
			state.Delete(key)
		}
	}
	for key, value := range snapshot {
		state.Set(key, value)
	}
}

// Switch loads the named session into state and makes it current.
func (s *Store) Switch(ctx context.Context, name string, state *domain.State) error {
	snapshot, err := s.LoadNamed(ctx, name)
	if err != nil {
		return err
	}
	s.ApplySnapshot(state, snapshot)
	s.current = name
	s.logger.Info("session loaded", "session", name)
	return nil
}

// Create starts a fresh session: picks the next unused Session_N name,
// saves an empty snapshot under it, clears the persistent and volatile
// keys of state and makes the new session current.
func (s *Store) Create(ctx context.Context, state *domain.State) (string, error) {
	existing, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(existing))
	for _, name := range existing {
		taken[name] = true
	}
	counter := 1
	name := fmt.Sprintf(newSessionBase, counter)
	for taken[name] {
		counter++
		name = fmt.Sprintf(newSessionBase, counter)
	}

	if err := s.storage.WriteText(ctx, s.path(name), "{}"); err != nil {
		return "", fmt.Errorf("failed to create session %s: %w", name, err)
	}
	s.ApplySnapshot(state, nil)
	s.current = name
	s.logger.Info("session created", "session", name)
	return name, nil
}

// Rename moves a session to a new name. A collision with an existing
// session is a recoverable user error, reported as
// domain.ErrSessionExists.
func (s *Store) Rename(ctx context.Context, oldName, newName string) error {
	if newName == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if newName == oldName {
		return nil
	}
	exists, err := s.storage.FileExists(ctx, s.path(newName))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", domain.ErrSessionExists, newName)
	}
	if err := s.storage.Rename(ctx, s.path(oldName), s.path(newName)); err != nil {
		if errorsIsNotFound(err) {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, oldName)
		}
		return fmt.Errorf("failed to rename session %s: %w", oldName, err)
	}
	if s.current == oldName {
		s.current = newName
	}
	return nil
}

// Delete removes a session. Deleting the current session leaves no
// session selected.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.storage.Delete(ctx, s.path(name)); err != nil {
		if errorsIsNotFound(err) {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, name)
		}
		return fmt.Errorf("failed to delete session %s: %w", name, err)
	}
	if s.current == name {
		s.current = ""
	}
	return nil
}

// Duplicate copies a session under the first free '<name>_N' and returns
// the new name.
func (s *Store) Duplicate(ctx context.Context, name string) (string, error) {
	suffix := 1
	newName := fmt.Sprintf("%s_%d", name, suffix)
	for {
		exists, err := s.storage.FileExists(ctx, s.path(newName))
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		suffix++
		newName = fmt.Sprintf("%s_%d", name, suffix)
	}
	if err := s.storage.Copy(ctx, s.path(name), s.path(newName)); err != nil {
		if errorsIsNotFound(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrSessionNotFound, name)
		}
		return "", fmt.Errorf("failed to duplicate session %s: %w", name, err)
	}
	return newName, nil
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, domain.ErrFileNotFound)
}

// List returns the names of all saved sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	files, err := s.storage.ListFiles(ctx, s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var names []string
	for _, file := range files {
		if strings.HasSuffix(file, ".json") {
			names = append(names, strings.TrimSuffix(file, ".json"))
		}
	}
	return names, nil
}
