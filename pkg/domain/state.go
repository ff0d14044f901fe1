package domain

import (
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// State is the flat key/value session state shared by every step of a flow.
//
// Values are whatever JSON can represent (scalars, []any, map[string]any)
// plus run-only handles that live for a single render pass. Key naming
// conventions decide the lifecycle class of each entry (see the session
// package); the State itself is lifecycle-agnostic.
//
// State is not safe for concurrent use. The execution model is a single
// logical thread of control per render pass, so no locking is needed.
type State struct {
	values map[string]any
}

// NewState creates an empty state map.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Get returns the value for key and whether the key is present.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Value returns the value for key, or nil if absent.
func (s *State) Value(key string) any {
	return s.values[key]
}

// Has reports whether key is present with a non-nil value.
func (s *State) Has(key string) bool {
	return s.values[key] != nil
}

// Set stores value under key.
func (s *State) Set(key string, value any) {
	s.values[key] = value
}

// Delete removes key from the state.
func (s *State) Delete(key string) {
	delete(s.values, key)
}

// Keys returns all keys in sorted order.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeysWithPrefix returns all keys starting with prefix, sorted.
func (s *State) KeysWithPrefix(prefix string) []string {
	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a map of every entry whose key satisfies keep.
func (s *State) Snapshot(keep func(key string) bool) map[string]any {
	snap := make(map[string]any)
	for k, v := range s.values {
		if keep(k) {
			snap[k] = v
		}
	}
	return snap
}

// Apply overlays every entry of snap onto the state.
func (s *State) Apply(snap map[string]any) {
	for k, v := range snap {
		s.values[k] = v
	}
}

// Len returns the number of entries.
func (s *State) Len() int {
	return len(s.values)
}

// Lookup resolves a dot separated path against nested data. The first
// segment is looked up in the state, the remaining segments descend into
// mapping values. It returns the value and whether every segment resolved.
func (s *State) Lookup(path string) (any, bool) {
	segments := strings.Split(path, ".")
	value, ok := s.Get(segments[0])
	if !ok {
		return nil, false
	}
	return Descend(value, segments[1:])
}

// Descend walks the given path segments into nested mapping data. Both
// plain maps and order-preserving document mappings are traversable.
func Descend(value any, segments []string) (any, bool) {
	for _, seg := range segments {
		switch m := value.(type) {
		case map[string]any:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			value = v
		case *orderedmap.OrderedMap[string, any]:
			v, ok := m.Get(seg)
			if !ok {
				return nil, false
			}
			value = v
		default:
			return nil, false
		}
	}
	return value, true
}
