package template

import (
	"errors"
	"fmt"
	"strings"
)

// Reference resolution errors. Every failure here is a template-authoring
// error: surfaced immediately, never retried, never partially resolved.
var (
	// ErrCircularReference is returned when a reference path appears twice
	// on the active resolution stack.
	ErrCircularReference = errors.New("circular reference detected")

	// ErrInvalidReference covers malformed reference values: wrong type,
	// bad path syntax, unknown special key or a non-mapping target.
	ErrInvalidReference = errors.New("invalid reference")
)

const (
	keyPrefix = "$"
	refKey    = "$ref"
	allOfKey  = "$allOf"
)

// Resolver expands the special $ref/$allOf keys of a parsed template
// document against other locations in the same document.
//
// $ref uses override semantics: the referenced mapping's entries are
// applied to the container in place, so an explicit scalar key declared
// after the reference wins over the inherited value. $allOf deep-merges
// the referenced mapping instead, so nested mappings accumulate.
type Resolver struct {
	resolutionPath []string
}

// NewResolver returns a resolver with an empty resolution stack.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns a new document with every special key expanded. Path
// lookups address the original pre-resolution document while construction
// proceeds on a deep copy, so references always see the authored structure.
func (r *Resolver) Resolve(doc *Mapping) (*Mapping, error) {
	resolved, err := r.resolveValue(DeepCopy(doc), doc)
	if err != nil {
		return nil, err
	}
	return resolved.(*Mapping), nil
}

func (r *Resolver) resolveValue(value any, root *Mapping) (any, error) {
	switch v := value.(type) {
	case *Mapping:
		out := NewMapping()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			if strings.HasPrefix(pair.Key, keyPrefix) {
				if err := r.applySpecialKey(pair.Key, pair.Value, out, root); err != nil {
					return nil, err
				}
				continue
			}
			resolved, err := r.resolveValue(pair.Value, root)
			if err != nil {
				return nil, err
			}
			existing, present := out.Get(pair.Key)
			resolvedMapping, isMapping := resolved.(*Mapping)
			switch {
			case !present:
				out.Set(pair.Key, resolved)
			case !isMapping:
				// An explicit scalar or list declared alongside a
				// reference overrides the inherited value.
				out.Set(pair.Key, resolved)
			default:
				// Both the reference and the plain declaration contributed
				// a mapping at this key: compose rather than overwrite.
				out.Set(pair.Key, mergeNested(existing, resolvedMapping))
			}
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := r.resolveValue(item, root)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

// applySpecialKey expands one $-prefixed key into container.
func (r *Resolver) applySpecialKey(key string, value any, container *Mapping, root *Mapping) error {
	var refPaths []string
	switch v := value.(type) {
	case string:
		refPaths = []string{v}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("%w: reference value %v should be a single or list of reference strings", ErrInvalidReference, value)
			}
			refPaths = append(refPaths, s)
		}
	default:
		return fmt.Errorf("%w: reference value %v should be a single or list of reference strings", ErrInvalidReference, value)
	}

	for _, refPath := range refPaths {
		if !strings.HasPrefix(refPath, "#/") {
			return fmt.Errorf("%w: reference path %q should start with '#/'", ErrInvalidReference, refPath)
		}
		for _, active := range r.resolutionPath {
			if active == refPath {
				return fmt.Errorf("%w: %s", ErrCircularReference, refPath)
			}
		}
		r.resolutionPath = append(r.resolutionPath, refPath)
		err := r.expandReference(key, refPath, container, root)
		r.resolutionPath = r.resolutionPath[:len(r.resolutionPath)-1]
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) expandReference(key, refPath string, container *Mapping, root *Mapping) error {
	target, err := lookupPath(root, refPath)
	if err != nil {
		return err
	}
	targetMapping, ok := target.(*Mapping)
	if !ok {
		return fmt.Errorf("%w: %q only supports mapping targets, %q was %T", ErrInvalidReference, key, refPath, target)
	}
	// The target may itself contain references.
	resolved, err := r.resolveValue(targetMapping, root)
	if err != nil {
		return err
	}
	resolvedMapping := resolved.(*Mapping)

	switch key {
	case refKey:
		for pair := resolvedMapping.Oldest(); pair != nil; pair = pair.Next() {
			container.Set(pair.Key, pair.Value)
		}
	case allOfKey:
		mergeNested(container, resolvedMapping)
	default:
		return fmt.Errorf("%w: unknown special key %q", ErrInvalidReference, key)
	}
	return nil
}

// lookupPath traverses a '#/a/b/c' path against the document root.
func lookupPath(root *Mapping, refPath string) (any, error) {
	segments := strings.Split(refPath, "/")[1:]
	var value any = root
	for _, segment := range segments {
		m, ok := value.(*Mapping)
		if !ok {
			return nil, fmt.Errorf("%w: path %q traverses a non-mapping value", ErrInvalidReference, refPath)
		}
		next, found := m.Get(segment)
		if !found {
			return nil, fmt.Errorf("%w: path %q not found (missing %q)", ErrInvalidReference, refPath, segment)
		}
		value = next
	}
	return value, nil
}

// mergeNested merges source into target: source wins for matching scalar
// or list keys, nested mappings merge recursively, and a mapping/list
// mismatch at a key replaces the target value with a copy of the source.
// Keys only present in target are preserved. A top-level list source
// extends a list target. Returns the merge result, which is target itself
// whenever target and source are both mappings or both lists.
func mergeNested(target, source any) any {
	switch src := source.(type) {
	case *Mapping:
		tgt, ok := target.(*Mapping)
		if !ok {
			return DeepCopy(src)
		}
		for pair := src.Oldest(); pair != nil; pair = pair.Next() {
			existing, present := tgt.Get(pair.Key)
			if !present {
				tgt.Set(pair.Key, DeepCopy(pair.Value))
				continue
			}
			srcMapping, srcIsMapping := pair.Value.(*Mapping)
			_, tgtIsMapping := existing.(*Mapping)
			switch {
			case srcIsMapping && tgtIsMapping:
				tgt.Set(pair.Key, mergeNested(existing, srcMapping))
			case srcIsMapping && isList(existing):
				tgt.Set(pair.Key, DeepCopy(pair.Value))
			case isList(pair.Value) && tgtIsMapping:
				tgt.Set(pair.Key, DeepCopy(pair.Value))
			default:
				tgt.Set(pair.Key, pair.Value)
			}
		}
		return tgt
	case []any:
		tgt, ok := target.([]any)
		if !ok {
			return DeepCopy(src)
		}
		return append(tgt, DeepCopy(src).([]any)...)
	default:
		return source
	}
}

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}
