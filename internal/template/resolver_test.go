package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveYAML(t *testing.T, text string) map[string]any {
	t.Helper()
	doc, err := ParseDocument(text)
	require.NoError(t, err)
	resolved, err := NewResolver().Resolve(doc)
	require.NoError(t, err)
	return ToPlain(resolved).(map[string]any)
}

func TestResolveRefOverridesEarlierKeys(t *testing.T) {
	out := resolveYAML(t, `
definitions:
  animal:
    legs: 4
    tail: "yes"
    sounds: [meow, purr]
cat:
  legs: 2
  $ref: "#/definitions/animal"
  tail: "no"
  sounds: [hiss]
`)

	cat := out["cat"].(map[string]any)
	assert.Equal(t, 4, cat["legs"], "referenced value overrides a key declared before the reference")
	assert.Equal(t, "no", cat["tail"], "key declared after the reference wins")
	assert.Equal(t, []any{"hiss"}, cat["sounds"], "a list declared after the reference replaces the inherited one")
}

func TestResolveMultipleRefsApplyInOrder(t *testing.T) {
	out := resolveYAML(t, `
t1:
  legs: 4
  front: 4
t2:
  steering: 1
vehicle:
  $ref: ["#/t1", "#/t2"]
  front: 2
`)

	vehicle := out["vehicle"].(map[string]any)
	assert.Equal(t, map[string]any{"legs": 4, "steering": 1, "front": 2}, vehicle)
}

func TestResolveAllOfMergesNestedMappings(t *testing.T) {
	out := resolveYAML(t, `
base:
  body:
    left_foot:
      toes: 5
robot:
  $allOf: "#/base"
  body:
    left_foot:
      color: red
`)

	robot := out["robot"].(map[string]any)
	body := robot["body"].(map[string]any)
	assert.Equal(t, map[string]any{"toes": 5, "color": "red"}, body["left_foot"])
}

func TestResolveChainedReferences(t *testing.T) {
	out := resolveYAML(t, `
a:
  value: 1
b:
  $ref: "#/a"
  extra: 2
c:
  $ref: "#/b"
`)

	c := out["c"].(map[string]any)
	assert.Equal(t, map[string]any{"value": 1, "extra": 2}, c)
}

func TestResolveIsIdempotent(t *testing.T) {
	text := `
defs:
  base:
    x: 1
thing:
  $ref: "#/defs/base"
  y: 2
`
	doc, err := ParseDocument(text)
	require.NoError(t, err)
	once, err := NewResolver().Resolve(doc)
	require.NoError(t, err)
	twice, err := NewResolver().Resolve(once)
	require.NoError(t, err)
	assert.Equal(t, ToPlain(once), ToPlain(twice))
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	doc, err := ParseDocument(`
defs:
  base:
    x: 1
thing:
  $ref: "#/defs/base"
`)
	require.NoError(t, err)
	before := ToPlain(doc)

	_, err = NewResolver().Resolve(doc)
	require.NoError(t, err)
	assert.Equal(t, before, ToPlain(doc))
}

func TestResolveCircularReference(t *testing.T) {
	doc, err := ParseDocument(`
circular:
  $ref: "#/circular"
`)
	require.NoError(t, err)

	_, err = NewResolver().Resolve(doc)
	assert.ErrorIs(t, err, ErrCircularReference)
}

func TestResolveMutualCircularReference(t *testing.T) {
	doc, err := ParseDocument(`
a:
  $ref: "#/b"
b:
  $ref: "#/a"
`)
	require.NoError(t, err)

	_, err = NewResolver().Resolve(doc)
	assert.ErrorIs(t, err, ErrCircularReference)
}

func TestResolveErrors(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"ref to list target", "items: [1, 2]\nx:\n  $ref: \"#/items\"\n"},
		{"ref to scalar target", "n: 5\nx:\n  $ref: \"#/n\"\n"},
		{"ref to missing path", "x:\n  $ref: \"#/nope\"\n"},
		{"ref without fragment prefix", "a: {v: 1}\nx:\n  $ref: \"a\"\n"},
		{"ref with non-string value", "x:\n  $ref: 42\n"},
		{"ref through non-mapping segment", "a: [1]\nx:\n  $ref: \"#/a/0\"\n"},
		{"unknown special key", "a: {v: 1}\nx:\n  $merge: \"#/a\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := ParseDocument(tc.text)
			require.NoError(t, err)
			_, err = NewResolver().Resolve(doc)
			assert.ErrorIs(t, err, ErrInvalidReference)
		})
	}
}

func TestResolvePreservesKeyOrder(t *testing.T) {
	doc, err := ParseDocument(`
steps:
  first: {kind: a}
  second: {kind: b}
  third: {kind: c}
`)
	require.NoError(t, err)
	resolved, err := NewResolver().Resolve(doc)
	require.NoError(t, err)

	steps, _ := resolved.Get("steps")
	var order []string
	for pair := steps.(*Mapping).Oldest(); pair != nil; pair = pair.Next() {
		order = append(order, pair.Key)
	}
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestMergeNested(t *testing.T) {
	parse := func(text string) *Mapping {
		doc, err := ParseDocument(text)
		require.NoError(t, err)
		return doc
	}

	t.Run("source scalar wins", func(t *testing.T) {
		got := mergeNested(parse("a: 1\nb: 2\n"), parse("b: 3\n"))
		assert.Equal(t, map[string]any{"a": 1, "b": 3}, ToPlain(got))
	})

	t.Run("source list overwrites at a key", func(t *testing.T) {
		got := mergeNested(parse("xs: [1, 2]\n"), parse("xs: [3]\n"))
		assert.Equal(t, map[string]any{"xs": []any{3}}, ToPlain(got))
	})

	t.Run("top-level lists extend", func(t *testing.T) {
		got := mergeNested([]any{1, 2}, []any{3})
		assert.Equal(t, []any{1, 2, 3}, got)
	})

	t.Run("mapping replaces list on type mismatch", func(t *testing.T) {
		got := mergeNested(parse("x: [1]\n"), parse("x: {k: v}\n"))
		assert.Equal(t, map[string]any{"x": map[string]any{"k": "v"}}, ToPlain(got))
	})

	t.Run("list replaces mapping on type mismatch", func(t *testing.T) {
		got := mergeNested(parse("x: {k: v}\n"), parse("x: [1]\n"))
		assert.Equal(t, map[string]any{"x": []any{1}}, ToPlain(got))
	})

	t.Run("target-only keys survive", func(t *testing.T) {
		got := mergeNested(parse("keep: true\nnested: {a: 1}\n"), parse("nested: {b: 2}\n"))
		assert.Equal(t, map[string]any{
			"keep":   true,
			"nested": map[string]any{"a": 1, "b": 2},
		}, ToPlain(got))
	})
}
