package session

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowdeck/pkg/adapters/memory"
	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/observability"
)

var testPatterns = PatternSet{
	Persistent: []string{"persist_*", "exact_key"},
	Volatile:   []string{"vdata_*"},
}

func newTestStore() *Store {
	return NewStore(memory.NewStore(), "sessions", testPatterns)
}

func TestPatternClassification(t *testing.T) {
	p := testPatterns

	assert.True(t, p.IsPersistent("persist_1"))
	assert.True(t, p.IsPersistent("exact_key"))
	assert.False(t, p.IsPersistent("exact_key_more"), "non-glob patterns match exactly")
	assert.False(t, p.IsPersistent("vdata_x"))

	assert.True(t, p.IsVolatile("vdata_x"))
	assert.False(t, p.IsVolatile("persist_1"))
	assert.False(t, p.IsVolatile("scratch"), "unmatched keys are ephemeral")
}

func TestPersistentWinsOverVolatile(t *testing.T) {
	p := PatternSet{
		Persistent: []string{"shared_*"},
		Volatile:   []string{"shared_*"},
	}
	assert.True(t, p.IsPersistent("shared_x"))
	assert.False(t, p.IsVolatile("shared_x"))
}

func TestSaveLoadRoundTripFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	state := domain.NewState()
	state.Set("persist_1", "v1")
	state.Set("other", "v2")
	require.NoError(t, store.SaveNamed(ctx, "foo", state))

	snapshot, err := store.LoadNamed(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"persist_1": "v1"}, snapshot)
}

func TestLoadMissingSession(t *testing.T) {
	store := newTestStore()

	_, err := store.LoadNamed(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSwitchClearsVolatileAndOverlays(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	saved := domain.NewState()
	saved.Set("persist_1", "from-session")
	require.NoError(t, store.SaveNamed(ctx, "foo", saved))

	live := domain.NewState()
	live.Set("persist_1", "stale")
	live.Set("vdata_cache", "stale-too")
	live.Set("scratch", "kept")
	require.NoError(t, store.Switch(ctx, "foo", live))

	assert.Equal(t, "from-session", live.Value("persist_1"))
	assert.False(t, live.Has("vdata_cache"), "volatile keys are nulled on switch")
	assert.Equal(t, "kept", live.Value("scratch"), "ephemeral keys survive")
	assert.Equal(t, "foo", store.Current())
}

func TestCreatePicksNextFreeName(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	state := domain.NewState()

	name, err := store.Create(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "Session_1", name)

	name, err = store.Create(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "Session_2", name)
	assert.Equal(t, "Session_2", store.Current())

	// The new session starts empty even when live state had data.
	state.Set("persist_1", "x")
	name, err = store.Create(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "Session_3", name)
	assert.False(t, state.Has("persist_1"))
	snapshot, err := store.LoadNamed(ctx, "Session_3")
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestRenameCollision(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	state := domain.NewState()

	require.NoError(t, store.SaveNamed(ctx, "a", state))
	require.NoError(t, store.SaveNamed(ctx, "b", state))

	err := store.Rename(ctx, "a", "b")
	assert.ErrorIs(t, err, domain.ErrSessionExists)

	require.NoError(t, store.Rename(ctx, "a", "c"))
	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, names)
}

func TestRenameUpdatesCurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	state := domain.NewState()

	require.NoError(t, store.SaveNamed(ctx, "a", state))
	store.SetCurrent("a")
	require.NoError(t, store.Rename(ctx, "a", "b"))
	assert.Equal(t, "b", store.Current())
}

func TestDuplicateAvoidsCollisions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	state := domain.NewState()
	state.Set("persist_1", "v")
	require.NoError(t, store.SaveNamed(ctx, "foo", state))
	require.NoError(t, store.SaveNamed(ctx, "foo_1", domain.NewState()))

	name, err := store.Duplicate(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "foo_2", name, "existing foo_1 must not be overwritten")

	snapshot, err := store.LoadNamed(ctx, "foo_2")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"persist_1": "v"}, snapshot)
}

func TestDeleteClearsCurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	state := domain.NewState()

	require.NoError(t, store.SaveNamed(ctx, "a", state))
	store.SetCurrent("a")
	require.NoError(t, store.Delete(ctx, "a"))
	assert.Equal(t, "", store.Current())

	err := store.Delete(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSaveCurrentDefaultsName(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	require.NoError(t, store.SaveCurrent(ctx, domain.NewState()))
	assert.Equal(t, DefaultSessionName, store.Current())

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, names)
}

func TestStoreCountsSavesAndLoads(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	store := NewStore(memory.NewStore(), "sessions", testPatterns, WithMetrics(metrics))

	state := domain.NewState()
	state.Set("persist_a", "v")
	require.NoError(t, store.SaveNamed(context.Background(), "s", state))
	_, err := store.LoadNamed(context.Background(), "s")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsLoaded))
}
