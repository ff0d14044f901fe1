package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowdeck/pkg/adapters/redisstore"
	"github.com/aretw0/flowdeck/pkg/ports"
)

func newStore(t *testing.T, opts ...redisstore.Option) *redisstore.Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return redisstore.NewFromClient(client, opts...)
}

func TestRedisStore_Contract(t *testing.T) {
	ports.RunStorageContract(t, newStore(t))
}

func TestRedisStore_PrefixIsolation(t *testing.T) {
	ctx := context.Background()
	a := newStore(t, redisstore.WithPrefix("a:"))

	require.NoError(t, a.WriteText(ctx, "sessions/foo.json", "{}"))

	files, err := a.ListFiles(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{"foo.json"}, files)

	folders, err := a.ListFolders(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"sessions"}, folders)
}
