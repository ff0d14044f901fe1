package localfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowdeck/pkg/ports"
)

func TestStorageContract(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ports.RunStorageContract(t, store)
}

func TestRejectsEscapingPaths(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.ReadText(ctx, "../outside.txt")
	assert.ErrorContains(t, err, "escapes storage root")

	err = store.WriteText(ctx, "/etc/passwd", "nope")
	assert.ErrorContains(t, err, "escapes storage root")
}

func TestListEmptyFolder(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	files, err := store.ListFiles(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, files)
}
