package ports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowdeck/pkg/domain"
)

// RunStorageContract verifies the Storage behavior every backend must
// satisfy. Adapter tests call this with a freshly initialized, empty store.
func RunStorageContract(t *testing.T, store Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("ReadMissing", func(t *testing.T) {
		_, err := store.ReadText(ctx, "missing.txt")
		assert.ErrorIs(t, err, domain.ErrFileNotFound)
	})

	t.Run("TextRoundTrip", func(t *testing.T) {
		require.NoError(t, store.WriteText(ctx, "notes/hello.txt", "hello"))
		got, err := store.ReadText(ctx, "notes/hello.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	})

	t.Run("BinaryRoundTrip", func(t *testing.T) {
		data := []byte{0x00, 0x01, 0xFF}
		require.NoError(t, store.WriteBinary(ctx, "blobs/raw.bin", data))
		got, err := store.ReadBinary(ctx, "blobs/raw.bin")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("ExistsListRename", func(t *testing.T) {
		require.NoError(t, store.WriteText(ctx, "sess/a.json", "{}"))
		require.NoError(t, store.WriteText(ctx, "sess/b.json", "{}"))

		ok, err := store.FileExists(ctx, "sess/a.json")
		require.NoError(t, err)
		assert.True(t, ok)

		files, err := store.ListFiles(ctx, "sess")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a.json", "b.json"}, files)

		require.NoError(t, store.Rename(ctx, "sess/a.json", "sess/c.json"))
		ok, err = store.FileExists(ctx, "sess/a.json")
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = store.FileExists(ctx, "sess/c.json")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("CopyDelete", func(t *testing.T) {
		require.NoError(t, store.WriteText(ctx, "copy/src.txt", "payload"))
		require.NoError(t, store.Copy(ctx, "copy/src.txt", "copy/dst.txt"))

		got, err := store.ReadText(ctx, "copy/dst.txt")
		require.NoError(t, err)
		assert.Equal(t, "payload", got)

		require.NoError(t, store.Delete(ctx, "copy/src.txt"))
		ok, err := store.FileExists(ctx, "copy/src.txt")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
