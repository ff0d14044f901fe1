package ports

import "context"

// Storage is a byte/text read-write capability over a namespaced root.
// Paths are always relative, forward-slash separated; implementations must
// reject any path that escapes their root.
//
// Missing files are reported as domain.ErrFileNotFound (wrapped).
type Storage interface {
	ReadText(ctx context.Context, path string) (string, error)
	WriteText(ctx context.Context, path string, data string) error

	ReadBinary(ctx context.Context, path string) ([]byte, error)
	WriteBinary(ctx context.Context, path string, data []byte) error

	// ListFiles returns the names of the files directly inside folder,
	// relative to the storage root.
	ListFiles(ctx context.Context, folder string) ([]string, error)

	// ListFolders returns the names of the sub-folders directly inside
	// folder.
	ListFolders(ctx context.Context, folder string) ([]string, error)

	FileExists(ctx context.Context, path string) (bool, error)

	Rename(ctx context.Context, oldPath, newPath string) error
	Delete(ctx context.Context, path string) error
	Copy(ctx context.Context, srcPath, dstPath string) error
}
