package flow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/ports"
)

// uploadsFolder is the storage folder uploaded files are persisted under.
const uploadsFolder = "uploads"

// SaveUploadedFile persists an uploaded file content-addressed: the
// stored name is the content's SHA-256 hash prefixed onto the original
// filename, so re-uploading identical content is idempotent. Returns the
// storage path.
func SaveUploadedFile(ctx context.Context, storage ports.Storage, file ports.FilePayload) (string, error) {
	sum := sha256.Sum256(file.Content)
	name := hex.EncodeToString(sum[:]) + "_" + file.Name
	path := uploadsFolder + "/" + name
	if err := storage.WriteBinary(ctx, path, file.Content); err != nil {
		return "", fmt.Errorf("saving uploaded file %q: %w", file.Name, err)
	}
	return path, nil
}

// uploadedFileDescriptor is the JSON-friendly shape stored in an input
// slot's src for uploaded files.
func uploadedFileDescriptor(file ports.FilePayload, path string) map[string]any {
	return map[string]any{
		"name": file.Name,
		"type": file.ContentType,
		"path": path,
	}
}

// uploadedFilesFromSrc decodes slot src data back into descriptors,
// tolerating the map shapes a JSON round trip produces.
func uploadedFilesFromSrc(src any) []domain.UploadedFile {
	list, ok := src.([]any)
	if !ok {
		return nil
	}
	var files []domain.UploadedFile
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		file := domain.UploadedFile{}
		file.Name, _ = m["name"].(string)
		file.ContentType, _ = m["type"].(string)
		file.Path, _ = m["path"].(string)
		files = append(files, file)
	}
	return files
}
