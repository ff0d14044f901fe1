package textget

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/flowdeck/pkg/domain"
)

// fileExtractors maps an uploaded file's MIME type to its text reader.
// Only text-based formats are supported; binary document formats are
// rejected at extraction time.
var fileExtractors = map[string]func(string) (string, error){
	"text/plain":       fromTxt,
	"text/markdown":    fromTxt,
	"application/json": fromTxt,
	"text/csv":         fromCSV,
}

// FromUploadedFiles reads each uploaded file descriptor from storage
// and concatenates the extracted text with per-file metadata.
func (c *Client) FromUploadedFiles(ctx context.Context, src any) (string, error) {
	if c.storage == nil {
		return "", fmt.Errorf("no upload storage configured")
	}
	files, err := decodeDescriptors(src)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Text extracted from %d files\n\n", len(files))
	for i, file := range files {
		extractor := fileExtractors[file.ContentType]
		if extractor == nil {
			return "", fmt.Errorf("unsupported file format: %s", file.ContentType)
		}
		raw, err := c.storage.ReadText(ctx, file.Path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file.Name, err)
		}
		content, err := extractor(raw)
		if err != nil {
			return "", fmt.Errorf("extracting %s: %w", file.Name, err)
		}

		fmt.Fprintf(&b, "File %d/%d:\n", i+1, len(files))
		b.WriteString("Metadata:\n")
		fmt.Fprintf(&b, "- file_name: %s\n", file.Name)
		fmt.Fprintf(&b, "- file_type: %s\n", file.ContentType)
		fmt.Fprintf(&b, "- file_size: %d\n", len(raw))
		fmt.Fprintf(&b, "Word count: %d\n\n", len(strings.Fields(content)))
		fmt.Fprintf(&b, "Content:\n%s\n\n", content)
		b.WriteString(strings.Repeat("-", 50) + "\n\n")
	}
	return b.String(), nil
}

func decodeDescriptors(src any) ([]domain.UploadedFile, error) {
	if files, ok := src.([]domain.UploadedFile); ok {
		return files, nil
	}
	var files []domain.UploadedFile
	if err := mapstructure.Decode(src, &files); err != nil {
		return nil, fmt.Errorf("decoding uploaded file descriptors: %w", err)
	}
	return files, nil
}

func fromTxt(raw string) (string, error) {
	return raw, nil
}

func fromCSV(raw string) (string, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, record := range records {
		b.WriteString(strings.Join(record, ", "))
		b.WriteString("\n")
	}
	return b.String(), nil
}
