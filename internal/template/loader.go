package template

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aretw0/flowdeck/internal/logging"
	"github.com/aretw0/flowdeck/pkg/ports"
)

const (
	localIncludeDirective = "#!local_include"
	libIncludeDirective   = "#!lib_include"
)

// Loader reads template files, expands include directives and resolves
// references, producing a fully expanded document tree.
//
// Include expansion is textual and single-level: a directive line is
// replaced by the verbatim lines of the target file before YAML parsing.
// Directives inside an included file are not expanded; they are left in
// place and fail YAML parsing loudly rather than silently nesting.
type Loader struct {
	templates  ports.Storage
	includeLib ports.Storage
	logger     *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets a structured logger for the loader.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader reading template files from templates and
// library includes from includeLib.
func NewLoader(templates, includeLib ports.Storage, opts ...LoaderOption) *Loader {
	l := &Loader{
		templates:  templates,
		includeLib: includeLib,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, expands and resolves the template at filePath.
func (l *Loader) Load(ctx context.Context, filePath string) (*Mapping, error) {
	doc, err := l.LoadWithIncludes(ctx, filePath)
	if err != nil {
		return nil, err
	}
	resolved, err := NewResolver().Resolve(doc)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", filePath, err)
	}
	return resolved, nil
}

// LoadWithIncludes reads the file, expands include directives and parses
// the result as YAML, without reference resolution.
func (l *Loader) LoadWithIncludes(ctx context.Context, filePath string) (*Mapping, error) {
	content, err := l.templates.ReadText(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", filePath, err)
	}

	var processed []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, localIncludeDirective):
			lines, err := l.expandLocalInclude(ctx, trimmed, filePath)
			if err != nil {
				return nil, err
			}
			processed = append(processed, lines...)
		case strings.HasPrefix(trimmed, libIncludeDirective):
			lines, err := l.expandLibInclude(ctx, trimmed)
			if err != nil {
				return nil, err
			}
			processed = append(processed, lines...)
		default:
			processed = append(processed, line)
		}
	}

	doc, err := ParseDocument(strings.Join(processed, "\n"))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return doc, nil
}

// expandLocalInclude resolves a '#!local_include <name>' directive against
// the directory of the currently loading file. The name must not contain
// any path separator; this rules out directory traversal outright.
func (l *Loader) expandLocalInclude(ctx context.Context, line, filePath string) ([]string, error) {
	name, err := directiveArgument(line)
	if err != nil {
		return nil, err
	}
	if strings.ContainsAny(name, "/\\") {
		return nil, fmt.Errorf("local include %q must not contain path separators", name)
	}
	includePath := name
	if dir := path.Dir(filePath); dir != "." {
		includePath = dir + "/" + name
	}
	l.logger.Debug("expanding local include", "file", filePath, "include", includePath)
	content, err := l.templates.ReadText(ctx, includePath)
	if err != nil {
		return nil, fmt.Errorf("local include %q: %w", includePath, err)
	}
	return strings.Split(content, "\n"), nil
}

// expandLibInclude resolves a '#!lib_include <relative/path>' directive
// against the include-library root. Sub-directories are allowed, but the
// path must stay inside the library: '..' segments and absolute paths are
// rejected before any read is attempted.
func (l *Loader) expandLibInclude(ctx context.Context, line string) ([]string, error) {
	relPath, err := directiveArgument(line)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(relPath, "/") {
		return nil, fmt.Errorf("lib include %q must be a relative path", relPath)
	}
	cleaned := path.Clean(relPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return nil, fmt.Errorf("lib include %q escapes the include library", relPath)
	}
	l.logger.Debug("expanding lib include", "include", cleaned)
	content, err := l.includeLib.ReadText(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("lib include %q: %w", cleaned, err)
	}
	return strings.Split(content, "\n"), nil
}

func directiveArgument(line string) (string, error) {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid include directive: %q", line)
	}
	return parts[1], nil
}
