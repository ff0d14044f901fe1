package template

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aretw0/flowdeck/internal/logging"
	"github.com/aretw0/flowdeck/pkg/ports"
)

// GroupInfo describes a template group, read from the group's _meta.yaml.
type GroupInfo struct {
	Icon        string `mapstructure:"icon"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
}

// TemplateInfo describes one flow template inside a group.
type TemplateInfo struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Manager enumerates and loads flow templates from a storage backend.
type Manager struct {
	templates ports.Storage
	loader    *Loader
	logger    *slog.Logger
}

// NewManager creates a template manager over the given storage backends.
func NewManager(templates, includeLib ports.Storage, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		templates: templates,
		loader:    NewLoader(templates, includeLib, WithLogger(logger)),
		logger:    logger,
	}
}

// Loader returns the underlying template loader.
func (m *Manager) Loader() *Loader {
	return m.loader
}

// LoadTemplate loads and resolves the named template ('<name>.yaml').
func (m *Manager) LoadTemplate(ctx context.Context, name string) (*Mapping, error) {
	return m.loader.Load(ctx, name+".yaml")
}

// Groups returns the template groups: every top-level folder carrying a
// _meta.yaml, keyed by folder name.
func (m *Manager) Groups(ctx context.Context) (map[string]GroupInfo, error) {
	folders, err := m.templates.ListFolders(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing template groups: %w", err)
	}

	groups := make(map[string]GroupInfo)
	for _, folder := range folders {
		metaPath := folder + "/_meta.yaml"
		exists, err := m.templates.FileExists(ctx, metaPath)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		meta, err := m.loader.Load(ctx, metaPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", metaPath, err)
		}
		groups[folder] = GroupInfo{
			Icon:        stringValue(meta, "icon"),
			Title:       stringValue(meta, "title"),
			Description: stringValue(meta, "description"),
		}
	}
	return groups, nil
}

// GroupTemplates returns the templates of one group, keyed by template
// name (file name without extension). Files starting with '_' are group
// metadata and are skipped. A template that fails to load is logged and
// skipped rather than failing the whole listing.
func (m *Manager) GroupTemplates(ctx context.Context, group string) (map[string]TemplateInfo, error) {
	files, err := m.templates.ListFiles(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("listing group %s: %w", group, err)
	}
	sort.Strings(files)

	items := make(map[string]TemplateInfo)
	for _, file := range files {
		if !strings.HasSuffix(file, ".yaml") || strings.HasPrefix(file, "_") {
			continue
		}
		filePath := group + "/" + file
		doc, err := m.loader.Load(ctx, filePath)
		if err != nil {
			m.logger.Error("could not load flow template", "path", filePath, "error", err)
			continue
		}
		name := strings.TrimSuffix(file, ".yaml")
		enabled, _ := doc.Get("enabled")
		items[name] = TemplateInfo{
			Title:       stringValue(doc, "title"),
			Description: stringValue(doc, "description"),
			Enabled:     enabled == true,
		}
	}
	return items, nil
}

func stringValue(m *Mapping, key string) string {
	if v, ok := m.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
