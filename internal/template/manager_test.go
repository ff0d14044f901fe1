package template_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowdeck/internal/template"
	"github.com/aretw0/flowdeck/pkg/adapters/memory"
)

func newManager(files map[string]string) *template.Manager {
	return template.NewManager(memory.NewStoreWithFiles(files), memory.NewStore(), nil)
}

func TestManagerGroups(t *testing.T) {
	mgr := newManager(map[string]string{
		"review/_meta.yaml":  "icon: pencil\ntitle: Review\ndescription: Document review flows\n",
		"review/basic.yaml":  "title: Basic\nenabled: true\n",
		"scratch/notes.yaml": "title: Notes\n",
	})

	groups, err := mgr.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1, "folders without _meta.yaml are not groups")
	assert.Equal(t, template.GroupInfo{
		Icon:        "pencil",
		Title:       "Review",
		Description: "Document review flows",
	}, groups["review"])
}

func TestManagerGroupTemplates(t *testing.T) {
	mgr := newManager(map[string]string{
		"review/_meta.yaml":  "title: Review\n",
		"review/basic.yaml":  "title: Basic\ndescription: Quick pass\nenabled: true\n",
		"review/wip.yaml":    "title: WIP\nenabled: false\n",
		"review/broken.yaml": "title: Broken\nsteps:\n  x:\n    $ref: \"#/missing\"\n",
		"review/raw.txt":     "not a template",
		"review/_extra.yaml": "internal: true\n",
	})

	items, err := mgr.GroupTemplates(context.Background(), "review")
	require.NoError(t, err)

	assert.Len(t, items, 2, "broken templates and non-yaml files are skipped")
	assert.Equal(t, template.TemplateInfo{Title: "Basic", Description: "Quick pass", Enabled: true}, items["basic"])
	assert.Equal(t, template.TemplateInfo{Title: "WIP", Enabled: false}, items["wip"])
}

func TestManagerLoadTemplate(t *testing.T) {
	mgr := newManager(map[string]string{
		"review/basic.yaml": "title: Basic\nsteps:\n  intro:\n    kind: show_info\n",
	})

	doc, err := mgr.LoadTemplate(context.Background(), "review/basic")
	require.NoError(t, err)
	plain := template.ToPlain(doc).(map[string]any)
	assert.Equal(t, "Basic", plain["title"])
}
