package template_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowdeck/internal/template"
	"github.com/aretw0/flowdeck/pkg/adapters/memory"
	"github.com/aretw0/flowdeck/pkg/domain"
)

func TestLoaderExpandsLocalInclude(t *testing.T) {
	templates := memory.NewStoreWithFiles(map[string]string{
		"review/basic.yaml": "title: Review\n#!local_include steps.yaml\n",
		"review/steps.yaml": "steps:\n  intro:\n    kind: show_info\n",
	})
	loader := template.NewLoader(templates, memory.NewStore())

	doc, err := loader.Load(context.Background(), "review/basic.yaml")
	require.NoError(t, err)

	plain := template.ToPlain(doc).(map[string]any)
	assert.Equal(t, "Review", plain["title"])
	steps := plain["steps"].(map[string]any)
	assert.Contains(t, steps, "intro")
}

func TestLoaderExpandsLibInclude(t *testing.T) {
	templates := memory.NewStoreWithFiles(map[string]string{
		"basic.yaml": "#!lib_include shared/defs.yaml\nthing:\n  $ref: \"#/defs/base\"\n",
	})
	lib := memory.NewStoreWithFiles(map[string]string{
		"shared/defs.yaml": "defs:\n  base:\n    x: 1\n",
	})
	loader := template.NewLoader(templates, lib)

	doc, err := loader.Load(context.Background(), "basic.yaml")
	require.NoError(t, err)

	plain := template.ToPlain(doc).(map[string]any)
	assert.Equal(t, map[string]any{"x": 1}, plain["thing"])
}

func TestLoaderRejectsLocalIncludeWithSeparators(t *testing.T) {
	templates := memory.NewStoreWithFiles(map[string]string{
		"basic.yaml": "#!local_include ../secrets.yaml\n",
	})
	loader := template.NewLoader(templates, memory.NewStore())

	_, err := loader.Load(context.Background(), "basic.yaml")
	assert.ErrorContains(t, err, "must not contain path separators")
}

func TestLoaderRejectsLibIncludeTraversal(t *testing.T) {
	cases := map[string]string{
		"parent escape": "#!lib_include ../outside.yaml\n",
		"absolute path": "#!lib_include /etc/passwd\n",
		"hidden escape": "#!lib_include shared/../../outside.yaml\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			templates := memory.NewStoreWithFiles(map[string]string{"basic.yaml": content})
			loader := template.NewLoader(templates, memory.NewStore())

			_, err := loader.Load(context.Background(), "basic.yaml")
			assert.Error(t, err)
		})
	}
}

func TestLoaderMissingInclude(t *testing.T) {
	templates := memory.NewStoreWithFiles(map[string]string{
		"basic.yaml": "#!local_include steps.yaml\n",
	})
	loader := template.NewLoader(templates, memory.NewStore())

	_, err := loader.Load(context.Background(), "basic.yaml")
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestLoaderMissingTemplate(t *testing.T) {
	loader := template.NewLoader(memory.NewStore(), memory.NewStore())

	_, err := loader.Load(context.Background(), "nope.yaml")
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestLoaderMalformedDirective(t *testing.T) {
	templates := memory.NewStoreWithFiles(map[string]string{
		"basic.yaml": "#!local_include\n",
	})
	loader := template.NewLoader(templates, memory.NewStore())

	_, err := loader.Load(context.Background(), "basic.yaml")
	assert.ErrorContains(t, err, "invalid include directive")
}
