package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigRequiredKeys(t *testing.T) {
	_, err := parseFlowConfig("title: T\ndescription: D\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required key "steps"`)

	_, err = parseFlowConfig("description: D\nsteps: {}\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required key "title"`)
}

func TestParseConfigMissingClass(t *testing.T) {
	_, err := parseFlowConfig(`
title: T
description: D
steps:
  first:
    heading: H
`)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "first", cfgErr.Step)
	assert.Contains(t, cfgErr.Reason, "class attribute is missing")
}

func TestParseConfigPreservesStepOrder(t *testing.T) {
	cfg, err := parseFlowConfig(`
title: T
description: D
steps:
  zulu: {class: ChooseLLMFlavour}
  alpha: {class: ChooseLLMFlavour}
  mike: {class: ChooseLLMFlavour}
`)
	require.NoError(t, err)

	var names []string
	for _, s := range cfg.Steps {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, names)
}

func TestParseConfigDependsOn(t *testing.T) {
	cfg, err := parseFlowConfig(`
title: T
description: D
steps:
  a: {class: ChooseLLMFlavour}
  b:
    class: FormatPromptStep
    template: "x {m}"
    depends_on:
      m: a
`)
	require.NoError(t, err)

	step, ok := cfg.Step("b")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"m": "a"}, step.DependsOn)
}

func TestParseConfigBadDependsOnValue(t *testing.T) {
	_, err := parseFlowConfig(`
title: T
description: D
steps:
  b:
    class: FormatPromptStep
    depends_on:
      m: [not, a, path]
`)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "m", cfgErr.Dependency)
}

func TestResolveOptionsLayering(t *testing.T) {
	cfg, err := parseFlowConfig(`
title: T
description: D
step_options:
  visibility: showAfterActive
  show_status_description: never
steps:
  a:
    class: ChooseLLMFlavour
    options:
      visibility: always
`)
	require.NoError(t, err)

	step, _ := cfg.Step("a")
	opts, err := resolveOptions(cfg.Raw, step)
	require.NoError(t, err)
	assert.Equal(t, VisibilityAlways, opts.Visibility, "step options override flow-wide")
	assert.Equal(t, StatusDescriptionNever, opts.ShowStatusDescription, "flow-wide overrides defaults")
	assert.Equal(t, ExpandOnlyWhenActive, opts.Expandability, "defaults survive unset keys")
}

func TestResolveOptionsRejectsUnknownKeys(t *testing.T) {
	cfg, err := parseFlowConfig(`
title: T
description: D
steps:
  a:
    class: ChooseLLMFlavour
    options:
      visibilty: always
`)
	require.NoError(t, err)

	step, _ := cfg.Step("a")
	_, err = resolveOptions(cfg.Raw, step)
	assert.Error(t, err, "misspelled option keys are configuration errors")
}
