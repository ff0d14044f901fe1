package flow

import (
	"context"

	"github.com/aretw0/flowdeck/pkg/domain"
)

// formatPromptStep substitutes dependency values into a prompt template.
// Each depends_on alias becomes a {token}; the alias's path selects the
// value, descending into output subkeys where the path names one.
type formatPromptStep struct {
	baseStep
	template string
}

func newFormatPromptStep(cfg StepConfig, opts Options, flow *Flow) (Step, error) {
	tmpl := cfg.String("template", "")
	if tmpl == "" {
		return nil, &ConfigError{Step: cfg.Name, Reason: "the template attribute is missing"}
	}
	return &formatPromptStep{
		baseStep: newBaseStep(cfg, opts, flow, "Format prompt template"),
		template: tmpl,
	}, nil
}

func (s *formatPromptStep) Perform(_ context.Context, state *domain.State, _ domain.Status) error {
	tokenMap := make(map[string]string, len(s.config.DependsOn))
	for alias, path := range s.config.DependsOn {
		depName := stepNameFromPath(path)
		dep, ok := s.flow.Step(depName)
		if !ok {
			return &ConfigError{Step: s.name, Dependency: alias, Reason: "dependency step not found"}
		}
		lookupPath := dep.OutputKey()
		if subkey := subkeyFromPath(path, depName); subkey != "" {
			lookupPath += "." + subkey
		}
		tokenMap[alias] = lookupPath
	}

	formatted, err := FormatPrompt(s.template, tokenMap, state)
	if err != nil {
		return err
	}
	state.Set(s.OutputKey(), formatted)
	return nil
}
