package flow

import (
	"context"
	"fmt"

	"github.com/aretw0/flowdeck/pkg/domain"
)

// chooseModelStep lets the user pick a chat model from the configured
// catalog. Its output is the chosen model name.
type chooseModelStep struct {
	baseStep
}

func newChooseModelStep(cfg StepConfig, opts Options, flow *Flow) (Step, error) {
	return &chooseModelStep{
		baseStep: newBaseStep(cfg, opts, flow, "Choose chat model"),
	}, nil
}

func (s *chooseModelStep) Perform(_ context.Context, state *domain.State, _ domain.Status) error {
	if s.flow.models == nil {
		return fmt.Errorf("step %q: no model catalog configured", s.name)
	}
	choices := s.flow.models.Choices()
	if len(choices) == 0 {
		return fmt.Errorf("step %q: model catalog is empty", s.name)
	}
	names := make([]string, len(choices))
	for i, choice := range choices {
		names[i] = choice.Name
	}

	pkey := s.internalKey(true, "model_select")
	current, _ := state.Value(pkey).(string)
	if current == "" {
		current = names[0]
	}

	choice := s.flow.renderer.SelectBox("Choose the chat model", names, current, pkey)
	state.Set(pkey, choice)
	state.Set(s.OutputKey(), choice)
	return nil
}
