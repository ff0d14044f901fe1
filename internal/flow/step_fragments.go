package flow

import (
	"context"
	"fmt"

	"github.com/aretw0/flowdeck/internal/template"
	"github.com/aretw0/flowdeck/pkg/domain"
)

// selectFragmentsStep renders one selector per configured choice group
// and emits the chosen fragment text per group. The first enumerated
// option is the default.
type selectFragmentsStep struct {
	baseStep
	fragmentOptions *template.Mapping
}

func newSelectFragmentsStep(cfg StepConfig, opts Options, flow *Flow) (Step, error) {
	fragments := cfg.Mapping("fragment_options")
	if fragments == nil {
		return nil, &ConfigError{Step: cfg.Name, Reason: "the fragment_options attribute is missing"}
	}
	return &selectFragmentsStep{
		baseStep:        newBaseStep(cfg, opts, flow, "Choose options"),
		fragmentOptions: fragments,
	}, nil
}

// OutputSubkeys are the choice group names.
func (s *selectFragmentsStep) OutputSubkeys() []string {
	keys := make([]string, 0, s.fragmentOptions.Len())
	for pair := s.fragmentOptions.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

func (s *selectFragmentsStep) Perform(_ context.Context, state *domain.State, _ domain.Status) error {
	output := make(map[string]any, s.fragmentOptions.Len())

	for pair := s.fragmentOptions.Oldest(); pair != nil; pair = pair.Next() {
		groupName := pair.Key
		group, ok := pair.Value.(*template.Mapping)
		if !ok {
			return &ConfigError{Step: s.name, Reason: fmt.Sprintf("fragment option %q must be a mapping", groupName)}
		}
		label, _ := valueString(group, "label")
		choices, ok := group.Get("choices")
		if !ok {
			return &ConfigError{Step: s.name, Reason: fmt.Sprintf("fragment option %q is missing choices", groupName)}
		}
		choiceMap, ok := choices.(*template.Mapping)
		if !ok || choiceMap.Len() == 0 {
			return &ConfigError{Step: s.name, Reason: fmt.Sprintf("fragment option %q choices must be a non-empty mapping", groupName)}
		}

		names := make([]string, 0, choiceMap.Len())
		for c := choiceMap.Oldest(); c != nil; c = c.Next() {
			names = append(names, c.Key)
		}

		pkey := s.internalKey(true, groupName, "choice")
		current, _ := state.Value(pkey).(string)
		if _, valid := choiceMap.Get(current); !valid {
			current = names[0]
		}

		choice := s.flow.renderer.SelectBox(label, names, current, pkey)
		state.Set(pkey, choice)
		fragment, _ := choiceMap.Get(choice)
		output[groupName] = fragment
	}

	state.Set(s.OutputKey(), output)
	return nil
}
