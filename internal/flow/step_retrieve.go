package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/flowdeck/pkg/domain"
)

// dataSourcesAlias is the dependency alias a retrieval step reads its
// slot definitions from.
const dataSourcesAlias = "data_sources"

// retrieveDataStep fetches text for every input slot via the extraction
// collaborator. Retrieval is all-or-nothing: the first failing slot
// clears the partial output and leaves the step retryable; success on
// every slot sets the slot-to-text mapping as output.
type retrieveDataStep struct {
	baseStep
}

func newRetrieveDataStep(cfg StepConfig, opts Options, flow *Flow) (Step, error) {
	if _, ok := cfg.DependsOn[dataSourcesAlias]; !ok {
		return nil, &ConfigError{Step: cfg.Name, Dependency: dataSourcesAlias, Reason: "not declared in depends_on"}
	}
	return &retrieveDataStep{
		baseStep: newBaseStep(cfg, opts, flow, "Retrieve data"),
	}, nil
}

// OutputSubkeys mirror the slot names of the data-sources dependency.
func (s *retrieveDataStep) OutputSubkeys() []string {
	path, err := s.dependencyPath(dataSourcesAlias)
	if err != nil {
		return nil
	}
	dep, ok := s.flow.Step(stepNameFromPath(path))
	if !ok {
		return nil
	}
	return dep.OutputSubkeys()
}

func (s *retrieveDataStep) logKey() string {
	return s.internalKey(true, "retrieved", "data", "log")
}

func (s *retrieveDataStep) Perform(ctx context.Context, state *domain.State, _ domain.Status) error {
	if s.flow.renderer.Button("Retrieve Data", s.internalKey(false, "retrieve_btn")) {
		if err := s.retrieve(ctx, state); err != nil {
			return err
		}
	}

	s.writeLog(state)
	return nil
}

// RenderDone keeps the progress log visible after the step completes.
func (s *retrieveDataStep) RenderDone(state *domain.State) {
	s.writeLog(state)
}

func (s *retrieveDataStep) writeLog(state *domain.State) {
	log, ok := state.Value(s.logKey()).([]any)
	if !ok {
		return
	}
	for _, line := range log {
		if text, ok := line.(string); ok {
			s.flow.renderer.Write(text)
		}
	}
}

func (s *retrieveDataStep) retrieve(ctx context.Context, state *domain.State) error {
	if s.flow.extractor == nil {
		return fmt.Errorf("step %q: no extractor configured", s.name)
	}

	sources, err := s.dependencyValue(dataSourcesAlias, state)
	if err != nil {
		return err
	}
	slots, ok := sources.(map[string]any)
	if !ok {
		return fmt.Errorf("step %q: data sources output has unexpected shape %T", s.name, sources)
	}

	var log []any
	appendLog := func(line string) {
		log = append(log, line)
		state.Set(s.logKey(), log)
	}

	output := make(map[string]any, len(slots))
	retrieveErr := s.flow.renderer.Busy("Getting data...", func() error {
		// Slot order follows the data-sources step's declaration.
		dep, _ := s.flow.Step(stepNameFromPath(s.config.DependsOn[dataSourcesAlias]))
		for _, slotName := range dep.OutputSubkeys() {
			slot, ok := slots[slotName].(map[string]any)
			if !ok {
				continue
			}
			method, _ := slot["method"].(string)
			src := slot["src"]

			text, err := s.flow.extractor.Extract(ctx, method, src)
			if err != nil {
				appendLog(fmt.Sprintf("Failed on '%v' :%v.", src, err))
				if s.flow.metrics != nil {
					s.flow.metrics.Retrievals.WithLabelValues(method, "error").Inc()
				}
				state.Delete(s.OutputKey())
				return nil
			}
			output[slotName] = text
			appendLog(fmt.Sprintf("%s %d bytes.", displaySource(slot), len(text)))
			appendLog(fmt.Sprintf("Estimated tokens %d", EstimateTokens(text)))
			if s.flow.metrics != nil {
				s.flow.metrics.Retrievals.WithLabelValues(method, "ok").Inc()
			}
		}
		state.Set(s.OutputKey(), output)
		return nil
	})
	return retrieveErr
}

// displaySource formats a slot's src for the progress log.
func displaySource(slot map[string]any) string {
	src := slot["src"]
	if slotType, _ := slot["type"].(string); slotType == "free_form_text" {
		text, _ := src.(string)
		if len(text) > 10 {
			text = text[:10]
		}
		return "Free Form Text :" + text + "..."
	}
	if files := uploadedFilesFromSrc(src); files != nil {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name
		}
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%v", src)
}
