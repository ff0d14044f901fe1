package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/flowdeck/pkg/domain"
)

// Chat step dependency aliases.
const (
	systemPromptAlias = "initial_system_prompt"
	humanPromptAlias  = "initial_human_prompt"
	modelChoiceAlias  = "chat_model_choice"
)

// chatLoopStep runs an interactive refinement loop against a chat model.
// The transcript is append-only and lives in the step's persistent
// namespace; human messages are length-tagged so retrieved context can
// be trimmed off when redisplaying them.
type chatLoopStep struct {
	baseStep
	retrieveContext   bool
	hideInitialPrompt bool
}

func newChatLoopStep(cfg StepConfig, opts Options, flow *Flow) (Step, error) {
	for _, alias := range []string{systemPromptAlias, humanPromptAlias, modelChoiceAlias} {
		if _, ok := cfg.DependsOn[alias]; !ok {
			return nil, &ConfigError{Step: cfg.Name, Dependency: alias, Reason: "not declared in depends_on"}
		}
	}
	return &chatLoopStep{
		baseStep:          newBaseStep(cfg, opts, flow, "Refine with chat"),
		retrieveContext:   cfg.Bool("retrieve_context", true),
		hideInitialPrompt: cfg.Bool("hide_initial_prompt", true),
	}, nil
}

func (s *chatLoopStep) messagesKey() string {
	return s.internalKey(true, "messages")
}

func (s *chatLoopStep) Perform(ctx context.Context, state *domain.State, _ domain.Status) error {
	if s.flow.models == nil {
		return fmt.Errorf("step %q: no model catalog configured", s.name)
	}

	systemPrompt, err := s.dependencyString(systemPromptAlias, state)
	if err != nil {
		return err
	}
	initialPrompt, err := s.dependencyString(humanPromptAlias, state)
	if err != nil {
		return err
	}
	modelChoice, err := s.dependencyString(modelChoiceAlias, state)
	if err != nil {
		return err
	}
	model, err := s.flow.models.Model(modelChoice)
	if err != nil {
		return fmt.Errorf("step %q: %w", s.name, err)
	}

	if s.flow.renderer.Button("Generate", s.internalKey(false, "generate_btn")) {
		state.Set(s.messagesKey(), []any{})
	}
	if !state.Has(s.messagesKey()) {
		return nil
	}

	messages := messagesFromState(state, s.messagesKey())

	// Redisplay the transcript. The initial prompt is hidden when
	// configured; human messages are truncated to their tagged length.
	hideNext := s.hideInitialPrompt
	for _, msg := range messages {
		if hideNext {
			hideNext = false
			continue
		}
		s.flow.renderer.ChatMessage(msg.Role, msg.VisibleContent())
	}

	humanPrompt, submitted := s.flow.renderer.ChatInput("How do you want to tweak it?", s.internalKey(false, "chat_input"))

	firstTurn := len(messages) == 0
	if firstTurn && initialPrompt != "" {
		humanPrompt = initialPrompt
		submitted = true
	}
	if !submitted || humanPrompt == "" {
		return nil
	}

	showPrompt := !(firstTurn && s.hideInitialPrompt)
	if showPrompt {
		s.flow.renderer.ChatMessage("user", humanPrompt)
	}

	// Tag the visible length before context is appended.
	visibleLength := len(humanPrompt)
	if showPrompt && s.retrieveContext && s.flow.enricher != nil {
		humanPrompt, err = s.flow.enricher.Enrich(ctx, humanPrompt)
		if err != nil {
			return fmt.Errorf("step %q: %w", s.name, err)
		}
	}

	var response string
	err = s.flow.renderer.Busy("...", func() error {
		start := time.Now()
		var invokeErr error
		response, invokeErr = model.InvokeWithHistory(ctx, systemPrompt, humanPrompt, messages)
		if s.flow.metrics != nil {
			s.flow.metrics.ModelLatency.Observe(time.Since(start).Seconds())
		}
		return invokeErr
	})
	if err != nil {
		return fmt.Errorf("step %q: %w", s.name, err)
	}

	s.flow.renderer.ChatMessage("assistant", response)

	appended := append(messagesToState(messages),
		map[string]any{"role": "user", "content": humanPrompt, "length": visibleLength},
		map[string]any{"role": "assistant", "content": response},
	)
	state.Set(s.messagesKey(), appended)

	s.flow.RequestRerun()
	return nil
}

func (s *chatLoopStep) dependencyString(alias string, state *domain.State) (string, error) {
	value, err := s.dependencyValue(alias, state)
	if err != nil {
		return "", err
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("step %q: dependency %q is not text", s.name, alias)
	}
	return text, nil
}

// messagesFromState decodes the transcript, tolerating both in-memory
// and JSON-round-tripped shapes.
func messagesFromState(state *domain.State, key string) []domain.Message {
	list, ok := state.Value(key).([]any)
	if !ok {
		return nil
	}
	messages := make([]domain.Message, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		msg := domain.Message{}
		msg.Role, _ = entry["role"].(string)
		msg.Content, _ = entry["content"].(string)
		switch length := entry["length"].(type) {
		case int:
			msg.Length = length
		case float64:
			msg.Length = int(length)
		}
		messages = append(messages, msg)
	}
	return messages
}

func messagesToState(messages []domain.Message) []any {
	out := make([]any, 0, len(messages))
	for _, msg := range messages {
		entry := map[string]any{"role": msg.Role, "content": msg.Content}
		if msg.Length > 0 {
			entry["length"] = msg.Length
		}
		out = append(out, entry)
	}
	return out
}
