package flow

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/observability"
)

const chatFlow = `
title: T
description: D
steps:
  chooseModel:
    class: ChooseLLMFlavour
  sys:
    class: FormatPromptStep
    template: "You are a helpful editor"
  human:
    class: FormatPromptStep
    template: "Draft something"
  chat:
    class: ChatLoopStep
    depends_on:
      initial_system_prompt: sys
      initial_human_prompt: human
      chat_model_choice: chooseModel
`

func TestChatLoop(t *testing.T) {
	model := &scriptModel{response: "Here is a draft."}
	catalog := &scriptCatalog{names: []string{"standard"}, model: model}

	cfg, err := parseFlowConfig(chatFlow)
	require.NoError(t, err)
	renderer := newScriptRenderer()
	renderer.click("vdata_chat_generate_btn")
	renderer.chat = []string{"Make it shorter"}

	f := New(cfg, renderer, WithModels(catalog))
	require.NoError(t, f.LoadSteps())

	state := domain.NewState()
	require.NoError(t, f.Run(context.Background(), state))

	assert.Equal(t, 2, model.invoked, "initial prompt plus one user turn")
	assert.Equal(t, "You are a helpful editor", model.lastSystem)
	assert.Equal(t, "Make it shorter", model.lastHuman)

	messages := messagesFromState(state, "pdata_chat_messages")
	require.Len(t, messages, 4)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "Draft something", messages[0].Content)
	assert.Equal(t, "assistant", messages[3].Role)

	assert.Contains(t, renderer.lines, "assistant: Here is a draft.")
	assert.Contains(t, renderer.lines, "user: Make it shorter")
}

func TestChatLoopLengthTagTrimsContext(t *testing.T) {
	msg := domain.Message{Role: "user", Content: "tweak it\n\nContent from somewhere", Length: 8}
	assert.Equal(t, "tweak it", msg.VisibleContent())
}

func TestContextEnricher(t *testing.T) {
	extractor := newScriptExtractor()
	extractor.texts["fromUrl|https://example.com/doc"] = "doc text"
	extractor.texts["fromJiraIssues|PROJ-42"] = "issue text"

	enricher := NewContextEnricher(extractor, "https://jira.example.com", []string{"PROJ"})

	enriched, err := enricher.Enrich(context.Background(), "See https://example.com/doc and PROJ-42 please")
	require.NoError(t, err)
	assert.Contains(t, enriched, "Content from https://example.com/doc:\ndoc text")
	assert.Contains(t, enriched, "issue text")
	assert.Contains(t, enriched, "See https://example.com/doc and PROJ-42 please")
}

func TestContextEnricherFoldsBrowseURLs(t *testing.T) {
	extractor := newScriptExtractor()
	extractor.texts["fromJiraIssues|PROJ-7"] = "issue seven"

	enricher := NewContextEnricher(extractor, "https://jira.example.com", []string{"PROJ"})

	enriched, err := enricher.Enrich(context.Background(), "check https://jira.example.com/browse/PROJ-7")
	require.NoError(t, err)
	assert.Contains(t, enriched, "issue seven")
}

func TestChatLoopManyTurns(t *testing.T) {
	model := &scriptModel{response: "ok"}
	catalog := &scriptCatalog{names: []string{"standard"}, model: model}

	cfg, err := parseFlowConfig(chatFlow)
	require.NoError(t, err)
	renderer := newScriptRenderer()
	renderer.click("vdata_chat_generate_btn")
	for i := 0; i < 10; i++ {
		renderer.chat = append(renderer.chat, fmt.Sprintf("turn %d", i))
	}

	f := New(cfg, renderer, WithModels(catalog))
	require.NoError(t, f.LoadSteps())

	state := domain.NewState()
	require.NoError(t, f.Run(context.Background(), state), "a long chat session is progress, not oscillation")
	assert.Equal(t, 11, model.invoked, "initial prompt plus ten user turns")
}

func TestChatLoopObservesModelLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	model := &scriptModel{response: "ok"}
	catalog := &scriptCatalog{names: []string{"standard"}, model: model}

	cfg, err := parseFlowConfig(chatFlow)
	require.NoError(t, err)
	renderer := newScriptRenderer()
	renderer.click("vdata_chat_generate_btn")
	renderer.chat = []string{"again"}

	f := New(cfg, renderer, WithModels(catalog), WithMetrics(metrics))
	require.NoError(t, f.LoadSteps())
	require.NoError(t, f.Run(context.Background(), domain.NewState()))

	families, err := reg.Gather()
	require.NoError(t, err)
	var samples uint64
	for _, family := range families {
		if family.GetName() == "flowdeck_model_invoke_seconds" {
			for _, metric := range family.GetMetric() {
				samples += metric.GetHistogram().GetSampleCount()
			}
		}
	}
	assert.Equal(t, uint64(2), samples, "every model invocation is timed")
}
