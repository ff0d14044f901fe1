package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowdeck/pkg/domain"
)

func TestCatalogDefaultChoices(t *testing.T) {
	catalog := NewCatalog(Config{ModelID: "test-model"})
	choices := catalog.Choices()
	require.Len(t, choices, 4)
	assert.Equal(t, "Standard (Default)", choices[0].Name)
	for _, choice := range choices {
		assert.Equal(t, "test-model", choice.ModelID)
	}
}

func TestCatalogConfiguredChoices(t *testing.T) {
	catalog := NewCatalog(Config{Choices: []domain.ModelChoice{
		{Name: "fast", ModelID: "m1"},
		{Name: "smart", ModelID: "m2"},
	}})
	choices := catalog.Choices()
	require.Len(t, choices, 2)
	assert.Equal(t, "fast", choices[0].Name)

	_, err := catalog.Model("smart")
	require.NoError(t, err)
	_, err = catalog.Model("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid model choice "missing"`)
}

func TestInvokeWithHistorySendsTranscript(t *testing.T) {
	var got completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": "done"}}},
		})
	}))
	defer server.Close()

	catalog := NewCatalog(Config{BaseURL: server.URL, APIKey: "secret", ModelID: "test-model"})
	model, err := catalog.Model("Accurate")
	require.NoError(t, err)

	history := []domain.Message{
		{Role: "user", Content: "draft it"},
		{Role: "assistant", Content: "a draft"},
	}
	response, err := model.InvokeWithHistory(context.Background(), "be terse", "shorter", history)
	require.NoError(t, err)
	assert.Equal(t, "done", response)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, wireMessage{Role: "system", Content: "be terse"}, got.Messages[0])
	assert.Equal(t, wireMessage{Role: "assistant", Content: "a draft"}, got.Messages[2])
	assert.Equal(t, wireMessage{Role: "user", Content: "shorter"}, got.Messages[3])
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.1, *got.Temperature, 0.001)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 10000, *got.MaxTokens)
}

func TestInvokeOmitsSystemMessage(t *testing.T) {
	var got completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": "hi"}}},
		})
	}))
	defer server.Close()

	catalog := NewCatalog(Config{BaseURL: server.URL, ModelID: "test-model"})
	model, err := catalog.Model("Standard (Default)")
	require.NoError(t, err)

	response, err := model.Invoke(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", response)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestInvokeSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited"},
		})
	}))
	defer server.Close()

	catalog := NewCatalog(Config{BaseURL: server.URL, ModelID: "test-model"})
	model, err := catalog.Model("Creative")
	require.NoError(t, err)

	_, err = model.Invoke(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
