package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowdeck"
	"github.com/aretw0/flowdeck/internal/config"
	"github.com/aretw0/flowdeck/pkg/adapters/memory"
	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/ports"
)

const helloTemplate = `
title: Hello Flow
description: A small demo flow
steps:
  chooseModel:
    class: ChooseLLMFlavour
  inputs:
    class: DefineInputDataStep
    data_defs:
      notes:
        type: free_form_text
        description: Notes
  retrieve:
    class: RetrieveDataStep
    depends_on:
      data_sources: inputs
  format:
    class: FormatPromptStep
    template: "Summarize {notes}"
    depends_on:
      notes: retrieve.notes
`

const uploadTemplate = `
title: Upload Flow
description: Captures uploaded documents
steps:
  inputs:
    class: DefineInputDataStep
    data_defs:
      doc:
        type: uploaded_files
        description: Documents
`

type fakeExtractor struct{}

func (fakeExtractor) Extract(_ context.Context, method string, src any) (string, error) {
	if method == ports.ExtractFromMultilineText {
		return src.(string), nil
	}
	return "", fmt.Errorf("unsupported method %q", method)
}

type fakeModel struct{}

func (fakeModel) Invoke(context.Context, string) (string, error) { return "ok", nil }
func (fakeModel) InvokeWithHistory(context.Context, string, string, []domain.Message) (string, error) {
	return "ok", nil
}

type fakeCatalog struct{}

func (fakeCatalog) Choices() []domain.ModelChoice {
	return []domain.ModelChoice{{Name: "standard"}}
}
func (fakeCatalog) Model(string) (ports.ChatModel, error) { return fakeModel{}, nil }

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	storage := memory.NewStoreWithFiles(map[string]string{
		"docs/_meta.yaml":  "title: Docs\ndescription: Document flows\n",
		"docs/hello.yaml":  helloTemplate,
		"docs/upload.yaml": uploadTemplate,
	})
	cfg := config.DefaultConfig()
	app, err := flowdeck.New(&cfg,
		flowdeck.WithStorage(storage),
		flowdeck.WithExtractor(fakeExtractor{}),
		flowdeck.WithModelCatalog(fakeCatalog{}),
	)
	require.NoError(t, err)
	return NewHandler(app)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestListTemplates(t *testing.T) {
	handler := newTestHandler(t)
	rec, body := doJSON(t, handler, http.MethodGet, "/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	group, ok := body["docs"].(map[string]any)
	require.True(t, ok, "docs group present")
	assert.Equal(t, "Docs", group["title"])
	templates, ok := group["templates"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, templates, "hello")
}

func TestSessionLifecycle(t *testing.T) {
	handler := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Session_1", body["name"])

	rec, body = doJSON(t, handler, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["sessions"], "Session_1")

	rec, _ = doJSON(t, handler, http.MethodPost, "/sessions/Session_1/rename",
		map[string]string{"new_name": "draft"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = doJSON(t, handler, http.MethodPost, "/sessions/draft/duplicate", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "draft_1", body["name"])

	rec, _ = doJSON(t, handler, http.MethodDelete, "/sessions/draft", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodDelete, "/sessions/draft", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenameMissingSessionIs404(t *testing.T) {
	handler := newTestHandler(t)
	rec, _ := doJSON(t, handler, http.MethodPost, "/sessions/nope/rename",
		map[string]string{"new_name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunPassDrivesFlowToCompletion(t *testing.T) {
	handler := newTestHandler(t)

	// First pass without inputs: the input step is active, the rest waits.
	rec, body := doJSON(t, handler, http.MethodPost, "/sessions/default/pass",
		map[string]any{"template": "docs/hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello Flow", body["title"])

	steps := body["steps"].([]any)
	require.Len(t, steps, 4)
	inputStep := steps[1].(map[string]any)
	assert.Equal(t, "inputs", inputStep["name"])
	assert.Equal(t, "ACTIVE", inputStep["status"])
	widgets := inputStep["widgets"].([]any)
	var textAreaKey string
	for _, item := range widgets {
		widget := item.(map[string]any)
		if widget["type"] == "text_area" {
			textAreaKey = widget["key"].(string)
		}
	}
	assert.Equal(t, "pdata_inputs_notes_free_form_text_src", textAreaKey)

	// Second pass: submit the text and trigger retrieval.
	rec, body = doJSON(t, handler, http.MethodPost, "/sessions/default/pass", map[string]any{
		"template": "docs/hello",
		"inputs":   map[string]string{textAreaKey: "release notes text"},
		"clicks":   []string{"vdata_retrieve_retrieve_btn"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	steps = body["steps"].([]any)
	for _, item := range steps {
		assert.Equal(t, "DONE", item.(map[string]any)["status"])
	}

	// Third pass restores the saved session: still settled without inputs.
	rec, body = doJSON(t, handler, http.MethodPost, "/sessions/default/pass",
		map[string]any{"template": "docs/hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	steps = body["steps"].([]any)
	assert.Equal(t, "DONE", steps[3].(map[string]any)["status"])
}

func TestRunPassDeliversUploads(t *testing.T) {
	handler := newTestHandler(t)

	// First pass renders the upload widget; its key must stay stable
	// across requests so a later pass can address it.
	rec, body := doJSON(t, handler, http.MethodPost, "/sessions/up/pass",
		map[string]any{"template": "docs/upload"})
	require.Equal(t, http.StatusOK, rec.Code)

	uploadKey := findWidgetKey(t, body, "inputs", "file_upload")
	require.NotEmpty(t, uploadKey)

	rec, body = doJSON(t, handler, http.MethodPost, "/sessions/up/pass",
		map[string]any{"template": "docs/upload"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uploadKey, findWidgetKey(t, body, "inputs", "file_upload"),
		"widget key does not change between requests")

	rec, body = doJSON(t, handler, http.MethodPost, "/sessions/up/pass", map[string]any{
		"template": "docs/upload",
		"files": map[string][]FileUploadRequest{
			uploadKey: {{Name: "notes.txt", ContentType: "text/plain", Content: []byte("hello")}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	steps := body["steps"].([]any)
	inputStep := steps[0].(map[string]any)
	assert.Equal(t, "DONE", inputStep["status"], "posted files fill the slot")
}

// findWidgetKey returns the key of the first widget of the given type in
// the named step of a pass response.
func findWidgetKey(t *testing.T, body map[string]any, stepName, widgetType string) string {
	t.Helper()
	for _, item := range body["steps"].([]any) {
		step := item.(map[string]any)
		if step["name"] != stepName {
			continue
		}
		widgets, _ := step["widgets"].([]any)
		for _, w := range widgets {
			widget := w.(map[string]any)
			if widget["type"] == widgetType {
				return widget["key"].(string)
			}
		}
	}
	return ""
}

func TestRunPassRejectsUnknownTemplate(t *testing.T) {
	handler := newTestHandler(t)
	rec, _ := doJSON(t, handler, http.MethodPost, "/sessions/default/pass",
		map[string]any{"template": "docs/missing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	doJSON(t, handler, http.MethodPost, "/sessions/default/pass",
		map[string]any{"template": "docs/hello"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flowdeck_render_passes_total")
}