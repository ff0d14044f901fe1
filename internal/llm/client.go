package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aretw0/flowdeck/pkg/domain"
)

const completionsPath = "/v1/chat/completions"

// chatModel invokes one configured model over the chat completions API.
type chatModel struct {
	cfg    Config
	choice domain.ModelChoice
	http   *http.Client
}

func newChatModel(cfg Config, choice domain.ModelChoice, hc *http.Client) *chatModel {
	return &chatModel{cfg: cfg, choice: choice, http: hc}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (m *chatModel) Invoke(ctx context.Context, prompt string) (string, error) {
	return m.InvokeWithHistory(ctx, "", prompt, nil)
}

func (m *chatModel) InvokeWithHistory(ctx context.Context, system string, human string, history []domain.Message) (string, error) {
	messages := make([]wireMessage, 0, len(history)+2)
	if system != "" {
		messages = append(messages, wireMessage{Role: "system", Content: system})
	}
	for _, msg := range history {
		messages = append(messages, wireMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, wireMessage{Role: "user", Content: human})

	request := completionRequest{
		Model:    m.choice.ModelID,
		Messages: messages,
	}
	if t, ok := paramFloat(m.choice.Params, "temperature"); ok {
		request.Temperature = &t
	}
	if n, ok := paramInt(m.choice.Params, "max_tokens"); ok {
		request.MaxTokens = &n
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(m.cfg.BaseURL, "/") + completionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoking %s: %w", m.choice.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("invoking %s: %w", m.choice.Name, err)
	}
	var decoded completionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("invoking %s: %w", m.choice.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return "", fmt.Errorf("invoking %s: %s", m.choice.Name, decoded.Error.Message)
		}
		return "", fmt.Errorf("invoking %s: %s", m.choice.Name, resp.Status)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("invoking %s: empty response", m.choice.Name)
	}
	return decoded.Choices[0].Message.Content, nil
}

func paramFloat(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func paramInt(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
