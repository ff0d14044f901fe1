// Package llm provides the chat model catalog and an OpenAI-compatible
// HTTP client behind ports.ChatModel.
package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/ports"
)

// Config holds the connection settings for a chat completion endpoint.
type Config struct {
	BaseURL string // e.g. https://api.openai.com or a local gateway
	APIKey  string
	ModelID string // provider model id used by the built-in choices

	// Choices overrides the built-in catalog when non-empty.
	Choices []domain.ModelChoice
}

// Catalog is the named model configurations a flow can choose from.
type Catalog struct {
	cfg     Config
	choices []domain.ModelChoice
	http    *http.Client
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Catalog) { c.http = hc }
}

// NewCatalog creates a Catalog. Without explicit choices it exposes
// temperature and output-length variants of the configured model.
func NewCatalog(cfg Config, opts ...Option) *Catalog {
	c := &Catalog{
		cfg:     cfg,
		choices: cfg.Choices,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
	if len(c.choices) == 0 {
		c.choices = defaultChoices(cfg.ModelID)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Choices lists the catalog entries in declaration order.
func (c *Catalog) Choices() []domain.ModelChoice {
	out := make([]domain.ModelChoice, len(c.choices))
	copy(out, c.choices)
	return out
}

// Model builds the chat client for a named choice.
func (c *Catalog) Model(choice string) (ports.ChatModel, error) {
	for _, entry := range c.choices {
		if entry.Name == choice {
			return newChatModel(c.cfg, entry, c.http), nil
		}
	}
	return nil, fmt.Errorf("invalid model choice %q", choice)
}

func defaultChoices(modelID string) []domain.ModelChoice {
	return []domain.ModelChoice{
		{
			Name:        "Standard (Default)",
			Description: "Standard settings",
			ModelID:     modelID,
			Params:      map[string]any{"max_tokens": 10000, "temperature": 0.7},
		},
		{
			Name:        "Creative",
			Description: "High temperature, prone to hallucinations",
			ModelID:     modelID,
			Params:      map[string]any{"max_tokens": 10000, "temperature": 1.0},
		},
		{
			Name:        "Accurate",
			Description: "Low temperature, not creative",
			ModelID:     modelID,
			Params:      map[string]any{"max_tokens": 10000, "temperature": 0.1},
		},
		{
			Name:        "Ten Tokens Max",
			Description: "Very short responses, for testing",
			ModelID:     modelID,
			Params:      map[string]any{"max_tokens": 10, "temperature": 0.7},
		},
	}
}
