package ports

import (
	"context"

	"github.com/aretw0/flowdeck/pkg/domain"
)

// ChatModel is a configured chat model ready to be invoked.
type ChatModel interface {
	// Invoke sends a single prompt and returns the model's text response.
	Invoke(ctx context.Context, prompt string) (string, error)

	// InvokeWithHistory sends a prompt with a system message and prior
	// transcript for context.
	InvokeWithHistory(ctx context.Context, system string, human string, history []domain.Message) (string, error)
}

// ModelCatalog exposes the named model configurations a flow may choose
// from and constructs a ChatModel for a choice.
type ModelCatalog interface {
	Choices() []domain.ModelChoice
	Model(choice string) (ChatModel, error)
}
