package interfaces

import (
	"context"

	"github.com/ternarybob/tickerbrief/internal/models"
)

// ModelProvider is the generative-model collaborator.
// Generate returns the raw response text, possibly wrapped in fences.
type ModelProvider interface {
	// Name identifies the provider in logs ("gemini", "claude")
	Name() string

	// ListModels returns the provider catalog
	ListModels(ctx context.Context) ([]models.ModelInfo, error)

	// Generate submits one prompt to one model
	Generate(ctx context.Context, modelID string, prompt string) (string, error)

	// Close releases any client resources
	Close() error
}
