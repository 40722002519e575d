package port

import (
	"context"

	"askdocs/internal/domain"
)

// Generator produces an answer from a prompt.
type Generator interface {
	// Generate returns the model's text for the prompt.
	Generate(ctx context.Context, prompt domain.Prompt) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
