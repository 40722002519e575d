package port

import (
	"context"

	"askdocs/internal/domain"
)

// Retriever finds the chunks most similar to a question.
type Retriever interface {
	// Search returns up to k results ordered by decreasing similarity.
	Search(ctx context.Context, query string, k int) ([]domain.QueryResultItem, error)
}
