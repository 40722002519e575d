package port

import (
	"context"

	"askdocs/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore persists chunks with their embeddings and searches them.
type VectorStore interface {
	// Add stores the records in one transaction and returns their assigned IDs.
	Add(ctx context.Context, records []VectorRecord) ([]string, error)

	// Query returns the k nearest stored chunks, closest first.
	Query(ctx context.Context, vector []float32, k int) ([]VectorMatch, error)

	// ReplaceSource atomically swaps the chunks stored for source with records.
	// It returns how many chunks were removed and the IDs of the new ones.
	ReplaceSource(ctx context.Context, source string, records []VectorRecord) (int, []string, error)

	// DeleteBySource removes every chunk whose source equals source.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Sources lists stored sources with their chunk counts.
	Sources(ctx context.Context) ([]domain.SourceSummary, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Dimension returns the dimension of stored vectors, or 0 when empty.
	Dimension() int

	// Clear removes all chunks.
	Clear(ctx context.Context) error

	MetaStore

	Close() error
}

// MetaStore holds small key/value records next to the vectors (schema info).
type MetaStore interface {
	GetMeta(key string) (string, error)
	PutMeta(key, value string) error
}

// VectorRecord is a chunk paired with its embedding.
type VectorRecord struct {
	Chunk  domain.Chunk
	Vector []float32
}

// VectorMatch is a stored chunk and its distance to the query vector.
type VectorMatch struct {
	Chunk    domain.Chunk
	Distance float64
}
