package retriever

import (
	"context"
	"fmt"

	"askdocs/internal/adapter/store"
	"askdocs/internal/domain"
	"askdocs/internal/port"
)

// SemanticRetriever embeds the query and returns the nearest stored chunks.
type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
	metric      store.Metric
}

func NewSemanticRetriever(vectorStore port.VectorStore, embedder port.Embedder, metric store.Metric) *SemanticRetriever {
	if metric == "" {
		metric = store.Cosine
	}
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
		metric:      metric,
	}
}

// Search returns up to k results, most similar first.
func (r *SemanticRetriever) Search(ctx context.Context, query string, k int) ([]domain.QueryResultItem, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}

	matches, err := r.vectorStore.Query(ctx, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	items := make([]domain.QueryResultItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, domain.QueryResultItem{
			ChunkID:    m.Chunk.ID,
			Source:     m.Chunk.SourceID,
			Index:      m.Chunk.Index,
			Text:       m.Chunk.Text,
			Distance:   m.Distance,
			Similarity: r.metric.Similarity(m.Distance),
			Metadata:   m.Chunk.Metadata,
		})
	}
	return items, nil
}
