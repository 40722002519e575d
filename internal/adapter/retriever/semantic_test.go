package retriever

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdocs/internal/adapter/store"
	"askdocs/internal/domain"
	"askdocs/internal/port"
)

// axisEmbedder maps known words to fixed vectors.
type axisEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vectors[t]
	}
	return out, nil
}

func (e *axisEmbedder) Dimension() int    { return 2 }
func (e *axisEmbedder) ModelName() string { return "axis" }

func newStore(t *testing.T, metric string) *store.BoltStore {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "vectors.db"), store.Options{Metric: metric})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	src := domain.Source{ID: "notes.txt", Kind: domain.KindText}
	_, err = s.Add(context.Background(), []port.VectorRecord{
		{Chunk: domain.Chunk{SourceID: src.ID, Index: 0, Text: "east", Metadata: src.Metadata()}, Vector: []float32{1, 0}},
		{Chunk: domain.Chunk{SourceID: src.ID, Index: 1, Text: "north", Metadata: src.Metadata()}, Vector: []float32{0, 1}},
	})
	require.NoError(t, err)
	return s
}

func TestSemanticRetrieverCosine(t *testing.T) {
	emb := &axisEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	r := NewSemanticRetriever(newStore(t, "cosine"), emb, store.Cosine)

	items, err := r.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "east", items[0].Text)
	assert.Equal(t, "notes.txt", items[0].Source)
	assert.Equal(t, "txt", items[0].Metadata["type"])
	assert.InDelta(t, 1.0, items[0].Similarity, 1e-6)
	assert.InDelta(t, 0.0, items[1].Similarity, 1e-6)
	assert.NotEmpty(t, items[0].ChunkID)
}

func TestSemanticRetrieverL2(t *testing.T) {
	emb := &axisEmbedder{vectors: map[string][]float32{"q": {0, 2}}}
	r := NewSemanticRetriever(newStore(t, "l2"), emb, store.L2)

	items, err := r.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "north", items[0].Text)
	assert.InDelta(t, 1.0, items[0].Distance, 1e-6)
	assert.InDelta(t, 0.5, items[0].Similarity, 1e-6)
}

func TestSemanticRetrieverEmbedError(t *testing.T) {
	emb := &axisEmbedder{err: errors.New("quota exceeded")}
	r := NewSemanticRetriever(newStore(t, "cosine"), emb, store.Cosine)

	_, err := r.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
