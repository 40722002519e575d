package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdocs/config"
	"askdocs/internal/domain"
	"askdocs/internal/errors"
	"askdocs/internal/port"
)

type backend struct {
	name string
	open func(t *testing.T, dir string) port.VectorStore
}

func backends() []backend {
	openWith := func(backendName, index string) func(t *testing.T, dir string) port.VectorStore {
		return func(t *testing.T, dir string) port.VectorStore {
			t.Helper()
			s, err := Open(config.StoreConfig{Backend: backendName, Dir: dir, Metric: "cosine", Index: index})
			require.NoError(t, err)
			return s
		}
	}
	return []backend{
		{"bolt-flat", openWith("bolt", "flat")},
		{"bolt-hnsw", openWith("bolt", "hnsw")},
		{"sqlite-flat", openWith("sqlite", "flat")},
		{"sqlite-hnsw", openWith("sqlite", "hnsw")},
		{"memory-flat", openWith("memory", "flat")},
	}
}

func record(source string, index int, text string, vec ...float32) port.VectorRecord {
	src := domain.Source{ID: source, Kind: domain.KindText}
	return port.VectorRecord{
		Chunk: domain.Chunk{
			SourceID: source,
			Index:    index,
			Text:     text,
			Metadata: src.Metadata(),
		},
		Vector: vec,
	}
}

func seed(t *testing.T, s port.VectorStore) []string {
	t.Helper()
	ids, err := s.Add(context.Background(), []port.VectorRecord{
		record("a.txt", 0, "sky", 1, 0, 0),
		record("a.txt", 1, "grass", 0, 1, 0),
		record("b.txt", 0, "sea", 0.9, 0.1, 0),
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	return ids
}

func TestStoreAddAndQuery(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())
			defer s.Close()
			ctx := context.Background()

			ids := seed(t, s)
			assert.NotEqual(t, ids[0], ids[1])

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			assert.Equal(t, 3, s.Dimension())

			matches, err := s.Query(ctx, []float32{1, 0, 0}, 2)
			require.NoError(t, err)
			require.Len(t, matches, 2)

			assert.Equal(t, "sky", matches[0].Chunk.Text)
			assert.InDelta(t, 0, matches[0].Distance, 1e-6)
			assert.Equal(t, "a.txt", matches[0].Chunk.SourceID)
			assert.Equal(t, "txt", matches[0].Chunk.Metadata["type"])
			assert.Equal(t, ids[0], matches[0].Chunk.ID)
			assert.Equal(t, "sea", matches[1].Chunk.Text)
			assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)
		})
	}
}

func TestStoreQueryEdgeCases(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())
			defer s.Close()
			ctx := context.Background()

			matches, err := s.Query(ctx, []float32{1, 0, 0}, 5)
			require.NoError(t, err)
			assert.Empty(t, matches, "empty store returns no matches")

			seed(t, s)

			matches, err = s.Query(ctx, []float32{1, 0, 0}, 50)
			require.NoError(t, err)
			assert.Len(t, matches, 3, "k larger than the store returns everything")

			_, err = s.Query(ctx, []float32{1, 0}, 1)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
		})
	}
}

func TestStoreDimensionMismatchAddsNothing(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())
			defer s.Close()
			ctx := context.Background()

			seed(t, s)

			_, err := s.Add(ctx, []port.VectorRecord{
				record("c.txt", 0, "ok", 0, 0, 1),
				record("c.txt", 1, "bad", 0, 1),
			})
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
		})
	}
}

func TestStoreDeleteBySourceAndSources(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())
			defer s.Close()
			ctx := context.Background()

			seed(t, s)

			sources, err := s.Sources(ctx)
			require.NoError(t, err)
			assert.Equal(t, []domain.SourceSummary{
				{ID: "a.txt", Kind: "txt", Chunks: 2},
				{ID: "b.txt", Kind: "txt", Chunks: 1},
			}, sources)

			removed, err := s.DeleteBySource(ctx, "a.txt")
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			removed, err = s.DeleteBySource(ctx, "missing.txt")
			require.NoError(t, err)
			assert.Zero(t, removed)

			matches, err := s.Query(ctx, []float32{1, 0, 0}, 5)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, "b.txt", matches[0].Chunk.SourceID)
		})
	}
}

func TestStoreReplaceSource(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())
			defer s.Close()
			ctx := context.Background()

			seed(t, s)

			removed, ids, err := s.ReplaceSource(ctx, "a.txt", []port.VectorRecord{
				record("a.txt", 0, "cloud", 0, 0, 1),
			})
			require.NoError(t, err)
			assert.Equal(t, 2, removed)
			require.Len(t, ids, 1)

			sources, err := s.Sources(ctx)
			require.NoError(t, err)
			assert.Equal(t, []domain.SourceSummary{
				{ID: "a.txt", Kind: "txt", Chunks: 1},
				{ID: "b.txt", Kind: "txt", Chunks: 1},
			}, sources)

			matches, err := s.Query(ctx, []float32{0, 0, 1}, 1)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, "cloud", matches[0].Chunk.Text)
			assert.Equal(t, ids[0], matches[0].Chunk.ID)

			_, _, err = s.ReplaceSource(ctx, "a.txt", []port.VectorRecord{record("a.txt", 0, "flat", 1, 0)})
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n, "a rejected replacement keeps the old chunks")

			removed, ids, err = s.ReplaceSource(ctx, "b.txt", nil)
			require.NoError(t, err)
			assert.Equal(t, 1, removed)
			assert.Empty(t, ids)
		})
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			if strings.HasPrefix(b.name, "memory") {
				t.Skip("memory backend keeps nothing across reopen")
			}
			dir := t.TempDir()
			ctx := context.Background()

			s := b.open(t, dir)
			seed(t, s)
			require.NoError(t, s.PutMeta("note", "hello"))
			require.NoError(t, s.Close())

			s = b.open(t, dir)
			defer s.Close()

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			assert.Equal(t, 3, s.Dimension())

			v, err := s.GetMeta("note")
			require.NoError(t, err)
			assert.Equal(t, "hello", v)

			matches, err := s.Query(ctx, []float32{0, 1, 0}, 1)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, "grass", matches[0].Chunk.Text)
		})
	}
}

func TestStoreClear(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, t.TempDir())
			defer s.Close()
			ctx := context.Background()

			seed(t, s)
			require.NoError(t, s.PutMeta(keySchemaVersion, "1"))
			require.NoError(t, s.Clear(ctx))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Zero(t, s.Dimension())

			v, err := s.GetMeta(keySchemaVersion)
			require.NoError(t, err)
			assert.Equal(t, "1", v, "schema info survives a clear")

			_, err = s.Add(ctx, []port.VectorRecord{record("c.txt", 0, "new", 1, 1)})
			require.NoError(t, err, "a cleared store accepts a new dimension")
			assert.Equal(t, 2, s.Dimension())
		})
	}
}

func TestHNSWIndexManyDeletes(t *testing.T) {
	h := newHNSWIndex(Cosine)
	for i := 0; i < 50; i++ {
		h.add(fmt.Sprintf("id-%02d", i), []float32{float32(i + 1), 1, 0})
	}
	for i := 0; i < 45; i++ {
		h.remove(fmt.Sprintf("id-%02d", i))
	}
	assert.Equal(t, 5, h.len())

	results := h.search([]float32{50, 1, 0}, 10)
	require.Len(t, results, 5)
	assert.Equal(t, "id-49", results[0].id)
}

func TestMetricSimilarity(t *testing.T) {
	assert.InDelta(t, 0.8, Cosine.Similarity(0.2), 1e-9)
	assert.InDelta(t, 0.5, L2.Similarity(1), 1e-9)
	assert.InDelta(t, 0, Cosine.Distance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 5, L2.Distance([]float32{0, 0}, []float32{3, 4}), 1e-9)
}

func TestMigrations(t *testing.T) {
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "vectors.db"), Options{})
	require.NoError(t, err)
	defer s.Close()

	cfg := config.DefaultConfig()

	result, err := CheckMigration(s, cfg)
	require.NoError(t, err)
	assert.True(t, result.NeedsMigration)
	assert.False(t, result.NeedsRebuild)

	require.NoError(t, Migrate(s, cfg))
	result, err = CheckMigration(s, cfg)
	require.NoError(t, err)
	assert.False(t, result.NeedsMigration)
	assert.False(t, result.NeedsRebuild)

	cfg.Embedding.Model = "text-embedding-3-small"
	result, err = CheckMigration(s, cfg)
	require.NoError(t, err)
	assert.True(t, result.NeedsRebuild)

	require.NoError(t, SetSchemaInfo(s, &SchemaInfo{Version: CurrentSchemaVersion + 1}))
	result, err = CheckMigration(s, cfg)
	require.NoError(t, err)
	assert.True(t, result.NeedsRebuild)
}

func TestWriteLock(t *testing.T) {
	dir := t.TempDir()

	first := NewWriteLock(dir)
	require.NoError(t, first.TryLock())
	assert.Equal(t, filepath.Join(dir, ".write.lock"), first.Path())

	second := NewWriteLock(dir)
	err := second.TryLock()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStoreLocked, errors.GetCode(err))

	require.NoError(t, first.Unlock())
	require.NoError(t, second.TryLock())
	require.NoError(t, second.Unlock())
	require.NoError(t, second.Unlock())
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(config.StoreConfig{Backend: "chroma", Dir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}
