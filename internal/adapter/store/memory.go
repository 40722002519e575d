package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"askdocs/internal/domain"
	"askdocs/internal/errors"
	"askdocs/internal/port"
)

// MemoryStore is a vector store that lives only as long as the process.
// Selected with backend "memory"; nothing is written to disk.
type MemoryStore struct {
	mu           sync.RWMutex
	chunks       map[string]domain.Chunk
	sourceChunks map[string][]string
	meta         map[string]string
	index        vectorIndex
	dimension    int
}

func NewMemoryStore(opts Options) (*MemoryStore, error) {
	metric, err := parseMetric(opts.Metric)
	if err != nil {
		return nil, errors.ConfigError(err.Error(), nil)
	}
	index, err := newIndex(opts.Index, metric)
	if err != nil {
		return nil, errors.ConfigError(err.Error(), nil)
	}
	return &MemoryStore{
		chunks:       make(map[string]domain.Chunk),
		sourceChunks: make(map[string][]string),
		meta:         make(map[string]string),
		index:        index,
	}, nil
}

func (s *MemoryStore) Add(ctx context.Context, records []port.VectorRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim, err := checkDimensions(s.dimension, records)
	if err != nil {
		return nil, err
	}
	return s.put(records, dim), nil
}

func (s *MemoryStore) ReplaceSource(ctx context.Context, source string, records []port.VectorRecord) (int, []string, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if len(records) > 0 {
		var err error
		if dim, err = checkDimensions(s.dimension, records); err != nil {
			return 0, nil, err
		}
	}
	removed := s.drop(source)
	return removed, s.put(records, dim), nil
}

func (s *MemoryStore) put(records []port.VectorRecord, dim int) []string {
	if len(records) > 0 {
		s.dimension = dim
	}
	ids := newIDs(len(records))
	for i, r := range records {
		c := r.Chunk
		c.ID = ids[i]
		s.chunks[c.ID] = c
		s.sourceChunks[c.SourceID] = append(s.sourceChunks[c.SourceID], c.ID)
		s.index.add(c.ID, r.Vector)
	}
	return ids
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, k int) ([]port.VectorMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k > MaxQueryK {
		k = MaxQueryK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index.len() == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query dimension mismatch: expected %d, got %d", s.dimension, len(vector)), nil)
	}

	scores := s.index.search(vector, k)
	matches := make([]port.VectorMatch, 0, len(scores))
	for _, sc := range scores {
		if c, ok := s.chunks[sc.id]; ok {
			matches = append(matches, port.VectorMatch{Chunk: c, Distance: sc.distance})
		}
	}
	return matches, nil
}

func (s *MemoryStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drop(source), nil
}

func (s *MemoryStore) drop(source string) int {
	ids := s.sourceChunks[source]
	for _, id := range ids {
		delete(s.chunks, id)
		s.index.remove(id)
	}
	delete(s.sourceChunks, source)
	return len(ids)
}

func (s *MemoryStore) Sources(ctx context.Context) ([]domain.SourceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SourceSummary, 0, len(s.sourceChunks))
	for source, ids := range s.sourceChunks {
		summary := domain.SourceSummary{ID: source, Chunks: len(ids)}
		if len(ids) > 0 {
			summary.Kind = s.chunks[ids[0]].Metadata["type"]
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *MemoryStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Clear removes every chunk and forgets the dimension. Meta values survive.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[string]domain.Chunk)
	s.sourceChunks = make(map[string][]string)
	s.index.reset()
	s.dimension = 0
	return nil
}

func (s *MemoryStore) GetMeta(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta[key], nil
}

func (s *MemoryStore) PutMeta(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
