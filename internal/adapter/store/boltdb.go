package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"askdocs/internal/domain"
	"askdocs/internal/errors"
	"askdocs/internal/port"
)

var (
	bucketChunks       = []byte("chunks")
	bucketSourceChunks = []byte("source_chunks")
	bucketMeta         = []byte("meta")
)

const keyDimension = "dimension"

// openTimeout bounds the wait for bbolt's file lock.
const openTimeout = 2 * time.Second

// MaxQueryK caps the number of results a single query may ask for.
const MaxQueryK = 100

// BoltStore keeps chunks and their vectors in a bbolt file and searches an
// in-memory index loaded on open.
type BoltStore struct {
	db     *bbolt.DB
	metric Metric

	mu        sync.RWMutex
	index     vectorIndex
	dimension int
}

type storedChunk struct {
	Source   string            `json:"source"`
	Index    int               `json:"index"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Vector   []float32         `json:"vector"`
}

func (c storedChunk) chunk(id string) domain.Chunk {
	return domain.Chunk{
		ID:       id,
		SourceID: c.Source,
		Index:    c.Index,
		Text:     c.Text,
		Metadata: c.Metadata,
	}
}

// Options selects the distance metric and search index of a store.
type Options struct {
	Metric string
	Index  string
}

func NewBoltStore(path string, opts Options) (*BoltStore, error) {
	metric, err := parseMetric(opts.Metric)
	if err != nil {
		return nil, errors.ConfigError(err.Error(), nil)
	}
	index, err := newIndex(opts.Index, metric)
	if err != nil {
		return nil, errors.ConfigError(err.Error(), nil)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err == bbolt.ErrTimeout {
		return nil, errors.New(errors.ErrCodeStoreLocked, "store is in use by another process", err)
	}
	if err != nil {
		return nil, errors.StoreError("failed to open bolt db", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChunks, bucketSourceChunks, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.StoreError("failed to initialize bolt db", err)
	}

	s := &BoltStore{db: db, metric: metric, index: index}
	if err := s.load(); err != nil {
		db.Close()
		return nil, errors.StoreError("failed to load vectors", err)
	}
	return s, nil
}

func (s *BoltStore) load() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get([]byte(keyDimension)); v != nil {
			dim, err := strconv.Atoi(string(v))
			if err != nil {
				return fmt.Errorf("invalid stored dimension %q: %w", v, err)
			}
			s.dimension = dim
		}

		return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			var c storedChunk
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("corrupt chunk %s: %w", k, err)
			}
			s.index.add(string(k), c.Vector)
			return nil
		})
	})
}

// Add stores every record in one transaction. The first stored vector fixes
// the store's dimension.
func (s *BoltStore) Add(ctx context.Context, records []port.VectorRecord) ([]string, error) {
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

	ids := newIDs(len(records))
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return s.putChunks(tx, ids, records, dim)
	})
	if err != nil {
		return nil, errors.StoreError("failed to add chunks", err)
	}

	s.dimension = dim
	for i, r := range records {
		s.index.add(ids[i], r.Vector)
	}
	return ids, nil
}

// ReplaceSource drops the chunks stored for source and adds records in the
// same transaction. On error the previous chunks are untouched.
func (s *BoltStore) ReplaceSource(ctx context.Context, source string, records []port.VectorRecord) (int, []string, error) {
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

	ids := newIDs(len(records))
	var removed []string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		if removed, err = deleteSource(tx, source); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return s.putChunks(tx, ids, records, dim)
	})
	if err != nil {
		return 0, nil, errors.StoreError(fmt.Sprintf("failed to replace chunks of %s", source), err)
	}

	for _, id := range removed {
		s.index.remove(id)
	}
	s.dimension = dim
	for i, r := range records {
		s.index.add(ids[i], r.Vector)
	}
	return len(removed), ids, nil
}

func newIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids
}

func (s *BoltStore) putChunks(tx *bbolt.Tx, ids []string, records []port.VectorRecord, dim int) error {
	chunks := tx.Bucket(bucketChunks)
	sources := tx.Bucket(bucketSourceChunks)

	bySource := make(map[string][]string)
	for i, r := range records {
		data, err := json.Marshal(storedChunk{
			Source:   r.Chunk.SourceID,
			Index:    r.Chunk.Index,
			Text:     r.Chunk.Text,
			Metadata: r.Chunk.Metadata,
			Vector:   r.Vector,
		})
		if err != nil {
			return err
		}
		if err := chunks.Put([]byte(ids[i]), data); err != nil {
			return err
		}
		bySource[r.Chunk.SourceID] = append(bySource[r.Chunk.SourceID], ids[i])
	}

	for source, added := range bySource {
		var existing []string
		if data := sources.Get([]byte(source)); data != nil {
			if err := json.Unmarshal(data, &existing); err != nil {
				return err
			}
		}
		data, err := json.Marshal(append(existing, added...))
		if err != nil {
			return err
		}
		if err := sources.Put([]byte(source), data); err != nil {
			return err
		}
	}

	if s.dimension == 0 {
		return tx.Bucket(bucketMeta).Put([]byte(keyDimension), []byte(strconv.Itoa(dim)))
	}
	return nil
}

// deleteSource removes the chunks of source and returns their IDs.
func deleteSource(tx *bbolt.Tx, source string) ([]string, error) {
	sources := tx.Bucket(bucketSourceChunks)
	data := sources.Get([]byte(source))
	if data == nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	chunks := tx.Bucket(bucketChunks)
	for _, id := range ids {
		if err := chunks.Delete([]byte(id)); err != nil {
			return nil, err
		}
	}
	return ids, sources.Delete([]byte(source))
}

// checkDimensions returns the dimension all records share, which must equal
// current unless current is 0.
func checkDimensions(current int, records []port.VectorRecord) (int, error) {
	dim := current
	if dim == 0 {
		dim = len(records[0].Vector)
	}
	if dim == 0 {
		return 0, errors.ValidationError("empty embedding vector", nil)
	}
	for _, r := range records {
		if len(r.Vector) != dim {
			return 0, errors.New(errors.ErrCodeDimensionMismatch,
				fmt.Sprintf("vector dimension mismatch: expected %d, got %d", dim, len(r.Vector)), nil)
		}
	}
	return dim, nil
}

func (s *BoltStore) Query(ctx context.Context, vector []float32, k int) ([]port.VectorMatch, error) {
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
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		for _, sc := range scores {
			data := b.Get([]byte(sc.id))
			if data == nil {
				continue
			}
			var c storedChunk
			if err := json.Unmarshal(data, &c); err != nil {
				return err
			}
			matches = append(matches, port.VectorMatch{Chunk: c.chunk(sc.id), Distance: sc.distance})
		}
		return nil
	})
	if err != nil {
		return nil, errors.StoreError("failed to read chunks", err)
	}
	return matches, nil
}

func (s *BoltStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		ids, err = deleteSource(tx, source)
		return err
	})
	if err != nil {
		return 0, errors.StoreError(fmt.Sprintf("failed to delete chunks of %s", source), err)
	}

	for _, id := range ids {
		s.index.remove(id)
	}
	return len(ids), nil
}

func (s *BoltStore) Sources(ctx context.Context) ([]domain.SourceSummary, error) {
	var out []domain.SourceSummary
	err := s.db.View(func(tx *bbolt.Tx) error {
		chunks := tx.Bucket(bucketChunks)
		return tx.Bucket(bucketSourceChunks).ForEach(func(k, v []byte) error {
			var ids []string
			if err := json.Unmarshal(v, &ids); err != nil {
				return err
			}
			summary := domain.SourceSummary{ID: string(k), Chunks: len(ids)}
			if len(ids) > 0 {
				var c storedChunk
				if data := chunks.Get([]byte(ids[0])); data != nil && json.Unmarshal(data, &c) == nil {
					summary.Kind = c.Metadata["type"]
				}
			}
			out = append(out, summary)
			return nil
		})
	})
	if err != nil {
		return nil, errors.StoreError("failed to list sources", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *BoltStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.len(), nil
}

func (s *BoltStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Clear removes every chunk and forgets the dimension. Schema info survives.
func (s *BoltStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketChunks, bucketSourceChunks} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketMeta).Delete([]byte(keyDimension))
	})
	if err != nil {
		return errors.StoreError("failed to clear store", err)
	}

	s.index.reset()
	s.dimension = 0
	return nil
}

func (s *BoltStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		value = string(tx.Bucket(bucketMeta).Get([]byte(key)))
		return nil
	})
	return value, err
}

func (s *BoltStore) PutMeta(key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(key), []byte(value))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
