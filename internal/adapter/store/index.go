package store

import (
	"fmt"
	"sort"

	"github.com/coder/hnsw"
)

type scoredID struct {
	id       string
	distance float64
}

// vectorIndex is the in-memory search structure rebuilt from disk on open.
// The database stays the source of truth.
type vectorIndex interface {
	add(id string, vec []float32)
	remove(id string)
	search(query []float32, k int) []scoredID
	reset()
	len() int
}

func newIndex(kind string, metric Metric) (vectorIndex, error) {
	switch kind {
	case "flat", "":
		return newFlatIndex(metric), nil
	case "hnsw":
		return newHNSWIndex(metric), nil
	}
	return nil, fmt.Errorf("unsupported index: %s", kind)
}

func sortScored(scores []scoredID) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].distance != scores[j].distance {
			return scores[i].distance < scores[j].distance
		}
		return scores[i].id < scores[j].id
	})
}

// flatIndex compares the query against every vector.
type flatIndex struct {
	metric  Metric
	vectors map[string][]float32
}

func newFlatIndex(metric Metric) *flatIndex {
	return &flatIndex{metric: metric, vectors: make(map[string][]float32)}
}

func (f *flatIndex) add(id string, vec []float32) { f.vectors[id] = vec }
func (f *flatIndex) remove(id string)             { delete(f.vectors, id) }
func (f *flatIndex) reset()                       { f.vectors = make(map[string][]float32) }
func (f *flatIndex) len() int                     { return len(f.vectors) }

func (f *flatIndex) search(query []float32, k int) []scoredID {
	scores := make([]scoredID, 0, len(f.vectors))
	for id, vec := range f.vectors {
		scores = append(scores, scoredID{id: id, distance: f.metric.Distance(query, vec)})
	}
	sortScored(scores)

	if k < len(scores) {
		scores = scores[:k]
	}
	return scores
}

// hnswIndex is an approximate index over coder/hnsw. Removed ids are dropped
// from the key maps only; the graph is rebuilt once orphans outnumber live
// nodes.
type hnswIndex struct {
	metric  Metric
	graph   *hnsw.Graph[uint64]
	idMap   map[string]uint64
	keyMap  map[uint64]string
	vectors map[string][]float32
	nextKey uint64
	orphans int
}

func newHNSWIndex(metric Metric) *hnswIndex {
	h := &hnswIndex{metric: metric}
	h.reset()
	return h
}

func (h *hnswIndex) reset() {
	graph := hnsw.NewGraph[uint64]()
	if h.metric == L2 {
		graph.Distance = hnsw.EuclideanDistance
	} else {
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = 16
	graph.EfSearch = 64

	h.graph = graph
	h.idMap = make(map[string]uint64)
	h.keyMap = make(map[uint64]string)
	h.vectors = make(map[string][]float32)
	h.nextKey = 0
	h.orphans = 0
}

func (h *hnswIndex) add(id string, vec []float32) {
	if _, ok := h.idMap[id]; ok {
		h.remove(id)
	}
	key := h.nextKey
	h.nextKey++

	h.graph.Add(hnsw.MakeNode(key, vec))
	h.idMap[id] = key
	h.keyMap[key] = id
	h.vectors[id] = vec
}

func (h *hnswIndex) remove(id string) {
	key, ok := h.idMap[id]
	if !ok {
		return
	}
	delete(h.idMap, id)
	delete(h.keyMap, key)
	delete(h.vectors, id)
	h.orphans++

	if h.orphans > len(h.idMap) {
		h.rebuild()
	}
}

func (h *hnswIndex) rebuild() {
	live := h.vectors
	h.reset()
	ids := make([]string, 0, len(live))
	for id := range live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		h.add(id, live[id])
	}
}

func (h *hnswIndex) len() int { return len(h.idMap) }

func (h *hnswIndex) search(query []float32, k int) []scoredID {
	if len(h.idMap) == 0 || k <= 0 {
		return nil
	}

	// Over-fetch so orphaned nodes do not eat into the k results.
	nodes := h.graph.Search(query, k+h.orphans)

	scores := make([]scoredID, 0, len(nodes))
	for _, node := range nodes {
		id, ok := h.keyMap[node.Key]
		if !ok {
			continue
		}
		scores = append(scores, scoredID{id: id, distance: h.metric.Distance(query, h.vectors[id])})
	}
	sortScored(scores)

	if k < len(scores) {
		scores = scores[:k]
	}
	return scores
}
