package store

import (
	"fmt"
	"math"
)

// Metric is the distance function used to rank stored vectors.
type Metric string

const (
	Cosine Metric = "cosine"
	L2     Metric = "l2"
)

func parseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case Cosine, "":
		return Cosine, nil
	case L2:
		return L2, nil
	}
	return "", fmt.Errorf("unsupported distance metric: %s", s)
}

// Distance returns the distance between a and b under m. Lower is closer.
func (m Metric) Distance(a, b []float32) float64 {
	if m == L2 {
		return euclidean(a, b)
	}
	return 1 - cosineSimilarity(a, b)
}

// Similarity converts a distance under m into a similarity where higher is
// closer. Cosine gives 1 - distance, L2 gives 1 / (1 + distance).
func (m Metric) Similarity(distance float64) float64 {
	if m == L2 {
		return 1 / (1 + distance)
	}
	return 1 - distance
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
