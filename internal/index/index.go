package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"ragchat/internal/domain"
)

// Metric selects how similarity between two vectors is scored.
type Metric string

const (
	// Cosine stores and queries unit-normalized vectors, so the raw inner
	// product equals cosine similarity. Normalization happens identically
	// at insert time and at query time.
	Cosine Metric = "cosine"
	// InnerProduct scores vectors as-is.
	InnerProduct Metric = "inner_product"
)

// Index is an exact brute-force vector index over parallel slices: item i is
// vectors[i] plus payloads[i], ids are dense and assigned in insertion order.
// Append-only; changing content means rebuilding from scratch.
//
// Concurrent Search calls are safe; AddBatch and Save take the write lock.
type Index struct {
	mu        sync.RWMutex
	metric    Metric
	dimension int
	vectors   [][]float64
	payloads  []domain.Payload
}

// New creates an empty index with a fixed dimension and metric.
func New(dimension int, metric Metric) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidDimension, dimension)
	}
	if metric == "" {
		metric = Cosine
	}
	return &Index{metric: metric, dimension: dimension}, nil
}

// Len returns the number of indexed items.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Dimension returns the fixed vector dimension of this index.
func (ix *Index) Dimension() int { return ix.dimension }

// Metric returns the similarity metric of this index.
func (ix *Index) Metric() Metric { return ix.metric }

// AddBatch appends vectors with their payloads. Ids continue from the current
// item count. The batch is validated up front: on error nothing is inserted.
func (ix *Index) AddBatch(vectors [][]float64, payloads []domain.Payload) error {
	if len(vectors) != len(payloads) {
		return fmt.Errorf("%w: %d vectors, %d payloads",
			domain.ErrLengthMismatch, len(vectors), len(payloads))
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, v := range vectors {
		if len(v) != ix.dimension {
			return fmt.Errorf("%w: vector %d has %d components, index wants %d",
				domain.ErrDimensionMismatch, i, len(v), ix.dimension)
		}
	}
	for i, v := range vectors {
		ix.vectors = append(ix.vectors, ix.stored(v))
		ix.payloads = append(ix.payloads, payloads[i])
	}
	return nil
}

// Search returns up to k items ordered by descending similarity to query.
// Equal scores are ordered by ascending id so results are deterministic.
func (ix *Index) Search(query []float64, k int) ([]domain.SearchResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.vectors) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d components, index wants %d",
			domain.ErrDimensionMismatch, len(query), ix.dimension)
	}
	if k <= 0 {
		k = 5
	}
	q := ix.stored(query)
	scores := make([]float64, len(ix.vectors))
	for i := range ix.vectors {
		scores[i] = dot(ix.vectors[i], q)
	}
	ids := make([]int, len(scores))
	for i := range ids {
		ids[i] = i
	}
	sort.Slice(ids, func(a, b int) bool {
		if scores[ids[a]] != scores[ids[b]] {
			return scores[ids[a]] > scores[ids[b]]
		}
		return ids[a] < ids[b]
	})
	if k > len(ids) {
		k = len(ids)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, id := range ids[:k] {
		results = append(results, domain.SearchResult{
			ID:      id,
			Score:   scores[id],
			Payload: ix.payloads[id],
		})
	}
	return results, nil
}

// stored copies v, unit-normalizing it when the metric is cosine.
func (ix *Index) stored(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	if ix.metric != Cosine {
		return out
	}
	norm := 0.0
	for _, x := range out {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range out {
			out[i] /= norm
		}
	}
	return out
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
