// Package index implements a flat nearest-neighbor index: an append-only
// collection of vectors searched by exhaustive squared-L2 scan. Vector
// position i corresponds to the i-th record inserted into the document store;
// the alignment is implicit and preserved only by construction order.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Flat is a brute-force L2 index over float32 vectors.
type Flat struct {
	Dimension int         `json:"dimension"`
	Vectors   [][]float32 `json:"vectors"`
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) *Flat {
	return &Flat{Dimension: dimension}
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Vectors)
}

// Add appends vectors to the index in order.
func (f *Flat) Add(vectors ...[]float32) error {
	for _, v := range vectors {
		if len(v) != f.Dimension {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v), f.Dimension)
		}
		f.Vectors = append(f.Vectors, v)
	}
	return nil
}

// Result is one nearest-neighbor match: the position of the vector in
// insertion order and its squared L2 distance to the query.
type Result struct {
	Position int
	Distance float64
}

// Search returns up to k nearest vectors by ascending squared L2 distance.
// Ties keep insertion order. An empty or nil index returns no results.
func (f *Flat) Search(query []float32, k int) []Result {
	if f.Len() == 0 || k <= 0 {
		return nil
	}

	results := make([]Result, len(f.Vectors))
	for i, v := range f.Vectors {
		results[i] = Result{Position: i, Distance: squaredL2(query, v)}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Distance < results[b].Distance
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

func squaredL2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// WriteFile serializes the index to path, overwriting prior contents.
func (f *Flat) WriteFile(path string) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

// ReadFile loads an index previously written with WriteFile.
func ReadFile(path string) (*Flat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}
	var f Flat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}
	return &f, nil
}
