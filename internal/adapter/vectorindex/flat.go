package vectorindex

import (
	"cmp"
	"fmt"
	"slices"

	"ragbench/internal/domain"
)

// NoResult pads Search output when fewer than k vectors exist.
const NoResult = -1

// FlatL2 is an exact nearest-neighbour structure over squared L2 distance.
// Vectors are stored back to back in insertion order. It is not safe for
// concurrent use; Index guards it.
type FlatL2 struct {
	dim  int
	data []float32
}

func NewFlatL2(dim int) *FlatL2 {
	return &FlatL2{dim: dim}
}

func (f *FlatL2) Dimension() int {
	return f.dim
}

func (f *FlatL2) Count() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vectors. Every vector is checked before any is stored, so a
// mismatch leaves the structure unchanged.
func (f *FlatL2) Add(vecs [][]float32) error {
	for i, v := range vecs {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d values, index expects %d", domain.ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for _, v := range vecs {
		f.data = append(f.data, v...)
	}
	return nil
}

// Truncate drops every vector at position n and beyond.
func (f *FlatL2) Truncate(n int) {
	if n < f.Count() {
		f.data = f.data[:n*f.dim]
	}
}

func (f *FlatL2) Reset() {
	f.data = nil
}

// Search returns the k nearest positions and their squared distances in
// ascending distance order, ties broken by position. When k exceeds the
// count the tail is padded with NoResult.
func (f *FlatL2) Search(query []float32, k int) ([]float32, []int, error) {
	if len(query) != f.dim {
		return nil, nil, fmt.Errorf("%w: query has %d values, index expects %d", domain.ErrDimensionMismatch, len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil, nil
	}

	n := f.Count()
	order := make([]int, n)
	dists := make([]float32, n)
	for i := 0; i < n; i++ {
		order[i] = i
		dists[i] = squaredL2(query, f.data[i*f.dim:(i+1)*f.dim])
	}

	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(dists[a], dists[b])
	})

	outDist := make([]float32, k)
	outPos := make([]int, k)
	for i := 0; i < k; i++ {
		if i < n {
			outPos[i] = order[i]
			outDist[i] = dists[order[i]]
		} else {
			outPos[i] = NoResult
			outDist[i] = float32(0)
		}
	}
	return outDist, outPos, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
