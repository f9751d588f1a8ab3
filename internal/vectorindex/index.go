package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xxxsen/alimtalk/internal/model"
	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
)

// Index is an exact inner-product index over L2-normalised vectors.
// It is read-only after Build and safe for concurrent readers.
type Index struct {
	model   string
	dim     int
	chunks  []model.PolicyChunk
	vectors [][]float32
	byID    map[string]int
}

func Build(chunks []model.PolicyChunk, modelName string) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to index", appErr.ErrInvalid)
	}
	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("%w: chunk %q has no embedding", appErr.ErrInvalid, chunks[0].ID)
	}
	idx := &Index{
		model:   modelName,
		dim:     dim,
		chunks:  make([]model.PolicyChunk, 0, len(chunks)),
		vectors: make([][]float32, 0, len(chunks)),
		byID:    make(map[string]int, len(chunks)),
	}
	for i, c := range chunks {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: chunk at position %d has empty id", appErr.ErrInvalid, i)
		}
		if _, ok := idx.byID[c.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate chunk id %q", appErr.ErrInvalid, c.ID)
		}
		if len(c.Embedding) != dim {
			return nil, fmt.Errorf("%w: chunk %q dimension %d, want %d", appErr.ErrInvalid, c.ID, len(c.Embedding), dim)
		}
		vec, ok := Normalize(c.Embedding)
		if !ok {
			return nil, fmt.Errorf("%w: chunk %q has a zero vector", appErr.ErrInvalid, c.ID)
		}
		stored := model.PolicyChunk{ID: c.ID, Category: c.Category, Text: c.Text, Embedding: vec}
		idx.byID[c.ID] = len(idx.chunks)
		idx.chunks = append(idx.chunks, stored)
		idx.vectors = append(idx.vectors, vec)
	}
	return idx, nil
}

func (x *Index) ModelName() string {
	return x.model
}

func (x *Index) Dimension() int {
	return x.dim
}

func (x *Index) Len() int {
	return len(x.chunks)
}

// Chunks returns the indexed chunks in insertion order.
func (x *Index) Chunks() []model.PolicyChunk {
	out := make([]model.PolicyChunk, len(x.chunks))
	copy(out, x.chunks)
	return out
}

// Search returns at most k hits ordered by descending score; equal scores keep insertion order.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]model.IndexHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1", appErr.ErrInvalid)
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", appErr.ErrInvalid, len(query), x.dim)
	}
	q, ok := Normalize(query)
	if !ok {
		return nil, fmt.Errorf("%w: zero query vector", appErr.ErrInvalid)
	}
	hits := make([]model.IndexHit, len(x.vectors))
	for i, vec := range x.vectors {
		if i%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		hits[i] = model.IndexHit{
			ChunkID:  x.chunks[i].ID,
			Position: i,
			Score:    clampScore(dot(q, vec)),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Lookup joins ids to stored chunks. Unknown ids are absent from the result.
func (x *Index) Lookup(_ context.Context, ids []string) (map[string]model.PolicyChunk, error) {
	out := make(map[string]model.PolicyChunk, len(ids))
	for _, id := range ids {
		pos, ok := x.byID[id]
		if !ok {
			continue
		}
		out[id] = x.chunks[pos]
	}
	return out, nil
}

// Normalize returns a unit-length copy of v. It reports false for a zero or non-finite vector.
func Normalize(v []float32) ([]float32, bool) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, false
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out, true
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func clampScore(s float64) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return float32(s)
}
