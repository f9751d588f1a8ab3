package vectorindex

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xxxsen/alimtalk/internal/model"
)

const snapshotVersion = 1

type snapshot struct {
	Version   int             `json:"version"`
	Model     string          `json:"model"`
	Dimension int             `json:"dimension"`
	Chunks    []snapshotChunk `json:"chunks"`
}

// snapshotChunk keeps the vector and its metadata in one record.
type snapshotChunk struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

func WriteSnapshot(w io.Writer, idx *Index) error {
	snap := snapshot{
		Version:   snapshotVersion,
		Model:     idx.model,
		Dimension: idx.dim,
		Chunks:    make([]snapshotChunk, 0, len(idx.chunks)),
	}
	for _, c := range idx.chunks {
		snap.Chunks = append(snap.Chunks, snapshotChunk{
			ID:        c.ID,
			Category:  c.Category,
			Text:      c.Text,
			Embedding: c.Embedding,
		})
	}
	if err := json.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encode index snapshot: %w", err)
	}
	return nil
}

func ReadSnapshot(r io.Reader) (*Index, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode index snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported index snapshot version: %d", snap.Version)
	}
	chunks := make([]model.PolicyChunk, 0, len(snap.Chunks))
	for _, c := range snap.Chunks {
		chunks = append(chunks, model.PolicyChunk{
			ID:        c.ID,
			Category:  c.Category,
			Text:      c.Text,
			Embedding: c.Embedding,
		})
	}
	idx, err := Build(chunks, snap.Model)
	if err != nil {
		return nil, fmt.Errorf("rebuild index from snapshot: %w", err)
	}
	if snap.Dimension != 0 && snap.Dimension != idx.dim {
		return nil, fmt.Errorf("index snapshot dimension %d does not match vectors (%d)", snap.Dimension, idx.dim)
	}
	return idx, nil
}
