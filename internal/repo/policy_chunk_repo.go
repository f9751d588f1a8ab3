package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/alimtalk/internal/model"
	"github.com/xxxsen/alimtalk/internal/pkg/dbutil"
	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
	"github.com/xxxsen/alimtalk/internal/vectorindex"
)

// PolicyChunkRepo is a pgvector-backed policy index. Vectors are stored normalised,
// so the negative inner product operator ranks by cosine similarity.
type PolicyChunkRepo struct {
	db        *sql.DB
	modelName string
	dim       int
}

func NewPolicyChunkRepo(db *sql.DB) *PolicyChunkRepo {
	return &PolicyChunkRepo{db: db}
}

// Load reads the model name and dimension recorded for the stored chunks.
func (r *PolicyChunkRepo) Load(ctx context.Context) error {
	const query = `SELECT model_name, vector_dims(embedding) FROM policy_chunks ORDER BY position ASC LIMIT 1`
	var modelName string
	var dim int
	err := r.db.QueryRowContext(ctx, query).Scan(&modelName, &dim)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: policy_chunks table is empty", appErr.ErrRetrievalUnavailable)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", appErr.ErrRetrievalUnavailable, err)
	}
	r.modelName = modelName
	r.dim = dim
	return nil
}

func (r *PolicyChunkRepo) ModelName() string {
	return r.modelName
}

// ReplaceAll swaps the stored chunks for the given index contents, keeping insertion positions.
func (r *PolicyChunkRepo) ReplaceAll(ctx context.Context, idx *vectorindex.Index) error {
	chunks := idx.Chunks()
	err := dbutil.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM policy_chunks`); err != nil {
			return err
		}
		for start := 0; start < len(chunks); start += replaceBatchSize {
			end := start + replaceBatchSize
			if end > len(chunks) {
				end = len(chunks)
			}
			sqlStr, args, err := buildChunkInsert(idx.ModelName(), start, chunks[start:end])
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
				if dbutil.IsConflict(err) {
					return fmt.Errorf("%w: duplicate chunk id in batch at position %d", appErr.ErrConflict, start)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.modelName = idx.ModelName()
	r.dim = idx.Dimension()
	return nil
}

// replaceBatchSize keeps one insert well under the postgres bind parameter limit.
const replaceBatchSize = 500

func buildChunkInsert(modelName string, offset int, chunks []model.PolicyChunk) (string, []interface{}, error) {
	rows := make([]map[string]interface{}, 0, len(chunks))
	for i, c := range chunks {
		rows = append(rows, map[string]interface{}{
			"id":         c.ID,
			"position":   offset + i,
			"category":   c.Category,
			"content":    c.Text,
			"model_name": modelName,
			"embedding":  pgvector.NewVector(c.Embedding),
		})
	}
	sqlStr, args, err := builder.BuildInsert("policy_chunks", rows)
	if err != nil {
		return "", nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return sqlStr, args, nil
}

func (r *PolicyChunkRepo) Search(ctx context.Context, query []float32, k int) ([]model.IndexHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1", appErr.ErrInvalid)
	}
	if r.dim != 0 && len(query) != r.dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", appErr.ErrInvalid, len(query), r.dim)
	}
	q, ok := vectorindex.Normalize(query)
	if !ok {
		return nil, fmt.Errorf("%w: zero query vector", appErr.ErrInvalid)
	}
	const sqlStr = `
		SELECT id, position, (embedding <#> $1) * -1 AS score
		FROM policy_chunks
		ORDER BY embedding <#> $1 ASC, position ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, sqlStr, pgvector.NewVector(q), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	hits := make([]model.IndexHit, 0, k)
	for rows.Next() {
		var h model.IndexHit
		var score float64
		if err := rows.Scan(&h.ChunkID, &h.Position, &score); err != nil {
			return nil, err
		}
		h.Score = clampScore(score)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (r *PolicyChunkRepo) Lookup(ctx context.Context, ids []string) (map[string]model.PolicyChunk, error) {
	out := make(map[string]model.PolicyChunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	sqlStr, bindArgs, err := builder.BuildSelect("policy_chunks", map[string]interface{}{
		"id in": args,
	}, []string{"id", "category", "content"})
	if err != nil {
		return nil, err
	}
	sqlStr, bindArgs = dbutil.Finalize(sqlStr, bindArgs)
	rows, err := r.db.QueryContext(ctx, sqlStr, bindArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c model.PolicyChunk
		if err := rows.Scan(&c.ID, &c.Category, &c.Text); err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
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
