package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/alimtalk/internal/ai"
	"github.com/xxxsen/alimtalk/internal/model"
	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
)

type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]model.IndexHit, error)
	ModelName() string
}

type ChunkLookup interface {
	Lookup(ctx context.Context, ids []string) (map[string]model.PolicyChunk, error)
}

// Retriever pins one embedder to one index for its whole lifetime.
type Retriever struct {
	embedder ai.IEmbedder
	searcher Searcher
	lookup   ChunkLookup
}

func New(embedder ai.IEmbedder, searcher Searcher, lookup ChunkLookup) (*Retriever, error) {
	if embedder == nil || searcher == nil || lookup == nil {
		return nil, fmt.Errorf("%w: index or embedder not loaded", appErr.ErrRetrievalUnavailable)
	}
	if indexModel := searcher.ModelName(); indexModel != "" && indexModel != embedder.ModelName() {
		return nil, fmt.Errorf("embedding model mismatch: index built with %q, query embedder is %q", indexModel, embedder.ModelName())
	}
	return &Retriever{embedder: embedder, searcher: searcher, lookup: lookup}, nil
}

// BuildQuery joins the non-empty trimmed fields with a single space.
func BuildQuery(userInput, businessType, messagePurpose string) string {
	parts := make([]string, 0, 3)
	for _, item := range []string{userInput, businessType, messagePurpose} {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts = append(parts, item)
	}
	return strings.Join(parts, " ")
}

func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (*model.RetrievedContext, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: retriever not initialised", appErr.ErrRetrievalUnavailable)
	}
	if topK < 1 {
		return nil, fmt.Errorf("%w: top_k must be >= 1", appErr.ErrInvalid)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", appErr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx)
	vec, err := r.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: embed query: %v", appErr.ErrRetrievalUnavailable, err)
	}
	hits, err := r.searcher.Search(ctx, vec, topK)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: search index: %v", appErr.ErrRetrievalUnavailable, err)
	}
	out := &model.RetrievedContext{Query: query, Items: make([]model.ScoredChunk, 0, len(hits))}
	if len(hits) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ChunkID)
	}
	chunks, err := r.lookup.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: load chunk metadata: %v", appErr.ErrRetrievalUnavailable, err)
	}
	for _, h := range hits {
		c, ok := chunks[h.ChunkID]
		if !ok {
			return nil, fmt.Errorf("%w: metadata missing for chunk %q", appErr.ErrRetrievalUnavailable, h.ChunkID)
		}
		out.Items = append(out.Items, model.ScoredChunk{Chunk: c, Score: h.Score})
	}
	logger.Debug("policy context retrieved",
		zap.Int("top_k", topK),
		zap.Int("hits", len(out.Items)),
		zap.Strings("categories", out.Categories()),
	)
	return out, nil
}
