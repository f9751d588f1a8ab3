package indexer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/alimtalk/internal/ai"
	"github.com/xxxsen/alimtalk/internal/filestore"
	"github.com/xxxsen/alimtalk/internal/model"
	"github.com/xxxsen/alimtalk/internal/vectorindex"
)

// ChunkWriter replaces the persisted chunk table with the contents of an index.
type ChunkWriter interface {
	ReplaceAll(ctx context.Context, idx *vectorindex.Index) error
}

type Builder struct {
	embedder    ai.IEmbedder
	concurrency int
}

func NewBuilder(embedder ai.IEmbedder, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Builder{embedder: embedder, concurrency: concurrency}
}

// Build embeds every chunk and returns the index. Output order matches input order.
func (b *Builder) Build(ctx context.Context, chunks []model.PolicyChunk) (*vectorindex.Index, error) {
	if b.embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	logger := logutil.GetLogger(ctx)
	start := time.Now()
	out := make([]model.PolicyChunk, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range chunks {
		g.Go(func() error {
			vec, err := b.embedder.Embed(gctx, chunks[i].Text, ai.TaskRetrievalDocument)
			if err != nil {
				return fmt.Errorf("embed chunk %s: %w", chunks[i].ID, err)
			}
			out[i] = chunks[i]
			out[i].Embedding = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	idx, err := vectorindex.Build(out, b.embedder.ModelName())
	if err != nil {
		return nil, err
	}
	logger.Info("policy index built",
		zap.Int("chunks", idx.Len()),
		zap.Int("dimension", idx.Dimension()),
		zap.String("model", idx.ModelName()),
		zap.Duration("cost", time.Since(start)),
	)
	return idx, nil
}

// Publish writes the snapshot to store under key, then replaces the chunk table when writer is set.
func Publish(ctx context.Context, idx *vectorindex.Index, store filestore.Store, key string, writer ChunkWriter) error {
	if store != nil {
		var buf bytes.Buffer
		if err := vectorindex.WriteSnapshot(&buf, idx); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if err := store.Save(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		logutil.GetLogger(ctx).Info("index snapshot saved", zap.String("key", key), zap.Int("size", buf.Len()))
	}
	if writer != nil {
		if err := writer.ReplaceAll(ctx, idx); err != nil {
			return fmt.Errorf("replace policy chunks: %w", err)
		}
		logutil.GetLogger(ctx).Info("policy chunk table replaced", zap.Int("chunks", idx.Len()))
	}
	return nil
}

// LoadSnapshot reads an index previously written by Publish.
func LoadSnapshot(ctx context.Context, store filestore.Store, key string) (*vectorindex.Index, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", key, err)
	}
	defer rc.Close()
	idx, err := vectorindex.ReadSnapshot(rc)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return idx, nil
}
