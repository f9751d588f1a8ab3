package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/alimtalk/internal/ai"
	"github.com/xxxsen/alimtalk/internal/config"
	"github.com/xxxsen/alimtalk/internal/db"
	"github.com/xxxsen/alimtalk/internal/embedcache"
	"github.com/xxxsen/alimtalk/internal/filestore"
	"github.com/xxxsen/alimtalk/internal/indexer"
	"github.com/xxxsen/alimtalk/internal/postprocess"
	"github.com/xxxsen/alimtalk/internal/repo"
	"github.com/xxxsen/alimtalk/internal/retrieval"
	"github.com/xxxsen/alimtalk/internal/service"
)

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if !cfg.Database.Enabled() {
		return nil, nil
	}
	sqlDB, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.EnsureSchema(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return sqlDB, nil
}

func findProvider(cfg *config.Config, name string) (config.AIProviderConfig, error) {
	for _, item := range cfg.AIProvider {
		if item.Name == name {
			return item, nil
		}
	}
	return config.AIProviderConfig{}, fmt.Errorf("ai provider %q not configured", name)
}

func buildGenerator(cfg *config.Config) (*ai.Client, error) {
	item, err := findProvider(cfg, cfg.Generation.Provider)
	if err != nil {
		return nil, err
	}
	provider, err := ai.NewProvider(item.Type, item.Data)
	if err != nil {
		return nil, fmt.Errorf("init generation provider: %w", err)
	}
	gen := cfg.Generation
	return ai.NewClient(ai.NewGenerator(provider, gen.Model), ai.ClientConfig{
		MaxTokens:   gen.MaxTokens,
		Temperature: *gen.Temperature,
		Timeout:     time.Duration(gen.Timeout) * time.Second,
		MaxRetries:  *gen.MaxRetries,
		Backoff:     time.Duration(gen.RetryBackoffMS) * time.Millisecond,
		Pricing: ai.Pricing{
			InputPer1K:  gen.Pricing.InputPer1K,
			OutputPer1K: gen.Pricing.OutputPer1K,
		},
	}), nil
}

// buildEmbedder layers the in-memory cache over the database cache over the provider.
func buildEmbedder(cfg *config.Config, sqlDB *sql.DB) (ai.IEmbedder, error) {
	item, err := findProvider(cfg, cfg.Embedding.Provider)
	if err != nil {
		return nil, err
	}
	provider, err := ai.NewEmbedProvider(item.Type, item.Data)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	emb := cfg.Embedding
	embedder := ai.NewEmbedder(provider, emb.Model, time.Duration(emb.Timeout)*time.Second)
	if emb.DBCache && sqlDB != nil {
		embedder = embedcache.WrapDB(embedder, repo.NewEmbeddingCacheRepo(sqlDB))
	}
	return embedcache.WrapLRU(embedder, emb.LRUSize, time.Duration(emb.LRUTTL)*time.Second), nil
}

func buildRetriever(ctx context.Context, cfg *config.Config, sqlDB *sql.DB, embedder ai.IEmbedder) (*retrieval.Retriever, error) {
	switch cfg.Index.Backend {
	case config.IndexBackendPGVector:
		chunks := repo.NewPolicyChunkRepo(sqlDB)
		if err := chunks.Load(ctx); err != nil {
			return nil, fmt.Errorf("load policy chunks: %w", err)
		}
		return retrieval.New(embedder, chunks, chunks)
	default:
		store, err := filestore.New(cfg.Index.FileStore)
		if err != nil {
			return nil, fmt.Errorf("init file store: %w", err)
		}
		idx, err := indexer.LoadSnapshot(ctx, store, cfg.Index.SnapshotKey)
		if err != nil {
			return nil, err
		}
		logutil.GetLogger(ctx).Info("policy index loaded",
			zap.String("key", cfg.Index.SnapshotKey),
			zap.Int("chunks", idx.Len()),
			zap.Int("dimension", idx.Dimension()),
		)
		return retrieval.New(embedder, idx, idx)
	}
}

func buildCategories(cfg *config.Config) *postprocess.CategoryTable {
	rules := make([]postprocess.CategoryRule, 0, len(cfg.Categories.Rules))
	for _, r := range cfg.Categories.Rules {
		rules = append(rules, postprocess.CategoryRule{
			BusinessType:   r.BusinessType,
			MessagePurpose: r.MessagePurpose,
			CategoryID:     r.CategoryID,
		})
	}
	return postprocess.NewCategoryTable(cfg.Categories.DefaultID, rules)
}

// buildService returns the service even when retrieval cannot start; such requests then fail as unavailable.
func buildService(ctx context.Context, cfg *config.Config, sqlDB *sql.DB) (*service.TemplateService, bool, error) {
	generator, err := buildGenerator(cfg)
	if err != nil {
		return nil, false, err
	}
	embedder, err := buildEmbedder(cfg, sqlDB)
	if err != nil {
		return nil, false, err
	}
	var retriever service.PolicyRetriever
	ready := true
	r, err := buildRetriever(ctx, cfg, sqlDB, embedder)
	if err != nil {
		logutil.GetLogger(ctx).Error("policy retrieval disabled", zap.Error(err))
		ready = false
	} else {
		retriever = r
	}
	opts := make([]service.TemplateServiceOption, 0, 1)
	if sqlDB != nil {
		opts = append(opts, service.WithGenerationStore(repo.NewGenerationRecorder(sqlDB)))
	}
	svc := service.NewTemplateService(retriever, generator, buildCategories(cfg), service.TemplateServiceConfig{
		TopK:          cfg.Retrieval.TopK,
		MaxInputChars: cfg.Retrieval.MaxInputChars,
		DefaultUserID: cfg.DefaultUserID,
	}, opts...)
	return svc, ready, nil
}
