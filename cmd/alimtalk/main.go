package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/alimtalk/internal/config"
	"github.com/xxxsen/alimtalk/internal/filestore"
	"github.com/xxxsen/alimtalk/internal/handler"
	"github.com/xxxsen/alimtalk/internal/indexer"
	"github.com/xxxsen/alimtalk/internal/job"
	"github.com/xxxsen/alimtalk/internal/middleware"
	"github.com/xxxsen/alimtalk/internal/repo"
	"github.com/xxxsen/alimtalk/internal/schedule"
)

const usageReportCron = "5 0 * * *"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "alimtalk",
		Short: "alimtalk template generator",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	var inputDir string
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "build the policy index from jsonl/markdown sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runIndex(cmd.Context(), cfg, inputDir)
		},
	}
	indexCmd.Flags().StringVar(&inputDir, "input", "", "directory holding policy sources")
	_ = indexCmd.MarkFlagRequired("input")

	var (
		query string
		topK  int
	)
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "search policy chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), cfg, query, topK)
		},
	}
	searchCmd.Flags().StringVar(&query, "query", "", "search text")
	searchCmd.Flags().IntVar(&topK, "top-k", 0, "number of results, defaults to retrieval.top_k")
	_ = searchCmd.MarkFlagRequired("query")

	var day string
	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "print daily token usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runUsage(cmd.Context(), cfg, day)
		},
	}
	usageCmd.Flags().StringVar(&day, "day", "", "day as YYYY-MM-DD, defaults to today")

	rootCmd.AddCommand(runCmd, indexCmd, searchCmd, usageCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logutil.GetLogger(ctx).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("index_backend", cfg.Index.Backend),
		zap.Bool("database", cfg.Database.Enabled()),
	)
	sqlDB, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(sqlDB)

	svc, ready, err := buildService(ctx, cfg, sqlDB)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sqlDB != nil {
		scheduler := schedule.NewCronScheduler()
		if cfg.Embedding.DBCache {
			cleanup := job.NewEmbeddingCacheCleanupJob(repo.NewEmbeddingCacheRepo(sqlDB), cfg.Embedding.MaxAgeDays)
			if err := scheduler.AddJob(cleanup, cfg.Embedding.CleanupCron); err != nil {
				return fmt.Errorf("schedule %s: %w", cleanup.Name(), err)
			}
		}
		report := job.NewTokenUsageReportJob(repo.NewTokenUsageRepo(sqlDB))
		if err := scheduler.AddJob(report, usageReportCron); err != nil {
			return fmt.Errorf("schedule %s: %w", report.Name(), err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	deps := handler.RouterDeps{
		Health:    handler.NewHealthHandler(func() bool { return ready }),
		Templates: handler.NewTemplateHandler(svc),
		Policies:  handler.NewPolicyHandler(svc),
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr), zap.Bool("retrieval_ready", ready))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runIndex(ctx context.Context, cfg *config.Config, dir string) error {
	sqlDB, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(sqlDB)

	chunks, err := indexer.LoadDir(ctx, dir)
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder(cfg, sqlDB)
	if err != nil {
		return err
	}
	idx, err := indexer.NewBuilder(embedder, cfg.Embedding.Concurrency).Build(ctx, chunks)
	if err != nil {
		return err
	}

	var store filestore.Store
	if cfg.Index.FileStore.Type != "" {
		store, err = filestore.New(cfg.Index.FileStore)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
	}
	var writer indexer.ChunkWriter
	if sqlDB != nil {
		writer = repo.NewPolicyChunkRepo(sqlDB)
	}
	if store == nil && writer == nil {
		return fmt.Errorf("nowhere to publish the index: configure index.file_store or database")
	}
	return indexer.Publish(ctx, idx, store, cfg.Index.SnapshotKey, writer)
}

func runSearch(ctx context.Context, cfg *config.Config, query string, topK int) error {
	sqlDB, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(sqlDB)

	embedder, err := buildEmbedder(cfg, sqlDB)
	if err != nil {
		return err
	}
	retriever, err := buildRetriever(ctx, cfg, sqlDB, embedder)
	if err != nil {
		return err
	}
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}
	rc, err := retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return err
	}
	return printJSON(rc)
}

func runUsage(ctx context.Context, cfg *config.Config, day string) error {
	sqlDB, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	if sqlDB == nil {
		return fmt.Errorf("usage requires a database")
	}
	defer closeDB(sqlDB)
	if day == "" {
		day = time.Now().Format(time.DateOnly)
	}
	stats, err := repo.NewTokenUsageRepo(sqlDB).GetDaily(ctx, day)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
