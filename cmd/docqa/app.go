package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/chunker"
	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/db"
	"github.com/xxxsen/docqa/internal/embedcache"
	"github.com/xxxsen/docqa/internal/extract"
	"github.com/xxxsen/docqa/internal/job"
	"github.com/xxxsen/docqa/internal/repo"
	"github.com/xxxsen/docqa/internal/schedule"
	"github.com/xxxsen/docqa/internal/service"
	"github.com/xxxsen/docqa/internal/store"
)

type app struct {
	rag       *service.RAGService
	store     store.Store
	db        *sql.DB
	cacheRepo *repo.EmbeddingCacheRepo
}

// buildApp wires the pipeline from cfg. allowFiles enables file:// sources,
// which only the local CLI uses.
func buildApp(ctx context.Context, cfg *config.Config, allowFiles bool) (*app, error) {
	a := &app{}
	if cfg.Store.Type == "postgres" {
		conn, err := db.Open(ctx, cfg.Store.Database)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := db.ApplyMigrations(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		a.db = conn
		if cfg.Embedding.DBCache {
			a.cacheRepo = repo.NewEmbeddingCacheRepo(conn)
		}
	}

	st, err := store.New(ctx, cfg.Store, store.Options{DB: a.db})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	a.store = st

	extractCfg := cfg.Extract
	extractCfg.AllowFileScheme = extractCfg.AllowFileScheme || allowFiles
	extractor, err := extract.New(extractCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	tok, err := chunker.NewTiktoken(cfg.Chunk.Encoding)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}

	embedder, err := buildEmbedder(cfg, a.cacheRepo)
	if err != nil {
		a.Close()
		return nil, err
	}

	answerer := ai.NewAnswerer(buildGenerator(cfg), cfg.AI.Timeout)
	a.rag = service.NewRAGService(
		extractor,
		chunker.New(tok, cfg.Chunk.MaxTokens),
		embedder,
		st,
		answerer,
		service.Options{
			MatchCount:   cfg.Retrieval.MatchCount,
			StoreTimeout: time.Duration(cfg.Store.Timeout) * time.Second,
		},
	)
	logutil.GetLogger(ctx).Info("pipeline ready",
		zap.String("store", cfg.Store.Type),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
		zap.Bool("db_cache", a.cacheRepo != nil),
	)
	return a, nil
}

func buildEmbedder(cfg *config.Config, cacheRepo *repo.EmbeddingCacheRepo) (ai.IEmbedder, error) {
	provider, err := ai.NewEmbedProvider(cfg.Embedding.Provider, providerArgs(cfg.Embedding.Data))
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.Embedding.Model, cfg.Embedding.BatchSize, time.Duration(cfg.AI.Timeout)*time.Second)
	if cacheRepo != nil {
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	}
	return embedcache.WrapLruCacheToEmbedder(embedder, cfg.Embedding.LRUSize, time.Duration(cfg.Embedding.LRUTTLSeconds)*time.Second), nil
}

// buildGenerator returns nil when no provider can be built, in which case
// chat requests fail as unavailable instead of blocking startup.
func buildGenerator(cfg *config.Config) ai.IGenerator {
	opts := ai.GenerateOptions{Temperature: *cfg.AI.Temperature, MaxTokens: cfg.AI.MaxTokens}
	refs := append([]config.ProviderRef{{
		Provider: cfg.AI.Provider,
		Model:    cfg.AI.Model,
		Data:     cfg.AI.Data,
	}}, cfg.AI.Fallbacks...)

	entries := make([]ai.GeneratorEntry, 0, len(refs))
	for _, ref := range refs {
		provider, err := ai.NewProvider(ref.Provider, providerArgs(ref.Data))
		if err != nil {
			logutil.GetLogger(context.Background()).Warn("skip ai provider",
				zap.String("provider", ref.Provider), zap.Error(err))
			continue
		}
		entries = append(entries, ai.GeneratorEntry{
			Name:      ref.Provider + ":" + ref.Model,
			Generator: ai.NewGenerator(provider, ref.Model, opts),
		})
	}
	return ai.NewGroupGenerator(entries)
}

func providerArgs(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return data
}

// startJobs schedules maintenance jobs. It returns nil when none apply.
func (a *app) startJobs(ctx context.Context, cfg *config.Config) (*schedule.CronScheduler, error) {
	if a.cacheRepo == nil {
		return nil, nil
	}
	scheduler := schedule.NewCronScheduler()
	cleanup := job.NewEmbeddingCacheCleanupJob(a.cacheRepo, cfg.Embedding.CacheMaxAgeDays)
	if err := scheduler.AddJob(cleanup, job.EmbeddingCacheCleanupSpec); err != nil {
		return nil, err
	}
	scheduler.Start(ctx)
	return scheduler, nil
}

func (a *app) Close() {
	logger := logutil.GetLogger(context.Background())
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Error("close store failed", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Error("close db failed", zap.Error(err))
		}
	}
}
