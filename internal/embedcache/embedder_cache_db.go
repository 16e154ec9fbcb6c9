package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/model"
)

// CacheStore persists embeddings keyed by model, task type and content hash.
type CacheStore interface {
	GetMany(ctx context.Context, modelName, taskType string, contentHashes []string) (map[string][]float32, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

func WrapDBCacheToEmbedder(e ai.IEmbedder, store CacheStore) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &dbEmbedder{next: e, store: store}
}

type dbEmbedder struct {
	next  ai.IEmbedder
	store CacheStore
}

func (d *dbEmbedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	logger := logutil.GetLogger(ctx)
	modelName := ""
	hashes := make([]string, len(texts))
	for i, text := range texts {
		_, hashes[i], modelName = buildCacheKey(d.next.ModelName(), taskType, text)
	}
	cached, err := d.store.GetMany(ctx, modelName, taskType, hashes)
	if err != nil {
		logger.Warn("read embedding cache failed, embedding all texts", zap.Error(err))
		cached = nil
	}
	out := make([][]float32, len(texts))
	for i, hash := range hashes {
		if values, ok := cached[hash]; ok {
			out[i] = values
		}
	}
	if len(cached) > 0 {
		logger.Debug("embedding cache hit (db)",
			zap.String("task_type", taskType), zap.Int("hits", len(cached)), zap.Int("total", len(texts)))
	}
	filled, err := embedMissing(ctx, d.next, texts, taskType, out)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	for _, idx := range filled {
		if err := d.store.Save(ctx, &model.EmbeddingCache{
			ModelName:   modelName,
			TaskType:    taskType,
			ContentHash: hashes[idx],
			Embedding:   out[idx],
			Ctime:       now,
		}); err != nil {
			logger.Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return out, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
