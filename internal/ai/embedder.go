package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultBatchSize = 96

type embedder struct {
	provider  IEmbedProvider
	model     string
	batchSize int
	timeout   time.Duration
}

// NewEmbedder returns an IEmbedder that sends texts to the provider in
// batches of at most batchSize, one remote call per batch. Each call is
// bounded by timeout; 0 disables it.
func NewEmbedder(p IEmbedProvider, model string, batchSize int, timeout time.Duration) IEmbedder {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &embedder{provider: p, model: model, batchSize: batchSize, timeout: timeout}
}

func (e *embedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch := texts[start:end]
		vectors, err := e.embedBatch(ctx, batch, taskType)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%s returned %d embeddings for %d inputs", e.provider.Name(), len(vectors), len(batch))
		}
		logutil.GetLogger(ctx).Debug("embedding batch done",
			zap.String("provider", e.provider.Name()),
			zap.String("model", e.model),
			zap.Int("size", len(batch)),
		)
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *embedder) embedBatch(ctx context.Context, batch []string, taskType string) ([][]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.provider.Embed(ctx, e.model, batch, taskType)
}

func (e *embedder) ModelName() string {
	return e.provider.Name() + ":" + e.model
}
