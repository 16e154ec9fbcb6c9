package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/xxxsen/docqa/internal/ai"
)

// embedMissing sends every text whose slot in out is still nil to next in
// one call and fills the slots. It returns the indexes it filled.
func embedMissing(ctx context.Context, next ai.IEmbedder, texts []string, taskType string, out [][]float32) ([]int, error) {
	var (
		idx     []int
		pending []string
	)
	for i, text := range texts {
		if out[i] != nil {
			continue
		}
		idx = append(idx, i)
		pending = append(pending, text)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	vectors, err := next.Embed(ctx, pending, taskType)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(pending) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(pending))
	}
	for j, i := range idx {
		out[i] = vectors[j]
	}
	return idx, nil
}

func buildCacheKey(modelName, taskType, text string) (string, string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + taskType + ":" + contentHash, contentHash, modelName
}
