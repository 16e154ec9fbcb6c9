package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/metrics"
	"github.com/xxxsen/docqa/internal/store"
)

const DefaultMatchCount = 5

// Retriever embeds a query and collects the closest stored chunks of one
// user into a single context string.
type Retriever struct {
	embedder     ai.IEmbedder
	store        store.Store
	matchCount   int
	storeTimeout time.Duration
}

// NewRetriever builds a Retriever. storeTimeout bounds the similarity
// search; 0 disables it.
func NewRetriever(embedder ai.IEmbedder, st store.Store, matchCount int, storeTimeout time.Duration) *Retriever {
	if matchCount <= 0 {
		matchCount = DefaultMatchCount
	}
	return &Retriever{embedder: embedder, store: st, matchCount: matchCount, storeTimeout: storeTimeout}
}

// Retrieve returns the matched texts joined by single spaces in the order
// the store ranked them. A user without documents gets an empty context.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string) (string, error) {
	start := time.Now()
	vectors, err := r.embedder.Embed(ctx, []string{query}, ai.TaskRetrievalQuery)
	if err != nil {
		return "", err
	}
	if len(vectors) != 1 {
		return "", fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}
	matchCtx, cancel := withTimeout(ctx, r.storeTimeout)
	defer cancel()
	matches, err := r.store.Match(matchCtx, userID, vectors[0], r.matchCount)
	metrics.ObserveStage(metrics.StageRetrieve, start)
	if err != nil {
		return "", err
	}
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
	}
	return strings.Join(texts, " "), nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
