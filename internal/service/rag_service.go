package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/metrics"
	"github.com/xxxsen/docqa/internal/model"
	"github.com/xxxsen/docqa/internal/store"
)

type Extractor interface {
	Extract(ctx context.Context, rawURL string) (string, error)
}

type Chunker interface {
	Chunks(text string) iter.Seq[string]
}

type Answerer interface {
	Answer(ctx context.Context, contextText, query string) (string, error)
}

type Options struct {
	MatchCount int
	// StoreTimeout bounds every store call. 0 disables it.
	StoreTimeout time.Duration
}

type RAGService struct {
	extractor    Extractor
	chunker      Chunker
	embedder     ai.IEmbedder
	store        store.Store
	storeTimeout time.Duration
	retriever    *Retriever
	answerer     Answerer
}

func NewRAGService(extractor Extractor, chunker Chunker, embedder ai.IEmbedder, st store.Store, answerer Answerer, opts Options) *RAGService {
	return &RAGService{
		extractor:    extractor,
		chunker:      chunker,
		embedder:     embedder,
		store:        st,
		storeTimeout: opts.StoreTimeout,
		retriever:    NewRetriever(embedder, st, opts.MatchCount, opts.StoreTimeout),
		answerer:     answerer,
	}
}

// Ingest extracts the document behind fileURL, splits and embeds it and
// stores every chunk for the user. It returns the number of chunks stored.
func (s *RAGService) Ingest(ctx context.Context, fileURL, userID string) (int, error) {
	uid, err := ParseUserID(userID)
	if err != nil {
		return 0, err
	}
	fileURL, err = requireField("file_url", fileURL)
	if err != nil {
		return 0, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", uid), zap.String("file_url", fileURL))
	begin := time.Now()

	start := time.Now()
	text, err := s.extractor.Extract(ctx, fileURL)
	metrics.ObserveStage(metrics.StageExtract, start)
	if err != nil {
		logger.Error("extract document failed", zap.Error(err))
		return 0, err
	}

	start = time.Now()
	var texts []string
	for chunk := range s.chunker.Chunks(text) {
		texts = append(texts, chunk)
	}
	metrics.ObserveStage(metrics.StageChunk, start)
	if len(texts) == 0 {
		logger.Info("document has no text, nothing stored")
		return 0, nil
	}

	start = time.Now()
	vectors, err := s.embedder.Embed(ctx, texts, ai.TaskRetrievalDocument)
	metrics.ObserveStage(metrics.StageEmbed, start)
	if err != nil {
		logger.Error("embed chunks failed", zap.Int("chunks", len(texts)), zap.Error(err))
		return 0, err
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}
	chunks := make([]model.Chunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, model.Chunk{Text: t, Embedding: vectors[i]})
	}

	start = time.Now()
	err = s.insert(ctx, uid, chunks)
	metrics.ObserveStage(metrics.StageStore, start)
	if err != nil {
		logger.Error("store chunks failed", zap.Int("chunks", len(chunks)), zap.Error(err))
		return 0, err
	}
	metrics.IngestedChunks.Add(float64(len(chunks)))
	logger.Info("document ingested",
		zap.Int("chunks", len(chunks)),
		zap.String("model", s.embedder.ModelName()),
		zap.Duration("cost", time.Since(begin)),
	)
	return len(chunks), nil
}

func (s *RAGService) insert(ctx context.Context, userID string, chunks []model.Chunk) error {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.Insert(ctx, userID, chunks)
}

// Chat answers query from the user's own documents.
func (s *RAGService) Chat(ctx context.Context, userID, query string) (string, error) {
	uid, err := ParseUserID(userID)
	if err != nil {
		return "", err
	}
	query, err = requireField("query", query)
	if err != nil {
		return "", err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", uid))

	contextText, err := s.retriever.Retrieve(ctx, uid, query)
	if err != nil {
		logger.Error("retrieve context failed", zap.Error(err))
		return "", err
	}
	if contextText == "" {
		logger.Debug("no stored context for user")
	}

	start := time.Now()
	answer, err := s.answerer.Answer(ctx, contextText, query)
	metrics.ObserveStage(metrics.StageAnswer, start)
	if err != nil {
		logger.Error("generate answer failed", zap.Error(err))
		return "", err
	}
	logger.Info("chat answered", zap.Int("context_size", len(contextText)), zap.Int("answer_size", len(answer)))
	return answer, nil
}
