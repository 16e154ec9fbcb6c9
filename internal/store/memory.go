package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/model"
)

const memoryCollection = "documents"

var errNoEmbedding = errors.New("document has no precomputed embedding")

// memoryStore keeps vectors in an in-process chromem database, optionally
// persisted to a directory.
type memoryStore struct {
	db  *chromem.DB
	col *chromem.Collection
}

func init() {
	Register("memory", createMemoryStore)
}

func createMemoryStore(_ context.Context, cfg config.StoreConfig, _ Options) (Store, error) {
	return NewMemory(cfg.Memory.Path, cfg.Memory.Compress)
}

// NewMemory opens a chromem store. An empty path keeps everything in memory.
func NewMemory(path string, compress bool) (Store, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", path, err)
		}
	}
	// embeddings always arrive precomputed
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errNoEmbedding
	}
	col, err := db.GetOrCreateCollection(memoryCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open chromem collection: %w", err)
	}
	return &memoryStore{db: db, col: col}, nil
}

func (s *memoryStore) Insert(ctx context.Context, userID string, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	now := strconv.FormatInt(time.Now().Unix(), 10)
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:        uuid.NewString(),
			Content:   c.Text,
			Embedding: c.Embedding,
			Metadata: map[string]string{
				payloadUserID: userID,
				payloadCtime:  now,
			},
		})
	}
	return s.col.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (s *memoryStore) Match(ctx context.Context, userID string, embedding []float32, count int) ([]model.Match, error) {
	n := min(count, s.col.Count())
	if n <= 0 {
		return nil, nil
	}
	results, err := s.col.QueryEmbedding(ctx, embedding, n, map[string]string{payloadUserID: userID}, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.Match, 0, len(results))
	for _, r := range results {
		out = append(out, model.Match{Text: r.Content, Similarity: float64(r.Similarity)})
	}
	return out, nil
}

func (s *memoryStore) Close() error {
	return nil
}
