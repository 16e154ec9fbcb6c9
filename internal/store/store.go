package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/model"
)

// Store persists embedded chunks and runs similarity search scoped to a
// user. Insert writes all chunks as one batch.
type Store interface {
	Insert(ctx context.Context, userID string, chunks []model.Chunk) error
	Match(ctx context.Context, userID string, embedding []float32, count int) ([]model.Match, error)
	Close() error
}

// Options carries resources shared with the rest of the process.
type Options struct {
	// DB is reused by the postgres store when set. The store then leaves
	// closing it to the caller.
	DB *sql.DB
}

type Factory func(ctx context.Context, cfg config.StoreConfig, opts Options) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(ctx context.Context, cfg config.StoreConfig, opts Options) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
	return factory(ctx, cfg, opts)
}
