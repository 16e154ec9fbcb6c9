package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/db"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/repo"
)

type postgresStore struct {
	conn   *sql.DB
	owned  bool
	docs   *repo.DocumentRepo
	nowSec func() int64
}

func init() {
	Register("postgres", createPostgresStore)
}

func createPostgresStore(ctx context.Context, cfg config.StoreConfig, opts Options) (Store, error) {
	if opts.DB != nil {
		return NewPostgres(opts.DB), nil
	}
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.ApplyMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	s := NewPostgres(conn).(*postgresStore)
	s.owned = true
	return s, nil
}

// NewPostgres builds a Store on an open connection with migrations applied.
func NewPostgres(conn *sql.DB) Store {
	return &postgresStore{
		conn:   conn,
		docs:   repo.NewDocumentRepo(conn),
		nowSec: func() int64 { return time.Now().Unix() },
	}
}

func (s *postgresStore) Insert(ctx context.Context, userID string, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	now := s.nowSec()
	rows := make([]*model.DocumentRow, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, &model.DocumentRow{
			UserID:    userID,
			Text:      c.Text,
			Embedding: c.Embedding,
			Ctime:     now,
		})
	}
	if err := s.docs.InsertBatch(ctx, rows); err != nil {
		return appErr.Upstream("postgres", err)
	}
	return nil
}

func (s *postgresStore) Match(ctx context.Context, userID string, embedding []float32, count int) ([]model.Match, error) {
	matches, err := s.docs.Match(ctx, userID, embedding, count)
	if err != nil {
		return nil, appErr.Upstream("postgres", err)
	}
	return matches, nil
}

func (s *postgresStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.conn.Close()
}
