package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/docqa/internal/model"
	"github.com/xxxsen/docqa/internal/pkg/dbutil"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// InsertBatch writes all rows with one multi-row INSERT.
func (r *DocumentRepo) InsertBatch(ctx context.Context, rows []*model.DocumentRow) error {
	if len(rows) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		data = append(data, map[string]interface{}{
			"user_id":   row.UserID,
			"text":      row.Text,
			"embedding": pgvector.NewVector(row.Embedding),
			"ctime":     row.Ctime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("documents", data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// Match runs the match_documents function for one user.
func (r *DocumentRepo) Match(ctx context.Context, userID string, embedding []float32, count int) ([]model.Match, error) {
	const query = `SELECT text, similarity FROM match_documents($1, $2, $3)`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(embedding), count, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Match
	for rows.Next() {
		var item model.Match
		if err := rows.Scan(&item.Text, &item.Similarity); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}
