package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/model"
	"github.com/xxxsen/docqa/internal/repo"
	"github.com/xxxsen/docqa/internal/testutil"
)

func TestDocumentRepoInsertAndMatch(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()
	userID := uuid.NewString()
	other := uuid.NewString()
	now := time.Now().Unix()

	rows := []*model.DocumentRow{
		{UserID: userID, Text: "The pump requires monthly lubrication.", Embedding: []float32{1, 0, 0}, Ctime: now},
		{UserID: userID, Text: "Replace the filter yearly.", Embedding: []float32{0, 1, 0}, Ctime: now},
		{UserID: other, Text: "Other tenant text.", Embedding: []float32{1, 0, 0}, Ctime: now},
	}
	require.NoError(t, docs.InsertBatch(ctx, rows))
	require.NoError(t, docs.InsertBatch(ctx, nil))

	matches, err := docs.Match(ctx, userID, []float32{1, 0.1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "The pump requires monthly lubrication.", matches[0].Text)
	require.Greater(t, matches[0].Similarity, matches[1].Similarity)

	// re-ingesting appends
	require.NoError(t, docs.InsertBatch(ctx, rows[:1]))
	all, err := docs.Match(ctx, userID, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)

	empty, err := docs.Match(ctx, uuid.NewString(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestEmbeddingCacheRepo(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	cache := repo.NewEmbeddingCacheRepo(db)
	ctx := context.Background()
	modelName := "test:" + uuid.NewString()
	require.NoError(t, cache.Save(ctx, &model.EmbeddingCache{
		ModelName: modelName, TaskType: "RETRIEVAL_DOCUMENT", ContentHash: "h1",
		Embedding: []float32{0.5, 0.25}, Ctime: 100,
	}))
	require.NoError(t, cache.Save(ctx, &model.EmbeddingCache{
		ModelName: modelName, TaskType: "RETRIEVAL_DOCUMENT", ContentHash: "h1",
		Embedding: []float32{0.75, 0.25}, Ctime: 200,
	}))

	got, err := cache.GetMany(ctx, modelName, "RETRIEVAL_DOCUMENT", []string{"h1", "h2"})
	require.NoError(t, err)
	require.Equal(t, map[string][]float32{"h1": {0.75, 0.25}}, got)

	deleted, err := cache.DeleteBefore(ctx, 300)
	require.NoError(t, err)
	require.GreaterOrEqual(t, deleted, int64(1))
}
