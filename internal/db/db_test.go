package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/config"
)

func TestSplitStatements(t *testing.T) {
	script := `CREATE TABLE a (id int);

CREATE FUNCTION f() RETURNS int LANGUAGE plpgsql AS $$
BEGIN
    RETURN 1;
END
$$;
`
	got := splitStatements(script)
	require.Len(t, got, 2)
	require.Equal(t, "CREATE TABLE a (id int)", got[0])
	require.Contains(t, got[1], "RETURN 1;")
	require.True(t, strings.HasSuffix(got[1], "$$"))
}

func TestEmbeddedMigrations(t *testing.T) {
	content, err := fs.ReadFile(migrationsFS, "migrations/001_documents.sql")
	require.NoError(t, err)
	statements := splitStatements(string(content))
	require.Len(t, statements, 4)
	require.Contains(t, statements[3], "match_documents(query_embedding vector, match_count int, user_id uuid)")
}

func TestDSN(t *testing.T) {
	require.Equal(t, "postgres://x", DSN(config.DatabaseConfig{DSN: "postgres://x"}))
	require.Equal(t,
		"host=db port=5432 user=docqa password=pw dbname=docqa sslmode=disable",
		DSN(config.DatabaseConfig{Host: "db", User: "docqa", Password: "pw", DBName: "docqa"}),
	)
}
