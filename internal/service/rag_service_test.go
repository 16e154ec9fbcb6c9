package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/chunker"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/store"
)

type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) []int {
	runes := []rune(text)
	out := make([]int, len(runes))
	for i, r := range runes {
		out[i] = int(r)
	}
	return out
}

func (runeTokenizer) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}

type mapExtractor map[string]string

func (m mapExtractor) Extract(ctx context.Context, rawURL string) (string, error) {
	text, ok := m[rawURL]
	if !ok {
		return "", appErr.ErrUpstream
	}
	return text, nil
}

var vocabulary = []string{"pump", "lubric", "monthly", "filter", "valve"}

// keywordEmbedder maps text to keyword counts so similar sentences land
// close together.
type keywordEmbedder struct {
	calls int
}

func (k *keywordEmbedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	k.calls++
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		lower := strings.ToLower(text)
		vec := make([]float32, len(vocabulary)+1)
		for i, word := range vocabulary {
			vec[i] = float32(strings.Count(lower, word))
		}
		vec[len(vocabulary)] = 0.01
		out = append(out, vec)
	}
	return out, nil
}

func (k *keywordEmbedder) ModelName() string { return "test:keywords" }

type recordingGenerator struct {
	prompts []string
}

func (r *recordingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if strings.Contains(prompt, "monthly") {
		return "The pump should be lubricated monthly.", nil
	}
	return "I could not find that in your documents.", nil
}

type countingStore struct {
	store.Store
	inserts int
}

func (c *countingStore) Insert(ctx context.Context, userID string, chunks []model.Chunk) error {
	c.inserts++
	return c.Store.Insert(ctx, userID, chunks)
}

type fixture struct {
	svc      *RAGService
	gen      *recordingGenerator
	embedder *keywordEmbedder
	store    *countingStore
}

func newFixture(t *testing.T, docs mapExtractor) *fixture {
	t.Helper()
	mem, err := store.NewMemory("", false)
	require.NoError(t, err)
	st := &countingStore{Store: mem}
	gen := &recordingGenerator{}
	emb := &keywordEmbedder{}
	svc := NewRAGService(docs, chunker.New(runeTokenizer{}, 40), emb, st, ai.NewAnswerer(gen, 0), Options{MatchCount: 5})
	return &fixture{svc: svc, gen: gen, embedder: emb, store: st}
}

func TestIngestThenChat(t *testing.T) {
	f := newFixture(t, mapExtractor{
		"https://files.example.com/manual.txt": "The pump requires monthly lubrication.",
	})
	ctx := context.Background()
	user := uuid.NewString()

	n, err := f.svc.Ingest(ctx, "https://files.example.com/manual.txt", user)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	answer, err := f.svc.Chat(ctx, user, "How often should the pump be lubricated?")
	require.NoError(t, err)
	require.Contains(t, answer, "monthly")
	require.Len(t, f.gen.prompts, 1)
	require.Contains(t, f.gen.prompts[0], "The pump requires monthly lubrication.")
	require.Contains(t, f.gen.prompts[0], "How often should the pump be lubricated?")
}

func TestIngestLongDocumentIsChunked(t *testing.T) {
	text := strings.Repeat("Check the valve. ", 10)
	f := newFixture(t, mapExtractor{"s3://manuals/valves.txt": text})
	n, err := f.svc.Ingest(context.Background(), "s3://manuals/valves.txt", uuid.NewString())
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, 1, f.embedder.calls)
}

func TestIngestEmptyDocument(t *testing.T) {
	f := newFixture(t, mapExtractor{"https://files.example.com/empty.txt": ""})
	n, err := f.svc.Ingest(context.Background(), "https://files.example.com/empty.txt", uuid.NewString())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, f.embedder.calls)
	require.Zero(t, f.store.inserts)
}

func TestChatWithoutDocuments(t *testing.T) {
	f := newFixture(t, mapExtractor{})
	answer, err := f.svc.Chat(context.Background(), uuid.NewString(), "How often should the pump be lubricated?")
	require.NoError(t, err)
	require.NotEmpty(t, answer)
	require.Len(t, f.gen.prompts, 1)
	require.Contains(t, f.gen.prompts[0], "Context:\n\n")
}

func TestIngestTwiceKeepsDuplicates(t *testing.T) {
	url := "https://files.example.com/manual.txt"
	f := newFixture(t, mapExtractor{url: "The pump requires monthly lubrication."})
	ctx := context.Background()
	user := uuid.NewString()
	for i := 0; i < 2; i++ {
		_, err := f.svc.Ingest(ctx, url, user)
		require.NoError(t, err)
	}
	contextText, err := f.svc.retriever.Retrieve(ctx, user, "pump lubrication")
	require.NoError(t, err)
	require.Equal(t, "The pump requires monthly lubrication. The pump requires monthly lubrication.", contextText)
}

func TestUserIDIsCanonicalised(t *testing.T) {
	url := "https://files.example.com/manual.txt"
	f := newFixture(t, mapExtractor{url: "The pump requires monthly lubrication."})
	ctx := context.Background()
	user := uuid.NewString()

	_, err := f.svc.Ingest(ctx, url, strings.ToUpper(user))
	require.NoError(t, err)
	answer, err := f.svc.Chat(ctx, "{"+user+"}", "pump?")
	require.NoError(t, err)
	require.Contains(t, answer, "monthly")
}

func TestInvalidInputs(t *testing.T) {
	f := newFixture(t, mapExtractor{})
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, "https://files.example.com/a.txt", "not-a-uuid")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	var verr *appErr.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "user_id", verr.Field)

	_, err = f.svc.Ingest(ctx, "  ", uuid.NewString())
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = f.svc.Chat(ctx, "12345", "question")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = f.svc.Chat(ctx, uuid.NewString(), "")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	require.Zero(t, f.embedder.calls)
	require.Empty(t, f.gen.prompts)
}

func TestIngestExtractFailure(t *testing.T) {
	f := newFixture(t, mapExtractor{})
	_, err := f.svc.Ingest(context.Background(), "https://files.example.com/missing.pdf", uuid.NewString())
	require.ErrorIs(t, err, appErr.ErrUpstream)
	require.Zero(t, f.store.inserts)
}

type failingEmbedder struct{ err error }

func (f failingEmbedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	return nil, f.err
}

func (f failingEmbedder) ModelName() string { return "test:failing" }

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Insert(ctx context.Context, userID string, chunks []model.Chunk) error {
	return f.err
}

// blockingStore waits for the caller's context on every call.
type blockingStore struct{}

func (blockingStore) Insert(ctx context.Context, userID string, chunks []model.Chunk) error {
	<-ctx.Done()
	return appErr.Upstream("postgres", ctx.Err())
}

func (blockingStore) Match(ctx context.Context, userID string, embedding []float32, count int) ([]model.Match, error) {
	<-ctx.Done()
	return nil, appErr.Upstream("postgres", ctx.Err())
}

func (blockingStore) Close() error { return nil }

func TestIngestEmbedFailureAborts(t *testing.T) {
	url := "https://files.example.com/manual.txt"
	mem, err := store.NewMemory("", false)
	require.NoError(t, err)
	st := &countingStore{Store: mem}
	boom := appErr.Upstream("openai", errors.New("status 500"))
	svc := NewRAGService(mapExtractor{url: "The pump requires monthly lubrication."},
		chunker.New(runeTokenizer{}, 40), failingEmbedder{err: boom}, st,
		ai.NewAnswerer(&recordingGenerator{}, 0), Options{})

	n, err := svc.Ingest(context.Background(), url, uuid.NewString())
	require.ErrorIs(t, err, appErr.ErrUpstream)
	require.Zero(t, n)
	require.Zero(t, st.inserts)
}

func TestIngestStoreFailureAborts(t *testing.T) {
	url := "https://files.example.com/manual.txt"
	mem, err := store.NewMemory("", false)
	require.NoError(t, err)
	boom := appErr.Upstream("supabase", errors.New("status 503"))
	emb := &keywordEmbedder{}
	svc := NewRAGService(mapExtractor{url: "The pump requires monthly lubrication."},
		chunker.New(runeTokenizer{}, 40), emb, failingStore{Store: mem, err: boom},
		ai.NewAnswerer(&recordingGenerator{}, 0), Options{})

	n, err := svc.Ingest(context.Background(), url, uuid.NewString())
	require.ErrorIs(t, err, appErr.ErrUpstream)
	require.Zero(t, n)
	require.Equal(t, 1, emb.calls)
}

func TestStoreCallsBoundedByTimeout(t *testing.T) {
	url := "https://files.example.com/manual.txt"
	gen := &recordingGenerator{}
	svc := NewRAGService(mapExtractor{url: "The pump requires monthly lubrication."},
		chunker.New(runeTokenizer{}, 40), &keywordEmbedder{}, blockingStore{},
		ai.NewAnswerer(gen, 0), Options{StoreTimeout: 50 * time.Millisecond})
	ctx := context.Background()
	user := uuid.NewString()

	_, err := svc.Ingest(ctx, url, user)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = svc.Chat(ctx, user, "pump?")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, gen.prompts)
}
