package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type fakeRAG struct {
	ingestErr error
	chatErr   error
	chunks    int
	answer    string
	gotURL    string
	gotUser   string
	gotQuery  string
}

func (f *fakeRAG) Ingest(ctx context.Context, fileURL, userID string) (int, error) {
	f.gotURL, f.gotUser = fileURL, userID
	if f.ingestErr != nil {
		return 0, f.ingestErr
	}
	return f.chunks, nil
}

func (f *fakeRAG) Chat(ctx context.Context, userID, query string) (string, error) {
	f.gotUser, f.gotQuery = userID, query
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.answer, nil
}

func newRouter(rag RAGService, favicon string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(&r.RouterGroup, RouterDeps{
		RAG:    NewRAGHandler(rag),
		Health: NewHealthHandler(favicon),
	})
	return r
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok, rec.Body.String())
	return errObj["code"].(string)
}

func TestProcessDocumentForm(t *testing.T) {
	rag := &fakeRAG{chunks: 3}
	rec := postForm(newRouter(rag, ""), "/process_document", url.Values{
		"file_url": {"https://files.example.com/manual.pdf"},
		"user_id":  {"0b8d1f0e-8c55-4c5e-9a0e-1d2f3a4b5c6d"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, float64(3), body["chunks"])
	require.Equal(t, "https://files.example.com/manual.pdf", rag.gotURL)
	require.Equal(t, "0b8d1f0e-8c55-4c5e-9a0e-1d2f3a4b5c6d", rag.gotUser)
}

func TestChatJSON(t *testing.T) {
	rag := &fakeRAG{answer: "Lubricate it monthly."}
	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"user_id":"0b8d1f0e-8c55-4c5e-9a0e-1d2f3a4b5c6d","query":"How often?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newRouter(rag, "").ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Lubricate it monthly.", decode(t, rec)["answer"])
	require.Equal(t, "How often?", rag.gotQuery)
}

func TestChatMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_id":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newRouter(&fakeRAG{}, "").ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_argument", errorCode(t, rec))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", appErr.NewValidationError("user_id", "must be a valid UUID"), http.StatusBadRequest, "invalid_argument"},
		{"invalid", fmt.Errorf("chunk: %w", appErr.ErrInvalid), http.StatusBadRequest, "invalid_argument"},
		{"too large", appErr.ErrTooLarge, http.StatusRequestEntityTooLarge, "too_large"},
		{"unsupported", fmt.Errorf("pdf: %w", appErr.ErrUnsupportedContent), http.StatusUnprocessableEntity, "unsupported_content"},
		{"not found", fmt.Errorf("file: %w", appErr.ErrNotFound), http.StatusNotFound, "not_found"},
		{"unavailable", appErr.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{"timeout", appErr.Upstream("openai", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"upstream", appErr.Upstream("fetch", fmt.Errorf("status 404")), http.StatusBadGateway, "upstream"},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rag := &fakeRAG{ingestErr: tc.err, chatErr: tc.err}
			r := newRouter(rag, "")

			rec := postForm(r, "/process_document", url.Values{"file_url": {"x"}, "user_id": {"y"}})
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, errorCode(t, rec))

			rec = postForm(r, "/chat", url.Values{"user_id": {"y"}, "query": {"q"}})
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestValidationMessageNamesField(t *testing.T) {
	rag := &fakeRAG{chatErr: appErr.NewValidationError("user_id", "must be a valid UUID")}
	rec := postForm(newRouter(rag, ""), "/chat", url.Values{"user_id": {"12345"}, "query": {"q"}})
	body := decode(t, rec)
	require.Equal(t, "invalid user_id: must be a valid UUID", body["error"].(map[string]interface{})["message"])
}

func TestRoot(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeRAG{}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "docqa is running", decode(t, rec)["message"])
}

func TestFavicon(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeRAG{}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	path := filepath.Join(t.TempDir(), "favicon.ico")
	require.NoError(t, os.WriteFile(path, []byte("icon"), 0o644))
	rec = httptest.NewRecorder()
	newRouter(&fakeRAG{}, path).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "icon", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeRAG{}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
