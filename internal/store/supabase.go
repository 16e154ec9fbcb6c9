package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const (
	defaultSupabaseTable    = "documents"
	defaultSupabaseFunction = "match_documents"
)

// supabaseStore talks to the PostgREST endpoint of a Supabase project. The
// table and the match function are the ones created by the postgres
// migrations.
type supabaseStore struct {
	client     *http.Client
	baseURL    string
	serviceKey string
	table      string
	function   string
}

type supabaseRow struct {
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

type supabaseMatchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchCount     int       `json:"match_count"`
	UserID         string    `json:"user_id"`
}

func init() {
	Register("supabase", createSupabaseStore)
}

func createSupabaseStore(_ context.Context, cfg config.StoreConfig, _ Options) (Store, error) {
	sc := cfg.Supabase
	if strings.TrimSpace(sc.URL) == "" || strings.TrimSpace(sc.ServiceKey) == "" {
		return nil, fmt.Errorf("supabase url and service_key are required")
	}
	table := sc.Table
	if table == "" {
		table = defaultSupabaseTable
	}
	function := sc.Function
	if function == "" {
		function = defaultSupabaseFunction
	}
	return &supabaseStore{
		client:     http.DefaultClient,
		baseURL:    strings.TrimRight(sc.URL, "/"),
		serviceKey: sc.ServiceKey,
		table:      table,
		function:   function,
	}, nil
}

func (s *supabaseStore) Insert(ctx context.Context, userID string, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]supabaseRow, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, supabaseRow{UserID: userID, Text: c.Text, Embedding: c.Embedding})
	}
	return s.post(ctx, "/rest/v1/"+s.table, rows, nil)
}

func (s *supabaseStore) Match(ctx context.Context, userID string, embedding []float32, count int) ([]model.Match, error) {
	var out []model.Match
	req := supabaseMatchRequest{QueryEmbedding: embedding, MatchCount: count, UserID: userID}
	if err := s.post(ctx, "/rest/v1/rpc/"+s.function, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *supabaseStore) Close() error {
	return nil
}

func (s *supabaseStore) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	if out == nil {
		req.Header.Set("Prefer", "return=minimal")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return appErr.Upstream("supabase", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return appErr.Upstream("supabase", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return appErr.Upstream("supabase", fmt.Errorf("decode response: %w", err))
	}
	return nil
}
