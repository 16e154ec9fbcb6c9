package ai

import (
	"context"
	"fmt"
	"strings"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const defaultCohereBaseURL = "https://api.cohere.com"

type cohereConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type cohereProvider struct {
	apiKey  string
	baseURL string
}

type cohereChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIChatMsg `json:"messages"`
	Temperature float32         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type cohereChatResponse struct {
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

type cohereEmbedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

type cohereEmbedResponse struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

func (p *cohereProvider) Name() string {
	return "cohere"
}

func (p *cohereProvider) Generate(ctx context.Context, model string, prompt string, opts GenerateOptions) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	reqBody := cohereChatRequest{
		Model:       model,
		Messages:    []openAIChatMsg{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	var out cohereChatResponse
	if err := postJSON(ctx, "cohere", p.endpoint("/v2/chat"), p.headers(), reqBody, &out); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, part := range out.Message.Content {
		if part.Type == "" || part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", appErr.Upstream("cohere", fmt.Errorf("response has no text content"))
	}
	return strings.TrimSpace(sb.String()), nil
}

func (p *cohereProvider) Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	reqBody := cohereEmbedRequest{
		Model:          model,
		Texts:          texts,
		InputType:      cohereInputType(taskType),
		EmbeddingTypes: []string{"float"},
	}
	var out cohereEmbedResponse
	if err := postJSON(ctx, "cohere", p.endpoint("/v2/embed"), p.headers(), reqBody, &out); err != nil {
		return nil, err
	}
	return out.Embeddings.Float, nil
}

func (p *cohereProvider) endpoint(path string) string {
	return strings.TrimRight(p.baseURL, "/") + path
}

func (p *cohereProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}

func cohereInputType(taskType string) string {
	switch taskType {
	case TaskRetrievalQuery:
		return "search_query"
	default:
		return "search_document"
	}
}

func newCohereProvider(args interface{}) (*cohereProvider, error) {
	cfg := &cohereConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultCohereBaseURL
	}
	return &cohereProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
	}, nil
}

func createCohereFactory(args interface{}) (IProvider, error) {
	return newCohereProvider(args)
}

func createCohereEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newCohereProvider(args)
}

func init() {
	Register("cohere", createCohereFactory)
	RegisterEmbed("cohere", createCohereEmbedFactory)
}
