package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/xxxsen/docqa/internal/config"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type httpFetcher struct {
	client   *http.Client
	maxBytes int64
}

func init() {
	RegisterFetcher("http", createHTTPFetcher)
	RegisterFetcher("https", createHTTPFetcher)
}

func createHTTPFetcher(cfg config.ExtractConfig) (Fetcher, error) {
	return &httpFetcher{client: http.DefaultClient, maxBytes: cfg.MaxBytes}, nil
}

func (f *httpFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, appErr.NewValidationError("file_url", err.Error())
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, appErr.Upstream("fetch", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, appErr.Upstream("fetch", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: document is %d bytes, limit %d", appErr.ErrTooLarge, resp.ContentLength, f.maxBytes)
	}
	data, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		if errors.Is(err, appErr.ErrTooLarge) {
			return nil, err
		}
		return nil, appErr.Upstream("fetch", err)
	}
	return data, nil
}
