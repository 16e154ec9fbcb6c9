package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/xxxsen/docqa/internal/config"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type fileFetcher struct {
	maxBytes int64
}

func init() {
	RegisterFetcher("file", createFileFetcher)
}

// file:// is only served when explicitly allowed, the HTTP API would
// otherwise read arbitrary local paths.
func createFileFetcher(cfg config.ExtractConfig) (Fetcher, error) {
	if !cfg.AllowFileScheme {
		return nil, nil
	}
	return &fileFetcher{maxBytes: cfg.MaxBytes}, nil
}

func (f *fileFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, appErr.NewValidationError("file_url", err.Error())
	}
	if u.Path == "" {
		return nil, appErr.NewValidationError("file_url", "file url has no path")
	}
	file, err := os.Open(u.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", appErr.ErrNotFound, u.Path)
		}
		return nil, err
	}
	defer file.Close()
	return readLimited(file, f.maxBytes)
}
