package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xxxsen/docqa/internal/config"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

// Fetcher downloads the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetcherFactory builds a Fetcher for one URL scheme. A nil Fetcher with a
// nil error leaves the scheme disabled.
type FetcherFactory func(cfg config.ExtractConfig) (Fetcher, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]FetcherFactory{}
)

func RegisterFetcher(scheme string, factory FetcherFactory) {
	key := strings.ToLower(strings.TrimSpace(scheme))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func buildFetchers(cfg config.ExtractConfig) (map[string]Fetcher, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make(map[string]Fetcher, len(registry))
	for scheme, factory := range registry {
		f, err := factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("init %s fetcher: %w", scheme, err)
		}
		if f == nil {
			continue
		}
		out[scheme] = f
	}
	return out, nil
}

// readLimited reads r fully, failing with ErrTooLarge once more than
// maxBytes arrive. maxBytes <= 0 disables the cap.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", appErr.ErrTooLarge, maxBytes)
	}
	return data, nil
}
