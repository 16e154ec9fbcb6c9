package extract

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/config"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type decodeFunc func(ctx context.Context, data []byte) (string, error)

// buildDecoders maps path extensions to decoders. Markdown is read as
// plain text unless stripMarkdown is set.
func buildDecoders(stripMarkdown bool) map[string]decodeFunc {
	decoders := map[string]decodeFunc{
		".pdf":  pdfText,
		".docx": docxText,
		".xlsx": xlsxText,
	}
	if stripMarkdown {
		decoders[".md"] = markdownText
		decoders[".markdown"] = markdownText
	}
	return decoders
}

// Extractor fetches a document by URL and turns it into one text blob.
type Extractor struct {
	fetchers map[string]Fetcher
	decoders map[string]decodeFunc
	timeout  time.Duration
}

func New(cfg config.ExtractConfig) (*Extractor, error) {
	fetchers, err := buildFetchers(cfg)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		fetchers: fetchers,
		decoders: buildDecoders(cfg.StripMarkdown),
		timeout:  time.Duration(cfg.Timeout) * time.Second,
	}, nil
}

// SetFetcher replaces the fetcher of a scheme.
func (e *Extractor) SetFetcher(scheme string, f Fetcher) {
	e.fetchers[strings.ToLower(scheme)] = f
}

func (e *Extractor) Extract(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", appErr.NewValidationError("file_url", "malformed url")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return "", appErr.NewValidationError("file_url", "url must be absolute")
	}
	fetcher, ok := e.fetchers[scheme]
	if !ok {
		return "", appErr.NewValidationError("file_url", fmt.Sprintf("unsupported scheme %q", scheme))
	}

	fetchCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	data, err := fetcher.Fetch(fetchCtx, u.String())
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(u.Path))
	decode, ok := e.decoders[ext]
	if !ok {
		decode = plainText
	}
	out, err := decode(ctx, data)
	if err != nil {
		return "", err
	}
	logutil.GetLogger(ctx).Debug("document extracted",
		zap.String("scheme", scheme),
		zap.String("ext", ext),
		zap.Int("bytes", len(data)),
		zap.Int("text_size", len(out)),
	)
	return out, nil
}

func plainText(_ context.Context, data []byte) (string, error) {
	if err := validUTF8(data); err != nil {
		return "", err
	}
	return string(data), nil
}

func validUTF8(data []byte) error {
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: document is not valid utf-8 text", appErr.ErrUnsupportedContent)
	}
	return nil
}
