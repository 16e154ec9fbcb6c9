package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

var httpClient = http.DefaultClient

// postJSON sends body as JSON and decodes a 2xx response into out. Transport
// and status failures are reported as upstream errors tagged with name.
func postJSON(ctx context.Context, name, endpoint string, headers map[string]string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return appErr.Upstream(name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return appErr.Upstream(name, fmt.Errorf("request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw))))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return appErr.Upstream(name, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
