package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/we-worker/All-In-One-Web/internal/reqcache"
)

const userAgent = "all-in-one-web-sync/0.1"

// Client is a thin HTTP client for the provider APIs. It attaches the
// bearer token, encodes JSON bodies, classifies error statuses into
// sentinel errors, and routes GET requests through the request cache.
//
// There is no transport-level retry here: the sync engine's failure policy
// is fail-fast, with the single revision-conflict retry handled by the
// Adapter where the conflict is meaningful.
type Client struct {
	httpClient *http.Client
	token      string
	cache      *reqcache.Cache
	logger     *slog.Logger
}

// NewClient creates a provider HTTP client. A nil httpClient falls back to
// http.DefaultClient; a nil cache disables read de-duplication.
func NewClient(httpClient *http.Client, token string, cache *reqcache.Cache, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		token:      token,
		cache:      cache,
		logger:     logger,
	}
}

// Get issues a GET through the request cache. Concurrent identical reads
// share one network call; settled outcomes stay cached for the TTL window.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if c.cache == nil {
		return c.do(ctx, http.MethodGet, url, nil)
	}

	return c.cache.Do(cacheKey(http.MethodGet, url), func() ([]byte, error) {
		return c.do(ctx, http.MethodGet, url, nil)
	})
}

// Send issues a mutating request with an optional JSON body.
func (c *Client) Send(ctx context.Context, method, url string, body any) ([]byte, error) {
	var payload io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: encoding request body: %w", err)
		}

		payload = bytes.NewReader(raw)
	}

	return c.do(ctx, method, url, payload)
}

// Forget drops the cached GET outcome for url. Callers invalidate after a
// mutation so the next read observes the new state instead of a stale
// cached response. The read URL can differ from the mutation URL (branch
// query parameter), which is why invalidation is explicit.
func (c *Client) Forget(url string) {
	if c.cache != nil {
		c.cache.Forget(cacheKey(http.MethodGet, url))
	}
}

// do executes a single HTTP request and returns the response body.
// Non-2xx statuses are converted to *APIError with a sentinel.
func (c *Client) do(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("remote: creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil && resp.StatusCode < http.StatusMultipleChoices {
		return nil, fmt.Errorf("remote: reading response body: %w", readErr)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("url", url),
			slog.Int("status", resp.StatusCode),
		)

		return raw, nil
	}

	if readErr != nil {
		raw = []byte("(failed to read response body)")
	}

	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(raw),
		Err:        classifyStatus(resp.StatusCode),
	}
}

func cacheKey(method, url string) string {
	return method + " " + url
}
