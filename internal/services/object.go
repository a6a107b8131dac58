// Object storage client for song documents and the catalog index
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/songdeck/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// ObjectClient performs rate-limited GET requests against a static object store.
type ObjectClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewObjectClient creates a client for baseURL. A nil client uses [http.DefaultClient] and a nil
// limiter does not limit.
func NewObjectClient(baseURL string, client *http.Client, limiter *rate.Limiter) *ObjectClient {
	if client == nil {
		client = http.DefaultClient
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}

	return &ObjectClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		limiter:    limiter,
	}
}

// NewHTTPClient builds the HTTP client for cfg: OAuth2 client-credentials when [shared.AuthConfig]
// is complete, a plain client otherwise. Both use the configured timeout.
func NewHTTPClient(ctx context.Context, cfg shared.CatalogConfig) *http.Client {
	if !cfg.Auth.Enabled() {
		return &http.Client{Timeout: cfg.Timeout()}
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		TokenURL:     cfg.Auth.TokenURL,
	}
	client := cc.Client(ctx)
	client.Timeout = cfg.Timeout()
	return client
}

// NewLimiter returns the limiter for cfg; unlimited when no rate is configured.
func NewLimiter(cfg shared.CatalogConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}

// ObjectResponse is a successful object fetch.
type ObjectResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsJSON reports whether the body parses as JSON.
func (r *ObjectResponse) IsJSON() bool {
	return json.Valid(r.Body)
}

// BaseURL returns the object store root.
func (c *ObjectClient) BaseURL() string { return c.baseURL }

// URL resolves path against the base URL. Absolute URLs are returned unchanged.
func (c *ObjectClient) URL(path string) (string, error) {
	if isRemote(path) || c.baseURL == "" {
		return path, nil
	}
	return url.JoinPath(c.baseURL, strings.Split(strings.TrimLeft(path, "/"), "/")...)
}

// Get fetches path. A 404 maps to [shared.ErrDocumentNotFound]; transport failures and other
// non-2xx statuses map to [shared.ErrFetchFailed].
func (c *ObjectClient) Get(ctx context.Context, path string) (*ObjectResponse, error) {
	fullURL, err := c.URL(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", shared.ErrFetchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrFetchFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s returned %d", shared.ErrFetchFailed, path, resp.StatusCode)
	}

	return &ObjectResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

// GetJSON fetches path and decodes the body into v.
func (c *ObjectClient) GetJSON(ctx context.Context, path string, v any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON from %s: %w", shared.ErrFetchFailed, path, err)
	}
	return nil
}
