package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Error taxonomy for upstream calls.
var (
	// ErrUpstreamUnavailable covers non-2xx responses and transport failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamMalformed covers bodies that cannot be decoded.
	ErrUpstreamMalformed = errors.New("upstream malformed")
)

// APIError represents a non-success response from an upstream API.
type APIError struct {
	Upstream   string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error %d: %s", e.Upstream, e.StatusCode, e.Message)
}

// Unwrap lets errors.Is(err, ErrUpstreamUnavailable) match API errors.
func (e *APIError) Unwrap() error {
	return ErrUpstreamUnavailable
}

// fetch performs a single GET. Upstream calls are never retried; a failure is
// reported to the caller as is.
func (c *Client) fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range c.header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("upstream request failed", "upstream", c.name, "path", path, "error", err)
		return nil, fmt.Errorf("%w: do request: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("upstream returned error status", "upstream", c.name, "path", path, "status", resp.StatusCode)
		return nil, &APIError{
			Upstream:   c.name,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// getRaw performs a GET and returns the body after checking it is well-formed JSON.
func (c *Client) getRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, err := c.fetch(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s%s returned invalid json", ErrUpstreamMalformed, c.name, path)
	}
	return body, nil
}

// get performs a GET request and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.fetch(ctx, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: unmarshal response: %w", ErrUpstreamMalformed, err)
	}

	return nil
}
