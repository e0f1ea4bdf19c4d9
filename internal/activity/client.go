package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client reads activities from an HTTP ActivityStreams endpoint.
// It handles Bearer token authentication, JSON decoding and automatic
// retry with exponential backoff on HTTP 429.
//
// Endpoints, relative to the base URL:
//
//	GET /activities?activity_id=<id>         -> {"items": [Activity...]}
//	GET /comments/<id>?activity_id=<id>      -> Object
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMaxRetries sets how many times a rate-limited request is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// NewClient creates a client for the API rooted at baseURL. An empty token
// sends unauthenticated requests.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type activityPage struct {
	Items []Activity `json:"items"`
}

// GetActivities implements Source.
func (c *Client) GetActivities(ctx context.Context, activityID string) ([]Activity, error) {
	q := url.Values{}
	if activityID != "" {
		q.Set("activity_id", activityID)
	}
	var page activityPage
	if err := c.get(ctx, "/activities", q, &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		return []Activity{}, nil
	}
	return page.Items, nil
}

// GetComment implements Source.
func (c *Client) GetComment(ctx context.Context, commentID, activityID string) (Object, error) {
	q := url.Values{}
	if activityID != "" {
		q.Set("activity_id", activityID)
	}
	var obj Object
	if err := c.get(ctx, "/comments/"+url.PathEscape(commentID), q, &obj); err != nil {
		return Object{}, err
	}
	return obj, nil
}

// get builds the request, handles auth, rate limiting with exponential
// backoff and JSON decoding.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request GET %s: %w", path, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429) on GET %s", path)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("GET %s: %w", path, ErrNotFound)
		case resp.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("authentication failed (401): check the access token for %s", c.baseURL)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("unexpected status %d on GET %s: %s", resp.StatusCode, path, string(body))
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshaling response from GET %s: %w", path, err)
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
