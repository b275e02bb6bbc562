// Package rest is the JSON-over-HTTP client shared by the venue gateways.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	textutil "perpdesk/internal/pkg/text"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// HTTPError is a non-2xx response from a venue API.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

type Client struct {
	name    string
	baseURL string
	http    *http.Client
	header  http.Header
	limiter *rate.Limiter
}

func New(name, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		header:  http.Header{},
	}
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(h *http.Client) {
	if h != nil {
		c.http = h
	}
}

// SetRateLimit throttles every request to rps with the given burst.
// rps <= 0 removes the limiter.
func (c *Client) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// SetHeader adds a header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.header.Set(key, value)
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	raw, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return parse(raw, path)
}

func (c *Client) Post(ctx context.Context, path string, body any) (gjson.Result, error) {
	raw, err := c.Do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return gjson.Result{}, err
	}
	return parse(raw, path)
}

// Do sends one request and returns the raw body of a 2xx response. body
// is JSON-encoded unless it is already a []byte.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s %s %s: rate limit: %w", c.name, method, path, err)
		}
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case []byte:
			reader = bytes.NewReader(b)
		default:
			buf, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("%s: encode %s body: %w", c.name, path, err)
			}
			reader = bytes.NewReader(buf)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: %w", c.name, method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", c.name, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := textutil.Truncate(string(raw), maxErrorBody)
		return nil, &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       text,
			RetryAfter: retryAfterFromHeader(resp.Header),
		}
	}
	return raw, nil
}

func parse(raw []byte, path string) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("invalid json from %s", path)
	}
	return gjson.ParseBytes(raw), nil
}

func retryAfterFromHeader(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
