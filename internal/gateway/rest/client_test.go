package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/candles", r.URL.Path)
		assert.Equal(t, "1MIN", r.URL.Query().Get("resolution"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		_, _ = io.WriteString(w, `{"candles":[{"open":"1.5"}]}`)
	}))
	defer srv.Close()

	c := New("dydx", srv.URL+"/", time.Second)
	c.SetHeader("X-Test", "yes")
	res, err := c.Get(context.Background(), "/v4/candles", url.Values{"resolution": {"1MIN"}})
	require.NoError(t, err)
	assert.Equal(t, "1.5", res.Get("candles.0.open").String())
}

func TestPostSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"type":"meta"}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"universe":[]}`)
	}))
	defer srv.Close()

	res, err := New("hyperliquid", srv.URL, 0).Post(context.Background(), "/info", map[string]string{"type": "meta"})
	require.NoError(t, err)
	assert.True(t, res.Get("universe").IsArray())
}

func TestNon2xxIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "slow down")
	}))
	defer srv.Close()

	_, err := New("lighter", srv.URL, time.Second).Get(context.Background(), "/api/v1/recentTrades", nil)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, 3*time.Second, httpErr.RetryAfter)
	assert.Equal(t, "GET /api/v1/recentTrades: status 429: slow down", err.Error())
}

func TestInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	defer srv.Close()

	_, err := New("gmx", srv.URL, time.Second).Get(context.Background(), "/prices/tickers", nil)
	assert.ErrorContains(t, err, "invalid json")
}

func TestRateLimitHonoursContext(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := New("gmx", srv.URL, time.Second)
	c.SetRateLimit(0.01, 1)
	_, err := c.Get(context.Background(), "/prices/tickers", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, "/prices/tickers", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, 1, hits)

	c.SetRateLimit(0, 0)
	_, err = c.Get(context.Background(), "/prices/tickers", nil)
	assert.NoError(t, err)
}
