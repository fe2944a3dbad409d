package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/findworkai/aigate/internal/auth"
	"github.com/findworkai/aigate/internal/balance"
	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
	"github.com/findworkai/aigate/internal/headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIncoming(t *testing.T, path, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "http://gateway.local"+path, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	return req
}

func TestClient_RewritesToUpstream(t *testing.T) {
	var gotPath, gotAuth, gotAgent, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get(constants.HeaderAuthorization)
		gotAgent = r.Header.Get(constants.HeaderUserAgent)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, err := New("ai", &config.HTTPClientConfig{KeepAlive: 60000}, nil)
	require.NoError(t, err)
	defer c.Close()

	authenticator, err := auth.NewBearerAuthenticator("sk-upstream")
	require.NoError(t, err)

	t.Run("base url keeps client path", func(t *testing.T) {
		resp, err := c.Do(newIncoming(t, "/api/mcp-enhanced", `{"prompt":"hi"}`), &balance.Upstream{
			Name: "mcp", URL: server.URL, Authenticator: authenticator,
		})
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "/api/mcp-enhanced", gotPath)
		assert.Equal(t, "Bearer sk-upstream", gotAuth)
		assert.Equal(t, constants.UserAgent, gotAgent)
		assert.Equal(t, `{"prompt":"hi"}`, gotBody)
	})

	t.Run("upstream path overrides", func(t *testing.T) {
		resp, err := c.Do(newIncoming(t, "/api/mcp-enhanced", "{}"), &balance.Upstream{
			Name: "mcp", URL: server.URL + "/v1/generate",
		})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "/v1/generate", gotPath)
	})

	t.Run("invalid upstream", func(t *testing.T) {
		_, err := c.Do(newIncoming(t, "/", ""), &balance.Upstream{Name: "bad", URL: "no-host"})
		assert.Error(t, err)
	})

	t.Run("nil arguments", func(t *testing.T) {
		_, err := c.Do(nil, &balance.Upstream{})
		assert.ErrorIs(t, err, ErrNilRequest)
		_, err = c.Do(newIncoming(t, "/", ""), nil)
		assert.ErrorIs(t, err, ErrNilUpstream)
	})
}

func TestClient_HeaderRewrite(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	c, err := New("ai", &config.HTTPClientConfig{}, nil)
	require.NoError(t, err)
	defer c.Close()

	rewriter, err := headers.New([]config.HeaderOpConfig{
		{Op: constants.HeaderOpRemove, Key: "X-User-ID"},
		{Op: constants.HeaderOpReplace, Key: constants.HeaderUserAgent, Value: "findwork-worker"},
		{Op: constants.HeaderOpInsert, Key: "X-Model", Value: "default"},
	})
	require.NoError(t, err)

	req := newIncoming(t, "/v1/chat", "{}")
	req.Header.Set("X-User-ID", "user-42")
	resp, err := c.Do(req, &balance.Upstream{Name: "mcp", URL: server.URL, Headers: rewriter})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, got.Get("X-User-ID"))
	assert.Equal(t, "findwork-worker", got.Get(constants.HeaderUserAgent))
	assert.Equal(t, "default", got.Get("X-Model"))
}

func TestClient_RetriesRetryableStatus(t *testing.T) {
	var (
		calls  atomic.Int32
		mu     sync.Mutex
		bodies []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("generated"))
	}))
	defer server.Close()

	c, err := New("ai", &config.HTTPClientConfig{Retry: &config.RetryConfig{Attempts: 3, Initial: 100}}, nil)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Do(newIncoming(t, "/api/mcp-enhanced", "payload"), &balance.Upstream{Name: "mcp", URL: server.URL})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"payload", "payload", "payload"}, bodies)
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c, err := New("ai", &config.HTTPClientConfig{Retry: &config.RetryConfig{Attempts: 2, Initial: 100}}, nil)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Do(newIncoming(t, "/", ""), &balance.Upstream{Name: "mcp", URL: server.URL})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := New("ai", &config.HTTPClientConfig{Retry: &config.RetryConfig{Attempts: 2, Initial: 100}}, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Do(newIncoming(t, "/", "x"), &balance.Upstream{Name: "mcp", URL: url})
	assert.Error(t, err)
}

func TestClient_Closed(t *testing.T) {
	c, err := New("ai", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ai", c.Name())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Do(newIncoming(t, "/", ""), &balance.Upstream{Name: "mcp", URL: "http://127.0.0.1:1"})
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestRetryPolicy_Delay(t *testing.T) {
	policy := newRetryPolicy(&config.RetryConfig{Attempts: 5, Initial: 500})
	assert.Equal(t, 5, policy.attempts)
	assert.Equal(t, 500*time.Millisecond, policy.delay(0))
	assert.Equal(t, time.Second, policy.delay(1))
	assert.Equal(t, 4*time.Second, policy.delay(3))
	assert.Equal(t, 30*time.Second, policy.delay(20))

	assert.Equal(t, 1, newRetryPolicy(nil).attempts)
}

func TestRetryPolicy_ContextCanceled(t *testing.T) {
	policy := newRetryPolicy(&config.RetryConfig{Attempts: 3, Initial: 60000})
	ctx, cancel := context.WithCancel(context.Background())

	resp, err := policy.do(ctx, func(int) (*http.Response, error) {
		cancel()
		return &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(bytes.NewReader(nil))}, nil
	})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProxyFunc(t *testing.T) {
	fn, err := proxyFunc(nil)
	require.NoError(t, err)
	assert.NotNil(t, fn)

	fn, err = proxyFunc(&config.ProxyConfig{URL: "http://proxy.local:3128"})
	require.NoError(t, err)
	proxied, err := fn(httptest.NewRequest(http.MethodGet, "http://ai.local", nil))
	require.NoError(t, err)
	assert.Equal(t, "proxy.local:3128", proxied.Host)

	_, err = proxyFunc(&config.ProxyConfig{URL: "proxy.local"})
	assert.Error(t, err)
}
