package ipinfo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/httpclient"
)

const ipinfoBody = `{
  "ip": "8.8.8.8",
  "hostname": "dns.google",
  "city": "Mountain View",
  "region": "California",
  "country": "US",
  "loc": "37.4056,-122.0775",
  "org": "AS15169 Google LLC",
  "anycast": true
}`

func testClient(baseURL, token string) *Client {
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	cfg.Timeout = 2 * time.Second
	cfg.BreakerThreshold = 0
	return New(Options{BaseURL: baseURL, Token: token, HTTP: &cfg})
}

func TestClient_Lookup(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/8.8.8.8/json", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ipinfoBody))
	}))
	defer server.Close()

	c := testClient(server.URL+"/", "tok")
	info, err := c.Lookup(context.Background(), " 8.8.8.8 ")

	require.NoError(t, err)
	assert.Equal(t, "8.8.8.8", info.IP)
	assert.Equal(t, "dns.google", info.Hostname)
	assert.Equal(t, "Mountain View", info.City)
	assert.Equal(t, "US", info.Country)
	assert.Equal(t, "AS15169 Google LLC", info.Org)

	_, err = c.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second lookup should hit the cache")
}

func TestClient_LookupSparseResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"country": "DE"}`))
	}))
	defer server.Close()

	info, err := testClient(server.URL, "").Lookup(context.Background(), "1.1.1.1")

	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1", info.IP)
	assert.Equal(t, "DE", info.Country)
	assert.Empty(t, info.Org)
}

func TestClient_LookupErrors(t *testing.T) {
	t.Run("not an IP", func(t *testing.T) {
		_, err := testClient("http://127.0.0.1:1", "").Lookup(context.Background(), "example.com")
		assert.True(t, perrors.IsInvalidInput(err))
	})

	t.Run("rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := testClient(server.URL, "").Lookup(context.Background(), "8.8.8.8")
		assert.True(t, perrors.IsRateLimit(err))
	})

	t.Run("bad json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		defer server.Close()

		_, err := testClient(server.URL, "").Lookup(context.Background(), "8.8.8.8")
		assert.ErrorIs(t, err, perrors.ErrInvalidResponse)
	})
}
