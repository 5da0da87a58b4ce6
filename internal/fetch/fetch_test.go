package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagepack/internal/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.UserAgent = "pagepack-test"
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestGetSuccess(t *testing.T) {
	var gotUA, gotReferer, gotPragma string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotPragma = r.Header.Get("Pragma")
		w.Header().Set("Content-Type", "text/css")
		w.Write([]byte("body{color:red}"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.SrcURL = "http://ex.com/page.html"
	f := New(cfg, nil)

	resp, err := f.Get(context.Background(), srv.URL+"/site.css")
	require.NoError(t, err)
	assert.Equal(t, "body{color:red}", string(resp.Body))
	assert.Equal(t, "text/css", resp.ContentType)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pagepack-test", gotUA)
	assert.Equal(t, "http://ex.com/page.html", gotReferer)
	assert.Equal(t, "no-cache", gotPragma)
}

func TestGetGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		gw.Write([]byte("compressed payload"))
		gw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	body, err := New(testConfig(), nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "compressed payload", string(body))
}

func TestGetNon2xx(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		retries int
	}{
		{name: "single attempt", retries: 1},
		{name: "three attempts", retries: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atomic.StoreInt32(&hits, 0)
			cfg := testConfig()
			cfg.Retries = tt.retries

			_, err := New(cfg, nil).Get(context.Background(), srv.URL)
			require.Error(t, err)

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
			assert.Equal(t, tt.retries, fetchErr.Attempts)
			assert.Equal(t, int32(tt.retries), atomic.LoadInt32(&hits))
			assert.Contains(t, err.Error(), "status-code=403")
		})
	}
}

func TestGetRetryRecovers(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Retries = 2
	body, err := New(cfg, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestGetTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(testConfig(), nil).Get(context.Background(), url)
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
	assert.NotNil(t, fetchErr.Unwrap())
}

func TestGetUsesCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("asset"))
	}))
	defer srv.Close()

	cache := NewCache()
	f := New(testConfig(), cache)

	for i := 0; i < 3; i++ {
		body, err := f.Fetch(context.Background(), srv.URL+"/a.png")
		require.NoError(t, err)
		assert.Equal(t, "asset", string(body))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, 1, cache.Len())

	// A fresh cache per run means a fresh fetch
	_, err := New(testConfig(), NewCache()).Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestNilCache(t *testing.T) {
	var c *Cache
	c.Put("x", &Response{})
	_, ok := c.Get("x")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
