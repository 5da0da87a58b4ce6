// Package fetch performs the HTTP GETs for the archiver.
package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"pagepack/internal/config"
	"pagepack/internal/logging"
)

// Response is a fetched resource
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// FetchError reports a non-2xx status or a transport failure after the retry budget
type FetchError struct {
	URL        string
	StatusCode int // 0 on transport failure
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: got non-2xx status-code=%d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher issues GET requests with browser-like headers.
// It is used from a single goroutine per run.
type Fetcher struct {
	client    *http.Client
	cache     *Cache
	userAgent string
	referer   string
	retries   int
	log       *logging.Logger
}

// Option customizes a Fetcher
type Option func(*Fetcher)

// WithClient replaces the HTTP client
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// New creates a fetcher from the run configuration and a per-run cache.
// A nil cache disables caching.
func New(cfg config.Config, cache *Cache, opts ...Option) *Fetcher {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	f := &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		cache:     cache,
		userAgent: cfg.UserAgent,
		referer:   cfg.SrcURL,
		retries:   retries,
		log:       logging.Discard(),
	}
	if f.userAgent == "" {
		f.userAgent = config.DefaultUserAgent
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body of url
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Get fetches url, retrying immediately on failure until the budget is spent
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	if resp, ok := f.cache.Get(url); ok {
		f.log.Debug.Printf("cache hit %s", url)
		return resp, nil
	}

	var lastErr *FetchError
	for attempt := 1; attempt <= f.retries; attempt++ {
		resp, status, err := f.getOnce(ctx, url)
		if err == nil && status/100 == 2 {
			f.cache.Put(url, resp)
			return resp, nil
		}

		lastErr = &FetchError{URL: url, StatusCode: status, Attempts: attempt, Err: err}
		if ctx.Err() != nil {
			break
		}
		if attempt < f.retries {
			f.log.Debug.Printf("retrying %s (attempt %d/%d)", url, attempt+1, f.retries)
		}
	}
	return nil, lastErr
}

func (f *Fetcher) getOnce(ctx context.Context, url string) (*Response, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "building request")
	}
	f.setHeaders(req)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "fetching url")
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, 0, errors.Wrap(err, "reading body")
	}
	f.log.Debug.Printf("GET %s -> %d (%d bytes, %s)", url, resp.StatusCode, len(body), time.Since(start).Round(time.Millisecond))

	return &Response{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, resp.StatusCode, nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	if f.referer != "" {
		req.Header.Set("Referer", f.referer)
	}
}

// decodeBody reads the response, undoing gzip or deflate content encoding.
// Accept-Encoding is set explicitly, so the transport does not do it for us.
func decodeBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer gr.Close()
		r = gr
	case "deflate":
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		// Servers disagree on whether deflate means zlib-wrapped or raw
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			return io.ReadAll(zr)
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return io.ReadAll(fr)
	}
	return io.ReadAll(r)
}
