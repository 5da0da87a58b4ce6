// Package source loads the document to archive from a file, stdin or the web.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/net/html/charset"

	"pagepack/internal/config"
	"pagepack/internal/fetch"
)

// renderTimeout bounds a headless browser session
const renderTimeout = 30 * time.Second

// Fetcher retrieves the document. *fetch.Fetcher satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Response, error)
}

// Load returns the document selected by cfg, decoded to UTF-8:
// rendered or plain download of SrcURL, the Input file, or stdin.
func Load(ctx context.Context, cfg config.Config, fetcher Fetcher, stdin io.Reader) (string, error) {
	switch {
	case cfg.Render:
		return Render(ctx, cfg.SrcURL, cfg.UserAgent)
	case cfg.Download:
		return Download(ctx, fetcher, cfg.SrcURL)
	case cfg.Input != "":
		return ReadFile(cfg.Input)
	default:
		return Read(stdin)
	}
}

// Download fetches url. A failure here is always fatal.
func Download(ctx context.Context, fetcher Fetcher, url string) (string, error) {
	resp, err := fetcher.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return decode(resp.Body, resp.ContentType)
}

// Render loads url in headless Chrome and returns the outer HTML of the
// rendered document
func Render(ctx context.Context, url, userAgent string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	taskCtx, cancel = context.WithTimeout(taskCtx, renderTimeout)
	defer cancel()

	var res string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &res, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}
	return res, nil
}

// ReadFile reads a local document; a leading ~ is expanded
func ReadFile(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path %s: %w", path, err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return decode(data, "text/html")
}

// Read reads a document from r
func Read(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	return decode(data, "text/html")
}

// decode converts body to UTF-8 using the Content-Type, a BOM or a <meta charset>.
// Undetermined encodings are taken as UTF-8.
func decode(body []byte, contentType string) (string, error) {
	encoding, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (name == "windows-1252" && !certain) {
		return strings.TrimPrefix(string(body), "\uFEFF"), nil
	}

	decoded, err := encoding.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s document: %w", name, err)
	}
	return string(decoded), nil
}
