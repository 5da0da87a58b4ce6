// Package inliner turns an HTML document into a single self-contained file by
// inlining its favicon, stylesheets, scripts and images.
package inliner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pagepack/internal/config"
	"pagepack/internal/css"
	"pagepack/internal/fetch"
	"pagepack/internal/html"
	"pagepack/internal/logging"
	"pagepack/internal/urlref"
)

// Fetcher retrieves sub-resources. *fetch.Fetcher satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Response, error)
}

// Inliner is the document transformer for one archiving run
type Inliner struct {
	config     config.Config
	fetcher    Fetcher
	resolver   *urlref.Resolver
	pruner     *css.Pruner
	parser     *css.Parser
	htmlParser html.Parser
	log        *logging.Logger
}

// New creates an inliner. A nil logger discards output.
func New(cfg config.Config, fetcher Fetcher, log *logging.Logger) *Inliner {
	if log == nil {
		log = logging.Discard()
	}
	return &Inliner{
		config:     cfg,
		fetcher:    fetcher,
		resolver:   urlref.New(cfg.SrcURL),
		pruner:     css.NewPrunerFromConfig(cfg),
		parser:     css.NewParser(),
		htmlParser: html.NewParser(),
		log:        log,
	}
}

// InlineResult contains the result of an archiving run
type InlineResult struct {
	HTML            string          // Final self-contained HTML
	Skipped         []string        // URLs left un-inlined under the skip policy
	ProcessingStats ProcessingStats // Processing statistics
}

// ProcessingStats contains counters from the inlining process
type ProcessingStats struct {
	FaviconInlined        bool
	StylesheetsInlined    int            // <link> stylesheets replaced by <style>
	StylesheetsRemoved    int            // <link> stylesheets with nothing left after pruning
	StyleBlocksPruned     int            // existing <style> blocks pruned in place
	Rules                 css.PruneStats // accumulated over every pruned stylesheet
	ScriptsInlined        int
	ScriptsRemoved        int // denylisted or tracking snippets
	ReferencesAbsolutized int
	ImagesInlined         int
	SkippedFetches        int
	HTMLElementsProcessed int // inline-css: elements that received a style attribute
	SelectorsMatched      int
	InlinedStyles         int
	ProcessingTimeMs      int64
}

// Inline processes the document. The steps run in a fixed order and the
// first error aborts the whole run; the partial document is discarded.
func (i *Inliner) Inline(ctx context.Context, htmlContent string) (*InlineResult, error) {
	start := time.Now()
	result := &InlineResult{}

	doc, err := i.htmlParser.Parse(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if err := i.inlineFavicon(ctx, doc, result); err != nil {
		return nil, fmt.Errorf("failed to inline favicon: %w", err)
	}

	if err := i.inlineStylesheets(ctx, doc, result); err != nil {
		return nil, fmt.Errorf("failed to inline stylesheets: %w", err)
	}

	if err := i.inlineScripts(ctx, doc, result); err != nil {
		return nil, fmt.Errorf("failed to inline scripts: %w", err)
	}

	if err := i.absolutizeReferences(doc, result); err != nil {
		return nil, fmt.Errorf("failed to absolutize references: %w", err)
	}

	finalHTML, err := doc.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize HTML: %w", err)
	}

	finalHTML, err = i.inlineImages(ctx, finalHTML, result)
	if err != nil {
		return nil, fmt.Errorf("failed to inline images: %w", err)
	}

	if i.config.InlineCSS {
		finalHTML, err = i.inlineStyles(finalHTML, result)
		if err != nil {
			return nil, fmt.Errorf("failed to inline styles: %w", err)
		}
	}

	result.HTML = finalHTML
	result.ProcessingStats.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

// InlineString is a convenience method that returns only the final HTML
func (i *Inliner) InlineString(ctx context.Context, htmlContent string) (string, error) {
	result, err := i.Inline(ctx, htmlContent)
	if err != nil {
		return "", err
	}
	return result.HTML, nil
}

// handleFetchError applies the sub-resource failure policy. It returns nil
// when the resource should be left un-inlined and processing continue.
func (i *Inliner) handleFetchError(url string, err error, result *InlineResult) error {
	var fetchErr *fetch.FetchError
	if i.config.OnFetchError != config.Skip || !errors.As(err, &fetchErr) {
		return err
	}

	i.log.Error.Printf("skipping %s: %v", url, err)
	result.Skipped = append(result.Skipped, url)
	result.ProcessingStats.SkippedFetches++
	return nil
}
