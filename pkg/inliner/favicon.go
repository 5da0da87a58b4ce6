package inliner

import (
	"context"
	"encoding/base64"
	"fmt"

	"pagepack/internal/html"
	"pagepack/internal/urlref"
)

const (
	faviconSelector    = `link[rel*="icon"][href]:not([href=""])`
	defaultFaviconType = "image/png"
)

// inlineFavicon embeds the first favicon link as a data URI
func (i *Inliner) inlineFavicon(ctx context.Context, doc html.Document, result *InlineResult) error {
	link, err := doc.QuerySelector(faviconSelector)
	if err != nil {
		return err
	}
	if link == nil {
		i.log.Debug.Printf("no favicon link")
		return nil
	}
	href, _ := link.Attr("href")
	if urlref.Classify(href) == urlref.Embedded {
		i.log.Debug.Printf("favicon already embedded")
		return nil
	}

	abs, err := i.resolver.Resolve(href)
	if err != nil {
		return err
	}

	resp, err := i.fetcher.Get(ctx, abs)
	if err != nil {
		if err := i.handleFetchError(abs, err, result); err != nil {
			return err
		}
		return link.SetAttribute("href", abs)
	}

	mimeType, ok := link.Attr("type")
	if !ok || mimeType == "" {
		mimeType = responseImageType(resp)
	}
	if mimeType == "" {
		mimeType = defaultFaviconType
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(resp.Body))
	if err := link.SetAttribute("href", dataURI); err != nil {
		return err
	}

	i.log.Info.Printf("inlined favicon %s", abs)
	result.ProcessingStats.FaviconInlined = true
	return nil
}
