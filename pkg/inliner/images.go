package inliner

import (
	"context"
	"encoding/base64"
	gohtml "html"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"

	"pagepack/internal/fetch"
	"pagepack/internal/urlref"
)

var (
	// cssURLRegex matches CSS url(...) references, quoted or not
	cssURLRegex = regexp.MustCompile(`(?im)(?P<wholething>url\s*\(\s*['"]?(?P<url>[^)'"]*)['"]?\s*\))`)

	// imgSrcRegex matches the src attribute of <img> tags
	imgSrcRegex = regexp.MustCompile(`(?i)(?P<wholething><\s*img\b[^>]*?\ssrc=['"](?P<url>[^'"]*)['"])`)
)

// inlineImages replaces image references in the serialized document with
// data URIs: CSS url() references first, then <img src>. Only the URL of each
// match is rewritten, at the position it was found.
func (i *Inliner) inlineImages(ctx context.Context, htmlContent string, result *InlineResult) (string, error) {
	replace := func(raw string) (string, error) {
		return i.imageDataURI(ctx, raw, result)
	}

	out, err := replaceSubmatch(htmlContent, cssURLRegex, "url", replace)
	if err != nil {
		return "", err
	}
	return replaceSubmatch(out, imgSrcRegex, "url", replace)
}

// imageDataURI fetches the image behind raw and returns its data URI.
// References that need no fetching are returned unchanged.
func (i *Inliner) imageDataURI(ctx context.Context, raw string, result *InlineResult) (string, error) {
	ref := cleanReference(raw)
	switch kind := urlref.Classify(ref); {
	case ref == "", kind == urlref.Embedded, kind == urlref.Fragment:
		return raw, nil
	}

	abs, err := i.resolver.Resolve(ref)
	if err != nil {
		return "", err
	}

	resp, err := i.fetcher.Get(ctx, abs)
	if err != nil {
		if err := i.handleFetchError(abs, err, result); err != nil {
			return "", err
		}
		if abs == ref {
			return raw, nil
		}
		return abs, nil
	}

	i.log.Debug.Printf("inlined image %s (%d bytes)", abs, len(resp.Body))
	result.ProcessingStats.ImagesInlined++
	return "data:" + imageType(resp, abs) + ";base64," + base64.StdEncoding.EncodeToString(resp.Body), nil
}

// cleanReference undoes attribute escaping and strips stray quotes
func cleanReference(raw string) string {
	return strings.Trim(gohtml.UnescapeString(raw), `'" `+"\t\n")
}

// imageType determines the MIME type of a fetched image: the response
// Content-Type when it names an image, then the URL extension, then sniffing
func imageType(resp *fetch.Response, url string) string {
	if mimeType := responseImageType(resp); mimeType != "" {
		return mimeType
	}

	p := url
	if idx := strings.IndexAny(p, "?#"); idx >= 0 {
		p = p[:idx]
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(p))); byExt != "" {
		if mimeType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mimeType
		}
	}

	mimeType, _, err := mime.ParseMediaType(http.DetectContentType(resp.Body))
	if err != nil {
		return "application/octet-stream"
	}
	return mimeType
}

// responseImageType returns the Content-Type media type if it is image/*
func responseImageType(resp *fetch.Response) string {
	mimeType, _, err := mime.ParseMediaType(resp.ContentType)
	if err != nil || !strings.HasPrefix(mimeType, "image/") {
		return ""
	}
	return mimeType
}

// replaceSubmatch rewrites the named group of every match of re in s,
// leaving the rest of each match untouched
func replaceSubmatch(s string, re *regexp.Regexp, group string, fn func(string) (string, error)) (string, error) {
	idx := re.SubexpIndex(group)

	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(s, -1) {
		start, end := m[2*idx], m[2*idx+1]
		if start < 0 {
			continue
		}
		repl, err := fn(s[start:end])
		if err != nil {
			return "", err
		}
		b.WriteString(s[last:start])
		b.WriteString(repl)
		last = end
	}
	b.WriteString(s[last:])

	return b.String(), nil
}
