package inliner

import (
	"context"
	"strings"

	"pagepack/internal/html"
)

// scriptDenylist holds script URLs that are dropped without fetching
var scriptDenylist = map[string]bool{
	"https://www.google-analytics.com/analytics.js": true,
	"http://www.google-analytics.com/analytics.js":  true,
	"//www.google-analytics.com/analytics.js":       true,
	"https://www.google-analytics.com/ga.js":        true,
	"http://www.google-analytics.com/ga.js":         true,
	"//www.google-analytics.com/ga.js":              true,
}

// trackingMarkers identify inline analytics snippets
var trackingMarkers = []string{`"UA-`, `'UA-`}

// inlineScripts removes tracking scripts and, when enabled, replaces
// external scripts with their code
func (i *Inliner) inlineScripts(ctx context.Context, doc html.Document, result *InlineResult) error {
	scripts, err := doc.QuerySelectorAll("script[src]")
	if err != nil {
		return err
	}

	for _, script := range scripts {
		src, _ := script.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}

		if scriptDenylist[src] {
			i.log.Info.Printf("removed denylisted script %s", src)
			result.ProcessingStats.ScriptsRemoved++
			if err := script.Remove(); err != nil {
				return err
			}
			continue
		}

		if !i.config.InlineJS {
			continue
		}
		if err := i.inlineScript(ctx, script, src, result); err != nil {
			return err
		}
	}

	return i.removeTrackingSnippets(doc, result)
}

func (i *Inliner) inlineScript(ctx context.Context, script html.Node, src string, result *InlineResult) error {
	abs, err := i.resolver.Resolve(src)
	if err != nil {
		return err
	}

	resp, err := i.fetcher.Get(ctx, abs)
	if err != nil {
		if err := i.handleFetchError(abs, err, result); err != nil {
			return err
		}
		return script.SetAttribute("src", abs)
	}

	code := "\n/* src: " + abs + " */\n" + escapeScript(string(resp.Body)) + ";"
	if err := script.ReplaceWithElement("script", inlineScriptAttributes(script), code); err != nil {
		return err
	}

	i.log.Info.Printf("inlined script %s", abs)
	result.ProcessingStats.ScriptsInlined++
	return nil
}

// inlineScriptAttributes keeps everything but src, so type="module" and
// nomodule scripts behave the same once inlined
func inlineScriptAttributes(script html.Node) []html.Attribute {
	var attrs []html.Attribute
	for _, attr := range script.Attributes() {
		if strings.EqualFold(attr.Key, "src") {
			continue
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

// removeTrackingSnippets drops inline scripts carrying an analytics property id
func (i *Inliner) removeTrackingSnippets(doc html.Document, result *InlineResult) error {
	scripts, err := doc.QuerySelectorAll("script:not([src])")
	if err != nil {
		return err
	}

	for _, script := range scripts {
		if !isTrackingSnippet(script.Text()) {
			continue
		}
		i.log.Info.Printf("removed inline tracking script")
		i.log.Debug.Printf("%s", script.OuterHTML())
		result.ProcessingStats.ScriptsRemoved++
		if err := script.Remove(); err != nil {
			return err
		}
	}
	return nil
}

func isTrackingSnippet(code string) bool {
	for _, marker := range trackingMarkers {
		if strings.Contains(code, marker) {
			return true
		}
	}
	return false
}

// escapeScript keeps fetched code from closing the <script> element early
func escapeScript(code string) string {
	return strings.ReplaceAll(code, "</script", `<\/script`)
}
