package inliner

import (
	"context"
	"strings"

	"pagepack/internal/html"
	"pagepack/internal/urlref"
)

const stylesheetSelector = `link[rel="stylesheet"]`

// inlineStylesheets prunes the document's own <style> blocks, then replaces
// every linked stylesheet with a <style> block holding only the rules in use
func (i *Inliner) inlineStylesheets(ctx context.Context, doc html.Document, result *InlineResult) error {
	if err := i.pruneStyleBlocks(doc, result); err != nil {
		return err
	}

	links, err := doc.QuerySelectorAll(stylesheetSelector)
	if err != nil {
		return err
	}

	for _, link := range links {
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}
		if err := i.inlineStylesheet(ctx, doc, link, href, result); err != nil {
			return err
		}
	}

	return nil
}

func (i *Inliner) inlineStylesheet(ctx context.Context, doc html.Document, link html.Node, href string, result *InlineResult) error {
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

	// url() references inside the stylesheet are relative to the stylesheet itself
	sheetResolver, err := i.resolver.WithSource(abs)
	if err != nil {
		return err
	}
	cssText, err := absolutizeCSSURLs(string(resp.Body), sheetResolver)
	if err != nil {
		return err
	}

	pruned, stats := i.pruner.Prune(cssText, doc)
	result.ProcessingStats.Rules.Add(stats)
	i.log.Debug.Printf("%s: kept %d of %d rules (%d invalid selectors)", abs, stats.Kept, stats.Rules, stats.InvalidSelectors)

	if strings.TrimSpace(pruned) == "" {
		result.ProcessingStats.StylesheetsRemoved++
		i.log.Info.Printf("removed unused stylesheet %s", abs)
		return link.Remove()
	}

	result.ProcessingStats.StylesheetsInlined++
	i.log.Info.Printf("inlined stylesheet %s", abs)
	return link.ReplaceWithElement("style", []html.Attribute{{Key: "type", Val: "text/css"}}, "\n"+pruned+"\n")
}

// pruneStyleBlocks prunes <style> elements already in the document
func (i *Inliner) pruneStyleBlocks(doc html.Document, result *InlineResult) error {
	styleTags, err := doc.GetStyleTags()
	if err != nil {
		return err
	}

	for _, styleTag := range styleTags {
		content := styleTag.Text()
		if strings.TrimSpace(content) == "" {
			continue
		}

		pruned, stats := i.pruner.Prune(content, doc)
		result.ProcessingStats.Rules.Add(stats)
		result.ProcessingStats.StyleBlocksPruned++

		if strings.TrimSpace(pruned) == "" {
			if err := styleTag.Remove(); err != nil {
				return err
			}
			continue
		}
		if err := styleTag.SetText("\n" + pruned + "\n"); err != nil {
			return err
		}
	}

	return nil
}

// absolutizeCSSURLs rewrites the url() references of cssText against r.
// Embedded and fragment references are left alone.
func absolutizeCSSURLs(cssText string, r *urlref.Resolver) (string, error) {
	return replaceSubmatch(cssText, cssURLRegex, "url", func(raw string) (string, error) {
		ref := strings.TrimSpace(raw)
		if ref == "" || urlref.IsResolved(ref) {
			return raw, nil
		}
		return r.Resolve(ref)
	})
}
