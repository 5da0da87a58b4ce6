package inliner

import (
	"fmt"
	"strings"

	"pagepack/internal/html"
	"pagepack/internal/resolver"
)

// inlineStyles flattens the remaining <style> rules into style attributes
// and removes the <style> blocks
func (i *Inliner) inlineStyles(htmlContent string, result *InlineResult) (string, error) {
	doc, err := i.htmlParser.Parse(htmlContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	cssContent, err := i.extractCSS(doc)
	if err != nil {
		return "", fmt.Errorf("failed to extract CSS: %w", err)
	}

	stylesheet, err := i.parser.Parse(cssContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse CSS: %w", err)
	}

	styleResolver := resolver.New(stylesheet, i.log)
	if err := i.processDocument(doc, styleResolver, result); err != nil {
		return "", fmt.Errorf("failed to process document: %w", err)
	}

	styleTags, err := doc.GetStyleTags()
	if err != nil {
		return "", fmt.Errorf("failed to get style tags: %w", err)
	}
	for _, styleTag := range styleTags {
		if err := styleTag.Remove(); err != nil {
			return "", fmt.Errorf("failed to remove style tag: %w", err)
		}
	}

	return doc.HTML()
}

// extractCSS concatenates the content of all <style> tags
func (i *Inliner) extractCSS(doc html.Document) (string, error) {
	var cssContent strings.Builder

	styleTags, err := doc.GetStyleTags()
	if err != nil {
		return "", fmt.Errorf("failed to get style tags: %w", err)
	}

	for _, styleTag := range styleTags {
		content := styleTag.Text()
		if content != "" {
			cssContent.WriteString(content)
			cssContent.WriteString("\n")
		}
	}

	return cssContent.String(), nil
}

// processDocument applies computed styles to every element
func (i *Inliner) processDocument(doc html.Document, styleResolver *resolver.Resolver, result *InlineResult) error {
	allElements, err := doc.QuerySelectorAll("*")
	if err != nil {
		return fmt.Errorf("failed to query all elements: %w", err)
	}

	for _, element := range allElements {
		if err := i.processElement(element, styleResolver, result); err != nil {
			return err
		}
	}

	return nil
}

// processElement resolves and writes the style attribute of one element
func (i *Inliner) processElement(element html.Node, styleResolver *resolver.Resolver, result *InlineResult) error {
	tagName := strings.ToLower(element.TagName())
	if skipTags[tagName] {
		return nil
	}

	computedStyles, matched := styleResolver.ResolveStyles(element)
	if matched == 0 || len(computedStyles) == 0 {
		return nil
	}

	if err := element.SetInlineStyle(computedStyles); err != nil {
		return fmt.Errorf("failed to set inline styles on %s: %w", tagName, err)
	}

	result.ProcessingStats.HTMLElementsProcessed++
	result.ProcessingStats.SelectorsMatched += matched
	result.ProcessingStats.InlinedStyles += len(computedStyles)
	return nil
}

// skipTags are elements that never render and keep no style attribute
var skipTags = map[string]bool{
	"head":     true,
	"title":    true,
	"meta":     true,
	"link":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"base":     true,
}
