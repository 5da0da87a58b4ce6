package inliner

import (
	"fmt"
	"strings"

	"pagepack/internal/html"
	"pagepack/internal/urlref"
)

// referenceAttributes carry URLs that must be absolute in the output
var referenceAttributes = []string{"href", "src", "action", "poster"}

const referenceSelector = "[href],[src],[action],[poster]"

// absolutizeReferences rewrites relative href/src/action/poster attributes
// against the source URL. Without a source URL there is nothing to resolve against.
func (i *Inliner) absolutizeReferences(doc html.Document, result *InlineResult) error {
	if i.resolver.Source() == "" {
		return nil
	}

	nodes, err := doc.QuerySelectorAll(referenceSelector)
	if err != nil {
		return err
	}

	for _, node := range nodes {
		for _, name := range referenceAttributes {
			value, ok := node.Attr(name)
			if !ok || strings.TrimSpace(value) == "" || urlref.IsResolved(value) {
				continue
			}

			abs, err := i.resolver.Resolve(value)
			if err != nil {
				return err
			}
			if err := node.SetAttribute(name, abs); err != nil {
				return err
			}
			result.ProcessingStats.ReferencesAbsolutized++
		}
	}

	return nil
}

// ValidationIssue represents a reference that would break once the page is offline
type ValidationIssue struct {
	Type     string // "reference", "stylesheet"
	Severity string // "error", "warning"
	Message  string
	Element  string
}

// Validate reports references in htmlContent that are neither absolute nor embedded
func (i *Inliner) Validate(htmlContent string) ([]ValidationIssue, error) {
	doc, err := i.htmlParser.Parse(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var issues []ValidationIssue

	issues = append(issues, i.validateAttributes(doc)...)
	issues = append(issues, i.validateEmbeddedCSS(doc)...)

	return issues, nil
}

// validateAttributes checks href/src/action/poster values
func (i *Inliner) validateAttributes(doc html.Document) []ValidationIssue {
	var issues []ValidationIssue

	nodes, _ := doc.QuerySelectorAll(referenceSelector)
	for _, node := range nodes {
		for _, name := range referenceAttributes {
			value, ok := node.Attr(name)
			if !ok || strings.TrimSpace(value) == "" || urlref.IsResolved(value) {
				continue
			}
			issues = append(issues, ValidationIssue{
				Type:     "reference",
				Severity: "error",
				Message:  fmt.Sprintf("%s %s reference %q", name, urlref.Classify(value), value),
				Element:  node.TagName(),
			})
		}
	}

	links, _ := doc.QuerySelectorAll(stylesheetSelector)
	for _, link := range links {
		href, _ := link.Attr("href")
		issues = append(issues, ValidationIssue{
			Type:     "stylesheet",
			Severity: "warning",
			Message:  fmt.Sprintf("external stylesheet %q is not inlined", href),
			Element:  "link",
		})
	}

	return issues
}

// validateEmbeddedCSS checks url() references in style blocks and style attributes
func (i *Inliner) validateEmbeddedCSS(doc html.Document) []ValidationIssue {
	var issues []ValidationIssue

	check := func(cssText, element string) {
		for _, m := range cssURLRegex.FindAllStringSubmatch(cssText, -1) {
			ref := cleanReference(m[cssURLRegex.SubexpIndex("url")])
			if ref == "" || urlref.IsResolved(ref) {
				continue
			}
			issues = append(issues, ValidationIssue{
				Type:     "stylesheet",
				Severity: "error",
				Message:  fmt.Sprintf("url() %s reference %q", urlref.Classify(ref), ref),
				Element:  element,
			})
		}
	}

	styleTags, _ := doc.GetStyleTags()
	for _, styleTag := range styleTags {
		check(styleTag.Text(), "style")
	}

	styled, _ := doc.QuerySelectorAll("[style]")
	for _, node := range styled {
		value, _ := node.Attr("style")
		check(value, node.TagName())
	}

	return issues
}
