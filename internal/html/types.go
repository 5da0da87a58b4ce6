package html

import "pagepack/internal/css"

// Node represents an HTML element in the DOM tree
// This interface can be implemented by any HTML parsing library
type Node interface {
	// Core node information
	TagName() string
	Attr(name string) (string, bool)
	Attributes() []Attribute

	// Content access
	Text() string
	OuterHTML() string

	// Style manipulation
	GetInlineStyle() map[string]css.Declaration
	SetInlineStyle(styles map[string]css.Declaration) error

	// Selector matching support
	Matches(selector string) (bool, error)

	// Modification
	SetAttribute(name, value string) error
	Remove() error

	// SetText replaces the children with one raw text node; <style> and
	// <script> bodies are rendered unescaped
	SetText(content string) error

	// ReplaceWithElement swaps the node for a new <tag attrs...>text</tag>
	ReplaceWithElement(tag string, attrs []Attribute, text string) error
}

// Attribute is a name/value pair for new elements
type Attribute struct {
	Key string
	Val string
}

// Document represents the complete HTML document.
// It satisfies css.Matcher so the pruner can query it directly.
type Document interface {
	// Element selection
	QuerySelector(selector string) (Node, error)
	QuerySelectorAll(selector string) ([]Node, error)

	// Match reports whether selector matches any element.
	// Selectors the engine rejects yield a *css.SelectorError.
	Match(selector string) (bool, error)

	// Style tag management
	GetStyleTags() ([]Node, error)

	// Serialization
	HTML() (string, error)
}

// Parser handles parsing HTML documents
type Parser interface {
	Parse(html string) (Document, error)
}

var _ css.Matcher = Document(nil)
