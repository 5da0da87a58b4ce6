package html

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagepack/internal/css"
)

// GoQueryDocument wraps goquery.Document to implement our Document interface
type GoQueryDocument struct {
	doc *goquery.Document
}

// GoQueryNode wraps goquery.Selection to implement our Node interface
// Export this type so it can be used in type assertions if needed
type GoQueryNode struct {
	selection *goquery.Selection
	doc       *GoQueryDocument
}

// GoQueryParser implements our Parser interface using goquery
type GoQueryParser struct{}

// NewParser creates a new GoQuery-based HTML parser
func NewParser() *GoQueryParser {
	return &GoQueryParser{}
}

// Parse parses HTML string into a Document
func (p *GoQueryParser) Parse(htmlStr string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &GoQueryDocument{doc: doc}, nil
}

// Document implementation

// QuerySelector returns the first element matching the selector
func (d *GoQueryDocument) QuerySelector(selector string) (Node, error) {
	group, err := compile(selector)
	if err != nil {
		return nil, err
	}
	selection := d.doc.FindMatcher(group).First()
	if selection.Length() == 0 {
		return nil, nil
	}
	return &GoQueryNode{selection: selection, doc: d}, nil
}

// QuerySelectorAll returns all elements matching the selector in document order
func (d *GoQueryDocument) QuerySelectorAll(selector string) ([]Node, error) {
	group, err := compile(selector)
	if err != nil {
		return nil, err
	}
	selection := d.doc.FindMatcher(group)
	nodes := make([]Node, selection.Length())

	selection.Each(func(i int, s *goquery.Selection) {
		nodes[i] = &GoQueryNode{selection: s, doc: d}
	})

	return nodes, nil
}

// Match reports whether at least one element matches selector
func (d *GoQueryDocument) Match(selector string) (bool, error) {
	group, err := compile(selector)
	if err != nil {
		return false, err
	}
	return d.doc.FindMatcher(group).Length() > 0, nil
}

// GetStyleTags returns all <style> elements
func (d *GoQueryDocument) GetStyleTags() ([]Node, error) {
	return d.QuerySelectorAll("style")
}

// HTML returns the complete HTML document as string
func (d *GoQueryDocument) HTML() (string, error) {
	html, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize HTML: %w", err)
	}
	return html, nil
}

// compile parses a selector group, reporting failures as SelectorError
func compile(selector string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &css.SelectorError{Selector: selector, Err: err}
	}
	return sel, nil
}

// Node implementation

// TagName returns the element's tag name
func (n *GoQueryNode) TagName() string {
	if n.selection.Length() == 0 {
		return ""
	}
	return goquery.NodeName(n.selection)
}

// Attr returns the value of the named attribute
func (n *GoQueryNode) Attr(name string) (string, bool) {
	return n.selection.Attr(name)
}

// Attributes returns all attributes in document order
func (n *GoQueryNode) Attributes() []Attribute {
	var attrs []Attribute

	if n.selection.Length() > 0 {
		node := n.selection.Get(0)
		for _, attr := range node.Attr {
			attrs = append(attrs, Attribute{Key: attr.Key, Val: attr.Val})
		}
	}

	return attrs
}

// Text returns the text content
func (n *GoQueryNode) Text() string {
	return n.selection.Text()
}

// OuterHTML returns the outer HTML content
func (n *GoQueryNode) OuterHTML() string {
	if n.selection.Length() == 0 {
		return ""
	}
	html, err := goquery.OuterHtml(n.selection)
	if err != nil {
		return ""
	}
	return html
}

// GetInlineStyle parses and returns the inline style attribute
func (n *GoQueryNode) GetInlineStyle() map[string]css.Declaration {
	styleAttr, exists := n.selection.Attr("style")
	if !exists || styleAttr == "" {
		return make(map[string]css.Declaration)
	}

	return css.NewParser().ParseInlineStyle(styleAttr)
}

// SetInlineStyle sets the complete inline style attribute
func (n *GoQueryNode) SetInlineStyle(styles map[string]css.Declaration) error {
	if n.selection.Length() == 0 {
		return fmt.Errorf("no element to set style on")
	}

	if len(styles) == 0 {
		n.selection.RemoveAttr("style")
		return nil
	}
	n.selection.SetAttr("style", css.FormatDeclarations(styles))
	return nil
}

// Matches checks if the element matches a CSS selector
func (n *GoQueryNode) Matches(selector string) (bool, error) {
	if n.selection.Length() == 0 {
		return false, nil
	}

	group, err := compile(selector)
	if err != nil {
		return false, err
	}
	return n.selection.IsMatcher(group), nil
}

// SetAttribute sets an attribute on the element
func (n *GoQueryNode) SetAttribute(name, value string) error {
	if n.selection.Length() == 0 {
		return fmt.Errorf("no element to set attribute on")
	}

	n.selection.SetAttr(name, value)
	return nil
}

// Remove detaches the element from the document
func (n *GoQueryNode) Remove() error {
	if n.selection.Length() == 0 {
		return fmt.Errorf("no element to remove")
	}

	n.selection.Remove()
	return nil
}

// SetText replaces the children of the element with a single text node
func (n *GoQueryNode) SetText(content string) error {
	if n.selection.Length() == 0 {
		return fmt.Errorf("no element to set text on")
	}

	for _, node := range n.selection.Nodes {
		for child := node.FirstChild; child != nil; child = node.FirstChild {
			node.RemoveChild(child)
		}
		node.AppendChild(&html.Node{Type: html.TextNode, Data: content})
	}
	return nil
}

// ReplaceWithElement replaces the element with a freshly built one
func (n *GoQueryNode) ReplaceWithElement(tag string, attrs []Attribute, text string) error {
	if n.selection.Length() == 0 {
		return fmt.Errorf("no element to replace")
	}

	n.selection.ReplaceWithNodes(newElement(tag, attrs, text))
	return nil
}

func newElement(tag string, attrs []Attribute, text string) *html.Node {
	node := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for _, attr := range attrs {
		node.Attr = append(node.Attr, html.Attribute{Key: attr.Key, Val: attr.Val})
	}
	if text != "" {
		node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return node
}
