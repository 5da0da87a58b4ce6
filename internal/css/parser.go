package css

import (
	"regexp"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Parser turns <style> text into rules and declarations for the inline-css pass
type Parser struct {
	ruleRegex      *regexp.Regexp
	importantRegex *regexp.Regexp
	commentRegex   *regexp.Regexp
	atStmtRegex    *regexp.Regexp

	// Fallback specificity regexes for selectors cascadia cannot parse
	idRegex            *regexp.Regexp
	classRegex         *regexp.Regexp
	attrRegex          *regexp.Regexp
	pseudoClassRegex   *regexp.Regexp
	elementRegex       *regexp.Regexp
	pseudoElementRegex *regexp.Regexp
}

// NewParser creates a new CSS parser with compiled regexes
func NewParser() *Parser {
	return &Parser{
		// CSS rule parsing: selector { declarations }
		ruleRegex:      regexp.MustCompile(`([^{}]+)\{([^}]*)\}`),
		importantRegex: regexp.MustCompile(`!\s*important\s*$`),
		commentRegex:   regexp.MustCompile(`/\*[^*]*\*+([^/*][^*]*\*+)*/`),
		atStmtRegex:    regexp.MustCompile(`@(import|charset|namespace)[^;]+;`),

		idRegex:            regexp.MustCompile(`#[a-zA-Z0-9_-]+`),
		classRegex:         regexp.MustCompile(`\.[a-zA-Z0-9_-]+`),
		attrRegex:          regexp.MustCompile(`\[[^\]]*\]`),
		pseudoClassRegex:   regexp.MustCompile(`(^|[^:]):[a-zA-Z0-9_-]+`),
		elementRegex:       regexp.MustCompile(`(^|[\s>+~])[a-zA-Z][a-zA-Z0-9-]*`),
		pseudoElementRegex: regexp.MustCompile(`::[a-zA-Z0-9_-]+`),
	}
}

// Parse parses CSS text into a Stylesheet with one Rule per selector.
// Block at-rules and selectors that depend on element state are skipped:
// neither can be expressed in a style attribute.
func (p *Parser) Parse(cssText string) (*Stylesheet, error) {
	stylesheet := &Stylesheet{
		Rules: make([]Rule, 0),
	}

	cssText = p.commentRegex.ReplaceAllString(cssText, "")
	cssText = p.atStmtRegex.ReplaceAllString(cssText, "")
	cssText = stripBlockAtRules(cssText)

	order := 0
	for _, match := range p.ruleRegex.FindAllStringSubmatch(cssText, -1) {
		group := strings.TrimSpace(match[1])
		declarations := p.parseDeclarations(match[2])
		if group == "" || len(declarations) == 0 {
			continue
		}

		for _, selector := range strings.Split(group, ",") {
			selector = strings.TrimSpace(selector)
			if selector == "" || CleanSelector(selector) != selector {
				continue
			}
			stylesheet.Rules = append(stylesheet.Rules, Rule{
				Selector:     selector,
				Specificity:  p.calculateSpecificity(selector),
				Declarations: declarations,
				SourceOrder:  order,
			})
			order++
		}
	}

	return stylesheet, nil
}

// atBlockRegex finds a block at-rule at the start of a statement
var atBlockRegex = regexp.MustCompile(`(?:^|[};])\s*(@[a-zA-Z-]+[^{};]*)\{`)

// stripBlockAtRules removes "@name ... { ... }" blocks, including nested braces
func stripBlockAtRules(css string) string {
	var b strings.Builder
	for {
		loc := atBlockRegex.FindStringSubmatchIndex(css)
		if loc == nil {
			break
		}
		start, open := loc[2], loc[1]-1

		end := len(css)
		depth := 0
		for i := open; i < len(css); i++ {
			if css[i] == '{' {
				depth++
			} else if css[i] == '}' {
				depth--
				if depth == 0 {
					end = i + 1
					break
				}
			}
		}

		b.WriteString(css[:start])
		css = css[end:]
	}
	b.WriteString(css)
	return b.String()
}

// parseDeclarations parses CSS declarations from a declaration block
func (p *Parser) parseDeclarations(declarationsText string) map[string]Declaration {
	declarations := make(map[string]Declaration)

	for _, part := range splitDeclarations(declarationsText) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		colonIndex := findUnquotedChar(part, ':')
		if colonIndex == -1 {
			continue
		}

		property := strings.ToLower(strings.TrimSpace(part[:colonIndex]))
		value := strings.TrimSpace(part[colonIndex+1:])
		if property == "" || value == "" {
			continue
		}

		important := p.importantRegex.MatchString(value)
		if important {
			value = strings.TrimSpace(p.importantRegex.ReplaceAllString(value, ""))
		}

		declarations[property] = Declaration{
			Property:  property,
			Value:     value,
			Important: important,
		}
	}

	return declarations
}

// ParseInlineStyle parses a style attribute into declarations
func (p *Parser) ParseInlineStyle(styleAttr string) map[string]Declaration {
	return p.parseDeclarations(styleAttr)
}

// calculateSpecificity uses cascadia's specificity when the selector parses
// and falls back to counting selector parts
func (p *Parser) calculateSpecificity(selector string) Specificity {
	if sel, err := cascadia.Parse(selector); err == nil {
		s := sel.Specificity()
		return Specificity{IDs: s[0], Classes: s[1], Elements: s[2]}
	}

	spec := Specificity{}
	spec.IDs = len(p.idRegex.FindAllString(selector, -1))
	spec.Classes += len(p.classRegex.FindAllString(selector, -1))
	spec.Classes += len(p.attrRegex.FindAllString(selector, -1))
	spec.Classes += len(p.pseudoClassRegex.FindAllString(selector, -1))
	spec.Elements += len(p.pseudoElementRegex.FindAllString(selector, -1))
	spec.Elements += len(p.elementRegex.FindAllString(selector, -1))
	return spec
}

// splitDeclarations splits on ';' outside quotes and parentheses.
// data: URIs inside url(...) contain ';'.
func splitDeclarations(s string) []string {
	var parts []string
	var current strings.Builder
	var quoteChar rune
	depth := 0

	for _, char := range s {
		switch {
		case quoteChar != 0:
			if char == quoteChar {
				quoteChar = 0
			}
		case char == '"' || char == '\'':
			quoteChar = char
		case char == '(':
			depth++
		case char == ')' && depth > 0:
			depth--
		case char == ';' && depth == 0:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteRune(char)
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// findUnquotedChar returns the byte index of the first char outside quotes, or -1
func findUnquotedChar(s string, char rune) int {
	var quoteChar rune

	for i, c := range s {
		switch {
		case quoteChar != 0:
			if c == quoteChar {
				quoteChar = 0
			}
		case c == '"' || c == '\'':
			quoteChar = c
		case c == char:
			return i
		}
	}

	return -1
}

// FormatDeclarations renders declarations as a style attribute value, sorted by property
func FormatDeclarations(styles map[string]Declaration) string {
	if len(styles) == 0 {
		return ""
	}

	properties := make([]string, 0, len(styles))
	for property := range styles {
		properties = append(properties, property)
	}
	sort.Strings(properties)

	parts := make([]string, 0, len(properties))
	for _, property := range properties {
		declaration := styles[property]
		value := declaration.Value
		if declaration.Important {
			value += " !important"
		}
		parts = append(parts, property+": "+value)
	}

	return strings.Join(parts, "; ")
}

// SpecificityFromInline creates a specificity for inline styles
func SpecificityFromInline(important bool) Specificity {
	return Specificity{
		Inline:    1000,
		Important: important,
	}
}
