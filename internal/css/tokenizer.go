package css

import (
	"regexp"
	"strings"
	"unicode"

	cssast "github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Tokenizer splits stylesheet text into statements for the pruner
type Tokenizer interface {
	Tokenize(cssText string) ([]StylesheetRule, error)
}

// cssRuleRegex captures everything up to the first '{' as specifiers and the rest as the rule
var cssRuleRegex = regexp.MustCompile(`(?s)^(?P<specifiers>[^{]+)(?P<rule>.*)$`)

// NaiveTokenizer splits on '}' without understanding the grammar.
// It assumes balanced braces and no '}' inside strings or comments;
// truncated trailing fragments come out as statements of their own.
// The closing brace of a block at-rule becomes a lone "}" statement whose
// selector never parses, so the lenient policy keeps the braces balanced.
type NaiveTokenizer struct{}

// Tokenize never fails
func (NaiveTokenizer) Tokenize(cssText string) ([]StylesheetRule, error) {
	var rules []StylesheetRule

	for _, fragment := range strings.Split(strings.TrimSpace(cssText), "}") {
		if fragment == "" {
			continue
		}
		stmt := strings.TrimLeftFunc(fragment, unicode.IsSpace) + "}"

		match := cssRuleRegex.FindStringSubmatch(stmt)
		if match == nil {
			continue
		}
		specifiers := match[cssRuleRegex.SubexpIndex("specifiers")]
		body := match[cssRuleRegex.SubexpIndex("rule")]

		rules = append(rules, StylesheetRule{
			Selectors: strings.Split(specifiers, ","),
			Body:      body,
			Text:      stmt,
		})
	}

	return rules, nil
}

// StructuredTokenizer parses with a real CSS grammar. Conditional group
// at-rules become blocks whose children are pruned individually.
// Kept rules are re-serialized by the parser, so their formatting is
// normalized rather than copied from the source.
type StructuredTokenizer struct{}

// prunableAtRules hold qualified rules that can be tested against the document
var prunableAtRules = map[string]bool{
	"@media":    true,
	"@supports": true,
	"@document": true,
}

// Tokenize fails when the stylesheet cannot be parsed
func (StructuredTokenizer) Tokenize(cssText string) ([]StylesheetRule, error) {
	sheet, err := parser.Parse(cssText)
	if err != nil {
		return nil, err
	}
	return convertRules(sheet.Rules), nil
}

func convertRules(list []*cssast.Rule) []StylesheetRule {
	rules := make([]StylesheetRule, 0, len(list))
	for _, rule := range list {
		if rule == nil {
			continue
		}

		switch {
		case rule.Kind == cssast.QualifiedRule:
			rules = append(rules, StylesheetRule{
				Selectors: rule.Selectors,
				Body:      declarationBlock(rule.Declarations),
				Text:      rule.String(),
			})

		case prunableAtRules[strings.ToLower(rule.Name)] && rule.EmbedsRules():
			prelude := rule.Name
			if p := strings.TrimSpace(rule.Prelude); p != "" {
				prelude += " " + p
			}
			rules = append(rules, StylesheetRule{
				Prelude:  prelude,
				Children: convertRules(rule.Rules),
				Text:     rule.String(),
			})

		default:
			rules = append(rules, StylesheetRule{
				Text:   rule.String(),
				Opaque: true,
			})
		}
	}
	return rules
}

func declarationBlock(decls []*cssast.Declaration) string {
	var b strings.Builder
	b.WriteString("{ ")
	for _, decl := range decls {
		if decl == nil {
			continue
		}
		b.WriteString(decl.String())
		b.WriteString(" ")
	}
	b.WriteString("}")
	return b.String()
}
