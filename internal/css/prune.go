package css

import (
	"regexp"
	"strings"

	"pagepack/internal/config"
)

// statePseudoRegex matches pseudo-classes and pseudo-elements that describe element
// states rather than structure. They cannot be evaluated against a static tree.
var statePseudoRegex = regexp.MustCompile(`(?i)::?(?:link|hover|active|visited|focus|before|after)([^\w-]|$)`)

// Pruner reduces a stylesheet to the rules whose selectors match a document
type Pruner struct {
	tokenizer Tokenizer
	policy    config.SelectorPolicy
}

// NewPruner creates a pruner. A nil tokenizer means NaiveTokenizer.
func NewPruner(tokenizer Tokenizer, policy config.SelectorPolicy) *Pruner {
	if tokenizer == nil {
		tokenizer = NaiveTokenizer{}
	}
	if policy == "" {
		policy = config.Lenient
	}
	return &Pruner{tokenizer: tokenizer, policy: policy}
}

// NewPrunerFromConfig picks the tokenizer and selector policy from the run configuration
func NewPrunerFromConfig(cfg config.Config) *Pruner {
	var tokenizer Tokenizer = NaiveTokenizer{}
	if cfg.CSSParser == config.StructuredParser {
		tokenizer = StructuredTokenizer{}
	}
	return NewPruner(tokenizer, cfg.SelectorPolicy)
}

// Prune returns the rules of cssText that are relevant to the document behind m,
// in their original order and original text. A stylesheet the tokenizer rejects
// is pruned with the naive tokenizer instead.
func (p *Pruner) Prune(cssText string, m Matcher) (string, PruneStats) {
	rules, err := p.tokenizer.Tokenize(cssText)
	if err != nil {
		rules, _ = NaiveTokenizer{}.Tokenize(cssText)
	}

	var stats PruneStats
	kept := p.pruneRules(rules, m, &stats)
	return strings.Join(kept, "\n"), stats
}

func (p *Pruner) pruneRules(rules []StylesheetRule, m Matcher, stats *PruneStats) []string {
	var kept []string

	for _, rule := range rules {
		switch {
		case rule.Opaque:
			kept = append(kept, rule.Text)

		case rule.IsBlock():
			children := p.pruneRules(rule.Children, m, stats)
			if len(children) > 0 {
				kept = append(kept, rule.Prelude+" {\n"+strings.Join(children, "\n")+"\n}")
			}

		default:
			stats.Rules++
			if p.ruleInUse(rule, m, stats) {
				stats.Kept++
				kept = append(kept, rule.Text)
			} else {
				stats.Dropped++
			}
		}
	}

	return kept
}

// ruleInUse reports whether at least one selector of rule is included
func (p *Pruner) ruleInUse(rule StylesheetRule, m Matcher, stats *PruneStats) bool {
	for _, selector := range rule.Selectors {
		matched, err := m.Match(CleanSelector(selector))
		if err != nil {
			// Any matcher failure is handled like a SelectorError and never escapes
			stats.InvalidSelectors++
			if p.policy == config.Lenient {
				return true
			}
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// CleanSelector strips state pseudo-classes from selector for matching purposes.
// A selector that is nothing but state pseudo-classes matches any element.
func CleanSelector(selector string) string {
	cleaned := strings.TrimSpace(selector)
	for {
		next := statePseudoRegex.ReplaceAllString(cleaned, "$1")
		if next == cleaned {
			break
		}
		cleaned = next
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "*"
	}
	return cleaned
}
