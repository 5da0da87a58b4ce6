package resolver

import (
	"pagepack/internal/css"
	"pagepack/internal/html"
	"pagepack/internal/logging"
)

// inlineSourceOrder places inline declarations after every stylesheet rule
const inlineSourceOrder = 1 << 30

// Resolver handles CSS cascade resolution and computes final styles for HTML elements
type Resolver struct {
	stylesheet *css.Stylesheet
	log        *logging.Logger
}

// New creates a new style resolver. A nil logger discards output.
func New(stylesheet *css.Stylesheet, log *logging.Logger) *Resolver {
	if stylesheet == nil {
		stylesheet = &css.Stylesheet{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Resolver{
		stylesheet: stylesheet,
		log:        log,
	}
}

// ResolveStyles computes the final styles for an HTML element following CSS cascade rules.
// The element's existing inline style takes part in the cascade.
// Returns a map of property -> declaration and the number of rules that matched.
func (r *Resolver) ResolveStyles(node html.Node) (map[string]css.Declaration, int) {
	matchingRules := r.findMatchingRules(node)
	return r.applyCascade(matchingRules, node.GetInlineStyle()), len(matchingRules)
}

// findMatchingRules finds all CSS rules that match the given HTML element
func (r *Resolver) findMatchingRules(node html.Node) []css.MatchResult {
	var matches []css.MatchResult

	for idx := range r.stylesheet.Rules {
		rule := &r.stylesheet.Rules[idx]

		isMatch, err := node.Matches(rule.Selector)
		if err != nil {
			r.log.Debug.Printf("skipping selector %q: %v", rule.Selector, err)
			continue
		}

		if isMatch {
			matches = append(matches, css.MatchResult{
				Rule:         rule,
				Specificity:  rule.Specificity,
				Declarations: rule.Declarations,
			})
		}
	}

	return matches
}

// applyCascade determines which declarations win.
// Order (lowest to highest priority):
// 1. Author declarations, by specificity then source order
// 2. Inline declarations
// 3. Author !important declarations
// 4. Inline !important declarations
func (r *Resolver) applyCascade(matches []css.MatchResult, inlineStyles map[string]css.Declaration) map[string]css.Declaration {
	winningDeclarations := make(map[string]css.Declaration)
	winningSpecs := make(map[string]cascadeEntry)

	consider := func(property string, declaration css.Declaration, entry cascadeEntry) {
		existing, found := winningSpecs[property]
		if !found || shouldReplace(entry, existing) {
			winningDeclarations[property] = declaration
			winningSpecs[property] = entry
		}
	}

	for _, match := range matches {
		for property, declaration := range match.Declarations {
			consider(property, declaration, cascadeEntry{
				specificity: match.Specificity,
				sourceOrder: match.Rule.SourceOrder,
				important:   declaration.Important,
			})
		}
	}

	for property, declaration := range inlineStyles {
		consider(property, declaration, cascadeEntry{
			specificity: css.SpecificityFromInline(declaration.Important),
			sourceOrder: inlineSourceOrder,
			important:   declaration.Important,
			isInline:    true,
		})
	}

	return winningDeclarations
}

// cascadeEntry tracks the cascade information for a declaration
type cascadeEntry struct {
	specificity css.Specificity
	sourceOrder int
	important   bool
	isInline    bool
}

// shouldReplace determines if a new declaration should replace the existing winning declaration
func shouldReplace(newEntry, existingEntry cascadeEntry) bool {
	// !important declarations always beat non-!important
	if newEntry.important != existingEntry.important {
		return newEntry.important
	}

	// inline beats any selector at equal importance
	if newEntry.isInline != existingEntry.isInline {
		return newEntry.isInline
	}

	if cmp := newEntry.specificity.Compare(existingEntry.specificity); cmp != 0 {
		return cmp > 0
	}

	// equal specificity: later source order wins
	return newEntry.sourceOrder >= existingEntry.sourceOrder
}
