package css

import (
	"fmt"
)

// Specificity represents CSS specificity with individual components
// Following CSS specification: inline, IDs, classes/attributes/pseudo-classes, elements/pseudo-elements
type Specificity struct {
	Inline    int  // style="" attribute (always 1000 when present)
	IDs       int  // #id selectors
	Classes   int  // .class, [attr], :pseudo-class
	Elements  int  // element, ::pseudo-element
	Important bool // !important flag
}

// Compare returns -1 if s < other, 0 if equal, 1 if s > other
// Important declarations always win regardless of specificity
func (s Specificity) Compare(other Specificity) int {
	if s.Important != other.Important {
		if s.Important {
			return 1
		}
		return -1
	}

	for _, pair := range [][2]int{
		{s.Inline, other.Inline},
		{s.IDs, other.IDs},
		{s.Classes, other.Classes},
		{s.Elements, other.Elements},
	} {
		if pair[0] > pair[1] {
			return 1
		}
		if pair[0] < pair[1] {
			return -1
		}
	}

	return 0
}

func (s Specificity) String() string {
	important := ""
	if s.Important {
		important = " !important"
	}
	return fmt.Sprintf("(%d,%d,%d,%d)%s", s.Inline, s.IDs, s.Classes, s.Elements, important)
}

// Rule represents a single CSS rule with its selector and declarations
type Rule struct {
	Selector     string                 // Original selector text
	Specificity  Specificity            // Calculated specificity
	Declarations map[string]Declaration // property -> declaration mapping
	SourceOrder  int                    // Order in original CSS (for tie-breaking)
}

// Declaration represents a single CSS property declaration
type Declaration struct {
	Property  string // CSS property name (normalized)
	Value     string // CSS property value
	Important bool   // !important flag
}

// Stylesheet represents the complete parsed CSS with all rules
type Stylesheet struct {
	Rules []Rule // All CSS rules in source order
}

// MatchResult represents the result of matching CSS rules against an HTML element
type MatchResult struct {
	Rule         *Rule                  // The matching CSS rule
	Specificity  Specificity            // Effective specificity for this match
	Declarations map[string]Declaration // Declarations that should be applied
}

// StylesheetRule is one statement produced by a Tokenizer for pruning.
// Text is the statement as it appeared in the source and is what gets emitted
// when the rule is kept.
type StylesheetRule struct {
	Selectors []string // raw, comma-separated in the source
	Body      string   // "{...}" declaration block
	Text      string

	// Block at-rules (@media, @supports) carry a prelude and nested rules instead
	Prelude  string
	Children []StylesheetRule

	// Opaque statements (@import, @font-face, @keyframes) are always kept
	Opaque bool
}

// IsBlock reports whether the rule is a block at-rule whose children are pruned
func (r StylesheetRule) IsBlock() bool {
	return r.Prelude != ""
}

// SelectorError reports a selector the matcher cannot evaluate
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("invalid selector %q: %v", e.Selector, e.Err)
}

func (e *SelectorError) Unwrap() error { return e.Err }

// Matcher tests a selector against a document
type Matcher interface {
	// Match reports whether selector matches at least one element.
	// Unparseable selectors yield a *SelectorError.
	Match(selector string) (bool, error)
}

// PruneStats counts what the pruner did with a stylesheet
type PruneStats struct {
	Rules            int // qualified rules seen
	Kept             int
	Dropped          int
	InvalidSelectors int
}

// Add accumulates other into s
func (s *PruneStats) Add(other PruneStats) {
	s.Rules += other.Rules
	s.Kept += other.Kept
	s.Dropped += other.Dropped
	s.InvalidSelectors += other.InvalidSelectors
}
