package css

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagepack/internal/config"
)

// fakeMatcher answers from a fixed table; selectors missing from it are invalid
type fakeMatcher struct {
	present map[string]bool
	asked   []string
}

func (m *fakeMatcher) Match(selector string) (bool, error) {
	m.asked = append(m.asked, selector)
	present, ok := m.present[selector]
	if !ok {
		return false, &SelectorError{Selector: selector, Err: errors.New("unsupported")}
	}
	return present, nil
}

func newMatcher(present map[string]bool) *fakeMatcher {
	return &fakeMatcher{present: present}
}

func TestNaiveTokenizer(t *testing.T) {
	rules, err := NaiveTokenizer{}.Tokenize("  h1, .title { font-size: 2em }\n\n p{margin:0}  ")
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, []string{"h1", " .title "}, rules[0].Selectors)
	assert.Equal(t, "{ font-size: 2em }", rules[0].Body)
	assert.Equal(t, "h1, .title { font-size: 2em }", rules[0].Text)

	assert.Equal(t, []string{"p"}, rules[1].Selectors)
	assert.Equal(t, "p{margin:0}", rules[1].Text)
}

func TestNaiveTokenizerTruncatedFragment(t *testing.T) {
	rules, err := NaiveTokenizer{}.Tokenize("a{color:red} b{color:")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "b{color:}", rules[1].Text)
}

func TestNaiveTokenizerBlockClose(t *testing.T) {
	rules, err := NaiveTokenizer{}.Tokenize("@media print { a{x:1} } b{x:2}")
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, "@media print { a{x:1}", rules[0].Text)
	assert.Equal(t, "}", rules[1].Text)
	assert.Equal(t, "b{x:2}", rules[2].Text)
}

func TestNaivePruneMediaKeepsBracesBalanced(t *testing.T) {
	cssText := "@media (max-width: 600px) { .used { color: blue } .unused { color: green } } .after { color: red }"
	present := map[string]bool{".used": true, ".unused": false, ".after": true}

	t.Run("lenient", func(t *testing.T) {
		got, stats := NewPruner(NaiveTokenizer{}, config.Lenient).Prune(cssText, newMatcher(present))

		assert.Equal(t, "@media (max-width: 600px) { .used { color: blue }\n}\n.after { color: red }", got)
		assert.Equal(t, strings.Count(got, "{"), strings.Count(got, "}"))
		assert.Equal(t, 2, stats.InvalidSelectors)
	})

	t.Run("strict", func(t *testing.T) {
		got, _ := NewPruner(NaiveTokenizer{}, config.Strict).Prune(cssText, newMatcher(present))

		assert.Equal(t, ".after { color: red }", got)
		assert.Equal(t, strings.Count(got, "{"), strings.Count(got, "}"))
	})
}

func TestPrune(t *testing.T) {
	tests := []struct {
		name    string
		css     string
		present map[string]bool
		policy  config.SelectorPolicy
		want    []string
		notWant []string
	}{
		{
			name:    "used rule kept unused dropped",
			css:     ".used {color:red} .unused {color:blue}",
			present: map[string]bool{".used": true, ".unused": false},
			want:    []string{".used {color:red}"},
			notWant: []string{".unused", "blue"},
		},
		{
			name:    "one matching selector keeps the whole group verbatim",
			css:     "h1, .missing, h2 {margin:0}",
			present: map[string]bool{"h1": false, ".missing": false, "h2": true},
			want:    []string{"h1, .missing, h2 {margin:0}"},
		},
		{
			name:    "pseudo-class evaluated without state but kept verbatim",
			css:     "a:hover {color:green} b:focus {color:red}",
			present: map[string]bool{"a": true, "b": false},
			want:    []string{"a:hover {color:green}"},
			notWant: []string{"b:focus"},
		},
		{
			name:    "invalid selector kept when lenient",
			css:     "p::selection {color:red}",
			present: map[string]bool{},
			policy:  config.Lenient,
			want:    []string{"p::selection {color:red}"},
		},
		{
			name:    "invalid selector dropped when strict",
			css:     "p::selection {color:red} p {margin:0}",
			present: map[string]bool{"p": true},
			policy:  config.Strict,
			want:    []string{"p {margin:0}"},
			notWant: []string{"selection"},
		},
		{
			name:    "order preserved",
			css:     "b{x:1} .gone{x:2} a{x:3}",
			present: map[string]bool{"a": true, "b": true, ".gone": false},
			want:    []string{"b{x:1}\na{x:3}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := NewPruner(NaiveTokenizer{}, tt.policy)
			got, _ := pruner.Prune(tt.css, newMatcher(tt.present))
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, got, notWant)
			}
		})
	}
}

func TestPruneNothingLeft(t *testing.T) {
	got, stats := NewPruner(nil, "").Prune(".a{x:1} .b{x:2}", newMatcher(map[string]bool{".a": false, ".b": false}))
	assert.Empty(t, got)
	assert.Equal(t, PruneStats{Rules: 2, Dropped: 2}, stats)
}

func TestPruneStats(t *testing.T) {
	m := newMatcher(map[string]bool{"a": true, ".x": false})
	_, stats := NewPruner(nil, config.Lenient).Prune("a{x:1} .x{x:2} p:nth-last-of-kind(2){x:3}", m)
	assert.Equal(t, PruneStats{Rules: 3, Kept: 2, Dropped: 1, InvalidSelectors: 1}, stats)

	var total PruneStats
	total.Add(stats)
	total.Add(stats)
	assert.Equal(t, 6, total.Rules)
}

func TestPruneMatchesCleanedSelectors(t *testing.T) {
	m := newMatcher(map[string]bool{"a": true})
	NewPruner(nil, config.Lenient).Prune("a:visited, a::after { color: purple }", m)
	assert.Equal(t, []string{"a"}, m.asked)
}

func TestCleanSelector(t *testing.T) {
	tests := map[string]string{
		"a:hover":                "a",
		"a:HOVER":                "a",
		" nav a:link:visited ":   "nav a",
		"a:hover span":           "a span",
		"p::before":              "p",
		"p:after":                "p",
		"li:first-child:focus":   "li:first-child",
		"input:focus-within":     "input:focus-within",
		":hover":                 "*",
		"a.btn:active > i:after": "a.btn > i",
		"div":                    "div",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanSelector(in), in)
	}
}

func TestStructuredTokenizerNormalizesFormatting(t *testing.T) {
	m := newMatcher(map[string]bool{".used": true, ".unused": false})
	got, stats := NewPruner(StructuredTokenizer{}, config.Lenient).Prune(".used{color:red}.unused{color:blue}", m)

	assert.Equal(t, 1, stats.Kept)
	assert.Contains(t, got, ".used")
	assert.Contains(t, got, "color: red;")
	assert.NotContains(t, got, ".used{color:red}")
	assert.NotContains(t, got, "blue")
}

func TestStructuredTokenizerMedia(t *testing.T) {
	css := `
@import url("print.css") print;
.used { color: red; }
@media (max-width: 600px) {
  .used { color: blue; }
  .unused { color: green; }
}
@media print {
  .unused { display: none; }
}
@font-face { font-family: "X"; src: url(x.woff); }
`
	m := newMatcher(map[string]bool{".used": true, ".unused": false})
	got, stats := NewPruner(StructuredTokenizer{}, config.Lenient).Prune(css, m)

	assert.Contains(t, got, "@import")
	assert.Contains(t, got, "@media (max-width: 600px) {")
	assert.Contains(t, got, "color: blue;")
	assert.NotContains(t, got, "green")
	assert.NotContains(t, got, "@media print")
	assert.Contains(t, got, "@font-face")
	assert.Equal(t, 4, stats.Rules)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 1, strings.Count(got, "@media"))
}

func TestNewPrunerFromConfig(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, NaiveTokenizer{}, NewPrunerFromConfig(cfg).tokenizer)

	cfg.CSSParser = config.StructuredParser
	cfg.SelectorPolicy = config.Strict
	p := NewPrunerFromConfig(cfg)
	assert.IsType(t, StructuredTokenizer{}, p.tokenizer)
	assert.Equal(t, config.Strict, p.policy)
}
