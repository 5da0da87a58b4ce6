package css

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	css := `
/* header */
@charset "utf-8";
h1, .title { color: red; font-weight: bold !important }
a:hover { color: blue }
@media (max-width: 600px) { h1 { color: green } .x { y: z } }
#main p { background: url(data:image/png;base64,AAAA) no-repeat; }
`
	sheet, err := NewParser().Parse(css)
	require.NoError(t, err)

	var selectors []string
	for _, rule := range sheet.Rules {
		selectors = append(selectors, rule.Selector)
	}
	assert.Equal(t, []string{"h1", ".title", "#main p"}, selectors)

	h1 := sheet.Rules[0]
	assert.Equal(t, 0, h1.SourceOrder)
	assert.Equal(t, "red", h1.Declarations["color"].Value)
	assert.True(t, h1.Declarations["font-weight"].Important)
	assert.Equal(t, "bold", h1.Declarations["font-weight"].Value)

	bg := sheet.Rules[2].Declarations["background"]
	assert.Equal(t, "url(data:image/png;base64,AAAA) no-repeat", bg.Value)
}

func TestCalculateSpecificity(t *testing.T) {
	p := NewParser()
	tests := []struct {
		selector string
		want     Specificity
	}{
		{"p", Specificity{Elements: 1}},
		{".a.b", Specificity{Classes: 2}},
		{"#main p", Specificity{IDs: 1, Elements: 1}},
		{"ul li a[href]", Specificity{Classes: 1, Elements: 3}},
		{"*", Specificity{}},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			assert.Equal(t, tt.want, p.calculateSpecificity(tt.selector))
		})
	}
}

func TestSpecificityCompare(t *testing.T) {
	assert.Equal(t, 1, Specificity{IDs: 1}.Compare(Specificity{Classes: 5}))
	assert.Equal(t, -1, Specificity{Elements: 1}.Compare(Specificity{Classes: 1}))
	assert.Equal(t, 0, Specificity{Classes: 1}.Compare(Specificity{Classes: 1}))
	assert.Equal(t, 1, Specificity{Important: true}.Compare(SpecificityFromInline(false)))
	assert.Equal(t, "(1000,0,0,0) !important", SpecificityFromInline(true).String())
}

func TestParseInlineStyle(t *testing.T) {
	decls := NewParser().ParseInlineStyle(`color: red; font-family: "a;b", serif; ; bogus`)
	assert.Len(t, decls, 2)
	assert.Equal(t, `"a;b", serif`, decls["font-family"].Value)
}

func TestFormatDeclarations(t *testing.T) {
	got := FormatDeclarations(map[string]Declaration{
		"margin": {Property: "margin", Value: "0"},
		"color":  {Property: "color", Value: "red", Important: true},
	})
	assert.Equal(t, "color: red !important; margin: 0", got)
	assert.Empty(t, FormatDeclarations(nil))
}

func TestStripBlockAtRules(t *testing.T) {
	got := stripBlockAtRules("a{x:1} @media print { b{x:2} c{x:3} } d{x:4}")
	assert.Equal(t, "a{x:1}  d{x:4}", got)
}
