package doc

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Locator is a parsed human-readable cross-reference label such as
// "Section 2.1", "Chapter 3", or "Table 4". Flat formats render reference
// runs down to labels like these; parsers use ParseLocator to recover the
// reference when reading the text back.
type Locator struct {
	// Kind is the referenced element kind (e.g., "Section").
	Kind string `json:"kind"`

	// Number is the dotted ordinal (e.g., "2.1").
	Number string `json:"number"`
}

// locatorKinds are the element kinds a locator may reference.
var locatorKinds = map[string]bool{
	"Unit":     true,
	"Chapter":  true,
	"Section":  true,
	"Table":    true,
	"Figure":   true,
	"Appendix": true,
	"Equation": true,
}

// locatorGrammar is the participle grammar for human-readable locators.
// Examples: "Section 2.1", "Chapter 3", "Table 4"
//
//nolint:govet // participle grammar tags are not standard struct tags
type locatorGrammar struct {
	Kind   string `parser:"@Ident"`
	Number string `parser:"@Number"`
}

var locatorLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z]+`},
	{Name: "Number", Pattern: `[0-9]+(\.[0-9]+)*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// locatorParser is the participle parser for human-readable locators.
var locatorParser = participle.MustBuild[locatorGrammar](
	participle.Lexer(locatorLexer),
	participle.Elide("Whitespace"),
)

// ParseLocator parses a display label into a Locator. It fails on labels
// that are not of the "Kind Number" form or whose kind is not a referable
// element kind.
func ParseLocator(s string) (*Locator, error) {
	parsed, err := locatorParser.ParseString("", strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not a reference locator: %w", err)
	}
	if !locatorKinds[parsed.Kind] {
		return nil, fmt.Errorf("not a referable element kind: %q", parsed.Kind)
	}
	return &Locator{Kind: parsed.Kind, Number: parsed.Number}, nil
}

// String renders the locator back to its display label.
func (l *Locator) String() string {
	return l.Kind + " " + l.Number
}

// RefID derives a stable reference target id from the locator
// (e.g., "section-2.1").
func (l *Locator) RefID() string {
	return strings.ToLower(l.Kind) + "-" + l.Number
}
