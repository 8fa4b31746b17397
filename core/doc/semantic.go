package doc

import "strings"

// RunType identifies the kind of an inline run.
type RunType string

// Run type constants.
const (
	RunText          RunType = "text"
	RunEmphasis      RunType = "emphasis"
	RunStrong        RunType = "strong"
	RunCode          RunType = "code"
	RunSubscript     RunType = "subscript"
	RunSuperscript   RunType = "superscript"
	RunStrikethrough RunType = "strikethrough"
	RunUnderline     RunType = "underline"
	RunReference     RunType = "reference"
	RunCitation      RunType = "citation"
	RunMathInline    RunType = "mathInline"
)

// validRunTypes is the set of valid run types.
var validRunTypes = map[RunType]bool{
	RunText:          true,
	RunEmphasis:      true,
	RunStrong:        true,
	RunCode:          true,
	RunSubscript:     true,
	RunSuperscript:   true,
	RunStrikethrough: true,
	RunUnderline:     true,
	RunReference:     true,
	RunCitation:      true,
	RunMathInline:    true,
}

// IsValid returns true if the run type is valid.
func (r RunType) IsValid() bool {
	return validRunTypes[r]
}

// IsTextBearing returns true for run kinds whose Text field is literal
// reading text. Reference labels are display text but are handled
// separately; citation and math runs carry no literal text at all.
func (r RunType) IsTextBearing() bool {
	switch r {
	case RunText, RunEmphasis, RunStrong, RunCode, RunSubscript,
		RunSuperscript, RunStrikethrough, RunUnderline:
		return true
	default:
		return false
	}
}

// Run is one typed inline span.
type Run struct {
	// Type is the run kind.
	Type RunType `json:"type"`

	// Text is the literal text for text-bearing runs, or the display label
	// for reference runs.
	Text string `json:"text,omitempty"`

	// RefID is the target identifier for reference runs.
	RefID string `json:"refId,omitempty"`

	// Key is the citation key for citation runs.
	Key string `json:"key,omitempty"`

	// Expression is the source expression for inline math runs.
	Expression string `json:"expression,omitempty"`
}

// SemanticText is an ordered list of typed inline runs. Run order is
// reading order.
type SemanticText struct {
	Runs []Run `json:"runs"`
}

// Text builds a SemanticText holding a single plain text run.
func Text(s string) *SemanticText {
	return &SemanticText{Runs: []Run{{Type: RunText, Text: s}}}
}

// IsEmpty returns true when the text has no runs or only empty ones.
func (st *SemanticText) IsEmpty() bool {
	if st == nil {
		return true
	}
	for _, r := range st.Runs {
		if r.Text != "" || r.Expression != "" || r.Key != "" {
			return false
		}
	}
	return true
}

// Append adds a run, merging consecutive plain text runs so parser output
// stays canonical.
func (st *SemanticText) Append(r Run) {
	if r.Type == RunText && len(st.Runs) > 0 {
		last := &st.Runs[len(st.Runs)-1]
		if last.Type == RunText {
			last.Text += r.Text
			return
		}
	}
	st.Runs = append(st.Runs, r)
}

// PlainText concatenates the display text of every run in reading order.
// Reference runs contribute their label, citations contribute a bracketed
// key, and inline math contributes its expression. This is the display
// extraction; it must not be used for word counting.
func (st *SemanticText) PlainText() string {
	if st == nil {
		return ""
	}
	var b strings.Builder
	for _, r := range st.Runs {
		switch {
		case r.Type.IsTextBearing():
			b.WriteString(r.Text)
		case r.Type == RunReference:
			b.WriteString(r.Text)
		case r.Type == RunCitation:
			if r.Text != "" {
				b.WriteString(r.Text)
			} else if r.Key != "" {
				b.WriteString("[" + r.Key + "]")
			}
		case r.Type == RunMathInline:
			b.WriteString(r.Expression)
		}
	}
	return b.String()
}

// CountableText concatenates only the runs that contribute to word counts:
// text-bearing runs and reference labels. Citation and math runs are
// display-only and contribute nothing here.
func (st *SemanticText) CountableText() string {
	if st == nil {
		return ""
	}
	var b strings.Builder
	for _, r := range st.Runs {
		switch {
		case r.Type.IsTextBearing():
			b.WriteString(r.Text)
		case r.Type == RunReference:
			b.WriteString(r.Text)
		}
	}
	return b.String()
}
