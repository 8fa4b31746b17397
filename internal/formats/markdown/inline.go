package markdown

import (
	"strings"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/encoding"
)

// runDelimiters maps symmetric-delimiter run kinds to their markers.
var runDelimiters = map[doc.RunType]struct{ open, close string }{
	doc.RunStrong:        {"**", "**"},
	doc.RunEmphasis:      {"*", "*"},
	doc.RunStrikethrough: {"~~", "~~"},
	doc.RunSubscript:     {"<sub>", "</sub>"},
	doc.RunSuperscript:   {"<sup>", "</sup>"},
	doc.RunUnderline:     {"<u>", "</u>"},
}

// writeInline serializes semantic text to markdown inline syntax.
func writeInline(b *strings.Builder, st *doc.SemanticText) {
	if st == nil {
		return
	}
	for _, r := range st.Runs {
		switch r.Type {
		case doc.RunText:
			b.WriteString(encoding.EscapeMarkdown(r.Text))
		case doc.RunCode:
			b.WriteString("`")
			b.WriteString(r.Text)
			b.WriteString("`")
		case doc.RunReference:
			b.WriteString("[")
			b.WriteString(encoding.EscapeMarkdown(r.Text))
			b.WriteString("](#")
			b.WriteString(r.RefID)
			b.WriteString(")")
		case doc.RunCitation:
			b.WriteString("[@")
			b.WriteString(r.Key)
			b.WriteString("]")
		case doc.RunMathInline:
			b.WriteString("$")
			b.WriteString(r.Expression)
			b.WriteString("$")
		default:
			if d, ok := runDelimiters[r.Type]; ok {
				b.WriteString(d.open)
				b.WriteString(encoding.EscapeMarkdown(r.Text))
				b.WriteString(d.close)
			} else {
				b.WriteString(encoding.EscapeMarkdown(r.Text))
			}
		}
	}
}

func inlineString(st *doc.SemanticText) string {
	var b strings.Builder
	writeInline(&b, st)
	return b.String()
}

// inlineMarker pairs a scanner marker with the run kind it produces.
type inlineMarker struct {
	open    string
	close   string
	runType doc.RunType
}

// inlineMarkers is ordered longest-open-first so ** wins over *.
var inlineMarkers = []inlineMarker{
	{"**", "**", doc.RunStrong},
	{"~~", "~~", doc.RunStrikethrough},
	{"<sub>", "</sub>", doc.RunSubscript},
	{"<sup>", "</sup>", doc.RunSuperscript},
	{"<u>", "</u>", doc.RunUnderline},
	{"*", "*", doc.RunEmphasis},
}

// parseInline scans markdown inline syntax back into typed runs. Unclosed
// markers degrade to literal text rather than failing.
func parseInline(s string) *doc.SemanticText {
	st := &doc.SemanticText{}
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			st.Append(doc.Run{Type: doc.RunText, Text: text.String()})
			text.Reset()
		}
	}

	i := 0
	for i < len(s) {
		// Backslash escapes produce the literal next byte.
		if s[i] == '\\' && i+1 < len(s) {
			text.WriteByte(s[i+1])
			i += 2
			continue
		}

		if s[i] == '`' {
			if end := strings.IndexByte(s[i+1:], '`'); end >= 0 {
				flush()
				st.Append(doc.Run{Type: doc.RunCode, Text: s[i+1 : i+1+end]})
				i += end + 2
				continue
			}
		}

		if s[i] == '$' {
			if end := strings.IndexByte(s[i+1:], '$'); end >= 0 {
				flush()
				st.Append(doc.Run{Type: doc.RunMathInline, Expression: s[i+1 : i+1+end]})
				i += end + 2
				continue
			}
		}

		if s[i] == '[' {
			if run, width, ok := parseBracket(s[i:]); ok {
				flush()
				st.Append(run)
				i += width
				continue
			}
		}

		if run, width, ok := parseDelimited(s[i:]); ok {
			flush()
			st.Append(run)
			i += width
			continue
		}

		text.WriteByte(s[i])
		i++
	}
	flush()

	if len(st.Runs) == 0 {
		st.Append(doc.Run{Type: doc.RunText, Text: ""})
	}
	return st
}

// parseBracket handles [@key] citations and [label](#ref) references.
func parseBracket(s string) (doc.Run, int, bool) {
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return doc.Run{}, 0, false
	}
	inner := s[1:end]

	if strings.HasPrefix(inner, "@") && len(inner) > 1 {
		return doc.Run{Type: doc.RunCitation, Key: inner[1:]}, end + 1, true
	}

	rest := s[end+1:]
	if strings.HasPrefix(rest, "(#") {
		if stop := strings.IndexByte(rest, ')'); stop > 1 {
			return doc.Run{
				Type:  doc.RunReference,
				Text:  encoding.UnescapeMarkdown(inner),
				RefID: rest[2:stop],
			}, end + 1 + stop + 1, true
		}
	}
	return doc.Run{}, 0, false
}

// parseDelimited handles the symmetric-delimiter markers.
func parseDelimited(s string) (doc.Run, int, bool) {
	for _, m := range inlineMarkers {
		if !strings.HasPrefix(s, m.open) {
			continue
		}
		rest := s[len(m.open):]
		end := strings.Index(rest, m.close)
		if end <= 0 {
			continue
		}
		return doc.Run{
			Type: m.runType,
			Text: encoding.UnescapeMarkdown(rest[:end]),
		}, len(m.open) + end + len(m.close), true
	}
	return doc.Run{}, 0, false
}
