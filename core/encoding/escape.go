// Package encoding provides shared text encoding and escaping utilities.
package encoding

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// EscapeXML escapes special characters for XML content.
// Uses the standard library's xml.EscapeText for proper escaping.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// EscapeXMLText escapes only the basic XML entities for text content.
// This is a lighter-weight alternative to EscapeXML.
func EscapeXMLText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// EscapeXMLAttr escapes text for use in XML attributes.
// Includes quote escaping in addition to basic XML entities.
func EscapeXMLAttr(s string) string {
	s = EscapeXMLText(s)
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// EscapeHTML escapes special characters for HTML content.
// Escapes: & < > "
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// EscapeMarkdown escapes characters that carry CommonMark inline meaning.
// Escapes: \ ` * _ [ ] and a leading # or > so literal text survives
// a render+parse cycle unchanged.
func EscapeMarkdown(s string) string {
	replacements := []struct {
		old, new string
	}{
		{"\\", "\\\\"},
		{"`", "\\`"},
		{"*", "\\*"},
		{"_", "\\_"},
		{"[", "\\["},
		{"]", "\\]"},
	}

	for _, r := range replacements {
		s = strings.ReplaceAll(s, r.old, r.new)
	}

	if strings.HasPrefix(s, "#") || strings.HasPrefix(s, ">") {
		s = "\\" + s
	}
	return s
}

// UnescapeMarkdown reverses EscapeMarkdown for the same character set.
func UnescapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\', '`', '*', '_', '[', ']', '#', '>':
				i++
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// EscapePlainText normalizes text for plain-text output.
// Collapses carriage returns so line-based parsers see stable input.
func EscapePlainText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}
