package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/encoding"
)

// Paragraph style names used by the writer and recognized by the parser.
const (
	styleTitle         = "Title"
	styleListParagraph = "ListParagraph"
	styleQuote         = "Quote"
	styleAttribution   = "Attribution"
	styleCode          = "Code"
	styleMath          = "MathBlock"
	styleCaption       = "Caption"
	styleFigureCaption = "FigureCaption"
	styleGlossary      = "Glossary"
)

// Run style names for inline kinds with no native run property.
const (
	runStyleCode       = "CodeInline"
	runStyleCitation   = "Citation"
	runStyleMathInline = "MathInline"
)

// Numbering ids: the writer emits two abstract lists, bullet and decimal.
const (
	numIDBullet  = 1
	numIDDecimal = 2
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// packageParts are the static OPC parts of a minimal .docx archive.
var packageParts = map[string]string{
	"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>
`,
	"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>
`,
	"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>
`,
}

// writePackage assembles the .docx zip around a finished document.xml.
func writePackage(docPart string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct{ name, content string }{
		{"[Content_Types].xml", packageParts["[Content_Types].xml"]},
		{"_rels/.rels", packageParts["_rels/.rels"]},
		{"word/_rels/document.xml.rels", packageParts["word/_rels/document.xml.rels"]},
		{"word/document.xml", docPart},
		{"word/styles.xml", stylesXML()},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// stylesXML declares every paragraph and run style the writer emits.
func stylesXML() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<w:styles xmlns:w="%s">`+"\n", wordNamespace)

	paragraphStyles := []string{
		styleTitle, styleListParagraph, styleQuote, styleAttribution,
		styleCode, styleMath, styleCaption, styleFigureCaption, styleGlossary,
		"Heading1", "Heading2", "Heading3", "Heading4", "Heading5", "Heading6",
		"Heading7", "Heading8", "Heading9",
	}
	for _, name := range paragraphStyles {
		fmt.Fprintf(&b, `<w:style w:type="paragraph" w:styleId="%s"><w:name w:val="%s"/></w:style>`+"\n", name, name)
	}
	for _, name := range []string{runStyleCode, runStyleCitation, runStyleMathInline} {
		fmt.Fprintf(&b, `<w:style w:type="character" w:styleId="%s"><w:name w:val="%s"/></w:style>`+"\n", name, name)
	}

	b.WriteString("</w:styles>\n")
	return b.String()
}

// documentXML wraps rendered body content in the document part envelope.
func documentXML(body string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<w:document xmlns:w="%s">`+"\n<w:body>\n", wordNamespace)
	b.WriteString(body)
	b.WriteString("</w:body>\n</w:document>\n")
	return b.String()
}

// paragraph emits one w:p with an optional paragraph style and numbering.
func paragraph(style string, numID int, inner string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	if style != "" || numID > 0 {
		b.WriteString("<w:pPr>")
		if style != "" {
			fmt.Fprintf(&b, `<w:pStyle w:val="%s"/>`, style)
		}
		if numID > 0 {
			fmt.Fprintf(&b, `<w:numPr><w:ilvl w:val="0"/><w:numId w:val="%d"/></w:numPr>`, numID)
		}
		b.WriteString("</w:pPr>")
	}
	b.WriteString(inner)
	b.WriteString("</w:p>\n")
	return b.String()
}

// textRuns serializes semantic text as a sequence of w:r / w:hyperlink
// elements.
func textRuns(st *doc.SemanticText) string {
	if st == nil {
		return ""
	}
	var b strings.Builder
	for _, r := range st.Runs {
		switch r.Type {
		case doc.RunReference:
			fmt.Fprintf(&b, `<w:hyperlink w:anchor="%s">%s</w:hyperlink>`,
				encoding.EscapeXMLAttr(r.RefID), run("", r.Text))
		case doc.RunCitation:
			b.WriteString(styledRun(runStyleCitation, "["+r.Key+"]"))
		case doc.RunMathInline:
			b.WriteString(styledRun(runStyleMathInline, r.Expression))
		case doc.RunCode:
			b.WriteString(styledRun(runStyleCode, r.Text))
		default:
			b.WriteString(run(runProps(r.Type), r.Text))
		}
	}
	return b.String()
}

// runProps maps a run kind to its w:rPr body.
func runProps(t doc.RunType) string {
	switch t {
	case doc.RunStrong:
		return "<w:b/>"
	case doc.RunEmphasis:
		return "<w:i/>"
	case doc.RunStrikethrough:
		return "<w:strike/>"
	case doc.RunUnderline:
		return `<w:u w:val="single"/>`
	case doc.RunSubscript:
		return `<w:vertAlign w:val="subscript"/>`
	case doc.RunSuperscript:
		return `<w:vertAlign w:val="superscript"/>`
	default:
		return ""
	}
}

func run(props, text string) string {
	var b strings.Builder
	b.WriteString("<w:r>")
	if props != "" {
		b.WriteString("<w:rPr>" + props + "</w:rPr>")
	}
	writeText(&b, text)
	b.WriteString("</w:r>")
	return b.String()
}

func styledRun(style, text string) string {
	var b strings.Builder
	b.WriteString("<w:r><w:rPr>")
	fmt.Fprintf(&b, `<w:rStyle w:val="%s"/>`, style)
	b.WriteString("</w:rPr>")
	writeText(&b, text)
	b.WriteString("</w:r>")
	return b.String()
}

// writeText emits w:t elements, turning newlines into w:br so multi-line
// text survives.
func writeText(b *strings.Builder, text string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, encoding.EscapeXMLText(line))
	}
}
