package docx

import (
	"archive/zip"
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/google/uuid"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/render"
)

var labelPattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.\s+(.*)$`)

// parseDocx rebuilds a canonical document from a WordprocessingML package.
// Input that is not a readable .docx archive recovers into the minimal
// placeholder document.
func parseDocx(content []byte) *render.ParseResult {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return recovered("content is not a zip archive: " + err.Error())
	}
	root, err := readDocumentPart(zr)
	if err != nil {
		return recovered("cannot read word/document.xml: " + err.Error())
	}
	body := findDescendant(root, "body")
	if body == nil {
		return recovered("document part has no body element")
	}

	p := &docxParser{
		d: &doc.Document{
			SchemaVersion:      doc.SchemaVersionCurrent,
			BibliographicEntry: &doc.BibliographicEntry{Type: "book", Title: "Untitled Document"},
			Subject:            "unknown",
			BodyMatter:         &doc.BodyMatter{},
		},
	}
	p.parseBody(body)
	doc.InferKinds(p.d.BodyMatter.Contents)
	return &render.ParseResult{Document: p.d}
}

func recovered(reason string) *render.ParseResult {
	return &render.ParseResult{
		Document: doc.Minimal(),
		Errors: []render.Issue{{
			Severity:       render.SeverityCritical,
			Type:           render.IssueParse,
			Description:    reason,
			Recommendation: "check the input is a WordprocessingML package",
		}},
	}
}

// docxParser accumulates the document while walking body elements.
// Heading1-3 paragraphs open containers on a stack; blocks append to the
// innermost open container.
type docxParser struct {
	d     *doc.Document
	stack []*doc.StructuralContainer

	listItems   []*doc.SemanticText
	listOrdered bool
	sawTitle    bool
}

func (p *docxParser) parseBody(body *xmlquery.Node) {
	for n := body.FirstChild; n != nil; {
		if n.Type != xmlquery.ElementNode {
			n = n.NextSibling
			continue
		}
		switch n.Data {
		case "p":
			n = p.parseParagraph(n)
		case "tbl":
			p.flushList()
			caption, next := p.styledFollower(n, styleCaption)
			p.append(doc.BlockNode(p.parseTable(n, caption)))
			n = next
		default:
			n = n.NextSibling
		}
	}
	p.flushList()
}

// styledFollower peeks at the element after n: when it is a paragraph in
// the wanted style it is consumed and its runs returned. The second
// return is the walk continuation point either way.
func (p *docxParser) styledFollower(n *xmlquery.Node, style string) (*doc.SemanticText, *xmlquery.Node) {
	m := nextElement(n)
	if m != nil && m.Data == "p" && paragraphStyle(m) == style {
		return parseRuns(m), m.NextSibling
	}
	return nil, n.NextSibling
}

// append adds a node to the innermost open container, or the body.
func (p *docxParser) append(n *doc.ContentNode) {
	if len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		top.Contents = append(top.Contents, n)
		return
	}
	p.d.BodyMatter.Contents = append(p.d.BodyMatter.Contents, n)
}

// parseParagraph handles one w:p and returns where the body walk should
// continue, since quotes and figures may consume a follower paragraph.
func (p *docxParser) parseParagraph(n *xmlquery.Node) *xmlquery.Node {
	style := paragraphStyle(n)
	numID := paragraphNumID(n)

	// Consecutive list paragraphs merge into one list block.
	if numID > 0 || style == styleListParagraph {
		ordered := numID == numIDDecimal
		if len(p.listItems) > 0 && ordered != p.listOrdered {
			p.flushList()
		}
		p.listOrdered = ordered
		p.listItems = append(p.listItems, parseRuns(n))
		return n.NextSibling
	}
	p.flushList()

	switch {
	case style == styleTitle:
		if !p.sawTitle {
			p.d.BibliographicEntry.Title = parseRuns(n).PlainText()
			p.sawTitle = true
		}

	case strings.HasPrefix(style, "Heading"):
		p.parseHeading(style, n)

	case style == styleQuote:
		attribution, next := p.styledFollower(n, styleAttribution)
		p.append(doc.BlockNode(doc.NewBlockquote(uuid.NewString(), parseRuns(n), attribution)))
		return next

	case style == styleCode:
		marker, text := splitMarker(n)
		p.append(doc.BlockNode(doc.NewCodeBlock(uuid.NewString(), text.PlainText(), marker)))

	case style == styleMath:
		p.append(doc.BlockNode(doc.NewMathBlock(uuid.NewString(), parseRuns(n).PlainText(), "")))

	case style == styleFigureCaption:
		src, caption := splitMarker(n)
		p.append(doc.BlockNode(doc.NewFigure(uuid.NewString(), src, "", caption)))

	case style == styleGlossary:
		p.parseGlossary(n)

	default:
		// Caption and Attribution paragraphs with no preceding table or
		// quote land here and degrade to ordinary paragraphs.
		st := parseRuns(n)
		if st.PlainText() != "" {
			p.append(doc.BlockNode(doc.NewParagraph(uuid.NewString(), st)))
		}
	}

	return n.NextSibling
}

func (p *docxParser) flushList() {
	if len(p.listItems) == 0 {
		return
	}
	p.append(doc.BlockNode(doc.NewList(uuid.NewString(), p.listOrdered, p.listItems)))
	p.listItems = nil
}

// parseHeading routes HeadingN paragraphs: 1-3 open containers, 4 and up
// are heading blocks whose level the style number encodes.
func (p *docxParser) parseHeading(style string, n *xmlquery.Node) {
	level, err := strconv.Atoi(strings.TrimPrefix(style, "Heading"))
	if err != nil || level < 1 {
		level = 1
	}

	if level > maxContainerHeading {
		p.append(doc.BlockNode(doc.NewHeading(uuid.NewString(), level-blockHeadingBase, parseRuns(n))))
		return
	}

	depth := level - 1
	for len(p.stack) > depth {
		p.stack = p.stack[:len(p.stack)-1]
	}

	c := &doc.StructuralContainer{ID: uuid.NewString()}
	text := parseRuns(n).PlainText()
	if m := labelPattern.FindStringSubmatch(text); m != nil {
		c.Label = m[1]
		c.Title = doc.Text(m[2])
	} else {
		c.Title = doc.Text(text)
	}

	p.append(doc.ContainerNode(c))
	p.stack = append(p.stack, c)
}

func (p *docxParser) parseTable(n *xmlquery.Node, caption *doc.SemanticText) *doc.ContentBlock {
	var headers []*doc.SemanticText
	var rows [][]*doc.SemanticText

	for tr := n.FirstChild; tr != nil; tr = tr.NextSibling {
		if tr.Type != xmlquery.ElementNode || tr.Data != "tr" {
			continue
		}
		var row []*doc.SemanticText
		for tc := tr.FirstChild; tc != nil; tc = tc.NextSibling {
			if tc.Type != xmlquery.ElementNode || tc.Data != "tc" {
				continue
			}
			if para := findChild(tc, "p"); para != nil {
				row = append(row, parseRuns(para))
			} else {
				row = append(row, doc.Text(""))
			}
		}
		if findDescendant(tr, "tblHeader") != nil && headers == nil {
			headers = row
			continue
		}
		rows = append(rows, row)
	}
	return doc.NewTable(uuid.NewString(), headers, rows, caption)
}

// parseGlossary splits a glossary paragraph back into term and
// definition: the leading bold run is the term, the ": " text run is the
// separator the writer inserted.
func (p *docxParser) parseGlossary(n *xmlquery.Node) {
	st := parseRuns(n)
	if len(st.Runs) == 0 {
		return
	}
	term := st.Runs[0].Text
	definition := &doc.SemanticText{}
	for i, r := range st.Runs[1:] {
		if i == 0 && r.Type == doc.RunText {
			r.Text = strings.TrimPrefix(r.Text, ": ")
			if r.Text == "" {
				continue
			}
		}
		definition.Append(r)
	}

	if p.d.BackMatter == nil {
		p.d.BackMatter = &doc.BackMatter{}
	}
	p.d.BackMatter.Glossary = append(p.d.BackMatter.Glossary, &doc.GlossaryEntry{
		Term:       term,
		Definition: definition,
	})
}

// splitMarker separates the leading code-styled marker run the writer
// uses to smuggle a language or source attribute through the format. The
// marker is the run's text up to its trailing newline.
func splitMarker(n *xmlquery.Node) (string, *doc.SemanticText) {
	st := parseRuns(n)
	if len(st.Runs) == 0 {
		return "", st
	}
	first := st.Runs[0]
	if first.Type == doc.RunCode && strings.HasSuffix(first.Text, "\n") {
		rest := &doc.SemanticText{}
		for _, r := range st.Runs[1:] {
			rest.Append(r)
		}
		return strings.TrimSuffix(first.Text, "\n"), rest
	}
	return "", st
}

// parseRuns converts a paragraph's run and hyperlink children into typed
// runs.
func parseRuns(p *xmlquery.Node) *doc.SemanticText {
	st := &doc.SemanticText{}
	for n := p.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		switch n.Data {
		case "r":
			appendRun(n, st)
		case "hyperlink":
			st.Append(doc.Run{
				Type:  doc.RunReference,
				Text:  runText(n),
				RefID: attrLocal(n, "anchor"),
			})
		}
	}
	return st
}

func appendRun(r *xmlquery.Node, st *doc.SemanticText) {
	text := runText(r)
	props := findChild(r, "rPr")

	if style := childAttr(props, "rStyle", "val"); style != "" {
		switch style {
		case runStyleCitation:
			st.Append(doc.Run{Type: doc.RunCitation, Key: strings.Trim(text, "[]")})
		case runStyleMathInline:
			st.Append(doc.Run{Type: doc.RunMathInline, Expression: text})
		default:
			st.Append(doc.Run{Type: doc.RunCode, Text: text})
		}
		return
	}

	st.Append(doc.Run{Type: runType(props), Text: text})
}

// runType maps run properties back to a run kind.
func runType(props *xmlquery.Node) doc.RunType {
	switch {
	case findChild(props, "b") != nil:
		return doc.RunStrong
	case findChild(props, "i") != nil:
		return doc.RunEmphasis
	case findChild(props, "strike") != nil:
		return doc.RunStrikethrough
	case findChild(props, "u") != nil:
		return doc.RunUnderline
	case childAttr(props, "vertAlign", "val") == "subscript":
		return doc.RunSubscript
	case childAttr(props, "vertAlign", "val") == "superscript":
		return doc.RunSuperscript
	default:
		return doc.RunText
	}
}

// runText joins a run's w:t children, restoring w:br as newlines.
func runText(r *xmlquery.Node) string {
	var b strings.Builder
	var walk func(*xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			switch c.Data {
			case "t":
				b.WriteString(c.InnerText())
			case "br":
				b.WriteString("\n")
			case "rPr":
			default:
				walk(c)
			}
		}
	}
	walk(r)
	return b.String()
}

func paragraphStyle(p *xmlquery.Node) string {
	return childAttr(findChild(p, "pPr"), "pStyle", "val")
}

func paragraphNumID(p *xmlquery.Node) int {
	numPr := findChild(findChild(p, "pPr"), "numPr")
	id, err := strconv.Atoi(childAttr(numPr, "numId", "val"))
	if err != nil {
		return 0
	}
	return id
}

// nextElement returns the next sibling element node.
func nextElement(n *xmlquery.Node) *xmlquery.Node {
	for m := n.NextSibling; m != nil; m = m.NextSibling {
		if m.Type == xmlquery.ElementNode {
			return m
		}
	}
	return nil
}

// findChild returns the first element child with the given local name.
func findChild(n *xmlquery.Node, name string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

// findDescendant returns the first descendant element with the given
// local name, depth first.
func findDescendant(n *xmlquery.Node, name string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
		if found := findDescendant(c, name); found != nil {
			return found
		}
	}
	return nil
}

// childAttr reads an attribute from a named child element.
func childAttr(n *xmlquery.Node, child, attrName string) string {
	c := findChild(n, child)
	if c == nil {
		return ""
	}
	return attrLocal(c, attrName)
}

// attrLocal reads an attribute by local name, ignoring its namespace
// prefix.
func attrLocal(n *xmlquery.Node, name string) string {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
