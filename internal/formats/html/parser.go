package html

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	xhtml "golang.org/x/net/html"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/render"
)

// parseHTML rebuilds a canonical document from HTML output. Unparseable
// input recovers into the minimal placeholder document.
func parseHTML(content []byte) *render.ParseResult {
	if !utf8.Valid(content) || strings.TrimSpace(string(content)) == "" {
		return recovered("no parseable HTML content")
	}

	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return recovered(err.Error())
	}

	body := gq.Find("body").First()
	if strings.TrimSpace(body.Text()) == "" && body.Children().Length() == 0 {
		return recovered("document body is empty")
	}

	d := &doc.Document{
		SchemaVersion:      doc.SchemaVersionCurrent,
		BibliographicEntry: &doc.BibliographicEntry{Type: "book", Title: "Untitled Document"},
		Subject:            "unknown",
		BodyMatter:         &doc.BodyMatter{},
	}
	if lang, ok := gq.Find("html").Attr("lang"); ok {
		d.Lang = lang
	}
	if t := strings.TrimSpace(gq.Find("h1.document-title").First().Text()); t != "" {
		d.BibliographicEntry.Title = t
	} else if t := strings.TrimSpace(gq.Find("title").First().Text()); t != "" {
		d.BibliographicEntry.Title = t
	}

	p := &htmlParser{d: d}
	d.BodyMatter.Contents = p.parseNodes(body)
	doc.InferKinds(d.BodyMatter.Contents)
	return &render.ParseResult{Document: d}
}

func recovered(reason string) *render.ParseResult {
	return &render.ParseResult{
		Document: doc.Minimal(),
		Errors: []render.Issue{{
			Severity:       render.SeverityCritical,
			Type:           render.IssueParse,
			Description:    reason,
			Recommendation: "check the input is UTF-8 HTML with a non-empty body",
		}},
	}
}

type htmlParser struct {
	d *doc.Document
}

// parseNodes converts a selection's element children into content nodes.
func (p *htmlParser) parseNodes(sel *goquery.Selection) []*doc.ContentNode {
	var nodes []*doc.ContentNode
	sel.Children().Each(func(_ int, child *goquery.Selection) {
		if n := p.parseNode(child); n != nil {
			nodes = append(nodes, n)
		}
	})
	return nodes
}

func (p *htmlParser) parseNode(sel *goquery.Selection) *doc.ContentNode {
	tag := goquery.NodeName(sel)
	switch tag {
	case "section":
		return doc.ContainerNode(p.parseSection(sel))

	case "h1":
		if sel.HasClass("document-title") {
			return nil
		}
		return p.parseHeadingBlock(sel, 1)
	case "h2", "h3", "h4", "h5", "h6":
		level := int(tag[1] - '0')
		return p.parseHeadingBlock(sel, level)

	case "p":
		return doc.BlockNode(doc.NewParagraph(uuid.NewString(), parseInline(sel)))

	case "ul", "ol":
		var items []*doc.SemanticText
		sel.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			items = append(items, parseInline(li))
		})
		return doc.BlockNode(doc.NewList(uuid.NewString(), tag == "ol", items))

	case "blockquote":
		return doc.BlockNode(p.parseBlockquote(sel))

	case "pre":
		code := sel.ChildrenFiltered("code").First()
		language := ""
		if class, ok := code.Attr("class"); ok {
			language = strings.TrimPrefix(class, "language-")
		}
		text := code.Text()
		if code.Length() == 0 {
			text = sel.Text()
		}
		return doc.BlockNode(doc.NewCodeBlock(uuid.NewString(), text, language))

	case "div":
		if sel.HasClass("math") {
			notation, _ := sel.Attr("data-notation")
			return doc.BlockNode(doc.NewMathBlock(uuid.NewString(), sel.Text(), notation))
		}
		// Transparent wrapper: flatten a lone child, else ignore.
		if children := p.parseNodes(sel); len(children) == 1 {
			return children[0]
		}
		return nil

	case "table":
		return doc.BlockNode(p.parseTable(sel))

	case "figure":
		return doc.BlockNode(p.parseFigure(sel))

	case "dl":
		if sel.HasClass("glossary") {
			p.parseGlossary(sel)
		}
		return nil

	default:
		return nil
	}
}

func (p *htmlParser) parseHeadingBlock(sel *goquery.Selection, level int) *doc.ContentNode {
	if attr, ok := sel.Attr("data-level"); ok {
		if parsed, err := strconv.Atoi(attr); err == nil && parsed >= 1 {
			level = parsed
		}
	}
	return doc.BlockNode(doc.NewHeading(uuid.NewString(), level, parseInline(sel)))
}

func (p *htmlParser) parseSection(sel *goquery.Selection) *doc.StructuralContainer {
	c := &doc.StructuralContainer{}
	if class, ok := sel.Attr("class"); ok {
		if kind := doc.ContainerKind(class); kind.IsValid() {
			c.Kind = kind
		}
	}
	if id, ok := sel.Attr("id"); ok {
		c.ID = id
	} else {
		c.ID = uuid.NewString()
	}
	if label, ok := sel.Attr("data-label"); ok {
		c.Label = label
	}

	titleConsumed := false
	sel.Children().Each(func(_ int, child *goquery.Selection) {
		tag := goquery.NodeName(child)
		if !titleConsumed && len(tag) == 2 && tag[0] == 'h' &&
			tag[1] >= '1' && tag[1] <= '6' && !child.HasClass("heading") {
			c.Title = parseInline(child)
			titleConsumed = true
			return
		}
		if n := p.parseNode(child); n != nil {
			c.Contents = append(c.Contents, n)
		}
	})
	return c
}

func (p *htmlParser) parseBlockquote(sel *goquery.Selection) *doc.ContentBlock {
	var text *doc.SemanticText
	if paras := sel.ChildrenFiltered("p"); paras.Length() > 0 {
		merged := &doc.SemanticText{}
		paras.Each(func(i int, para *goquery.Selection) {
			if i > 0 {
				merged.Append(doc.Run{Type: doc.RunText, Text: "\n"})
			}
			for _, r := range parseInline(para).Runs {
				merged.Append(r)
			}
		})
		text = merged
	} else {
		text = parseInline(sel)
	}

	var attribution *doc.SemanticText
	if footer := sel.ChildrenFiltered("footer").First(); footer.Length() > 0 {
		attribution = parseInline(footer)
	}
	return doc.NewBlockquote(uuid.NewString(), text, attribution)
}

func (p *htmlParser) parseTable(sel *goquery.Selection) *doc.ContentBlock {
	var headers []*doc.SemanticText
	sel.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, parseInline(th))
	})

	var rows [][]*doc.SemanticText
	sel.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var row []*doc.SemanticText
		tr.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, parseInline(td))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})

	var caption *doc.SemanticText
	if c := sel.ChildrenFiltered("caption").First(); c.Length() > 0 {
		caption = parseInline(c)
	}
	return doc.NewTable(uuid.NewString(), headers, rows, caption)
}

func (p *htmlParser) parseFigure(sel *goquery.Selection) *doc.ContentBlock {
	img := sel.ChildrenFiltered("img").First()
	src, _ := img.Attr("src")
	alt, _ := img.Attr("alt")

	var caption *doc.SemanticText
	if fc := sel.ChildrenFiltered("figcaption").First(); fc.Length() > 0 {
		caption = parseInline(fc)
	}
	return doc.NewFigure(uuid.NewString(), src, alt, caption)
}

func (p *htmlParser) parseGlossary(sel *goquery.Selection) {
	if p.d.BackMatter == nil {
		p.d.BackMatter = &doc.BackMatter{}
	}
	var term string
	sel.Children().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "dt":
			term = strings.TrimSpace(child.Text())
		case "dd":
			p.d.BackMatter.Glossary = append(p.d.BackMatter.Glossary, &doc.GlossaryEntry{
				Term:       term,
				Definition: parseInline(child),
			})
		}
	})
}

// parseInline converts an element's child nodes into typed runs.
func parseInline(sel *goquery.Selection) *doc.SemanticText {
	st := &doc.SemanticText{}
	for _, node := range sel.Nodes {
		inlineRuns(node, st)
	}
	if len(st.Runs) == 0 {
		st.Append(doc.Run{Type: doc.RunText, Text: strings.TrimSpace(sel.Text())})
	}
	return st
}

func inlineRuns(parent *xhtml.Node, st *doc.SemanticText) {
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case xhtml.TextNode:
			st.Append(doc.Run{Type: doc.RunText, Text: n.Data})
		case xhtml.ElementNode:
			appendElementRun(n, st)
		}
	}
}

func appendElementRun(n *xhtml.Node, st *doc.SemanticText) {
	switch n.Data {
	case "em", "i":
		st.Append(doc.Run{Type: doc.RunEmphasis, Text: nodeText(n)})
	case "strong", "b":
		st.Append(doc.Run{Type: doc.RunStrong, Text: nodeText(n)})
	case "code":
		st.Append(doc.Run{Type: doc.RunCode, Text: nodeText(n)})
	case "sub":
		st.Append(doc.Run{Type: doc.RunSubscript, Text: nodeText(n)})
	case "sup":
		st.Append(doc.Run{Type: doc.RunSuperscript, Text: nodeText(n)})
	case "del", "s":
		st.Append(doc.Run{Type: doc.RunStrikethrough, Text: nodeText(n)})
	case "u":
		st.Append(doc.Run{Type: doc.RunUnderline, Text: nodeText(n)})
	case "a":
		st.Append(doc.Run{
			Type:  doc.RunReference,
			Text:  nodeText(n),
			RefID: strings.TrimPrefix(attr(n, "href"), "#"),
		})
	case "span":
		switch {
		case hasClass(n, "citation"):
			st.Append(doc.Run{Type: doc.RunCitation, Key: attr(n, "data-key")})
		case hasClass(n, "math-inline"):
			st.Append(doc.Run{Type: doc.RunMathInline, Expression: nodeText(n)})
		default:
			inlineRuns(n, st)
		}
	default:
		// Unknown inline element: keep its text.
		inlineRuns(n, st)
	}
}

func nodeText(n *xhtml.Node) string {
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *xhtml.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *xhtml.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
