package txt

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/render"
)

// locatorPattern finds cross-reference phrases like "Section 2.1" so the
// parser can restore them as typed reference runs.
var locatorPattern = regexp.MustCompile(`\b(Unit|Chapter|Section|Table|Figure|Appendix|Equation)\s+\d+(?:\.\d+)*\b`)

// orderedItemPattern matches "1. item" lines.
var orderedItemPattern = regexp.MustCompile(`^\d+\.\s+(.*)$`)

// labelPattern splits a "1.2. Title" container heading into label and title.
var labelPattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.\s+(.*)$`)

// parser accumulates the document while walking line groups. Container
// headings form a stack keyed on their underline character; blocks append
// to the innermost open container.
type parser struct {
	d     *doc.Document
	stack []*doc.StructuralContainer
}

// parseText rebuilds a canonical document from plain text output. The
// format carries no inline markup, so runs come back as plain text except
// for recognizable cross-reference phrases.
func parseText(content string) *render.ParseResult {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	title := "Untitled Document"
	if t, rest, ok := splitTitle(lines); ok {
		title = t
		lines = rest
	}

	p := &parser{
		d: &doc.Document{
			SchemaVersion:      doc.SchemaVersionCurrent,
			BibliographicEntry: &doc.BibliographicEntry{Type: "book", Title: title},
			Subject:            "unknown",
			BodyMatter:         &doc.BodyMatter{},
		},
	}

	for _, group := range groupParagraphs(lines) {
		if depth, ok := containerDepth(group); ok {
			p.openContainer(depth, strings.TrimSpace(group[0]))
			continue
		}
		if block := parseBlock(group); block != nil {
			p.append(doc.BlockNode(block))
		}
	}

	doc.InferKinds(p.d.BodyMatter.Contents)
	return &render.ParseResult{Document: p.d}
}

// append adds a node to the innermost open container, or the body.
func (p *parser) append(n *doc.ContentNode) {
	if len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		top.Contents = append(top.Contents, n)
		return
	}
	p.d.BodyMatter.Contents = append(p.d.BodyMatter.Contents, n)
}

// openContainer starts a container at the depth its underline encodes,
// closing any deeper or sibling containers first.
func (p *parser) openContainer(depth int, text string) {
	for len(p.stack) > depth {
		p.stack = p.stack[:len(p.stack)-1]
	}

	c := &doc.StructuralContainer{ID: uuid.NewString()}
	if m := labelPattern.FindStringSubmatch(text); m != nil {
		c.Label = m[1]
		c.Title = parseInline(m[2])
	} else {
		c.Title = parseInline(text)
	}

	p.append(doc.ContainerNode(c))
	p.stack = append(p.stack, c)
}

// containerDepth reports whether a line group is a container heading and
// at which depth its underline character places it.
func containerDepth(lines []string) (int, bool) {
	if len(lines) != 2 || strings.TrimSpace(lines[0]) == "" {
		return 0, false
	}
	return underlineIndex(containerUnderlines, lines[1])
}

// underlineIndex finds the position of an underline's character in a set.
func underlineIndex(set []byte, underline string) (int, bool) {
	underline = strings.TrimSpace(underline)
	if underline == "" {
		return 0, false
	}
	for i, ch := range set {
		if strings.Trim(underline, string(ch)) == "" {
			return i, true
		}
	}
	return 0, false
}

// splitTitle detects a leading title underlined with '='.
func splitTitle(lines []string) (string, []string, bool) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i+1 >= len(lines) {
		return "", nil, false
	}
	title := strings.TrimSpace(lines[i])
	underline := strings.TrimSpace(lines[i+1])
	if title == "" || underline == "" || strings.Trim(underline, "=") != "" {
		return "", nil, false
	}
	return title, lines[i+2:], true
}

// groupParagraphs splits lines into blank-line-separated groups.
func groupParagraphs(lines []string) [][]string {
	var groups [][]string
	var current []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				groups = append(groups, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// parseBlock classifies one line group by shape.
func parseBlock(lines []string) *doc.ContentBlock {
	switch {
	case isHeading(lines):
		return doc.NewHeading(uuid.NewString(), headingLevel(lines[1]), parseInline(strings.TrimSpace(lines[0])))
	case allPrefixed(lines, "> "):
		return parseQuote(lines)
	case allPrefixed(lines, "- "):
		items := make([]*doc.SemanticText, 0, len(lines))
		for _, line := range lines {
			items = append(items, parseInline(strings.TrimPrefix(line, "- ")))
		}
		return doc.NewList(uuid.NewString(), false, items)
	case allOrdered(lines):
		items := make([]*doc.SemanticText, 0, len(lines))
		for _, line := range lines {
			m := orderedItemPattern.FindStringSubmatch(line)
			items = append(items, parseInline(m[1]))
		}
		return doc.NewList(uuid.NewString(), true, items)
	case allPrefixed(lines, "    "):
		code := make([]string, 0, len(lines))
		for _, line := range lines {
			code = append(code, strings.TrimPrefix(line, "    "))
		}
		return doc.NewCodeBlock(uuid.NewString(), strings.Join(code, "\n"), "")
	case isTable(lines):
		return parseTable(lines)
	default:
		return doc.NewParagraph(uuid.NewString(), parseInline(strings.Join(trimAll(lines), " ")))
	}
}

func isHeading(lines []string) bool {
	if len(lines) != 2 {
		return false
	}
	_, ok := underlineIndex(headingUnderlines, lines[1])
	return ok
}

func headingLevel(underline string) int {
	if i, ok := underlineIndex(headingUnderlines, underline); ok {
		return i + 1
	}
	return 1
}

func allPrefixed(lines []string, prefix string) bool {
	for _, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			return false
		}
	}
	return len(lines) > 0
}

func allOrdered(lines []string) bool {
	for _, line := range lines {
		if !orderedItemPattern.MatchString(line) {
			return false
		}
	}
	return len(lines) > 0
}

func isTable(lines []string) bool {
	for _, line := range lines {
		if !strings.Contains(line, " | ") {
			return false
		}
	}
	return len(lines) > 0
}

func parseQuote(lines []string) *doc.ContentBlock {
	var text []string
	var attribution *doc.SemanticText
	for _, line := range lines {
		stripped := strings.TrimPrefix(line, "> ")
		if strings.HasPrefix(stripped, "-- ") {
			attribution = parseInline(strings.TrimPrefix(stripped, "-- "))
			continue
		}
		text = append(text, stripped)
	}
	return doc.NewBlockquote(uuid.NewString(), parseInline(strings.Join(text, "\n")), attribution)
}

func parseTable(lines []string) *doc.ContentBlock {
	rows := make([][]*doc.SemanticText, 0, len(lines))
	for _, line := range lines {
		cells := strings.Split(line, " | ")
		row := make([]*doc.SemanticText, 0, len(cells))
		for _, cell := range cells {
			row = append(row, parseInline(strings.TrimSpace(cell)))
		}
		rows = append(rows, row)
	}
	return doc.NewTable(uuid.NewString(), nil, rows, nil)
}

func trimAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.TrimSpace(line)
	}
	return out
}

// parseInline converts text into runs, restoring cross-reference phrases
// as typed reference runs.
func parseInline(s string) *doc.SemanticText {
	st := &doc.SemanticText{}
	last := 0
	for _, loc := range locatorPattern.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			st.Append(doc.Run{Type: doc.RunText, Text: s[last:loc[0]]})
		}
		label := s[loc[0]:loc[1]]
		run := doc.Run{Type: doc.RunReference, Text: label}
		if l, err := doc.ParseLocator(label); err == nil {
			run.RefID = l.RefID()
		}
		st.Append(run)
		last = loc[1]
	}
	if last < len(s) {
		st.Append(doc.Run{Type: doc.RunText, Text: s[last:]})
	}
	if len(st.Runs) == 0 {
		st.Append(doc.Run{Type: doc.RunText, Text: s})
	}
	return st
}
