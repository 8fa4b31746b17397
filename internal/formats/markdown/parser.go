package markdown

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/encoding"
	"github.com/xats-org/xats-go/core/render"
)

var (
	headingPattern  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	orderedPattern  = regexp.MustCompile(`^\d+\.\s+(.*)$`)
	labelPattern    = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.\s+(.*)$`)
	figurePattern   = regexp.MustCompile(`^!\[(.*)\]\((\S*?)(?:\s+"(.*)")?\)$`)
	captionPattern  = regexp.MustCompile(`^\*(.+)\*$`)
	tableSepPattern = regexp.MustCompile(`^\|(\s*:?-+:?\s*\|)+$`)
	glossaryPattern = regexp.MustCompile(`^\*\*(.+?)\*\*:\s+(.*)$`)
)

const (
	attributionPrefix = "> -- "
	blockquotePrefix  = "> "
	unorderedPrefix   = "- "
	codeFence         = "```"
	mathFence         = "$$"
)

// parser accumulates the document while walking lines. Containers found
// via H2-H4 headings form a stack; blocks append to the innermost open
// container.
type parser struct {
	d     *doc.Document
	stack []*doc.StructuralContainer
}

// parseMarkdown rebuilds a canonical document from markdown output.
func parseMarkdown(content string) *render.ParseResult {
	p := &parser{
		d: &doc.Document{
			SchemaVersion:      doc.SchemaVersionCurrent,
			BibliographicEntry: &doc.BibliographicEntry{Type: "book", Title: "Untitled Document"},
			Subject:            "unknown",
			BodyMatter:         &doc.BodyMatter{},
		},
	}

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	i := 0
	sawTitle := false

	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++

		case strings.HasPrefix(trimmed, codeFence):
			i = p.parseCodeFence(lines, i)

		case trimmed == mathFence:
			i = p.parseMathFence(lines, i)

		case headingPattern.MatchString(trimmed):
			m := headingPattern.FindStringSubmatch(trimmed)
			level := len(m[1])
			text := m[2]
			if level == 1 && !sawTitle {
				p.d.BibliographicEntry.Title = parseInline(text).PlainText()
				sawTitle = true
			} else if level <= 4 {
				p.openContainer(level, text)
			} else {
				p.append(doc.BlockNode(doc.NewHeading(uuid.NewString(), level-blockHeadingBase+1, parseInline(text))))
			}
			i++

		case strings.HasPrefix(line, blockquotePrefix) || trimmed == ">":
			i = p.parseBlockquote(lines, i)

		case strings.HasPrefix(line, unorderedPrefix):
			i = p.parseList(lines, i, false)

		case orderedPattern.MatchString(line):
			i = p.parseList(lines, i, true)

		case strings.HasPrefix(trimmed, "|"):
			i = p.parseTable(lines, i)

		case figurePattern.MatchString(trimmed):
			m := figurePattern.FindStringSubmatch(trimmed)
			var caption *doc.SemanticText
			if m[3] != "" {
				caption = doc.Text(m[3])
			}
			p.append(doc.BlockNode(doc.NewFigure(uuid.NewString(), m[2], encoding.UnescapeMarkdown(m[1]), caption)))
			i++

		case glossaryPattern.MatchString(trimmed):
			m := glossaryPattern.FindStringSubmatch(trimmed)
			p.addGlossary(encoding.UnescapeMarkdown(m[1]), m[2])
			i++

		default:
			i = p.parseParagraph(lines, i)
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

// openContainer starts a container at the depth its heading level encodes,
// closing any deeper or sibling containers first.
func (p *parser) openContainer(level int, text string) {
	depth := level - containerHeadingBase
	if depth < 0 {
		depth = 0
	}
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

func (p *parser) parseCodeFence(lines []string, i int) int {
	language := strings.TrimPrefix(strings.TrimSpace(lines[i]), codeFence)
	i++
	var code []string
	for i < len(lines) && strings.TrimSpace(lines[i]) != codeFence {
		code = append(code, lines[i])
		i++
	}
	if i < len(lines) {
		i++ // closing fence
	}
	p.append(doc.BlockNode(doc.NewCodeBlock(uuid.NewString(), strings.Join(code, "\n"), language)))
	return i
}

func (p *parser) parseMathFence(lines []string, i int) int {
	i++
	var math []string
	for i < len(lines) && strings.TrimSpace(lines[i]) != mathFence {
		math = append(math, lines[i])
		i++
	}
	if i < len(lines) {
		i++
	}
	p.append(doc.BlockNode(doc.NewMathBlock(uuid.NewString(), strings.Join(math, "\n"), "")))
	return i
}

func (p *parser) parseBlockquote(lines []string, i int) int {
	var text []string
	var attribution *doc.SemanticText
	for i < len(lines) {
		line := lines[i]
		if strings.HasPrefix(line, attributionPrefix) {
			attribution = parseInline(strings.TrimPrefix(line, attributionPrefix))
			i++
			continue
		}
		if strings.HasPrefix(line, blockquotePrefix) {
			text = append(text, strings.TrimPrefix(line, blockquotePrefix))
			i++
			continue
		}
		if strings.TrimSpace(line) == ">" {
			text = append(text, "")
			i++
			continue
		}
		break
	}
	p.append(doc.BlockNode(doc.NewBlockquote(uuid.NewString(), parseInline(strings.Join(text, "\n")), attribution)))
	return i
}

func (p *parser) parseList(lines []string, i int, ordered bool) int {
	var items []*doc.SemanticText
	for i < len(lines) {
		line := lines[i]
		if ordered {
			m := orderedPattern.FindStringSubmatch(line)
			if m == nil {
				break
			}
			items = append(items, parseInline(m[1]))
		} else {
			if !strings.HasPrefix(line, unorderedPrefix) {
				break
			}
			items = append(items, parseInline(strings.TrimPrefix(line, unorderedPrefix)))
		}
		i++
	}
	p.append(doc.BlockNode(doc.NewList(uuid.NewString(), ordered, items)))
	return i
}

func (p *parser) parseTable(lines []string, i int) int {
	var rows [][]*doc.SemanticText
	headerSeen := false
	var headers []*doc.SemanticText

	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "|") {
			break
		}
		if tableSepPattern.MatchString(strings.ReplaceAll(trimmed, " ", "")) ||
			tableSepPattern.MatchString(trimmed) {
			// Separator promotes the first row to headers.
			if len(rows) == 1 && !headerSeen {
				headers = rows[0]
				rows = nil
				headerSeen = true
			}
			i++
			continue
		}
		rows = append(rows, splitTableRow(trimmed))
		i++
	}

	var caption *doc.SemanticText
	if j := skipBlank(lines, i); j < len(lines) {
		if m := captionPattern.FindStringSubmatch(strings.TrimSpace(lines[j])); m != nil {
			caption = parseInline(m[1])
			i = j + 1
		}
	}

	p.append(doc.BlockNode(doc.NewTable(uuid.NewString(), headers, rows, caption)))
	return i
}

func splitTableRow(line string) []*doc.SemanticText {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")

	// Split on unescaped pipes only.
	var cells []string
	var current strings.Builder
	for i := 0; i < len(line); i++ {
		if line[i] == '\\' && i+1 < len(line) && line[i+1] == '|' {
			current.WriteByte('|')
			i++
			continue
		}
		if line[i] == '|' {
			cells = append(cells, current.String())
			current.Reset()
			continue
		}
		current.WriteByte(line[i])
	}
	cells = append(cells, current.String())

	row := make([]*doc.SemanticText, 0, len(cells))
	for _, cell := range cells {
		row = append(row, parseInline(strings.TrimSpace(cell)))
	}
	return row
}

func (p *parser) parseParagraph(lines []string, i int) int {
	var text []string
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || headingPattern.MatchString(trimmed) ||
			strings.HasPrefix(lines[i], blockquotePrefix) ||
			strings.HasPrefix(lines[i], unorderedPrefix) ||
			orderedPattern.MatchString(lines[i]) ||
			strings.HasPrefix(trimmed, "|") ||
			strings.HasPrefix(trimmed, codeFence) ||
			trimmed == mathFence {
			break
		}
		text = append(text, trimmed)
		i++
	}
	p.append(doc.BlockNode(doc.NewParagraph(uuid.NewString(), parseInline(strings.Join(text, " ")))))
	return i
}

// addGlossary routes a "**term**: definition" line into back matter.
func (p *parser) addGlossary(term, definition string) {
	if p.d.BackMatter == nil {
		p.d.BackMatter = &doc.BackMatter{}
	}
	p.d.BackMatter.Glossary = append(p.d.BackMatter.Glossary, &doc.GlossaryEntry{
		Term:       term,
		Definition: parseInline(definition),
	})
}

func skipBlank(lines []string, i int) int {
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return i
}
