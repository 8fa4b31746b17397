// Package txt renders canonical documents to plain text and parses plain
// text back. Inline formatting does not survive this format; the renderer
// concentrates on keeping content and block layout recoverable.
package txt

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/encoding"
	apperrors "github.com/xats-org/xats-go/core/errors"
	"github.com/xats-org/xats-go/core/fidelity"
	"github.com/xats-org/xats-go/core/render"
	"github.com/xats-org/xats-go/internal/logging"
)

// The document title alone is underlined with '='. Containers and heading
// blocks draw from disjoint underline sets so the parser can tell a
// structural heading from a heading block and rebuild nesting.
var (
	containerUnderlines = []byte{'-', '~', '^'}
	headingUnderlines   = []byte{'*', '+', '"'}
)

// Renderer is the bidirectional plain text renderer.
type Renderer struct {
	fidelity.RoundTripper
}

// New returns a plain text renderer.
func New() *Renderer {
	return &Renderer{}
}

// Format implements render.Renderer.
func (r *Renderer) Format() render.Format { return render.FormatText }

// Render implements render.Renderer.
func (r *Renderer) Render(ctx context.Context, d *doc.Document, opts *render.Options) (*render.Result, error) {
	start := time.Now()
	if err := render.ValidateDocument(d); err != nil {
		return nil, err
	}

	var overrides map[string]render.BlockHandler
	if opts != nil {
		overrides = opts.Overrides
	}
	engine := &render.Engine{
		Escape:    encoding.EscapePlainText,
		Handlers:  blockHandlers(),
		Overrides: overrides,
		Container: renderContainer,
		Separator: "\n\n",
	}

	var b strings.Builder
	if title := d.Title(); title != "" {
		b.WriteString(title)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("=", displayWidth(title)))
		b.WriteString("\n\n")
	}

	sections := collectSections(d)
	rendered := make([]string, 0, len(sections))
	for _, nodes := range sections {
		out, err := engine.RenderContents(nodes, 0)
		if err != nil {
			render.HandleError(optsHandler(opts), err, "render")
			return nil, err
		}
		if out != "" {
			rendered = append(rendered, out)
		}
	}
	b.WriteString(strings.Join(rendered, "\n\n"))
	b.WriteString(renderBackMatter(d.BackMatter))

	result := &render.Result{Content: strings.TrimRight(b.String(), "\n") + "\n"}
	if opts != nil && opts.IncludeMetrics {
		result.Metrics = render.CollectMetrics(d)
	}
	logging.RenderOperation("render", string(r.Format()), time.Since(start).Milliseconds())
	return result, nil
}

func optsHandler(opts *render.Options) render.ErrorHandler {
	if opts == nil {
		return nil
	}
	return opts.ErrorHandler
}

// collectSections gathers front matter and body contents in reading order.
func collectSections(d *doc.Document) [][]*doc.ContentNode {
	var sections [][]*doc.ContentNode
	if d.FrontMatter != nil {
		if len(d.FrontMatter.Preface) > 0 {
			sections = append(sections, d.FrontMatter.Preface)
		}
		if len(d.FrontMatter.Acknowledgments) > 0 {
			sections = append(sections, d.FrontMatter.Acknowledgments)
		}
	}
	if d.BodyMatter != nil && len(d.BodyMatter.Contents) > 0 {
		sections = append(sections, d.BodyMatter.Contents)
	}
	if d.BackMatter != nil && len(d.BackMatter.Appendices) > 0 {
		sections = append(sections, d.BackMatter.Appendices)
	}
	return sections
}

func renderBackMatter(bm *doc.BackMatter) string {
	if bm == nil {
		return ""
	}
	var b strings.Builder
	for _, g := range bm.Glossary {
		fmt.Fprintf(&b, "\n\n%s: %s", g.Term, g.Definition.PlainText())
	}
	for _, entry := range bm.Bibliography {
		fmt.Fprintf(&b, "\n\n%s", entry.Title)
	}
	return b.String()
}

// displayWidth is the rune count, used to size underlines.
func displayWidth(s string) int {
	return utf8.RuneCountInString(s)
}

func renderContainer(c *doc.StructuralContainer, depth int, inner string) (string, error) {
	heading := c.Title.PlainText()
	if c.Label != "" {
		if heading != "" {
			heading = c.Label + ". " + heading
		} else {
			heading = c.Label
		}
	}
	if heading == "" {
		return inner, nil
	}

	ch := containerUnderlines[len(containerUnderlines)-1]
	if depth < len(containerUnderlines) {
		ch = containerUnderlines[depth]
	}
	out := heading + "\n" + strings.Repeat(string(ch), displayWidth(heading))
	if inner != "" {
		out += "\n\n" + inner
	}
	return out, nil
}

func blockHandlers() map[string]render.BlockHandler {
	return map[string]render.BlockHandler{
		"paragraph":  renderParagraph,
		"heading":    renderHeading,
		"list":       renderList,
		"blockquote": renderBlockquote,
		"codeBlock":  renderCode,
		"mathBlock":  renderMath,
		"table":      renderTable,
		"figure":     renderFigure,
	}
}

func renderParagraph(b *doc.ContentBlock) (string, error) {
	tc, ok := b.TextContent()
	if !ok {
		return "", nil
	}
	return encoding.EscapePlainText(tc.Text.PlainText()), nil
}

func renderHeading(b *doc.ContentBlock) (string, error) {
	tc, ok := b.TextContent()
	if !ok {
		return "", nil
	}
	text := encoding.EscapePlainText(tc.Text.PlainText())
	if text == "" {
		return "", nil
	}
	level := tc.Level
	if level < 1 {
		level = 1
	}
	ch := headingUnderlines[len(headingUnderlines)-1]
	if level-1 < len(headingUnderlines) {
		ch = headingUnderlines[level-1]
	}
	return text + "\n" + strings.Repeat(string(ch), displayWidth(text)), nil
}

func renderList(b *doc.ContentBlock) (string, error) {
	lc, ok := b.ListContent()
	if !ok {
		return "", nil
	}
	lines := make([]string, 0, len(lc.Items))
	for i, item := range lc.Items {
		text := encoding.EscapePlainText(item.PlainText())
		if lc.Ordered {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, text))
		} else {
			lines = append(lines, "- "+text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func renderBlockquote(b *doc.ContentBlock) (string, error) {
	qc, ok := b.QuoteContent()
	if !ok {
		return "", nil
	}
	lines := strings.Split(encoding.EscapePlainText(qc.Text.PlainText()), "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	out := strings.Join(lines, "\n")
	if attr := qc.Attribution.PlainText(); attr != "" {
		out += "\n> -- " + encoding.EscapePlainText(attr)
	}
	return out, nil
}

func renderCode(b *doc.ContentBlock) (string, error) {
	cc, ok := b.CodeContent()
	if !ok {
		return "", nil
	}
	lines := strings.Split(cc.Code, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n"), nil
}

func renderMath(b *doc.ContentBlock) (string, error) {
	mc, ok := b.MathContent()
	if !ok {
		return "", nil
	}
	return "    " + encoding.EscapePlainText(mc.Math), nil
}

func renderTable(b *doc.ContentBlock) (string, error) {
	tc, ok := b.TableContent()
	if !ok {
		return "", nil
	}
	var lines []string
	if len(tc.Headers) > 0 {
		lines = append(lines, joinCells(tc.Headers))
	}
	for _, row := range tc.Rows {
		lines = append(lines, joinCells(row))
	}
	if caption := tc.Caption.PlainText(); caption != "" {
		lines = append(lines, encoding.EscapePlainText(caption))
	}
	return strings.Join(lines, "\n"), nil
}

func joinCells(cells []*doc.SemanticText) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = encoding.EscapePlainText(cell.PlainText())
	}
	return strings.Join(parts, " | ")
}

func renderFigure(b *doc.ContentBlock) (string, error) {
	fc, ok := b.FigureContent()
	if !ok {
		return "", nil
	}
	caption := fc.Caption.PlainText()
	if caption == "" {
		caption = fc.Alt
	}
	if caption == "" {
		return "", nil
	}
	return "[" + encoding.EscapePlainText(caption) + "]", nil
}

// ValidateFormat implements render.BidirectionalRenderer. Plain text has
// no syntax to check; only the byte encoding can be wrong.
func (r *Renderer) ValidateFormat(_ context.Context, content []byte) (*render.FormatValidation, error) {
	v := &render.FormatValidation{Valid: true, Format: r.Format()}
	if !utf8.Valid(content) {
		v.Valid = false
		v.Errors = append(v.Errors, render.Issue{
			Severity:    render.SeverityCritical,
			Type:        "encoding",
			Description: "content is not valid UTF-8",
		})
	}
	return v, nil
}

// Metadata implements render.BidirectionalRenderer.
func (r *Renderer) Metadata(content []byte) *render.ContentMetadata {
	return render.NewMetadata(r.Format(), content)
}

// Parse implements render.BidirectionalRenderer.
func (r *Renderer) Parse(ctx context.Context, content []byte, opts *render.ParseOptions) (*render.ParseResult, error) {
	if opts != nil && opts.AutoValidate {
		v, err := r.ValidateFormat(ctx, content)
		if err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, apperrors.NewFormatValidation(string(r.Format()), "content failed format validation")
		}
	}

	if !utf8.Valid(content) || strings.TrimSpace(string(content)) == "" {
		return &render.ParseResult{
			Document: doc.Minimal(),
			Errors: []render.Issue{{
				Severity:       render.SeverityCritical,
				Type:           render.IssueParse,
				Description:    "no parseable text content",
				Recommendation: "check the input is UTF-8 plain text",
			}},
		}, nil
	}

	return parseText(string(content)), nil
}
