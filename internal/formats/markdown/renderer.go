// Package markdown renders canonical documents to a CommonMark subset
// (GFM tables and strikethrough included) and parses that subset back.
// Heading levels carry the structure: H1 is the document title, H2-H4 are
// structural containers, H5-H6 are heading blocks.
package markdown

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

// containerHeadingBase is the heading level of a depth-0 container.
const containerHeadingBase = 2

// blockHeadingBase is the heading level of a level-1 heading block.
const blockHeadingBase = 5

// Renderer is the bidirectional markdown renderer.
type Renderer struct {
	fidelity.RoundTripper
}

// New returns a markdown renderer.
func New() *Renderer {
	return &Renderer{}
}

// Format implements render.Renderer.
func (r *Renderer) Format() render.Format { return render.FormatMarkdown }

// Render implements render.Renderer.
func (r *Renderer) Render(ctx context.Context, d *doc.Document, opts *render.Options) (*render.Result, error) {
	start := time.Now()
	if err := render.ValidateDocument(d); err != nil {
		return nil, err
	}

	var overrides map[string]render.BlockHandler
	var handler render.ErrorHandler
	if opts != nil {
		overrides = opts.Overrides
		handler = opts.ErrorHandler
	}
	engine := &render.Engine{
		Escape:    encoding.EscapeMarkdown,
		Handlers:  blockHandlers(),
		Overrides: overrides,
		Container: renderContainer,
		Separator: "\n\n",
	}

	var parts []string
	if title := d.Title(); title != "" {
		parts = append(parts, "# "+encoding.EscapeMarkdown(title))
	}

	if d.FrontMatter != nil {
		for _, nodes := range [][]*doc.ContentNode{d.FrontMatter.Preface, d.FrontMatter.Acknowledgments} {
			out, err := engine.RenderContents(nodes, 0)
			if err != nil {
				render.HandleError(handler, err, "render")
				return nil, err
			}
			if out != "" {
				parts = append(parts, out)
			}
		}
	}

	out, err := engine.RenderContents(d.BodyMatter.Contents, 0)
	if err != nil {
		render.HandleError(handler, err, "render")
		return nil, err
	}
	if out != "" {
		parts = append(parts, out)
	}

	if d.BackMatter != nil && len(d.BackMatter.Appendices) > 0 {
		out, err := engine.RenderContents(d.BackMatter.Appendices, 0)
		if err != nil {
			render.HandleError(handler, err, "render")
			return nil, err
		}
		if out != "" {
			parts = append(parts, out)
		}
	}

	if bm := renderBackMatter(d.BackMatter); bm != "" {
		parts = append(parts, bm)
	}

	result := &render.Result{Content: strings.Join(parts, "\n\n") + "\n"}
	if opts != nil && opts.IncludeMetrics {
		result.Metrics = render.CollectMetrics(d)
	}
	logging.RenderOperation("render", string(r.Format()), time.Since(start).Milliseconds())
	return result, nil
}

func renderBackMatter(bm *doc.BackMatter) string {
	if bm == nil {
		return ""
	}
	var parts []string
	for _, g := range bm.Glossary {
		parts = append(parts, fmt.Sprintf("**%s**: %s",
			encoding.EscapeMarkdown(g.Term), inlineString(g.Definition)))
	}
	for _, entry := range bm.Bibliography {
		parts = append(parts, "- "+encoding.EscapeMarkdown(entry.Title))
	}
	return strings.Join(parts, "\n\n")
}

func renderContainer(c *doc.StructuralContainer, depth int, inner string) (string, error) {
	level := containerHeadingBase + depth
	if level > 4 {
		level = 4
	}

	heading := inlineString(c.Title)
	if c.Label != "" {
		if heading != "" {
			heading = encoding.EscapeMarkdown(c.Label) + ". " + heading
		} else {
			heading = encoding.EscapeMarkdown(c.Label)
		}
	}

	out := strings.Repeat("#", level) + " " + heading
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
	return inlineString(tc.Text), nil
}

func renderHeading(b *doc.ContentBlock) (string, error) {
	tc, ok := b.TextContent()
	if !ok {
		return "", nil
	}
	level := blockHeadingBase + tc.Level - 1
	if tc.Level < 1 {
		level = blockHeadingBase
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + inlineString(tc.Text), nil
}

func renderList(b *doc.ContentBlock) (string, error) {
	lc, ok := b.ListContent()
	if !ok {
		return "", nil
	}
	lines := make([]string, 0, len(lc.Items))
	for i, item := range lc.Items {
		if lc.Ordered {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, inlineString(item)))
		} else {
			lines = append(lines, "- "+inlineString(item))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func renderBlockquote(b *doc.ContentBlock) (string, error) {
	qc, ok := b.QuoteContent()
	if !ok {
		return "", nil
	}
	lines := strings.Split(inlineString(qc.Text), "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	out := strings.Join(lines, "\n")
	if qc.Attribution != nil && !qc.Attribution.IsEmpty() {
		out += "\n> -- " + inlineString(qc.Attribution)
	}
	return out, nil
}

func renderCode(b *doc.ContentBlock) (string, error) {
	cc, ok := b.CodeContent()
	if !ok {
		return "", nil
	}
	return "```" + cc.Language + "\n" + cc.Code + "\n```", nil
}

func renderMath(b *doc.ContentBlock) (string, error) {
	mc, ok := b.MathContent()
	if !ok {
		return "", nil
	}
	return "$$\n" + mc.Math + "\n$$", nil
}

func renderTable(b *doc.ContentBlock) (string, error) {
	tc, ok := b.TableContent()
	if !ok {
		return "", nil
	}

	cols := len(tc.Headers)
	if cols == 0 {
		for _, row := range tc.Rows {
			if len(row) > cols {
				cols = len(row)
			}
		}
	}
	if cols == 0 {
		return "", nil
	}

	// A headerless table is emitted without the header and separator rows
	// so the parse side does not invent empty headers.
	var lines []string
	if len(tc.Headers) > 0 {
		lines = append(lines, tableRow(tc.Headers, cols))
		lines = append(lines, "|"+strings.Repeat(" --- |", cols))
	}
	for _, row := range tc.Rows {
		lines = append(lines, tableRow(row, cols))
	}
	if tc.Caption != nil && !tc.Caption.IsEmpty() {
		lines = append(lines, "", "*"+inlineString(tc.Caption)+"*")
	}
	return strings.Join(lines, "\n"), nil
}

func tableRow(cells []*doc.SemanticText, cols int) string {
	parts := make([]string, cols)
	for i := 0; i < cols; i++ {
		if i < len(cells) {
			parts[i] = strings.ReplaceAll(inlineString(cells[i]), "|", "\\|")
		}
	}
	return "| " + strings.Join(parts, " | ") + " |"
}

func renderFigure(b *doc.ContentBlock) (string, error) {
	fc, ok := b.FigureContent()
	if !ok {
		return "", nil
	}
	out := fmt.Sprintf("![%s](%s", encoding.EscapeMarkdown(fc.Alt), fc.Src)
	if fc.Caption != nil && !fc.Caption.IsEmpty() {
		out += fmt.Sprintf(" %q", fc.Caption.PlainText())
	}
	return out + ")", nil
}

// ValidateFormat implements render.BidirectionalRenderer. Markdown is
// permissive; only the encoding and unterminated fences can be wrong.
func (r *Renderer) ValidateFormat(_ context.Context, content []byte) (*render.FormatValidation, error) {
	v := &render.FormatValidation{Valid: true, Format: r.Format()}
	if !utf8.Valid(content) {
		v.Valid = false
		v.Errors = append(v.Errors, render.Issue{
			Severity:    render.SeverityCritical,
			Type:        "encoding",
			Description: "content is not valid UTF-8",
		})
		return v, nil
	}

	fences := 0
	for _, line := range strings.Split(string(content), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			fences++
		}
	}
	if fences%2 != 0 {
		v.Valid = false
		v.Errors = append(v.Errors, render.Issue{
			Severity:       render.SeverityWarning,
			Type:           "syntax",
			Description:    "unterminated code fence",
			Recommendation: "close the ``` fence",
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
				Description:    "no parseable markdown content",
				Recommendation: "check the input is UTF-8 markdown",
			}},
		}, nil
	}

	return parseMarkdown(string(content)), nil
}
