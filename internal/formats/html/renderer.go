// Package html renders canonical documents to HTML5 and parses that HTML
// back. Structural containers become <section> elements classed by kind,
// so the tree survives the round trip; inline runs map to their semantic
// HTML elements.
package html

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

// Renderer is the bidirectional HTML renderer.
type Renderer struct {
	fidelity.RoundTripper
}

// New returns an HTML renderer.
func New() *Renderer {
	return &Renderer{}
}

// Format implements render.Renderer.
func (r *Renderer) Format() render.Format { return render.FormatHTML }

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
		Escape:    encoding.EscapeHTML,
		Handlers:  blockHandlers(),
		Overrides: overrides,
		Container: renderContainer,
		Fallback:  renderUnknown,
		Separator: "\n",
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html")
	if d.Lang != "" {
		fmt.Fprintf(&b, " lang=%q", d.Lang)
	}
	b.WriteString(">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n</head>\n<body>\n", encoding.EscapeHTML(d.Title()))

	if title := d.Title(); title != "" {
		fmt.Fprintf(&b, "<h1 class=\"document-title\">%s</h1>\n", encoding.EscapeHTML(title))
	}

	sections := [][]*doc.ContentNode{}
	if d.FrontMatter != nil {
		sections = append(sections, d.FrontMatter.Preface, d.FrontMatter.Acknowledgments)
	}
	sections = append(sections, d.BodyMatter.Contents)
	if d.BackMatter != nil && len(d.BackMatter.Appendices) > 0 {
		sections = append(sections, d.BackMatter.Appendices)
	}

	for _, nodes := range sections {
		out, err := engine.RenderContents(nodes, 0)
		if err != nil {
			render.HandleError(handler, err, "render")
			return nil, err
		}
		if out != "" {
			b.WriteString(out)
			b.WriteString("\n")
		}
	}

	writeBackMatter(&b, d.BackMatter)
	b.WriteString("</body>\n</html>\n")

	result := &render.Result{Content: b.String()}
	if opts != nil && opts.IncludeMetrics {
		result.Metrics = render.CollectMetrics(d)
	}
	logging.RenderOperation("render", string(r.Format()), time.Since(start).Milliseconds())
	return result, nil
}

func writeBackMatter(b *strings.Builder, bm *doc.BackMatter) {
	if bm == nil || len(bm.Glossary) == 0 {
		return
	}
	b.WriteString("<dl class=\"glossary\">\n")
	for _, g := range bm.Glossary {
		fmt.Fprintf(b, "<dt>%s</dt><dd>%s</dd>\n",
			encoding.EscapeHTML(g.Term), inlineHTML(g.Definition))
	}
	b.WriteString("</dl>\n")
}

func renderContainer(c *doc.StructuralContainer, depth int, inner string) (string, error) {
	kind := string(c.Kind)
	if kind == "" {
		kind = "section"
	}

	var b strings.Builder
	b.WriteString("<section class=\"" + kind + "\"")
	if c.ID != "" {
		fmt.Fprintf(&b, " id=%q", c.ID)
	}
	if c.Label != "" {
		fmt.Fprintf(&b, " data-label=%q", c.Label)
	}
	b.WriteString(">\n")

	level := depth + 2
	if level > 6 {
		level = 6
	}
	if c.Title != nil && !c.Title.IsEmpty() {
		fmt.Fprintf(&b, "<h%d>%s</h%d>\n", level, inlineHTML(c.Title), level)
	}
	if inner != "" {
		b.WriteString(inner)
		b.WriteString("\n")
	}
	b.WriteString("</section>")
	return b.String(), nil
}

func renderUnknown(b *doc.ContentBlock) string {
	if st, ok := b.SniffText(); ok {
		return "<p>" + inlineHTML(st) + "</p>"
	}
	return fmt.Sprintf("<!-- unsupported block: %s -->", encoding.EscapeHTML(b.LocalName()))
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
	return "<p>" + inlineHTML(tc.Text) + "</p>", nil
}

func renderHeading(b *doc.ContentBlock) (string, error) {
	tc, ok := b.TextContent()
	if !ok {
		return "", nil
	}
	level := tc.Level
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return fmt.Sprintf("<h%d class=\"heading\" data-level=\"%d\">%s</h%d>",
		level, tc.Level, inlineHTML(tc.Text), level), nil
}

func renderList(b *doc.ContentBlock) (string, error) {
	lc, ok := b.ListContent()
	if !ok {
		return "", nil
	}
	tag := "ul"
	if lc.Ordered {
		tag = "ol"
	}
	var sb strings.Builder
	sb.WriteString("<" + tag + ">\n")
	for _, item := range lc.Items {
		sb.WriteString("<li>" + inlineHTML(item) + "</li>\n")
	}
	sb.WriteString("</" + tag + ">")
	return sb.String(), nil
}

func renderBlockquote(b *doc.ContentBlock) (string, error) {
	qc, ok := b.QuoteContent()
	if !ok {
		return "", nil
	}
	out := "<blockquote>\n<p>" + inlineHTML(qc.Text) + "</p>\n"
	if qc.Attribution != nil && !qc.Attribution.IsEmpty() {
		out += "<footer>" + inlineHTML(qc.Attribution) + "</footer>\n"
	}
	return out + "</blockquote>", nil
}

func renderCode(b *doc.ContentBlock) (string, error) {
	cc, ok := b.CodeContent()
	if !ok {
		return "", nil
	}
	class := ""
	if cc.Language != "" {
		class = fmt.Sprintf(" class=\"language-%s\"", cc.Language)
	}
	return "<pre><code" + class + ">" + encoding.EscapeHTML(cc.Code) + "</code></pre>", nil
}

func renderMath(b *doc.ContentBlock) (string, error) {
	mc, ok := b.MathContent()
	if !ok {
		return "", nil
	}
	notation := ""
	if mc.Notation != "" {
		notation = fmt.Sprintf(" data-notation=%q", mc.Notation)
	}
	return "<div class=\"math\"" + notation + ">" + encoding.EscapeHTML(mc.Math) + "</div>", nil
}

func renderTable(b *doc.ContentBlock) (string, error) {
	tc, ok := b.TableContent()
	if !ok {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString("<table>\n")
	if tc.Caption != nil && !tc.Caption.IsEmpty() {
		sb.WriteString("<caption>" + inlineHTML(tc.Caption) + "</caption>\n")
	}
	if len(tc.Headers) > 0 {
		sb.WriteString("<thead>\n<tr>")
		for _, h := range tc.Headers {
			sb.WriteString("<th>" + inlineHTML(h) + "</th>")
		}
		sb.WriteString("</tr>\n</thead>\n")
	}
	sb.WriteString("<tbody>\n")
	for _, row := range tc.Rows {
		sb.WriteString("<tr>")
		for _, cell := range row {
			sb.WriteString("<td>" + inlineHTML(cell) + "</td>")
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</tbody>\n</table>")
	return sb.String(), nil
}

func renderFigure(b *doc.ContentBlock) (string, error) {
	fc, ok := b.FigureContent()
	if !ok {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString("<figure>\n")
	fmt.Fprintf(&sb, "<img src=%q alt=%q>\n",
		fc.Src, fc.Alt)
	if fc.Caption != nil && !fc.Caption.IsEmpty() {
		sb.WriteString("<figcaption>" + inlineHTML(fc.Caption) + "</figcaption>\n")
	}
	sb.WriteString("</figure>")
	return sb.String(), nil
}

// inlineHTML serializes semantic text to inline HTML.
func inlineHTML(st *doc.SemanticText) string {
	if st == nil {
		return ""
	}
	var b strings.Builder
	for _, r := range st.Runs {
		switch r.Type {
		case doc.RunText:
			b.WriteString(encoding.EscapeHTML(r.Text))
		case doc.RunEmphasis:
			b.WriteString("<em>" + encoding.EscapeHTML(r.Text) + "</em>")
		case doc.RunStrong:
			b.WriteString("<strong>" + encoding.EscapeHTML(r.Text) + "</strong>")
		case doc.RunCode:
			b.WriteString("<code>" + encoding.EscapeHTML(r.Text) + "</code>")
		case doc.RunSubscript:
			b.WriteString("<sub>" + encoding.EscapeHTML(r.Text) + "</sub>")
		case doc.RunSuperscript:
			b.WriteString("<sup>" + encoding.EscapeHTML(r.Text) + "</sup>")
		case doc.RunStrikethrough:
			b.WriteString("<del>" + encoding.EscapeHTML(r.Text) + "</del>")
		case doc.RunUnderline:
			b.WriteString("<u>" + encoding.EscapeHTML(r.Text) + "</u>")
		case doc.RunReference:
			fmt.Fprintf(&b, "<a href=\"#%s\" class=\"ref\">%s</a>", r.RefID, encoding.EscapeHTML(r.Text))
		case doc.RunCitation:
			fmt.Fprintf(&b, "<span class=\"citation\" data-key=%q>[%s]</span>", r.Key, encoding.EscapeHTML(r.Key))
		case doc.RunMathInline:
			b.WriteString("<span class=\"math-inline\">" + encoding.EscapeHTML(r.Expression) + "</span>")
		default:
			b.WriteString(encoding.EscapeHTML(r.Text))
		}
	}
	return b.String()
}

// ValidateFormat implements render.BidirectionalRenderer. HTML parsers
// are tolerant by design, so validation checks the encoding and that the
// content is markup at all.
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
	if !strings.Contains(string(content), "<") {
		v.Valid = false
		v.Errors = append(v.Errors, render.Issue{
			Severity:    render.SeverityWarning,
			Type:        "syntax",
			Description: "content contains no markup",
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
	return parseHTML(content), nil
}
