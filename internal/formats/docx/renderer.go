// Package docx renders canonical documents to WordprocessingML packages
// and parses them back. Containers map to Heading1-3 paragraphs, block
// headings to Heading4 and up, and inline runs to native run properties,
// so structure survives a round trip through the style names alone.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/encoding"
	apperrors "github.com/xats-org/xats-go/core/errors"
	"github.com/xats-org/xats-go/core/fidelity"
	"github.com/xats-org/xats-go/core/render"
	"github.com/xats-org/xats-go/internal/logging"
)

// Container headings occupy Heading1-3; block headings start at Heading4.
const (
	maxContainerHeading = 3
	blockHeadingBase    = 3
	maxHeading          = 9
)

// Renderer is the bidirectional Word renderer.
type Renderer struct {
	fidelity.RoundTripper
}

// New returns a Word renderer.
func New() *Renderer {
	return &Renderer{}
}

// Format implements render.Renderer.
func (r *Renderer) Format() render.Format { return render.FormatDocx }

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
		Escape:    encoding.EscapeXMLText,
		Handlers:  blockHandlers(),
		Overrides: overrides,
		Container: renderContainer,
		Fallback:  renderUnknown,
		Separator: "",
	}

	var body strings.Builder
	if title := d.Title(); title != "" {
		body.WriteString(paragraph(styleTitle, 0, run("", title)))
	}
	for _, nodes := range collectSections(d) {
		out, err := engine.RenderContents(nodes, 0)
		if err != nil {
			render.HandleError(optsHandler(opts), err, "render")
			return nil, err
		}
		body.WriteString(out)
	}
	body.WriteString(renderBackMatter(d.BackMatter))

	pkg, err := writePackage(documentXML(body.String()))
	if err != nil {
		return nil, apperrors.Wrap(err, "assemble docx package")
	}

	result := &render.Result{Content: string(pkg)}
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
		inner := run("<w:b/>", g.Term) + run("", ": ") + textRuns(g.Definition)
		b.WriteString(paragraph(styleGlossary, 0, inner))
	}
	for _, entry := range bm.Bibliography {
		b.WriteString(paragraph("", 0, run("", entry.Title)))
	}
	return b.String()
}

// renderContainer emits the container heading; children are already
// rendered into inner. The heading carries "Label. Title" so the parser
// can restore both.
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

	level := depth + 1
	if level > maxContainerHeading {
		level = maxContainerHeading
	}
	return paragraph(fmt.Sprintf("Heading%d", level), 0, run("", heading)) + inner, nil
}

func renderUnknown(b *doc.ContentBlock) string {
	if st, ok := b.SniffText(); ok {
		return paragraph("", 0, run("", st.PlainText()))
	}
	return paragraph("", 0, run("", fmt.Sprintf("[unsupported block: %s]", b.LocalName())))
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
	return paragraph("", 0, textRuns(tc.Text)), nil
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
	style := blockHeadingBase + level
	if style > maxHeading {
		style = maxHeading
	}
	return paragraph(fmt.Sprintf("Heading%d", style), 0, textRuns(tc.Text)), nil
}

func renderList(b *doc.ContentBlock) (string, error) {
	lc, ok := b.ListContent()
	if !ok {
		return "", nil
	}
	numID := numIDBullet
	if lc.Ordered {
		numID = numIDDecimal
	}
	var out strings.Builder
	for _, item := range lc.Items {
		out.WriteString(paragraph(styleListParagraph, numID, textRuns(item)))
	}
	return out.String(), nil
}

func renderBlockquote(b *doc.ContentBlock) (string, error) {
	qc, ok := b.QuoteContent()
	if !ok {
		return "", nil
	}
	out := paragraph(styleQuote, 0, textRuns(qc.Text))
	if qc.Attribution != nil && qc.Attribution.PlainText() != "" {
		out += paragraph(styleAttribution, 0, textRuns(qc.Attribution))
	}
	return out, nil
}

func renderCode(b *doc.ContentBlock) (string, error) {
	cc, ok := b.CodeContent()
	if !ok {
		return "", nil
	}
	// The language rides in the first run's style attribute analog: a
	// dedicated marker run that the parser strips back off.
	inner := ""
	if cc.Language != "" {
		inner = styledRun(runStyleCode, cc.Language+"\n")
	}
	return paragraph(styleCode, 0, inner+run("", cc.Code)), nil
}

func renderMath(b *doc.ContentBlock) (string, error) {
	mc, ok := b.MathContent()
	if !ok {
		return "", nil
	}
	return paragraph(styleMath, 0, run("", mc.Math)), nil
}

func renderTable(b *doc.ContentBlock) (string, error) {
	tc, ok := b.TableContent()
	if !ok {
		return "", nil
	}
	var t strings.Builder
	t.WriteString("<w:tbl><w:tblPr/>")
	if len(tc.Headers) > 0 {
		t.WriteString("<w:tr><w:trPr><w:tblHeader/></w:trPr>")
		for _, cell := range tc.Headers {
			t.WriteString("<w:tc>" + paragraph("", 0, textRuns(cell)) + "</w:tc>")
		}
		t.WriteString("</w:tr>")
	}
	for _, row := range tc.Rows {
		t.WriteString("<w:tr>")
		for _, cell := range row {
			t.WriteString("<w:tc>" + paragraph("", 0, textRuns(cell)) + "</w:tc>")
		}
		t.WriteString("</w:tr>")
	}
	t.WriteString("</w:tbl>\n")
	if tc.Caption != nil && tc.Caption.PlainText() != "" {
		t.WriteString(paragraph(styleCaption, 0, textRuns(tc.Caption)))
	}
	return t.String(), nil
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
	inner := run("", caption)
	if fc.Src != "" {
		inner = styledRun(runStyleCode, fc.Src+"\n") + inner
	}
	return paragraph(styleFigureCaption, 0, inner), nil
}

// ValidateFormat implements render.BidirectionalRenderer. A valid input is
// a zip archive carrying the content-types part and a well-formed
// word/document.xml.
func (r *Renderer) ValidateFormat(_ context.Context, content []byte) (*render.FormatValidation, error) {
	v := &render.FormatValidation{Valid: true, Format: r.Format()}
	invalid := func(desc string) {
		v.Valid = false
		v.Errors = append(v.Errors, render.Issue{
			Severity:    render.SeverityCritical,
			Type:        render.IssueParse,
			Description: desc,
		})
	}

	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		invalid("content is not a zip archive: " + err.Error())
		return v, nil
	}

	parts := map[string]bool{}
	for _, f := range zr.File {
		parts[f.Name] = true
	}
	for _, required := range []string{"[Content_Types].xml", "word/document.xml"} {
		if !parts[required] {
			invalid("archive is missing " + required)
		}
	}
	if !v.Valid {
		return v, nil
	}

	if _, err := readDocumentPart(zr); err != nil {
		invalid("word/document.xml is not well-formed XML: " + err.Error())
	}
	return v, nil
}

// readDocumentPart extracts and parses word/document.xml.
func readDocumentPart(zr *zip.Reader) (*xmlquery.Node, error) {
	f, err := zr.Open("word/document.xml")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return xmlquery.Parse(bytes.NewReader(data))
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

	return parseDocx(content), nil
}
