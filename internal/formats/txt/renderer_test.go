package txt

import (
	"context"
	"strings"
	"testing"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/render"
)

func sampleDocument() *doc.Document {
	return &doc.Document{
		SchemaVersion:      doc.SchemaVersionCurrent,
		BibliographicEntry: &doc.BibliographicEntry{Type: "book", Title: "Field Notes"},
		Subject:            "biology",
		BodyMatter: &doc.BodyMatter{Contents: []*doc.ContentNode{
			doc.ContainerNode(&doc.StructuralContainer{
				Kind:  doc.ContainerChapter,
				ID:    "ch1",
				Label: "1",
				Title: doc.Text("Observations"),
				Contents: []*doc.ContentNode{
					doc.BlockNode(doc.NewParagraph("p1", doc.Text("The wren sang at dawn."))),
					doc.BlockNode(doc.NewList("l1", true, []*doc.SemanticText{
						doc.Text("first sighting"),
						doc.Text("second sighting"),
					})),
					doc.BlockNode(doc.NewBlockquote("q1", doc.Text("A remarkable bird."), doc.Text("J. Field"))),
					doc.BlockNode(doc.NewCodeBlock("c1", "count := 2", "go")),
				},
			}),
		}},
	}
}

func TestRenderPlainText(t *testing.T) {
	r := New()
	result, err := r.Render(context.Background(), sampleDocument(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	out := result.Content
	for _, want := range []string{
		"Field Notes\n===========",
		"1. Observations",
		"The wren sang at dawn.",
		"1. first sighting",
		"2. second sighting",
		"> A remarkable bird.",
		"> -- J. Field",
		"    count := 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRenderSingleRunTitleOnly(t *testing.T) {
	d := &doc.Document{
		SchemaVersion:      doc.SchemaVersionCurrent,
		BibliographicEntry: &doc.BibliographicEntry{Type: "book", Title: "T"},
		Subject:            "s",
		BodyMatter: &doc.BodyMatter{Contents: []*doc.ContentNode{
			doc.BlockNode(doc.NewParagraph("p", doc.Text("T"))),
		}},
	}

	result, err := New().Render(context.Background(), d, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(result.Content, "T") {
		t.Errorf("output does not contain the document text: %q", result.Content)
	}
}

func TestRenderRejectsInvalidDocument(t *testing.T) {
	d := sampleDocument()
	d.Subject = ""

	if _, err := New().Render(context.Background(), d, nil); err == nil {
		t.Error("invalid document must be rejected before rendering")
	}
}

func TestRenderMetrics(t *testing.T) {
	result, err := New().Render(context.Background(), sampleDocument(), &render.Options{IncludeMetrics: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if result.Metrics == nil {
		t.Fatal("metrics requested but missing")
	}
	if result.Metrics.BlockCount != 4 {
		t.Errorf("BlockCount = %d, want 4", result.Metrics.BlockCount)
	}
	if result.Metrics.ContainerCount != 1 {
		t.Errorf("ContainerCount = %d, want 1", result.Metrics.ContainerCount)
	}
	if result.Metrics.WordCount == 0 {
		t.Error("WordCount = 0")
	}
}

func TestRenderUnknownBlockFallsBack(t *testing.T) {
	d := sampleDocument()
	d.BodyMatter.Contents = append(d.BodyMatter.Contents, doc.BlockNode(&doc.ContentBlock{
		BlockType: "https://example.org/blocks/callout",
		Content:   map[string]any{"text": doc.Text("do not lose this")},
	}))

	result, err := New().Render(context.Background(), d, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(result.Content, "do not lose this") {
		t.Error("unknown block text was dropped")
	}
}

func TestRenderOverride(t *testing.T) {
	opts := &render.Options{
		Overrides: map[string]render.BlockHandler{
			"paragraph": func(b *doc.ContentBlock) (string, error) {
				return "OVERRIDDEN", nil
			},
		},
	}

	result, err := New().Render(context.Background(), sampleDocument(), opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(result.Content, "OVERRIDDEN") {
		t.Error("override handler was not consulted")
	}
	if strings.Contains(result.Content, "The wren sang at dawn.") {
		t.Error("built-in handler ran despite override")
	}
}

func TestParseGarbageRecoversPlaceholder(t *testing.T) {
	result, err := New().Parse(context.Background(), []byte("   \n\t  "), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.Document == nil {
		t.Fatal("Document is nil")
	}
	if got := result.Document.Title(); got != "Untitled Document" {
		t.Errorf("Title = %q, want placeholder", got)
	}
	if len(result.Errors) == 0 {
		t.Error("recovered parse must report errors")
	}
}

func TestParseInvalidUTF8(t *testing.T) {
	result, err := New().Parse(context.Background(), []byte{0xff, 0xfe, 0x00}, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := result.Document.Title(); got != "Untitled Document" {
		t.Errorf("Title = %q, want placeholder", got)
	}
}

func TestParseAutoValidateShortCircuits(t *testing.T) {
	opts := &render.ParseOptions{AutoValidate: true}
	if _, err := New().Parse(context.Background(), []byte{0xff, 0xfe}, opts); err == nil {
		t.Error("AutoValidate must fail fast on invalid content")
	}
}

func TestParseRecoversStructureAndReferences(t *testing.T) {
	content := `Field Notes
===========

See Section 2.1 for details.

- alpha
- beta

> Quoted line.
> -- Author
`

	result, err := New().Parse(context.Background(), []byte(content), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d := result.Document

	if got := d.Title(); got != "Field Notes" {
		t.Errorf("Title = %q", got)
	}
	if err := render.ValidateDocument(d); err != nil {
		t.Errorf("parsed document is invalid: %v", err)
	}

	blocks := d.BodyMatter.Contents
	if len(blocks) != 3 {
		t.Fatalf("parsed %d blocks, want 3", len(blocks))
	}

	// The cross-reference phrase comes back as a typed reference run.
	tc, ok := blocks[0].Block.TextContent()
	if !ok {
		t.Fatal("first block is not a paragraph")
	}
	var ref *doc.Run
	for i := range tc.Text.Runs {
		if tc.Text.Runs[i].Type == doc.RunReference {
			ref = &tc.Text.Runs[i]
		}
	}
	if ref == nil {
		t.Fatal("no reference run recovered")
	}
	if ref.Text != "Section 2.1" || ref.RefID != "section-2.1" {
		t.Errorf("reference run = %+v", ref)
	}

	if lc, ok := blocks[1].Block.ListContent(); !ok || lc.Ordered || len(lc.Items) != 2 {
		t.Errorf("list block parsed incorrectly")
	}
	if qc, ok := blocks[2].Block.QuoteContent(); !ok || qc.Attribution.PlainText() != "Author" {
		t.Errorf("blockquote attribution lost")
	}
}

func TestParseRebuildsContainers(t *testing.T) {
	content := `Field Notes
===========

1. Observations
---------------

1.1. Morning
~~~~~~~~~~~~

The wren sang at dawn.

Survey Method
*************

Counted from the hide.
`

	result, err := New().Parse(context.Background(), []byte(content), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d := result.Document

	contents := d.BodyMatter.Contents
	if len(contents) != 1 || contents[0].Container == nil {
		t.Fatalf("parsed %d top-level nodes, want 1 container", len(contents))
	}
	chapter := contents[0].Container
	if chapter.Label != "1" || chapter.Title.PlainText() != "Observations" {
		t.Errorf("chapter = %q/%q", chapter.Label, chapter.Title.PlainText())
	}
	if chapter.Kind != doc.ContainerChapter {
		t.Errorf("chapter Kind = %q", chapter.Kind)
	}

	if len(chapter.Contents) != 1 || chapter.Contents[0].Container == nil {
		t.Fatalf("chapter holds %d nodes, want 1 nested container", len(chapter.Contents))
	}
	section := chapter.Contents[0].Container
	if section.Label != "1.1" || section.Kind != doc.ContainerSection {
		t.Errorf("section = %q Kind %q", section.Label, section.Kind)
	}

	if len(section.Contents) != 3 {
		t.Fatalf("section holds %d nodes, want 3", len(section.Contents))
	}
	tc, ok := section.Contents[1].Block.TextContent()
	if !ok || section.Contents[1].Block.LocalName() != "heading" {
		t.Fatal("underlined text inside a section must stay a heading block")
	}
	if tc.Level != 1 || tc.Text.PlainText() != "Survey Method" {
		t.Errorf("heading = level %d %q", tc.Level, tc.Text.PlainText())
	}
}

func TestRoundTripPreservesNestedStructure(t *testing.T) {
	d := &doc.Document{
		SchemaVersion:      doc.SchemaVersionCurrent,
		BibliographicEntry: &doc.BibliographicEntry{Type: "book", Title: "Field Guide"},
		Subject:            "biology",
		BodyMatter: &doc.BodyMatter{Contents: []*doc.ContentNode{
			doc.ContainerNode(&doc.StructuralContainer{
				Kind:  doc.ContainerChapter,
				ID:    "ch1",
				Label: "1",
				Title: doc.Text("Birds"),
				Contents: []*doc.ContentNode{
					doc.ContainerNode(&doc.StructuralContainer{
						Kind:  doc.ContainerSection,
						ID:    "s1",
						Label: "1.1",
						Title: doc.Text("Wrens"),
						Contents: []*doc.ContentNode{
							doc.BlockNode(doc.NewParagraph("p1", doc.Text("The wren sang at dawn."))),
						},
					}),
				},
			}),
		}},
	}

	r := New()
	result, err := r.TestRoundTrip(context.Background(), r, d, nil)
	if err != nil {
		t.Fatalf("TestRoundTrip: %v", err)
	}
	if result.StructureFidelity != 1.0 {
		t.Errorf("StructureFidelity = %v, want 1.0", result.StructureFidelity)
	}
	if !result.Success {
		t.Errorf("round trip failed: score %v, issues %+v", result.FidelityScore, result.Issues)
	}
}

func TestRoundTripPreservesContent(t *testing.T) {
	r := New()
	result, err := r.TestRoundTrip(context.Background(), r, sampleDocument(), nil)
	if err != nil {
		t.Fatalf("TestRoundTrip: %v", err)
	}
	if result.ContentFidelity < 0.9 {
		t.Errorf("ContentFidelity = %v, want >= 0.9", result.ContentFidelity)
	}
}

func TestValidateFormat(t *testing.T) {
	r := New()

	v, err := r.ValidateFormat(context.Background(), []byte("plain text"))
	if err != nil {
		t.Fatalf("ValidateFormat: %v", err)
	}
	if !v.Valid {
		t.Error("valid UTF-8 rejected")
	}

	v, err = r.ValidateFormat(context.Background(), []byte{0xff, 0xfe})
	if err != nil {
		t.Fatalf("ValidateFormat: %v", err)
	}
	if v.Valid {
		t.Error("invalid UTF-8 accepted")
	}
}

func TestMetadata(t *testing.T) {
	md := New().Metadata([]byte("content"))
	if md.Format != render.FormatText {
		t.Errorf("Format = %q", md.Format)
	}
	if md.ContentLength != 7 {
		t.Errorf("ContentLength = %d", md.ContentLength)
	}
}
