package fidelity

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/render"
)

// jsonRenderer is a fake bidirectional renderer whose output format is
// the canonical JSON itself. Its round trips are perfect by construction,
// except where degrade mutates the reconstructed document.
type jsonRenderer struct {
	degrade func(d *doc.Document)
}

func (r *jsonRenderer) Format() render.Format { return render.FormatText }

func (r *jsonRenderer) Render(_ context.Context, d *doc.Document, _ *render.Options) (*render.Result, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return &render.Result{Content: string(data)}, nil
}

func (r *jsonRenderer) Parse(_ context.Context, content []byte, _ *render.ParseOptions) (*render.ParseResult, error) {
	var d doc.Document
	if err := json.Unmarshal(content, &d); err != nil {
		return &render.ParseResult{
			Document: doc.Minimal(),
			Errors: []render.Issue{{
				Severity:    render.SeverityCritical,
				Type:        render.IssueParse,
				Description: err.Error(),
			}},
		}, nil
	}
	if r.degrade != nil {
		r.degrade(&d)
	}
	return &render.ParseResult{Document: &d}, nil
}

func (r *jsonRenderer) ValidateFormat(_ context.Context, content []byte) (*render.FormatValidation, error) {
	return &render.FormatValidation{Valid: json.Valid(content), Format: r.Format()}, nil
}

func (r *jsonRenderer) Metadata(content []byte) *render.ContentMetadata {
	return render.NewMetadata(r.Format(), content)
}

func richDocument() *doc.Document {
	return &doc.Document{
		SchemaVersion:      doc.SchemaVersionCurrent,
		BibliographicEntry: &doc.BibliographicEntry{Type: "book", Title: "Fidelity Primer"},
		Subject:            "testing",
		BodyMatter: &doc.BodyMatter{Contents: []*doc.ContentNode{
			doc.ContainerNode(&doc.StructuralContainer{
				Kind:  doc.ContainerChapter,
				ID:    "ch1",
				Title: doc.Text("First Chapter"),
				Contents: []*doc.ContentNode{
					doc.BlockNode(doc.NewHeading("h1", 2, doc.Text("Opening"))),
					doc.BlockNode(doc.NewParagraph("p1", &doc.SemanticText{Runs: []doc.Run{
						{Type: doc.RunText, Text: "Plain then "},
						{Type: doc.RunStrong, Text: "bold"},
						{Type: doc.RunText, Text: " then "},
						{Type: doc.RunEmphasis, Text: "italic"},
						{Type: doc.RunText, Text: " text."},
					}})),
					doc.BlockNode(doc.NewList("l1", true, []*doc.SemanticText{
						doc.Text("first item"),
						doc.Text("second item"),
					})),
					doc.BlockNode(doc.NewTable("t1",
						[]*doc.SemanticText{doc.Text("A"), doc.Text("B")},
						[][]*doc.SemanticText{{doc.Text("1"), doc.Text("2")}},
						doc.Text("small table"))),
				},
			}),
		}},
	}
}

func TestRoundTripPerfectFidelity(t *testing.T) {
	tester := NewTester(&jsonRenderer{})

	result, err := tester.TestDocument(context.Background(), richDocument(), nil)
	if err != nil {
		t.Fatalf("TestDocument: %v", err)
	}

	if result.ContentFidelity != 1.0 {
		t.Errorf("ContentFidelity = %v, want 1.0", result.ContentFidelity)
	}
	if result.StructureFidelity != 1.0 {
		t.Errorf("StructureFidelity = %v, want 1.0", result.StructureFidelity)
	}
	if result.FormattingFidelity != 1.0 {
		t.Errorf("FormattingFidelity = %v, want 1.0", result.FormattingFidelity)
	}
	if result.FidelityScore != 1.0 {
		t.Errorf("FidelityScore = %v, want 1.0", result.FidelityScore)
	}
	if !result.Success {
		t.Error("perfect round trip should succeed")
	}
	if len(result.Issues) != 0 {
		t.Errorf("perfect round trip reported issues: %v", result.Issues)
	}
}

// Stripping inline formatting must lower the formatting dimension without
// touching content or structure.
func TestRoundTripFormattingLossIsIsolated(t *testing.T) {
	stripRuns := func(d *doc.Document) {
		doc.Walk(d.BodyMatter.Contents, func(n *doc.ContentNode, _ int) bool {
			if !n.IsContainer() {
				if tc, ok := n.Block.TextContent(); ok && tc.Text != nil {
					n.Block.Content["text"] = doc.Text(tc.Text.PlainText())
				}
			}
			return true
		})
	}

	tester := NewTester(&jsonRenderer{degrade: stripRuns})
	result, err := tester.TestDocument(context.Background(), richDocument(), nil)
	if err != nil {
		t.Fatalf("TestDocument: %v", err)
	}

	if result.FormattingFidelity >= 1.0 {
		t.Errorf("FormattingFidelity = %v, want < 1.0", result.FormattingFidelity)
	}
	if result.ContentFidelity != 1.0 {
		t.Errorf("ContentFidelity = %v, want 1.0 (text survived)", result.ContentFidelity)
	}
	if result.StructureFidelity != 1.0 {
		t.Errorf("StructureFidelity = %v, want 1.0 (tree untouched)", result.StructureFidelity)
	}

	found := false
	for _, issue := range result.Issues {
		if issue.Type == IssueFormattingLoss {
			found = true
		}
		if issue.Type == IssueContentLoss || issue.Type == IssueStructureMismatch {
			t.Errorf("unexpected issue %q for formatting-only degradation", issue.Type)
		}
	}
	if !found {
		t.Error("expected a formatting-loss issue")
	}
}

func TestRoundTripContentLossBelowHalfIsCritical(t *testing.T) {
	dropBody := func(d *doc.Document) {
		d.BodyMatter.Contents = nil
	}

	tester := NewTester(&jsonRenderer{degrade: dropBody})
	result, err := tester.TestDocument(context.Background(), richDocument(), nil)
	if err != nil {
		t.Fatalf("TestDocument: %v", err)
	}

	if result.Success {
		t.Error("losing the whole body must not pass")
	}
	if !result.HasCritical() {
		t.Error("content fidelity below 0.5 should raise a critical issue")
	}
}

func TestRoundTripTitleChangeReportsMetadataLoss(t *testing.T) {
	retitle := func(d *doc.Document) {
		d.BibliographicEntry.Title = "Different Title"
	}

	tester := NewTester(&jsonRenderer{degrade: retitle})
	result, err := tester.TestDocument(context.Background(), richDocument(), nil)
	if err != nil {
		t.Fatalf("TestDocument: %v", err)
	}

	found := false
	for _, issue := range result.Issues {
		if issue.Type == IssueMetadataLoss {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a metadata-loss issue, got %v", result.Issues)
	}
}

func TestRoundTripThresholdOverride(t *testing.T) {
	stripRuns := func(d *doc.Document) {
		doc.Walk(d.BodyMatter.Contents, func(n *doc.ContentNode, _ int) bool {
			if !n.IsContainer() {
				if tc, ok := n.Block.TextContent(); ok && tc.Text != nil {
					n.Block.Content["text"] = doc.Text(tc.Text.PlainText())
				}
			}
			return true
		})
	}

	tester := NewTester(&jsonRenderer{degrade: stripRuns})

	strict, err := tester.TestDocument(context.Background(), richDocument(), &TestOptions{Threshold: 1.0})
	if err != nil {
		t.Fatalf("TestDocument: %v", err)
	}
	if strict.Success {
		t.Error("threshold 1.0 must fail a lossy round trip")
	}

	lenient, err := tester.TestDocument(context.Background(), richDocument(), &TestOptions{Threshold: 0.5})
	if err != nil {
		t.Fatalf("TestDocument: %v", err)
	}
	if !lenient.Success {
		t.Errorf("threshold 0.5 should pass at score %v", lenient.FidelityScore)
	}
}

func TestRoundTripperCachesTester(t *testing.T) {
	var rt RoundTripper
	r := &jsonRenderer{}

	first, err := rt.TestRoundTrip(context.Background(), r, richDocument(), nil)
	if err != nil {
		t.Fatalf("TestRoundTrip: %v", err)
	}
	second, err := rt.TestRoundTrip(context.Background(), r, richDocument(), nil)
	if err != nil {
		t.Fatalf("TestRoundTrip: %v", err)
	}

	if first.FidelityScore != second.FidelityScore {
		t.Errorf("scores differ across calls: %v != %v", first.FidelityScore, second.FidelityScore)
	}
}

func TestWeightsCombine(t *testing.T) {
	tests := []struct {
		name                           string
		w                              Weights
		content, structure, formatting float64
		want                           float64
	}{
		{"defaults all perfect", DefaultWeights, 1, 1, 1, 1},
		{"defaults all zero", DefaultWeights, 0, 0, 0, 0},
		{"content only counts half", DefaultWeights, 1, 0, 0, 0.5},
		{"unnormalized weights are normalized", Weights{Content: 2, Structure: 1, Formatting: 1}, 1, 0, 0, 0.5},
		{"zero weights yield zero", Weights{}, 1, 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.w.Combine(tt.content, tt.structure, tt.formatting)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Combine = %v, want %v", got, tt.want)
			}
		})
	}
}
