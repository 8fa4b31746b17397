package fidelity

import (
	"context"
	"fmt"

	"github.com/xats-org/xats-go/core/doc"
	apperrors "github.com/xats-org/xats-go/core/errors"
	"github.com/xats-org/xats-go/core/render"
	"github.com/xats-org/xats-go/internal/logging"
)

// Tester runs render+parse cycles through one bidirectional renderer and
// scores the result. A Tester is stateless beyond the renderer reference
// and is safe for concurrent use when the renderer is.
type Tester struct {
	r render.BidirectionalRenderer
}

// NewTester returns a tester bound to the given renderer.
func NewTester(r render.BidirectionalRenderer) *Tester {
	return &Tester{r: r}
}

// TestDocument renders the document, parses the renderer's own output
// back, and scores the reconstruction against the original. The returned
// result always carries all three dimension scores; an error is returned
// only when the render half fails outright (e.g. an invalid document).
func (t *Tester) TestDocument(ctx context.Context, d *doc.Document, opts *TestOptions) (*RoundTripResult, error) {
	if t.r == nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "fidelity: no renderer configured")
	}

	var renderOpts *render.Options
	var parseOpts *render.ParseOptions
	if opts != nil {
		renderOpts = opts.RenderOptions
		parseOpts = opts.ParseOptions
	}

	rendered, err := t.r.Render(ctx, d, renderOpts)
	if err != nil {
		return nil, apperrors.Wrapf(err, "fidelity: render %s", t.r.Format())
	}

	parsed, err := t.r.Parse(ctx, []byte(rendered.Content), parseOpts)
	if err != nil {
		return nil, apperrors.Wrapf(err, "fidelity: parse %s", t.r.Format())
	}

	result := t.score(d, parsed.Document, opts)

	// Parse problems surface on the result even when recovery produced a
	// usable document.
	result.Issues = append(result.Issues, parsed.Errors...)

	result.Success = result.FidelityScore >= opts.threshold() && !result.HasCritical()
	logging.RoundTripResult(string(t.r.Format()), result.FidelityScore, result.Success)
	return result, nil
}

// score compares the reconstruction against the original and derives
// dimension scores plus per-dimension issues.
func (t *Tester) score(before, after *doc.Document, opts *TestOptions) *RoundTripResult {
	content := CompareContent(before, after)
	structure := CompareStructure(before, after)
	formatting := CompareFormatting(before, after)

	result := &RoundTripResult{
		FidelityScore:      opts.weights().Combine(content, structure, formatting),
		ContentFidelity:    content,
		StructureFidelity:  structure,
		FormattingFidelity: formatting,
	}

	if content < 1.0 {
		severity := render.SeverityWarning
		if content < 0.5 {
			severity = render.SeverityCritical
		}
		result.Issues = append(result.Issues, render.Issue{
			Severity:       severity,
			Type:           IssueContentLoss,
			Description:    fmt.Sprintf("content fidelity %.3f: text differs after round trip", content),
			Recommendation: "check escaping and block text extraction in the renderer",
		})
	}
	if structure < 1.0 {
		result.Issues = append(result.Issues, render.Issue{
			Severity:       render.SeverityWarning,
			Type:           IssueStructureMismatch,
			Description:    fmt.Sprintf("structure fidelity %.3f: container or block layout differs", structure),
			Recommendation: "check container nesting and block ordering in the parser",
		})
	}
	if formatting < 1.0 {
		result.Issues = append(result.Issues, render.Issue{
			Severity:       render.SeverityInfo,
			Type:           IssueFormattingLoss,
			Description:    fmt.Sprintf("formatting fidelity %.3f: inline markers or list/table shape differ", formatting),
			Recommendation: "check inline run handling in the renderer and parser",
		})
	}

	if beforeTitle, afterTitle := title(before), title(after); beforeTitle != afterTitle {
		result.Issues = append(result.Issues, render.Issue{
			Severity:    render.SeverityWarning,
			Type:        IssueMetadataLoss,
			Description: fmt.Sprintf("document title changed from %q to %q", beforeTitle, afterTitle),
		})
	}

	return result
}

func title(d *doc.Document) string {
	if d == nil {
		return ""
	}
	return d.Title()
}
