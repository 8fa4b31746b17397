// Package fidelity measures how much information survives a render+parse
// round trip. Exact equality is not achievable across formats, so the
// tester scores three independent dimensions (content, structure,
// formatting) and combines them into one weighted fidelity scalar.
package fidelity

import "github.com/xats-org/xats-go/core/render"

// Issue type constants for round-trip discrepancies.
const (
	IssueContentLoss       = "content-loss"
	IssueStructureMismatch = "structure-mismatch"
	IssueFormattingLoss    = "formatting-loss"
	IssueMetadataLoss      = "metadata-loss"
)

// DefaultThreshold is the pass/fail fidelity threshold.
const DefaultThreshold = 0.85

// Weights combines the three dimension scores into one scalar. The
// defaults weight content highest because content loss is unrecoverable,
// structure can often be re-inferred, and formatting is presentational.
type Weights struct {
	// Content weights the extracted-text comparison.
	Content float64 `json:"content"`

	// Structure weights the tree-shape comparison.
	Structure float64 `json:"structure"`

	// Formatting weights the inline-marker comparison.
	Formatting float64 `json:"formatting"`
}

// DefaultWeights is the documented default weighting.
var DefaultWeights = Weights{Content: 0.5, Structure: 0.3, Formatting: 0.2}

// Combine applies the weights to the three dimension scores.
func (w Weights) Combine(content, structure, formatting float64) float64 {
	total := w.Content + w.Structure + w.Formatting
	if total == 0 {
		return 0
	}
	return (w.Content*content + w.Structure*structure + w.Formatting*formatting) / total
}

// TestOptions configures a round-trip test.
type TestOptions struct {
	// Threshold is the pass/fail fidelity threshold. Zero means
	// DefaultThreshold.
	Threshold float64

	// Weights overrides DefaultWeights when non-nil.
	Weights *Weights

	// RenderOptions configures the render half of the cycle.
	RenderOptions *render.Options

	// ParseOptions configures the parse half of the cycle.
	ParseOptions *render.ParseOptions
}

func (o *TestOptions) threshold() float64 {
	if o == nil || o.Threshold == 0 {
		return DefaultThreshold
	}
	return o.Threshold
}

func (o *TestOptions) weights() Weights {
	if o == nil || o.Weights == nil {
		return DefaultWeights
	}
	return *o.Weights
}

// RoundTripResult is the quantitative fidelity judgment for one document
// through one renderer.
type RoundTripResult struct {
	// Success is true iff FidelityScore meets the threshold and no issue
	// is critical.
	Success bool `json:"success"`

	// FidelityScore is the weighted combination of the three dimensions.
	FidelityScore float64 `json:"fidelityScore"`

	// ContentFidelity compares extracted plain text before vs after.
	ContentFidelity float64 `json:"contentFidelity"`

	// StructureFidelity compares tree shape before vs after.
	StructureFidelity float64 `json:"structureFidelity"`

	// FormattingFidelity compares preserved inline markers before vs after.
	FormattingFidelity float64 `json:"formattingFidelity"`

	// Issues lists every detected discrepancy.
	Issues []render.Issue `json:"issues"`
}

// HasCritical returns true if any issue has critical severity.
func (r *RoundTripResult) HasCritical() bool {
	for _, issue := range r.Issues {
		if issue.Severity == render.SeverityCritical {
			return true
		}
	}
	return false
}
