// Package render defines the renderer contracts: the unidirectional
// contract (canonical document in, one target-format string out) and the
// bidirectional contract that adds parsing, format validation, and content
// metadata. The shared dispatch engine, document pre-validation, and word
// counting live here too; concrete format renderers are in
// internal/formats.
package render

import (
	"context"

	"github.com/xats-org/xats-go/core/doc"
	apperrors "github.com/xats-org/xats-go/core/errors"
	"github.com/xats-org/xats-go/internal/logging"
)

// Format identifies a target rendering format.
type Format string

// Format constants.
const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatDocx     Format = "docx"
)

// validFormats is the set of valid formats.
var validFormats = map[Format]bool{
	FormatHTML:     true,
	FormatMarkdown: true,
	FormatText:     true,
	FormatDocx:     true,
}

// IsValid returns true if the format is valid.
func (f Format) IsValid() bool {
	return validFormats[f]
}

// ParseFormat resolves a format name to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.IsValid() {
		return "", apperrors.NewUnsupported("format", s)
	}
	return f, nil
}

// Severity grades an issue.
type Severity string

// Severity constants.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Issue is one reported problem from a parse or fidelity comparison.
type Issue struct {
	// Severity grades the issue.
	Severity Severity `json:"severity"`

	// Type is a stable machine-readable category.
	Type string `json:"type"`

	// Description is the human-readable message.
	Description string `json:"description"`

	// Recommendation is a remediation hint, when one is mechanically derivable.
	Recommendation string `json:"recommendation,omitempty"`
}

// IssueParse is the issue type for recovered parse failures.
const IssueParse = "parse-error"

// Metrics carries per-render statistics.
type Metrics struct {
	// WordCount is the document word count.
	WordCount int `json:"word_count"`

	// BlockCount is the number of content blocks rendered.
	BlockCount int `json:"block_count"`

	// ContainerCount is the number of structural containers rendered.
	ContainerCount int `json:"container_count"`
}

// Result is the outcome of one render call. It is produced fresh per call
// and never persisted.
type Result struct {
	// Content is the rendered target-format output.
	Content string `json:"content"`

	// Metrics is populated when Options.IncludeMetrics is set.
	Metrics *Metrics `json:"metrics,omitempty"`

	// Errors lists non-fatal problems encountered while rendering.
	Errors []Issue `json:"errors,omitempty"`
}

// ParseResult is the outcome of one parse call. Document is never nil: on
// unparseable input it is the minimal placeholder and Errors is non-empty.
type ParseResult struct {
	// Document is the reconstructed canonical document.
	Document *doc.Document `json:"document"`

	// Errors lists recovered parse problems.
	Errors []Issue `json:"errors,omitempty"`
}

// FormatValidation reports the external format's own well-formedness,
// independent of canonical-document semantics.
type FormatValidation struct {
	// Valid is true when the content conforms to the format's container rules.
	Valid bool `json:"valid"`

	// Format is the format that was checked.
	Format Format `json:"format"`

	// Errors lists conformance problems.
	Errors []Issue `json:"errors,omitempty"`
}

// ErrorHandler receives non-fatal operation errors. Handlers must not
// panic; they are invoked inline.
type ErrorHandler func(err error, operation string)

// Options configures a render call.
type Options struct {
	// Overrides maps block-type local names to custom render functions.
	// They are consulted before built-in handling.
	Overrides map[string]BlockHandler

	// IncludeMetrics requests word/block statistics on the result.
	IncludeMetrics bool

	// ErrorHandler receives non-fatal errors. When nil, errors are logged.
	ErrorHandler ErrorHandler
}

// ParseOptions configures a parse call.
type ParseOptions struct {
	// AutoValidate runs format validation first; a validation failure then
	// short-circuits the parse with no partial document.
	AutoValidate bool

	// ErrorHandler receives non-fatal errors. When nil, errors are logged.
	ErrorHandler ErrorHandler
}

// Renderer is the unidirectional contract: walk a canonical document and
// produce one target-format string.
type Renderer interface {
	// Format returns the target format.
	Format() Format

	// Render converts the document to the target format. It validates the
	// document first and rejects structurally invalid input before any
	// output is produced. The document is never mutated.
	Render(ctx context.Context, d *doc.Document, opts *Options) (*Result, error)
}

// BidirectionalRenderer extends Renderer with the inverse operation,
// format validation, and content metadata.
type BidirectionalRenderer interface {
	Renderer

	// Parse deserializes external content back to the canonical model.
	// Malformed input is recovered into a placeholder document plus
	// errors rather than failing, unless ParseOptions.AutoValidate is set
	// and validation fails.
	Parse(ctx context.Context, content []byte, opts *ParseOptions) (*ParseResult, error)

	// ValidateFormat checks the external format's own well-formedness.
	ValidateFormat(ctx context.Context, content []byte) (*FormatValidation, error)

	// Metadata summarizes external content without parsing it.
	Metadata(content []byte) *ContentMetadata
}

// HandleError routes a non-fatal error to the configured handler, or logs
// it when no handler is set. Errors are never swallowed and never abort a
// batch beyond the failing document.
func HandleError(handler ErrorHandler, err error, operation string) {
	if err == nil {
		return
	}
	if handler != nil {
		handler(err, operation)
		return
	}
	logging.Error("render_error", "operation", operation, "error", err.Error())
}
