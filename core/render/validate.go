package render

import (
	"github.com/xats-org/xats-go/core/doc"
	apperrors "github.com/xats-org/xats-go/core/errors"
)

// ValidateDocument checks the canonical document's required top-level
// fields before any format-specific writer runs. It returns a
// DocumentStructureError naming the first missing field, in a fixed check
// order so failures are deterministic.
func ValidateDocument(d *doc.Document) error {
	if d == nil {
		return &apperrors.DocumentStructureError{Field: "document", Message: "document is nil"}
	}
	if d.SchemaVersion == "" {
		return apperrors.NewDocumentStructure("schemaVersion")
	}
	if d.BibliographicEntry == nil {
		return apperrors.NewDocumentStructure("bibliographicEntry")
	}
	if d.Subject == "" {
		return apperrors.NewDocumentStructure("subject")
	}
	if d.BodyMatter == nil {
		return apperrors.NewDocumentStructure("bodyMatter")
	}
	return nil
}
