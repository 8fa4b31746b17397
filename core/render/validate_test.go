package render

import (
	"strings"
	"testing"

	"github.com/xats-org/xats-go/core/doc"
	apperrors "github.com/xats-org/xats-go/core/errors"
)

func validDocument() *doc.Document {
	return &doc.Document{
		SchemaVersion:      "0.3.0",
		BibliographicEntry: &doc.BibliographicEntry{Type: "book", Title: "T"},
		Subject:            "S",
		BodyMatter:         &doc.BodyMatter{Contents: []*doc.ContentNode{}},
	}
}

func TestValidateDocumentAccepts(t *testing.T) {
	if err := ValidateDocument(validDocument()); err != nil {
		t.Fatalf("ValidateDocument: %v", err)
	}
}

func TestValidateDocumentNamesMissingField(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(d *doc.Document)
		wantField string
	}{
		{"missing schemaVersion", func(d *doc.Document) { d.SchemaVersion = "" }, "schemaVersion"},
		{"missing bibliographicEntry", func(d *doc.Document) { d.BibliographicEntry = nil }, "bibliographicEntry"},
		{"missing subject", func(d *doc.Document) { d.Subject = "" }, "subject"},
		{"missing bodyMatter", func(d *doc.Document) { d.BodyMatter = nil }, "bodyMatter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDocument()
			tt.mutate(d)

			err := ValidateDocument(d)
			if err == nil {
				t.Fatal("expected error")
			}

			var dse *apperrors.DocumentStructureError
			if !apperrors.As(err, &dse) {
				t.Fatalf("error type %T, want DocumentStructureError", err)
			}
			if dse.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", dse.Field, tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("message %q does not name the field", err.Error())
			}
		})
	}
}

func TestValidateDocumentNil(t *testing.T) {
	err := ValidateDocument(nil)
	if err == nil {
		t.Fatal("nil document must be rejected")
	}
	if !apperrors.Is(err, apperrors.ErrInvalidDocument) {
		t.Error("error should unwrap to ErrInvalidDocument")
	}
}
