// Package doc defines the canonical document model consumed and produced by
// every renderer. The model mirrors the external xats JSON schema: a tree of
// structural containers (units, chapters, sections) holding typed content
// blocks, with SemanticText runs for rich inline text. This package consumes
// the schema, it does not own it; unknown future block types must survive a
// round trip as opaque payloads.
package doc

// SchemaVersion values this framework has been exercised against.
const (
	// SchemaVersionCurrent is the canonical schema version emitted by parsers.
	SchemaVersionCurrent = "0.3.0"
)

// Document is the top-level canonical document.
type Document struct {
	// SchemaVersion is the canonical schema version (e.g., "0.3.0").
	SchemaVersion string `json:"schemaVersion"`

	// BibliographicEntry carries CSL-style bibliographic metadata.
	BibliographicEntry *BibliographicEntry `json:"bibliographicEntry,omitempty"`

	// Subject is the primary subject classification.
	Subject string `json:"subject,omitempty"`

	// Lang is the BCP-47 language tag (e.g., "en").
	Lang string `json:"lang,omitempty"`

	// FrontMatter holds preliminary content (preface, acknowledgments).
	FrontMatter *FrontMatter `json:"frontMatter,omitempty"`

	// BodyMatter holds the main structural tree.
	BodyMatter *BodyMatter `json:"bodyMatter,omitempty"`

	// BackMatter holds closing content (appendices, glossary, bibliography, index).
	BackMatter *BackMatter `json:"backMatter,omitempty"`

	// Extensions contains additional metadata as key-value pairs.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Title returns the bibliographic title, or "" when absent.
func (d *Document) Title() string {
	if d.BibliographicEntry == nil {
		return ""
	}
	return d.BibliographicEntry.Title
}

// BibliographicEntry is a CSL-style bibliographic record.
type BibliographicEntry struct {
	// Type is the CSL item type (e.g., "book", "article").
	Type string `json:"type,omitempty"`

	// Title is the human-readable title.
	Title string `json:"title,omitempty"`

	// Author lists the contributors.
	Author []Contributor `json:"author,omitempty"`

	// Publisher is the publisher name.
	Publisher string `json:"publisher,omitempty"`

	// Issued is the publication date (ISO 8601 or year).
	Issued string `json:"issued,omitempty"`

	// ID is the citation key for this entry.
	ID string `json:"id,omitempty"`
}

// Contributor is one author or editor.
type Contributor struct {
	// Family is the family name.
	Family string `json:"family,omitempty"`

	// Given is the given name.
	Given string `json:"given,omitempty"`

	// Literal is the full name when it does not split into family/given.
	Literal string `json:"literal,omitempty"`
}

// Name returns the best display name for the contributor.
func (c Contributor) Name() string {
	if c.Literal != "" {
		return c.Literal
	}
	if c.Given != "" && c.Family != "" {
		return c.Given + " " + c.Family
	}
	if c.Family != "" {
		return c.Family
	}
	return c.Given
}

// BodyMatter holds the main structural tree of the document.
type BodyMatter struct {
	// Contents is the ordered tree of containers and content blocks.
	Contents []*ContentNode `json:"contents"`
}

// FrontMatter holds preliminary document content.
type FrontMatter struct {
	// Preface contains preface content nodes.
	Preface []*ContentNode `json:"preface,omitempty"`

	// Acknowledgments contains acknowledgment content nodes.
	Acknowledgments []*ContentNode `json:"acknowledgments,omitempty"`
}

// BackMatter holds closing document content.
type BackMatter struct {
	// Appendices contains appendix containers or blocks.
	Appendices []*ContentNode `json:"appendices,omitempty"`

	// Glossary contains term definitions.
	Glossary []*GlossaryEntry `json:"glossary,omitempty"`

	// Bibliography lists cited works.
	Bibliography []*BibliographicEntry `json:"bibliography,omitempty"`

	// Index contains index terms and their locators.
	Index []*IndexEntry `json:"index,omitempty"`
}

// GlossaryEntry is one glossary term with its definition.
type GlossaryEntry struct {
	// Term is the word or phrase being defined.
	Term string `json:"term"`

	// Definition is the rich-text definition.
	Definition *SemanticText `json:"definition,omitempty"`
}

// IndexEntry is one index term with its locators.
type IndexEntry struct {
	// Term is the indexed word or phrase.
	Term string `json:"term"`

	// Locators are the positions the term occurs at (e.g., section ids).
	Locators []string `json:"locators,omitempty"`
}

// Minimal returns a well-formed placeholder document. Parsers return it,
// never nil, when input is unparseable.
func Minimal() *Document {
	return &Document{
		SchemaVersion: SchemaVersionCurrent,
		BibliographicEntry: &BibliographicEntry{
			Type:  "document",
			Title: "Untitled Document",
		},
		Subject:    "unknown",
		BodyMatter: &BodyMatter{Contents: []*ContentNode{}},
	}
}
