package doc

import (
	"encoding/json"
	"strings"
)

// Block type vocabulary URIs. The vocabulary is open: renderers must
// tolerate URIs outside this list and fall back to best-effort handling.
const (
	BlockParagraph  = "https://xats.org/vocabularies/blocks/paragraph"
	BlockHeading    = "https://xats.org/vocabularies/blocks/heading"
	BlockList       = "https://xats.org/vocabularies/blocks/list"
	BlockBlockquote = "https://xats.org/vocabularies/blocks/blockquote"
	BlockCodeBlock  = "https://xats.org/vocabularies/blocks/codeBlock"
	BlockMathBlock  = "https://xats.org/vocabularies/blocks/mathBlock"
	BlockTable      = "https://xats.org/vocabularies/blocks/table"
	BlockFigure     = "https://xats.org/vocabularies/blocks/figure"
)

// LocalName returns the final path segment of the block type URI
// (e.g., "paragraph"). Custom renderer overrides are keyed by it.
func (b *ContentBlock) LocalName() string {
	if i := strings.LastIndex(b.BlockType, "/"); i >= 0 {
		return b.BlockType[i+1:]
	}
	return b.BlockType
}

// TextContent is the payload shape shared by paragraph and heading blocks.
type TextContent struct {
	// Text is the block's rich text.
	Text *SemanticText `json:"text"`

	// Level is the heading depth (headings only, 1-6).
	Level int `json:"level,omitempty"`
}

// ListContent is the payload shape of list blocks.
type ListContent struct {
	// Ordered selects numbered vs bulleted rendering.
	Ordered bool `json:"ordered,omitempty"`

	// Items are the list entries in order.
	Items []*SemanticText `json:"items"`
}

// QuoteContent is the payload shape of blockquote blocks.
type QuoteContent struct {
	// Text is the quoted rich text.
	Text *SemanticText `json:"text"`

	// Attribution credits the quote's source.
	Attribution *SemanticText `json:"attribution,omitempty"`
}

// CodeContent is the payload shape of code blocks.
type CodeContent struct {
	// Code is the verbatim source text.
	Code string `json:"code"`

	// Language is the language hint (e.g., "go").
	Language string `json:"language,omitempty"`
}

// MathContent is the payload shape of display math blocks.
type MathContent struct {
	// Math is the source expression.
	Math string `json:"math"`

	// Notation names the markup (e.g., "tex").
	Notation string `json:"notation,omitempty"`
}

// TableContent is the payload shape of table blocks.
type TableContent struct {
	// Headers are the column headers.
	Headers []*SemanticText `json:"headers,omitempty"`

	// Rows are the body cells, row major.
	Rows [][]*SemanticText `json:"rows,omitempty"`

	// Caption is the table caption.
	Caption *SemanticText `json:"caption,omitempty"`
}

// FigureContent is the payload shape of figure blocks.
type FigureContent struct {
	// Src locates the figure resource.
	Src string `json:"src,omitempty"`

	// Alt is the alternative text.
	Alt string `json:"alt,omitempty"`

	// Caption is the figure caption.
	Caption *SemanticText `json:"caption,omitempty"`
}

// decodePayload narrows the untyped content payload into the given shape by
// round-tripping through JSON. Payload shapes are not statically tied to
// the blockType URI, so narrowing is always best effort.
func decodePayload[T any](content map[string]any) (*T, bool) {
	if content == nil {
		return nil, false
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return &out, true
}

// TextContent narrows the payload to the paragraph/heading shape.
func (b *ContentBlock) TextContent() (*TextContent, bool) {
	tc, ok := decodePayload[TextContent](b.Content)
	if !ok || tc.Text == nil {
		return nil, false
	}
	return tc, true
}

// ListContent narrows the payload to the list shape.
func (b *ContentBlock) ListContent() (*ListContent, bool) {
	lc, ok := decodePayload[ListContent](b.Content)
	if !ok || lc.Items == nil {
		return nil, false
	}
	return lc, true
}

// QuoteContent narrows the payload to the blockquote shape.
func (b *ContentBlock) QuoteContent() (*QuoteContent, bool) {
	qc, ok := decodePayload[QuoteContent](b.Content)
	if !ok || qc.Text == nil {
		return nil, false
	}
	return qc, true
}

// CodeContent narrows the payload to the code shape.
func (b *ContentBlock) CodeContent() (*CodeContent, bool) {
	cc, ok := decodePayload[CodeContent](b.Content)
	if !ok || cc.Code == "" {
		return nil, false
	}
	return cc, true
}

// MathContent narrows the payload to the display math shape.
func (b *ContentBlock) MathContent() (*MathContent, bool) {
	mc, ok := decodePayload[MathContent](b.Content)
	if !ok || mc.Math == "" {
		return nil, false
	}
	return mc, true
}

// TableContent narrows the payload to the table shape.
func (b *ContentBlock) TableContent() (*TableContent, bool) {
	tc, ok := decodePayload[TableContent](b.Content)
	if !ok || (tc.Headers == nil && tc.Rows == nil) {
		return nil, false
	}
	return tc, true
}

// FigureContent narrows the payload to the figure shape.
func (b *ContentBlock) FigureContent() (*FigureContent, bool) {
	fc, ok := decodePayload[FigureContent](b.Content)
	if !ok || (fc.Src == "" && fc.Caption == nil) {
		return nil, false
	}
	return fc, true
}

// SniffText is the forward-compatibility fallback for unknown block types:
// it looks for a SemanticText-shaped field named "text" in the payload.
func (b *ContentBlock) SniffText() (*SemanticText, bool) {
	if b.Content == nil {
		return nil, false
	}
	raw, ok := b.Content["text"]
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var st SemanticText
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false
	}
	if len(st.Runs) == 0 {
		return nil, false
	}
	return &st, true
}

// Constructors used by parsers when rebuilding canonical documents.

// NewParagraph builds a paragraph block.
func NewParagraph(id string, text *SemanticText) *ContentBlock {
	return &ContentBlock{
		ID:        id,
		BlockType: BlockParagraph,
		Content:   map[string]any{"text": text},
	}
}

// NewHeading builds a heading block at the given level.
func NewHeading(id string, level int, text *SemanticText) *ContentBlock {
	return &ContentBlock{
		ID:        id,
		BlockType: BlockHeading,
		Content:   map[string]any{"text": text, "level": level},
	}
}

// NewList builds a list block.
func NewList(id string, ordered bool, items []*SemanticText) *ContentBlock {
	return &ContentBlock{
		ID:        id,
		BlockType: BlockList,
		Content:   map[string]any{"ordered": ordered, "items": items},
	}
}

// NewBlockquote builds a blockquote block.
func NewBlockquote(id string, text, attribution *SemanticText) *ContentBlock {
	content := map[string]any{"text": text}
	if attribution != nil {
		content["attribution"] = attribution
	}
	return &ContentBlock{ID: id, BlockType: BlockBlockquote, Content: content}
}

// NewCodeBlock builds a code block.
func NewCodeBlock(id, code, language string) *ContentBlock {
	content := map[string]any{"code": code}
	if language != "" {
		content["language"] = language
	}
	return &ContentBlock{ID: id, BlockType: BlockCodeBlock, Content: content}
}

// NewMathBlock builds a display math block.
func NewMathBlock(id, math, notation string) *ContentBlock {
	content := map[string]any{"math": math}
	if notation != "" {
		content["notation"] = notation
	}
	return &ContentBlock{ID: id, BlockType: BlockMathBlock, Content: content}
}

// NewTable builds a table block.
func NewTable(id string, headers []*SemanticText, rows [][]*SemanticText, caption *SemanticText) *ContentBlock {
	content := map[string]any{}
	if headers != nil {
		content["headers"] = headers
	}
	if rows != nil {
		content["rows"] = rows
	}
	if caption != nil {
		content["caption"] = caption
	}
	return &ContentBlock{ID: id, BlockType: BlockTable, Content: content}
}

// NewFigure builds a figure block.
func NewFigure(id, src, alt string, caption *SemanticText) *ContentBlock {
	content := map[string]any{}
	if src != "" {
		content["src"] = src
	}
	if alt != "" {
		content["alt"] = alt
	}
	if caption != nil {
		content["caption"] = caption
	}
	return &ContentBlock{ID: id, BlockType: BlockFigure, Content: content}
}
