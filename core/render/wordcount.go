package render

import (
	"strings"

	"github.com/xats-org/xats-go/core/doc"
)

// CountText counts words in plain text: split on whitespace runs, drop
// empty tokens, count the remainder. Deterministic and locale-naive.
func CountText(s string) int {
	return len(strings.Fields(s))
}

// CountSemanticText counts the words a SemanticText contributes. Only
// countable runs participate; citation and math runs are display-only.
func CountSemanticText(st *doc.SemanticText) int {
	return CountText(st.CountableText())
}

// CountWords counts every word a reader would count in the document:
// bibliographic title, front matter, the body tree down through nested
// containers to content blocks, and back matter.
func CountWords(d *doc.Document) int {
	if d == nil {
		return 0
	}

	total := 0
	if d.BibliographicEntry != nil {
		total += CountText(d.BibliographicEntry.Title)
	}

	if d.FrontMatter != nil {
		total += countNodes(d.FrontMatter.Preface)
		total += countNodes(d.FrontMatter.Acknowledgments)
	}

	if d.BodyMatter != nil {
		total += countNodes(d.BodyMatter.Contents)
	}

	if d.BackMatter != nil {
		total += countNodes(d.BackMatter.Appendices)
		for _, g := range d.BackMatter.Glossary {
			total += CountText(g.Term)
			total += CountSemanticText(g.Definition)
		}
		for _, b := range d.BackMatter.Bibliography {
			total += CountText(b.Title)
		}
		for _, ix := range d.BackMatter.Index {
			total += CountText(ix.Term)
		}
	}

	return total
}

// countNodes counts words in a contents array, recursing through
// containers.
func countNodes(nodes []*doc.ContentNode) int {
	total := 0
	doc.Walk(nodes, func(n *doc.ContentNode, depth int) bool {
		if n.IsContainer() {
			total += CountSemanticText(n.Container.Title)
			return true
		}
		total += CountBlock(n.Block)
		return true
	})
	return total
}

// CountBlock counts the words one content block contributes, narrowing
// the payload by its declared type and falling back to a best-effort text
// scan for unknown types.
func CountBlock(b *doc.ContentBlock) int {
	switch b.BlockType {
	case doc.BlockParagraph, doc.BlockHeading:
		if tc, ok := b.TextContent(); ok {
			return CountSemanticText(tc.Text)
		}
	case doc.BlockList:
		if lc, ok := b.ListContent(); ok {
			total := 0
			for _, item := range lc.Items {
				total += CountSemanticText(item)
			}
			return total
		}
	case doc.BlockBlockquote:
		if qc, ok := b.QuoteContent(); ok {
			total := CountSemanticText(qc.Text)
			total += CountSemanticText(qc.Attribution)
			return total
		}
	case doc.BlockTable:
		if tc, ok := b.TableContent(); ok {
			total := 0
			for _, h := range tc.Headers {
				total += CountSemanticText(h)
			}
			for _, row := range tc.Rows {
				for _, cell := range row {
					total += CountSemanticText(cell)
				}
			}
			total += CountSemanticText(tc.Caption)
			return total
		}
	}

	// Unknown or mismatched payload: best-effort scan for a
	// SemanticText-shaped "text" field, else zero.
	if st, ok := b.SniffText(); ok {
		return CountSemanticText(st)
	}
	return 0
}

// CollectMetrics gathers per-render statistics for a document.
func CollectMetrics(d *doc.Document) *Metrics {
	m := &Metrics{WordCount: CountWords(d)}
	if d == nil || d.BodyMatter == nil {
		return m
	}
	doc.Walk(d.BodyMatter.Contents, func(n *doc.ContentNode, _ int) bool {
		if n.IsContainer() {
			m.ContainerCount++
		} else {
			m.BlockCount++
		}
		return true
	})
	return m
}
