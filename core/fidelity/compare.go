package fidelity

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/xats-org/xats-go/core/doc"
)

// ExtractText flattens every piece of display text in the document, in
// reading order: bibliographic title, front matter, body tree, back matter.
func ExtractText(d *doc.Document) string {
	if d == nil {
		return ""
	}

	var parts []string
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}

	if d.BibliographicEntry != nil {
		add(d.BibliographicEntry.Title)
	}
	if d.FrontMatter != nil {
		add(extractNodes(d.FrontMatter.Preface))
		add(extractNodes(d.FrontMatter.Acknowledgments))
	}
	if d.BodyMatter != nil {
		add(extractNodes(d.BodyMatter.Contents))
	}
	if d.BackMatter != nil {
		add(extractNodes(d.BackMatter.Appendices))
		for _, g := range d.BackMatter.Glossary {
			add(g.Term)
			add(g.Definition.PlainText())
		}
		for _, b := range d.BackMatter.Bibliography {
			add(b.Title)
		}
		for _, ix := range d.BackMatter.Index {
			add(ix.Term)
		}
	}

	return strings.Join(parts, "\n")
}

func extractNodes(nodes []*doc.ContentNode) string {
	var parts []string
	doc.Walk(nodes, func(n *doc.ContentNode, depth int) bool {
		if n.IsContainer() {
			if s := n.Container.Title.PlainText(); s != "" {
				parts = append(parts, s)
			}
			return true
		}
		if s := extractBlockText(n.Block); s != "" {
			parts = append(parts, s)
		}
		return true
	})
	return strings.Join(parts, "\n")
}

func extractBlockText(b *doc.ContentBlock) string {
	switch b.BlockType {
	case doc.BlockParagraph, doc.BlockHeading:
		if tc, ok := b.TextContent(); ok {
			return tc.Text.PlainText()
		}
	case doc.BlockList:
		if lc, ok := b.ListContent(); ok {
			var parts []string
			for _, item := range lc.Items {
				parts = append(parts, item.PlainText())
			}
			return strings.Join(parts, "\n")
		}
	case doc.BlockBlockquote:
		if qc, ok := b.QuoteContent(); ok {
			s := qc.Text.PlainText()
			if attr := qc.Attribution.PlainText(); attr != "" {
				s += "\n" + attr
			}
			return s
		}
	case doc.BlockCodeBlock:
		if cc, ok := b.CodeContent(); ok {
			return cc.Code
		}
	case doc.BlockMathBlock:
		if mc, ok := b.MathContent(); ok {
			return mc.Math
		}
	case doc.BlockTable:
		if tc, ok := b.TableContent(); ok {
			var parts []string
			for _, h := range tc.Headers {
				parts = append(parts, h.PlainText())
			}
			for _, row := range tc.Rows {
				for _, cell := range row {
					parts = append(parts, cell.PlainText())
				}
			}
			if caption := tc.Caption.PlainText(); caption != "" {
				parts = append(parts, caption)
			}
			return strings.Join(parts, "\n")
		}
	case doc.BlockFigure:
		if fc, ok := b.FigureContent(); ok {
			return fc.Caption.PlainText()
		}
	}

	if st, ok := b.SniffText(); ok {
		return st.PlainText()
	}
	return ""
}

// tokenize normalizes text for content comparison: NFC normalization,
// case folding, whitespace splitting, and punctuation trimming, so that
// format-level normalization (smart quotes, wrapping, trailing periods)
// does not register as content loss.
func tokenize(s string) []string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)

	fields := strings.Fields(s)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, unicode.IsPunct)
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// diceCoefficient is the token-multiset overlap ratio: 2·|A∩B| / (|A|+|B|).
// Two empty token lists compare as identical.
func diceCoefficient(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	counts := make(map[string]int, len(a))
	for _, tok := range a {
		counts[tok]++
	}

	overlap := 0
	for _, tok := range b {
		if counts[tok] > 0 {
			counts[tok]--
			overlap++
		}
	}

	return 2.0 * float64(overlap) / float64(len(a)+len(b))
}

// CompareContent scores extracted plain text before vs after as a
// normalized token-overlap ratio in [0,1].
func CompareContent(before, after *doc.Document) float64 {
	return diceCoefficient(tokenize(ExtractText(before)), tokenize(ExtractText(after)))
}

// structureSignature captures the tree shape relevant to structure fidelity.
type structureSignature struct {
	containers  int
	maxDepth    int
	blockSeq    []string
	blockCounts map[string]int
}

func buildStructureSignature(d *doc.Document) structureSignature {
	sig := structureSignature{blockCounts: make(map[string]int)}
	if d == nil || d.BodyMatter == nil {
		return sig
	}
	doc.Walk(d.BodyMatter.Contents, func(n *doc.ContentNode, depth int) bool {
		if depth+1 > sig.maxDepth {
			sig.maxDepth = depth + 1
		}
		if n.IsContainer() {
			sig.containers++
			return true
		}
		name := n.Block.LocalName()
		sig.blockSeq = append(sig.blockSeq, name)
		sig.blockCounts[name]++
		return true
	})
	return sig
}

// ratio returns min/max as a similarity in [0,1], treating 0/0 as identical.
func ratio(a, b int) float64 {
	if a == b {
		return 1.0
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi == 0 {
		return 1.0
	}
	return float64(lo) / float64(hi)
}

// lcsLength is the longest-common-subsequence length of two sequences.
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// countSimilarity compares two count maps as sum(min)/sum(max) over the
// union of keys.
func countSimilarity[K comparable](a, b map[K]int) float64 {
	sumMin, sumMax := 0, 0
	for k, av := range a {
		bv := b[k]
		if av < bv {
			sumMin += av
			sumMax += bv
		} else {
			sumMin += bv
			sumMax += av
		}
	}
	for k, bv := range b {
		if _, seen := a[k]; !seen {
			sumMax += bv
		}
	}
	if sumMax == 0 {
		return 1.0
	}
	return float64(sumMin) / float64(sumMax)
}

// CompareStructure scores tree shape: container count, nesting depth,
// per-type block counts, and block ordering.
func CompareStructure(before, after *doc.Document) float64 {
	a := buildStructureSignature(before)
	b := buildStructureSignature(after)

	orderScore := 1.0
	if len(a.blockSeq) > 0 || len(b.blockSeq) > 0 {
		longest := len(a.blockSeq)
		if len(b.blockSeq) > longest {
			longest = len(b.blockSeq)
		}
		orderScore = float64(lcsLength(a.blockSeq, b.blockSeq)) / float64(longest)
	}

	return (ratio(a.containers, b.containers) +
		ratio(a.maxDepth, b.maxDepth) +
		countSimilarity(a.blockCounts, b.blockCounts) +
		orderScore) / 4.0
}

// formattingSignature captures the inline markers and block shapes
// relevant to formatting fidelity.
type formattingSignature struct {
	runCounts    map[doc.RunType]int
	orderedLists []bool
	tableShapes  []string
}

func buildFormattingSignature(d *doc.Document) formattingSignature {
	sig := formattingSignature{runCounts: make(map[doc.RunType]int)}
	if d == nil || d.BodyMatter == nil {
		return sig
	}

	countRuns := func(st *doc.SemanticText) {
		if st == nil {
			return
		}
		for _, r := range st.Runs {
			if r.Type != doc.RunText {
				sig.runCounts[r.Type]++
			}
		}
	}

	doc.Walk(d.BodyMatter.Contents, func(n *doc.ContentNode, depth int) bool {
		if n.IsContainer() {
			countRuns(n.Container.Title)
			return true
		}
		b := n.Block
		switch b.BlockType {
		case doc.BlockParagraph, doc.BlockHeading:
			if tc, ok := b.TextContent(); ok {
				countRuns(tc.Text)
			}
		case doc.BlockList:
			if lc, ok := b.ListContent(); ok {
				sig.orderedLists = append(sig.orderedLists, lc.Ordered)
				for _, item := range lc.Items {
					countRuns(item)
				}
			}
		case doc.BlockBlockquote:
			if qc, ok := b.QuoteContent(); ok {
				countRuns(qc.Text)
				countRuns(qc.Attribution)
			}
		case doc.BlockTable:
			if tc, ok := b.TableContent(); ok {
				cols := len(tc.Headers)
				if cols == 0 && len(tc.Rows) > 0 {
					cols = len(tc.Rows[0])
				}
				sig.tableShapes = append(sig.tableShapes, fmt.Sprintf("%dx%d", len(tc.Rows), cols))
				for _, h := range tc.Headers {
					countRuns(h)
				}
				for _, row := range tc.Rows {
					for _, cell := range row {
						countRuns(cell)
					}
				}
			}
		}
		return true
	})
	return sig
}

func sequenceSimilarity[T comparable](a, b []T) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	matches := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(longest)
}

// CompareFormatting scores preserved inline markers (emphasis, strong,
// code, and the other non-text run kinds), list ordering, and table shape.
func CompareFormatting(before, after *doc.Document) float64 {
	a := buildFormattingSignature(before)
	b := buildFormattingSignature(after)

	return (countSimilarity(a.runCounts, b.runCounts) +
		sequenceSimilarity(a.orderedLists, b.orderedLists) +
		sequenceSimilarity(a.tableShapes, b.tableShapes)) / 3.0
}
