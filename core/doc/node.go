package doc

import (
	"encoding/json"
	"fmt"
)

// ContainerKind identifies the structural level of a container.
type ContainerKind string

// Container kind constants.
const (
	ContainerUnit    ContainerKind = "unit"
	ContainerChapter ContainerKind = "chapter"
	ContainerSection ContainerKind = "section"
)

// validContainerKinds is the set of valid container kinds.
var validContainerKinds = map[ContainerKind]bool{
	ContainerUnit:    true,
	ContainerChapter: true,
	ContainerSection: true,
}

// IsValid returns true if the container kind is valid.
func (k ContainerKind) IsValid() bool {
	return validContainerKinds[k]
}

// StructuralContainer is a unit, chapter, or section grouping other
// containers or content blocks.
type StructuralContainer struct {
	// Kind is the explicit container discriminant. Input that omits it is
	// classified from nesting depth by InferKinds; output always carries it.
	Kind ContainerKind `json:"containerType,omitempty"`

	// ID is the container identifier (e.g., "ch-01").
	ID string `json:"id,omitempty"`

	// Label is the ordinal label (e.g., "3", "A.2").
	Label string `json:"label,omitempty"`

	// Title is the rich-text container title.
	Title *SemanticText `json:"title,omitempty"`

	// Contents is the ordered list of child containers and blocks.
	Contents []*ContentNode `json:"contents"`
}

// ContentBlock is a leaf node carrying one typed content payload.
type ContentBlock struct {
	// ID is the block identifier.
	ID string `json:"id,omitempty"`

	// BlockType is the vocabulary URI selecting the content shape.
	BlockType string `json:"blockType"`

	// Content is the untyped payload. Its shape is selected by BlockType
	// from an open vocabulary, so it must be narrowed defensively; see the
	// typed accessors in blocks.go.
	Content map[string]any `json:"content,omitempty"`

	// Extensions contains additional block metadata.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// ContentNode is one entry in a contents array: exactly one of Container or
// Block is set, never both.
type ContentNode struct {
	Container *StructuralContainer
	Block     *ContentBlock
}

// IsBlock returns true if the node holds a content block.
func (n *ContentNode) IsBlock() bool {
	return n.Block != nil
}

// IsContainer returns true if the node holds a structural container.
func (n *ContentNode) IsContainer() bool {
	return n.Container != nil
}

// ContainerNode wraps a container in a ContentNode.
func ContainerNode(c *StructuralContainer) *ContentNode {
	return &ContentNode{Container: c}
}

// BlockNode wraps a content block in a ContentNode.
func BlockNode(b *ContentBlock) *ContentNode {
	return &ContentNode{Block: b}
}

// UnmarshalJSON classifies the node purely from shape: presence of a
// blockType field means ContentBlock, anything else is a container.
func (n *ContentNode) UnmarshalJSON(data []byte) error {
	var probe struct {
		BlockType string `json:"blockType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("content node must be an object: %w", err)
	}

	if probe.BlockType != "" {
		var b ContentBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		n.Block = &b
		n.Container = nil
		return nil
	}

	var c StructuralContainer
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	n.Container = &c
	n.Block = nil
	return nil
}

// MarshalJSON emits whichever side of the union is set.
func (n *ContentNode) MarshalJSON() ([]byte, error) {
	switch {
	case n.Block != nil:
		return json.Marshal(n.Block)
	case n.Container != nil:
		return json.Marshal(n.Container)
	default:
		return nil, fmt.Errorf("content node holds neither container nor block")
	}
}

// containerDepth returns the deepest chain of nested containers below the
// given nodes: 0 when no child is a container.
func containerDepth(nodes []*ContentNode) int {
	depth := 0
	for _, n := range nodes {
		if n.IsContainer() {
			d := 1 + containerDepth(n.Container.Contents)
			if d > depth {
				depth = d
			}
		}
	}
	return depth
}

// InferKinds fills in the Kind discriminant on every container that lacks
// one, classifying from nesting depth: a container with no container
// children is a section, one level of container children makes a chapter,
// two or more make a unit. Explicit kinds are left untouched and source
// order is never changed.
func InferKinds(nodes []*ContentNode) {
	for _, n := range nodes {
		if !n.IsContainer() {
			continue
		}
		c := n.Container
		if c.Kind == "" {
			switch containerDepth(c.Contents) {
			case 0:
				c.Kind = ContainerSection
			case 1:
				c.Kind = ContainerChapter
			default:
				c.Kind = ContainerUnit
			}
		}
		InferKinds(c.Contents)
	}
}

// Walk visits every node in the tree in source order, containers before
// their contents. The visitor returns false to stop descending into a
// container's contents.
func Walk(nodes []*ContentNode, visit func(n *ContentNode, depth int) bool) {
	walk(nodes, 0, visit)
}

func walk(nodes []*ContentNode, depth int, visit func(n *ContentNode, depth int) bool) {
	for _, n := range nodes {
		descend := visit(n, depth)
		if n.IsContainer() && descend {
			walk(n.Container.Contents, depth+1, visit)
		}
	}
}
