package chunker

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// MaxOutlineDepth bounds outline nesting. Outlines can arrive from
	// untrusted sources such as model output, so the bound holds on every
	// ingest path.
	MaxOutlineDepth = 12
	// MaxOutlineFanout bounds the direct children of one outline node.
	MaxOutlineFanout = 256
)

// OutlineNode is one node of a document outline. The root has level 0 and
// an empty title; its children mirror the heading hierarchy.
type OutlineNode struct {
	ID       string         `json:"id,omitempty"`
	Level    int            `json:"level"`
	Title    string         `json:"title,omitempty"`
	Children []*OutlineNode `json:"children,omitempty"`
}

// Outline builds the heading tree of doc without splitting it. Documents
// without detectable headings return a childless root.
func (c *Chunker) Outline(doc string) (*OutlineNode, error) {
	rootID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	root := &OutlineNode{ID: rootID}
	if doc == "" {
		return root, nil
	}

	heads := markdownHeadings(doc)
	if len(heads) == 0 && len(c.rules) > 0 {
		heads = ruleHeadings(doc, c.rules)
	}

	stack := []*OutlineNode{root}
	for _, h := range heads {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		n := &OutlineNode{ID: id, Level: h.level, Title: h.title}
		for len(stack) > 1 && stack[len(stack)-1].Level >= h.level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, n)
		stack = append(stack, n)
	}
	return root, nil
}

// Validate rejects outlines that exceed the depth or fan-out bounds or carry
// negative levels. Call it on any outline that was not built locally.
func (n *OutlineNode) Validate() error {
	return n.validate(1)
}

func (n *OutlineNode) validate(depth int) error {
	if n == nil {
		return nil
	}
	if depth > MaxOutlineDepth {
		return fmt.Errorf("outline exceeds max depth %d", MaxOutlineDepth)
	}
	if n.Level < 0 {
		return fmt.Errorf("outline node %q has negative level", n.Title)
	}
	if len(n.Children) > MaxOutlineFanout {
		return fmt.Errorf("outline node %q exceeds max fanout %d", n.Title, MaxOutlineFanout)
	}
	for _, child := range n.Children {
		if err := child.validate(depth + 1); err != nil {
			return err
		}
	}
	return nil
}
