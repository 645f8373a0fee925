package chunker

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// HeadingRule detects headings in plain text. A line whose trimmed content
// matches Pattern starts a new section at the given heading level.
type HeadingRule struct {
	Pattern *regexp.Regexp
	Level   int
}

// DefaultHeadingRules covers common plain-text conventions: Korean chapter
// and section markers, "Chapter N" lines and decimal numbering. More
// specific patterns come first because the first match wins.
func DefaultHeadingRules() []HeadingRule {
	return []HeadingRule{
		{Pattern: regexp.MustCompile(`^제\s*\d+\s*장`), Level: 1},
		{Pattern: regexp.MustCompile(`^제\s*\d+\s*절`), Level: 2},
		{Pattern: regexp.MustCompile(`(?i)^chapter\s+\d+`), Level: 1},
		{Pattern: regexp.MustCompile(`^\d+\.\d+\.?\s+\S`), Level: 2},
		{Pattern: regexp.MustCompile(`^\d+\.\s+\S`), Level: 1},
	}
}

// heading is one detected heading with the byte offset of its line start.
type heading struct {
	offset int
	level  int
	title  string
}

// markdownHeadings parses doc as markdown and returns the top-level
// headings in document order. Headings nested inside lists, quotes or code
// fences do not cut the document, only top-level ones do.
func markdownHeadings(doc string) []heading {
	src := []byte(doc)
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	var heads []heading
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			continue
		}
		heads = append(heads, heading{
			offset: lineStart(doc, lines.At(0).Start),
			level:  h.Level,
			title:  string(h.Text(src)),
		})
	}
	return heads
}

// ruleHeadings scans doc line by line against the configured heading rules.
// The first matching rule decides a line's level.
func ruleHeadings(doc string, rules []HeadingRule) []heading {
	var heads []heading
	offset := 0
	for _, line := range strings.SplitAfter(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			for _, rule := range rules {
				if rule.Pattern.MatchString(trimmed) {
					heads = append(heads, heading{offset: offset, level: rule.Level, title: trimmed})
					break
				}
			}
		}
		offset += len(line)
	}
	return heads
}

// lineStart returns the offset of the first byte of the line containing pos.
func lineStart(doc string, pos int) int {
	return strings.LastIndexByte(doc[:pos], '\n') + 1
}

// segment is one flat piece of the document partition: a heading line plus
// the body before the next heading at any level. Level 0 marks the preamble
// before the first heading.
type segment struct {
	start int
	end   int
	level int
	title string
}

// flatSegments turns the ordered heading list into a contiguous partition
// of doc. Segment starts and ends line up exactly, so the pieces
// reassemble into the original document.
func flatSegments(doc string, heads []heading) []segment {
	var segs []segment
	if heads[0].offset > 0 {
		segs = append(segs, segment{start: 0, end: heads[0].offset})
	}
	for i, h := range heads {
		end := len(doc)
		if i+1 < len(heads) {
			end = heads[i+1].offset
		}
		segs = append(segs, segment{start: h.offset, end: end, level: h.level, title: h.title})
	}
	return segs
}

// node is a section in the structural tree. Its own segment covers the
// heading line and the body before the first child heading; the subtree
// span runs through the last descendant.
type node struct {
	seg      segment
	children []*node
}

// buildTree nests the flat segments by heading level using a stack. The
// preamble segment, when present, stays outside the tree.
func buildTree(segs []segment) (*segment, []*node) {
	var preamble *segment
	i := 0
	if len(segs) > 0 && segs[0].level == 0 {
		preamble = &segs[0]
		i = 1
	}

	var roots []*node
	var stack []*node
	for ; i < len(segs); i++ {
		n := &node{seg: segs[i]}
		for len(stack) > 0 && stack[len(stack)-1].seg.level >= n.seg.level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
		}
		stack = append(stack, n)
	}
	return preamble, roots
}

// totalEnd returns the end offset of the node's whole subtree. Segments are
// contiguous, so this is the end of the last descendant.
func totalEnd(n *node) int {
	if len(n.children) == 0 {
		return n.seg.end
	}
	return totalEnd(n.children[len(n.children)-1])
}
