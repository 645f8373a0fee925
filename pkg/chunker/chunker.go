// Package chunker splits documents into hierarchy-aware chunks.
//
// A document is partitioned along its heading structure: markdown headings
// when present, configurable heading rules for plain text, and paragraph
// packing when neither applies. Chunks are exact substrings of the input,
// contiguous and non-overlapping, so their lengths always add up to the
// document length.
package chunker

import (
	"strings"
	"unicode/utf8"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultMaxChunkSize is the chunk budget in bytes when none is configured.
const DefaultMaxChunkSize = 4000

// Level classifies how deep in the document hierarchy a chunk sits.
type Level string

const (
	// LevelDocument marks chunks not owned by any heading: whole small
	// documents, preamble text and paragraph-packed fallbacks.
	LevelDocument Level = "document"
	// LevelChapter marks chunks rooted at a level-1 heading.
	LevelChapter Level = "chapter"
	// LevelSection marks chunks rooted at a level-2 heading.
	LevelSection Level = "section"
	// LevelSubsection marks chunks rooted at level-3 or deeper headings.
	LevelSubsection Level = "subsection"
)

// Chunk is one contiguous piece of the source document.
type Chunk struct {
	ID            string `json:"id"`
	Level         Level  `json:"level"`
	Title         string `json:"title,omitempty"`
	Content       string `json:"content"`
	ContentLength int    `json:"content_length"`
	ParentID      string `json:"parent_id,omitempty"`
}

// Chunker splits documents according to a fixed size budget and optional
// plain-text heading rules.
type Chunker struct {
	maxChunkSize int
	rules        []HeadingRule
}

// NewChunkerParams are the construction parameters for a Chunker.
type NewChunkerParams struct {
	// MaxChunkSize is the chunk budget in bytes. Zero or negative selects
	// DefaultMaxChunkSize.
	MaxChunkSize int
	// HeadingRules detect headings in documents without markdown markup.
	// They only apply when markdown parsing finds no headings at all.
	HeadingRules []HeadingRule
}

// NewChunker builds a Chunker.
func NewChunker(params NewChunkerParams) *Chunker {
	size := params.MaxChunkSize
	if size <= 0 {
		size = DefaultMaxChunkSize
	}
	return &Chunker{maxChunkSize: size, rules: params.HeadingRules}
}

// MaxChunkSize reports the configured chunk budget in bytes.
func (c *Chunker) MaxChunkSize() int {
	return c.maxChunkSize
}

// Split partitions doc into chunks. Every chunk is an exact substring of
// doc, the chunks are contiguous and in document order, and their content
// lengths sum to len(doc). A document within the size budget always comes
// back as a single document-level chunk, headings or not. An empty document
// yields no chunks.
func (c *Chunker) Split(doc string) ([]Chunk, error) {
	if doc == "" {
		return nil, nil
	}
	if len(doc) <= c.maxChunkSize {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		return []Chunk{{
			ID:            id,
			Level:         LevelDocument,
			Content:       doc,
			ContentLength: len(doc),
		}}, nil
	}

	heads := markdownHeadings(doc)
	if len(heads) == 0 && len(c.rules) > 0 {
		heads = ruleHeadings(doc, c.rules)
	}
	if len(heads) == 0 {
		return c.packParagraphs(doc)
	}

	preamble, roots := buildTree(flatSegments(doc, heads))

	var out []Chunk
	var err error
	if preamble != nil {
		out, _, err = c.emitSpan(doc, preamble.start, preamble.end, LevelDocument, "", "", out)
		if err != nil {
			return nil, err
		}
	}
	return c.packSiblings(doc, roots, "", out)
}

// packSiblings walks sibling nodes in order, greedily grouping consecutive
// subtrees into one chunk while the combined span stays within the budget.
// Subtrees over the budget are handed to splitNode instead.
func (c *Chunker) packSiblings(doc string, nodes []*node, parentID string, out []Chunk) ([]Chunk, error) {
	groupStart, groupEnd := -1, -1
	var first *node

	flush := func() error {
		if groupStart < 0 {
			return nil
		}
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		content := doc[groupStart:groupEnd]
		out = append(out, Chunk{
			ID:            id,
			Level:         mapLevel(first.seg.level),
			Title:         first.seg.title,
			Content:       content,
			ContentLength: len(content),
			ParentID:      parentID,
		})
		groupStart, groupEnd, first = -1, -1, nil
		return nil
	}

	for _, n := range nodes {
		subtreeEnd := totalEnd(n)
		if subtreeEnd-n.seg.start > c.maxChunkSize {
			if err := flush(); err != nil {
				return nil, err
			}
			var err error
			out, err = c.splitNode(doc, n, parentID, out)
			if err != nil {
				return nil, err
			}
			continue
		}
		if groupStart < 0 {
			groupStart, groupEnd, first = n.seg.start, subtreeEnd, n
			continue
		}
		if subtreeEnd-groupStart <= c.maxChunkSize {
			groupEnd = subtreeEnd
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		groupStart, groupEnd, first = n.seg.start, subtreeEnd, n
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// splitNode breaks up one over-budget subtree: the node's own segment
// becomes its own chunk (split further at paragraph boundaries when still
// too large), then the children are packed beneath it. Child chunks point
// at the chunk carrying their parent heading.
func (c *Chunker) splitNode(doc string, n *node, parentID string, out []Chunk) ([]Chunk, error) {
	out, ownID, err := c.emitSpan(doc, n.seg.start, n.seg.end, mapLevel(n.seg.level), n.seg.title, parentID, out)
	if err != nil {
		return nil, err
	}
	if len(n.children) == 0 {
		return out, nil
	}
	return c.packSiblings(doc, n.children, ownID, out)
}

// emitSpan appends chunks covering doc[start:end), splitting the span when
// it exceeds the budget. It returns the ID of the first emitted chunk so
// callers can parent further chunks under it.
func (c *Chunker) emitSpan(doc string, start, end int, level Level, title, parentID string, out []Chunk) ([]Chunk, string, error) {
	firstID := ""
	for _, sp := range c.splitSpan(doc, start, end) {
		id, err := gonanoid.New()
		if err != nil {
			return nil, "", err
		}
		if firstID == "" {
			firstID = id
		}
		content := doc[sp.start:sp.end]
		out = append(out, Chunk{
			ID:            id,
			Level:         level,
			Title:         title,
			Content:       content,
			ContentLength: len(content),
			ParentID:      parentID,
		})
	}
	return out, firstID, nil
}

// packParagraphs is the fallback for documents with no detectable headings:
// paragraphs are packed greedily into document-level chunks.
func (c *Chunker) packParagraphs(doc string) ([]Chunk, error) {
	var out []Chunk
	for _, sp := range c.splitSpan(doc, 0, len(doc)) {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		content := doc[sp.start:sp.end]
		out = append(out, Chunk{
			ID:            id,
			Level:         LevelDocument,
			Content:       content,
			ContentLength: len(content),
		})
	}
	return out, nil
}

// span is a half-open byte range into the document.
type span struct {
	start int
	end   int
}

// splitSpan cuts doc[start:end) into budget-sized spans. Paragraph
// boundaries are preferred; a single paragraph over the budget is cut at
// rune-safe byte positions.
func (c *Chunker) splitSpan(doc string, start, end int) []span {
	if end-start <= c.maxChunkSize {
		return []span{{start, end}}
	}

	var out []span
	curStart, curEnd := -1, -1
	for _, p := range paragraphSpans(doc, start, end) {
		if p.end-p.start > c.maxChunkSize {
			if curStart >= 0 {
				out = append(out, span{curStart, curEnd})
				curStart, curEnd = -1, -1
			}
			out = append(out, c.byteSplit(doc, p.start, p.end)...)
			continue
		}
		if curStart < 0 {
			curStart, curEnd = p.start, p.end
			continue
		}
		if p.end-curStart <= c.maxChunkSize {
			curEnd = p.end
			continue
		}
		out = append(out, span{curStart, curEnd})
		curStart, curEnd = p.start, p.end
	}
	if curStart >= 0 {
		out = append(out, span{curStart, curEnd})
	}
	return out
}

// byteSplit cuts doc[start:end) into budget-sized spans at rune boundaries
// so every chunk stays valid UTF-8.
func (c *Chunker) byteSplit(doc string, start, end int) []span {
	var out []span
	for start < end {
		cut := start + c.maxChunkSize
		if cut >= end {
			out = append(out, span{start, end})
			break
		}
		for cut > start && !utf8.RuneStart(doc[cut]) {
			cut--
		}
		if cut == start {
			_, size := utf8.DecodeRuneInString(doc[start:])
			cut = start + size
		}
		out = append(out, span{start, cut})
		start = cut
	}
	return out
}

// paragraphSpans partitions doc[start:end) at blank lines. Separator
// newlines attach to the preceding paragraph so the spans stay contiguous.
func paragraphSpans(doc string, start, end int) []span {
	s := doc[start:end]
	var spans []span
	from := 0
	i := 0
	for {
		j := strings.Index(s[i:], "\n\n")
		if j < 0 {
			break
		}
		k := i + j + 2
		for k < len(s) && s[k] == '\n' {
			k++
		}
		if k >= len(s) {
			break
		}
		spans = append(spans, span{start + from, start + k})
		from = k
		i = k
	}
	return append(spans, span{start + from, end})
}

// mapLevel translates a heading depth into a chunk level.
func mapLevel(level int) Level {
	switch {
	case level <= 0:
		return LevelDocument
	case level == 1:
		return LevelChapter
	case level == 2:
		return LevelSection
	default:
		return LevelSubsection
	}
}
