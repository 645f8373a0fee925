// Package integrator folds per-chunk analysis results into one document
// level result. Every merge is pure and order-stable: identical ordered
// input produces byte-identical output, so results carry no clocks and no
// map-iteration dependence.
package integrator

import (
	"sort"
	"strings"

	"github.com/selmo/Tagdstiller-sub001/pkg/analyzer"
	"github.com/selmo/Tagdstiller-sub001/pkg/chunker"
	"github.com/selmo/Tagdstiller-sub001/pkg/kg"
)

const (
	// maxIntegratedKeywords caps the merged keyword ranking.
	maxIntegratedKeywords = 50
	// maxTopics caps every topic-frequency table.
	maxTopics = 10
)

// MergedKeyword is one keyword aggregated across chunks. Term is the
// lowercased merge key; Score keeps the best chunk score and Frequency
// counts merged occurrences.
type MergedKeyword struct {
	Term      string   `json:"keyword"`
	Score     float64  `json:"score"`
	Frequency int      `json:"frequency"`
	Category  string   `json:"category,omitempty"`
	Sources   []string `json:"sources"`
}

// TopicCount is one row of a topic-frequency table.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// ChunkSummaryRef pairs a chunk with its summary inside a level group.
type ChunkSummaryRef struct {
	ChunkID string            `json:"chunk_id"`
	Title   string            `json:"title,omitempty"`
	Summary *analyzer.Summary `json:"summary"`
}

// LevelSummary groups the summaries of one structural level.
type LevelSummary struct {
	Level     chunker.Level     `json:"level"`
	Chunks    int               `json:"chunks"`
	Topics    []TopicCount      `json:"topics,omitempty"`
	Summaries []ChunkSummaryRef `json:"summaries"`
}

// DocumentRollup condenses all chunk summaries into one document view: the
// first chunk opens it, the last chunk closes it, and the topic table spans
// every summarized chunk.
type DocumentRollup struct {
	Intro      string       `json:"intro,omitempty"`
	Conclusion string       `json:"conclusion,omitempty"`
	Topics     []TopicCount `json:"topics,omitempty"`
	Chunks     int          `json:"chunks"`
}

// HierarchicalSummary is the merged summary output: a document rollup plus
// per-level groups in document order.
type HierarchicalSummary struct {
	Document DocumentRollup `json:"document"`
	Levels   []LevelSummary `json:"levels,omitempty"`
}

// HierarchyEntry is one chunk's position in the merged structure view.
type HierarchyEntry struct {
	ChunkID       string        `json:"chunk_id"`
	Level         chunker.Level `json:"level"`
	Title         string        `json:"title,omitempty"`
	ContentLength int           `json:"content_length"`
	HasStructure  bool          `json:"has_structure"`
}

// IntegratedStructure unions the chunk hierarchy with the per-chunk
// structural payloads keyed by chunk id.
type IntegratedStructure struct {
	Hierarchy []HierarchyEntry               `json:"hierarchy"`
	ByChunk   map[string]*analyzer.Structure `json:"by_chunk,omitempty"`
}

// Metadata aggregates run statistics over all chunk results.
type Metadata struct {
	Degraded map[string]int `json:"degraded,omitempty"`
	LLMCalls int            `json:"llm_calls"`
	Retries  int            `json:"retries"`
}

// IntegratedResult is the single merged output of a run, created exactly
// once and immutable after write.
type IntegratedResult struct {
	TotalChunks        int                    `json:"total_chunks"`
	TotalContentLength int                    `json:"total_content_length"`
	Keywords           []MergedKeyword        `json:"integrated_keywords"`
	Summary            *HierarchicalSummary   `json:"hierarchical_summary,omitempty"`
	Structure          *IntegratedStructure   `json:"integrated_structure,omitempty"`
	Graph              *kg.Graph              `json:"merged_knowledge_graph,omitempty"`
	ChunkResults       []analyzer.ChunkResult `json:"chunk_results"`
	Metadata           Metadata               `json:"metadata"`
}

// Integrate merges ordered chunk results into the document-level result.
func Integrate(results []analyzer.ChunkResult) *IntegratedResult {
	out := &IntegratedResult{
		TotalChunks:  len(results),
		Keywords:     MergeKeywords(results),
		Summary:      MergeSummaries(results),
		Structure:    MergeStructures(results),
		Graph:        MergeGraphs(results),
		ChunkResults: results,
	}
	for _, r := range results {
		out.TotalContentLength += r.ContentLength
		out.Metadata.LLMCalls += r.Metadata.LLMCalls
		out.Metadata.Retries += r.Metadata.Retries
		for _, e := range r.Metadata.Errors {
			if out.Metadata.Degraded == nil {
				out.Metadata.Degraded = map[string]int{}
			}
			out.Metadata.Degraded[string(e.Kind)]++
		}
	}
	return out
}

// MergeKeywords merges keywords case-insensitively: colliding terms keep
// the higher score, accumulate frequency and source chunks, and the final
// ranking orders by score times frequency with a first-seen tie-break,
// truncated to the top 50.
func MergeKeywords(results []analyzer.ChunkResult) []MergedKeyword {
	index := map[string]int{}
	var merged []MergedKeyword

	for _, r := range results {
		for _, k := range r.Keywords {
			key := strings.ToLower(strings.TrimSpace(k.Term))
			if key == "" {
				continue
			}
			pos, ok := index[key]
			if !ok {
				index[key] = len(merged)
				merged = append(merged, MergedKeyword{
					Term:      key,
					Score:     k.Score,
					Frequency: 1,
					Category:  k.Category,
					Sources:   []string{r.ChunkID},
				})
				continue
			}
			m := &merged[pos]
			if k.Score > m.Score {
				m.Score = k.Score
			}
			m.Frequency++
			if m.Category == "" {
				m.Category = k.Category
			}
			m.Sources = appendSource(m.Sources, r.ChunkID)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score*float64(merged[i].Frequency) >
			merged[j].Score*float64(merged[j].Frequency)
	})
	if len(merged) > maxIntegratedKeywords {
		merged = merged[:maxIntegratedKeywords]
	}
	return merged
}

// MergeSummaries groups chunk summaries by structural level with per-level
// topic tables and builds the document rollup. Chunks whose summary kind
// did not run are skipped; nil is returned when no chunk has a summary.
func MergeSummaries(results []analyzer.ChunkResult) *HierarchicalSummary {
	byLevel := map[chunker.Level][]ChunkSummaryRef{}
	topicsByLevel := map[chunker.Level][]string{}
	var allTopics []string
	var first, last *analyzer.Summary
	total := 0

	for i := range results {
		r := &results[i]
		if r.Summary == nil {
			continue
		}
		total++
		if first == nil {
			first = r.Summary
		}
		last = r.Summary
		byLevel[r.Level] = append(byLevel[r.Level], ChunkSummaryRef{
			ChunkID: r.ChunkID,
			Title:   r.Title,
			Summary: r.Summary,
		})
		topicsByLevel[r.Level] = append(topicsByLevel[r.Level], r.Summary.Topics...)
		allTopics = append(allTopics, r.Summary.Topics...)
	}
	if total == 0 {
		return nil
	}

	out := &HierarchicalSummary{
		Document: DocumentRollup{
			Intro:      first.Intro,
			Conclusion: last.Conclusion,
			Topics:     topTopics(allTopics, maxTopics),
			Chunks:     total,
		},
	}
	for _, level := range levelOrder() {
		refs := byLevel[level]
		if len(refs) == 0 {
			continue
		}
		out.Levels = append(out.Levels, LevelSummary{
			Level:     level,
			Chunks:    len(refs),
			Topics:    topTopics(topicsByLevel[level], maxTopics),
			Summaries: refs,
		})
	}
	return out
}

// MergeStructures unions the chunk hierarchy entries and collects the
// per-chunk structural payloads by chunk id.
func MergeStructures(results []analyzer.ChunkResult) *IntegratedStructure {
	if len(results) == 0 {
		return nil
	}
	out := &IntegratedStructure{}
	for _, r := range results {
		out.Hierarchy = append(out.Hierarchy, HierarchyEntry{
			ChunkID:       r.ChunkID,
			Level:         r.Level,
			Title:         r.Title,
			ContentLength: r.ContentLength,
			HasStructure:  r.Structure != nil && (r.Structure.HasHeadings || r.Structure.HasLists),
		})
		if r.Structure != nil {
			if out.ByChunk == nil {
				out.ByChunk = map[string]*analyzer.Structure{}
			}
			out.ByChunk[r.ChunkID] = r.Structure
		}
	}
	return out
}

// MergeGraphs folds the chunk knowledge graphs in document order. Entities
// merge by id with property union, relationships dedupe by signature with
// the first occurrence winning. Nil when no chunk produced a graph.
func MergeGraphs(results []analyzer.ChunkResult) *kg.Graph {
	var merged kg.Graph
	found := false
	for _, r := range results {
		if r.Graph == nil {
			continue
		}
		found = true
		merged.Merge(cloneGraph(*r.Graph))
	}
	if !found {
		return nil
	}
	return &merged
}

// cloneGraph copies entities and relationships deeply enough that merging
// never writes into the per-chunk graphs it reads.
func cloneGraph(g kg.Graph) kg.Graph {
	var out kg.Graph
	if len(g.Entities) > 0 {
		out.Entities = make([]kg.Entity, len(g.Entities))
		for i, e := range g.Entities {
			if e.Properties != nil {
				props := make(map[string]string, len(e.Properties))
				for k, v := range e.Properties {
					props[k] = v
				}
				e.Properties = props
			}
			e.Sources = append([]string(nil), e.Sources...)
			out.Entities[i] = e
		}
	}
	if len(g.Relationships) > 0 {
		out.Relationships = make([]kg.Relationship, len(g.Relationships))
		for i, rel := range g.Relationships {
			rel.Sources = append([]string(nil), rel.Sources...)
			out.Relationships[i] = rel
		}
	}
	return out
}

func levelOrder() []chunker.Level {
	return []chunker.Level{
		chunker.LevelDocument,
		chunker.LevelChapter,
		chunker.LevelSection,
		chunker.LevelSubsection,
	}
}

// topTopics counts topics case-insensitively, keeps the first-seen casing
// for display and returns the top rows ordered by count with a first-seen
// tie-break.
func topTopics(topics []string, max int) []TopicCount {
	type counted struct {
		display string
		n       int
	}
	index := map[string]*counted{}
	var order []*counted

	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		key := strings.ToLower(topic)
		if c := index[key]; c != nil {
			c.n++
			continue
		}
		c := &counted{display: topic, n: 1}
		index[key] = c
		order = append(order, c)
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].n > order[j].n })
	if len(order) > max {
		order = order[:max]
	}
	out := make([]TopicCount, len(order))
	for i, c := range order {
		out[i] = TopicCount{Topic: c.display, Count: c.n}
	}
	return out
}

func appendSource(sources []string, id string) []string {
	for _, s := range sources {
		if s == id {
			return sources
		}
	}
	return append(sources, id)
}
