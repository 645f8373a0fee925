package artifact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/selmo/Tagdstiller-sub001/pkg/analyzer"
	"github.com/selmo/Tagdstiller-sub001/pkg/integrator"
)

// reportKeywordRows bounds the keyword table in the document report.
const reportKeywordRows = 15

// chunkReport renders one chunk result as a human-readable Markdown page.
func chunkReport(res analyzer.ChunkResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Chunk %s\n\n", res.ChunkID)
	fmt.Fprintf(&b, "- Level: %s\n", res.Level)
	if res.Title != "" {
		fmt.Fprintf(&b, "- Title: %s\n", res.Title)
	}
	fmt.Fprintf(&b, "- Content length: %d bytes\n", res.ContentLength)
	fmt.Fprintf(&b, "- Language: %s\n", res.Metadata.Language)
	if res.Metadata.Domain != "" {
		fmt.Fprintf(&b, "- Domain: %s\n", res.Metadata.Domain)
	}

	if len(res.Keywords) > 0 {
		b.WriteString("\n## Keywords\n\n")
		b.WriteString("| Keyword | Score | Category |\n|---|---|---|\n")
		for _, k := range res.Keywords {
			fmt.Fprintf(&b, "| %s | %.2f | %s |\n", k.Term, k.Score, k.Category)
		}
	}

	if res.Summary != nil {
		b.WriteString("\n## Summary\n\n")
		fmt.Fprintf(&b, "%s\n", res.Summary.Core)
		if res.Summary.Intro != "" {
			fmt.Fprintf(&b, "\n- Intro: %s\n", res.Summary.Intro)
		}
		if res.Summary.Conclusion != "" {
			fmt.Fprintf(&b, "- Conclusion: %s\n", res.Summary.Conclusion)
		}
		if len(res.Summary.Topics) > 0 {
			fmt.Fprintf(&b, "- Topics: %s\n", strings.Join(res.Summary.Topics, ", "))
		}
		if res.Summary.Tone != "" {
			fmt.Fprintf(&b, "- Tone: %s\n", res.Summary.Tone)
		}
	}

	if res.Structure != nil {
		b.WriteString("\n## Structure\n\n")
		fmt.Fprintf(&b, "- Headings: %d\n", res.Structure.HeadingCount)
		fmt.Fprintf(&b, "- List items: %d\n", res.Structure.ListCount)
		fmt.Fprintf(&b, "- Lines: %d\n", res.Structure.LineCount)
	}

	if res.Graph != nil {
		fmt.Fprintf(&b, "\n## Knowledge Graph\n\nEntities (%d):\n\n", len(res.Graph.Entities))
		for _, e := range res.Graph.Entities {
			fmt.Fprintf(&b, "- %s (%s)\n", e.Name, e.Type)
		}
		if len(res.Graph.Relationships) > 0 {
			fmt.Fprintf(&b, "\nRelationships (%d):\n\n", len(res.Graph.Relationships))
			for _, rel := range res.Graph.Relationships {
				fmt.Fprintf(&b, "- %s %s %s", rel.Source, rel.Type, rel.Target)
				if rel.Description != "" {
					fmt.Fprintf(&b, ": %s", rel.Description)
				}
				b.WriteByte('\n')
			}
		}
	}

	if len(res.Metadata.Extractors) > 0 || len(res.Metadata.Errors) > 0 {
		b.WriteString("\n## Analysis\n\n")
		for _, kind := range sortedKeys(res.Metadata.Extractors) {
			fmt.Fprintf(&b, "- %s: %s\n", kind, res.Metadata.Extractors[kind])
		}
		for _, e := range res.Metadata.Errors {
			fmt.Fprintf(&b, "- %s degraded: %s\n", e.Kind, e.Message)
		}
	}
	return b.String()
}

// documentReport renders the integrated result as the run's top-level
// Markdown page.
func documentReport(runID string, res *integrator.IntegratedResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Document Analysis %s\n\n", runID)
	fmt.Fprintf(&b, "- Chunks: %d\n", res.TotalChunks)
	fmt.Fprintf(&b, "- Content length: %d bytes\n", res.TotalContentLength)
	fmt.Fprintf(&b, "- Model calls: %d (retries: %d)\n",
		res.Metadata.LLMCalls, res.Metadata.Retries)

	if len(res.Keywords) > 0 {
		b.WriteString("\n## Top Keywords\n\n")
		b.WriteString("| Keyword | Score | Frequency |\n|---|---|---|\n")
		rows := res.Keywords
		if len(rows) > reportKeywordRows {
			rows = rows[:reportKeywordRows]
		}
		for _, k := range rows {
			fmt.Fprintf(&b, "| %s | %.2f | %d |\n", k.Term, k.Score, k.Frequency)
		}
	}

	if res.Summary != nil {
		b.WriteString("\n## Summary\n\n")
		if res.Summary.Document.Intro != "" {
			fmt.Fprintf(&b, "%s\n\n", res.Summary.Document.Intro)
		}
		if res.Summary.Document.Conclusion != "" {
			fmt.Fprintf(&b, "%s\n\n", res.Summary.Document.Conclusion)
		}
		for _, level := range res.Summary.Levels {
			fmt.Fprintf(&b, "- %s: %d summarized chunks\n", level.Level, level.Chunks)
		}
		if topics := res.Summary.Document.Topics; len(topics) > 0 {
			b.WriteString("\nTopics: ")
			for i, topic := range topics {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%s (%d)", topic.Topic, topic.Count)
			}
			b.WriteByte('\n')
		}
	}

	if res.Graph != nil {
		b.WriteString("\n## Knowledge Graph\n\n")
		fmt.Fprintf(&b, "- Entities: %d\n", len(res.Graph.Entities))
		fmt.Fprintf(&b, "- Relationships: %d\n", len(res.Graph.Relationships))
	}

	if len(res.Metadata.Degraded) > 0 {
		b.WriteString("\n## Degraded Analyses\n\n")
		for _, kind := range sortedKeys(res.Metadata.Degraded) {
			fmt.Fprintf(&b, "- %s: %d chunks\n", kind, res.Metadata.Degraded[kind])
		}
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
