package analyzer

import (
	"context"
	"errors"
	"strings"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
	"github.com/selmo/Tagdstiller-sub001/pkg/chunker"
	"github.com/selmo/Tagdstiller-sub001/pkg/kg"
	"github.com/selmo/Tagdstiller-sub001/pkg/prompts"
)

// fallbackGraphSize bounds the co-occurrence chain built when the model
// extractor is unavailable.
const fallbackGraphSize = 5

type llmEntity struct {
	Name       string            `json:"name" jsonschema_description:"Entity name exactly as the text supports it"`
	Type       string            `json:"type" jsonschema_description:"One of the entity types listed in the prompt"`
	Properties map[string]string `json:"properties" jsonschema_description:"Attributes of the entity stated in the text, as short name-value pairs"`
}

type llmRelationship struct {
	Source      string `json:"source" jsonschema_description:"Name of the source entity"`
	Target      string `json:"target" jsonschema_description:"Name of the target entity"`
	Type        string `json:"type" jsonschema_description:"Short uppercase relationship label such as USES or PART_OF"`
	Description string `json:"description" jsonschema_description:"Why the source relates to the target, in one sentence"`
}

type graphResponse struct {
	Entities      []llmEntity       `json:"entities" jsonschema_description:"Entities identified in the text"`
	Relationships []llmRelationship `json:"relationships" jsonschema_description:"Relationships between the identified entities"`
}

func (a *Analyzer) llmGraph(ctx context.Context, chunk chunker.Chunk, lang ai.Language, domain string) (graph *kg.Graph, result *ai.Result, err error) {
	params := prompts.Params{
		"Text":     chunk.Content,
		"Language": string(lang),
	}
	prompt, err := a.registry.Render(prompts.CategoryKnowledgeGraph, domain, params)
	if err != nil {
		return nil, nil, err
	}
	defer func() { a.emit(chunk.ID, prompts.CategoryKnowledgeGraph, domain, prompt, params, result, err) }()

	var resp graphResponse
	result, err = a.gateway.GenerateObject(ctx, "knowledge_graph",
		"Entities and relationships extracted from one document chunk", prompt, &resp)
	if err != nil {
		return nil, result, err
	}

	graph = buildGraph(chunk.ID, resp)
	if len(graph.Entities) == 0 {
		return nil, result, errors.New("model returned no entities")
	}
	return graph, result, nil
}

// buildGraph normalizes a model response into a Graph: entity IDs are slugs
// of their names, duplicates merge, and relationships must join two known
// entities.
func buildGraph(chunkID string, resp graphResponse) *kg.Graph {
	var raw kg.Graph
	for _, e := range resp.Entities {
		id := kg.NormalizeEntityID(e.Name)
		if id == "" {
			continue
		}
		raw.Entities = append(raw.Entities, kg.Entity{
			ID:         id,
			Name:       strings.TrimSpace(e.Name),
			Type:       normalizeType(e.Type),
			Properties: cleanProperties(e.Properties),
			Sources:    []string{chunkID},
		})
	}
	for _, r := range resp.Relationships {
		source := kg.NormalizeEntityID(r.Source)
		target := kg.NormalizeEntityID(r.Target)
		if source == "" || target == "" || source == target {
			continue
		}
		raw.Relationships = append(raw.Relationships, kg.Relationship{
			Source:      source,
			Target:      target,
			Type:        normalizeType(r.Type),
			Description: strings.TrimSpace(r.Description),
			Sources:     []string{chunkID},
		})
	}

	var graph kg.Graph
	graph.Merge(raw)
	return &graph
}

func normalizeType(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return "CONCEPT"
	}
	return strings.ReplaceAll(value, " ", "_")
}

func cleanProperties(props map[string]string) map[string]string {
	var out map[string]string
	for key, value := range props {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if out == nil {
			out = map[string]string{}
		}
		out[key] = value
	}
	return out
}

// fallbackGraph connects the chunk's top keywords into a co-occurrence
// chain so graph consumers always have something to join on.
func fallbackGraph(chunkID string, keywords []Keyword) *kg.Graph {
	graph := &kg.Graph{}
	seen := map[string]bool{}
	var order []string
	for _, k := range keywords {
		if len(order) == fallbackGraphSize {
			break
		}
		id := kg.NormalizeEntityID(k.Term)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
		graph.Entities = append(graph.Entities, kg.Entity{
			ID:      id,
			Name:    k.Term,
			Type:    "CONCEPT",
			Sources: []string{chunkID},
		})
	}
	for i := 1; i < len(order); i++ {
		graph.Relationships = append(graph.Relationships, kg.Relationship{
			Source:      order[i-1],
			Target:      order[i],
			Type:        "CO_OCCURS_WITH",
			Description: "terms appear in the same chunk",
			Sources:     []string{chunkID},
		})
	}
	return graph
}
