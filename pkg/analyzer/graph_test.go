package analyzer

import "testing"

func TestBuildGraph(t *testing.T) {
	resp := graphResponse{
		Entities: []llmEntity{
			{Name: "Acme Corp", Type: "organization", Properties: map[string]string{"hq": "Berlin"}},
			{Name: "acme corp", Type: "company"},
			{Name: "Widget", Type: "product"},
			{Name: "   ", Type: "noise"},
		},
		Relationships: []llmRelationship{
			{Source: "Acme Corp", Target: "Widget", Type: "produces", Description: "main product"},
			{Source: "Acme Corp", Target: "Ghost", Type: "owns"},
			{Source: "Widget", Target: "Widget", Type: "self"},
		},
	}

	graph := buildGraph("chunk-7", resp)

	if len(graph.Entities) != 2 {
		t.Fatalf("entities = %+v", graph.Entities)
	}
	acme := graph.Entities[0]
	if acme.ID != "acme_corp" || acme.Type != "ORGANIZATION" {
		t.Errorf("first entity = %+v", acme)
	}
	if acme.Properties["hq"] != "Berlin" {
		t.Errorf("merged properties = %v", acme.Properties)
	}
	if len(acme.Sources) != 1 || acme.Sources[0] != "chunk-7" {
		t.Errorf("sources = %v", acme.Sources)
	}

	if len(graph.Relationships) != 1 {
		t.Fatalf("relationships = %+v", graph.Relationships)
	}
	rel := graph.Relationships[0]
	if rel.Source != "acme_corp" || rel.Target != "widget" || rel.Type != "PRODUCES" {
		t.Errorf("relationship = %+v", rel)
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"organization", "ORGANIZATION"},
		{" part of ", "PART_OF"},
		{"", "CONCEPT"},
		{"USES", "USES"},
	}
	for _, tt := range tests {
		if got := normalizeType(tt.in); got != tt.want {
			t.Errorf("normalizeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanProperties(t *testing.T) {
	got := cleanProperties(map[string]string{
		"role":  "broker",
		"":      "dropped",
		"empty": "  ",
	})
	if len(got) != 1 || got["role"] != "broker" {
		t.Errorf("cleanProperties = %v", got)
	}
	if cleanProperties(nil) != nil {
		t.Errorf("nil input should stay nil")
	}
	if cleanProperties(map[string]string{"": ""}) != nil {
		t.Errorf("all-empty input should collapse to nil")
	}
}

func TestFallbackGraph(t *testing.T) {
	keywords := []Keyword{
		{Term: "orchestration"},
		{Term: "scheduler"},
		{Term: "cluster"},
	}

	graph := fallbackGraph("chunk-3", keywords)

	if len(graph.Entities) != 3 {
		t.Fatalf("entities = %+v", graph.Entities)
	}
	if len(graph.Relationships) != 2 {
		t.Fatalf("relationships = %+v", graph.Relationships)
	}
	first := graph.Relationships[0]
	if first.Source != "orchestration" || first.Target != "scheduler" || first.Type != "CO_OCCURS_WITH" {
		t.Errorf("first link = %+v", first)
	}
	for _, e := range graph.Entities {
		if e.Type != "CONCEPT" {
			t.Errorf("entity type = %q", e.Type)
		}
		if len(e.Sources) != 1 || e.Sources[0] != "chunk-3" {
			t.Errorf("entity sources = %v", e.Sources)
		}
	}
}

func TestFallbackGraph_DedupesAndCaps(t *testing.T) {
	keywords := []Keyword{
		{Term: "AI Model"},
		{Term: "ai model"},
		{Term: "one"},
		{Term: "two"},
		{Term: "three"},
		{Term: "four"},
		{Term: "five"},
	}

	graph := fallbackGraph("chunk-4", keywords)

	if len(graph.Entities) != fallbackGraphSize {
		t.Fatalf("entities = %d, want %d", len(graph.Entities), fallbackGraphSize)
	}
	if graph.Entities[0].ID != "ai_model" {
		t.Errorf("first entity = %+v", graph.Entities[0])
	}
	if graph.Entities[1].ID != "one" {
		t.Errorf("duplicate term should collapse, got %+v", graph.Entities[1])
	}
	if len(graph.Relationships) != fallbackGraphSize-1 {
		t.Errorf("relationships = %d", len(graph.Relationships))
	}
}

func TestFallbackGraph_Empty(t *testing.T) {
	graph := fallbackGraph("chunk-5", nil)
	if len(graph.Entities) != 0 || len(graph.Relationships) != 0 {
		t.Errorf("empty keywords should yield an empty graph, got %+v", graph)
	}
}
