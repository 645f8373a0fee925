package kg

import "testing"

func TestMergeEntities(t *testing.T) {
	existing := []Entity{
		{ID: "acme", Name: "Acme", Type: "ORGANIZATION", Properties: map[string]string{"founded": "1990", "hq": "Berlin"}, Sources: []string{"chunk-1"}},
		{ID: "widget", Name: "Widget", Type: "PRODUCT"},
	}
	incoming := []Entity{
		{ID: "acme", Name: "ACME", Type: "COMPANY", Properties: map[string]string{"hq": "Hamburg", "employees": "120"}, Sources: []string{"chunk-2"}},
		{ID: "bolt", Name: "Bolt", Type: "PRODUCT", Sources: []string{"chunk-2"}},
		{ID: "", Name: "nameless"},
	}

	got := MergeEntities(existing, incoming)

	if len(got) != 3 {
		t.Fatalf("MergeEntities() len = %d, want 3", len(got))
	}
	if got[0].ID != "acme" || got[1].ID != "widget" || got[2].ID != "bolt" {
		t.Fatalf("MergeEntities() order = %v, %v, %v", got[0].ID, got[1].ID, got[2].ID)
	}

	acme := got[0]
	if acme.Type != "ORGANIZATION" {
		t.Fatalf("merged type = %q, want first-seen ORGANIZATION", acme.Type)
	}
	if acme.Properties["hq"] != "Hamburg" {
		t.Fatalf("merged hq = %q, want newer value Hamburg", acme.Properties["hq"])
	}
	if acme.Properties["founded"] != "1990" || acme.Properties["employees"] != "120" {
		t.Fatalf("merged properties = %v, want union", acme.Properties)
	}
	if len(acme.Sources) != 2 || acme.Sources[0] != "chunk-1" || acme.Sources[1] != "chunk-2" {
		t.Fatalf("merged sources = %v", acme.Sources)
	}
}

func TestMergeEntities_NilPropertiesOnExisting(t *testing.T) {
	existing := []Entity{{ID: "acme", Name: "Acme"}}
	incoming := []Entity{{ID: "acme", Properties: map[string]string{"hq": "Berlin"}}}

	got := MergeEntities(existing, incoming)
	if got[0].Properties["hq"] != "Berlin" {
		t.Fatalf("merged properties = %v", got[0].Properties)
	}
}

func TestMergeRelationships(t *testing.T) {
	existing := []Relationship{
		{Source: "acme", Target: "widget", Type: "produces", Description: "original", Sources: []string{"chunk-1"}},
	}
	incoming := []Relationship{
		{Source: "acme", Target: "widget", Type: "produces", Description: "duplicate wording", Sources: []string{"chunk-2"}},
		{Source: "widget", Target: "acme", Type: "produces", Description: "reverse direction"},
		{Source: "acme", Target: "widget", Type: "sells"},
		{Source: "", Target: "widget", Type: "produces"},
	}

	got := MergeRelationships(existing, incoming)

	if len(got) != 3 {
		t.Fatalf("MergeRelationships() len = %d, want 3", len(got))
	}
	if got[0].Description != "original" {
		t.Fatalf("duplicate overwrote the first occurrence: %q", got[0].Description)
	}
	if len(got[0].Sources) != 2 || got[0].Sources[1] != "chunk-2" {
		t.Fatalf("duplicate did not contribute its source: %v", got[0].Sources)
	}
	if got[1].Description != "reverse direction" || got[2].Type != "sells" {
		t.Fatalf("MergeRelationships() tail = %+v", got[1:])
	}
}

func TestGraph_Merge(t *testing.T) {
	g := Graph{
		Entities:      []Entity{{ID: "acme", Name: "Acme"}},
		Relationships: []Relationship{},
	}
	other := Graph{
		Entities: []Entity{{ID: "widget", Name: "Widget"}},
		Relationships: []Relationship{
			{Source: "acme", Target: "widget", Type: "produces"},
			{Source: "acme", Target: "ghost", Type: "haunts"},
		},
	}

	g.Merge(other)

	if len(g.Entities) != 2 {
		t.Fatalf("Merge() entities = %d, want 2", len(g.Entities))
	}
	if len(g.Relationships) != 1 || g.Relationships[0].Target != "widget" {
		t.Fatalf("Merge() relationships = %+v, want the dangling edge dropped", g.Relationships)
	}
}

func TestGraph_MergeDeterministic(t *testing.T) {
	build := func() Graph {
		g := Graph{}
		g.Merge(Graph{
			Entities: []Entity{
				{ID: "a", Name: "A", Properties: map[string]string{"k1": "v1", "k2": "v2"}},
				{ID: "b", Name: "B"},
			},
			Relationships: []Relationship{{Source: "a", Target: "b", Type: "linked"}},
		})
		g.Merge(Graph{
			Entities:      []Entity{{ID: "b", Properties: map[string]string{"k3": "v3"}}, {ID: "c", Name: "C"}},
			Relationships: []Relationship{{Source: "b", Target: "c", Type: "linked"}},
		})
		return g
	}

	first := build()
	for range 10 {
		next := build()
		if len(next.Entities) != len(first.Entities) {
			t.Fatal("Merge() entity count varies across runs")
		}
		for i := range first.Entities {
			if next.Entities[i].ID != first.Entities[i].ID {
				t.Fatal("Merge() entity order varies across runs")
			}
		}
		for i := range first.Relationships {
			if next.Relationships[i].Signature() != first.Relationships[i].Signature() {
				t.Fatal("Merge() relationship order varies across runs")
			}
		}
	}
}
