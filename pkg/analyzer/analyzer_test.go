package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
	"github.com/selmo/Tagdstiller-sub001/pkg/chunker"
	"github.com/selmo/Tagdstiller-sub001/pkg/prompts"
)

type stubProvider struct {
	generateFn func(req ai.Request) (*ai.Response, error)
	calls      int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(_ context.Context, req ai.Request) (*ai.Response, error) {
	s.calls++
	return s.generateFn(req)
}

func (s *stubProvider) GenerateStream(ctx context.Context, req ai.Request) (*ai.Response, error) {
	return s.Generate(ctx, req)
}

func (s *stubProvider) Metrics() ai.ModelMetrics { return ai.ModelMetrics{} }
func (s *stubProvider) ResetMetrics()            {}

func newLLMAnalyzer(fn func(req ai.Request) (*ai.Response, error)) (*Analyzer, *stubProvider) {
	provider := &stubProvider{generateFn: fn}
	gateway := ai.NewGateway(ai.NewGatewayParams{
		Provider: provider,
		Config:   ai.GatewayConfig{Enabled: true, Model: "test-model", MaxTokens: 1024},
	})
	return NewAnalyzer(NewAnalyzerParams{Gateway: gateway}), provider
}

func testChunk(content string) chunker.Chunk {
	return chunker.Chunk{
		ID:            "chunk-1",
		Level:         chunker.LevelSection,
		Title:         "Release Notes",
		Content:       content,
		ContentLength: len(content),
	}
}

func TestAnalyze_AllKindsFallback(t *testing.T) {
	content := "# Release Notes\n\n- faster build pipeline\n- simpler deploy step\n\nThe build system reads manifests. The deploy step publishes artifacts. Build correctness matters.\n"
	a := NewAnalyzer(NewAnalyzerParams{})

	res := a.Analyze(context.Background(), testChunk(content))

	if res.ChunkID != "chunk-1" || res.Level != chunker.LevelSection {
		t.Errorf("identity fields = %q %q", res.ChunkID, res.Level)
	}
	if len(res.Keywords) == 0 {
		t.Fatalf("fallback produced no keywords")
	}
	if res.Keywords[0].Term != "build" {
		t.Errorf("top keyword = %q, want %q", res.Keywords[0].Term, "build")
	}
	for i := 1; i < len(res.Keywords); i++ {
		if res.Keywords[i].Score > res.Keywords[i-1].Score {
			t.Errorf("keyword scores not descending at %d", i)
		}
	}

	wantExtractors := map[string]string{
		"keywords":        ExtractorFallback,
		"summary":         ExtractorFallback,
		"structure":       "heuristic",
		"knowledge_graph": ExtractorFallback,
	}
	for kind, want := range wantExtractors {
		if got := res.Metadata.Extractors[kind]; got != want {
			t.Errorf("extractor[%s] = %q, want %q", kind, got, want)
		}
	}
	if len(res.Metadata.Errors) != 0 {
		t.Errorf("no model ran, so no degradation entries expected, got %v", res.Metadata.Errors)
	}
	if res.Metadata.LLMCalls != 0 {
		t.Errorf("llm calls = %d, want 0", res.Metadata.LLMCalls)
	}

	if res.Summary == nil || res.Summary.Intro != "Release Notes" {
		t.Errorf("summary intro = %+v", res.Summary)
	}
	if res.Summary.Conclusion != "The build system reads manifests. The deploy step publishes artifacts. Build correctness matters." {
		t.Errorf("summary conclusion = %q", res.Summary.Conclusion)
	}

	if res.Structure == nil {
		t.Fatalf("structure missing")
	}
	if res.Structure.HeadingCount != 1 || res.Structure.ListCount != 2 {
		t.Errorf("structure counts = %+v", res.Structure)
	}
	if !res.Structure.HasHeadings || !res.Structure.HasLists {
		t.Errorf("structure flags = %+v", res.Structure)
	}

	if res.Graph == nil || len(res.Graph.Entities) == 0 {
		t.Fatalf("fallback graph missing")
	}
	if len(res.Graph.Relationships) != len(res.Graph.Entities)-1 {
		t.Errorf("chain of %d entities has %d relationships",
			len(res.Graph.Entities), len(res.Graph.Relationships))
	}
}

func TestAnalyze_LLMPaths(t *testing.T) {
	a, provider := newLLMAnalyzer(func(req ai.Request) (*ai.Response, error) {
		switch req.SchemaName {
		case "keywords":
			return &ai.Response{Text: `{"keywords": [{"keyword": "orchestration", "score": 0.93, "category": "technology"}]}`}, nil
		case "summary":
			return &ai.Response{Text: `{"intro": "Opens with scheduling.", "conclusion": "Closes on scaling.", "core": "The text explains cluster scheduling.", "topics": ["scheduling", "scaling"], "tone": "neutral"}`}, nil
		case "knowledge_graph":
			return &ai.Response{Text: `{"entities": [{"name": "Scheduler", "type": "component", "properties": {"role": "assigns pods"}}, {"name": "Cluster", "type": "system", "properties": {}}], "relationships": [{"source": "Scheduler", "target": "Cluster", "type": "manages", "description": "assigns workloads"}]}`}, nil
		}
		return nil, fmt.Errorf("unexpected schema %q", req.SchemaName)
	})

	res := a.Analyze(context.Background(), testChunk("The scheduler assigns pods to the cluster.\n"))

	if len(res.Keywords) != 1 || res.Keywords[0].Term != "orchestration" || res.Keywords[0].Score != 0.93 {
		t.Errorf("keywords = %+v", res.Keywords)
	}
	if res.Keywords[0].Category != "technology" {
		t.Errorf("keyword category = %q", res.Keywords[0].Category)
	}
	if res.Summary == nil || res.Summary.Core != "The text explains cluster scheduling." {
		t.Errorf("summary = %+v", res.Summary)
	}
	if len(res.Summary.Topics) != 2 {
		t.Errorf("summary topics = %v", res.Summary.Topics)
	}

	if res.Graph == nil {
		t.Fatalf("graph missing")
	}
	if len(res.Graph.Entities) != 2 {
		t.Fatalf("graph entities = %+v", res.Graph.Entities)
	}
	if res.Graph.Entities[0].ID != "scheduler" || res.Graph.Entities[0].Type != "COMPONENT" {
		t.Errorf("first entity = %+v", res.Graph.Entities[0])
	}
	if res.Graph.Entities[0].Properties["role"] != "assigns pods" {
		t.Errorf("entity properties = %v", res.Graph.Entities[0].Properties)
	}
	if len(res.Graph.Relationships) != 1 {
		t.Fatalf("graph relationships = %+v", res.Graph.Relationships)
	}
	rel := res.Graph.Relationships[0]
	if rel.Source != "scheduler" || rel.Target != "cluster" || rel.Type != "MANAGES" {
		t.Errorf("relationship = %+v", rel)
	}

	for _, kind := range []string{"keywords", "summary", "knowledge_graph"} {
		if got := res.Metadata.Extractors[kind]; got != ExtractorLLM {
			t.Errorf("extractor[%s] = %q, want %q", kind, got, ExtractorLLM)
		}
	}
	if res.Metadata.Extractors["structure"] != "heuristic" {
		t.Errorf("structure extractor = %q", res.Metadata.Extractors["structure"])
	}
	if res.Metadata.LLMCalls != 3 || res.Metadata.Retries != 0 {
		t.Errorf("llm calls = %d retries = %d", res.Metadata.LLMCalls, res.Metadata.Retries)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}
	if len(res.Metadata.Errors) != 0 {
		t.Errorf("unexpected degradations: %v", res.Metadata.Errors)
	}
}

func TestAnalyze_FailSoftPerKind(t *testing.T) {
	a, _ := newLLMAnalyzer(func(req ai.Request) (*ai.Response, error) {
		switch req.SchemaName {
		case "keywords":
			return &ai.Response{Text: `{"keywords": [{"keyword": "orchestration", "score": 0.9}]}`}, nil
		case "summary":
			return &ai.Response{Text: `{"intro": "", "conclusion": "", "core": "Fine.", "topics": [], "tone": "neutral"}`}, nil
		case "knowledge_graph":
			return nil, errors.New("model exploded")
		}
		return nil, fmt.Errorf("unexpected schema %q", req.SchemaName)
	})

	res := a.Analyze(context.Background(), testChunk("The scheduler assigns pods.\n"))

	if res.Metadata.Extractors["keywords"] != ExtractorLLM {
		t.Errorf("keywords extractor = %q", res.Metadata.Extractors["keywords"])
	}
	if res.Metadata.Extractors["knowledge_graph"] != ExtractorFallback {
		t.Errorf("graph extractor = %q", res.Metadata.Extractors["knowledge_graph"])
	}

	if len(res.Metadata.Errors) != 1 {
		t.Fatalf("degradations = %v, want exactly one", res.Metadata.Errors)
	}
	if res.Metadata.Errors[0].Kind != KindKnowledgeGraph {
		t.Errorf("degraded kind = %q", res.Metadata.Errors[0].Kind)
	}
	if !strings.Contains(res.Metadata.Errors[0].Message, "model exploded") {
		t.Errorf("degradation message = %q", res.Metadata.Errors[0].Message)
	}

	// The fallback chain builds over the successful LLM keywords.
	if res.Graph == nil || len(res.Graph.Entities) != 1 {
		t.Fatalf("fallback graph = %+v", res.Graph)
	}
	if res.Graph.Entities[0].ID != "orchestration" {
		t.Errorf("fallback entity = %+v", res.Graph.Entities[0])
	}
	if res.Metadata.LLMCalls != 3 {
		t.Errorf("llm calls = %d, want 3", res.Metadata.LLMCalls)
	}
}

func TestAnalyze_KindSubset(t *testing.T) {
	a := NewAnalyzer(NewAnalyzerParams{Kinds: []Kind{KindStructure}})

	res := a.Analyze(context.Background(), testChunk("# T\n\n- item\n"))

	if res.Structure == nil {
		t.Fatalf("structure missing")
	}
	if res.Keywords != nil || res.Summary != nil || res.Graph != nil {
		t.Errorf("disabled kinds produced output: %+v", res)
	}
	if len(res.Metadata.Extractors) != 1 {
		t.Errorf("extractors = %v, want just structure", res.Metadata.Extractors)
	}
}

func TestAnalyze_ExtractorListDisablesLLM(t *testing.T) {
	base, provider := newLLMAnalyzer(func(ai.Request) (*ai.Response, error) {
		return nil, errors.New("must not be called")
	})
	a := NewAnalyzer(NewAnalyzerParams{
		Gateway:    base.gateway,
		Extractors: []string{ExtractorFallback},
	})

	res := a.Analyze(context.Background(), testChunk("plain text content here\n"))

	if provider.calls != 0 {
		t.Errorf("provider was called %d times", provider.calls)
	}
	if res.Metadata.Extractors["keywords"] != ExtractorFallback {
		t.Errorf("keywords extractor = %q", res.Metadata.Extractors["keywords"])
	}
	if res.Metadata.LLMCalls != 0 {
		t.Errorf("llm calls = %d, want 0", res.Metadata.LLMCalls)
	}
}

type memorySink struct {
	records []PromptRecord
	fail    bool
}

func (m *memorySink) RecordPrompt(rec PromptRecord) error {
	if m.fail {
		return errors.New("sink closed")
	}
	m.records = append(m.records, rec)
	return nil
}

func TestAnalyze_PromptProvenance(t *testing.T) {
	base, _ := newLLMAnalyzer(func(req ai.Request) (*ai.Response, error) {
		switch req.SchemaName {
		case "keywords":
			return &ai.Response{Text: `{"keywords": [{"keyword": "observability", "score": 0.8}]}`}, nil
		case "summary":
			return &ai.Response{Text: `{"intro": "", "conclusion": "", "core": "Covers metrics.", "topics": [], "tone": ""}`}, nil
		case "knowledge_graph":
			return nil, errors.New("model unreachable")
		}
		return nil, fmt.Errorf("unexpected schema %q", req.SchemaName)
	})
	sink := &memorySink{}
	a := NewAnalyzer(NewAnalyzerParams{Gateway: base.gateway, Sink: sink})

	res := a.Analyze(context.Background(), testChunk("Metrics and traces feed the dashboards.\n"))

	if len(sink.records) != 3 {
		t.Fatalf("recorded %d calls, want 3", len(sink.records))
	}
	for i, want := range []string{"keywords", "summary", "knowledge_graph"} {
		rec := sink.records[i]
		if rec.Category != want {
			t.Errorf("record[%d] category = %q, want %q", i, rec.Category, want)
		}
		if rec.ChunkID != "chunk-1" {
			t.Errorf("record[%d] chunk = %q", i, rec.ChunkID)
		}
		if rec.Prompt == "" {
			t.Errorf("record[%d] has no prompt", i)
		}
		if rec.CreatedAt.IsZero() {
			t.Errorf("record[%d] has no timestamp", i)
		}
	}

	kws := sink.records[0]
	if !kws.Success || kws.Response == "" {
		t.Errorf("keywords record = %+v, want success with response", kws)
	}
	if kws.Template != prompts.DefaultName {
		t.Errorf("keywords template = %q, want %q", kws.Template, prompts.DefaultName)
	}
	if kws.Params["MaxKeywords"] != DefaultMaxKeywords {
		t.Errorf("keywords params = %v", kws.Params)
	}

	graphRec := sink.records[2]
	if graphRec.Success {
		t.Error("graph record marked success despite the failure")
	}
	if !strings.Contains(graphRec.Error, "model unreachable") {
		t.Errorf("graph record error = %q", graphRec.Error)
	}
	if res.Graph == nil {
		t.Error("analysis lost its fallback graph")
	}
}

func TestAnalyze_SinkFailureDoesNotBreakAnalysis(t *testing.T) {
	base, _ := newLLMAnalyzer(func(req ai.Request) (*ai.Response, error) {
		return &ai.Response{Text: `{"keywords": [{"keyword": "resilience", "score": 0.7}]}`}, nil
	})
	a := NewAnalyzer(NewAnalyzerParams{
		Gateway: base.gateway,
		Kinds:   []Kind{KindKeywords},
		Sink:    &memorySink{fail: true},
	})

	res := a.Analyze(context.Background(), testChunk("Systems degrade gracefully.\n"))
	if len(res.Keywords) != 1 || res.Keywords[0].Term != "resilience" {
		t.Errorf("keywords = %+v", res.Keywords)
	}
}

func TestAnalyze_KindOrderNormalized(t *testing.T) {
	a := NewAnalyzer(NewAnalyzerParams{
		Kinds: []Kind{KindKnowledgeGraph, KindKeywords, KindKeywords, Kind("bogus")},
	})
	want := []Kind{KindKeywords, KindKnowledgeGraph}
	got := a.Kinds()
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kinds[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
