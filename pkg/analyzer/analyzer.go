// Package analyzer runs the per-chunk analysis kinds: keyword extraction,
// summarization, structural scanning and knowledge-graph extraction.
//
// Kinds fail soft and independently. A model failure degrades the affected
// kind to its deterministic fallback, records the failure in the result
// metadata and never aborts sibling kinds or the chunk. Chunks are analyzed
// without cross-chunk context.
package analyzer

import (
	"context"
	"time"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
	"github.com/selmo/Tagdstiller-sub001/pkg/chunker"
	"github.com/selmo/Tagdstiller-sub001/pkg/kg"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
	"github.com/selmo/Tagdstiller-sub001/pkg/prompts"
)

// Kind names one analysis performed on a chunk.
type Kind string

const (
	KindKeywords       Kind = "keywords"
	KindSummary        Kind = "summary"
	KindStructure      Kind = "structure"
	KindKnowledgeGraph Kind = "knowledge_graph"
)

// AllKinds returns every analysis kind in canonical execution order.
// Keywords run first so later kinds can reuse them for their fallbacks.
func AllKinds() []Kind {
	return []Kind{KindKeywords, KindSummary, KindStructure, KindKnowledgeGraph}
}

// Extractor family names accepted in NewAnalyzerParams.Extractors.
const (
	ExtractorLLM      = "llm"
	ExtractorFallback = "fallback"
)

// DefaultMaxKeywords bounds keyword extraction per chunk.
const DefaultMaxKeywords = 10

// KindError records one degraded analysis kind on a chunk.
type KindError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Metadata describes how a chunk's result was produced.
type Metadata struct {
	Language   ai.Language       `json:"language"`
	Domain     string            `json:"domain,omitempty"`
	Extractors map[string]string `json:"extractors,omitempty"`
	Errors     []KindError       `json:"errors,omitempty"`
	LLMCalls   int               `json:"llm_calls"`
	Retries    int               `json:"retries"`
	DurationMs int64             `json:"duration_ms"`
}

// ChunkResult is the complete analysis of one chunk, immutable once
// produced. Keywords are always set when the kind ran; Summary, Structure
// and Graph stay nil for kinds that were not enabled.
type ChunkResult struct {
	ChunkID       string        `json:"chunk_id"`
	Level         chunker.Level `json:"level"`
	Title         string        `json:"title,omitempty"`
	ContentLength int           `json:"content_length"`
	Keywords      []Keyword     `json:"keywords"`
	Summary       *Summary      `json:"summary,omitempty"`
	Structure     *Structure    `json:"structure_analysis,omitempty"`
	Graph         *kg.Graph     `json:"knowledge_graph,omitempty"`
	Metadata      Metadata      `json:"metadata"`
}

func (r *ChunkResult) useExtractor(kind Kind, name string) {
	r.Metadata.Extractors[string(kind)] = name
}

func (r *ChunkResult) degrade(kind Kind, err error) {
	r.Metadata.Errors = append(r.Metadata.Errors, KindError{Kind: kind, Message: err.Error()})
	logger.Warn("[Analyzer] analysis degraded to fallback",
		"chunk", r.ChunkID, "kind", kind, "err", err)
}

func (r *ChunkResult) recordLLM(result *ai.Result) {
	r.Metadata.LLMCalls++
	if result != nil {
		r.Metadata.Retries += result.Attempts - 1
	}
}

// NewAnalyzerParams contains the dependencies for creating an Analyzer.
type NewAnalyzerParams struct {
	// Gateway serves the model-backed extractors. A nil or disabled gateway
	// routes every kind to its deterministic fallback.
	Gateway *ai.Gateway
	// Registry resolves prompt templates. Nil selects the built-in set.
	Registry prompts.Registry
	// Kinds restricts which analyses run. Nil enables all of them.
	Kinds []Kind
	// Extractors restricts which extractor families may run. Nil enables
	// all; a list without "llm" forces the deterministic fallbacks.
	Extractors []string
	// MaxKeywords bounds keyword extraction. Zero selects DefaultMaxKeywords.
	MaxKeywords int
	// Sink receives prompt provenance records. Nil disables recording.
	Sink PromptSink
}

// Analyzer produces ChunkResults. It holds no per-chunk state, so one
// Analyzer may serve many goroutines concurrently.
type Analyzer struct {
	gateway     *ai.Gateway
	registry    prompts.Registry
	kinds       []Kind
	useLLM      bool
	maxKeywords int
	sink        PromptSink
}

// NewAnalyzer builds an Analyzer.
func NewAnalyzer(params NewAnalyzerParams) *Analyzer {
	registry := params.Registry
	if registry == nil {
		registry = prompts.NewStatic()
	}
	max := params.MaxKeywords
	if max <= 0 {
		max = DefaultMaxKeywords
	}
	return &Analyzer{
		gateway:     params.Gateway,
		registry:    registry,
		kinds:       normalizeKinds(params.Kinds),
		useLLM:      extractorEnabled(params.Extractors, ExtractorLLM),
		maxKeywords: max,
		sink:        params.Sink,
	}
}

// Kinds reports the enabled kinds in execution order.
func (a *Analyzer) Kinds() []Kind {
	out := make([]Kind, len(a.kinds))
	copy(out, a.kinds)
	return out
}

// Analyze runs the enabled kinds over one chunk. The returned result is
// always usable: model failures leave fallback values plus an error entry
// in the metadata.
func (a *Analyzer) Analyze(ctx context.Context, chunk chunker.Chunk) ChunkResult {
	start := time.Now()
	lang := ai.DetectLanguage(chunk.Content)
	domain := classifyDomain(chunk.Content)

	res := ChunkResult{
		ChunkID:       chunk.ID,
		Level:         chunk.Level,
		Title:         chunk.Title,
		ContentLength: chunk.ContentLength,
		Metadata: Metadata{
			Language:   lang,
			Domain:     domain,
			Extractors: map[string]string{},
		},
	}

	for _, kind := range a.kinds {
		switch kind {
		case KindKeywords:
			if a.llmReady() {
				kws, call, err := a.llmKeywords(ctx, chunk, lang, domain)
				res.recordLLM(call)
				if err == nil {
					res.Keywords = kws
					res.useExtractor(kind, ExtractorLLM)
					continue
				}
				res.degrade(kind, err)
			}
			res.Keywords = fallbackKeywords(chunk.Content, a.maxKeywords)
			res.useExtractor(kind, ExtractorFallback)

		case KindSummary:
			if a.llmReady() {
				sum, call, err := a.llmSummary(ctx, chunk, lang)
				res.recordLLM(call)
				if err == nil {
					res.Summary = sum
					res.useExtractor(kind, ExtractorLLM)
					continue
				}
				res.degrade(kind, err)
			}
			res.Summary = fallbackSummary(chunk.Content, a.topKeywords(&res, chunk))
			res.useExtractor(kind, ExtractorFallback)

		case KindStructure:
			res.Structure = analyzeStructure(chunk.Content)
			res.useExtractor(kind, "heuristic")

		case KindKnowledgeGraph:
			if a.llmReady() {
				graph, call, err := a.llmGraph(ctx, chunk, lang, domain)
				res.recordLLM(call)
				if err == nil {
					res.Graph = graph
					res.useExtractor(kind, ExtractorLLM)
					continue
				}
				res.degrade(kind, err)
			}
			res.Graph = fallbackGraph(chunk.ID, a.topKeywords(&res, chunk))
			res.useExtractor(kind, ExtractorFallback)
		}
	}

	res.Metadata.DurationMs = time.Since(start).Milliseconds()
	return res
}

func (a *Analyzer) llmReady() bool {
	return a.useLLM && a.gateway.Enabled()
}

// topKeywords prefers the chunk's extracted keywords and recomputes the
// deterministic set when the keywords kind did not run.
func (a *Analyzer) topKeywords(res *ChunkResult, chunk chunker.Chunk) []Keyword {
	if len(res.Keywords) > 0 {
		return res.Keywords
	}
	return fallbackKeywords(chunk.Content, a.maxKeywords)
}

// normalizeKinds keeps the canonical execution order and drops unknown or
// duplicate entries.
func normalizeKinds(kinds []Kind) []Kind {
	if len(kinds) == 0 {
		return AllKinds()
	}
	enabled := map[Kind]bool{}
	for _, k := range kinds {
		enabled[k] = true
	}
	var out []Kind
	for _, k := range AllKinds() {
		if enabled[k] {
			out = append(out, k)
		}
	}
	return out
}

func extractorEnabled(extractors []string, name string) bool {
	if len(extractors) == 0 {
		return true
	}
	for _, e := range extractors {
		if e == name {
			return true
		}
	}
	return false
}
