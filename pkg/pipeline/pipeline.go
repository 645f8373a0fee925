// Package pipeline runs the full document analysis: split into chunks, fan
// the chunks out over a bounded worker pool, merge the per-chunk results
// and persist the run artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
	"github.com/selmo/Tagdstiller-sub001/pkg/analyzer"
	"github.com/selmo/Tagdstiller-sub001/pkg/artifact"
	"github.com/selmo/Tagdstiller-sub001/pkg/chunker"
	"github.com/selmo/Tagdstiller-sub001/pkg/integrator"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
	"github.com/selmo/Tagdstiller-sub001/pkg/prompts"
)

// Typed run failures. Everything below these is partial failure and still
// produces a result with degradation stats.
var (
	ErrEmptyDocument = errors.New("document contains no text")
	ErrNoChunks      = errors.New("chunker produced no chunks")
)

// DefaultWorkers bounds concurrent chunk analyses when Options.Workers is
// zero. Provider rate limits are the real ceiling, not CPU.
const DefaultWorkers = 4

// Options configures one run.
type Options struct {
	// MaxChunkSize is the chunk budget in bytes. Zero selects the chunker
	// default.
	MaxChunkSize int
	// HeadingRules add plain-text heading detection for documents without
	// markdown headings.
	HeadingRules []chunker.HeadingRule
	// Kinds restricts the analyses to run. Nil enables all.
	Kinds []analyzer.Kind
	// Extractors restricts extractor families. Nil enables all.
	Extractors []string
	// MaxKeywords bounds keywords per chunk. Zero selects the default.
	MaxKeywords int
	// Workers bounds concurrent chunk analyses. Zero selects DefaultWorkers.
	Workers int
	// WithOutline adds the document outline to the run result.
	WithOutline bool
	// Artifacts receives chunk results, prompt provenance and the merged
	// result as the run progresses. Nil disables persistence.
	Artifacts *artifact.Run
	// Progress is invoked on stage transitions and after every analyzed
	// chunk. Analyzed and failed are disjoint counts; a chunk with at least
	// one degraded kind counts as failed. Calls happen from concurrent
	// chunk workers.
	Progress func(stage string, analyzed, failed, total int)
}

func (o Options) report(stage string, analyzed, failed, total int) {
	if o.Progress != nil {
		o.Progress(stage, analyzed, failed, total)
	}
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	return o
}

// RunResult is the outcome of one completed run.
type RunResult struct {
	Result  *integrator.IntegratedResult
	Outline *chunker.OutlineNode
	Stats   artifact.Stats
}

// NewPipelineParams contains the process-level dependencies of a Pipeline.
type NewPipelineParams struct {
	// Gateway serves model-backed analyses. Nil or disabled runs every kind
	// on its deterministic fallback.
	Gateway *ai.Gateway
	// Registry resolves prompt templates. Nil selects the built-in set.
	Registry prompts.Registry
}

// Pipeline executes analysis runs. It is safe for concurrent use; per-run
// state lives in Run.
type Pipeline struct {
	gateway  *ai.Gateway
	registry prompts.Registry
}

// NewPipeline builds a Pipeline.
func NewPipeline(params NewPipelineParams) *Pipeline {
	return &Pipeline{gateway: params.Gateway, registry: params.Registry}
}

// Run analyzes one document. Chunks are processed in document order by a
// bounded worker pool; cancellation is honored at chunk boundaries, keeps
// already-written chunk artifacts and skips integration. Per-kind model
// failures degrade to fallbacks and never fail the run.
func (p *Pipeline) Run(ctx context.Context, doc string, opts Options) (*RunResult, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, ErrEmptyDocument
	}
	opts = opts.withDefaults()
	start := time.Now()

	opts.report("chunking", 0, 0, 0)
	ch := chunker.NewChunker(chunker.NewChunkerParams{
		MaxChunkSize: opts.MaxChunkSize,
		HeadingRules: opts.HeadingRules,
	})
	chunks, err := ch.Split(doc)
	if err != nil {
		return nil, fmt.Errorf("split document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	logger.Info("[Pipeline] document split",
		"chunks", len(chunks), "max_chunk_size", ch.MaxChunkSize())
	opts.report("analyzing", 0, 0, len(chunks))

	var sink analyzer.PromptSink
	if opts.Artifacts != nil {
		sink = opts.Artifacts
	}
	anl := analyzer.NewAnalyzer(analyzer.NewAnalyzerParams{
		Gateway:     p.gateway,
		Registry:    p.registry,
		Kinds:       opts.Kinds,
		Extractors:  opts.Extractors,
		MaxKeywords: opts.MaxKeywords,
		Sink:        sink,
	})

	var progressMu sync.Mutex
	analyzed, failed := 0, 0

	results := make([]analyzer.ChunkResult, len(chunks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			results[i] = anl.Analyze(gCtx, chunk)
			if opts.Artifacts != nil {
				if err := opts.Artifacts.SaveChunkResult(results[i]); err != nil {
					return fmt.Errorf("persist chunk %s: %w", chunk.ID, err)
				}
			}
			progressMu.Lock()
			if len(results[i].Metadata.Errors) > 0 {
				failed++
			} else {
				analyzed++
			}
			a, f := analyzed, failed
			progressMu.Unlock()
			opts.report("analyzing", a, f, len(chunks))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts.report("integrating", analyzed, failed, len(chunks))
	merged := integrator.Integrate(results)

	var outline *chunker.OutlineNode
	if opts.WithOutline {
		outline, err = ch.Outline(doc)
		if err != nil {
			logger.Warn("[Pipeline] outline construction failed", "err", err)
			outline = nil
		} else if err := outline.Validate(); err != nil {
			logger.Warn("[Pipeline] outline rejected", "err", err)
			outline = nil
		}
	}

	opts.report("persisting", analyzed, failed, len(chunks))
	if opts.Artifacts != nil {
		if err := opts.Artifacts.SaveIntegrated(merged); err != nil {
			return nil, fmt.Errorf("persist integrated result: %w", err)
		}
	}

	if p.gateway != nil && p.gateway.Enabled() {
		usage := p.gateway.Metrics()
		logger.Info("[Pipeline] model usage",
			"provider", p.gateway.ProviderName(),
			"requests", usage.Requests,
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens)
	}

	return &RunResult{
		Result:  merged,
		Outline: outline,
		Stats: artifact.Stats{
			Chunks:     merged.TotalChunks,
			Degraded:   merged.Metadata.Degraded,
			LLMCalls:   merged.Metadata.LLMCalls,
			Retries:    merged.Metadata.Retries,
			DurationMs: time.Since(start).Milliseconds(),
		},
	}, nil
}
