package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/selmo/Tagdstiller-sub001/internal/util"
	"github.com/selmo/Tagdstiller-sub001/pkg/analyzer"
	"github.com/selmo/Tagdstiller-sub001/pkg/artifact"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
	"github.com/selmo/Tagdstiller-sub001/pkg/pipeline"
	"github.com/selmo/Tagdstiller-sub001/pkg/source"
)

// AnalyzeJobMsg is the work order for one analysis run. The same document
// is persisted as job.json in the run directory, so stale runs can be
// re-enqueued without the original request.
type AnalyzeJobMsg struct {
	RunID string `json:"run_id"`
	// Text is the inline document. When empty, SourceKind/SourceRef name
	// where to fetch it.
	Text       string         `json:"text,omitempty"`
	SourceKind string         `json:"source_kind,omitempty"`
	SourceRef  string         `json:"source_ref,omitempty"`
	Options    AnalyzeOptions `json:"options"`
}

// AnalyzeOptions selects what a run analyzes. Zero values fall back to the
// pipeline defaults.
type AnalyzeOptions struct {
	MaxChunkSize int      `json:"max_chunk_size,omitempty"`
	Kinds        []string `json:"kinds,omitempty"`
	Extractors   []string `json:"extractors,omitempty"`
	MaxKeywords  int      `json:"max_keywords,omitempty"`
	Workers      int      `json:"workers,omitempty"`
	WithOutline  bool     `json:"with_outline,omitempty"`
}

// manifestWriter serializes manifest updates for one run. The pipeline
// progress callback fires from concurrent chunk workers, and the manifest
// must never interleave writes. CreatedAt survives from the submitted
// manifest; UpdatedAt doubles as the stale-run heartbeat.
type manifestWriter struct {
	run     *artifact.Run
	created time.Time
	mu      sync.Mutex
}

func newManifestWriter(store *artifact.Store, run *artifact.Run) *manifestWriter {
	w := &manifestWriter{run: run, created: time.Now().UTC()}
	if m, err := store.ReadManifest(run.ID()); err == nil && !m.CreatedAt.IsZero() {
		w.created = m.CreatedAt
	}
	return w
}

func (w *manifestWriter) write(status artifact.Status, progress *util.RunProgress, stats *artifact.Stats, errMsg string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	m := artifact.Manifest{
		RunID:     w.run.ID(),
		Status:    status,
		CreatedAt: w.created,
		UpdatedAt: time.Now().UTC(),
		Progress:  progress,
		Stats:     stats,
		Error:     errMsg,
	}
	if err := w.run.WriteManifest(m); err != nil {
		logger.Warn("[Queue] Failed to write run manifest", "run_id", w.run.ID(), "status", status, "err", err)
	}
}

// ProcessAnalyzeMessage executes one analysis job. Failures that retrying
// cannot fix (malformed message, unknown source kind, empty document) are
// recorded in the manifest and the message is discarded by returning nil;
// everything else returns the error so the delivery goes through the
// retry queue.
func ProcessAnalyzeMessage(
	ctx context.Context,
	pipe *pipeline.Pipeline,
	store *artifact.Store,
	sources map[string]source.TextSource,
	msg string,
) error {
	data := new(AnalyzeJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		logger.Error("[Queue] Discarding malformed analyze message", "err", err)
		return nil
	}
	if data.RunID == "" {
		logger.Error("[Queue] Discarding analyze message without run id")
		return nil
	}

	run, err := store.OpenRun(data.RunID)
	if err != nil {
		// Recovered messages may arrive before (or without) the run
		// directory the API normally creates.
		if run, err = store.NewRun(data.RunID); err != nil {
			return fmt.Errorf("open run %s: %w", data.RunID, err)
		}
	}
	manifest := newManifestWriter(store, run)

	doc := data.Text
	if doc == "" {
		src, ok := sources[data.SourceKind]
		if !ok {
			reason := fmt.Sprintf("unknown source kind %q", data.SourceKind)
			if data.SourceKind == "" {
				reason = "message carries neither text nor a source"
			}
			manifest.write(artifact.StatusFailed, nil, nil, reason)
			logger.Error("[Queue] Discarding analyze message", "run_id", data.RunID, "reason", reason)
			return nil
		}
		doc, err = src.FetchText(ctx, data.SourceRef)
		if err != nil {
			manifest.write(artifact.StatusFailed, nil, nil, err.Error())
			return fmt.Errorf("fetch %s source %s: %w", data.SourceKind, data.SourceRef, err)
		}
	}

	kinds := make([]analyzer.Kind, 0, len(data.Options.Kinds))
	for _, k := range data.Options.Kinds {
		kinds = append(kinds, analyzer.Kind(k))
	}

	res, err := pipe.Run(ctx, doc, pipeline.Options{
		MaxChunkSize: data.Options.MaxChunkSize,
		Kinds:        kinds,
		Extractors:   data.Options.Extractors,
		MaxKeywords:  data.Options.MaxKeywords,
		Workers:      data.Options.Workers,
		WithOutline:  data.Options.WithOutline,
		Artifacts:    run,
		Progress: func(stage string, analyzed, failed, total int) {
			p := util.BuildRunProgress(stage, analyzed, failed, total)
			manifest.write(artifact.StatusRunning, &p, nil, "")
		},
	})
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		manifest.write(artifact.StatusCanceled, nil, nil, err.Error())
		return err
	case errors.Is(err, pipeline.ErrEmptyDocument) || errors.Is(err, pipeline.ErrNoChunks):
		manifest.write(artifact.StatusFailed, nil, nil, err.Error())
		logger.Error("[Queue] Analyze job cannot succeed, discarding", "run_id", data.RunID, "err", err)
		return nil
	default:
		manifest.write(artifact.StatusFailed, nil, nil, err.Error())
		return fmt.Errorf("run analysis %s: %w", data.RunID, err)
	}

	failedChunks := 0
	for _, cr := range res.Result.ChunkResults {
		if len(cr.Metadata.Errors) > 0 {
			failedChunks++
		}
	}
	progress := util.BuildRunProgress("completed", res.Stats.Chunks-failedChunks, failedChunks, res.Stats.Chunks)
	stats := res.Stats
	manifest.write(artifact.StatusCompleted, &progress, &stats, "")

	logger.Info("[Queue] Analyze job completed",
		"run_id", data.RunID,
		"chunks", res.Stats.Chunks,
		"llm_calls", res.Stats.LLMCalls,
		"duration_ms", res.Stats.DurationMs)
	return nil
}
