package analyzer

import (
	"time"

	"github.com/selmo/Tagdstiller-sub001/internal/util"
	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
	"github.com/selmo/Tagdstiller-sub001/pkg/prompts"
)

// promptTextPreview bounds the text param copied into a prompt record. The
// rendered prompt already carries the full chunk text.
const promptTextPreview = 200

// PromptRecord is the provenance of one model call: which template ran for
// which chunk, the rendered prompt, the raw response and the outcome.
type PromptRecord struct {
	ChunkID    string         `json:"chunk_id"`
	Category   string         `json:"category"`
	Template   string         `json:"template"`
	Params     map[string]any `json:"params,omitempty"`
	Prompt     string         `json:"prompt"`
	Response   string         `json:"response,omitempty"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Attempts   int            `json:"attempts,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at"`
}

// PromptSink receives one record per model call. Calls for different chunks
// may arrive concurrently; calls for one chunk arrive in order.
type PromptSink interface {
	RecordPrompt(rec PromptRecord) error
}

// emit hands a finished call to the sink. Provenance is best-effort: a sink
// failure is logged and never affects the analysis.
func (a *Analyzer) emit(chunkID string, category prompts.Category, template, prompt string, params prompts.Params, result *ai.Result, err error) {
	if a.sink == nil {
		return
	}
	rec := PromptRecord{
		ChunkID:   chunkID,
		Category:  string(category),
		Template:  template,
		Params:    previewParams(params),
		Prompt:    prompt,
		Success:   err == nil,
		CreatedAt: time.Now().UTC(),
	}
	if result != nil {
		rec.Response = result.Text
		rec.Attempts = result.Attempts
		rec.DurationMs = result.DurationMs
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if sinkErr := a.sink.RecordPrompt(rec); sinkErr != nil {
		logger.Warn("[Analyzer] prompt record dropped", "chunk", chunkID, "err", sinkErr)
	}
}

func previewParams(params prompts.Params) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok && k == "Text" {
			out[k] = util.TruncateForLog(s, promptTextPreview)
			continue
		}
		out[k] = v
	}
	return out
}
