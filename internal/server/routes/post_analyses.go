package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/selmo/Tagdstiller-sub001/internal/queue"
	"github.com/selmo/Tagdstiller-sub001/internal/server/middleware"
	"github.com/selmo/Tagdstiller-sub001/internal/util"
	"github.com/selmo/Tagdstiller-sub001/pkg/artifact"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
)

// CreateAnalysisHandler accepts a document inline or by source reference and
// queues an analysis run.
func CreateAnalysisHandler(c echo.Context) error {
	type analysisSource struct {
		Kind string `json:"kind" validate:"required,oneof=file s3"`
		Ref  string `json:"ref" validate:"required"`
	}

	type analysisOptions struct {
		MaxChunkSize int      `json:"max_chunk_size" validate:"gte=0"`
		Kinds        []string `json:"kinds" validate:"dive,oneof=keywords summary structure knowledge_graph"`
		Extractors   []string `json:"extractors" validate:"dive,oneof=llm fallback"`
		MaxKeywords  int      `json:"max_keywords" validate:"gte=0"`
		Workers      int      `json:"workers" validate:"gte=0,lte=64"`
		WithOutline  bool     `json:"with_outline"`
	}

	type createAnalysisBody struct {
		Text    string          `json:"text"`
		Source  *analysisSource `json:"source"`
		Options analysisOptions `json:"options"`
	}

	type createAnalysisResponse struct {
		Message string `json:"message"`
		JobID   string `json:"job_id,omitempty"`
	}

	data := new(createAnalysisBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createAnalysisResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createAnalysisResponse{
			Message: "Invalid request body",
		})
	}
	if data.Text == "" && data.Source == nil {
		return c.JSON(http.StatusBadRequest, createAnalysisResponse{
			Message: "Either text or source is required",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	app := c.(*middleware.AppContext).App

	runID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createAnalysisResponse{
			Message: "Internal server error",
		})
	}

	run, err := app.Store.NewRun(runID)
	if err != nil {
		logger.Error("Failed to create analysis run", "run_id", runID, "err", err)
		return c.JSON(http.StatusInternalServerError, createAnalysisResponse{
			Message: "Internal server error",
		})
	}

	// Defaults are resolved here so the persisted job document re-enqueues
	// with the same settings the caller saw.
	maxChunkSize, workers, maxKeywords := app.Config.PipelineDefaults(
		data.Options.MaxChunkSize,
		data.Options.Workers,
		data.Options.MaxKeywords,
	)

	job := queue.AnalyzeJobMsg{
		RunID: runID,
		Text:  data.Text,
		Options: queue.AnalyzeOptions{
			MaxChunkSize: maxChunkSize,
			Kinds:        data.Options.Kinds,
			Extractors:   data.Options.Extractors,
			MaxKeywords:  maxKeywords,
			Workers:      workers,
			WithOutline:  data.Options.WithOutline,
		},
	}
	if data.Source != nil {
		job.SourceKind = data.Source.Kind
		job.SourceRef = data.Source.Ref
	}

	payload, err := json.Marshal(job)
	if err != nil {
		logger.Error("Failed to marshal analyze job", "run_id", runID, "err", err)
		return c.JSON(http.StatusInternalServerError, createAnalysisResponse{
			Message: "Internal server error",
		})
	}
	if err := run.SaveJobSpec(payload); err != nil {
		logger.Error("Failed to save analyze job", "run_id", runID, "err", err)
		return c.JSON(http.StatusInternalServerError, createAnalysisResponse{
			Message: "Internal server error",
		})
	}

	now := time.Now().UTC()
	progress := util.BuildRunProgress("pending", 0, 0, 0)
	manifest := artifact.Manifest{
		RunID:     runID,
		Status:    artifact.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Progress:  &progress,
	}
	if err := run.WriteManifest(manifest); err != nil {
		logger.Error("Failed to write manifest", "run_id", runID, "err", err)
		return c.JSON(http.StatusInternalServerError, createAnalysisResponse{
			Message: "Internal server error",
		})
	}

	if err := queue.PublishFIFO(app.Queue, queue.AnalyzeQueue, payload); err != nil {
		logger.Error("Failed to publish to analyze_queue", "run_id", runID, "err", err)
		manifest.Status = artifact.StatusFailed
		manifest.Error = "failed to queue analysis job"
		manifest.UpdatedAt = time.Now().UTC()
		if werr := run.WriteManifest(manifest); werr != nil {
			logger.Warn("Failed to write manifest", "run_id", runID, "err", werr)
		}
		return c.JSON(http.StatusInternalServerError, createAnalysisResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, createAnalysisResponse{
		Message: "Analysis queued successfully",
		JobID:   runID,
	})
}
