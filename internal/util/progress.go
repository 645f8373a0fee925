package util

import "fmt"

// Weighting of pipeline stages in the overall percentage. Chunk analysis
// dominates a run, everything around it is bookkeeping.
const (
	chunkingDonePct  int64 = 10
	analysisSpanPct  int64 = 80
	integratingPct   int64 = 90
	persistingPct    int64 = 95
	completedPct     int64 = 100
)

// RunProgress is the progress block reported for an analysis run.
type RunProgress struct {
	Stage      string `json:"stage"`
	Percentage int32  `json:"percentage"`
	Analyzed   string `json:"analyzed,omitempty"`
	Failed     string `json:"failed,omitempty"`
}

// BuildRunProgress derives a progress snapshot from the run stage and chunk
// counters. Counts of zero chunks are treated as an empty analysis span.
func BuildRunProgress(stage string, analyzedChunks, failedChunks, totalChunks int) RunProgress {
	progress := RunProgress{
		Stage:      stage,
		Percentage: CalculateRunPercentage(stage, analyzedChunks, failedChunks, totalChunks),
	}

	if totalChunks > 0 && (stage == "analyzing" || stage == "integrating" || stage == "persisting" || stage == "completed" || stage == "failed") {
		progress.Analyzed = fmt.Sprintf("%d/%d", analyzedChunks, totalChunks)
		if failedChunks > 0 {
			progress.Failed = fmt.Sprintf("%d/%d", failedChunks, totalChunks)
		}
	}

	return progress
}

// CalculateRunPercentage maps a run stage plus chunk counters onto 0..100.
func CalculateRunPercentage(stage string, analyzedChunks, failedChunks, totalChunks int) int32 {
	switch stage {
	case "pending":
		return 0
	case "chunking":
		return int32(chunkingDonePct)
	case "analyzing":
		if totalChunks <= 0 {
			return int32(chunkingDonePct)
		}
		done := int64(analyzedChunks + failedChunks)
		total := int64(totalChunks)
		if done > total {
			done = total
		}
		return int32(chunkingDonePct + analysisSpanPct*done/total)
	case "integrating":
		return int32(integratingPct)
	case "persisting":
		return int32(persistingPct)
	case "completed", "failed":
		return int32(completedPct)
	}
	return 0
}
