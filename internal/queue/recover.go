package queue

import (
	"fmt"
	"time"

	"github.com/selmo/Tagdstiller-sub001/pkg/artifact"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
)

// staleAfter is how long a run may go without a manifest heartbeat before
// recovery considers its worker dead.
const staleAfter = 10 * time.Minute

// RecoverStaleRuns re-enqueues runs that stopped heartbeating mid-flight,
// using the job document persisted next to the artifacts. A stale run
// without a job document cannot be replayed and is marked failed.
func RecoverStaleRuns(ch Channel, store *artifact.Store) error {
	ids, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	recovered := 0
	for _, id := range ids {
		m, err := store.ReadManifest(id)
		if err != nil {
			continue
		}
		if m.Status != artifact.StatusPending && m.Status != artifact.StatusRunning {
			continue
		}
		staleFor := time.Since(m.UpdatedAt)
		if staleFor < staleAfter {
			continue
		}

		spec, err := store.ReadJobSpec(id)
		if err != nil {
			logger.Warn("[Queue] Stale run has no job document, marking failed", "run_id", id, "err", err)
			markRunFailed(store, id, m, "job document lost, cannot recover")
			continue
		}
		if err := PublishFIFO(ch, AnalyzeQueue, spec); err != nil {
			logger.Error("[Queue] Failed to republish stale run", "run_id", id, "err", err)
			continue
		}

		recovered++
		logger.Info("[Queue] Recovered stale run", "run_id", id, "stale_for", staleFor.Round(time.Second))
	}

	if recovered == 0 {
		logger.Debug("[Queue] No stale runs found")
	}
	return nil
}

func markRunFailed(store *artifact.Store, id string, m *artifact.Manifest, reason string) {
	run, err := store.OpenRun(id)
	if err != nil {
		return
	}
	failed := *m
	failed.Status = artifact.StatusFailed
	failed.Error = reason
	failed.UpdatedAt = time.Now().UTC()
	if err := run.WriteManifest(failed); err != nil {
		logger.Warn("[Queue] Failed to mark stale run as failed", "run_id", id, "err", err)
	}
}
