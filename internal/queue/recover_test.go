package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/selmo/Tagdstiller-sub001/pkg/artifact"
)

func writeRun(t *testing.T, store *artifact.Store, id string, status artifact.Status, updatedAt time.Time, withSpec bool) {
	t.Helper()
	run, err := store.NewRun(id)
	if err != nil {
		t.Fatalf("NewRun %s: %v", id, err)
	}
	if err := run.WriteManifest(artifact.Manifest{
		RunID:     id,
		Status:    status,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}); err != nil {
		t.Fatalf("WriteManifest %s: %v", id, err)
	}
	if withSpec {
		spec, _ := json.Marshal(AnalyzeJobMsg{RunID: id, Text: "hello"})
		if err := run.SaveJobSpec(spec); err != nil {
			t.Fatalf("SaveJobSpec %s: %v", id, err)
		}
	}
}

func TestRecoverStaleRuns(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	stale := time.Now().UTC().Add(-20 * time.Minute)
	fresh := time.Now().UTC()
	writeRun(t, store, "stale-running", artifact.StatusRunning, stale, true)
	writeRun(t, store, "stale-pending", artifact.StatusPending, stale, true)
	writeRun(t, store, "fresh-running", artifact.StatusRunning, fresh, true)
	writeRun(t, store, "old-completed", artifact.StatusCompleted, stale, true)
	writeRun(t, store, "stale-no-spec", artifact.StatusRunning, stale, false)

	ch := &fakeChannel{}
	if err := RecoverStaleRuns(ch, store); err != nil {
		t.Fatalf("RecoverStaleRuns: %v", err)
	}

	republished := map[string]bool{}
	for _, p := range ch.published {
		if p.key != AnalyzeQueue {
			t.Errorf("republished onto %q", p.key)
		}
		var job AnalyzeJobMsg
		if err := json.Unmarshal(p.msg.Body, &job); err != nil {
			t.Fatalf("republished body: %v", err)
		}
		republished[job.RunID] = true
	}

	for _, id := range []string{"stale-running", "stale-pending"} {
		if !republished[id] {
			t.Errorf("run %s not republished", id)
		}
	}
	for _, id := range []string{"fresh-running", "old-completed", "stale-no-spec"} {
		if republished[id] {
			t.Errorf("run %s republished although it must not be", id)
		}
	}

	m, err := store.ReadManifest("stale-no-spec")
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.Status != artifact.StatusFailed {
		t.Errorf("spec-less stale run status = %q, want failed", m.Status)
	}
}
