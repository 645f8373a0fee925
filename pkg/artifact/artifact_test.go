package artifact

import (
	"bufio"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/selmo/Tagdstiller-sub001/internal/util"
	"github.com/selmo/Tagdstiller-sub001/pkg/analyzer"
	"github.com/selmo/Tagdstiller-sub001/pkg/chunker"
	"github.com/selmo/Tagdstiller-sub001/pkg/integrator"
	"github.com/selmo/Tagdstiller-sub001/pkg/kg"
)

func newTestRun(t *testing.T) (*Store, *Run) {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	run, err := store.NewRun("run-1")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	return store, run
}

func TestNewRun_CreatesLayout(t *testing.T) {
	_, run := newTestRun(t)

	for _, sub := range []string{promptsDir, resultsDir, logsDir, reportsDir} {
		info, err := os.Stat(filepath.Join(run.Dir(), sub))
		if err != nil || !info.IsDir() {
			t.Errorf("subdirectory %s missing: %v", sub, err)
		}
	}
	if run.ID() != "run-1" {
		t.Errorf("run id = %q", run.ID())
	}
}

func TestRecordPrompt_AppendsLogAndMirrorsPrompt(t *testing.T) {
	_, run := newTestRun(t)

	records := []analyzer.PromptRecord{
		{ChunkID: "chunk-1", Category: "keywords", Template: "default",
			Prompt: "extract keywords", Response: `{"keywords":[]}`, Success: true,
			CreatedAt: time.Now().UTC()},
		{ChunkID: "chunk-1", Category: "summary", Template: "default",
			Prompt: "summarize this", Error: "timeout", Success: false,
			CreatedAt: time.Now().UTC()},
	}
	for _, rec := range records {
		if err := run.RecordPrompt(rec); err != nil {
			t.Fatalf("RecordPrompt: %v", err)
		}
	}

	logPath := filepath.Join(run.Dir(), logsDir, "chunk-1.jsonl")
	f, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec analyzer.PromptRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("log line %d is not a record: %v", lines, err)
		}
		if rec.ChunkID != "chunk-1" {
			t.Errorf("line %d chunk = %q", lines, rec.ChunkID)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("log has %d lines, want 2", lines)
	}

	prompt, err := os.ReadFile(filepath.Join(run.Dir(), promptsDir, "chunk-1_summary.txt"))
	if err != nil {
		t.Fatalf("read prompt mirror: %v", err)
	}
	if string(prompt) != "summarize this" {
		t.Errorf("prompt mirror = %q", prompt)
	}
}

func TestSaveChunkResult(t *testing.T) {
	_, run := newTestRun(t)

	res := analyzer.ChunkResult{
		ChunkID:       "chunk-9",
		Level:         chunker.LevelSection,
		Title:         "Install",
		ContentLength: 42,
		Keywords:      []analyzer.Keyword{{Term: "setup", Score: 0.9, Category: "process"}},
		Summary:       &analyzer.Summary{Core: "How to install.", Tone: "neutral"},
		Structure:     &analyzer.Structure{HeadingCount: 1, LineCount: 4, HasHeadings: true},
		Graph: &kg.Graph{
			Entities: []kg.Entity{{ID: "installer", Name: "Installer", Type: "TOOL"}},
		},
		Metadata: analyzer.Metadata{
			Language:   "latin",
			Extractors: map[string]string{"keywords": "llm"},
		},
	}
	if err := run.SaveChunkResult(res); err != nil {
		t.Fatalf("SaveChunkResult: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(run.Dir(), resultsDir, "chunk-9.json"))
	if err != nil {
		t.Fatalf("read chunk result: %v", err)
	}
	var got analyzer.ChunkResult
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode chunk result: %v", err)
	}
	if got.ChunkID != "chunk-9" || got.ContentLength != 42 {
		t.Errorf("round trip = %+v", got)
	}
	if len(got.Keywords) != 1 || got.Keywords[0].Term != "setup" {
		t.Errorf("round trip keywords = %+v", got.Keywords)
	}

	report, err := os.ReadFile(filepath.Join(run.Dir(), reportsDir, "chunk-9.md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	text := string(report)
	for _, want := range []string{"# Chunk chunk-9", "Title: Install", "| setup | 0.90 |",
		"How to install.", "## Structure", "Installer (TOOL)"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestSaveIntegrated_AndReadBack(t *testing.T) {
	store, run := newTestRun(t)

	res := integrator.Integrate([]analyzer.ChunkResult{
		{ChunkID: "c1", Level: chunker.LevelDocument, ContentLength: 30,
			Keywords: []analyzer.Keyword{{Term: "pipeline", Score: 0.8}},
			Summary:  &analyzer.Summary{Core: "All of it.", Topics: []string{"flow"}}},
		{ChunkID: "c2", Level: chunker.LevelDocument, ContentLength: 20,
			Keywords: []analyzer.Keyword{{Term: "Pipeline", Score: 0.6}}},
	})
	if err := run.SaveIntegrated(res); err != nil {
		t.Fatalf("SaveIntegrated: %v", err)
	}

	raw, err := store.ReadIntegrated("run-1")
	if err != nil {
		t.Fatalf("ReadIntegrated: %v", err)
	}
	var got integrator.IntegratedResult
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode integrated result: %v", err)
	}
	if got.TotalChunks != 2 || got.TotalContentLength != 50 {
		t.Errorf("totals = %d/%d", got.TotalChunks, got.TotalContentLength)
	}
	if len(got.Keywords) != 1 || got.Keywords[0].Frequency != 2 {
		t.Errorf("keywords = %+v", got.Keywords)
	}

	chunks, err := os.ReadFile(filepath.Join(run.Dir(), chunksFile))
	if err != nil {
		t.Fatalf("read chunk list: %v", err)
	}
	var list []analyzer.ChunkResult
	if err := json.Unmarshal(chunks, &list); err != nil {
		t.Fatalf("decode chunk list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("chunk list has %d entries, want 2", len(list))
	}

	report, err := os.ReadFile(filepath.Join(run.Dir(), reportsDir, "document.md"))
	if err != nil {
		t.Fatalf("read document report: %v", err)
	}
	if !strings.Contains(string(report), "# Document Analysis run-1") {
		t.Errorf("document report:\n%s", report)
	}

	// No stray temp files after the atomic writes.
	leftovers, err := filepath.Glob(filepath.Join(run.Dir(), "*.tmp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	store, run := newTestRun(t)

	created := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	m := Manifest{
		RunID:     "run-1",
		Status:    StatusCompleted,
		CreatedAt: created,
		UpdatedAt: created.Add(40 * time.Second),
		Stats: &Stats{
			Chunks:     4,
			Degraded:   map[string]int{"summary": 1},
			LLMCalls:   12,
			Retries:    2,
			DurationMs: 40000,
		},
	}
	if err := run.WriteManifest(m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, err := store.ReadManifest("run-1")
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got.RunID != "run-1" || got.Status != StatusCompleted {
		t.Errorf("manifest = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created at = %v, want %v", got.CreatedAt, created)
	}
	if got.Stats == nil || got.Stats.Chunks != 4 || got.Stats.Degraded["summary"] != 1 {
		t.Errorf("stats = %+v", got.Stats)
	}

	// Rewrites replace the previous manifest.
	m.Status = StatusFailed
	m.Error = "provider unreachable"
	if err := run.WriteManifest(m); err != nil {
		t.Fatalf("rewrite manifest: %v", err)
	}
	got, err = store.ReadManifest("run-1")
	if err != nil {
		t.Fatalf("ReadManifest after rewrite: %v", err)
	}
	if got.Status != StatusFailed || got.Error != "provider unreachable" {
		t.Errorf("rewritten manifest = %+v", got)
	}
}

func TestOpenRun_Missing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.OpenRun("absent"); err == nil {
		t.Fatal("OpenRun succeeded for a missing run")
	}
	if _, err := store.ReadManifest("absent"); err == nil {
		t.Fatal("ReadManifest succeeded for a missing run")
	}
	if _, err := store.ReadJobSpec("absent"); err == nil {
		t.Fatal("ReadJobSpec succeeded for a missing run")
	}
}

func TestRunID_RejectsPathEscapes(t *testing.T) {
	store, _ := newTestRun(t)

	for _, id := range []string{"", ".", "..", "../run-1", "a/b", "/etc"} {
		if _, err := store.ReadManifest(id); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("ReadManifest(%q) error = %v, want fs.ErrNotExist", id, err)
		}
		if _, err := store.NewRun(id); err == nil {
			t.Errorf("NewRun(%q) should fail", id)
		}
		if _, err := store.OpenRun(id); err == nil {
			t.Errorf("OpenRun(%q) should fail", id)
		}
	}
}

func TestManifestProgress(t *testing.T) {
	store, run := newTestRun(t)

	now := time.Now().UTC()
	progress := util.BuildRunProgress("analyzing", 2, 1, 4)
	m := Manifest{
		RunID:     "run-1",
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
		Progress:  &progress,
	}
	if err := run.WriteManifest(m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, err := store.ReadManifest("run-1")
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got.Progress == nil {
		t.Fatal("progress missing after round trip")
	}
	if got.Progress.Stage != "analyzing" || got.Progress.Analyzed != "2/4" || got.Progress.Failed != "1/4" {
		t.Errorf("progress = %+v", got.Progress)
	}
	if got.Progress.Percentage <= 10 || got.Progress.Percentage >= 100 {
		t.Errorf("percentage = %d, want mid-run value", got.Progress.Percentage)
	}
}

func TestJobSpecRoundTrip(t *testing.T) {
	store, run := newTestRun(t)

	spec := []byte(`{"run_id":"run-1","text":"hello"}`)
	if err := run.SaveJobSpec(spec); err != nil {
		t.Fatalf("SaveJobSpec: %v", err)
	}
	got, err := store.ReadJobSpec("run-1")
	if err != nil {
		t.Fatalf("ReadJobSpec: %v", err)
	}
	if string(got) != string(spec) {
		t.Errorf("job spec = %s", got)
	}
}

func TestListRuns(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, id := range []string{"run-c", "run-a", "run-b"} {
		if _, err := store.NewRun(id); err != nil {
			t.Fatalf("NewRun %s: %v", id, err)
		}
	}

	ids, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	want := []string{"run-a", "run-b", "run-c"}
	if len(ids) != len(want) {
		t.Fatalf("ListRuns = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ListRuns[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
