// Package artifact persists analysis runs to a directory tree. Each run
// owns one directory under the store root; chunk-scoped files carry the
// chunk id so concurrent chunk workers never share a file, and run-scoped
// artifacts are written to a temp file and renamed so partial writes are
// never externally visible.
package artifact

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/selmo/Tagdstiller-sub001/internal/util"
	"github.com/selmo/Tagdstiller-sub001/pkg/analyzer"
	"github.com/selmo/Tagdstiller-sub001/pkg/integrator"
)

// Run directory layout.
const (
	manifestFile   = "manifest.json"
	jobFile        = "job.json"
	integratedFile = "integrated_analysis_result.json"
	chunksFile     = "chunks_detailed_results.json"
	promptsDir     = "chunk_prompts"
	resultsDir     = "chunk_results"
	logsDir        = "chunk_logs"
	reportsDir     = "reports"
)

// Status of a run as recorded in its manifest.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Stats is the statistics block of a run, reported even under partial
// failure.
type Stats struct {
	Chunks     int            `json:"chunks"`
	Degraded   map[string]int `json:"degraded,omitempty"`
	LLMCalls   int            `json:"llm_calls"`
	Retries    int            `json:"retries"`
	DurationMs int64          `json:"duration_ms"`
}

// Manifest records run state for API consumers. It is the only artifact
// that gets rewritten as the run progresses; UpdatedAt doubles as the
// heartbeat that stale-run recovery checks.
type Manifest struct {
	RunID     string            `json:"run_id"`
	Status    Status            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Progress  *util.RunProgress `json:"progress,omitempty"`
	Stats     *Stats            `json:"stats,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Store roots all run directories under one base directory.
type Store struct {
	root string
}

// NewStore creates the root directory if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("artifact root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

// runDir resolves a run directory. Ids come from URL params as well as
// queue messages, so anything that is not a single path component reads
// as a missing run.
func (s *Store) runDir(id string) (string, error) {
	if id == "" || id == "." || id == ".." || id != filepath.Base(id) {
		return "", fmt.Errorf("run id %q: %w", id, fs.ErrNotExist)
	}
	return filepath.Join(s.root, id), nil
}

// NewRun creates the directory tree for one run.
func (s *Store) NewRun(id string) (*Run, error) {
	dir, err := s.runDir(id)
	if err != nil {
		return nil, err
	}
	for _, sub := range []string{promptsDir, resultsDir, logsDir, reportsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create run directory: %w", err)
		}
	}
	return &Run{id: id, dir: dir}, nil
}

// OpenRun returns a handle to an existing run directory.
func (s *Store) OpenRun(id string) (*Run, error) {
	dir, err := s.runDir(id)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open run %s: %w", id, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open run %s: not a directory", id)
	}
	return &Run{id: id, dir: dir}, nil
}

// ReadManifest loads the manifest of a run.
func (s *Store) ReadManifest(id string) (*Manifest, error) {
	dir, err := s.runDir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// ReadIntegrated returns the integrated result JSON exactly as written.
func (s *Store) ReadIntegrated(id string) (json.RawMessage, error) {
	dir, err := s.runDir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, integratedFile))
	if err != nil {
		return nil, fmt.Errorf("read integrated result: %w", err)
	}
	return data, nil
}

// ReadJobSpec returns the submitted job payload of a run.
func (s *Store) ReadJobSpec(id string) (json.RawMessage, error) {
	dir, err := s.runDir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, jobFile))
	if err != nil {
		return nil, fmt.Errorf("read job spec: %w", err)
	}
	return data, nil
}

// ListRuns returns the ids of all run directories in sorted order.
func (s *Store) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Run is the artifact surface of one pipeline run.
type Run struct {
	id  string
	dir string
}

// ID returns the run id.
func (r *Run) ID() string { return r.id }

// Dir returns the run directory.
func (r *Run) Dir() string { return r.dir }

// RecordPrompt appends the provenance record to the chunk's JSONL log and
// mirrors the rendered prompt into chunk_prompts for quick inspection.
func (r *Run) RecordPrompt(rec analyzer.PromptRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode prompt record: %w", err)
	}
	logPath := filepath.Join(r.dir, logsDir, rec.ChunkID+".jsonl")
	if err := appendLine(logPath, line); err != nil {
		return err
	}
	promptPath := filepath.Join(r.dir, promptsDir, rec.ChunkID+"_"+rec.Category+".txt")
	return writeFileAtomic(promptPath, []byte(rec.Prompt), 0o644)
}

// SaveChunkResult writes the chunk's JSON result and its Markdown report.
func (r *Run) SaveChunkResult(res analyzer.ChunkResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chunk result: %w", err)
	}
	path := filepath.Join(r.dir, resultsDir, res.ChunkID+".json")
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return err
	}
	report := filepath.Join(r.dir, reportsDir, res.ChunkID+".md")
	return writeFileAtomic(report, []byte(chunkReport(res)), 0o644)
}

// SaveIntegrated writes the merged result, the detailed chunk list and the
// document report. Called at most once per run.
func (r *Run) SaveIntegrated(res *integrator.IntegratedResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode integrated result: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(r.dir, integratedFile), data, 0o644); err != nil {
		return err
	}
	chunks, err := json.MarshalIndent(res.ChunkResults, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chunk results: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(r.dir, chunksFile), chunks, 0o644); err != nil {
		return err
	}
	report := filepath.Join(r.dir, reportsDir, "document.md")
	return writeFileAtomic(report, []byte(documentReport(r.id, res)), 0o644)
}

// WriteManifest persists the manifest atomically.
func (r *Run) WriteManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return writeFileAtomic(filepath.Join(r.dir, manifestFile), data, 0o644)
}

// SaveJobSpec persists the submitted job payload, so interrupted runs can be
// re-enqueued from the run directory alone.
func (r *Run) SaveJobSpec(spec json.RawMessage) error {
	return writeFileAtomic(filepath.Join(r.dir, jobFile), spec, 0o644)
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append log: %w", err)
	}
	return f.Close()
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
