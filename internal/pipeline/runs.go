package pipeline

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage is the position of a run in the pipeline.
type Stage string

const (
	StageReceived    Stage = "received"
	StageExtracting  Stage = "extracting"
	StageNormalizing Stage = "normalizing"
	StageChunking    Stage = "chunking"
	StageAnalyzing   Stage = "analyzing"
	StageMerging     Stage = "merging"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Run tracks one analysis for the recent-runs view.
type Run struct {
	mu sync.Mutex

	ID       string
	Document string

	stage       Stage
	failedStage Stage
	method      string
	cached      bool
	progress    Progress
	startedAt   time.Time
	updatedAt   time.Time
}

// Progress counts chunk outcomes.
type Progress struct {
	ChunksTotal    int      `json:"chunks_total"`
	ChunksAnalyzed int      `json:"chunks_analyzed"`
	ChunksFailed   int      `json:"chunks_failed"`
	Errors         []string `json:"errors"`
}

// RunSnapshot is a JSON-safe copy of a run.
type RunSnapshot struct {
	ID          string    `json:"run_id"`
	Document    string    `json:"document"`
	Stage       Stage     `json:"stage"`
	FailedStage Stage     `json:"failed_stage,omitempty"`
	Method      string    `json:"method,omitempty"`
	Cached      bool      `json:"cached"`
	Progress    Progress  `json:"progress"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Run) SetStage(s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage = s
	r.updatedAt = time.Now()
}

// Fail marks the run failed in stage s.
func (r *Run) Fail(s Stage, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage = StageFailed
	r.failedStage = s
	r.progress.Errors = append(r.progress.Errors, err.Error())
	r.updatedAt = time.Now()
}

func (r *Run) SetMethod(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.method = method
}

func (r *Run) MarkCached() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = true
}

func (r *Run) SetChunksTotal(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.ChunksTotal = n
	r.updatedAt = time.Now()
}

// ChunkDone records the outcome of one chunk. err is nil on success.
func (r *Run) ChunkDone(index int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.progress.ChunksFailed++
		r.progress.Errors = append(r.progress.Errors, "chunk "+strconv.Itoa(index)+": "+err.Error())
	} else {
		r.progress.ChunksAnalyzed++
	}
	r.updatedAt = time.Now()
}

func (r *Run) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.progress
	p.Errors = append([]string{}, r.progress.Errors...)
	return RunSnapshot{
		ID:          r.ID,
		Document:    r.Document,
		Stage:       r.stage,
		FailedStage: r.failedStage,
		Method:      r.method,
		Cached:      r.cached,
		Progress:    p,
		StartedAt:   r.startedAt,
		UpdatedAt:   r.updatedAt,
	}
}

// RunStore is an in-memory registry of recent runs with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunStore{runs: make(map[string]*Run), ttl: ttl}
}

// Start registers a new run in the received stage.
func (s *RunStore) Start(document string) *Run {
	now := time.Now()
	run := &Run{
		ID:        uuid.NewString(),
		Document:  document,
		stage:     StageReceived,
		startedAt: now,
		updatedAt: now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Recent returns up to limit snapshots, newest first.
func (s *RunStore) Recent(limit int) []RunSnapshot {
	s.mu.Lock()
	runs := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	s.mu.Unlock()

	out := make([]RunSnapshot, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Cleanup removes runs not updated within the TTL.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		run.mu.Lock()
		expired := now.Sub(run.updatedAt) > s.ttl
		run.mu.Unlock()
		if expired {
			delete(s.runs, id)
		}
	}
}
