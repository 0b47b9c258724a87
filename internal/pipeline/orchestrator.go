package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/dgallion1/lessonlens/internal/analysis"
	"github.com/dgallion1/lessonlens/internal/chunker"
	"github.com/dgallion1/lessonlens/internal/extractor"
	"github.com/dgallion1/lessonlens/internal/resultcache"
	"github.com/dgallion1/lessonlens/internal/textnorm"
)

// TextExtractor produces raw text from a staged PDF.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (extractor.Result, error)
}

// ChunkAnalyzer analyzes one chunk of normalized text.
type ChunkAnalyzer interface {
	AnalyzeChunk(ctx context.Context, chunk string, retries int) (*analysis.ChunkResult, error)
	Provider() string
	Model() string
}

type Options struct {
	ChunkSize        int
	MinDocumentChars int
	ChunkRetries     int
	MaxConcurrent    int
	Timeout          time.Duration
	RunTTL           time.Duration
}

// Outcome is the result of a successful run.
type Outcome struct {
	RunID          string
	Merged         analysis.Merged
	Method         extractor.Method
	ChunksTotal    int
	ChunksAnalyzed int
	Cached         bool
}

// Orchestrator runs documents through extraction, normalization, chunking,
// analysis and merging.
type Orchestrator struct {
	extractor TextExtractor
	analyzer  ChunkAnalyzer
	cache     resultcache.Cache
	runs      *RunStore
	sem       *semaphore.Weighted
	opts      Options
	log       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator. cache may be nil.
func NewOrchestrator(ex TextExtractor, an ChunkAnalyzer, cache resultcache.Cache, opts Options, log *slog.Logger) *Orchestrator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultSize
	}
	if opts.MinDocumentChars < 0 {
		opts.MinDocumentChars = 20
	}
	if opts.ChunkRetries < 0 {
		opts.ChunkRetries = 1
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	return &Orchestrator{
		extractor: ex,
		analyzer:  an,
		cache:     cache,
		runs:      NewRunStore(opts.RunTTL),
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		opts:      opts,
		log:       log,
	}
}

// Start launches the run registry cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				o.runs.Cleanup()
			}
		}
	}()
}

// Stop ends the cleanup loop.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Runs exposes recent run state.
func (o *Orchestrator) Runs() *RunStore { return o.runs }

// Process analyzes doc and always releases it before returning, including
// when a stage panics. Every error is a *PipelineError.
func (o *Orchestrator) Process(ctx context.Context, doc *Document) (out *Outcome, err error) {
	run := o.runs.Start(doc.Name)
	log := o.log.With("run_id", run.ID, "document", doc.Name)
	stage := StageReceived

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panic", "stage", stage, "panic", r, "stack", string(debug.Stack()))
			out, err = nil, &PipelineError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
		if rerr := doc.Release(); rerr != nil {
			log.Warn("document cleanup failed", "path", doc.Path, "error", rerr)
		}
		if err != nil {
			run.Fail(stage, err)
			log.Error("analysis failed", "stage", stage, "error", err)
			return
		}
		run.SetStage(StageDone)
	}()

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, &PipelineError{Stage: stage, Err: err}
	}
	defer o.sem.Release(1)

	start := time.Now()
	log.Info("analysis started")

	cacheKey := o.cacheKey(doc, log)
	if cacheKey != "" {
		if merged, ok := o.cachedResult(ctx, cacheKey, log); ok {
			run.MarkCached()
			log.Info("analysis served from cache")
			return &Outcome{RunID: run.ID, Merged: *merged, Cached: true}, nil
		}
	}

	// Extract
	stage = StageExtracting
	run.SetStage(stage)
	res, err := o.extractor.Extract(ctx, doc.Path)
	if err != nil {
		return nil, &PipelineError{Stage: stage, Err: err}
	}
	run.SetMethod(string(res.Method))

	// Normalize
	stage = StageNormalizing
	run.SetStage(stage)
	text := textnorm.Normalize(res.Text)
	if n := utf8.RuneCountInString(text); n < o.opts.MinDocumentChars {
		return nil, &PipelineError{Stage: stage, Err: &EmptyDocumentError{Length: n, Min: o.opts.MinDocumentChars}}
	}

	// Chunk
	stage = StageChunking
	run.SetStage(stage)
	chunks := chunker.Split(text, o.opts.ChunkSize)
	run.SetChunksTotal(len(chunks))
	log.Info("document chunked",
		"method", res.Method,
		"chars", len(text),
		"chunks", len(chunks),
		"est_tokens", chunker.EstimateTokens(text),
	)

	// Analyze, one chunk at a time.
	stage = StageAnalyzing
	run.SetStage(stage)
	results := make([]analysis.ChunkResult, 0, len(chunks))
	var failures []error
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, &PipelineError{Stage: stage, Err: err}
		}
		log.Debug("analyzing chunk", "chunk", c.Index, "est_tokens", chunker.EstimateTokens(c.Text))
		cr, err := o.analyzer.AnalyzeChunk(ctx, c.Text, o.opts.ChunkRetries)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &PipelineError{Stage: stage, Err: ctx.Err()}
			}
			log.Error("chunk analysis failed, skipping",
				"chunk", c.Index,
				"kind", analysis.KindOf(err),
				"error", err,
			)
			run.ChunkDone(c.Index, err)
			failures = append(failures, err)
			continue
		}
		run.ChunkDone(c.Index, nil)
		results = append(results, *cr)
	}

	if len(results) == 0 {
		return nil, &PipelineError{Stage: stage, Err: &NoInsightsError{Chunks: len(chunks), Failures: failures}}
	}

	// Merge
	stage = StageMerging
	run.SetStage(stage)
	merged := analysis.Merge(results)

	if cacheKey != "" {
		if err := o.cache.Put(ctx, cacheKey, merged); err != nil {
			log.Warn("result cache write failed", "error", err)
		}
	}

	log.Info("analysis complete",
		"chunks", len(chunks),
		"analyzed", len(results),
		"skipped", len(failures),
		"key_points", len(merged.KeyPoints),
		"quiz", len(merged.Quiz),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Outcome{
		RunID:          run.ID,
		Merged:         merged,
		Method:         res.Method,
		ChunksTotal:    len(chunks),
		ChunksAnalyzed: len(results),
	}, nil
}

// cacheKey returns "" when caching is off or the document cannot be hashed.
func (o *Orchestrator) cacheKey(doc *Document, log *slog.Logger) string {
	if o.cache == nil {
		return ""
	}
	hash, err := doc.ContentHash()
	if err != nil {
		log.Warn("content hash failed, skipping cache", "error", err)
		return ""
	}
	return resultcache.Key(o.analyzer.Provider(), o.analyzer.Model(), strconv.Itoa(o.opts.ChunkSize), hash)
}

func (o *Orchestrator) cachedResult(ctx context.Context, key string, log *slog.Logger) (*analysis.Merged, bool) {
	merged, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		log.Warn("result cache read failed", "error", err)
		return nil, false
	}
	return merged, ok
}
