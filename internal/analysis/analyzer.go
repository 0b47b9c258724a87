// Package analysis asks a generative model for a strict-JSON summary, key
// points and quiz for each chunk of a document, and merges the answers.
package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Request is one completion call.
type Request struct {
	APIKey string
	System string
	User   string
}

// Provider sends a completion request to a model service and returns the
// raw text of the reply. Failures with an HTTP status are *StatusError.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (string, error)
}

const minKeyLength = 5

var placeholderKeys = map[string]bool{
	"your_groq_api_key_here":   true,
	"your_gemini_api_key_here": true,
	"your_api_key_here":        true,
}

// Analyzer runs chunk analysis against one provider.
type Analyzer struct {
	provider   Provider
	credential func() string
	stats      *LLMStats
	log        *slog.Logger
}

// NewAnalyzer creates an Analyzer. credential is called on every request so
// the key is never cached.
func NewAnalyzer(provider Provider, credential func() string, stats *LLMStats, log *slog.Logger) *Analyzer {
	if stats == nil {
		stats = NewLLMStats(time.Hour)
	}
	return &Analyzer{
		provider:   provider,
		credential: credential,
		stats:      stats,
		log:        log,
	}
}

func (a *Analyzer) Stats() *LLMStats { return a.stats }
func (a *Analyzer) Provider() string { return a.provider.Name() }
func (a *Analyzer) Model() string    { return a.provider.Model() }

// AnalyzeChunk analyzes one chunk. A reply that does not contain a usable
// JSON object is retried with the identical request while retries remain.
// Authentication and rate-limit failures are not retried.
func (a *Analyzer) AnalyzeChunk(ctx context.Context, chunk string, retries int) (*ChunkResult, error) {
	key := strings.TrimSpace(a.credential())
	if len(key) < minKeyLength || placeholderKeys[key] {
		return nil, &Error{Kind: KindConfigMissing}
	}

	req := Request{
		APIKey: key,
		System: SystemPrompt,
		User:   BuildUserPrompt(chunk),
	}

	for attempt := 1; ; attempt++ {
		start := time.Now()
		raw, err := a.provider.Complete(ctx, req)
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			classified := classify(err)
			a.stats.Record(elapsed, outcomeOf(classified))
			return nil, classified
		}

		res, parseErr := ParseChunkResult(raw)
		if parseErr == nil {
			a.stats.Record(elapsed, outcomeOK)
			a.log.Debug("chunk analyzed",
				"provider", a.provider.Name(),
				"attempt", attempt,
				"duration_ms", elapsed,
				"key_points", len(res.KeyPoints),
				"quiz", len(res.Quiz),
			)
			return res, nil
		}
		a.stats.Record(elapsed, string(KindUnparsable))

		if retries <= 0 {
			return nil, &Error{Kind: KindUnparsable, Err: parseErr}
		}
		retries--
		a.log.Warn("unparsable ai response, retrying",
			"provider", a.provider.Name(),
			"attempt", attempt,
			"retries_left", retries,
			"error", parseErr,
		)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func outcomeOf(err error) string {
	if k := KindOf(err); k != "" {
		return string(k)
	}
	return outcomeError
}
