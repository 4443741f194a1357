// Package extract turns raw scraped answers into structured brand mentions
// and citations with one batched completion-service call per run.
package extract

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/brandtrack-cli/internal/model"
	"github.com/sells-group/brandtrack-cli/internal/resilience"
	"github.com/sells-group/brandtrack-cli/internal/tracker"
)

// Config tunes the extraction stage.
type Config struct {
	// MaxTokens bounds the completion response. Default: 8192.
	MaxTokens int
	// Attempts is the total number of batch-level service tries. Default: 3.
	Attempts int
	// Backoff is the fixed delay between batch retries. Default: 2s.
	Backoff time.Duration
	// RequestsPerMinute throttles completion calls across runs sharing one
	// process. Zero disables throttling.
	RequestsPerMinute int
}

// DefaultConfig returns the extraction defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens: 8192,
		Attempts:  3,
		Backoff:   2 * time.Second,
	}
}

func (c Config) normalized() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8192
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	return c
}

// Extractor runs batched mention extraction over a run's answers.
type Extractor struct {
	completer Completer
	cfg       Config
	limiter   *rate.Limiter
	tracker   *tracker.Tracker
}

// New builds an Extractor. The tracker may be nil.
func New(completer Completer, cfg Config, trk *tracker.Tracker) *Extractor {
	cfg = cfg.normalized()
	if trk == nil {
		trk = tracker.New()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return &Extractor{completer: completer, cfg: cfg, limiter: limiter, tracker: trk}
}

// Wire types for the batched response.
type wireResponse struct {
	Results []wireResult `json:"results"`
}

type wireResult struct {
	PromptID  string        `json:"promptId"`
	Mentions  []wireMention `json:"mentions"`
	Citations []string      `json:"citations"`
}

type wireMention struct {
	Brand         string `json:"brand"`
	Count         int    `json:"count"`
	Rank          int    `json:"rank"`
	Context       string `json:"context"`
	IsRecommended bool   `json:"isRecommended"`
}

// Extract analyzes every successful answer in one service call and returns
// exactly one ExtractionResult per successful answer, in input order. A
// malformed response degrades to empty results; a service failure that
// survives all retries is returned as an error, since it invalidates the
// run's core output.
func (e *Extractor) Extract(ctx context.Context, answers []model.RawAnswer, brands model.TrackedBrands) ([]model.ExtractionResult, model.TokenUsage, error) {
	var usage model.TokenUsage

	analyzable := make([]model.RawAnswer, 0, len(answers))
	for _, a := range answers {
		if a.Success && a.Text != "" {
			analyzable = append(analyzable, a)
		}
	}
	if len(analyzable) == 0 {
		return nil, usage, nil
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, usage, eris.Wrap(err, "extract: rate limit wait")
		}
	}

	user := buildUserPrompt(analyzable, brands)
	retryCfg := resilience.RetryConfig{
		MaxAttempts:    e.cfg.Attempts,
		InitialBackoff: e.cfg.Backoff,
		Multiplier:     1.0, // fixed delay between batch retries
		OnRetry:        resilience.RetryLogger("extraction", "complete"),
	}
	completion, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*Completion, error) {
		return e.completer.Complete(ctx, systemPrompt, user, e.cfg.MaxTokens)
	})
	if err != nil {
		e.tracker.AddError("extraction", err.Error(), "batch", false)
		return nil, usage, eris.Wrap(err, "extract: completion service")
	}
	usage.Add(completion.Usage)

	byID := e.parse(completion.Text, brands)

	// Totality: one result per successful answer, synthesized empty when the
	// response dropped or mangled it.
	results := make([]model.ExtractionResult, 0, len(analyzable))
	for _, a := range analyzable {
		r, ok := byID[a.PromptID]
		if !ok {
			zap.L().Warn("extraction omitted prompt, synthesizing empty result",
				zap.String("prompt_id", a.PromptID))
			e.tracker.AddWarning("extraction omitted " + a.PromptID)
			r = model.ExtractionResult{PromptID: a.PromptID}
		}
		results = append(results, r)
	}
	e.tracker.AddSuccess("extraction", "batch")
	return results, usage, nil
}

// parse tolerates malformed output: a broken entry is dropped alone, a fully
// broken response yields an empty map and the caller synthesizes the rest.
func (e *Extractor) parse(text string, brands model.TrackedBrands) map[string]model.ExtractionResult {
	byID := make(map[string]model.ExtractionResult)

	var resp wireResponse
	if err := json.Unmarshal([]byte(cleanJSON(text)), &resp); err != nil {
		zap.L().Warn("extraction response unparseable", zap.Error(err))
		e.tracker.AddError("extraction_parse", err.Error(), "batch", true)
		return byID
	}

	for _, wr := range resp.Results {
		if wr.PromptID == "" {
			continue
		}
		if _, dup := byID[wr.PromptID]; dup {
			continue
		}
		result := model.ExtractionResult{PromptID: wr.PromptID}
		for _, m := range wr.Mentions {
			canonical, ok := brands.Canonical(m.Brand)
			if !ok {
				// Hallucinated or untracked brand: drop the entry, keep
				// the rest.
				zap.L().Debug("dropping untracked brand mention",
					zap.String("prompt_id", wr.PromptID),
					zap.String("brand", m.Brand))
				continue
			}
			count := m.Count
			if count < 1 {
				count = 1
			}
			rank := m.Rank
			if rank < 1 {
				rank = len(result.Mentions) + 1
			}
			result.Mentions = append(result.Mentions, model.BrandMention{
				Brand:         canonical,
				Count:         count,
				Rank:          rank,
				Context:       model.TruncateContext(m.Context),
				IsRecommended: m.IsRecommended,
			})
		}
		for _, c := range wr.Citations {
			if c != "" {
				result.Citations = append(result.Citations, c)
			}
		}
		byID[wr.PromptID] = result
	}
	return byID
}
