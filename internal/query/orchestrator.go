// Package query drives the browser phase of a run: it fans prompts out across
// platforms and collects a raw answer for every prompt, successful or not.
package query

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brandtrack-cli/internal/detect"
	"github.com/sells-group/brandtrack-cli/internal/model"
	"github.com/sells-group/brandtrack-cli/internal/platform"
	"github.com/sells-group/brandtrack-cli/internal/resilience"
	"github.com/sells-group/brandtrack-cli/internal/tracker"
)

// AdapterFactory builds a ready-to-initialize adapter for one platform. The
// orchestrator calls it once per platform task and tears the adapter down when
// the task finishes.
type AdapterFactory func(ctx context.Context, name string) (platform.Adapter, error)

// Config tunes the query phase.
type Config struct {
	// MaxConcurrentPlatforms bounds how many browser sessions run at once.
	// Default: 3.
	MaxConcurrentPlatforms int

	// SubmitAttempts is the total number of submit tries per prompt,
	// including the first. Default: 3.
	SubmitAttempts int

	// SubmitBackoff is the base delay between submit retries; the delay
	// grows linearly per attempt. Default: 2s.
	SubmitBackoff time.Duration

	// PromptGap is the pause between consecutive prompts on one platform.
	// Default: 2s.
	PromptGap time.Duration

	// RunTimeout is the wall-clock ceiling for the whole phase across all
	// platforms. Default: 15m.
	RunTimeout time.Duration

	// Detect configures the answer-completion detector.
	Detect detect.Config
}

// DefaultConfig returns the query-phase defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPlatforms: 3,
		SubmitAttempts:         3,
		SubmitBackoff:          2 * time.Second,
		PromptGap:              2 * time.Second,
		RunTimeout:             15 * time.Minute,
		Detect:                 detect.DefaultConfig(),
	}
}

func (c Config) normalized() Config {
	if c.MaxConcurrentPlatforms <= 0 {
		c.MaxConcurrentPlatforms = 3
	}
	if c.SubmitAttempts <= 0 {
		c.SubmitAttempts = 3
	}
	if c.SubmitBackoff <= 0 {
		c.SubmitBackoff = 2 * time.Second
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 15 * time.Minute
	}
	return c
}

// Orchestrator executes the query phase: platforms in parallel, prompts on
// each platform strictly in order.
type Orchestrator struct {
	cfg        Config
	newAdapter AdapterFactory
	detector   *detect.Detector
	tracker    *tracker.Tracker
}

// New builds an Orchestrator. The tracker may be nil.
func New(cfg Config, factory AdapterFactory, trk *tracker.Tracker) *Orchestrator {
	cfg = cfg.normalized()
	if trk == nil {
		trk = tracker.New()
	}
	return &Orchestrator{
		cfg:        cfg,
		newAdapter: factory,
		detector:   detect.New(cfg.Detect),
		tracker:    trk,
	}
}

// Run collects one RawAnswer per prompt. Every prompt in the input appears in
// the output exactly once: failures become unsuccessful answers, never
// omissions. The returned slice is ordered by platform name, then prompt
// index. Run errors only on context cancellation reaching the group.
func (o *Orchestrator) Run(ctx context.Context, prompts []model.Prompt) ([]model.RawAnswer, error) {
	byPlatform := make(map[string][]model.Prompt)
	for _, p := range prompts {
		byPlatform[p.Platform] = append(byPlatform[p.Platform], p)
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	results := make(map[string][]model.RawAnswer, len(byPlatform))
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentPlatforms)
	for name, plist := range byPlatform {
		g.Go(func() error {
			answers := o.runPlatform(gctx, name, plist)
			resultsMu.Lock()
			results[name] = answers
			resultsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "query: platform group")
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []model.RawAnswer
	for _, name := range names {
		out = append(out, results[name]...)
	}
	return out, nil
}

// runPlatform owns one browser session for the whole platform. It never
// returns an error: every failure is folded into the answers it produces.
func (o *Orchestrator) runPlatform(ctx context.Context, name string, prompts []model.Prompt) []model.RawAnswer {
	log := zap.L().With(zap.String("platform", name))

	adapter, err := o.newAdapter(ctx, name)
	if err != nil {
		log.Error("adapter construction failed", zap.Error(err))
		o.tracker.AddError("adapter_init", err.Error(), name, false)
		return failAll(prompts, model.ErrorKindInitFailed)
	}
	defer func() {
		// Teardown uses a fresh context: the run context may already be
		// cancelled when we get here.
		tctx, tcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer tcancel()
		_ = adapter.Teardown(tctx)
	}()

	if err := adapter.Initialize(ctx); err != nil {
		log.Error("platform initialization failed", zap.Error(err))
		o.tracker.AddError("platform_init", err.Error(), name, false)
		return failAll(prompts, model.ErrorKindInitFailed)
	}
	log.Info("platform ready", zap.Int("prompts", len(prompts)))

	answers := make([]model.RawAnswer, 0, len(prompts))
	for i, prompt := range prompts {
		if ctx.Err() != nil {
			// Run ceiling hit mid-platform: stub out the remainder.
			answers = append(answers, failAll(prompts[i:], model.ErrorKindTimeout)...)
			break
		}
		if i > 0 && o.cfg.PromptGap > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.cfg.PromptGap):
			}
		}
		answers = append(answers, o.runPrompt(ctx, log, adapter, prompt))
	}
	return answers
}

func (o *Orchestrator) runPrompt(ctx context.Context, log *zap.Logger, adapter platform.Adapter, prompt model.Prompt) model.RawAnswer {
	answer := model.RawAnswer{
		PromptID:   prompt.ID,
		Platform:   prompt.Platform,
		PromptText: prompt.Text,
	}
	log = log.With(zap.String("prompt_id", prompt.ID))

	baseline, err := adapter.MessageCount(ctx)
	if err != nil {
		// A broken count read would also break completion detection; treat
		// the prompt as unsubmittable.
		log.Warn("baseline message count failed", zap.Error(err))
		o.tracker.AddError("submit", err.Error(), prompt.ID, true)
		answer.ErrorKind = model.ErrorKindSubmitFailed
		return answer
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    o.cfg.SubmitAttempts,
		InitialBackoff: o.cfg.SubmitBackoff,
		Backoff:        resilience.BackoffLinear,
		ShouldRetry:    platform.IsRecoverable,
		OnRetry:        resilience.RetryLogger(prompt.Platform, "submit"),
	}
	if err := resilience.Do(ctx, retryCfg, func(ctx context.Context) error {
		return adapter.Submit(ctx, prompt.Text)
	}); err != nil {
		log.Warn("submit failed", zap.Error(err))
		o.tracker.AddError("submit", err.Error(), prompt.ID, true)
		answer.ErrorKind = model.ErrorKindSubmitFailed
		return answer
	}

	outcome, err := o.detector.Wait(ctx, adapter, baseline)
	if err != nil {
		log.Warn("completion wait cancelled", zap.Error(err))
		o.tracker.AddError("detect", err.Error(), prompt.ID, true)
		answer.ErrorKind = model.ErrorKindTimeout
		return answer
	}

	switch {
	case outcome.State == detect.StateComplete && outcome.Text != "":
		answer.Text = outcome.Text
		answer.Success = true
		o.tracker.AddSuccess("prompt", prompt.ID)
		log.Info("answer captured",
			zap.Int("polls", outcome.Polls),
			zap.Duration("elapsed", outcome.Elapsed),
			zap.Int("chars", len(outcome.Text)),
		)
	case outcome.State == detect.StateComplete:
		o.tracker.AddError("detect", "completed with empty answer", prompt.ID, true)
		answer.ErrorKind = model.ErrorKindEmptyAnswer
	case outcome.Partial:
		// Stability timeout with readable text: keep it, flagged.
		answer.Text = outcome.Text
		answer.Success = true
		answer.Degraded = true
		o.tracker.AddWarning("partial answer for " + prompt.ID)
		log.Warn("answer captured as partial",
			zap.Duration("elapsed", outcome.Elapsed),
			zap.Int("chars", len(outcome.Text)),
		)
	case outcome.TimeoutReason == detect.ReasonNoNewMessage:
		o.tracker.AddError("detect", "no answer appeared", prompt.ID, true)
		answer.ErrorKind = model.ErrorKindNoNewMessage
	default:
		o.tracker.AddError("detect", "answer never stabilized", prompt.ID, true)
		answer.ErrorKind = model.ErrorKindTimeout
	}
	return answer
}

func failAll(prompts []model.Prompt, kind model.ErrorKind) []model.RawAnswer {
	answers := make([]model.RawAnswer, 0, len(prompts))
	for _, p := range prompts {
		answers = append(answers, model.RawAnswer{
			PromptID:   p.ID,
			Platform:   p.Platform,
			PromptText: p.Text,
			ErrorKind:  kind,
		})
	}
	return answers
}
