// Package run coordinates a full tracking run: query the platforms, extract
// brand mentions, compute metrics, and persist the result.
package run

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brandtrack-cli/internal/browser"
	"github.com/sells-group/brandtrack-cli/internal/config"
	"github.com/sells-group/brandtrack-cli/internal/cost"
	"github.com/sells-group/brandtrack-cli/internal/detect"
	"github.com/sells-group/brandtrack-cli/internal/extract"
	"github.com/sells-group/brandtrack-cli/internal/metrics"
	"github.com/sells-group/brandtrack-cli/internal/model"
	"github.com/sells-group/brandtrack-cli/internal/platform"
	"github.com/sells-group/brandtrack-cli/internal/promptgen"
	"github.com/sells-group/brandtrack-cli/internal/query"
	"github.com/sells-group/brandtrack-cli/internal/store"
	"github.com/sells-group/brandtrack-cli/internal/tracker"
)

// Runner executes tracking runs. Jobs are expected to be validated before
// they reach Execute.
type Runner struct {
	cfg       *config.Config
	store     store.Store
	factory   query.AdapterFactory
	completer extract.Completer
	costCalc  *cost.Calculator
}

// New builds a Runner with all dependencies.
func New(cfg *config.Config, st store.Store, factory query.AdapterFactory, completer extract.Completer) *Runner {
	return &Runner{
		cfg:       cfg,
		store:     st,
		factory:   factory,
		completer: completer,
		costCalc:  cost.NewCalculator(cfg.Pricing),
	}
}

// ChromedpFactory returns an AdapterFactory that launches one Chrome session
// per platform task.
func ChromedpFactory(bcfg config.BrowserConfig) query.AdapterFactory {
	return func(ctx context.Context, name string) (platform.Adapter, error) {
		sess, err := browser.NewSession(browser.SessionConfig{
			Headless:  bcfg.Headless,
			UserAgent: bcfg.UserAgent,
			ProxyURL:  bcfg.ProxyURL,
		})
		if err != nil {
			return nil, err
		}
		adapter, err := platform.New(name, sess)
		if err != nil {
			_ = sess.Close(ctx)
			return nil, err
		}
		return adapter, nil
	}
}

// Execute runs one tracking job end to end and returns the finished run. A
// returned error means the run failed; the failure is also recorded on the
// stored run when persistence allows.
func (r *Runner) Execute(ctx context.Context, job model.Job) (*model.Run, error) {
	log := zap.L().With(zap.String("brand", job.MyBrand))
	log.Info("run: starting tracking run",
		zap.Strings("platforms", job.Platforms),
		zap.Int("prompts", len(job.Prompts)),
	)

	run, err := r.store.CreateRun(ctx, job)
	if err != nil {
		return nil, eris.Wrap(err, "run: create run")
	}

	setStatus := func(status model.RunStatus) {
		if statusErr := r.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("run: failed to update status", zap.Error(statusErr))
		}
	}

	trk := tracker.New()
	start := time.Now()

	// Prompt preparation. Generated prompts go ahead of the job's own so the
	// category-seeded questions lead each platform's conversation.
	if job.GeneratePrompts > 0 {
		generated, genErr := promptgen.New(r.completer).Generate(ctx, job.Category, job.GeneratePrompts)
		if genErr != nil {
			return r.fail(ctx, log, run, eris.Wrap(genErr, "run: prompt generation"))
		}
		job.Prompts = append(generated, job.Prompts...)
		log.Info("run: prompts prepared",
			zap.Int("generated", len(generated)),
			zap.Int("total", len(job.Prompts)),
		)
	}

	// Query phase.
	setStatus(model.RunStatusQuerying)
	var prompts []model.Prompt
	for _, name := range job.Platforms {
		prompts = append(prompts, model.BuildPrompts(name, job.Prompts)...)
	}

	orch := query.New(r.queryConfig(), r.factory, trk)
	answers, err := orch.Run(ctx, prompts)
	if err != nil {
		return r.fail(ctx, log, run, eris.Wrap(err, "run: query phase"))
	}

	// Extraction phase.
	setStatus(model.RunStatusAnalyzing)
	extractor := extract.New(r.completer, r.extractConfig(), trk)
	extractions, usage, err := extractor.Extract(ctx, answers, job.Brands())
	if err != nil {
		return r.fail(ctx, log, run, err)
	}

	// Metrics are pure computation over the collected data.
	promptResults := metrics.BuildPromptResults(answers, extractions, job.Brands())
	brandMetrics := metrics.Aggregate(promptResults, job.Brands())
	leaderboard := metrics.BuildLeaderboard(brandMetrics, job.Platforms)

	summary := buildSummary(answers, job.Platforms, trk.Summarize(), usage)
	summary.EstimatedCostUSD = r.costCalc.Extraction(r.cfg.Extraction.Provider, r.extractionModel(), usage)
	summary.DurationMillis = time.Since(start).Milliseconds()

	result := &model.RunResult{
		PromptResults: promptResults,
		BrandMetrics:  brandMetrics,
		Leaderboard:   leaderboard,
		Summary:       summary,
	}

	if saveErr := r.store.SavePromptResults(ctx, run.ID, promptResults); saveErr != nil {
		log.Warn("run: failed to save prompt results", zap.Error(saveErr))
	}
	if err := r.store.CompleteRun(ctx, run.ID, result); err != nil {
		return nil, eris.Wrap(err, "run: persist result")
	}

	trk.LogSummary()
	log.Info("run: tracking run complete",
		zap.String("run_id", run.ID),
		zap.Int("answered", summary.AnsweredPrompts),
		zap.Int("failed", summary.FailedPrompts),
		zap.Float64("cost_usd", summary.EstimatedCostUSD),
		zap.Int64("duration_ms", summary.DurationMillis),
	)

	run.Status = model.RunStatusComplete
	run.Result = result
	return run, nil
}

func (r *Runner) fail(ctx context.Context, log *zap.Logger, run *model.Run, runErr error) (*model.Run, error) {
	log.Error("run: tracking run failed", zap.String("run_id", run.ID), zap.Error(runErr))
	if saveErr := r.store.FailRun(ctx, run.ID, runErr.Error()); saveErr != nil {
		log.Warn("run: failed to record failure", zap.Error(saveErr))
	}
	run.Status = model.RunStatusFailed
	run.Error = runErr.Error()
	return run, runErr
}

func buildSummary(answers []model.RawAnswer, platforms []string, events tracker.Summary, usage model.TokenUsage) model.RunSummary {
	s := model.RunSummary{
		TotalPrompts:    len(answers),
		Platforms:       platforms,
		Errors:          events.Errors,
		Warnings:        events.Warnings,
		ExtractionUsage: usage,
	}
	for _, a := range answers {
		switch {
		case a.Success && a.Degraded:
			s.AnsweredPrompts++
			s.DegradedPrompts++
		case a.Success:
			s.AnsweredPrompts++
		default:
			s.FailedPrompts++
		}
	}
	return s
}

func (r *Runner) queryConfig() query.Config {
	q := r.cfg.Query
	d := r.cfg.Detector
	return query.Config{
		MaxConcurrentPlatforms: q.MaxConcurrentPlatforms,
		SubmitAttempts:         q.SubmitAttempts,
		SubmitBackoff:          time.Duration(q.SubmitBackoffSecs) * time.Second,
		PromptGap:              time.Duration(q.PromptGapSecs) * time.Second,
		RunTimeout:             time.Duration(q.RunTimeoutSecs) * time.Second,
		Detect: detect.Config{
			PollInterval:   time.Duration(d.PollIntervalMillis) * time.Millisecond,
			TurnTimeout:    time.Duration(d.TurnTimeoutSecs) * time.Second,
			StableReads:    d.StableReads,
			OverallTimeout: time.Duration(d.OverallTimeoutSecs) * time.Second,
		},
	}
}

func (r *Runner) extractConfig() extract.Config {
	e := r.cfg.Extraction
	return extract.Config{
		MaxTokens:         e.MaxTokens,
		Attempts:          e.Attempts,
		Backoff:           time.Duration(e.BackoffSecs) * time.Second,
		RequestsPerMinute: e.RequestsPerMinute,
	}
}

func (r *Runner) extractionModel() string {
	if r.cfg.Extraction.Provider == extract.ProviderOpenAI {
		if r.cfg.OpenAI.Model != "" {
			return r.cfg.OpenAI.Model
		}
		return extract.DefaultOpenAIModel
	}
	if r.cfg.Anthropic.Model != "" {
		return r.cfg.Anthropic.Model
	}
	return extract.DefaultAnthropicModel
}
