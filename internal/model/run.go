package model

import "time"

// RunStatus represents the lifecycle state of a tracking run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusQuerying  RunStatus = "querying"
	RunStatusAnalyzing RunStatus = "analyzing"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// Job is the validated input for a single tracking run: the tracked-brand set,
// the platforms to query, and the prompts to submit. GeneratePrompts asks for
// that many category-seeded prompts on top of the listed ones.
type Job struct {
	Category        string   `json:"category" yaml:"category"`
	MyBrand         string   `json:"my_brand" yaml:"my_brand"`
	Competitors     []string `json:"competitors" yaml:"competitors"`
	Platforms       []string `json:"platforms" yaml:"platforms"`
	Prompts         []string `json:"prompts" yaml:"prompts"`
	GeneratePrompts int      `json:"generate_prompts,omitempty" yaml:"generate_prompts"`
}

// Brands returns the tracked-brand set for this job.
func (j Job) Brands() TrackedBrands {
	return TrackedBrands{MyBrand: j.MyBrand, Competitors: j.Competitors}
}

// Run is a persisted tracking run.
type Run struct {
	ID        string     `json:"id"`
	Job       Job        `json:"job"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult is the full output of a completed run.
type RunResult struct {
	PromptResults []PromptResult `json:"prompt_results"`
	BrandMetrics  []BrandMetrics `json:"brand_metrics"`
	Leaderboard   Leaderboard    `json:"leaderboard"`
	Summary       RunSummary     `json:"summary"`
}

// RunSummary holds run-level counters and cost attribution.
type RunSummary struct {
	TotalPrompts     int        `json:"total_prompts"`
	AnsweredPrompts  int        `json:"answered_prompts"`
	FailedPrompts    int        `json:"failed_prompts"`
	DegradedPrompts  int        `json:"degraded_prompts"`
	Platforms        []string   `json:"platforms"`
	Errors           int        `json:"errors"`
	Warnings         int        `json:"warnings"`
	ExtractionUsage  TokenUsage `json:"extraction_usage"`
	EstimatedCostUSD float64    `json:"estimated_cost_usd"`
	DurationMillis   int64      `json:"duration_ms"`
}

// TokenUsage tracks token consumption for the extraction pass. Cache counts
// stay zero on providers without prompt caching.
type TokenUsage struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	CacheWriteTokens int `json:"cache_write_tokens,omitempty"`
	CacheReadTokens  int `json:"cache_read_tokens,omitempty"`
}

// Add accumulates another usage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheWriteTokens += other.CacheWriteTokens
	u.CacheReadTokens += other.CacheReadTokens
}
