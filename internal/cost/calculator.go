// Package cost computes estimated USD spend for the extraction pass.
package cost

import "github.com/sells-group/brandtrack-cli/internal/model"

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    map[string]ModelRate `yaml:"openai" mapstructure:"openai"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Extraction computes the cost of one extraction pass for the given provider
// and model. Unknown models cost 0.
func (c *Calculator) Extraction(provider, model string, usage model.TokenUsage) float64 {
	var rate ModelRate
	var ok bool
	switch provider {
	case "openai":
		rate, ok = c.rates.OpenAI[model]
	default:
		rate, ok = c.rates.Anthropic[model]
	}
	if !ok {
		return 0
	}

	inCost := (float64(usage.InputTokens) / 1e6) * rate.Input
	outCost := (float64(usage.OutputTokens) / 1e6) * rate.Output
	cacheWriteCost := (float64(usage.CacheWriteTokens) / 1e6) * rate.Input * rate.CacheWriteMul
	cacheReadCost := (float64(usage.CacheReadTokens) / 1e6) * rate.Input * rate.CacheReadMul
	return inCost + outCost + cacheWriteCost + cacheReadCost
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		OpenAI: map[string]ModelRate{
			"gpt-4o-mini": {Input: 0.15, Output: 0.60},
			"gpt-4o":      {Input: 2.50, Output: 10.00},
		},
	}
}
