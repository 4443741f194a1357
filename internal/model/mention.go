package model

import "strings"

// MaxContextChars bounds a mention's context excerpt before storage.
const MaxContextChars = 200

// TrackedBrands is the fixed universe of brands the extractor is asked to
// find: the user's own brand plus declared competitors.
type TrackedBrands struct {
	MyBrand     string   `json:"my_brand"`
	Competitors []string `json:"competitors"`
}

// All returns every tracked brand, my brand first.
func (t TrackedBrands) All() []string {
	all := make([]string, 0, len(t.Competitors)+1)
	all = append(all, t.MyBrand)
	all = append(all, t.Competitors...)
	return all
}

// Canonical resolves a case-insensitive brand name to its canonical tracked
// spelling. Returns false for brands outside the tracked set.
func (t TrackedBrands) Canonical(name string) (string, bool) {
	for _, b := range t.All() {
		if strings.EqualFold(b, name) {
			return b, true
		}
	}
	return "", false
}

// BrandMention records one brand's occurrences within one answer. A mention
// exists only for brands actually present: Count is always >= 1 and Rank is
// the 1-based first-appearance order within the answer.
type BrandMention struct {
	Brand         string `json:"brand"`
	Count         int    `json:"count"`
	Rank          int    `json:"rank"`
	Context       string `json:"context"`
	IsRecommended bool   `json:"is_recommended"`
}

// ExtractionResult is the structured extraction output for one RawAnswer,
// matched back by PromptID. Every successful RawAnswer has exactly one
// ExtractionResult, empty if extraction failed for it.
type ExtractionResult struct {
	PromptID  string         `json:"prompt_id"`
	Mentions  []BrandMention `json:"mentions"`
	Citations []string       `json:"citations"`
}

// TruncateContext bounds a context excerpt to MaxContextChars.
func TruncateContext(context string) string {
	if len(context) > MaxContextChars {
		return context[:MaxContextChars]
	}
	return context
}
