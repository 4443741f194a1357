package model

// PlatformStats is one brand's per-platform metric breakdown.
type PlatformStats struct {
	VisibilityScore    float64 `json:"visibility_score"`
	CitationShare      float64 `json:"citation_share"`
	Mentions           int     `json:"mentions"`
	PromptsWithMention int     `json:"prompts_with_mention"`
	TotalPrompts       int     `json:"total_prompts"`
}

// BrandMetrics aggregates all PromptResults for one tracked brand. Recomputed
// from scratch every run.
type BrandMetrics struct {
	Brand                string                   `json:"brand"`
	VisibilityScore      float64                  `json:"visibility_score"`
	CitationShare        float64                  `json:"citation_share"`
	TotalMentions        int                      `json:"total_mentions"`
	TotalPromptsAnalyzed int                      `json:"total_prompts_analyzed"`
	PromptsWithMention   int                      `json:"prompts_with_mention"`
	PromptsMissed        int                      `json:"prompts_missed"`
	PromptsWon           int                      `json:"prompts_won"`
	PromptsLost          int                      `json:"prompts_lost"`
	PromptsTied          int                      `json:"prompts_tied"`
	PlatformBreakdown    map[string]PlatformStats `json:"platform_breakdown"`
	TopContexts          []string                 `json:"top_contexts"`
}

// LeaderboardEntry is one row of the overall leaderboard, ordered by
// (-TotalMentions, -VisibilityScore).
type LeaderboardEntry struct {
	Rank            int     `json:"rank"`
	Brand           string  `json:"brand"`
	VisibilityScore float64 `json:"visibility_score"`
	CitationShare   float64 `json:"citation_share"`
	TotalMentions   int     `json:"total_mentions"`
	PromptsWon      int     `json:"prompts_won"`
}

// PlatformLeaderboardEntry is one row of a per-platform leaderboard, ordered
// by citation share on that platform.
type PlatformLeaderboardEntry struct {
	Rank          int     `json:"rank"`
	Brand         string  `json:"brand"`
	CitationShare float64 `json:"citation_share"`
	Mentions      int     `json:"mentions"`
}

// Leaderboard holds the overall ranking plus one ranking per platform.
type Leaderboard struct {
	Overall    []LeaderboardEntry                    `json:"overall"`
	ByPlatform map[string][]PlatformLeaderboardEntry `json:"by_platform"`
}
