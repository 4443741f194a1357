// Package report renders a completed run as flat output records and as a
// human-readable text summary.
package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brandtrack-cli/internal/model"
)

// Record discriminator values.
const (
	TypePromptResult = "prompt_result"
	TypeBrandSummary = "brand_summary"
	TypeLeaderboard  = "leaderboard"
	TypeRunSummary   = "run_summary"
)

// PromptResultRecord is one flat per-prompt output row.
type PromptResultRecord struct {
	Type                 string               `json:"type"`
	PromptID             string               `json:"promptId"`
	PromptText           string               `json:"promptText"`
	Platform             string               `json:"platform"`
	RawResponse          string               `json:"rawResponse"`
	Success              bool                 `json:"success"`
	Degraded             bool                 `json:"degraded,omitempty"`
	ErrorKind            string               `json:"errorKind,omitempty"`
	Mentions             []model.BrandMention `json:"mentions"`
	Citations            []string             `json:"citations"`
	PromptWinner         string               `json:"promptWinner,omitempty"`
	PromptLoser          string               `json:"promptLoser,omitempty"`
	MyBrandMentioned     bool                 `json:"myBrandMentioned"`
	MyBrandRank          int                  `json:"myBrandRank,omitempty"`
	CompetitorsMentioned []string             `json:"competitorsMentioned"`
	CompetitorsMissed    []string             `json:"competitorsMissed"`
}

// CompetitivePosition is the rank context inside a brand summary.
type CompetitivePosition struct {
	Rank        int `json:"rank"`
	TotalBrands int `json:"totalBrands"`
	PromptsWon  int `json:"promptsWon"`
	PromptsLost int `json:"promptsLost"`
	PromptsTied int `json:"promptsTied"`
}

// BrandSummaryRecord is one brand's aggregated output row.
type BrandSummaryRecord struct {
	Type                string                         `json:"type"`
	Brand               string                         `json:"brand"`
	VisibilityScore     float64                        `json:"visibilityScore"`
	CitationShare       float64                        `json:"citationShare"`
	TotalMentions       int                            `json:"totalMentions"`
	PromptsWithMention  int                            `json:"promptsWithMention"`
	PromptsMissed       int                            `json:"promptsMissed"`
	PlatformBreakdown   map[string]model.PlatformStats `json:"platformBreakdown"`
	CompetitivePosition CompetitivePosition            `json:"competitivePosition"`
	TopContexts         []string                       `json:"topContexts"`
}

// LeaderboardRecord carries the full ranking output row.
type LeaderboardRecord struct {
	Type                 string                                      `json:"type"`
	Rankings             []model.LeaderboardEntry                    `json:"rankings"`
	PlatformLeaderboards map[string][]model.PlatformLeaderboardEntry `json:"platformLeaderboards"`
}

// RunSummaryRecord is the run-level closing row.
type RunSummaryRecord struct {
	Type            string           `json:"type"`
	RunID           string           `json:"runId"`
	Status          string           `json:"status"`
	Input           model.Job        `json:"input"`
	Summary         model.RunSummary `json:"summary"`
	NoDataToAnalyze bool             `json:"noDataToAnalyze"`
	Error           string           `json:"error,omitempty"`
}

// BuildRecords flattens a run into its output rows: one per prompt, one per
// brand, the leaderboard, and the closing run summary.
func BuildRecords(run *model.Run) []any {
	var records []any
	if run.Result != nil {
		for _, r := range run.Result.PromptResults {
			records = append(records, PromptResultRecord{
				Type:                 TypePromptResult,
				PromptID:             r.PromptID,
				PromptText:           r.PromptText,
				Platform:             r.Platform,
				RawResponse:          r.Response,
				Success:              r.Success,
				Degraded:             r.Degraded,
				ErrorKind:            string(r.ErrorKind),
				Mentions:             r.Mentions,
				Citations:            r.Citations,
				PromptWinner:         r.PromptWinner,
				PromptLoser:          r.PromptLoser,
				MyBrandMentioned:     r.MyBrandMentioned,
				MyBrandRank:          r.MyBrandRank,
				CompetitorsMentioned: r.CompetitorsMentioned,
				CompetitorsMissed:    r.CompetitorsMissed,
			})
		}

		rankByBrand := make(map[string]int, len(run.Result.Leaderboard.Overall))
		for _, e := range run.Result.Leaderboard.Overall {
			rankByBrand[e.Brand] = e.Rank
		}
		for _, m := range run.Result.BrandMetrics {
			records = append(records, BrandSummaryRecord{
				Type:               TypeBrandSummary,
				Brand:              m.Brand,
				VisibilityScore:    m.VisibilityScore,
				CitationShare:      m.CitationShare,
				TotalMentions:      m.TotalMentions,
				PromptsWithMention: m.PromptsWithMention,
				PromptsMissed:      m.PromptsMissed,
				PlatformBreakdown:  m.PlatformBreakdown,
				CompetitivePosition: CompetitivePosition{
					Rank:        rankByBrand[m.Brand],
					TotalBrands: len(run.Result.BrandMetrics),
					PromptsWon:  m.PromptsWon,
					PromptsLost: m.PromptsLost,
					PromptsTied: m.PromptsTied,
				},
				TopContexts: m.TopContexts,
			})
		}

		records = append(records, LeaderboardRecord{
			Type:                 TypeLeaderboard,
			Rankings:             run.Result.Leaderboard.Overall,
			PlatformLeaderboards: run.Result.Leaderboard.ByPlatform,
		})
	}

	summary := RunSummaryRecord{
		Type:   TypeRunSummary,
		RunID:  run.ID,
		Status: string(run.Status),
		Input:  run.Job,
		Error:  run.Error,
	}
	if run.Result != nil {
		summary.Summary = run.Result.Summary
		summary.NoDataToAnalyze = run.Result.Summary.AnsweredPrompts == 0
	}
	records = append(records, summary)
	return records
}

// WriteJSONL streams the run's records to w, one JSON object per line.
func WriteJSONL(w io.Writer, run *model.Run) error {
	enc := json.NewEncoder(w)
	for _, rec := range BuildRecords(run) {
		if err := enc.Encode(rec); err != nil {
			return eris.Wrap(err, "report: encode record")
		}
	}
	return nil
}
