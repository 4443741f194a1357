package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brandtrack-cli/internal/model"
)

func sampleRun() *model.Run {
	return &model.Run{
		ID:     "run-1",
		Status: model.RunStatusComplete,
		Job: model.Job{
			Category:    "crm software",
			MyBrand:     "Acme",
			Competitors: []string{"Zenith"},
			Platforms:   []string{"chatgpt"},
			Prompts:     []string{"best crm?"},
		},
		Result: &model.RunResult{
			PromptResults: []model.PromptResult{{
				PromptID:             "chatgpt_000",
				Platform:             "chatgpt",
				PromptText:           "best crm?",
				Response:             "Acme leads. Zenith trails.",
				Success:              true,
				Mentions:             []model.BrandMention{{Brand: "Acme", Count: 2, Rank: 1, Context: "Acme leads"}},
				Citations:            []string{"https://example.com"},
				PromptWinner:         "Acme",
				MyBrandMentioned:     true,
				MyBrandRank:          1,
				CompetitorsMentioned: []string{},
				CompetitorsMissed:    []string{"Zenith"},
			}},
			BrandMetrics: []model.BrandMetrics{
				{
					Brand:              "Acme",
					VisibilityScore:    100.0,
					CitationShare:      66.7,
					TotalMentions:      2,
					PromptsWithMention: 1,
					PromptsWon:         1,
					PlatformBreakdown: map[string]model.PlatformStats{
						"chatgpt": {VisibilityScore: 100.0, CitationShare: 66.7, Mentions: 2, PromptsWithMention: 1, TotalPrompts: 1},
					},
					TopContexts: []string{"Acme leads"},
				},
				{Brand: "Zenith", PlatformBreakdown: map[string]model.PlatformStats{}, TopContexts: []string{}},
			},
			Leaderboard: model.Leaderboard{
				Overall: []model.LeaderboardEntry{
					{Rank: 1, Brand: "Acme", VisibilityScore: 100.0, CitationShare: 66.7, TotalMentions: 2, PromptsWon: 1},
					{Rank: 2, Brand: "Zenith"},
				},
				ByPlatform: map[string][]model.PlatformLeaderboardEntry{},
			},
			Summary: model.RunSummary{
				TotalPrompts:    1,
				AnsweredPrompts: 1,
				Platforms:       []string{"chatgpt"},
			},
		},
		CreatedAt: time.Now(),
	}
}

func TestBuildRecords_Shape(t *testing.T) {
	records := BuildRecords(sampleRun())
	// One prompt, two brands, leaderboard, run summary.
	require.Len(t, records, 5)

	pr, ok := records[0].(PromptResultRecord)
	require.True(t, ok)
	assert.Equal(t, TypePromptResult, pr.Type)
	assert.Equal(t, "chatgpt_000", pr.PromptID)

	bs, ok := records[1].(BrandSummaryRecord)
	require.True(t, ok)
	assert.Equal(t, 1, bs.CompetitivePosition.Rank)
	assert.Equal(t, 2, bs.CompetitivePosition.TotalBrands)

	_, ok = records[3].(LeaderboardRecord)
	require.True(t, ok)

	rs, ok := records[4].(RunSummaryRecord)
	require.True(t, ok)
	assert.Equal(t, TypeRunSummary, rs.Type)
	assert.False(t, rs.NoDataToAnalyze)
}

func TestBuildRecords_FailedRunWithoutResult(t *testing.T) {
	run := &model.Run{ID: "run-2", Status: model.RunStatusFailed, Error: "extraction service unavailable"}
	records := BuildRecords(run)
	require.Len(t, records, 1)

	rs := records[0].(RunSummaryRecord)
	assert.Equal(t, "failed", rs.Status)
	assert.Equal(t, "extraction service unavailable", rs.Error)
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sampleRun()))

	scanner := bufio.NewScanner(&buf)
	var types []string
	for scanner.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		types = append(types, row["type"].(string))
	}
	assert.Equal(t, []string{"prompt_result", "brand_summary", "brand_summary", "leaderboard", "run_summary"}, types)
}

func TestFormatText_CompleteRun(t *testing.T) {
	out := FormatText(sampleRun())
	assert.Contains(t, out, "Leaderboard")
	assert.Contains(t, out, "* 1. Acme")
	assert.Contains(t, out, "visibility 100.0")
	assert.Contains(t, out, "how it shows up:")
	assert.NotContains(t, out, "No data to analyze")
}

func TestFormatText_NoDataToAnalyze(t *testing.T) {
	run := sampleRun()
	run.Result.Summary.AnsweredPrompts = 0
	run.Result.Summary.FailedPrompts = 1

	out := FormatText(run)
	assert.Contains(t, out, "No data to analyze")
	assert.NotContains(t, out, "Leaderboard")
}

func TestFormatText_NoResult(t *testing.T) {
	run := &model.Run{ID: "run-3", Status: model.RunStatusFailed, Error: "boom", Job: model.Job{MyBrand: "Acme"}}
	out := FormatText(run)
	assert.Contains(t, out, "Run error: boom")
	assert.Contains(t, out, "No results recorded")
}
