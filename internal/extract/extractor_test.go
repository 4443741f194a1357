package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brandtrack-cli/internal/model"
	"github.com/sells-group/brandtrack-cli/internal/resilience"
)

// fakeCompleter replays scripted responses and errors.
type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
	lastUser  string
}

var _ Completer = (*fakeCompleter)(nil)

func (f *fakeCompleter) Complete(_ context.Context, _, user string, _ int) (*Completion, error) {
	f.calls++
	f.lastUser = user
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	var text string
	if len(f.responses) > 0 {
		text = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	return &Completion{
		Text:  text,
		Model: "test-model",
		Usage: model.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func testBrands() model.TrackedBrands {
	return model.TrackedBrands{MyBrand: "Acme", Competitors: []string{"Zenith", "Orbit"}}
}

func successfulAnswer(id, text string) model.RawAnswer {
	return model.RawAnswer{PromptID: id, Platform: "chatgpt", PromptText: "best crm?", Text: text, Success: true}
}

func fastExtractConfig() Config {
	cfg := DefaultConfig()
	cfg.Backoff = 1
	return cfg
}

func TestExtract_ParsesBatchResponse(t *testing.T) {
	fc := &fakeCompleter{responses: []string{`{
		"results": [
			{
				"promptId": "chatgpt_000",
				"mentions": [
					{"brand": "Acme", "count": 3, "rank": 1, "context": "Acme leads the market", "isRecommended": true},
					{"brand": "Zenith", "count": 1, "rank": 2, "context": "Zenith is an alternative", "isRecommended": false}
				],
				"citations": ["https://example.com/review"]
			},
			{"promptId": "chatgpt_001", "mentions": [], "citations": []}
		]
	}`}}
	e := New(fc, fastExtractConfig(), nil)

	answers := []model.RawAnswer{
		successfulAnswer("chatgpt_000", "Acme leads. Zenith trails."),
		successfulAnswer("chatgpt_001", "No brands here."),
	}
	results, usage, err := e.Extract(context.Background(), answers, testBrands())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "chatgpt_000", results[0].PromptID)
	require.Len(t, results[0].Mentions, 2)
	assert.Equal(t, "Acme", results[0].Mentions[0].Brand)
	assert.Equal(t, 3, results[0].Mentions[0].Count)
	assert.True(t, results[0].Mentions[0].IsRecommended)
	assert.Equal(t, []string{"https://example.com/review"}, results[0].Citations)

	assert.Empty(t, results[1].Mentions)
	assert.Equal(t, 100, usage.InputTokens)
	assert.Equal(t, 1, fc.calls)
}

func TestExtract_OneCallCoversWholeBatch(t *testing.T) {
	fc := &fakeCompleter{responses: []string{`{"results": []}`}}
	e := New(fc, fastExtractConfig(), nil)

	answers := []model.RawAnswer{
		successfulAnswer("chatgpt_000", "a"),
		successfulAnswer("gemini_000", "b"),
		successfulAnswer("perplexity_000", "c"),
	}
	_, _, err := e.Extract(context.Background(), answers, testBrands())
	require.NoError(t, err)
	assert.Equal(t, 1, fc.calls)
	assert.Contains(t, fc.lastUser, "chatgpt_000")
	assert.Contains(t, fc.lastUser, "gemini_000")
	assert.Contains(t, fc.lastUser, "perplexity_000")
	assert.Contains(t, fc.lastUser, "Acme, Zenith, Orbit")
}

func TestExtract_SkipsFailedAnswers(t *testing.T) {
	fc := &fakeCompleter{responses: []string{`{"results": []}`}}
	e := New(fc, fastExtractConfig(), nil)

	answers := []model.RawAnswer{
		{PromptID: "chatgpt_000", Success: false, ErrorKind: model.ErrorKindTimeout},
		successfulAnswer("chatgpt_001", "Acme wins."),
	}
	results, _, err := e.Extract(context.Background(), answers, testBrands())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chatgpt_001", results[0].PromptID)
	assert.NotContains(t, fc.lastUser, "chatgpt_000")
}

func TestExtract_NoAnalyzableAnswers(t *testing.T) {
	fc := &fakeCompleter{}
	e := New(fc, fastExtractConfig(), nil)

	results, _, err := e.Extract(context.Background(), []model.RawAnswer{
		{PromptID: "chatgpt_000", Success: false},
	}, testBrands())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, fc.calls)
}

func TestExtract_SynthesizesMissingPromptIDs(t *testing.T) {
	fc := &fakeCompleter{responses: []string{`{
		"results": [{"promptId": "chatgpt_000", "mentions": [], "citations": []}]
	}`}}
	e := New(fc, fastExtractConfig(), nil)

	answers := []model.RawAnswer{
		successfulAnswer("chatgpt_000", "a"),
		successfulAnswer("chatgpt_001", "b"),
	}
	results, _, err := e.Extract(context.Background(), answers, testBrands())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "chatgpt_001", results[1].PromptID)
	assert.Empty(t, results[1].Mentions)
	assert.Empty(t, results[1].Citations)
}

func TestExtract_UnparseableResponseDegradesToEmpty(t *testing.T) {
	fc := &fakeCompleter{responses: []string{"I could not produce JSON, sorry."}}
	e := New(fc, fastExtractConfig(), nil)

	answers := []model.RawAnswer{successfulAnswer("chatgpt_000", "a")}
	results, _, err := e.Extract(context.Background(), answers, testBrands())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Mentions)
}

func TestExtract_DropsUntrackedBrands(t *testing.T) {
	fc := &fakeCompleter{responses: []string{`{
		"results": [{
			"promptId": "chatgpt_000",
			"mentions": [
				{"brand": "Nike", "count": 5, "rank": 1, "context": "off-list", "isRecommended": true},
				{"brand": "acme", "count": 2, "rank": 2, "context": "case-insensitive match", "isRecommended": false}
			],
			"citations": []
		}]
	}`}}
	e := New(fc, fastExtractConfig(), nil)

	results, _, err := e.Extract(context.Background(), []model.RawAnswer{successfulAnswer("chatgpt_000", "a")}, testBrands())
	require.NoError(t, err)
	require.Len(t, results[0].Mentions, 1)
	assert.Equal(t, "Acme", results[0].Mentions[0].Brand)
}

func TestExtract_TruncatesLongContexts(t *testing.T) {
	long := strings.Repeat("x", 500)
	fc := &fakeCompleter{responses: []string{`{
		"results": [{
			"promptId": "chatgpt_000",
			"mentions": [{"brand": "Acme", "count": 1, "rank": 1, "context": "` + long + `", "isRecommended": false}],
			"citations": []
		}]
	}`}}
	e := New(fc, fastExtractConfig(), nil)

	results, _, err := e.Extract(context.Background(), []model.RawAnswer{successfulAnswer("chatgpt_000", "a")}, testBrands())
	require.NoError(t, err)
	assert.Len(t, results[0].Mentions[0].Context, model.MaxContextChars)
}

func TestExtract_ClampsCountAndRank(t *testing.T) {
	fc := &fakeCompleter{responses: []string{`{
		"results": [{
			"promptId": "chatgpt_000",
			"mentions": [{"brand": "Acme", "count": 0, "rank": 0, "context": "c", "isRecommended": false}],
			"citations": []
		}]
	}`}}
	e := New(fc, fastExtractConfig(), nil)

	results, _, err := e.Extract(context.Background(), []model.RawAnswer{successfulAnswer("chatgpt_000", "a")}, testBrands())
	require.NoError(t, err)
	m := results[0].Mentions[0]
	assert.Equal(t, 1, m.Count)
	assert.Equal(t, 1, m.Rank)
}

func TestExtract_RetriesTransientServiceErrors(t *testing.T) {
	fc := &fakeCompleter{
		errs:      []error{resilience.NewTransientError(errors.New("rate limited"), 429)},
		responses: []string{`{"results": []}`},
	}
	e := New(fc, fastExtractConfig(), nil)

	_, _, err := e.Extract(context.Background(), []model.RawAnswer{successfulAnswer("chatgpt_000", "a")}, testBrands())
	require.NoError(t, err)
	assert.Equal(t, 2, fc.calls)
}

func TestExtract_ExhaustedRetriesBlockRun(t *testing.T) {
	boom := resilience.NewTransientError(errors.New("overloaded"), 503)
	fc := &fakeCompleter{errs: []error{boom, boom, boom}}
	e := New(fc, fastExtractConfig(), nil)

	_, _, err := e.Extract(context.Background(), []model.RawAnswer{successfulAnswer("chatgpt_000", "a")}, testBrands())
	require.Error(t, err)
	assert.Equal(t, 3, fc.calls)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose wrapping", `Here you go: {"a": 1} hope that helps`, `{"a": 1}`},
		{"nested objects", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"braces inside strings", `{"a": "}{"}`, `{"a": "}{"}`},
		{"trailing garbage after object", `{"a": 1}}}`, `{"a": 1}`},
		{"no object", "nothing here", "nothing here"},
		{"truncated object", `{"a": {"b": 2}`, `{"a": {"b": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.input))
		})
	}
}
