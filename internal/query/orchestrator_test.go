package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brandtrack-cli/internal/detect"
	"github.com/sells-group/brandtrack-cli/internal/model"
	"github.com/sells-group/brandtrack-cli/internal/platform"
	"github.com/sells-group/brandtrack-cli/internal/tracker"
)

// fakeAdapter scripts one platform session. Each submitted prompt advances
// the message count and swaps in the next answer text.
type fakeAdapter struct {
	mu         sync.Mutex
	name       string
	initErr    error
	submitErrs []error
	answers    []string
	count      int
	// dropSubmits makes Submit succeed without rendering a new message,
	// modeling a platform that silently swallowed the prompt.
	dropSubmits bool
	submitted   []string
	tornDown    bool
}

var _ platform.Adapter = (*fakeAdapter)(nil)

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Initialize(_ context.Context) error { return f.initErr }

func (f *fakeAdapter) Submit(_ context.Context, prompt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		if err != nil {
			return err
		}
	}
	if f.dropSubmits {
		return nil
	}
	f.submitted = append(f.submitted, prompt)
	f.count++
	return nil
}

func (f *fakeAdapter) MessageCount(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, nil
}

func (f *fakeAdapter) ResponseText(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submitted) == 0 || len(f.answers) < len(f.submitted) {
		return "", nil
	}
	return f.answers[len(f.submitted)-1], nil
}

func (f *fakeAdapter) Teardown(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tornDown = true
	return nil
}

func fastQueryConfig() Config {
	return Config{
		MaxConcurrentPlatforms: 3,
		SubmitAttempts:         3,
		SubmitBackoff:          time.Millisecond,
		PromptGap:              0,
		RunTimeout:             5 * time.Second,
		Detect: detect.Config{
			PollInterval:   time.Millisecond,
			TurnTimeout:    100 * time.Millisecond,
			StableReads:    2,
			OverallTimeout: 300 * time.Millisecond,
		},
	}
}

func factoryFor(adapters map[string]*fakeAdapter) AdapterFactory {
	return func(_ context.Context, name string) (platform.Adapter, error) {
		a, ok := adapters[name]
		if !ok {
			return nil, errors.New("no adapter for " + name)
		}
		return a, nil
	}
}

func TestRun_CollectsAnswersAcrossPlatforms(t *testing.T) {
	adapters := map[string]*fakeAdapter{
		"chatgpt": {name: "chatgpt", answers: []string{"Acme is the leader.", "Zenith has momentum."}},
		"gemini":  {name: "gemini", answers: []string{"Acme and Zenith both rank."}},
	}
	prompts := append(
		model.BuildPrompts("chatgpt", []string{"best crm?", "fastest growing crm?"}),
		model.BuildPrompts("gemini", []string{"best crm?"})...,
	)

	o := New(fastQueryConfig(), factoryFor(adapters), tracker.New())
	answers, err := o.Run(context.Background(), prompts)
	require.NoError(t, err)
	require.Len(t, answers, 3)

	// Ordered by platform name, then prompt index.
	assert.Equal(t, "chatgpt_000", answers[0].PromptID)
	assert.Equal(t, "chatgpt_001", answers[1].PromptID)
	assert.Equal(t, "gemini_000", answers[2].PromptID)
	for _, a := range answers {
		assert.True(t, a.Success, a.PromptID)
		assert.NotEmpty(t, a.Text, a.PromptID)
	}
	assert.True(t, adapters["chatgpt"].tornDown)
	assert.True(t, adapters["gemini"].tornDown)
}

func TestRun_PromptsSequentialPerPlatform(t *testing.T) {
	a := &fakeAdapter{name: "chatgpt", answers: []string{"one", "two", "three"}}
	prompts := model.BuildPrompts("chatgpt", []string{"p0", "p1", "p2"})

	o := New(fastQueryConfig(), factoryFor(map[string]*fakeAdapter{"chatgpt": a}), nil)
	answers, err := o.Run(context.Background(), prompts)
	require.NoError(t, err)
	require.Len(t, answers, 3)
	assert.Equal(t, []string{"p0", "p1", "p2"}, a.submitted)
	assert.Equal(t, "three", answers[2].Text)
}

func TestRun_InitFailureStubsAllPrompts(t *testing.T) {
	adapters := map[string]*fakeAdapter{
		"chatgpt": {name: "chatgpt", initErr: errors.New("chrome crashed")},
		"gemini":  {name: "gemini", answers: []string{"fine"}},
	}
	prompts := append(
		model.BuildPrompts("chatgpt", []string{"p0", "p1"}),
		model.BuildPrompts("gemini", []string{"p0"})...,
	)

	trk := tracker.New()
	o := New(fastQueryConfig(), factoryFor(adapters), trk)
	answers, err := o.Run(context.Background(), prompts)
	require.NoError(t, err)
	require.Len(t, answers, 3)

	assert.False(t, answers[0].Success)
	assert.Equal(t, model.ErrorKindInitFailed, answers[0].ErrorKind)
	assert.Equal(t, model.ErrorKindInitFailed, answers[1].ErrorKind)
	assert.True(t, answers[2].Success)
	assert.True(t, trk.HasFatalErrors())
	assert.True(t, adapters["chatgpt"].tornDown)
}

func TestRun_FactoryFailureStubsAllPrompts(t *testing.T) {
	prompts := model.BuildPrompts("perplexity", []string{"p0"})
	o := New(fastQueryConfig(), factoryFor(map[string]*fakeAdapter{}), nil)

	answers, err := o.Run(context.Background(), prompts)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, model.ErrorKindInitFailed, answers[0].ErrorKind)
}

func TestRun_SubmitRetriesRecoverableErrors(t *testing.T) {
	a := &fakeAdapter{
		name:       "chatgpt",
		answers:    []string{"recovered"},
		submitErrs: []error{platform.NewError("chatgpt", "submit", true, errors.New("input not visible"))},
	}
	o := New(fastQueryConfig(), factoryFor(map[string]*fakeAdapter{"chatgpt": a}), nil)

	answers, err := o.Run(context.Background(), model.BuildPrompts("chatgpt", []string{"p0"}))
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.True(t, answers[0].Success)
	assert.Equal(t, "recovered", answers[0].Text)
}

func TestRun_SubmitExhaustionFailsPromptOnly(t *testing.T) {
	boom := platform.NewError("chatgpt", "submit", true, errors.New("input gone"))
	// The first prompt is never submitted, so the answer list holds only
	// the second prompt's answer.
	a := &fakeAdapter{
		name:       "chatgpt",
		answers:    []string{"second"},
		submitErrs: []error{boom, boom, boom, nil},
	}
	o := New(fastQueryConfig(), factoryFor(map[string]*fakeAdapter{"chatgpt": a}), nil)

	answers, err := o.Run(context.Background(), model.BuildPrompts("chatgpt", []string{"p0", "p1"}))
	require.NoError(t, err)
	require.Len(t, answers, 2)

	assert.False(t, answers[0].Success)
	assert.Equal(t, model.ErrorKindSubmitFailed, answers[0].ErrorKind)
	assert.True(t, answers[1].Success)
	assert.Equal(t, "second", answers[1].Text)
}

func TestRun_NoNewMessageBecomesFailedAnswer(t *testing.T) {
	a := &fakeAdapter{name: "chatgpt", dropSubmits: true}
	o := New(fastQueryConfig(), factoryFor(map[string]*fakeAdapter{"chatgpt": a}), nil)

	answers, err := o.Run(context.Background(), model.BuildPrompts("chatgpt", []string{"p0"}))
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.False(t, answers[0].Success)
	assert.Equal(t, model.ErrorKindNoNewMessage, answers[0].ErrorKind)
}

func TestRun_EveryPromptAccountedFor(t *testing.T) {
	adapters := map[string]*fakeAdapter{
		"chatgpt":    {name: "chatgpt", answers: []string{"a1", "a2"}},
		"gemini":     {name: "gemini", initErr: errors.New("down")},
		"perplexity": {name: "perplexity", answers: []string{"a3"}},
	}
	var prompts []model.Prompt
	prompts = append(prompts, model.BuildPrompts("chatgpt", []string{"p0", "p1"})...)
	prompts = append(prompts, model.BuildPrompts("gemini", []string{"p0", "p1", "p2"})...)
	prompts = append(prompts, model.BuildPrompts("perplexity", []string{"p0"})...)

	o := New(fastQueryConfig(), factoryFor(adapters), nil)
	answers, err := o.Run(context.Background(), prompts)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, a := range answers {
		seen[a.PromptID] = true
	}
	assert.Len(t, answers, len(prompts))
	for _, p := range prompts {
		assert.True(t, seen[p.ID], p.ID)
	}
}
