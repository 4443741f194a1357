package extract

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brandtrack-cli/internal/model"
	"github.com/sells-group/brandtrack-cli/internal/resilience"
	"github.com/sells-group/brandtrack-cli/pkg/anthropic"
	"github.com/sells-group/brandtrack-cli/pkg/openai"
)

// Completion is one completion-service response.
type Completion struct {
	Text  string
	Model string
	Usage model.TokenUsage
}

// Completer abstracts the text-completion service behind the extraction
// stage. Implementations classify retryable failures as transient.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (*Completion, error)
}

// Provider names accepted by NewCompleter.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Default extraction models per provider.
const (
	DefaultAnthropicModel = "claude-haiku-4-5-20251001"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// extractionTemperature keeps the structured output deterministic-ish.
const extractionTemperature = 0.3

// NewCompleter builds the Completer for the named provider. An empty model
// selects the provider default.
func NewCompleter(provider, apiKey, model string) (Completer, error) {
	switch provider {
	case ProviderAnthropic, "":
		if model == "" {
			model = DefaultAnthropicModel
		}
		return &anthropicCompleter{client: anthropic.NewClient(apiKey), model: model}, nil
	case ProviderOpenAI:
		if model == "" {
			model = DefaultOpenAIModel
		}
		return &openaiCompleter{client: openai.NewClient(apiKey, ""), model: model}, nil
	default:
		return nil, eris.Errorf("extract: unknown provider %q", provider)
	}
}

type anthropicCompleter struct {
	client anthropic.Client
	model  string
}

var _ Completer = (*anthropicCompleter)(nil)

func (c *anthropicCompleter) Complete(ctx context.Context, system, user string, maxTokens int) (*Completion, error) {
	temp := float64(extractionTemperature)
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   int64(maxTokens),
		System:      anthropic.BuildCachedSystemBlocks(system),
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	})
	if err != nil {
		// The SDK surfaces rate limits and overload in the message text,
		// which the transient check already matches.
		return nil, err
	}
	return &Completion{
		Text:  resp.Text(),
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:      int(resp.Usage.InputTokens),
			OutputTokens:     int(resp.Usage.OutputTokens),
			CacheWriteTokens: int(resp.Usage.CacheCreationInputTokens),
			CacheReadTokens:  int(resp.Usage.CacheReadInputTokens),
		},
	}, nil
}

type openaiCompleter struct {
	client openai.Client
	model  string
}

var _ Completer = (*openaiCompleter)(nil)

func (c *openaiCompleter) Complete(ctx context.Context, system, user string, maxTokens int) (*Completion, error) {
	temp := float32(extractionTemperature)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatRequest{
		Model:       c.model,
		System:      system,
		User:        user,
		MaxTokens:   maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		var se *openai.StatusError
		if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
			return nil, resilience.NewTransientError(err, se.StatusCode)
		}
		return nil, err
	}
	return &Completion{
		Text:  resp.Text,
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
