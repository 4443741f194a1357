// Package openai wraps the community OpenAI client behind the small chat
// surface the extraction stage needs.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	sdk "github.com/sashabaranov/go-openai"
)

// Client defines the OpenAI API operations used by the extraction stage.
type Client interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is our own request type for CreateChatCompletion.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature *float32
}

// ChatResponse is our own response type from CreateChatCompletion.
type ChatResponse struct {
	Text  string
	Model string
	Usage TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// StatusError carries the HTTP status of an API failure so callers can decide
// whether a retry is worthwhile.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openai: status %d: %s", e.StatusCode, e.Message)
}

// sdkClient implements Client using sashabaranov/go-openai.
type sdkClient struct {
	client *sdk.Client
}

// NewClient creates a new OpenAI client. An empty baseURL uses the public API.
func NewClient(apiKey, baseURL string) Client {
	cfg := sdk.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &sdkClient{client: sdk.NewClientWithConfig(cfg)}
}

func (c *sdkClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages := make([]sdk.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, sdk.ChatCompletionMessage{
			Role:    sdk.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, sdk.ChatCompletionMessage{
		Role:    sdk.ChatMessageRoleUser,
		Content: req.User,
	})

	params := sdk.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, params)
	if err != nil {
		var apiErr *sdk.APIError
		if errors.As(err, &apiErr) {
			return nil, &StatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return nil, eris.Wrap(err, "openai: create chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: response has no choices")
	}

	return &ChatResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
