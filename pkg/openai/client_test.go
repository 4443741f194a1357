package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChatCompletion(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantStatus int
		wantText   string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "chatcmpl-123",
				"model": "gpt-4o-mini",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"results\":[]}"}}],
				"usage": {"prompt_tokens": 12, "completion_tokens": 4}
			}`,
			wantText: `{"results":[]}`,
		},
		{
			name:       "rate_limit",
			status:     http.StatusTooManyRequests,
			body:       `{"error": {"message": "rate limit exceeded", "type": "requests"}}`,
			wantErr:    true,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "server_error",
			status:     http.StatusInternalServerError,
			body:       `{"error": {"message": "boom", "type": "server_error"}}`,
			wantErr:    true,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:    "no_choices",
			status:  http.StatusOK,
			body:    `{"id": "chatcmpl-456", "choices": [], "usage": {}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient("test-key", srv.URL)
			resp, err := c.CreateChatCompletion(context.Background(), ChatRequest{
				Model:     "gpt-4o-mini",
				System:    "extract mentions",
				User:      "answer text",
				MaxTokens: 256,
			})

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantStatus != 0 {
					var se *StatusError
					require.True(t, errors.As(err, &se))
					assert.Equal(t, tt.wantStatus, se.StatusCode)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantText, resp.Text)
			assert.Equal(t, "gpt-4o-mini", resp.Model)
			assert.Equal(t, 12, resp.Usage.PromptTokens)
			assert.Equal(t, 4, resp.Usage.CompletionTokens)
		})
	}
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{StatusCode: 429, Message: "slow down"}
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "slow down")
}
