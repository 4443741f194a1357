package model

import "fmt"

// Prompt is a single question to submit to one platform. The ID is synthetic
// and unique within a run: "{platform}_{index}".
type Prompt struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	Index    int    `json:"index"`
	Text     string `json:"text"`
}

// BuildPrompts assigns prompt IDs for one platform's prompt list. IDs are
// assigned once per run and never reused.
func BuildPrompts(platform string, texts []string) []Prompt {
	prompts := make([]Prompt, 0, len(texts))
	for i, text := range texts {
		prompts = append(prompts, Prompt{
			ID:       fmt.Sprintf("%s_%03d", platform, i),
			Platform: platform,
			Index:    i,
			Text:     text,
		})
	}
	return prompts
}

// ErrorKind classifies why a prompt produced no usable answer.
type ErrorKind string

const (
	ErrorKindNone         ErrorKind = ""
	ErrorKindInitFailed   ErrorKind = "init_failed"
	ErrorKindSubmitFailed ErrorKind = "submit_failed"
	ErrorKindNoNewMessage ErrorKind = "no_new_message"
	ErrorKindTimeout      ErrorKind = "timeout"
	ErrorKindEmptyAnswer  ErrorKind = "empty_answer"
)

// RawAnswer is the scraped response for one submitted prompt. When Success is
// false, Text carries no usable content. Degraded marks answers recovered as
// partial text after a stability timeout.
type RawAnswer struct {
	PromptID   string    `json:"prompt_id"`
	Platform   string    `json:"platform"`
	PromptText string    `json:"prompt_text"`
	Text       string    `json:"text"`
	Success    bool      `json:"success"`
	Degraded   bool      `json:"degraded,omitempty"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
}
