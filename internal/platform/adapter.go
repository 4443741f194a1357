// Package platform defines the adapter contract for driving one AI chat
// platform through a live browser session, plus the concrete adapters for the
// supported platforms.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/brandtrack-cli/internal/browser"
)

// Adapter drives a browser session for one external chat platform. An adapter
// instance is exclusively owned by one platform task for its entire lifetime.
type Adapter interface {
	// Name returns the platform identifier ("chatgpt", "gemini", ...).
	Name() string

	// Initialize opens the platform's base URL and dismisses onboarding
	// obstacles. It retries once internally on transient failure; a returned
	// error means the platform is unusable for this run.
	Initialize(ctx context.Context) error

	// Submit focuses the input surface, types the prompt with per-keystroke
	// pacing, and confirms submission.
	Submit(ctx context.Context, prompt string) error

	// MessageCount returns the number of rendered message bubbles. Cheap and
	// safe to poll frequently.
	MessageCount(ctx context.Context) (int, error)

	// ResponseText returns the current text of the latest answer bubble. It
	// may return a partial or empty string while the answer is streaming.
	ResponseText(ctx context.Context) (string, error)

	// Teardown releases the browser session. Safe to call after a failed
	// Initialize; secondary errors are swallowed.
	Teardown(ctx context.Context) error
}

// Error is a platform operation failure. Recoverable errors are retried by
// the orchestrator; non-recoverable errors abort the platform's run.
type Error struct {
	Platform    string
	Op          string
	Recoverable bool
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Platform, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a platform operation failure.
func NewError(platform, op string, recoverable bool, err error) *Error {
	return &Error{Platform: platform, Op: op, Recoverable: recoverable, Err: err}
}

// IsRecoverable reports whether err should be retried. Errors that are not
// platform errors are treated as recoverable; the retry bound still applies.
func IsRecoverable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Recoverable
	}
	return true
}

// Supported lists the platform identifiers this build can drive.
func Supported() []string {
	return []string{"chatgpt", "gemini", "perplexity"}
}

// IsSupported reports whether name is a known platform identifier.
func IsSupported(name string) bool {
	for _, p := range Supported() {
		if p == name {
			return true
		}
	}
	return false
}

// New constructs the adapter for name over the given page. The set of
// variants is closed: adding a platform means adding one adapter here.
func New(name string, page browser.Page) (Adapter, error) {
	switch name {
	case "chatgpt":
		return newChatGPT(page), nil
	case "gemini":
		return newGemini(page), nil
	case "perplexity":
		return newPerplexity(page), nil
	default:
		return nil, fmt.Errorf("platform: unknown platform %q", name)
	}
}
