// Package browser abstracts the live browser session behind a small Page
// interface so platform adapters stay independent of the automation backend
// and tests can substitute a fake.
package browser

import (
	"context"
	"time"
)

// Page is the scriptable-page boundary consumed by platform adapters.
// Selectors are CSS.
type Page interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until selector is visible or the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Click clicks the first match of selector.
	Click(ctx context.Context, selector string) error

	// ClickIfPresent clicks the first match of selector if one exists right
	// now, reporting whether a click happened. Used for popup dismissal,
	// where absence is the normal case.
	ClickIfPresent(ctx context.Context, selector string) (bool, error)

	// TypeWithDelay focuses selector and types text one rune at a time with
	// a randomized delay drawn from [minDelay, maxDelay] between keystrokes.
	TypeWithDelay(ctx context.Context, selector, text string, minDelay, maxDelay time.Duration) error

	// PressEnter sends the Enter key to selector.
	PressEnter(ctx context.Context, selector string) error

	// Text returns the inner text of the last match of selector, or "" when
	// nothing matches.
	Text(ctx context.Context, selector string) (string, error)

	// Count returns the number of matches of selector.
	Count(ctx context.Context, selector string) (int, error)

	// Close releases the underlying browser session.
	Close(ctx context.Context) error
}
