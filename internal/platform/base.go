package platform

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/brandtrack-cli/internal/browser"
)

// Keystroke pacing bounds. The target platforms react badly to bulk input, so
// prompts are typed character by character with a randomized delay.
const (
	typeDelayMin = 30 * time.Millisecond
	typeDelayMax = 100 * time.Millisecond
)

// initRetryDelay is the fixed pause before the single internal Initialize retry.
const initRetryDelay = 3 * time.Second

// settleDelay lets dynamic content render after navigation and after popup
// dismissal before the next interaction.
const settleDelay = 2 * time.Second

// inputWaitTimeout bounds the wait for the prompt input surface to appear.
const inputWaitTimeout = 15 * time.Second

// base implements the shared adapter mechanics: navigation with one retry,
// popup dismissal, paced typing, and bubble polling. Concrete adapters supply
// the selectors.
type base struct {
	page     browser.Page
	name     string
	baseURL  string
	inputSel string
	// messageSel matches every rendered message bubble; answerSel matches
	// answer bubbles only (last match is the current answer).
	messageSel string
	answerSel  string
	// dismissSels are clicked if present during initialization, in order
	// (cookie banners, login nags).
	dismissSels []string
}

func (b *base) Name() string { return b.name }

func (b *base) Initialize(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			zap.L().Info("platform init retry", zap.String("platform", b.name))
			if err := sleepCtx(ctx, initRetryDelay); err != nil {
				return NewError(b.name, "initialize", false, err)
			}
		}
		if lastErr = b.initOnce(ctx); lastErr == nil {
			return nil
		}
	}
	return NewError(b.name, "initialize", false, lastErr)
}

func (b *base) initOnce(ctx context.Context) error {
	if err := b.page.Navigate(ctx, b.baseURL); err != nil {
		return err
	}
	if err := sleepCtx(ctx, settleDelay); err != nil {
		return err
	}

	for _, sel := range b.dismissSels {
		clicked, err := b.page.ClickIfPresent(ctx, sel)
		if err != nil {
			// Popups are best-effort; a vanished element is not a failure.
			zap.L().Debug("popup dismissal failed",
				zap.String("platform", b.name),
				zap.String("selector", sel),
				zap.Error(err),
			)
			continue
		}
		if clicked {
			zap.L().Debug("dismissed popup",
				zap.String("platform", b.name),
				zap.String("selector", sel),
			)
			if err := sleepCtx(ctx, time.Second); err != nil {
				return err
			}
		}
	}

	return b.page.WaitVisible(ctx, b.inputSel, inputWaitTimeout)
}

func (b *base) Submit(ctx context.Context, prompt string) error {
	// Collapse newlines: Enter inside the textbox would submit early.
	prompt = strings.ReplaceAll(prompt, "\n", " ")

	if err := b.page.WaitVisible(ctx, b.inputSel, inputWaitTimeout); err != nil {
		return NewError(b.name, "submit", true, err)
	}
	if err := b.page.TypeWithDelay(ctx, b.inputSel, prompt, typeDelayMin, typeDelayMax); err != nil {
		return NewError(b.name, "submit", true, err)
	}
	if err := sleepCtx(ctx, 500*time.Millisecond); err != nil {
		return NewError(b.name, "submit", true, err)
	}
	if err := b.page.PressEnter(ctx, b.inputSel); err != nil {
		return NewError(b.name, "submit", true, err)
	}
	return nil
}

func (b *base) MessageCount(ctx context.Context) (int, error) {
	count, err := b.page.Count(ctx, b.messageSel)
	if err != nil {
		return 0, NewError(b.name, "message_count", true, err)
	}
	return count, nil
}

func (b *base) ResponseText(ctx context.Context) (string, error) {
	text, err := b.page.Text(ctx, b.answerSel)
	if err != nil {
		return "", NewError(b.name, "response_text", true, err)
	}
	return strings.TrimSpace(text), nil
}

func (b *base) Teardown(ctx context.Context) error {
	if err := b.page.Close(ctx); err != nil {
		// Best-effort: teardown runs on error paths where the session may
		// already be gone.
		zap.L().Debug("teardown error", zap.String("platform", b.name), zap.Error(err))
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
