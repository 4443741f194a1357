package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rotisserie/eris"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// SessionConfig configures a Chrome session.
type SessionConfig struct {
	Headless  bool
	UserAgent string
	ProxyURL  string
}

// Session is a chromedp-backed Page. One Session owns one browser tab.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ Page = (*Session)(nil)

// NewSession launches a Chrome instance and opens a tab.
func NewSession(cfg SessionConfig) (*Session, error) {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(ua),
	)
	if cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Launch the browser eagerly so a missing Chrome binary surfaces here
	// instead of on the first navigation.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		cancelAlloc()
		return nil, eris.Wrap(err, "browser: launch chrome")
	}

	return &Session{ctx: ctx, cancel: cancel, cancelAlloc: cancelAlloc}, nil
}

// run executes actions against the session tab, honoring the caller's
// deadline or cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	return eris.Wrapf(err, "browser: navigate %s", url)
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := s.run(wctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	return eris.Wrapf(err, "browser: wait visible %s", selector)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
	return eris.Wrapf(err, "browser: click %s", selector)
}

func (s *Session) ClickIfPresent(ctx context.Context, selector string) (bool, error) {
	var present bool
	expr := fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
	if err := s.run(ctx, chromedp.Evaluate(expr, &present)); err != nil {
		return false, eris.Wrapf(err, "browser: probe %s", selector)
	}
	if !present {
		return false, nil
	}
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return false, eris.Wrapf(err, "browser: click %s", selector)
	}
	return true, nil
}

func (s *Session) TypeWithDelay(ctx context.Context, selector, text string, minDelay, maxDelay time.Duration) error {
	if err := s.run(ctx, chromedp.Focus(selector, chromedp.ByQuery)); err != nil {
		return eris.Wrapf(err, "browser: focus %s", selector)
	}

	for _, r := range text {
		if err := s.run(ctx, chromedp.SendKeys(selector, string(r), chromedp.ByQuery)); err != nil {
			return eris.Wrapf(err, "browser: type into %s", selector)
		}
		if err := sleepCtx(ctx, humanDelay(minDelay, maxDelay)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) PressEnter(ctx context.Context, selector string) error {
	err := s.run(ctx, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery))
	return eris.Wrapf(err, "browser: press enter on %s", selector)
}

func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var text string
	expr := fmt.Sprintf(`(() => {
		const nodes = document.querySelectorAll(%s);
		if (nodes.length === 0) return "";
		return nodes[nodes.length - 1].innerText || "";
	})()`, jsString(selector))
	if err := s.run(ctx, chromedp.Evaluate(expr, &text)); err != nil {
		return "", eris.Wrapf(err, "browser: text %s", selector)
	}
	return text, nil
}

func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	var count int
	expr := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
	if err := s.run(ctx, chromedp.Evaluate(expr, &count)); err != nil {
		return 0, eris.Wrapf(err, "browser: count %s", selector)
	}
	return count, nil
}

func (s *Session) Close(_ context.Context) error {
	s.cancel()
	s.cancelAlloc()
	return nil
}

// humanDelay draws a randomized keystroke delay from [minDelay, maxDelay].
func humanDelay(minDelay, maxDelay time.Duration) time.Duration {
	if maxDelay <= minDelay {
		return minDelay
	}
	return minDelay + rand.N(maxDelay-minDelay)
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

// jsString encodes s as a JavaScript string literal for Evaluate expressions.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
