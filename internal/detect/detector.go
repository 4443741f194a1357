// Package detect decides when a streamed chat answer has finished rendering.
//
// The platforms give no explicit completion signal, so the detector polls the
// page in two phases: first it waits for a new message bubble to appear, then
// it waits for the bubble's text to stop changing across consecutive reads.
package detect

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// State is the detector's observable phase.
type State string

const (
	// StateAwaitingTurn means no new message bubble has appeared yet.
	StateAwaitingTurn State = "awaiting_turn"
	// StateStreaming means a bubble exists but its text is still changing.
	StateStreaming State = "streaming"
	// StateComplete means the text survived the required consecutive
	// identical reads.
	StateComplete State = "complete"
	// StateTimedOut means a deadline expired before completion.
	StateTimedOut State = "timed_out"
)

// Timeout reasons reported in Outcome.TimeoutReason.
const (
	ReasonNoNewMessage = "no_new_message"
	ReasonUnstable     = "text_never_stabilized"
)

// minStableReads is the floor for Config.StableReads. A single read can catch
// a mid-stream plateau, so at least two identical observations are required.
const minStableReads = 2

// Config tunes the polling state machine.
type Config struct {
	// PollInterval is the pause between page observations.
	PollInterval time.Duration
	// TurnTimeout bounds the wait for a new message bubble to appear.
	TurnTimeout time.Duration
	// StableReads is the number of consecutive identical non-empty text
	// reads required to declare the answer complete. Clamped to 2.
	StableReads int
	// OverallTimeout bounds the whole wait, both phases combined.
	OverallTimeout time.Duration
}

// DefaultConfig matches the pacing of the supported platforms: answers
// typically stream for 5 to 40 seconds.
func DefaultConfig() Config {
	return Config{
		PollInterval:   time.Second,
		TurnTimeout:    30 * time.Second,
		StableReads:    3,
		OverallTimeout: 90 * time.Second,
	}
}

func (c Config) normalized() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 30 * time.Second
	}
	if c.StableReads < minStableReads {
		c.StableReads = minStableReads
	}
	if c.OverallTimeout <= 0 {
		c.OverallTimeout = 90 * time.Second
	}
	return c
}

// Source exposes the two page observations the detector needs. It is
// satisfied by the platform adapters.
type Source interface {
	MessageCount(ctx context.Context) (int, error)
	ResponseText(ctx context.Context) (string, error)
}

// Outcome is the result of one completion wait.
type Outcome struct {
	State State
	// Text is the final answer text. On timeout it holds whatever partial
	// text the last read produced, which may be empty.
	Text string
	// Partial is true when the wait timed out but a non-empty partial
	// answer was recovered.
	Partial bool
	// Polls counts page observations across both phases.
	Polls   int
	Elapsed time.Duration
	// TimeoutReason is set only when State is StateTimedOut.
	TimeoutReason string
}

// Detector runs the two-phase completion wait.
type Detector struct {
	cfg Config
}

func New(cfg Config) *Detector {
	return &Detector{cfg: cfg.normalized()}
}

// Wait blocks until the answer completes or a deadline expires. The baseline
// is the message count observed before the prompt was submitted; a count
// above it marks the arrival of the answer bubble.
//
// Read errors from the source are skipped, not fatal: a selector can miss
// transiently while the page re-renders. The only error Wait itself returns
// is context cancellation.
func (d *Detector) Wait(ctx context.Context, src Source, baseline int) (Outcome, error) {
	start := time.Now()
	overall := time.After(d.cfg.OverallTimeout)
	turn := time.After(d.cfg.TurnTimeout)

	out := Outcome{State: StateAwaitingTurn}

	// Phase one: wait for a new message bubble.
	for out.State == StateAwaitingTurn {
		select {
		case <-ctx.Done():
			out.Elapsed = time.Since(start)
			return out, ctx.Err()
		case <-turn:
			// No salvage read here: with no new bubble, any text the
			// answer selector matches belongs to an earlier turn.
			out.State = StateTimedOut
			out.TimeoutReason = ReasonNoNewMessage
			out.Elapsed = time.Since(start)
			return out, nil
		case <-overall:
			out.State = StateTimedOut
			out.TimeoutReason = ReasonNoNewMessage
			out.Elapsed = time.Since(start)
			return out, nil
		case <-time.After(d.cfg.PollInterval):
		}

		out.Polls++
		count, err := src.MessageCount(ctx)
		if err != nil {
			zap.L().Debug("message count read failed", zap.Error(err))
			continue
		}
		if count > baseline {
			out.State = StateStreaming
		}
	}

	// Phase two: wait for the text to hold still.
	var (
		last   string
		streak int
	)
	for {
		select {
		case <-ctx.Done():
			out.Elapsed = time.Since(start)
			return out, ctx.Err()
		case <-overall:
			return d.timedOut(ctx, src, out, start, ReasonUnstable)
		case <-time.After(d.cfg.PollInterval):
		}

		out.Polls++
		text, err := src.ResponseText(ctx)
		if err != nil {
			zap.L().Debug("response text read failed", zap.Error(err))
			continue
		}
		switch {
		case text == "":
			// The bubble exists but has not painted text yet. Not an
			// observation of a value, so the streak is untouched.
		case text == last:
			streak++
		default:
			last = text
			streak = 1
		}

		if streak >= d.cfg.StableReads {
			out.State = StateComplete
			out.Text = last
			out.Elapsed = time.Since(start)
			return out, nil
		}
	}
}

// timedOut performs the final salvage read: a timeout with readable partial
// text is a degraded answer, not a loss.
func (d *Detector) timedOut(ctx context.Context, src Source, out Outcome, start time.Time, reason string) (Outcome, error) {
	out.State = StateTimedOut
	out.TimeoutReason = reason
	out.Elapsed = time.Since(start)

	text, err := src.ResponseText(ctx)
	if err != nil {
		zap.L().Debug("salvage read failed", zap.Error(err))
		return out, nil
	}
	if text != "" {
		out.Text = text
		out.Partial = true
	}
	return out, nil
}
