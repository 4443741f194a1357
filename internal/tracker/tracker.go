// Package tracker records errors, warnings, and successes for a single
// tracking run. A Tracker is constructed per run and passed explicitly; it is
// safe for concurrent use by the per-platform query tasks.
package tracker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrorRecord is one tracked failure.
type ErrorRecord struct {
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
}

// SuccessRecord is one tracked successful operation.
type SuccessRecord struct {
	Operation string    `json:"operation"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is the aggregate view of a run's tracked events.
type Summary struct {
	Successes   int `json:"successes"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
	FatalErrors int `json:"fatal_errors"`
}

// Tracker collects run-scoped events behind a single mutex so concurrent
// platform tasks can append without interleaving.
type Tracker struct {
	mu        sync.Mutex
	errors    []ErrorRecord
	successes []SuccessRecord
	warnings  []string
}

// New creates an empty Tracker for one run.
func New() *Tracker {
	return &Tracker{}
}

// AddError records a failure.
func (t *Tracker) AddError(errType, message, context string, recoverable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, ErrorRecord{
		Type:        errType,
		Message:     message,
		Context:     context,
		Recoverable: recoverable,
		Timestamp:   time.Now().UTC(),
	})
}

// AddSuccess records a successful operation.
func (t *Tracker) AddSuccess(operation, context string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successes = append(t.successes, SuccessRecord{
		Operation: operation,
		Context:   context,
		Timestamp: time.Now().UTC(),
	})
}

// AddWarning records a non-fatal observation.
func (t *Tracker) AddWarning(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.warnings = append(t.warnings, message)
}

// Errors returns a copy of the recorded errors.
func (t *Tracker) Errors() []ErrorRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ErrorRecord, len(t.errors))
	copy(out, t.errors)
	return out
}

// HasFatalErrors reports whether any non-recoverable error was recorded.
func (t *Tracker) HasFatalErrors() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.errors {
		if !e.Recoverable {
			return true
		}
	}
	return false
}

// Summarize returns counters for the run summary record.
func (t *Tracker) Summarize() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	fatal := 0
	for _, e := range t.errors {
		if !e.Recoverable {
			fatal++
		}
	}
	return Summary{
		Successes:   len(t.successes),
		Errors:      len(t.errors),
		Warnings:    len(t.warnings),
		FatalErrors: fatal,
	}
}

// LogSummary emits the run's tracked events through the global logger.
// Only the most recent errors and warnings are listed individually.
func (t *Tracker) LogSummary() {
	t.mu.Lock()
	defer t.mu.Unlock()

	zap.L().Info("run event summary",
		zap.Int("successes", len(t.successes)),
		zap.Int("errors", len(t.errors)),
		zap.Int("warnings", len(t.warnings)),
	)

	const tail = 5
	start := 0
	if len(t.errors) > tail {
		start = len(t.errors) - tail
	}
	for _, e := range t.errors[start:] {
		zap.L().Warn("run error",
			zap.String("type", e.Type),
			zap.String("message", e.Message),
			zap.String("context", e.Context),
			zap.Bool("recoverable", e.Recoverable),
		)
	}
}
