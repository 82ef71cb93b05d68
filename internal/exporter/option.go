package exporter

import (
	"context"
	"log/slog"
)

// Confirmer decides whether the failed jobs of a pass are retried.
type Confirmer interface {
	ConfirmRetry(ctx context.Context, p RetryPrompt) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p RetryPrompt) bool

func (f ConfirmFunc) ConfirmRetry(ctx context.Context, p RetryPrompt) bool { return f(ctx, p) }

// RetryUpTo accepts the first n retry prompts of a run and declines the rest.
func RetryUpTo(n int) Confirmer {
	return ConfirmFunc(func(_ context.Context, _ RetryPrompt) bool {
		if n <= 0 {
			return false
		}
		n--
		return true
	})
}

// ProgressFunc receives (done, total) after every completed job.
type ProgressFunc func(done, total int)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithConfirmer sets who is asked before failed jobs are retried. Without
// one, failures are never retried.
func WithConfirmer(c Confirmer) Option {
	return func(o *Orchestrator) { o.confirm = c }
}

// WithProgress sets the progress callback.
func WithProgress(f ProgressFunc) Option {
	return func(o *Orchestrator) { o.progress = f }
}

// WithStateObserver is called on every state transition.
func WithStateObserver(f func(State)) Option {
	return func(o *Orchestrator) { o.observe = f }
}

// WithReservedLayer names the preferences layer excluded from every copy.
func WithReservedLayer(name string) Option {
	return func(o *Orchestrator) { o.reserved = name }
}

// WithRunID uses id for every run instead of a generated UUID.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}
