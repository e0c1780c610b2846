package searchindex

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Observer is told about every guarded call once it has settled.
// outcome is "ok", "not_found", "rejected" or "error".
type Observer func(op, outcome string, elapsed time.Duration)

// GuardOptions tune Guarded. Zero values pick the defaults noted per field.
type GuardOptions struct {
	Timeout    time.Duration // per attempt, default 10s; negative disables
	MaxRetries int           // default 0
	Backoff    time.Duration // base backoff, doubled per attempt, default 200ms
	Breaker    *Breaker      // default NewBreaker(0, 0)
	Logger     *slog.Logger
	Observer   Observer
}

// Guarded wraps a Source with per-call timeout, retry with exponential
// backoff and a circuit breaker. ErrNotFound counts as a healthy answer.
type Guarded struct {
	next Source
	opts GuardOptions
}

// Guard wraps next.
func Guard(next Source, opts GuardOptions) *Guarded {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if opts.Breaker == nil {
		opts.Breaker = NewBreaker(0, 0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Guarded{next: next, opts: opts}
}

// Breaker exposes the breaker for status reporting.
func (g *Guarded) Breaker() *Breaker { return g.opts.Breaker }

func (g *Guarded) ListIndices(ctx context.Context) ([]Summary, error) {
	var out []Summary
	err := g.do(ctx, "list_indices", func(ctx context.Context) error {
		var err error
		out, err = g.next.ListIndices(ctx)
		return err
	})
	return out, err
}

func (g *Guarded) GetSettings(ctx context.Context, index string) (map[string]any, error) {
	var out map[string]any
	err := g.do(ctx, "get_settings", func(ctx context.Context) error {
		var err error
		out, err = g.next.GetSettings(ctx, index)
		return err
	})
	return out, err
}

func (g *Guarded) GetRecord(ctx context.Context, index, id string) (Record, error) {
	var out Record
	err := g.do(ctx, "get_record", func(ctx context.Context) error {
		var err error
		out, err = g.next.GetRecord(ctx, index, id)
		return err
	})
	return out, err
}

func (g *Guarded) do(ctx context.Context, op string, call func(context.Context) error) error {
	start := time.Now()
	err := g.attempts(ctx, op, call)
	if g.opts.Observer != nil {
		g.opts.Observer(op, outcome(err), time.Since(start))
	}
	return err
}

func (g *Guarded) attempts(ctx context.Context, op string, call func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		if !g.opts.Breaker.Allow() {
			return ErrCircuitOpen
		}

		err := g.once(ctx, call)
		if err == nil || errors.Is(err, ErrNotFound) {
			g.opts.Breaker.Success()
			return err
		}
		g.opts.Breaker.Failure()
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			return err
		}
		if attempt < g.opts.MaxRetries {
			wait := g.opts.Backoff * (1 << uint(attempt))
			g.opts.Logger.WarnContext(ctx, "searchindex: retrying call",
				"op", op,
				"attempt", attempt+1,
				"max_retries", g.opts.MaxRetries,
				"backoff_ms", wait.Milliseconds(),
				"error", err)
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

func (g *Guarded) once(ctx context.Context, call func(context.Context) error) error {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}
	return call(ctx)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCircuitOpen):
		return "rejected"
	default:
		return "error"
	}
}
