package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPollInterval = time.Second
	DefaultRunTimeout   = 3 * time.Minute
)

// Poller waits for a run to reach a terminal state
type Poller struct {
	Interval time.Duration
	// Timeout bounds the whole wait; zero disables the bound
	Timeout time.Duration
	// CancelOnTimeout asks the backend to abort a run that timed out
	CancelOnTimeout bool
}

// DefaultPoller returns the poller used when none is configured
func DefaultPoller() Poller {
	return Poller{
		Interval:        DefaultPollInterval,
		Timeout:         DefaultRunTimeout,
		CancelOnTimeout: true,
	}
}

// Wait calls fetch until it reports a terminal run and returns that run.
// It never fetches again once a terminal status has been observed.
func (p Poller) Wait(ctx context.Context, runID string, fetch func(context.Context) (*Run, error)) (*Run, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	start := time.Now()
	var deadline <-chan time.Time
	if p.Timeout > 0 {
		timer := time.NewTimer(p.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last RunStatus
	for {
		run, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		if run.Status != last {
			if last != "" && !CanTransition(last, run.Status) {
				log.Warn().
					Str("run_id", runID).
					Str("from", string(last)).
					Str("to", string(run.Status)).
					Msg("unexpected run status transition")
			}
			log.Debug().Str("run_id", runID).Str("status", string(run.Status)).Msg("run status changed")
			last = run.Status
		}

		if run.Status.Terminal() {
			return run, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for run %s: %w", runID, ctx.Err())
		case <-deadline:
			return nil, &TimeoutError{RunID: runID, Elapsed: time.Since(start)}
		case <-ticker.C:
		}
	}
}

// RetryPolicy bounds retries of idempotent backend calls
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the retry policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// withRetry runs op until it succeeds, fails permanently or attempts run out.
// Only transient transport errors are retried.
func withRetry[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	if policy.MaxAttempts <= 1 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}

	attempt := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op()
		if err == nil {
			return v, nil
		}
		if !isRetryable(err) {
			return v, backoff.Permanent(err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("transient backend error, retrying")
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(policy.MaxAttempts)))

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	return res, err
}
