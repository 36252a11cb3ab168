// Package poller blocks until a polled resource leaves a known state.
//
// Cloud APIs used by the orchestrator offer no push notifications, so
// [WaitUntil] re-reads the resource status with exponential backoff until
// it differs from the expected prior state or the wait bound elapses. A
// timeout is reported as [*TimeoutError], distinct from errors returned by
// the status getter.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/lambda-provisioner/internal/util/retry"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("poll timed out")

// TimeoutError reports that a resource kept its prior state for the whole wait.
type TimeoutError struct {
	ResourceID string
	Prior      string
	Last       string
	Waited     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("resource %s still %s after %v (last status %s)", e.ResourceID, e.Prior, e.Waited.Round(time.Millisecond), e.Last)
}

// Is makes errors.Is(err, ErrTimeout) true.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Config controls the poll interval schedule.
type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// OnPoll is called with every observed status.
	OnPoll func(status string)
}

// Option is a functional option for poll configuration.
type Option func(*Config)

// WithInterval sets the first and the maximum delay between polls.
func WithInterval(initial, maxInterval time.Duration) Option {
	return func(c *Config) {
		c.InitialInterval = initial
		c.MaxInterval = maxInterval
	}
}

// WithMultiplier sets the interval growth factor.
func WithMultiplier(m float64) Option {
	return func(c *Config) {
		c.Multiplier = m
	}
}

// WithObserver registers a callback invoked with each observed status.
func WithObserver(fn func(status string)) Option {
	return func(c *Config) {
		c.OnPoll = fn
	}
}

// Getter reads the current status of the polled resource.
type Getter[S comparable] func(ctx context.Context) (S, error)

// WaitUntil polls get until the status differs from prior, returning the new status.
//
// A getter error aborts the wait and is returned unchanged. When maxWait
// elapses first, the last observed status is returned with a *TimeoutError.
func WaitUntil[S comparable](ctx context.Context, id string, get Getter[S], prior S, maxWait time.Duration, opts ...Option) (S, error) {
	cfg := &Config{
		InitialInterval: 2 * time.Second,
		MaxInterval:     15 * time.Second,
		Multiplier:      1.5,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	backoff := retry.NewBackoff(
		retry.WithInitialDelay(cfg.InitialInterval),
		retry.WithMaxDelay(cfg.MaxInterval),
		retry.WithMultiplier(cfg.Multiplier),
	)

	start := time.Now()
	deadline := start.Add(maxWait)

	for {
		status, err := get(ctx)
		if err != nil {
			return status, err
		}
		if cfg.OnPoll != nil {
			cfg.OnPoll(fmt.Sprint(status))
		}
		if status != prior {
			return status, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return status, &TimeoutError{
				ResourceID: id,
				Prior:      fmt.Sprint(prior),
				Last:       fmt.Sprint(status),
				Waited:     time.Since(start),
			}
		}

		if err := retry.Sleep(ctx, min(backoff.Next(), remaining)); err != nil {
			return status, fmt.Errorf("wait for %s cancelled: %w", id, err)
		}
	}
}
