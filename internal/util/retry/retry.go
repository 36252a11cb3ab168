package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Option is a functional option for retry configuration.
type Option func(*Config)

func newConfig(opts ...Option) *Config {
	cfg := &Config{
		MaxRetries:   5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithExponentialBackoff executes the operation with exponential backoff retry.
// MaxRetries counts retries after the first attempt. Errors wrapped with
// Fatal() are returned immediately.
func WithExponentialBackoff(ctx context.Context, operation func() error, opts ...Option) error {
	cfg := newConfig(opts...)
	b := cfg.Backoff()
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}

		if attempt < cfg.MaxRetries {
			if err := Sleep(ctx, b.Next()); err != nil {
				return fmt.Errorf("context cancelled after %d attempts: %w", attempt+1, err)
			}
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries+1, lastErr)
}

// Backoff yields an exponentially growing delay capped at MaxDelay.
type Backoff struct {
	next       time.Duration
	max        time.Duration
	multiplier float64
}

// Backoff returns a delay schedule starting at InitialDelay.
func (c *Config) Backoff() *Backoff {
	return &Backoff{next: c.InitialDelay, max: c.MaxDelay, multiplier: c.Multiplier}
}

// NewBackoff builds a delay schedule from options, ignoring MaxRetries.
func NewBackoff(opts ...Option) *Backoff {
	return newConfig(opts...).Backoff()
}

// Next returns the current delay and advances the schedule.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next = time.Duration(float64(b.next) * b.multiplier)
	if b.max > 0 && b.next > b.max {
		b.next = b.max
	}
	return d
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithInitialDelay sets the initial delay between retries.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		c.InitialDelay = d
	}
}

// WithMaxDelay sets the maximum delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDelay = d
	}
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(c *Config) {
		c.Multiplier = m
	}
}

// FatalError wraps an error to mark it as fatal (non-retryable).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as fatal (non-retryable).
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal checks if an error is fatal (non-retryable).
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
