// Package retry provides bounded exponential-backoff retry for storage
// connectivity, decoupled from the operations it wraps.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes a bounded backoff schedule. The delay starts at BaseDelay
// and doubles after every failed attempt, capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Storage returns the policy used for storage connection attempts:
// 5 attempts with a doubling base delay.
func Storage() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
}

// DNS returns the independent policy used for resolving the storage
// endpoint at startup.
func DNS() Policy {
	return Policy{MaxAttempts: 6, BaseDelay: time.Second, MaxDelay: 16 * time.Second}
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return fmt.Sprintf("permanent: %v", e.err) }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so Do fails immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do runs fn until it succeeds, the policy is exhausted, or ctx is done.
// The last error is wrapped with the attempt count on exhaustion.
func Do(ctx context.Context, p Policy, fn func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}

	delay := p.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", p.MaxAttempts, lastErr)
}
