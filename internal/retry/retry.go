// Package retry re-runs filesystem operations that fail because another
// process holds the file, backing off exponentially between attempts.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/platform"
)

// Policy bounds the retries of a single operation.
type Policy struct {
	Attempts   int
	Delay      time.Duration
	Multiplier float64

	// Retryable decides whether an error is worth another attempt.
	// Defaults to platform.IsBusy.
	Retryable func(error) bool
}

// Default is used when a caller has no configured policy.
var Default = Policy{Attempts: 5, Delay: 200 * time.Millisecond, Multiplier: 2}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.Retryable == nil {
		p.Retryable = platform.IsBusy
	}
	return p
}

// Do runs action until it succeeds, fails with a non-retryable error, or
// the attempts run out. Exhaustion is reported as failure.ErrResourceBusy
// wrapping the last error.
func Do(ctx context.Context, p Policy, log *slog.Logger, what string, action func() error) error {
	p = p.normalized()
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	interval := p.Delay

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err = action()
		if err == nil {
			return nil
		}
		if !p.Retryable(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}

		log.Warn("resource busy, retrying",
			"target", what,
			"attempt", attempt,
			"max_attempts", p.Attempts,
			"retry_delay", interval.String(),
			"error", err)

		if serr := sleep(ctx, interval); serr != nil {
			return errors.Join(err, serr)
		}
		interval = time.Duration(float64(interval) * p.Multiplier)
	}

	log.Warn("resource busy, giving up", "target", what, "attempts", p.Attempts, "error", err)
	return failure.Wrap(failure.ErrResourceBusy, err, "%s still in use after %d attempts", what, p.Attempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
