// Package retry applies bounded exponential backoff to transient API
// failures. Retries are off unless explicitly configured, matching the
// single-attempt behavior operators expect from a cron-driven relay.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"slack_line_mirror/internal/model"
)

// DefaultBase is the first backoff interval. It doubles on each retry.
const DefaultBase = 2 * time.Second

// Policy bounds retry behavior for one kind of operation. MaxRetries
// counts additional attempts after the first. The zero value performs
// exactly one attempt.
type Policy struct {
	MaxRetries int
	Base       time.Duration
}

// Do runs fn, retrying transient failures according to the policy.
// Failures outside the transient class return immediately.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	if p.MaxRetries <= 0 {
		return fn(ctx)
	}

	base := p.Base
	if base <= 0 {
		base = DefaultBase
	}

	b := goretry.WithMaxRetries(uint64(p.MaxRetries), goretry.NewExponential(base))
	return goretry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, model.ErrTransient) {
			return goretry.RetryableError(err)
		}
		return err
	})
}
