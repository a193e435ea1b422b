package store

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"chatsync/internal/pkg/logx"
)

// RetryPolicy bounds how long a single store call may take.
type RetryPolicy struct {
	// Attempts is the number of retries after the first try.
	Attempts uint64
	// Base is the first backoff delay; later delays double.
	Base time.Duration
	// Timeout caps each individual attempt.
	Timeout time.Duration
}

const defaultRetryBase = 50 * time.Millisecond

// Budget is the longest a call can take under the policy: every attempt
// running to its timeout plus every backoff at full jitter. It is zero when
// attempts are not individually bounded.
func (p RetryPolicy) Budget() time.Duration {
	if p.Timeout <= 0 {
		return 0
	}

	delay := p.Base
	if delay <= 0 {
		delay = defaultRetryBase
	}

	total := p.Timeout * time.Duration(p.Attempts+1)
	for range p.Attempts {
		total += delay + delay/5
		delay *= 2
	}
	return total
}

type retrying struct {
	next   Store
	policy RetryPolicy
}

// WithRetry retries transient failures of next with exponential backoff.
// When the attempts run out the last error is returned as a TransientError.
func WithRetry(next Store, policy RetryPolicy) Store {
	if policy.Base <= 0 {
		policy.Base = defaultRetryBase
	}
	return &retrying{next: next, policy: policy}
}

func (r *retrying) backoff() retry.Backoff {
	b := retry.NewExponential(r.policy.Base)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(r.policy.Attempts, b)
}

func (r *retrying) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	retryable := false

	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++

		callCtx := ctx
		if r.policy.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
			defer cancel()
		}

		err := fn(callCtx)
		retryable = err != nil && (IsTransient(err) || (ctx.Err() == nil && callCtx.Err() != nil))
		if !retryable {
			return err
		}

		logx.Warn("Store call failed", "op", op, "attempt", attempt, "error", err.Error())
		return retry.RetryableError(err)
	})

	if err != nil && retryable && !IsTransient(err) {
		return &TransientError{Err: err}
	}
	return err
}

func (r *retrying) Append(ctx context.Context, m Message) (Message, error) {
	var out Message
	err := r.do(ctx, "append", func(ctx context.Context) error {
		var err error
		out, err = r.next.Append(ctx, m)
		return err
	})
	return out, err
}

func (r *retrying) Page(ctx context.Context, q PageQuery) ([]Message, error) {
	var out []Message
	err := r.do(ctx, "page", func(ctx context.Context) error {
		var err error
		out, err = r.next.Page(ctx, q)
		return err
	})
	return out, err
}

func (r *retrying) Get(ctx context.Context, id int64) (Message, error) {
	var out Message
	err := r.do(ctx, "get", func(ctx context.Context) error {
		var err error
		out, err = r.next.Get(ctx, id)
		return err
	})
	return out, err
}

func (r *retrying) MarkRead(ctx context.Context, id int64, readerID string) (Message, bool, error) {
	var (
		out     Message
		changed bool
	)
	err := r.do(ctx, "mark_read", func(ctx context.Context) error {
		var err error
		out, changed, err = r.next.MarkRead(ctx, id, readerID)
		return err
	})
	return out, changed, err
}

func (r *retrying) Close() error { return r.next.Close() }
