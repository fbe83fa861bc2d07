package viewport

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ensigniasec/propmap/internal/api"
	"github.com/ensigniasec/propmap/internal/geo"
)

//go:generate mockgen -source=hook.go -destination=mocks/hook.go -package=mocks Hook

// DefaultSimulatedDelay is the latency of SimulatedHook when none is set.
const DefaultSimulatedDelay = time.Second

// Hook is notified once per settled viewport. Implementations must return when ctx
// is cancelled.
type Hook interface {
	NotifyRegion(ctx context.Context, region geo.Region) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, region geo.Region) error

func (f HookFunc) NotifyRegion(ctx context.Context, region geo.Region) error {
	return f(ctx, region)
}

// SimulatedHook stands in for a backend: it logs the region and waits Delay.
type SimulatedHook struct {
	Delay time.Duration
}

func (h SimulatedHook) NotifyRegion(ctx context.Context, region geo.Region) error {
	d := h.Delay
	if d <= 0 {
		d = DefaultSimulatedDelay
	}
	logrus.Debugf("simulated sync for %s", region)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MultiHook notifies every hook concurrently and joins their errors.
type MultiHook []Hook

func (m MultiHook) NotifyRegion(ctx context.Context, region geo.Region) error {
	errs := make([]error, len(m))
	var g errgroup.Group
	for i, h := range m {
		g.Go(func() error {
			errs[i] = h.NotifyRegion(ctx, region)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// RetryHook retries a failing hook with exponential backoff. Unauthorized,
// validation and not-found errors are not retried; rate-limit responses wait for
// the advertised Retry-After before the next attempt.
type RetryHook struct {
	next     Hook
	attempts uint64
	initial  time.Duration
	max      time.Duration
}

// RetryOption configures a RetryHook.
type RetryOption func(*RetryHook)

// WithBackoff sets the first and the largest wait between attempts.
func WithBackoff(initial, maxWait time.Duration) RetryOption {
	return func(h *RetryHook) {
		h.initial = initial
		h.max = maxWait
	}
}

// NewRetryHook wraps next with at most attempts calls in total.
func NewRetryHook(next Hook, attempts int, opts ...RetryOption) *RetryHook {
	if attempts < 1 {
		attempts = 1
	}
	h := &RetryHook{
		next:     next,
		attempts: uint64(attempts),
		initial:  250 * time.Millisecond,
		max:      5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *RetryHook) NotifyRegion(ctx context.Context, region geo.Region) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = h.initial
	eb.MaxInterval = h.max
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, h.attempts-1), ctx)

	op := func() error {
		err := h.next.NotifyRegion(ctx, region)
		if err == nil {
			return nil
		}
		if permanent(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		var rl api.RateLimitedError
		if errors.As(err, &rl) && rl.RetryAfterSeconds > 0 {
			wait := time.NewTimer(time.Duration(rl.RetryAfterSeconds) * time.Second)
			defer wait.Stop()
			select {
			case <-ctx.Done():
				return backoff.Permanent(err)
			case <-wait.C:
			}
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logrus.Debugf("sync failed, retrying in %s: %v", next, err)
	}
	return backoff.RetryNotify(op, b, notify)
}

func permanent(err error) bool {
	return errors.Is(err, api.ErrUnauthorized) ||
		errors.Is(err, api.ErrValidation) ||
		errors.Is(err, api.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
