package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Delays returns the waits between consecutive attempts: base, 2*base,
// 4*base, ... with one entry less than MaxAttempts.
func Delays(p Policy) []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}

	delays := make([]time.Duration, 0, p.MaxAttempts-1)
	for i := 0; i < p.MaxAttempts-1; i++ {
		delays = append(delays, p.BaseDelay<<i)
	}

	return delays
}

// Permanent marks err as not worth retrying. Do returns it unwrapped.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func IsPermanent(err error) bool {
	var permanent *backoff.PermanentError
	return errors.As(err, &permanent)
}

// Do calls fn until it succeeds, returns a Permanent error, ctx is done or the
// attempts of p are exhausted. The last error is returned.
func Do(ctx context.Context, p Policy, fn func() error) error {
	return DoNotify(ctx, p, fn, nil)
}

// DoNotify is Do with a hook called before every wait.
func DoNotify(ctx context.Context, p Policy, fn func() error, notify func(err error, wait time.Duration)) error {
	b := backoff.WithContext(&schedule{delays: Delays(p)}, ctx)

	var n backoff.Notify
	if notify != nil {
		n = backoff.Notify(notify)
	}

	return backoff.RetryNotify(fn, b, n)
}

type schedule struct {
	delays []time.Duration
	next   int
}

func (s *schedule) NextBackOff() time.Duration {
	if s.next >= len(s.delays) {
		return backoff.Stop
	}

	d := s.delays[s.next]
	s.next++
	return d
}

func (s *schedule) Reset() {
	s.next = 0
}
