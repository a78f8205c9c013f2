package fetch

import (
	"context"

	"golang.org/x/sync/semaphore"
)

type limiter interface {
	Acquire(ctx context.Context, n int64) error
	Release(n int64)
}

type noLimit struct{}

func (noLimit) Acquire(context.Context, int64) error { return nil }

func (noLimit) Release(int64) {}

func newLimiter(inflight int) limiter {
	if inflight <= 0 {
		return noLimit{}
	}
	return semaphore.NewWeighted(int64(inflight))
}
