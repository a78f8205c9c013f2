package reader

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/spacemeshos/go-ssc/common/types"
)

// discovery is the outcome of the work that makes the next step available.
type discovery struct {
	// global is nil if the write pattern was not exchanged.
	global  types.GlobalPattern
	changed bool
	err     error
}

// task runs discovery on the background goroutine. Result is written before done is closed
// and must be read only after done is closed.
type task struct {
	done   chan struct{}
	result discovery
}

// ready is true if the task completed.
func (t *task) ready() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// wait returns true once the task completed. Zero timeout polls, negative waits until completion
// or until ctx is canceled.
func (t *task) wait(ctx context.Context, clock clockwork.Clock, timeout time.Duration) (bool, error) {
	if t.ready() {
		return true, nil
	}
	if timeout == 0 {
		return false, nil
	}
	var expired <-chan time.Time
	if timeout > 0 {
		timer := clock.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.Chan()
	}
	select {
	case <-t.done:
		return true, nil
	case <-expired:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
