// Package fabric defines the communication substrate shared by the writer and reader groups.
package fabric

import (
	"context"
	"errors"
)

//go:generate mockgen -typed -package=mocks -destination=./mocks/mocks.go -source=./fabric.go

var (
	// ErrEndOfStream is returned by collectives once the writer group terminated the stream.
	ErrEndOfStream = errors.New("end of stream")
	// ErrClosed is returned after the local endpoint was closed.
	ErrClosed = errors.New("fabric closed")
)

// Comm is the collective channel that spans both groups of a stream.
//
// Collectives are matched by their sequence on every participant, so every participant
// must issue the same collectives in the same order.
type Comm interface {
	// Rank of the local process within its group.
	Rank() int
	// Size of the local group.
	Size() int
	// Writers is the size of the writer group.
	Writers() int
	// AllGather contributes payload and returns payloads of every participant.
	// Payloads of writers come first, ordered by rank, followed by payloads of readers.
	AllGather(ctx context.Context, payload []byte) ([][]byte, error)
	// Fence is a barrier that opens or closes an access epoch on writer windows.
	Fence(ctx context.Context) error
}

// Window is the remotely readable memory exposed by the writer group.
type Window interface {
	// Get starts a one-sided read of len(dst) bytes at offset of the writer window.
	// dst must not be touched until the request completes.
	Get(ctx context.Context, rank int, offset uint64, dst []byte) (Request, error)
	Close() error
}

// Request is an in-flight one-sided read.
type Request interface {
	// Done is closed when the request completed.
	Done() <-chan struct{}
	// Wait blocks until the request completes and returns its error.
	Wait(ctx context.Context) error
}

// WaitAll waits for every request and returns the first error.
func WaitAll(ctx context.Context, requests []Request) error {
	var first error
	for _, req := range requests {
		if err := req.Wait(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Pending is a Request completed by the transport that issued it.
type Pending struct {
	done chan struct{}
	err  error
}

// NewPending returns a request that is not completed.
func NewPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Complete records the outcome of the request. It must be called exactly once.
func (p *Pending) Complete(err error) {
	p.err = err
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
