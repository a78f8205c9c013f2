package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/libp2p/go-msgio"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-ssc/codec"
	"github.com/spacemeshos/go-ssc/fabric"
	"github.com/spacemeshos/go-ssc/log"
)

// ServerError is an error reported by the writer that serves the window.
type ServerError struct {
	msg string
}

func (*ServerError) Is(target error) bool {
	_, ok := target.(*ServerError)
	return ok
}

func (err *ServerError) Error() string {
	return fmt.Sprintf("window server: %s", err.msg)
}

type conn struct {
	mu  sync.Mutex
	raw net.Conn
	rd  msgio.ReadCloser
	bw  *bufio.Writer
	wr  msgio.WriteCloser
}

// Window reads windows of writers served by Server. Requests to the same writer
// share one connection and are served in order.
type Window struct {
	options
	addrs  []string
	dialer net.Dialer

	mu     sync.Mutex
	closed bool
	conns  map[int]*conn
}

// NewWindow returns window over writers, addrs is indexed by writer rank.
func NewWindow(addrs []string, opts ...Opt) *Window {
	return &Window{
		options: newOptions(opts),
		addrs:   addrs,
		conns:   make(map[int]*conn),
	}
}

func (w *Window) connect(ctx context.Context, rank int) (*conn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, fabric.ErrClosed
	}
	if c, exist := w.conns[rank]; exist {
		return c, nil
	}
	raw, err := w.dialer.DialContext(ctx, "tcp", w.addrs[rank])
	if err != nil {
		return nil, fmt.Errorf("dial writer %d at %s: %w", rank, w.addrs[rank], err)
	}
	bw := bufio.NewWriter(raw)
	c := &conn{
		raw: raw,
		rd:  msgio.NewVarintReaderSize(raw, frameLimit(w.config)),
		bw:  bw,
		wr:  msgio.NewVarintWriter(bw),
	}
	w.conns[rank] = c
	w.logger.Debug("connected to writer window", log.ZRank("rank", rank), zap.String("address", w.addrs[rank]))
	return c, nil
}

func (w *Window) drop(rank int, c *conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conns[rank] == c {
		delete(w.conns, rank)
	}
	c.raw.Close()
}

func (w *Window) Get(ctx context.Context, rank int, offset uint64, dst []byte) (fabric.Request, error) {
	if rank < 0 || rank >= len(w.addrs) {
		return nil, fmt.Errorf("window: unknown writer rank %d", rank)
	}
	if len(dst) > w.config.MaxMessageSize {
		return nil, fmt.Errorf("window: read of %d bytes exceeds limit %d", len(dst), w.config.MaxMessageSize)
	}
	c, err := w.connect(ctx, rank)
	if err != nil {
		return nil, err
	}
	req := fabric.NewPending()
	go func() {
		start := time.Now()
		err := w.roundTrip(ctx, rank, c, &Request{Offset: offset, Length: uint64(len(dst))}, dst)
		if err != nil {
			clientFailures.Observe(time.Since(start).Seconds())
		} else {
			clientOk.Observe(time.Since(start).Seconds())
		}
		req.Complete(err)
	}()
	return req, nil
}

func (w *Window) roundTrip(ctx context.Context, rank int, c *conn, req *Request, dst []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline := time.Time{}
	if w.config.Timeout > 0 {
		deadline = time.Now().Add(w.config.Timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	c.raw.SetDeadline(deadline)

	var resp Response
	err := func() error {
		if err := c.wr.WriteMsg(codec.MustEncode(req)); err != nil {
			return err
		}
		if err := c.bw.Flush(); err != nil {
			return err
		}
		msg, err := c.rd.ReadMsg()
		if err != nil {
			return err
		}
		return codec.Decode(msg, boundedResponse{Response: &resp, limit: uint32(w.config.MaxMessageSize)})
	}()
	if err != nil {
		w.drop(rank, c)
		return fmt.Errorf("read window of writer %d: %w", rank, err)
	}
	if resp.Error != "" {
		return &ServerError{msg: resp.Error}
	}
	if len(resp.Data) != len(dst) {
		return fmt.Errorf("read window of writer %d: got %d bytes, expected %d", rank, len(resp.Data), len(dst))
	}
	copy(dst, resp.Data)
	return nil
}

// Close closes connections to all writers. Requests in flight fail.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	var errs []error
	for rank, c := range w.conns {
		if err := c.raw.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection to writer %d: %w", rank, err))
		}
	}
	clear(w.conns)
	return errors.Join(errs...)
}

var _ fabric.Window = (*Window)(nil)
