package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/libp2p/go-msgio"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spacemeshos/go-ssc/codec"
)

type Opt func(*options)

type options struct {
	logger *zap.Logger
	config Config
}

func WithLogger(logger *zap.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

func WithConfig(config Config) Opt {
	return func(o *options) {
		o.config = config
	}
}

func newOptions(opts []Opt) options {
	o := options{logger: zap.NewNop(), config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Server exposes a window of one writer.
type Server struct {
	options
	listener net.Listener
	source   io.ReaderAt
	limiter  *rate.Limiter
}

// NewServer serves reads of source on listener.
func NewServer(listener net.Listener, source io.ReaderAt, opts ...Opt) *Server {
	s := &Server{
		options:  newOptions(opts),
		listener: listener,
		source:   source,
		limiter:  rate.NewLimiter(rate.Inf, 0),
	}
	if s.config.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.Burst)
	}
	return s
}

// Addr is the address readers should dial.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run accepts connections until ctx is canceled.
func (s *Server) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	var (
		eg    errgroup.Group
		mu    sync.Mutex
		conns = map[net.Conn]struct{}{}
	)
	eg.SetLimit(s.config.MaxConns + 1)
	eg.Go(func() error {
		<-ctx.Done()
		s.listener.Close()
		mu.Lock()
		defer mu.Unlock()
		for conn := range conns {
			conn.Close()
		}
		return nil
	})
	s.logger.Info("serving window", zap.Stringer("address", s.listener.Addr()))
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			cancel()
			eg.Wait()
			if parent.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		mu.Lock()
		conns[conn] = struct{}{}
		mu.Unlock()
		eg.Go(func() error {
			defer func() {
				mu.Lock()
				delete(conns, conn)
				mu.Unlock()
				conn.Close()
			}()
			if err := s.serve(ctx, conn); err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Debug("connection failed",
					zap.Stringer("remote", conn.RemoteAddr()),
					zap.Error(err),
				)
			}
			return nil
		})
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) error {
	rd := msgio.NewVarintReaderSize(conn, frameLimit(s.config))
	bw := bufio.NewWriter(conn)
	wr := msgio.NewVarintWriter(bw)
	for {
		if s.config.Timeout > 0 {
			conn.SetDeadline(time.Now().Add(s.config.Timeout))
		}
		msg, err := rd.ReadMsg()
		if err != nil {
			return err
		}
		var req Request
		err = codec.Decode(msg, &req)
		rd.ReleaseMsg(msg)
		if err != nil {
			return fmt.Errorf("decode request: %w", err)
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		resp := s.handle(&req)
		buf, err := codec.Encode(boundedResponse{Response: resp, limit: uint32(s.config.MaxMessageSize)})
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := wr.WriteMsg(buf); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
}

func (s *Server) handle(req *Request) *Response {
	if req.Length > uint64(s.config.MaxMessageSize) {
		servedFailed.Inc()
		return &Response{Error: fmt.Sprintf("read of %d bytes exceeds limit %d", req.Length, s.config.MaxMessageSize)}
	}
	data := make([]byte, req.Length)
	if _, err := s.source.ReadAt(data, int64(req.Offset)); err != nil {
		servedFailed.Inc()
		return &Response{Error: err.Error()}
	}
	servedOk.Inc()
	servedBytes.Add(float64(len(data)))
	return &Response{Data: data}
}

// frameLimit is the largest frame on the wire, data plus error text and field prefixes.
func frameLimit(config Config) int {
	return config.MaxMessageSize + maxErrorSize + 32
}
