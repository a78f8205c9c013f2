// Package sim runs writers and readers of one stream in a single process and verifies
// that every reader receives exactly what writers published.
package sim

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/config"
	"github.com/spacemeshos/go-ssc/fabric"
	"github.com/spacemeshos/go-ssc/fabric/local"
	"github.com/spacemeshos/go-ssc/fabric/remote"
	"github.com/spacemeshos/go-ssc/fetch"
	"github.com/spacemeshos/go-ssc/hash"
	"github.com/spacemeshos/go-ssc/log"
	"github.com/spacemeshos/go-ssc/reader"
	"github.com/spacemeshos/go-ssc/writersim"
)

// Logger names.
const (
	ReaderLogger = "reader"
	WriterLogger = "writer"
	RemoteLogger = "remote"
	FabricLogger = "fabric"
)

// ReaderReport summarizes what one reader consumed.
type ReaderReport struct {
	Rank     int    `json:"rank"`
	Steps    int    `json:"steps"`
	NotReady int    `json:"not_ready"`
	Bytes    uint64 `json:"bytes"`
	// Digest is blake3 of every value read, in step order.
	Digest string `json:"digest"`
}

// Report of the run.
type Report struct {
	DOID      string         `json:"doid"`
	Transport string         `json:"transport"`
	Mode      string         `json:"mode"`
	Writers   int            `json:"writers"`
	Duration  string         `json:"duration"`
	Readers   []ReaderReport `json:"readers"`
}

// Write stores the report as JSON. File is replaced atomically.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

type Opt func(*Sim)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Sim) {
		s.logger = logger
	}
}

// WithNamedLogger overwrites logger of the component. Components without a named logger use
// a child of the main logger.
func WithNamedLogger(name string, logger *zap.Logger) Opt {
	return func(s *Sim) {
		s.loggers[name] = logger
	}
}

// Sim is a world of writers and readers exchanging one stream.
type Sim struct {
	logger  *zap.Logger
	loggers map[string]*zap.Logger
	cfg     config.Config
	shape   []uint64
}

func New(cfg config.Config, opts ...Opt) (*Sim, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Sim{
		logger:  zap.NewNop(),
		loggers: map[string]*zap.Logger{},
		cfg:     cfg,
	}
	for _, dim := range cfg.Shape {
		s.shape = append(s.shape, uint64(dim))
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.DOID == "" {
		s.cfg.DOID = uuid.NewString()
	}
	return s, nil
}

func (s *Sim) named(name string) *zap.Logger {
	if logger, ok := s.loggers[name]; ok {
		return logger
	}
	return s.logger.Named(name)
}

// DOID of the simulated stream.
func (s *Sim) DOID() string {
	return s.cfg.DOID
}

// Run publishes every step and returns once all readers observed the end of stream.
func (s *Sim) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	world := local.New(s.cfg.Writers, s.cfg.Readers, local.WithLogger(s.named(FabricLogger)))

	var (
		servers           errgroup.Group
		srvCtx, stopServe = context.WithCancel(ctx)
	)
	defer func() {
		stopServe()
		servers.Wait()
	}()
	windows := make([]fabric.Window, s.cfg.Readers)
	switch s.cfg.Transport {
	case config.LocalTransport:
		for i := range windows {
			windows[i] = world.Reader(i)
		}
	case config.TCPTransport:
		addrs := make([]string, 0, s.cfg.Writers)
		for rank := range s.cfg.Writers {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return nil, fmt.Errorf("listen for writer %d: %w", rank, err)
			}
			srv := remote.NewServer(ln, world.Source(rank),
				remote.WithLogger(s.named(RemoteLogger).With(log.ZRank("writer", rank))),
				remote.WithConfig(s.cfg.Remote),
			)
			addrs = append(addrs, srv.Addr().String())
			servers.Go(func() error {
				return srv.Run(srvCtx)
			})
		}
		for i := range windows {
			windows[i] = remote.NewWindow(addrs,
				remote.WithLogger(s.named(RemoteLogger).With(log.ZRank("reader", i))),
				remote.WithConfig(s.cfg.Remote),
			)
		}
	}

	readers := make([]*reader.Reader, 0, s.cfg.Readers)
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for rank := range s.cfg.Readers {
		r, err := reader.New(s.cfg.DOID, world.Reader(rank), windows[rank],
			reader.WithLogger(s.named(ReaderLogger)),
			reader.WithConfig(s.cfg.Reader),
			reader.WithFetchOptions(fetch.WithConfig(s.cfg.Fetch)),
		)
		if err != nil {
			return nil, fmt.Errorf("open reader %d: %w", rank, err)
		}
		readers = append(readers, r)
	}

	report := &Report{
		DOID:      s.cfg.DOID,
		Transport: s.cfg.Transport,
		Mode:      s.cfg.Reader.SyncMode.String(),
		Writers:   s.cfg.Writers,
		Readers:   make([]ReaderReport, s.cfg.Readers),
	}
	steps := plan(s.cfg.Seed, s.cfg.Reader.SyncMode, s.shape, s.cfg.Writers, s.cfg.Steps)
	eg, ctx := errgroup.WithContext(ctx)
	for rank := range s.cfg.Writers {
		w := writersim.New(world.Writer(rank), s.cfg.DOID, s.cfg.Reader.SyncMode,
			writersim.WithLogger(s.named(WriterLogger)),
		)
		eg.Go(func() error {
			return w.Run(ctx, steps[rank])
		})
	}
	for rank, r := range readers {
		eg.Go(func() error {
			rst, err := s.consume(ctx, rank, r)
			if err != nil {
				return fmt.Errorf("reader %d: %w", rank, err)
			}
			report.Readers[rank] = *rst
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start).String()
	s.logger.Info("stream consumed",
		zap.String("doid", s.cfg.DOID),
		zap.Int("steps", s.cfg.Steps),
		zap.Stringer("duration", time.Since(start)),
	)
	return report, nil
}

func (s *Sim) consume(ctx context.Context, rank int, r *reader.Reader) (*ReaderReport, error) {
	start, count := selection(s.shape, s.cfg.Readers, rank)
	var n uint64 = 1
	for _, c := range count {
		n *= c
	}
	if n > 0 {
		if err := r.Select(fieldVar, types.TypeInt64, s.shape, start, count); err != nil {
			return nil, err
		}
	}
	if err := r.Select(timeVar, types.TypeFloat64, nil, nil, nil); err != nil {
		return nil, err
	}

	hasher := hash.GetHasher()
	defer hash.PutHasher(hasher)
	hasher.Reset()
	rst := &ReaderReport{Rank: rank}
	field := make([]int64, n)
	clock := make([]float64, 1)
	buf := make([]byte, 0, 8*n)
	for {
		status, err := r.BeginStep(ctx, types.StepModeRead, -1)
		switch status {
		case types.StatusEndOfStream:
			rst.Digest = fmt.Sprintf("%x", hasher.Sum(nil))
			return rst, nil
		case types.StatusNotReady:
			rst.NotReady++
			continue
		case types.StatusError:
			return nil, err
		}
		step := int(r.CurrentStep())
		if n > 0 {
			if err := reader.GetDeferred(ctx, r, fieldVar, field); err != nil {
				return nil, err
			}
		}
		if err := reader.GetDeferred(ctx, r, timeVar, clock); err != nil {
			return nil, err
		}
		if err := r.EndStep(ctx); err != nil {
			return nil, err
		}
		if blocks, err := r.BlocksInfo(fieldVar, int64(step)); err == nil {
			s.named(ReaderLogger).Debug("step consumed",
				log.ZStep(int64(step)),
				log.ZRank("reader", rank),
				zap.Int("field blocks", len(blocks)),
			)
		}
		if err := verify(step, s.shape, start, count, field, clock[0]); err != nil {
			return nil, err
		}
		buf = buf[:0]
		for _, v := range field {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
		}
		hasher.Write(buf)
		rst.Steps++
		rst.Bytes += 8 * (n + 1)
	}
}

func verify(step int, shape, start, count []uint64, field []int64, clock float64) error {
	if clock != float64(step) {
		return fmt.Errorf("step %d: time is %v", step, clock)
	}
	if len(field) == 0 {
		return nil
	}
	var (
		i    int
		errs []error
	)
	linearize(shape, start, count, func(linear uint64) {
		if expect := value(step, linear); field[i] != expect && len(errs) < 4 {
			errs = append(errs, fmt.Errorf("element %d: expected %d, got %d", linear, expect, field[i]))
		}
		i++
	})
	if errs != nil {
		return fmt.Errorf("step %d: %w", step, errors.Join(errs...))
	}
	return nil
}
