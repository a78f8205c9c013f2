// Package patternsync exchanges write and read patterns between the writer and reader groups.
package patternsync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/fabric"
	"github.com/spacemeshos/go-ssc/hash"
	"github.com/spacemeshos/go-ssc/log"
	"github.com/spacemeshos/go-ssc/pattern"
)

type Opt func(*Synchronizer)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

// Synchronizer holds the last global write pattern received by this reader.
//
// It is not safe for concurrent use. A reader calls it either from the foreground or from
// the single background task, never from both at once.
type Synchronizer struct {
	logger *zap.Logger
	comm   fabric.Comm
	doid   string

	synced      bool
	global      types.GlobalPattern
	fingerprint hash.Hash32
}

// New returns synchronizer for the stream identified by doid.
func New(comm fabric.Comm, doid string, opts ...Opt) *Synchronizer {
	s := &Synchronizer{
		logger: zap.NewNop(),
		comm:   comm,
		doid:   doid,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncWritePattern receives write patterns of every writer. Readers don't contribute to
// this exchange. Changed is true on the first exchange and whenever the pattern differs
// from the previous one.
//
// fabric.ErrEndOfStream is returned unwrapped if writers terminated the stream.
func (s *Synchronizer) SyncWritePattern(ctx context.Context) (types.GlobalPattern, bool, error) {
	payloads, err := s.comm.AllGather(ctx, nil)
	if err != nil {
		if errors.Is(err, fabric.ErrEndOfStream) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("gather write patterns: %w", err)
	}
	writers := s.comm.Writers()
	if len(payloads) < writers {
		syncFailed.Inc()
		return nil, false, fmt.Errorf("%w: received %d write patterns, expected %d",
			types.ErrProtocol, len(payloads), writers)
	}
	global, err := pattern.DecodeGlobal(s.doid, payloads[:writers])
	if err != nil {
		syncFailed.Inc()
		return nil, false, fmt.Errorf("write pattern: %w", err)
	}
	fingerprint, err := pattern.Fingerprint(s.doid, global)
	if err != nil {
		syncFailed.Inc()
		return nil, false, fmt.Errorf("write pattern fingerprint: %w", err)
	}
	changed := !s.synced || fingerprint != s.fingerprint
	if changed {
		syncChanged.Inc()
		if s.synced && s.logger.Core().Enabled(zap.DebugLevel) {
			s.logger.Debug("write pattern changed",
				zap.String("diff", pattern.Diff(s.global, global)),
			)
		}
		s.global = global
		s.fingerprint = fingerprint
		s.synced = true
	} else {
		syncUnchanged.Inc()
	}
	blocks := 0
	for _, wp := range s.global {
		blocks += len(wp)
	}
	writerBlocks.Set(float64(blocks))
	s.logger.Debug("synced write pattern",
		log.ZShortStringer("fingerprint", fingerprint),
		zap.Bool("changed", changed),
		zap.Int("writers", writers),
		zap.Int("blocks", blocks),
	)
	return s.global, changed, nil
}

// SyncReadPattern publishes the read pattern of this reader to the writer group.
// It returns read patterns of every reader, ordered by reader rank.
func (s *Synchronizer) SyncReadPattern(ctx context.Context, read []types.Block) ([][]types.Block, error) {
	doc, err := pattern.Encode(s.doid, s.comm.Rank(), read)
	if err != nil {
		return nil, fmt.Errorf("encode read pattern: %w", err)
	}
	payloads, err := s.comm.AllGather(ctx, doc)
	if err != nil {
		if errors.Is(err, fabric.ErrEndOfStream) {
			return nil, err
		}
		return nil, fmt.Errorf("gather read patterns: %w", err)
	}
	writers := s.comm.Writers()
	if len(payloads) != writers+s.comm.Size() {
		return nil, fmt.Errorf("%w: received %d patterns, expected %d",
			types.ErrProtocol, len(payloads), writers+s.comm.Size())
	}
	readers := make([][]types.Block, 0, s.comm.Size())
	for rank, payload := range payloads[writers:] {
		blocks, err := pattern.DecodeRank(s.doid, rank, payload)
		if err != nil {
			return nil, fmt.Errorf("read pattern: %w", err)
		}
		readers = append(readers, blocks)
	}
	s.logger.Debug("published read pattern",
		log.ZRank("rank", s.comm.Rank()),
		zap.Int("blocks", len(read)),
	)
	return readers, nil
}

// Global returns the last received write pattern.
func (s *Synchronizer) Global() types.GlobalPattern {
	return s.global
}
