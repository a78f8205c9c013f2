// Package pattern encodes and decodes per-rank block descriptors exchanged between writer and
// reader groups. Decoding fails closed: any missing or mistyped required field is a protocol error.
package pattern

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/bits"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/hash"
)

// Document is a decoded pattern of a single rank.
type Document struct {
	Doid   string
	Rank   int
	Blocks []types.Block
}

type document struct {
	Doid   string     `json:"doid"`
	Rank   *int       `json:"rank,omitempty"`
	Blocks []blockDoc `json:"blocks"`
}

type blockDoc struct {
	Var         string         `json:"var"`
	Dtype       types.DataType `json:"dtype"`
	Order       types.Order    `json:"order,omitempty"`
	Shape       []uint64       `json:"shape"`
	Start       []uint64       `json:"start"`
	Count       []uint64       `json:"count"`
	BufferStart uint64         `json:"bufferStart"`
	BufferCount uint64         `json:"bufferCount"`
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = jsonschema.CompileString(schemaURL, Schema)
	})
	return compiled, compileErr
}

func nonNil(dims []uint64) []uint64 {
	if dims == nil {
		return []uint64{}
	}
	return dims
}

// Encode serializes blocks of a rank.
func Encode(doid string, rank int, blocks []types.Block) ([]byte, error) {
	doc := document{
		Doid:   doid,
		Rank:   &rank,
		Blocks: make([]blockDoc, 0, len(blocks)),
	}
	for i := range blocks {
		b := &blocks[i]
		if !b.Type.Valid() {
			return nil, fmt.Errorf("encode %s: invalid dtype %s", b.Name, b.Type)
		}
		doc.Blocks = append(doc.Blocks, blockDoc{
			Var:         b.Name,
			Dtype:       b.Type,
			Order:       b.Order,
			Shape:       nonNil(b.Shape),
			Start:       nonNil(b.Start),
			Count:       nonNil(b.Count),
			BufferStart: b.BufferStart,
			BufferCount: b.BufferCount,
		})
	}
	data, err := json.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal pattern: %w", err)
	}
	return data, nil
}

// Decode parses a single document. Every failure wraps types.ErrProtocol.
func Decode(data []byte) (*Document, error) {
	sch, err := schema()
	if err != nil {
		return nil, fmt.Errorf("compile pattern schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: unmarshal pattern: %w", types.ErrProtocol, err)
	}
	if err := sch.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: validate pattern: %w", types.ErrProtocol, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: unmarshal pattern: %w", types.ErrProtocol, err)
	}
	rst := &Document{
		Doid:   doc.Doid,
		Rank:   -1,
		Blocks: make([]types.Block, 0, len(doc.Blocks)),
	}
	if doc.Rank != nil {
		rst.Rank = *doc.Rank
	}
	for _, bd := range doc.Blocks {
		b := types.Block{
			Name:        bd.Var,
			Type:        bd.Dtype,
			Order:       bd.Order,
			Shape:       bd.Shape,
			Start:       bd.Start,
			Count:       bd.Count,
			BufferStart: bd.BufferStart,
			BufferCount: bd.BufferCount,
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if b.BufferCount != b.Bytes() {
			return nil, fmt.Errorf("%w: variable %s: buffer count %d doesn't match block size %d",
				types.ErrProtocol, b.Name, b.BufferCount, b.Bytes())
		}
		if _, carry := bits.Add64(b.BufferStart, b.BufferCount, 0); carry != 0 {
			return nil, fmt.Errorf("%w: variable %s: buffer start %d + count %d overflows",
				types.ErrProtocol, b.Name, b.BufferStart, b.BufferCount)
		}
		rst.Blocks = append(rst.Blocks, b)
	}
	return rst, nil
}

// DecodeRank decodes a document and checks that it belongs to the stream and rank.
func DecodeRank(doid string, rank int, data []byte) ([]types.Block, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: rank %d didn't publish a pattern", types.ErrProtocol, rank)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("rank %d: %w", rank, err)
	}
	if doc.Doid != doid {
		return nil, fmt.Errorf("%w: rank %d: pattern for stream %q, expected %q",
			types.ErrProtocol, rank, doc.Doid, doid)
	}
	if doc.Rank >= 0 && doc.Rank != rank {
		return nil, fmt.Errorf("%w: pattern from rank %d claims rank %d", types.ErrProtocol, rank, doc.Rank)
	}
	return doc.Blocks, nil
}

// DecodeGlobal decodes one document per writer rank into the global write pattern.
func DecodeGlobal(doid string, payloads [][]byte) (types.GlobalPattern, error) {
	global := make(types.GlobalPattern, len(payloads))
	for rank, data := range payloads {
		blocks, err := DecodeRank(doid, rank, data)
		if err != nil {
			return nil, err
		}
		global[rank] = blocks
	}
	return global, nil
}

// Fingerprint hashes the canonical serialized form of the global pattern.
// Equal fingerprints mean that the pattern didn't move.
func Fingerprint(doid string, global types.GlobalPattern) (hash.Hash32, error) {
	chunks := make([][]byte, 0, 2*len(global))
	for rank, blocks := range global {
		data, err := Encode(doid, rank, blocks)
		if err != nil {
			return hash.Hash32{}, err
		}
		chunks = append(chunks, binary.AppendUvarint(nil, uint64(len(data))), data)
	}
	return hash.Sum(chunks...), nil
}

// Diff returns human readable difference between two patterns, empty if they are equal.
func Diff(prev, next types.GlobalPattern) string {
	return cmp.Diff(prev, next)
}
