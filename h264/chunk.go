package h264

import (
	"context"
)

type ChunkKind string

const (
	ChunkKey   ChunkKind = "key"
	ChunkDelta ChunkKind = "delta"
)

// PictureType is the picture type inferred from the NALU type alone. Type 1
// slices carry both P and B pictures and are labelled P.
type PictureType string

const (
	PictureI       PictureType = "I"
	PictureP       PictureType = "P"
	PictureB       PictureType = "B"
	PictureUnknown PictureType = "?"
)

// Chunk is one decoder submission. Payload is owned by the chunk and holds
// Annex-B bytes with start codes.
type Chunk struct {
	Kind         ChunkKind   `json:"type"`
	Timestamp    int64       `json:"timestamp"`
	Payload      []byte      `json:"-"`
	InferredType PictureType `json:"inferredType"`
	// NALUIndex is the position of the slice NALU in scan order.
	NALUIndex int `json:"naluIndex"`
}

// DecoderConfig configures a decode engine before any chunk is submitted.
type DecoderConfig struct {
	Codec string `json:"codec"`
	// Description holds the SPS unit (header byte included).
	Description []byte `json:"description,omitempty"`
	CodedWidth  int    `json:"codedWidth,omitempty"`
	CodedHeight int    `json:"codedHeight,omitempty"`
}

// AssemblerState is the state threaded through an assembly. Parameter sets
// are stored as Annex-B bytes with their start codes.
type AssemblerState struct {
	LatestSPS     []byte
	LatestPPS     []byte
	PendingPrefix []byte
	FoundFirstKey bool
	NextTimestamp int64
}

// Step is the outcome of pushing one NALU.
type Step struct {
	// Chunk is set when the NALU produced a chunk.
	Chunk *Chunk
	// Config is set when an SPS refreshed the decoder configuration.
	Config *DecoderConfig
	SPS    *SPSInfo
	SPSErr error
	// Dropped is set for slices seen before the first key chunk.
	Dropped bool
}

type AssemblerOption func(*Assembler)

// WithTimestampOrigin sets the timestamp of the first chunk.
func WithTimestampOrigin(ts int64) AssemblerOption {
	return func(a *Assembler) {
		a.state.NextTimestamp = ts
	}
}

// WithTimestampStep sets the tick between consecutive chunks. Non-positive
// steps are ignored.
func WithTimestampStep(step int64) AssemblerOption {
	return func(a *Assembler) {
		if step > 0 {
			a.step = step
		}
	}
}

// WithSPSHandler registers a callback invoked for every SPS NALU with the
// result of ParseSPS.
func WithSPSHandler(fn func(*SPSInfo, error)) AssemblerOption {
	return func(a *Assembler) {
		a.onSPS = fn
	}
}

// Assembler turns NALUs into chunks. One assembler serves one stream; it is
// not safe for concurrent use.
type Assembler struct {
	state  AssemblerState
	step   int64
	onSPS  func(*SPSInfo, error)
	config *DecoderConfig
	sps    *SPSInfo
	chunks []Chunk
	pushed int
}

func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{step: 1}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Push processes the next NALU in scan order.
func (a *Assembler) Push(n NALU) Step {
	index := a.pushed
	a.pushed++

	switch {
	case n.Type == SequenceParameterSet:
		return a.pushSPS(n)

	case n.Type == PictureParameterSet:
		a.state.LatestPPS = clone(n.Data)
		a.state.PendingPrefix = a.prefix()
		return Step{}

	case n.Type == CodedSliceIDRPicture:
		payload := n.Data
		if !a.state.FoundFirstKey && a.state.PendingPrefix != nil {
			payload = concat(a.state.PendingPrefix, n.Data)
		} else {
			payload = clone(payload)
		}
		c := a.emit(ChunkKey, PictureI, payload, index)
		a.state.FoundFirstKey = true
		a.state.PendingPrefix = nil
		return Step{Chunk: c}

	case n.Type.IsSlice():
		// non-IDR slices and data partitions A-C
		if !a.state.FoundFirstKey {
			return Step{Dropped: true}
		}
		c := a.emit(ChunkDelta, PictureP, clone(n.Data), index)
		return Step{Chunk: c}
	}

	return Step{}
}

func (a *Assembler) pushSPS(n NALU) Step {
	sps, err := ParseSPS(n.Unit())
	if a.onSPS != nil {
		a.onSPS(sps, err)
	}

	a.state.LatestSPS = clone(n.Data)
	a.state.PendingPrefix = a.prefix()

	step := Step{SPS: sps, SPSErr: err}
	if sps != nil {
		config := sps.DecoderConfig
		a.config = &config
		a.sps = sps
		step.Config = &config
	}
	return step
}

func (a *Assembler) prefix() []byte {
	switch {
	case a.state.LatestSPS != nil && a.state.LatestPPS != nil:
		return concat(a.state.LatestSPS, a.state.LatestPPS)
	case a.state.LatestSPS != nil:
		return a.state.LatestSPS
	default:
		return a.state.LatestPPS
	}
}

func (a *Assembler) emit(kind ChunkKind, typ PictureType, payload []byte, index int) *Chunk {
	a.chunks = append(a.chunks, Chunk{
		Kind:         kind,
		Timestamp:    a.state.NextTimestamp,
		Payload:      payload,
		InferredType: typ,
		NALUIndex:    index,
	})
	a.state.NextTimestamp += a.step
	return &a.chunks[len(a.chunks)-1]
}

func (a *Assembler) Chunks() []Chunk {
	return a.chunks
}

// DecoderConfig returns the configuration derived from the most recent
// parsable SPS, nil when none was seen.
func (a *Assembler) DecoderConfig() *DecoderConfig {
	return a.config
}

// SPS returns the most recent parsed SPS.
func (a *Assembler) SPS() *SPSInfo {
	return a.sps
}

func (a *Assembler) State() AssemblerState {
	return a.state
}

// Assembly is the result of assembling a whole NALU list.
type Assembly struct {
	Chunks        []Chunk
	DecoderConfig *DecoderConfig
	SPS           *SPSInfo
	// SPSErrors holds the ParseSPS errors in scan order.
	SPSErrors []error
	Dropped   int
}

// Assemble runs a fresh assembler over nalus.
func Assemble(nalus []NALU, opts ...AssemblerOption) *Assembly {
	assembly, _ := AssembleContext(context.Background(), nalus, opts...)
	return assembly
}

// AssembleContext is Assemble with a cancellation check between NALUs. On
// cancellation the partial assembly is returned with the context error.
func AssembleContext(ctx context.Context, nalus []NALU, opts ...AssemblerOption) (*Assembly, error) {
	a := NewAssembler(opts...)
	assembly := &Assembly{}

	var err error
	for _, n := range nalus {
		if err = ctx.Err(); err != nil {
			break
		}
		step := a.Push(n)
		if step.SPSErr != nil {
			assembly.SPSErrors = append(assembly.SPSErrors, step.SPSErr)
		}
		if step.Dropped {
			assembly.Dropped++
		}
	}

	assembly.Chunks = a.Chunks()
	assembly.DecoderConfig = a.DecoderConfig()
	assembly.SPS = a.SPS()
	return assembly, err
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func concat(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
