package decoders

import (
	"context"

	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/metrics"
)

// DecodedFrame is what a decoder reports back for one picture. Timestamp
// echoes the timestamp of the chunk the picture came from.
type DecodedFrame struct {
	Timestamp   int64
	Width       int
	Height      int
	PictureType h264.PictureType
}

// Decoder is a decode engine fed with assembled chunks. Frames produced by
// Decode are held until Flush, which also drains the engine. Configure has
// to be called again after a Flush.
type Decoder interface {
	Configure(config h264.DecoderConfig) error
	Decode(chunk h264.Chunk) error
	Flush() ([]DecodedFrame, error)
	Close()
}

type TrackedFrame struct {
	Chunk h264.Chunk
	Frame DecodedFrame
}

// FrameTracker pairs decoded frames with the chunks they were decoded from
// and counts the picture types the decoder reported.
type FrameTracker struct {
	pending   map[int64]h264.Chunk
	frames    []TrackedFrame
	unmatched int
	stats     h264.FrameTypeStats
}

func NewFrameTracker() *FrameTracker {
	return &FrameTracker{pending: map[int64]h264.Chunk{}}
}

func (t *FrameTracker) Submitted(c h264.Chunk) {
	t.pending[c.Timestamp] = c
}

// Decoded matches f to its chunk. Frames with an unknown timestamp are
// counted but not tracked.
func (t *FrameTracker) Decoded(f DecodedFrame) (TrackedFrame, bool) {
	t.stats.Add(f.PictureType)
	metrics.DecodedFrames.WithLabelValues(string(f.PictureType)).Inc()

	c, ok := t.pending[f.Timestamp]
	if !ok {
		t.unmatched++
		return TrackedFrame{}, false
	}
	delete(t.pending, f.Timestamp)

	tracked := TrackedFrame{Chunk: c, Frame: f}
	t.frames = append(t.frames, tracked)
	return tracked, true
}

func (t *FrameTracker) Frames() []TrackedFrame {
	return t.frames
}

func (t *FrameTracker) Pending() int {
	return len(t.pending)
}

func (t *FrameTracker) Unmatched() int {
	return t.unmatched
}

func (t *FrameTracker) Stats() h264.FrameTypeStats {
	return t.stats
}

// Report summarizes a decode run.
type Report struct {
	Frames    []TrackedFrame
	Stats     h264.FrameTypeStats
	Undecoded int
	Unmatched int
}

// Run configures d, decodes every chunk in order and flushes it.
func Run(ctx context.Context, d Decoder, config h264.DecoderConfig, chunks []h264.Chunk) (*Report, error) {
	if err := d.Configure(config); err != nil {
		return nil, err
	}

	tracker := NewFrameTracker()
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tracker.Submitted(c)
		if err := d.Decode(c); err != nil {
			return nil, err
		}
	}

	frames, err := d.Flush()
	if err != nil {
		return nil, err
	}
	for _, f := range frames {
		tracker.Decoded(f)
	}

	return &Report{
		Frames:    tracker.Frames(),
		Stats:     tracker.Stats(),
		Undecoded: tracker.Pending(),
		Unmatched: tracker.Unmatched(),
	}, nil
}
