package streamers

import (
	"encoding/binary"
	"errors"

	"github.com/flavioribeiro/h264viewer/h264"
)

// A chunk frame is kind (1 byte) | timestamp (int64, big endian) | payload.
const chunkFrameHeaderSize = 9

const (
	frameKindKey   byte = 0
	frameKindDelta byte = 1
)

var ErrShortChunkFrame = errors.New("chunk frame is shorter than its header")

func EncodeChunkFrame(c h264.Chunk) []byte {
	frame := make([]byte, chunkFrameHeaderSize+len(c.Payload))
	frame[0] = frameKindDelta
	if c.Kind == h264.ChunkKey {
		frame[0] = frameKindKey
	}
	binary.BigEndian.PutUint64(frame[1:chunkFrameHeaderSize], uint64(c.Timestamp))
	copy(frame[chunkFrameHeaderSize:], c.Payload)
	return frame
}

// DecodeChunkFrame is the inverse of EncodeChunkFrame. The inferred picture
// type is not carried and comes back from the kind alone.
func DecodeChunkFrame(frame []byte) (h264.Chunk, error) {
	if len(frame) < chunkFrameHeaderSize {
		return h264.Chunk{}, ErrShortChunkFrame
	}
	c := h264.Chunk{
		Kind:         h264.ChunkDelta,
		InferredType: h264.PictureP,
		Timestamp:    int64(binary.BigEndian.Uint64(frame[1:chunkFrameHeaderSize])),
		Payload:      frame[chunkFrameHeaderSize:],
	}
	if frame[0] == frameKindKey {
		c.Kind = h264.ChunkKey
		c.InferredType = h264.PictureI
	}
	return c, nil
}
