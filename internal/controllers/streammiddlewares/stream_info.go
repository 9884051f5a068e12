package streammiddlewares

import (
	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/mapper"
	"go.uber.org/fx"
)

type streamInfoMiddleware struct {
	m *mapper.Mapper
}

type StreamInfoResponse struct {
	fx.Out
	StreamInfoMiddleware entities.StreamMiddleware `group:"middlewares"`
}

// NewStreamInfo creates a new StreamInfo middleware
func NewStreamInfo(m *mapper.Mapper) StreamInfoResponse {
	return StreamInfoResponse{
		StreamInfoMiddleware: &streamInfoMiddleware{m: m},
	}
}

// Act sends the stream summary to the metadata channel along with the first chunk
func (s *streamInfoMiddleware) Act(chunk h264.Chunk, sp *entities.StreamParameters) error {
	if sp.MetadataTrack == nil || sp.Analysis == nil || len(sp.Analysis.Payloads) == 0 {
		return nil
	}
	if chunk.NALUIndex != sp.Analysis.Payloads[0].NALUIndex {
		return nil
	}

	for _, msg := range s.m.FromAnalysisToEntityMessages(sp.Analysis) {
		if err := send(sp.MetadataTrack, msg); err != nil {
			return err
		}
	}
	return nil
}
