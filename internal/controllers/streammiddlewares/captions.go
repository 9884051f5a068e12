package streammiddlewares

import (
	"encoding/json"

	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/mapper"
	"go.uber.org/fx"
)

type captionsMiddleware struct {
	m *mapper.Mapper
}

type CaptionsResponse struct {
	fx.Out
	CaptionsMiddleware entities.StreamMiddleware `group:"middlewares"`
}

// NewCaptions creates a new captions middleware
func NewCaptions(m *mapper.Mapper) CaptionsResponse {
	return CaptionsResponse{
		CaptionsMiddleware: &captionsMiddleware{m: m},
	}
}

// Act sends the caption cues starting at the chunk timestamp to the metadata channel
func (c *captionsMiddleware) Act(chunk h264.Chunk, sp *entities.StreamParameters) error {
	if sp.MetadataTrack == nil || sp.Analysis == nil {
		return nil
	}

	for _, cue := range sp.Analysis.Captions {
		if cue.StartTime != chunk.Timestamp {
			continue
		}
		msg, err := c.m.FromCueToEntityMessage(cue)
		if err != nil {
			return err
		}
		if err := send(sp.MetadataTrack, msg); err != nil {
			return err
		}
	}
	return nil
}

func send(sender entities.MetadataSender, msg entities.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return sender.SendText(string(b))
}
