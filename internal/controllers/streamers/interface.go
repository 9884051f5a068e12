package streamers

import (
	"context"

	"github.com/flavioribeiro/h264viewer/internal/entities"
)

// Streamer plays the chunks of an analysis over one transport.
type Streamer interface {
	Stream(ctx context.Context, sp *entities.StreamParameters) error
	Match(req *entities.StreamRequest) bool
}
