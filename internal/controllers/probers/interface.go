package probers

import (
	"context"

	"github.com/flavioribeiro/h264viewer/internal/entities"
)

// Prober extracts the H.264 elementary stream out of an uploaded input.
type Prober interface {
	ElementaryStream(ctx context.Context, input *entities.Input) ([]byte, error)
	Container() entities.Container
	Match(input *entities.Input) bool
}
