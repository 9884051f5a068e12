package engine

import (
	"fmt"

	"github.com/flavioribeiro/h264viewer/internal/controllers/probers"
	"github.com/flavioribeiro/h264viewer/internal/controllers/streamers"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"go.uber.org/fx"
)

type EngineParams struct {
	fx.In
	Streamers []streamers.Streamer `group:"streamers"`
	Probers   []probers.Prober     `group:"probers"`
}

type EngineController struct {
	p EngineParams
}

func NewEngineController(p EngineParams) *EngineController {
	return &EngineController{p}
}

func (c *EngineController) ProberFor(input *entities.Input) (probers.Prober, error) {
	prober, ok := selectFor(c.p.Probers, input)
	if !ok {
		return nil, fmt.Errorf("input %v: not fulfilled error %w", input, entities.ErrMissingProber)
	}
	return prober, nil
}

func (c *EngineController) StreamerFor(req *entities.StreamRequest) (streamers.Streamer, error) {
	streamer, ok := selectFor(c.p.Streamers, req)
	if !ok {
		return nil, fmt.Errorf("request %v: not fulfilled error %w", req, entities.ErrMissingStreamer)
	}
	return streamer, nil
}

type matcher[R any] interface {
	Match(R) bool
}

func selectFor[T matcher[R], R any](candidates []T, req R) (T, bool) {
	for _, c := range candidates {
		if c.Match(req) {
			return c, true
		}
	}
	var zero T
	return zero, false
}
