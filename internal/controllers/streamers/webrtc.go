package streamers

import (
	"context"
	"errors"
	"time"

	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/metrics"
	"github.com/pion/webrtc/v3/pkg/media"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type WebRTCStreamer struct {
	c *entities.Config
	l *zap.SugaredLogger

	middlewares []entities.StreamMiddleware
}

type WebRTCStreamerParams struct {
	fx.In
	C *entities.Config
	L *zap.SugaredLogger

	Middlewares []entities.StreamMiddleware `group:"middlewares"`
}

type ResultWebRTCStreamer struct {
	fx.Out
	WebRTCStreamer Streamer `group:"streamers"`
}

func NewWebRTCStreamer(p WebRTCStreamerParams) ResultWebRTCStreamer {
	return ResultWebRTCStreamer{
		WebRTCStreamer: &WebRTCStreamer{
			c:           p.C,
			l:           p.L,
			middlewares: p.Middlewares,
		},
	}
}

func (c *WebRTCStreamer) Match(req *entities.StreamRequest) bool {
	return req.Transport == entities.WebRTCTransport
}

// Stream writes one sample per chunk, paced at the stream frame rate.
func (c *WebRTCStreamer) Stream(ctx context.Context, sp *entities.StreamParameters) error {
	if sp.VideoTrack == nil {
		return entities.ErrMissingWebRTCSetup
	}
	if sp.Analysis == nil {
		return entities.ErrMissingAnalysis
	}
	if sp.OnClose != nil {
		defer sp.OnClose()
	}

	metrics.ActiveStreams.WithLabelValues(string(entities.WebRTCTransport)).Inc()
	defer metrics.ActiveStreams.WithLabelValues(string(entities.WebRTCTransport)).Dec()

	duration := c.SampleDuration(sp.FPS)
	ticker := time.NewTicker(duration)
	defer ticker.Stop()

	c.l.Infow("streaming has started",
		"analysis", sp.Analysis.ID,
		"sampleDuration", duration,
	)

	for _, chunk := range sp.Analysis.Payloads {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				c.l.Infow("streaming has stopped due cancellation")
				return ctx.Err()
			}
			c.l.Errorw("streaming has stopped due errors",
				"error", ctx.Err(),
			)
			return ctx.Err()
		case <-ticker.C:
		}

		if err := sp.VideoTrack.WriteSample(media.Sample{Data: chunk.Payload, Duration: duration}); err != nil {
			c.l.Errorw("failed to write a chunk to web rtc",
				"error", err,
			)
			if sp.OnError != nil {
				sp.OnError(err)
			}
			return err
		}

		for _, m := range c.middlewares {
			if err := m.Act(chunk, sp); err != nil {
				c.l.Errorw("middleware error",
					"error", err,
				)
			}
		}
	}

	c.l.Infow("streaming has finished",
		"analysis", sp.Analysis.ID,
	)
	return nil
}

// SampleDuration is 1/fps, falling back to the configured default rate.
func (c *WebRTCStreamer) SampleDuration(fps float64) time.Duration {
	if fps <= 0 {
		fps = c.c.DefaultFPS
	}
	if fps <= 0 {
		return time.Second / 30
	}
	return time.Duration(float64(time.Second) / fps)
}
