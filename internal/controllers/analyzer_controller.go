package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/flavioribeiro/h264viewer/eia608"
	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/controllers/engine"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/mapper"
	"github.com/flavioribeiro/h264viewer/internal/metrics"
	"go.uber.org/zap"
)

// cancellation is checked every checkpointInterval NALUs
const checkpointInterval = 256

type AnalyzerController struct {
	c      *entities.Config
	l      *zap.SugaredLogger
	m      *mapper.Mapper
	engine *engine.EngineController
}

func NewAnalyzerController(
	c *entities.Config,
	l *zap.SugaredLogger,
	m *mapper.Mapper,
	engine *engine.EngineController,
) *AnalyzerController {
	return &AnalyzerController{
		c:      c,
		l:      l,
		m:      m,
		engine: engine,
	}
}

// Analyze scans the input, assembles its chunks and summarizes the stream.
// It fails with ErrNoNALUs only when no NAL unit could be found at all.
func (c *AnalyzerController) Analyze(ctx context.Context, input *entities.Input) (*entities.Analysis, error) {
	if input == nil || len(input.Data) == 0 {
		return nil, entities.ErrEmptyInput
	}
	start := time.Now()

	es, kind, err := c.elementaryStream(ctx, input)
	container := string(kind)
	if err != nil {
		metrics.Analyses.WithLabelValues(container, "failed").Inc()
		return nil, err
	}

	scanner := h264.NewScanner(es)
	assembler := h264.NewAssembler(
		h264.WithTimestampStep(c.c.TimestampStep),
		h264.WithSPSHandler(func(sps *h264.SPSInfo, err error) {
			if err != nil {
				c.l.Debugw("sps could not be parsed",
					"error", err,
				)
				return
			}
			if len(sps.Diagnostics) > 0 {
				metrics.SPSDiagnostics.Add(float64(len(sps.Diagnostics)))
				c.l.Debugw("sps parsed with diagnostics",
					"diagnostics", c.m.FromErrorsToStrings(sps.Diagnostics),
				)
			}
		}),
	)
	captions := eia608.NewEIA608Reader()

	var nalus []h264.NALU
	var spsErrors []error
	var cues captionCues
	dropped := 0

	for {
		if len(nalus)%checkpointInterval == 0 {
			if err := ctx.Err(); err != nil {
				metrics.Analyses.WithLabelValues(container, "canceled").Inc()
				return nil, err
			}
		}

		nalu, ok := scanner.Next()
		if !ok {
			break
		}
		nalus = append(nalus, nalu)
		metrics.NALUs.WithLabelValues(nalu.Type.String()).Inc()

		text, err := captions.ParseNALU(nalu)
		if err != nil {
			c.l.Debugw("failed to parse captions",
				"error", err,
				"offset", nalu.StartOffset,
			)
		} else if text != "" {
			cues.add(text)
		}

		step := assembler.Push(nalu)
		if step.SPSErr != nil {
			spsErrors = append(spsErrors, step.SPSErr)
		}
		if step.Dropped {
			dropped++
			metrics.DroppedSlices.Inc()
			c.l.Debugw("dropping slice before the first key chunk",
				"index", len(nalus)-1,
			)
		}
		if step.Chunk != nil {
			metrics.Chunks.WithLabelValues(string(step.Chunk.Kind)).Inc()
			cues.flush(step.Chunk.Timestamp)
		}
	}

	if err := scanner.Err(); err != nil {
		c.l.Infow("scanning stopped early",
			"error", err,
			"offset", scanner.Offset(),
		)
	}

	if len(nalus) == 0 {
		metrics.Analyses.WithLabelValues(container, "empty").Inc()
		return nil, entities.ErrNoNALUs
	}

	chunks := assembler.Chunks()
	if n := cues.finish(chunks); n > 0 {
		c.l.Debugw("dropping captions without a chunk",
			"count", n,
		)
	}
	var stats h264.FrameTypeStats
	stats.AddChunks(chunks)

	analysis := &entities.Analysis{
		Name:             input.Name,
		CreatedAt:        start,
		Container:        kind,
		FileSize:         len(input.Data),
		FileSizeHuman:    c.m.FromFileSizeToHuman(len(input.Data)),
		NALUs:            c.m.FromNALUsToNALUInfos(nalus),
		SPS:              c.m.FromSPSInfoToSPSSummary(assembler.SPS()),
		SPSErrors:        c.m.FromErrorsToStrings(spsErrors),
		DecoderConfig:    assembler.DecoderConfig(),
		Chunks:           c.m.FromChunksToChunkInfos(chunks),
		Dropped:          dropped,
		FrameTypes:       stats,
		FrameTypeSummary: stats.String(),
		Captions:         cues.cues,
		Payloads:         chunks,
	}

	if sps := assembler.SPS(); sps != nil {
		if fps, ok := sps.FPS(); ok && fps > 0 {
			analysis.FPS = fps
			analysis.Duration = time.Duration(float64(len(chunks)) / fps * float64(time.Second))
			analysis.Bitrate = c.m.FromSizeAndDurationToBitrate(len(es), analysis.Duration)
		}
	}

	metrics.Analyses.WithLabelValues(container, "ok").Inc()
	metrics.AnalysisDurations.Observe(time.Since(start).Seconds())

	c.l.Infow("analysis done",
		"name", input.Name,
		"container", container,
		"size", analysis.FileSizeHuman,
		"nalus", len(nalus),
		"chunks", len(chunks),
		"frameTypes", analysis.FrameTypeSummary,
	)
	return analysis, nil
}

// elementaryStream extracts the H.264 stream through the matching prober.
// Inputs no prober recognizes are scanned as they are and end up reported
// as ErrNoNALUs.
func (c *AnalyzerController) elementaryStream(ctx context.Context, input *entities.Input) ([]byte, entities.Container, error) {
	prober, err := c.engine.ProberFor(input)
	if errors.Is(err, entities.ErrMissingProber) {
		c.l.Debugw("no prober matched, scanning the input as is",
			"input", input.String(),
		)
		return input.Data, entities.UnknownContainer, nil
	}
	if err != nil {
		return nil, entities.UnknownContainer, err
	}

	es, err := prober.ElementaryStream(ctx, input)
	return es, prober.Container(), err
}

// captionCues holds decoded caption text until the chunk it belongs to is
// emitted.
type captionCues struct {
	pending []string
	cues    []entities.Cue
}

func (c *captionCues) add(text string) {
	c.pending = append(c.pending, text)
}

func (c *captionCues) flush(timestamp int64) {
	for _, text := range c.pending {
		c.cues = append(c.cues, entities.Cue{
			Type:      "captions",
			StartTime: timestamp,
			Text:      text,
		})
	}
	c.pending = nil
}

// finish attaches captions left after the last emitted chunk to that chunk.
// It returns how many were dropped because no chunk exists at all.
func (c *captionCues) finish(chunks []h264.Chunk) int {
	if len(c.pending) == 0 {
		return 0
	}
	if len(chunks) == 0 {
		n := len(c.pending)
		c.pending = nil
		return n
	}
	c.flush(chunks[len(chunks)-1].Timestamp)
	return 0
}
