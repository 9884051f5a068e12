package controllers_test

import (
	"context"
	"testing"

	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/controllers"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/teststreaming"
	"github.com/flavioribeiro/h264viewer/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func newAnalyzer(t *testing.T) *controllers.AnalyzerController {
	var analyzer *controllers.AnalyzerController
	fxtest.New(t,
		web.Dependencies(false),
		fx.Replace(zap.NewNop().Sugar()),
		fx.Populate(&analyzer),
	)
	return analyzer
}

func TestAnalyze_Fixtures(t *testing.T) {
	analyzer := newAnalyzer(t)

	for _, f := range teststreaming.Fixtures {
		t.Run(f.Name, func(t *testing.T) {
			a, err := analyzer.Analyze(context.Background(), &entities.Input{Name: f.Name, Data: f.Data})
			require.Nil(t, err)

			assert.Equal(t, entities.AnnexBContainer, a.Container)
			assert.Equal(t, len(f.Data), a.FileSize)
			assert.NotEmpty(t, a.FileSizeHuman)
			assert.Len(t, a.NALUs, f.ExpectedNALUs)
			assert.Len(t, a.Chunks, f.ExpectedChunks)
			assert.Len(t, a.Payloads, f.ExpectedChunks)
			assert.Zero(t, a.Dropped)
			assert.Empty(t, a.SPSErrors)

			require.NotNil(t, a.DecoderConfig)
			assert.Equal(t, f.ExpectedCodec, a.DecoderConfig.Codec)
			require.NotNil(t, a.SPS)
			assert.Equal(t, f.ExpectedWidth, a.SPS.Width)
			assert.Equal(t, f.ExpectedHeight, a.SPS.Height)

			assert.Equal(t, 1, a.FrameTypes.I)
			assert.Equal(t, f.ExpectedChunks-1, a.FrameTypes.P)
			assert.Equal(t, a.FrameTypes.String(), a.FrameTypeSummary)

			for i, c := range a.Chunks {
				assert.Equal(t, int64(i), c.Timestamp)
				assert.Equal(t, len(a.Payloads[i].Payload), c.Size)
			}
		})
	}
}

func TestAnalyze_Timing(t *testing.T) {
	analyzer := newAnalyzer(t)

	f := teststreaming.GOP288p
	a, err := analyzer.Analyze(context.Background(), &entities.Input{Data: f.Data})
	require.Nil(t, err)

	assert.Equal(t, f.ExpectedFPS, a.FPS)
	assert.Greater(t, a.Duration.Seconds(), 0.0)
	assert.NotEmpty(t, a.Bitrate)
}

func TestAnalyze_MpegTS(t *testing.T) {
	analyzer := newAnalyzer(t)

	ts, err := teststreaming.MPEGTS(teststreaming.GOP720p.Data)
	require.Nil(t, err)

	a, err := analyzer.Analyze(context.Background(), &entities.Input{Data: ts})
	require.Nil(t, err)
	assert.Equal(t, entities.MpegTSContainer, a.Container)
	assert.Len(t, a.Chunks, teststreaming.GOP720p.ExpectedChunks)
}

func TestAnalyze_DroppedAndBrokenSPS(t *testing.T) {
	analyzer := newAnalyzer(t)

	data := teststreaming.AnnexB(
		teststreaming.NonIDRUnit,
		[]byte{0x67, 0x64}, // too short to parse
		teststreaming.PPSUnit,
		teststreaming.IDRUnit,
		teststreaming.NonIDRUnit,
	)

	a, err := analyzer.Analyze(context.Background(), &entities.Input{Data: data})
	require.Nil(t, err)
	assert.Equal(t, 1, a.Dropped)
	assert.Len(t, a.Chunks, 2)
	assert.Len(t, a.SPSErrors, 1)
	assert.Nil(t, a.SPS)
	assert.Nil(t, a.DecoderConfig)
	assert.Equal(t, h264.ChunkKey, a.Payloads[0].Kind)
}

func TestAnalyze_Errors(t *testing.T) {
	analyzer := newAnalyzer(t)

	_, err := analyzer.Analyze(context.Background(), &entities.Input{})
	assert.ErrorIs(t, err, entities.ErrEmptyInput)

	_, err = analyzer.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, entities.ErrEmptyInput)

	_, err = analyzer.Analyze(context.Background(), &entities.Input{Data: []byte("definitely not h264")})
	assert.ErrorIs(t, err, entities.ErrNoNALUs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = analyzer.Analyze(ctx, &entities.Input{Data: teststreaming.GOP720p.Data})
	assert.ErrorIs(t, err, context.Canceled)
}
