package probers

import (
	"bytes"
	"context"
	"errors"

	"github.com/asticode/go-astits"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/mapper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	mpegTSPacketSize = 188
	mpegTSSyncByte   = 0x47
)

type MpegTS struct {
	l *zap.SugaredLogger
	m *mapper.Mapper
}

type ResultMpegTS struct {
	fx.Out
	MpegTSProber Prober `group:"probers"`
}

// NewMpegTS creates a new MpegTS Prober
func NewMpegTS(l *zap.SugaredLogger, m *mapper.Mapper) ResultMpegTS {
	return ResultMpegTS{
		MpegTSProber: &MpegTS{
			l: l,
			m: m,
		},
	}
}

// Match returns true when the first two packets carry the sync byte
func (c *MpegTS) Match(input *entities.Input) bool {
	d := input.Data
	if len(d) < mpegTSPacketSize || d[0] != mpegTSSyncByte {
		return false
	}
	return len(d) == mpegTSPacketSize || d[mpegTSPacketSize] == mpegTSSyncByte
}

func (c *MpegTS) Container() entities.Container {
	return entities.MpegTSContainer
}

// ElementaryStream concatenates the PES payloads of the first H.264 stream
// announced by a PMT.
func (c *MpegTS) ElementaryStream(ctx context.Context, input *entities.Input) ([]byte, error) {
	var es bytes.Buffer
	var h264PID uint16
	var found bool

	mpegTSDemuxer := astits.NewDemuxer(ctx, bytes.NewReader(input.Data))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mpegTSDemuxData, err := mpegTSDemuxer.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				break
			}
			c.l.Errorw("failed to demux mpeg-ts",
				"error", err,
			)
			return nil, err
		}

		if mpegTSDemuxData.PMT != nil {
			for _, s := range mpegTSDemuxData.PMT.ElementaryStreams {
				codec := c.m.FromMpegTsStreamTypeToCodec(s.StreamType)
				if codec == entities.H264 && !found {
					h264PID = s.ElementaryPID
					found = true
					continue
				}
				c.l.Debugw("ignoring elementary stream",
					"pid", s.ElementaryPID,
					"codec", codec,
				)
			}
		}

		if found && mpegTSDemuxData.PID == h264PID && mpegTSDemuxData.PES != nil {
			es.Write(mpegTSDemuxData.PES.Data)
		}
	}

	if !found {
		return nil, entities.ErrMissingH264Stream
	}
	return es.Bytes(), nil
}
