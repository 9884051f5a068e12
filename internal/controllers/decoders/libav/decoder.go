package libav

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/controllers/decoders"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"go.uber.org/zap"
)

// Decoder decodes chunks with the ffmpeg h264 decoder. Parameter sets travel
// in band with the first key chunk, so no extradata is set.
type Decoder struct {
	l *zap.SugaredLogger

	closer       *astikit.Closer
	codecContext *astiav.CodecContext
	pkt          *astiav.Packet
	frame        *astiav.Frame

	pending []decoders.DecodedFrame
}

var _ decoders.Decoder = (*Decoder)(nil)

func NewDecoder(l *zap.SugaredLogger) *Decoder {
	astiav.SetLogLevel(astiav.LogLevelError)
	return &Decoder{l: l}
}

func (d *Decoder) Configure(config h264.DecoderConfig) error {
	d.Close()
	d.closer = astikit.NewCloser()

	codec := astiav.FindDecoder(astiav.CodecIDH264)
	if codec == nil {
		return entities.ErrFFmpegLibAVDecoderNotFound
	}

	if d.codecContext = astiav.AllocCodecContext(codec); d.codecContext == nil {
		return entities.ErrFFmpegLibAVCodecContextIsNil
	}
	d.closer.Add(d.codecContext.Free)

	if config.CodedWidth > 0 && config.CodedHeight > 0 {
		d.codecContext.SetWidth(config.CodedWidth)
		d.codecContext.SetHeight(config.CodedHeight)
	}

	if err := d.codecContext.Open(codec, nil); err != nil {
		d.Close()
		return fmt.Errorf("%w: %w", entities.ErrFFmpegLibAVOpenCodecFailed, err)
	}

	d.pkt = astiav.AllocPacket()
	d.closer.Add(d.pkt.Free)
	d.frame = astiav.AllocFrame()
	d.closer.Add(d.frame.Free)

	d.l.Debugw("decoder configured",
		"codec", config.Codec,
		"width", config.CodedWidth,
		"height", config.CodedHeight,
	)
	return nil
}

func (d *Decoder) Decode(chunk h264.Chunk) error {
	if d.codecContext == nil {
		return entities.ErrMissingDecoderConfig
	}

	if err := d.pkt.FromData(chunk.Payload); err != nil {
		return fmt.Errorf("ffmpeg/libav: packet from data failed: %w", err)
	}
	defer d.pkt.Unref()
	d.pkt.SetPts(chunk.Timestamp)

	if err := d.codecContext.SendPacket(d.pkt); err != nil {
		if errors.Is(err, astiav.ErrEagain) {
			if err := d.receive(); err != nil {
				return err
			}
			err = d.codecContext.SendPacket(d.pkt)
		}
		if err != nil {
			return fmt.Errorf("ffmpeg/libav: sending packet failed: %w", err)
		}
	}
	return d.receive()
}

// Flush drains the decoder and returns every frame decoded since Configure.
func (d *Decoder) Flush() ([]decoders.DecodedFrame, error) {
	if d.codecContext == nil {
		return nil, entities.ErrMissingDecoderConfig
	}

	// an empty packet is the flush request
	flush := astiav.AllocPacket()
	defer flush.Free()
	if err := d.codecContext.SendPacket(flush); err != nil && !errors.Is(err, astiav.ErrEof) {
		return nil, fmt.Errorf("ffmpeg/libav: sending flush packet failed: %w", err)
	}
	if err := d.receive(); err != nil {
		return nil, err
	}

	frames := d.pending
	d.pending = nil
	d.Close()
	return frames, nil
}

func (d *Decoder) receive() error {
	for {
		if err := d.codecContext.ReceiveFrame(d.frame); err != nil {
			if errors.Is(err, astiav.ErrEof) || errors.Is(err, astiav.ErrEagain) {
				return nil
			}
			return fmt.Errorf("ffmpeg/libav: receiving frame failed: %w", err)
		}

		d.pending = append(d.pending, decoders.DecodedFrame{
			Timestamp:   d.frame.Pts(),
			Width:       d.frame.Width(),
			Height:      d.frame.Height(),
			PictureType: fromLibAVPictureType(d.frame.PictureType()),
		})
		d.frame.Unref()
	}
}

func (d *Decoder) Close() {
	if d.closer == nil {
		return
	}
	if err := d.closer.Close(); err != nil {
		d.l.Errorw("failed to release decoder",
			"error", err,
		)
	}
	d.closer = nil
	d.codecContext = nil
	d.pkt = nil
	d.frame = nil
}

func fromLibAVPictureType(t astiav.PictureType) h264.PictureType {
	switch t {
	case astiav.PictureTypeI:
		return h264.PictureI
	case astiav.PictureTypeP:
		return h264.PictureP
	case astiav.PictureTypeB:
		return h264.PictureB
	}
	return h264.PictureUnknown
}
