package mapper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/asticode/go-astits"
	"github.com/dustin/go-humanize"
	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

const (
	rtpVideoClockRate  = 90000
	// used when an analysis found no SPS
	defaultCodecString = "avc1.42e01f"
)

type Mapper struct {
	l *zap.SugaredLogger
}

func NewMapper(l *zap.SugaredLogger) *Mapper {
	return &Mapper{l: l}
}

// FromDecoderConfigToRTPCodecCapability builds the capability a track is
// offered with. For avc1/avc3 the profile-level-id comes straight from the
// codec string so a High profile stream is not offered as Baseline.
func (m *Mapper) FromDecoderConfigToRTPCodecCapability(config *h264.DecoderConfig) webrtc.RTPCodecCapability {
	response := webrtc.RTPCodecCapability{ClockRate: rtpVideoClockRate}

	codec := defaultCodecString
	if config != nil && config.Codec != "" {
		codec = config.Codec
	}

	switch m.FromCodecStringToCodec(codec) {
	case entities.H264:
		response.MimeType = webrtc.MimeTypeH264
		if _, profileLevelID, ok := strings.Cut(codec, "."); ok && len(profileLevelID) == 6 {
			response.SDPFmtpLine = fmt.Sprintf("profile-level-id=%s;packetization-mode=1", strings.ToLower(profileLevelID))
		} else {
			m.l.Infow("codec string without profile-level-id", "codec", codec)
		}
	case entities.H265:
		response.MimeType = webrtc.MimeTypeH265
	default:
		m.l.Infow("no rtp codec capability", "codec", codec)
		response.ClockRate = 0
	}

	return response
}

// FromCodecStringToCodec maps a WebCodecs codec string ("avc1.64001f") to
// the codec family.
func (m *Mapper) FromCodecStringToCodec(codec string) entities.Codec {
	switch {
	case strings.HasPrefix(codec, "avc1.") || strings.HasPrefix(codec, "avc3."):
		return entities.H264
	case strings.HasPrefix(codec, "hvc1.") || strings.HasPrefix(codec, "hev1."):
		return entities.H265
	}
	m.l.Infow("unknown codec string", "codec", codec)
	return entities.UnknownCodec
}

func (m *Mapper) FromMpegTsStreamTypeToCodec(st astits.StreamType) entities.Codec {
	if st == astits.StreamTypeH264Video {
		return entities.H264
	}
	if st == astits.StreamTypeH265Video {
		return entities.H265
	}
	if st == astits.StreamTypeAACAudio {
		return entities.AAC
	}
	return entities.UnknownCodec
}

func (m *Mapper) FromNALUsToNALUInfos(nalus []h264.NALU) []entities.NALUInfo {
	result := make([]entities.NALUInfo, 0, len(nalus))
	for i, n := range nalus {
		result = append(result, entities.NALUInfo{
			Index:           i,
			Offset:          n.StartOffset,
			Length:          n.Length,
			StartCodeLength: n.StartCodeLength,
			Type:            uint8(n.Type),
			TypeName:        n.Type.String(),
			RefIDC:          n.RefIDC,
			ForbiddenBit:    n.ForbiddenBit(),
		})
	}
	return result
}

func (m *Mapper) FromChunksToChunkInfos(chunks []h264.Chunk) []entities.ChunkInfo {
	result := make([]entities.ChunkInfo, 0, len(chunks))
	for i, c := range chunks {
		result = append(result, entities.ChunkInfo{
			Index:        i,
			Kind:         string(c.Kind),
			Timestamp:    c.Timestamp,
			InferredType: string(c.InferredType),
			Size:         len(c.Payload),
			NALUIndex:    c.NALUIndex,
		})
	}
	return result
}

func (m *Mapper) FromSPSInfoToSPSSummary(sps *h264.SPSInfo) *entities.SPSSummary {
	if sps == nil {
		return nil
	}

	summary := &entities.SPSSummary{
		Profile:         sps.ProfileName(),
		ProfileIDC:      sps.ProfileIDC,
		Level:           sps.LevelName(),
		LevelIDC:        sps.LevelIDC,
		Codec:           sps.DecoderConfig.Codec,
		ChromaFormat:    h264.ChromaFormatName(sps.ChromaFormatIDC),
		BitDepthLuma:    sps.BitDepthLuma,
		BitDepthChroma:  sps.BitDepthChroma,
		Width:           sps.Width,
		Height:          sps.Height,
		Interlaced:      sps.Interlaced(),
		MaxNumRefFrames: sps.MaxNumRefFrames,
		PicOrderCntType: sps.PicOrderCntType,
		Cropped:         sps.FrameCroppingFlag,
		Truncated:       sps.IsTruncated() || sps.ParseError != nil,
		Diagnostics:     m.FromErrorsToStrings(sps.Diagnostics),
	}
	if fps, ok := sps.FPS(); ok {
		summary.FPS = fps
	}
	if sps.VUI != nil {
		summary.SampleAspectRatio = sps.VUI.SampleAspectRatio()
		summary.FullRange = sps.VUI.VideoFullRangeFlag
	}
	if sps.ParseError != nil {
		summary.Diagnostics = append(summary.Diagnostics, sps.ParseError.Error())
	}
	return summary
}

func (m *Mapper) FromErrorsToStrings(errs []error) []string {
	var result []string
	for _, err := range errs {
		if err != nil {
			result = append(result, err.Error())
		}
	}
	return result
}

func (m *Mapper) FromFileSizeToHuman(size int) string {
	return humanize.Bytes(uint64(size))
}

// FromSizeAndDurationToBitrate renders the average bitrate, "" when the
// duration is unknown.
func (m *Mapper) FromSizeAndDurationToBitrate(size int, d time.Duration) string {
	if d <= 0 {
		return ""
	}
	bps := float64(size) * 8 / d.Seconds()
	return humanize.SI(bps, "bps")
}

func (m *Mapper) FromAnalysisToEntityMessages(a *entities.Analysis) []entities.Message {
	var msgs []entities.Message
	if a.DecoderConfig != nil {
		msgs = append(msgs, entities.Message{
			Type: entities.MessageTypeMetadata,
			Message: fmt.Sprintf("Video %s %dx%d",
				a.DecoderConfig.Codec, a.DecoderConfig.CodedWidth, a.DecoderConfig.CodedHeight),
		})
	}
	if a.SPS != nil {
		msgs = append(msgs, entities.Message{
			Type:    entities.MessageTypeMetadata,
			Message: fmt.Sprintf("%s profile, level %s, %s", a.SPS.Profile, a.SPS.Level, a.SPS.ChromaFormat),
		})
	}
	msgs = append(msgs, entities.Message{
		Type:    entities.MessageTypeMetadata,
		Message: fmt.Sprintf("%d chunks (%s), %s", len(a.Chunks), a.FrameTypeSummary, a.FileSizeHuman),
	})
	return msgs
}

func (m *Mapper) FromCueToEntityMessage(cue entities.Cue) (entities.Message, error) {
	c, err := json.Marshal(cue)
	if err != nil {
		return entities.Message{}, err
	}
	return entities.Message{
		Type:    entities.MessageTypeCaption,
		Message: string(c),
	}, nil
}
