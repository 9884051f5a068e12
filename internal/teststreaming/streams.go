package teststreaming

import (
	"bytes"
	"context"

	"github.com/asticode/go-astits"
)

var (
	StartCode3 = []byte{0x00, 0x00, 0x01}
	StartCode4 = []byte{0x00, 0x00, 0x00, 0x01}
)

// Units without zero runs, so they never contain a start code.
var (
	PPSUnit    = []byte{0x68, 0xce, 0x3c, 0x80}
	IDRUnit    = []byte{0x65, 0x88, 0x84, 0x21, 0xa0, 0x5f}
	NonIDRUnit = []byte{0x41, 0x9a, 0x02, 0x0c, 0x7e}
	AUDUnit    = []byte{0x09, 0xf0}
	// SEIUnit carries a user_data_unregistered message (payload type 5).
	SEIUnit = []byte{0x06, 0x05, 0x04, 0xde, 0xad, 0xbe, 0xef, 0x80}
)

// AnnexB joins units with 4-byte start codes.
func AnnexB(units ...[]byte) []byte {
	return Join(StartCode4, units...)
}

// Join prefixes every unit with startCode.
func Join(startCode []byte, units ...[]byte) []byte {
	var b bytes.Buffer
	for _, u := range units {
		b.Write(startCode)
		b.Write(u)
	}
	return b.Bytes()
}

// Fixture is a synthetic elementary stream together with what an analysis
// is expected to find in it.
type Fixture struct {
	Name           string
	Data           []byte
	ExpectedNALUs  int
	ExpectedChunks int
	ExpectedWidth  int
	ExpectedHeight int
	ExpectedCodec  string
	ExpectedFPS    float64
}

// GOP720p is SPS, PPS, IDR and two non-IDR slices at 1280x720.
var GOP720p = Fixture{
	Name:           "gop_720p_high",
	Data:           AnnexB(High720p().Unit(), PPSUnit, IDRUnit, NonIDRUnit, NonIDRUnit),
	ExpectedNALUs:  5,
	ExpectedChunks: 3,
	ExpectedWidth:  1280,
	ExpectedHeight: 720,
	ExpectedCodec:  "avc1.64001f",
}

// GOP288p has access unit delimiters and SEI between the slices, uses
// 3-byte start codes for slices and signals 30 fps.
var GOP288p = Fixture{
	Name: "gop_288p_baseline",
	Data: append(
		AnnexB(AUDUnit, Baseline288p().Unit(), PPSUnit, SEIUnit),
		Join(StartCode3, IDRUnit, AUDUnit, NonIDRUnit, AUDUnit, NonIDRUnit, AUDUnit, NonIDRUnit)...,
	),
	ExpectedNALUs:  11,
	ExpectedChunks: 4,
	ExpectedWidth:  512,
	ExpectedHeight: 288,
	ExpectedCodec:  "avc1.42c015",
	ExpectedFPS:    30,
}

var Fixtures = []Fixture{GOP720p, GOP288p}

// MPEGTS muxes an elementary stream into MPEG-TS, one PES per access unit
// boundary given by splitAt (byte offsets into es). PID 256 carries the
// video.
func MPEGTS(es []byte, splitAt ...int) ([]byte, error) {
	var out bytes.Buffer
	mux := astits.NewMuxer(context.Background(), &out)
	if err := mux.AddElementaryStream(astits.PMTElementaryStream{
		ElementaryPID: 256,
		StreamType:    astits.StreamTypeH264Video,
	}); err != nil {
		return nil, err
	}
	mux.SetPCRPID(256)

	start := 0
	bounds := append(append([]int{}, splitAt...), len(es))
	for i, end := range bounds {
		_, err := mux.WriteData(&astits.MuxerData{
			PID: 256,
			AdaptationField: &astits.PacketAdaptationField{
				RandomAccessIndicator: i == 0,
			},
			PES: &astits.PESData{
				Header: &astits.PESHeader{
					OptionalHeader: &astits.PESOptionalHeader{
						MarkerBits:      2,
						PTSDTSIndicator: astits.PTSDTSIndicatorOnlyPTS,
						PTS:             &astits.ClockReference{Base: int64(i) * 3000},
					},
					StreamID: 224, // video
				},
				Data: es[start:end],
			},
		})
		if err != nil {
			return nil, err
		}
		start = end
	}
	return out.Bytes(), nil
}
