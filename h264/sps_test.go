package h264_test

import (
	"testing"

	mch264 "github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/teststreaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSPS_720p(t *testing.T) {
	unit := teststreaming.High720p().Unit()

	sps, err := h264.ParseSPS(unit)
	require.Nil(t, err)
	require.NotNil(t, sps)

	assert.Equal(t, uint8(100), sps.ProfileIDC)
	assert.Equal(t, uint8(31), sps.LevelIDC)
	assert.Equal(t, uint32(1), sps.ChromaFormatIDC)
	assert.Equal(t, uint32(8), sps.BitDepthLuma)
	assert.Equal(t, uint32(8), sps.BitDepthChroma)
	assert.Equal(t, uint32(16), sps.MaxFrameNum)
	assert.Equal(t, uint32(16), sps.MaxPicOrderCntLsb)
	assert.True(t, sps.FrameMbsOnlyFlag)
	assert.False(t, sps.Interlaced())
	assert.True(t, sps.Direct8x8InferenceFlag)
	assert.False(t, sps.FrameCroppingFlag)
	assert.Equal(t, 1280, sps.Width)
	assert.Equal(t, 720, sps.Height)
	assert.Nil(t, sps.VUI)
	assert.Empty(t, sps.Diagnostics)
	assert.Nil(t, sps.ParseError)
	assert.False(t, sps.IsTruncated())

	assert.Equal(t, "avc1.64001f", sps.DecoderConfig.Codec)
	assert.Equal(t, unit, sps.DecoderConfig.Description)
	assert.Equal(t, 1280, sps.DecoderConfig.CodedWidth)
	assert.Equal(t, 720, sps.DecoderConfig.CodedHeight)

	assert.Equal(t, "High Profile", sps.ProfileName())
	assert.Equal(t, "3.1", sps.LevelName())
}

func TestParseSPS_Cropping(t *testing.T) {
	s := teststreaming.High720p()
	s.Crop = &teststreaming.Crop{Top: 4, Bottom: 4}

	sps, err := h264.ParseSPS(s.Unit())
	require.Nil(t, err)

	_, cropUnitY := sps.CropUnits()
	assert.Equal(t, 2, cropUnitY)
	assert.True(t, sps.FrameCroppingFlag)
	assert.Equal(t, uint32(4), sps.FrameCropTopOffset)
	assert.Equal(t, uint32(4), sps.FrameCropBottomOffset)
	assert.Equal(t, 1280, sps.Width)
	assert.Equal(t, 720-8*cropUnitY, sps.Height)
}

func TestParseSPS_1080pCropping(t *testing.T) {
	s := teststreaming.High720p()
	s.LevelIDC = 40
	s.PicWidthInMbsMinus1 = 119
	s.PicHeightInMapUnitsMinus1 = 67
	s.Crop = &teststreaming.Crop{Bottom: 4}

	sps, err := h264.ParseSPS(s.Unit())
	require.Nil(t, err)
	assert.Equal(t, 1920, sps.Width)
	assert.Equal(t, 1080, sps.Height)
	assert.Equal(t, "avc1.640028", sps.DecoderConfig.Codec)
}

func TestSPSInfo_CropUnits(t *testing.T) {
	tests := []struct {
		name      string
		chroma    uint32
		frameMbs  bool
		expectedX int
		expectedY int
	}{
		{"4:2:0 frames", 1, true, 2, 2},
		{"4:2:0 fields", 1, false, 2, 4},
		{"4:2:2 frames", 2, true, 2, 1},
		{"4:2:2 fields", 2, false, 2, 2},
		{"4:4:4 frames", 3, true, 1, 1},
		{"monochrome fields", 0, false, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sps := &h264.SPSInfo{ChromaFormatIDC: tt.chroma, FrameMbsOnlyFlag: tt.frameMbs}
			x, y := sps.CropUnits()
			assert.Equal(t, tt.expectedX, x)
			assert.Equal(t, tt.expectedY, y)
		})
	}
}

func TestParseSPS_FieldCoded422(t *testing.T) {
	s := teststreaming.High720p()
	s.ProfileIDC = 122
	s.ChromaFormatIDC = 2
	s.BitDepthLumaMinus8 = 2
	s.BitDepthChromaMinus8 = 2
	s.FieldCoded = true
	s.MbAdaptiveFrameField = true
	s.PicHeightInMapUnitsMinus1 = 33
	s.Crop = &teststreaming.Crop{Left: 2, Bottom: 4}

	sps, err := h264.ParseSPS(s.Unit())
	require.Nil(t, err)

	assert.Equal(t, uint32(2), sps.ChromaFormatIDC)
	assert.Equal(t, uint32(10), sps.BitDepthLuma)
	assert.Equal(t, uint32(10), sps.BitDepthChroma)
	assert.True(t, sps.Interlaced())
	assert.True(t, sps.MbAdaptiveFrameFieldFlag)
	// cropUnitX=2, cropUnitY=2 for field coded 4:2:2
	assert.Equal(t, 1280-2*2, sps.Width)
	assert.Equal(t, 2*34*16-4*2, sps.Height)
	assert.Equal(t, "YUV 4:2:2", h264.ChromaFormatName(sps.ChromaFormatIDC))
}

func TestParseSPS_Separate444(t *testing.T) {
	s := teststreaming.High720p()
	s.ProfileIDC = 244
	s.ChromaFormatIDC = 3
	s.SeparateColourPlane = true
	s.ScalingLists = map[int][]int32{
		0:  {-8},
		11: make([]int32, 64),
	}

	sps, err := h264.ParseSPS(s.Unit())
	require.Nil(t, err)
	assert.Empty(t, sps.Diagnostics)
	assert.True(t, sps.SeparateColourPlane)
	assert.True(t, sps.SeqScalingMatrixPresentFlag)
	assert.Equal(t, 1280, sps.Width)
	assert.Equal(t, 720, sps.Height)
}

func TestParseSPS_ScalingLists(t *testing.T) {
	ones := make([]int32, 16)
	for i := range ones {
		ones[i] = 1
	}

	s := teststreaming.High720p()
	s.ScalingLists = map[int][]int32{
		0: {-8},
		1: ones,
		6: make([]int32, 64),
	}

	sps, err := h264.ParseSPS(s.Unit())
	require.Nil(t, err)
	assert.Empty(t, sps.Diagnostics)
	assert.True(t, sps.SeqScalingMatrixPresentFlag)
	assert.Equal(t, 1280, sps.Width)
	assert.Equal(t, 720, sps.Height)
}

func TestParseSPS_ScalingListMasked(t *testing.T) {
	s := teststreaming.High720p()
	s.ScalingLists = map[int][]int32{6: make([]int32, 64)}

	// profile, constraints, level, then one byte of chroma info and one byte
	// holding the six absent lists, list 6's flag and its first delta
	rbsp := s.RBSP()
	require.Equal(t, byte(0xad), rbsp[3])
	unit := append([]byte{0x67}, rbsp[:5]...)

	sps, err := h264.ParseSPS(unit)
	require.Nil(t, err)
	require.NotNil(t, sps)

	require.Len(t, sps.Diagnostics, 2)
	assert.ErrorIs(t, sps.Diagnostics[0], h264.ErrScalingMatrix)
	assert.ErrorIs(t, sps.Diagnostics[1], h264.ErrBitstreamExhausted)
	assert.True(t, sps.IsTruncated())
	assert.True(t, sps.SeqScalingMatrixPresentFlag)
	assert.Equal(t, 0, sps.Width)
	assert.Equal(t, 0, sps.Height)
	assert.Equal(t, "avc1.64001f", sps.DecoderConfig.Codec)
}

func TestParseSPS_PicOrderCntType1(t *testing.T) {
	s := teststreaming.Baseline288p()
	s.PicOrderCntType = 1
	s.DeltaPicOrderAlwaysZero = false
	s.OffsetForNonRefPic = -2
	s.OffsetForTopToBottomField = 1
	s.OffsetForRefFrame = []int32{1, -2, 3}

	sps, err := h264.ParseSPS(s.Unit())
	require.Nil(t, err)
	assert.Empty(t, sps.Diagnostics)
	assert.Equal(t, uint32(1), sps.PicOrderCntType)
	assert.Equal(t, int32(-2), sps.OffsetForNonRefPic)
	assert.Equal(t, int32(1), sps.OffsetForTopToBottomField)
	assert.Equal(t, uint32(3), sps.NumRefFramesInPicOrderCntCycle)
	assert.Equal(t, []int32{1, -2, 3}, sps.OffsetForRefFrame)
	assert.Equal(t, uint32(1), sps.MaxNumRefFrames)
	assert.Equal(t, 512, sps.Width)
	assert.Equal(t, 288, sps.Height)
}

func TestParseSPS_PicOrderCntMasked(t *testing.T) {
	s := teststreaming.Baseline288p()
	s.PicOrderCntType = 1
	s.OffsetForNonRefPic = -1000

	// cut six bits after log2_max_frame_num_minus4, inside
	// offset_for_non_ref_pic
	sps, err := h264.ParseSPS(s.TruncatedUnit(teststreaming.MarkPicOrderCnt))
	require.Nil(t, err)
	require.NotNil(t, sps)

	require.Len(t, sps.Diagnostics, 2)
	assert.ErrorIs(t, sps.Diagnostics[0], h264.ErrPicOrderCnt)
	assert.ErrorIs(t, sps.Diagnostics[1], h264.ErrBitstreamExhausted)
	assert.Equal(t, uint32(1), sps.PicOrderCntType)
	assert.Equal(t, "avc1.42c015", sps.DecoderConfig.Codec)
}

func TestParseSPS_CroppingMasked(t *testing.T) {
	s := teststreaming.High720p()
	s.Crop = &teststreaming.Crop{Left: 1000, Right: 1000, Top: 1000, Bottom: 1000}

	// the cut leaves frame_cropping_flag and nothing after it
	sps, err := h264.ParseSPS(s.TruncatedUnit(teststreaming.MarkFrameCropping))
	require.Nil(t, err)

	require.Len(t, sps.Diagnostics, 2)
	assert.ErrorIs(t, sps.Diagnostics[0], h264.ErrCropping)
	assert.ErrorIs(t, sps.Diagnostics[1], h264.ErrBitstreamExhausted)
	assert.False(t, sps.FrameCroppingFlag)
	assert.Zero(t, sps.FrameCropLeftOffset)
	assert.Zero(t, sps.FrameCropRightOffset)
	assert.Zero(t, sps.FrameCropTopOffset)
	assert.Zero(t, sps.FrameCropBottomOffset)
	assert.Equal(t, 1280, sps.Width)
	assert.Equal(t, 720, sps.Height)
}

func TestParseSPS_VUITiming(t *testing.T) {
	s := teststreaming.High720p()
	s.VUI = &teststreaming.VUI{
		AspectRatioPresent:       true,
		AspectRatioIDC:           1,
		VideoSignalTypePresent:   true,
		VideoFormat:              5,
		ColourDescriptionPresent: true,
		ColourPrimaries:          1,
		TransferCharacteristics:  1,
		MatrixCoefficients:       1,
		ChromaLocPresent:         true,
		Timing:                   &teststreaming.Timing{NumUnitsInTick: 1000, TimeScale: 60000, FixedFrameRate: true},
		NalHRD:                   true,
		VclHRD:                   true,
		PicStructPresent:         true,
		BitstreamRestriction:     true,
	}

	sps, err := h264.ParseSPS(s.Unit())
	require.Nil(t, err)
	assert.Empty(t, sps.Diagnostics)
	require.NotNil(t, sps.VUI)

	vui := sps.VUI
	assert.False(t, vui.Truncated)
	assert.Equal(t, "1:1", vui.SampleAspectRatio())
	assert.Equal(t, uint8(5), vui.VideoFormat)
	assert.Equal(t, uint8(1), vui.MatrixCoefficients)
	assert.Equal(t, uint32(1000), vui.NumUnitsInTick)
	assert.Equal(t, uint32(60000), vui.TimeScale)
	assert.True(t, vui.FixedFrameRateFlag)
	require.NotNil(t, vui.FPS)
	assert.Equal(t, 30.0, *vui.FPS)
	assert.True(t, vui.NalHRDParametersPresentFlag)
	assert.True(t, vui.VclHRDParametersPresentFlag)
	assert.True(t, vui.PicStructPresentFlag)
	assert.True(t, vui.BitstreamRestrictionFlag)

	fps, ok := sps.FPS()
	assert.True(t, ok)
	assert.Equal(t, 30.0, fps)
}

func TestParseSPS_VUIMultipleCPB(t *testing.T) {
	s := teststreaming.High720p()
	s.VUI = &teststreaming.VUI{
		Timing:               &teststreaming.Timing{NumUnitsInTick: 1001, TimeScale: 48000, FixedFrameRate: true},
		NalHRD:               true,
		VclHRD:               true,
		CPBCount:             3,
		PicStructPresent:     true,
		BitstreamRestriction: true,
	}
	unit := s.Unit()

	sps, err := h264.ParseSPS(unit)
	require.Nil(t, err)
	assert.Empty(t, sps.Diagnostics)
	require.NotNil(t, sps.VUI)
	assert.False(t, sps.VUI.Truncated)
	assert.True(t, sps.VUI.NalHRDParametersPresentFlag)
	assert.True(t, sps.VUI.VclHRDParametersPresentFlag)
	assert.True(t, sps.VUI.PicStructPresentFlag)
	assert.True(t, sps.VUI.BitstreamRestrictionFlag)

	fps, ok := sps.FPS()
	assert.True(t, ok)
	assert.InDelta(t, 23.976, fps, 0.001)

	var oracle mch264.SPS
	require.Nil(t, oracle.Unmarshal(unit))
	require.NotNil(t, oracle.VUI)
	require.NotNil(t, oracle.VUI.NalHRD)
	assert.Equal(t, uint32(2), oracle.VUI.NalHRD.CpbCntMinus1)
	assert.Equal(t, oracle.VUI.PicStructPresentFlag, sps.VUI.PicStructPresentFlag)
	assert.Equal(t, oracle.VUI.BitstreamRestriction != nil, sps.VUI.BitstreamRestrictionFlag)
	assert.InDelta(t, oracle.FPS(), fps, 0.001)
}

func TestParseSPS_VUIExtendedSAR(t *testing.T) {
	s := teststreaming.High720p()
	s.VUI = &teststreaming.VUI{
		AspectRatioPresent: true,
		AspectRatioIDC:     255,
		SarWidth:           4,
		SarHeight:          3,
		Timing:             &teststreaming.Timing{NumUnitsInTick: 0, TimeScale: 50},
	}

	sps, err := h264.ParseSPS(s.Unit())
	require.Nil(t, err)
	require.NotNil(t, sps.VUI)
	assert.Equal(t, "4:3", sps.VUI.SampleAspectRatio())
	assert.True(t, sps.VUI.TimingInfoPresentFlag)
	assert.Nil(t, sps.VUI.FPS)

	_, ok := sps.FPS()
	assert.False(t, ok)
}

func TestParseSPS_TruncatedVUI(t *testing.T) {
	s := teststreaming.High720p()
	s.VUI = &teststreaming.VUI{
		Timing:               &teststreaming.Timing{NumUnitsInTick: 1000, TimeScale: 60000},
		NalHRD:               true,
		PicStructPresent:     true,
		BitstreamRestriction: true,
	}

	sps, err := h264.ParseSPS(s.TruncatedUnit(teststreaming.MarkTimingInfo))
	require.Nil(t, err)
	require.NotNil(t, sps.VUI)

	assert.True(t, sps.VUI.Truncated)
	require.NotNil(t, sps.VUI.FPS)
	assert.Equal(t, 30.0, *sps.VUI.FPS)
	assert.False(t, sps.VUI.PicStructPresentFlag)
	assert.False(t, sps.VUI.BitstreamRestrictionFlag)

	require.Len(t, sps.Diagnostics, 1)
	assert.ErrorIs(t, sps.Diagnostics[0], h264.ErrVUITruncated)
	assert.ErrorIs(t, sps.Diagnostics[0], h264.ErrBitstreamExhausted)
	assert.False(t, sps.IsTruncated())

	assert.Equal(t, 1280, sps.Width)
	assert.Equal(t, 720, sps.Height)
}

func TestParseSPS_TooShort(t *testing.T) {
	for _, unit := range [][]byte{nil, {0x67}, {0x67, 0x64, 0x00}} {
		sps, err := h264.ParseSPS(unit)
		assert.Nil(t, sps)
		assert.ErrorIs(t, err, h264.ErrSPSParseFailed)
	}
}

func TestParseSPS_MinimalFallback(t *testing.T) {
	// seq_parameter_set_id is cut
	unit := []byte{0x67, 0x64, 0x08, 0x1f, 0x00}

	sps, err := h264.ParseSPS(unit)
	require.NotNil(t, sps)
	assert.ErrorIs(t, err, h264.ErrSPSParseFailed)
	assert.ErrorIs(t, err, h264.ErrBitstreamExhausted)
	assert.ErrorIs(t, sps.ParseError, h264.ErrSPSParseFailed)

	assert.Equal(t, uint8(100), sps.ProfileIDC)
	assert.Equal(t, uint8(0x08), sps.ConstraintFlags)
	assert.True(t, sps.ConstraintSet4Flag)
	assert.Equal(t, uint8(31), sps.LevelIDC)
	assert.Equal(t, uint32(1), sps.ChromaFormatIDC)
	assert.Equal(t, 0, sps.Width)
	assert.Equal(t, "avc1.64081f", sps.DecoderConfig.Codec)
	assert.Equal(t, unit, sps.DecoderConfig.Description)
}

func TestParseSPS_EmulationPrevention(t *testing.T) {
	// num_units_in_tick=1 produces zero runs that must be escaped
	s := teststreaming.Baseline288p()
	unit := s.Unit()
	require.NotEqual(t, len(s.RBSP())+1, len(unit))

	sps, err := h264.ParseSPS(unit)
	require.Nil(t, err)
	assert.Empty(t, sps.Diagnostics)
	assert.Equal(t, 512, sps.Width)
	assert.Equal(t, 288, sps.Height)

	fps, ok := sps.FPS()
	assert.True(t, ok)
	assert.Equal(t, 30.0, fps)
}

func TestCodecString(t *testing.T) {
	assert.Equal(t, "avc1.64001f", h264.CodecString(0x64, 0x00, 0x1f))
	assert.Equal(t, "avc1.42e00a", h264.CodecString(66, 0xe0, 10))
}

func TestParseSPS_AgainstMediacommon(t *testing.T) {
	cropped := teststreaming.High720p()
	cropped.Crop = &teststreaming.Crop{Left: 4, Right: 4, Top: 2, Bottom: 6}

	withVUI := teststreaming.High720p()
	withVUI.VUI = &teststreaming.VUI{
		AspectRatioPresent:   true,
		AspectRatioIDC:       255,
		SarWidth:             16,
		SarHeight:            11,
		OverscanPresent:      true,
		Timing:               &teststreaming.Timing{NumUnitsInTick: 1001, TimeScale: 60000, FixedFrameRate: true},
		NalHRD:               true,
		BitstreamRestriction: true,
	}

	tests := []struct {
		name string
		sps  teststreaming.SPS
	}{
		{"high 720p", teststreaming.High720p()},
		{"baseline 288p", teststreaming.Baseline288p()},
		{"cropped", cropped},
		{"vui", withVUI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit := tt.sps.Unit()

			var oracle mch264.SPS
			require.Nil(t, oracle.Unmarshal(unit))

			sps, err := h264.ParseSPS(unit)
			require.Nil(t, err)
			assert.Empty(t, sps.Diagnostics)

			assert.Equal(t, oracle.ProfileIdc, sps.ProfileIDC)
			assert.Equal(t, oracle.LevelIdc, sps.LevelIDC)
			assert.Equal(t, oracle.Width(), sps.Width)
			assert.Equal(t, oracle.Height(), sps.Height)

			fps, _ := sps.FPS()
			assert.InDelta(t, oracle.FPS(), fps, 0.001)
		})
	}
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "1b", h264.LevelName(11, 66, true))
	assert.Equal(t, "1.1", h264.LevelName(11, 100, true))
	assert.Equal(t, "1b", h264.LevelName(9, 100, false))
	assert.Equal(t, "4.2", h264.LevelName(42, 100, false))
}

func TestNames(t *testing.T) {
	assert.True(t, h264.HasChromaInfo(100))
	assert.True(t, h264.HasChromaInfo(135))
	assert.False(t, h264.HasChromaInfo(66))
	assert.False(t, h264.HasChromaInfo(77))

	assert.Equal(t, "Baseline Profile", h264.ProfileName(66))
	assert.Equal(t, "Unknown profile (1)", h264.ProfileName(1))
	assert.Equal(t, "Monochrome", h264.ChromaFormatName(0))
	assert.Equal(t, "Unknown", h264.ChromaFormatName(7))
	assert.Equal(t, "16:11", h264.AspectRatioName(4))
	assert.Equal(t, "Extended_SAR", h264.AspectRatioName(255))
	assert.Equal(t, "Reserved", h264.AspectRatioName(100))
}
