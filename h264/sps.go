package h264

import (
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// SPSInfo is a parsed sequence parameter set (Rec. ITU-T H.264 (08/2021)
// 7.3.2.1.1). Fields that were not reached keep their inferred defaults.
type SPSInfo struct {
	ProfileIDC          uint8
	ConstraintFlags     uint8
	ConstraintSet0Flag  bool
	ConstraintSet1Flag  bool
	ConstraintSet2Flag  bool
	ConstraintSet3Flag  bool
	ConstraintSet4Flag  bool
	ConstraintSet5Flag  bool
	ReservedZero2Bits   uint8
	LevelIDC            uint8
	SeqParameterSetID   uint32
	ChromaFormatIDC     uint32
	SeparateColourPlane bool
	BitDepthLuma        uint32
	BitDepthChroma      uint32

	QPPrimeYZeroTransformBypassFlag bool
	SeqScalingMatrixPresentFlag     bool

	Log2MaxFrameNumMinus4          uint32
	MaxFrameNum                    uint32
	PicOrderCntType                uint32
	Log2MaxPicOrderCntLsbMinus4    uint32
	MaxPicOrderCntLsb              uint32
	DeltaPicOrderAlwaysZeroFlag    bool
	OffsetForNonRefPic             int32
	OffsetForTopToBottomField      int32
	NumRefFramesInPicOrderCntCycle uint32
	OffsetForRefFrame              []int32

	MaxNumRefFrames                uint32
	GapsInFrameNumValueAllowedFlag bool
	PicWidthInMbsMinus1            uint32
	PicHeightInMapUnitsMinus1      uint32
	FrameMbsOnlyFlag               bool
	MbAdaptiveFrameFieldFlag       bool
	Direct8x8InferenceFlag         bool

	FrameCroppingFlag     bool
	FrameCropLeftOffset   uint32
	FrameCropRightOffset  uint32
	FrameCropTopOffset    uint32
	FrameCropBottomOffset uint32

	// Width and Height are in pixels with cropping applied. They stay zero
	// when the picture size fields were not reached.
	Width  int
	Height int

	VUIParametersPresentFlag bool
	VUI                      *VUIInfo

	DecoderConfig DecoderConfig

	// Diagnostics lists the masked failures of optional sub-structures and
	// the read failure that stopped parsing early, if any.
	Diagnostics []error
	// ParseError is set on the minimal result built from fixed byte offsets
	// when a mandatory leading field could not be read. Only ProfileIDC,
	// ConstraintFlags, LevelIDC and DecoderConfig are meaningful then.
	ParseError error
}

// Interlaced reports field coding.
func (s *SPSInfo) Interlaced() bool {
	return !s.FrameMbsOnlyFlag
}

// FPS returns the frame rate signalled in the VUI timing info.
func (s *SPSInfo) FPS() (float64, bool) {
	if s.VUI == nil || s.VUI.FPS == nil {
		return 0, false
	}
	return *s.VUI.FPS, true
}

func (s *SPSInfo) ProfileName() string {
	return ProfileName(s.ProfileIDC)
}

func (s *SPSInfo) LevelName() string {
	return LevelName(s.LevelIDC, s.ProfileIDC, s.ConstraintSet3Flag)
}

// CodecString returns the "avc1.PPCCLL" codec identifier.
func CodecString(profileIDC, constraintFlags, levelIDC uint8) string {
	return fmt.Sprintf("avc1.%02x%02x%02x", profileIDC, constraintFlags, levelIDC)
}

// ParseSPS parses an SPS unit: the NALU header byte followed by the payload,
// without start code.
//
// When the unit has at least 4 bytes a non-nil SPSInfo is always returned.
// The error is non-nil only when a mandatory leading field could not be
// read; the result then carries profile, constraints and level taken from
// bytes 1-3. Shorter units yield no SPSInfo at all.
func ParseSPS(unit []byte) (*SPSInfo, error) {
	if len(unit) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrSPSParseFailed, len(unit))
	}

	description := make([]byte, len(unit))
	copy(description, unit)

	s := &SPSInfo{
		ChromaFormatIDC:  1,
		BitDepthLuma:     8,
		BitDepthChroma:   8,
		FrameMbsOnlyFlag: true,
	}

	p := &spsParser{
		r: NewBitReader(h264.EmulationPreventionRemove(unit[1:])),
		s: s,
	}

	if err := p.parseLeadingFields(); err != nil {
		fallback := minimalSPSInfo(unit)
		fallback.ParseError = fmt.Errorf("%w: %w", ErrSPSParseFailed, err)
		fallback.DecoderConfig = DecoderConfig{
			Codec:       CodecString(fallback.ProfileIDC, fallback.ConstraintFlags, fallback.LevelIDC),
			Description: description,
		}
		return fallback, fallback.ParseError
	}

	if err := p.parseRemainingFields(); err != nil {
		s.Diagnostics = append(s.Diagnostics, err)
	}

	s.DecoderConfig = DecoderConfig{
		Codec:       CodecString(s.ProfileIDC, s.ConstraintFlags, s.LevelIDC),
		Description: description,
		CodedWidth:  s.Width,
		CodedHeight: s.Height,
	}

	return s, nil
}

func minimalSPSInfo(unit []byte) *SPSInfo {
	s := &SPSInfo{
		ProfileIDC:       unit[1],
		LevelIDC:         unit[3],
		ChromaFormatIDC:  1,
		BitDepthLuma:     8,
		BitDepthChroma:   8,
		FrameMbsOnlyFlag: true,
	}
	s.setConstraintFlags(unit[2])
	return s
}

func (s *SPSInfo) setConstraintFlags(b uint8) {
	s.ConstraintFlags = b
	s.ConstraintSet0Flag = b&0x80 != 0
	s.ConstraintSet1Flag = b&0x40 != 0
	s.ConstraintSet2Flag = b&0x20 != 0
	s.ConstraintSet3Flag = b&0x10 != 0
	s.ConstraintSet4Flag = b&0x08 != 0
	s.ConstraintSet5Flag = b&0x04 != 0
	s.ReservedZero2Bits = b & 0x03
}

// spsParser runs the SPS syntax as a chain of steps. Each step returns its
// failure and the caller decides whether to mask it or stop.
type spsParser struct {
	r *BitReader
	s *SPSInfo
}

func (p *spsParser) parseLeadingFields() error {
	profile, err := p.r.ReadBits(8)
	if err != nil {
		return err
	}
	p.s.ProfileIDC = uint8(profile)

	constraints, err := p.r.ReadBits(8)
	if err != nil {
		return err
	}
	p.s.setConstraintFlags(uint8(constraints))

	level, err := p.r.ReadBits(8)
	if err != nil {
		return err
	}
	p.s.LevelIDC = uint8(level)

	p.s.SeqParameterSetID, err = p.r.ReadUE()
	return err
}

// parseRemainingFields stops at the first unmasked read failure and returns
// it; the fields parsed up to that point are kept.
func (p *spsParser) parseRemainingFields() error {
	s := p.s
	r := p.r
	var err error

	if HasChromaInfo(s.ProfileIDC) {
		if err = p.parseChromaInfo(); err != nil {
			return err
		}
	}

	if s.Log2MaxFrameNumMinus4, err = r.ReadUE(); err != nil {
		return err
	}
	s.MaxFrameNum = maxFromLog2Minus4(s.Log2MaxFrameNumMinus4)

	if s.PicOrderCntType, err = r.ReadUE(); err != nil {
		return err
	}
	switch s.PicOrderCntType {
	case 0:
		if s.Log2MaxPicOrderCntLsbMinus4, err = r.ReadUE(); err != nil {
			return err
		}
		s.MaxPicOrderCntLsb = maxFromLog2Minus4(s.Log2MaxPicOrderCntLsbMinus4)
	case 1:
		if err = p.parsePicOrderCntType1(); err != nil {
			s.Diagnostics = append(s.Diagnostics, fmt.Errorf("%w: %w", ErrPicOrderCnt, err))
		}
	}

	if s.MaxNumRefFrames, err = r.ReadUE(); err != nil {
		return err
	}
	if s.GapsInFrameNumValueAllowedFlag, err = r.ReadFlag(); err != nil {
		return err
	}

	if s.PicWidthInMbsMinus1, err = r.ReadUE(); err != nil {
		return err
	}
	if s.PicHeightInMapUnitsMinus1, err = r.ReadUE(); err != nil {
		return err
	}
	if s.FrameMbsOnlyFlag, err = r.ReadFlag(); err != nil {
		// frame_mbs_only_flag unknown: keep the frame-coded default
		s.FrameMbsOnlyFlag = true
		s.setDimensions()
		return err
	}
	s.setDimensions()

	if !s.FrameMbsOnlyFlag {
		if s.MbAdaptiveFrameFieldFlag, err = r.ReadFlag(); err != nil {
			return err
		}
	}
	if s.Direct8x8InferenceFlag, err = r.ReadFlag(); err != nil {
		return err
	}

	if s.FrameCroppingFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if s.FrameCroppingFlag {
		if err = p.parseCropping(); err != nil {
			s.FrameCroppingFlag = false
			s.FrameCropLeftOffset = 0
			s.FrameCropRightOffset = 0
			s.FrameCropTopOffset = 0
			s.FrameCropBottomOffset = 0
			s.Diagnostics = append(s.Diagnostics, fmt.Errorf("%w: %w", ErrCropping, err))
		}
	}
	s.setDimensions()

	if s.VUIParametersPresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if s.VUIParametersPresentFlag {
		s.VUI, err = parseVUI(r)
		if err != nil {
			s.Diagnostics = append(s.Diagnostics, err)
		}
	}

	return nil
}

func (p *spsParser) parseChromaInfo() error {
	s := p.s
	r := p.r
	var err error

	if s.ChromaFormatIDC, err = r.ReadUE(); err != nil {
		s.ChromaFormatIDC = 1
		return err
	}
	if s.ChromaFormatIDC == 3 {
		if s.SeparateColourPlane, err = r.ReadFlag(); err != nil {
			return err
		}
	}

	lumaMinus8, err := r.ReadUE()
	if err != nil {
		return err
	}
	s.BitDepthLuma = lumaMinus8 + 8

	chromaMinus8, err := r.ReadUE()
	if err != nil {
		return err
	}
	s.BitDepthChroma = chromaMinus8 + 8

	if s.QPPrimeYZeroTransformBypassFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if s.SeqScalingMatrixPresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if s.SeqScalingMatrixPresentFlag {
		if err = p.skipScalingMatrix(); err != nil {
			s.Diagnostics = append(s.Diagnostics, fmt.Errorf("%w: %w", ErrScalingMatrix, err))
		}
	}

	return nil
}

func (p *spsParser) skipScalingMatrix() error {
	count := 8
	if p.s.ChromaFormatIDC == 3 {
		count = 12
	}

	for i := 0; i < count; i++ {
		present, err := p.r.ReadFlag()
		if err != nil {
			return err
		}
		if !present {
			continue
		}

		size := 16
		if i >= 6 {
			size = 64
		}
		if err = skipScalingList(p.r, size); err != nil {
			return fmt.Errorf("list %d: %w", i, err)
		}
	}
	return nil
}

// skipScalingList consumes scaling_list() (7.3.2.1.1.1).
func skipScalingList(r *BitReader, size int) error {
	lastScale := int32(8)
	nextScale := int32(8)

	for j := 0; j < size; j++ {
		if nextScale != 0 {
			deltaScale, err := r.ReadSE()
			if err != nil {
				return err
			}
			nextScale = (lastScale + deltaScale + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}

func (p *spsParser) parsePicOrderCntType1() error {
	s := p.s
	r := p.r
	var err error

	if s.DeltaPicOrderAlwaysZeroFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if s.OffsetForNonRefPic, err = r.ReadSE(); err != nil {
		return err
	}
	if s.OffsetForTopToBottomField, err = r.ReadSE(); err != nil {
		return err
	}
	if s.NumRefFramesInPicOrderCntCycle, err = r.ReadUE(); err != nil {
		return err
	}

	// the count is attacker controlled, grow as entries are actually read
	for i := uint64(0); i < uint64(s.NumRefFramesInPicOrderCntCycle); i++ {
		offset, err := r.ReadSE()
		if err != nil {
			return fmt.Errorf("offset_for_ref_frame[%d]: %w", i, err)
		}
		s.OffsetForRefFrame = append(s.OffsetForRefFrame, offset)
	}
	return nil
}

func (p *spsParser) parseCropping() error {
	s := p.s
	r := p.r

	left, err := r.ReadUE()
	if err != nil {
		return err
	}
	right, err := r.ReadUE()
	if err != nil {
		return err
	}
	top, err := r.ReadUE()
	if err != nil {
		return err
	}
	bottom, err := r.ReadUE()
	if err != nil {
		return err
	}

	s.FrameCropLeftOffset = left
	s.FrameCropRightOffset = right
	s.FrameCropTopOffset = top
	s.FrameCropBottomOffset = bottom
	return nil
}

// CropUnits returns CropUnitX and CropUnitY for the chroma format and frame
// coding of the SPS.
func (s *SPSInfo) CropUnits() (int, int) {
	frameFactor := 2
	if s.FrameMbsOnlyFlag {
		frameFactor = 1
	}
	switch s.ChromaFormatIDC {
	case 1:
		return 2, 2 * frameFactor
	case 2:
		return 2, frameFactor
	default:
		return 1, frameFactor
	}
}

func (s *SPSInfo) setDimensions() {
	frameFactor := int64(2)
	if s.FrameMbsOnlyFlag {
		frameFactor = 1
	}

	width := (int64(s.PicWidthInMbsMinus1) + 1) * 16
	height := frameFactor * (int64(s.PicHeightInMapUnitsMinus1) + 1) * 16

	if s.FrameCroppingFlag {
		cropUnitX, cropUnitY := s.CropUnits()
		width -= (int64(s.FrameCropLeftOffset) + int64(s.FrameCropRightOffset)) * int64(cropUnitX)
		height -= (int64(s.FrameCropTopOffset) + int64(s.FrameCropBottomOffset)) * int64(cropUnitY)
	}

	s.Width = int(max(width, 0))
	s.Height = int(max(height, 0))
}

func maxFromLog2Minus4(v uint32) uint32 {
	if v > 12 {
		// out of range (7.4.2.1.1), avoid shifting past 32 bits
		return 0
	}
	return 1 << (v + 4)
}

// IsTruncated reports whether SPS parsing stopped before the end of the
// syntax structure.
func (s *SPSInfo) IsTruncated() bool {
	for _, err := range s.Diagnostics {
		if errors.Is(err, ErrBitstreamExhausted) && !isMasked(err) {
			return true
		}
	}
	return false
}

func isMasked(err error) bool {
	return errors.Is(err, ErrScalingMatrix) ||
		errors.Is(err, ErrPicOrderCnt) ||
		errors.Is(err, ErrCropping) ||
		errors.Is(err, ErrVUITruncated)
}
