package teststreaming

// Marks recorded while writing an SPS, usable with SPS.TruncatedUnit.
const (
	MarkSeqParameterSetID = "seq_parameter_set_id"
	MarkPicOrderCnt       = "pic_order_cnt_type"
	MarkFrameCropping     = "frame_cropping"
	MarkVUI               = "vui_parameters"
	MarkTimingInfo        = "timing_info"
)

type Crop struct {
	Left, Right, Top, Bottom uint32
}

type Timing struct {
	NumUnitsInTick uint32
	TimeScale      uint32
	FixedFrameRate bool
}

type VUI struct {
	AspectRatioPresent bool
	AspectRatioIDC     uint8
	SarWidth           uint16
	SarHeight          uint16

	OverscanPresent     bool
	OverscanAppropriate bool

	VideoSignalTypePresent   bool
	VideoFormat              uint8
	VideoFullRange           bool
	ColourDescriptionPresent bool
	ColourPrimaries          uint8
	TransferCharacteristics  uint8
	MatrixCoefficients       uint8

	ChromaLocPresent bool
	ChromaLocTop     uint32
	ChromaLocBottom  uint32

	Timing *Timing

	// NalHRD and VclHRD write an hrd_parameters() block with CPBCount CPBs,
	// one when CPBCount is zero.
	NalHRD   bool
	VclHRD   bool
	CPBCount int

	PicStructPresent     bool
	BitstreamRestriction bool
}

// SPS describes a sequence parameter set to encode. The zero value encodes
// a frame coded 4:2:0 stream.
type SPS struct {
	ProfileIDC      uint8
	ConstraintFlags uint8
	LevelIDC        uint8
	ID              uint32

	// used by profiles carrying chroma info only
	ChromaFormatIDC      uint32
	SeparateColourPlane  bool
	BitDepthLumaMinus8   uint32
	BitDepthChromaMinus8 uint32
	// ScalingLists maps a list index to the delta_scale values written for
	// it. Lists that are absent get their presence flag cleared.
	ScalingLists map[int][]int32

	Log2MaxFrameNumMinus4       uint32
	PicOrderCntType             uint32
	Log2MaxPicOrderCntLsbMinus4 uint32

	DeltaPicOrderAlwaysZero   bool
	OffsetForNonRefPic        int32
	OffsetForTopToBottomField int32
	OffsetForRefFrame         []int32

	MaxNumRefFrames           uint32
	PicWidthInMbsMinus1       uint32
	PicHeightInMapUnitsMinus1 uint32
	FieldCoded                bool
	MbAdaptiveFrameField      bool
	Direct8x8Inference        bool
	Crop                      *Crop
	VUI                       *VUI
	OmitTrailingBits          bool
}

// High720p is the 1280x720 High profile, level 3.1 SPS.
func High720p() SPS {
	return SPS{
		ProfileIDC:                100,
		LevelIDC:                  31,
		ChromaFormatIDC:           1,
		PicWidthInMbsMinus1:       79,
		PicHeightInMapUnitsMinus1: 44,
		Direct8x8Inference:        true,
	}
}

// Baseline288p is a 512x288 constrained Baseline SPS at 30 fps.
func Baseline288p() SPS {
	return SPS{
		ProfileIDC:                66,
		ConstraintFlags:           0xc0,
		LevelIDC:                  21,
		PicOrderCntType:           2,
		MaxNumRefFrames:           1,
		PicWidthInMbsMinus1:       31,
		PicHeightInMapUnitsMinus1: 17,
		Direct8x8Inference:        true,
		VUI: &VUI{
			Timing: &Timing{NumUnitsInTick: 1, TimeScale: 60, FixedFrameRate: true},
		},
	}
}

func hasChromaInfo(profileIDC uint8) bool {
	switch profileIDC {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	}
	return false
}

func (s SPS) write() *BitWriter {
	w := &BitWriter{}
	w.WriteBits(uint64(s.ProfileIDC), 8)
	w.WriteBits(uint64(s.ConstraintFlags), 8)
	w.WriteBits(uint64(s.LevelIDC), 8)
	w.Mark(MarkSeqParameterSetID)
	w.WriteUE(s.ID)

	if hasChromaInfo(s.ProfileIDC) {
		w.WriteUE(s.ChromaFormatIDC)
		if s.ChromaFormatIDC == 3 {
			w.WriteFlag(s.SeparateColourPlane)
		}
		w.WriteUE(s.BitDepthLumaMinus8)
		w.WriteUE(s.BitDepthChromaMinus8)
		w.WriteFlag(false)

		w.WriteFlag(len(s.ScalingLists) > 0)
		if len(s.ScalingLists) > 0 {
			count := 8
			if s.ChromaFormatIDC == 3 {
				count = 12
			}
			for i := 0; i < count; i++ {
				deltas, ok := s.ScalingLists[i]
				w.WriteFlag(ok)
				for _, d := range deltas {
					w.WriteSE(d)
				}
			}
		}
	}

	w.WriteUE(s.Log2MaxFrameNumMinus4)
	w.Mark(MarkPicOrderCnt)
	w.WriteUE(s.PicOrderCntType)
	switch s.PicOrderCntType {
	case 0:
		w.WriteUE(s.Log2MaxPicOrderCntLsbMinus4)
	case 1:
		w.WriteFlag(s.DeltaPicOrderAlwaysZero)
		w.WriteSE(s.OffsetForNonRefPic)
		w.WriteSE(s.OffsetForTopToBottomField)
		w.WriteUE(uint32(len(s.OffsetForRefFrame)))
		for _, o := range s.OffsetForRefFrame {
			w.WriteSE(o)
		}
	}

	w.WriteUE(s.MaxNumRefFrames)
	w.WriteFlag(false)
	w.WriteUE(s.PicWidthInMbsMinus1)
	w.WriteUE(s.PicHeightInMapUnitsMinus1)
	w.WriteFlag(!s.FieldCoded)
	if s.FieldCoded {
		w.WriteFlag(s.MbAdaptiveFrameField)
	}
	w.WriteFlag(s.Direct8x8Inference)

	w.Mark(MarkFrameCropping)
	w.WriteFlag(s.Crop != nil)
	if s.Crop != nil {
		w.WriteUE(s.Crop.Left)
		w.WriteUE(s.Crop.Right)
		w.WriteUE(s.Crop.Top)
		w.WriteUE(s.Crop.Bottom)
	}

	w.WriteFlag(s.VUI != nil)
	w.Mark(MarkVUI)
	if s.VUI != nil {
		s.VUI.write(w)
	}

	if !s.OmitTrailingBits {
		w.WriteTrailingBits()
	}
	return w
}

func (v *VUI) write(w *BitWriter) {
	w.WriteFlag(v.AspectRatioPresent)
	if v.AspectRatioPresent {
		w.WriteBits(uint64(v.AspectRatioIDC), 8)
		if v.AspectRatioIDC == 255 {
			w.WriteBits(uint64(v.SarWidth), 16)
			w.WriteBits(uint64(v.SarHeight), 16)
		}
	}

	w.WriteFlag(v.OverscanPresent)
	if v.OverscanPresent {
		w.WriteFlag(v.OverscanAppropriate)
	}

	w.WriteFlag(v.VideoSignalTypePresent)
	if v.VideoSignalTypePresent {
		w.WriteBits(uint64(v.VideoFormat), 3)
		w.WriteFlag(v.VideoFullRange)
		w.WriteFlag(v.ColourDescriptionPresent)
		if v.ColourDescriptionPresent {
			w.WriteBits(uint64(v.ColourPrimaries), 8)
			w.WriteBits(uint64(v.TransferCharacteristics), 8)
			w.WriteBits(uint64(v.MatrixCoefficients), 8)
		}
	}

	w.WriteFlag(v.ChromaLocPresent)
	if v.ChromaLocPresent {
		w.WriteUE(v.ChromaLocTop)
		w.WriteUE(v.ChromaLocBottom)
	}

	w.WriteFlag(v.Timing != nil)
	if v.Timing != nil {
		w.WriteBits(uint64(v.Timing.NumUnitsInTick), 32)
		w.WriteBits(uint64(v.Timing.TimeScale), 32)
		w.Mark(MarkTimingInfo)
		w.WriteFlag(v.Timing.FixedFrameRate)
	}

	w.WriteFlag(v.NalHRD)
	if v.NalHRD {
		writeHRD(w, v.CPBCount)
	}
	w.WriteFlag(v.VclHRD)
	if v.VclHRD {
		writeHRD(w, v.CPBCount)
	}
	if v.NalHRD || v.VclHRD {
		w.WriteFlag(false)
	}

	w.WriteFlag(v.PicStructPresent)

	w.WriteFlag(v.BitstreamRestriction)
	if v.BitstreamRestriction {
		w.WriteFlag(true)
		w.WriteUE(2)
		w.WriteUE(1)
		w.WriteUE(16)
		w.WriteUE(16)
		w.WriteUE(0)
		w.WriteUE(1)
	}
}

func writeHRD(w *BitWriter, cpbCount int) {
	if cpbCount < 1 {
		cpbCount = 1
	}
	w.WriteUE(uint32(cpbCount - 1)) // cpb_cnt_minus1
	w.WriteBits(4, 4)               // bit_rate_scale
	w.WriteBits(6, 4)               // cpb_size_scale
	for i := 0; i < cpbCount; i++ {
		w.WriteUE(uint32(15624 * (i + 1))) // bit_rate_value_minus1
		w.WriteUE(uint32(62499 * (i + 1))) // cpb_size_value_minus1
		w.WriteFlag(i%2 == 1)              // cbr_flag
	}
	w.WriteBits(23, 5)
	w.WriteBits(23, 5)
	w.WriteBits(23, 5)
	w.WriteBits(24, 5)
}

// RBSP returns the SPS payload after the header byte, without emulation
// prevention.
func (s SPS) RBSP() []byte {
	return s.write().Bytes()
}

// Unit returns the SPS NAL unit: header byte 0x67 and the escaped payload.
func (s SPS) Unit() []byte {
	return append([]byte{0x67}, AddEmulationPrevention(s.RBSP())...)
}

// TruncatedUnit returns the SPS unit cut at the first byte boundary at or
// after the named mark. It panics on unknown marks.
func (s SPS) TruncatedUnit(mark string) []byte {
	w := s.write()
	pos := w.MarkAt(mark)
	if pos < 0 {
		panic("teststreaming: unknown mark " + mark)
	}
	rbsp := w.Bytes()[:(pos+7)/8]
	return append([]byte{0x67}, AddEmulationPrevention(rbsp)...)
}
