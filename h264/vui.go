package h264

import "fmt"

const extendedSAR = 255

// VUIInfo is the subset of video usability information (Annex E) needed for
// display and timing. HRD parameters are skipped and not retained.
type VUIInfo struct {
	AspectRatioInfoPresentFlag bool
	AspectRatioIDC             uint8
	SarWidth                   uint16
	SarHeight                  uint16

	OverscanInfoPresentFlag bool
	OverscanAppropriateFlag bool

	VideoSignalTypePresentFlag   bool
	VideoFormat                  uint8
	VideoFullRangeFlag           bool
	ColourDescriptionPresentFlag bool
	ColourPrimaries              uint8
	TransferCharacteristics      uint8
	MatrixCoefficients           uint8

	ChromaLocInfoPresentFlag       bool
	ChromaSampleLocTypeTopField    uint32
	ChromaSampleLocTypeBottomField uint32

	TimingInfoPresentFlag bool
	NumUnitsInTick        uint32
	TimeScale             uint32
	FixedFrameRateFlag    bool
	// FPS is nil unless both TimeScale and NumUnitsInTick are non-zero.
	FPS *float64

	NalHRDParametersPresentFlag bool
	VclHRDParametersPresentFlag bool
	LowDelayHRDFlag             bool
	PicStructPresentFlag        bool
	BitstreamRestrictionFlag    bool

	// Truncated is set when a read failed; the fields after the failure keep
	// their zero values.
	Truncated bool
}

// SampleAspectRatio renders the sample aspect ratio, "" when absent.
func (v *VUIInfo) SampleAspectRatio() string {
	if v == nil || !v.AspectRatioInfoPresentFlag {
		return ""
	}
	if v.AspectRatioIDC == extendedSAR {
		return fmt.Sprintf("%d:%d", v.SarWidth, v.SarHeight)
	}
	return AspectRatioName(v.AspectRatioIDC)
}

// parseVUI continues on the SPS cursor. A failed read returns the fields
// parsed so far together with an error wrapping ErrVUITruncated.
func parseVUI(r *BitReader) (*VUIInfo, error) {
	v := &VUIInfo{}
	if err := v.unmarshal(r); err != nil {
		v.Truncated = true
		return v, fmt.Errorf("%w: %w", ErrVUITruncated, err)
	}
	return v, nil
}

func (v *VUIInfo) unmarshal(r *BitReader) error {
	var err error

	if v.AspectRatioInfoPresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if v.AspectRatioInfoPresentFlag {
		idc, err := r.ReadBits(8)
		if err != nil {
			return err
		}
		v.AspectRatioIDC = uint8(idc)

		if v.AspectRatioIDC == extendedSAR {
			w, err := r.ReadBits(16)
			if err != nil {
				return err
			}
			v.SarWidth = uint16(w)

			h, err := r.ReadBits(16)
			if err != nil {
				return err
			}
			v.SarHeight = uint16(h)
		}
	}

	if v.OverscanInfoPresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if v.OverscanInfoPresentFlag {
		if v.OverscanAppropriateFlag, err = r.ReadFlag(); err != nil {
			return err
		}
	}

	if err = v.unmarshalVideoSignalType(r); err != nil {
		return err
	}

	if v.ChromaLocInfoPresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if v.ChromaLocInfoPresentFlag {
		if v.ChromaSampleLocTypeTopField, err = r.ReadUE(); err != nil {
			return err
		}
		if v.ChromaSampleLocTypeBottomField, err = r.ReadUE(); err != nil {
			return err
		}
	}

	if err = v.unmarshalTimingInfo(r); err != nil {
		return err
	}

	if v.NalHRDParametersPresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if v.NalHRDParametersPresentFlag {
		if err = skipHRDParameters(r); err != nil {
			return err
		}
	}

	if v.VclHRDParametersPresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if v.VclHRDParametersPresentFlag {
		if err = skipHRDParameters(r); err != nil {
			return err
		}
	}

	if v.NalHRDParametersPresentFlag || v.VclHRDParametersPresentFlag {
		if v.LowDelayHRDFlag, err = r.ReadFlag(); err != nil {
			return err
		}
	}

	if v.PicStructPresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}

	if v.BitstreamRestrictionFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if v.BitstreamRestrictionFlag {
		return skipBitstreamRestriction(r)
	}

	return nil
}

func (v *VUIInfo) unmarshalVideoSignalType(r *BitReader) error {
	var err error
	if v.VideoSignalTypePresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if !v.VideoSignalTypePresentFlag {
		return nil
	}

	format, err := r.ReadBits(3)
	if err != nil {
		return err
	}
	v.VideoFormat = uint8(format)

	if v.VideoFullRangeFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if v.ColourDescriptionPresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if !v.ColourDescriptionPresentFlag {
		return nil
	}

	primaries, err := r.ReadBits(8)
	if err != nil {
		return err
	}
	v.ColourPrimaries = uint8(primaries)

	transfer, err := r.ReadBits(8)
	if err != nil {
		return err
	}
	v.TransferCharacteristics = uint8(transfer)

	matrix, err := r.ReadBits(8)
	if err != nil {
		return err
	}
	v.MatrixCoefficients = uint8(matrix)

	return nil
}

func (v *VUIInfo) unmarshalTimingInfo(r *BitReader) error {
	var err error
	if v.TimingInfoPresentFlag, err = r.ReadFlag(); err != nil {
		return err
	}
	if !v.TimingInfoPresentFlag {
		return nil
	}

	if v.NumUnitsInTick, err = r.ReadBits(32); err != nil {
		return err
	}
	if v.TimeScale, err = r.ReadBits(32); err != nil {
		return err
	}
	if v.NumUnitsInTick > 0 && v.TimeScale > 0 {
		fps := float64(v.TimeScale) / (2 * float64(v.NumUnitsInTick))
		v.FPS = &fps
	}

	v.FixedFrameRateFlag, err = r.ReadFlag()
	return err
}

// skipHRDParameters consumes hrd_parameters() (E.1.2).
func skipHRDParameters(r *BitReader) error {
	cpbCntMinus1, err := r.ReadUE()
	if err != nil {
		return err
	}

	// bit_rate_scale, cpb_size_scale
	if err = r.SkipBits(4 + 4); err != nil {
		return err
	}

	for i := uint64(0); i <= uint64(cpbCntMinus1); i++ {
		if _, err = r.ReadUE(); err != nil {
			return err
		}
		if _, err = r.ReadUE(); err != nil {
			return err
		}
		if _, err = r.ReadBit(); err != nil {
			return err
		}
	}

	// initial_cpb_removal_delay_length_minus1, cpb_removal_delay_length_minus1,
	// dpb_output_delay_length_minus1, time_offset_length
	return r.SkipBits(5 + 5 + 5 + 5)
}

func skipBitstreamRestriction(r *BitReader) error {
	// motion_vectors_over_pic_boundaries_flag
	if _, err := r.ReadBit(); err != nil {
		return err
	}
	// max_bytes_per_pic_denom, max_bits_per_mb_denom,
	// log2_max_mv_length_horizontal, log2_max_mv_length_vertical,
	// max_num_reorder_frames, max_dec_frame_buffering
	for i := 0; i < 6; i++ {
		if _, err := r.ReadUE(); err != nil {
			return err
		}
	}
	return nil
}
