package eia608

import (
	"github.com/flavioribeiro/h264viewer/h264"

	gocaption "github.com/szatmary/gocaption"
)

// ANSI/SCTE 128-1 2020: captions travel in SEI messages of payload type 4
// (user_data_registered_itu_t_t35).
const seiPayloadTypeCaptions = 4

type EIA608Reader struct {
	frame gocaption.EIA608Frame
}

func NewEIA608Reader() (r *EIA608Reader) {
	return &EIA608Reader{}
}

// Parse feeds the caption bytes of every SEI unit into the 608 decoder and
// returns the first complete caption, "" when none is ready yet.
func (r *EIA608Reader) Parse(nalus []h264.NALU) (string, error) {
	for _, nal := range nalus {
		text, err := r.ParseNALU(nal)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	return "", nil
}

func (r *EIA608Reader) ParseNALU(nal h264.NALU) (string, error) {
	if nal.Type != h264.SupplementalEnhancementInformation {
		return "", nil
	}
	sei, err := h264.ParseSEI(nal.RBSP())
	if err != nil {
		return "", err
	}
	if sei.PayloadType != seiPayloadTypeCaptions {
		return "", nil
	}

	cea708, err := gocaption.CEA708ToCCData(sei.Payload)
	if err != nil {
		return "", err
	}
	for _, c := range cea708 {
		ready, err := r.frame.Decode(c)
		if err != nil {
			return "", err
		}
		if ready {
			return r.frame.String(), nil
		}
	}
	return "", nil
}
