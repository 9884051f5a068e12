package h264

// SEI is the first message of an SEI NALU.
type SEI struct {
	PayloadType int
	PayloadSize int
	Payload     []byte
}

// ParseSEI reads the ff-extended payload type and size of the first SEI
// message in rbsp (Rec. ITU-T H.264 (08/2021) 7.3.2.3.1).
func ParseSEI(rbsp []byte) (SEI, error) {
	s := SEI{}
	offset := 0

	for {
		if offset >= len(rbsp) {
			return SEI{}, ErrBitstreamExhausted
		}
		b := rbsp[offset]
		offset++
		s.PayloadType += int(b)
		if b != 0xff {
			break
		}
	}

	for {
		if offset >= len(rbsp) {
			return SEI{}, ErrBitstreamExhausted
		}
		b := rbsp[offset]
		offset++
		s.PayloadSize += int(b)
		if b != 0xff {
			break
		}
	}

	end := offset + s.PayloadSize
	if end > len(rbsp) {
		end = len(rbsp)
	}
	s.Payload = rbsp[offset:end]

	return s, nil
}
