package h264

import (
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// NALU is one Annex-B unit. Data aliases the scanned buffer and spans the
// start code, the header byte and the payload.
type NALU struct {
	StartOffset     int
	Length          int
	StartCodeLength int
	Type            NALUnitType
	RefIDC          byte
	Data            []byte
}

// Unit returns the header byte and the payload, without the start code.
func (n NALU) Unit() []byte {
	return n.Data[n.StartCodeLength:]
}

// Payload returns the bytes after the header byte.
func (n NALU) Payload() []byte {
	return n.Data[n.StartCodeLength+1:]
}

// RBSP returns the payload with emulation prevention bytes removed.
func (n NALU) RBSP() []byte {
	return h264.EmulationPreventionRemove(n.Payload())
}

// ForbiddenBit reports whether forbidden_zero_bit is set.
func (n NALU) ForbiddenBit() bool {
	return n.Data[n.StartCodeLength]>>7&0x01 != 0
}

// Scanner walks a buffer one NALU at a time so callers can stop between
// units.
type Scanner struct {
	data []byte
	pos  int
	err  error
}

func NewScanner(data []byte) *Scanner {
	return &Scanner{data: data}
}

// Next returns the next unit. It returns false at the end of the buffer or
// when no start code sits at the current position.
func (s *Scanner) Next() (NALU, bool) {
	if s.err != nil || s.pos >= len(s.data) {
		return NALU{}, false
	}

	startCodeLen := startCodeAt(s.data, s.pos)
	if startCodeLen == 0 || s.pos+startCodeLen >= len(s.data) {
		s.err = ErrMalformedStartCode
		return NALU{}, false
	}

	start := s.pos
	end := nextStartCode(s.data, start+startCodeLen)
	header := s.data[start+startCodeLen]
	s.pos = end

	return NALU{
		StartOffset:     start,
		Length:          end - start,
		StartCodeLength: startCodeLen,
		Type:            NALUnitType(header & 0x1f),
		RefIDC:          (header >> 5) & 0x03,
		Data:            s.data[start:end:end],
	}, true
}

// Offset is the number of bytes consumed so far.
func (s *Scanner) Offset() int {
	return s.pos
}

// Err returns ErrMalformedStartCode when the scan stopped before the end of
// the buffer.
func (s *Scanner) Err() error {
	return s.err
}

// ScanNALUs splits data into NALUs. Trailing garbage or a truncated capture
// ends the scan silently; the units found so far are returned.
func ScanNALUs(data []byte) []NALU {
	var nalus []NALU
	s := NewScanner(data)
	for {
		n, ok := s.Next()
		if !ok {
			return nalus
		}
		nalus = append(nalus, n)
	}
}

func startCodeAt(data []byte, i int) int {
	if i+3 >= len(data) {
		return 0
	}
	if data[i] == 0x00 && data[i+1] == 0x00 && data[i+2] == 0x01 {
		return 3
	}
	if data[i] == 0x00 && data[i+1] == 0x00 && data[i+2] == 0x00 && data[i+3] == 0x01 {
		return 4
	}
	return 0
}

func nextStartCode(data []byte, i int) int {
	for i < len(data)-3 {
		if data[i] != 0x00 || data[i+1] != 0x00 {
			i++
			continue
		}
		if data[i+2] == 0x01 {
			return i
		}
		if data[i+2] == 0x00 && data[i+3] == 0x01 {
			return i
		}
		// 00 00 not followed by 01 or 00 01
		i += 2
	}
	return len(data)
}
