package h264

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/bits"
)

// maxLeadingZeroBits is the longest ue(v) prefix whose value still fits in
// 32 bits.
const maxLeadingZeroBits = 31

// BitReader is an MSB-first cursor over a byte slice. Reads only advance the
// cursor; nothing is allocated.
//
// Reads are bounds-checked here before they reach the bits package so that
// callers always see ErrBitstreamExhausted instead of an untyped error.
type BitReader struct {
	buf []byte
	pos int
}

func NewBitReader(buf []byte) *BitReader {
	return &BitReader{buf: buf}
}

// Position returns the byte index and the bit index (0-7, from the MSB) of
// the next bit to be read.
func (r *BitReader) Position() (int, int) {
	return r.pos / 8, r.pos % 8
}

func (r *BitReader) RemainingBits() int {
	return len(r.buf)*8 - r.pos
}

func (r *BitReader) ReadBit() (uint8, error) {
	flag, err := r.ReadFlag()
	if flag {
		return 1, err
	}
	return 0, err
}

func (r *BitReader) ReadFlag() (bool, error) {
	if r.RemainingBits() < 1 {
		return false, ErrBitstreamExhausted
	}
	return bits.ReadFlag(r.buf, &r.pos)
}

// ReadBits composes n sequential bits, MSB first.
func (r *BitReader) ReadBits(n int) (uint32, error) {
	if n < 0 || n > 32 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBitCount, n)
	}
	if n > r.RemainingBits() {
		return 0, ErrBitstreamExhausted
	}
	v, err := bits.ReadBits(r.buf, &r.pos, n)
	return uint32(v), err
}

// leadingZeroBits counts the zero bits ahead of the cursor without moving it.
// It stops one past maxLeadingZeroBits.
func (r *BitReader) leadingZeroBits() (int, error) {
	for n := 0; ; n++ {
		pos := r.pos + n
		if pos >= len(r.buf)*8 {
			return 0, ErrBitstreamExhausted
		}
		if r.buf[pos/8]>>(7-pos%8)&0x01 == 1 || n > maxLeadingZeroBits {
			return n, nil
		}
	}
}

// ReadUE decodes an unsigned Exp-Golomb value ue(v).
func (r *BitReader) ReadUE() (uint32, error) {
	lz, err := r.leadingZeroBits()
	if err != nil {
		return 0, err
	}
	if lz > maxLeadingZeroBits {
		// bits.ReadGolombUnsigned accepts a 32 bit prefix and wraps.
		r.pos += lz
		return 0, ErrExpGolombOverflow
	}
	if 2*lz+1 > r.RemainingBits() {
		return 0, ErrBitstreamExhausted
	}
	return bits.ReadGolombUnsigned(r.buf, &r.pos)
}

// ReadSE decodes a signed Exp-Golomb value se(v): odd codes map to positive
// values, even codes to zero and negative values.
func (r *BitReader) ReadSE() (int32, error) {
	// bits.ReadGolombSigned goes through int32 and gets codes above 1<<31 wrong.
	k, err := r.ReadUE()
	if err != nil {
		return 0, err
	}
	if k%2 == 0 {
		return -int32(k / 2), nil
	}
	return int32((uint64(k) + 1) / 2), nil
}

func (r *BitReader) SkipBits(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBitCount, n)
	}
	if n > r.RemainingBits() {
		r.pos = len(r.buf) * 8
		return ErrBitstreamExhausted
	}
	r.pos += n
	return nil
}

// ByteAlign advances to the next byte boundary. It is a no-op when the
// cursor is already aligned.
func (r *BitReader) ByteAlign() error {
	if r.pos%8 == 0 {
		return nil
	}
	return r.SkipBits(8 - r.pos%8)
}
