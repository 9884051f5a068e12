package teststreaming

// BitWriter builds MSB-first bitstreams for fixtures.
type BitWriter struct {
	buf   []byte
	nbits int
	marks map[string]int
}

// Mark records the current bit position under name.
func (w *BitWriter) Mark(name string) {
	if w.marks == nil {
		w.marks = map[string]int{}
	}
	w.marks[name] = w.nbits
}

// MarkAt returns the bit position recorded by Mark, -1 when unknown.
func (w *BitWriter) MarkAt(name string) int {
	pos, ok := w.marks[name]
	if !ok {
		return -1
	}
	return pos
}

func (w *BitWriter) WriteBit(b uint8) {
	if w.nbits%8 == 0 {
		w.buf = append(w.buf, 0)
	}
	if b != 0 {
		w.buf[len(w.buf)-1] |= 0x80 >> (w.nbits % 8)
	}
	w.nbits++
}

func (w *BitWriter) WriteFlag(v bool) {
	if v {
		w.WriteBit(1)
		return
	}
	w.WriteBit(0)
}

// WriteBits writes the n low bits of v, MSB first.
func (w *BitWriter) WriteBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.WriteBit(uint8(v>>i) & 0x01)
	}
}

func (w *BitWriter) WriteUE(v uint32) {
	codeNum := uint64(v) + 1
	length := 0
	for tmp := codeNum; tmp > 0; tmp >>= 1 {
		length++
	}
	w.WriteBits(0, length-1)
	w.WriteBits(codeNum, length)
}

func (w *BitWriter) WriteSE(v int32) {
	if v > 0 {
		w.WriteUE(uint32(2*int64(v) - 1))
		return
	}
	w.WriteUE(uint32(-2 * int64(v)))
}

// WriteTrailingBits writes rbsp_trailing_bits(): the stop bit and zero
// padding up to the byte boundary.
func (w *BitWriter) WriteTrailingBits() {
	w.WriteBit(1)
	for w.nbits%8 != 0 {
		w.WriteBit(0)
	}
}

// Len returns the number of bits written.
func (w *BitWriter) Len() int {
	return w.nbits
}

func (w *BitWriter) Bytes() []byte {
	return w.buf
}

// AddEmulationPrevention inserts 0x03 after every pair of zero bytes that is
// followed by a byte <= 0x03.
func AddEmulationPrevention(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+len(rbsp)/2)
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 0x03 {
			out = append(out, 0x03)
			zeros = 0
		}
		out = append(out, b)
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}
