package wire

// NullSize is the size value that encodes an absent (null) sequence.
const NullSize = -1

const (
	nullSizeByte = 0xFF
	longSizeByte = 0xFE
)

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

// SizeLen returns the number of bytes PutSize uses for n.
func SizeLen(n int) int {
	if n >= longSizeByte {
		return 5
	}
	return 1
}
