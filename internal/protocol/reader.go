package protocol

import (
	"encoding/binary"
	"strings"
)

const (
	printableMin = 0x21
	printableMax = 0x7E
)

// ExtractPrintable reads at most maxLen bytes of data starting at start.
// A NUL byte terminates the scan. Bytes in 0x21..0x7E are accumulated; any
// other byte discards everything accumulated so far. Reads past the end of
// data stop the scan and keep what was accumulated.
func ExtractPrintable(data []byte, start, maxLen int) string {
	if start < 0 || start >= len(data) || maxLen <= 0 {
		return ""
	}
	stop := min(start+maxLen, len(data))

	var sb strings.Builder
	for _, b := range data[start:stop] {
		if b == 0 {
			break
		}
		if b >= printableMin && b <= printableMax {
			sb.WriteByte(b)
		} else {
			sb.Reset()
		}
	}
	return sb.String()
}

// Uint32At reads a little-endian uint32 at off. ok is false when data is too short.
func Uint32At(data []byte, off int) (v uint32, ok bool) {
	if off < 0 || off+4 > len(data) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data[off:]), true
}

// ByteAt returns data[off], or 0 and false when out of range.
func ByteAt(data []byte, off int) (byte, bool) {
	if off < 0 || off >= len(data) {
		return 0, false
	}
	return data[off], true
}
