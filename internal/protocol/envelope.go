package protocol

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"

	"github.com/udisondev/xilogin/internal/constants"
)

// BeginView writes the checksummed envelope header: length and checksum are
// placeholders until SealView.
func BeginView(w *Writer, code uint32) {
	w.WriteUint32(0)
	w.WriteBytes([]byte(constants.ViewMagic))
	w.WriteUint32(code)
	w.Pad(constants.ViewChecksumSize)
}

// SealView finalizes an envelope in place: the total length is stored first,
// then the MD5 of the whole buffer (checksum slot zeroed) is written into the slot.
func SealView(b []byte) []byte {
	binary.LittleEndian.PutUint32(b[constants.ViewLengthOffset:], uint32(len(b)))
	slot := b[constants.ViewChecksumOffset : constants.ViewChecksumOffset+constants.ViewChecksumSize]
	clear(slot)
	sum := md5.Sum(b)
	copy(slot, sum[:])
	return b
}

// VerifyView reports whether b is a well-formed envelope whose length and
// checksum fields match its content.
func VerifyView(b []byte) bool {
	if len(b) < constants.ViewHeaderSize {
		return false
	}
	if binary.LittleEndian.Uint32(b[constants.ViewLengthOffset:]) != uint32(len(b)) {
		return false
	}
	if !bytes.Equal(b[constants.ViewMagicOffset:constants.ViewCodeOffset], []byte(constants.ViewMagic)) {
		return false
	}

	tmp := make([]byte, len(b))
	copy(tmp, b)
	clear(tmp[constants.ViewChecksumOffset : constants.ViewChecksumOffset+constants.ViewChecksumSize])
	sum := md5.Sum(tmp)
	return bytes.Equal(sum[:], b[constants.ViewChecksumOffset:constants.ViewChecksumOffset+constants.ViewChecksumSize])
}

// ViewCode returns the code field of an envelope.
func ViewCode(b []byte) uint32 {
	if len(b) < constants.ViewChecksumOffset {
		return 0
	}
	return binary.LittleEndian.Uint32(b[constants.ViewCodeOffset:])
}

// ViewBody returns the bytes following the envelope header.
func ViewBody(b []byte) []byte {
	if len(b) < constants.ViewHeaderSize {
		return nil
	}
	return b[constants.ViewHeaderSize:]
}
