package testutil

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/udisondev/xilogin/internal/login/serverpackets"
	"github.com/udisondev/xilogin/internal/protocol"
)

// AssertViewCode проверяет, что payload является корректным IXFF конвертом с кодом code.
func AssertViewCode(t testing.TB, expected uint32, payload []byte) {
	t.Helper()

	if !protocol.VerifyView(payload) {
		t.Fatalf("payload is not a valid view envelope:\n%s", hex.Dump(payload))
	}
	if got := protocol.ViewCode(payload); got != expected {
		t.Fatalf("view code mismatch: expected 0x%X, got 0x%X", expected, got)
	}
}

// AssertViewError проверяет ERROR конверт и его код ошибки.
func AssertViewError(t testing.TB, expected uint32, payload []byte) {
	t.Helper()

	AssertViewCode(t, serverpackets.ViewError, payload)
	body := protocol.ViewBody(payload)
	if len(body) < 8 {
		t.Fatalf("error body too short: %d bytes", len(body))
	}
	if got := binary.LittleEndian.Uint32(body[4:]); got != expected {
		t.Fatalf("view error mismatch: expected %d, got %d", expected, got)
	}
}

// AssertUint32LE проверяет uint32 (little-endian) по смещению.
func AssertUint32LE(t testing.TB, expected uint32, payload []byte, offset int) {
	t.Helper()

	if len(payload) < offset+4 {
		t.Fatalf("payload too short: need %d bytes for uint32 at offset %d, got %d",
			offset+4, offset, len(payload))
	}
	if got := binary.LittleEndian.Uint32(payload[offset:]); got != expected {
		t.Fatalf("uint32 mismatch at offset %d: expected %d, got %d", offset, expected, got)
	}
}
