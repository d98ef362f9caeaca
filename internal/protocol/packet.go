package protocol

import (
	"fmt"
	"io"
)

// ReadPayload performs a single read into buf and returns the received bytes.
// The lobby protocol has no length framing: one successful read is one payload.
// A zero-byte read is reported as io.EOF.
func ReadPayload(r io.Reader, buf []byte) ([]byte, error) {
	n, err := r.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

// WritePayload writes the whole payload to w.
func WritePayload(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	return nil
}
