package stdstream

import (
	"encoding/binary"
	"io"
)

// Writer encodes the multiplexed format: each call to Write emits one
// frame carrying p as the payload, tagged with the configured stream.
// It is the counterpart to Reader; the daemon uses this framing when a
// container runs without a TTY.
type Writer struct {
	dst    io.Writer
	stream Stream
}

// NewWriter returns a Writer that frames everything written to it as
// payloads on the given stream.
func NewWriter(dst io.Writer, stream Stream) *Writer {
	return &Writer{dst: dst, stream: stream}
}

// Write emits p as a single frame and reports the number of payload
// bytes written. The header and payload go out in one write so frames
// from writers sharing a destination never interleave mid-frame.
func (w *Writer) Write(p []byte) (int, error) {
	buf := make([]byte, headerLen+len(p))
	buf[0] = byte(w.stream)
	binary.BigEndian.PutUint32(buf[4:headerLen], uint32(len(p)))
	copy(buf[headerLen:], p)

	n, err := w.dst.Write(buf)
	if n < headerLen {
		n = 0
	} else {
		n -= headerLen
	}
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}
