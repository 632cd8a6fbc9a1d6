package stdstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Stream identifies which standard stream a frame's payload belongs to.
type Stream byte

const (
	// Stdout tags frames carrying the container's standard output.
	Stdout Stream = 1

	// Stderr tags frames carrying the container's standard error.
	Stderr Stream = 2
)

// headerLen is the fixed size of a frame header: one tag byte, three
// reserved bytes, and a big-endian uint32 payload length.
const headerLen = 8

// String returns the conventional name of the stream.
func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("stream(%d)", byte(s))
	}
}

var (
	// ErrTruncatedHeader reports a stream that ended partway through a
	// frame header.
	ErrTruncatedHeader = errors.New("truncated frame header")

	// ErrTruncatedPayload reports a stream that ended before a frame's
	// declared payload length was reached.
	ErrTruncatedPayload = errors.New("truncated frame payload")

	// ErrUnknownStreamTag reports a frame header whose tag byte is not a
	// recognized stream.
	ErrUnknownStreamTag = errors.New("unknown stream tag")
)

// Frame is one decoded unit of the multiplexed format: a stream tag and
// the payload bytes that belong to it.
type Frame struct {
	Stream  Stream
	Payload []byte
}

// Reader decodes multiplexed frames from src one at a time. Frames are
// produced lazily; Next does not read ahead of the frame it returns, so
// output from long-running logs or attach sessions becomes available as
// the daemon emits it.
//
// The sequence ends cleanly when src is exhausted on a frame boundary.
// To abandon a stream early, stop calling Next and close the underlying
// response body; no error arises from abandonment itself.
type Reader struct {
	src    io.Reader
	offset int64
	err    error
	header [headerLen]byte
}

// NewReader returns a Reader decoding frames from src. The caller
// retains ownership of src and is responsible for closing it.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// Next reads and returns the next frame. It returns io.EOF when the
// stream ends cleanly on a frame boundary.
//
// A stream that ends inside a header yields ErrTruncatedHeader, and one
// that ends inside a payload yields ErrTruncatedPayload. A header whose
// tag byte is neither stdout nor stderr yields ErrUnknownStreamTag
// without consuming any bytes beyond that header. All of these stick;
// once Next fails, every later call returns the same error.
func (r *Reader) Next() (Frame, error) {
	if r.err != nil {
		return Frame{}, r.err
	}
	f, err := r.next()
	if err != nil {
		r.err = err
	}
	return f, err
}

func (r *Reader) next() (Frame, error) {
	start := r.offset

	n, err := io.ReadFull(r.src, r.header[:])
	r.offset += int64(n)
	if err == io.EOF {
		return Frame{}, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		return Frame{}, fmt.Errorf("%w: stream ended after %d of %d header bytes at offset %d", ErrTruncatedHeader, n, headerLen, start)
	}
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read frame header at offset %d: %w", start, err)
	}

	stream := Stream(r.header[0])
	if stream != Stdout && stream != Stderr {
		return Frame{}, fmt.Errorf("%w: 0x%02x at offset %d", ErrUnknownStreamTag, r.header[0], start)
	}

	length := binary.BigEndian.Uint32(r.header[4:])
	payload := make([]byte, length)
	n, err = io.ReadFull(r.src, payload)
	r.offset += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return Frame{}, fmt.Errorf("%w: stream ended after %d of %d payload bytes at offset %d", ErrTruncatedPayload, n, length, start)
	}
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read frame payload at offset %d: %w", start, err)
	}

	return Frame{Stream: stream, Payload: payload}, nil
}
