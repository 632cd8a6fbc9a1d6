package stdstream

import (
	"fmt"
	"io"
)

// Copy demultiplexes src into stdout and stderr until the stream ends,
// returning the total number of payload bytes written. It reads frame
// by frame, so it is safe for long-lived log and attach streams.
func Copy(stdout, stderr io.Writer, src io.Reader) (int64, error) {
	r := NewReader(src)

	var written int64
	for {
		frame, err := r.Next()
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}

		var dst io.Writer
		switch frame.Stream {
		case Stdout:
			dst = stdout
		case Stderr:
			dst = stderr
		default:
			return written, fmt.Errorf("%w: %d", ErrUnknownStreamTag, frame.Stream)
		}

		n, err := dst.Write(frame.Payload)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write %s frame: %w", frame.Stream, err)
		}
	}
}
