package dockerengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// MediaTypeRawStream is the Content-Type the daemon sets on
	// attach and logs output from containers with a TTY, where
	// stdout and stderr arrive merged and unframed.
	MediaTypeRawStream = "application/vnd.docker.raw-stream"

	// MediaTypeMultiplexedStream is the Content-Type the daemon sets
	// on attach and logs output from containers without a TTY, where
	// stdout and stderr arrive framed for stdstream.Copy.
	MediaTypeMultiplexedStream = "application/vnd.docker.multiplexed-stream"
)

// Error bodies are diagnostics, not payloads. Reading them fully would
// let a broken daemon stall the client, so they are capped.
const maxErrorBodySize = 1024 * 1024

// checkResponseErr turns non-success statuses into *DaemonError. The
// response body is consumed here on failure; on success it is left for
// the caller.
func (cli *Client) checkResponseErr(resp serverResponse) error {
	if resp.statusCode >= http.StatusOK && resp.statusCode < http.StatusBadRequest {
		return nil
	}

	var body []byte
	if resp.body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(resp.body, maxErrorBodySize))
		if err != nil {
			return fmt.Errorf("failed to read error response (status %d) from %s: %w: %w",
				resp.statusCode, cli.host, ErrTransportReadFailed, err)
		}
	}

	return &DaemonError{
		StatusCode: resp.statusCode,
		Message:    errorMessage(resp, body),
	}
}

// errorMessage extracts the daemon's explanation from an error body.
// JSON bodies carry {"message": "..."}; anything else is taken as
// plain text. An empty or undecodable body falls back to the status
// line so the error never loses the status context.
func errorMessage(resp serverResponse, body []byte) string {
	if len(body) > 0 {
		ct, _, _ := strings.Cut(resp.header.Get("Content-Type"), ";")
		if strings.TrimSpace(ct) == "application/json" {
			var e struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
				return e.Message
			}
		}
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("request returned %s for API route %s", http.StatusText(resp.statusCode), resp.reqURL.Path)
}

// decodeResponse decodes a success body into out and closes it. A body
// that is not the JSON the endpoint promises is a protocol violation,
// reported as ErrMalformedResponse; a read failure mid-body is
// reported as ErrTransportReadFailed.
func decodeResponse(resp serverResponse, out any) error {
	defer ensureReaderClosed(resp)

	err := json.NewDecoder(resp.body).Decode(out)
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return fmt.Errorf("%w: failed to decode response from %s: %v", ErrMalformedResponse, resp.reqURL.Path, err)
	default:
		return fmt.Errorf("failed to read response from %s: %w: %w", resp.reqURL.Path, ErrTransportReadFailed, err)
	}
}

// RawStream is a response body handed to the caller unbuffered, such
// as logs, attach output, or an image export. MediaType tells the
// caller whether frames must be demultiplexed before use.
type RawStream struct {
	io.ReadCloser

	// MediaType is the response's Content-Type, typically
	// MediaTypeRawStream or MediaTypeMultiplexedStream.
	MediaType string
}

// Multiplexed reports whether the stream interleaves stdout and stderr
// frames that stdstream.Copy can split. When false the bytes are a
// single raw stream.
func (s RawStream) Multiplexed() bool {
	return s.MediaType == MediaTypeMultiplexedStream
}

func newRawStream(resp serverResponse) RawStream {
	return RawStream{
		ReadCloser: resp.body,
		MediaType:  resp.header.Get("Content-Type"),
	}
}
