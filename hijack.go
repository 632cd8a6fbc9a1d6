package dockerengine

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// HijackedResponse is a connection the daemon upgraded out of HTTP for
// bidirectional streaming, as on container attach and exec start. The
// caller writes stdin to Conn and reads output from Reader, which may
// already hold bytes buffered while reading the upgrade response.
type HijackedResponse struct {
	Conn      net.Conn
	Reader    *bufio.Reader
	MediaType string
}

// Close closes the underlying connection in both directions.
func (h HijackedResponse) Close() {
	_ = h.Conn.Close()
}

// CloseWriter is implemented by connections that can close their write
// side independently, signalling EOF on the container's stdin while
// output continues.
type CloseWriter interface {
	CloseWrite() error
}

// CloseWrite closes the write side of the connection when the
// transport supports half-close.
func (h HijackedResponse) CloseWrite() error {
	if closeWriter, ok := h.Conn.(CloseWriter); ok {
		return closeWriter.CloseWrite()
	}
	return nil
}

// Multiplexed reports whether output on Reader interleaves stdout and
// stderr frames that stdstream.Copy can split.
func (h HijackedResponse) Multiplexed() bool {
	return h.MediaType == MediaTypeMultiplexedStream
}

// postHijacked sends a POST and, instead of a buffered reply, takes
// over the connection after the daemon's 101 Switching Protocols. The
// exchange runs on a fresh connection outside the pool, since the
// conversation that follows is no longer HTTP.
func (cli *Client) postHijacked(ctx context.Context, path string, query url.Values, body any, headers http.Header) (HijackedResponse, error) {
	jsonBody, headers, err := encodeBody(body, headers)
	if err != nil {
		return HijackedResponse{}, err
	}
	req, err := cli.buildRequest(ctx, http.MethodPost, cli.versionedPath(ctx, path), query, jsonBody, headers)
	if err != nil {
		return HijackedResponse{}, err
	}
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "tcp")

	conn, err := cli.Dialer()(ctx)
	if err != nil {
		return HijackedResponse{}, wrapRequestError(cli.host, err)
	}

	// Long-lived attach connections can sit idle for ages; keep-alive
	// probes stop intermediate equipment from silently dropping them.
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
	}

	if err := req.Write(conn); err != nil {
		_ = conn.Close()
		return HijackedResponse{}, fmt.Errorf("failed to send upgrade request to %s: %w: %w", cli.host, ErrTransportWriteFailed, err)
	}

	reader := bufio.NewReader(conn)
	resp, err := http.ReadResponse(reader, req)
	if err != nil {
		_ = conn.Close()
		return HijackedResponse{}, fmt.Errorf("%w: failed to read upgrade response from %s: %v", ErrMalformedResponse, cli.host, err)
	}

	if resp.StatusCode != http.StatusSwitchingProtocols {
		err := cli.checkResponseErr(serverResponse{
			body:       resp.Body,
			header:     resp.Header,
			statusCode: resp.StatusCode,
			reqURL:     req.URL,
		})
		_ = conn.Close()
		if err != nil {
			return HijackedResponse{}, err
		}
		return HijackedResponse{}, fmt.Errorf("%w: expected 101 Switching Protocols from %s, got %d", ErrMalformedResponse, req.URL.Path, resp.StatusCode)
	}

	return HijackedResponse{
		Conn:      conn,
		Reader:    reader,
		MediaType: resp.Header.Get("Content-Type"),
	}, nil
}
