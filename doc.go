// Package dockerengine is a client for the Docker Engine HTTP API.
//
// It speaks HTTP/1.1 to a daemon over a unix socket, a Windows named
// pipe, plain TCP, or TLS over TCP, resolving the transport once from
// an endpoint string such as unix:///var/run/docker.sock or
// tcp://10.0.0.5:2375. The Client type is the entry point for all
// daemon operations.
//
//	cli, err := dockerengine.New(dockerengine.FromEnv, dockerengine.WithAPIVersionNegotiation())
//	if err != nil {
//	    return err
//	}
//	defer cli.Close()
//
// Failures carry a kind that survives wrapping: errors.Is against
// ErrConnectionFailed, ErrTLSHandshakeFailed, and friends classifies
// transport problems, while errors the daemon itself reports unwrap to
// *DaemonError and answer IsErrNotFound and IsErrConflict.
//
// Streaming endpoints such as logs and attach return the daemon's
// bytes untouched. Containers without a TTY interleave stdout and
// stderr in the framed format the stdstream package decodes; check the
// stream's Multiplexed method to decide whether demultiplexing is
// needed.
package dockerengine
