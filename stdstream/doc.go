// Package stdstream implements the Docker Engine's multiplexed stream
// format, which carries a container's stdout and stderr over a single
// connection for logs, attach, and exec sessions.
//
// Each frame starts with an 8-byte header: byte 0 tags the stream
// (stdout or stderr), bytes 1-3 are reserved, and bytes 4-7 hold the
// payload length as a big-endian uint32. The payload follows immediately.
// Reader decodes frames one at a time as they arrive, Writer encodes
// them, and Copy routes a whole stream into separate stdout and stderr
// writers.
//
// The daemon only produces this format when the container was created
// without a TTY; callers should check the response content type before
// decoding. See Reader for details.
package stdstream
