package dockerengine

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ContainerLogsOptions selects which log lines a Client.ContainerLogs
// call returns.
type ContainerLogsOptions struct {
	ShowStdout bool
	ShowStderr bool

	// Since and Until bound the log window. Each is a unix timestamp,
	// a relative duration such as "10m", or an RFC 3339 time, passed
	// through to the daemon.
	Since string
	Until string

	// Timestamps prefixes every line with its time.
	Timestamps bool

	// Follow keeps the stream open and delivers new output as the
	// container produces it.
	Follow bool

	// Tail limits how many lines from the end are returned, as a
	// decimal string. Empty or "all" returns everything.
	Tail string

	// Details includes extra log attributes.
	Details bool
}

// ContainerLogsResult carries the log stream. Check
// Body.Multiplexed() before reading: containers without a TTY
// interleave stdout and stderr in frames that stdstream.Copy splits,
// while TTY containers deliver one raw stream.
type ContainerLogsResult struct {
	Body RawStream
}

// ContainerLogs fetches a container's output. The stream stays open
// when Follow is set; close Body to abandon it.
func (cli *Client) ContainerLogs(ctx context.Context, containerID string, options ContainerLogsOptions) (ContainerLogsResult, error) {
	query := url.Values{}
	if options.ShowStdout {
		query.Set("stdout", "1")
	}
	if options.ShowStderr {
		query.Set("stderr", "1")
	}
	if options.Since != "" {
		query.Set("since", options.Since)
	}
	if options.Until != "" {
		query.Set("until", options.Until)
	}
	if options.Timestamps {
		query.Set("timestamps", "1")
	}
	if options.Follow {
		query.Set("follow", "1")
	}
	if options.Tail != "" {
		query.Set("tail", options.Tail)
	}
	if options.Details {
		query.Set("details", "1")
	}

	resp, err := cli.get(ctx, "/containers/"+containerID+"/logs", query, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ContainerLogsResult{}, fmt.Errorf("failed to fetch logs for container %q: %w", containerID, err)
	}
	return ContainerLogsResult{Body: newRawStream(resp)}, nil
}

// ContainerResizeOptions holds the new terminal dimensions for
// Client.ContainerResize.
type ContainerResizeOptions struct {
	Height uint
	Width  uint
}

// ContainerResizeResult is the daemon's reply to a tty resize.
type ContainerResizeResult struct{}

// ContainerResize updates the dimensions of a container's tty.
func (cli *Client) ContainerResize(ctx context.Context, containerID string, options ContainerResizeOptions) (ContainerResizeResult, error) {
	query := url.Values{}
	query.Set("h", strconv.FormatUint(uint64(options.Height), 10))
	query.Set("w", strconv.FormatUint(uint64(options.Width), 10))

	resp, err := cli.post(ctx, "/containers/"+containerID+"/resize", query, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerResizeResult{}, fmt.Errorf("failed to resize tty for container %q: %w", containerID, err)
	}
	return ContainerResizeResult{}, nil
}
