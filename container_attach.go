package dockerengine

import (
	"context"
	"fmt"
	"net/url"
)

// ContainerAttachOptions selects which streams a Client.ContainerAttach
// call connects.
type ContainerAttachOptions struct {
	// Stream keeps the connection open for output produced after the
	// attach. Without it the call returns buffered output only.
	Stream bool

	Stdin  bool
	Stdout bool
	Stderr bool

	// DetachKeys overrides the key sequence that detaches from the
	// container.
	DetachKeys string

	// Logs replays output produced before the attach.
	Logs bool
}

// ContainerAttachResult is the hijacked connection to the container's
// streams. Check Multiplexed() before reading: containers without a
// TTY interleave stdout and stderr in frames that stdstream.Copy
// splits.
type ContainerAttachResult struct {
	HijackedResponse
}

// ContainerAttach connects to a container's stdin, stdout, and stderr.
// The exchange leaves HTTP behind after the daemon's 101 reply, so the
// result owns a raw connection that the caller must close.
func (cli *Client) ContainerAttach(ctx context.Context, containerID string, options ContainerAttachOptions) (ContainerAttachResult, error) {
	query := url.Values{}
	if options.Stream {
		query.Set("stream", "1")
	}
	if options.Stdin {
		query.Set("stdin", "1")
	}
	if options.Stdout {
		query.Set("stdout", "1")
	}
	if options.Stderr {
		query.Set("stderr", "1")
	}
	if options.DetachKeys != "" {
		query.Set("detachKeys", options.DetachKeys)
	}
	if options.Logs {
		query.Set("logs", "1")
	}

	hijacked, err := cli.postHijacked(ctx, "/containers/"+containerID+"/attach", query, nil, nil)
	if err != nil {
		return ContainerAttachResult{}, fmt.Errorf("failed to attach to container %q: %w", containerID, err)
	}
	return ContainerAttachResult{HijackedResponse: hijacked}, nil
}
