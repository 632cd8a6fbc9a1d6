package dockerengine

import (
	"context"
	"fmt"
	"net/url"

	"github.com/moby/moby/api/types/container"
)

// ContainerWaitOptions holds options for Client.ContainerWait.
type ContainerWaitOptions struct {
	// Condition is the state change to wait for. Empty waits for the
	// container to stop running.
	Condition container.WaitCondition
}

// ContainerWaitResult delivers the outcome of a wait. Exactly one of
// the channels yields a value: Result on a clean exit report, Error
// when the wait itself fails. Both channels are buffered, so an
// abandoned result leaks nothing.
type ContainerWaitResult struct {
	Result <-chan container.WaitResponse
	Error  <-chan error
}

// ContainerWait asks the daemon to report when a container reaches the
// given condition. The wait is registered with the daemon before this
// returns, so a subsequent ContainerStart cannot race past it.
func (cli *Client) ContainerWait(ctx context.Context, containerID string, options ContainerWaitOptions) ContainerWaitResult {
	resultC := make(chan container.WaitResponse, 1)
	errC := make(chan error, 1)
	result := ContainerWaitResult{Result: resultC, Error: errC}

	query := url.Values{}
	if options.Condition != "" {
		query.Set("condition", string(options.Condition))
	}

	resp, err := cli.post(ctx, "/containers/"+containerID+"/wait", query, nil, nil)
	if err != nil {
		ensureReaderClosed(resp)
		errC <- fmt.Errorf("failed to wait for container %q: %w", containerID, err)
		return result
	}

	go func() {
		var res container.WaitResponse
		if err := decodeResponse(resp, &res); err != nil {
			errC <- fmt.Errorf("failed to wait for container %q: %w", containerID, err)
			return
		}
		resultC <- res
	}()

	return result
}
