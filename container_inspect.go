package dockerengine

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/filters"
	"github.com/moby/moby/api/types/container"
)

// ContainerListOptions holds options for Client.ContainerList.
type ContainerListOptions struct {
	// All includes stopped containers. The default is running only.
	All bool

	// Limit caps the number of containers returned, newest first.
	// Zero means no cap.
	Limit int

	// Size asks the daemon to compute disk usage for each container.
	Size bool

	// Filters narrows the listing, for example by label or status.
	Filters filters.Args
}

// ContainerListResult is the daemon's reply to a container list.
type ContainerListResult struct {
	Items []container.Summary
}

// ContainerList returns summaries of containers known to the daemon.
func (cli *Client) ContainerList(ctx context.Context, options ContainerListOptions) (ContainerListResult, error) {
	query := url.Values{}
	if options.All {
		query.Set("all", "1")
	}
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}
	if options.Size {
		query.Set("size", "1")
	}
	if options.Filters.Len() > 0 {
		filterJSON, err := filters.ToJSON(options.Filters)
		if err != nil {
			return ContainerListResult{}, fmt.Errorf("failed to encode list filters: %w", err)
		}
		query.Set("filters", filterJSON)
	}

	resp, err := cli.get(ctx, "/containers/json", query, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ContainerListResult{}, fmt.Errorf("failed to list containers: %w", err)
	}

	var result ContainerListResult
	if err := decodeResponse(resp, &result.Items); err != nil {
		return ContainerListResult{}, err
	}
	return result, nil
}

// ContainerInspectOptions holds options for Client.ContainerInspect.
type ContainerInspectOptions struct {
	// Size asks the daemon to compute the container's disk usage.
	Size bool
}

// ContainerInspectResult is the daemon's reply to a container inspect.
type ContainerInspectResult struct {
	container.InspectResponse
}

// ContainerInspect returns the full state the daemon holds for one
// container.
func (cli *Client) ContainerInspect(ctx context.Context, containerID string, options ContainerInspectOptions) (ContainerInspectResult, error) {
	query := url.Values{}
	if options.Size {
		query.Set("size", "1")
	}
	resp, err := cli.get(ctx, "/containers/"+containerID+"/json", query, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ContainerInspectResult{}, fmt.Errorf("failed to inspect container %q: %w", containerID, err)
	}

	var result ContainerInspectResult
	if err := decodeResponse(resp, &result.InspectResponse); err != nil {
		return ContainerInspectResult{}, err
	}
	return result, nil
}

// ContainerTopOptions holds options for Client.ContainerTop.
type ContainerTopOptions struct {
	// Arguments are ps options passed through to the daemon, such as
	// "aux".
	Arguments []string
}

// ContainerTopResult lists the processes running inside a container.
type ContainerTopResult struct {
	container.TopResponse
}

// ContainerTop reports the processes running inside a container, in ps
// style.
func (cli *Client) ContainerTop(ctx context.Context, containerID string, options ContainerTopOptions) (ContainerTopResult, error) {
	query := url.Values{}
	if len(options.Arguments) > 0 {
		query.Set("ps_args", strings.Join(options.Arguments, " "))
	}

	resp, err := cli.get(ctx, "/containers/"+containerID+"/top", query, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ContainerTopResult{}, fmt.Errorf("failed to list processes in container %q: %w", containerID, err)
	}

	var result ContainerTopResult
	if err := decodeResponse(resp, &result.TopResponse); err != nil {
		return ContainerTopResult{}, err
	}
	return result, nil
}

// ContainerDiffOptions holds options for Client.ContainerDiff. There
// are none today.
type ContainerDiffOptions struct{}

// ContainerDiffResult lists filesystem paths a container has changed
// since it started.
type ContainerDiffResult struct {
	Items []container.FilesystemChange
}

// ContainerDiff reports files the container added, changed, or deleted
// relative to its image.
func (cli *Client) ContainerDiff(ctx context.Context, containerID string, options ContainerDiffOptions) (ContainerDiffResult, error) {
	resp, err := cli.get(ctx, "/containers/"+containerID+"/changes", nil, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ContainerDiffResult{}, fmt.Errorf("failed to diff container %q: %w", containerID, err)
	}

	var result ContainerDiffResult
	if err := decodeResponse(resp, &result.Items); err != nil {
		return ContainerDiffResult{}, err
	}
	return result, nil
}
