package dockerengine

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"

	"github.com/docker/docker/api/types/versions"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// ContainerCreateOptions holds the configuration for a new container.
// Config is required; everything else may be left zero.
type ContainerCreateOptions struct {
	Config           *container.Config
	HostConfig       *container.HostConfig
	NetworkingConfig *network.NetworkingConfig

	// Platform selects the platform of the image to run when the
	// image is multi-platform. Requires API 1.41 or newer.
	Platform *ocispec.Platform

	// Name is the container name. When empty the daemon generates
	// one.
	Name string
}

// ContainerCreateResult is the daemon's reply to a container create.
type ContainerCreateResult struct {
	ID       string `json:"Id"`
	Warnings []string
}

// containerCreateBody is the wire shape of a create request: the
// container config inlined, with host and networking config nested.
type containerCreateBody struct {
	*container.Config
	HostConfig       *container.HostConfig     `json:"HostConfig,omitempty"`
	NetworkingConfig *network.NetworkingConfig `json:"NetworkingConfig,omitempty"`
}

// ContainerCreate creates a container from an image. The container is
// created stopped; follow with ContainerStart to run it.
func (cli *Client) ContainerCreate(ctx context.Context, options ContainerCreateOptions) (ContainerCreateResult, error) {
	if options.Config == nil {
		return ContainerCreateResult{}, fmt.Errorf("failed to create container: no container config provided")
	}

	query := url.Values{}
	if options.Name != "" {
		query.Set("name", options.Name)
	}
	if options.Platform != nil {
		if versions.LessThan(cli.ClientVersion(), "1.41") {
			return ContainerCreateResult{}, fmt.Errorf("failed to create container: platform selection requires API 1.41, daemon negotiated %s", cli.ClientVersion())
		}
		query.Set("platform", formatPlatform(*options.Platform))
	}

	body := containerCreateBody{
		Config:           options.Config,
		HostConfig:       options.HostConfig,
		NetworkingConfig: options.NetworkingConfig,
	}
	resp, err := cli.post(ctx, "/containers/create", query, body, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ContainerCreateResult{}, fmt.Errorf("failed to create container: %w", err)
	}

	var result ContainerCreateResult
	if err := decodeResponse(resp, &result); err != nil {
		return ContainerCreateResult{}, err
	}
	return result, nil
}

// formatPlatform renders a platform as os/arch or os/arch/variant, the
// form the create route's platform parameter expects.
func formatPlatform(platform ocispec.Platform) string {
	return path.Join(platform.OS, platform.Architecture, platform.Variant)
}

// ContainerStartOptions holds options for Client.ContainerStart.
type ContainerStartOptions struct {
	// DetachKeys overrides the key sequence that detaches an attached
	// session from the container.
	DetachKeys string
}

// ContainerStartResult is the daemon's reply to a container start.
type ContainerStartResult struct{}

// ContainerStart starts a created or stopped container. Starting a
// container that is already running is not an error.
func (cli *Client) ContainerStart(ctx context.Context, containerID string, options ContainerStartOptions) (ContainerStartResult, error) {
	query := url.Values{}
	if options.DetachKeys != "" {
		query.Set("detachKeys", options.DetachKeys)
	}
	resp, err := cli.post(ctx, "/containers/"+containerID+"/start", query, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerStartResult{}, fmt.Errorf("failed to start container %q: %w", containerID, err)
	}
	return ContainerStartResult{}, nil
}

// ContainerStopOptions holds options for Client.ContainerStop.
type ContainerStopOptions struct {
	// Signal overrides the stop signal configured for the container.
	Signal string

	// Timeout is how many seconds to wait after the stop signal
	// before the daemon kills the container. Nil uses the daemon's
	// default; a negative value waits forever.
	Timeout *int
}

// ContainerStopResult is the daemon's reply to a container stop.
type ContainerStopResult struct{}

// ContainerStop signals a container to stop and, after the timeout,
// kills it. Stopping a container that is not running is not an error.
func (cli *Client) ContainerStop(ctx context.Context, containerID string, options ContainerStopOptions) (ContainerStopResult, error) {
	query := url.Values{}
	if options.Signal != "" {
		query.Set("signal", options.Signal)
	}
	if options.Timeout != nil {
		query.Set("t", strconv.Itoa(*options.Timeout))
	}
	resp, err := cli.post(ctx, "/containers/"+containerID+"/stop", query, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerStopResult{}, fmt.Errorf("failed to stop container %q: %w", containerID, err)
	}
	return ContainerStopResult{}, nil
}

// ContainerRestartOptions holds options for Client.ContainerRestart.
type ContainerRestartOptions struct {
	// Signal overrides the stop signal used for the stop half of the
	// restart.
	Signal string

	// Timeout is how many seconds to wait for the stop before the
	// daemon kills the container. Nil uses the daemon's default.
	Timeout *int
}

// ContainerRestartResult is the daemon's reply to a container restart.
type ContainerRestartResult struct{}

// ContainerRestart stops and starts a container in one call.
func (cli *Client) ContainerRestart(ctx context.Context, containerID string, options ContainerRestartOptions) (ContainerRestartResult, error) {
	query := url.Values{}
	if options.Signal != "" {
		query.Set("signal", options.Signal)
	}
	if options.Timeout != nil {
		query.Set("t", strconv.Itoa(*options.Timeout))
	}
	resp, err := cli.post(ctx, "/containers/"+containerID+"/restart", query, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerRestartResult{}, fmt.Errorf("failed to restart container %q: %w", containerID, err)
	}
	return ContainerRestartResult{}, nil
}

// ContainerKillOptions holds options for Client.ContainerKill.
type ContainerKillOptions struct {
	// Signal is the signal to send. Empty sends SIGKILL.
	Signal string
}

// ContainerKillResult is the daemon's reply to a container kill.
type ContainerKillResult struct{}

// ContainerKill sends a signal to a running container without waiting
// for it to stop.
func (cli *Client) ContainerKill(ctx context.Context, containerID string, options ContainerKillOptions) (ContainerKillResult, error) {
	query := url.Values{}
	if options.Signal != "" {
		query.Set("signal", options.Signal)
	}
	resp, err := cli.post(ctx, "/containers/"+containerID+"/kill", query, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerKillResult{}, fmt.Errorf("failed to kill container %q: %w", containerID, err)
	}
	return ContainerKillResult{}, nil
}

// ContainerPauseOptions holds options for Client.ContainerPause. There
// are none today.
type ContainerPauseOptions struct{}

// ContainerPauseResult is the daemon's reply to a container pause.
type ContainerPauseResult struct{}

// ContainerPause suspends every process in a container without
// stopping it.
func (cli *Client) ContainerPause(ctx context.Context, containerID string, options ContainerPauseOptions) (ContainerPauseResult, error) {
	resp, err := cli.post(ctx, "/containers/"+containerID+"/pause", nil, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerPauseResult{}, fmt.Errorf("failed to pause container %q: %w", containerID, err)
	}
	return ContainerPauseResult{}, nil
}

// ContainerUnpauseOptions holds options for Client.ContainerUnpause.
// There are none today.
type ContainerUnpauseOptions struct{}

// ContainerUnpauseResult is the daemon's reply to a container unpause.
type ContainerUnpauseResult struct{}

// ContainerUnpause resumes a paused container.
func (cli *Client) ContainerUnpause(ctx context.Context, containerID string, options ContainerUnpauseOptions) (ContainerUnpauseResult, error) {
	resp, err := cli.post(ctx, "/containers/"+containerID+"/unpause", nil, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerUnpauseResult{}, fmt.Errorf("failed to unpause container %q: %w", containerID, err)
	}
	return ContainerUnpauseResult{}, nil
}

// ContainerRenameOptions holds options for Client.ContainerRename.
type ContainerRenameOptions struct {
	// Name is the new container name.
	Name string
}

// ContainerRenameResult is the daemon's reply to a container rename.
type ContainerRenameResult struct{}

// ContainerRename gives a container a new name.
func (cli *Client) ContainerRename(ctx context.Context, containerID string, options ContainerRenameOptions) (ContainerRenameResult, error) {
	query := url.Values{}
	query.Set("name", options.Name)
	resp, err := cli.post(ctx, "/containers/"+containerID+"/rename", query, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerRenameResult{}, fmt.Errorf("failed to rename container %q to %q: %w", containerID, options.Name, err)
	}
	return ContainerRenameResult{}, nil
}

// ContainerRemoveOptions holds options for Client.ContainerRemove.
type ContainerRemoveOptions struct {
	// Force removes the container even when it is running.
	Force bool

	// RemoveVolumes removes anonymous volumes along with the
	// container.
	RemoveVolumes bool

	// RemoveLinks removes the named link instead of the container.
	RemoveLinks bool
}

// ContainerRemoveResult is the daemon's reply to a container remove.
type ContainerRemoveResult struct{}

// ContainerRemove deletes a container. Removing a running container
// fails unless Force is set.
func (cli *Client) ContainerRemove(ctx context.Context, containerID string, options ContainerRemoveOptions) (ContainerRemoveResult, error) {
	query := url.Values{}
	if options.Force {
		query.Set("force", "1")
	}
	if options.RemoveVolumes {
		query.Set("v", "1")
	}
	if options.RemoveLinks {
		query.Set("link", "1")
	}
	resp, err := cli.delete(ctx, "/containers/"+containerID, query, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerRemoveResult{}, fmt.Errorf("failed to remove container %q: %w", containerID, err)
	}
	return ContainerRemoveResult{}, nil
}
