package dockerengine

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ContainerExecCreateOptions describes a command to run inside an
// existing container.
type ContainerExecCreateOptions struct {
	// Cmd is the command and its arguments.
	Cmd []string `json:"Cmd,omitempty"`

	// User runs the command as this user instead of the container's
	// default.
	User string `json:"User,omitempty"`

	// WorkingDir is the directory the command starts in.
	WorkingDir string `json:"WorkingDir,omitempty"`

	// Env adds environment variables, each as KEY=value.
	Env []string `json:"Env,omitempty"`

	// Privileged grants the command full capabilities.
	Privileged bool `json:"Privileged,omitempty"`

	// Tty allocates a pseudo-terminal, merging output into one raw
	// stream.
	Tty bool `json:"Tty,omitempty"`

	AttachStdin  bool `json:"AttachStdin,omitempty"`
	AttachStdout bool `json:"AttachStdout,omitempty"`
	AttachStderr bool `json:"AttachStderr,omitempty"`

	// DetachKeys overrides the key sequence that detaches from the
	// exec session.
	DetachKeys string `json:"DetachKeys,omitempty"`
}

// ContainerExecCreateResult identifies a created exec session.
type ContainerExecCreateResult struct {
	ID string `json:"Id"`
}

// ContainerExecCreate registers a command to run inside a running
// container. The command does not start until ContainerExecStart or
// ContainerExecAttach.
func (cli *Client) ContainerExecCreate(ctx context.Context, containerID string, options ContainerExecCreateOptions) (ContainerExecCreateResult, error) {
	resp, err := cli.post(ctx, "/containers/"+containerID+"/exec", nil, options, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ContainerExecCreateResult{}, fmt.Errorf("failed to create exec in container %q: %w", containerID, err)
	}

	var result ContainerExecCreateResult
	if err := decodeResponse(resp, &result); err != nil {
		return ContainerExecCreateResult{}, err
	}
	return result, nil
}

// execStartBody is the wire shape shared by exec start and exec
// attach.
type execStartBody struct {
	Detach      bool
	Tty         bool
	ConsoleSize *[2]uint `json:",omitempty"`
}

// ContainerExecStartOptions holds options for Client.ContainerExecStart.
type ContainerExecStartOptions struct {
	// Tty must match the Tty of the exec create.
	Tty bool

	// ConsoleSize sets the initial tty dimensions as height, width.
	ConsoleSize *[2]uint
}

// ContainerExecStartResult is the daemon's reply to a detached exec
// start.
type ContainerExecStartResult struct{}

// ContainerExecStart runs a created exec session detached, without
// connecting its streams. Use ContainerExecAttach to run interactively.
func (cli *Client) ContainerExecStart(ctx context.Context, execID string, options ContainerExecStartOptions) (ContainerExecStartResult, error) {
	body := execStartBody{
		Detach:      true,
		Tty:         options.Tty,
		ConsoleSize: options.ConsoleSize,
	}
	resp, err := cli.post(ctx, "/exec/"+execID+"/start", nil, body, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerExecStartResult{}, fmt.Errorf("failed to start exec %q: %w", execID, err)
	}
	return ContainerExecStartResult{}, nil
}

// ContainerExecAttachOptions holds options for
// Client.ContainerExecAttach.
type ContainerExecAttachOptions struct {
	// Tty must match the Tty of the exec create.
	Tty bool

	// ConsoleSize sets the initial tty dimensions as height, width.
	ConsoleSize *[2]uint
}

// ContainerExecAttachResult is the hijacked connection to the exec
// session's streams. Check Multiplexed() before reading.
type ContainerExecAttachResult struct {
	HijackedResponse
}

// ContainerExecAttach starts a created exec session and connects to
// its streams over a hijacked connection.
func (cli *Client) ContainerExecAttach(ctx context.Context, execID string, options ContainerExecAttachOptions) (ContainerExecAttachResult, error) {
	body := execStartBody{
		Detach:      false,
		Tty:         options.Tty,
		ConsoleSize: options.ConsoleSize,
	}
	hijacked, err := cli.postHijacked(ctx, "/exec/"+execID+"/start", nil, body, nil)
	if err != nil {
		return ContainerExecAttachResult{}, fmt.Errorf("failed to attach to exec %q: %w", execID, err)
	}
	return ContainerExecAttachResult{HijackedResponse: hijacked}, nil
}

// ContainerExecInspectOptions holds options for
// Client.ContainerExecInspect. There are none today.
type ContainerExecInspectOptions struct{}

// ContainerExecInspectResult is the state of an exec session.
type ContainerExecInspectResult struct {
	ID          string `json:"ID"`
	ContainerID string `json:"ContainerID"`
	Running     bool
	ExitCode    int
	Pid         int
}

// ContainerExecInspect reports whether an exec session is running and
// its exit code once it is not.
func (cli *Client) ContainerExecInspect(ctx context.Context, execID string, options ContainerExecInspectOptions) (ContainerExecInspectResult, error) {
	resp, err := cli.get(ctx, "/exec/"+execID+"/json", nil, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ContainerExecInspectResult{}, fmt.Errorf("failed to inspect exec %q: %w", execID, err)
	}

	var result ContainerExecInspectResult
	if err := decodeResponse(resp, &result); err != nil {
		return ContainerExecInspectResult{}, err
	}
	return result, nil
}

// ContainerExecResizeOptions holds the new terminal dimensions for
// Client.ContainerExecResize.
type ContainerExecResizeOptions struct {
	Height uint
	Width  uint
}

// ContainerExecResizeResult is the daemon's reply to an exec tty
// resize.
type ContainerExecResizeResult struct{}

// ContainerExecResize updates the dimensions of an exec session's tty.
func (cli *Client) ContainerExecResize(ctx context.Context, execID string, options ContainerExecResizeOptions) (ContainerExecResizeResult, error) {
	query := url.Values{}
	query.Set("h", strconv.FormatUint(uint64(options.Height), 10))
	query.Set("w", strconv.FormatUint(uint64(options.Width), 10))

	resp, err := cli.post(ctx, "/exec/"+execID+"/resize", query, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerExecResizeResult{}, fmt.Errorf("failed to resize tty for exec %q: %w", execID, err)
	}
	return ContainerExecResizeResult{}, nil
}
