package dockerengine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/moby/moby/api/types/container"
)

// CopyToContainerOptions holds the payload and destination for
// Client.CopyToContainer.
type CopyToContainerOptions struct {
	// DestinationPath is the directory inside the container to
	// extract into.
	DestinationPath string

	// Content is a tar archive of the files to copy.
	Content io.Reader

	// AllowOverwriteDirWithFile permits replacing a directory in the
	// container with a file of the same name.
	AllowOverwriteDirWithFile bool

	// CopyUIDGID keeps the archive's uid and gid instead of the
	// container defaults.
	CopyUIDGID bool
}

// CopyToContainerResult is the daemon's reply to a copy into a
// container.
type CopyToContainerResult struct{}

// CopyToContainer extracts a tar archive into a directory inside the
// container.
func (cli *Client) CopyToContainer(ctx context.Context, containerID string, options CopyToContainerOptions) (CopyToContainerResult, error) {
	query := url.Values{}
	query.Set("path", filepath.ToSlash(options.DestinationPath))
	if !options.AllowOverwriteDirWithFile {
		query.Set("noOverwriteDirNonDir", "true")
	}
	if options.CopyUIDGID {
		query.Set("copyUIDGID", "true")
	}

	resp, err := cli.put(ctx, "/containers/"+containerID+"/archive", query, options.Content, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return CopyToContainerResult{}, fmt.Errorf("failed to copy to container %q at %q: %w", containerID, options.DestinationPath, err)
	}
	return CopyToContainerResult{}, nil
}

// CopyFromContainerOptions names the path Client.CopyFromContainer
// reads.
type CopyFromContainerOptions struct {
	// SourcePath is the file or directory inside the container to
	// archive.
	SourcePath string
}

// CopyFromContainerResult carries a tar archive of the requested path
// and the stat of its root. Close Content when done.
type CopyFromContainerResult struct {
	Content io.ReadCloser
	Stat    container.PathStat
}

// CopyFromContainer streams a file or directory out of the container
// as a tar archive. The stat of the source rides along in a response
// header so callers can reproduce permissions and link targets.
func (cli *Client) CopyFromContainer(ctx context.Context, containerID string, options CopyFromContainerOptions) (CopyFromContainerResult, error) {
	query := url.Values{}
	query.Set("path", filepath.ToSlash(options.SourcePath))

	resp, err := cli.get(ctx, "/containers/"+containerID+"/archive", query, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return CopyFromContainerResult{}, fmt.Errorf("failed to copy from container %q at %q: %w", containerID, options.SourcePath, err)
	}

	stat, err := pathStatFromHeader(resp.header)
	if err != nil {
		ensureReaderClosed(resp)
		return CopyFromContainerResult{}, fmt.Errorf("failed to copy from container %q at %q: %w", containerID, options.SourcePath, err)
	}
	return CopyFromContainerResult{Content: resp.body, Stat: stat}, nil
}

// ContainerStatPathOptions names the path Client.ContainerStatPath
// inspects.
type ContainerStatPathOptions struct {
	// Path is the file or directory inside the container to stat.
	Path string
}

// ContainerStatPathResult is the stat of a path inside a container.
type ContainerStatPathResult struct {
	Stat container.PathStat
}

// ContainerStatPath stats a file or directory inside the container
// without transferring its contents.
func (cli *Client) ContainerStatPath(ctx context.Context, containerID string, options ContainerStatPathOptions) (ContainerStatPathResult, error) {
	query := url.Values{}
	query.Set("path", filepath.ToSlash(options.Path))

	resp, err := cli.head(ctx, "/containers/"+containerID+"/archive", query, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ContainerStatPathResult{}, fmt.Errorf("failed to stat %q in container %q: %w", options.Path, containerID, err)
	}

	stat, err := pathStatFromHeader(resp.header)
	if err != nil {
		return ContainerStatPathResult{}, fmt.Errorf("failed to stat %q in container %q: %w", options.Path, containerID, err)
	}
	return ContainerStatPathResult{Stat: stat}, nil
}

// pathStatFromHeader decodes the base64 JSON stat the daemon attaches
// to archive responses.
func pathStatFromHeader(header http.Header) (container.PathStat, error) {
	var stat container.PathStat
	encoded := header.Get("X-Docker-Container-Path-Stat")
	if encoded == "" {
		return stat, fmt.Errorf("%w: response carries no path stat header", ErrMalformedResponse)
	}
	decoder := base64.NewDecoder(base64.StdEncoding, strings.NewReader(encoded))
	if err := json.NewDecoder(decoder).Decode(&stat); err != nil {
		return stat, fmt.Errorf("%w: failed to decode path stat header: %v", ErrMalformedResponse, err)
	}
	return stat, nil
}
