package dockerengine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/filters"
	"github.com/moby/moby/api/types/image"
	"github.com/moby/moby/api/types/registry"
)

// registryAuthHeader renders an auth config the way the daemon expects
// it in the X-Registry-Auth header: url-safe base64 over JSON.
func registryAuthHeader(auth registry.AuthConfig) (string, error) {
	buf, err := json.Marshal(auth)
	if err != nil {
		return "", fmt.Errorf("failed to encode registry auth: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// ImageBuildOptions holds the build configuration for
// Client.ImageBuild.
type ImageBuildOptions struct {
	// Tags names the built image, each as name:tag.
	Tags []string

	// Dockerfile is the path of the Dockerfile within the build
	// context. Empty means the daemon default.
	Dockerfile string

	// Remove deletes intermediate containers after a successful
	// build.
	Remove bool

	// ForceRemove deletes intermediate containers even when the build
	// fails.
	ForceRemove bool

	// NoCache disables the build cache.
	NoCache bool

	// Pull always attempts to pull newer versions of base images.
	Pull bool

	// BuildArgs are values for ARG instructions. A nil value unsets
	// the argument.
	BuildArgs map[string]*string

	// Labels are applied to the built image.
	Labels map[string]string

	// Target is the build stage to stop at.
	Target string

	// Platform selects the target platform as os/arch.
	Platform string

	// AuthConfigs supplies registry credentials for base image pulls,
	// keyed by registry host.
	AuthConfigs map[string]registry.AuthConfig
}

// ImageBuildResult carries the build's progress stream: one JSON
// message per line, ending with an error detail when the build fails.
// Close Body when done.
type ImageBuildResult struct {
	Body io.ReadCloser
}

// ImageBuild builds an image from a tar archive holding the build
// context. The returned body streams build progress and must be read
// to completion to learn whether the build succeeded.
func (cli *Client) ImageBuild(ctx context.Context, buildContext io.Reader, options ImageBuildOptions) (ImageBuildResult, error) {
	query := url.Values{}
	for _, tag := range options.Tags {
		query.Add("t", tag)
	}
	if options.Dockerfile != "" {
		query.Set("dockerfile", options.Dockerfile)
	}
	if options.Remove {
		query.Set("rm", "1")
	}
	if options.ForceRemove {
		query.Set("forcerm", "1")
	}
	if options.NoCache {
		query.Set("nocache", "1")
	}
	if options.Pull {
		query.Set("pull", "1")
	}
	if len(options.BuildArgs) > 0 {
		args, err := json.Marshal(options.BuildArgs)
		if err != nil {
			return ImageBuildResult{}, fmt.Errorf("failed to encode build args: %w", err)
		}
		query.Set("buildargs", string(args))
	}
	if len(options.Labels) > 0 {
		labels, err := json.Marshal(options.Labels)
		if err != nil {
			return ImageBuildResult{}, fmt.Errorf("failed to encode build labels: %w", err)
		}
		query.Set("labels", string(labels))
	}
	if options.Target != "" {
		query.Set("target", options.Target)
	}
	if options.Platform != "" {
		query.Set("platform", strings.ToLower(options.Platform))
	}

	headers := http.Header{}
	if len(options.AuthConfigs) > 0 {
		buf, err := json.Marshal(options.AuthConfigs)
		if err != nil {
			return ImageBuildResult{}, fmt.Errorf("failed to encode registry auth: %w", err)
		}
		headers.Set("X-Registry-Config", base64.URLEncoding.EncodeToString(buf))
	}
	headers.Set("Content-Type", "application/x-tar")

	resp, err := cli.postRaw(ctx, "/build", query, buildContext, headers)
	if err != nil {
		ensureReaderClosed(resp)
		return ImageBuildResult{}, fmt.Errorf("failed to build image: %w", err)
	}
	return ImageBuildResult{Body: resp.body}, nil
}

// ImagePullOptions holds options for Client.ImagePull.
type ImagePullOptions struct {
	// All pulls every tag of the repository instead of one.
	All bool

	// Platform selects the platform to pull as os/arch when the image
	// is multi-platform.
	Platform string

	// Auth supplies registry credentials.
	Auth *registry.AuthConfig
}

// ImagePullResult carries the pull's progress stream: one JSON message
// per line. Close Body when done; the pull is complete when Body
// reaches EOF without an error message.
type ImagePullResult struct {
	Body io.ReadCloser
}

// ImagePull asks the daemon to pull an image from its registry. The
// reference is normalized the way the docker CLI normalizes it, so
// "alpine" means docker.io/library/alpine:latest.
func (cli *Client) ImagePull(ctx context.Context, refStr string, options ImagePullOptions) (ImagePullResult, error) {
	ref, err := reference.ParseNormalizedNamed(refStr)
	if err != nil {
		return ImagePullResult{}, fmt.Errorf("failed to parse image reference %q: %w", refStr, err)
	}

	query := url.Values{}
	query.Set("fromImage", reference.FamiliarName(ref))
	if !options.All {
		query.Set("tag", tagOrDigest(ref))
	}
	if options.Platform != "" {
		query.Set("platform", strings.ToLower(options.Platform))
	}

	headers := http.Header{}
	if options.Auth != nil {
		encoded, err := registryAuthHeader(*options.Auth)
		if err != nil {
			return ImagePullResult{}, err
		}
		headers.Set("X-Registry-Auth", encoded)
	}

	resp, err := cli.post(ctx, "/images/create", query, nil, headers)
	if err != nil {
		ensureReaderClosed(resp)
		return ImagePullResult{}, fmt.Errorf("failed to pull image %q: %w", refStr, err)
	}
	return ImagePullResult{Body: resp.body}, nil
}

// tagOrDigest picks the tag parameter for a pull: the digest for
// pinned references, otherwise the tag, defaulting to latest.
func tagOrDigest(ref reference.Named) string {
	if digested, ok := ref.(reference.Digested); ok {
		return digested.Digest().String()
	}
	ref = reference.TagNameOnly(ref)
	if tagged, ok := ref.(reference.Tagged); ok {
		return tagged.Tag()
	}
	return ""
}

// ImagePushOptions holds options for Client.ImagePush.
type ImagePushOptions struct {
	// All pushes every tag of the repository instead of one.
	All bool

	// Auth supplies registry credentials.
	Auth *registry.AuthConfig
}

// ImagePushResult carries the push's progress stream: one JSON message
// per line. Close Body when done.
type ImagePushResult struct {
	Body io.ReadCloser
}

// ImagePush uploads an image to its registry. The reference must carry
// a name; pushing a bare digest is refused.
func (cli *Client) ImagePush(ctx context.Context, refStr string, options ImagePushOptions) (ImagePushResult, error) {
	ref, err := reference.ParseNormalizedNamed(refStr)
	if err != nil {
		return ImagePushResult{}, fmt.Errorf("failed to parse image reference %q: %w", refStr, err)
	}
	if _, isCanonical := ref.(reference.Canonical); isCanonical {
		return ImagePushResult{}, fmt.Errorf("failed to push %q: cannot push a digest reference", refStr)
	}

	query := url.Values{}
	if !options.All {
		ref = reference.TagNameOnly(ref)
		if tagged, ok := ref.(reference.Tagged); ok {
			query.Set("tag", tagged.Tag())
		}
	}

	headers := http.Header{}
	if options.Auth != nil {
		encoded, err := registryAuthHeader(*options.Auth)
		if err != nil {
			return ImagePushResult{}, err
		}
		headers.Set("X-Registry-Auth", encoded)
	}

	resp, err := cli.post(ctx, "/images/"+reference.FamiliarName(ref)+"/push", query, nil, headers)
	if err != nil {
		ensureReaderClosed(resp)
		return ImagePushResult{}, fmt.Errorf("failed to push image %q: %w", refStr, err)
	}
	return ImagePushResult{Body: resp.body}, nil
}

// ImageListOptions holds options for Client.ImageList.
type ImageListOptions struct {
	// All includes intermediate layers.
	All bool

	// Filters narrows the listing, for example by dangling or label.
	Filters filters.Args
}

// ImageListResult is the daemon's reply to an image list.
type ImageListResult struct {
	Items []image.Summary
}

// ImageList returns summaries of images held by the daemon.
func (cli *Client) ImageList(ctx context.Context, options ImageListOptions) (ImageListResult, error) {
	query := url.Values{}
	if options.All {
		query.Set("all", "1")
	}
	if options.Filters.Len() > 0 {
		filterJSON, err := filters.ToJSON(options.Filters)
		if err != nil {
			return ImageListResult{}, fmt.Errorf("failed to encode list filters: %w", err)
		}
		query.Set("filters", filterJSON)
	}

	resp, err := cli.get(ctx, "/images/json", query, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ImageListResult{}, fmt.Errorf("failed to list images: %w", err)
	}

	var result ImageListResult
	if err := decodeResponse(resp, &result.Items); err != nil {
		return ImageListResult{}, err
	}
	return result, nil
}

// ImageTagOptions names the new reference for Client.ImageTag.
type ImageTagOptions struct {
	// Target is the reference to create, as repo or repo:tag.
	Target string
}

// ImageTagResult is the daemon's reply to an image tag.
type ImageTagResult struct{}

// ImageTag adds a reference to an existing image. Tagging onto a
// digest reference is refused, since digests are immutable.
func (cli *Client) ImageTag(ctx context.Context, source string, options ImageTagOptions) (ImageTagResult, error) {
	if _, err := reference.ParseAnyReference(source); err != nil {
		return ImageTagResult{}, fmt.Errorf("failed to parse image reference %q: %w", source, err)
	}
	ref, err := reference.ParseNormalizedNamed(options.Target)
	if err != nil {
		return ImageTagResult{}, fmt.Errorf("failed to parse image reference %q: %w", options.Target, err)
	}
	if _, isCanonical := ref.(reference.Canonical); isCanonical {
		return ImageTagResult{}, fmt.Errorf("failed to tag %q: cannot tag with a digest reference", options.Target)
	}
	ref = reference.TagNameOnly(ref)

	query := url.Values{}
	query.Set("repo", reference.FamiliarName(ref))
	if tagged, ok := ref.(reference.Tagged); ok {
		query.Set("tag", tagged.Tag())
	}

	resp, err := cli.post(ctx, "/images/"+source+"/tag", query, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return ImageTagResult{}, fmt.Errorf("failed to tag image %q as %q: %w", source, options.Target, err)
	}
	return ImageTagResult{}, nil
}

// ImageRemoveOptions holds options for Client.ImageRemove.
type ImageRemoveOptions struct {
	// Force removes the image even when containers reference it.
	Force bool

	// PruneChildren removes untagged parent layers as well.
	PruneChildren bool
}

// ImageRemoveResult lists what an image remove deleted and untagged.
type ImageRemoveResult struct {
	Items []image.DeleteResponse
}

// ImageRemove deletes an image reference and, when it was the last
// reference, the image itself.
func (cli *Client) ImageRemove(ctx context.Context, imageID string, options ImageRemoveOptions) (ImageRemoveResult, error) {
	query := url.Values{}
	if options.Force {
		query.Set("force", "1")
	}
	if !options.PruneChildren {
		query.Set("noprune", "1")
	}

	resp, err := cli.delete(ctx, "/images/"+imageID, query, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ImageRemoveResult{}, fmt.Errorf("failed to remove image %q: %w", imageID, err)
	}

	var result ImageRemoveResult
	if err := decodeResponse(resp, &result.Items); err != nil {
		return ImageRemoveResult{}, err
	}
	return result, nil
}
