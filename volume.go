package dockerengine

import (
	"context"
	"fmt"
	"net/url"

	"github.com/docker/docker/api/types/filters"
	"github.com/moby/moby/api/types/volume"
)

// VolumeCreateOptions describes a volume to create. The fields marshal
// directly into the daemon's create request.
type VolumeCreateOptions struct {
	// Name is the volume name. Empty lets the daemon generate one.
	Name string `json:"Name,omitempty"`

	// Driver selects the volume driver. Empty means local.
	Driver string `json:"Driver,omitempty"`

	// DriverOpts are driver-specific settings.
	DriverOpts map[string]string `json:"DriverOpts,omitempty"`

	// Labels are applied to the volume.
	Labels map[string]string `json:"Labels,omitempty"`
}

// VolumeCreateResult is the created volume.
type VolumeCreateResult struct {
	volume.Volume
}

// VolumeCreate creates a named volume. Creating a volume that already
// exists returns the existing volume unchanged.
func (cli *Client) VolumeCreate(ctx context.Context, options VolumeCreateOptions) (VolumeCreateResult, error) {
	resp, err := cli.post(ctx, "/volumes/create", nil, options, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return VolumeCreateResult{}, fmt.Errorf("failed to create volume %q: %w", options.Name, err)
	}

	var result VolumeCreateResult
	if err := decodeResponse(resp, &result.Volume); err != nil {
		return VolumeCreateResult{}, err
	}
	return result, nil
}

// VolumeInspectOptions holds options for Client.VolumeInspect. There
// are none today.
type VolumeInspectOptions struct{}

// VolumeInspectResult is the daemon's reply to a volume inspect.
type VolumeInspectResult struct {
	volume.Volume
}

// VolumeInspect returns the state the daemon holds for one volume.
func (cli *Client) VolumeInspect(ctx context.Context, volumeID string, options VolumeInspectOptions) (VolumeInspectResult, error) {
	resp, err := cli.get(ctx, "/volumes/"+volumeID, nil, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return VolumeInspectResult{}, fmt.Errorf("failed to inspect volume %q: %w", volumeID, err)
	}

	var result VolumeInspectResult
	if err := decodeResponse(resp, &result.Volume); err != nil {
		return VolumeInspectResult{}, err
	}
	return result, nil
}

// VolumeListOptions holds options for Client.VolumeList.
type VolumeListOptions struct {
	// Filters narrows the listing, for example by dangling or label.
	Filters filters.Args
}

// VolumeListResult is the daemon's reply to a volume list, including
// any driver warnings.
type VolumeListResult struct {
	volume.ListResponse
}

// VolumeList returns the volumes known to the daemon.
func (cli *Client) VolumeList(ctx context.Context, options VolumeListOptions) (VolumeListResult, error) {
	query := url.Values{}
	if options.Filters.Len() > 0 {
		filterJSON, err := filters.ToJSON(options.Filters)
		if err != nil {
			return VolumeListResult{}, fmt.Errorf("failed to encode list filters: %w", err)
		}
		query.Set("filters", filterJSON)
	}

	resp, err := cli.get(ctx, "/volumes", query, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return VolumeListResult{}, fmt.Errorf("failed to list volumes: %w", err)
	}

	var result VolumeListResult
	if err := decodeResponse(resp, &result.ListResponse); err != nil {
		return VolumeListResult{}, err
	}
	return result, nil
}

// VolumeRemoveOptions holds options for Client.VolumeRemove.
type VolumeRemoveOptions struct {
	// Force removes the volume even when the daemon believes it is in
	// use.
	Force bool
}

// VolumeRemoveResult is the daemon's reply to a volume remove.
type VolumeRemoveResult struct{}

// VolumeRemove deletes a volume and its data. Volumes mounted by a
// container cannot be removed.
func (cli *Client) VolumeRemove(ctx context.Context, volumeID string, options VolumeRemoveOptions) (VolumeRemoveResult, error) {
	query := url.Values{}
	if options.Force {
		query.Set("force", "1")
	}
	resp, err := cli.delete(ctx, "/volumes/"+volumeID, query, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return VolumeRemoveResult{}, fmt.Errorf("failed to remove volume %q: %w", volumeID, err)
	}
	return VolumeRemoveResult{}, nil
}

// VolumesPruneOptions holds options for Client.VolumesPrune.
type VolumesPruneOptions struct {
	// Filters narrows which volumes are candidates, for example by
	// label.
	Filters filters.Args
}

// VolumesPruneResult reports what a prune deleted and how much space
// it reclaimed.
type VolumesPruneResult struct {
	volume.PruneReport
}

// VolumesPrune deletes unused anonymous volumes.
func (cli *Client) VolumesPrune(ctx context.Context, options VolumesPruneOptions) (VolumesPruneResult, error) {
	query := url.Values{}
	if options.Filters.Len() > 0 {
		filterJSON, err := filters.ToJSON(options.Filters)
		if err != nil {
			return VolumesPruneResult{}, fmt.Errorf("failed to encode prune filters: %w", err)
		}
		query.Set("filters", filterJSON)
	}

	resp, err := cli.post(ctx, "/volumes/prune", query, nil, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return VolumesPruneResult{}, fmt.Errorf("failed to prune volumes: %w", err)
	}

	var result VolumesPruneResult
	if err := decodeResponse(resp, &result.PruneReport); err != nil {
		return VolumesPruneResult{}, err
	}
	return result, nil
}
