package dockerengine

import (
	"context"
	"fmt"
	"net/url"

	"github.com/docker/docker/api/types/filters"
	"github.com/moby/moby/api/types/network"
)

// NetworkCreateOptions describes a network to create. The fields
// marshal directly into the daemon's create request.
type NetworkCreateOptions struct {
	// Name is the network name. Required.
	Name string `json:"Name"`

	// Driver selects the network driver. Empty means the daemon
	// default, normally bridge.
	Driver string `json:"Driver,omitempty"`

	// Options are driver-specific settings.
	Options map[string]string `json:"Options,omitempty"`

	// Labels are applied to the network.
	Labels map[string]string `json:"Labels,omitempty"`

	// Internal restricts the network from external access.
	Internal bool `json:"Internal,omitempty"`

	// Attachable lets standalone containers attach to an overlay
	// network.
	Attachable bool `json:"Attachable,omitempty"`

	// Ingress marks the network as the swarm routing-mesh network.
	Ingress bool `json:"Ingress,omitempty"`

	// EnableIPv6 toggles IPv6 on the network. Nil uses the daemon
	// default.
	EnableIPv6 *bool `json:"EnableIPv6,omitempty"`
}

// NetworkCreateResult is the daemon's reply to a network create.
type NetworkCreateResult struct {
	network.CreateResponse
}

// NetworkCreate creates a network for containers to attach to.
func (cli *Client) NetworkCreate(ctx context.Context, options NetworkCreateOptions) (NetworkCreateResult, error) {
	resp, err := cli.post(ctx, "/networks/create", nil, options, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return NetworkCreateResult{}, fmt.Errorf("failed to create network %q: %w", options.Name, err)
	}

	var result NetworkCreateResult
	if err := decodeResponse(resp, &result.CreateResponse); err != nil {
		return NetworkCreateResult{}, err
	}
	return result, nil
}

// NetworkInspectOptions holds options for Client.NetworkInspect.
type NetworkInspectOptions struct {
	// Verbose includes service and task details on swarm networks.
	Verbose bool

	// Scope selects swarm, global, or local when names collide across
	// scopes.
	Scope string
}

// NetworkInspectResult is the daemon's reply to a network inspect.
type NetworkInspectResult struct {
	network.Inspect
}

// NetworkInspect returns the full state the daemon holds for one
// network.
func (cli *Client) NetworkInspect(ctx context.Context, networkID string, options NetworkInspectOptions) (NetworkInspectResult, error) {
	query := url.Values{}
	if options.Verbose {
		query.Set("verbose", "true")
	}
	if options.Scope != "" {
		query.Set("scope", options.Scope)
	}

	resp, err := cli.get(ctx, "/networks/"+networkID, query, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return NetworkInspectResult{}, fmt.Errorf("failed to inspect network %q: %w", networkID, err)
	}

	var result NetworkInspectResult
	if err := decodeResponse(resp, &result.Inspect); err != nil {
		return NetworkInspectResult{}, err
	}
	return result, nil
}

// NetworkListOptions holds options for Client.NetworkList.
type NetworkListOptions struct {
	// Filters narrows the listing, for example by driver or label.
	Filters filters.Args
}

// NetworkListResult is the daemon's reply to a network list.
type NetworkListResult struct {
	Items []network.Summary
}

// NetworkList returns summaries of networks known to the daemon.
func (cli *Client) NetworkList(ctx context.Context, options NetworkListOptions) (NetworkListResult, error) {
	query := url.Values{}
	if options.Filters.Len() > 0 {
		filterJSON, err := filters.ToJSON(options.Filters)
		if err != nil {
			return NetworkListResult{}, fmt.Errorf("failed to encode list filters: %w", err)
		}
		query.Set("filters", filterJSON)
	}

	resp, err := cli.get(ctx, "/networks", query, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return NetworkListResult{}, fmt.Errorf("failed to list networks: %w", err)
	}

	var result NetworkListResult
	if err := decodeResponse(resp, &result.Items); err != nil {
		return NetworkListResult{}, err
	}
	return result, nil
}

// NetworkRemoveOptions holds options for Client.NetworkRemove. There
// are none today.
type NetworkRemoveOptions struct{}

// NetworkRemoveResult is the daemon's reply to a network remove.
type NetworkRemoveResult struct{}

// NetworkRemove deletes a network. Networks with attached containers
// cannot be removed.
func (cli *Client) NetworkRemove(ctx context.Context, networkID string, options NetworkRemoveOptions) (NetworkRemoveResult, error) {
	resp, err := cli.delete(ctx, "/networks/"+networkID, nil, nil)
	ensureReaderClosed(resp)
	if err != nil {
		return NetworkRemoveResult{}, fmt.Errorf("failed to remove network %q: %w", networkID, err)
	}
	return NetworkRemoveResult{}, nil
}
