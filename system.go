package dockerengine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// PingOptions holds options for Client.Ping. There are none today; the
// struct keeps the call shape uniform with the rest of the API.
type PingOptions struct{}

// PingResult holds what the daemon reveals about itself on the
// unversioned /_ping route, which every daemon answers regardless of
// API version.
type PingResult struct {
	APIVersion     string
	OSType         string
	Experimental   bool
	BuilderVersion string
}

// Ping probes the daemon and reports the API version and platform
// details it advertises. The route is deliberately unversioned so it
// can drive version negotiation.
func (cli *Client) Ping(ctx context.Context, options PingOptions) (PingResult, error) {
	// HEAD first; old daemons that predate it get the GET fallback.
	req, err := cli.buildRequest(ctx, http.MethodHead, "/_ping", nil, nil, nil)
	if err != nil {
		return PingResult{}, err
	}
	resp, err := cli.doRequest(req)
	if err == nil {
		defer ensureReaderClosed(resp)
		switch resp.statusCode {
		case http.StatusOK, http.StatusInternalServerError:
			return parsePingResponse(cli, resp)
		}
	} else if errors.Is(err, ErrConnectionFailed) || errors.Is(err, ErrTLSHandshakeFailed) {
		return PingResult{}, err
	}

	req.Method = http.MethodGet
	resp, err = cli.doRequest(req)
	if err != nil {
		return PingResult{}, err
	}
	defer ensureReaderClosed(resp)
	return parsePingResponse(cli, resp)
}

func parsePingResponse(cli *Client, resp serverResponse) (PingResult, error) {
	if resp.header == nil {
		return PingResult{}, cli.checkResponseErr(resp)
	}
	ping := PingResult{
		APIVersion:     resp.header.Get("Api-Version"),
		OSType:         resp.header.Get("Ostype"),
		Experimental:   resp.header.Get("Docker-Experimental") == "true",
		BuilderVersion: resp.header.Get("Builder-Version"),
	}
	return ping, cli.checkResponseErr(resp)
}

// ServerVersionOptions holds options for Client.ServerVersion. There
// are none today.
type ServerVersionOptions struct{}

// ServerVersionResult describes the daemon build, as reported by the
// /version route.
type ServerVersionResult struct {
	Platform struct {
		Name string
	} `json:",omitempty"`
	Components []VersionComponent `json:",omitempty"`

	Version       string
	APIVersion    string `json:"ApiVersion"`
	MinAPIVersion string `json:"MinAPIVersion,omitempty"`
	GitCommit     string
	GoVersion     string
	Os            string
	Arch          string
	KernelVersion string `json:",omitempty"`
	Experimental  bool   `json:",omitempty"`
	BuildTime     string `json:",omitempty"`
}

// VersionComponent describes the version of one daemon subsystem, such
// as the engine, containerd, or runc.
type VersionComponent struct {
	Name    string
	Version string
	Details map[string]string `json:",omitempty"`
}

// ServerVersion reports version details for the daemon and its
// components.
func (cli *Client) ServerVersion(ctx context.Context, options ServerVersionOptions) (ServerVersionResult, error) {
	resp, err := cli.get(ctx, "/version", nil, nil)
	if err != nil {
		ensureReaderClosed(resp)
		return ServerVersionResult{}, fmt.Errorf("failed to get server version: %w", err)
	}

	var version ServerVersionResult
	if err := decodeResponse(resp, &version); err != nil {
		return ServerVersionResult{}, err
	}
	return version, nil
}
