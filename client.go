package dockerengine

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/docker/docker/api/types/versions"
	"github.com/docker/go-connections/sockets"
)

const (
	// DefaultAPIVersion is the API version requested when the daemon's
	// version is unknown. It tracks the api types this client speaks.
	DefaultAPIVersion = "1.52"

	// MinSupportedAPIVersion is the oldest API version negotiation will
	// fall back to for old daemons.
	MinSupportedAPIVersion = "1.24"

	// dummyHost stands in for the Host header on transports that have no
	// meaningful hostname, such as unix sockets and named pipes.
	dummyHost = "engine.localhost"
)

// Client talks to the daemon's HTTP API over the transport resolved
// from its endpoint: a unix socket, a named pipe, plain TCP, or TLS
// over TCP. The endpoint is resolved once at construction and never
// re-read.
//
// A Client is safe for concurrent use. Every request/response exchange
// runs on its own pooled connection, so concurrent exchanges never
// share a channel mid-flight.
type Client struct {
	endpoint Endpoint
	host     string
	scheme   string

	client    *http.Client
	tlsConfig *tls.Config

	version          string
	manualOverride   bool
	negotiateVersion bool
	negotiateLock    sync.Mutex
	negotiated       bool

	customHeaders map[string]string
}

// New constructs a Client from the given options. With no options the
// client targets the platform default endpoint and pins
// DefaultAPIVersion.
//
//	cli, err := dockerengine.New(dockerengine.FromEnv, dockerengine.WithAPIVersionNegotiation())
func New(ops ...Opt) (*Client, error) {
	endpoint, err := ParseEndpoint(DefaultHost)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{}
	if err := sockets.ConfigureTransport(transport, endpoint.Proto, endpoint.Addr); err != nil {
		return nil, fmt.Errorf("failed to configure transport for %q: %w", DefaultHost, err)
	}

	cli := &Client{
		endpoint: endpoint,
		host:     DefaultHost,
		version:  DefaultAPIVersion,
		client:   &http.Client{Transport: transport},
	}

	for _, op := range ops {
		if err := op(cli); err != nil {
			return nil, err
		}
	}

	if cli.tlsConfig != nil {
		if cli.endpoint.Proto != "tcp" {
			return nil, fmt.Errorf("%w: tls is only supported over tcp endpoints, got %q", ErrInvalidEndpoint, cli.host)
		}
		cli.endpoint.TLS = true
		if tr, ok := cli.client.Transport.(*http.Transport); ok {
			tr.TLSClientConfig = cli.tlsConfig
		}
	}

	cli.scheme = "http"
	if cli.endpoint.TLS {
		cli.scheme = "https"
	}

	return cli, nil
}

// Close releases any idle connections held by the client.
func (cli *Client) Close() error {
	if t, ok := cli.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}

// DaemonHost returns the endpoint string the client connects to.
func (cli *Client) DaemonHost() string {
	return cli.host
}

// Endpoint returns the resolved endpoint descriptor.
func (cli *Client) Endpoint() Endpoint {
	return cli.endpoint
}

// HTTPClient returns a copy of the HTTP client the Client uses.
func (cli *Client) HTTPClient() *http.Client {
	c := *cli.client
	return &c
}

// ClientVersion returns the API version the client sends requests as.
func (cli *Client) ClientVersion() string {
	cli.negotiateLock.Lock()
	defer cli.negotiateLock.Unlock()
	return cli.version
}

// NegotiateAPIVersion queries the daemon and lowers the client's API
// version to the daemon's when the daemon is older than the client's
// default. Versions pinned with WithVersion or DOCKER_API_VERSION are
// never changed. A daemon that cannot be reached leaves the version
// untouched; the next request will surface the transport error.
func (cli *Client) NegotiateAPIVersion(ctx context.Context) {
	if cli.manualOverride {
		return
	}

	ping, err := cli.Ping(ctx, PingOptions{})
	if err != nil || ping.APIVersion == "" {
		return
	}

	cli.negotiateLock.Lock()
	defer cli.negotiateLock.Unlock()
	if versions.LessThan(ping.APIVersion, cli.version) {
		cli.version = ping.APIVersion
	}
	if versions.LessThan(cli.version, MinSupportedAPIVersion) {
		cli.version = MinSupportedAPIVersion
	}
	cli.negotiated = true
}

// versionedPath prefixes p with the API version, negotiating the
// version first when that was requested and has not happened yet.
func (cli *Client) versionedPath(ctx context.Context, p string) string {
	if cli.negotiateVersion && !cli.isNegotiated() {
		cli.NegotiateAPIVersion(ctx)
	}
	return "/v" + cli.ClientVersion() + p
}

func (cli *Client) isNegotiated() bool {
	cli.negotiateLock.Lock()
	defer cli.negotiateLock.Unlock()
	return cli.negotiated
}

// Dialer returns a dialer that opens a fresh raw connection to the
// daemon, used for hijacked exchanges that upgrade away from HTTP.
func (cli *Client) Dialer() func(context.Context) (net.Conn, error) {
	return func(ctx context.Context) (net.Conn, error) {
		if tr, ok := cli.client.Transport.(*http.Transport); ok {
			if tr.DialContext != nil && tr.TLSClientConfig == nil {
				return tr.DialContext(ctx, cli.endpoint.Proto, cli.endpoint.Addr)
			}
		}

		switch cli.endpoint.Proto {
		case "unix":
			var d net.Dialer
			return d.DialContext(ctx, "unix", cli.endpoint.Addr)
		case "npipe":
			return sockets.DialPipe(cli.endpoint.Addr, 32*time.Second)
		default:
			if cli.scheme == "https" {
				td := &tls.Dialer{Config: cli.tlsConfig}
				return td.DialContext(ctx, "tcp", cli.endpoint.Addr)
			}
			var d net.Dialer
			return d.DialContext(ctx, "tcp", cli.endpoint.Addr)
		}
	}
}
