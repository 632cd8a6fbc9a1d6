package dockerengine

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const (
	defaultHTTPPort = "2375"
	defaultTLSPort  = "2376"
)

// Endpoint is a resolved daemon address: the dial protocol, the address
// to dial, and whether the connection must be wrapped in TLS. It is
// built once at client construction and never mutated afterwards.
type Endpoint struct {
	// Proto is the dial network: "unix", "npipe", or "tcp".
	Proto string

	// Addr is the dial address: a socket path, a pipe path, or host:port.
	Addr string

	// TLS reports whether connections perform a TLS handshake.
	TLS bool
}

// String renders the endpoint in the URL form accepted by ParseEndpoint.
func (e Endpoint) String() string {
	switch e.Proto {
	case "unix", "npipe":
		return e.Proto + "://" + e.Addr
	default:
		if e.TLS {
			return "https://" + e.Addr
		}
		return "tcp://" + e.Addr
	}
}

// ParseEndpoint resolves an endpoint string of the form scheme://address
// into an Endpoint. Recognized schemes are unix, npipe, tcp, http, and
// https; https selects TLS over TCP. TCP addresses missing a port get
// 2375, or 2376 when TLS is in play, and a missing hostname defaults to
// localhost. Unrecognized schemes and malformed addresses fail with
// ErrInvalidEndpoint.
func ParseEndpoint(host string) (Endpoint, error) {
	scheme, rest, ok := strings.Cut(host, "://")
	if !ok || scheme == "" {
		return Endpoint{}, fmt.Errorf("%w: %q has no scheme, expected a form like unix:///var/run/docker.sock or tcp://host:2375", ErrInvalidEndpoint, host)
	}
	if rest == "" {
		return Endpoint{}, fmt.Errorf("%w: %q has no address", ErrInvalidEndpoint, host)
	}

	switch scheme {
	case "unix", "npipe":
		return Endpoint{Proto: scheme, Addr: rest}, nil

	case "tcp", "http", "https":
		u, err := url.Parse(host)
		if err != nil {
			return Endpoint{}, fmt.Errorf("%w: failed to parse %q: %v", ErrInvalidEndpoint, host, err)
		}
		if u.Path != "" && u.Path != "/" {
			return Endpoint{}, fmt.Errorf("%w: %q carries a path, tcp endpoints take only host and port", ErrInvalidEndpoint, host)
		}

		hostname := u.Hostname()
		if hostname == "" {
			hostname = "localhost"
		}

		useTLS := scheme == "https"
		port := u.Port()
		if port == "" {
			port = defaultHTTPPort
			if useTLS {
				port = defaultTLSPort
			}
		}

		return Endpoint{Proto: "tcp", Addr: net.JoinHostPort(hostname, port), TLS: useTLS}, nil

	default:
		return Endpoint{}, fmt.Errorf("%w: unsupported scheme %q in %q", ErrInvalidEndpoint, scheme, host)
	}
}
