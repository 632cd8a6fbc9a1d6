package dockerengine

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-connections/sockets"
	"github.com/docker/go-connections/tlsconfig"
)

// Opt configures a Client during construction.
type Opt func(*Client) error

const (
	// EnvOverrideHost overrides the default endpoint (DefaultHost).
	EnvOverrideHost = "DOCKER_HOST"

	// EnvOverrideAPIVersion pins the API version and disables
	// negotiation.
	EnvOverrideAPIVersion = "DOCKER_API_VERSION"

	// EnvOverrideCertPath names a directory holding ca.pem, cert.pem,
	// and key.pem for TLS endpoints.
	EnvOverrideCertPath = "DOCKER_CERT_PATH"

	// EnvTLSVerify enables server certificate verification when TLS
	// material is taken from the environment.
	EnvTLSVerify = "DOCKER_TLS_VERIFY"
)

// FromEnv configures the client from the DOCKER_HOST,
// DOCKER_API_VERSION, DOCKER_CERT_PATH, and DOCKER_TLS_VERIFY
// environment variables, following the docker CLI's conventions. The
// environment is read once, here; later changes do not affect a
// constructed client.
var FromEnv Opt = fromEnv

func fromEnv(cli *Client) error {
	ops := []Opt{
		WithTLSClientConfigFromEnv(),
		WithHostFromEnv(),
		WithVersionFromEnv(),
	}
	for _, op := range ops {
		if err := op(cli); err != nil {
			return err
		}
	}
	return nil
}

// WithHost points the client at an explicit endpoint string, such as
// unix:///var/run/docker.sock or tcp://10.0.0.5:2375.
func WithHost(host string) Opt {
	return func(cli *Client) error {
		endpoint, err := ParseEndpoint(host)
		if err != nil {
			return err
		}
		cli.host = host
		cli.endpoint = endpoint
		if tr, ok := cli.client.Transport.(*http.Transport); ok {
			if err := sockets.ConfigureTransport(tr, endpoint.Proto, endpoint.Addr); err != nil {
				return fmt.Errorf("%w: %q is not usable on this platform: %v", ErrInvalidEndpoint, host, err)
			}
		}
		return nil
	}
}

// WithHostFromEnv applies WithHost with the value of DOCKER_HOST, when
// that variable is set and non-empty.
func WithHostFromEnv() Opt {
	return func(cli *Client) error {
		if host := os.Getenv(EnvOverrideHost); host != "" {
			return WithHost(host)(cli)
		}
		return nil
	}
}

// WithVersion pins the API version, overriding negotiation.
func WithVersion(version string) Opt {
	return func(cli *Client) error {
		if version != "" {
			cli.version = version
			cli.manualOverride = true
		}
		return nil
	}
}

// WithVersionFromEnv applies WithVersion with the value of
// DOCKER_API_VERSION, when that variable is set and non-empty.
func WithVersionFromEnv() Opt {
	return func(cli *Client) error {
		return WithVersion(os.Getenv(EnvOverrideAPIVersion))(cli)
	}
}

// WithAPIVersionNegotiation makes the client negotiate its API version
// down to the daemon's before the first versioned request.
func WithAPIVersionNegotiation() Opt {
	return func(cli *Client) error {
		cli.negotiateVersion = true
		return nil
	}
}

// WithTLSClientConfig loads TLS trust material for the daemon
// connection: a certificate authority bundle and a client certificate
// and key pair.
func WithTLSClientConfig(cacertPath, certPath, keyPath string) Opt {
	return func(cli *Client) error {
		config, err := tlsconfig.Client(tlsconfig.Options{
			CAFile:             cacertPath,
			CertFile:           certPath,
			KeyFile:            keyPath,
			ExclusiveRootPools: true,
		})
		if err != nil {
			return fmt.Errorf("failed to load tls config from %q: %w", cacertPath, err)
		}
		cli.tlsConfig = config
		return nil
	}
}

// WithTLSClientConfigFromEnv loads TLS trust material from the
// directory named by DOCKER_CERT_PATH, when that variable is set.
// Verification of the daemon's certificate is skipped unless
// DOCKER_TLS_VERIFY is also set.
func WithTLSClientConfigFromEnv() Opt {
	return func(cli *Client) error {
		dir := os.Getenv(EnvOverrideCertPath)
		if dir == "" {
			return nil
		}
		config, err := tlsconfig.Client(tlsconfig.Options{
			CAFile:             filepath.Join(dir, "ca.pem"),
			CertFile:           filepath.Join(dir, "cert.pem"),
			KeyFile:            filepath.Join(dir, "key.pem"),
			InsecureSkipVerify: os.Getenv(EnvTLSVerify) == "",
		})
		if err != nil {
			return fmt.Errorf("failed to load tls config from %q: %w", dir, err)
		}
		cli.tlsConfig = config
		return nil
	}
}

// WithHTTPClient swaps in a caller-owned HTTP client, for callers that
// need full control over the transport.
func WithHTTPClient(client *http.Client) Opt {
	return func(cli *Client) error {
		if client != nil {
			cli.client = client
		}
		return nil
	}
}

// WithHTTPHeaders sets custom headers sent with every request.
func WithHTTPHeaders(headers map[string]string) Opt {
	return func(cli *Client) error {
		cli.customHeaders = headers
		return nil
	}
}

// WithTimeout bounds every exchange, including reading the response
// body. Prefer per-call contexts for streaming endpoints such as logs,
// where a client-wide timeout would cut the stream off.
func WithTimeout(timeout time.Duration) Opt {
	return func(cli *Client) error {
		cli.client.Timeout = timeout
		return nil
	}
}

// WithDialContext overrides how transport connections are dialed, for
// both pooled HTTP exchanges and hijacked connections without TLS.
func WithDialContext(dialContext func(ctx context.Context, network, addr string) (net.Conn, error)) Opt {
	return func(cli *Client) error {
		if tr, ok := cli.client.Transport.(*http.Transport); ok {
			tr.DialContext = dialContext
			return nil
		}
		return fmt.Errorf("failed to apply dial context to transport of type %T", cli.client.Transport)
	}
}
