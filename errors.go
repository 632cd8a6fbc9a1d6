package dockerengine

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/containerd/errdefs/pkg/errhttp"
)

var (
	// ErrInvalidEndpoint reports an endpoint string that could not be
	// resolved into a transport and address.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrConnectionFailed reports a failure to establish the underlying
	// connection to the daemon.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrTLSHandshakeFailed reports a TLS handshake or certificate
	// verification failure, distinct from ErrConnectionFailed so callers
	// can tell trust problems from network problems.
	ErrTLSHandshakeFailed = errors.New("tls handshake failed")

	// ErrTransportWriteFailed reports an I/O failure while sending a
	// request to the daemon.
	ErrTransportWriteFailed = errors.New("transport write failed")

	// ErrTransportReadFailed reports an I/O failure while reading a
	// response from the daemon.
	ErrTransportReadFailed = errors.New("transport read failed")

	// ErrMalformedResponse reports a daemon response whose status line,
	// headers, or expected JSON body could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")
)

// DaemonError is a failure reported by the daemon itself: a non-success
// status code and the message from the daemon's JSON error body. When
// the body cannot be decoded, Message holds the raw body text instead.
type DaemonError struct {
	StatusCode int
	Message    string
}

func (e *DaemonError) Error() string {
	return fmt.Sprintf("error response from daemon (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the containerd errdefs sentinels so
// callers can classify failures with errors.Is or the errdefs
// predicates without inspecting status codes themselves.
func (e *DaemonError) Unwrap() error {
	return errhttp.ToNative(e.StatusCode)
}

// IsErrNotFound reports whether err is a daemon error for a resource
// that does not exist, such as an unknown container or image.
func IsErrNotFound(err error) bool {
	return cerrdefs.IsNotFound(err)
}

// IsErrConflict reports whether err is a daemon error for an operation
// that conflicts with the resource's current state, such as removing a
// running container.
func IsErrConflict(err error) bool {
	return cerrdefs.IsConflict(err)
}

// IsErrNotImplemented reports whether err is a daemon error for an
// endpoint the daemon does not implement.
func IsErrNotImplemented(err error) bool {
	return cerrdefs.IsNotImplemented(err)
}

// wrapRequestError converts a failure from the HTTP transport into the
// client's error kinds, keeping the original error in the chain.
// Context cancellation and deadline expiry pass through untouched;
// abandoning an exchange is a normal exit path, not a transport fault.
func wrapRequestError(host string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
	}

	if isTLSError(cause) {
		return fmt.Errorf("failed to negotiate tls with the daemon at %q: %w: %w\nCheck the certificate authority and client certificates", host, ErrTLSHandshakeFailed, cause)
	}

	var opErr *net.OpError
	if errors.As(cause, &opErr) {
		switch opErr.Op {
		case "dial":
			return fmt.Errorf("failed to connect to the daemon at %q: %w: %w\nIs the daemon running?", host, ErrConnectionFailed, cause)
		case "write":
			return fmt.Errorf("failed to send request to the daemon at %q: %w: %w", host, ErrTransportWriteFailed, cause)
		case "read":
			return fmt.Errorf("failed to read response from the daemon at %q: %w: %w", host, ErrTransportReadFailed, cause)
		}
	}

	var dnsErr *net.DNSError
	if errors.As(cause, &dnsErr) {
		return fmt.Errorf("failed to resolve the daemon address %q: %w: %w", host, ErrConnectionFailed, cause)
	}

	if strings.Contains(cause.Error(), "malformed HTTP") {
		return fmt.Errorf("failed to parse response from the daemon at %q: %w: %w", host, ErrMalformedResponse, cause)
	}

	if errors.Is(cause, io.EOF) || errors.Is(cause, io.ErrUnexpectedEOF) {
		return fmt.Errorf("daemon at %q closed the connection before responding: %w: %w", host, ErrTransportReadFailed, cause)
	}

	return fmt.Errorf("failed to reach the daemon at %q: %w: %w\nIs the daemon running?", host, ErrConnectionFailed, cause)
}

// isTLSError reports whether err originated in the TLS handshake or
// certificate verification rather than the underlying connection.
func isTLSError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &recordErr),
		errors.As(err, &alertErr),
		errors.As(err, &authorityErr),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr):
		return true
	}
	return strings.Contains(err.Error(), "tls:") || strings.Contains(err.Error(), "x509:")
}
