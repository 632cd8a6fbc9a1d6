package dockerengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// serverResponse carries one daemon reply between the executor and the
// classifier.
type serverResponse struct {
	body       io.ReadCloser
	header     http.Header
	statusCode int
	reqURL     *url.URL
}

func (cli *Client) get(ctx context.Context, path string, query url.Values, headers http.Header) (serverResponse, error) {
	return cli.sendRequest(ctx, http.MethodGet, path, query, nil, headers)
}

func (cli *Client) post(ctx context.Context, path string, query url.Values, body any, headers http.Header) (serverResponse, error) {
	jsonBody, headers, err := encodeBody(body, headers)
	if err != nil {
		return serverResponse{}, err
	}
	return cli.sendRequest(ctx, http.MethodPost, path, query, jsonBody, headers)
}

func (cli *Client) postRaw(ctx context.Context, path string, query url.Values, body io.Reader, headers http.Header) (serverResponse, error) {
	return cli.sendRequest(ctx, http.MethodPost, path, query, body, headers)
}

func (cli *Client) put(ctx context.Context, path string, query url.Values, body io.Reader, headers http.Header) (serverResponse, error) {
	return cli.sendRequest(ctx, http.MethodPut, path, query, body, headers)
}

func (cli *Client) delete(ctx context.Context, path string, query url.Values, headers http.Header) (serverResponse, error) {
	return cli.sendRequest(ctx, http.MethodDelete, path, query, nil, headers)
}

func (cli *Client) head(ctx context.Context, path string, query url.Values, headers http.Header) (serverResponse, error) {
	return cli.sendRequest(ctx, http.MethodHead, path, query, nil, headers)
}

// encodeBody marshals a JSON request body and stamps the Content-Type
// header. A nil body stays nil so requests without one carry neither.
func encodeBody(body any, headers http.Header) (io.Reader, http.Header, error) {
	if body == nil {
		return nil, headers, nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, headers, fmt.Errorf("failed to encode request body: %w", err)
	}
	if headers == nil {
		headers = http.Header{}
	}
	headers = headers.Clone()
	headers.Set("Content-Type", "application/json")
	return bytes.NewReader(encoded), headers, nil
}

// sendRequest runs one full exchange: build the request, send it over
// the configured transport, and vet the response status. Callers own
// the returned body and must close it, normally via ensureReaderClosed.
func (cli *Client) sendRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, headers http.Header) (serverResponse, error) {
	req, err := cli.buildRequest(ctx, method, cli.versionedPath(ctx, path), query, body, headers)
	if err != nil {
		return serverResponse{}, err
	}

	resp, err := cli.doRequest(req)
	if err != nil {
		return resp, err
	}

	if err := cli.checkResponseErr(resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func (cli *Client) buildRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, headers http.Header) (*http.Request, error) {
	u := &url.URL{Path: path}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request for %q: %w", method, path, err)
	}

	req = cli.addHeaders(req, headers)
	req.URL.Scheme = cli.scheme
	req.URL.Host = cli.addr()

	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "text/plain")
	}
	return req, nil
}

// addr picks the authority for the request URL. Socket transports have
// no meaningful network address, so a fixed placeholder satisfies
// HTTP/1.1's Host requirement while the dialer ignores it.
func (cli *Client) addr() string {
	if cli.endpoint.Proto == "tcp" {
		return cli.endpoint.Addr
	}
	return dummyHost
}

func (cli *Client) addHeaders(req *http.Request, headers http.Header) *http.Request {
	for k, v := range cli.customHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	return req
}

// doRequest performs the exchange and folds transport failures into
// the client's error kinds. The response is returned even on a
// non-success status; classification happens in checkResponseErr.
func (cli *Client) doRequest(req *http.Request) (serverResponse, error) {
	resp, err := cli.client.Do(req)
	if err != nil {
		return serverResponse{reqURL: req.URL}, wrapRequestError(cli.host, err)
	}
	return serverResponse{
		body:       resp.Body,
		header:     resp.Header,
		statusCode: resp.StatusCode,
		reqURL:     req.URL,
	}, nil
}

// ensureReaderClosed drains a little of the body before closing so the
// underlying connection can be reused by the pool.
func ensureReaderClosed(resp serverResponse) {
	if resp.body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.body, 512)
	_ = resp.body.Close()
}
