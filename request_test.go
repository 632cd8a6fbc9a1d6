package dockerengine_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/ryanmoran/dockerengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDaemonErrors tests how failure statuses become DaemonError values
func TestDaemonErrors(t *testing.T) {
	t.Run("decodes a json error body", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusNotFound, map[string]string{"message": "No such container: nope"})
		}))

		_, err := cli.ContainerInspect(context.Background(), "nope", dockerengine.ContainerInspectOptions{})
		require.Error(t, err)

		var daemonErr *dockerengine.DaemonError
		require.ErrorAs(t, err, &daemonErr)
		assert.Equal(t, http.StatusNotFound, daemonErr.StatusCode)
		assert.Equal(t, "No such container: nope", daemonErr.Message)
		assert.True(t, dockerengine.IsErrNotFound(err))
	})

	t.Run("decodes a json error body with a charset parameter", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message": "container is running"}`))
		}))

		err := removeContainer(t, cli)
		var daemonErr *dockerengine.DaemonError
		require.ErrorAs(t, err, &daemonErr)
		assert.Equal(t, "container is running", daemonErr.Message)
		assert.True(t, dockerengine.IsErrConflict(err))
	})

	t.Run("falls back to the raw text of a non-json body", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("something broke\n"))
		}))

		err := removeContainer(t, cli)
		var daemonErr *dockerengine.DaemonError
		require.ErrorAs(t, err, &daemonErr)
		assert.Equal(t, http.StatusInternalServerError, daemonErr.StatusCode)
		assert.Equal(t, "something broke", daemonErr.Message)
	})

	t.Run("falls back to the status and route for an empty body", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		err := removeContainer(t, cli)
		var daemonErr *dockerengine.DaemonError
		require.ErrorAs(t, err, &daemonErr)
		assert.Contains(t, daemonErr.Message, "Bad Gateway")
		assert.Contains(t, daemonErr.Message, "/containers/abc123")
	})

	t.Run("caps an unbounded error body", func(t *testing.T) {
		oversized := strings.Repeat("x", 2*1024*1024)
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(oversized))
		}))

		err := removeContainer(t, cli)
		var daemonErr *dockerengine.DaemonError
		require.ErrorAs(t, err, &daemonErr)
		assert.Len(t, daemonErr.Message, 1024*1024)
	})

	t.Run("treats undecodable json as raw text", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"unexpected": "shape"}`))
		}))

		err := removeContainer(t, cli)
		var daemonErr *dockerengine.DaemonError
		require.ErrorAs(t, err, &daemonErr)
		assert.Equal(t, `{"unexpected": "shape"}`, daemonErr.Message)
	})
}

// removeContainer issues a fixed request for subtests that only care
// about the response classification.
func removeContainer(t *testing.T, cli *dockerengine.Client) error {
	t.Helper()
	_, err := cli.ContainerRemove(context.Background(), "abc123", dockerengine.ContainerRemoveOptions{})
	return err
}

// TestSuccessHandling tests the success arm of response classification
func TestSuccessHandling(t *testing.T) {
	t.Run("treats not-modified as success", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotModified)
		}))

		_, err := cli.ContainerStop(context.Background(), "abc123", dockerengine.ContainerStopOptions{})
		assert.NoError(t, err)
	})

	t.Run("reports a malformed json payload", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"Id": "abc123"`))
		}))

		_, err := cli.ContainerInspect(context.Background(), "abc123", dockerengine.ContainerInspectOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, dockerengine.ErrMalformedResponse)
	})

	t.Run("reports a wrong-type json payload", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, []string{"not", "an", "object"})
		}))

		_, err := cli.ContainerInspect(context.Background(), "abc123", dockerengine.ContainerInspectOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, dockerengine.ErrMalformedResponse)
	})
}
