package dockerengine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/moby/moby/api/types/container"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/ryanmoran/dockerengine"
	"github.com/ryanmoran/dockerengine/stdstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the client put on the wire so subtests
// can assert on it after the exchange completes.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// recordingHandler answers every request with the given status and
// JSON payload. The returned func snapshots the last request seen;
// the handler runs off the test goroutine, so access goes through a
// mutex.
func recordingHandler(t *testing.T, status int, payload any) (func() recordedRequest, http.Handler) {
	t.Helper()
	var mu sync.Mutex
	var last recordedRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		mu.Lock()
		last = recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body}
		mu.Unlock()

		if payload == nil {
			w.WriteHeader(status)
			return
		}
		writeJSON(t, w, status, payload)
	})
	return func() recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return last
	}, handler
}

// TestContainerCreate tests creating containers
func TestContainerCreate(t *testing.T) {
	t.Run("sends the config and decodes the reply", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusCreated, dockerengine.ContainerCreateResult{
			ID:       "abc123",
			Warnings: []string{"low disk space"},
		})
		cli := newTestClient(t, handler)

		result, err := cli.ContainerCreate(context.Background(), dockerengine.ContainerCreateOptions{
			Config: &container.Config{
				Image: "alpine:3.20",
				Cmd:   []string{"echo", "hello"},
			},
			HostConfig: &container.HostConfig{AutoRemove: true},
			Name:       "worker-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "abc123", result.ID)
		assert.Equal(t, []string{"low disk space"}, result.Warnings)

		assert.Equal(t, http.MethodPost, recorded().Method)
		assert.Equal(t, "/v1.52/containers/create", recorded().Path)
		assert.Equal(t, "worker-1", recorded().Query.Get("name"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(recorded().Body, &body))
		assert.Equal(t, "alpine:3.20", body["Image"])
		hostConfig, ok := body["HostConfig"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, hostConfig["AutoRemove"])
	})

	t.Run("passes the platform when the version allows it", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusCreated, dockerengine.ContainerCreateResult{ID: "abc123"})
		cli := newTestClient(t, handler)

		_, err := cli.ContainerCreate(context.Background(), dockerengine.ContainerCreateOptions{
			Config:   &container.Config{Image: "alpine"},
			Platform: &ocispec.Platform{OS: "linux", Architecture: "arm64", Variant: "v8"},
		})
		require.NoError(t, err)
		assert.Equal(t, "linux/arm64/v8", recorded().Query.Get("platform"))
	})

	t.Run("refuses the platform on an older api", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusCreated, dockerengine.ContainerCreateResult{ID: "abc123"})
		cli := newTestClient(t, handler, dockerengine.WithVersion("1.40"))

		_, err := cli.ContainerCreate(context.Background(), dockerengine.ContainerCreateOptions{
			Config:   &container.Config{Image: "alpine"},
			Platform: &ocispec.Platform{OS: "linux", Architecture: "amd64"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires API 1.41")
		assert.Empty(t, recorded().Method, "no request should reach the daemon")
	})

	t.Run("requires a container config", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		_, err := cli.ContainerCreate(context.Background(), dockerengine.ContainerCreateOptions{Name: "worker-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no container config")
	})
}

// TestContainerLifecycle tests the start, stop, restart, kill, pause,
// rename, and remove routes
func TestContainerLifecycle(t *testing.T) {
	t.Run("starts a container", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusNoContent, nil)
		cli := newTestClient(t, handler)

		_, err := cli.ContainerStart(context.Background(), "abc123", dockerengine.ContainerStartOptions{DetachKeys: "ctrl-p,ctrl-q"})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, recorded().Method)
		assert.Equal(t, "/v1.52/containers/abc123/start", recorded().Path)
		assert.Equal(t, "ctrl-p,ctrl-q", recorded().Query.Get("detachKeys"))
	})

	t.Run("stops a container with a deadline and signal", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusNoContent, nil)
		cli := newTestClient(t, handler)

		timeout := 10
		_, err := cli.ContainerStop(context.Background(), "abc123", dockerengine.ContainerStopOptions{
			Signal:  "SIGTERM",
			Timeout: &timeout,
		})
		require.NoError(t, err)
		assert.Equal(t, "/v1.52/containers/abc123/stop", recorded().Path)
		assert.Equal(t, "10", recorded().Query.Get("t"))
		assert.Equal(t, "SIGTERM", recorded().Query.Get("signal"))
	})

	t.Run("omits the deadline when none is set", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusNoContent, nil)
		cli := newTestClient(t, handler)

		_, err := cli.ContainerStop(context.Background(), "abc123", dockerengine.ContainerStopOptions{})
		require.NoError(t, err)
		assert.False(t, recorded().Query.Has("t"))
		assert.False(t, recorded().Query.Has("signal"))
	})

	t.Run("restarts a container", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusNoContent, nil)
		cli := newTestClient(t, handler)

		timeout := 3
		_, err := cli.ContainerRestart(context.Background(), "abc123", dockerengine.ContainerRestartOptions{Timeout: &timeout})
		require.NoError(t, err)
		assert.Equal(t, "/v1.52/containers/abc123/restart", recorded().Path)
		assert.Equal(t, "3", recorded().Query.Get("t"))
	})

	t.Run("kills a container with a signal", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusNoContent, nil)
		cli := newTestClient(t, handler)

		_, err := cli.ContainerKill(context.Background(), "abc123", dockerengine.ContainerKillOptions{Signal: "SIGUSR1"})
		require.NoError(t, err)
		assert.Equal(t, "/v1.52/containers/abc123/kill", recorded().Path)
		assert.Equal(t, "SIGUSR1", recorded().Query.Get("signal"))
	})

	t.Run("pauses and unpauses a container", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusNoContent, nil)
		cli := newTestClient(t, handler)

		_, err := cli.ContainerPause(context.Background(), "abc123", dockerengine.ContainerPauseOptions{})
		require.NoError(t, err)
		assert.Equal(t, "/v1.52/containers/abc123/pause", recorded().Path)

		_, err = cli.ContainerUnpause(context.Background(), "abc123", dockerengine.ContainerUnpauseOptions{})
		require.NoError(t, err)
		assert.Equal(t, "/v1.52/containers/abc123/unpause", recorded().Path)
	})

	t.Run("renames a container", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusNoContent, nil)
		cli := newTestClient(t, handler)

		_, err := cli.ContainerRename(context.Background(), "abc123", dockerengine.ContainerRenameOptions{Name: "worker-2"})
		require.NoError(t, err)
		assert.Equal(t, "/v1.52/containers/abc123/rename", recorded().Path)
		assert.Equal(t, "worker-2", recorded().Query.Get("name"))
	})

	t.Run("removes a container and its volumes", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusNoContent, nil)
		cli := newTestClient(t, handler)

		_, err := cli.ContainerRemove(context.Background(), "abc123", dockerengine.ContainerRemoveOptions{
			Force:         true,
			RemoveVolumes: true,
		})
		require.NoError(t, err)
		assert.Equal(t, http.MethodDelete, recorded().Method)
		assert.Equal(t, "/v1.52/containers/abc123", recorded().Path)
		assert.Equal(t, "1", recorded().Query.Get("force"))
		assert.Equal(t, "1", recorded().Query.Get("v"))
		assert.False(t, recorded().Query.Has("link"))
	})
}

// TestContainerWait tests waiting on container state changes
func TestContainerWait(t *testing.T) {
	t.Run("delivers the exit report", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusOK, container.WaitResponse{StatusCode: 137})
		cli := newTestClient(t, handler)

		wait := cli.ContainerWait(context.Background(), "abc123", dockerengine.ContainerWaitOptions{
			Condition: container.WaitConditionNotRunning,
		})

		select {
		case res := <-wait.Result:
			assert.Equal(t, int64(137), res.StatusCode)
		case err := <-wait.Error:
			t.Fatalf("expected an exit report, got error: %s", err)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for the exit report")
		}
		assert.Equal(t, "/v1.52/containers/abc123/wait", recorded().Path)
		assert.Equal(t, "not-running", recorded().Query.Get("condition"))
	})

	t.Run("delivers a daemon refusal on the error channel", func(t *testing.T) {
		_, handler := recordingHandler(t, http.StatusNotFound, map[string]string{"message": "No such container: nope"})
		cli := newTestClient(t, handler)

		wait := cli.ContainerWait(context.Background(), "nope", dockerengine.ContainerWaitOptions{})

		select {
		case res := <-wait.Result:
			t.Fatalf("expected an error, got exit report: %+v", res)
		case err := <-wait.Error:
			assert.True(t, dockerengine.IsErrNotFound(err))
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for the error")
		}
	})

	t.Run("delivers a malformed reply on the error channel", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"StatusCode":`))
		}))

		wait := cli.ContainerWait(context.Background(), "abc123", dockerengine.ContainerWaitOptions{})

		select {
		case err := <-wait.Error:
			assert.ErrorIs(t, err, dockerengine.ErrMalformedResponse)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for the error")
		}
	})

	t.Run("registers the wait before returning", func(t *testing.T) {
		registered := make(chan struct{})
		release := make(chan struct{})
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(registered)
			<-release
			writeJSON(t, w, http.StatusOK, container.WaitResponse{StatusCode: 0})
		}))

		done := make(chan dockerengine.ContainerWaitResult)
		go func() {
			done <- cli.ContainerWait(context.Background(), "abc123", dockerengine.ContainerWaitOptions{})
		}()

		select {
		case <-registered:
		case <-time.After(5 * time.Second):
			t.Fatal("wait request never reached the daemon")
		}
		close(release)

		wait := <-done
		select {
		case res := <-wait.Result:
			assert.Equal(t, int64(0), res.StatusCode)
		case err := <-wait.Error:
			t.Fatalf("expected an exit report, got error: %s", err)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for the exit report")
		}
	})
}

// TestContainerQueries tests the read-only container routes
func TestContainerQueries(t *testing.T) {
	t.Run("lists containers with filters", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusOK, []container.Summary{
			{ID: "abc123", Image: "alpine:3.20"},
			{ID: "def456", Image: "redis:7"},
		})
		cli := newTestClient(t, handler)

		result, err := cli.ContainerList(context.Background(), dockerengine.ContainerListOptions{
			All:     true,
			Limit:   5,
			Filters: filters.NewArgs(filters.Arg("label", "job=batch")),
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "abc123", result.Items[0].ID)

		assert.Equal(t, "/v1.52/containers/json", recorded().Path)
		assert.Equal(t, "1", recorded().Query.Get("all"))
		assert.Equal(t, "5", recorded().Query.Get("limit"))
		assert.JSONEq(t, `{"label":{"job=batch":true}}`, recorded().Query.Get("filters"))
	})

	t.Run("inspects a container with sizes", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusOK, map[string]any{
			"Id":    "abc123",
			"Name":  "/worker-1",
			"State": map[string]any{"Running": true},
		})
		cli := newTestClient(t, handler)

		result, err := cli.ContainerInspect(context.Background(), "abc123", dockerengine.ContainerInspectOptions{Size: true})
		require.NoError(t, err)
		assert.Equal(t, "abc123", result.ID)
		assert.Equal(t, "/worker-1", result.Name)
		assert.True(t, result.State.Running)

		assert.Equal(t, "/v1.52/containers/abc123/json", recorded().Path)
		assert.Equal(t, "1", recorded().Query.Get("size"))
	})

	t.Run("lists processes with ps arguments", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusOK, container.TopResponse{
			Titles:    []string{"PID", "CMD"},
			Processes: [][]string{{"1", "sleep 600"}},
		})
		cli := newTestClient(t, handler)

		result, err := cli.ContainerTop(context.Background(), "abc123", dockerengine.ContainerTopOptions{
			Arguments: []string{"-o", "pid,cmd"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"PID", "CMD"}, result.Titles)

		assert.Equal(t, "/v1.52/containers/abc123/top", recorded().Path)
		assert.Equal(t, "-o pid,cmd", recorded().Query.Get("ps_args"))
	})

	t.Run("reports filesystem changes", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusOK, []container.FilesystemChange{
			{Path: "/tmp/scratch", Kind: container.ChangeAdd},
		})
		cli := newTestClient(t, handler)

		result, err := cli.ContainerDiff(context.Background(), "abc123", dockerengine.ContainerDiffOptions{})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "/tmp/scratch", result.Items[0].Path)
		assert.Equal(t, "/v1.52/containers/abc123/changes", recorded().Path)
	})
}

// TestContainerLogs tests fetching container logs
func TestContainerLogs(t *testing.T) {
	t.Run("maps the selection onto the query", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			assert.Equal(t, "1", query.Get("stdout"))
			assert.Equal(t, "1", query.Get("stderr"))
			assert.Equal(t, "2024-01-01T00:00:00Z", query.Get("since"))
			assert.Equal(t, "1", query.Get("timestamps"))
			assert.Equal(t, "1", query.Get("follow"))
			assert.Equal(t, "100", query.Get("tail"))
			assert.False(t, query.Has("until"))
			w.Header().Set("Content-Type", dockerengine.MediaTypeRawStream)
			_, _ = w.Write([]byte("plain output"))
		}))

		logs, err := cli.ContainerLogs(context.Background(), "abc123", dockerengine.ContainerLogsOptions{
			ShowStdout: true,
			ShowStderr: true,
			Since:      "2024-01-01T00:00:00Z",
			Timestamps: true,
			Follow:     true,
			Tail:       "100",
		})
		require.NoError(t, err)
		defer logs.Body.Close()

		assert.False(t, logs.Body.Multiplexed())
		output, err := io.ReadAll(logs.Body)
		require.NoError(t, err)
		assert.Equal(t, "plain output", string(output))
	})

	t.Run("streams multiplexed logs through the demultiplexer", func(t *testing.T) {
		cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", dockerengine.MediaTypeMultiplexedStream)
			_, _ = stdstream.NewWriter(w, stdstream.Stdout).Write([]byte("build ok\n"))
			_, _ = stdstream.NewWriter(w, stdstream.Stderr).Write([]byte("warning: cache miss\n"))
		}))

		logs, err := cli.ContainerLogs(context.Background(), "abc123", dockerengine.ContainerLogsOptions{
			ShowStdout: true,
			ShowStderr: true,
		})
		require.NoError(t, err)
		defer logs.Body.Close()

		require.True(t, logs.Body.Multiplexed())
		var stdout, stderr bytes.Buffer
		_, err = stdstream.Copy(&stdout, &stderr, logs.Body)
		require.NoError(t, err)
		assert.Equal(t, "build ok\n", stdout.String())
		assert.Equal(t, "warning: cache miss\n", stderr.String())
	})

	t.Run("fails when the container does not exist", func(t *testing.T) {
		_, handler := recordingHandler(t, http.StatusNotFound, map[string]string{"message": "No such container: nope"})
		cli := newTestClient(t, handler)

		_, err := cli.ContainerLogs(context.Background(), "nope", dockerengine.ContainerLogsOptions{ShowStdout: true})
		require.Error(t, err)
		assert.True(t, dockerengine.IsErrNotFound(err))
	})
}

// TestContainerResize tests resizing a container's TTY
func TestContainerResize(t *testing.T) {
	t.Run("sends the new dimensions", func(t *testing.T) {
		recorded, handler := recordingHandler(t, http.StatusOK, nil)
		cli := newTestClient(t, handler)

		_, err := cli.ContainerResize(context.Background(), "abc123", dockerengine.ContainerResizeOptions{Height: 50, Width: 120})
		require.NoError(t, err)
		assert.Equal(t, "/v1.52/containers/abc123/resize", recorded().Path)
		assert.Equal(t, "50", recorded().Query.Get("h"))
		assert.Equal(t, "120", recorded().Query.Get("w"))
	})
}
