//go:build windows

package dockerengine

// DefaultHost is the daemon endpoint used when no explicit host is
// configured and the DOCKER_HOST environment variable is unset.
const DefaultHost = "npipe:////./pipe/docker_engine"
