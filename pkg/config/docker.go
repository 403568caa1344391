package config

import (
	"os"
	"sync"
)

var (
	containerOnce sync.Once
	containerized bool
)

// IsRunningInDocker reports whether the engine runs inside a container,
// detected by the /.dockerenv marker. Cached after the first call.
func IsRunningInDocker() bool {
	containerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		containerized = err == nil
	})
	return containerized
}

// ResolveHostForDocker maps loopback hosts to host.docker.internal when the
// engine itself is containerized, so a database on the host machine stays
// reachable without config changes.
func ResolveHostForDocker(host string) string {
	return resolveHost(host, IsRunningInDocker())
}

func resolveHost(host string, inContainer bool) string {
	if !inContainer {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
