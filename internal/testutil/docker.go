package testutil

import (
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// SkipIfNoDocker skips t when no container provider is reachable. The
// testcontainers health check panics when it cannot locate a Docker
// socket at all, so that case is turned into a skip as well.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker unavailable: %v", r)
		}
	}()
	testcontainers.SkipIfProviderIsNotHealthy(t)
}
