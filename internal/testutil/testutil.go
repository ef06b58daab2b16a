// Package testutil starts shared backend containers for integration tests.
// Containers are started once per test binary and terminated by Cleanup,
// which packages call from TestMain.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

var (
	mu         sync.Mutex
	containers []testcontainers.Container
)

func track(c testcontainers.Container) {
	mu.Lock()
	containers = append(containers, c)
	mu.Unlock()
}

// SkipIfShort skips container-backed tests under -short.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
}

// Cleanup terminates every container started by this package.
func Cleanup() {
	mu.Lock()
	defer mu.Unlock()
	for _, c := range containers {
		_ = c.Terminate(context.Background())
	}
	containers = nil
}
