// Package testsupport provides shared testcontainers-go fixtures for
// integration tests that need a live SurrealDB instance.
package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SurrealDBContainer wraps a running SurrealDB testcontainer.
type SurrealDBContainer struct {
	container testcontainers.Container
	host      string
	port      string
}

// Address returns the ws:// RPC address the surrealdb.go client connects to.
func (c *SurrealDBContainer) Address() string {
	return fmt.Sprintf("ws://%s:%s/rpc", c.host, c.port)
}

// StartSurrealDB launches a disposable SurrealDB container for the duration
// of the test and registers cleanup via t.Cleanup.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "surrealdb/surrealdb:v2",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"start", "--user", "root", "--pass", "root", "memory"},
		WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start surrealdb container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "8000")
	if err != nil {
		t.Fatalf("get mapped port: %v", err)
	}

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	return &SurrealDBContainer{container: container, host: host, port: port.Port()}
}
