package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MeilisearchConfig holds configuration for Meilisearch testcontainer setup.
type MeilisearchConfig struct {
	// Image is the Docker image to use (default: "getmeili/meilisearch:v1.10")
	Image string
	// MasterKey is the Meilisearch API master key (default: "test-master-key")
	MasterKey string
	// StartupTimeout is the maximum time to wait for Meilisearch to be ready (default: 30s)
	StartupTimeout time.Duration
}

// DefaultMeilisearchConfig returns the default Meilisearch configuration for testing.
func DefaultMeilisearchConfig() MeilisearchConfig {
	return MeilisearchConfig{
		Image:          "getmeili/meilisearch:v1.10",
		MasterKey:      "test-master-key",
		StartupTimeout: 30 * time.Second,
	}
}

// SetupMeilisearch creates a Meilisearch container for integration testing.
//
// Meilisearch is the full-text and faceted search engine backing
// session.GlobalSearchClient. This function starts a Meilisearch container
// using testcontainers-go and returns its HTTP URL, master key, and a
// cleanup function.
//
// Container Configuration:
//   - Image: getmeili/meilisearch:v1.10
//   - Port: 7700/tcp (Meilisearch HTTP API)
//   - Wait Strategy: HTTP health check on /health
//
// Example Usage:
//
//	func TestSearchIntegration(t *testing.T) {
//	    ctx := context.Background()
//	    url, masterKey, cleanup, err := SetupMeilisearch(ctx, t, nil)
//	    require.NoError(t, err)
//	    defer cleanup()
//
//	    client := meilisearch.New(url, meilisearch.WithAPIKey(masterKey))
//	}
func SetupMeilisearch(ctx context.Context, t *testing.T, config *MeilisearchConfig) (string, string, ContainerCleanup, error) {
	if config == nil {
		defaultConfig := DefaultMeilisearchConfig()
		config = &defaultConfig
	}

	req := testcontainers.ContainerRequest{
		Image:        config.Image,
		ExposedPorts: []string{"7700/tcp"},
		Env: map[string]string{
			"MEILI_MASTER_KEY":   config.MasterKey,
			"MEILI_NO_ANALYTICS": "true",
		},
		WaitingFor: wait.ForHTTP("/health").
			WithPort("7700/tcp").
			WithStartupTimeout(config.StartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", "", func() {}, fmt.Errorf("failed to start Meilisearch container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return "", "", func() {}, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "7700")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", "", func() {}, fmt.Errorf("failed to get mapped port: %w", err)
	}

	url := getConnectionURL("http", host, port.Port(), "")
	cleanup := createCleanupFunc(ctx, container, "Meilisearch")

	return url, config.MasterKey, cleanup, nil
}
