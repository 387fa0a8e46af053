// Package testutil opens sqlite schema servers for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/salonhub/internal/database"
)

// MustOpenServer returns a sqlite schema server rooted in a temporary directory.
func MustOpenServer(t *testing.T) database.Server {
	t.Helper()

	server, err := database.NewServer(database.Config{Driver: "sqlite", Path: t.TempDir()})
	require.NoError(t, err)
	return server
}

// MustOpenRegistry returns a Registry over a fresh sqlite server with the
// given schemas already created. The registry is closed via t.Cleanup.
func MustOpenRegistry(t *testing.T, schemas []string, opts ...database.RegistryOption) *database.Registry {
	t.Helper()

	server := MustOpenServer(t)
	for _, schema := range schemas {
		require.NoError(t, server.CreateSchema(context.Background(), schema))
	}

	registry, err := database.NewRegistry(server, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = registry.Close()
	})
	return registry
}
