package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DefaultScreenIDs, cfg.Screens.IDs)
	assert.Equal(t, "database", cfg.Screens.Backend)
	assert.Equal(t, "database", cfg.Catalog.Backend)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Interval)
	assert.Equal(t, "screen:update", cfg.Redis.Channel)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 3600, cfg.Push.TTL)
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "screen id is not a uuid",
			body: "screens:\n  ids: [\"tv-1\"]\n",
		},
		{
			name: "duplicate screen id",
			body: "screens:\n  ids:\n    - 00000000-0000-0000-0000-000000000001\n    - 00000000-0000-0000-0000-000000000001\n",
		},
		{
			name: "upstream backend without url",
			body: "screens:\n  backend: upstream\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
