package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("worldbuilder", "", nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.AuthGuard.Enabled)
	assert.Equal(t, 300, cfg.RateLimit.PerMinute)
}

func TestLoadMissingYAMLFileIsNotAnError(t *testing.T) {
	cfg, err := Load("worldbuilder", filepath.Join(t.TempDir(), "does-not-exist.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadYAMLFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\nqueue_capacity_per_channel: 512\n"), 0o600))

	cfg, err := Load("worldbuilder", path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 512, cfg.QueueCapacityPerChannel)
}

func TestHostSettingsOverrideYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\n"), 0o600))

	hostAddr := ":7070"
	cfg, err := Load("worldbuilder", path, &HostSettings{HTTPAddr: &hostAddr})
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
}

func TestEnvOverridesEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\n"), 0o600))
	hostAddr := ":7070"

	t.Setenv("AGENT_EXT_AUTH_ENABLED", "false")
	t.Setenv("AGENT_EXT_AUTH_TOKEN", "global-token")
	t.Setenv("AGENT_WORLDBUILDER_AUTH_TOKEN", "builder-token")
	t.Setenv("HTTP_ADDR", ":6060")

	cfg, err := Load("worldbuilder", path, &HostSettings{HTTPAddr: &hostAddr})
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.HTTPAddr)
	assert.False(t, cfg.AuthGuard.Enabled)
	assert.Equal(t, "builder-token", cfg.AuthGuard.BearerToken)
}

func TestEnvAuthTokenFallsBackToGlobalWhenNoServiceOverride(t *testing.T) {
	t.Setenv("AGENT_EXT_AUTH_TOKEN", "global-token")

	cfg, err := Load("worldviewer", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "global-token", cfg.AuthGuard.BearerToken)
}

func TestProxyEnvPopulatesKnownServices(t *testing.T) {
	t.Setenv("AGENT_WORLDBUILDER_BASE_URL", "http://localhost:8081")
	t.Setenv("AGENT_WORLDVIEWER_BASE_URL", "http://localhost:8082")

	cfg, err := Load("mcpproxy", "", nil)
	require.NoError(t, err)
	require.Contains(t, cfg.Proxies, "worldbuilder")
	assert.Equal(t, "http://localhost:8081", cfg.Proxies["worldbuilder"].BaseURL)
	require.Contains(t, cfg.Proxies, "worldviewer")
	assert.NotContains(t, cfg.Proxies, "worldsurveyor")
}
