package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.yaml"), []byte("files:\n  - base.yaml\n  - override.yaml\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("logging:\n  level: info\nrepl:\n  host: 127.0.0.1\n"), 0644))
	return dir
}

func TestNewConfig(t *testing.T) {
	t.Run("loads config from directory via env var", func(t *testing.T) {
		dir := writeConfigDir(t)
		t.Setenv("BRIDGE_CONFIG_DIR", dir)

		provider, err := NewConfig()
		require.NoError(t, err)
		require.NotNil(t, provider)

		assert.Equal(t, "config", provider.Name())
		level := provider.Get("logging.level")
		assert.True(t, level.HasValue())
		assert.Equal(t, "info", level.String())

		// override.yaml is listed in meta.yaml but absent; it is skipped.
		host := provider.Get("repl.host")
		assert.Equal(t, "127.0.0.1", host.String())
	})

	t.Run("fails when config directory doesn't exist", func(t *testing.T) {
		t.Setenv("BRIDGE_CONFIG_DIR", "/nonexistent/path")

		provider, err := NewConfig()
		assert.Error(t, err)
		assert.Nil(t, provider)
	})

	t.Run("fails when no listed file exists", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.yaml"), []byte("files:\n  - missing.yaml\n"), 0644))
		t.Setenv("BRIDGE_CONFIG_DIR", dir)

		_, err := NewConfig()
		assert.Error(t, err)
	})
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
