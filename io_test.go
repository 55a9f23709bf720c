package confrec

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadJSON(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		orig := defaultApp()
		require.NoError(t, SaveJSON(orig, path))

		fresh := &appConfig{}
		require.NoError(t, LoadJSON(fresh, path))
		assert.True(t, Equal(orig, fresh))
	})

	t.Run("output is indented and newline-terminated", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, SaveJSON(defaultApp(), path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		s := string(data)
		assert.True(t, strings.HasPrefix(s, "{\n"))
		assert.True(t, strings.HasSuffix(s, "\n"))
		assert.Contains(t, s, `"host": "localhost"`)
	})

	t.Run("save creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deep", "nested", "config.json")
		require.NoError(t, SaveJSON(defaultApp(), path))
		_, err := os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("save leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, SaveJSON(defaultApp(), filepath.Join(dir, "config.json")))
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "config.json", entries[0].Name())
	})

	t.Run("load applies partial updates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "partial.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": 9100}}`), 0644))

		cfg := defaultApp()
		require.NoError(t, LoadJSON(cfg, path))
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, "app", cfg.Name)
	})

	t.Run("missing file", func(t *testing.T) {
		err := LoadJSON(defaultApp(), filepath.Join(t.TempDir(), "absent.json"))
		assert.ErrorIs(t, err, ErrSerialization)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name": `), 0644))
		err := LoadJSON(defaultApp(), path)
		assert.ErrorIs(t, err, ErrSerialization)
	})
}

func TestSaveLoadTOML(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		orig := defaultApp()
		require.NoError(t, SaveTOML(orig, path))

		fresh := &appConfig{}
		require.NoError(t, LoadTOML(fresh, path))
		assert.True(t, Equal(orig, fresh))
	})

	t.Run("null entries are omitted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, SaveTOML(defaultApp(), path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		s := string(data)
		assert.NotContains(t, s, "backup")
		assert.NotContains(t, s, "retries")
		assert.Contains(t, s, "port = 8080")
	})

	t.Run("omitted keys leave fields untouched", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, SaveTOML(defaultApp(), path))

		two := 2
		cfg := defaultApp()
		cfg.Retries = &two
		require.NoError(t, LoadTOML(cfg, path))
		require.NotNil(t, cfg.Retries)
		assert.Equal(t, 2, *cfg.Retries)
	})

	t.Run("hand-written file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := "name = \"from-toml\"\n\n[server]\nport = 8443\ntls = true\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg := defaultApp()
		require.NoError(t, LoadTOML(cfg, path))
		assert.Equal(t, "from-toml", cfg.Name)
		assert.Equal(t, 8443, cfg.Server.Port)
		assert.True(t, cfg.Server.TLS)
		assert.Equal(t, "localhost", cfg.Server.Host)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.toml")
		require.NoError(t, os.WriteFile(path, []byte("name = \n"), 0644))
		err := LoadTOML(defaultApp(), path)
		assert.ErrorIs(t, err, ErrSerialization)
	})
}
