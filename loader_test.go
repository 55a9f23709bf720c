package confrec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader(t *testing.T) {
	t.Run("precedence defaults file env args", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name": "from-file", "server": {"port": 9000}}`), 0644))
		t.Setenv("APP_SERVER_PORT", "9100")
		t.Setenv("APP_SERVER_TLS", "true")

		cfg := &appConfig{}
		err := NewLoader().
			WithDefaults().
			WithFile(path).
			WithEnvPrefix("APP_").
			WithArgs([]string{"--app.server.port=9200"}).
			WithNamespace("app").
			Load(cfg)
		require.NoError(t, err)

		assert.Equal(t, 9200, cfg.Server.Port)      // args beat env and file
		assert.True(t, cfg.Server.TLS)              // env beats file and defaults
		assert.Equal(t, "from-file", cfg.Name)      // file beats defaults
		assert.Equal(t, "localhost", cfg.Server.Host) // default survives
	})

	t.Run("missing file is tolerated", func(t *testing.T) {
		cfg := &serverConfig{}
		err := NewLoader().
			WithDefaults().
			WithFile(filepath.Join(t.TempDir(), "absent.json")).
			Load(cfg)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
	})

	t.Run("malformed file is not tolerated", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))

		err := NewLoader().WithFile(path).Load(&serverConfig{})
		assert.ErrorIs(t, err, ErrSerialization)
	})

	t.Run("toml file by extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("port = 8443\n"), 0644))

		cfg := &serverConfig{}
		err := NewLoader().WithDefaults().WithFile(path).Load(cfg)
		require.NoError(t, err)
		assert.Equal(t, 8443, cfg.Port)
		assert.Equal(t, "localhost", cfg.Host)
	})

	t.Run("validators run last", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"port": 0}`), 0644))

		err := NewLoader().
			WithDefaults().
			WithFile(path).
			WithValidator(CheckRecord).
			Load(&serverConfig{})
		assert.ErrorIs(t, err, ErrConstraintViolation)
	})

	t.Run("validators run in order", func(t *testing.T) {
		var order []string
		err := NewLoader().
			WithValidator(func(any) error { order = append(order, "first"); return nil }).
			WithValidator(func(any) error { order = append(order, "second"); return nil }).
			Load(&serverConfig{})
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("mandatory satisfied through the pipeline", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "job.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"id": "run-42"}`), 0644))

		cfg := &jobConfig{}
		err := NewLoader().
			WithDefaults().
			WithFile(path).
			WithValidator(CheckRecord).
			Load(cfg)
		require.NoError(t, err)
		require.NotNil(t, cfg.ID)
		assert.Equal(t, "run-42", *cfg.ID)
		assert.Equal(t, 5, cfg.Prio)
	})

	t.Run("mandatory missing fails validation", func(t *testing.T) {
		err := NewLoader().
			WithDefaults().
			WithValidator(CheckRecord).
			Load(&jobConfig{})
		assert.ErrorIs(t, err, ErrConstraintViolation)
	})
}
