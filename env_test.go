package confrec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnv(t *testing.T) {
	t.Run("overrides by transformed path", func(t *testing.T) {
		t.Setenv("APP_SERVER_PORT", "9001")
		t.Setenv("APP_DEBUG", "true")
		t.Setenv("APP_NAME", "from-env")
		t.Setenv("APP_TAGS", `["a","b"]`)

		cfg := defaultApp()
		require.NoError(t, ApplyEnv(cfg, "APP_"))
		assert.Equal(t, 9001, cfg.Server.Port)
		assert.True(t, cfg.Debug)
		assert.Equal(t, "from-env", cfg.Name)
		assert.Equal(t, []string{"a", "b"}, cfg.Tags)
		assert.Equal(t, "localhost", cfg.Server.Host) // not set, untouched
	})

	t.Run("indexed list paths", func(t *testing.T) {
		t.Setenv("APP_POOLS_0_SIZE", "11")

		cfg := defaultApp()
		require.NoError(t, ApplyEnv(cfg, "APP_"))
		assert.Equal(t, 11, cfg.Pools[0].Size)
		assert.Equal(t, 4, cfg.Pools[1].Size)
	})

	t.Run("no variables set is a no-op", func(t *testing.T) {
		cfg := defaultApp()
		require.NoError(t, ApplyEnv(cfg, "UNSET_PREFIX_"))
		assert.True(t, Equal(cfg, defaultApp()))
	})

	t.Run("unparsable values", func(t *testing.T) {
		t.Setenv("APP_SERVER_PORT", "eighty")
		err := ApplyEnv(defaultApp(), "APP_")
		assert.ErrorIs(t, err, ErrTypeMismatch)

		t.Setenv("APP_SERVER_PORT", "80")
		t.Setenv("APP_DEBUG", "maybe")
		err = ApplyEnv(defaultApp(), "APP_")
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("custom transform", func(t *testing.T) {
		t.Setenv("CUSTOM-server-port", "7070")

		cfg := defaultApp()
		transform := func(path string) string {
			return "CUSTOM-" + strings.ReplaceAll(path, ".", "-")
		}
		require.NoError(t, ApplyEnvTransform(cfg, transform))
		assert.Equal(t, 7070, cfg.Server.Port)
	})

	t.Run("checker runs after overrides", func(t *testing.T) {
		t.Setenv("CHK_VAL_A", "-2")
		cfg := &checkedConfig{}
		err := ApplyEnv(cfg, "CHK_")
		assert.ErrorIs(t, err, ErrConstraintViolation)
	})
}
