package confrec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specPaths(specs []FlagSpec) []string {
	paths := make([]string, len(specs))
	for i, s := range specs {
		paths[i] = s.Path
	}
	return paths
}

func TestBuildSpecs(t *testing.T) {
	t.Run("leaf paths in declaration order", func(t *testing.T) {
		specs, err := BuildSpecs(defaultApp(), "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"name", "debug",
			"server.host", "server.port", "server.tls",
			"pools.0.size", "pools.0.weight",
			"pools.1.size", "pools.1.weight",
			"tags", "limits", "retries",
		}, specPaths(specs))
	})

	t.Run("namespace prefixes every path", func(t *testing.T) {
		specs, err := BuildSpecs(&serverConfig{}, "srv")
		require.NoError(t, err)
		assert.Equal(t, []string{"srv.host", "srv.port", "srv.tls"}, specPaths(specs))
	})

	t.Run("kinds and defaults", func(t *testing.T) {
		cfg := defaultApp()
		specs, err := BuildSpecs(cfg, "")
		require.NoError(t, err)
		byPath := make(map[string]FlagSpec, len(specs))
		for _, s := range specs {
			byPath[s.Path] = s
		}

		assert.Equal(t, FlagString, byPath["name"].Kind)
		assert.Equal(t, "app", byPath["name"].Default)
		assert.Equal(t, FlagBool, byPath["debug"].Kind)
		assert.Equal(t, FlagInt, byPath["server.port"].Kind)
		assert.Equal(t, int64(8080), byPath["server.port"].Default)
		assert.Equal(t, FlagFloat, byPath["pools.0.weight"].Kind)
		assert.Equal(t, FlagJSON, byPath["tags"].Kind)
		assert.Equal(t, FlagJSON, byPath["limits"].Kind)
		assert.Equal(t, FlagInt, byPath["retries"].Kind)
		assert.Nil(t, byPath["retries"].Default)
		assert.Equal(t, "bind address", byPath["server.host"].Help)
	})

	t.Run("list length fixes the indexed surface", func(t *testing.T) {
		cfg := defaultApp()
		cfg.Pools = cfg.Pools[:1]
		specs, err := BuildSpecs(cfg, "")
		require.NoError(t, err)
		paths := specPaths(specs)
		assert.Contains(t, paths, "pools.0.size")
		assert.NotContains(t, paths, "pools.1.size")
	})

	t.Run("optional nested appears only when set", func(t *testing.T) {
		cfg := defaultApp()
		specs, err := BuildSpecs(cfg, "")
		require.NoError(t, err)
		assert.NotContains(t, specPaths(specs), "backup.host")

		cfg.Backup = &serverConfig{}
		specs, err = BuildSpecs(cfg, "")
		require.NoError(t, err)
		assert.Contains(t, specPaths(specs), "backup.host")
	})

	t.Run("union fields are excluded", func(t *testing.T) {
		h := &unionHost{Storage: &diskConfig{}}
		specs, err := BuildSpecs(h, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"label"}, specPaths(specs))
	})

	t.Run("mandatory propagates", func(t *testing.T) {
		specs, err := BuildSpecs(&jobConfig{}, "")
		require.NoError(t, err)
		require.Len(t, specs, 2)
		assert.Equal(t, "id", specs[0].Path)
		assert.True(t, specs[0].Mandatory)
		assert.Equal(t, FlagString, specs[0].Kind)
	})

	t.Run("cyclic nesting is rejected", func(t *testing.T) {
		c := &cyclicConfig{Next: &cyclicConfig{}}
		_, err := BuildSpecs(c, "")
		assert.ErrorIs(t, err, ErrCyclicSchema)
	})
}

func TestSpecFor(t *testing.T) {
	cfg := defaultApp()

	s, err := SpecFor(cfg, "name")
	require.NoError(t, err)
	assert.Equal(t, FlagSpec{Path: "name", Kind: FlagString, Default: "app", Help: "application name"}, s)

	s, err = SpecFor(cfg, "tags")
	require.NoError(t, err)
	assert.Equal(t, FlagJSON, s.Kind)

	_, err = SpecFor(cfg, "server")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = SpecFor(&unionHost{}, "storage")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = SpecFor(cfg, "nope")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestParseArgs(t *testing.T) {
	t.Run("overrides through dotted and indexed paths", func(t *testing.T) {
		cfg := defaultApp()
		args := []string{
			"--app.server.port=9200",
			"--app.pools.0.size=7",
			"--app.debug",
			`--app.tags=["x"]`,
		}
		require.NoError(t, ParseArgs(cfg, args, "app"))

		assert.Equal(t, 9200, cfg.Server.Port)
		assert.Equal(t, 7, cfg.Pools[0].Size)
		assert.Equal(t, poolConfig{Size: 4, Weight: 0.5}, cfg.Pools[1])
		assert.True(t, cfg.Debug)
		assert.Equal(t, []string{"x"}, cfg.Tags)
		assert.Equal(t, "app", cfg.Name) // untouched
	})

	t.Run("no namespace", func(t *testing.T) {
		cfg := &serverConfig{Host: "localhost", Port: 8080}
		require.NoError(t, ParseArgs(cfg, []string{"--port=81"}, ""))
		assert.Equal(t, 81, cfg.Port)
	})

	t.Run("unparsed flags keep defaults", func(t *testing.T) {
		cfg := defaultApp()
		require.NoError(t, ParseArgs(cfg, nil, "app"))
		assert.True(t, Equal(cfg, defaultApp()))
	})

	t.Run("malformed JSON leaf", func(t *testing.T) {
		cfg := defaultApp()
		err := ParseArgs(cfg, []string{`--app.tags={bad`}, "app")
		assert.ErrorIs(t, err, ErrFlagDecode)
	})

	t.Run("unknown flag", func(t *testing.T) {
		cfg := defaultApp()
		err := ParseArgs(cfg, []string{"--nope=1"}, "app")
		assert.ErrorIs(t, err, ErrFlagDecode)
	})

	t.Run("checker runs after writeback", func(t *testing.T) {
		cfg := &checkedConfig{}
		err := ParseArgs(cfg, []string{"--val_a=-3"}, "")
		assert.ErrorIs(t, err, ErrConstraintViolation)
		assert.Equal(t, 1, cfg.checkCalls)
	})
}

func TestApply(t *testing.T) {
	t.Run("direct value map", func(t *testing.T) {
		cfg := defaultApp()
		err := Apply(cfg, map[string]any{
			"pools.1.weight": 2.5,
			"server.host":    "example.org",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 2.5, cfg.Pools[1].Weight)
		assert.Equal(t, poolConfig{Size: 2, Weight: 1.0}, cfg.Pools[0])
		assert.Equal(t, "example.org", cfg.Server.Host)
	})

	t.Run("unknown path", func(t *testing.T) {
		err := Apply(defaultApp(), map[string]any{"bogus.path": 1}, "")
		assert.ErrorIs(t, err, ErrUnknownPath)
	})

	t.Run("index out of range", func(t *testing.T) {
		err := Apply(defaultApp(), map[string]any{"pools.5.size": 1}, "")
		assert.ErrorIs(t, err, ErrUnknownPath)
	})

	t.Run("path outside namespace", func(t *testing.T) {
		err := Apply(defaultApp(), map[string]any{"other.name": "x"}, "app")
		assert.ErrorIs(t, err, ErrUnknownPath)
	})

	t.Run("JSON leaf needs a string value", func(t *testing.T) {
		err := Apply(defaultApp(), map[string]any{"tags": 1}, "")
		assert.ErrorIs(t, err, ErrFlagDecode)
	})
}

func TestNewFlagSet(t *testing.T) {
	fs, err := NewFlagSet("test", defaultApp(), "app")
	require.NoError(t, err)

	f := fs.Lookup("app.server.port")
	require.NotNil(t, f)
	assert.Equal(t, "8080", f.DefValue)
	assert.Equal(t, "listen port", f.Usage)

	f = fs.Lookup("app.tags")
	require.NotNil(t, f)
	assert.Equal(t, `["dev","local"]`, f.DefValue)

	assert.Nil(t, fs.Lookup("app.storage"))
}
