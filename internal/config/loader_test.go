package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketwalk/pkg/walker"
)

// isolate keeps a developer's own config file or environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
}

func TestLoadFile_Defaults(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)
		cfg, err := LoadFile(ctx, "")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
		assert.True(t, cfg.Metrics.Enabled)
		assert.False(t, cfg.Tracing.Enabled)

		assert.Equal(t, "s3", cfg.Store.Provider)
		assert.Equal(t, 1000, cfg.Store.MaxKeys)
		assert.Equal(t, 32, cfg.Store.MaxOpen)
		assert.Equal(t, walker.DefaultConfig(), cfg.Walk.WalkerConfig())
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"walk": map[string]any{
				"concurrency":  16,
				"call_timeout": "5s",
			},
		}

		cfg, err := LoadFile(ctx, "", overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 16, cfg.Walk.Concurrency)
		assert.Equal(t, 5*time.Second, cfg.Walk.CallTimeout)

		// Siblings of overridden keys keep their defaults.
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 4, cfg.Walk.MaxAttempts)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("BUCKETWALK_PORT", "3000")
		t.Setenv("BUCKETWALK_LOG_LEVEL", "warn")
		t.Setenv("BUCKETWALK_METRICS_ENABLED", "false")
		t.Setenv("BUCKETWALK_WALK_MAX_PREFIXES", "500")
		t.Setenv("BUCKETWALK_ENDPOINT", "http://localhost:9000")

		cfg, err := LoadFile(ctx, "")
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 500, cfg.Walk.MaxPrefixes)
		assert.Equal(t, "http://localhost:9000", cfg.Store.Endpoint)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)
		t.Setenv("BUCKETWALK_PORT", "4000")

		cfg, err := LoadFile(ctx, "", map[string]any{
			"server": map[string]any{"port": 5000},
		})
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("ExplicitFile", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
store:
  provider: minio
  endpoint: http://minio:9000
walk:
  concurrency: 8
  max_backoff: 3s
logging:
  level: debug
`), 0o644))

		cfg, err := LoadFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "minio", cfg.Store.Provider)
		assert.Equal(t, "http://minio:9000", cfg.Store.Endpoint)
		assert.Equal(t, 8, cfg.Walk.Concurrency)
		assert.Equal(t, 3*time.Second, cfg.Walk.MaxBackoff)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("EnvBeatsFile", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o644))
		t.Setenv("BUCKETWALK_SERVER_PORT", "7100")

		cfg, err := LoadFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 7100, cfg.Server.Port)
	})

	t.Run("DiscoveredInWorkingDirectory", func(t *testing.T) {
		isolate(t)
		require.NoError(t, os.WriteFile("bucketwalk.yaml", []byte("store:\n  provider: file\n  root_dir: /data\n"), 0o644))

		cfg, err := LoadFile(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "file", cfg.Store.Provider)
		assert.Equal(t, "/data", cfg.Store.RootDir)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolate(t)
		_, err := LoadFile(ctx, filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("BadDuration", func(t *testing.T) {
		isolate(t)
		t.Setenv("BUCKETWALK_CALL_TIMEOUT", "forever")
		_, err := LoadFile(ctx, "")
		assert.Error(t, err)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := LoadFile(cctx, "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadFile_Independent(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	first, err := LoadFile(ctx, "", map[string]any{"server": map[string]any{"port": 6123}})
	require.NoError(t, err)
	second, err := LoadFile(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 6123, first.Server.Port)
	assert.Equal(t, 8080, second.Server.Port)
	assert.NotSame(t, first, second)
}

func TestEnvSpecsPrefixHandling(t *testing.T) {
	specs := getEnvSpecs()
	require.NotEmpty(t, specs)

	names := map[string]bool{}
	for _, spec := range specs {
		assert.Contains(t, spec.Name, EnvPrefix+"_")
		assert.NotEmpty(t, spec.Path, "env var %s should have a path", spec.Name)
		names[spec.Name] = true
	}
	assert.True(t, names["BUCKETWALK_LOG_LEVEL"])
	assert.True(t, names["BUCKETWALK_PORT"])
	assert.True(t, names["BUCKETWALK_HOST"])
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	})
	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "e": true}, got)
}
