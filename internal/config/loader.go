package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/3leaps/bucketwalk/pkg/listing"
	"github.com/3leaps/bucketwalk/pkg/walker"
)

const (
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "BUCKETWALK"

	// ConfigName is the config file base name searched for in the
	// working directory and the user config directory.
	ConfigName = "bucketwalk"
)

// EnvSpec maps a short environment variable onto a config key.
type EnvSpec struct {
	Name string
	Path string
}

// LoadFile builds the configuration from defaults, the config file, the
// environment and overrides, in increasing precedence.
//
// An empty path searches for bucketwalk.{yaml,json,toml} in the working
// directory and the user config directory; a missing file is not an error
// there. An explicit path must exist.
func LoadFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		for _, dir := range getUserConfigPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := walker.DefaultConfig()

	v.SetDefault("store.provider", "s3")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.region", "")
	v.SetDefault("store.profile", "")
	v.SetDefault("store.access_key_id", "")
	v.SetDefault("store.secret_access_key", "")
	v.SetDefault("store.path_style", false)
	v.SetDefault("store.root_dir", "")
	v.SetDefault("store.max_keys", 1000)
	v.SetDefault("store.max_open", listing.DefaultMaxOpen)

	v.SetDefault("walk.concurrency", def.Concurrency)
	v.SetDefault("walk.max_attempts", def.MaxAttempts)
	v.SetDefault("walk.initial_backoff", def.InitialBackoff.String())
	v.SetDefault("walk.max_backoff", def.MaxBackoff.String())
	v.SetDefault("walk.backoff_jitter", def.BackoffJitter)
	v.SetDefault("walk.call_timeout", def.CallTimeout.String())
	v.SetDefault("walk.rate_limit", def.RateLimit)
	v.SetDefault("walk.max_prefixes", def.MaxPrefixes)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.service_name", "bucketwalk")
}

// getEnvSpecs lists short aliases on top of the automatic
// BUCKETWALK_<SECTION>_<KEY> mapping.
func getEnvSpecs() []EnvSpec {
	return []EnvSpec{
		{Name: EnvPrefix + "_HOST", Path: "server.host"},
		{Name: EnvPrefix + "_PORT", Path: "server.port"},
		{Name: EnvPrefix + "_READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: EnvPrefix + "_WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: EnvPrefix + "_SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: EnvPrefix + "_LOG_LEVEL", Path: "logging.level"},
		{Name: EnvPrefix + "_LOG_FORMAT", Path: "logging.format"},
		{Name: EnvPrefix + "_METRICS_ENABLED", Path: "metrics.enabled"},
		{Name: EnvPrefix + "_PROVIDER", Path: "store.provider"},
		{Name: EnvPrefix + "_ENDPOINT", Path: "store.endpoint"},
		{Name: EnvPrefix + "_REGION", Path: "store.region"},
		{Name: EnvPrefix + "_PROFILE", Path: "store.profile"},
		{Name: EnvPrefix + "_ACCESS_KEY_ID", Path: "store.access_key_id"},
		{Name: EnvPrefix + "_SECRET_ACCESS_KEY", Path: "store.secret_access_key"},
		{Name: EnvPrefix + "_CONCURRENCY", Path: "walk.concurrency"},
		{Name: EnvPrefix + "_CALL_TIMEOUT", Path: "walk.call_timeout"},
		{Name: EnvPrefix + "_OTLP_ENDPOINT", Path: "tracing.endpoint"},
	}
}

func getUserConfigPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ConfigName))
	}
	return paths
}

// flatten turns nested override maps into dotted viper keys so each leaf
// overrides individually.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}
