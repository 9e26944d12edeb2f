package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. TOKENKEEPER_SECRET_KEY.
const EnvPrefix = "TOKENKEEPER"

// parseFile overlays cfg with values from an optional JSON or YAML file and
// then from TOKENKEEPER_* environment variables. Keys missing from both keep
// the value already in cfg. An empty path skips the file.
//
// Durations may be written as strings such as "15m" or "168h".
func parseFile(cfg *Config, path string) error {
	v := viper.New()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("http_addr", c.HTTPAddr)
	v.SetDefault("grpc_addr", c.GRPCAddr)
	v.SetDefault("database_dsn", c.DatabaseDSN)
	v.SetDefault("storage", c.Storage)
	v.SetDefault("redis_addr", c.RedisAddr)
	v.SetDefault("redis_password", c.RedisPassword)
	v.SetDefault("redis_db", c.RedisDB)
	v.SetDefault("secret_key", c.SecretKey)
	v.SetDefault("issuer", c.Issuer)
	v.SetDefault("audience", c.Audience)
	v.SetDefault("access_token_validity_duration", c.AccessTokenValidityDuration)
	v.SetDefault("refresh_token_validity_duration", c.RefreshTokenValidityDuration)
	v.SetDefault("refresh_grace_duration", c.RefreshGraceDuration)
	v.SetDefault("failure_delay_min", c.FailureDelayMin)
	v.SetDefault("failure_delay_max", c.FailureDelayMax)
	v.SetDefault("log_format", c.LogFormat)
	v.SetDefault("log_level", c.LogLevel)
}
