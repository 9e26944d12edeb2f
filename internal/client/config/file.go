package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. TOKENKEEPER_CLI_SERVER_URL.
const EnvPrefix = "TOKENKEEPER_CLI"

func parseFile(cfg *Config, path string) error {
	v := viper.New()
	v.SetDefault("server_url", cfg.ServerURL)
	v.SetDefault("request_timeout", cfg.RequestTimeout)

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
