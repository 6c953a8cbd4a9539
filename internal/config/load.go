package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over file values
// and use the MUSE_ prefix with underscores for nesting, e.g.
// MUSE_SERVER_PORT or MUSE_PROVIDERS_OPENROUTER_API_KEY.
// Returns a populated Config struct or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("MUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not register keys on its own; bind the ones we
	// unmarshal so env-only deployments work without a config file.
	for _, key := range []string{
		"server.port",
		"server.log_level",
		"database.url",
		"queue.redis_url",
		"queue.workers",
		"auth.jwt_secret",
		"providers.openrouter_api_key",
		"providers.a2e_api_key",
		"providers.gemini_api_key",
		"providers.gemini_model",
		"quota.free_daily_limit",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the default value for every setting that has one.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("queue.workers", 2)
	v.SetDefault("providers.gemini_model", "gemini-2.0-flash")
	v.SetDefault("quota.free_daily_limit", 5)
}
