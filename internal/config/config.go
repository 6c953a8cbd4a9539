package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Quota     QuotaConfig     `mapstructure:"quota"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL selects the in-memory stores, which keeps the server
// deployable without standing infrastructure.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// QueueConfig contains the durable queue settings. An empty RedisURL
// disables queue mode; the dispatcher then executes tasks inline.
type QueueConfig struct {
	RedisURL string `mapstructure:"redis_url" validate:"omitempty,uri"`
	Workers  int    `mapstructure:"workers"   validate:"gte=1,lte=64"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// ProvidersConfig carries the credential switches for the generation
// backends. A provider with no key configured reports itself
// unavailable to the router.
type ProvidersConfig struct {
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key"`
	A2EAPIKey        string `mapstructure:"a2e_api_key"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
	GeminiModel      string `mapstructure:"gemini_model"`
}

// QuotaConfig contains quota ledger settings.
type QuotaConfig struct {
	FreeDailyLimit int `mapstructure:"free_daily_limit" validate:"gte=0"`
}
