package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig is the key-value store behind quotas and cooldowns. An empty
// URL means no store is bound.
type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		UsageEvents string `mapstructure:"usage_events"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	ProjectID string `mapstructure:"project_id"`
	JWKSURL   string `mapstructure:"jwks_url"`
	// AdminToken guards the plan management endpoint; empty disables it.
	AdminToken string        `mapstructure:"admin_token"`
	Leeway     time.Duration `mapstructure:"leeway"`
}

type QuotaConfig struct {
	// Backend is redis, postgres or memory. Redis without a URL disables
	// quota enforcement.
	Backend  string `mapstructure:"backend"`
	TimeZone string `mapstructure:"time_zone"`
}

type RateLimitConfig struct {
	Backend  string        `mapstructure:"backend"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type GeneratorConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := viper.BindEnv("generator.api_key", "GENERATOR_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.url", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{})
	viper.SetDefault("kafka.topics.usage_events", "copy-usage-events")

	// Auth defaults
	viper.SetDefault("auth.project_id", "")
	viper.SetDefault("auth.jwks_url", "")
	viper.SetDefault("auth.admin_token", "")
	viper.SetDefault("auth.leeway", "30s")

	// Quota and cooldown defaults
	viper.SetDefault("quota.backend", "redis")
	viper.SetDefault("quota.time_zone", "UTC")
	viper.SetDefault("rate_limit.backend", "redis")
	viper.SetDefault("rate_limit.cooldown", "5s")
	viper.SetDefault("rate_limit.ttl", "10s")

	// Generator defaults
	viper.SetDefault("generator.base_url", "")
	viper.SetDefault("generator.model", "gpt-4o-mini")
	viper.SetDefault("generator.temperature", 0.7)
	viper.SetDefault("generator.max_tokens", 1500)
	viper.SetDefault("generator.timeout", "30s")
	viper.SetDefault("generator.max_attempts", 3)
	viper.SetDefault("generator.base_delay", "1s")
	viper.SetDefault("generator.retry_delay", "200ms")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Admin-Token"})
}
