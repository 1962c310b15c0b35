package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Catalog cache TTL in seconds
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`
}

type ProcessorConfig struct {
	// Simulated work duration standing in for the real agent call
	WorkDelaySeconds      int  `mapstructure:"work_delay_seconds"`
	ClearResultOnRevision bool `mapstructure:"clear_result_on_revision"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from an optional yaml file, environment
// variables and built-in defaults, in decreasing priority.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.url", "host=localhost user=postgres password=postgres dbname=agentmarket port=5432 sslmode=disable")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl_seconds", 60)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_minutes", 24*60)
	v.SetDefault("processor.work_delay_seconds", 5)
	v.SetDefault("processor.clear_result_on_revision", false)
	v.SetDefault("storage.path", "./storage")

	// Read from environment variables (with priority over file)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; environment and defaults still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret (AUTH_JWT_SECRET) is required")
	}

	return &cfg, nil
}
