package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the veritas service.
type Config struct {
	Environment string `mapstructure:"environment"`

	API struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
		WriteTimeout int    `mapstructure:"write_timeout"` // seconds
		RateLimit    struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			Burst             int `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Rules struct {
		// SeedFile is an optional JSON/YAML rule file loaded at startup on
		// top of the built-in seed set.
		SeedFile string `mapstructure:"seed_file"`
	} `mapstructure:"rules"`

	CrossModule struct {
		MaxParallelChecks  int `mapstructure:"max_parallel_checks"`
		ReferenceCacheSize int `mapstructure:"reference_cache_size"`
		ReferenceCacheTTL  int `mapstructure:"reference_cache_ttl"` // seconds
	} `mapstructure:"cross_module"`

	Integrity struct {
		MaxStringLength    int    `mapstructure:"max_string_length"`
		MaxDepth           int    `mapstructure:"max_depth"`
		PreviewLength      int    `mapstructure:"preview_length"`
		AllowedParentField string `mapstructure:"allowed_parent_field"`
	} `mapstructure:"integrity"`

	Stores struct {
		SQLitePath string `mapstructure:"sqlite_path"`
	} `mapstructure:"stores"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		TTL      int    `mapstructure:"ttl"` // seconds
	} `mapstructure:"redis"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8085)
	viper.SetDefault("api.read_timeout", 15)
	viper.SetDefault("api.write_timeout", 15)
	viper.SetDefault("api.rate_limit.requests_per_second", 50)
	viper.SetDefault("api.rate_limit.burst", 100)
	viper.SetDefault("rules.seed_file", "")
	viper.SetDefault("cross_module.max_parallel_checks", 8)
	viper.SetDefault("cross_module.reference_cache_size", 1024)
	viper.SetDefault("cross_module.reference_cache_ttl", 30)
	viper.SetDefault("integrity.max_string_length", 10000)
	viper.SetDefault("integrity.max_depth", 50)
	viper.SetDefault("integrity.preview_length", 100)
	viper.SetDefault("integrity.allowed_parent_field", "parentId")
	viper.SetDefault("stores.sqlite_path", "./data/modules.db")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", 30)
	viper.SetDefault("logging.level", "info")
}

// LoadConfig reads configuration from veritas.yaml (working directory or
// ./config), environment variables with the VERITAS_ prefix, and built-in
// defaults, in that order of precedence.
func LoadConfig() (*Config, error) {
	setDefaults()

	viper.SetConfigName("veritas")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("VERITAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api.port %d", c.API.Port)
	}
	if c.API.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("api.rate_limit.requests_per_second must be positive")
	}
	if c.API.RateLimit.Burst < c.API.RateLimit.RequestsPerSecond {
		return fmt.Errorf("api.rate_limit.burst must be at least requests_per_second")
	}
	if c.CrossModule.MaxParallelChecks <= 0 {
		return fmt.Errorf("cross_module.max_parallel_checks must be positive")
	}
	if c.Integrity.MaxStringLength <= 0 {
		return fmt.Errorf("integrity.max_string_length must be positive")
	}
	if c.Stores.SQLitePath == "" {
		return fmt.Errorf("stores.sqlite_path is required")
	}
	return nil
}
