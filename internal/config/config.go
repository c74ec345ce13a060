package config

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Equivalence EquivalenceConfig `mapstructure:"equivalence"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // seconds
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CatalogConfig holds the upstream catalog (Apify actor) configuration
type CatalogConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	Actor                string `mapstructure:"actor"`
	Token                string `mapstructure:"token"`
	Timeout              int    `mapstructure:"timeout"` // seconds
	MaxRetries           int    `mapstructure:"max_retries"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second"`
	CircuitBreakerDelay  int    `mapstructure:"circuit_breaker_delay"` // seconds
	LanguageID           int64  `mapstructure:"language_id"`
	DefaultCountryID     int64  `mapstructure:"default_country_id"`
}

// EquivalenceConfig tunes the equivalent parts search and its background workers
type EquivalenceConfig struct {
	OEMsPerBrand      int `mapstructure:"oems_per_brand"`
	MaxResults        int `mapstructure:"max_results"`
	SearchConcurrency int `mapstructure:"search_concurrency"`
	Workers           int `mapstructure:"workers"`
	MaxRetries        int `mapstructure:"max_retries"`
	SectionTTL        int `mapstructure:"section_ttl"` // seconds, 0 keeps stored sections forever
}

// CacheConfig holds cache lifetimes in seconds
type CacheConfig struct {
	CategoryTTL int `mapstructure:"category_ttl"`
	FitmentTTL  int `mapstructure:"fitment_ttl"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
}

// LogConfig holds logrus settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// Apply configures the standard logrus logger.
func (c LogConfig) Apply() error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	log.SetLevel(level)

	switch strings.ToLower(c.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", c.Format)
	}
	return nil
}

// Load loads configuration from config.yaml in the working directory with
// environment variable overrides (catalog.token -> CATALOG_TOKEN). The file is
// optional.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Warn("config.yaml not found, using defaults and environment")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 10)

	v.SetDefault("catalog.base_url", "https://api.apify.com/v2")
	v.SetDefault("catalog.actor", "")
	v.SetDefault("catalog.token", "")
	v.SetDefault("catalog.timeout", 60)
	v.SetDefault("catalog.max_retries", 2)
	v.SetDefault("catalog.max_requests_per_second", 10)
	v.SetDefault("catalog.circuit_breaker_delay", 300)
	v.SetDefault("catalog.language_id", 4)
	v.SetDefault("catalog.default_country_id", 62)

	v.SetDefault("equivalence.oems_per_brand", 1)
	v.SetDefault("equivalence.max_results", 20)
	v.SetDefault("equivalence.search_concurrency", 4)
	v.SetDefault("equivalence.workers", 2)
	v.SetDefault("equivalence.max_retries", 5)
	v.SetDefault("equivalence.section_ttl", 24*60*60)

	v.SetDefault("cache.category_ttl", 6*60*60)
	v.SetDefault("cache.fitment_ttl", 60*60)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "autoparts")
	v.SetDefault("database.user", "autoparts")
	v.SetDefault("database.password", "autoparts")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "autoparts_workers")
	v.SetDefault("redis.min_idle_time", 120)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
