package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Detection DetectionConfig `mapstructure:"detection"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	RateLimit      int `mapstructure:"rate_limit"`
	RateBurst      int `mapstructure:"rate_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// StoreConfig selects the key-value backend used for cached
// detections and preference records.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // memory, redis or postgres
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	MaxRetries   int    `mapstructure:"max_retries"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type DetectionConfig struct {
	CacheTTL           time.Duration    `mapstructure:"cache_ttl"`
	NetworkTimeout     time.Duration    `mapstructure:"network_timeout"`
	GeolocationTimeout time.Duration    `mapstructure:"geolocation_timeout"`
	MismatchCooldown   time.Duration    `mapstructure:"mismatch_cooldown"`
	Providers          []ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig describes one third-party IP geolocation provider.
// Format selects the response normalizer; unknown formats fall back
// to the generic field-alias normalizer.
type ProviderConfig struct {
	Name   string `mapstructure:"name"`
	URL    string `mapstructure:"url"`
	Format string `mapstructure:"format"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Detection.Providers) == 0 {
		config.Detection.Providers = DefaultProviders()
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)
	viper.SetDefault("server.rate_limit", 100)
	viper.SetDefault("server.rate_burst", 200)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("detection.cache_ttl", time.Hour)
	viper.SetDefault("detection.network_timeout", time.Second)
	viper.SetDefault("detection.geolocation_timeout", 3*time.Second)
	viper.SetDefault("detection.mismatch_cooldown", 24*time.Hour)
}

// DefaultProviders is the built-in provider list: small, fast, free
// endpoints queried concurrently by the network probe.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{Name: "country.is", URL: "https://api.country.is", Format: "countryis"},
		{Name: "ipapi.co", URL: "https://ipapi.co/json/", Format: "ipapi"},
		{Name: "geojs.io", URL: "https://get.geojs.io/v1/ip/country.json", Format: "geojs"},
	}
}
