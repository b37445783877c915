package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the detector
type Config struct {
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Search     SearchConfig     `mapstructure:"search"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Navigation NavigationConfig `mapstructure:"navigation"`
}

// FetchConfig controls how pages are retrieved
type FetchConfig struct {
	RequestDelay       time.Duration `mapstructure:"request_delay"`
	MaxRetries         int           `mapstructure:"max_retries"`
	Timeout            time.Duration `mapstructure:"timeout"`
	UseHeadlessBrowser bool          `mapstructure:"use_headless_browser"`
	UserAgent          string        `mapstructure:"user_agent"`
}

// SearchConfig holds the price search API settings
type SearchConfig struct {
	APIKey   string `mapstructure:"api_key"`
	EngineID string `mapstructure:"engine_id"`
	BaseURL  string `mapstructure:"base_url"`
}

// OpenAIConfig holds the issue analysis API settings
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// CacheConfig selects the cache backend and the lifetimes of its entries
type CacheConfig struct {
	Type       string        `mapstructure:"type"` // memory, sqlite, mysql or redis
	SQLitePath string        `mapstructure:"sqlite_path"`
	MySQLDSN   string        `mapstructure:"mysql_dsn"`
	RedisAddr  string        `mapstructure:"redis_addr"`
	RedisDB    int           `mapstructure:"redis_db"`
	RedisPass  string        `mapstructure:"redis_password"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	PriceTTL   time.Duration `mapstructure:"price_ttl"`
	IssueTTL   time.Duration `mapstructure:"issue_ttl"`
}

// LogConfig controls the logger
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text or json
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// NavigationConfig controls re-runs after in-page navigation
type NavigationConfig struct {
	Debounce     time.Duration `mapstructure:"debounce"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Fetch: FetchConfig{
			RequestDelay:       1 * time.Second,
			MaxRetries:         3,
			Timeout:            30 * time.Second,
			UseHeadlessBrowser: true,
			UserAgent:          defaultUserAgent,
		},
		Search: SearchConfig{
			BaseURL: "https://www.googleapis.com/customsearch/v1",
		},
		OpenAI: OpenAIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-3.5-turbo",
			Temperature: 0.1,
			MaxTokens:   150,
		},
		Cache: CacheConfig{
			Type:       "memory",
			SQLitePath: "./data/cache.db",
			RedisAddr:  "localhost:6379",
			KeyPrefix:  "product-detector:",
			PriceTTL:   6 * time.Hour,
			IssueTTL:   30 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxAgeDays: 28,
		},
		Server: ServerConfig{
			Port:           "8080",
			Environment:    "development",
			AllowedOrigins: []string{"chrome-extension://*"},
		},
		Navigation: NavigationConfig{
			Debounce:     500 * time.Millisecond,
			PollInterval: 250 * time.Millisecond,
		},
	}
}

// Load reads the configuration from config files and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/product-detector/")

	v.SetEnvPrefix("PRODUCT_DETECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFile reads the configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PRODUCT_DETECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults mirrors Default so that env-only setups get the same values
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("fetch.request_delay", d.Fetch.RequestDelay)
	v.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.use_headless_browser", d.Fetch.UseHeadlessBrowser)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)

	v.SetDefault("search.api_key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.base_url", d.Search.BaseURL)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.temperature", d.OpenAI.Temperature)
	v.SetDefault("openai.max_tokens", d.OpenAI.MaxTokens)

	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("cache.sqlite_path", d.Cache.SQLitePath)
	v.SetDefault("cache.mysql_dsn", "")
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.key_prefix", d.Cache.KeyPrefix)
	v.SetDefault("cache.price_ttl", d.Cache.PriceTTL)
	v.SetDefault("cache.issue_ttl", d.Cache.IssueTTL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.environment", d.Server.Environment)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("navigation.debounce", d.Navigation.Debounce)
	v.SetDefault("navigation.poll_interval", d.Navigation.PollInterval)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Cache.Type {
	case "memory":
	case "sqlite":
		if config.Cache.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required when cache type is 'sqlite'")
		}
	case "mysql":
		if config.Cache.MySQLDSN == "" {
			return fmt.Errorf("MySQL DSN is required when cache type is 'mysql'")
		}
	case "redis":
		if config.Cache.RedisAddr == "" {
			return fmt.Errorf("Redis address is required when cache type is 'redis'")
		}
	default:
		return fmt.Errorf("cache type must be one of memory, sqlite, mysql, redis, got: %s", config.Cache.Type)
	}

	if config.Cache.PriceTTL <= 0 || config.Cache.IssueTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if config.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries cannot be negative")
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", config.Log.Format)
	}

	return nil
}
