package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"memecoin_tracker/internal/pkg/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config/config.yml"

// Environment variables that override secrets from the YAML file.
const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvCoinGeckoKey = "COINGECKO_API_KEY"
	EnvRapidAPIKey  = "RAPID_API_KEY"
	EnvRapidAPIHost = "RAPID_API_HOST"
)

// SymbolPlaceholder is replaced in image source templates with the lower-cased token symbol.
const SymbolPlaceholder = "{symbol}"

// Config holds the overall configuration for the application.
type Config struct {
	CoinGecko    CoinGeckoConfig    `yaml:"coinGecko"`
	RateLimit    RateLimitConfig    `yaml:"rateLimit"`
	Refresh      RefreshConfig      `yaml:"refresh"`
	Social       SocialConfig       `yaml:"social"`
	ImageSources ImageSourcesConfig `yaml:"imageSources"`
	Storage      StorageConfig      `yaml:"storage"`
	Server       ServerConfig       `yaml:"server"`
	Cache        CacheConfig        `yaml:"cache"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Swagger      SwaggerConfig      `yaml:"swagger"`
}

// CoinGeckoConfig holds the configuration for the market-data client.
type CoinGeckoConfig struct {
	BaseURL              string `yaml:"baseURL"`
	ApiKey               string `yaml:"apiKey"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	VsCurrency           string `yaml:"vsCurrency"`
	Category             string `yaml:"category"`
	MaxCoins             int    `yaml:"maxCoins"`
}

// RateLimitConfig bounds and retries market-data requests.
type RateLimitConfig struct {
	MaxRequests     int   `yaml:"maxRequests"`
	WindowSeconds   int   `yaml:"windowSeconds"`
	MaxRetries      int   `yaml:"maxRetries"`
	BaseDelayMillis int64 `yaml:"baseDelayMillis"`
	MaxDelayMillis  int64 `yaml:"maxDelayMillis"` // 0 = uncapped
}

// RefreshConfig controls a refresh run.
type RefreshConfig struct {
	WindowDays            int   `yaml:"windowDays"`
	ListMaxAgeMinutes     int   `yaml:"listMaxAgeMinutes"`
	InterTokenDelayMillis int64 `yaml:"interTokenDelayMillis"`
	SkipImages            bool  `yaml:"skipImages"`
}

// SocialConfig holds the configuration for the social search companion.
type SocialConfig struct {
	BaseURL               string `yaml:"baseURL"`
	ApiKey                string `yaml:"apiKey"`
	Host                  string `yaml:"host"`
	SearchType            string `yaml:"searchType"`
	RequestTimeoutMillis  int64  `yaml:"requestTimeoutMillis"`
	RequestIntervalMillis int64  `yaml:"requestIntervalMillis"`
	MaxRetries            int    `yaml:"maxRetries"`
	BaseDelayMillis       int64  `yaml:"baseDelayMillis"`
	MaxDelayMillis        int64  `yaml:"maxDelayMillis"`
}

// ImageSourcesConfig lists fallback logo URL templates tried after the list image.
// "{symbol}" is replaced with the lower-cased token symbol.
type ImageSourcesConfig struct {
	Templates          []string `yaml:"templates"`
	ProbeTimeoutMillis int64    `yaml:"probeTimeoutMillis"`
	CacheTTLMinutes    int      `yaml:"cacheTTLMinutes"`
}

// StorageConfig holds file locations.
type StorageConfig struct {
	DataFile          string `yaml:"dataFile"`
	BackupDir         string `yaml:"backupDir"`
	ImagesDir         string `yaml:"imagesDir"`
	SocialFile        string `yaml:"socialFile"`
	SnapshotRetention int    `yaml:"snapshotRetention"` // 0 keeps every snapshot
}

// ServerConfig holds the read API server configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// CacheConfig holds configuration for the read API dataset cache.
type CacheConfig struct {
	DefaultExpirationSeconds int `yaml:"defaultExpirationSeconds"`
	CleanupIntervalMinutes   int `yaml:"cleanupIntervalMinutes"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
	File  string `yaml:"file"`
}

// MetricsConfig controls metrics export for the one-shot binaries.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RequestTimeout returns the per-request timeout of the market-data client.
func (c CoinGeckoConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

// Window returns the rolling rate-limit window.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// BaseDelay returns the first backoff delay.
func (c RateLimitConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMillis) * time.Millisecond
}

// MaxDelay returns the backoff cap, 0 when uncapped.
func (c RateLimitConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMillis) * time.Millisecond
}

// ListMaxAge returns how long a cached token list is trusted.
func (c RefreshConfig) ListMaxAge() time.Duration {
	return time.Duration(c.ListMaxAgeMinutes) * time.Minute
}

// InterTokenDelay returns the pause after each processed token.
func (c RefreshConfig) InterTokenDelay() time.Duration {
	return time.Duration(c.InterTokenDelayMillis) * time.Millisecond
}

// RequestTimeout returns the per-request timeout of the social client.
func (c SocialConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

// RequestInterval returns the pause between social searches.
func (c SocialConfig) RequestInterval() time.Duration {
	return time.Duration(c.RequestIntervalMillis) * time.Millisecond
}

// BaseDelay returns the first backoff delay of social searches.
func (c SocialConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMillis) * time.Millisecond
}

// MaxDelay returns the backoff cap of social searches.
func (c SocialConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMillis) * time.Millisecond
}

// HasCredentials reports whether both the RapidAPI key and host are configured.
func (c SocialConfig) HasCredentials() bool {
	return c.ApiKey != "" && c.Host != ""
}

// ProbeTimeout returns the timeout of a single image probe.
func (c ImageSourcesConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMillis) * time.Millisecond
}

// CacheTTL returns how long image probe results are remembered.
func (c ImageSourcesConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// Path returns the config file location from CONFIG_PATH, or DefaultPath.
func Path() string {
	return utils.GetEnv(EnvConfigPath, DefaultPath)
}

// LoadConfig loads configuration from a YAML file, applies environment overrides and defaults.
// A missing file is not an error: the defaults describe a complete setup.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	var cfg Config
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logrus.Warnf("Config file %s not found, using defaults", path)
	case err != nil:
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		logrus.Errorf("Invalid configuration: %v", err)
		return nil, err
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvCoinGeckoKey); v != "" {
		cfg.CoinGecko.ApiKey = v
		logrus.Infof("CoinGecko.ApiKey taken from %s", EnvCoinGeckoKey)
	}
	if v := os.Getenv(EnvRapidAPIKey); v != "" {
		cfg.Social.ApiKey = v
		logrus.Infof("Social.ApiKey taken from %s", EnvRapidAPIKey)
	}
	if v := os.Getenv(EnvRapidAPIHost); v != "" {
		cfg.Social.Host = v
		logrus.Infof("Social.Host taken from %s", EnvRapidAPIHost)
	}
}

func applyDefaults(cfg *Config) {
	// CoinGecko
	if cfg.CoinGecko.BaseURL == "" {
		cfg.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
		logrus.Infof("CoinGecko.BaseURL not set, defaulting to %s", cfg.CoinGecko.BaseURL)
	}
	if cfg.CoinGecko.RequestTimeoutMillis == 0 {
		cfg.CoinGecko.RequestTimeoutMillis = 30000
		logrus.Infof("CoinGecko.RequestTimeoutMillis not set, defaulting to %d ms", cfg.CoinGecko.RequestTimeoutMillis)
	}
	if cfg.CoinGecko.VsCurrency == "" {
		cfg.CoinGecko.VsCurrency = "usd"
		logrus.Infof("CoinGecko.VsCurrency not set, defaulting to %s", cfg.CoinGecko.VsCurrency)
	}
	if cfg.CoinGecko.Category == "" {
		cfg.CoinGecko.Category = "meme-token"
		logrus.Infof("CoinGecko.Category not set, defaulting to %s", cfg.CoinGecko.Category)
	}
	if cfg.CoinGecko.MaxCoins == 0 {
		cfg.CoinGecko.MaxCoins = 10
		logrus.Infof("CoinGecko.MaxCoins not set, defaulting to %d", cfg.CoinGecko.MaxCoins)
	}

	// Rate limiting of market data
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 10
		logrus.Infof("RateLimit.MaxRequests not set, defaulting to %d", cfg.RateLimit.MaxRequests)
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
		logrus.Infof("RateLimit.WindowSeconds not set, defaulting to %d s", cfg.RateLimit.WindowSeconds)
	}
	if cfg.RateLimit.MaxRetries == 0 {
		cfg.RateLimit.MaxRetries = 3
		logrus.Infof("RateLimit.MaxRetries not set, defaulting to %d", cfg.RateLimit.MaxRetries)
	}
	if cfg.RateLimit.BaseDelayMillis == 0 {
		cfg.RateLimit.BaseDelayMillis = 10000
		logrus.Infof("RateLimit.BaseDelayMillis not set, defaulting to %d ms", cfg.RateLimit.BaseDelayMillis)
	}

	// Refresh
	if cfg.Refresh.WindowDays == 0 {
		cfg.Refresh.WindowDays = 30
		logrus.Infof("Refresh.WindowDays not set, defaulting to %d", cfg.Refresh.WindowDays)
	}
	if cfg.Refresh.ListMaxAgeMinutes == 0 {
		cfg.Refresh.ListMaxAgeMinutes = 60
		logrus.Infof("Refresh.ListMaxAgeMinutes not set, defaulting to %d minutes", cfg.Refresh.ListMaxAgeMinutes)
	}
	if cfg.Refresh.InterTokenDelayMillis == 0 {
		cfg.Refresh.InterTokenDelayMillis = 2000
		logrus.Infof("Refresh.InterTokenDelayMillis not set, defaulting to %d ms", cfg.Refresh.InterTokenDelayMillis)
	}

	// Social
	if cfg.Social.BaseURL == "" {
		cfg.Social.BaseURL = "https://twitter-api45.p.rapidapi.com"
		logrus.Infof("Social.BaseURL not set, defaulting to %s", cfg.Social.BaseURL)
	}
	if cfg.Social.SearchType == "" {
		cfg.Social.SearchType = "Top"
		logrus.Infof("Social.SearchType not set, defaulting to %s", cfg.Social.SearchType)
	}
	if cfg.Social.RequestTimeoutMillis == 0 {
		cfg.Social.RequestTimeoutMillis = 30000
		logrus.Infof("Social.RequestTimeoutMillis not set, defaulting to %d ms", cfg.Social.RequestTimeoutMillis)
	}
	if cfg.Social.RequestIntervalMillis == 0 {
		cfg.Social.RequestIntervalMillis = 1000
		logrus.Infof("Social.RequestIntervalMillis not set, defaulting to %d ms", cfg.Social.RequestIntervalMillis)
	}
	if cfg.Social.MaxRetries == 0 {
		cfg.Social.MaxRetries = 5
		logrus.Infof("Social.MaxRetries not set, defaulting to %d", cfg.Social.MaxRetries)
	}
	if cfg.Social.BaseDelayMillis == 0 {
		cfg.Social.BaseDelayMillis = 1000
		logrus.Infof("Social.BaseDelayMillis not set, defaulting to %d ms", cfg.Social.BaseDelayMillis)
	}
	if cfg.Social.MaxDelayMillis == 0 {
		cfg.Social.MaxDelayMillis = 32000
		logrus.Infof("Social.MaxDelayMillis not set, defaulting to %d ms", cfg.Social.MaxDelayMillis)
	}

	// Image sources
	if len(cfg.ImageSources.Templates) == 0 {
		cfg.ImageSources.Templates = []string{
			"https://cryptologos.cc/logos/{symbol}-{symbol}-logo.png",
			"https://raw.githubusercontent.com/spothq/cryptocurrency-icons/master/128/color/{symbol}.png",
		}
		logrus.Infof("ImageSources.Templates not set, defaulting to %v", cfg.ImageSources.Templates)
	}
	if cfg.ImageSources.ProbeTimeoutMillis == 0 {
		cfg.ImageSources.ProbeTimeoutMillis = 10000
		logrus.Infof("ImageSources.ProbeTimeoutMillis not set, defaulting to %d ms", cfg.ImageSources.ProbeTimeoutMillis)
	}
	if cfg.ImageSources.CacheTTLMinutes == 0 {
		cfg.ImageSources.CacheTTLMinutes = 60
		logrus.Infof("ImageSources.CacheTTLMinutes not set, defaulting to %d minutes", cfg.ImageSources.CacheTTLMinutes)
	}

	// Storage
	if cfg.Storage.DataFile == "" {
		cfg.Storage.DataFile = "memecoin_data.json"
		logrus.Infof("Storage.DataFile not set, defaulting to %s", cfg.Storage.DataFile)
	}
	if cfg.Storage.BackupDir == "" {
		cfg.Storage.BackupDir = "backups"
		logrus.Infof("Storage.BackupDir not set, defaulting to %s", cfg.Storage.BackupDir)
	}
	if cfg.Storage.ImagesDir == "" {
		cfg.Storage.ImagesDir = cfg.Storage.BackupDir + "/images"
		logrus.Infof("Storage.ImagesDir not set, defaulting to %s", cfg.Storage.ImagesDir)
	}
	if cfg.Storage.SocialFile == "" {
		cfg.Storage.SocialFile = "memecoin_tweets.json"
		logrus.Infof("Storage.SocialFile not set, defaulting to %s", cfg.Storage.SocialFile)
	}

	// Read API
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60
	}
	if cfg.Cache.DefaultExpirationSeconds == 0 {
		cfg.Cache.DefaultExpirationSeconds = 30
		logrus.Infof("Cache.DefaultExpirationSeconds not set, defaulting to %d s", cfg.Cache.DefaultExpirationSeconds)
	}
	if cfg.Cache.CleanupIntervalMinutes == 0 {
		cfg.Cache.CleanupIntervalMinutes = 10
	}
	if cfg.Swagger.Path == "" {
		cfg.Swagger.Path = "./docs/swagger.yaml"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		logrus.Infof("Logging.Level not set, defaulting to %s", cfg.Logging.Level)
	}
}

// Validate checks that the loaded configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if err := validateURL("coinGecko.baseURL", c.CoinGecko.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateURL("social.baseURL", c.Social.BaseURL); err != nil {
		errs = append(errs, err)
	}
	for i, tmpl := range c.ImageSources.Templates {
		if !strings.Contains(tmpl, SymbolPlaceholder) {
			errs = append(errs, fmt.Errorf("imageSources.templates[%d] must contain %s", i, SymbolPlaceholder))
			continue
		}
		if err := validateURL(fmt.Sprintf("imageSources.templates[%d]", i), tmpl); err != nil {
			errs = append(errs, err)
		}
	}

	positive := []struct {
		name  string
		value int64
	}{
		{"coinGecko.maxCoins", int64(c.CoinGecko.MaxCoins)},
		{"rateLimit.maxRequests", int64(c.RateLimit.MaxRequests)},
		{"rateLimit.windowSeconds", int64(c.RateLimit.WindowSeconds)},
		{"rateLimit.maxRetries", int64(c.RateLimit.MaxRetries)},
		{"rateLimit.baseDelayMillis", c.RateLimit.BaseDelayMillis},
		{"refresh.windowDays", int64(c.Refresh.WindowDays)},
		{"refresh.listMaxAgeMinutes", int64(c.Refresh.ListMaxAgeMinutes)},
		{"social.maxRetries", int64(c.Social.MaxRetries)},
		{"social.baseDelayMillis", c.Social.BaseDelayMillis},
		{"social.requestIntervalMillis", c.Social.RequestIntervalMillis},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}
	if c.RateLimit.MaxDelayMillis < 0 {
		errs = append(errs, fmt.Errorf("rateLimit.maxDelayMillis must not be negative, got %d", c.RateLimit.MaxDelayMillis))
	}
	if c.Storage.SnapshotRetention < 0 {
		errs = append(errs, fmt.Errorf("storage.snapshotRetention must not be negative, got %d", c.Storage.SnapshotRetention))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(strings.ReplaceAll(raw, SymbolPlaceholder, "x"))
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", name, raw)
	}
	return nil
}
