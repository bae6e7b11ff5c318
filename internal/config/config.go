package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	UpstreamTimeout time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	WeatherCacheDir string
	WeatherCacheTTL time.Duration
	WeatherUseCache bool

	GeocodingCacheDir   string
	GeocodingCacheTTL   time.Duration
	GeocodingUseCache   bool
	GeocodingMaxResults int
	GeocodingLanguage   string

	RateLimitRPS   int
	RateLimitBurst int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Upstream struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"upstream"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Weather struct {
		CacheDir string `yaml:"cache_dir"`
		CacheTTL string `yaml:"cache_ttl"`
		UseCache *bool  `yaml:"use_cache"`
	} `yaml:"weather"`

	Geocoding struct {
		CacheDir   string `yaml:"cache_dir"`
		CacheTTL   string `yaml:"cache_ttl"`
		UseCache   *bool  `yaml:"use_cache"`
		MaxResults int    `yaml:"max_results"`
		Language   string `yaml:"language"`
	} `yaml:"geocoding"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), then
// applies env overrides. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from raw YAML plus env overrides. Split out of Load
// so tests can feed documents directly.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("SERVER_PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.UpstreamTimeout = parseDuration(fc.Upstream.Timeout, 30*time.Second)
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 35*time.Second)
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	cfg.WeatherCacheDir = strings.TrimSpace(os.Getenv("WEATHER_CACHE_DIR"))
	if cfg.WeatherCacheDir == "" {
		cfg.WeatherCacheDir = fc.Weather.CacheDir
	}
	if cfg.WeatherCacheDir == "" {
		cfg.WeatherCacheDir = filepath.Join(os.TempDir(), "just-weather", "weather")
	}
	cfg.WeatherCacheTTL = parseDuration(fc.Weather.CacheTTL, 10*time.Minute)
	cfg.WeatherUseCache = parseBoolOverride("WEATHER_USE_CACHE", fc.Weather.UseCache, true)

	cfg.GeocodingCacheDir = strings.TrimSpace(os.Getenv("GEOCODING_CACHE_DIR"))
	if cfg.GeocodingCacheDir == "" {
		cfg.GeocodingCacheDir = fc.Geocoding.CacheDir
	}
	if cfg.GeocodingCacheDir == "" {
		cfg.GeocodingCacheDir = filepath.Join(os.TempDir(), "just-weather", "geocoding")
	}
	cfg.GeocodingCacheTTL = parseDuration(fc.Geocoding.CacheTTL, 24*time.Hour)
	cfg.GeocodingUseCache = parseBoolOverride("GEOCODING_USE_CACHE", fc.Geocoding.UseCache, true)
	cfg.GeocodingMaxResults = fc.Geocoding.MaxResults
	if cfg.GeocodingMaxResults <= 0 {
		cfg.GeocodingMaxResults = 10
	}
	cfg.GeocodingLanguage = strings.TrimSpace(fc.Geocoding.Language)
	if cfg.GeocodingLanguage == "" {
		cfg.GeocodingLanguage = "en"
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal on empty
// string, parse error, or a non-positive result.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// parseBoolOverride resolves a boolean setting: env var wins, then the YAML
// value, then defaultVal.
func parseBoolOverride(envKey string, fileVal *bool, defaultVal bool) bool {
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	if fileVal != nil {
		return *fileVal
	}
	return defaultVal
}

// validate performs post-load validation. The request timeout must leave room
// for one full upstream fetch; it is raised rather than rejected.
func validate(cfg *Config) error {
	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		return fmt.Errorf("server.port must be numeric, got %q", cfg.ServerPort)
	}
	if cfg.RequestTimeout <= cfg.UpstreamTimeout {
		cfg.RequestTimeout = cfg.UpstreamTimeout + 5*time.Second
	}
	if cfg.WeatherCacheDir == cfg.GeocodingCacheDir {
		return fmt.Errorf("weather and geocoding cache directories must differ, both %q", cfg.WeatherCacheDir)
	}
	return nil
}
