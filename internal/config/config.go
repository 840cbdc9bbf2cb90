package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port      int    `yaml:"port"`
		DataPath  string `yaml:"data_path"`
		Debug     bool   `yaml:"debug"`
		LogFormat string `yaml:"log_format"` // 'text' or 'json'
		LogToFile bool   `yaml:"log_to_file"`
		// Requests per second allowed per client IP, 0 disables limiting.
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
		// Take the client address from X-Forwarded-For / X-Real-IP. Only
		// enable behind a proxy that overwrites those headers.
		TrustProxy bool `yaml:"trust_proxy"`
	} `yaml:"app"`

	TMDB struct {
		APIKey            string  `yaml:"api_key"`
		BaseURL           string  `yaml:"base_url"`
		ImageBaseURL      string  `yaml:"image_base_url"`
		Language          string  `yaml:"language"`
		Timeout           string  `yaml:"timeout"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		CacheTTL          string  `yaml:"cache_ttl"`
	} `yaml:"tmdb"`

	Completion struct {
		APIKey      string `yaml:"api_key"`
		BaseURL     string `yaml:"base_url"`
		Model       string `yaml:"model"`
		Timeout     string `yaml:"timeout"`
		MaxAttempts int    `yaml:"max_attempts"`
	} `yaml:"completion"`

	Search struct {
		Debounce           string `yaml:"debounce"`
		Concurrency        int    `yaml:"concurrency"`
		PipelineTimeout    string `yaml:"pipeline_timeout"`
		SessionIdleTimeout string `yaml:"session_idle_timeout"`
		MaxQueryLength     int    `yaml:"max_query_length"`
	} `yaml:"search"`

	Redis struct {
		// Empty URL selects the in-process cache.
		URL string `yaml:"url"`
	} `yaml:"redis"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Auth struct {
		UserHeader string `yaml:"user_header"`
	} `yaml:"auth"`

	Telemetry struct {
		// OTLP/HTTP collector; empty disables tracing.
		OTLPEndpoint string  `yaml:"otlp_endpoint"`
		ServiceName  string  `yaml:"service_name"`
		SampleRatio  float64 `yaml:"sample_ratio"`
	} `yaml:"telemetry"`

	Automation struct {
		WarmInterval  string `yaml:"warm_interval"`
		ReapInterval  string `yaml:"reap_interval"`
		WarmOnStartup bool   `yaml:"warm_on_startup"`
	} `yaml:"automation"`
}

// Load reads .env (if present), then the YAML file (if present), then applies
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	setDefaults(cfg)

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.App.Port = 8081
	cfg.App.DataPath = "./data"
	cfg.App.Debug = false
	cfg.App.LogFormat = "text"
	cfg.App.RateLimitRPS = 20
	cfg.App.RateLimitBurst = 40

	cfg.TMDB.BaseURL = "https://api.themoviedb.org/3"
	cfg.TMDB.ImageBaseURL = "https://image.tmdb.org/t/p"
	cfg.TMDB.Language = "en-US"
	cfg.TMDB.Timeout = "10s"
	cfg.TMDB.RequestsPerSecond = 40
	cfg.TMDB.CacheTTL = "6h"

	cfg.Completion.BaseURL = "https://api.openai.com/v1"
	cfg.Completion.Model = "gpt-4o-mini"
	cfg.Completion.Timeout = "30s"
	cfg.Completion.MaxAttempts = 2

	cfg.Search.Debounce = "500ms"
	cfg.Search.Concurrency = 8
	cfg.Search.PipelineTimeout = "60s"
	cfg.Search.SessionIdleTimeout = "10m"
	cfg.Search.MaxQueryLength = 500

	cfg.Database.Path = "./data/popcorn.db"

	cfg.Auth.UserHeader = "X-Forwarded-User"

	cfg.Telemetry.ServiceName = "popcorn"
	cfg.Telemetry.SampleRatio = 1

	cfg.Automation.WarmInterval = "30m"
	cfg.Automation.ReapInterval = "1m"
	cfg.Automation.WarmOnStartup = true
}

func loadFromEnv(cfg *Config) {
	if v := getEnvInt("POPCORN_PORT", 0); v > 0 {
		cfg.App.Port = v
	}
	if v, ok := os.LookupEnv("POPCORN_DEBUG"); ok {
		cfg.App.Debug = parseBool(v, cfg.App.Debug)
	}
	if v, ok := os.LookupEnv("POPCORN_TRUST_PROXY"); ok {
		cfg.App.TrustProxy = parseBool(v, cfg.App.TrustProxy)
	}
	setString(&cfg.App.LogFormat, "LOG_FORMAT")
	setString(&cfg.App.DataPath, "POPCORN_DATA_PATH")

	setString(&cfg.TMDB.APIKey, "TMDB_API_KEY")
	setString(&cfg.TMDB.BaseURL, "TMDB_BASE_URL")
	setString(&cfg.TMDB.Language, "TMDB_LANGUAGE")

	setString(&cfg.Completion.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Completion.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Completion.Model, "OPENAI_MODEL")

	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Database.Path, "DATABASE_PATH")
	setString(&cfg.Auth.UserHeader, "AUTH_USER_HEADER")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid app.port %d", c.App.Port)
	}
	if c.Search.Concurrency <= 0 {
		return errors.New("search.concurrency must be positive")
	}
	if c.Completion.MaxAttempts <= 0 {
		return errors.New("completion.max_attempts must be positive")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio %v must be within [0, 1]", c.Telemetry.SampleRatio)
	}
	durations := map[string]string{
		"tmdb.timeout":                c.TMDB.Timeout,
		"tmdb.cache_ttl":              c.TMDB.CacheTTL,
		"completion.timeout":          c.Completion.Timeout,
		"search.debounce":             c.Search.Debounce,
		"search.pipeline_timeout":     c.Search.PipelineTimeout,
		"search.session_idle_timeout": c.Search.SessionIdleTimeout,
		"automation.warm_interval":    c.Automation.WarmInterval,
		"automation.reap_interval":    c.Automation.ReapInterval,
	}
	for key, raw := range durations {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
	}
	return nil
}

// ParseDuration parses a duration setting, falling back when it is empty or
// malformed.
func ParseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(raw string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}
