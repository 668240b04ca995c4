package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "NOTESPROBE"

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Resolve builds the effective configuration: defaults, then the file at
// path when one is given, then a .env file in dotenvDir if present, then
// NOTESPROBE_* variables.
func Resolve(path, dotenvDir string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := LoadDotEnv(dotenvDir); err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads dir/.env into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := ".env"
	if dir != "" {
		path = strings.TrimRight(dir, "/") + "/.env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// env lists the settings that may be overridden from the environment.
type env struct {
	BaseURL   string        `envconfig:"BASE_URL"`
	Timeout   time.Duration `envconfig:"TIMEOUT"`
	VerifyTLS bool          `envconfig:"VERIFY_TLS"`
	HTTP2     bool          `envconfig:"HTTP2"`
	Name      string        `envconfig:"NAME"`
	Email     string        `envconfig:"EMAIL"`
	Password  string        `envconfig:"PASSWORD"`
	LogLevel  string        `envconfig:"LOG_LEVEL"`
	LogFormat string        `envconfig:"LOG_FORMAT"`
}

// ApplyEnv overwrites cfg with any NOTESPROBE_* variables that are set.
// Unset variables leave the current values alone.
func ApplyEnv(cfg *Config) error {
	e := env{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		VerifyTLS: cfg.API.VerifyTLS,
		HTTP2:     cfg.API.HTTP2,
		Name:      cfg.Auth.Name,
		Email:     cfg.Auth.Email,
		Password:  cfg.Auth.Password,
		LogLevel:  cfg.Log.Level,
		LogFormat: cfg.Log.Format,
	}
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.API.BaseURL = e.BaseURL
	cfg.API.Timeout = e.Timeout
	cfg.API.VerifyTLS = e.VerifyTLS
	cfg.API.HTTP2 = e.HTTP2
	cfg.Auth.Name = e.Name
	cfg.Auth.Email = e.Email
	cfg.Auth.Password = e.Password
	cfg.Log.Level = e.LogLevel
	cfg.Log.Format = e.LogFormat
	return nil
}

// Validate checks cfg after flags have been applied on top of it.
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// validate checks the configuration for errors.
func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if u, err := url.Parse(cfg.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute url", cfg.API.BaseURL)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if cfg.API.MaxIdleConns <= 0 {
		cfg.API.MaxIdleConns = 100
	}

	l := &cfg.Load
	if l.Users <= 0 {
		return fmt.Errorf("load.users must be positive")
	}
	if l.Duration <= 0 {
		return fmt.Errorf("load.duration must be positive")
	}
	if l.RampUp < 0 {
		return fmt.Errorf("load.ramp_up must not be negative")
	}
	if l.Endpoint == "" {
		l.Endpoint = "/health-check"
	}
	if l.Method == "" {
		l.Method = "GET"
	}
	l.Method = strings.ToUpper(l.Method)
	if l.RateLimit < 0 {
		return fmt.Errorf("load.rate_limit must not be negative")
	}
	if l.HealthInterval < 0 {
		return fmt.Errorf("load.health_interval must not be negative")
	}

	switch l.Wait.Mode {
	case "":
		l.Wait.Mode = WaitBetween
	case WaitConstant, WaitBetween, WaitPoisson:
	default:
		return fmt.Errorf("load.wait.mode must be one of constant, between, poisson")
	}
	if l.Wait.Min < 0 || l.Wait.Max < 0 {
		return fmt.Errorf("load.wait bounds must not be negative")
	}
	if l.Wait.Max < l.Wait.Min {
		return fmt.Errorf("load.wait.max must be >= load.wait.min")
	}

	if rate := l.Thresholds.MinSuccessRate; rate < 0 || rate > 100 {
		return fmt.Errorf("load.thresholds.min_success_rate must be between 0 and 100")
	}
	if l.Thresholds.MaxAvgResponseTime < 0 || l.Thresholds.MinRPS < 0 {
		return fmt.Errorf("load.thresholds must not be negative")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json")
	}

	return nil
}
