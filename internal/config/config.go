package config

import "time"

// Config is the root configuration structure.
type Config struct {
	API     API      `yaml:"api"`
	Auth    Auth     `yaml:"auth"`
	Load    LoadTest `yaml:"load"`
	Metrics Metrics  `yaml:"metrics"`
	Log     Log      `yaml:"log"`
	Server  Server   `yaml:"server"`
}

// API configures the Notes API client.
type API struct {
	BaseURL         string            `yaml:"base_url"`
	Timeout         time.Duration     `yaml:"timeout"`
	VerifyTLS       bool              `yaml:"verify_tls"`
	HTTP2           bool              `yaml:"http2"`
	MaxIdleConns    int               `yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration     `yaml:"idle_conn_timeout"`
	Headers         map[string]string `yaml:"headers,omitempty"`
}

// Auth holds the account used by commands that need to log in.
type Auth struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// WaitMode selects how a virtual user paces its requests.
type WaitMode string

const (
	WaitConstant WaitMode = "constant"
	WaitBetween  WaitMode = "between"
	WaitPoisson  WaitMode = "poisson"
)

// Wait configures think time between two requests of one user.
// Constant uses Min; Poisson uses the mean of Min and Max.
type Wait struct {
	Mode WaitMode      `yaml:"mode"`
	Min  time.Duration `yaml:"min"`
	Max  time.Duration `yaml:"max"`
}

// Thresholds are the pass criteria of a load run.
type Thresholds struct {
	MaxAvgResponseTime time.Duration `yaml:"max_avg_response_time"`
	MinSuccessRate     float64       `yaml:"min_success_rate"` // percent
	MinRPS             float64       `yaml:"min_rps"`
}

// LoadTest configures the load generator.
//
// RateLimit caps requests per second across all users; 0 means unlimited.
// HealthInterval is how often the target's health check is polled during a
// run; 0 disables polling.
type LoadTest struct {
	Users          int           `yaml:"users"`
	RampUp         time.Duration `yaml:"ramp_up"`
	Duration       time.Duration `yaml:"duration"`
	Wait           Wait          `yaml:"wait"`
	Endpoint       string        `yaml:"endpoint"`
	Method         string        `yaml:"method"`
	RateLimit      float64       `yaml:"rate_limit"`
	HealthInterval time.Duration `yaml:"health_interval"`
	Thresholds     Thresholds    `yaml:"thresholds"`
}

// Metrics configures Prometheus metrics.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

// Log configures zerolog output.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Server configures the fake Notes API.
type Server struct {
	Address string        `yaml:"address"`
	Prefix  string        `yaml:"prefix"`
	Latency time.Duration `yaml:"latency"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: API{
			BaseURL:         "https://practice.expandtesting.com/notes/api",
			Timeout:         30 * time.Second,
			VerifyTLS:       true,
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
		Load: LoadTest{
			Users:    10,
			RampUp:   10 * time.Second,
			Duration: time.Minute,
			Wait: Wait{
				Mode: WaitBetween,
				Min:  time.Second,
				Max:  3 * time.Second,
			},
			Endpoint:       "/health-check",
			Method:         "GET",
			HealthInterval: 5 * time.Second,
			Thresholds: Thresholds{
				MaxAvgResponseTime: 500 * time.Millisecond,
				MinSuccessRate:     99,
				MinRPS:             4,
			},
		},
		Metrics: Metrics{
			Enabled: false,
			Address: ":9090",
			Path:    "/metrics",
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Server: Server{
			Address: ":8080",
			Prefix:  "/notes/api",
		},
	}
}
