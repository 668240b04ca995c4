// Package cli implements the notesprobe command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/notesprobe/internal/config"
	"github.com/notesprobe/internal/logging"
	"github.com/notesprobe/pkg/apiclient"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configPath string
	baseURL    string
	timeout    string
	insecure   bool
	useHTTP2   bool
	logLevel   string
	logFormat  string
	debug      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "notesprobe",
	Short: "Test harness for the Notes REST API",
	Long: `notesprobe exercises a Notes REST API deployment.

It sends single requests, runs the end-to-end note workflow and the
smoke suite, generates load with pass/fail thresholds, and can serve an
in-memory fake of the API for offline runs.

Get started:
  notesprobe health          Check the API is up
  notesprobe workflow        Register, log in and manage a note
  notesprobe smoke           Run the smoke suite
  notesprobe load            Run a load test
  notesprobe serve           Serve the fake API locally`,
	Version:       fmt.Sprintf("%s (built %s)", version, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	f := rootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	f.StringVar(&baseURL, "base-url", "", "API base URL (overrides config)")
	f.StringVar(&timeout, "timeout", "", "Per-request timeout, e.g. 10s (overrides config)")
	f.BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	f.BoolVar(&useHTTP2, "http2", false, "Use HTTP/2 (h2c for http:// targets)")
	f.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&logFormat, "log-format", "", "Log format: console or json")
	f.BoolVar(&debug, "debug", false, "Log every request and response")
}

// SetVersion sets the version info
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// loadConfig resolves the configuration and applies the persistent flags
// that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Resolve(configPath, "")
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.API.BaseURL = baseURL
	}
	if flags.Changed("timeout") {
		d, err := parseDuration("timeout", timeout)
		if err != nil {
			return nil, err
		}
		cfg.API.Timeout = d
	}
	if flags.Changed("insecure") {
		cfg.API.VerifyTLS = !insecure
	}
	if flags.Changed("http2") {
		cfg.API.HTTP2 = useHTTP2
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup resolves the configuration and builds the logger, writing to w.
func setup(cmd *cobra.Command, w io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger, err := logging.New(cfg.Log, w)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

// newClient builds an API client from cfg.
func newClient(cfg *config.Config, logger zerolog.Logger) (*apiclient.Client, error) {
	opts := []apiclient.Option{
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithTLSVerify(cfg.API.VerifyTLS),
		apiclient.WithHTTP2(cfg.API.HTTP2),
		apiclient.WithIdleConns(cfg.API.MaxIdleConns, cfg.API.IdleConnTimeout),
	}
	for k, v := range cfg.API.Headers {
		opts = append(opts, apiclient.WithDefaultHeader(k, v))
	}
	if debug {
		opts = append(opts, apiclient.WithDebugLogging(logging.Component(logger, "apiclient")))
	}
	return apiclient.New(cfg.API.BaseURL, opts...)
}
