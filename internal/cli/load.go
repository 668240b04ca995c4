package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/notesprobe/internal/config"
	"github.com/notesprobe/internal/loadtest"
	"github.com/notesprobe/internal/logging"
	"github.com/notesprobe/internal/tui"
	"github.com/notesprobe/pkg/apiclient"
)

var (
	loadUsers      int
	loadDuration   time.Duration
	loadRampUp     time.Duration
	loadWaitMode   string
	loadWaitMin    time.Duration
	loadWaitMax    time.Duration
	loadRPS        float64
	loadEndpoint   string
	loadMethod     string
	loadMaxAvg     time.Duration
	loadMinSuccess float64
	loadMinRPS     float64
	loadTUI        bool
	loadMetrics    bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run a load test against one endpoint",
	Long: `Spawn virtual users that call one endpoint with think time between
requests, then print the summary and check it against the thresholds.
Exits with an error when a threshold is missed.

Examples:
  notesprobe load -u 10 -d 1m --ramp-up 10s
  notesprobe load --wait-mode poisson --wait-min 500ms --wait-max 1500ms --tui
  notesprobe load --rps 50 --metrics`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	defaults := config.DefaultConfig().Load
	f := loadCmd.Flags()
	f.IntVarP(&loadUsers, "users", "u", defaults.Users, "Number of virtual users")
	f.DurationVarP(&loadDuration, "duration", "d", defaults.Duration, "Run duration")
	f.DurationVar(&loadRampUp, "ramp-up", defaults.RampUp, "Time over which users are started")
	f.StringVar(&loadWaitMode, "wait-mode", string(defaults.Wait.Mode), "Think time mode: constant, between or poisson")
	f.DurationVar(&loadWaitMin, "wait-min", defaults.Wait.Min, "Minimum think time")
	f.DurationVar(&loadWaitMax, "wait-max", defaults.Wait.Max, "Maximum think time")
	f.Float64Var(&loadRPS, "rps", 0, "Global request rate cap (0 = unlimited)")
	f.StringVar(&loadEndpoint, "endpoint", defaults.Endpoint, "Endpoint to call")
	f.StringVar(&loadMethod, "method", defaults.Method, "HTTP method")
	f.DurationVar(&loadMaxAvg, "max-avg", defaults.Thresholds.MaxAvgResponseTime, "Maximum average response time (0 disables)")
	f.Float64Var(&loadMinSuccess, "min-success", defaults.Thresholds.MinSuccessRate, "Minimum success rate in percent")
	f.Float64Var(&loadMinRPS, "min-rps", defaults.Thresholds.MinRPS, "Minimum requests per second")
	f.BoolVar(&loadTUI, "tui", false, "Show the live dashboard")
	f.BoolVar(&loadMetrics, "metrics", false, "Serve Prometheus metrics during the run")
	rootCmd.AddCommand(loadCmd)
}

// applyLoadFlags copies explicitly set flags over the file configuration.
func applyLoadFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	l := &cfg.Load
	if f.Changed("users") {
		l.Users = loadUsers
	}
	if f.Changed("duration") {
		l.Duration = loadDuration
	}
	if f.Changed("ramp-up") {
		l.RampUp = loadRampUp
	}
	if f.Changed("wait-mode") {
		l.Wait.Mode = config.WaitMode(loadWaitMode)
	}
	if f.Changed("wait-min") {
		l.Wait.Min = loadWaitMin
	}
	if f.Changed("wait-max") {
		l.Wait.Max = loadWaitMax
	}
	if f.Changed("rps") {
		l.RateLimit = loadRPS
	}
	if f.Changed("endpoint") {
		l.Endpoint = loadEndpoint
	}
	if f.Changed("method") {
		l.Method = loadMethod
	}
	if f.Changed("max-avg") {
		l.Thresholds.MaxAvgResponseTime = loadMaxAvg
	}
	if f.Changed("min-success") {
		l.Thresholds.MinSuccessRate = loadMinSuccess
	}
	if f.Changed("min-rps") {
		l.Thresholds.MinRPS = loadMinRPS
	}
	if f.Changed("metrics") {
		cfg.Metrics.Enabled = loadMetrics
	}
	return cfg.Validate()
}

func runLoad(cmd *cobra.Command, args []string) error {
	var logOut io.Writer = cmd.ErrOrStderr()
	if loadTUI {
		file, err := tui.OpenLogFile()
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer file.Close()
		logOut = file
	}

	cfg, logger, err := setup(cmd, logOut)
	if err != nil {
		return err
	}
	if err := applyLoadFlags(cmd, cfg); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := loadtest.NewMetrics(reg)

	opts := []loadtest.Option{
		loadtest.WithMetrics(metrics),
		loadtest.WithLogger(logging.Component(logger, "loadtest")),
	}

	ready := func() bool { return true }
	if cfg.Load.HealthInterval > 0 {
		probeClient, err := newClient(cfg, logger)
		if err != nil {
			return err
		}
		defer probeClient.Close()
		prober := loadtest.NewProber(probeClient, cfg.Load.HealthInterval, cfg.API.Timeout, metrics,
			logging.Component(logger, "prober"))
		opts = append(opts, loadtest.WithProber(prober))
		ready = prober.Healthy
	}

	if cfg.Metrics.Enabled {
		srv := loadtest.NewServer(cfg.Metrics, reg, ready, logging.Component(logger, "metrics"))
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(ctx)
		}()
	}

	factory := func() (*apiclient.Client, error) { return newClient(cfg, logger) }
	runner, err := loadtest.NewRunner(cfg.Load, factory, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if !loadTUI {
		fmt.Fprintf(out, "%s %d users, %s, %s %s%s\n", tui.MiniLogo(),
			cfg.Load.Users, cfg.Load.Duration, cfg.Load.Method, cfg.API.BaseURL, cfg.Load.Endpoint)
	}

	var summary *loadtest.Summary
	if loadTUI {
		target := tui.Target{BaseURL: cfg.API.BaseURL, Method: cfg.Load.Method, Endpoint: cfg.Load.Endpoint}
		summary, err = tui.RunLoad(ctx, runner, target, cfg.Load.Thresholds)
	} else {
		summary, err = runner.Run(ctx)
	}
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return err
	}
	if summary == nil {
		return errors.New("load run produced no summary")
	}

	if interrupted {
		fmt.Fprintln(out, tui.WarningStyle.Render(tui.WarningSign+" run interrupted, partial results"))
	}
	summary.WriteTable(out, cfg.Load.Thresholds)
	return summary.Check(cfg.Load.Thresholds)
}
