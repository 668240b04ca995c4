// Package loadtest drives virtual users against one Notes API endpoint and
// judges the run against performance thresholds.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/notesprobe/internal/config"
	"github.com/notesprobe/pkg/apiclient"
)

// ClientFactory builds the client of one virtual user. Clients are not
// safe for concurrent use, so every user gets its own.
type ClientFactory func() (*apiclient.Client, error)

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics exports run metrics through m.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithProber polls target health while the run is active.
func WithProber(p *Prober) Option {
	return func(r *Runner) { r.prober = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// Runner executes one load run. It cannot be reused.
type Runner struct {
	cfg      config.LoadTest
	factory  ClientFactory
	metrics  *Metrics
	prober   *Prober
	recorder *Recorder
	limiter  *rate.Limiter
	logger   zerolog.Logger

	active   atomic.Int64
	inFlight atomic.Int64
	started  atomic.Bool
	done     atomic.Bool

	mu        sync.Mutex
	startedAt time.Time
	startErr  error
}

// NewRunner validates cfg and prepares a run.
func NewRunner(cfg config.LoadTest, factory ClientFactory, opts ...Option) (*Runner, error) {
	if factory == nil {
		return nil, errors.New("client factory is required")
	}
	if cfg.Users <= 0 {
		return nil, errors.New("users must be positive")
	}
	if cfg.Duration <= 0 {
		return nil, errors.New("duration must be positive")
	}
	if _, err := NewPacer(cfg.Wait, 0); err != nil {
		return nil, err
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/health-check"
	}
	if cfg.Method == "" {
		cfg.Method = "GET"
	}

	r := &Runner{
		cfg:      cfg,
		factory:  factory,
		recorder: NewRecorder(),
		logger:   zerolog.Nop(),
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit / 10) // Burst of 10% of the rate
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run generates load until the configured duration elapses or ctx is
// cancelled, then returns the summary. When ctx is cancelled early the
// partial summary is returned together with ctx.Err().
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if !r.started.CompareAndSwap(false, true) {
		return nil, errors.New("runner already used")
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	r.mu.Lock()
	r.startedAt = time.Now()
	r.mu.Unlock()
	r.recorder.begin()

	if r.metrics != nil && r.cfg.RateLimit > 0 {
		r.metrics.RateLimit.Set(r.cfg.RateLimit)
	}

	var aux sync.WaitGroup
	auxCtx, stopAux := context.WithCancel(ctx)
	defer stopAux()

	aux.Add(1)
	go func() {
		defer aux.Done()
		r.measureRPS(auxCtx)
	}()
	if r.prober != nil {
		aux.Add(1)
		go func() {
			defer aux.Done()
			r.prober.Run(auxCtx)
		}()
	}

	r.logger.Info().
		Int("users", r.cfg.Users).
		Dur("ramp_up", r.cfg.RampUp).
		Dur("duration", r.cfg.Duration).
		Str("endpoint", r.cfg.Endpoint).
		Str("wait", string(r.cfg.Wait.Mode)).
		Msg("load run started")

	var users sync.WaitGroup
	for i := 0; i < r.cfg.Users; i++ {
		users.Add(1)
		go func(id int) {
			defer users.Done()
			r.user(runCtx, cancel, id, r.rampDelay(id))
		}(i)
	}
	users.Wait()

	r.recorder.Stop()
	r.done.Store(true)
	stopAux()
	aux.Wait()

	summary := r.recorder.Summary()

	r.mu.Lock()
	startErr := r.startErr
	r.mu.Unlock()
	if startErr != nil {
		return &summary, startErr
	}

	r.logger.Info().
		Int64("requests", summary.TotalRequests).
		Int64("failures", summary.Failures).
		Float64("rps", summary.RPS).
		Dur("avg", summary.AvgLatency).
		Msg("load run finished")

	if err := ctx.Err(); err != nil {
		return &summary, err
	}
	return &summary, nil
}

// rampDelay spreads user start times evenly over the ramp-up window.
func (r *Runner) rampDelay(id int) time.Duration {
	if r.cfg.RampUp <= 0 {
		return 0
	}
	return time.Duration(int64(r.cfg.RampUp) * int64(id) / int64(r.cfg.Users))
}

// user is the loop of one virtual user.
func (r *Runner) user(ctx context.Context, abort context.CancelFunc, id int, delay time.Duration) {
	if delay > 0 && !sleep(ctx, delay) {
		return
	}

	client, err := r.factory()
	if err != nil {
		r.mu.Lock()
		if r.startErr == nil {
			r.startErr = fmt.Errorf("create client for user %d: %w", id, err)
		}
		r.mu.Unlock()
		abort()
		return
	}
	defer client.Close()

	pacer, _ := NewPacer(r.cfg.Wait, time.Now().UnixNano()+int64(id))

	r.setActive(r.active.Add(1))
	defer func() { r.setActive(r.active.Add(-1)) }()

	for {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}
		}

		if !r.once(ctx, client) {
			return
		}

		if !sleep(ctx, pacer.Next()) {
			return
		}
	}
}

// once sends one request and records it. It returns false when the run
// ended while the request was in flight; that request is not recorded.
func (r *Runner) once(ctx context.Context, client *apiclient.Client) bool {
	r.inFlight.Add(1)
	if r.metrics != nil {
		r.metrics.RequestsInFlight.Inc()
	}
	start := time.Now()
	_, err := client.Request(ctx, r.cfg.Method, r.cfg.Endpoint)
	latency := time.Since(start)
	r.inFlight.Add(-1)
	if r.metrics != nil {
		r.metrics.RequestsInFlight.Dec()
	}

	if err != nil && ctx.Err() != nil {
		return false
	}

	failed := err != nil
	r.recorder.Record(latency, failed)
	if r.metrics != nil {
		r.metrics.RecordRequest(r.cfg.Endpoint, r.cfg.Method, failed, latency.Seconds())
	}
	if failed {
		r.logger.Debug().Err(err).Int("status", apiclient.StatusCode(err)).Msg("request failed")
	}
	return true
}

func (r *Runner) setActive(n int64) {
	if r.metrics != nil {
		r.metrics.ActiveUsers.Set(float64(n))
	}
}

// measureRPS publishes the per-second request count.
func (r *Runner) measureRPS(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count := r.recorder.Tick()
			if r.metrics != nil {
				r.metrics.CurrentRPS.Set(float64(count))
			}
		}
	}
}

// Snapshot is a point-in-time view of a run for live displays.
type Snapshot struct {
	ActiveUsers int
	TargetUsers int
	InFlight    int64
	Elapsed     time.Duration
	Duration    time.Duration
	Healthy     bool
	Done        bool
	Summary     Summary
}

// Snapshot returns the current state of the run. Safe for concurrent use.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	startedAt := r.startedAt
	r.mu.Unlock()

	var elapsed time.Duration
	if !startedAt.IsZero() {
		elapsed = time.Since(startedAt)
		if elapsed > r.cfg.Duration {
			elapsed = r.cfg.Duration
		}
	}

	healthy := true
	if r.prober != nil {
		healthy = r.prober.Healthy()
	}

	return Snapshot{
		ActiveUsers: int(r.active.Load()),
		TargetUsers: r.cfg.Users,
		InFlight:    r.inFlight.Load(),
		Elapsed:     elapsed,
		Duration:    r.cfg.Duration,
		Healthy:     healthy,
		Done:        r.done.Load(),
		Summary:     r.recorder.Summary(),
	}
}

// sleep waits for d or until ctx is done; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
