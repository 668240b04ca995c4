package loadtest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/notesprobe/pkg/apiclient"
)

// Prober polls the target's health check while a run is in progress.
type Prober struct {
	client   *apiclient.Client
	interval time.Duration
	timeout  time.Duration
	metrics  *Metrics
	logger   zerolog.Logger
	healthy  atomic.Bool
	checked  atomic.Bool
}

// NewProber creates a prober that owns client.
func NewProber(client *apiclient.Client, interval, timeout time.Duration, metrics *Metrics, logger zerolog.Logger) *Prober {
	p := &Prober{
		client:   client,
		interval: interval,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
	p.healthy.Store(true)
	return p
}

// Run checks once immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	p.check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *Prober) check(ctx context.Context) {
	_, err := p.client.HealthCheck(ctx, apiclient.WithRequestTimeout(p.timeout))
	if ctx.Err() != nil {
		return
	}
	healthy := err == nil

	prev := p.healthy.Swap(healthy)
	p.checked.Store(true)
	if p.metrics != nil {
		p.metrics.SetTargetHealth(healthy)
	}

	if prev != healthy {
		if healthy {
			p.logger.Info().Msg("target is now healthy")
		} else {
			p.logger.Warn().Err(err).Msg("target is now unhealthy")
		}
	}
}

// Healthy reports the result of the last check; true before the first one.
func (p *Prober) Healthy() bool {
	return p.healthy.Load()
}

// Checked reports whether at least one check has completed.
func (p *Prober) Checked() bool {
	return p.checked.Load()
}
