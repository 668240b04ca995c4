package loadtest

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/notesprobe/internal/config"
)

// Pacer decides how long a virtual user waits between two requests.
// A Pacer belongs to one user and is not safe for concurrent use.
type Pacer interface {
	Next() time.Duration
}

// NewPacer builds the pacer for wait with its own random source.
func NewPacer(wait config.Wait, seed int64) (Pacer, error) {
	rng := rand.New(rand.NewSource(seed))
	switch wait.Mode {
	case config.WaitConstant:
		return constantPacer(wait.Min), nil
	case config.WaitBetween, "":
		return &betweenPacer{min: wait.Min, max: wait.Max, rng: rng}, nil
	case config.WaitPoisson:
		return &poissonPacer{mean: (wait.Min + wait.Max) / 2, rng: rng}, nil
	default:
		return nil, fmt.Errorf("unknown wait mode %q", wait.Mode)
	}
}

type constantPacer time.Duration

func (c constantPacer) Next() time.Duration { return time.Duration(c) }

// betweenPacer waits a uniformly distributed time in [min, max].
type betweenPacer struct {
	min, max time.Duration
	rng      *rand.Rand
}

func (b *betweenPacer) Next() time.Duration {
	if b.max <= b.min {
		return b.min
	}
	return b.min + time.Duration(b.rng.Int63n(int64(b.max-b.min)+1))
}

// poissonPacer spaces requests as a Poisson process with the given mean
// inter-arrival time. Samples are capped at ten times the mean.
type poissonPacer struct {
	mean time.Duration
	rng  *rand.Rand
}

// Next uses inverse transform sampling: t = -ln(U) * mean.
func (p *poissonPacer) Next() time.Duration {
	if p.mean <= 0 {
		return 0
	}
	u := p.rng.Float64()
	if u == 0 {
		u = 1e-10 // Avoid log(0)
	}
	interval := -math.Log(u) * float64(p.mean)
	if limit := 10 * float64(p.mean); interval > limit {
		interval = limit
	}
	return time.Duration(interval)
}
