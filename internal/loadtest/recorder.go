package loadtest

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1µs to 5 minutes at 3 significant digits.
const (
	minTrackable = 1
	maxTrackable = int64(5 * time.Minute / time.Microsecond)
	sigFigs      = 3
)

// Recorder accumulates request outcomes for the whole run plus a rolling
// one-second count used for the live RPS figure.
type Recorder struct {
	mu sync.Mutex

	hist     *hdrhistogram.Histogram
	total    int64
	failures int64
	sum      time.Duration
	max      time.Duration

	started time.Time
	stopped time.Time

	window     int64
	lastWindow int64

	now func() time.Time
}

// NewRecorder creates an empty recorder whose clock starts now.
func NewRecorder() *Recorder {
	return newRecorder(time.Now)
}

func newRecorder(now func() time.Time) *Recorder {
	return &Recorder{
		hist:    hdrhistogram.New(minTrackable, maxTrackable, sigFigs),
		started: now(),
		now:     now,
	}
}

// begin restarts the clock; called when a run starts.
func (r *Recorder) begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = r.now()
	r.stopped = time.Time{}
}

// Record adds one request. Failed requests count toward latency too.
func (r *Recorder) Record(latency time.Duration, failed bool) {
	us := latency.Microseconds()
	if us < minTrackable {
		us = minTrackable
	}
	if us > maxTrackable {
		us = maxTrackable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_ = r.hist.RecordValue(us)
	r.total++
	r.sum += latency
	if latency > r.max {
		r.max = latency
	}
	if failed {
		r.failures++
	}
	r.window++
}

// Tick closes the current one-second window and returns its count.
func (r *Recorder) Tick() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastWindow = r.window
	r.window = 0
	return r.lastWindow
}

// Stop freezes the elapsed time used by Summary.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped.IsZero() {
		r.stopped = r.now()
	}
}

// Summary returns the aggregated statistics.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := r.stopped
	if end.IsZero() {
		end = r.now()
	}
	elapsed := end.Sub(r.started)

	s := Summary{
		TotalRequests: r.total,
		Failures:      r.failures,
		Max:           r.max,
		Elapsed:       elapsed,
		CurrentRPS:    float64(r.lastWindow),
	}
	if r.total == 0 {
		return s
	}

	s.SuccessRate = (1 - float64(r.failures)/float64(r.total)) * 100
	s.AvgLatency = r.sum / time.Duration(r.total)
	s.P50 = usToDuration(r.hist.ValueAtQuantile(50))
	s.P95 = usToDuration(r.hist.ValueAtQuantile(95))
	s.P99 = usToDuration(r.hist.ValueAtQuantile(99))
	if elapsed > 0 {
		s.RPS = float64(r.total) / elapsed.Seconds()
	}
	return s
}

func usToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
