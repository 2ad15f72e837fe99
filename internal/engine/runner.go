package engine

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Ticker advances a world by one day. *World satisfies it.
type Ticker interface {
	Tick() TickResult
}

// Speed is a named runner interval.
type Speed struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	IntervalMS int64  `json:"interval_ms"`
}

func (s Speed) Interval() time.Duration {
	return time.Duration(s.IntervalMS) * time.Millisecond
}

// DefaultSpeed is used for unknown speed keys.
const DefaultSpeed = "1_day"

// Speeds lists the named runner speeds.
var Speeds = []Speed{
	{Key: "1_day", Name: "1 Day", IntervalMS: 1000},
	{Key: "1_month", Name: "1 Month", IntervalMS: 125},
}

// SpeedInterval returns the interval for key, falling back to DefaultSpeed.
func SpeedInterval(key string) time.Duration {
	for _, s := range Speeds {
		if s.Key == key {
			return s.Interval()
		}
	}
	return Speeds[0].Interval()
}

// Runner ticks a world on a timer in a background goroutine. At most one
// loop runs per Runner. A Runner that becomes unreachable while running is
// stopped automatically.
type Runner struct {
	r *runner
}

type runner struct {
	mu      sync.Mutex // serializes Start and Stop
	running atomic.Bool
	quit    chan struct{}
	done    chan struct{}
}

// NewRunner creates a stopped runner.
func NewRunner() *Runner {
	h := &Runner{r: &runner{}}
	runtime.AddCleanup(h, func(r *runner) { r.stop() }, h.r)
	return h
}

// Start begins ticking t every interval, calling onTick after each tick with
// the world lock released. It returns false and logs a warning if the runner
// is already going. onTick must not call Stop.
func (h *Runner) Start(t Ticker, interval time.Duration, onTick func(TickResult)) bool {
	return h.r.start(t, interval, onTick)
}

// Stop ends the loop and waits for it to exit. No tick starts after Stop
// returns. Stopping a stopped runner does nothing.
func (h *Runner) Stop() {
	h.r.stop()
}

// IsRunning reports whether the loop is active.
func (h *Runner) IsRunning() bool {
	return h.r.running.Load()
}

func (r *runner) start(t Ticker, interval time.Duration, onTick func(TickResult)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running.Load() {
		slog.Warn("calendar runner already running")
		return false
	}

	r.quit = make(chan struct{})
	r.done = make(chan struct{})
	r.running.Store(true)
	slog.Info("calendar runner started", "interval", interval)

	go loop(t, interval, onTick, r.quit, r.done)
	return true
}

func (r *runner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running.Load() {
		return
	}
	close(r.quit)
	<-r.done
	r.running.Store(false)
	slog.Info("calendar runner stopped")
}

// loop only references the channels so the owning Runner can be collected.
func loop(t Ticker, interval time.Duration, onTick func(TickResult), quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-quit:
			return
		default:
		}

		res := t.Tick()
		if onTick != nil {
			onTick(res)
		}

		timer.Reset(interval)
		select {
		case <-quit:
			return
		case <-timer.C:
		}
	}
}
