// Package ratelimit provides per-partition admission control. The default
// strategy is a fixed-window counter owned by a single Limiter value; an
// alternative token-bucket strategy smooths origin-keyed traffic instead of
// counting whole windows.
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Strategy names accepted by Config.
const (
	StrategyFixedWindow = "fixed_window"
	StrategyTokenBucket = "token_bucket"
)

const (
	DefaultRps           = 10
	DefaultBurst         = 0
	DefaultWindow        = 60 * time.Second
	defaultEvictInterval = time.Minute
)

// Config describes limiter behavior. Rps is the permit count per window,
// Burst an extra allowance beyond the strict limit before rejection.
type Config struct {
	Rps      int
	Burst    int
	Window   time.Duration
	Strategy string
}

func (c Config) withDefaults() Config {
	if c.Rps <= 0 {
		c.Rps = DefaultRps
	}
	if c.Burst < 0 {
		c.Burst = DefaultBurst
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if strings.TrimSpace(c.Strategy) == "" {
		c.Strategy = StrategyFixedWindow
	}
	return c
}

// Limiter decides whether a call keyed by partition is admitted.
type Limiter interface {
	Admit(key string, now time.Time) bool
}

// New builds the limiter selected by Config.Strategy.
func New(cfg Config) Limiter {
	cfg = cfg.withDefaults()
	if cfg.Strategy == StrategyTokenBucket {
		return NewTokenBucket(cfg.Rps, cfg.Burst)
	}
	return NewFixedWindow(cfg.Rps, cfg.Burst, cfg.Window)
}

type window struct {
	mu    sync.Mutex
	start time.Time
	count int
	seen  time.Time
}

// FixedWindow counts admissions per partition within fixed time windows.
// Each partition serializes on its own mutex; partitions never block each
// other. When a window elapses the counter resets (auto replenishment).
type FixedWindow struct {
	mu      sync.RWMutex
	windows map[string]*window

	limit  int
	burst  int
	length time.Duration
	now    func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewFixedWindow constructs the limiter and starts a janitor evicting
// partitions idle for several windows.
func NewFixedWindow(limit, burst int, length time.Duration) *FixedWindow {
	if limit <= 0 {
		limit = DefaultRps
	}
	if burst < 0 {
		burst = 0
	}
	if length <= 0 {
		length = DefaultWindow
	}
	fw := &FixedWindow{
		windows: make(map[string]*window),
		limit:   limit,
		burst:   burst,
		length:  length,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go fw.janitor()
	return fw
}

// WithClock overrides the time source the janitor evicts against, so test
// clocks driving Admit keep eviction consistent. Only intended for tests.
func (fw *FixedWindow) WithClock(fn func() time.Time) *FixedWindow {
	if fn != nil {
		fw.mu.Lock()
		fw.now = fn
		fw.mu.Unlock()
	}
	return fw
}

// Admit reports whether the call keyed by partition is permitted at now.
// Within one window at most limit+burst calls pass; the next is rejected
// until the window rolls over.
func (fw *FixedWindow) Admit(key string, now time.Time) bool {
	w := fw.partition(key, now)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.seen = now
	if now.Sub(w.start) >= fw.length {
		w.start = now
		w.count = 0
	}
	if w.count < fw.limit+fw.burst {
		w.count++
		return true
	}
	return false
}

// Stop terminates the janitor goroutine.
func (fw *FixedWindow) Stop() {
	fw.once.Do(func() { close(fw.stop) })
}

func (fw *FixedWindow) partition(key string, now time.Time) *window {
	fw.mu.RLock()
	w, ok := fw.windows[key]
	fw.mu.RUnlock()
	if ok {
		return w
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if w, ok := fw.windows[key]; ok {
		return w
	}
	w = &window{start: now, seen: now}
	fw.windows[key] = w
	return w
}

func (fw *FixedWindow) janitor() {
	ticker := time.NewTicker(defaultEvictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-fw.stop:
			return
		case <-ticker.C:
			fw.sweep()
		}
	}
}

// sweep evicts partitions idle for several windows, measured against the
// same clock Admit sees.
func (fw *FixedWindow) sweep() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	cutoff := fw.now().Add(-3 * fw.length)
	for key, w := range fw.windows {
		w.mu.Lock()
		idle := w.seen.Before(cutoff)
		w.mu.Unlock()
		if idle {
			delete(fw.windows, key)
		}
	}
}

// TokenBucket wraps one rate.Limiter per partition key.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

// NewTokenBucket constructs a token-bucket limiter admitting rps sustained
// calls per second with the given burst capacity.
func NewTokenBucket(rps, burst int) *TokenBucket {
	if rps <= 0 {
		rps = DefaultRps
	}
	if burst < 1 {
		burst = rps
	}
	return &TokenBucket{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Admit consumes one token from the partition's bucket.
func (tb *TokenBucket) Admit(key string, _ time.Time) bool {
	tb.mu.Lock()
	lim, ok := tb.buckets[key]
	if !ok {
		lim = rate.NewLimiter(tb.rps, tb.burst)
		tb.buckets[key] = lim
	}
	tb.mu.Unlock()
	return lim.Allow()
}
