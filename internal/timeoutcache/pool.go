// Package timeoutcache implements the Timeout/Cache Wrapper (spec.md §4.1):
// a process-wide worker pool that enforces a hard deadline on every blocking
// external call, fronted by a TTL+LRU memory tier backed by a persistent
// disk tier. The wrapper never returns an error to its caller — a deadline
// miss resolves to a typed fallback, logged and swallowed (spec.md §7).
package timeoutcache

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/load"
	"golang.org/x/time/rate"

	"github.com/aristath/chronotrader/pkg/logger"
)

// Pool is the single process-wide worker pool backing WithTimeout. One Pool
// is created on first use and torn down at process exit (spec.md §9's
// "global mutable state" note); callers normally share the package-level
// default via Default().
type Pool struct {
	log     zerolog.Logger
	sem     chan struct{}
	limiter *rate.Limiter
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the process-wide default Pool, sized to 4x CPU cores,
// created once lazily.
func Default(log zerolog.Logger) *Pool {
	defaultOnce.Do(func() {
		defaultPool = NewPool(log, 4*runtime.NumCPU())
	})
	return defaultPool
}

// NewPool builds a worker pool with size concurrent slots and a token-bucket
// limiter that throttles dispatch to size calls/second with a matching
// burst, so a flood of cache misses cannot hammer a slow external adapter
// (grounded on AlejandroRuiz99-polybot's rate-limited HTTP client).
func NewPool(log zerolog.Logger, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		log:     logger.Component(log, "timeoutcache.pool"),
		sem:     make(chan struct{}, size),
		limiter: rate.NewLimiter(rate.Limit(size), size),
	}
}

// Capacity reports the pool's configured concurrency, reduced by the
// integer part of the current 1-minute host load average (gopsutil), down
// to a floor of 1. It is advisory telemetry — actual slot count
// never changes mid-flight, which would risk deadlocking in-flight work.
func (p *Pool) Capacity() int {
	size := cap(p.sem)
	avg, err := load.Avg()
	if err != nil {
		return size
	}
	if reduced := size - int(avg.Load1); reduced >= 1 {
		return reduced
	}
	return 1
}

// result carries a callable's outcome back across a goroutine boundary.
type result struct {
	value interface{}
	err   error
}

// submit runs fn on a pooled goroutine, respecting both the rate limiter and
// ctx cancellation while waiting for a free slot. It returns a channel that
// receives exactly one result once fn completes (or errPoolUnavailable if
// ctx is done first).
func (p *Pool) submit(ctx context.Context, fn func() (interface{}, error)) <-chan result {
	out := make(chan result, 1)

	if err := p.limiter.Wait(ctx); err != nil {
		out <- result{err: errPoolUnavailable}
		return out
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		out <- result{err: errPoolUnavailable}
		return out
	}

	go func() {
		defer func() { <-p.sem }()
		v, err := fn()
		out <- result{value: v, err: err}
	}()
	return out
}
