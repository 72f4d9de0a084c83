package timeoutcache

import (
	"context"
	"time"

	"github.com/aristath/chronotrader/internal/events"
	"github.com/rs/zerolog"
)

// WithTimeout submits fn to pool and waits up to timeout for a result. If
// the deadline elapses first, it cancels best-effort and returns
// fallback()'s value instead — it never returns an error to the caller, and
// it never retries silently (spec.md §4.1, §7).
func WithTimeout[T any](ctx context.Context, pool *Pool, log zerolog.Logger, em *events.Manager, functionID string, timeout time.Duration, fn func(context.Context) (T, error), fallback func() T) T {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := pool.submit(callCtx, func() (interface{}, error) {
		return fn(callCtx)
	})

	select {
	case r := <-ch:
		if r.err != nil {
			log.Warn().Err(r.err).Str("function_id", functionID).Msg("timeoutcache: call failed, using fallback")
			em.Emit("timeoutcache", &events.CacheFallbackData{FunctionID: functionID, TimeoutS: timeout.Seconds()})
			return fallback()
		}
		v, _ := r.value.(T)
		return v
	case <-callCtx.Done():
		log.Warn().Str("function_id", functionID).Dur("timeout", timeout).Msg("timeoutcache: deadline exceeded, using fallback")
		em.Emit("timeoutcache", &events.CacheFallbackData{FunctionID: functionID, TimeoutS: timeout.Seconds()})
		return fallback()
	}
}
