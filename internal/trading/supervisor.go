package trading

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/chronotrader/internal/events"
	"github.com/aristath/chronotrader/pkg/logger"
)

// heartbeatGrace is the additional slack added to 2*interval before the
// supervisor considers the worker dead (spec.md §4.4.5: "now -
// last_heartbeat > 2N + grace").
const heartbeatGrace = 5 * time.Second

// SupervisorStatus is the watchdog's externally-visible state.
type SupervisorStatus string

const (
	SupervisorRunning SupervisorStatus = "RUNNING"
	SupervisorStopped SupervisorStatus = "STOPPED"
)

// Supervisor is the dedicated watchdog thread from spec.md §4.4.5: it
// samples a heartbeat the trading loop publishes every interval, and
// restarts a dead worker up to maxRestarts times before giving up and
// requiring manual intervention. Modeled on the teacher's work.Processor
// Run/Stop/Trigger idiom (internal/work/processor.go), generalized from a
// single work queue to a restart-bounded heartbeat watchdog.
type Supervisor struct {
	id          string
	interval    time.Duration
	maxRestarts int
	runWorker   func(ctx context.Context) error
	events      *events.Manager
	metrics     *Metrics
	log         zerolog.Logger

	mu           sync.Mutex
	lastHeartbeat time.Time
	restartCount int
	status       SupervisorStatus
	lastError    string

	stop    chan struct{}
	stopped chan struct{}
}

// NewSupervisor builds a Supervisor watching a worker started by runWorker.
// runWorker is expected to call Supervisor.Heartbeat periodically and
// return when its context is cancelled or it fails.
func NewSupervisor(id string, interval time.Duration, maxRestarts int, runWorker func(ctx context.Context) error, em *events.Manager, metrics *Metrics, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		id:          id,
		interval:    interval,
		maxRestarts: maxRestarts,
		runWorker:   runWorker,
		events:      em,
		metrics:     metrics,
		log:         logger.Component(log, "trading.supervisor"),
		status:      SupervisorRunning,
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Heartbeat records that the trading loop is alive. Called by the worker
// itself from inside runWorker.
func (s *Supervisor) Heartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat = time.Now()
}

// Status returns the supervisor's current status, restart count, and last
// recorded error (for CLI/status reporting).
func (s *Supervisor) Status() (SupervisorStatus, int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.restartCount, s.lastError
}

// Run starts the worker and watches its heartbeat until Stop is called or
// the restart ceiling is reached. Blocks until the supervisor stops.
func (s *Supervisor) Run(ctx context.Context) {
	defer close(s.stopped)

	var workerDone atomic.Bool
	var workerErr atomic.Value

	startWorker := func() {
		workerDone.Store(false)
		s.Heartbeat()
		go func() {
			err := s.runWorker(ctx)
			if err != nil {
				workerErr.Store(err.Error())
			}
			workerDone.Store(true)
		}()
	}

	startWorker()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			elapsed := time.Since(s.lastHeartbeat)
			dead := workerDone.Load() || elapsed > 2*s.interval+heartbeatGrace
			s.mu.Unlock()
			if !dead {
				continue
			}

			s.mu.Lock()
			if s.restartCount >= s.maxRestarts {
				s.status = SupervisorStopped
				if errVal, ok := workerErr.Load().(string); ok {
					s.lastError = errVal
				} else {
					s.lastError = "heartbeat timeout"
				}
				s.mu.Unlock()
				s.log.Error().Int("restart_count", s.restartCount).Msg("trading: supervisor reached max restarts, stopping (manual intervention required)")
				return
			}
			s.restartCount++
			restartCount := s.restartCount
			lastErr := ""
			if errVal, ok := workerErr.Load().(string); ok {
				lastErr = errVal
			}
			s.mu.Unlock()

			s.log.Warn().Int("restart_count", restartCount).Msg("trading: worker heartbeat stale, restarting")
			if s.events != nil {
				s.events.Emit("trading.supervisor", &events.StrategyRestartedData{
					StrategyID:   s.id,
					RestartCount: restartCount,
					LastError:    lastErr,
				})
			}
			if s.metrics != nil {
				s.metrics.Restarts.Inc()
			}
			startWorker()
		}
	}
}

// Stop signals the supervisor loop to exit and waits for it to do so.
func (s *Supervisor) Stop() {
	close(s.stop)
	<-s.stopped
}
