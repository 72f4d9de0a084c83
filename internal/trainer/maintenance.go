package trainer

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/taskmonitor"
	"github.com/aristath/chronotrader/internal/timeoutcache"
	"github.com/aristath/chronotrader/pkg/logger"
)

// staleCheckpointAge is how long a non-COMPLETED checkpoint can go without
// an update before the maintenance sweep logs it as stale. The sweep never
// deletes a checkpoint itself — only FAILED/abandoned runs are surfaced for
// an operator to clear, since deleting silently would violate invariant I5
// (resume must be possible for any retained checkpoint).
const staleCheckpointAge = 72 * time.Hour

// Maintenance runs the trainer's periodic housekeeping job: disk-cache GC
// and a stale-checkpoint sweep, scheduled with robfig/cron/v3 the same way
// the teacher's internal/scheduler drives background jobs.
type Maintenance struct {
	cron    *cron.Cron
	disk    *timeoutcache.DiskTier
	monitor *taskmonitor.Monitor
	store   *taskmonitor.CheckpointStore
	log     zerolog.Logger
}

// NewMaintenance builds a Maintenance job. disk may be nil to skip cache GC.
func NewMaintenance(disk *timeoutcache.DiskTier, store *taskmonitor.CheckpointStore, log zerolog.Logger) *Maintenance {
	return &Maintenance{
		cron:  cron.New(cron.WithSeconds()),
		disk:  disk,
		store: store,
		log:   logger.Component(log, "trainer.maintenance"),
	}
}

// Start registers the housekeeping job on schedule (cron spec, e.g.
// "0 0 * * * *" for hourly) and starts the scheduler.
func (m *Maintenance) Start(schedule string) error {
	if _, err := m.cron.AddFunc(schedule, m.runOnce); err != nil {
		return err
	}
	m.cron.Start()
	m.log.Info().Str("schedule", schedule).Msg("trainer: maintenance scheduled")
	return nil
}

// Stop drains in-flight runs and stops the scheduler.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

func (m *Maintenance) runOnce() {
	if m.disk != nil {
		n, err := m.disk.GCExpired()
		if err != nil {
			m.log.Error().Err(err).Msg("trainer: disk cache GC failed")
		} else {
			m.log.Debug().Int64("expired", n).Msg("trainer: disk cache GC complete")
		}
	}

	checkpoints, err := m.store.List()
	if err != nil {
		m.log.Error().Err(err).Msg("trainer: checkpoint sweep failed to list checkpoints")
		return
	}
	stale := 0
	for _, cp := range checkpoints {
		if cp.Status == domain.TaskCompleted {
			continue
		}
		if time.Since(cp.UpdatedAt) > staleCheckpointAge {
			stale++
			m.log.Warn().Str("task_id", cp.TaskID).Time("updated_at", cp.UpdatedAt).Msg("trainer: stale checkpoint found, manual review recommended")
		}
	}
	if stale > 0 {
		m.log.Info().Int("stale_count", stale).Msg("trainer: checkpoint sweep complete")
	}
}
