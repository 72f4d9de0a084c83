package taskmonitor

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/events"
	"github.com/aristath/chronotrader/pkg/logger"
)

// Monitor is the Task Monitor (spec.md §4.3): a thin, stateless-except-for-
// the-store wrapper exposing the durable checkpoint lifecycle.
type Monitor struct {
	store  *CheckpointStore
	events *events.Manager
	log    zerolog.Logger
}

// NewMonitor wires a Monitor to an already-opened CheckpointStore.
func NewMonitor(store *CheckpointStore, em *events.Manager, log zerolog.Logger) *Monitor {
	return &Monitor{store: store, events: em, log: logger.Component(log, "taskmonitor")}
}

// StartTask atomically writes an initial RUNNING checkpoint. It refuses if
// a COMPLETED checkpoint already exists for taskID (spec.md §4.3).
func (m *Monitor) StartTask(taskID, taskType string, totalSteps int) (*domain.TaskCheckpoint, error) {
	existing, ok, err := m.store.Read(taskID)
	if err != nil {
		return nil, err
	}
	if ok && existing.Status == domain.TaskCompleted {
		return nil, &TaskAlreadyCompleted{TaskID: taskID}
	}
	if ok {
		// A RUNNING/PAUSED/FAILED checkpoint already exists: StartTask is not
		// the resume path (the trainers resume via ResumeStep), so
		// return the existing record rather than clobbering progress.
		return existing, nil
	}

	cp := domain.TaskCheckpoint{
		TaskID:     taskID,
		TaskType:   taskType,
		Status:     domain.TaskRunning,
		TotalSteps: totalSteps,
		Metadata:   map[string]interface{}{},
		UpdatedAt:  time.Now(),
	}
	if err := m.store.Write(cp); err != nil {
		return nil, err
	}
	m.emit(cp)
	return &cp, nil
}

// UpdateProgress durably records progress before returning (spec.md §4.3).
// metadata is merged into the checkpoint's existing metadata map rather
// than replacing it, so callers can update individual counters without
// re-supplying the whole set.
func (m *Monitor) UpdateProgress(taskID string, currentStep string, completedSteps int, metadata map[string]interface{}) (*domain.TaskCheckpoint, error) {
	cp, ok, err := m.store.Read(taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		cp = &domain.TaskCheckpoint{TaskID: taskID, Status: domain.TaskRunning, Metadata: map[string]interface{}{}}
	}
	cp.CurrentStep = currentStep
	cp.CompletedSteps = completedSteps
	cp.Status = domain.TaskRunning
	cp.UpdatedAt = time.Now()
	if cp.Metadata == nil {
		cp.Metadata = map[string]interface{}{}
	}
	for k, v := range metadata {
		cp.Metadata[k] = v
	}

	if err := m.store.Write(*cp); err != nil {
		return nil, err
	}
	m.emit(*cp)
	return cp, nil
}

// GetCheckpoint returns the latest checkpoint for taskID, or nil if none
// exists (spec.md §4.3: "returns the latest checkpoint or None").
func (m *Monitor) GetCheckpoint(taskID string) (*domain.TaskCheckpoint, error) {
	cp, ok, err := m.store.Read(taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return cp, nil
}

// CompleteTask transitions taskID to COMPLETED.
func (m *Monitor) CompleteTask(taskID string, finalMetadata map[string]interface{}) error {
	cp, ok, err := m.store.Read(taskID)
	if err != nil {
		return err
	}
	if !ok {
		cp = &domain.TaskCheckpoint{TaskID: taskID, Metadata: map[string]interface{}{}}
	}
	cp.Status = domain.TaskCompleted
	cp.CompletedSteps = cp.TotalSteps
	cp.UpdatedAt = time.Now()
	if cp.Metadata == nil {
		cp.Metadata = map[string]interface{}{}
	}
	for k, v := range finalMetadata {
		cp.Metadata[k] = v
	}
	if err := m.store.Write(*cp); err != nil {
		return err
	}
	m.emit(*cp)
	return nil
}

// FailTask transitions taskID to FAILED. The checkpoint (and its
// CompletedSteps progress) is retained, not deleted (spec.md §4.3).
func (m *Monitor) FailTask(taskID string, errorText string) error {
	cp, ok, err := m.store.Read(taskID)
	if err != nil {
		return err
	}
	if !ok {
		cp = &domain.TaskCheckpoint{TaskID: taskID, Metadata: map[string]interface{}{}}
	}
	cp.Status = domain.TaskFailed
	cp.LastError = errorText
	cp.UpdatedAt = time.Now()
	if err := m.store.Write(*cp); err != nil {
		return err
	}
	m.emit(*cp)
	return nil
}

// ResumeStep implements the resume protocol from spec.md §4.3: if a
// non-COMPLETED checkpoint exists, resume at completedSteps+1 with its
// metadata; otherwise start at step 1 with fresh metadata.
func (m *Monitor) ResumeStep(taskID string) (startStep int, metadata map[string]interface{}, err error) {
	cp, err := m.GetCheckpoint(taskID)
	if err != nil {
		return 0, nil, err
	}
	if cp == nil || cp.Status == domain.TaskCompleted {
		return 1, map[string]interface{}{}, nil
	}
	md := cp.Metadata
	if md == nil {
		md = map[string]interface{}{}
	}
	return cp.CompletedSteps + 1, md, nil
}

func (m *Monitor) emit(cp domain.TaskCheckpoint) {
	if m.events == nil {
		return
	}
	m.events.Emit("taskmonitor", &events.CheckpointUpdatedData{
		TaskID:         cp.TaskID,
		CompletedSteps: cp.CompletedSteps,
		TotalSteps:     cp.TotalSteps,
		Status:         string(cp.Status),
	})
}
