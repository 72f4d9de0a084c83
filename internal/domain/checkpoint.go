package domain

import "time"

// TaskStatus is a TaskCheckpoint's lifecycle state.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "RUNNING"
	TaskPaused    TaskStatus = "PAUSED"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
)

// TaskCheckpoint is the durable record of a long-running task's progress
// (spec.md §3, §4.3). A checkpoint with CompletedSteps = k guarantees steps
// 1..k have been committed (invariant I5); resume starts at k+1.
type TaskCheckpoint struct {
	TaskID         string                 `json:"task_id"`
	TaskType       string                 `json:"task_type"`
	Status         TaskStatus             `json:"status"`
	CurrentStep    string                 `json:"current_step"`
	CompletedSteps int                    `json:"completed_steps"`
	TotalSteps     int                    `json:"total_steps"`
	Metadata       map[string]interface{} `json:"metadata"`
	LastError      string                 `json:"last_error,omitempty"`
	UpdatedAt      time.Time              `json:"updated_at"`
}
