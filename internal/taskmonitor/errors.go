package taskmonitor

import "fmt"

// TaskAlreadyCompleted is raised by StartTask when a checkpoint already
// exists in the COMPLETED state for task_id (spec.md §4.3: "if one already
// exists with COMPLETED, refuses").
type TaskAlreadyCompleted struct {
	TaskID string
}

func (e *TaskAlreadyCompleted) Error() string {
	return fmt.Sprintf("taskmonitor: task %q already completed", e.TaskID)
}

// CheckpointCorrupt is raised when a checkpoint file exists but fails to
// parse as JSON — a fatal condition per spec.md §7 ("unrecoverable ...
// corruption"); the caller must not silently treat it as "no checkpoint".
type CheckpointCorrupt struct {
	TaskID string
	Cause  error
}

func (e *CheckpointCorrupt) Error() string {
	return fmt.Sprintf("taskmonitor: checkpoint for task %q is corrupt: %v", e.TaskID, e.Cause)
}
func (e *CheckpointCorrupt) Unwrap() error { return e.Cause }
