package model

import "time"

// TaskStatus is the lifecycle state of a persisted asynchronous
// scheduling job: PENDING → PROCESSING → (COMPLETED ∨ FAILED).
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskProcessing TaskStatus = "PROCESSING"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// Task is a persisted asynchronous scheduling job.
type Task struct {
	ID           int64  // internal row id, used for atomic claim/update
	TaskID       string // external UUID, used for client-facing lookup
	RequestBody  []byte
	Status       TaskStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ErrorMessage *string
	ResponseBody []byte
}
