// Package taskstore is the persistent task queue backing asynchronous
// scheduling requests: insert, atomic claim, update, fetch by id, with
// TTL eviction. Claiming a batch uses a single
// UPDATE ... WHERE id IN (SELECT ... FOR UPDATE SKIP LOCKED) RETURNING
// statement so two
// concurrent dispatchers never grab the same row, instead of a
// multi-statement transaction with row-by-row locking.
package taskstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiva/paratransit-scheduler/internal/model"
)

// ErrDuplicate surfaces a taskId collision on insert. Extremely unlikely
// given uuid.v4, surfaced as a retryable 500.
var ErrDuplicate = errors.New("taskstore: duplicate task id")

// ErrTaskNotFound surfaces a missing task on GetTask or CompleteTask/FailTask.
var ErrTaskNotFound = errors.New("taskstore: task not found")

// Store is the persistent task queue backed by Postgres.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// New wraps an existing pgx pool. ttl configures the TASK_TTL eviction
// window used by PurgeExpired's DELETE ... WHERE updated_at < now() - ttl,
// since Postgres has no native per-row TTL the way a persistent document
// store would. The store does not run that sweep on its own, and nothing
// in this service calls PurgeExpired, so expired rows stay until it is
// invoked.
func New(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

// CreateTask generates a task id and inserts a PENDING row holding
// requestBody, which is already the caller's serialized JSON. Returns the
// new task id.
func (s *Store) CreateTask(ctx context.Context, requestBody []byte) (string, error) {
	taskID := uuid.NewString()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (task_id, request_body, status, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`, taskID, requestBody, model.TaskPending)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("taskstore: create task: %w", err)
	}
	return taskID, nil
}

// GetTask fetches a task by its external taskId.
func (s *Store) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	t := &model.Task{TaskID: taskID}
	var errMsg *string
	var respBody []byte

	err := s.pool.QueryRow(ctx, `
		SELECT id, status, created_at, updated_at, error_message, response_body
		FROM tasks
		WHERE task_id = $1
	`, taskID).Scan(&t.ID, &t.Status, &t.CreatedAt, &t.UpdatedAt, &errMsg, &respBody)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("taskstore: get task %s: %w", taskID, err)
	}
	t.ErrorMessage = errMsg
	t.ResponseBody = respBody
	return t, nil
}

// ClaimBatch atomically selects up to n PENDING tasks, marks them
// PROCESSING, and returns their rows. A single SQL statement does the
// select-and-update in one round trip: FOR UPDATE SKIP LOCKED ensures two
// concurrent dispatchers never claim the same row.
func (s *Store) ClaimBatch(ctx context.Context, n int) ([]*model.Task, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE tasks
		SET status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM tasks
			WHERE status = $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, task_id, request_body, status, created_at, updated_at
	`, model.TaskProcessing, model.TaskPending, n)
	if err != nil {
		return nil, fmt.Errorf("taskstore: claim batch: %w", err)
	}
	defer rows.Close()

	var claimed []*model.Task
	for rows.Next() {
		t := &model.Task{}
		if err := rows.Scan(&t.ID, &t.TaskID, &t.RequestBody, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("taskstore: scan claimed task: %w", err)
		}
		claimed = append(claimed, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskstore: claim batch: %w", err)
	}
	return claimed, nil
}

// CompleteTask marks a claimed task COMPLETED with its serialized result.
func (s *Store) CompleteTask(ctx context.Context, id int64, responseBody []byte) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks SET status = $1, updated_at = now(), response_body = $2
		WHERE id = $3
	`, model.TaskCompleted, responseBody, id)
	if err != nil {
		return fmt.Errorf("taskstore: complete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// FailTask marks a claimed task FAILED with an error message.
func (s *Store) FailTask(ctx context.Context, id int64, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks SET status = $1, updated_at = now(), error_message = $2
		WHERE id = $3
	`, model.TaskFailed, errMsg, id)
	if err != nil {
		return fmt.Errorf("taskstore: fail task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ReclaimAbandoned resets PROCESSING tasks whose updated_at is older than
// threshold back to PENDING: an opt-in liveness sweep for workers that
// claimed a task and died before completing it. A non-positive threshold
// disables it.
func (s *Store) ReclaimAbandoned(ctx context.Context, threshold time.Duration) (int64, error) {
	if threshold <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks
		SET status = $1, updated_at = now()
		WHERE status = $2 AND updated_at < now() - $3::interval
	`, model.TaskPending, model.TaskProcessing, threshold.String())
	if err != nil {
		return 0, fmt.Errorf("taskstore: reclaim abandoned: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeExpired deletes tasks whose updated_at predates the store's TTL —
// the active-eviction counterpart to a persistent-collection TTL index.
// A zero TTL disables purging.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM tasks WHERE updated_at < now() - $1::interval
	`, s.ttl.String())
	if err != nil {
		return 0, fmt.Errorf("taskstore: purge expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RecordRun writes a fire-and-forget audit row after a synchronous
// schedule call. Failures are the caller's to log; they never block the
// response.
func (s *Store) RecordRun(ctx context.Context, requestDate string, vehicleCount, tripCount int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedule_runs (request_date, vehicle_count, trip_count, created_at)
		VALUES ($1, $2, $3, now())
	`, requestDate, vehicleCount, tripCount)
	if err != nil {
		return fmt.Errorf("taskstore: record run: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
