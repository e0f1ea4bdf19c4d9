package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/syndicate/internal/model"
)

const taskColumns = `id, queue, url, params, attempts, next_run_at, created_at`

// DeadTask is a task that exhausted its attempts or failed permanently.
type DeadTask struct {
	model.Task
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Enqueue adds a task to its queue. A zero NextRunAt schedules it now.
// Returns the task with ID, CreatedAt and NextRunAt filled in.
func (s *Store) Enqueue(ctx context.Context, task model.Task) (model.Task, error) {
	return enqueue(ctx, s.db, task, s.clock())
}

func enqueue(ctx context.Context, db execer, task model.Task, now time.Time) (model.Task, error) {
	if strings.TrimSpace(task.Queue) == "" || strings.TrimSpace(task.URL) == "" {
		return model.Task{}, fmt.Errorf("enqueue: queue and url are required")
	}
	params, err := marshalParams(task.Params)
	if err != nil {
		return model.Task{}, fmt.Errorf("enqueue: %w", err)
	}

	next := task.NextRunAt
	if next.IsZero() {
		next = now
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO tasks (queue, url, params, attempts, next_run_at, created_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`, task.Queue, task.URL, params, toNanos(next), toNanos(now))
	if err != nil {
		return model.Task{}, fmt.Errorf("enqueue %s: %w", task.Queue, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Task{}, fmt.Errorf("enqueue %s: last insert id: %w", task.Queue, err)
	}

	task.ID = id
	task.Attempts = 0
	task.NextRunAt = next.UTC()
	task.CreatedAt = now
	return task, nil
}

// ListTasks returns pending tasks in enqueue order. An empty queue name
// lists every queue.
func (s *Store) ListTasks(ctx context.Context, queue string) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if queue != "" {
		query += ` WHERE queue = ?`
		args = append(args, queue)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// CountTasks returns the number of pending tasks in queue.
func (s *Store) CountTasks(ctx context.Context, queue string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE queue = ?`, queue).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// FetchReady leases up to limit tasks of queue that are due now, pushing
// their next_run_at forward by lockAhead so other workers skip them.
//
// The returned tasks carry the lease in NextRunAt; pass it back to
// CompleteTask, FailTask or DeadLetterTask.
func (s *Store) FetchReady(ctx context.Context, queue string, limit int, lockAhead time.Duration) ([]model.Task, error) {
	if limit <= 0 {
		return nil, nil
	}
	if lockAhead <= 0 {
		lockAhead = 30 * time.Second
	}

	now := s.clock()
	lease := now.Add(lockAhead)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch ready: begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE queue = ? AND next_run_at <= ?
		ORDER BY next_run_at ASC, id ASC
		LIMIT ?
	`, queue, toNanos(now), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch ready: query: %w", err)
	}

	var picked []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		picked = append(picked, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("fetch ready: iterate: %w", err)
	}
	rows.Close()

	for i := range picked {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET next_run_at = ? WHERE id = ?`, toNanos(lease), picked[i].ID); err != nil {
			return nil, fmt.Errorf("fetch ready: lease task %d: %w", picked[i].ID, err)
		}
		picked[i].NextRunAt = lease
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("fetch ready: commit: %w", err)
	}
	return picked, nil
}

// CompleteTask removes a finished task. It is lease-safe: nothing happens if
// the task was re-leased since leaseUntil was handed out.
func (s *Store) CompleteTask(ctx context.Context, id int64, leaseUntil time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks WHERE id = ? AND next_run_at = ?
	`, id, toNanos(leaseUntil))
	if err != nil {
		return fmt.Errorf("complete task %d: %w", id, err)
	}
	return nil
}

// FailTask counts a failed attempt and reschedules the task after backoff.
func (s *Store) FailTask(ctx context.Context, id int64, leaseUntil time.Time, backoff time.Duration) error {
	if backoff <= 0 {
		backoff = 30 * time.Second
	}
	next := s.clock().Add(backoff)
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET attempts = attempts + 1, next_run_at = ?
		WHERE id = ? AND next_run_at = ?
	`, toNanos(next), id, toNanos(leaseUntil))
	if err != nil {
		return fmt.Errorf("fail task %d: %w", id, err)
	}
	return nil
}

// DeadLetterTask moves a task into dead_tasks and deletes it from tasks
// so the runnable queue stays small.
//
// This is lease-safe: the task is deleted only if next_run_at matches leaseUntil.
func (s *Store) DeadLetterTask(ctx context.Context, t model.Task, leaseUntil time.Time, cause error) error {
	if cause == nil {
		cause = fmt.Errorf("unknown error")
	}
	params, err := marshalParams(t.Params)
	if err != nil {
		return fmt.Errorf("dead letter task %d: %w", t.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dead letter task %d: begin tx: %w", t.ID, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM tasks WHERE id = ? AND next_run_at = ?
	`, t.ID, toNanos(leaseUntil))
	if err != nil {
		return fmt.Errorf("dead letter task %d: delete: %w", t.ID, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("dead letter task %d: rows affected: %w", t.ID, err)
	} else if n == 0 {
		// Lease lost; whoever holds it now owns the outcome.
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dead_tasks (id, queue, url, params, attempts, error, created_at, failed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			attempts = excluded.attempts,
			error = excluded.error,
			failed_at = excluded.failed_at
	`, t.ID, t.Queue, t.URL, params, t.Attempts, cause.Error(), toNanos(t.CreatedAt), toNanos(s.clock()))
	if err != nil {
		return fmt.Errorf("dead letter task %d: insert: %w", t.ID, err)
	}

	return tx.Commit()
}

// ListDeadTasks returns dead-lettered tasks ordered by id.
func (s *Store) ListDeadTasks(ctx context.Context) ([]DeadTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, queue, url, params, attempts, error, created_at, failed_at
		FROM dead_tasks ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query dead tasks: %w", err)
	}
	defer rows.Close()

	dead := []DeadTask{}
	for rows.Next() {
		var (
			d                   DeadTask
			params              string
			createdAt, failedAt int64
		)
		if err := rows.Scan(&d.ID, &d.Queue, &d.URL, &params, &d.Attempts, &d.Error, &createdAt, &failedAt); err != nil {
			return nil, fmt.Errorf("scan dead task: %w", err)
		}
		if d.Params, err = unmarshalParams(params); err != nil {
			return nil, err
		}
		d.CreatedAt = fromNanos(createdAt)
		d.FailedAt = fromNanos(failedAt)
		dead = append(dead, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead tasks: %w", err)
	}
	return dead, nil
}

func scanTask(row scanner) (model.Task, error) {
	var (
		t                  model.Task
		params             string
		nextRun, createdAt int64
	)
	if err := row.Scan(&t.ID, &t.Queue, &t.URL, &params, &t.Attempts, &nextRun, &createdAt); err != nil {
		return model.Task{}, fmt.Errorf("scan task: %w", err)
	}
	var err error
	if t.Params, err = unmarshalParams(params); err != nil {
		return model.Task{}, err
	}
	t.NextRunAt = fromNanos(nextRun)
	t.CreatedAt = fromNanos(createdAt)
	return t, nil
}
