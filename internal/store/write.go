package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/syndicate/internal/model"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteResponseAtomic persists resp and enqueues task in a single transaction,
// but only if no response with the same key exists yet.
//
// Returns:
//   - the canonical persisted response (new or pre-existing)
//   - inserted: true if this call created the response and enqueued task
//   - error: any error that occurred
//
// If inserted=false the stored response is returned untouched and task is
// NOT written. This is the crash-safe variant of the non-atomic sequence
// ReadResponse → insert → Enqueue.
func (s *Store) WriteResponseAtomic(
	ctx context.Context,
	resp model.Response,
	task model.Task,
) (saved model.Response, inserted bool, err error) {
	if resp.Key == "" {
		return model.Response{}, false, fmt.Errorf("atomic response write: empty key")
	}

	now := s.clock()
	status := resp.Status
	if status == "" {
		status = model.StatusNew
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Response{}, false, fmt.Errorf("atomic response write: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Step 1: Try to insert the response (claims the key via the primary key)
	result, err := tx.ExecContext(ctx, `
		INSERT INTO responses
		(key, type, source_key, activity_json, response_json, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`,
		resp.Key,
		string(resp.Type),
		resp.SourceKey,
		resp.ActivityJSON,
		resp.ResponseJSON,
		status,
		toNanos(now),
		toNanos(now),
	)
	if err != nil {
		return model.Response{}, false, fmt.Errorf("atomic response write: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.Response{}, false, fmt.Errorf("atomic response write: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Conflict - response already exists, nothing more to do
		saved, err = readResponse(ctx, tx, resp.Key)
		if err != nil {
			return model.Response{}, false, fmt.Errorf("atomic response write: select existing: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return model.Response{}, false, fmt.Errorf("atomic response write: commit (existing): %w", err)
		}
		return saved, false, nil
	}

	// Step 2: Enqueue the follow-on task
	if _, err := enqueue(ctx, tx, task, now); err != nil {
		return model.Response{}, false, fmt.Errorf("atomic response write: %w", err)
	}

	saved, err = readResponse(ctx, tx, resp.Key)
	if err != nil {
		return model.Response{}, false, fmt.Errorf("atomic response write: select new: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Response{}, false, fmt.Errorf("atomic response write: commit: %w", err)
	}

	return saved, true, nil
}

// UpsertSourceAtomic creates src, or refreshes the stored source with the
// same key, and enqueues the task built from the stored result. Both writes
// share one transaction, so a task is enqueued on every call.
//
// Refreshing updates kind, short name, name and updated_at. LastPolled and
// CreatedAt of an existing source are preserved.
func (s *Store) UpsertSourceAtomic(
	ctx context.Context,
	src model.Source,
	build func(model.Source) model.Task,
) (saved model.Source, created bool, err error) {
	if src.Key == "" {
		return model.Source{}, false, fmt.Errorf("atomic source upsert: empty key")
	}

	now := s.clock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Source{}, false, fmt.Errorf("atomic source upsert: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = readSource(ctx, tx, src.Key)
	switch {
	case errors.Is(err, ErrNotFound):
		created = true
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sources
			(key, kind, short_name, name, last_polled, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			src.Key,
			src.Kind,
			src.ShortName,
			src.Name,
			toNanos(src.LastPolled),
			toNanos(now),
			toNanos(now),
		)
		if err != nil {
			return model.Source{}, false, fmt.Errorf("atomic source upsert: insert: %w", err)
		}
	case err != nil:
		return model.Source{}, false, fmt.Errorf("atomic source upsert: select existing: %w", err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE sources
			SET kind = ?, short_name = ?, name = ?, updated_at = ?
			WHERE key = ?
		`,
			src.Kind,
			src.ShortName,
			src.Name,
			toNanos(now),
			src.Key,
		)
		if err != nil {
			return model.Source{}, false, fmt.Errorf("atomic source upsert: update: %w", err)
		}
	}

	saved, err = readSource(ctx, tx, src.Key)
	if err != nil {
		return model.Source{}, false, fmt.Errorf("atomic source upsert: reload: %w", err)
	}

	if build != nil {
		if _, err := enqueue(ctx, tx, build(saved), now); err != nil {
			return model.Source{}, false, fmt.Errorf("atomic source upsert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Source{}, false, fmt.Errorf("atomic source upsert: commit: %w", err)
	}

	return saved, created, nil
}

// MarkPolled records that the source was polled at t.
// Returns ErrNotFound if no source has the key.
func (s *Store) MarkPolled(ctx context.Context, key string, t time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sources SET last_polled = ?, updated_at = ? WHERE key = ?
	`, toNanos(t), toNanos(s.clock()), key)
	if err != nil {
		return fmt.Errorf("mark polled: %w", err)
	}
	return requireRow(result, "mark polled", key)
}

// SetResponseStatus moves a response to status.
// Returns ErrNotFound if no response has the key.
func (s *Store) SetResponseStatus(ctx context.Context, key, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE responses SET status = ?, updated_at = ? WHERE key = ?
	`, status, toNanos(s.clock()), key)
	if err != nil {
		return fmt.Errorf("set response status: %w", err)
	}
	return requireRow(result, "set response status", key)
}

func requireRow(result sql.Result, op, key string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", op, key, ErrNotFound)
	}
	return nil
}
