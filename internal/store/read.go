package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/syndicate/internal/model"
)

const responseColumns = `key, type, source_key, activity_json, response_json, status, created_at, updated_at`

const sourceColumns = `key, kind, short_name, name, last_polled, created_at, updated_at`

// ReadResponse retrieves a single response by key.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) ReadResponse(ctx context.Context, key string) (model.Response, error) {
	return readResponse(ctx, s.db, key)
}

func readResponse(ctx context.Context, q queryer, key string) (model.Response, error) {
	row := q.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM responses WHERE key = ?`, key)
	resp, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Response{}, fmt.Errorf("response %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return model.Response{}, err
	}
	return resp, nil
}

// ListResponses returns responses ordered by key. An empty sourceKey lists
// every response.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListResponses(ctx context.Context, sourceKey string) ([]model.Response, error) {
	query := `SELECT ` + responseColumns + ` FROM responses`
	var args []any
	if sourceKey != "" {
		query += ` WHERE source_key = ?`
		args = append(args, sourceKey)
	}
	query += ` ORDER BY key COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return responses, nil
}

// CountResponses returns the number of stored responses.
func (s *Store) CountResponses(ctx context.Context) (int, error) {
	return s.count(ctx, "responses")
}

// ReadSource retrieves a single source by key.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) ReadSource(ctx context.Context, key string) (model.Source, error) {
	return readSource(ctx, s.db, key)
}

func readSource(ctx context.Context, q queryer, key string) (model.Source, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE key = ?`, key)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Source{}, fmt.Errorf("source %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return model.Source{}, err
	}
	return src, nil
}

// ListSources returns every source ordered by key.
func (s *Store) ListSources(ctx context.Context) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY key COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	sources := []model.Source{}
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

// CountSources returns the number of stored sources.
func (s *Store) CountSources(ctx context.Context) (int, error) {
	return s.count(ctx, "sources")
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanResponse(row scanner) (model.Response, error) {
	var (
		resp                 model.Response
		respType             string
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&resp.Key,
		&respType,
		&resp.SourceKey,
		&resp.ActivityJSON,
		&resp.ResponseJSON,
		&resp.Status,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Response{}, err
	}
	if err != nil {
		return model.Response{}, fmt.Errorf("scan response: %w", err)
	}
	resp.Type = model.ResponseType(respType)
	resp.CreatedAt = fromNanos(createdAt)
	resp.UpdatedAt = fromNanos(updatedAt)
	return resp.MarkSaved(), nil
}

func scanSource(row scanner) (model.Source, error) {
	var (
		src                              model.Source
		lastPolled, createdAt, updatedAt int64
	)
	err := row.Scan(
		&src.Key,
		&src.Kind,
		&src.ShortName,
		&src.Name,
		&lastPolled,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Source{}, err
	}
	if err != nil {
		return model.Source{}, fmt.Errorf("scan source: %w", err)
	}
	src.LastPolled = fromNanos(lastPolled)
	src.CreatedAt = fromNanos(createdAt)
	src.UpdatedAt = fromNanos(updatedAt)
	return src, nil
}
