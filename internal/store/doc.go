// Package store provides SQLite-backed durable storage for syndicate.
//
// The store holds three kinds of records:
//   - Sources: accounts on external services that are polled
//   - Responses: comments and replies discovered on those accounts
//   - Tasks: the propagate/poll work queue, plus a dead-letter table
//
// # Claim-then-enqueue
//
// WriteResponseAtomic and UpsertSourceAtomic write the entity and its
// follow-on task in one transaction. For responses the INSERT claims the
// key through ON CONFLICT(key) DO NOTHING and the task row is written only
// when that insert affected a row, so racing writers of the same new key
// produce exactly one task.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - one open connection (SQLite allows a single writer)
//
// Timestamps are stored as INTEGER Unix nanoseconds in UTC.
package store
