package roomstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/coder/quartz"

	"holdem-rooms/apps/server/internal/sqlitedb"
)

type SQLiteStore struct {
	db    *sql.DB
	clock quartz.Clock
}

// NewSQLiteStore may share its file with the ledger; each keeps its own tables.
func NewSQLiteStore(dbPath string, clock quartz.Clock) (*SQLiteStore, error) {
	db, err := sqlitedb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ensureRoomsSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, clock: clock}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, roomID string, state []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO rooms (room_id, state_json, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT (room_id) DO UPDATE
SET
    state_json = excluded.state_json,
    updated_at_ms = excluded.updated_at_ms
`, roomID, string(state), s.clock.Now().UTC().UnixMilli())
	return err
}

func (s *SQLiteStore) LoadSince(ctx context.Context, cutoff time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT room_id, state_json, updated_at_ms
FROM rooms
WHERE updated_at_ms > ?
ORDER BY updated_at_ms ASC, room_id ASC
`, cutoff.UTC().UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		var state string
		var updatedMs int64
		if err := rows.Scan(&r.RoomID, &state, &updatedMs); err != nil {
			return nil, err
		}
		r.State = []byte(state)
		r.UpdatedAt = time.UnixMilli(updatedMs).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, roomID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = ?`, roomID)
	return err
}

func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE updated_at_ms < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func ensureRoomsSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS rooms (
    room_id TEXT PRIMARY KEY,
    state_json TEXT NOT NULL,
    updated_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_updated ON rooms(updated_at_ms)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
