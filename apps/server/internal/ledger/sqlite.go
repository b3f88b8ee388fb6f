package ledger

import (
	"context"
	"database/sql"
	"time"

	"holdem-rooms/apps/server/internal/sqlitedb"
)

type SQLiteService struct {
	sqlStore
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	db, err := sqlitedb.Open(dbPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ensureSQLiteLedgerSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteService{sqlStore{db: db, rebind: noRebind}}, nil
}

func ensureSQLiteLedgerSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS hands (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    room_id TEXT NOT NULL,
    hand_number INTEGER NOT NULL,
    pot_size INTEGER NOT NULL,
    winners_json TEXT NOT NULL DEFAULT '[]',
    actions_json TEXT NOT NULL DEFAULT '[]',
    created_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_hands_room_recent ON hands(room_id, created_at_ms DESC)`,
		`
CREATE TABLE IF NOT EXISTS player_hand_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    hand_id INTEGER NOT NULL REFERENCES hands(id) ON DELETE CASCADE,
    player_name TEXT NOT NULL,
    starting_stack INTEGER NOT NULL,
    ending_stack INTEGER NOT NULL,
    profit INTEGER NOT NULL,
    is_winner INTEGER NOT NULL DEFAULT 0,
    hole_cards_json TEXT NOT NULL DEFAULT '[]'
)`,
		`CREATE INDEX IF NOT EXISTS idx_player_hand_results_hand ON player_hand_results(hand_id)`,
		`
CREATE TABLE IF NOT EXISTS player_stats (
    player_name TEXT PRIMARY KEY,
    hands_played INTEGER NOT NULL DEFAULT 0,
    hands_won INTEGER NOT NULL DEFAULT 0,
    total_profit INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE INDEX IF NOT EXISTS idx_player_stats_profit ON player_stats(total_profit DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
