package ledger

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type PostgresService struct {
	sqlStore
}

func NewPostgresService(dsn string) (*PostgresService, error) {
	db, err := sql.Open("postgres", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensurePostgresLedgerSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresService{sqlStore{db: db, rebind: dollarRebind}}, nil
}

func ensurePostgresLedgerSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS hands (
    id BIGSERIAL PRIMARY KEY,
    room_id TEXT NOT NULL,
    hand_number INTEGER NOT NULL,
    pot_size BIGINT NOT NULL,
    winners_json TEXT NOT NULL DEFAULT '[]',
    actions_json TEXT NOT NULL DEFAULT '[]',
    created_at_ms BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_hands_room_recent ON hands(room_id, created_at_ms DESC)`,
		`
CREATE TABLE IF NOT EXISTS player_hand_results (
    id BIGSERIAL PRIMARY KEY,
    hand_id BIGINT NOT NULL REFERENCES hands(id) ON DELETE CASCADE,
    player_name TEXT NOT NULL,
    starting_stack BIGINT NOT NULL,
    ending_stack BIGINT NOT NULL,
    profit BIGINT NOT NULL,
    is_winner BOOLEAN NOT NULL DEFAULT FALSE,
    hole_cards_json TEXT NOT NULL DEFAULT '[]'
)`,
		`CREATE INDEX IF NOT EXISTS idx_player_hand_results_hand ON player_hand_results(hand_id)`,
		`
CREATE TABLE IF NOT EXISTS player_stats (
    player_name TEXT PRIMARY KEY,
    hands_played INTEGER NOT NULL DEFAULT 0,
    hands_won INTEGER NOT NULL DEFAULT 0,
    total_profit BIGINT NOT NULL DEFAULT 0
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
