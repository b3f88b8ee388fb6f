package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"holdem-rooms/card"
	"holdem-rooms/holdem"
)

// sqlStore holds the queries shared by the sqlite and postgres backends.
// Queries are written with ? placeholders and rebound per driver.
type sqlStore struct {
	db     *sql.DB
	rebind func(string) string
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) RecordHand(ctx context.Context, rec holdem.HandRecord) (int64, error) {
	winners, err := json.Marshal(nonNil(rec.Winners))
	if err != nil {
		return 0, err
	}
	actions, err := json.Marshal(nonNilActions(rec.Actions))
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var handID int64
	if err := tx.QueryRowContext(ctx, s.rebind(`
INSERT INTO hands (room_id, hand_number, pot_size, winners_json, actions_json, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`), rec.RoomID, rec.HandNumber, rec.PotSize, string(winners), string(actions), time.Now().UTC().UnixMilli()).Scan(&handID); err != nil {
		return 0, err
	}

	for _, p := range rec.Players {
		hole, err := json.Marshal(nonNilCards(p.HoleCards))
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
INSERT INTO player_hand_results (hand_id, player_name, starting_stack, ending_stack, profit, is_winner, hole_cards_json)
VALUES (?, ?, ?, ?, ?, ?, ?)
`), handID, p.Name, p.StartingStack, p.EndingStack, p.Profit, p.IsWinner, string(hole)); err != nil {
			return 0, err
		}

		won := 0
		if p.IsWinner {
			won = 1
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
INSERT INTO player_stats (player_name, hands_played, hands_won, total_profit)
VALUES (?, 1, ?, ?)
ON CONFLICT (player_name) DO UPDATE
SET
    hands_played = player_stats.hands_played + 1,
    hands_won = player_stats.hands_won + EXCLUDED.hands_won,
    total_profit = player_stats.total_profit + EXCLUDED.total_profit
`), p.Name, won, p.Profit); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return handID, nil
}

func (s *sqlStore) HandHistory(ctx context.Context, roomID string, limit int) ([]HandSummary, error) {
	limit = clampLimit(limit, defaultHistoryLimit, maxHistoryLimit)
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT id, room_id, hand_number, pot_size, winners_json, actions_json, created_at_ms
FROM hands
WHERE room_id = ?
ORDER BY created_at_ms DESC, id DESC
LIMIT ?
`), roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]HandSummary, 0, limit)
	for rows.Next() {
		item, err := scanHand(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *sqlStore) HandDetails(ctx context.Context, handID int64) (*HandDetails, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
SELECT id, room_id, hand_number, pot_size, winners_json, actions_json, created_at_ms
FROM hands
WHERE id = ?
`), handID)
	summary, err := scanHand(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT player_name, starting_stack, ending_stack, profit, is_winner, hole_cards_json
FROM player_hand_results
WHERE hand_id = ?
ORDER BY id ASC
`), handID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := &HandDetails{HandSummary: summary, PlayerResults: []PlayerHandResult{}}
	for rows.Next() {
		var r PlayerHandResult
		var hole string
		if err := rows.Scan(&r.PlayerName, &r.StartingStack, &r.EndingStack, &r.Profit, &r.IsWinner, &hole); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hole), &r.HoleCards); err != nil {
			return nil, err
		}
		r.HoleCards = nonNilCards(r.HoleCards)
		details.PlayerResults = append(details.PlayerResults, r)
	}
	return details, rows.Err()
}

func (s *sqlStore) PlayerStats(ctx context.Context, name string) (PlayerStats, error) {
	stats := PlayerStats{PlayerName: name}
	err := s.db.QueryRowContext(ctx, s.rebind(`
SELECT player_name, hands_played, hands_won, total_profit
FROM player_stats
WHERE player_name = ?
`), name).Scan(&stats.PlayerName, &stats.HandsPlayed, &stats.HandsWon, &stats.TotalProfit)
	if errors.Is(err, sql.ErrNoRows) {
		// 没有记录的玩家按零统计
		return PlayerStats{PlayerName: name}, nil
	}
	return stats, err
}

func (s *sqlStore) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	limit = clampLimit(limit, defaultLeaderboardLimit, maxLeaderboardLimit)
	return s.queryStats(ctx, `
SELECT player_name, hands_played, hands_won, total_profit
FROM player_stats
ORDER BY total_profit DESC, player_name ASC
LIMIT ?
`, limit)
}

func (s *sqlStore) AllStats(ctx context.Context) ([]PlayerStats, error) {
	return s.queryStats(ctx, `
SELECT player_name, hands_played, hands_won, total_profit
FROM player_stats
ORDER BY player_name ASC
`)
}

func (s *sqlStore) queryStats(ctx context.Context, query string, args ...any) ([]PlayerStats, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PlayerStats{}
	for rows.Next() {
		var st PlayerStats
		if err := rows.Scan(&st.PlayerName, &st.HandsPlayed, &st.HandsWon, &st.TotalProfit); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHand(row rowScanner) (HandSummary, error) {
	var item HandSummary
	var winners, actions string
	var createdAtMs int64
	if err := row.Scan(&item.ID, &item.RoomID, &item.HandNumber, &item.PotSize, &winners, &actions, &createdAtMs); err != nil {
		return HandSummary{}, err
	}
	if err := json.Unmarshal([]byte(winners), &item.Winners); err != nil {
		return HandSummary{}, err
	}
	if err := json.Unmarshal([]byte(actions), &item.Actions); err != nil {
		return HandSummary{}, err
	}
	item.Winners = nonNil(item.Winners)
	item.Actions = nonNilActions(item.Actions)
	item.CreatedAt = time.UnixMilli(createdAtMs).UTC()
	return item, nil
}

func noRebind(q string) string { return q }

// dollarRebind turns ? placeholders into $1..$n for lib/pq.
func dollarRebind(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilActions(s []holdem.Action) []holdem.Action {
	if s == nil {
		return []holdem.Action{}
	}
	return s
}

func nonNilCards(s []card.Card) []card.Card {
	if s == nil {
		return []card.Card{}
	}
	return s
}
