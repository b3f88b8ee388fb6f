package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"holdem-rooms/apps/server/internal/config"
	"holdem-rooms/card"
	"holdem-rooms/holdem"
)

const (
	defaultHistoryLimit     = 50
	maxHistoryLimit         = 200
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	writeTimeout            = 3 * time.Second
)

var ErrNotFound = errors.New("not found")

// Service stores finished hands and keeps per-player totals.
type Service interface {
	Close() error
	RecordHand(ctx context.Context, rec holdem.HandRecord) (int64, error)
	HandHistory(ctx context.Context, roomID string, limit int) ([]HandSummary, error)
	HandDetails(ctx context.Context, handID int64) (*HandDetails, error)
	PlayerStats(ctx context.Context, name string) (PlayerStats, error)
	Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error)
	AllStats(ctx context.Context) ([]PlayerStats, error)
}

type HandSummary struct {
	ID         int64           `json:"id"`
	RoomID     string          `json:"room_id"`
	HandNumber int             `json:"hand_number"`
	PotSize    int64           `json:"pot_size"`
	Winners    []string        `json:"winner_names"`
	Actions    []holdem.Action `json:"actions"`
	CreatedAt  time.Time       `json:"created_at"`
}

type PlayerHandResult struct {
	PlayerName    string      `json:"player_name"`
	StartingStack int64       `json:"starting_stack"`
	EndingStack   int64       `json:"ending_stack"`
	Profit        int64       `json:"profit"`
	IsWinner      bool        `json:"is_winner"`
	HoleCards     []card.Card `json:"hole_cards"`
}

type HandDetails struct {
	HandSummary
	PlayerResults []PlayerHandResult `json:"player_results"`
}

type PlayerStats struct {
	PlayerName  string `json:"player_name"`
	HandsPlayed int    `json:"hands_played"`
	HandsWon    int    `json:"hands_won"`
	TotalProfit int64  `json:"total_profit"`
}

type noopService struct{}

// NewNoop returns a Service that stores nothing.
func NewNoop() Service { return &noopService{} }

func (n *noopService) Close() error { return nil }

func (n *noopService) RecordHand(_ context.Context, _ holdem.HandRecord) (int64, error) {
	return 0, nil
}

func (n *noopService) HandHistory(_ context.Context, _ string, _ int) ([]HandSummary, error) {
	return []HandSummary{}, nil
}

func (n *noopService) HandDetails(_ context.Context, _ int64) (*HandDetails, error) {
	return nil, ErrNotFound
}

func (n *noopService) PlayerStats(_ context.Context, name string) (PlayerStats, error) {
	return PlayerStats{PlayerName: name}, nil
}

func (n *noopService) Leaderboard(_ context.Context, _ int) ([]PlayerStats, error) {
	return []PlayerStats{}, nil
}

func (n *noopService) AllStats(_ context.Context) ([]PlayerStats, error) {
	return []PlayerStats{}, nil
}

// New picks the backend named by cfg.Driver and returns a short label for logs.
func New(cfg config.LedgerConfig) (Service, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "memory":
		return NewNoop(), "memory-noop", nil
	case "sqlite", "":
		service, err := NewSQLiteService(cfg.Path)
		if err != nil {
			return nil, "", err
		}
		return service, "sqlite", nil
	case "postgres":
		service, err := NewPostgresService(cfg.DSN)
		if err != nil {
			return nil, "", err
		}
		return service, "postgres", nil
	default:
		return nil, "", fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
