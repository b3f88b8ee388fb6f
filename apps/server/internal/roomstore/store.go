package roomstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"

	"holdem-rooms/apps/server/internal/config"
)

// Record is one persisted room snapshot.
type Record struct {
	RoomID    string
	State     []byte
	UpdatedAt time.Time
}

// Store keeps the latest serialized table per room.
type Store interface {
	Close() error
	Save(ctx context.Context, roomID string, state []byte) error
	// LoadSince returns rooms saved strictly after cutoff, oldest first.
	LoadSince(ctx context.Context, cutoff time.Time) ([]Record, error)
	Delete(ctx context.Context, roomID string) error
	// DeleteBefore purges rooms last saved before cutoff and reports how many.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// New opens the backend named by cfg.Rooms.Store.
func New(ctx context.Context, cfg *config.Config, clock quartz.Clock) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Rooms.Store)) {
	case "memory":
		return NewMemoryStore(clock), nil
	case "sqlite", "":
		return NewSQLiteStore(cfg.Rooms.Path, clock)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedisStore(rdb, clock), nil
	default:
		return nil, fmt.Errorf("unknown room store %q", cfg.Rooms.Store)
	}
}

type MemoryStore struct {
	mu      sync.Mutex
	clock   quartz.Clock
	records map[string]Record
}

func NewMemoryStore(clock quartz.Clock) *MemoryStore {
	return &MemoryStore{clock: clock, records: make(map[string]Record)}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Save(_ context.Context, roomID string, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[roomID] = Record{
		RoomID:    roomID,
		State:     append([]byte(nil), state...),
		UpdatedAt: m.clock.Now().UTC(),
	}
	return nil
}

func (m *MemoryStore) LoadSince(_ context.Context, cutoff time.Time) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		if r.UpdatedAt.After(cutoff) {
			r.State = append([]byte(nil), r.State...)
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, roomID)
	return nil
}

func (m *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.records {
		if r.UpdatedAt.Before(cutoff) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func sortRecords(rs []Record) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].UpdatedAt.Equal(rs[j].UpdatedAt) {
			return rs[i].UpdatedAt.Before(rs[j].UpdatedAt)
		}
		return rs[i].RoomID < rs[j].RoomID
	})
}
