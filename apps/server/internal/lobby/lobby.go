package lobby

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"holdem-rooms/apps/server/internal/config"
	"holdem-rooms/apps/server/internal/room"
	"holdem-rooms/apps/server/internal/roomstore"
	"holdem-rooms/holdem"
)

var ErrRoomNotFound = errors.New("room not found")

const (
	roomIDLength = 8
	ioTimeout    = 3 * time.Second
)

// Lobby manages all rooms and their snapshots
type Lobby struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room

	deps            room.Deps
	store           roomstore.Store
	clock           quartz.Clock
	defaultSettings holdem.Settings
	cleanupAfter    time.Duration
	persistInterval time.Duration
	tableOpts       []holdem.Option
	log             *zap.Logger
}

// New creates a lobby. deps are handed to every room; its ActionTimeout is
// taken from cfg. opts are applied to every table (tests stack the deck).
func New(cfg config.RoomsConfig, deps room.Deps, opts ...holdem.Option) *Lobby {
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	deps.ActionTimeout = cfg.ActionTimeout
	return &Lobby{
		rooms:           make(map[string]*room.Room),
		deps:            deps,
		store:           deps.Store,
		clock:           deps.Clock,
		defaultSettings: cfg.DefaultSettings,
		cleanupAfter:    cfg.CleanupAfter,
		persistInterval: cfg.PersistInterval,
		tableOpts:       opts,
		log:             deps.Log.Named("lobby"),
	}
}

// DefaultSettings are used when a room is created without settings.
func (l *Lobby) DefaultSettings() holdem.Settings {
	return l.defaultSettings
}

// Create opens a room under a fresh 8-character id and persists it.
func (l *Lobby) Create(settings holdem.Settings) (*room.Room, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	id := l.newIDLocked()
	r, err := room.New(id, settings, l.deps, l.tableOpts...)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	l.rooms[id] = r
	l.mu.Unlock()

	if err := r.Persist(); err != nil {
		l.log.Warn("persist new room failed", zap.String("room", id), zap.Error(err))
	}
	l.log.Info("room created",
		zap.String("room", id),
		zap.Int64("small_blind", settings.SmallBlind),
		zap.Int64("big_blind", settings.BigBlind),
	)
	return r, nil
}

func (l *Lobby) newIDLocked() string {
	for {
		id := uuid.NewString()[:roomIDLength]
		if _, ok := l.rooms[id]; !ok {
			return id
		}
	}
}

// Get returns a room by ID
func (l *Lobby) Get(id string) (*room.Room, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.rooms[id]
	return r, ok
}

// Delete stops a room and removes its snapshot.
func (l *Lobby) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	r, ok := l.rooms[id]
	delete(l.rooms, id)
	l.mu.Unlock()
	if !ok {
		return ErrRoomNotFound
	}

	r.Stop()
	if l.store != nil {
		if err := l.store.Delete(ctx, id); err != nil {
			return err
		}
	}
	l.log.Info("room deleted", zap.String("room", id))
	return nil
}

// IDs returns all room IDs, sorted.
func (l *Lobby) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.rooms))
	for id := range l.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Lobby) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rooms)
}

// Restore loads every snapshot updated within the cleanup window. A room
// that fails to decode is logged and skipped.
func (l *Lobby) Restore(ctx context.Context) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	records, err := l.store.LoadSince(ctx, l.clock.Now().Add(-l.cleanupAfter))
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	restored := 0
	for _, rec := range records {
		if _, ok := l.rooms[rec.RoomID]; ok {
			continue
		}
		r, err := room.Restore(rec.State, l.deps, l.tableOpts...)
		if err != nil {
			l.log.Error("restore room failed", zap.String("room", rec.RoomID), zap.Error(err))
			continue
		}
		l.rooms[r.ID] = r
		restored++
		l.log.Info("room restored", zap.String("room", r.ID), zap.Int("hand_number", r.View().HandNumber))
	}
	return restored, nil
}

func (l *Lobby) snapshot() []*room.Room {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*room.Room, 0, len(l.rooms))
	for _, r := range l.rooms {
		out = append(out, r)
	}
	return out
}

// PersistAll writes a snapshot of every room. Failures are logged.
func (l *Lobby) PersistAll() {
	for _, r := range l.snapshot() {
		if err := r.Persist(); err != nil && !errors.Is(err, room.ErrRoomClosed) {
			l.log.Warn("persist room failed", zap.String("room", r.ID), zap.Error(err))
		}
	}
}

// Cleanup drops rooms nobody has used for cleanup_after and purges stale
// snapshots from the store.
func (l *Lobby) Cleanup(ctx context.Context) {
	if l.cleanupAfter <= 0 {
		return
	}
	for _, r := range l.snapshot() {
		if !r.IsIdleFor(l.cleanupAfter) {
			continue
		}
		if err := l.Delete(ctx, r.ID); err != nil && !errors.Is(err, ErrRoomNotFound) {
			l.log.Warn("delete idle room failed", zap.String("room", r.ID), zap.Error(err))
		}
	}
	if l.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()
	n, err := l.store.DeleteBefore(ctx, l.clock.Now().Add(-l.cleanupAfter))
	if err != nil {
		l.log.Warn("purge stale snapshots failed", zap.Error(err))
		return
	}
	if n > 0 {
		l.log.Info("stale snapshots purged", zap.Int64("count", n))
	}
}

// Run persists and cleans up on every persist_interval tick until ctx is
// done, then writes a final snapshot of every room.
func (l *Lobby) Run(ctx context.Context) error {
	l.Cleanup(ctx)
	if l.persistInterval > 0 {
		w := l.clock.TickerFunc(ctx, l.persistInterval, func() error {
			l.PersistAll()
			l.Cleanup(ctx)
			return nil
		}, "lobby", "persist")
		if err := w.Wait(); err != nil && ctx.Err() == nil {
			return err
		}
	} else {
		<-ctx.Done()
	}
	l.PersistAll()
	return nil
}

// Close stops every room. Snapshots are kept for the next start.
func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, r := range l.rooms {
		r.Stop()
		delete(l.rooms, id)
	}
}
