package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-rooms/apps/server/internal/config"
	"holdem-rooms/apps/server/internal/room"
	"holdem-rooms/apps/server/internal/roomstore"
	"holdem-rooms/holdem"
)

func newTestLobby(t *testing.T, mClock *quartz.Mock, store roomstore.Store) *Lobby {
	t.Helper()
	l := New(config.RoomsConfig{
		CleanupAfter:    24 * time.Hour,
		PersistInterval: 30 * time.Second,
		DefaultSettings: holdem.DefaultSettings(),
	}, room.Deps{Store: store, Clock: mClock}, holdem.WithSeed(7))
	t.Cleanup(l.Close)
	return l
}

func TestLobby_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	mClock := quartz.NewMock(t)
	store := roomstore.NewMemoryStore(mClock)
	l := newTestLobby(t, mClock, store)

	r, err := l.Create(l.DefaultSettings())
	require.NoError(t, err)
	assert.Len(t, r.ID, 8)
	assert.Equal(t, 1, l.Count())
	assert.Equal(t, []string{r.ID}, l.IDs())

	got, ok := l.Get(r.ID)
	require.True(t, ok)
	assert.Same(t, r, got)

	stored, err := store.LoadSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, r.ID, stored[0].RoomID)

	require.NoError(t, l.Delete(ctx, r.ID))
	assert.True(t, r.IsClosed())
	_, ok = l.Get(r.ID)
	assert.False(t, ok)
	stored, err = store.LoadSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, stored)

	assert.ErrorIs(t, l.Delete(ctx, r.ID), ErrRoomNotFound)
}

func TestLobby_CreateRejectsBadSettings(t *testing.T) {
	l := newTestLobby(t, quartz.NewMock(t), nil)

	_, err := l.Create(holdem.Settings{SmallBlind: 5, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200})
	assert.ErrorIs(t, err, holdem.ErrInvalidSettings)
	assert.Zero(t, l.Count())
}

func TestLobby_IDsAreUnique(t *testing.T) {
	l := newTestLobby(t, quartz.NewMock(t), nil)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		r, err := l.Create(l.DefaultSettings())
		require.NoError(t, err)
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
	assert.Equal(t, 50, l.Count())
}

func TestLobby_RestoreWithinCleanupWindow(t *testing.T) {
	ctx := context.Background()
	mClock := quartz.NewMock(t)
	store := roomstore.NewMemoryStore(mClock)

	first := newTestLobby(t, mClock, store)
	r, err := first.Create(first.DefaultSettings())
	require.NoError(t, err)
	alice, bob := room.NewClient("a", 64), room.NewClient("b", 64)
	require.NoError(t, r.Join(alice, "alice", 100, intPtr(0)))
	require.NoError(t, r.Join(bob, "bob", 100, intPtr(1)))
	require.NoError(t, r.Start())
	first.Close()

	mClock.Advance(time.Hour).MustWait(ctx)
	require.NoError(t, store.Save(ctx, "broken", []byte(`not json`)))

	second := newTestLobby(t, mClock, store)
	n, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the real room decodes")

	restored, ok := second.Get(r.ID)
	require.True(t, ok)
	view := restored.View()
	assert.Equal(t, 1, view.HandNumber)
	assert.Equal(t, holdem.PhasePreflop, view.Phase)
	assert.Len(t, view.Players, 2)

	// 已加载的房间不会重复恢复
	n, err = second.Restore(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// 超过清理窗口的快照不会被恢复
	third := newTestLobby(t, mClock, store)
	mClock.Advance(24 * time.Hour).MustWait(ctx)
	n, err = third.Restore(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLobby_CleanupDropsIdleRoomsAndStaleSnapshots(t *testing.T) {
	ctx := context.Background()
	mClock := quartz.NewMock(t)
	store := roomstore.NewMemoryStore(mClock)
	l := newTestLobby(t, mClock, store)

	idle, err := l.Create(l.DefaultSettings())
	require.NoError(t, err)
	busy, err := l.Create(l.DefaultSettings())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "ghost", []byte(`{}`)))

	gone := room.NewClient("gone", 8)
	require.NoError(t, idle.Spectate(gone, "dave"))
	require.NoError(t, idle.Detach(gone))
	require.NoError(t, busy.Spectate(room.NewClient("stay", 8), "erin"))

	mClock.Advance(24*time.Hour + time.Second).MustWait(ctx)
	l.PersistAll()
	l.Cleanup(ctx)

	assert.Equal(t, []string{busy.ID}, l.IDs())
	assert.True(t, idle.IsClosed())

	stored, err := store.LoadSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, busy.ID, stored[0].RoomID)
}

func TestLobby_RunPersistsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mClock := quartz.NewMock(t)
	store := roomstore.NewMemoryStore(mClock)
	l := newTestLobby(t, mClock, store)

	r, err := l.Create(l.DefaultSettings())
	require.NoError(t, err)
	mClock.Advance(time.Minute).MustWait(context.Background())
	require.NoError(t, r.Spectate(room.NewClient("c", 8), "frank"))

	cancel()
	require.NoError(t, l.Run(ctx))

	stored, err := store.LoadSince(context.Background(), mClock.Now().Add(-time.Second))
	require.NoError(t, err)
	require.Len(t, stored, 1, "final persist refreshes the snapshot")
	assert.Equal(t, r.ID, stored[0].RoomID)
}

func intPtr(v int) *int { return &v }
