package room

import (
	"context"
	"sync"
	"testing"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/protocol"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) create(m *Manager, userID int64, name string, s protocol.Settings) (*Room, *fakeConn) {
	f.t.Helper()
	c := &fakeConn{}
	m.Enter(f.ctx, userID, name, c)
	require.NoError(f.t, m.Create(f.ctx, userID, name, protocol.CreateRoom{Name: name + "'s table", Settings: s}, c))
	r, ok := m.RoomOf(userID)
	require.True(f.t, ok)
	return r, c
}

func (f *fixture) enterAndJoin(m *Manager, userID int64, name, roomID string) *fakeConn {
	f.t.Helper()
	c := &fakeConn{}
	m.Enter(f.ctx, userID, name, c)
	require.NoError(f.t, m.Join(f.ctx, userID, name, roomID, c))
	return c
}

func (m *Manager) graceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.grace)
}

func TestEnterSendsLobby(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := f.manager()

	lobby := &fakeConn{}
	m.Enter(f.ctx, 9, "watcher", lobby)
	assert.Equal(t, []string{protocol.TypeAuthed, protocol.TypeRoomsList}, lobby.types())
	assert.Empty(t, lobby.last(protocol.TypeRoomsList).(*protocol.RoomsList).Rooms)

	r, _ := f.create(m, 1, "alice", protocol.Settings{})
	list := lobby.last(protocol.TypeRoomsList).(*protocol.RoomsList)
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, r.ID, list.Rooms[0].ID)
	assert.Equal(t, "alice's table", list.Rooms[0].Name)
	assert.Equal(t, int64(1), list.Rooms[0].CreatorID)
	assert.Len(t, r.ID, 8)
}

func TestListOrdersByName(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := f.manager()

	f.create(m, 1, "zed", protocol.Settings{})
	f.create(m, 2, "amy", protocol.Settings{})
	f.create(m, 3, "kim", protocol.Settings{})

	list := m.List()
	require.Len(t, list, 3)
	assert.Equal(t, "amy's table", list[0].Name)
	assert.Equal(t, "kim's table", list[1].Name)
	assert.Equal(t, "zed's table", list[2].Name)
}

func TestOnePlayerOneRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := f.manager()

	a, c1 := f.create(m, 1, "alice", protocol.Settings{})
	b, _ := f.create(m, 2, "bob", protocol.Settings{})

	assert.ErrorIs(t, m.Create(f.ctx, 1, "alice", protocol.CreateRoom{}, c1), ErrAlreadyInRoom)
	assert.ErrorIs(t, m.Join(f.ctx, 1, "alice", b.ID, c1), ErrAlreadyInRoom)
	assert.ErrorIs(t, m.Join(f.ctx, 3, "carol", "nope", &fakeConn{}), ErrRoomNotFound)

	// the same user racing into two rooms lands in exactly one
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = m.Join(f.ctx, 5, "eve", id, &fakeConn{})
		}()
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyInRoom)
		}
	}
	assert.Equal(t, 1, joined)
	assert.Equal(t, 3, a.Info().PlayerCount+b.Info().PlayerCount)
}

func TestJoinFullRoomReturnsToLobby(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cfg.MaxSeats = 2
	m := f.manager()

	r, _ := f.create(m, 1, "alice", protocol.Settings{})
	f.enterAndJoin(m, 2, "bob", r.ID)

	c3 := &fakeConn{}
	m.Enter(f.ctx, 3, "carol", c3)
	assert.ErrorIs(t, m.Join(f.ctx, 3, "carol", r.ID, c3), ErrRoomFull)
	_, ok := m.RoomOf(3)
	assert.False(t, ok)

	before := c3.count(protocol.TypeRoomsList)
	m.BroadcastLobby()
	assert.Equal(t, before+1, c3.count(protocol.TypeRoomsList), "carol is back in the lobby")
}

func TestCreateCurrencyRoomNeedsWallet(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := f.manager()

	err := m.Create(f.ctx, 1, "alice", protocol.CreateRoom{
		Settings: protocol.Settings{PlayForExternalCurrency: ptr(true)},
	}, &fakeConn{})
	assert.ErrorIs(t, err, ErrNoWallet)
	assert.Empty(t, m.List())
}

func TestLeaveReturnsToLobby(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := f.manager()

	r, c1 := f.create(m, 1, "alice", protocol.Settings{})
	c2 := f.enterAndJoin(m, 2, "bob", r.ID)

	require.NoError(t, m.Leave(f.ctx, 1, c1))
	assert.Equal(t, 1, c1.count(protocol.TypeLeftRoom))
	assert.Nil(t, c1.last(protocol.TypeLeftRoom).(*protocol.LeftRoom).Balance)
	_, ok := m.RoomOf(1)
	assert.False(t, ok)
	assert.Equal(t, int64(2), r.Info().CreatorID)
	assert.Equal(t, int64(2), c2.last(protocol.TypeRoomUpdated).(*protocol.RoomUpdated).Room.CreatorID)

	require.NoError(t, m.Leave(f.ctx, 2, c2))
	_, ok = m.Room(r.ID)
	assert.False(t, ok, "the empty room is gone")
	assert.Empty(t, c2.last(protocol.TypeRoomsList).(*protocol.RoomsList).Rooms)

	assert.ErrorIs(t, m.Leave(f.ctx, 2, c2), ErrNotInRoom)
}

func TestReconnectWithinGrace(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := f.manager()

	r, c1 := f.create(m, 1, "alice", protocol.Settings{BotCount: ptr(1)})
	require.NoError(t, r.StartGame(f.ctx, 1))

	m.Disconnect(f.ctx, 1, c1)
	assert.Equal(t, 1, m.graceCount())

	fresh := &fakeConn{}
	m.Enter(f.ctx, 1, "alice", fresh)
	assert.Equal(t, []string{protocol.TypeAuthed, protocol.TypeReconnected, protocol.TypeGameState}, fresh.types())
	assert.Zero(t, m.graceCount())

	// the old socket closing late does not start another grace period
	m.Disconnect(f.ctx, 1, c1)
	assert.Zero(t, m.graceCount())

	got, ok := m.RoomOf(1)
	require.True(t, ok)
	assert.Same(t, r, got)
}

func TestGraceExpiryEndsGameAndRemovesRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := f.manager()

	r, c1 := f.create(m, 1, "alice", protocol.Settings{BotCount: ptr(2)})
	c2 := f.enterAndJoin(m, 2, "bob", r.ID)
	c3 := f.enterAndJoin(m, 3, "carol", r.ID)
	require.NoError(t, r.StartGame(f.ctx, 1))
	require.Equal(t, 2, r.Info().BotCount)

	m.Disconnect(f.ctx, 1, c1)
	m.Disconnect(f.ctx, 2, c2)
	m.Disconnect(f.ctx, 3, c3)
	require.Equal(t, 3, m.graceCount())

	for range 500 {
		if _, ok := m.Room(r.ID); !ok {
			break
		}
		require.True(t, f.step(r), "room stuck without timers")
	}

	_, ok := m.Room(r.ID)
	require.False(t, ok, "room removed after the last departure")
	for _, id := range []int64{1, 2, 3} {
		_, ok := m.RoomOf(id)
		assert.False(t, ok, "user %d still indexed", id)
	}
	info := r.Info()
	assert.False(t, info.Started)
	assert.Zero(t, info.BotCount)
	assert.Zero(t, info.PlayerCount)
	assert.Empty(t, m.List())
	assert.Zero(t, m.graceCount())
}

func TestShutdownCashesOutSeatedPlayers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	w, err := wallet.OpenSQLite(":memory:", 1500)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	f.cfg.Wallet = w
	m := NewManager(f.cfg)

	r, c1 := f.create(m, 1, "alice", protocol.Settings{PlayForExternalCurrency: ptr(true)})
	joined := c1.last(protocol.TypeRoomJoined).(*protocol.RoomJoined)
	require.NotNil(t, joined.Balance)
	assert.Equal(t, int64(500), *joined.Balance)
	f.enterAndJoin(m, 2, "bob", r.ID)

	m.Shutdown(context.Background())

	for _, id := range []int64{1, 2} {
		bal, err := w.Balance(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1500), bal, "user %d refunded", id)
	}
	assert.Empty(t, m.List())
	_, err = r.Join(f.ctx, 3, "carol", &fakeConn{})
	assert.ErrorIs(t, err, ErrRoomClosed)
}
