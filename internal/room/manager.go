package room

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/protocol"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// graceDeadline is the pending departure of a disconnected player.
type graceDeadline struct {
	timer  *quartz.Timer
	token uint64
}

// Manager is the directory of rooms. It maps each player to at most one
// room, keeps the lobby connections that are not seated anywhere and runs
// the disconnect grace timers.
//
// The manager never calls into a room while holding its lock; rooms call
// back into the manager only to refresh the lobby.
type Manager struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock

	mu          sync.Mutex
	rooms       map[string]*Room
	playerRooms map[int64]string
	lobby       map[int64]Sender
	grace       map[int64]*graceDeadline
	graceSeq    uint64
}

// NewManager creates an empty directory.
func NewManager(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:         cfg,
		logger:      cfg.Logger.WithPrefix("rooms"),
		clock:       cfg.Clock,
		rooms:       make(map[string]*Room),
		playerRooms: make(map[int64]string),
		lobby:       make(map[int64]Sender),
		grace:       make(map[int64]*graceDeadline),
	}
}

// Enter registers an authenticated connection and confirms it with authed.
// A player who still holds a seat is reconnected to it; everyone else lands
// in the lobby and receives the room listing.
func (m *Manager) Enter(ctx context.Context, userID int64, name string, s Sender) {
	s.Send(protocol.NewAuthed(userID, name))

	m.mu.Lock()
	m.cancelGraceLocked(userID)
	rid, inRoom := m.playerRooms[userID]
	r := m.rooms[rid]
	m.mu.Unlock()

	if inRoom && r != nil {
		err := r.Reconnect(ctx, userID, s)
		if err == nil {
			return
		}
		m.logger.Warn("reconnect failed", "user", userID, "room", rid, "err", err)
		m.mu.Lock()
		if m.playerRooms[userID] == rid {
			delete(m.playerRooms, userID)
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.lobby[userID] = s
	m.mu.Unlock()

	s.Send(protocol.NewRoomsList(m.List()))
}

// List returns the lobby listing ordered by room name.
func (m *Manager) List() []protocol.RoomInfo {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	infos := make([]protocol.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info())
	}
	slices.SortFunc(infos, func(a, b protocol.RoomInfo) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return infos
}

// Room looks up a room by id.
func (m *Manager) Room(id string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	return r, ok
}

// RoomOf returns the room userID is seated in.
func (m *Manager) RoomOf(userID int64) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[m.playerRooms[userID]]
	return r, ok
}

// BroadcastLobby sends the listing to every connection in the lobby.
func (m *Manager) BroadcastLobby() {
	msg := protocol.NewRoomsList(m.List())
	m.mu.Lock()
	senders := make([]Sender, 0, len(m.lobby))
	for _, s := range m.lobby {
		senders = append(senders, s)
	}
	m.mu.Unlock()
	for _, s := range senders {
		s.Send(msg)
	}
}

// Create opens a room with userID as creator and seats them.
func (m *Manager) Create(ctx context.Context, userID int64, name string, req protocol.CreateRoom, s Sender) error {
	settings := DefaultSettings().Apply(req.Settings, m.cfg.MaxSeats)
	if settings.PlayForExternalCurrency && m.cfg.Wallet == nil {
		return ErrNoWallet
	}

	m.mu.Lock()
	if _, ok := m.playerRooms[userID]; ok {
		m.mu.Unlock()
		return ErrAlreadyInRoom
	}
	id := newRoomID()
	r := newRoom(id, roomName(req.Name, len(m.rooms)+1), userID, settings, m.cfg, m.BroadcastLobby)
	m.rooms[id] = r
	m.playerRooms[userID] = id
	delete(m.lobby, userID)
	m.mu.Unlock()

	if _, err := r.Join(ctx, userID, name, s); err != nil {
		m.mu.Lock()
		delete(m.rooms, id)
		if m.playerRooms[userID] == id {
			delete(m.playerRooms, userID)
		}
		m.lobby[userID] = s
		m.mu.Unlock()
		r.Close()
		return err
	}

	m.logger.Info("room created", "room", id, "creator", userID, "currency", settings.PlayForExternalCurrency)
	m.BroadcastLobby()
	return nil
}

// Join seats userID in an existing room. The player is reserved to the
// room before seating so concurrent joins by one user cannot both succeed.
func (m *Manager) Join(ctx context.Context, userID int64, name, roomID string, s Sender) error {
	m.mu.Lock()
	if _, ok := m.playerRooms[userID]; ok {
		m.mu.Unlock()
		return ErrAlreadyInRoom
	}
	r, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return ErrRoomNotFound
	}
	m.playerRooms[userID] = roomID
	delete(m.lobby, userID)
	m.mu.Unlock()

	if _, err := r.Join(ctx, userID, name, s); err != nil {
		m.mu.Lock()
		if m.playerRooms[userID] == roomID {
			delete(m.playerRooms, userID)
		}
		m.lobby[userID] = s
		m.mu.Unlock()
		return err
	}
	m.BroadcastLobby()
	return nil
}

// Leave returns userID to the lobby, cashing out in currency rooms.
func (m *Manager) Leave(ctx context.Context, userID int64, s Sender) error {
	m.mu.Lock()
	m.cancelGraceLocked(userID)
	rid, ok := m.playerRooms[userID]
	r := m.rooms[rid]
	m.mu.Unlock()
	if !ok || r == nil {
		return ErrNotInRoom
	}

	res, err := r.Leave(ctx, userID)
	if err != nil {
		return err
	}
	m.finishDeparture(userID, r, res)

	m.mu.Lock()
	m.lobby[userID] = s
	m.mu.Unlock()

	s.Send(protocol.NewLeftRoom(res.Balance))
	m.BroadcastLobby()
	return nil
}

// Disconnect handles a closed transport. A seated player keeps their seat
// for the grace period; if they have not reconnected by then they leave.
func (m *Manager) Disconnect(ctx context.Context, userID int64, s Sender) {
	m.mu.Lock()
	if cur, ok := m.lobby[userID]; ok && cur == s {
		delete(m.lobby, userID)
	}
	rid, ok := m.playerRooms[userID]
	r := m.rooms[rid]
	m.mu.Unlock()
	if !ok || r == nil {
		return
	}

	detached, err := r.Detach(ctx, userID, s)
	if err != nil || !detached {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelGraceLocked(userID)
	m.graceSeq++
	token := m.graceSeq
	m.grace[userID] = &graceDeadline{
		token: token,
		timer: m.clock.AfterFunc(m.cfg.GracePeriod, func() {
			m.expire(userID, rid, token)
		}),
	}
	m.logger.Info("grace period started", "user", userID, "room", rid, "grace", m.cfg.GracePeriod)
}

func (m *Manager) expire(userID int64, roomID string, token uint64) {
	m.mu.Lock()
	g, ok := m.grace[userID]
	if !ok || g.token != token {
		m.mu.Unlock()
		return
	}
	delete(m.grace, userID)
	r := m.rooms[roomID]
	if m.playerRooms[userID] != roomID || r == nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := r.leaveIfAbsent(ctx, userID)
	if err != nil || res.Stayed {
		return
	}
	m.logger.Info("grace period expired", "user", userID, "room", roomID)
	m.finishDeparture(userID, r, res)
	m.BroadcastLobby()
}

// finishDeparture drops the player index entry and removes a room that
// lost its last member.
func (m *Manager) finishDeparture(userID int64, r *Room, res LeaveResult) {
	m.mu.Lock()
	if m.playerRooms[userID] == r.ID {
		delete(m.playerRooms, userID)
	}
	if res.Empty && m.rooms[r.ID] == r {
		delete(m.rooms, r.ID)
	}
	m.mu.Unlock()

	if res.Empty {
		r.Close()
		m.logger.Info("room closed", "room", r.ID)
	}
}

func (m *Manager) cancelGraceLocked(userID int64) {
	if g, ok := m.grace[userID]; ok {
		g.timer.Stop()
		delete(m.grace, userID)
	}
}

// Shutdown settles every seated player, as if they had left, and closes
// all rooms.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	for id := range m.grace {
		m.cancelGraceLocked(id)
	}
	seats := make(map[int64]*Room, len(m.playerRooms))
	for uid, rid := range m.playerRooms {
		if r, ok := m.rooms[rid]; ok {
			seats[uid] = r
		}
	}
	m.mu.Unlock()

	for uid, r := range seats {
		res, err := r.Leave(ctx, uid)
		if err != nil {
			m.logger.Warn("leave on shutdown failed", "user", uid, "room", r.ID, "err", err)
			continue
		}
		m.finishDeparture(uid, r, res)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Close()
		delete(m.rooms, id)
	}
}

func newRoomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
