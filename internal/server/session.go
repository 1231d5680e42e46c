package server

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/auth"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/protocol"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/room"
	"github.com/charmbracelet/log"
)

const requestTimeout = 10 * time.Second

var errAlreadyAuthenticated = errors.New("already authenticated as another user")

// session is the per-connection state: who is on the other end and where
// their frames go. A connection's frames are handled one at a time.
type session struct {
	conn      *Connection
	rooms     *room.Manager
	validator auth.Validator
	logger    *log.Logger

	userID int64
	name   string
}

func newSession(conn *Connection, rooms *room.Manager, validator auth.Validator, logger *log.Logger) *session {
	return &session{
		conn:      conn,
		rooms:     rooms,
		validator: validator,
		logger:    logger.WithPrefix("session"),
	}
}

// handle processes one inbound frame. Failures are reported to the client
// as error frames; panics are logged and do not take the connection down.
func (s *session) handle(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered panic handling message", "user", s.userID, "panic", r, "stack", string(debug.Stack()))
			s.conn.Send(protocol.NewError("internal error"))
		}
	}()

	msg, err := protocol.Decode(data)
	if err != nil {
		s.logger.Debug("Rejected frame", "user", s.userID, "error", err)
		s.conn.Send(protocol.NewError(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	s.logger.Debug("Received message", "type", msg.MessageType(), "user", s.userID)
	if err := s.dispatch(ctx, msg); err != nil {
		s.logger.Debug("Request failed", "type", msg.MessageType(), "user", s.userID, "error", err)
		s.conn.Send(protocol.NewError(err.Error()))
	}
}

func (s *session) dispatch(ctx context.Context, msg protocol.Inbound) error {
	switch m := msg.(type) {
	case *protocol.Auth:
		return s.auth(ctx, m)
	case *protocol.ListRooms:
		s.conn.Send(protocol.NewRoomsList(s.rooms.List()))
		return nil
	}

	if s.userID == 0 {
		return room.ErrNotAuthenticated
	}

	switch m := msg.(type) {
	case *protocol.CreateRoom:
		return s.rooms.Create(ctx, s.userID, s.name, *m, s.conn)
	case *protocol.JoinRoom:
		return s.rooms.Join(ctx, s.userID, s.name, m.RoomID, s.conn)
	case *protocol.LeaveRoom:
		return s.rooms.Leave(ctx, s.userID, s.conn)
	}

	r, ok := s.rooms.RoomOf(s.userID)
	if !ok {
		return room.ErrNotInRoom
	}
	switch m := msg.(type) {
	case *protocol.StartGame:
		return r.StartGame(ctx, s.userID)
	case *protocol.Action:
		return r.Act(ctx, s.userID, m.Action, m.Amount)
	case *protocol.Ready:
		return r.Ready(ctx, s.userID)
	case *protocol.UpdateSettings:
		return r.UpdateSettings(ctx, s.userID, m.Settings)
	default:
		return protocol.ErrUnknownMessageType
	}
}

func (s *session) auth(ctx context.Context, m *protocol.Auth) error {
	id, err := s.validator.Validate(ctx, m.InitData)
	if err != nil {
		s.logger.Info("Authentication failed", "error", err)
		return err
	}
	if s.userID != 0 && s.userID != id.UserID {
		return errAlreadyAuthenticated
	}

	s.userID = id.UserID
	s.name = auth.DisplayName(id.UserName)
	s.logger.Info("Authenticated", "user", s.userID, "name", s.name)
	s.rooms.Enter(ctx, s.userID, s.name, s.conn)
	return nil
}

// close hands a seated player over to the disconnect grace period.
func (s *session) close() {
	if s.userID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	s.rooms.Disconnect(ctx, s.userID, s.conn)
}
