package room

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room full")
	ErrAlreadyInRoom    = errors.New("already in a room")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotInRoom        = errors.New("not in room")
	ErrNotCreator       = errors.New("only the room creator can do that")
	ErrGameInProgress   = errors.New("cannot change settings during a game")
	ErrGameStarted      = errors.New("game already started")
	ErrNoActiveGame     = errors.New("no active game")
	ErrNeedPlayers      = errors.New("need at least two players")
	ErrRoomClosed       = errors.New("room closed")
	ErrCurrencyLocked   = errors.New("currency mode cannot be changed after room creation")
	ErrNoWallet         = errors.New("currency play is not available")
	errInternal         = errors.New("internal error")
)
