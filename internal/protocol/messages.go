// Package protocol defines the JSON frames exchanged over the poker
// websocket. Every frame is an object discriminated by its "type" field.
package protocol

import "github.com/KmXK/dvoretskii-bot-sub000/internal/game"

const (
	// Client -> Server
	TypeAuth           = "auth"
	TypeListRooms      = "list_rooms"
	TypeCreateRoom     = "create_room"
	TypeJoinRoom       = "join_room"
	TypeLeaveRoom      = "leave_room"
	TypeStartGame      = "start_game"
	TypeAction         = "action"
	TypeReady          = "ready"
	TypeUpdateSettings = "update_settings"

	// Server -> Client
	TypeAuthed          = "authed"
	TypeRoomsList       = "rooms_list"
	TypeRoomJoined      = "room_joined"
	TypeReconnected     = "reconnected"
	TypeRoomUpdated     = "room_updated"
	TypeGameState       = "game_state"
	TypePlayerReady     = "player_ready"
	TypeBlindsIncreased = "blinds_increased"
	TypeGameOver        = "game_over"
	TypeLeftRoom        = "left_room"
	TypeError           = "error"
)

// Client -> Server Messages

// Inbound is a decoded client frame.
type Inbound interface {
	MessageType() string
}

// Auth carries the identity assertion, e.g. Telegram initData.
type Auth struct {
	InitData string `json:"initData"`
}

// ListRooms asks for the lobby listing.
type ListRooms struct{}

// Settings holds the tunable room options. Nil fields keep their current
// or default value.
type Settings struct {
	SmallBlind              *int    `json:"smallBlind,omitempty"`
	BigBlind                *int    `json:"bigBlind,omitempty"`
	StartChips              *int    `json:"startChips,omitempty"`
	BotCount                *int    `json:"botCount,omitempty"`
	BotDifficulty           *string `json:"botDifficulty,omitempty"`
	BlindIncreaseEnabled    *bool   `json:"blindIncreaseEnabled,omitempty"`
	BlindIncreaseInterval   *int    `json:"blindIncreaseInterval,omitempty"` // minutes
	PlayForExternalCurrency *bool   `json:"playForExternalCurrency,omitempty"`
}

// CreateRoom opens a new room with the caller as creator.
type CreateRoom struct {
	Name string `json:"name,omitempty"`
	Settings
}

// JoinRoom seats the caller in an existing room.
type JoinRoom struct {
	RoomID string `json:"roomId"`
}

// LeaveRoom returns the caller to the lobby.
type LeaveRoom struct{}

// StartGame starts play; creator only.
type StartGame struct{}

// Action is a betting decision. Amount is the raise-to total for raises.
type Action struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// Ready acknowledges the showdown.
type Ready struct{}

// UpdateSettings changes room options between games; creator only.
type UpdateSettings struct {
	Settings
}

func (Auth) MessageType() string           { return TypeAuth }
func (ListRooms) MessageType() string      { return TypeListRooms }
func (CreateRoom) MessageType() string     { return TypeCreateRoom }
func (JoinRoom) MessageType() string       { return TypeJoinRoom }
func (LeaveRoom) MessageType() string      { return TypeLeaveRoom }
func (StartGame) MessageType() string      { return TypeStartGame }
func (Action) MessageType() string         { return TypeAction }
func (Ready) MessageType() string          { return TypeReady }
func (UpdateSettings) MessageType() string { return TypeUpdateSettings }

// Server -> Client Messages

// Outbound is a frame sent to clients.
type Outbound interface {
	MessageType() string
}

// SeatInfo names an occupant in the lobby listing.
type SeatInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	IsBot bool   `json:"isBot"`
}

// RoomInfo is the public description of a room.
type RoomInfo struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	CreatorID               int64      `json:"creatorId"`
	PlayerCount             int        `json:"playerCount"`
	BotCount                int        `json:"botCount"`
	BotDifficulty           string     `json:"botDifficulty"`
	MaxPlayers              int        `json:"maxPlayers"`
	Started                 bool       `json:"started"`
	SmallBlind              int        `json:"smallBlind"`
	BigBlind                int        `json:"bigBlind"`
	StartChips              int        `json:"startChips"`
	BlindIncreaseEnabled    bool       `json:"blindIncreaseEnabled"`
	BlindIncreaseInterval   int        `json:"blindIncreaseInterval"`
	PlayForExternalCurrency bool       `json:"playForExternalCurrency"`
	Players                 []SeatInfo `json:"players"`
}

// GameState is a user's view of the table plus room-level progress.
type GameState struct {
	game.State
	BlindLevel int `json:"blindLevel"`
	// NextBlindIncreaseAt is a unix timestamp in milliseconds, or nil when
	// escalation is off or exhausted.
	NextBlindIncreaseAt *int64  `json:"nextBlindIncreaseAt"`
	ReadyPlayers        []int64 `json:"readyPlayers"`
}

type Authed struct {
	Type     string `json:"type"`
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
}

type RoomsList struct {
	Type  string     `json:"type"`
	Rooms []RoomInfo `json:"rooms"`
}

// RoomJoined confirms a create or join. Balance is the wallet balance
// after the buy-in in currency rooms.
type RoomJoined struct {
	Type    string   `json:"type"`
	Room    RoomInfo `json:"room"`
	Balance *int64   `json:"balance,omitempty"`
}

type Reconnected struct {
	Type string   `json:"type"`
	Room RoomInfo `json:"room"`
}

type RoomUpdated struct {
	Type string   `json:"type"`
	Room RoomInfo `json:"room"`
}

type GameStateUpdate struct {
	Type  string    `json:"type"`
	State GameState `json:"state"`
}

type PlayerReady struct {
	Type         string  `json:"type"`
	UserID       int64   `json:"userId"`
	ReadyPlayers []int64 `json:"readyPlayers"`
}

type BlindsIncreased struct {
	Type       string `json:"type"`
	SmallBlind int    `json:"smallBlind"`
	BigBlind   int    `json:"bigBlind"`
	Level      int    `json:"level"`
}

type GameOver struct {
	Type string `json:"type"`
}

// LeftRoom confirms a departure. Balance is set after a cash-out.
type LeftRoom struct {
	Type    string `json:"type"`
	Balance *int64 `json:"balance,omitempty"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (Authed) MessageType() string          { return TypeAuthed }
func (RoomsList) MessageType() string       { return TypeRoomsList }
func (RoomJoined) MessageType() string      { return TypeRoomJoined }
func (Reconnected) MessageType() string     { return TypeReconnected }
func (RoomUpdated) MessageType() string     { return TypeRoomUpdated }
func (GameStateUpdate) MessageType() string { return TypeGameState }
func (PlayerReady) MessageType() string     { return TypePlayerReady }
func (BlindsIncreased) MessageType() string { return TypeBlindsIncreased }
func (GameOver) MessageType() string        { return TypeGameOver }
func (LeftRoom) MessageType() string        { return TypeLeftRoom }
func (Error) MessageType() string           { return TypeError }

func NewAuthed(userID int64, userName string) *Authed {
	return &Authed{Type: TypeAuthed, UserID: userID, UserName: userName}
}

func NewRoomsList(rooms []RoomInfo) *RoomsList {
	if rooms == nil {
		rooms = []RoomInfo{}
	}
	return &RoomsList{Type: TypeRoomsList, Rooms: rooms}
}

func NewRoomJoined(room RoomInfo, balance *int64) *RoomJoined {
	return &RoomJoined{Type: TypeRoomJoined, Room: room, Balance: balance}
}

func NewReconnected(room RoomInfo) *Reconnected {
	return &Reconnected{Type: TypeReconnected, Room: room}
}

func NewRoomUpdated(room RoomInfo) *RoomUpdated {
	return &RoomUpdated{Type: TypeRoomUpdated, Room: room}
}

func NewGameState(state GameState) *GameStateUpdate {
	return &GameStateUpdate{Type: TypeGameState, State: state}
}

func NewPlayerReady(userID int64, ready []int64) *PlayerReady {
	return &PlayerReady{Type: TypePlayerReady, UserID: userID, ReadyPlayers: ready}
}

func NewBlindsIncreased(small, big, level int) *BlindsIncreased {
	return &BlindsIncreased{Type: TypeBlindsIncreased, SmallBlind: small, BigBlind: big, Level: level}
}

func NewGameOver() *GameOver {
	return &GameOver{Type: TypeGameOver}
}

func NewLeftRoom(balance *int64) *LeftRoom {
	return &LeftRoom{Type: TypeLeftRoom, Balance: balance}
}

func NewError(message string) *Error {
	return &Error{Type: TypeError, Message: message}
}
