package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrMalformed          = errors.New("malformed message")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Pool of buffers to avoid allocation and ensure thread safety
var bufferPool = sync.Pool{
	New: func() any {
		return &bytes.Buffer{}
	},
}

// Marshal encodes an outbound frame. Non-ASCII names are written as-is.
func Marshal(msg Outbound) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}

	// Copy out of the pooled buffer, dropping Encode's trailing newline
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}

type envelope struct {
	Type string `json:"type"`
}

// Decode parses a client frame into a pointer to its concrete message
// type.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var msg Inbound
	switch env.Type {
	case TypeAuth:
		msg = &Auth{}
	case TypeListRooms:
		msg = &ListRooms{}
	case TypeCreateRoom:
		msg = &CreateRoom{}
	case TypeJoinRoom:
		msg = &JoinRoom{}
	case TypeLeaveRoom:
		msg = &LeaveRoom{}
	case TypeStartGame:
		msg = &StartGame{}
	case TypeAction:
		msg = &Action{}
	case TypeReady:
		msg = &Ready{}
	case TypeUpdateSettings:
		msg = &UpdateSettings{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
	}
	return msg, nil
}
