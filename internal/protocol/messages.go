// Package protocol defines the network messages exchanged between the
// simulation server and its clients.
package protocol

import (
	"isles-of-conquest/internal/game"
)

// MessageType identifies the type of server message.
type MessageType uint8

// Server to client message types
const (
	TypeEvent MessageType = iota + 1
	TypeSnapshot
	TypeWelcome
	TypeConnectionDown
	TypeReconnected
	TypeError
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case TypeEvent:
		return "event"
	case TypeSnapshot:
		return "snapshot"
	case TypeWelcome:
		return "welcome"
	case TypeConnectionDown:
		return "connection_down"
	case TypeReconnected:
		return "reconnected"
	case TypeError:
		return "error"
	default:
		return "unknown"
	}
}

// ServerMessage is one entry of a frame. Exactly one of the payload fields
// is set, depending on Type.
type ServerMessage struct {
	Type     MessageType    `msgpack:"t"`
	Event    *game.Event    `msgpack:"e,omitempty"`
	Snapshot *game.Snapshot `msgpack:"s,omitempty"`
	PlayerID game.PlayerID  `msgpack:"p,omitempty"`
	Instance string         `msgpack:"i,omitempty"`
	Error    *ErrorPayload  `msgpack:"err,omitempty"`
}

// EventMessage wraps a simulation event.
func EventMessage(ev game.Event) ServerMessage {
	return ServerMessage{Type: TypeEvent, Event: &ev}
}

// SnapshotMessage wraps a full snapshot.
func SnapshotMessage(snap *game.Snapshot) ServerMessage {
	return ServerMessage{Type: TypeSnapshot, Snapshot: snap}
}

// WelcomeMessage tells a connection which player it controls.
func WelcomeMessage(id game.PlayerID, instance string) ServerMessage {
	return ServerMessage{Type: TypeWelcome, PlayerID: id, Instance: instance}
}

// ConnectionDownMessage announces that a player's connection was lost.
func ConnectionDownMessage(id game.PlayerID) ServerMessage {
	return ServerMessage{Type: TypeConnectionDown, PlayerID: id}
}

// ReconnectedMessage announces that a player is back.
func ReconnectedMessage(id game.PlayerID) ServerMessage {
	return ServerMessage{Type: TypeReconnected, PlayerID: id}
}

// ErrorMessage reports a rejected request.
func ErrorMessage(code ErrorCode, msg string) ServerMessage {
	return ServerMessage{Type: TypeError, Error: &ErrorPayload{Code: code, Message: msg}}
}

// Frame is everything the server sends a connection for one tick.
type Frame struct {
	Tick     uint64          `msgpack:"tick"`
	Messages []ServerMessage `msgpack:"msgs"`
}

// HasSnapshot reports whether the frame carries a full snapshot.
func (f *Frame) HasSnapshot() bool {
	for _, m := range f.Messages {
		if m.Type == TypeSnapshot {
			return true
		}
	}
	return false
}

// ClientBatch carries the intents a client produced during one of its
// ticks. The server overwrites each intent's player with the connection's.
type ClientBatch struct {
	Seq     uint64        `msgpack:"seq"`
	Intents []game.Intent `msgpack:"in"`
}

// ErrorCode represents an error type.
type ErrorCode string

const (
	ErrCodeInvalidRequest   ErrorCode = "invalid_request"
	ErrCodeInstanceNotFound ErrorCode = "instance_not_found"
	ErrCodeInstanceFull     ErrorCode = "instance_full"
	ErrCodeInstanceLimit    ErrorCode = "instance_limit"
	ErrCodePlayerNotFound   ErrorCode = "player_not_found"
	ErrCodeNotDown          ErrorCode = "not_down"
	ErrCodeRateLimited      ErrorCode = "rate_limited"
	ErrCodeInternalError    ErrorCode = "internal_error"
)

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    ErrorCode `json:"code" msgpack:"c"`
	Message string    `json:"message" msgpack:"m"`
}
