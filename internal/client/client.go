// Package client drives the simulation from the player's side, either
// in-process or against a remote server.
package client

import (
	"context"
	"errors"
	"time"

	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/protocol"
)

// Client errors
var (
	ErrNotConnected = errors.New("not connected")
	ErrNoSession    = errors.New("no session to resume")
)

// Client is the front end's view of a simulation. Messages come out in the
// order the server produced them; ServerState mirrors the authoritative
// state as of the last released message.
type Client interface {
	// Send queues an intent for the next tick.
	Send(in game.Intent)
	// Tick advances client time by dt.
	Tick(dt time.Duration) error
	// NextMessage pops the oldest undelivered message.
	NextMessage() (protocol.ServerMessage, bool)
	// ServerState returns the mirrored state, or nil before the first
	// snapshot.
	ServerState() *game.Snapshot
	// Reconnect resumes the session after a lost connection.
	Reconnect(ctx context.Context) error
	// Player returns the local player's id, or zero before the welcome.
	Player() game.PlayerID
	// Close releases the client.
	Close() error
}

var (
	_ Client = (*LocalClient)(nil)
	_ Client = (*RemoteClient)(nil)
)

// inbox is a FIFO of released server messages.
type inbox struct {
	msgs []protocol.ServerMessage
}

func (q *inbox) push(m protocol.ServerMessage) {
	q.msgs = append(q.msgs, m)
}

func (q *inbox) pop() (protocol.ServerMessage, bool) {
	if len(q.msgs) == 0 {
		return protocol.ServerMessage{}, false
	}
	m := q.msgs[0]
	q.msgs[0] = protocol.ServerMessage{}
	q.msgs = q.msgs[1:]
	return m, true
}
