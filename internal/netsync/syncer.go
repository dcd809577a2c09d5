// Package netsync buffers per-tick simulation changes for every connected
// player and flushes them as one frame per connection per tick.
package netsync

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/protocol"
	"isles-of-conquest/pkg/logger"
)

// Sync errors
var (
	ErrUnknownPlayer = errors.New("no connection for player")
	ErrNotDown       = errors.New("connection is not down")
	ErrAttached      = errors.New("player already attached")
)

// Sender delivers an encoded frame to one peer. Send must not block; a full
// peer is reported as an error.
type Sender interface {
	Send(data []byte) error
}

// Config tunes the syncer.
type Config struct {
	// ResyncInterval is the number of ticks between full snapshots.
	ResyncInterval uint64
	// DownTimeout is how long a lost connection may stay down before its
	// player is reaped.
	DownTimeout time.Duration
}

// DefaultConfig returns the server's sync settings.
func DefaultConfig() Config {
	return Config{
		ResyncInterval: 100,
		DownTimeout:    30 * time.Second,
	}
}

// Connection is the outbound side of one player.
type Connection struct {
	Player game.PlayerID

	sender       Sender
	buffer       []protocol.ServerMessage
	downSince    time.Time
	needSnapshot bool
	sent         uint64
}

// Down reports whether the connection is currently lost.
func (c *Connection) Down() bool { return !c.downSince.IsZero() }

// DownSince returns when the connection was lost.
func (c *Connection) DownSince() time.Time { return c.downSince }

// Syncer holds every connection of one instance. Attach, Reconnect and
// Detach may be called from network goroutines; Publish, Flush and Reap run
// on the tick goroutine.
type Syncer struct {
	mu    sync.Mutex
	cfg   Config
	conns map[game.PlayerID]*Connection
	now   func() time.Time
	log   *logrus.Entry
}

// New creates a syncer.
func New(cfg Config) *Syncer {
	if cfg.ResyncInterval == 0 {
		cfg.ResyncInterval = DefaultConfig().ResyncInterval
	}
	if cfg.DownTimeout <= 0 {
		cfg.DownTimeout = DefaultConfig().DownTimeout
	}
	return &Syncer{
		cfg:   cfg,
		conns: make(map[game.PlayerID]*Connection),
		now:   time.Now,
		log:   logrus.NewEntry(logger.Log),
	}
}

// SetLogger replaces the log entry.
func (s *Syncer) SetLogger(e *logrus.Entry) { s.log = e }

// SetClock replaces the time source.
func (s *Syncer) SetClock(now func() time.Time) { s.now = now }

// Attach registers a new player connection. The first frame it receives
// carries its player id and a full snapshot.
func (s *Syncer) Attach(id game.PlayerID, sender Sender, instance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[id]; ok {
		return ErrAttached
	}
	s.conns[id] = &Connection{
		Player:       id,
		sender:       sender,
		buffer:       []protocol.ServerMessage{protocol.WelcomeMessage(id, instance)},
		needSnapshot: true,
	}
	return nil
}

// Reconnect swaps in a new sender for a player whose connection is down.
// Everyone is told the player is back and the player gets a snapshot.
func (s *Syncer) Reconnect(id game.PlayerID, sender Sender, instance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if !c.Down() {
		return ErrNotDown
	}

	c.sender = sender
	c.downSince = time.Time{}
	c.needSnapshot = true
	c.buffer = append(c.buffer[:0], protocol.WelcomeMessage(id, instance))
	s.broadcastLocked(protocol.ReconnectedMessage(id))

	s.log.WithField("player", id).Info("Player reconnected")
	return nil
}

// Detach marks a player's connection as down. The player keeps its ships
// until it reconnects or is reaped.
func (s *Syncer) Detach(id game.PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[id]; ok && !c.Down() {
		s.markDownLocked(c)
	}
}

// Release is Detach for a specific sender. It does nothing when the player
// has since reconnected through another sender.
func (s *Syncer) Release(id game.PlayerID, sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[id]; ok && c.sender == sender && !c.Down() {
		s.markDownLocked(c)
	}
}

// Remove forgets a connection entirely.
func (s *Syncer) Remove(id game.PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

// Connection returns a player's connection.
func (s *Syncer) Connection(id game.PlayerID) *Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[id]
}

// Len returns the number of known connections, down ones included.
func (s *Syncer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Publish routes one tick's events into the connection buffers. Every
// ResyncInterval ticks, and for connections that just (re)joined, a full
// snapshot replaces the broadcast events. snapshot is called at most once.
func (s *Syncer) Publish(tick uint64, events []game.Event, snapshot func() *game.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resync := tick%s.cfg.ResyncInterval == 0
	var snap *game.Snapshot
	takeSnapshot := func() *game.Snapshot {
		if snap == nil {
			snap = snapshot()
		}
		return snap
	}

	for _, c := range s.conns {
		if c.Down() {
			continue
		}
		full := resync || c.needSnapshot
		if full {
			c.buffer = append(c.buffer, protocol.SnapshotMessage(takeSnapshot()))
			c.needSnapshot = false
		}
		for _, ev := range events {
			switch {
			case ev.To == c.Player:
				c.buffer = append(c.buffer, protocol.EventMessage(ev))
			case ev.Broadcast() && !full:
				c.buffer = append(c.buffer, protocol.EventMessage(ev))
			}
		}
	}
}

// Flush encodes and sends every non-empty buffer, then clears it. A failed
// send marks that connection down; the others are told on the next flush.
func (s *Syncer) Flush(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []*Connection
	for _, id := range s.idsLocked() {
		c := s.conns[id]
		if c.Down() || len(c.buffer) == 0 {
			continue
		}

		data, err := protocol.EncodeFrame(&protocol.Frame{Tick: tick, Messages: c.buffer})
		c.buffer = c.buffer[:0]
		if err != nil {
			s.log.WithFields(logrus.Fields{"player": id, "tick": tick}).WithError(err).Error("Failed to encode frame")
			continue
		}
		if err := c.sender.Send(data); err != nil {
			s.log.WithFields(logrus.Fields{"player": id, "tick": tick}).WithError(err).Info("Send failed, connection down")
			failed = append(failed, c)
			continue
		}
		c.sent++
	}

	for _, c := range failed {
		s.markDownLocked(c)
	}
}

// Reap removes connections that have been down longer than DownTimeout and
// returns their players so the caller can dispose of them.
func (s *Syncer) Reap() []game.PlayerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var reaped []game.PlayerID
	for _, id := range s.idsLocked() {
		c := s.conns[id]
		if c.Down() && now.Sub(c.downSince) > s.cfg.DownTimeout {
			delete(s.conns, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}

func (s *Syncer) markDownLocked(c *Connection) {
	c.downSince = s.now()
	c.buffer = c.buffer[:0]
	s.broadcastLocked(protocol.ConnectionDownMessage(c.Player))
}

func (s *Syncer) broadcastLocked(m protocol.ServerMessage) {
	for _, c := range s.conns {
		if !c.Down() {
			c.buffer = append(c.buffer, m)
		}
	}
}

func (s *Syncer) idsLocked() []game.PlayerID {
	ids := make([]game.PlayerID, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
