package client

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/protocol"
	"isles-of-conquest/pkg/logger"
	"isles-of-conquest/pkg/maps"
)

// LocalInstance is the instance name reported by in-process games.
const LocalInstance = "local"

// LocalClient runs the simulation in-process for offline play. The local
// host owns the clock: Tick steps the state, and an AdvanceTime intent
// steps it immediately.
type LocalClient struct {
	state  *game.State
	meta   game.WorldMeta
	player game.PlayerID
	inbox  inbox
	snap   *game.Snapshot
	log    *logrus.Entry
}

// NewLocal creates an offline game on world and joins it as name.
func NewLocal(world *maps.World, settings game.Settings, name string) *LocalClient {
	state := game.NewState(world, settings)
	c := &LocalClient{
		state:  state,
		meta:   state.Meta(),
		player: state.IDs().Next(),
		log:    logger.Instance(LocalInstance),
	}
	state.SetLogger(c.log)

	c.inbox.push(protocol.WelcomeMessage(c.player, LocalInstance))
	state.Enqueue(game.Intent{Kind: game.IntentAddPlayer, Player: c.player, Name: name})
	c.step(0)
	c.inbox.push(protocol.SnapshotMessage(c.ServerState()))

	c.log.WithFields(logrus.Fields{
		"player": c.player,
		"seed":   c.meta.Seed,
	}).Info("Local game started")
	return c
}

// Send queues an intent, or steps time for AdvanceTime.
func (c *LocalClient) Send(in game.Intent) {
	if in.Kind.PlayerScoped() {
		in.Player = c.player
	}
	if in.Kind == game.IntentAdvanceTime {
		if in.Dt > 0 {
			c.step(in.Dt)
		}
		return
	}
	c.state.Enqueue(in)
}

// Tick steps the simulation by dt.
func (c *LocalClient) Tick(dt time.Duration) error {
	c.step(dt.Seconds())
	return nil
}

// NextMessage pops the oldest undelivered message.
func (c *LocalClient) NextMessage() (protocol.ServerMessage, bool) {
	return c.inbox.pop()
}

// ServerState returns a snapshot of the in-process state.
func (c *LocalClient) ServerState() *game.Snapshot {
	if c.snap == nil {
		c.snap = c.state.Snapshot(c.meta)
	}
	return c.snap
}

// Reconnect is a no-op; a local game cannot lose its connection.
func (c *LocalClient) Reconnect(ctx context.Context) error {
	return ctx.Err()
}

// Player returns the local player's id.
func (c *LocalClient) Player() game.PlayerID { return c.player }

// State exposes the simulation for tooling and tests.
func (c *LocalClient) State() *game.State { return c.state }

// Close ends the local game.
func (c *LocalClient) Close() error {
	c.log.WithField("tick", c.state.Tick()).Info("Local game closed")
	return nil
}

func (c *LocalClient) step(dt float64) {
	for _, ev := range c.state.Step(dt) {
		if ev.Broadcast() || ev.To == c.player {
			c.inbox.push(protocol.EventMessage(ev))
		}
	}
	c.snap = nil
}
