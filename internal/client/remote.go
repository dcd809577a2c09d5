package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/netsync"
	"isles-of-conquest/internal/protocol"
	"isles-of-conquest/pkg/logger"
)

// RemoteConfig selects the server and session of a RemoteClient.
type RemoteConfig struct {
	Server   string
	Instance string
	Name     string
	// TickRate is the server's tick rate; frames are replayed at it.
	TickRate    int
	ReplayDepth int
}

// RemoteClient plays against a server over a websocket. Incoming frames are
// smoothed by a Replayer and folded into a mirrored snapshot; outgoing
// intents are batched once per Tick.
type RemoteClient struct {
	cfg RemoteConfig

	mu        sync.Mutex
	conn      *websocket.Conn
	sendChan  chan []byte
	done      chan struct{}
	connected bool
	player    game.PlayerID
	instance  string

	replay  *netsync.Replayer
	pending []game.Intent
	seq     uint64
	inbox   inbox
	mirror  *game.Snapshot
	log     *logrus.Entry
}

// NewRemote creates an unconnected remote client.
func NewRemote(cfg RemoteConfig) *RemoteClient {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 20
	}
	return &RemoteClient{
		cfg:      cfg,
		sendChan: make(chan []byte, 64),
		done:     make(chan struct{}),
		replay:   netsync.NewReplayer(cfg.ReplayDepth, cfg.TickRate),
		instance: cfg.Instance,
		log:      logger.Instance(cfg.Instance),
	}
}

// Connect joins the configured instance as a new player.
func (c *RemoteClient) Connect(ctx context.Context) error {
	return c.dial(ctx, 0)
}

// Reconnect resumes the session of the player from the last welcome.
func (c *RemoteClient) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	player := c.player
	c.mu.Unlock()
	if player == 0 {
		return ErrNoSession
	}
	c.Disconnect()
	return c.dial(ctx, player)
}

func (c *RemoteClient) dial(ctx context.Context, player game.PlayerID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := wsURL(c.cfg.Server, c.instance, c.cfg.Name, player)
	c.log.WithField("url", u).Debug("Dialing server")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.Server, err)
	}
	conn.SetReadLimit(protocol.MaxPayloadSize + protocol.HeaderSize)

	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})
	for len(c.sendChan) > 0 {
		<-c.sendChan
	}

	go c.readPump(conn, c.done)
	go c.writePump(conn, c.done)

	c.log.WithField("player", player).Info("Connected to server")
	return nil
}

// Disconnect closes the connection. The session can be resumed with
// Reconnect until the server reaps it.
func (c *RemoteClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	if c.connected {
		close(c.done)
	}
	c.connected = false
	c.conn.Close(websocket.StatusNormalClosure, "")
	c.conn = nil
}

// IsConnected returns true if connected to the server.
func (c *RemoteClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close disconnects for good.
func (c *RemoteClient) Close() error {
	c.Disconnect()
	return nil
}

// Send queues an intent for the next batch.
func (c *RemoteClient) Send(in game.Intent) {
	if !in.Kind.Remote() {
		c.log.WithField("intent", in.Kind).Debug("Intent not allowed remotely")
		return
	}
	c.mu.Lock()
	c.pending = append(c.pending, in)
	c.mu.Unlock()
}

// Tick sends the pending intents as one batch and releases the frames due
// after dt. While disconnected, intents stay queued and ErrNotConnected is
// returned; buffered frames are still replayed.
func (c *RemoteClient) Tick(dt time.Duration) error {
	err := c.flush()

	for _, f := range c.replay.Advance(dt) {
		for _, m := range f.Messages {
			c.receive(m)
		}
	}
	if c.mirror != nil {
		c.mirror.Advance(dt.Seconds())
	}
	return err
}

func (c *RemoteClient) flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return nil
	}
	if !c.connected {
		return ErrNotConnected
	}

	c.seq++
	data, err := protocol.EncodeBatch(&protocol.ClientBatch{Seq: c.seq, Intents: c.pending})
	if err != nil {
		return err
	}
	select {
	case c.sendChan <- data:
		c.pending = c.pending[:0]
	default:
		c.log.Warn("Send channel full, holding intents")
	}
	return nil
}

func (c *RemoteClient) receive(m protocol.ServerMessage) {
	switch m.Type {
	case protocol.TypeWelcome:
		c.mu.Lock()
		c.player = m.PlayerID
		c.instance = m.Instance
		c.mu.Unlock()
	case protocol.TypeSnapshot:
		c.mirror = m.Snapshot
	case protocol.TypeEvent:
		if c.mirror != nil && m.Event != nil {
			c.mirror.Apply(*m.Event)
		}
	}
	c.inbox.push(m)
}

// NextMessage pops the oldest released message.
func (c *RemoteClient) NextMessage() (protocol.ServerMessage, bool) {
	return c.inbox.pop()
}

// ServerState returns the mirrored state, or nil before the first snapshot.
func (c *RemoteClient) ServerState() *game.Snapshot {
	return c.mirror
}

// Player returns the id from the last welcome.
func (c *RemoteClient) Player() game.PlayerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player
}

// Dropped returns how many frames the replay buffer discarded.
func (c *RemoteClient) Dropped() int {
	return c.replay.Dropped()
}

// readPump reads frames from the websocket into the replay buffer.
func (c *RemoteClient) readPump(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.done == done && c.connected {
			c.connected = false
			close(done)
		}
		c.mu.Unlock()
	}()

	for {
		msgType, data, err := conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				select {
				case <-done:
				default:
					c.log.WithError(err).Info("Connection lost")
				}
			}
			return
		}

		if msgType != websocket.MessageBinary {
			continue
		}

		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			c.log.WithError(err).Warn("Dropping malformed frame")
			continue
		}
		c.replay.Push(frame)
	}
}

// writePump writes batches to the websocket.
func (c *RemoteClient) writePump(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case data := <-c.sendChan:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := conn.Write(ctx, websocket.MessageBinary, data)
			cancel()
			if err != nil {
				c.log.WithError(err).Info("Write failed")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// wsURL builds the websocket URL for a server address. Cloud hosts and
// explicit wss:// addresses use TLS.
func wsURL(server, instance, name string, player game.PlayerID) string {
	scheme := "ws"
	host := server
	switch {
	case strings.HasPrefix(server, "wss://"):
		scheme, host = "wss", strings.TrimPrefix(server, "wss://")
	case strings.HasPrefix(server, "ws://"):
		host = strings.TrimPrefix(server, "ws://")
	case strings.HasPrefix(server, "http://"):
		host = strings.TrimPrefix(server, "http://")
	case strings.HasPrefix(server, "https://"):
		scheme, host = "wss", strings.TrimPrefix(server, "https://")
	case strings.Contains(server, ".onrender.com"), strings.Contains(server, ".fly.dev"):
		scheme = "wss"
	}
	host = strings.TrimSuffix(host, "/")

	q := url.Values{}
	if instance != "" {
		q.Set("instance", instance)
	}
	if name != "" {
		q.Set("name", name)
	}
	if player != 0 {
		q.Set("player", strconv.FormatUint(uint64(player), 10))
	}

	u := url.URL{Scheme: scheme, Host: host, Path: "/ws", RawQuery: q.Encode()}
	return u.String()
}
