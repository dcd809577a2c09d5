package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 65536
	sendQueueSize  = 256
)

// Conn is one player's websocket. It is the instance's netsync.Sender for
// that player: the tick goroutine hands it encoded frames and the write
// pump drains them.
type Conn struct {
	inst    *Instance
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter

	Player game.PlayerID
	log    *logrus.Entry
}

// NewConn creates a connection for inst. The websocket is attached once the
// upgrade succeeded; frames sent before that are buffered.
func NewConn(inst *Instance, limit rate.Limit, burst int) *Conn {
	return &Conn{
		inst:    inst,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(limit, burst),
		log:     inst.log,
	}
}

// Send queues an encoded frame. It never blocks: a slow or closed peer is
// reported as an error, which marks the connection down.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Serve starts the pumps on an upgraded websocket.
func (c *Conn) Serve(ws *websocket.Conn, player game.PlayerID) {
	c.ws = ws
	c.Player = player
	c.log = c.inst.log.WithField("player", player)
	if !c.inst.track(c) {
		c.close()
	}
	go c.writePump()
	go c.readPump()
}

func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// readPump pumps client batches into the instance.
func (c *Conn) readPump() {
	defer func() {
		c.inst.Release(c.Player, c)
		c.inst.untrack(c)
		c.close()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Info("WebSocket error")
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		if !c.limiter.Allow() {
			c.log.Debug("Rate limited, dropping batch")
			continue
		}

		batch, err := protocol.DecodeBatch(data)
		if err != nil {
			c.log.WithError(err).Warn("Invalid batch")
			continue
		}
		if len(batch.Intents) == 0 {
			continue
		}
		if !c.inst.Submit(c.Player, batch.Intents) {
			c.log.WithField("seq", batch.Seq).Warn("Inbound queue full, dropping batch")
		}
	}
}

// writePump pumps frames to the websocket.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return

		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
