package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"

	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/protocol"
	"isles-of-conquest/pkg/geom"
	"isles-of-conquest/pkg/logger"
	"isles-of-conquest/pkg/maps"
)

func init() {
	logger.Silence()
}

// openSeaWorld is 32x32 tiles of open water, 128 units across.
func openSeaWorld() *maps.World {
	cfg := maps.DefaultConfig()
	cfg.ID = "open-sea"
	cfg.Size = 128
	cfg.TileSize = 4
	return &maps.World{Config: cfg, Side: 32, Tiles: make([]maps.Tile, 32*32)}
}

func localSettings() game.Settings {
	s := game.DefaultSettings()
	s.BotCount = 0
	s.ChunkSize = 8
	return s
}

func drain(c Client) []protocol.ServerMessage {
	var out []protocol.ServerMessage
	for {
		m, ok := c.NextMessage()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

func hasEvent(msgs []protocol.ServerMessage, kind game.EventKind) bool {
	for _, m := range msgs {
		if m.Type == protocol.TypeEvent && m.Event != nil && m.Event.Kind == kind {
			return true
		}
	}
	return false
}

func TestLocalClient_Join(t *testing.T) {
	c := NewLocal(openSeaWorld(), localSettings(), "alice")
	defer c.Close()

	msgs := drain(c)
	if len(msgs) < 3 {
		t.Fatalf("expected welcome, join and snapshot, got %d messages", len(msgs))
	}
	if msgs[0].Type != protocol.TypeWelcome || msgs[0].PlayerID != c.Player() {
		t.Errorf("expected welcome for player %d first, got %+v", c.Player(), msgs[0])
	}
	if !hasEvent(msgs, game.EventPlayerJoined) {
		t.Error("expected a join event")
	}
	last := msgs[len(msgs)-1]
	if last.Type != protocol.TypeSnapshot || last.Snapshot.Player(c.Player()) == nil {
		t.Errorf("expected a snapshot with the player, got %+v", last)
	}
	if p := c.ServerState().Player(c.Player()); p == nil || p.Name != "alice" {
		t.Errorf("expected alice in the state, got %+v", p)
	}
}

func TestLocalClient_CreateAndSail(t *testing.T) {
	c := NewLocal(openSeaWorld(), localSettings(), "alice")
	drain(c)

	home := c.ServerState().Player(c.Player()).Home
	c.Send(game.Intent{Kind: game.IntentCreateShip, Target: home})
	if err := c.Tick(50 * time.Millisecond); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if msgs := drain(c); !hasEvent(msgs, game.EventShipCreated) {
		t.Fatal("expected a ship to be created")
	}

	snap := c.ServerState()
	if len(snap.Ships) != 1 {
		t.Fatalf("expected 1 ship, got %d", len(snap.Ships))
	}
	key := snap.Ships[0].Key

	target := geom.V2D{}
	if home.Len() < 5 {
		target = geom.V2D{X: 20}
	}
	c.Send(game.Intent{Kind: game.IntentSelect, Ships: []game.ShipID{key.ID}, Replace: true})
	c.Send(game.Intent{Kind: game.IntentMove, Target: target})
	for i := 0; i < 10; i++ {
		c.Send(game.Intent{Kind: game.IntentAdvanceTime, Dt: 1})
	}

	msgs := drain(c)
	if !hasEvent(msgs, game.EventSelection) || !hasEvent(msgs, game.EventShipStopped) {
		t.Error("expected selection and arrival events")
	}
	ship := c.ServerState().Ship(key)
	if ship == nil {
		t.Fatal("ship vanished")
	}
	if d := ship.Position.Dist(target); d > 1 {
		t.Errorf("expected the ship at %v, got %v", target, ship.Position)
	}
	if c.State().Tick() < 11 {
		t.Errorf("expected AdvanceTime to step the simulation, tick %d", c.State().Tick())
	}
}

func TestRemoteClient_NotConnected(t *testing.T) {
	c := NewRemote(RemoteConfig{Server: "localhost:1", Name: "bob"})

	c.Send(game.Intent{Kind: game.IntentMove, Target: geom.V2D{X: 1}})
	if err := c.Tick(time.Millisecond); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := c.Reconnect(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
	if c.ServerState() != nil {
		t.Error("expected no state before a snapshot")
	}
}

func TestRemoteClient_Session(t *testing.T) {
	batches := make(chan *protocol.ClientBatch, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" || r.URL.Query().Get("name") != "bob" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()

		snap := &game.Snapshot{Tick: 1, Players: []game.PlayerInfo{{ID: 7, Name: "bob"}}}
		data, _ := protocol.EncodeFrame(&protocol.Frame{Tick: 1, Messages: []protocol.ServerMessage{
			protocol.WelcomeMessage(7, "inst"),
			protocol.SnapshotMessage(snap),
		}})
		if err := conn.Write(ctx, websocket.MessageBinary, data); err != nil {
			return
		}

		_, in, err := conn.Read(ctx)
		if err != nil {
			return
		}
		batch, err := protocol.DecodeBatch(in)
		if err != nil {
			return
		}
		batches <- batch

		ev := game.Event{
			Kind:     game.EventShipCreated,
			Ship:     game.ShipKey{ID: 1, Player: 7},
			Position: batch.Intents[0].Target,
			HP:       30,
		}
		data, _ = protocol.EncodeFrame(&protocol.Frame{Tick: 2, Messages: []protocol.ServerMessage{protocol.EventMessage(ev)}})
		if err := conn.Write(ctx, websocket.MessageBinary, data); err != nil {
			return
		}
		conn.Read(ctx)
	}))
	defer srv.Close()

	c := NewRemote(RemoteConfig{Server: srv.URL, Instance: "inst", Name: "bob", TickRate: 100})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	waitFor(t, c, func() bool { return c.Player() == 7 && c.ServerState() != nil })

	c.Send(game.Intent{Kind: game.IntentAddPlayer, Name: "mallory"})
	c.Send(game.Intent{Kind: game.IntentCreateShip, Target: geom.V2D{X: 3, Y: 4}})
	if err := c.Tick(0); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	select {
	case b := <-batches:
		if b.Seq != 1 || len(b.Intents) != 1 || b.Intents[0].Kind != game.IntentCreateShip {
			t.Errorf("unexpected batch %+v", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the batch")
	}

	key := game.ShipKey{ID: 1, Player: 7}
	waitFor(t, c, func() bool { return c.ServerState().Ship(key) != nil })
	if sh := c.ServerState().Ship(key); sh.Position != (geom.V2D{X: 3, Y: 4}) {
		t.Errorf("unexpected mirrored ship %+v", sh)
	}

	msgs := drain(c)
	if len(msgs) != 3 || msgs[0].Type != protocol.TypeWelcome || msgs[2].Type != protocol.TypeEvent {
		t.Errorf("expected welcome, snapshot and event in order, got %d messages", len(msgs))
	}
}

func waitFor(t *testing.T, c *RemoteClient, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the server")
		}
		time.Sleep(5 * time.Millisecond)
		if err := c.Tick(10 * time.Millisecond); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
}

func TestWsURL(t *testing.T) {
	tests := []struct {
		server string
		player game.PlayerID
		want   string
	}{
		{"localhost:30000", 0, "ws://localhost:30000/ws?instance=i&name=bob"},
		{"http://127.0.0.1:8080", 0, "ws://127.0.0.1:8080/ws?instance=i&name=bob"},
		{"wss://isles.example.com", 0, "wss://isles.example.com/ws?instance=i&name=bob"},
		{"isles.fly.dev", 3, "wss://isles.fly.dev/ws?instance=i&name=bob&player=3"},
	}
	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			if got := wsURL(tt.server, "i", "bob", tt.player); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_DefaultsFillMissingFields(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfigFile(filepath.Join(dir, "missing.json"))
	if err != nil || cfg.TickRate != 20 {
		t.Fatalf("expected defaults for a missing file, got %+v, %v", cfg, err)
	}

	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"player_name": "bob", "last_instance": "abc"}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfigFile(path)
	if err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}
	r := cfg.Remote()
	if r.Name != "bob" || r.Instance != "abc" || r.Server != "localhost:30000" || r.ReplayDepth != 32 {
		t.Errorf("unexpected remote config %+v", r)
	}
}
