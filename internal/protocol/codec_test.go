package protocol

import (
	"encoding/binary"
	"errors"
	"testing"

	"isles-of-conquest/internal/game"
	"isles-of-conquest/pkg/geom"
)

func testSnapshot() *game.Snapshot {
	snap := &game.Snapshot{
		Tick:  120,
		World: game.WorldMeta{Preset: "standard", Seed: 1, Size: 2048, TileSize: 4, Checksum: "abc"},
	}
	for i := 1; i <= 50; i++ {
		snap.Ships = append(snap.Ships, game.ShipInfo{
			Key:      game.ShipKey{ID: game.ShipID(i), Player: 1},
			Position: geom.V2D{X: float64(i), Y: -float64(i)},
			HP:       30,
		})
	}
	snap.Players = []game.PlayerInfo{{ID: 1, Name: "alice", Flag: "kraken"}}
	snap.Islands = []game.IslandOwner{{Island: 3, Owner: 1}}
	return snap
}

func TestEncodeFrame_SnapshotCompressed(t *testing.T) {
	f := &Frame{Tick: 120, Messages: []ServerMessage{SnapshotMessage(testSnapshot())}}
	data, err := EncodeFrame(f)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if !IsCompressed(data) {
		t.Error("expected snapshot frame to be compressed")
	}

	got, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if got.Tick != 120 || len(got.Messages) != 1 || got.Messages[0].Type != TypeSnapshot {
		t.Fatalf("unexpected frame %+v", got)
	}
	snap := got.Messages[0].Snapshot
	if len(snap.Ships) != 50 || snap.Owner(3) != 1 || snap.World.Checksum != "abc" {
		t.Errorf("snapshot did not survive the trip: %d ships, owner %d", len(snap.Ships), snap.Owner(3))
	}
}

func TestEncodeFrame_SmallEventsUncompressed(t *testing.T) {
	ev := game.Event{Kind: game.EventShipMoved, Ship: game.ShipKey{ID: 2, Player: 5}, Velocity: geom.V2D{X: 10}}
	f := &Frame{Tick: 7, Messages: []ServerMessage{EventMessage(ev), WelcomeMessage(5, "inst")}}
	data, err := EncodeFrame(f)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if IsCompressed(data) {
		t.Error("expected small frame to stay uncompressed")
	}
	if n := binary.BigEndian.Uint32(data[1:HeaderSize]); int(n) != len(data)-HeaderSize {
		t.Errorf("header length %d does not match payload %d", n, len(data)-HeaderSize)
	}

	got, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if got.Messages[0].Event.Ship != ev.Ship || got.Messages[0].Event.Velocity != ev.Velocity {
		t.Errorf("expected %+v, got %+v", ev, got.Messages[0].Event)
	}
	if got.Messages[1].PlayerID != 5 || got.Messages[1].Instance != "inst" {
		t.Errorf("unexpected welcome %+v", got.Messages[1])
	}
}

func TestDecodeBatch_Intents(t *testing.T) {
	b := &ClientBatch{Seq: 3, Intents: []game.Intent{
		{Kind: game.IntentSelect, Ships: []game.ShipID{1, 2}, Replace: true},
		{Kind: game.IntentMove, Target: geom.V2D{X: 12.5, Y: -3}},
	}}
	data, err := EncodeBatch(b)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	got, err := DecodeBatch(data)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if got.Seq != 3 || len(got.Intents) != 2 {
		t.Fatalf("unexpected batch %+v", got)
	}
	if got.Intents[1].Target != b.Intents[1].Target || len(got.Intents[0].Ships) != 2 {
		t.Errorf("intents changed in transit: %+v", got.Intents)
	}
}

func TestDecode_MalformedFrames(t *testing.T) {
	valid, err := EncodeBatch(&ClientBatch{Seq: 1})
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}

	withHeader := func(flags byte, payload []byte) []byte {
		out := make([]byte, HeaderSize+len(payload))
		out[0] = flags
		binary.BigEndian.PutUint32(out[1:], uint32(len(payload)))
		copy(out[HeaderSize:], payload)
		return out
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte{0, 0, 0}},
		{"truncated payload", valid[:len(valid)-1]},
		{"unknown flags", withHeader(0x80, valid[HeaderSize:])},
		{"bad msgpack", withHeader(0, []byte{0xc1})},
		{"bad lz4", withHeader(FlagCompressed, []byte("not lz4 at all"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeBatch(tt.data); !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("expected ErrMalformedFrame, got %v", err)
			}
		})
	}
}
