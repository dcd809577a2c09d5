package netsync

import (
	"errors"
	"testing"
	"time"

	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/protocol"
	"isles-of-conquest/pkg/logger"
)

func init() {
	logger.Silence()
}

type fakeSender struct {
	frames []*protocol.Frame
	fail   bool
}

func (f *fakeSender) Send(data []byte) error {
	if f.fail {
		return errors.New("send buffer full")
	}
	frame, err := protocol.DecodeFrame(data)
	if err != nil {
		return err
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeSender) last() *protocol.Frame {
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

func countType(f *protocol.Frame, t protocol.MessageType) int {
	if f == nil {
		return 0
	}
	n := 0
	for _, m := range f.Messages {
		if m.Type == t {
			n++
		}
	}
	return n
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestSyncer(resync uint64) (*Syncer, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := New(Config{ResyncInterval: resync, DownTimeout: 30 * time.Second})
	s.SetClock(clock.now)
	return s, clock
}

func emptySnapshot() *game.Snapshot { return &game.Snapshot{} }

func broadcastEvent() []game.Event {
	return []game.Event{{Kind: game.EventShipMoved, Ship: game.ShipKey{ID: 1, Player: 1}}}
}

func TestAttach_FirstFrameHasWelcomeAndSnapshot(t *testing.T) {
	s, _ := newTestSyncer(100)
	alice := &fakeSender{}
	if err := s.Attach(1, alice, "inst"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := s.Attach(1, alice, "inst"); !errors.Is(err, ErrAttached) {
		t.Errorf("expected ErrAttached, got %v", err)
	}

	s.Publish(1, broadcastEvent(), emptySnapshot)
	s.Flush(1)

	f := alice.last()
	if f == nil || f.Tick != 1 {
		t.Fatalf("expected a frame for tick 1, got %+v", f)
	}
	if f.Messages[0].Type != protocol.TypeWelcome || f.Messages[0].PlayerID != 1 {
		t.Errorf("expected welcome first, got %+v", f.Messages[0])
	}
	if countType(f, protocol.TypeSnapshot) != 1 || countType(f, protocol.TypeEvent) != 0 {
		t.Errorf("expected the snapshot to replace broadcast events, got %+v", f.Messages)
	}

	s.Publish(2, broadcastEvent(), emptySnapshot)
	s.Flush(2)
	if f := alice.last(); countType(f, protocol.TypeEvent) != 1 || countType(f, protocol.TypeSnapshot) != 0 {
		t.Errorf("expected an incremental frame, got %+v", f.Messages)
	}
}

func TestPublish_ResyncInterval(t *testing.T) {
	s, _ := newTestSyncer(5)
	alice := &fakeSender{}
	s.Attach(1, alice, "inst")
	s.Publish(0, nil, emptySnapshot)
	s.Flush(0)

	calls := 0
	snapshot := func() *game.Snapshot {
		calls++
		return &game.Snapshot{}
	}

	for tick := uint64(1); tick <= 10; tick++ {
		before := calls
		s.Publish(tick, broadcastEvent(), snapshot)
		s.Flush(tick)

		f := alice.last()
		resync := tick%5 == 0
		if got := countType(f, protocol.TypeSnapshot) == 1; got != resync {
			t.Errorf("tick %d: snapshot present = %v, want %v", tick, got, resync)
		}
		if resync && countType(f, protocol.TypeEvent) != 0 {
			t.Errorf("tick %d: expected events replaced by the snapshot", tick)
		}
		if resync && calls != before+1 {
			t.Errorf("tick %d: expected one snapshot build, got %d", tick, calls-before)
		}
	}
}

func TestPublish_TargetedEvents(t *testing.T) {
	s, _ := newTestSyncer(100)
	alice, bob := &fakeSender{}, &fakeSender{}
	s.Attach(1, alice, "inst")
	s.Attach(2, bob, "inst")
	s.Publish(1, nil, emptySnapshot)
	s.Flush(1)

	s.Publish(2, []game.Event{{Kind: game.EventSelection, To: 2, Ships: []game.ShipID{4}}}, emptySnapshot)
	s.Flush(2)

	if f := bob.last(); f.Tick != 2 || countType(f, protocol.TypeEvent) != 1 {
		t.Errorf("expected bob to get his selection, got %+v", f)
	}
	if f := alice.last(); f.Tick != 1 {
		t.Errorf("expected alice to get nothing at tick 2, got tick %d", f.Tick)
	}
}

func TestFlush_SendFailureMarksDown(t *testing.T) {
	s, clock := newTestSyncer(100)
	alice, bob := &fakeSender{}, &fakeSender{}
	s.Attach(1, alice, "inst")
	s.Attach(2, bob, "inst")
	s.Publish(1, nil, emptySnapshot)
	s.Flush(1)

	bob.fail = true
	s.Publish(2, broadcastEvent(), emptySnapshot)
	s.Flush(2)

	c := s.Connection(2)
	if !c.Down() || !c.DownSince().Equal(clock.t) {
		t.Fatalf("expected bob marked down at %v", clock.t)
	}
	if s.Connection(1).Down() {
		t.Error("expected alice to stay up")
	}

	s.Publish(3, broadcastEvent(), emptySnapshot)
	s.Flush(3)
	f := alice.last()
	if f.Tick != 3 || countType(f, protocol.TypeConnectionDown) != 1 {
		t.Errorf("expected alice to hear about bob, got %+v", f.Messages)
	}
	if len(bob.frames) != 1 {
		t.Errorf("expected no frames for a down connection, got %d", len(bob.frames))
	}
}

func TestReconnect_Rules(t *testing.T) {
	s, _ := newTestSyncer(100)
	alice, bob := &fakeSender{}, &fakeSender{}
	s.Attach(1, alice, "inst")
	s.Attach(2, bob, "inst")
	s.Publish(1, nil, emptySnapshot)
	s.Flush(1)

	if err := s.Reconnect(9, &fakeSender{}, "inst"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("expected ErrUnknownPlayer, got %v", err)
	}
	if err := s.Reconnect(2, &fakeSender{}, "inst"); !errors.Is(err, ErrNotDown) {
		t.Errorf("expected ErrNotDown, got %v", err)
	}

	s.Detach(2)
	bob2 := &fakeSender{}
	if err := s.Reconnect(2, bob2, "inst"); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	if s.Connection(2).Down() {
		t.Error("expected connection up after reconnect")
	}

	s.Publish(2, broadcastEvent(), emptySnapshot)
	s.Flush(2)

	f := bob2.last()
	if f == nil || countType(f, protocol.TypeWelcome) != 1 || countType(f, protocol.TypeSnapshot) != 1 {
		t.Fatalf("expected welcome and snapshot on the new sender, got %+v", f)
	}
	if countType(alice.last(), protocol.TypeReconnected) != 1 {
		t.Errorf("expected alice to hear bob reconnected, got %+v", alice.last().Messages)
	}
	if len(bob.frames) != 1 {
		t.Errorf("expected the old sender to be retired, got %d frames", len(bob.frames))
	}
}

func TestRelease_IgnoresRetiredSender(t *testing.T) {
	s, _ := newTestSyncer(100)
	old := &fakeSender{}
	s.Attach(1, old, "inst")
	s.Detach(1)

	fresh := &fakeSender{}
	if err := s.Reconnect(1, fresh, "inst"); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	s.Release(1, old)
	if s.Connection(1).Down() {
		t.Error("expected the retired sender to leave the new connection up")
	}

	s.Release(1, fresh)
	if !s.Connection(1).Down() {
		t.Error("expected releasing the current sender to mark it down")
	}
}

func TestReap_AfterTimeout(t *testing.T) {
	s, clock := newTestSyncer(100)
	s.Attach(1, &fakeSender{}, "inst")
	s.Attach(2, &fakeSender{}, "inst")
	s.Detach(2)

	clock.t = clock.t.Add(10 * time.Second)
	if got := s.Reap(); len(got) != 0 {
		t.Errorf("expected nothing reaped yet, got %v", got)
	}

	clock.t = clock.t.Add(21 * time.Second)
	got := s.Reap()
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected player 2 reaped, got %v", got)
	}
	if s.Len() != 1 || s.Connection(2) != nil {
		t.Errorf("expected only alice left, have %d connections", s.Len())
	}
	if err := s.Reconnect(2, &fakeSender{}, "inst"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("expected reconnect after reap to fail, got %v", err)
	}
}

func TestReplayer_BoundedDepth(t *testing.T) {
	r := NewReplayer(4, 20)
	for i := 1; i <= 10; i++ {
		r.Push(&protocol.Frame{Tick: uint64(i)})
	}
	if r.Len() != 4 {
		t.Errorf("expected 4 queued frames, got %d", r.Len())
	}
	if r.Dropped() != 6 {
		t.Errorf("expected 6 dropped frames, got %d", r.Dropped())
	}

	out := r.Advance(time.Second)
	if len(out) != 4 || out[0].Tick != 7 || out[3].Tick != 10 {
		t.Errorf("expected the newest frames 7..10, got %d frames", len(out))
	}
}

func TestReplayer_FixedRate(t *testing.T) {
	r := NewReplayer(16, 10)
	step := r.Interval()
	for i := 1; i <= 5; i++ {
		r.Push(&protocol.Frame{Tick: uint64(i)})
	}

	if out := r.Advance(step / 2); len(out) != 0 {
		t.Errorf("expected nothing before a full interval, got %d", len(out))
	}
	if out := r.Advance(step / 2); len(out) != 1 || out[0].Tick != 1 {
		t.Errorf("expected frame 1, got %v", out)
	}
	if out := r.Advance(3 * step); len(out) != 3 {
		t.Errorf("expected 3 frames, got %d", len(out))
	}
	if out := r.Advance(10 * step); len(out) != 1 || out[0].Tick != 5 {
		t.Errorf("expected the last frame, got %v", out)
	}

	// An empty queue does not bank time for a later burst.
	r.Advance(10 * step)
	r.Push(&protocol.Frame{Tick: 6})
	r.Push(&protocol.Frame{Tick: 7})
	if out := r.Advance(step); len(out) != 1 {
		t.Errorf("expected one frame after idling, got %d", len(out))
	}
}
