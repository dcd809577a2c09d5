package game

import (
	"errors"
	"fmt"
	"testing"

	"isles-of-conquest/pkg/geom"
	"isles-of-conquest/pkg/logger"
	"isles-of-conquest/pkg/maps"
)

func init() {
	logger.Silence()
}

// Helper to build a small hand-made archipelago: 32x32 tiles of 4 units,
// island 1 with land at x,y in [20,24) and island 2 with land in [6,9).
func createTestWorld() *maps.World {
	cfg := maps.DefaultConfig()
	cfg.ID = "test"
	cfg.Seed = 42
	cfg.Size = 128
	cfg.TileSize = 4

	side := 32
	w := &maps.World{Config: cfg, Side: side, Tiles: make([]maps.Tile, side*side)}
	addTestIsland(w, 20, 20, 4)
	addTestIsland(w, 6, 6, 3)
	return w
}

func addTestIsland(w *maps.World, x0, y0, n int) {
	id := maps.IslandID(len(w.Islands) + 1)
	is := &maps.Island{ID: id, Name: fmt.Sprintf("Isle %d", id), TileSize: w.TileSize()}

	for y := y0 - 2; y < y0+n+2; y++ {
		for x := x0 - 2; x < x0+n+2; x++ {
			t := w.TileAt(x, y)
			t.Kind = maps.Coast
			t.Island = id
		}
	}
	for y := y0; y < y0+n; y++ {
		for x := x0; x < x0+n; x++ {
			t := w.TileAt(x, y)
			t.Kind = maps.Land
			t.Height = 0.7
			is.Tiles = append(is.Tiles, maps.IslandTile{X: x, Y: y, Height: 0.7})
		}
	}

	lx, ly := x0-2, y0+n/2
	w.TileAt(lx, ly).Kind = maps.Lighthouse
	is.LighthouseTile = geom.Point{X: lx, Y: ly}
	is.Lighthouse = w.TileCenter(lx, ly)
	half := float64(n-1) * w.TileSize() / 2
	is.Center = w.TileCenter(x0, y0).Add(geom.V2D{X: half, Y: half})
	w.Islands = append(w.Islands, is)
}

func testSettings() Settings {
	s := DefaultSettings()
	s.BotCount = 0
	s.FireProbability = 1
	s.ShotScatter = 0
	s.ChunkSize = 8
	return s
}

func createTestState(t *testing.T) *State {
	t.Helper()
	return NewState(createTestWorld(), testSettings())
}

// addTestPlayer adds a player and steps once so the intent is applied.
func addTestPlayer(t *testing.T, s *State, name string) *Player {
	t.Helper()
	id := s.IDs().Next()
	s.Enqueue(Intent{Kind: IntentAddPlayer, Player: id, Name: name})
	s.Step(0)
	p := s.Player(id)
	if p == nil {
		t.Fatalf("player %q was not added", name)
	}
	return p
}

func addTestShip(t *testing.T, s *State, p *Player, tx, ty int) *Ship {
	t.Helper()
	if _, err := s.createShip(p, s.World().TileCenter(tx, ty), nil); err != nil {
		t.Fatalf("createShip: %v", err)
	}
	return s.Ship(ShipKey{ID: p.nextShip, Player: p.ID})
}

func countEvents(events []Event, kind EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestStep_IdleTickLeavesStateUnchanged(t *testing.T) {
	s := createTestState(t)
	p := addTestPlayer(t, s, "alice")
	addTestShip(t, s, p, 2, 2)
	addTestShip(t, s, p, 21, 19)
	s.Step(0.1)

	before := s.Snapshot(WorldMeta{})
	events := s.Step(0.1)
	after := s.Snapshot(WorldMeta{})

	if len(events) != 0 {
		t.Errorf("expected no events on an idle tick, got %d", len(events))
	}
	if len(before.Ships) != len(after.Ships) {
		t.Fatalf("ship count changed from %d to %d", len(before.Ships), len(after.Ships))
	}
	for i := range before.Ships {
		if before.Ships[i].Position != after.Ships[i].Position {
			t.Errorf("ship %v moved from %v to %v", before.Ships[i].Key, before.Ships[i].Position, after.Ships[i].Position)
		}
	}
	if len(before.Islands) != len(after.Islands) || before.Owner(1) != after.Owner(1) {
		t.Errorf("ownership changed: %v -> %v", before.Islands, after.Islands)
	}
}

func TestOwnership_MostShipsWins(t *testing.T) {
	s := createTestState(t)
	a := addTestPlayer(t, s, "alice")
	b := addTestPlayer(t, s, "bob")

	addTestShip(t, s, b, 19, 21)
	addTestShip(t, s, b, 19, 22)
	addTestShip(t, s, a, 25, 21)

	events := s.Step(0)
	if got := s.Owner(1); got != b.ID {
		t.Errorf("expected bob (%d) to own island 1, got %d", b.ID, got)
	}
	if s.Owner(2) != 0 {
		t.Errorf("expected island 2 to be unowned, got %d", s.Owner(2))
	}
	if countEvents(events, EventIslandOwner) != 1 {
		t.Errorf("expected one ownership event, got %d", countEvents(events, EventIslandOwner))
	}
}

func TestOwnership_TieGoesToLowestPlayerID(t *testing.T) {
	s := createTestState(t)
	a := addTestPlayer(t, s, "alice")
	b := addTestPlayer(t, s, "bob")
	if a.ID >= b.ID {
		t.Fatalf("expected ids in join order, got %d and %d", a.ID, b.ID)
	}

	// Ship order in the map must not matter.
	addTestShip(t, s, b, 19, 21)
	addTestShip(t, s, a, 25, 21)

	for i := 0; i < 3; i++ {
		s.Step(0)
		if got := s.Owner(1); got != a.ID {
			t.Fatalf("tick %d: expected lowest id %d to own the tie, got %d", i, a.ID, got)
		}
	}
}

func TestOwnership_ClearedWhenShipsLeave(t *testing.T) {
	s := createTestState(t)
	a := addTestPlayer(t, s, "alice")
	addTestShip(t, s, a, 19, 21)
	s.Step(0)
	if s.Owner(1) != a.ID {
		t.Fatalf("expected alice to own island 1")
	}

	s.Enqueue(Intent{Kind: IntentRemovePlayer, Player: a.ID})
	events := s.Step(0)
	if s.Owner(1) != 0 {
		t.Errorf("expected island 1 to be unowned after its fleet left")
	}
	found := false
	for _, e := range events {
		if e.Kind == EventIslandOwner && e.Island == 1 && e.Player == 0 {
			found = true
		}
	}
	if !found {
		t.Error("expected an ownership event clearing island 1")
	}
}

func TestDiff_AddRemoveUpdate(t *testing.T) {
	old := map[int]string{1: "a", 2: "b", 3: "c"}
	cur := map[int]string{2: "b", 3: "z", 4: "d"}

	changes := Diff(old, cur)
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d: %v", len(changes), changes)
	}

	want := []struct {
		kind ChangeKind
		key  int
	}{
		{ChangeRemove, 1},
		{ChangeUpdate, 3},
		{ChangeAdd, 4},
	}
	for i, w := range want {
		if changes[i].Kind != w.kind || changes[i].Key != w.key {
			t.Errorf("change %d: expected %s %d, got %s %d", i, w.kind, w.key, changes[i].Kind, changes[i].Key)
		}
	}
	if changes[1].Old != "c" || changes[1].New != "z" {
		t.Errorf("expected update c -> z, got %s -> %s", changes[1].Old, changes[1].New)
	}
}

func TestCreateShip_Rejections(t *testing.T) {
	s := createTestState(t)
	p := addTestPlayer(t, s, "alice")

	if _, err := s.createShip(p, s.World().TileCenter(21, 21), nil); !errors.Is(err, ErrNotWater) {
		t.Errorf("expected ErrNotWater on land, got %v", err)
	}

	for i := 0; i < s.ShipCap(p.ID); i++ {
		addTestShip(t, s, p, 2+i, 14)
	}
	if _, err := s.createShip(p, s.World().TileCenter(2, 15), nil); !errors.Is(err, ErrShipLimit) {
		t.Errorf("expected ErrShipLimit, got %v", err)
	}
	if got := len(s.ShipsOf(p.ID)); got != s.ShipCap(p.ID) {
		t.Errorf("expected %d ships, got %d", s.ShipCap(p.ID), got)
	}
}

func TestStaleIntentsAreDropped(t *testing.T) {
	s := createTestState(t)
	p := addTestPlayer(t, s, "alice")
	ship := addTestShip(t, s, p, 2, 16)

	s.Enqueue(Intent{Kind: IntentMove, Player: 999, Target: s.World().TileCenter(10, 16)})
	s.Enqueue(Intent{Kind: IntentSelect, Player: p.ID, Ships: []ShipID{77}})
	s.Enqueue(Intent{Kind: IntentCreateShip, Player: 999, Target: s.World().TileCenter(3, 16)})
	s.Step(0.1)

	if s.ShipCount() != 1 {
		t.Errorf("expected 1 ship, got %d", s.ShipCount())
	}
	if len(p.Selected()) != 0 {
		t.Errorf("expected empty selection, got %v", p.Selected())
	}
	if !ship.Idle() {
		t.Error("expected ship to stay idle")
	}

	if _, err := s.apply(Intent{Kind: IntentShoot, Player: 999}, nil); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestMove_ShipReachesTarget(t *testing.T) {
	s := createTestState(t)
	p := addTestPlayer(t, s, "alice")
	ship := addTestShip(t, s, p, 2, 16)
	target := s.World().TileCenter(28, 16)

	s.Enqueue(Intent{Kind: IntentSelect, Player: p.ID, Ships: []ShipID{ship.Key.ID}, Replace: true})
	s.Enqueue(Intent{Kind: IntentMove, Player: p.ID, Target: target})

	moved, stopped := 0, 0
	for i := 0; i < 200 && (i == 0 || !ship.Idle()); i++ {
		events := s.Step(0.1)
		moved += countEvents(events, EventShipMoved)
		stopped += countEvents(events, EventShipStopped)
	}

	if !ship.Idle() {
		t.Fatal("expected ship to finish its route")
	}
	if d := ship.Position.Dist(target); d > s.Settings().FinalTolerance {
		t.Errorf("expected ship within %.2f of target, got %.2f", s.Settings().FinalTolerance, d)
	}
	if ship.Velocity != (geom.V2D{}) {
		t.Errorf("expected zero velocity, got %v", ship.Velocity)
	}
	if moved != 1 {
		t.Errorf("expected a single velocity change on a straight route, got %d", moved)
	}
	if stopped != 1 {
		t.Errorf("expected one stop event, got %d", stopped)
	}
}

func TestMove_RoutesAroundIsland(t *testing.T) {
	s := createTestState(t)
	p := addTestPlayer(t, s, "alice")
	ship := addTestShip(t, s, p, 15, 21)
	target := s.World().TileCenter(28, 21)

	planned, ok := s.Planner().FindPath(ship.Position, target)
	if !ok || len(planned) < 3 {
		t.Fatalf("expected a detour, got %v (ok=%v)", planned, ok)
	}

	s.Enqueue(Intent{Kind: IntentSelect, Player: p.ID, Ships: []ShipID{ship.Key.ID}, Replace: true})
	s.Enqueue(Intent{Kind: IntentMove, Player: p.ID, Target: target})
	s.Step(0.1)
	if ship.Idle() || ship.Path[len(ship.Path)-1] != target {
		t.Fatalf("expected a route ending at %v, got %v", target, ship.Path)
	}
	if ship.Path[0].Y == target.Y {
		t.Errorf("expected the next waypoint off the blocked straight line, got %v", ship.Path)
	}

	for i := 0; i < 400 && !ship.Idle(); i++ {
		s.Step(0.1)
	}
	if d := ship.Position.Dist(target); d > s.Settings().FinalTolerance {
		t.Errorf("expected ship at target, %.2f away", d)
	}
}

func TestMove_LandTargetIgnored(t *testing.T) {
	s := createTestState(t)
	p := addTestPlayer(t, s, "alice")
	ship := addTestShip(t, s, p, 2, 16)
	p.selected[ship.Key.ID] = struct{}{}

	if _, err := s.moveSelected(p, s.World().TileCenter(21, 21), nil); !errors.Is(err, ErrNotWater) {
		t.Errorf("expected ErrNotWater, got %v", err)
	}
	if !ship.Idle() {
		t.Error("expected ship to stay idle")
	}
}

func TestCombat_AutoTargetSinksEnemy(t *testing.T) {
	s := createTestState(t)
	a := addTestPlayer(t, s, "alice")
	b := addTestPlayer(t, s, "bob")
	gunner := addTestShip(t, s, a, 2, 16)
	target := addTestShip(t, s, b, 7, 16)
	a.selected[gunner.Key.ID] = struct{}{}

	var kills []Kill
	s.OnKill = func(k Kill) { kills = append(kills, k) }

	fired, destroyed := 0, 0
	for i := 0; i < 30; i++ {
		events := s.Step(0.1)
		fired += countEvents(events, EventBulletFired)
		destroyed += countEvents(events, EventShipDestroyed)
	}

	if fired != 3 {
		t.Errorf("expected 3 shots, one per cannon, got %d", fired)
	}
	if destroyed != 1 || s.Ship(target.Key) != nil {
		t.Fatalf("expected the enemy ship to be destroyed")
	}
	if a.Kills != 1 || b.Deaths != 1 {
		t.Errorf("expected 1 kill and 1 death, got %d and %d", a.Kills, b.Deaths)
	}
	if len(kills) != 1 || kills[0].KillerName != "alice" || kills[0].VictimName != "bob" {
		t.Errorf("expected one kill alice -> bob, got %+v", kills)
	}
	if s.BulletCount() != 0 {
		t.Errorf("expected no bullets left, got %d", s.BulletCount())
	}
}

func TestCombat_UnselectedShipsHoldFire(t *testing.T) {
	s := createTestState(t)
	a := addTestPlayer(t, s, "alice")
	b := addTestPlayer(t, s, "bob")
	addTestShip(t, s, a, 2, 16)
	addTestShip(t, s, b, 7, 16)

	for i := 0; i < 10; i++ {
		if n := countEvents(s.Step(0.1), EventBulletFired); n != 0 {
			t.Fatalf("expected no shots from unselected ships, got %d", n)
		}
	}
}

func TestShoot_OutOfRange(t *testing.T) {
	s := createTestState(t)
	p := addTestPlayer(t, s, "alice")
	ship := addTestShip(t, s, p, 2, 2)
	p.selected[ship.Key.ID] = struct{}{}

	if _, err := s.shootAt(p, s.World().TileCenter(30, 30), nil); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if s.BulletCount() != 0 {
		t.Errorf("expected no bullets, got %d", s.BulletCount())
	}
}

func TestSetShootRadius_Clamped(t *testing.T) {
	s := createTestState(t)
	p := addTestPlayer(t, s, "alice")

	s.setShootRadius(p, 1e6, nil)
	if p.ShootRadius != s.Settings().Gun.MaxRange() {
		t.Errorf("expected radius clamped to max range, got %v", p.ShootRadius)
	}
	s.setShootRadius(p, -4, nil)
	if p.ShootRadius != 0 {
		t.Errorf("expected radius clamped to 0, got %v", p.ShootRadius)
	}
}

func TestFlagFor_Deterministic(t *testing.T) {
	for id := PlayerID(1); id < 50; id++ {
		if FlagFor(id) != FlagFor(id) {
			t.Fatalf("flag for %d is not stable", id)
		}
	}
	p := NewPlayer(7, "", 1)
	if p.Flag != FlagFor(7) {
		t.Errorf("expected player flag %q, got %q", FlagFor(7), p.Flag)
	}
	if p.Name != "Captain 7" {
		t.Errorf("expected default name, got %q", p.Name)
	}
}

func TestSnapshot_ApplyMirrorsState(t *testing.T) {
	s := createTestState(t)
	p := addTestPlayer(t, s, "alice")
	ship := addTestShip(t, s, p, 2, 16)
	mirror := s.Snapshot(WorldMeta{})

	s.Enqueue(Intent{Kind: IntentSelect, Player: p.ID, Ships: []ShipID{ship.Key.ID}, Replace: true})
	s.Enqueue(Intent{Kind: IntentMove, Player: p.ID, Target: s.World().TileCenter(10, 16)})
	s.Enqueue(Intent{Kind: IntentSetName, Player: p.ID, Name: "  Admiral  "})
	for i := 0; i < 100; i++ {
		for _, ev := range s.Step(0.1) {
			mirror.Apply(ev)
		}
	}

	got := mirror.Ship(ship.Key)
	if got == nil {
		t.Fatal("expected ship in mirror")
	}
	if got.Position != ship.Position {
		t.Errorf("expected mirrored position %v, got %v", ship.Position, got.Position)
	}
	if mirror.Player(p.ID).Name != "Admiral" {
		t.Errorf("expected trimmed name, got %q", mirror.Player(p.ID).Name)
	}
}
