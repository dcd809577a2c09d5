package database

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func createTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	db, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.AddStats("alice", 1, 0); err != nil {
		t.Fatalf("AddStats: %v", err)
	}
	db.Close()

	db, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	s, err := db.GetStats("alice")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if s.Kills != 1 {
		t.Errorf("expected stats to survive a reopen, got %+v", s)
	}
}

func TestAddStats_Upsert(t *testing.T) {
	db := createTestDB(t)

	if err := db.AddStats("alice", 2, 1); err != nil {
		t.Fatalf("AddStats: %v", err)
	}
	if err := db.AddStats("alice", 3, 0); err != nil {
		t.Fatalf("AddStats: %v", err)
	}

	s, err := db.GetStats("alice")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if s.Kills != 5 || s.Deaths != 1 {
		t.Errorf("expected 5 kills and 1 death, got %d and %d", s.Kills, s.Deaths)
	}

	if err := db.AddStats("  ", 1, 1); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestAddStats_ConcurrentIncrements(t *testing.T) {
	db := createTestDB(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := db.AddStats("bob", 1, 0); err != nil {
				t.Errorf("AddStats: %v", err)
			}
		}()
	}
	wg.Wait()

	s, err := db.GetStats("bob")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if s.Kills != 20 {
		t.Errorf("expected 20 kills, got %d", s.Kills)
	}
}

func TestGetStats_NotFound(t *testing.T) {
	db := createTestDB(t)
	if _, err := db.GetStats("nobody"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestRecordKill_UpdatesBothSides(t *testing.T) {
	db := createTestDB(t)

	if err := db.RecordKill("alice", "bob"); err != nil {
		t.Fatalf("RecordKill: %v", err)
	}
	if err := db.RecordKill("alice", "carol"); err != nil {
		t.Fatalf("RecordKill: %v", err)
	}

	alice, _ := db.GetStats("alice")
	bob, _ := db.GetStats("bob")
	if alice == nil || alice.Kills != 2 || alice.Deaths != 0 {
		t.Errorf("unexpected alice stats %+v", alice)
	}
	if bob == nil || bob.Kills != 0 || bob.Deaths != 1 {
		t.Errorf("unexpected bob stats %+v", bob)
	}

	top, err := db.TopStats(2)
	if err != nil {
		t.Fatalf("TopStats: %v", err)
	}
	if len(top) != 2 || top[0].Name != "alice" {
		t.Errorf("expected alice to lead, got %+v", top)
	}
}

func TestKillLog(t *testing.T) {
	db := createTestDB(t)

	if _, err := db.CreateInstance("inst-1", "main", "standard", 42, "abc"); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	for tick := uint64(1); tick <= 3; tick++ {
		if err := db.AddKillEvent("inst-1", tick*10, "alice", "bob"); err != nil {
			t.Fatalf("AddKillEvent: %v", err)
		}
	}

	recent, err := db.RecentKills("inst-1", 2)
	if err != nil {
		t.Fatalf("RecentKills: %v", err)
	}
	if len(recent) != 2 || recent[0].Tick != 30 || recent[1].Tick != 20 {
		t.Fatalf("expected the two newest kills, got %+v", recent)
	}

	since, err := db.KillsSince("inst-1", recent[1].ID)
	if err != nil {
		t.Fatalf("KillsSince: %v", err)
	}
	if len(since) != 1 || since[0].Tick != 30 {
		t.Errorf("expected one kill after id %d, got %d", recent[1].ID, len(since))
	}
}

func TestInstances_Lifecycle(t *testing.T) {
	db := createTestDB(t)

	if _, err := db.CreateInstance("a", "alpha", "small", 1, "x"); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if _, err := db.CreateInstance("b", "beta", "small", 2, "y"); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	if err := db.CloseInstance("a"); err != nil {
		t.Fatalf("CloseInstance: %v", err)
	}
	if err := db.CloseInstance("a"); !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("expected closing twice to fail, got %v", err)
	}

	r, err := db.GetInstance("a")
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if r.ClosedAt == nil || r.Seed != 1 {
		t.Errorf("unexpected record %+v", r)
	}

	n, err := db.CloseOpenInstances()
	if err != nil {
		t.Fatalf("CloseOpenInstances: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 open instance closed, got %d", n)
	}

	if _, err := db.GetInstance("missing"); !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("expected ErrInstanceNotFound, got %v", err)
	}
}
