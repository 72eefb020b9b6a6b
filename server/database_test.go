package main

import (
	"path/filepath"
	"testing"

	"spacecombat/sim"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if v := db.GetSetting("missing"); v != "" {
		t.Errorf("missing setting should be empty, got %q", v)
	}
	if err := db.SetSetting("k", "one"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := db.SetSetting("k", "two"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	if v := db.GetSetting("k"); v != "two" {
		t.Errorf("expected two, got %q", v)
	}
}

func TestOperatorRows(t *testing.T) {
	db := openTestDB(t)
	op, err := db.GetOperatorByUsername("nobody")
	if err != nil || op != nil {
		t.Fatalf("unknown operator should be nil, got %v %v", op, err)
	}

	id, err := db.CreateOperator("ops", "hash1")
	if err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	if _, err := db.CreateOperator("ops", "hash2"); err == nil {
		t.Error("duplicate username should fail")
	}
	if err := db.SetOperatorPassword("ops", "hash3"); err != nil {
		t.Fatalf("SetOperatorPassword: %v", err)
	}
	op, err = db.GetOperatorByUsername("ops")
	if err != nil || op == nil {
		t.Fatalf("GetOperatorByUsername: %v", err)
	}
	if op.ID != id || op.PassHash != "hash3" {
		t.Errorf("unexpected row %+v", op)
	}
}

func TestLedgerWritesMissionHistory(t *testing.T) {
	db := openTestDB(t)
	l := NewLedger(db)

	l.StartMission("m-1", "arena-a", 1<<63+5)
	l.RecordWave("m-1", sim.WaveRecord{Wave: 1, Stage: 1, Size: 3, Kills: 3, Elapsed: 12.5, HealthLost: 0.2, Difficulty: 1.1})
	l.RecordWave("m-1", sim.WaveRecord{Wave: 2, Stage: 1, Size: 4, Kills: 4, Elapsed: 9, Difficulty: 1.2})
	l.TrackEvent("m-1", sim.Event{Kind: sim.EventKill, AgentID: 7, Wave: 1})
	l.TrackEvent("m-1", sim.Event{Kind: sim.EventKill, AgentID: 8, Wave: 1})
	l.TrackEvent("m-1", sim.Event{Kind: sim.EventBoss, Wave: 5})
	l.FinishMission("m-1", MissionSummary{Reason: ReasonPlayerDown, Waves: 2, Kills: 7, Scrap: 3, Shots: 40, Duration: 61})
	l.StartMission("m-2", "arena-b", 9)
	l.Stop()

	// enqueue after stop is ignored
	l.TrackEvent("m-1", sim.Event{Kind: sim.EventKill})

	m, err := db.GetMission("m-1")
	if err != nil || m == nil {
		t.Fatalf("GetMission: %v", err)
	}
	if m.Reason != ReasonPlayerDown || m.Waves != 2 || m.Kills != 7 || m.Scrap != 3 || m.Shots != 40 {
		t.Errorf("unexpected mission row %+v", m)
	}
	if m.Seed != 1<<63+5 {
		t.Errorf("seed should survive the int64 column, got %d", m.Seed)
	}
	if m.EndedAt == "" {
		t.Error("finished mission should have ended_at")
	}

	waves, err := db.ListWaves("m-1")
	if err != nil {
		t.Fatalf("ListWaves: %v", err)
	}
	if len(waves) != 2 || waves[0].Wave != 1 || waves[1].Size != 4 {
		t.Fatalf("unexpected waves %+v", waves)
	}
	if waves[0].HealthLost != 0.2 || waves[0].MissionID != "m-1" {
		t.Errorf("unexpected first wave %+v", waves[0])
	}

	counts, err := db.EventCounts("m-1")
	if err != nil {
		t.Fatalf("EventCounts: %v", err)
	}
	if counts["kill"] != 2 || counts["boss"] != 1 {
		t.Errorf("unexpected event counts %v", counts)
	}

	all, err := db.ListMissions("", 10)
	if err != nil {
		t.Fatalf("ListMissions: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 missions, got %d", len(all))
	}
	only, _ := db.ListMissions("arena-b", 10)
	if len(only) != 1 || only[0].ID != "m-2" {
		t.Errorf("arena filter failed: %+v", only)
	}
}

func TestNilLedgerIsInert(t *testing.T) {
	var l *Ledger
	l.StartMission("x", "y", 1)
	l.TrackEvent("x", sim.Event{Kind: sim.EventKill})
	l.FinishMission("x", MissionSummary{})
}
