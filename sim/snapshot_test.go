package sim

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestSnapshot(t *testing.T) {
	m := newTestMission(t)
	for i := 0; i < 4000 && m.LiveAgents() == 0; i++ {
		m.Tick(1.0 / 60)
	}
	m.FirePlayer(45)

	st := m.Snapshot()
	if len(st.Agents) != m.LiveAgents() || len(st.Agents) == 0 {
		t.Fatalf("expected %d agents, got %d", m.LiveAgents(), len(st.Agents))
	}
	if len(st.Planets) != 1 || len(st.Planets[0].Satellites) != 2 {
		t.Fatalf("expected one planet with two satellites, got %+v", st.Planets)
	}
	if len(st.Projectiles) == 0 || st.Projectiles[len(st.Projectiles)-1].Hostile {
		t.Error("the player's shot should be in the snapshot")
	}
	if st.Director.Wave != 1 || st.Director.Phase != "active" {
		t.Errorf("unexpected director state %+v", st.Director)
	}
	for _, a := range st.Agents {
		if a.MaxHP <= 0 || a.Type == "" || a.Fire == "" {
			t.Errorf("incomplete agent state %+v", a)
		}
	}

	raw, err := msgpack.Marshal(st)
	if err != nil {
		t.Fatalf("msgpack marshal: %v", err)
	}
	var back MissionState
	if err := msgpack.Unmarshal(raw, &back); err != nil {
		t.Fatalf("msgpack unmarshal: %v", err)
	}
	if back.Tick != st.Tick || len(back.Agents) != len(st.Agents) || back.Agents[0].ID != st.Agents[0].ID {
		t.Error("snapshot did not survive the wire")
	}
}

func TestSnapshotScrapHoming(t *testing.T) {
	m := newTestMission(t)
	m.scrap = append(m.scrap,
		NewScrap(801, m.ship.Pos.Add(Vec2{0, 300})),
		NewScrap(802, m.ship.Pos.Add(Vec2{0, 2000})),
	)

	homing := map[uint64]bool{}
	for _, s := range m.Snapshot().Scrap {
		homing[s.ID] = s.Homing
	}
	if !homing[801] {
		t.Error("scrap inside the attraction radius should be homing")
	}
	if h, ok := homing[802]; !ok || h {
		t.Errorf("far scrap should be listed and inert, got %v %v", h, ok)
	}
}
