package main

import (
	"testing"

	"spacecombat/sim"
)

func newPilotMission(t *testing.T) (*sim.Mission, *sim.Ship) {
	t.Helper()
	setup, ship := newScenario()
	m, err := sim.NewMission(sim.DefaultConfig(), setup, sim.WithSeed(3))
	if err != nil {
		t.Fatalf("NewMission: %v", err)
	}
	return m, ship
}

func TestAutopilotEngagesAgentAhead(t *testing.T) {
	m, ship := newPilotMission(t)
	if _, err := m.SpawnAgent("fighter", sim.Vec2{X: 2000}); err != nil {
		t.Fatal(err)
	}
	in := Autopilot{}.Decide(m, ship)
	if !in.Fire {
		t.Error("agent dead ahead within range should be fired on")
	}
	if !in.Throttle {
		t.Error("agent beyond hold range should be closed on")
	}
}

func TestAutopilotTurnsTowardAgent(t *testing.T) {
	m, ship := newPilotMission(t)
	if _, err := m.SpawnAgent("fighter", sim.Vec2{X: 1400, Y: 900}); err != nil {
		t.Fatal(err)
	}
	in := Autopilot{}.Decide(m, ship)
	if in.Turn != 1 {
		t.Errorf("agent at +90 degrees should turn counter-clockwise, got %d", in.Turn)
	}
	if in.Fire {
		t.Error("should not fire while far off target")
	}
}

func TestAutopilotHoldsDistance(t *testing.T) {
	m, ship := newPilotMission(t)
	if _, err := m.SpawnAgent("fighter", sim.Vec2{X: 1700}); err != nil {
		t.Fatal(err)
	}
	in := Autopilot{}.Decide(m, ship)
	if in.Throttle {
		t.Error("agent inside hold range should not be chased")
	}
	if !in.Fire {
		t.Error("agent inside hold range should still be shot")
	}
}

func TestAutopilotAvoidsPlanet(t *testing.T) {
	m, ship := newPilotMission(t)
	ship.Pos = sim.Vec2{X: 500}
	ship.Heading = 170
	if _, err := m.SpawnAgent("fighter", sim.Vec2{X: -1000}); err != nil {
		t.Fatal(err)
	}
	in := Autopilot{}.Decide(m, ship)
	if in.Fire {
		t.Error("planet avoidance should override engagement")
	}
	if in.Turn == 0 {
		t.Error("ship facing the planet should turn away")
	}
}

func TestAutopilotIdleNearObjective(t *testing.T) {
	m, ship := newPilotMission(t)
	in := Autopilot{}.Decide(m, ship)
	if in.Fire || in.Throttle {
		t.Errorf("ship near the objective with nothing to do should idle, got %+v", in)
	}

	ship.Pos = sim.Vec2{X: 4000, Y: 3000}
	in = Autopilot{}.Decide(m, ship)
	if !in.Throttle && in.Turn == 0 {
		t.Error("ship far from the objective should head back")
	}

	ship.TakeDamage(sim.ShipMaxHP)
	if in := (Autopilot{}).Decide(m, ship); in != (sim.ShipInput{}) {
		t.Error("dead ship should get no input")
	}
}
