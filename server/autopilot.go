package main

import (
	"math"

	"spacecombat/sim"
)

const (
	PilotEngageRange = 1100.0 // start shooting when this close
	PilotHoldRange   = 450.0  // preferred combat distance
	PilotFireCone    = 6.0    // degrees off the lead angle still worth a shot
	PilotThrustCone  = 60.0
	PilotAvoidMargin = 220.0 // clearance kept from planet surfaces
	PilotPatrolRange = 600.0 // distance from the objective before heading home
)

// Autopilot flies an arena's ship when no operator holds the stick. It
// hunts the nearest agent with a lead shot, stays clear of planets and
// sweeps up scrap between waves.
type Autopilot struct{}

// Decide returns this tick's input for ship
func (Autopilot) Decide(m *sim.Mission, ship *sim.Ship) sim.ShipInput {
	var in sim.ShipInput
	if !ship.Alive() {
		return in
	}
	pos := ship.Position()

	if away, ok := avoidPlanets(m, pos); ok {
		in.Turn = sim.TurnDirection(away, ship.Angle())
		in.Throttle = sim.SmallestAngularDifference(away, ship.Angle()) < PilotThrustCone
		return in
	}

	if target := nearestAgent(m, pos); target != nil {
		dist := sim.Distance(target.Pos, pos)
		lead := target.Pos.Add(target.Vel.Scale(dist / sim.ShipProjSpeed))
		aim := sim.AngleBetween(lead, pos)
		off := sim.SmallestAngularDifference(aim, ship.Angle())

		in.Turn = sim.TurnDirection(aim, ship.Angle())
		in.Fire = dist < PilotEngageRange && off < PilotFireCone
		in.Throttle = dist > PilotHoldRange && off < PilotThrustCone
		return in
	}

	// Between waves: collect scrap, otherwise drift back to the objective
	dest, ok := nearestScrap(m, pos)
	if !ok {
		obj := m.Objective()
		if obj == nil || !obj.Alive() || sim.Distance(obj.Position(), pos) < PilotPatrolRange {
			return in
		}
		dest = obj.Position()
	}
	heading := sim.AngleBetween(dest, pos)
	in.Turn = sim.TurnDirection(heading, ship.Angle())
	in.Throttle = sim.SmallestAngularDifference(heading, ship.Angle()) < PilotThrustCone
	return in
}

// avoidPlanets returns the bearing away from a planet the ship is too close to
func avoidPlanets(m *sim.Mission, pos sim.Vec2) (float64, bool) {
	for _, p := range m.Planets() {
		if sim.Distance(p.Center, pos) < p.PhysRadius+PilotAvoidMargin {
			return sim.AngleBetween(pos, p.Center), true
		}
	}
	return 0, false
}

func nearestAgent(m *sim.Mission, pos sim.Vec2) *sim.Agent {
	var best *sim.Agent
	bestSq := math.Inf(1)
	for _, a := range m.Agents() {
		if !a.Alive() || a.Cloaked {
			continue
		}
		if d := a.Pos.Sub(pos).LenSq(); d < bestSq {
			best, bestSq = a, d
		}
	}
	return best
}

func nearestScrap(m *sim.Mission, pos sim.Vec2) (sim.Vec2, bool) {
	var best sim.Vec2
	found := false
	bestSq := math.Inf(1)
	for _, s := range m.Scrap() {
		if !s.Alive() {
			continue
		}
		if d := s.Pos.Sub(pos).LenSq(); d < bestSq {
			best, bestSq, found = s.Pos, d, true
		}
	}
	return best, found
}
