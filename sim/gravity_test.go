package sim

import (
	"math"
	"testing"
)

func TestGravityPullsTowardPlanet(t *testing.T) {
	e := NewGravityEngine(1)
	p := NewPlanet("terra", "rock", Vec2{}, 1000, 100)
	s := NewShip(Vec2{300, 0})
	e.RegisterInfluence(p)
	e.RegisterSubject(s)
	e.Step()

	acc := s.Gravity().Acceleration
	// effective distance is 300 - 100 + 100
	want := -1000.0 / (300 * 300)
	if math.Abs(acc.X-want) > 1e-9 || math.Abs(acc.Y) > 1e-9 {
		t.Errorf("expected (%v, 0), got %+v", want, acc)
	}
	if len(s.Gravity().Contributions) != 1 {
		t.Fatalf("expected 1 contribution, got %d", len(s.Gravity().Contributions))
	}
	if s.HP != ShipMaxHP {
		t.Error("ship outside the surface should not take damage")
	}
}

func TestGravityPushOutInsideSurface(t *testing.T) {
	e := NewGravityEngine(1)
	p := NewPlanet("terra", "rock", Vec2{}, 1000, 100)
	s := NewShip(Vec2{50, 0})
	e.RegisterInfluence(p)
	e.RegisterSubject(s)
	e.Step()

	if acc := s.Gravity().Acceleration; acc.X <= 0 {
		t.Errorf("subject inside a planet should be pushed out, got %+v", acc)
	}
	if s.HP != ShipMaxHP-CollisionDamage {
		t.Errorf("expected collision damage, HP = %v", s.HP)
	}

	// dead-centre picks +X
	s.Pos = Vec2{}
	e.Step()
	if acc := s.Gravity().Acceleration; acc.X <= 0 || acc.Y != 0 {
		t.Errorf("dead-centre push should be +X, got %+v", acc)
	}
}

func TestGravityRegistrationIdempotent(t *testing.T) {
	e := NewGravityEngine(1)
	p := NewPlanet("terra", "rock", Vec2{}, 1000, 100)
	s := NewShip(Vec2{500, 0})
	e.RegisterInfluence(p)
	e.RegisterInfluence(p)
	e.RegisterSubject(s)
	e.RegisterSubject(s)
	if len(e.Influences()) != 1 || len(e.Subjects()) != 1 {
		t.Fatalf("double registration: %d influences, %d subjects", len(e.Influences()), len(e.Subjects()))
	}
	e.DeregisterSubject(s)
	e.DeregisterInfluence(p)
	if len(e.Influences()) != 0 || len(e.Subjects()) != 0 {
		t.Error("deregistration should remove bodies")
	}
}

func TestGravitySkipsSelf(t *testing.T) {
	types := DefaultAgentTypes()
	boss, _ := types.Get("dreadnought")
	a := NewAgent(1, boss, Vec2{}, 0, 0, func() float64 { return 0 })

	e := NewGravityEngine(1)
	p := NewPlanet("terra", "rock", Vec2{5000, 0}, 1000, 100)
	e.RegisterInfluence(p)
	e.RegisterInfluence(a)
	e.RegisterSubject(a)
	e.Step()

	for _, c := range a.Gravity().Contributions {
		if c.Source == Influence(a) {
			t.Fatal("a body must not attract itself")
		}
	}
	if len(a.Gravity().Contributions) != 1 {
		t.Errorf("expected only the planet's contribution, got %d", len(a.Gravity().Contributions))
	}
}

func TestGravityMasslessSubject(t *testing.T) {
	e := NewGravityEngine(2)
	p := NewPlanet("terra", "rock", Vec2{}, 1000, 100)
	s := NewScrap(1, Vec2{0, 400})
	e.RegisterInfluence(p)
	e.RegisterSubject(s)
	e.Step()

	want := -2.0 * 1000 / (400 * 400)
	if acc := s.Gravity().Acceleration; math.Abs(acc.Y-want) > 1e-9 {
		t.Errorf("expected %v, got %+v", want, acc)
	}
}

func TestGravityReset(t *testing.T) {
	e := NewGravityEngine(1)
	e.RegisterInfluence(NewPlanet("terra", "rock", Vec2{}, 1000, 100))
	e.RegisterSubject(NewShip(Vec2{500, 0}))
	e.Reset()
	if len(e.Influences()) != 0 || len(e.Subjects()) != 0 {
		t.Error("reset should drop all registrations")
	}
}
