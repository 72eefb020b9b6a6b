package sim

import "math"

const (
	ShipRadius       = 20.0
	ShipMaxHP        = 100.0
	ShipThrust       = 600.0 // units/s² at full throttle
	ShipMaxSpeed     = 420.0
	ShipFriction     = 0.985 // velocity multiplier per reference frame
	ShipTurnRate     = 240.0 // degrees/s
	ShipMass         = 1.0
	ShipFireCooldown = 0.18
	ShipProjSpeed    = 900.0
	ShipProjDamage   = 12.0
)

// Target is anything an agent can steer toward
type Target interface {
	Position() Vec2
	Velocity() Vec2
	Acceleration() Vec2
	Alive() bool
}

// Player is the read-mostly view the core has of the player. The core
// only ever mutates it through TakeDamage.
type Player interface {
	Target
	Angle() float64 // degrees
	Health() float64
	ForwardForce() float64
	Weight() float64
	TakeDamage(amount float64) bool
}

// ShipInput is one tick of pilot intent
type ShipInput struct {
	Turn     int  // -1 clockwise, +1 counter-clockwise
	Throttle bool // thrust along facing
	Fire     bool
}

// Ship is the reference player implementation. It is also a gravity subject.
type Ship struct {
	Pos      Vec2
	Vel      Vec2
	Acc      Vec2
	Heading  float64 // degrees
	HP       float64
	MaxHP    float64
	FireCD   float64
	Input    ShipInput
	Hits     int // damage events taken
	gravity  GravityState
	lastVel  Vec2
	throttle float64
}

// NewShip creates a ship at pos facing +X
func NewShip(pos Vec2) *Ship {
	return &Ship{Pos: pos, HP: ShipMaxHP, MaxHP: ShipMaxHP}
}

// Update integrates one tick of pilot input and gravity
func (s *Ship) Update(dt float64) {
	if !s.Alive() || dt <= 0 {
		return
	}
	s.Heading = NormalizeDegrees(s.Heading + float64(s.Input.Turn)*ShipTurnRate*dt)

	s.throttle = 0
	if s.Input.Throttle {
		s.throttle = 1
	}
	s.lastVel = s.Vel
	s.Vel = s.Vel.Add(Heading(s.Heading).Scale(ShipThrust * s.throttle * dt))
	s.Vel = s.Vel.Add(s.gravity.Acceleration.Scale(dt))
	s.Vel = s.Vel.Scale(math.Pow(ShipFriction, dt*ReferenceFrameRate))

	if speed := s.Vel.Len(); speed > ShipMaxSpeed {
		s.Vel = s.Vel.Scale(ShipMaxSpeed / speed)
	}
	s.Acc = s.Vel.Sub(s.lastVel).Scale(1 / dt)
	s.Pos = s.Pos.Add(s.Vel.Scale(dt))

	if s.FireCD > 0 {
		s.FireCD -= dt
	}
}

// CanFire returns true if the ship wants to and may fire this tick
func (s *Ship) CanFire() bool {
	return s.Alive() && s.Input.Fire && s.FireCD <= 0
}

func (s *Ship) Position() Vec2         { return s.Pos }
func (s *Ship) Velocity() Vec2         { return s.Vel }
func (s *Ship) Acceleration() Vec2     { return s.Acc }
func (s *Ship) Angle() float64         { return s.Heading }
func (s *Ship) Health() float64        { return s.HP }
func (s *Ship) Mass() float64          { return ShipMass }
func (s *Ship) Weight() float64        { return ShipMass }
func (s *Ship) Gravity() *GravityState { return &s.gravity }
func (s *Ship) Alive() bool            { return s.HP > 0 }

// ForwardForce is the thrust currently applied along the facing
func (s *Ship) ForwardForce() float64 { return ShipThrust * s.throttle * ShipMass }

// TakeDamage reduces HP and returns true if the ship died
func (s *Ship) TakeDamage(dmg float64) bool {
	if !s.Alive() {
		return false
	}
	s.Hits++
	s.HP -= dmg
	if s.HP <= 0 {
		s.HP = 0
		return true
	}
	return false
}

// Repair restores the ship to full health
func (s *Ship) Repair() {
	s.HP = s.MaxHP
}
