package sim

const ProjectileRadius = 4.0

// Projectile is a bullet in flight. Hostile projectiles come from agents
// and hit the player or the objective; the rest come from the player.
type Projectile struct {
	ID      uint64
	OwnerID uint64 // agent ID, 0 for the player
	Hostile bool
	Pos     Vec2
	Vel     Vec2
	Angle   float64
	Life    float64
	Damage  float64
	alive   bool
}

// Alive reports whether the projectile is still in flight
func (p *Projectile) Alive() bool { return p.alive }

// Update moves the projectile one tick and expires it when its life runs out
func (p *Projectile) Update(dt float64) {
	if !p.alive {
		return
	}
	p.Pos = p.Pos.Add(p.Vel.Scale(dt))
	p.Life -= dt
	if p.Life <= 0 {
		p.alive = false
	}
}
