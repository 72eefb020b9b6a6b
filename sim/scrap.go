package sim

// Scrap is loot dropped by dead agents. It sits still until the player
// comes within AttractRadius, then homes in with a pull that strengthens
// as the gap closes. Its motion ignores gravity; it is still registered
// as a subject so presentation layers can draw its gravity arrows.
type Scrap struct {
	ID        uint64
	Pos       Vec2
	Speed     float64
	Size      float64
	Collected bool
	gravity   GravityState
	alive     bool
}

// NewScrap creates a full-size inert pickup
func NewScrap(id uint64, pos Vec2) *Scrap {
	return &Scrap{ID: id, Pos: pos, Size: ScrapSize, alive: true}
}

func (s *Scrap) Alive() bool                { return s.alive }
func (s *Scrap) Position() Vec2             { return s.Pos }
func (s *Scrap) Mass() float64              { return 0 }
func (s *Scrap) Gravity() *GravityState     { return &s.gravity }
func (s *Scrap) Health() float64            { return 0 }
func (s *Scrap) TakeDamage(float64) bool    { return false }
func (s *Scrap) Attracted(player Vec2) bool { return Distance(s.Pos, player) <= AttractRadius }

// Update moves the scrap toward the player and returns true on the tick it
// is collected
func (s *Scrap) Update(dt float64, player Vec2) bool {
	if !s.alive {
		return false
	}
	if !s.Attracted(player) {
		return false
	}
	d := Distance(s.Pos, player)
	if d < CollectRadius {
		return s.collect()
	}

	s.Speed += ScrapPull / d * dt
	s.Speed *= ScrapDecay
	step := s.Speed * dt
	if step >= d {
		s.Pos = player
		d = 0
	} else {
		s.Pos = s.Pos.Add(player.Sub(s.Pos).Scale(step / d))
		d -= step
	}

	if d < ScrapSize {
		s.Size = d
	}
	if d < CollectRadius {
		return s.collect()
	}
	return false
}

func (s *Scrap) collect() bool {
	s.alive = false
	s.Collected = true
	s.Size = 0
	return true
}
