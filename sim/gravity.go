package sim

// Body is anything with a position and a mass
type Body interface {
	Position() Vec2
	Mass() float64
}

// Influence is a gravity source. VisualSize is the rendered extent of the
// body; half of it is where a subject visually touches the surface.
// Radius is the intended physical radius.
type Influence interface {
	Body
	VisualSize() float64
	Radius() float64
}

// Subject is a body whose acceleration the engine recomputes every step
type Subject interface {
	Body
	Gravity() *GravityState
	Health() float64
	TakeDamage(amount float64) bool
}

// Contribution is one influence's share of a subject's acceleration
type Contribution struct {
	Source       Influence
	Acceleration Vec2
	Distance     float64 // raw centre distance
}

// GravityState is the per-subject accumulator, rebuilt on every Step
type GravityState struct {
	Acceleration  Vec2
	Contributions []Contribution
}

func (s *GravityState) reset() {
	s.Acceleration = Vec2{}
	s.Contributions = s.Contributions[:0]
}

// GravityEngine sums pairwise influence-to-subject accelerations once per tick
type GravityEngine struct {
	G          float64
	influences []Influence
	subjects   []Subject
}

// NewGravityEngine creates an engine with gravitational constant g
func NewGravityEngine(g float64) *GravityEngine {
	return &GravityEngine{G: g}
}

// RegisterInfluence adds a gravity source; registering twice is a no-op
func (e *GravityEngine) RegisterInfluence(b Influence) {
	for _, in := range e.influences {
		if in == b {
			return
		}
	}
	e.influences = append(e.influences, b)
}

// RegisterSubject adds a gravity subject; registering twice is a no-op
func (e *GravityEngine) RegisterSubject(b Subject) {
	for _, s := range e.subjects {
		if s == b {
			return
		}
	}
	e.subjects = append(e.subjects, b)
}

// DeregisterInfluence removes a gravity source
func (e *GravityEngine) DeregisterInfluence(b Influence) {
	for i, in := range e.influences {
		if in == b {
			e.influences = append(e.influences[:i], e.influences[i+1:]...)
			return
		}
	}
}

// DeregisterSubject removes a gravity subject
func (e *GravityEngine) DeregisterSubject(b Subject) {
	for i, s := range e.subjects {
		if s == b {
			e.subjects = append(e.subjects[:i], e.subjects[i+1:]...)
			return
		}
	}
}

func (e *GravityEngine) Influences() []Influence { return e.influences }
func (e *GravityEngine) Subjects() []Subject     { return e.subjects }

// Reset drops every registration
func (e *GravityEngine) Reset() {
	e.influences = nil
	e.subjects = nil
}

// Step recomputes every subject's acceleration from every influence
func (e *GravityEngine) Step() {
	for _, s := range e.subjects {
		st := s.Gravity()
		st.reset()
		sp := s.Position()
		for _, in := range e.influences {
			if Body(in) == Body(s) {
				continue
			}
			c := e.contribution(s, sp, in)
			st.Acceleration = st.Acceleration.Add(c.Acceleration)
			st.Contributions = append(st.Contributions, c)
		}
	}
}

func (e *GravityEngine) contribution(s Subject, sp Vec2, in Influence) Contribution {
	offset := sp.Sub(in.Position()) // influence -> subject
	raw := offset.Len()
	surface := in.VisualSize() / 2

	eff := raw - surface + in.Radius()
	if eff < MinGravityDistance {
		eff = MinGravityDistance
	}

	var accel float64
	if m := s.Mass(); m > 0 {
		force := e.G * m * in.Mass() / (eff * eff)
		accel = force / m
	} else {
		accel = e.G * in.Mass() / (eff * eff)
	}

	dir := offset.Norm().Scale(-1) // toward the influence
	if raw <= surface {
		accel *= PushOutFactor
		dir = offset.Norm()
		if raw == 0 {
			dir = Vec2{X: 1}
		}
		if s.Health() > 0 {
			s.TakeDamage(CollisionDamage)
		}
	}
	return Contribution{Source: in, Acceleration: dir.Scale(accel), Distance: raw}
}
