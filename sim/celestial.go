package sim

import "math"

// SatelliteKind distinguishes gravitating moons from objective stations
type SatelliteKind string

const (
	KindMoon    SatelliteKind = "moon"
	KindStation SatelliteKind = "station"
)

// Planet is a static gravity source that owns orbiting satellites
type Planet struct {
	Name       string
	Kind       string // cosmetic classification
	Center     Vec2
	BodyMass   float64
	Size       float64 // rendered extent
	PhysRadius float64
	Satellites []*Satellite
}

// NewPlanet creates a planet whose visual and physical radius agree
func NewPlanet(name, kind string, center Vec2, mass, radius float64) *Planet {
	return &Planet{
		Name:       name,
		Kind:       kind,
		Center:     center,
		BodyMass:   mass,
		Size:       radius * 2,
		PhysRadius: radius,
	}
}

func (p *Planet) Position() Vec2      { return p.Center }
func (p *Planet) Mass() float64       { return p.BodyMass }
func (p *Planet) VisualSize() float64 { return p.Size }
func (p *Planet) Radius() float64     { return p.PhysRadius }

// AddSatellite attaches s to the planet and places it on its orbit
func (p *Planet) AddSatellite(s *Satellite) *Satellite {
	s.Parent = p
	s.place()
	p.Satellites = append(p.Satellites, s)
	return s
}

// Update advances all satellites
func (p *Planet) Update(dt float64) {
	for _, s := range p.Satellites {
		s.Update(dt)
	}
}

// Satellite moves on a fixed orbit around its parent. It is never a
// gravity subject; moons are gravity influences.
type Satellite struct {
	Name         string
	Kind         SatelliteKind
	Parent       *Planet
	OrbitRadius  float64 // semi-major axis
	Eccentricity float64 // 0 is a circle
	AngularSpeed float64 // radians per second
	Angle        float64 // radians, [0, 2π)
	BodyMass     float64
	Size         float64
	PhysRadius   float64
	HP           float64
	MaxHP        float64

	pos, vel, acc Vec2
}

// NewMoon creates a gravitating moon
func NewMoon(name string, orbit, speed, angle, mass, radius float64) *Satellite {
	return &Satellite{
		Name:         name,
		Kind:         KindMoon,
		OrbitRadius:  orbit,
		AngularSpeed: speed,
		Angle:        angle,
		BodyMass:     mass,
		Size:         radius * 2,
		PhysRadius:   radius,
	}
}

// NewStation creates an objective station with health
func NewStation(name string, orbit, speed, angle, radius, hp float64) *Satellite {
	return &Satellite{
		Name:         name,
		Kind:         KindStation,
		OrbitRadius:  orbit,
		AngularSpeed: speed,
		Angle:        angle,
		Size:         radius * 2,
		PhysRadius:   radius,
		HP:           hp,
		MaxHP:        hp,
	}
}

// IsGravityInfluence reports whether the satellite pulls on subjects
func (s *Satellite) IsGravityInfluence() bool { return s.Kind == KindMoon }

// Update advances the orbit angle and recomputes position
func (s *Satellite) Update(dt float64) {
	s.Angle = math.Mod(s.Angle+s.AngularSpeed*dt, 2*math.Pi)
	if s.Angle < 0 {
		s.Angle += 2 * math.Pi
	}
	s.place()
}

// offset is the polar orbit offset from the parent at angle theta
func (s *Satellite) offset(theta float64) Vec2 {
	r := s.OrbitRadius
	if e := s.Eccentricity; e > 0 && e < 1 {
		r = s.OrbitRadius * (1 - e*e) / (1 + e*math.Cos(theta))
	}
	return Vec2{r * math.Cos(theta), r * math.Sin(theta)}
}

func (s *Satellite) place() {
	var origin Vec2
	if s.Parent != nil {
		origin = s.Parent.Center
	}
	s.pos = origin.Add(s.offset(s.Angle))

	// Orbit derivatives by central differences in theta
	const h = 1e-4
	ahead, behind := s.offset(s.Angle+h), s.offset(s.Angle-h)
	here := s.offset(s.Angle)
	w := s.AngularSpeed
	s.vel = ahead.Sub(behind).Scale(w / (2 * h))
	s.acc = ahead.Add(behind).Sub(here.Scale(2)).Scale(w * w / (h * h))
}

func (s *Satellite) Position() Vec2      { return s.pos }
func (s *Satellite) Velocity() Vec2      { return s.vel }
func (s *Satellite) Acceleration() Vec2  { return s.acc }
func (s *Satellite) Mass() float64       { return s.BodyMass }
func (s *Satellite) VisualSize() float64 { return s.Size }
func (s *Satellite) Radius() float64     { return s.PhysRadius }

// Alive is false once a station has been destroyed. Moons never die.
func (s *Satellite) Alive() bool {
	return s.Kind == KindMoon || s.HP > 0
}

// TakeDamage damages a station and returns true if it was destroyed
func (s *Satellite) TakeDamage(dmg float64) bool {
	if s.Kind != KindStation || s.HP <= 0 {
		return false
	}
	s.HP -= dmg
	if s.HP <= 0 {
		s.HP = 0
		return true
	}
	return false
}
