package sim

import "math"

// Hit is one confirmed projectile impact reported by a broad phase
type Hit struct {
	ProjectileID uint64
	Victim       VictimKind
	AgentID      uint64 // set when Victim is VictimAgent
	Damage       float64
}

// VictimKind says what a hit landed on
type VictimKind int

const (
	VictimAgent VictimKind = iota
	VictimPlayer
	VictimObjective
)

// CheckCollision checks if two circles overlap
func CheckCollision(a Vec2, ra float64, b Vec2, rb float64) bool {
	d := a.Sub(b)
	sum := ra + rb
	return d.LenSq() <= sum*sum
}

// transformHitbox returns the world-space vertices of a hitbox polygon
// given its owner's position and facing in degrees
func transformHitbox(center Vec2, angle float64, pts []Vec2) []Vec2 {
	out := make([]Vec2, len(pts))
	for i, p := range pts {
		out[i] = center.Add(p.Rotate(angle))
	}
	return out
}

// cross2D returns the z component of (b-a) x (c-a)
func cross2D(a, b, c Vec2) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// pointInPolygon checks containment in a convex polygon of either winding
func pointInPolygon(p Vec2, poly []Vec2) bool {
	hasNeg, hasPos := false, false
	for i := range poly {
		d := cross2D(poly[i], poly[(i+1)%len(poly)], p)
		if d < 0 {
			hasNeg = true
		} else if d > 0 {
			hasPos = true
		}
	}
	return !(hasNeg && hasPos)
}

// segmentCircleIntersect checks if segment a-b intersects a circle
func segmentCircleIntersect(a, b, c Vec2, r float64) bool {
	d := b.Sub(a)
	f := a.Sub(c)
	qa := d.Dot(d)
	if qa == 0 {
		return f.LenSq() <= r*r
	}
	qb := 2 * f.Dot(d)
	qc := f.Dot(f) - r*r
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return false
	}
	disc = math.Sqrt(disc)
	t1 := (-qb - disc) / (2 * qa)
	t2 := (-qb + disc) / (2 * qa)
	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1) || (t1 <= 0 && t2 >= 1)
}

// CheckPolygonCircle checks a rotated convex hitbox against a circle
func CheckPolygonCircle(center Vec2, angle float64, hitbox []Vec2, c Vec2, r float64) bool {
	if len(hitbox) < 3 {
		return false
	}
	poly := transformHitbox(center, angle, hitbox)
	if pointInPolygon(c, poly) {
		return true
	}
	for i := range poly {
		if segmentCircleIntersect(poly[i], poly[(i+1)%len(poly)], c, r) {
			return true
		}
	}
	return false
}

// agentHit is the narrow phase for one agent: polygon hitbox when the
// type has one, bounding circle otherwise
func agentHit(a *Agent, p Vec2, r float64) bool {
	if len(a.Type.Hitbox) >= 3 {
		return CheckPolygonCircle(a.Pos, a.Angle, a.Type.Hitbox, p, r)
	}
	return CheckCollision(a.Pos, a.Type.PhysRadius, p, r)
}

// BroadPhase finds projectile hits for a mission. It is the host-side
// collision collaborator: DetectHits only reads the mission, and the
// resulting hits go back through Mission.ApplyHits.
type BroadPhase struct {
	grid *SpatialGrid
	buf  []EntityRef
}

// NewBroadPhase creates a broad phase with a grid sized for agent hulls
func NewBroadPhase() *BroadPhase {
	return &BroadPhase{grid: NewSpatialGrid(DefaultCellSize)}
}

// DetectHits reports at most one hit per live projectile
func (bp *BroadPhase) DetectHits(m *Mission) []Hit {
	agents := m.Agents()
	bp.grid.Clear()
	for i, a := range agents {
		if a.alive {
			bp.grid.InsertCircle(a.Pos, a.Type.Reach(), EntityRef{Kind: KindAgent, Idx: i})
		}
	}

	var hits []Hit
	player := m.Player()
	objective := m.Objective()
	for _, p := range m.Projectiles() {
		if !p.alive {
			continue
		}
		if p.Hostile {
			if player != nil && player.Alive() && CheckCollision(p.Pos, ProjectileRadius, player.Position(), ShipRadius) {
				hits = append(hits, Hit{ProjectileID: p.ID, Victim: VictimPlayer, Damage: p.Damage})
				continue
			}
			if objective != nil && objective.Alive() && CheckCollision(p.Pos, ProjectileRadius, objective.Position(), objective.Radius()) {
				hits = append(hits, Hit{ProjectileID: p.ID, Victim: VictimObjective, Damage: p.Damage})
			}
			continue
		}
		bp.buf = bp.grid.QueryBuf(p.Pos, ProjectileRadius, bp.buf[:0])
		for _, ref := range bp.buf {
			a := agents[ref.Idx]
			if !a.alive || !agentHit(a, p.Pos, ProjectileRadius) {
				continue
			}
			hits = append(hits, Hit{ProjectileID: p.ID, Victim: VictimAgent, AgentID: a.ID, Damage: p.Damage})
			break
		}
	}
	return hits
}

// DetectHits is a convenience wrapper using a throwaway broad phase
func DetectHits(m *Mission) []Hit {
	return NewBroadPhase().DetectHits(m)
}
