package sim

// Rule outputs are velocity deltas per reference frame, already weighted.

const (
	approachDrag = 0.005 // relative-velocity drag while closing in
	comfortDrag  = 0.02  // relative-velocity drag while holding distance
)

// holdDistance is rule 1: close in when far, hold the comfortable band,
// back off when too close.
func (a *Agent) holdDistance(target Target, cfg *Config) Vec2 {
	w, ok := a.Weights.Weight(RuleHoldDistance)
	if !ok {
		return Vec2{}
	}
	b := a.Type.Bands
	d := a.TargetDistance
	toward := a.Pos.Towards(target.Position())
	relVel := a.Vel.Sub(target.Velocity())
	comfort := target.Acceleration().Scale(1 / ReferenceFrameRate).Sub(relVel.Scale(comfortDrag))

	var v Vec2
	switch {
	case d > b.Far:
		v = toward.Scale(2).Sub(relVel.Scale(approachDrag))
	case d > b.Approach:
		v = toward.Sub(relVel.Scale(approachDrag))
	case d > b.Hold:
		v = toward.Scale(0.25).Add(comfort)
	case d > b.TooClose:
		v = comfort
	case d > b.VeryClose:
		v = toward.Scale(-0.5)
	default:
		v = toward.Scale(-1.5)
	}
	return v.Scale(w)
}

// noseDodge reports whether self sits within NoseCone of a gun's facing
// and, if so, the lateral push out of the line of fire. The push grows
// toward the centre of the cone.
func noseDodge(gunPos Vec2, gunAngle float64, self Vec2) (Vec2, bool) {
	bearing := AngleBetween(self, gunPos)
	diff := SmallestAngularDifference(bearing, gunAngle)
	if diff > NoseCone {
		return Vec2{}, false
	}
	side := TurnDirection(bearing, gunAngle)
	if side == 0 {
		side = 1
	}
	depth := (NoseCone - diff) / NoseCone
	return Heading(gunAngle + 90*float64(side)).Scale(depth), true
}

// separation is rule 2: stay out of allies' guns, otherwise spread out
func (a *Agent) separation(w *world) Vec2 {
	weight, ok := a.Weights.Weight(RuleSeparation)
	if !ok {
		return Vec2{}
	}
	r := w.cfg.SeparationRadius
	w.buf = w.grid.QueryBuf(a.Pos, r, w.buf[:0])

	var sum Vec2
	n := 0
	for _, ref := range w.buf {
		o := w.agents[ref.Idx]
		if o == a || !o.alive {
			continue
		}
		d := Distance(a.Pos, o.Pos)
		if d > r {
			continue
		}
		if push, in := noseDodge(o.Pos, o.Angle, a.Pos); in {
			sum = sum.Add(push)
		} else {
			sum = sum.Add(a.Pos.Sub(o.Pos).Norm().Scale(1 - d/r))
		}
		n++
	}
	if n == 0 {
		return Vec2{}
	}
	return sum.Scale(weight * RuleScale / float64(n))
}

// matchVelocity is rule 3
func (a *Agent) matchVelocity(target Target, cfg *Config) Vec2 {
	w, ok := a.Weights.Weight(RuleMatchVelocity)
	if !ok {
		return Vec2{}
	}
	d := a.TargetDistance
	if d > cfg.MatchDistance {
		return Vec2{}
	}
	tv := target.Velocity()
	mismatch := a.Vel.Len() - tv.Len()
	if mismatch < 0 {
		mismatch = -mismatch
	}
	if mismatch <= cfg.SpeedTolerance {
		return Vec2{}
	}
	rate := cfg.MatchSlow
	if mismatch > 3*cfg.SpeedTolerance || d > cfg.MatchDistance/2 {
		rate = cfg.MatchFast
	}
	return tv.Sub(a.Vel).Scale(rate * w * RuleScale)
}

// evade is rule 4: the nose check of rule 2 against the player's guns
func (a *Agent) evade(p Player, cfg *Config) Vec2 {
	w, ok := a.Weights.Weight(RuleEvade)
	if !ok || p == nil || !p.Alive() {
		return Vec2{}
	}
	if Distance(a.Pos, p.Position()) > cfg.PlayerThreatRange {
		return Vec2{}
	}
	push, in := noseDodge(p.Position(), p.Angle(), a.Pos)
	if !in {
		return Vec2{}
	}
	return push.Scale(w * RuleScale)
}

// avoidGravity is rule 5. It reads this tick's per-influence gravity
// breakdown and pushes away harder the closer a body is.
func (a *Agent) avoidGravity() Vec2 {
	w, ok := a.Weights.Weight(RuleAvoidGravity)
	if !ok {
		return Vec2{}
	}
	var sum Vec2
	n := 0
	for _, c := range a.gravity.Contributions {
		src := c.Source.Position()
		d := Distance(a.Pos, src)
		if d >= DangerRadius {
			continue
		}
		sum = sum.Add(a.Pos.Sub(src).Norm().Scale((1 - d/DangerRadius) * DangerAmplify))
		n++
	}
	if n == 0 {
		return Vec2{}
	}
	return sum.Scale(w / float64(n))
}
