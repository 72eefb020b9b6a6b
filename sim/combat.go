package sim

// FireState is the burst cycle of an agent's guns
type FireState int

const (
	FireIdle FireState = iota
	FireAiming
	FireFiring
	FireCooldown
)

func (s FireState) String() string {
	switch s {
	case FireAiming:
		return "aiming"
	case FireFiring:
		return "firing"
	case FireCooldown:
		return "cooldown"
	default:
		return "idle"
	}
}

// Combat holds the burst timers. Deadlines are mission-clock seconds and
// are only ever compared with now > deadline.
type Combat struct {
	State        FireState
	ShotInterval float64
	NextBurstAt  float64
	NextShotAt   float64
	ShotsFired   int
	LastShotTime float64
	Aborts       int // bursts cancelled by friendly-fire checks
}

// Shot is one projectile an agent asked to emit this tick
type Shot struct {
	OwnerID uint64
	Pos     Vec2
	Vel     Vec2
	Angle   float64
	Damage  float64
	Life    float64
}

// BurstAngle is the heading of shot i of a burst. Straight volleys use a
// zero increment, full circles use 360/numShots.
func BurstAngle(facing, start, increment float64, i int) float64 {
	return NormalizeDegrees(facing + start + float64(i)*increment)
}

// inAim reports whether the target is inside the aim cone and in range
func (a *Agent) inAim() bool {
	s := a.Type.Shoot
	smallest := a.AngleDiff.CW
	if a.AngleDiff.CCW < smallest {
		smallest = a.AngleDiff.CCW
	}
	return smallest <= s.AimCone && a.TargetDistance < s.Range
}

// lineBlocked reports whether a live peer closer than the target sits
// within OcclusionCone of the line to the target
func (a *Agent) lineBlocked(peers []*Agent) bool {
	for _, o := range peers {
		if o == a || !o.alive {
			continue
		}
		if Distance(a.Pos, o.Pos) >= a.TargetDistance {
			continue
		}
		if SmallestAngularDifference(AngleBetween(o.Pos, a.Pos), a.TargetAngle) <= OcclusionCone {
			return true
		}
	}
	return false
}

// shoot advances the burst state machine by at most one transition and
// returns the shot fired this tick, if any.
func (a *Agent) shoot(now float64, peers []*Agent, roll func() float64) (Shot, bool) {
	c := &a.Combat
	s := a.Type.Shoot

	switch c.State {
	case FireIdle:
		if now > c.NextBurstAt {
			c.State = FireAiming
		}

	case FireAiming:
		if !a.inAim() {
			return Shot{}, false
		}
		if a.lineBlocked(peers) {
			c.Aborts++
			c.ShotInterval = a.rollInterval(roll)
			c.NextBurstAt = now + c.ShotInterval
			c.State = FireIdle
			return Shot{}, false
		}
		c.State = FireFiring
		c.ShotsFired = 0
		c.NextShotAt = now

	case FireFiring:
		if now <= c.NextShotAt {
			return Shot{}, false
		}
		angle := BurstAngle(a.Angle, s.StartAngle, s.AngleIncrement, c.ShotsFired)
		dir := Heading(angle)
		shot := Shot{
			OwnerID: a.ID,
			Pos:     a.Pos.Add(dir.Scale(a.Type.PhysRadius)),
			Vel:     dir.Scale(s.Speed).Add(a.Vel.Scale(0.3)),
			Angle:   angle,
			Damage:  s.Damage,
			Life:    s.Life,
		}
		c.ShotsFired++
		c.LastShotTime = now
		c.NextShotAt = now + s.ShotGap
		if c.ShotsFired >= s.NumShots {
			c.ShotInterval = a.rollInterval(roll)
			c.NextBurstAt = now + c.ShotInterval
			c.State = FireCooldown
		}
		return shot, true

	case FireCooldown:
		if now > c.NextBurstAt {
			c.State = FireIdle
		}
	}
	return Shot{}, false
}
