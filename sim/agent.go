package sim

import "math"

// TargetRef is a non-owning handle to what an agent is chasing. The
// mission resolves it every tick, so it can never dangle.
type TargetRef int

const (
	TargetPlayer TargetRef = iota
	TargetObjective
)

func (r TargetRef) String() string {
	if r == TargetObjective {
		return "objective"
	}
	return "player"
}

// AngleDiff is the clockwise / counter-clockwise turn needed to face the target
type AngleDiff struct {
	CW  float64
	CCW float64
}

// Agent is an autonomous hostile combatant
type Agent struct {
	ID   uint64
	Type *AgentType

	Pos   Vec2
	Vel   Vec2
	Angle float64 // degrees, [0, 360)

	TargetRef      TargetRef
	TargetDistance float64
	TargetAngle    float64
	AngleDiff      AngleDiff
	TurnDir        int

	RuleEffects [NumRules]Vec2
	Weights     RuleWeights // per-instance copy, abilities override entries
	ruleClock   float64

	HP      float64
	Combat  Combat
	Ability AbilityState

	ClusterID      int // 0 when not spawned by a cluster
	Cloaked        bool
	PointerVisible bool
	Boss           bool

	gravity GravityState
	alive   bool
}

// NewAgent creates a live agent of type t. The first burst is scheduled
// one rolled interval after now.
func NewAgent(id uint64, t *AgentType, pos Vec2, angle float64, now float64, roll func() float64) *Agent {
	a := &Agent{
		ID:             id,
		Type:           t,
		Pos:            pos,
		Angle:          NormalizeDegrees(angle),
		Weights:        t.Rules.Clone(),
		HP:             t.Health,
		Ability:        newAbilityState(len(t.Abilities)),
		PointerVisible: true,
		ruleClock:      RuleInterval, // recompute every rule on the first tick
		alive:          true,
	}
	a.Combat.ShotInterval = a.rollInterval(roll)
	a.Combat.NextBurstAt = now + a.Combat.ShotInterval
	return a
}

// Alive reports whether the agent is still in play
func (a *Agent) Alive() bool { return a.alive }

func (a *Agent) Position() Vec2         { return a.Pos }
func (a *Agent) Velocity() Vec2         { return a.Vel }
func (a *Agent) Gravity() *GravityState { return &a.gravity }
func (a *Agent) Health() float64        { return a.HP }
func (a *Agent) VisualSize() float64    { return a.Type.Size }
func (a *Agent) Radius() float64        { return a.Type.PhysRadius }

// Mass is the influence mass for gravitating agents, otherwise the hull mass
func (a *Agent) Mass() float64 {
	if a.Type.InfluenceMass > 0 {
		return a.Type.InfluenceMass
	}
	return a.Type.Mass
}

// TakeDamage applies shields first and returns true when the hit was lethal
func (a *Agent) TakeDamage(dmg float64) bool {
	if !a.alive || a.HP <= 0 {
		return false
	}
	a.HP -= a.absorb(dmg)
	if a.HP <= 0 {
		a.HP = 0
		return true
	}
	return false
}

// DamageFrame maps remaining health onto the type's visual frames,
// 0 being undamaged
func (a *Agent) DamageFrame() int {
	frames := a.Type.Frames
	if frames <= 1 {
		return 0
	}
	lost := 1 - a.HP/a.Type.Health
	f := int(lost * float64(frames))
	if f >= frames {
		f = frames - 1
	}
	if f < 0 {
		f = 0
	}
	return f
}

// measure refreshes the target-relative metrics
func (a *Agent) measure(target Target) {
	tp := target.Position()
	a.TargetDistance = Distance(a.Pos, tp)
	a.TargetAngle = AngleBetween(tp, a.Pos)
	cw, ccw := AngularDifference(a.TargetAngle, a.Angle)
	a.AngleDiff = AngleDiff{CW: cw, CCW: ccw}
	a.TurnDir = TurnDirection(a.TargetAngle, a.Angle)
}

// turn rotates toward the target angle. A target dead astern has no
// preferred side, so it turns counter-clockwise.
func (a *Agent) turn(dt float64) {
	step := math.Min(a.Type.TurnRate*dt, math.Min(a.AngleDiff.CW, a.AngleDiff.CCW))
	dir := a.TurnDir
	if dir == 0 {
		dir = 1
	}
	a.Angle = NormalizeDegrees(a.Angle + step*float64(dir))
}

// steer runs one steering pass: metrics, turn, gravity, rules, integrate
func (a *Agent) steer(dt float64, w *world, target Target) {
	a.measure(target)
	a.turn(dt)

	a.Vel = a.Vel.Add(a.gravity.Acceleration.Scale(dt * a.Type.GravityDampening))

	a.RuleEffects[RuleHoldDistance] = a.holdDistance(target, w.cfg)
	a.ruleClock += dt
	if a.ruleClock >= RuleInterval {
		a.ruleClock = 0
		a.RuleEffects[RuleSeparation] = a.separation(w)
		a.RuleEffects[RuleMatchVelocity] = a.matchVelocity(target, w.cfg)
		a.RuleEffects[RuleEvade] = a.evade(w.player, w.cfg)
		a.RuleEffects[RuleAvoidGravity] = a.avoidGravity()
	}

	var sum Vec2
	for _, e := range a.RuleEffects {
		sum = sum.Add(e)
	}
	a.Vel = a.Vel.Add(sum.Scale(dt * ReferenceFrameRate))
	a.Pos = a.Pos.Add(a.Vel.Scale(dt))
}

func (a *Agent) rollInterval(roll func() float64) float64 {
	s := a.Type.Shoot
	return s.DelayMin + roll()*(s.DelayMax-s.DelayMin)
}
