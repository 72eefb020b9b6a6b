package sim

import "fmt"

// AbilityKind identifies an agent ability
type AbilityKind string

const (
	AbilityInvisibility AbilityKind = "invisibility" // cloak: evade harder, hide pointer
	AbilityShield       AbilityKind = "shield"       // absorb damage while active
)

// AbilitySpec configures one ability slot of an agent type
type AbilitySpec struct {
	Kind            AbilityKind `json:"kind"`
	TriggerDistance float64     `json:"trigger_distance"` // activates when target is closer
	Duration        float64     `json:"duration"`
	Cooldown        float64     `json:"cooldown"`
	EvasionWeight   float64     `json:"evasion_weight"` // invisibility: rule 4 override
	ShieldHP        float64     `json:"shield_hp"`
}

func (a AbilitySpec) validate() error {
	switch a.Kind {
	case AbilityInvisibility, AbilityShield:
	default:
		return fmt.Errorf("unknown kind %q", a.Kind)
	}
	if a.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if a.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}
	return nil
}

// AbilityState tracks which slot, if any, is active. Active is -1 when idle.
type AbilityState struct {
	Active        int
	StartedAt     float64
	Until         float64
	CooldownUntil []float64 // per slot
	ShieldHP      float64

	savedEvasion float64
	hadEvasion   bool
}

func newAbilityState(n int) AbilityState {
	return AbilityState{Active: -1, CooldownUntil: make([]float64, n)}
}

// ActiveKind returns the kind of the running ability, or "" when none is
func (a *Agent) ActiveKind() AbilityKind {
	if a.Ability.Active < 0 {
		return ""
	}
	return a.Type.Abilities[a.Ability.Active].Kind
}

// updateAbilities expires the running ability or activates the first
// eligible one in config order. At most one state change per tick; the
// changed kind is returned with on set for an activation.
func (a *Agent) updateAbilities(now float64) (AbilityKind, bool) {
	st := &a.Ability
	specs := a.Type.Abilities
	if len(specs) == 0 {
		return "", false
	}
	if st.Active >= 0 {
		if now > st.Until {
			kind := specs[st.Active].Kind
			a.deactivate(now)
			return kind, false
		}
		return "", false
	}
	for i, spec := range specs {
		if now <= st.CooldownUntil[i] {
			continue
		}
		if a.TargetDistance >= spec.TriggerDistance {
			continue
		}
		a.activate(i, now)
		return spec.Kind, true
	}
	return "", false
}

func (a *Agent) activate(slot int, now float64) {
	spec := a.Type.Abilities[slot]
	st := &a.Ability
	st.Active = slot
	st.StartedAt = now
	st.Until = now + spec.Duration

	switch spec.Kind {
	case AbilityInvisibility:
		st.savedEvasion, st.hadEvasion = a.Weights.Weight(RuleEvade)
		a.Weights[RuleEvade] = spec.EvasionWeight
		a.Cloaked = true
		a.PointerVisible = false
	case AbilityShield:
		st.ShieldHP = spec.ShieldHP
	}
}

func (a *Agent) deactivate(now float64) {
	st := &a.Ability
	spec := a.Type.Abilities[st.Active]

	switch spec.Kind {
	case AbilityInvisibility:
		if st.hadEvasion {
			a.Weights[RuleEvade] = st.savedEvasion
		} else {
			delete(a.Weights, RuleEvade)
		}
		a.Cloaked = false
		a.PointerVisible = true
	case AbilityShield:
		st.ShieldHP = 0
	}
	st.CooldownUntil[st.Active] = now + spec.Cooldown
	st.Active = -1
}

// absorb applies shield absorption and returns the damage left over
func (a *Agent) absorb(dmg float64) float64 {
	st := &a.Ability
	if a.ActiveKind() != AbilityShield || st.ShieldHP <= 0 {
		return dmg
	}
	if dmg <= st.ShieldHP {
		st.ShieldHP -= dmg
		return 0
	}
	dmg -= st.ShieldHP
	st.ShieldHP = 0
	return dmg
}
