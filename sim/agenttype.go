package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// Rule indexes the five steering rules
type Rule int

const (
	RuleHoldDistance Rule = iota // approach and hold distance
	RuleSeparation               // peer separation
	RuleMatchVelocity
	RuleEvade // stay out of the player's line of fire
	RuleAvoidGravity
	NumRules
)

// RuleWeights is a sparse weight vector. A missing rule is never computed.
type RuleWeights map[Rule]float64

// Weight returns the weight of r and whether it is configured
func (w RuleWeights) Weight(r Rule) (float64, bool) {
	v, ok := w[r]
	return v, ok
}

// Clone copies the weights so an agent can override them
func (w RuleWeights) Clone() RuleWeights {
	out := make(RuleWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// UnmarshalJSON decodes a positional array: [hold, separation, match, evade, gravity?]
func (w *RuleWeights) UnmarshalJSON(data []byte) error {
	var arr []float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	out := make(RuleWeights, len(arr))
	for i, v := range arr {
		out[Rule(i)] = v
	}
	*w = out
	return nil
}

// MarshalJSON encodes back into the positional form
func (w RuleWeights) MarshalJSON() ([]byte, error) {
	arr := make([]float64, 0, len(w))
	for r := Rule(0); r < NumRules; r++ {
		v, ok := w[r]
		if !ok {
			break
		}
		arr = append(arr, v)
	}
	return json.Marshal(arr)
}

// DistanceBands are the rule 1 thresholds, descending
type DistanceBands struct {
	Far       float64 `json:"far"`
	Approach  float64 `json:"approach"`
	Hold      float64 `json:"hold"`
	TooClose  float64 `json:"too_close"`
	VeryClose float64 `json:"very_close"`
}

// ShootSpec drives the burst state machine
type ShootSpec struct {
	DelayMin       float64 `json:"delay_min"` // seconds between bursts
	DelayMax       float64 `json:"delay_max"`
	NumShots       int     `json:"num_shots"`
	ShotGap        float64 `json:"shot_gap"`
	StartAngle     float64 `json:"start_angle"`
	AngleIncrement float64 `json:"angle_increment"`
	AimCone        float64 `json:"aim_cone"`
	Range          float64 `json:"range"`
	Speed          float64 `json:"speed"`
	Damage         float64 `json:"damage"`
	Life           float64 `json:"life"`
}

// AgentType is the immutable per-type record, validated once at load time
type AgentType struct {
	Name             string        `json:"name"`
	Health           float64       `json:"health"`
	TurnRate         float64       `json:"turn_rate"` // degrees per second
	Mass             float64       `json:"mass"`
	Size             float64       `json:"size"`
	PhysRadius       float64       `json:"radius"`
	Hitbox           []Vec2        `json:"hitbox"`
	Frames           int           `json:"frames"`
	GravityDampening float64       `json:"gravity_dampening"`
	Bands            DistanceBands `json:"bands"`
	Rules            RuleWeights   `json:"rules"`
	Shoot            ShootSpec     `json:"shoot"`
	Abilities        []AbilitySpec `json:"abilities"`
	InfluenceMass    float64       `json:"influence_mass"`
}

// Validate rejects records the simulation cannot run
func (t *AgentType) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w %q: %s", ErrInvalidAgentType, t.Name, fmt.Sprintf(format, args...))
	}
	if t.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidAgentType)
	}
	if t.Health <= 0 {
		return bad("health must be positive")
	}
	if n := len(t.Rules); n < 4 || n > int(NumRules) {
		return bad("rules must have 4 or 5 weights, got %d", n)
	}
	for r := Rule(0); r < Rule(len(t.Rules)); r++ {
		v, ok := t.Rules[r]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return bad("rule %d weight missing or not finite", r)
		}
	}
	if t.Shoot.NumShots < 1 {
		return bad("num_shots must be at least 1")
	}
	if t.Shoot.DelayMin < 0 || t.Shoot.DelayMax < t.Shoot.DelayMin {
		return bad("delay range [%g,%g]", t.Shoot.DelayMin, t.Shoot.DelayMax)
	}
	b := t.Bands
	if !(b.Far >= b.Approach && b.Approach >= b.Hold && b.Hold >= b.TooClose && b.TooClose >= b.VeryClose && b.VeryClose >= 0) {
		return bad("distance bands must be descending")
	}
	for i, a := range t.Abilities {
		if err := a.validate(); err != nil {
			return bad("ability %d: %v", i, err)
		}
	}
	return nil
}

// Reach is the distance from the agent's centre to the furthest point of
// its hull, hitbox included
func (t *AgentType) Reach() float64 {
	r := t.Size / 2
	for _, p := range t.Hitbox {
		r = math.Max(r, p.Len())
	}
	return r
}

func (t *AgentType) applyDefaults() {
	if t.GravityDampening == 0 {
		t.GravityDampening = 1
	}
	if t.Mass == 0 {
		t.Mass = 1
	}
	if t.Frames == 0 {
		t.Frames = 1
	}
	if t.Shoot.Life == 0 {
		t.Shoot.Life = 2
	}
	if len(t.Hitbox) == 0 && t.PhysRadius > 0 {
		r := t.PhysRadius
		t.Hitbox = []Vec2{{r, 0}, {-r * 0.7, -r * 0.7}, {-r * 0.7, r * 0.7}}
	}
}

// AgentTypes is a validated registry keyed by name
type AgentTypes map[string]*AgentType

// Get looks up a type by name
func (ts AgentTypes) Get(name string) (*AgentType, error) {
	t, ok := ts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgentType, name)
	}
	return t, nil
}

// LoadAgentTypes decodes a JSON array of agent types and validates each one
func LoadAgentTypes(r io.Reader) (AgentTypes, error) {
	var list []*AgentType
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode agent types: %w", err)
	}
	return NewAgentTypes(list...)
}

// NewAgentTypes validates and indexes the given types
func NewAgentTypes(list ...*AgentType) (AgentTypes, error) {
	out := make(AgentTypes, len(list))
	for _, t := range list {
		t.applyDefaults()
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidAgentType, t.Name)
		}
		out[t.Name] = t
	}
	return out, nil
}

// DefaultAgentTypes returns the built-in roster
func DefaultAgentTypes() AgentTypes {
	bands := DistanceBands{Far: 2200, Approach: 1200, Hold: 700, TooClose: 350, VeryClose: 150}
	list := []*AgentType{
		{
			Name: "fighter", Health: 40, TurnRate: 220, Mass: 1, Size: 48, PhysRadius: 18,
			Frames: 3, Bands: bands,
			Rules: RuleWeights{0: 1.0, 1: 30, 2: 0.4, 3: 12, 4: 1.2},
			Shoot: ShootSpec{DelayMin: 1.5, DelayMax: 3, NumShots: 3, ShotGap: 0.12,
				AimCone: 8, Range: 1100, Speed: 700, Damage: 6},
		},
		{
			Name: "gunship", Health: 90, TurnRate: 120, Mass: 3, Size: 72, PhysRadius: 28,
			Frames: 4, Bands: DistanceBands{Far: 2000, Approach: 1000, Hold: 550, TooClose: 300, VeryClose: 120},
			Rules: RuleWeights{0: 0.8, 1: 25, 2: 0.6, 3: 8, 4: 1.5},
			Shoot: ShootSpec{DelayMin: 2.5, DelayMax: 4, NumShots: 5, ShotGap: 0,
				StartAngle: -20, AngleIncrement: 10, AimCone: 12, Range: 800, Speed: 600, Damage: 5},
		},
		{
			Name: "spinner", Health: 60, TurnRate: 180, Mass: 2, Size: 56, PhysRadius: 22,
			Frames: 3, Bands: bands,
			Rules: RuleWeights{0: 1.2, 1: 30, 2: 0.3, 3: 6, 4: 1.0},
			Shoot: ShootSpec{DelayMin: 3, DelayMax: 5, NumShots: 6, ShotGap: 0.05,
				AngleIncrement: 60, AimCone: 30, Range: 900, Speed: 500, Damage: 4},
		},
		{
			// four-rule type: never steers around gravity wells
			Name: "phantom", Health: 50, TurnRate: 260, Mass: 1, Size: 44, PhysRadius: 16,
			Frames: 2, Bands: bands,
			Rules: RuleWeights{0: 1.1, 1: 28, 2: 0.5, 3: 10},
			Shoot: ShootSpec{DelayMin: 1.2, DelayMax: 2.4, NumShots: 2, ShotGap: 0.1,
				AimCone: 6, Range: 1000, Speed: 750, Damage: 7},
			Abilities: []AbilitySpec{
				{Kind: AbilityInvisibility, TriggerDistance: 900, Duration: 3, Cooldown: 8, EvasionWeight: 60},
				{Kind: AbilityShield, TriggerDistance: 500, Duration: 2, Cooldown: 10, ShieldHP: 30},
			},
		},
		{
			Name: "dreadnought", Health: 1200, TurnRate: 45, Mass: 40, Size: 300, PhysRadius: 120,
			Frames: 5, Bands: DistanceBands{Far: 2600, Approach: 1600, Hold: 900, TooClose: 500, VeryClose: 250},
			Hitbox: []Vec2{{140, 0}, {-130, -130}, {-130, 130}},
			Rules:  RuleWeights{0: 0.5, 1: 5, 2: 0.2, 3: 2, 4: 2},
			Shoot: ShootSpec{DelayMin: 2, DelayMax: 3, NumShots: 12, ShotGap: 0.08,
				AngleIncrement: 30, AimCone: 45, Range: 1500, Speed: 550, Damage: 8, Life: 3},
			Abilities: []AbilitySpec{
				{Kind: AbilityShield, TriggerDistance: 1200, Duration: 4, Cooldown: 12, ShieldHP: 200},
			},
			InfluenceMass: 2.0e5,
		},
	}
	types, err := NewAgentTypes(list...)
	if err != nil {
		panic("built-in agent types: " + err.Error())
	}
	return types
}
