package sim

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	ReferenceFrameRate = 60.0   // rule effects are per-frame deltas at this rate
	RuleInterval       = 0.1    // seconds between rule 2-5 recomputes
	MinGravityDistance = 1.0    // effective distance clamp
	PushOutFactor      = 25.0   // acceleration multiplier inside a body
	CollisionDamage    = 1.0    // per tick while inside a body
	DangerRadius       = 2500.0 // rule 5 reach
	DangerAmplify      = 3.0
	NoseCone           = 45.0 // half-angle in front of a gun, rules 2 and 4
	OcclusionCone      = 20.0 // friendly-fire half-angle around the line to target
	RuleScale          = 0.05 // applied to rules 2, 3 and 4

	AttractRadius = 500.0
	CollectRadius = 15.0
	ScrapSize     = 24.0
	ScrapPull     = 60000.0 // speed gain is ScrapPull/distance per second
	ScrapDecay    = 0.97    // speed multiplier per tick
)

// Config holds the tunables of one mission. Start from DefaultConfig.
type Config struct {
	G float64 `json:"g"`

	// Steering
	SeparationRadius  float64 `json:"separation_radius"`
	MatchDistance     float64 `json:"match_distance"`
	SpeedTolerance    float64 `json:"speed_tolerance"`
	MatchFast         float64 `json:"match_fast"`
	MatchSlow         float64 `json:"match_slow"`
	PlayerThreatRange float64 `json:"player_threat_range"`

	// Director
	ScreenWidth     float64 `json:"screen_width"`
	StartingCount   int     `json:"starting_count"`
	MaxWaveSize     int     `json:"max_wave_size"`
	WaveGrowth      float64 `json:"wave_growth"`
	MinDifficulty   float64 `json:"min_difficulty"`
	MaxDifficulty   float64 `json:"max_difficulty"`
	ClusterMin      int     `json:"cluster_min"`
	ClusterMax      int     `json:"cluster_max"`
	ClusterSpeed    float64 `json:"cluster_speed"`
	SpawnScreens    float64 `json:"spawn_screens"`
	SpawnJitter     float64 `json:"spawn_jitter"` // degrees
	SpawnClearance  float64 `json:"spawn_clearance"`
	PlayerTargetCap int     `json:"player_target_cap"`
	BossEvery       int     `json:"boss_every"`
	Intermission    float64 `json:"intermission"` // seconds
	MaxLoot         int     `json:"max_loot"`

	// Agent types spawned by regular and boss waves
	WaveTypes []string `json:"wave_types"`
	BossType  string   `json:"boss_type"`
}

// DefaultConfig returns the tuned defaults
func DefaultConfig() Config {
	return Config{
		G:                 1.0,
		SeparationRadius:  160,
		MatchDistance:     1400,
		SpeedTolerance:    40,
		MatchFast:         1.0,
		MatchSlow:         0.25,
		PlayerThreatRange: 1600,

		ScreenWidth:     1920,
		StartingCount:   6,
		MaxWaveSize:     240,
		WaveGrowth:      0.15,
		MinDifficulty:   0.5,
		MaxDifficulty:   4.0,
		ClusterMin:      3,
		ClusterMax:      8,
		ClusterSpeed:    260,
		SpawnScreens:    3,
		SpawnJitter:     30,
		SpawnClearance:  120,
		PlayerTargetCap: 6,
		BossEvery:       5,
		Intermission:    4,
		MaxLoot:         3,

		WaveTypes: []string{"fighter", "gunship", "spinner", "phantom"},
		BossType:  "dreadnought",
	}
}

// Validate checks the invariants the director and steering rely on
func (c Config) Validate() error {
	switch {
	case c.G <= 0:
		return fmt.Errorf("%w: g must be positive", ErrInvalidConfig)
	case c.StartingCount < 1:
		return fmt.Errorf("%w: starting_count must be at least 1", ErrInvalidConfig)
	case c.ClusterMin < 1 || c.ClusterMax < c.ClusterMin:
		return fmt.Errorf("%w: cluster bounds [%d,%d]", ErrInvalidConfig, c.ClusterMin, c.ClusterMax)
	case c.MinDifficulty <= 0 || c.MaxDifficulty < c.MinDifficulty:
		return fmt.Errorf("%w: difficulty bounds [%g,%g]", ErrInvalidConfig, c.MinDifficulty, c.MaxDifficulty)
	case c.BossEvery < 1:
		return fmt.Errorf("%w: boss_every must be at least 1", ErrInvalidConfig)
	case c.ScreenWidth <= 0:
		return fmt.Errorf("%w: screen_width must be positive", ErrInvalidConfig)
	case len(c.WaveTypes) == 0:
		return fmt.Errorf("%w: wave_types is empty", ErrInvalidConfig)
	case c.MaxLoot < 0:
		return fmt.Errorf("%w: max_loot must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig overlays a JSON file on DefaultConfig
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
