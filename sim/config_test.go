package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mission.json")
	if err := os.WriteFile(path, []byte(`{"starting_count": 10, "boss_every": 3}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StartingCount != 10 || cfg.BossEvery != 3 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.ClusterMax != DefaultConfig().ClusterMax {
		t.Error("unset fields should keep their defaults")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	for i, overlay := range []string{
		`{"cluster_min": 6, "cluster_max": 2}`,
		`{"max_loot": -1}`,
		`{"boss_every": 0}`,
	} {
		path := filepath.Join(dir, fmt.Sprintf("bad%d.json", i))
		os.WriteFile(path, []byte(overlay), 0o644)
		if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", overlay, err)
		}
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

const fourRuleType = `[{
	"name": "skiff",
	"health": 20,
	"turn_rate": 200,
	"size": 30,
	"radius": 12,
	"bands": {"far": 1500, "approach": 900, "hold": 500, "too_close": 200, "very_close": 80},
	"rules": [1, 20, 0.5, 8],
	"shoot": {"delay_min": 1, "delay_max": 2, "num_shots": 2, "shot_gap": 0.1, "aim_cone": 10, "range": 800, "speed": 600, "damage": 4}
}]`

func TestLoadAgentTypes(t *testing.T) {
	types, err := LoadAgentTypes(strings.NewReader(fourRuleType))
	if err != nil {
		t.Fatalf("LoadAgentTypes: %v", err)
	}
	sk, err := types.Get("skiff")
	if err != nil {
		t.Fatal(err)
	}
	if len(sk.Rules) != 4 {
		t.Errorf("expected 4 rules, got %d", len(sk.Rules))
	}
	if _, ok := sk.Rules.Weight(RuleAvoidGravity); ok {
		t.Error("fifth rule should be absent")
	}
	if sk.GravityDampening != 1 || sk.Mass != 1 || len(sk.Hitbox) != 3 {
		t.Errorf("defaults not applied: %+v", sk)
	}

	if _, err := types.Get("kraken"); !errors.Is(err, ErrUnknownAgentType) {
		t.Errorf("expected ErrUnknownAgentType, got %v", err)
	}
}

func TestLoadAgentTypesRejects(t *testing.T) {
	bad := map[string]string{
		"three rules":    strings.Replace(fourRuleType, `[1, 20, 0.5, 8]`, `[1, 20, 0.5]`, 1),
		"inverted delay": strings.Replace(fourRuleType, `"delay_min": 1, "delay_max": 2`, `"delay_min": 3, "delay_max": 2`, 1),
		"no shots":       strings.Replace(fourRuleType, `"num_shots": 2`, `"num_shots": 0`, 1),
		"no health":      strings.Replace(fourRuleType, `"health": 20`, `"health": 0`, 1),
		"bad bands":      strings.Replace(fourRuleType, `"far": 1500`, `"far": 100`, 1),
	}
	for name, doc := range bad {
		if _, err := LoadAgentTypes(strings.NewReader(doc)); !errors.Is(err, ErrInvalidAgentType) {
			t.Errorf("%s: expected ErrInvalidAgentType, got %v", name, err)
		}
	}

	dup := "[" + fourRuleType[1:len(fourRuleType)-1] + "," + fourRuleType[1:]
	if _, err := LoadAgentTypes(strings.NewReader(dup)); !errors.Is(err, ErrInvalidAgentType) {
		t.Errorf("duplicate names: expected ErrInvalidAgentType, got %v", err)
	}
	if _, err := LoadAgentTypes(strings.NewReader(`{`)); err == nil {
		t.Error("malformed json should fail")
	}
}

func TestRuleWeightsJSON(t *testing.T) {
	w := RuleWeights{0: 1, 1: 2, 2: 3, 3: 4}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[1,2,3,4]" {
		t.Errorf("expected positional array, got %s", data)
	}
}

func TestDefaultAgentTypesValid(t *testing.T) {
	types := DefaultAgentTypes()
	cfg := DefaultConfig()
	for _, name := range append(cfg.WaveTypes, cfg.BossType) {
		at, err := types.Get(name)
		if err != nil {
			t.Fatalf("default roster is missing %s", name)
		}
		if err := at.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if boss, _ := types.Get(cfg.BossType); boss.InfluenceMass <= 0 {
		t.Error("the boss should gravitate")
	}
}
