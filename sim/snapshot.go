package sim

// AgentState is one agent as presentation layers see it
type AgentState struct {
	ID      uint64  `json:"id" msgpack:"id"`
	Type    string  `json:"t" msgpack:"t"`
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	VX      float64 `json:"vx" msgpack:"vx"`
	VY      float64 `json:"vy" msgpack:"vy"`
	Angle   float64 `json:"r" msgpack:"r"` // degrees
	HP      float64 `json:"hp" msgpack:"hp"`
	MaxHP   float64 `json:"mhp" msgpack:"mhp"`
	Frame   int     `json:"f" msgpack:"f"`
	Target  string  `json:"tg" msgpack:"tg"`
	Fire    string  `json:"fs" msgpack:"fs"`
	Ability string  `json:"ab,omitempty" msgpack:"ab,omitempty"`
	Shield  float64 `json:"sh,omitempty" msgpack:"sh,omitempty"`
	Cloaked bool    `json:"c,omitempty" msgpack:"c,omitempty"`
	Pointer bool    `json:"pt" msgpack:"pt"`
	Boss    bool    `json:"b,omitempty" msgpack:"b,omitempty"`
	Cluster int     `json:"cl,omitempty" msgpack:"cl,omitempty"`
	GX      float64 `json:"gx" msgpack:"gx"` // gravity acceleration
	GY      float64 `json:"gy" msgpack:"gy"`
}

// PlayerState is the player ship
type PlayerState struct {
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	VX    float64 `json:"vx" msgpack:"vx"`
	VY    float64 `json:"vy" msgpack:"vy"`
	Angle float64 `json:"r" msgpack:"r"`
	HP    float64 `json:"hp" msgpack:"hp"`
	Alive bool    `json:"a" msgpack:"a"`
}

// SatelliteState is a moon or station
type SatelliteState struct {
	Name   string  `json:"n" msgpack:"n"`
	Kind   string  `json:"k" msgpack:"k"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Size   float64 `json:"s" msgpack:"s"`
	HP     float64 `json:"hp,omitempty" msgpack:"hp,omitempty"`
	MaxHP  float64 `json:"mhp,omitempty" msgpack:"mhp,omitempty"`
	Alive  bool    `json:"a" msgpack:"a"`
	Parent string  `json:"p" msgpack:"p"`
}

// PlanetState is a planet and its satellites
type PlanetState struct {
	Name       string           `json:"n" msgpack:"n"`
	Kind       string           `json:"k" msgpack:"k"`
	X          float64          `json:"x" msgpack:"x"`
	Y          float64          `json:"y" msgpack:"y"`
	Size       float64          `json:"s" msgpack:"s"`
	Satellites []SatelliteState `json:"sat,omitempty" msgpack:"sat,omitempty"`
}

// ProjectileState is a bullet in flight
type ProjectileState struct {
	ID      uint64  `json:"id" msgpack:"id"`
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	Angle   float64 `json:"r" msgpack:"r"`
	Hostile bool    `json:"h" msgpack:"h"`
}

// ScrapState is a pickup
type ScrapState struct {
	ID     uint64  `json:"id" msgpack:"id"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Size   float64 `json:"s" msgpack:"s"`
	Homing bool    `json:"h,omitempty" msgpack:"h,omitempty"`
}

// ClusterState is a cluster still travelling
type ClusterState struct {
	ID      int     `json:"id" msgpack:"id"`
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	Enemies int     `json:"n" msgpack:"n"`
	Type    string  `json:"t" msgpack:"t"`
	Boss    bool    `json:"b,omitempty" msgpack:"b,omitempty"`
}

// DirectorState is the wave progress
type DirectorState struct {
	Wave       int     `json:"w" msgpack:"w"`
	Stage      int     `json:"st" msgpack:"st"`
	Phase      string  `json:"ph" msgpack:"ph"`
	Difficulty float64 `json:"d" msgpack:"d"`
	Boss       bool    `json:"b" msgpack:"b"`
	Kills      int     `json:"k" msgpack:"k"`
	NextSize   int     `json:"ns" msgpack:"ns"`
	NextWaveAt float64 `json:"nw" msgpack:"nw"`
}

// MissionState is the full read-only picture of a mission at one tick
type MissionState struct {
	Tick        uint64            `json:"tick" msgpack:"tick"`
	Time        float64           `json:"time" msgpack:"time"`
	Player      PlayerState       `json:"pl" msgpack:"pl"`
	Agents      []AgentState      `json:"ag" msgpack:"ag"`
	Planets     []PlanetState     `json:"pn" msgpack:"pn"`
	Projectiles []ProjectileState `json:"pr" msgpack:"pr"`
	Scrap       []ScrapState      `json:"sc" msgpack:"sc"`
	Clusters    []ClusterState    `json:"cl" msgpack:"cl"`
	Director    DirectorState     `json:"dr" msgpack:"dr"`
	Events      []Event           `json:"ev,omitempty" msgpack:"ev,omitempty"`
	Collected   int               `json:"col" msgpack:"col"`
	TornDown    bool              `json:"td,omitempty" msgpack:"td,omitempty"`
}

// Snapshot copies the current state out of the mission
func (m *Mission) Snapshot() MissionState {
	p := m.player
	st := MissionState{
		Tick: m.tick,
		Time: m.now,
		Player: PlayerState{
			X:     p.Position().X,
			Y:     p.Position().Y,
			VX:    p.Velocity().X,
			VY:    p.Velocity().Y,
			Angle: p.Angle(),
			HP:    p.Health(),
			Alive: p.Alive(),
		},
		Agents:      make([]AgentState, 0, len(m.agents)),
		Planets:     make([]PlanetState, 0, len(m.planets)),
		Projectiles: make([]ProjectileState, 0, len(m.projectiles)),
		Scrap:       make([]ScrapState, 0, len(m.scrap)),
		Director: DirectorState{
			Wave:       m.director.Wave,
			Stage:      m.director.Stage,
			Phase:      m.director.Phase.String(),
			Difficulty: m.director.Difficulty,
			Boss:       m.director.BossWave,
			Kills:      m.director.Kills,
			NextSize:   m.director.PendingSize(),
			NextWaveAt: m.director.NextWaveAt,
		},
		Events:    append([]Event(nil), m.events...),
		Collected: m.ScrapCollected,
		TornDown:  m.tornDown,
	}

	for _, a := range m.agents {
		if !a.alive {
			continue
		}
		st.Agents = append(st.Agents, AgentState{
			ID:      a.ID,
			Type:    a.Type.Name,
			X:       a.Pos.X,
			Y:       a.Pos.Y,
			VX:      a.Vel.X,
			VY:      a.Vel.Y,
			Angle:   a.Angle,
			HP:      a.HP,
			MaxHP:   a.Type.Health,
			Frame:   a.DamageFrame(),
			Target:  a.TargetRef.String(),
			Fire:    a.Combat.State.String(),
			Ability: string(a.ActiveKind()),
			Shield:  a.Ability.ShieldHP,
			Cloaked: a.Cloaked,
			Pointer: a.PointerVisible,
			Boss:    a.Boss,
			Cluster: a.ClusterID,
			GX:      a.gravity.Acceleration.X,
			GY:      a.gravity.Acceleration.Y,
		})
	}

	for _, pl := range m.planets {
		ps := PlanetState{Name: pl.Name, Kind: pl.Kind, X: pl.Center.X, Y: pl.Center.Y, Size: pl.Size}
		for _, s := range pl.Satellites {
			pos := s.Position()
			ps.Satellites = append(ps.Satellites, SatelliteState{
				Name:   s.Name,
				Kind:   string(s.Kind),
				X:      pos.X,
				Y:      pos.Y,
				Size:   s.Size,
				HP:     s.HP,
				MaxHP:  s.MaxHP,
				Alive:  s.Alive(),
				Parent: pl.Name,
			})
		}
		st.Planets = append(st.Planets, ps)
	}

	for _, pr := range m.projectiles {
		if pr.alive {
			st.Projectiles = append(st.Projectiles, ProjectileState{ID: pr.ID, X: pr.Pos.X, Y: pr.Pos.Y, Angle: pr.Angle, Hostile: pr.Hostile})
		}
	}
	for _, s := range m.scrap {
		if s.alive {
			st.Scrap = append(st.Scrap, ScrapState{ID: s.ID, X: s.Pos.X, Y: s.Pos.Y, Size: s.Size, Homing: s.Attracted(p.Position())})
		}
	}
	for _, c := range m.clusters {
		if !c.Spawned {
			st.Clusters = append(st.Clusters, ClusterState{ID: c.ID, X: c.Pos.X, Y: c.Pos.Y, Enemies: c.NumEnemies, Type: c.TypeName, Boss: c.Boss})
		}
	}
	return st
}
