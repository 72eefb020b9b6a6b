package sim

import (
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
)

// EventKind names something that happened during a tick
type EventKind string

const (
	EventShot          EventKind = "shot"
	EventKill          EventKind = "kill"
	EventWaveStart     EventKind = "wave_start"
	EventWaveCleared   EventKind = "wave_cleared"
	EventBoss          EventKind = "boss"
	EventScrap         EventKind = "scrap"
	EventPlayerHit     EventKind = "player_hit"
	EventPlayerDown    EventKind = "player_down"
	EventObjectiveHit  EventKind = "objective_hit"
	EventObjectiveLost EventKind = "objective_lost"
	EventAbility       EventKind = "ability"
)

// Event is one entry of the per-tick event list. Fields that do not apply
// to a kind are zero.
type Event struct {
	Kind    EventKind `json:"kind" msgpack:"k"`
	AgentID uint64    `json:"agent_id,omitempty" msgpack:"a,omitempty"`
	Pos     Vec2      `json:"pos" msgpack:"p"`
	Wave    int       `json:"wave,omitempty" msgpack:"w,omitempty"`
	Value   float64   `json:"value,omitempty" msgpack:"v,omitempty"`
	Detail  string    `json:"detail,omitempty" msgpack:"d,omitempty"`
}

// world is the read view steering rules get of their surroundings
type world struct {
	cfg    *Config
	player Player
	agents []*Agent
	grid   *SpatialGrid
	buf    []EntityRef
}

// MissionSetup is the static layout of a mission
type MissionSetup struct {
	Planets   []*Planet
	Player    Player
	Objective *Satellite // optional station the agents besiege
	Anchor    *Vec2      // spawn bearing origin; defaults to the first planet or the player
}

// Option configures a Mission
type Option func(*Mission)

// WithSeed makes the mission's random rolls reproducible
func WithSeed(seed uint64) Option {
	return func(m *Mission) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithLogger routes mission log lines to l
func WithLogger(l *log.Logger) Option {
	return func(m *Mission) {
		m.logger = l
	}
}

// WithAgentTypes replaces the built-in agent types
func WithAgentTypes(types AgentTypes) Option {
	return func(m *Mission) {
		m.types = types
	}
}

// Mission owns one gravity engine and everything that lives in it: the
// planets, the agents, clusters, projectiles and scrap, the director,
// the clock and the event list. It is not safe for concurrent use.
type Mission struct {
	cfg   Config
	types AgentTypes

	gravity   *GravityEngine
	planets   []*Planet
	player    Player
	objective *Satellite
	anchor    Vec2

	agents      []*Agent
	clusters    []*Cluster
	projectiles []*Projectile
	scrap       []*Scrap
	director    *Director

	rng         *rand.Rand
	now         float64
	tick        uint64
	nextID      uint64
	nextCluster int
	events      []Event
	tornDown    bool
	objLost     bool
	logger      *log.Logger

	world   world
	liveBuf []*Agent

	ScrapCollected int
	ShotsFired     int
}

// NewMission validates cfg and the setup and registers every body with a
// fresh gravity engine. The director's first wave starts after one
// intermission.
func NewMission(cfg Config, setup MissionSetup, opts ...Option) (*Mission, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if setup.Player == nil {
		return nil, fmt.Errorf("%w: mission needs a player", ErrInvalidConfig)
	}

	m := &Mission{
		cfg:       cfg,
		planets:   setup.Planets,
		player:    setup.Player,
		objective: setup.Objective,
		gravity:   NewGravityEngine(cfg.G),
		nextID:    1,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if m.logger == nil {
		m.logger = log.New(io.Discard, "", 0)
	}
	if m.types == nil {
		m.types = DefaultAgentTypes()
	}
	for _, name := range append([]string{cfg.BossType}, cfg.WaveTypes...) {
		if _, err := m.types.Get(name); err != nil {
			return nil, err
		}
	}

	switch {
	case setup.Anchor != nil:
		m.anchor = *setup.Anchor
	case len(m.planets) > 0:
		m.anchor = m.planets[0].Position()
	default:
		m.anchor = m.player.Position()
	}

	for _, p := range m.planets {
		m.gravity.RegisterInfluence(p)
		for _, s := range p.Satellites {
			if s.IsGravityInfluence() {
				m.gravity.RegisterInfluence(s)
			}
		}
	}
	if s, ok := m.player.(Subject); ok {
		m.gravity.RegisterSubject(s)
	}

	m.director = NewDirector(&m.cfg)
	m.world = world{cfg: &m.cfg, player: m.player, grid: NewSpatialGrid(cfg.SeparationRadius)}
	return m, nil
}

// Tick advances the mission by dt seconds. It is a no-op after Teardown.
func (m *Mission) Tick(dt float64) {
	if m.tornDown || dt <= 0 {
		return
	}
	m.events = m.events[:0]
	m.now += dt
	m.tick++

	for _, p := range m.planets {
		p.Update(dt)
	}
	m.gravity.Step()
	m.reapGravityKills()

	m.director.Retarget(m)

	m.world.agents = m.agents
	m.world.grid.Clear()
	for i, a := range m.agents {
		if a.alive {
			m.world.grid.Insert(a.Pos, EntityRef{Kind: KindAgent, Idx: i})
		}
	}

	roll := m.rng.Float64
	for _, a := range m.agents {
		if !a.alive {
			continue
		}
		target := m.resolveTarget(a)
		a.steer(dt, &m.world, target)
		if kind, on := a.updateAbilities(m.now); kind != "" {
			v := 0.0
			if on {
				v = 1
			}
			m.emit(Event{Kind: EventAbility, AgentID: a.ID, Pos: a.Pos, Value: v, Detail: string(kind)})
		}
		if shot, ok := a.shoot(m.now, m.agents, roll); ok {
			m.spawnProjectile(shot, true)
		}
	}

	for _, p := range m.projectiles {
		p.Update(dt)
	}

	m.director.Tick(m, dt)

	pp := m.player.Position()
	for _, s := range m.scrap {
		if s.Update(dt, pp) {
			m.gravity.DeregisterSubject(s)
			m.ScrapCollected++
			m.emit(Event{Kind: EventScrap, Pos: s.Pos, Value: float64(m.ScrapCollected)})
		}
	}

	m.compact()
}

// reapGravityKills removes agents that died hitting a surface during the
// gravity step
func (m *Mission) reapGravityKills() {
	for _, a := range m.agents {
		if a.alive && a.HP <= 0 {
			m.kill(a)
		}
	}
}

// resolveTarget turns an agent's handle into a live target, falling back
// to the player when the objective is gone
func (m *Mission) resolveTarget(a *Agent) Target {
	if a.TargetRef == TargetObjective {
		if m.objectiveValid() {
			return m.objective
		}
		a.TargetRef = TargetPlayer
	}
	return m.player
}

func (m *Mission) objectiveValid() bool {
	return m.objective != nil && m.objective.Alive()
}

func (m *Mission) newID() uint64 {
	id := m.nextID
	m.nextID++
	return id
}

// SpawnAgent places an agent of the named type outside any cluster
func (m *Mission) SpawnAgent(typeName string, pos Vec2) (*Agent, error) {
	t, err := m.types.Get(typeName)
	if err != nil {
		return nil, err
	}
	return m.spawnAgent(t, pos, 0), nil
}

func (m *Mission) spawnAgent(t *AgentType, pos Vec2, clusterID int) *Agent {
	facing := AngleBetween(m.player.Position(), pos)
	a := NewAgent(m.newID(), t, pos, facing, m.now, m.rng.Float64)
	a.ClusterID = clusterID
	m.agents = append(m.agents, a)
	m.gravity.RegisterSubject(a)
	if t.InfluenceMass > 0 {
		m.gravity.RegisterInfluence(a)
	}
	return a
}

func (m *Mission) addCluster(c *Cluster) {
	m.nextCluster++
	c.ID = m.nextCluster
	m.clusters = append(m.clusters, c)
}

func (m *Mission) cluster(id int) *Cluster {
	for _, c := range m.clusters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// kill removes an agent from play, credits its cluster and drops loot
func (m *Mission) kill(a *Agent) {
	if !a.alive {
		return
	}
	a.alive = false
	a.HP = 0
	m.gravity.DeregisterSubject(a)
	if a.Type.InfluenceMass > 0 {
		m.gravity.DeregisterInfluence(a)
	}
	if c := m.cluster(a.ClusterID); c != nil && c.NumEnemies > 0 {
		c.NumEnemies--
	}
	m.director.recordKill()
	m.emit(Event{Kind: EventKill, AgentID: a.ID, Pos: a.Pos, Wave: m.director.Wave})

	for i := m.rng.IntN(m.cfg.MaxLoot + 1); i > 0; i-- {
		off := Heading(m.rng.Float64() * 360).Scale(a.Type.Size/2 + m.rng.Float64()*20)
		s := NewScrap(m.newID(), a.Pos.Add(off))
		m.scrap = append(m.scrap, s)
		m.gravity.RegisterSubject(s)
	}
}

// slaughter removes every agent and cluster without loot or kill credit
func (m *Mission) slaughter() {
	for _, a := range m.agents {
		if !a.alive {
			continue
		}
		a.alive = false
		m.gravity.DeregisterSubject(a)
		if a.Type.InfluenceMass > 0 {
			m.gravity.DeregisterInfluence(a)
		}
	}
	clear(m.agents)
	m.agents = m.agents[:0]
	m.clusters = m.clusters[:0]
}

// nearestBody returns the closest planet or moon to p, or nil
func (m *Mission) nearestBody(p Vec2) Influence {
	var best Influence
	bestD := math.Inf(1)
	for _, pl := range m.planets {
		if d := Distance(p, pl.Position()); d < bestD {
			best, bestD = pl, d
		}
		for _, s := range pl.Satellites {
			if !s.IsGravityInfluence() {
				continue
			}
			if d := Distance(p, s.Position()); d < bestD {
				best, bestD = s, d
			}
		}
	}
	return best
}

// pushOut moves p radially out of any planet or moon it is within gap of
func (m *Mission) pushOut(p Vec2, gap float64) Vec2 {
	for _, in := range m.gravity.Influences() {
		if _, ok := in.(*Agent); ok {
			continue
		}
		c := in.Position()
		edge := in.VisualSize()/2 + gap
		d := Distance(p, c)
		if d >= edge {
			continue
		}
		dir := c.Towards(p)
		if dir.IsZero() {
			dir = Vec2{X: 1}
		}
		p = c.Add(dir.Scale(edge))
	}
	return p
}

func (m *Mission) spawnProjectile(s Shot, hostile bool) {
	m.projectiles = append(m.projectiles, &Projectile{
		ID:      m.newID(),
		OwnerID: s.OwnerID,
		Hostile: hostile,
		Pos:     s.Pos,
		Vel:     s.Vel,
		Angle:   s.Angle,
		Life:    s.Life,
		Damage:  s.Damage,
		alive:   true,
	})
	if hostile {
		m.ShotsFired++
		m.emit(Event{Kind: EventShot, AgentID: s.OwnerID, Pos: s.Pos, Value: s.Angle})
	}
}

// FirePlayer launches a player projectile along angle from the player's nose
func (m *Mission) FirePlayer(angle float64) {
	if m.tornDown || !m.player.Alive() {
		return
	}
	dir := Heading(angle)
	m.spawnProjectile(Shot{
		Pos:    m.player.Position().Add(dir.Scale(ShipRadius)),
		Vel:    dir.Scale(ShipProjSpeed).Add(m.player.Velocity()),
		Angle:  NormalizeDegrees(angle),
		Damage: ShipProjDamage,
		Life:   1.2,
	}, false)
}

// ApplyHits applies damage reported by a collision broad phase. Each
// projectile is consumed by its first hit; unknown IDs are ignored.
func (m *Mission) ApplyHits(hits []Hit) {
	if m.tornDown {
		return
	}
	for _, h := range hits {
		p := m.projectile(h.ProjectileID)
		if p == nil || !p.alive {
			continue
		}
		p.alive = false

		switch h.Victim {
		case VictimAgent:
			a := m.Agent(h.AgentID)
			if a == nil || !a.alive {
				continue
			}
			if a.TakeDamage(h.Damage) {
				m.kill(a)
			}
		case VictimPlayer:
			died := m.player.TakeDamage(h.Damage)
			m.emit(Event{Kind: EventPlayerHit, AgentID: p.OwnerID, Pos: p.Pos, Value: h.Damage})
			if died {
				m.emit(Event{Kind: EventPlayerDown, Pos: m.player.Position()})
				m.logf("player down at wave %d", m.director.Wave)
			}
		case VictimObjective:
			if !m.objectiveValid() {
				continue
			}
			m.emit(Event{Kind: EventObjectiveHit, Pos: p.Pos, Value: h.Damage})
			if m.objective.TakeDamage(h.Damage) && !m.objLost {
				m.objLost = true
				m.emit(Event{Kind: EventObjectiveLost, Pos: m.objective.Position()})
				m.logf("objective %s lost at wave %d", m.objective.Name, m.director.Wave)
			}
		}
	}
}

func (m *Mission) projectile(id uint64) *Projectile {
	for _, p := range m.projectiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Agent looks up a live or dying agent by ID
func (m *Mission) Agent(id uint64) *Agent {
	for _, a := range m.agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// compact drops dead entities at the end of the frame
func (m *Mission) compact() {
	agents := m.agents[:0]
	for _, a := range m.agents {
		if a.alive {
			agents = append(agents, a)
		}
	}
	clear(m.agents[len(agents):])
	m.agents = agents

	projectiles := m.projectiles[:0]
	for _, p := range m.projectiles {
		if p.alive {
			projectiles = append(projectiles, p)
		}
	}
	clear(m.projectiles[len(projectiles):])
	m.projectiles = projectiles

	scrap := m.scrap[:0]
	for _, s := range m.scrap {
		if s.alive {
			scrap = append(scrap, s)
		}
	}
	clear(m.scrap[len(scrap):])
	m.scrap = scrap
}

// Teardown ends the mission: the engine is reset, clusters and agents
// are dropped and later Tick calls do nothing
func (m *Mission) Teardown() {
	if m.tornDown {
		return
	}
	m.slaughter()
	m.projectiles = nil
	m.scrap = nil
	m.gravity.Reset()
	m.tornDown = true
	m.logf("mission torn down at wave %d after %.1fs", m.director.Wave, m.now)
}

func (m *Mission) emit(e Event) {
	m.events = append(m.events, e)
}

func (m *Mission) logf(format string, args ...any) {
	m.logger.Printf(format, args...)
}

// LiveAgents counts agents still in play
func (m *Mission) LiveAgents() int {
	n := 0
	for _, a := range m.agents {
		if a.alive {
			n++
		}
	}
	return n
}

func (m *Mission) Now() float64               { return m.now }
func (m *Mission) TickCount() uint64          { return m.tick }
func (m *Mission) TornDown() bool             { return m.tornDown }
func (m *Mission) Config() Config             { return m.cfg }
func (m *Mission) Agents() []*Agent           { return m.agents }
func (m *Mission) Player() Player             { return m.player }
func (m *Mission) Objective() *Satellite      { return m.objective }
func (m *Mission) Projectiles() []*Projectile { return m.projectiles }
func (m *Mission) Scrap() []*Scrap            { return m.scrap }
func (m *Mission) Clusters() []*Cluster       { return m.clusters }
func (m *Mission) Planets() []*Planet         { return m.planets }
func (m *Mission) Events() []Event            { return m.events }
func (m *Mission) Director() *Director        { return m.director }
func (m *Mission) Gravity() *GravityEngine    { return m.gravity }
