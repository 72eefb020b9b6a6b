package sim

import (
	"math"
	"sort"
)

// Phase is the director's place in the wave cycle
type Phase int

const (
	PhaseIntermission Phase = iota
	PhaseActive
)

func (p Phase) String() string {
	if p == PhaseActive {
		return "active"
	}
	return "intermission"
}

const (
	healthBlend  = 0.6  // weight of the health signal against pace
	difficultyK  = 0.25 // how far one wave can move difficulty
	arcSpacing   = 70.0 // spawn arc length per agent
	maxArcSpan   = 160.0
	spawnJitterA = 2.0 // degrees of per-agent angular jitter
)

// WaveFeedback is how the player fared in the wave that just ended
type WaveFeedback struct {
	HealthLost float64 // fraction of the health held at wave start, [0, 1]
	Elapsed    float64 // seconds
}

// WaveRecord is the history entry of a finished wave
type WaveRecord struct {
	Wave       int     `json:"wave" msgpack:"wave"`
	Stage      int     `json:"stage" msgpack:"stage"`
	Size       int     `json:"size" msgpack:"size"`
	Boss       bool    `json:"boss" msgpack:"boss"`
	Kills      int     `json:"kills" msgpack:"kills"`
	Elapsed    float64 `json:"elapsed" msgpack:"elapsed"`
	HealthLost float64 `json:"health_lost" msgpack:"health_lost"`
	Difficulty float64 `json:"difficulty" msgpack:"difficulty"`
}

// Director decides wave sizes, partitions waves into clusters, spawns
// them and assigns targets.
type Director struct {
	cfg *Config

	Wave       int
	Stage      int
	Difficulty float64
	AvgElapsed float64
	History    []WaveRecord
	BossWave   bool
	Phase      Phase
	Kills      int
	LastSize   int
	NextWaveAt float64

	samples     int
	nextSize    int
	waveStart   float64
	waveStartHP float64
	waveKills   int
	waveSize    int
}

// NewDirector creates a director whose first wave starts after one intermission
func NewDirector(cfg *Config) *Director {
	return &Director{
		cfg:        cfg,
		Stage:      1,
		Difficulty: 1,
		Phase:      PhaseIntermission,
		NextWaveAt: cfg.Intermission,
		nextSize:   cfg.StartingCount,
	}
}

// ComputeNextWaveSize blends player health loss and pace into the
// difficulty and returns the next wave's population. The result never
// drops below StartingCount or below the previous wave.
func (d *Director) ComputeNextWaveSize(fb WaveFeedback) int {
	health := 1 - 2*Clamp(fb.HealthLost, 0, 1) // +1 flawless, -1 wiped

	pace := 0.0
	if fb.Elapsed > 0 {
		if d.AvgElapsed > 0 {
			pace = Clamp(d.AvgElapsed/fb.Elapsed-1, -1, 1) // faster than usual is positive
		}
		d.AvgElapsed = (d.AvgElapsed*float64(d.samples) + fb.Elapsed) / float64(d.samples+1)
		d.samples++
	}

	signal := healthBlend*health + (1-healthBlend)*pace
	d.Difficulty = Clamp(d.Difficulty*(1+difficultyK*signal), d.cfg.MinDifficulty, d.cfg.MaxDifficulty)

	size := int(math.Round(float64(d.cfg.StartingCount) * d.Difficulty * (1 + d.cfg.WaveGrowth*float64(d.Wave))))
	if d.cfg.MaxWaveSize > 0 && size > d.cfg.MaxWaveSize {
		size = d.cfg.MaxWaveSize
	}
	size = max(size, d.cfg.StartingCount, d.LastSize)
	d.LastSize = size
	d.nextSize = size
	return size
}

// PartitionIntoClusters splits total into cluster sizes. It prefers the
// largest divisor within [ClusterMin, ClusterMax]; otherwise it takes the
// size leaving the smallest remainder and hands the remainder out one each
// to the first clusters. It always returns at least one cluster.
func (d *Director) PartitionIntoClusters(total int) []int {
	lo, hi := d.cfg.ClusterMin, d.cfg.ClusterMax
	if total < lo {
		return []int{max(total, 0)}
	}

	size := 0
	for s := hi; s >= lo; s-- {
		if total%s == 0 {
			size = s
			break
		}
	}
	if size == 0 {
		size = lo
		best := total % lo
		for s := lo + 1; s <= hi; s++ {
			if r := total % s; r < best {
				best, size = r, s
			}
		}
	}

	n := total / size
	out := make([]int, n)
	for i := range out {
		out[i] = size
	}
	for i := 0; i < total-n*size; i++ {
		out[i%n]++
	}
	return out
}

// Tick advances the wave cycle: intermission countdown, cluster travel
// and spawning, and wave completion.
func (d *Director) Tick(m *Mission, dt float64) {
	switch d.Phase {
	case PhaseIntermission:
		if m.now > d.NextWaveAt {
			d.startWave(m)
		}
	case PhaseActive:
		d.advanceClusters(m, dt)
		if d.cleared(m) {
			d.finishWave(m)
		}
	}
}

// Retarget sends the nearest agents after the player and the rest after
// the objective, falling back to the player when there is no objective.
func (d *Director) Retarget(m *Mission) {
	live := m.liveBuf[:0]
	for _, a := range m.agents {
		if a.alive {
			live = append(live, a)
		}
	}
	m.liveBuf = live

	pp := m.player.Position()
	sort.Slice(live, func(i, j int) bool {
		return live[i].Pos.Sub(pp).LenSq() < live[j].Pos.Sub(pp).LenSq()
	})
	objective := m.objectiveValid()
	for i, a := range live {
		if i < d.cfg.PlayerTargetCap || !objective {
			a.TargetRef = TargetPlayer
		} else {
			a.TargetRef = TargetObjective
		}
	}
}

func (d *Director) recordKill() {
	d.Kills++
	d.waveKills++
}

func (d *Director) startWave(m *Mission) {
	d.Wave++
	d.BossWave = d.Wave%d.cfg.BossEvery == 0
	d.Phase = PhaseActive
	d.waveStart = m.now
	d.waveStartHP = m.player.Health()
	d.waveKills = 0

	if d.BossWave {
		m.slaughter()
		d.waveSize = 1
		m.addCluster(&Cluster{
			Pos:        d.spawnPoint(m),
			Speed:      d.cfg.ClusterSpeed * 0.5,
			Objective:  m.objectiveValid(),
			TypeName:   d.cfg.BossType,
			Planned:    1,
			NumEnemies: 1,
			Boss:       true,
		})
		m.emit(Event{Kind: EventBoss, Wave: d.Wave})
		m.logf("wave %d: boss wave, stage %d", d.Wave, d.Stage)
		return
	}

	d.waveSize = d.nextSize
	d.LastSize = max(d.LastSize, d.nextSize)
	sizes := d.PartitionIntoClusters(d.waveSize)
	for _, n := range sizes {
		m.addCluster(&Cluster{
			Pos:        d.spawnPoint(m),
			Speed:      d.cfg.ClusterSpeed,
			Objective:  m.objectiveValid(),
			TypeName:   d.cfg.WaveTypes[m.rng.IntN(len(d.cfg.WaveTypes))],
			Planned:    n,
			NumEnemies: n,
		})
	}
	m.emit(Event{Kind: EventWaveStart, Wave: d.Wave, Value: float64(d.waveSize)})
	m.logf("wave %d: %d agents in %d clusters (difficulty %.2f)", d.Wave, d.waveSize, len(sizes), d.Difficulty)
}

// spawnPoint picks a cluster start several screen widths from the anchor,
// biased toward the objective's bearing when there is one
func (d *Director) spawnPoint(m *Mission) Vec2 {
	var bearing float64
	if m.objectiveValid() {
		bearing = AngleBetween(m.objective.Position(), m.anchor) + (m.rng.Float64()*2-1)*d.cfg.SpawnJitter
	} else {
		bearing = m.rng.Float64() * 360
	}
	dist := d.cfg.SpawnScreens * d.cfg.ScreenWidth * (1 + 0.25*m.rng.Float64())
	return Polar(m.anchor, bearing, dist)
}

func (d *Director) advanceClusters(m *Mission, dt float64) {
	sw := d.cfg.ScreenWidth
	pp := m.player.Position()
	for _, c := range m.clusters {
		if c.Spawned {
			continue
		}
		dest := pp
		if c.Objective && m.objectiveValid() {
			dest = m.objective.Position()
		}
		c.advance(dest, dt)
		if Distance(c.Pos, pp) <= sw || Distance(c.Pos, dest) <= sw {
			d.spawnCluster(m, c)
		}
	}
}

// spawnCluster instantiates a cluster's agents on an arc outside the
// nearest body and latches it
func (d *Director) spawnCluster(m *Mission, c *Cluster) {
	if c.Spawned {
		return
	}
	c.Spawned = true

	t, err := m.types.Get(c.TypeName)
	if err != nil {
		m.logf("cluster %d: %v", c.ID, err)
		c.NumEnemies = 0
		return
	}

	for _, p := range d.arc(m, c) {
		a := m.spawnAgent(t, p, c.ID)
		if c.Boss {
			a.Boss = true
			a.HP = t.Health * (1 + 0.5*float64(d.Stage-1))
		}
	}
}

func (d *Director) arc(m *Mission, c *Cluster) []Vec2 {
	n := c.Planned
	out := make([]Vec2, 0, n)
	gap := d.cfg.SpawnClearance

	center := c.Pos
	bearing := m.rng.Float64() * 360
	r := gap
	if body := m.nearestBody(c.Pos); body != nil {
		center = body.Position()
		bearing = AngleBetween(c.Pos, center)
		r = math.Max(Distance(c.Pos, center), body.VisualSize()/2+gap)
	}

	span := math.Min(float64(n)*arcSpacing/r*180/math.Pi, maxArcSpan)
	for i := 0; i < n; i++ {
		ang := bearing - span/2 + span*(float64(i)+0.5)/float64(n)
		ang += (m.rng.Float64()*2 - 1) * spawnJitterA
		rr := r + m.rng.Float64()*gap/2
		out = append(out, m.pushOut(Polar(center, ang, rr), gap))
	}
	return out
}

func (d *Director) cleared(m *Mission) bool {
	for _, c := range m.clusters {
		if !c.Spawned {
			return false
		}
	}
	return m.LiveAgents() == 0
}

func (d *Director) finishWave(m *Mission) {
	elapsed := m.now - d.waveStart
	lost := 1.0
	if d.waveStartHP > 0 {
		lost = (d.waveStartHP - m.player.Health()) / d.waveStartHP
	}
	lost = Clamp(lost, 0, 1)

	rec := WaveRecord{
		Wave:       d.Wave,
		Stage:      d.Stage,
		Size:       d.waveSize,
		Boss:       d.BossWave,
		Kills:      d.waveKills,
		Elapsed:    elapsed,
		HealthLost: lost,
	}
	d.ComputeNextWaveSize(WaveFeedback{HealthLost: lost, Elapsed: elapsed})
	rec.Difficulty = d.Difficulty
	d.History = append(d.History, rec)

	if d.BossWave {
		d.Stage++
	}
	d.Phase = PhaseIntermission
	d.NextWaveAt = m.now + d.cfg.Intermission
	m.clusters = m.clusters[:0]

	m.emit(Event{Kind: EventWaveCleared, Wave: rec.Wave, Value: elapsed})
	m.logf("wave %d cleared in %.1fs, next size %d", rec.Wave, elapsed, d.nextSize)
}

// PendingSize is the population of the next regular wave
func (d *Director) PendingSize() int { return d.nextSize }
