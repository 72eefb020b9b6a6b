package main

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"spacecombat/sim"
)

const (
	TickRate       = 60 // simulation ticks per second
	BroadcastRate  = 30 // state broadcasts per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate

	restartTicks       = 3 * TickRate // pause between a finished mission and the next
	maxSpectatorsArena = 64
)

// Mission end reasons
const (
	ReasonPlayerDown    = "player_down"
	ReasonObjectiveLost = "objective_lost"
	ReasonReset         = "reset"
	ReasonClosed        = "closed"
)

var (
	ErrArenaFull   = errors.New("arena full")
	ErrPiloted     = errors.New("arena already has a pilot")
	ErrNotPilot    = errors.New("not the pilot")
	ErrArenaClosed = errors.New("arena closed")
)

// Broadcaster is anything that can receive arena traffic
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// ArenaDefaults is what every new arena is built from
type ArenaDefaults struct {
	Config  sim.Config
	Types   sim.AgentTypes
	Ledger  *Ledger
	Metrics *MetricsCollector
}

// Arena runs one mission after another on its own ticker and streams the
// state to its spectators
type Arena struct {
	mu   sync.RWMutex
	ID   string
	Name string

	defaults ArenaDefaults
	seed     uint64

	missionID string
	mission   *sim.Mission
	ship      *sim.Ship
	bp        *sim.BroadPhase
	auto      Autopilot
	waves     int // wave records already written to the ledger

	spectators map[Broadcaster]bool
	pilot      Broadcaster
	pilotInput sim.ShipInput

	tick      uint64
	paused    bool
	restartIn int
	running   bool
	closed    bool
	stop      chan struct{}
}

// NewArena creates an arena and its first mission. The arena does not
// tick until Run is called.
func NewArena(id, name string, seed uint64, d ArenaDefaults) (*Arena, error) {
	a := &Arena{
		ID:         id,
		Name:       name,
		defaults:   d,
		seed:       seed,
		bp:         sim.NewBroadPhase(),
		spectators: make(map[Broadcaster]bool),
		stop:       make(chan struct{}),
	}
	if err := a.newMission(seed); err != nil {
		return nil, err
	}
	return a, nil
}

// newScenario builds the arena's star system: one planet with an orbiting
// relay station to defend and a moon further out
func newScenario() (sim.MissionSetup, *sim.Ship) {
	planet := sim.NewPlanet("kepler", "gas", sim.Vec2{}, 6e4, 320)
	station := planet.AddSatellite(sim.NewStation("relay", 900, 0.06, 0, 40, 800))
	planet.AddSatellite(sim.NewMoon("nix", 2600, 0.03, 2, 2e4, 90))
	ship := sim.NewShip(sim.Vec2{X: 1400})
	return sim.MissionSetup{
		Planets:   []*sim.Planet{planet},
		Player:    ship,
		Objective: station,
	}, ship
}

// newMission replaces the current mission. Callers hold a.mu or own a.
func (a *Arena) newMission(seed uint64) error {
	setup, ship := newScenario()
	opts := []sim.Option{sim.WithSeed(seed), sim.WithLogger(log.Default())}
	if a.defaults.Types != nil {
		opts = append(opts, sim.WithAgentTypes(a.defaults.Types))
	}
	m, err := sim.NewMission(a.defaults.Config, setup, opts...)
	if err != nil {
		return err
	}

	a.seed = seed
	a.mission = m
	a.ship = ship
	a.missionID = uuid.NewString()
	a.waves = 0
	a.restartIn = 0
	a.defaults.Ledger.StartMission(a.missionID, a.ID, seed)
	log.Printf("arena %s: mission %s started (seed %d)", a.ID, a.missionID, seed)
	return nil
}

// Run starts the arena loop
func (a *Arena) Run() {
	a.mu.Lock()
	if a.running || a.closed {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.update()
		case <-a.stop:
			return
		}
	}
}

// Stop ends the current mission and terminates the loop
func (a *Arena) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	if a.restartIn == 0 {
		a.finish(ReasonClosed)
	}
	close(a.stop)
}

// update runs one arena tick
func (a *Arena) update() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.step(1.0 / float64(TickRate))
}

// step advances the arena by dt. Callers hold a.mu.
func (a *Arena) step(dt float64) {
	if a.closed {
		return
	}
	a.tick++

	switch {
	case a.paused:
	case a.restartIn > 0:
		a.restartIn--
		if a.restartIn == 0 {
			if err := a.newMission(a.seed + 1); err != nil {
				log.Printf("arena %s: restart failed: %v", a.ID, err)
			}
		}
	default:
		a.simulate(dt)
	}

	if a.tick%BroadcastEvery == 0 {
		a.broadcastState()
	}
}

// simulate flies the ship, ticks the mission and resolves hits
func (a *Arena) simulate(dt float64) {
	start := time.Now()
	m, ship := a.mission, a.ship

	if a.pilot != nil {
		ship.Input = a.pilotInput
	} else {
		ship.Input = a.auto.Decide(m, ship)
	}
	ship.Update(dt)
	if ship.CanFire() {
		m.FirePlayer(ship.Angle())
		ship.FireCD = sim.ShipFireCooldown
	}

	m.Tick(dt)
	m.ApplyHits(a.bp.DetectHits(m))

	a.record()
	if a.defaults.Metrics != nil {
		a.defaults.Metrics.RecordTick(a.ID, time.Since(start), m)
	}

	switch {
	case !ship.Alive():
		a.finish(ReasonPlayerDown)
	case m.Objective() != nil && !m.Objective().Alive():
		a.finish(ReasonObjectiveLost)
	}
}

// record forwards this tick's events and any newly finished waves to the ledger
func (a *Arena) record() {
	m := a.mission
	for _, ev := range m.Events() {
		switch ev.Kind {
		case sim.EventShot, sim.EventPlayerHit, sim.EventObjectiveHit:
			continue
		case sim.EventWaveStart:
			log.Printf("arena %s: wave %d started with %.0f agents", a.ID, ev.Wave, ev.Value)
		}
		a.defaults.Ledger.TrackEvent(a.missionID, ev)
	}

	history := m.Director().History
	for ; a.waves < len(history); a.waves++ {
		rec := history[a.waves]
		a.defaults.Ledger.RecordWave(a.missionID, rec)
		log.Printf("arena %s: wave %d cleared in %.1fs", a.ID, rec.Wave, rec.Elapsed)
	}
}

// finish tears the mission down, writes its outcome and schedules the next one
func (a *Arena) finish(reason string) {
	m := a.mission
	d := m.Director()
	sum := MissionSummary{
		Reason:   reason,
		Waves:    len(d.History),
		Kills:    d.Kills,
		Scrap:    m.ScrapCollected,
		Shots:    m.ShotsFired,
		Duration: m.Now(),
	}
	m.Teardown()
	a.defaults.Ledger.FinishMission(a.missionID, sum)
	if a.defaults.Metrics != nil {
		a.defaults.Metrics.RecordMissionEnd(reason)
	}
	log.Printf("arena %s: mission %s ended (%s) after %d waves", a.ID, a.missionID, reason, sum.Waves)

	a.broadcastMsg(Envelope{T: MsgMissionEnd, Data: MissionEndMsg{
		Arena:   a.ID,
		Mission: a.missionID,
		Reason:  reason,
		Waves:   sum.Waves,
		Kills:   sum.Kills,
		Scrap:   sum.Scrap,
	}})
	a.restartIn = restartTicks
}

// Reset ends the current mission and starts a new one right away. A zero
// seed continues from the current one.
func (a *Arena) Reset(seed uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrArenaClosed
	}
	if a.restartIn == 0 {
		a.finish(ReasonReset)
	}
	if seed == 0 {
		seed = a.seed + 1
	}
	return a.newMission(seed)
}

// SetPaused freezes or resumes the simulation; spectators keep receiving frames
func (a *Arena) SetPaused(p bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = p
}

// AddSpectator subscribes b to the arena's frames
func (a *Arena) AddSpectator(b Broadcaster) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrArenaClosed
	}
	if !a.spectators[b] && len(a.spectators) >= maxSpectatorsArena {
		return ErrArenaFull
	}
	a.spectators[b] = true
	a.reportSpectators()
	return nil
}

// RemoveSpectator unsubscribes b and releases the stick if it held it
func (a *Arena) RemoveSpectator(b Broadcaster) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.spectators, b)
	if a.pilot == b {
		a.pilot = nil
		a.pilotInput = sim.ShipInput{}
	}
	a.reportSpectators()
}

func (a *Arena) reportSpectators() {
	if a.defaults.Metrics != nil {
		a.defaults.Metrics.SetSpectators(a.ID, len(a.spectators))
	}
}

// SetPilot hands the ship to b. The autopilot resumes when the pilot leaves.
func (a *Arena) SetPilot(b Broadcaster) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrArenaClosed
	}
	if a.pilot != nil && a.pilot != b {
		return ErrPiloted
	}
	a.pilot = b
	a.pilotInput = sim.ShipInput{}
	return nil
}

// ReleasePilot returns the ship to the autopilot
func (a *Arena) ReleasePilot(b Broadcaster) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pilot != b {
		return
	}
	a.pilot = nil
	a.pilotInput = sim.ShipInput{}
	a.broadcastMsg(Envelope{T: MsgPilotOff, Data: map[string]string{"id": a.ID}})
}

// HandleInput applies pilot input for the next tick
func (a *Arena) HandleInput(b Broadcaster, in PilotInput) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pilot != b {
		return ErrNotPilot
	}
	turn := in.Turn
	if turn > 1 {
		turn = 1
	} else if turn < -1 {
		turn = -1
	}
	a.pilotInput = sim.ShipInput{Turn: turn, Throttle: in.Thrust, Fire: in.Fire}
	return nil
}

// Info summarises the arena for listings
func (a *Arena) Info() ArenaInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	d := a.mission.Director()
	return ArenaInfo{
		ID:         a.ID,
		Name:       a.Name,
		Mission:    a.missionID,
		Wave:       d.Wave,
		Stage:      d.Stage,
		Agents:     a.mission.LiveAgents(),
		Spectators: len(a.spectators),
		Piloted:    a.pilot != nil,
		Paused:     a.paused,
	}
}

// MissionID returns the ID of the running mission
func (a *Arena) MissionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.missionID
}

// SpectatorCount returns the number of spectators
func (a *Arena) SpectatorCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.spectators)
}

// broadcastState sends the current frame to every spectator
func (a *Arena) broadcastState() {
	if len(a.spectators) == 0 {
		return
	}
	data, err := msgpack.Marshal(&Frame{
		Arena:   a.ID,
		Mission: a.missionID,
		Paused:  a.paused,
		State:   a.mission.Snapshot(),
	})
	if err != nil {
		log.Printf("arena %s: marshal frame: %v", a.ID, err)
		return
	}
	for b := range a.spectators {
		b.SendBinary(data)
	}
}

// broadcastMsg sends a text message to every spectator
func (a *Arena) broadcastMsg(msg Envelope) {
	for b := range a.spectators {
		b.SendJSON(msg)
	}
}
