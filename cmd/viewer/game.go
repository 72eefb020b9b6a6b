package main

import (
	"fmt"
	"image/color"
	"log"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"spacecombat/sim"
)

const (
	screenWidth  = 1280
	screenHeight = 800
	minZoom      = 0.05
	maxZoom      = 1.5
)

var (
	colBackground = color.RGBA{R: 6, G: 8, B: 18, A: 255}
	colPlanet     = color.RGBA{R: 70, G: 90, B: 150, A: 255}
	colMoon       = color.RGBA{R: 120, G: 120, B: 130, A: 255}
	colStation    = color.RGBA{R: 80, G: 220, B: 140, A: 255}
	colShip       = color.RGBA{R: 240, G: 240, B: 255, A: 255}
	colAgent      = color.RGBA{R: 230, G: 80, B: 60, A: 255}
	colBurst      = color.RGBA{R: 255, G: 200, B: 60, A: 255}
	colBoss       = color.RGBA{R: 200, G: 60, B: 220, A: 255}
	colShield     = color.RGBA{R: 90, G: 180, B: 255, A: 160}
	colShotPlayer = color.RGBA{R: 160, G: 230, B: 255, A: 255}
	colShotAgent  = color.RGBA{R: 255, G: 120, B: 80, A: 255}
	colScrap      = color.RGBA{R: 220, G: 190, B: 90, A: 255}
	colScrapTrail = color.RGBA{R: 220, G: 190, B: 90, A: 70}
	colCluster    = color.RGBA{R: 255, G: 80, B: 80, A: 140}
	colOrbit      = color.RGBA{R: 40, G: 50, B: 80, A: 255}
)

// Game runs one mission in-process and draws it
type Game struct {
	cfg   sim.Config
	types sim.AgentTypes
	seed  uint64

	mission *sim.Mission
	ship    *sim.Ship
	bp      *sim.BroadPhase
	zoom    float64
	paused  bool
	over    string
}

// NewGame creates a viewer with its first mission
func NewGame(cfg sim.Config, types sim.AgentTypes, seed uint64) (*Game, error) {
	g := &Game{cfg: cfg, types: types, bp: sim.NewBroadPhase(), zoom: 0.35}
	if err := g.start(seed); err != nil {
		return nil, err
	}
	return g, nil
}

// start builds the star system and a fresh mission
func (g *Game) start(seed uint64) error {
	planet := sim.NewPlanet("tethys", "rock", sim.Vec2{}, 5e4, 300)
	station := planet.AddSatellite(sim.NewStation("beacon", 850, 0.05, 0, 40, 800))
	planet.AddSatellite(sim.NewMoon("pan", 2400, 0.035, 2.5, 2e4, 80))
	ship := sim.NewShip(sim.Vec2{X: 1300})

	m, err := sim.NewMission(g.cfg, sim.MissionSetup{
		Planets:   []*sim.Planet{planet},
		Player:    ship,
		Objective: station,
	}, sim.WithSeed(seed), sim.WithAgentTypes(g.types), sim.WithLogger(log.Default()))
	if err != nil {
		return err
	}
	g.seed, g.mission, g.ship, g.over = seed, m, ship, ""
	return nil
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.start(g.seed + 1); err != nil {
			return err
		}
	}
	if ebiten.IsKeyPressed(ebiten.KeyEqual) || ebiten.IsKeyPressed(ebiten.KeyKPAdd) {
		g.zoom = sim.Clamp(g.zoom*1.02, minZoom, maxZoom)
	}
	if ebiten.IsKeyPressed(ebiten.KeyMinus) || ebiten.IsKeyPressed(ebiten.KeyKPSubtract) {
		g.zoom = sim.Clamp(g.zoom/1.02, minZoom, maxZoom)
	}
	if g.paused || g.over != "" {
		return nil
	}

	var in sim.ShipInput
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) || ebiten.IsKeyPressed(ebiten.KeyA) {
		in.Turn++
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) || ebiten.IsKeyPressed(ebiten.KeyD) {
		in.Turn--
	}
	in.Throttle = ebiten.IsKeyPressed(ebiten.KeyArrowUp) || ebiten.IsKeyPressed(ebiten.KeyW)
	in.Fire = ebiten.IsKeyPressed(ebiten.KeySpace)

	dt := 1 / float64(ebiten.TPS())
	g.ship.Input = in
	g.ship.Update(dt)
	if g.ship.CanFire() {
		g.mission.FirePlayer(g.ship.Angle())
		g.ship.FireCD = sim.ShipFireCooldown
	}
	g.mission.Tick(dt)
	g.mission.ApplyHits(g.bp.DetectHits(g.mission))

	switch {
	case !g.ship.Alive():
		g.over = "ship destroyed"
	case !g.mission.Objective().Alive():
		g.over = "station lost"
	}
	if g.over != "" {
		g.mission.Teardown()
	}
	return nil
}

// toScreen maps world coordinates to the screen, centred on the ship with y up
func (g *Game) toScreen(p sim.Vec2) (float32, float32) {
	c := g.ship.Position()
	x := (p.X-c.X)*g.zoom + screenWidth/2
	y := -(p.Y-c.Y)*g.zoom + screenHeight/2
	return float32(x), float32(y)
}

func (g *Game) scaled(r float64) float32 {
	return float32(math.Max(r*g.zoom, 1.5))
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colBackground)
	st := g.mission.Snapshot()

	for _, p := range g.mission.Planets() {
		px, py := g.toScreen(p.Center)
		for _, s := range p.Satellites {
			vector.StrokeCircle(screen, px, py, float32(s.OrbitRadius*g.zoom), 1, colOrbit, true)
			sx, sy := g.toScreen(s.Position())
			col := colMoon
			if s.Kind == sim.KindStation {
				col = colStation
				if !s.Alive() {
					col = colOrbit
				}
			}
			vector.FillCircle(screen, sx, sy, g.scaled(s.PhysRadius), col, true)
		}
		vector.FillCircle(screen, px, py, g.scaled(p.PhysRadius), colPlanet, true)
	}

	for _, c := range st.Clusters {
		cx, cy := g.toScreen(sim.Vec2{X: c.X, Y: c.Y})
		vector.StrokeCircle(screen, cx, cy, 6+float32(c.Enemies), 1.5, colCluster, true)
	}

	ox, oy := g.toScreen(g.ship.Position())
	for _, s := range st.Scrap {
		sx, sy := g.toScreen(sim.Vec2{X: s.X, Y: s.Y})
		vector.FillCircle(screen, sx, sy, g.scaled(s.Size/2), colScrap, false)
		if s.Homing {
			vector.StrokeLine(screen, sx, sy, ox, oy, 1, colScrapTrail, false)
		}
	}

	for _, a := range st.Agents {
		pos := sim.Vec2{X: a.X, Y: a.Y}
		ax, ay := g.toScreen(pos)
		col := colAgent
		switch {
		case a.Boss:
			col = colBoss
		case a.Fire == "burst":
			col = colBurst
		}
		if a.Cloaked {
			col.A = 60
		}
		r := g.scaled(a.MaxHP / 4)
		vector.FillCircle(screen, ax, ay, r, col, true)
		nx, ny := g.toScreen(sim.Polar(pos, a.Angle, 40))
		vector.StrokeLine(screen, ax, ay, nx, ny, 1.5, col, true)
		if a.Shield > 0 {
			vector.StrokeCircle(screen, ax, ay, r+3, 1.5, colShield, true)
		}
	}

	for _, p := range st.Projectiles {
		px, py := g.toScreen(sim.Vec2{X: p.X, Y: p.Y})
		col := colShotPlayer
		if p.Hostile {
			col = colShotAgent
		}
		vector.FillCircle(screen, px, py, 2, col, false)
	}

	if g.ship.Alive() {
		sx, sy := g.toScreen(g.ship.Position())
		vector.FillCircle(screen, sx, sy, g.scaled(sim.ShipRadius), colShip, true)
		nx, ny := g.toScreen(sim.Polar(g.ship.Position(), g.ship.Angle(), sim.ShipRadius*2))
		vector.StrokeLine(screen, sx, sy, nx, ny, 2, colShip, true)
	}

	g.drawHUD(screen, st)
}

func (g *Game) drawHUD(screen *ebiten.Image, st sim.MissionState) {
	d := st.Director
	station := ""
	if obj := g.mission.Objective(); obj != nil {
		station = fmt.Sprintf("  station %.0f/%.0f", obj.HP, obj.MaxHP)
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf(
		"wave %d  stage %d  %s  difficulty %.2f  next %d\nagents %d  kills %d  scrap %d\nhull %.0f%s",
		d.Wave, d.Stage, d.Phase, d.Difficulty, d.NextSize,
		len(st.Agents), d.Kills, st.Collected,
		st.Player.HP, station,
	), 10, 10)
	ebitenutil.DebugPrintAt(screen, "arrows/WASD fly  space fire  +/- zoom  P pause  R restart  esc quit", 10, screenHeight-20)

	switch {
	case g.over != "":
		ebitenutil.DebugPrintAt(screen, g.over+" - press R", screenWidth/2-70, screenHeight/2-40)
	case g.paused:
		ebitenutil.DebugPrintAt(screen, "paused", screenWidth/2-20, screenHeight/2-40)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}
