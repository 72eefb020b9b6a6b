package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"spacecombat/sim"
)

func main() {
	seed := flag.Uint64("seed", 1, "Mission seed")
	agentsPath := flag.String("agents", "", "Agent type roster (JSON array, default: built-in)")
	configPath := flag.String("config", "", "Mission config overlay (JSON, default: built-in)")
	flag.Parse()

	cfg := sim.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = sim.LoadConfig(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	types := sim.DefaultAgentTypes()
	if *agentsPath != "" {
		f, err := os.Open(*agentsPath)
		if err != nil {
			log.Fatalf("agents: %v", err)
		}
		types, err = sim.LoadAgentTypes(f)
		f.Close()
		if err != nil {
			log.Fatalf("agents: %v", err)
		}
	}

	g, err := NewGame(cfg, types, *seed)
	if err != nil {
		log.Fatalf("mission: %v", err)
	}

	ebiten.SetWindowTitle("spacecombat")
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
