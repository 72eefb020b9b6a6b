package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"spacecombat/sim"
)

const operatorName = "operator"

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "spacecombat.db", "SQLite ledger path")
	agentsPath := flag.String("agents", "", "Agent type roster (JSON array, default: built-in)")
	configPath := flag.String("config", "", "Mission config overlay (JSON, default: built-in)")
	operatorPass := flag.String("operator-pass", os.Getenv("SPACECOMBAT_OPERATOR_PASS"), "Operator password (empty disables operator login)")
	numArenas := flag.Int("arenas", 1, "Arenas to open at startup")
	publicURL := flag.String("public-url", "", "Externally visible base URL for spectator links")
	flag.Parse()

	cfg, types, err := loadSimConfig(*configPath, *agentsPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ledger := NewLedger(db)
	metrics := NewMetricsCollector()
	arenas := NewArenaManager(ArenaDefaults{Config: cfg, Types: types, Ledger: ledger, Metrics: metrics})

	hub := NewHub(db, arenas, metrics)
	if *operatorPass != "" {
		if err := hub.auth.EnsureOperator(operatorName, *operatorPass); err != nil {
			log.Fatalf("operator: %v", err)
		}
		log.Printf("Operator login enabled for %q", operatorName)
	}
	go hub.Run()

	for i := 0; i < *numArenas; i++ {
		a, err := arenas.Create(fmt.Sprintf("Arena %d", i+1), 0)
		if err != nil {
			log.Fatalf("create arena: %v", err)
		}
		log.Printf("Arena %s open (%s)", a.ID, a.Name)
	}

	mux := SetupRoutes(hub, *publicURL)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	arenas.StopAll()
	ledger.Stop()
}

// loadSimConfig reads the optional mission config and agent roster
func loadSimConfig(configPath, agentsPath string) (sim.Config, sim.AgentTypes, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = sim.LoadConfig(configPath); err != nil {
			return cfg, nil, err
		}
	}

	types := sim.DefaultAgentTypes()
	if agentsPath != "" {
		f, err := os.Open(agentsPath)
		if err != nil {
			return cfg, nil, err
		}
		defer f.Close()
		if types, err = sim.LoadAgentTypes(f); err != nil {
			return cfg, nil, fmt.Errorf("%s: %w", agentsPath, err)
		}
	}
	return cfg, types, nil
}
