package main

import (
	"encoding/binary"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

const (
	maxArenas    = 32
	maxArenaName = 30
)

var ErrTooManyArenas = errors.New("too many active arenas")

// ArenaManager handles creation and lookup of arenas
type ArenaManager struct {
	mu       sync.RWMutex
	arenas   map[string]*Arena
	order    []string // creation order, for stable listings
	defaults ArenaDefaults
}

// NewArenaManager creates an ArenaManager whose arenas share d
func NewArenaManager(d ArenaDefaults) *ArenaManager {
	return &ArenaManager{
		arenas:   make(map[string]*Arena),
		defaults: d,
	}
}

// Create opens a new arena and starts its loop. A zero seed is derived
// from the arena's ID.
func (am *ArenaManager) Create(name string, seed uint64) (*Arena, error) {
	am.mu.Lock()
	defer am.mu.Unlock()

	if len(am.arenas) >= maxArenas {
		return nil, ErrTooManyArenas
	}
	if name == "" {
		name = "Arena"
	}
	if len(name) > maxArenaName {
		name = name[:maxArenaName]
	}

	id := uuid.New()
	if seed == 0 {
		seed = binary.BigEndian.Uint64(id[:8])
	}
	a, err := NewArena(id.String(), name, seed, am.defaults)
	if err != nil {
		return nil, err
	}
	am.arenas[a.ID] = a
	am.order = append(am.order, a.ID)
	go a.Run()
	return a, nil
}

// Get returns an arena by ID
func (am *ArenaManager) Get(id string) *Arena {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.arenas[id]
}

// Remove stops and forgets an arena
func (am *ArenaManager) Remove(id string) bool {
	am.mu.Lock()
	a, ok := am.arenas[id]
	if ok {
		delete(am.arenas, id)
		for i, oid := range am.order {
			if oid == id {
				am.order = append(am.order[:i], am.order[i+1:]...)
				break
			}
		}
	}
	am.mu.Unlock()
	if !ok {
		return false
	}
	a.Stop()
	if am.defaults.Metrics != nil {
		am.defaults.Metrics.Forget(id)
	}
	return true
}

// List returns info about all arenas in creation order
func (am *ArenaManager) List() []ArenaInfo {
	am.mu.RLock()
	arenas := make([]*Arena, 0, len(am.order))
	for _, id := range am.order {
		arenas = append(arenas, am.arenas[id])
	}
	am.mu.RUnlock()

	list := make([]ArenaInfo, 0, len(arenas))
	for _, a := range arenas {
		list = append(list, a.Info())
	}
	return list
}

// Count returns the number of open arenas
func (am *ArenaManager) Count() int {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return len(am.arenas)
}

// StopAll stops every arena, closing their missions in the ledger
func (am *ArenaManager) StopAll() {
	am.mu.Lock()
	ids := make([]string, 0, len(am.arenas))
	for id := range am.arenas {
		ids = append(ids, id)
	}
	am.mu.Unlock()

	sort.Strings(ids)
	for _, id := range ids {
		am.Remove(id)
	}
}
