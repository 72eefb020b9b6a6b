package main

import (
	"log"
	"sync"
	"time"

	"spacecombat/sim"
)

const (
	ledgerQueueSize  = 1024
	ledgerBatchSize  = 50
	ledgerFlushEvery = 5 * time.Second
)

type entryKind int

const (
	entryStart entryKind = iota
	entryWave
	entryEvent
	entryFinish
)

// MissionSummary is the outcome written when a mission ends
type MissionSummary struct {
	Reason   string
	Waves    int
	Kills    int
	Scrap    int
	Shots    int
	Duration float64
}

type ledgerEntry struct {
	kind    entryKind
	mission string
	arena   string
	seed    uint64
	wave    sim.WaveRecord
	event   sim.Event
	summary MissionSummary
	at      time.Time
}

// Ledger persists mission history with batched background writes. Calls
// never block the arena loop for long: events are dropped when the queue
// is full, mission and wave rows wait for room.
type Ledger struct {
	db      *DB
	entries chan ledgerEntry
	stop    chan struct{}
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewLedger creates and starts the ledger background writer
func NewLedger(db *DB) *Ledger {
	l := &Ledger{
		db:      db,
		entries: make(chan ledgerEntry, ledgerQueueSize),
		stop:    make(chan struct{}),
	}
	l.wg.Add(1)
	go l.writer()
	return l
}

// StartMission records a new mission row
func (l *Ledger) StartMission(id, arena string, seed uint64) {
	l.enqueue(ledgerEntry{kind: entryStart, mission: id, arena: arena, seed: seed}, true)
}

// RecordWave records one finished wave
func (l *Ledger) RecordWave(mission string, rec sim.WaveRecord) {
	l.enqueue(ledgerEntry{kind: entryWave, mission: mission, wave: rec}, true)
}

// TrackEvent records a mission event
func (l *Ledger) TrackEvent(mission string, ev sim.Event) {
	l.enqueue(ledgerEntry{kind: entryEvent, mission: mission, event: ev}, false)
}

// FinishMission closes a mission row with its outcome
func (l *Ledger) FinishMission(mission string, sum MissionSummary) {
	l.enqueue(ledgerEntry{kind: entryFinish, mission: mission, summary: sum}, true)
}

func (l *Ledger) enqueue(e ledgerEntry, wait bool) {
	if l == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	e.at = time.Now().UTC()
	if wait {
		l.entries <- e
		return
	}
	select {
	case l.entries <- e:
	default:
		// queue full, drop the event rather than stall the arena
	}
}

// Stop flushes everything queued and shuts the writer down
func (l *Ledger) Stop() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()
	close(l.stop)
	l.wg.Wait()
}

func (l *Ledger) writer() {
	defer l.wg.Done()

	batch := make([]ledgerEntry, 0, 64)
	ticker := time.NewTicker(ledgerFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case e := <-l.entries:
			batch = append(batch, e)
			if len(batch) >= ledgerBatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-l.stop:
		drain:
			for {
				select {
				case e := <-l.entries:
					batch = append(batch, e)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				l.flush(batch)
			}
			return
		}
	}
}

// flush writes a batch in one transaction
func (l *Ledger) flush(batch []ledgerEntry) {
	if l.db == nil || len(batch) == 0 {
		return
	}
	tx, err := l.db.conn.Begin()
	if err != nil {
		log.Printf("ledger: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	for _, e := range batch {
		at := e.at.Format(time.RFC3339Nano)
		switch e.kind {
		case entryStart:
			_, err = tx.Exec(
				"INSERT OR IGNORE INTO missions (id, arena, seed, started_at) VALUES (?, ?, ?, ?)",
				e.mission, e.arena, int64(e.seed), at,
			)
		case entryWave:
			w := e.wave
			_, err = tx.Exec(
				`INSERT OR REPLACE INTO waves (mission_id, wave, stage, size, boss, kills, elapsed, health_lost, difficulty)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				e.mission, w.Wave, w.Stage, w.Size, w.Boss, w.Kills, w.Elapsed, w.HealthLost, w.Difficulty,
			)
		case entryEvent:
			ev := e.event
			_, err = tx.Exec(
				`INSERT INTO mission_events (mission_id, kind, agent_id, wave, value, x, y, detail, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				e.mission, string(ev.Kind), int64(ev.AgentID), ev.Wave, ev.Value, ev.Pos.X, ev.Pos.Y, ev.Detail, at,
			)
		case entryFinish:
			s := e.summary
			_, err = tx.Exec(
				`UPDATE missions SET ended_at = ?, reason = ?, waves = ?, kills = ?, scrap = ?, shots = ?, duration = ?
				 WHERE id = ?`,
				at, s.Reason, s.Waves, s.Kills, s.Scrap, s.Shots, s.Duration, e.mission,
			)
		}
		if err != nil {
			log.Printf("ledger: write error: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("ledger: commit error: %v", err)
	}
}
