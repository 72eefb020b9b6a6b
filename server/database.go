package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"spacecombat/sim"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// OperatorRow represents an operator account
type OperatorRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// MissionRow represents one mission run in an arena
type MissionRow struct {
	ID        string  `json:"id"`
	Arena     string  `json:"arena"`
	Seed      uint64  `json:"seed"`
	StartedAt string  `json:"started_at"`
	EndedAt   string  `json:"ended_at,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Waves     int     `json:"waves"`
	Kills     int     `json:"kills"`
	Scrap     int     `json:"scrap"`
	Shots     int     `json:"shots"`
	Duration  float64 `json:"duration"`
}

// WaveRow is a finished wave of a mission
type WaveRow struct {
	MissionID string `json:"mission"`
	sim.WaveRecord
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operators (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS missions (
		id TEXT PRIMARY KEY,
		arena TEXT NOT NULL,
		seed INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		waves INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		scrap INTEGER NOT NULL DEFAULT 0,
		shots INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS waves (
		mission_id TEXT NOT NULL REFERENCES missions(id),
		wave INTEGER NOT NULL,
		stage INTEGER NOT NULL,
		size INTEGER NOT NULL,
		boss INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		elapsed REAL NOT NULL DEFAULT 0,
		health_lost REAL NOT NULL DEFAULT 0,
		difficulty REAL NOT NULL DEFAULT 1,
		PRIMARY KEY (mission_id, wave)
	);

	CREATE TABLE IF NOT EXISTS mission_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mission_id TEXT NOT NULL REFERENCES missions(id),
		kind TEXT NOT NULL,
		agent_id INTEGER NOT NULL DEFAULT 0,
		wave INTEGER NOT NULL DEFAULT 0,
		value REAL NOT NULL DEFAULT 0,
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		detail TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_missions_arena ON missions(arena);
	CREATE INDEX IF NOT EXISTS idx_mission_events_mission ON mission_events(mission_id);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// GetSetting returns a stored setting, or "" if absent
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetSetting stores a setting, replacing any previous value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// CreateOperator creates an operator account (returns its ID)
func (db *DB) CreateOperator(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO operators (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SetOperatorPassword replaces an operator's password hash
func (db *DB) SetOperatorPassword(username, passHash string) error {
	_, err := db.conn.Exec("UPDATE operators SET pass_hash = ? WHERE username = ?", passHash, username)
	return err
}

// GetOperatorByUsername returns an operator by username, or nil
func (db *DB) GetOperatorByUsername(username string) (*OperatorRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM operators WHERE username = ?",
		username,
	)
	o := &OperatorRow{}
	err := row.Scan(&o.ID, &o.Username, &o.PassHash, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// ListMissions returns the most recent missions, newest first. An empty
// arena lists every arena.
func (db *DB) ListMissions(arena string, limit int) ([]MissionRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, arena, seed, started_at, ended_at, reason, waves, kills, scrap, shots, duration
		FROM missions
		WHERE ? = '' OR arena = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`,
		arena, arena, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []MissionRow{}
	for rows.Next() {
		var r MissionRow
		var seed int64
		if err := rows.Scan(&r.ID, &r.Arena, &seed, &r.StartedAt, &r.EndedAt, &r.Reason, &r.Waves, &r.Kills, &r.Scrap, &r.Shots, &r.Duration); err != nil {
			return nil, err
		}
		r.Seed = uint64(seed)
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetMission returns one mission, or nil
func (db *DB) GetMission(id string) (*MissionRow, error) {
	row := db.conn.QueryRow(`
		SELECT id, arena, seed, started_at, ended_at, reason, waves, kills, scrap, shots, duration
		FROM missions WHERE id = ?`, id)
	r := &MissionRow{}
	var seed int64
	err := row.Scan(&r.ID, &r.Arena, &seed, &r.StartedAt, &r.EndedAt, &r.Reason, &r.Waves, &r.Kills, &r.Scrap, &r.Shots, &r.Duration)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	r.Seed = uint64(seed)
	return r, err
}

// ListWaves returns a mission's finished waves in order
func (db *DB) ListWaves(missionID string) ([]WaveRow, error) {
	rows, err := db.conn.Query(`
		SELECT wave, stage, size, boss, kills, elapsed, health_lost, difficulty
		FROM waves WHERE mission_id = ? ORDER BY wave`,
		missionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []WaveRow{}
	for rows.Next() {
		w := WaveRow{MissionID: missionID}
		if err := rows.Scan(&w.Wave, &w.Stage, &w.Size, &w.Boss, &w.Kills, &w.Elapsed, &w.HealthLost, &w.Difficulty); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// EventCounts returns how many of each event kind a mission logged
func (db *DB) EventCounts(missionID string) (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT kind, COUNT(*) FROM mission_events
		WHERE mission_id = ?
		GROUP BY kind ORDER BY COUNT(*) DESC`,
		missionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			continue
		}
		result[kind] = count
	}
	return result, rows.Err()
}
