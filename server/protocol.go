package main

import (
	"encoding/json"

	"spacecombat/sim"
)

// Client -> Server message types
const (
	MsgList    = "list"    // list arenas
	MsgWatch   = "watch"   // spectate an arena
	MsgLeave   = "leave"   // stop spectating or piloting
	MsgCheck   = "check"   // check if an arena exists
	MsgLogin   = "login"   // operator login
	MsgAuth    = "auth"    // resume with a stored token
	MsgControl = "control" // operator command on an arena
	MsgPilot   = "pilot"   // operator takes the stick of an arena's ship
	MsgInput   = "input"   // pilot input
)

// Server -> Client message types
const (
	MsgArenas     = "arenas"
	MsgWatching   = "watching"
	MsgChecked    = "checked"
	MsgAuthOK     = "auth_ok"
	MsgControlOK  = "control_ok"
	MsgPilotOK    = "pilot_ok"
	MsgPilotOff   = "pilot_off"   // pilot detached, autopilot resumed
	MsgMissionEnd = "mission_end" // a mission finished; a new one starts shortly
	MsgError      = "error"
)

// Operator commands carried by ControlMsg
const (
	CmdPause  = "pause"
	CmdResume = "resume"
	CmdReset  = "reset" // restart the arena's mission with a fresh seed
	CmdNew    = "new"   // open a new arena
	CmdClose  = "close"
)

// Envelope wraps all outgoing text messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// Frame is the binary msgpack state broadcast to spectators
type Frame struct {
	Arena   string           `msgpack:"a"`
	Mission string           `msgpack:"m"`
	Paused  bool             `msgpack:"p,omitempty"`
	State   sim.MissionState `msgpack:"s"`
}

// PilotInput is sent by a pilot at up to 20Hz
type PilotInput struct {
	Turn   int  `json:"turn"` // -1, 0, +1
	Thrust bool `json:"thrust"`
	Fire   bool `json:"fire"`
}

// WatchMsg asks to spectate an arena
type WatchMsg struct {
	ID string `json:"id"`
}

// CheckMsg asks whether an arena exists
type CheckMsg struct {
	ID string `json:"id"`
}

// CheckedMsg is the response to a check
type CheckedMsg struct {
	ID     string `json:"id"`
	Exists bool   `json:"exists"`
	Name   string `json:"name,omitempty"`
	Wave   int    `json:"wave,omitempty"`
}

// LoginMsg carries operator credentials
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg resumes an operator session
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms an operator session
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// ControlMsg is an operator command. ID is empty for CmdNew.
type ControlMsg struct {
	ID   string `json:"id"`
	Cmd  string `json:"cmd"`
	Name string `json:"name,omitempty"`
	Seed uint64 `json:"seed,omitempty"`
}

// ControlOKMsg acknowledges a command
type ControlOKMsg struct {
	ID  string `json:"id"`
	Cmd string `json:"cmd"`
}

// PilotMsg asks to take over an arena's ship
type PilotMsg struct {
	ID string `json:"id"`
}

// ArenaInfo is used in the arena list
type ArenaInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Mission    string `json:"mission"`
	Wave       int    `json:"wave"`
	Stage      int    `json:"stage"`
	Agents     int    `json:"agents"`
	Spectators int    `json:"spectators"`
	Piloted    bool   `json:"piloted"`
	Paused     bool   `json:"paused"`
}

// MissionEndMsg is broadcast when a mission finishes
type MissionEndMsg struct {
	Arena   string `json:"arena"`
	Mission string `json:"mission"`
	Reason  string `json:"reason"`
	Waves   int    `json:"waves"`
	Kills   int    `json:"kills"`
	Scrap   int    `json:"scrap"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
