package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"spacecombat/sim"
)

// ---------- helpers ----------

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

const testOperatorPass = "hunter22"

type testServer struct {
	srv    *httptest.Server
	wsURL  string
	hub    *Hub
	db     *DB
	ledger *Ledger
	arena  *Arena
}

// startTestServer spins up an httptest.Server with one open arena and an
// operator account
func startTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	cfg := sim.DefaultConfig()
	cfg.Intermission = 0.5

	ledger := NewLedger(db)
	metrics := NewMetricsCollector()
	arenas := NewArenaManager(ArenaDefaults{Config: cfg, Ledger: ledger, Metrics: metrics})
	hub := NewHub(db, arenas, metrics)
	if err := hub.auth.EnsureOperator(operatorName, testOperatorPass); err != nil {
		t.Fatalf("EnsureOperator: %v", err)
	}
	go hub.Run()

	a, err := arenas.Create("Test Arena", 11)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	srv := httptest.NewServer(SetupRoutes(hub, ""))
	ts := &testServer{
		srv:    srv,
		wsURL:  "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		hub:    hub,
		db:     db,
		ledger: ledger,
		arena:  a,
	}
	t.Cleanup(func() {
		srv.Close()
		arenas.StopAll()
		ledger.Stop()
		db.Close()
	})
	return ts
}

// dialWS opens a WebSocket connection to the test server.
func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// sendMsg sends a typed message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	raw, _ := json.Marshal(Envelope{T: msgType, Data: data})
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// readEnvelope reads JSON messages until one of type want arrives,
// skipping binary frames.
func readEnvelope(t *testing.T, conn *websocket.Conn, want string) InEnvelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read WS waiting for %s: %v", want, err)
		}
		if msgType == websocket.BinaryMessage {
			continue
		}
		var env InEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if env.T == want {
			return env
		}
		if env.T == MsgError && want != MsgError {
			t.Fatalf("server error while waiting for %s: %s", want, env.D)
		}
	}
}

// readFrame reads messages until a binary frame arrives
func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read WS waiting for frame: %v", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		var f Frame
		if err := msgpack.Unmarshal(raw, &f); err != nil {
			t.Fatalf("msgpack unmarshal: %v", err)
		}
		return f
	}
}

func loginWS(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	sendMsg(t, conn, MsgLogin, LoginMsg{Username: operatorName, Password: testOperatorPass})
	env := readEnvelope(t, conn, MsgAuthOK)
	var ok AuthOKMsg
	json.Unmarshal(env.D, &ok)
	if ok.Token == "" {
		t.Fatal("login returned no token")
	}
	return ok.Token
}

// ---------- tests ----------

func TestArenaIDsAreUUIDs(t *testing.T) {
	ts := startTestServer(t)
	if !uuidRegex.MatchString(ts.arena.ID) {
		t.Errorf("arena ID %q is not a v4 UUID", ts.arena.ID)
	}
	if !uuidRegex.MatchString(ts.arena.MissionID()) {
		t.Errorf("mission ID %q is not a v4 UUID", ts.arena.MissionID())
	}
}

func TestListArenas(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts.wsURL)

	sendMsg(t, conn, MsgList, nil)
	env := readEnvelope(t, conn, MsgArenas)
	var list []ArenaInfo
	if err := json.Unmarshal(env.D, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != ts.arena.ID || list[0].Name != "Test Arena" {
		t.Errorf("unexpected arena list %+v", list)
	}
}

func TestSpectatorReceivesMsgpackFrames(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts.wsURL)

	sendMsg(t, conn, MsgWatch, WatchMsg{ID: ts.arena.ID})
	readEnvelope(t, conn, MsgWatching)

	f1 := readFrame(t, conn)
	if f1.Arena != ts.arena.ID {
		t.Errorf("frame for wrong arena: %s", f1.Arena)
	}
	if !f1.State.Player.Alive || len(f1.State.Planets) != 1 {
		t.Errorf("unexpected first frame state %+v", f1.State.Player)
	}
	f2 := readFrame(t, conn)
	if f2.State.Tick <= f1.State.Tick {
		t.Errorf("frames should advance: %d then %d", f1.State.Tick, f2.State.Tick)
	}
	if ts.arena.SpectatorCount() != 1 {
		t.Errorf("expected 1 spectator, got %d", ts.arena.SpectatorCount())
	}

	sendMsg(t, conn, MsgCheck, CheckMsg{ID: ts.arena.ID})
	env := readEnvelope(t, conn, MsgChecked)
	var checked CheckedMsg
	json.Unmarshal(env.D, &checked)
	if !checked.Exists || checked.Name != "Test Arena" {
		t.Errorf("unexpected check result %+v", checked)
	}
}

func TestWatchViaQuery(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts.wsURL+"?watch="+ts.arena.ID)
	readEnvelope(t, conn, MsgWatching)
	if f := readFrame(t, conn); f.Arena != ts.arena.ID {
		t.Errorf("frame for wrong arena: %s", f.Arena)
	}
}

func TestWatchUnknownArena(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts.wsURL)
	sendMsg(t, conn, MsgWatch, WatchMsg{ID: "nope"})
	env := readEnvelope(t, conn, MsgError)
	if !strings.Contains(string(env.D), "arena not found") {
		t.Errorf("unexpected error %s", env.D)
	}
}

func TestControlRequiresOperator(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts.wsURL)

	sendMsg(t, conn, MsgControl, ControlMsg{ID: ts.arena.ID, Cmd: CmdPause})
	env := readEnvelope(t, conn, MsgError)
	if !strings.Contains(string(env.D), ErrNotOperator.Error()) {
		t.Errorf("unexpected error %s", env.D)
	}
	if ts.arena.Info().Paused {
		t.Fatal("spectator must not pause the arena")
	}

	sendMsg(t, conn, MsgPilot, PilotMsg{ID: ts.arena.ID})
	readEnvelope(t, conn, MsgError)
	if ts.arena.Info().Piloted {
		t.Fatal("spectator must not take the stick")
	}

	sendMsg(t, conn, MsgAuth, AuthMsg{Token: "garbage"})
	readEnvelope(t, conn, MsgError)
}

func TestOperatorControl(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts.wsURL)
	loginWS(t, conn)

	sendMsg(t, conn, MsgControl, ControlMsg{ID: ts.arena.ID, Cmd: CmdPause})
	readEnvelope(t, conn, MsgControlOK)
	if !ts.arena.Info().Paused {
		t.Error("arena should be paused")
	}
	sendMsg(t, conn, MsgControl, ControlMsg{ID: ts.arena.ID, Cmd: CmdResume})
	readEnvelope(t, conn, MsgControlOK)
	if ts.arena.Info().Paused {
		t.Error("arena should be running")
	}

	first := ts.arena.MissionID()
	sendMsg(t, conn, MsgControl, ControlMsg{ID: ts.arena.ID, Cmd: CmdReset, Seed: 99})
	readEnvelope(t, conn, MsgControlOK)
	if ts.arena.MissionID() == first {
		t.Error("reset should start a new mission")
	}

	sendMsg(t, conn, MsgControl, ControlMsg{Cmd: CmdNew, Name: "Second"})
	env := readEnvelope(t, conn, MsgControlOK)
	var ok ControlOKMsg
	json.Unmarshal(env.D, &ok)
	if ts.hub.arenas.Get(ok.ID) == nil {
		t.Fatalf("new arena %q not found", ok.ID)
	}

	sendMsg(t, conn, MsgControl, ControlMsg{ID: ok.ID, Cmd: CmdClose})
	readEnvelope(t, conn, MsgControlOK)
	if ts.hub.arenas.Get(ok.ID) != nil {
		t.Error("closed arena should be gone")
	}
}

func TestTokenResumesOperatorSession(t *testing.T) {
	ts := startTestServer(t)
	first := dialWS(t, ts.wsURL)
	token := loginWS(t, first)

	conn := dialWS(t, ts.wsURL)
	sendMsg(t, conn, MsgAuth, AuthMsg{Token: token})
	readEnvelope(t, conn, MsgAuthOK)
	sendMsg(t, conn, MsgControl, ControlMsg{ID: ts.arena.ID, Cmd: CmdPause})
	readEnvelope(t, conn, MsgControlOK)
}

func TestOperatorPilots(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts.wsURL)
	loginWS(t, conn)

	sendMsg(t, conn, MsgPilot, PilotMsg{ID: ts.arena.ID})
	readEnvelope(t, conn, MsgPilotOK)
	if !ts.arena.Info().Piloted {
		t.Fatal("arena should be piloted")
	}

	// binary input: turn counter-clockwise with thrust
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x01, 0x01}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ts.arena.mu.RLock()
		in := ts.arena.pilotInput
		ts.arena.mu.RUnlock()
		if in.Turn == 1 && in.Throttle {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	ts.arena.mu.RLock()
	in := ts.arena.pilotInput
	ts.arena.mu.RUnlock()
	if in.Turn != 1 || !in.Throttle || in.Fire {
		t.Errorf("binary input not applied: %+v", in)
	}

	sendMsg(t, conn, MsgLeave, nil)
	deadline = time.Now().Add(2 * time.Second)
	for ts.arena.Info().Piloted && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if ts.arena.Info().Piloted {
		t.Error("leaving should release the stick")
	}
}

func TestRateLimitDisconnects(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts.wsURL)
	for i := 0; i < maxMessagesPerSec*3; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"noop"}`)); err != nil {
			return
		}
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			t.Error("flooding client should have been disconnected")
		}
		return
	}
}

func TestHTTPLogin(t *testing.T) {
	ts := startTestServer(t)

	body, _ := json.Marshal(LoginMsg{Username: operatorName, Password: "wrong"})
	resp, err := http.Post(ts.srv.URL+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password should be 401, got %d", resp.StatusCode)
	}

	body, _ = json.Marshal(LoginMsg{Username: operatorName, Password: testOperatorPass})
	resp, err = http.Post(ts.srv.URL+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var ok AuthOKMsg
	json.NewDecoder(resp.Body).Decode(&ok)
	if resp.StatusCode != http.StatusOK || ok.Token == "" {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}
	if user, err := ts.hub.auth.ValidateToken(ok.Token); err != nil || user != operatorName {
		t.Errorf("issued token invalid: %v", err)
	}
}

func TestQRCode(t *testing.T) {
	ts := startTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/qr/" + ts.arena.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("expected png, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	png, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	resp, err = http.Get(ts.srv.URL + "/qr/unknown")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown arena should 404, got %d", resp.StatusCode)
	}
}

func TestSpectatorURL(t *testing.T) {
	r := httptest.NewRequest("GET", "/qr/x", nil)
	r.Host = "example.test:8080"
	if got := spectatorURL("", r, "abc"); got != "ws://example.test:8080/ws?watch=abc" {
		t.Errorf("unexpected url %s", got)
	}
	if got := spectatorURL("https://arena.example.com", r, "abc"); got != "wss://arena.example.com/ws?watch=abc" {
		t.Errorf("unexpected url %s", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := startTestServer(t)
	conn := dialWS(t, ts.wsURL+"?watch="+ts.arena.ID)
	readFrame(t, conn)

	resp, err := http.Get(ts.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	text := string(raw)
	for _, name := range []string{"arena_tick_duration_seconds", "arena_live_agents", "ws_connections", "arena_spectators"} {
		if !strings.Contains(text, name) {
			t.Errorf("metrics missing %s", name)
		}
	}
}

func TestMissionAPI(t *testing.T) {
	ts := startTestServer(t)
	id := ts.arena.MissionID()
	ts.arena.Reset(5)
	ts.ledger.Stop() // flush

	resp, err := http.Get(ts.srv.URL + "/api/missions?limit=5")
	if err != nil {
		t.Fatal(err)
	}
	var list []MissionRow
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if len(list) != 2 {
		t.Fatalf("expected 2 missions, got %+v", list)
	}
	if list[1].ID != id || list[1].Reason != ReasonReset {
		t.Errorf("expected the reset mission last, got %+v", list[1])
	}

	resp, err = http.Get(ts.srv.URL + "/api/missions/" + id)
	if err != nil {
		t.Fatal(err)
	}
	var detail struct {
		Mission MissionRow     `json:"mission"`
		Waves   []WaveRow      `json:"waves"`
		Events  map[string]int `json:"events"`
	}
	json.NewDecoder(resp.Body).Decode(&detail)
	resp.Body.Close()
	if detail.Mission.ID != id || detail.Mission.Seed != 11 {
		t.Errorf("unexpected mission detail %+v", detail.Mission)
	}

	resp, err = http.Get(ts.srv.URL + "/api/missions/" + id + "/waves")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("waves endpoint returned %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.srv.URL + "/api/missions/does-not-exist")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown mission should 404, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.srv.URL + "/api/arenas")
	if err != nil {
		t.Fatal(err)
	}
	var arenas []ArenaInfo
	json.NewDecoder(resp.Body).Decode(&arenas)
	resp.Body.Close()
	if len(arenas) != 1 || arenas[0].Mission != ts.arena.MissionID() {
		t.Errorf("unexpected arenas %+v", arenas)
	}
}
