package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	limiter    *rate.Limiter
	arenaID    string
	piloting   bool
	// Operator state
	operator string // "" = spectator only
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
		limiter:    rate.NewLimiter(maxMessagesPerSec, maxMessagesPerSec),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		if !c.limiter.Allow() {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		// Binary pilot input: 3 bytes [0x01, turn int8, flags]
		if msgType == websocket.BinaryMessage && len(message) == 3 && message[0] == 0x01 {
			c.handleBinaryInput(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgWatch:
		c.handleWatch(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgCheck:
		c.handleCheck(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgControl:
		c.handleControl(env.D)
	case MsgPilot:
		c.handlePilot(env.D)
	case MsgInput:
		c.handleInput(env.D)
	}
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgArenas, Data: c.hub.arenas.List()})
}

func (c *Client) handleWatch(data json.RawMessage) {
	var msg WatchMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.watch(msg.ID)
}

// watch subscribes the client to an arena, leaving any previous one
func (c *Client) watch(id string) {
	a := c.hub.arenas.Get(id)
	if a == nil {
		c.sendError("arena not found")
		return
	}
	c.handleLeave()
	if err := a.AddSpectator(c); err != nil {
		c.sendError(err.Error())
		return
	}
	c.arenaID = a.ID
	c.SendJSON(Envelope{T: MsgWatching, Data: a.Info()})
}

func (c *Client) handleLeave() {
	if c.arenaID == "" {
		return
	}
	if a := c.hub.arenas.Get(c.arenaID); a != nil {
		if c.piloting {
			a.ReleasePilot(c)
		}
		a.RemoveSpectator(c)
	}
	c.arenaID = ""
	c.piloting = false
}

func (c *Client) handleCheck(data json.RawMessage) {
	var msg CheckMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	a := c.hub.arenas.Get(msg.ID)
	if a == nil {
		c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{ID: msg.ID, Exists: false}})
		return
	}
	info := a.Info()
	c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{
		ID:     msg.ID,
		Exists: true,
		Name:   info.Name,
		Wave:   info.Wave,
	}})
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("operator login disabled")
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.operator = msg.Username
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: msg.Username}})
}

func (c *Client) handleAuth(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("operator login disabled")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("invalid token")
		return
	}
	c.operator = username
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: msg.Token, Username: username}})
}

func (c *Client) handleControl(data json.RawMessage) {
	if c.operator == "" {
		c.sendError(ErrNotOperator.Error())
		return
	}
	var msg ControlMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	if msg.Cmd == CmdNew {
		a, err := c.hub.arenas.Create(msg.Name, msg.Seed)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		log.Printf("operator %s opened arena %s", c.operator, a.ID)
		c.SendJSON(Envelope{T: MsgControlOK, Data: ControlOKMsg{ID: a.ID, Cmd: msg.Cmd}})
		return
	}

	a := c.hub.arenas.Get(msg.ID)
	if a == nil {
		c.sendError("arena not found")
		return
	}
	switch msg.Cmd {
	case CmdPause:
		a.SetPaused(true)
	case CmdResume:
		a.SetPaused(false)
	case CmdReset:
		if err := a.Reset(msg.Seed); err != nil {
			c.sendError(err.Error())
			return
		}
	case CmdClose:
		c.hub.arenas.Remove(a.ID)
	default:
		c.sendError("unknown command")
		return
	}
	log.Printf("operator %s: %s arena %s", c.operator, msg.Cmd, a.ID)
	c.SendJSON(Envelope{T: MsgControlOK, Data: ControlOKMsg{ID: a.ID, Cmd: msg.Cmd}})
}

func (c *Client) handlePilot(data json.RawMessage) {
	if c.operator == "" {
		c.sendError(ErrNotOperator.Error())
		return
	}
	var msg PilotMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	a := c.hub.arenas.Get(msg.ID)
	if a == nil {
		c.sendError("arena not found")
		return
	}
	if c.arenaID != a.ID {
		c.handleLeave()
		if err := a.AddSpectator(c); err != nil {
			c.sendError(err.Error())
			return
		}
		c.arenaID = a.ID
	}
	if err := a.SetPilot(c); err != nil {
		c.sendError(err.Error())
		return
	}
	c.piloting = true
	c.SendJSON(Envelope{T: MsgPilotOK, Data: map[string]string{"id": a.ID}})
}

// handleBinaryInput decodes a compact 3-byte pilot input message
func (c *Client) handleBinaryInput(msg []byte) {
	c.applyInput(PilotInput{
		Turn:   int(int8(msg[1])),
		Thrust: msg[2]&0x01 != 0,
		Fire:   msg[2]&0x02 != 0,
	})
}

func (c *Client) handleInput(data json.RawMessage) {
	var in PilotInput
	if err := json.Unmarshal(data, &in); err != nil {
		return
	}
	c.applyInput(in)
}

func (c *Client) applyInput(in PilotInput) {
	if !c.piloting || c.arenaID == "" {
		return
	}
	a := c.hub.arenas.Get(c.arenaID)
	if a == nil {
		return
	}
	if err := a.HandleInput(c, in); err != nil {
		c.piloting = false
	}
}
