package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// SetupRoutes configures HTTP routes. publicURL is the externally visible
// base used in spectator links.
func SetupRoutes(hub *Hub, publicURL string) *http.ServeMux {
	mux := http.NewServeMux()
	publicURL = strings.TrimRight(publicURL, "/")

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client
		if id := r.URL.Query().Get("watch"); id != "" {
			client.watch(id)
		}

		go client.WritePump()
		go client.ReadPump()
	})

	if hub.metrics != nil {
		mux.Handle("/metrics", hub.metrics.Handler())
	}

	mux.HandleFunc("GET /api/arenas", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.arenas.List())
	})

	mux.HandleFunc("GET /api/missions", func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			writeJSON(w, http.StatusOK, []MissionRow{})
			return
		}
		list, err := hub.db.ListMissions(r.URL.Query().Get("arena"), queryInt(r, "limit", 20, 200))
		if err != nil {
			log.Printf("list missions: %v", err)
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})

	mux.HandleFunc("GET /api/missions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			http.NotFound(w, r)
			return
		}
		id := r.PathValue("id")
		m, err := hub.db.GetMission(id)
		if err != nil {
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		if m == nil {
			http.NotFound(w, r)
			return
		}
		waves, err := hub.db.ListWaves(id)
		if err != nil {
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		events, err := hub.db.EventCounts(id)
		if err != nil {
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"mission": m,
			"waves":   waves,
			"events":  events,
		})
	})

	mux.HandleFunc("GET /api/missions/{id}/waves", func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			writeJSON(w, http.StatusOK, []WaveRow{})
			return
		}
		waves, err := hub.db.ListWaves(r.PathValue("id"))
		if err != nil {
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, waves)
	})

	// Operator login for HTTP tools; the token is also accepted over /ws
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if hub.auth == nil {
			http.Error(w, "operator login disabled", http.StatusNotFound)
			return
		}
		var msg LoginMsg
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageSize)).Decode(&msg); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		token, err := hub.auth.Login(msg.Username, msg.Password, extractIP(r))
		switch {
		case errors.Is(err, ErrTooManyLogins):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		case errors.Is(err, ErrBadCredentials):
			http.Error(w, err.Error(), http.StatusUnauthorized)
		case err != nil:
			http.Error(w, "internal error", http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusOK, AuthOKMsg{Token: token, Username: msg.Username})
		}
	})

	// QR code of the spectator link, for putting an arena on a phone
	mux.HandleFunc("GET /qr/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if hub.arenas.Get(id) == nil {
			http.NotFound(w, r)
			return
		}
		png, err := qrcode.Encode(spectatorURL(publicURL, r, id), qrcode.Medium, qrSize)
		if err != nil {
			log.Printf("qr encode: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	return mux
}

// spectatorURL is the websocket link a client uses to watch arena id
func spectatorURL(publicURL string, r *http.Request, id string) string {
	base := publicURL
	if base == "" {
		base = "http://" + r.Host
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws?watch=" + url.QueryEscape(id)
}
