package api

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/kitten-world/internal/engine"
)

const (
	maxStreamConns  = 16
	streamBacklog   = 50
	streamBuffer    = 256
	streamHeartbeat = 15 * time.Second
	writeWait       = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades to a websocket and forwards stream messages: recent
// events first as catch-up, then live events, bubble and toy changes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if n := atomic.AddInt32(&s.streamConns, 1); n > maxStreamConns {
		atomic.AddInt32(&s.streamConns, -1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.streamConns, -1)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch, unsubscribe := s.Sim.Subscribe(streamBuffer)
	defer unsubscribe()

	recent := s.Sim.RecentEvents(streamBacklog)
	for i := len(recent) - 1; i >= 0; i-- {
		e := recent[i]
		if err := writeMessage(conn, engine.Message{Type: engine.MessageEvent, Event: &e}); err != nil {
			return
		}
	}
	slog.Info("stream client connected", "remote", r.RemoteAddr)

	// Reader: drain control frames and notice the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return
			}
			if err := writeMessage(conn, m); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeMessage(conn *websocket.Conn, m engine.Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(m)
}
