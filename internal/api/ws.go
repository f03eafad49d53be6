package api

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxWSConns     = 64
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS is enforced at the HTTP layer; the upgrade itself accepts any
	// origin so native game clients can connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

var wsConns int32

// handleWS streams world events over a websocket. An optional ?zone= filter
// limits the stream to one zone. Slow clients lose oldest events rather than
// stalling producers; a client that can't keep a 64-deep queue drained will
// see gaps, not lag.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if atomic.AddInt32(&wsConns, 1) > maxWSConns {
		atomic.AddInt32(&wsConns, -1)
		writeError(w, http.StatusServiceUnavailable, "too many stream connections")
		return
	}
	defer atomic.AddInt32(&wsConns, -1)

	zoneFilter := r.URL.Query().Get("zone")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ch, cancel := s.Bus.Subscribe(64)
	defer cancel()

	// Catch-up: recent events so a fresh client has context.
	for _, ev := range s.Bus.Recent(zoneFilter, 25) {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}

	// Drain reads so close frames and pongs are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if zoneFilter != "" && ev.ZoneID != "" && !strings.EqualFold(ev.ZoneID, zoneFilter) {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
