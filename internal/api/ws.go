package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Job progress over WebSocket: the server sends a snapshot, then every job event
// until the job finishes. Clients may send {"type":"ping"}.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingEvery    = 20 * time.Second
)

// JobWSHandler handles /v1/jobs/{id}/ws
func (s *Server) JobWSHandler(w http.ResponseWriter, r *http.Request, id string) {
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	job, err := s.Store.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	var mu sync.Mutex
	write := func(typ string, v any) error {
		var payload json.RawMessage
		if v != nil {
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			payload = b
		}
		mu.Lock()
		defer mu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(wsMessage{Type: typ, Payload: payload})
	}
	closeNormal := func() {
		mu.Lock()
		defer mu.Unlock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}

	if err := write("snapshot", job); err != nil {
		return
	}
	if job.Done() {
		evt := finalEvent(job)
		_ = write(evt.Type, evt.Data)
		closeNormal()
		return
	}

	// Read loop
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsReadTimeout)) })
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
			if msg.Type == "ping" {
				_ = write("pong", nil)
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt.Type, evt.Data); err != nil {
				return
			}
			if evt.Final() {
				closeNormal()
				return
			}
		case <-ticker.C:
			mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
			mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
