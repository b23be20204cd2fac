package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"paintshop/internal/logger"
	"paintshop/internal/model"
)

// Run events over WebSocket, framed like graphql-transport-ws:
// connection_init/connection_ack, subscribe {runId}, next, complete, ping/pong.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	RunID string `json:"runId"`
}

// RunEventsWSHandler handles /v1/ws
func (s *Server) RunEventsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	type sub struct {
		runID string
		ch    chan model.RunEvent
	}
	subs := map[string]sub{}
	done := make(chan struct{})
	defer close(done)

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(60 * time.Second)) })

	// gorilla allows one concurrent writer
	var wmu sync.Mutex
	write := func(v wsMessage) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}
	writeEvent := func(id string, evt model.RunEvent) error {
		payload, _ := json.Marshal(evt)
		return write(wsMessage{Type: "next", ID: id, Payload: payload})
	}
	writeError := func(id, msg string) {
		payload, _ := json.Marshal(map[string]string{"message": msg})
		_ = write(wsMessage{Type: "error", ID: id, Payload: payload})
		_ = write(wsMessage{Type: "complete", ID: id})
	}

	acked := false
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			if acked {
				continue
			}
			acked = true
			_ = write(wsMessage{Type: "connection_ack"})
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						if err := write(wsMessage{Type: "ping"}); err != nil {
							return
						}
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "pong":
		case "subscribe":
			if !acked {
				writeError(msg.ID, "connection_init required")
				continue
			}
			if _, dup := subs[msg.ID]; dup || msg.ID == "" {
				writeError(msg.ID, "subscription id missing or in use")
				continue
			}
			var pl subscribePayload
			if err := json.Unmarshal(msg.Payload, &pl); err != nil || pl.RunID == "" {
				writeError(msg.ID, "runId required")
				continue
			}
			ch := s.Broker.Subscribe(pl.RunID)
			run, err := s.Store.GetRun(r.Context(), pl.RunID)
			if err != nil {
				s.Broker.Unsubscribe(pl.RunID, ch)
				writeError(msg.ID, "run not found")
				continue
			}
			_ = writeEvent(msg.ID, statusEvent(run))
			if terminalStatus(run.Status) {
				s.Broker.Unsubscribe(pl.RunID, ch)
				_ = write(wsMessage{Type: "complete", ID: msg.ID})
				continue
			}
			subs[msg.ID] = sub{runID: pl.RunID, ch: ch}
			go func(id string, c chan model.RunEvent) {
				for evt := range c {
					if err := writeEvent(id, evt); err != nil {
						return
					}
					if terminalEvent(evt.Type) {
						break
					}
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch)
		case "complete":
			if s0, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(s0.runID, s0.ch)
				delete(subs, msg.ID)
			}
		default:
			logger.Debugf("ws: ignoring message type %q", msg.Type)
		}
	}
	for id, s0 := range subs {
		s.Broker.Unsubscribe(s0.runID, s0.ch)
		delete(subs, id)
	}
}
