package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"
)

const wsIdlePingInterval = 30 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// ws streams JSON state snapshots: one on connect, then one per change.
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("ws-upgrade-failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	ch, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()

	// reader: detect close from the client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg wsMessage) bool {
		return conn.WriteMessage(websocket.TextMessage, mustMarshal(msg)) == nil
	}
	if !send(wsMessage{Type: "state", Payload: mustMarshal(toDTO(*gs))}) {
		return
	}
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !send(wsMessage{Type: "ping"}) {
				return
			}
		case st, ok := <-ch:
			if !ok {
				return
			}
			if !send(wsMessage{Type: "state", Payload: mustMarshal(toDTO(st))}) {
				return
			}
		}
	}
}
