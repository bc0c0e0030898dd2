/*
events.go - Live event feed over websockets

PURPOSE:
  Implements the engine's Publisher collaborator as a broadcast hub:
  every committed lifecycle transition is pushed as JSON to all connected
  websocket clients at GET /ws/events.

DELIVERY:
  Best effort. Events are informational, not correctness-bearing; a slow
  subscriber gets dropped events rather than blocking the engine.
*/
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/warp/stream-engine/stream"
)

// Hub broadcasts engine events to websocket subscribers. Implements
// stream.Publisher.
type Hub struct {
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	upgrader websocket.Upgrader
}

type subscriber struct {
	events chan stream.Event
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			// Browser clients connect from the frontend origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Publish fans the event out to every subscriber without blocking.
func (h *Hub) Publish(_ context.Context, ev stream.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.events <- ev:
		default:
			// Slow consumer; drop rather than stall the engine.
		}
	}
}

// ServeWS upgrades the connection and streams events until the client
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	sub := &subscriber{events: make(chan stream.Event, 32)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain control/close frames; any read error means the client left.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev := <-sub.events:
			js, err := json.Marshal(&ev)
			if err != nil {
				log.Printf("event marshal: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, js); err != nil {
				return
			}
		}
	}
}
