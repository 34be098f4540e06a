package ws

import (
	"encoding/json"
	"fmt"
	"sync"
)

const (
	EMERGENCY_TRIGGERED_EVENT = "emergency-triggered"
	EMERGENCY_UPDATED_EVENT   = "emergency-updated"
	LOCATION_UPDATED_EVENT    = "location-updated"
)

// Event is the envelope every realtime message is wrapped in
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks websocket clients by room & fans events out to them
type Hub struct {
	rooms map[string]map[*Client]bool
	mu    sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]bool)}
}

func (h *Hub) Join(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

func (h *Hub) Leave(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(room, client)
}

// Broadcast sends an event to every client in the room. Slow clients
// that can't keep up are dropped rather than blocking the send.
func (h *Hub) Broadcast(room, event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return
	}

	var slow []*Client

	h.mu.RLock()
	for client := range h.rooms[room] {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.drop(client)
	}
}

// drop removes the client from all of its rooms and closes its send
// channel. The close happens under the write lock, so it can never race
// a Broadcast send, which holds the read lock.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.closeOnce.Do(func() {
		for _, room := range client.rooms {
			h.removeLocked(room, client)
		}
		close(client.send)
	})
}

func (h *Hub) removeLocked(room string, client *Client) {
	if clients := h.rooms[room]; clients != nil {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

// UserRoom is the room a user's own devices subscribe to
func UserRoom(userID uint) string {
	return fmt.Sprintf("user-%v", userID)
}

// EmergencyRoom is the room watchers of a single emergency subscribe to
func EmergencyRoom(emergencyID uint) string {
	return fmt.Sprintf("emergency-%v", emergencyID)
}
