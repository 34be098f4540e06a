package ws

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, rooms []string, buffer int) *Client {
	client := &Client{hub: hub, rooms: rooms, send: make(chan []byte, buffer)}
	for _, room := range rooms {
		hub.Join(room, client)
	}

	return client
}

func TestBroadcastDropsSlowClients(t *testing.T) {
	hub := NewHub()
	room := UserRoom(1)
	client := newTestClient(hub, []string{room}, 1)

	hub.Broadcast(room, EMERGENCY_TRIGGERED_EVENT, "first")

	// The buffer is full now, so this send drops the client instead of
	// blocking the caller
	hub.Broadcast(room, EMERGENCY_TRIGGERED_EVENT, "second")

	// Further broadcasts must not panic on the closed send channel
	assert.NotPanics(t, func() {
		hub.Broadcast(room, EMERGENCY_TRIGGERED_EVENT, "third")
	})

	msg, open := <-client.send
	require.True(t, open)
	assert.Contains(t, string(msg), "first")

	_, open = <-client.send
	assert.False(t, open)
}

func TestDropIsIdempotentAcrossRooms(t *testing.T) {
	hub := NewHub()
	rooms := []string{UserRoom(1), EmergencyRoom(7)}
	client := newTestClient(hub, rooms, 1)

	hub.drop(client)
	assert.NotPanics(t, func() { hub.drop(client) })

	for _, room := range rooms {
		hub.Broadcast(room, EMERGENCY_UPDATED_EVENT, "after close")
	}

	_, open := <-client.send
	assert.False(t, open)
}

func TestConcurrentBroadcastAndDrop(t *testing.T) {
	hub := NewHub()
	room := UserRoom(1)

	clients := make([]*Client, 20)
	for i := range clients {
		clients[i] = newTestClient(hub, []string{room}, 1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(room, LOCATION_UPDATED_EVENT, "ping")
		}()
	}
	for _, client := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.drop(c)
		}(client)
	}
	wg.Wait()

	for _, client := range clients {
		for range client.send {
		}
	}
}
