package sse

import (
	"context"
	"ms-events/internal/models"
	"sync"
)

// ClientBuffer is how many events a slow client may fall behind before events are dropped.
const ClientBuffer = 10

// RegistrationEventEmitter fans registration changes out to the SSE clients of each user
type RegistrationEventEmitter struct {
	// key: userID, value: client channels
	clients map[string][]chan models.RegistrationEvent
	mu      sync.RWMutex
}

// NewRegistrationEventEmitter creates a new SSE event emitter for registration events
func NewRegistrationEventEmitter() *RegistrationEventEmitter {
	return &RegistrationEventEmitter{
		clients: make(map[string][]chan models.RegistrationEvent),
	}
}

// Subscribe adds a client for userID. The channel is closed once ctx is done.
func (e *RegistrationEventEmitter) Subscribe(ctx context.Context, userID string) <-chan models.RegistrationEvent {
	clientChan := make(chan models.RegistrationEvent, ClientBuffer)

	e.mu.Lock()
	e.clients[userID] = append(e.clients[userID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(userID, clientChan)
	}()

	return clientChan
}

// Publish broadcasts evt to the user's clients. It never blocks.
func (e *RegistrationEventEmitter) Publish(_ context.Context, evt models.RegistrationEvent) error {
	// Sending under the read lock keeps removeClient from closing a channel mid-send.
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.clients[evt.UserID] {
		select {
		case clientChan <- evt:
		default:
			// Channel buffer full, skip this client
		}
	}
	return nil
}

func (e *RegistrationEventEmitter) removeClient(userID string, clientChan chan models.RegistrationEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[userID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[userID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[userID]) == 0 {
		delete(e.clients, userID)
	}
}

// ClientCount returns the number of clients currently subscribed for a user
func (e *RegistrationEventEmitter) ClientCount(userID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[userID])
}
